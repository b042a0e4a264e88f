package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorPulse/internal/model"
)

func TestCollect(t *testing.T) {
	end := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	f := &MockFetcher{
		Price:  1000,
		End:    end,
		Errors: map[string]error{"1618": errors.New("boom")},
		Series: map[string][]model.PricePoint{
			"1619": {{Date: end, Close: 1}, {Date: end, Close: 2}},
		},
	}
	universe := []model.Instrument{{ID: "1617"}, {ID: "1618"}, {ID: "1619"}, {ID: "1620"}}

	res, err := NewCollector(f, 120, 2, zerolog.Nop()).Collect(context.Background(), universe)
	require.NoError(t, err)

	assert.Equal(t, []string{"1617", "1620"}, res.Store.IDs())
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors, "1618")
	assert.Contains(t, res.Errors, "1619", "unordered series is rejected")

	s, ok := res.Store.Series("1617")
	require.True(t, ok)
	assert.Equal(t, 120, s.Len())
	assert.Equal(t, end, s.Latest().Date)
}

func TestCollect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &MockFetcher{Errors: map[string]error{"1617": context.Canceled}}
	_, err := NewCollector(f, 10, 1, zerolog.Nop()).Collect(ctx, []model.Instrument{{ID: "1617"}})
	assert.Error(t, err)
}
