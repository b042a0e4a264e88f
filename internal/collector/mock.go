package collector

import (
	"context"
	"fmt"
	"time"

	"SectorPulse/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price  float64
	Series map[string][]model.PricePoint
	Errors map[string]error
	// End is the date of the last generated bar; zero means today.
	End time.Time
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, symbol string, days int) ([]model.PricePoint, error) {
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	if pts, ok := m.Series[symbol]; ok {
		if len(pts) > days {
			pts = pts[len(pts)-days:]
		}
		return pts, nil
	}
	if m.Price == 0 {
		return nil, fmt.Errorf("mock: no data for %s", symbol)
	}
	return generateMockBars(m.Price, days, m.End), nil
}

func generateMockBars(basePrice float64, count int, end time.Time) []model.PricePoint {
	if end.IsZero() {
		now := time.Now().UTC()
		end = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	bars := make([]model.PricePoint, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.PricePoint{
			Date:   end.AddDate(0, 0, -(count - 1 - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
