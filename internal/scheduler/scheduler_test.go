package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorPulse/internal/model"
	"SectorPulse/internal/pipeline"
)

type fakeRunner struct {
	mu    sync.Mutex
	runs  int
	err   error
	snap  *model.Snapshot
	ranCh chan struct{}
}

func (f *fakeRunner) Run(context.Context) (*pipeline.Result, error) {
	f.mu.Lock()
	f.runs++
	f.mu.Unlock()
	if f.ranCh != nil {
		f.ranCh <- struct{}{}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.Result{RunID: "run-1", Snapshot: f.snap}, nil
}

func (f *fakeRunner) Latest() (*model.Snapshot, string, bool) {
	return f.snap, "run-1", f.snap != nil
}

type fakeSender struct{ texts []string }

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.texts = append(f.texts, text)
	return nil
}

func testSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Records: []model.Record{{InstrumentID: "1625", Name: "Electric Appliances",
			RSI: model.Defined(75), PercentB: model.Defined(1.2), ChangePct: model.Defined(1.5),
			Labels: model.NewLabels(model.LabelOverheated, model.LabelUptrend)}},
		TopN:        []string{"1625"},
		Failures:    []model.PartialFailure{},
		GeneratedAt: time.Date(2024, 5, 31, 8, 0, 0, 0, time.UTC),
	}
}

func TestRegisterAll(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeRunner{}, nil, zerolog.Nop())
	require.NoError(t, s.RegisterAll("0 0 17 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 1)

	err := NewScheduler(context.Background(), &fakeRunner{}, nil, zerolog.Nop()).RegisterAll("every day")
	assert.Error(t, err)
}

func TestRunNow_ReportsFailure(t *testing.T) {
	sender := &fakeSender{}
	r := &fakeRunner{err: errors.New("collect: context deadline exceeded")}
	s := NewScheduler(context.Background(), r, sender, zerolog.Nop())

	s.RunNow()
	assert.Equal(t, 1, r.runs)
	require.Len(t, sender.texts, 1)
	assert.Contains(t, sender.texts[0], "deadline exceeded")
}

func TestRunNow_FailureTextIsEscaped(t *testing.T) {
	sender := &fakeSender{}
	r := &fakeRunner{err: errors.New("fetch: unexpected <html> body")}
	s := NewScheduler(context.Background(), r, sender, zerolog.Nop())

	s.RunNow()
	require.Len(t, sender.texts, 1)
	assert.Contains(t, sender.texts[0], "unexpected &lt;html&gt; body")
}

func TestRunNow_InProgressIsQuiet(t *testing.T) {
	sender := &fakeSender{}
	s := NewScheduler(context.Background(), &fakeRunner{err: pipeline.ErrRunInProgress}, sender, zerolog.Nop())
	s.RunNow()
	assert.Empty(t, sender.texts)
}

func TestHandleCommand(t *testing.T) {
	r := &fakeRunner{}
	s := NewScheduler(context.Background(), r, nil, zerolog.Nop())

	assert.Equal(t, "No snapshot yet.", s.HandleCommand("/snapshot"))
	assert.Equal(t, "No snapshot yet.", s.HandleCommand("/hot"))

	r.snap = testSnapshot()
	assert.Contains(t, s.HandleCommand("/snapshot"), "Instruments: 1 | Failed: 0")
	assert.Contains(t, s.HandleCommand("/hot@SectorPulseBot"), "1. 1625 Electric Appliances")
	assert.Contains(t, s.HandleCommand("hello"), "/snapshot")
}

func TestHandleCommand_Run(t *testing.T) {
	r := &fakeRunner{snap: testSnapshot(), ranCh: make(chan struct{}, 1)}
	s := NewScheduler(context.Background(), r, nil, zerolog.Nop())

	assert.Equal(t, "Analysis started.", s.HandleCommand("/run"))
	select {
	case <-r.ranCh:
	case <-time.After(time.Second):
		t.Fatal("run was not started")
	}
}
