package recorder

import (
	"context"
	"errors"

	"SectorPulse/internal/model"
)

// ErrNoSnapshot is returned by LatestSnapshot before the first save.
var ErrNoSnapshot = errors.New("no snapshot recorded")

// Recorder keeps the latest snapshot. Each save replaces the previous one.
type Recorder interface {
	SaveSnapshot(ctx context.Context, runID string, snap *model.Snapshot) error
	// LatestSnapshot returns the JSON document of the last saved snapshot.
	LatestSnapshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Multi fans saves out to several recorders and reads from the first that
// has a snapshot.
type Multi []Recorder

func (m Multi) SaveSnapshot(ctx context.Context, runID string, snap *model.Snapshot) error {
	var errs []error
	for _, r := range m {
		if err := r.SaveSnapshot(ctx, runID, snap); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) LatestSnapshot(ctx context.Context) ([]byte, error) {
	for _, r := range m {
		data, err := r.LatestSnapshot(ctx)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, ErrNoSnapshot) {
			return nil, err
		}
	}
	return nil, ErrNoSnapshot
}

func (m Multi) Close() error {
	var errs []error
	for _, r := range m {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
