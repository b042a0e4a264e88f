package recorder

import (
	"context"

	"SectorPulse/internal/model"
)

// NoopRecorder is used when no storage is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) SaveSnapshot(_ context.Context, _ string, _ *model.Snapshot) error {
	return nil
}

func (n *NoopRecorder) LatestSnapshot(_ context.Context) ([]byte, error) {
	return nil, ErrNoSnapshot
}

func (n *NoopRecorder) Close() error { return nil }
