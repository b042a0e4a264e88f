// Package store holds the price history of every instrument for one run.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"SectorPulse/internal/model"
)

// ErrUnordered is returned for series whose dates are not strictly increasing.
var ErrUnordered = errors.New("series dates not strictly increasing")

// Store is an in-memory series holder. Writers fill it during collection;
// afterwards it is only read.
type Store struct {
	mu     sync.RWMutex
	series map[string]model.Series
}

// New creates an empty Store.
func New() *Store {
	return &Store{series: make(map[string]model.Series)}
}

// Put stores a copy of the series, replacing any previous one for the same
// instrument.
func (s *Store) Put(series model.Series) error {
	if series.InstrumentID == "" {
		return errors.New("series has no instrument id")
	}
	for i := 1; i < len(series.Points); i++ {
		if !series.Points[i].Date.After(series.Points[i-1].Date) {
			return fmt.Errorf("%s at index %d (%s): %w", series.InstrumentID, i,
				series.Points[i].Date.Format("2006-01-02"), ErrUnordered)
		}
	}
	pts := make([]model.PricePoint, len(series.Points))
	copy(pts, series.Points)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.series[series.InstrumentID] = model.Series{InstrumentID: series.InstrumentID, Points: pts}
	return nil
}

// Series returns a copy of the instrument's series.
func (s *Store) Series(id string) (model.Series, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series, ok := s.series[id]
	if !ok {
		return model.Series{}, false
	}
	pts := make([]model.PricePoint, len(series.Points))
	copy(pts, series.Points)
	return model.Series{InstrumentID: id, Points: pts}, true
}

// IDs returns the stored instrument ids in ascending order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.series))
	for id := range s.series {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of stored series.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.series)
}
