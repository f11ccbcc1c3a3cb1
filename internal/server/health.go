package server

import (
	"context"
	"errors"
)

var errDatasetNotLoaded = errors.New("dataset not loaded")

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// MapSource is the part of the map service consulted by health checks.
type MapSource interface {
	Ping(ctx context.Context) error
	Ready() bool
}

// MapHealthService reports healthy once the backing store answers and a
// dataset snapshot is live.
type MapHealthService struct {
	Maps MapSource
}

// Probe implements the HealthService interface.
func (s MapHealthService) Probe(ctx context.Context) error {
	if s.Maps == nil {
		return nil
	}
	if err := s.Maps.Ping(ctx); err != nil {
		return err
	}
	if !s.Maps.Ready() {
		return errDatasetNotLoaded
	}
	return nil
}
