package library

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"scriptorium/internal/config"
	models "scriptorium/internal/domain/models/library"
	librarySvc "scriptorium/internal/domain/services/library"
	"scriptorium/internal/metrics"

	"github.com/sony/gobreaker"
)

var errEmptyRecord = errors.New("lookup returned no record")

// DegradedLookup answers every query with a degraded record. It is the lookup
// used when no bibliographic source is configured.
type DegradedLookup struct{}

// FetchMetadata returns a record whose title is the query
func (DegradedLookup) FetchMetadata(_ context.Context, query string) (*models.LookupRecord, error) {
	return models.DegradedRecord(query), nil
}

// BreakerConfig configures the circuit breaker guarding a metadata lookup
type BreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// The breaker opens once MinRequests calls in an interval fail at FailureThreshold or above
	FailureThreshold float64
	MinRequests      uint32
}

// BreakerConfigFrom builds the lookup breaker settings from application config
func BreakerConfigFrom(cfg *config.Config) BreakerConfig {
	return BreakerConfig{
		Name:             "metadata-lookup",
		MaxRequests:      1,
		Interval:         30 * time.Second,
		Timeout:          cfg.LookupBreakerTimeout,
		FailureThreshold: cfg.LookupBreakerFailureRate,
		MinRequests:      cfg.LookupBreakerMinRequests,
	}
}

// ResilientLookup wraps a lookup so that failures, and calls made while the
// breaker is open, produce a degraded record instead of an error
type ResilientLookup struct {
	lookup  librarySvc.MetadataLookup
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Collector
	logger  *slog.Logger
}

// NewResilientLookup wraps lookup in a circuit breaker
func NewResilientLookup(
	lookup librarySvc.MetadataLookup,
	cfg BreakerConfig,
	collector *metrics.Collector,
	logger *slog.Logger,
) *ResilientLookup {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &ResilientLookup{
		lookup:  lookup,
		breaker: breaker,
		metrics: collector,
		logger:  logger,
	}
}

// FetchMetadata never fails; lookup errors yield models.DegradedRecord(query)
func (l *ResilientLookup) FetchMetadata(ctx context.Context, query string) (*models.LookupRecord, error) {
	result, err := l.breaker.Execute(func() (interface{}, error) {
		record, err := l.lookup.FetchMetadata(ctx, query)
		if err != nil {
			return nil, err
		}
		if record == nil {
			return nil, errEmptyRecord
		}
		return record, nil
	})
	if err != nil {
		l.logger.Warn("metadata lookup degraded", "query", query, "error", err)
		l.metrics.LookupDegraded()
		return models.DegradedRecord(query), nil
	}

	record := result.(*models.LookupRecord)
	if record.Degraded {
		l.metrics.LookupDegraded()
	}
	return record, nil
}

// State reports the breaker state
func (l *ResilientLookup) State() gobreaker.State {
	return l.breaker.State()
}
