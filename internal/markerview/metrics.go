package markerview

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/OCAP2/markerview/pkg/core"
)

// Reasons a visible marker was left without a view.
const (
	skipNoAdapter          = "no_adapter"
	skipViewCreationFailed = "view_creation_failed"
	skipViewAlreadyBound   = "view_already_bound"
)

type metrics struct {
	reconciliations metric.Int64Counter
	created         metric.Int64Counter
	released        metric.Int64Counter
	skipped         metric.Int64Counter
	animations      metric.Int64Counter
	bound           metric.Int64ObservableGauge
	poolSize        metric.Int64ObservableGauge

	registration metric.Registration

	// Snapshot read by the gauge callback, which runs on the SDK's goroutine.
	mu        sync.RWMutex
	boundN    int64
	poolSizes map[core.AdapterType]int64
}

func newMetrics(m metric.Meter) (*metrics, error) {
	ms := &metrics{poolSizes: make(map[core.AdapterType]int64)}

	var err error

	ms.reconciliations, err = m.Int64Counter(
		"markerview.reconciliations",
		metric.WithDescription("Total reconciliation passes"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating reconciliations counter: %w", err)
	}

	ms.created, err = m.Int64Counter(
		"markerview.bindings.created",
		metric.WithDescription("Total marker views bound"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating bindings created counter: %w", err)
	}

	ms.released, err = m.Int64Counter(
		"markerview.bindings.released",
		metric.WithDescription("Total marker views returned to their pool"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating bindings released counter: %w", err)
	}

	ms.skipped, err = m.Int64Counter(
		"markerview.skipped",
		metric.WithDescription("Visible markers left without a view"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating skipped counter: %w", err)
	}

	ms.animations, err = m.Int64Counter(
		"markerview.animations.started",
		metric.WithDescription("Total timed view animations started"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating animations counter: %w", err)
	}

	ms.bound, err = m.Int64ObservableGauge(
		"markerview.bound",
		metric.WithDescription("Current number of bound marker views"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating bound gauge: %w", err)
	}

	ms.poolSize, err = m.Int64ObservableGauge(
		"markerview.pool.size",
		metric.WithDescription("Current number of pooled views per adapter"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pool size gauge: %w", err)
	}

	ms.registration, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			ms.mu.RLock()
			defer ms.mu.RUnlock()
			o.ObserveInt64(ms.bound, ms.boundN)
			for t, n := range ms.poolSizes {
				o.ObserveInt64(ms.poolSize, n,
					metric.WithAttributes(attribute.String("adapter", string(t))))
			}
			return nil
		},
		ms.bound, ms.poolSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering gauge callback: %w", err)
	}

	return ms, nil
}

func (ms *metrics) publish(bound int, pools map[core.AdapterType]int) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.boundN = int64(bound)
	clear(ms.poolSizes)
	for t, n := range pools {
		ms.poolSizes[t] = int64(n)
	}
}

func (ms *metrics) skip(reason string, t core.AdapterType) {
	ms.skipped.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("reason", reason),
		attribute.String("adapter", string(t)),
	))
}

func (ms *metrics) unregister() error {
	if ms.registration == nil {
		return nil
	}
	return ms.registration.Unregister()
}
