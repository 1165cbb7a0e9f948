// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-crusty.
//
// go-crusty is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records samples into Prometheus metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	// OperationsTotal tracks crusty operations by type, backend, and status.
	OperationsTotal *prometheus.CounterVec

	// OperationDuration tracks the duration of operations in seconds.
	OperationDuration *prometheus.HistogramVec

	// BytesTotal tracks plaintext bytes processed by operation and backend.
	BytesTotal *prometheus.CounterVec

	// ErrorsTotal tracks failures by operation, backend, and error type.
	ErrorsTotal *prometheus.CounterVec
}

// NewCollector creates a collector with a fresh registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "operations_total",
				Help:      "Total number of crusty operations by type, backend, and status",
			},
			[]string{LabelOperation, LabelBackend, LabelStatus},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of crusty operations in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{LabelOperation, LabelBackend},
		),
		BytesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "bytes_processed_total",
				Help:      "Total number of plaintext bytes processed by operation and backend",
			},
			[]string{LabelOperation, LabelBackend},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "errors_total",
				Help:      "Total number of errors by operation, backend, and error type",
			},
			[]string{LabelOperation, LabelBackend, LabelErrorType},
		),
	}
	c.registry.MustRegister(c.OperationsTotal, c.OperationDuration, c.BytesTotal, c.ErrorsTotal)
	return c
}

// Registry returns the registry the collector's metrics live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordOperation implements Recorder.
func (c *Collector) RecordOperation(operation, backend, status string, duration time.Duration) {
	c.OperationsTotal.WithLabelValues(operation, backend, status).Inc()
	c.OperationDuration.WithLabelValues(operation, backend).Observe(duration.Seconds())
}

// RecordBytes implements Recorder.
func (c *Collector) RecordBytes(operation, backend string, n int64) {
	if n <= 0 {
		return
	}
	c.BytesTotal.WithLabelValues(operation, backend).Add(float64(n))
}

// RecordError implements Recorder.
func (c *Collector) RecordError(operation, backend, errorType string) {
	c.ErrorsTotal.WithLabelValues(operation, backend, errorType).Inc()
}

// WriteTextfile writes every metric in the text exposition format to path,
// for pickup by a node exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("metrics: failed to write %s: %w", path, err)
	}
	return nil
}
