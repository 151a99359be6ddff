// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package trace

import (
	"go.opentelemetry.io/otel"

	oteltrace "go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/ava-labs/ledgerdb"

// Tracer starts spans. It is satisfied by any OpenTelemetry tracer.
type Tracer interface {
	oteltrace.Tracer
}

// Noop is a Tracer that records nothing.
var Noop Tracer = oteltrace.NewNoopTracerProvider().Tracer(instrumentationName)

type Config struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// New returns a Tracer backed by the globally registered OpenTelemetry
// provider, or Noop if tracing is disabled.
func New(config Config) Tracer {
	if !config.Enabled {
		return Noop
	}
	return otel.Tracer(instrumentationName)
}
