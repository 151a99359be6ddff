// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	require := require.New(t)

	require.Equal(Noop, New(Config{}))

	tracer := New(Config{Enabled: true})
	_, span := tracer.Start(context.Background(), "test")
	span.End()
	require.False(span.SpanContext().IsValid())
}
