// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

type bufferCloser struct{ bytes.Buffer }

func (*bufferCloser) Close() error { return nil }

func TestLevelRoundTrip(t *testing.T) {
	require := require.New(t)

	for _, level := range []Level{Verbo, Debug, Trace, Info, Warn, Error, Fatal, Off} {
		parsed, err := ToLevel(level.String())
		require.NoError(err)
		require.Equal(level, parsed)
	}

	_, err := ToLevel("chatty")
	require.Error(err)
}

func TestLevelJSON(t *testing.T) {
	require := require.New(t)

	b, err := Debug.MarshalJSON()
	require.NoError(err)
	require.Equal(`"DEBUG"`, string(b))

	var l Level
	require.NoError(l.UnmarshalJSON([]byte(`"warn"`)))
	require.Equal(Warn, l)
}

func TestLoggerFiltersByLevel(t *testing.T) {
	require := require.New(t)

	buf := &bufferCloser{}
	log := NewLogger("test", NewWrappedCore(Info, buf, newEncoder(true)))

	log.Debug("hidden")
	require.Zero(buf.Len())

	log.Info("shown", zap.Uint64("version", 7))
	require.Contains(buf.String(), `"msg":"shown"`)
	require.Contains(buf.String(), `"version":7`)
	require.Contains(buf.String(), `"level":"INFO"`)

	require.False(log.Enabled(Verbo))
	log.SetLevel(Verbo)
	require.True(log.Enabled(Verbo))
}

func TestLoggerWith(t *testing.T) {
	require := require.New(t)

	buf := &bufferCloser{}
	log := NewLogger("", NewWrappedCore(Info, buf, newEncoder(true)))
	log.With(zap.String("pruner", "ledger")).Warn("lagging")
	require.Contains(buf.String(), `"pruner":"ledger"`)
}

func TestRecoverAndPanic(t *testing.T) {
	require := require.New(t)

	buf := &bufferCloser{}
	log := NewLogger("", NewWrappedCore(Info, buf, newEncoder(true)))

	require.PanicsWithValue("boom", func() {
		log.RecoverAndPanic(func() {
			panic("boom")
		})
	})
	require.Contains(buf.String(), `"msg":"panicking"`)
	require.Contains(buf.String(), `"reason":"boom"`)

	buf.Reset()
	ran := false
	log.RecoverAndPanic(func() {
		ran = true
	})
	require.True(ran)
	require.Zero(buf.Len())
}

func TestFactoryRejectsDuplicateNames(t *testing.T) {
	require := require.New(t)

	cfg := DefaultConfig()
	cfg.DisableWriterDisplaying = true
	f := NewFactory(cfg)
	defer f.Close()

	_, err := f.Make("store")
	require.NoError(err)
	_, err = f.Make("store")
	require.Error(err)
	require.Equal([]string{"store"}, f.GetLoggerNames())
	require.NoError(f.SetLogLevel("store", Debug))
	require.Error(f.SetLogLevel("missing", Debug))
}

func TestConfigVerify(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DisableFile = false
	require.ErrorIs(t, cfg.Verify(), errMissingDirectory)
}
