package logging_test

import (
	"bytes"
	"testing"

	"github.com/jrsteele09/go-tenant-portal/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestSetupWriter(t *testing.T) {
	var buf bytes.Buffer
	logging.SetupWriter(&buf, "PROD", "warn")
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	log.Info().Msg("hidden")
	log.Warn().Str("component", "test").Msg("shown")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"component":"test"`)
	require.Contains(t, buf.String(), `"message":"shown"`)
}

func TestSetupWriterUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	logging.SetupWriter(&buf, "PROD", "chatty")

	require.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	require.Contains(t, buf.String(), "unknown log level")
}
