package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_WritesJSONToFile(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	})

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	closer, err := Setup("debug", path)
	require.NoError(t, err)

	log.Debug().Str("strategy", "memory").Msg("dispatch")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"strategy":"memory"`)
	assert.Contains(t, string(data), `"message":"dispatch"`)
}

func TestSetup_RejectsUnknownLevel(t *testing.T) {
	_, err := Setup("loud", "")
	assert.Error(t, err)
}
