package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aggsim/aggsim/config"
	"github.com/aggsim/aggsim/protocols/p2psig"
)

func writeFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadP2PSigFile_OverridesOnlyTheGivenFields(t *testing.T) {
	path := writeFile(t, `
signingNodeCount: 50
threshold: 49
`)

	params, err := config.LoadP2PSigFile(path)
	require.NoError(t, err)

	defaults := p2psig.DefaultParameters()
	assert.Equal(t, 50, params.SigningNodeCount)
	assert.Equal(t, 49, params.Threshold)
	// Unspecified fields keep their default.
	assert.Equal(t, defaults.RelayingNodeCount, params.RelayingNodeCount)
	assert.Equal(t, defaults.SanFermin, params.SanFermin)
}

func TestLoadP2PSigFile_MissingFileIsAnError(t *testing.T) {
	_, err := config.LoadP2PSigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadP2PSigFile_MalformedYAMLIsAnError(t *testing.T) {
	path := writeFile(t, "signingNodeCount: [this is not an int\n")
	_, err := config.LoadP2PSigFile(path)
	assert.Error(t, err)
}

func TestLoadHandelFile_OverridesOnlyTheGivenFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "handel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nodeCount: 64\n"), 0o644))

	params, err := config.LoadHandelFile(path)
	require.NoError(t, err)
	assert.Equal(t, 64, params.NodeCount)
}
