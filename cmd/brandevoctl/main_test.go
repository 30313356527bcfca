package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brandevo/internal/config"
	"brandevo/internal/httpapi"
	"brandevo/internal/model"
	"brandevo/pkg/brandevo"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "brandevo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out)
	return out.String(), err
}

func TestValidateConfig(t *testing.T) {
	path := writeConfig(t, `
evolution:
  population_size: 12
  elite_count: 4
  interval: 30m
log:
  level: warn
`)
	out, err := runCLI(t, "validate-config", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ok population=12 elites=4 dims=8")
	assert.Contains(t, out, "interval=30m0s")
}

func TestValidateConfigRejectsBadElites(t *testing.T) {
	path := writeConfig(t, `
evolution:
  population_size: 4
  elite_count: 4
`)
	_, err := runCLI(t, "validate-config", "-c", path)
	require.ErrorIs(t, err, config.ErrInvalidConfiguration)
}

func TestParametersPrintsDefaults(t *testing.T) {
	out, err := runCLI(t, "parameters")
	require.NoError(t, err)
	assert.Contains(t, out, "generation=0 ref=g0/i0 status=active")
	assert.Contains(t, out, "music_tempo")
	assert.Contains(t, out, "90.0000")
}

func TestHistoryAndGenerationReadPersistentStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "gens")
	path := writeConfig(t, "store:\n  kind: badger\n  path: "+dbPath+"\nlog:\n  level: error\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	client, err := brandevo.New(brandevo.Options{Config: &cfg})
	require.NoError(t, err)
	require.NoError(t, client.Init(context.Background()))
	for i := 0; i < cfg.Evolution.PopulationSize; i++ {
		_, err := client.SubmitEngagement(context.Background(), model.EngagementObservation{
			Ref:   model.VectorRef{GenerationID: 0, Index: i},
			Views: 1500,
			Likes: int64(i + 1),
		})
		require.NoError(t, err)
	}
	_, err = client.Evolve(context.Background())
	require.NoError(t, err)
	require.NoError(t, client.Close())

	out, err := runCLI(t, "history", "--config", path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "1 "), lines[1])
	assert.Contains(t, lines[2], "evolved")
	assert.Contains(t, lines[2], "15,000")

	out, err = runCLI(t, "generation", "0", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "successor=1")
	assert.Contains(t, out, "scored")

	_, err = runCLI(t, "generation", "7", "--config", path)
	require.ErrorIs(t, err, brandevo.ErrGenerationNotFound)
}

func TestRemoteSubmitAndEvolve(t *testing.T) {
	cfg := config.Default()
	client, err := brandevo.New(brandevo.Options{Config: &cfg})
	require.NoError(t, err)
	require.NoError(t, client.Init(context.Background()))
	t.Cleanup(func() { _ = client.Close() })

	srv := httptest.NewServer(httpapi.NewRouter(config.HTTP{}, client.Controller(), nil))
	t.Cleanup(srv.Close)

	out, err := runCLI(t, "submit", "--addr", srv.URL, "--generation", "0", "--index", "2", "--views", "80", "--likes", "8", "--watch", "0.5")
	require.NoError(t, err)
	assert.Contains(t, out, "accepted")
	assert.Contains(t, out, "ref=g0/i2 pending=1")

	_, err = runCLI(t, "submit", "--addr", srv.URL, "--generation", "0", "--index", "42", "--views", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MALFORMED_OBSERVATION")

	out, err = runCLI(t, "evolve", "--addr", srv.URL)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "evolved generation=0 new_generation=1"), out)
}

func TestUnknownCommand(t *testing.T) {
	_, err := runCLI(t, "bogus")
	require.Error(t, err)
}

func TestExportWritesSeries(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	out, err := runCLI(t, "export", "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "exported 1 generations")
	assert.FileExists(t, filepath.Join(outDir, "fitness_series.csv"))
	assert.FileExists(t, filepath.Join(outDir, "generations.json"))
}
