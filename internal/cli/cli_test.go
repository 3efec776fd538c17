package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`database_path: %s
library_dir: %s
storage_local_root: %s
database_log_level: silent
log_level: error
`, filepath.Join(dir, "lingua.db"), filepath.Join(dir, "library"), filepath.Join(dir, "storage"))

	path := filepath.Join(dir, "lingua.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(BuildInfo{Version: "test", Commit: "abc"})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPhasesCommand(t *testing.T) {
	out, err := execute(t, "phases", "--config", writeConfig(t))
	require.NoError(t, err)

	for _, phase := range []string{"storage", "database", "settings", "tasks", "scheduler", "ipc"} {
		assert.Contains(t, out, phase)
	}
	assert.Contains(t, out, "DEPENDS ON")
}

func TestChannelsCommand(t *testing.T) {
	out, err := execute(t, "channels", "--config", writeConfig(t))
	require.NoError(t, err)

	assert.Contains(t, out, "app:initStatus")
	assert.Contains(t, out, "audios:findAll")
	assert.Contains(t, out, "dictionary:lookup")
}

func TestContractCommand(t *testing.T) {
	out, err := execute(t, "contract", "--config", writeConfig(t))
	require.NoError(t, err)

	var contract struct {
		Version  string `json:"version"`
		Channels []struct {
			Channel string `json:"channel"`
		} `json:"channels"`
		Envelope json.RawMessage `json:"envelope"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &contract))
	assert.Equal(t, "test", contract.Version)
	assert.NotEmpty(t, contract.Channels)
	assert.NotEmpty(t, contract.Envelope)
}

func TestMigrateCommand(t *testing.T) {
	out, err := execute(t, "migrate", "--config", writeConfig(t))
	require.NoError(t, err)

	assert.Contains(t, out, "cache_objects")
	assert.Contains(t, out, "Migrations completed successfully")
}

func TestMissingConfigFile(t *testing.T) {
	_, err := execute(t, "phases", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "test (abc)")
}

func TestPrintTable(t *testing.T) {
	data := NewTableData("NAME", "VALUE")
	data.AddRow("alpha", "1")
	data.AddRow("beta", "2")

	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, data))
	assert.Contains(t, buf.String(), "NAME")
	assert.Contains(t, buf.String(), "alpha")
	assert.Contains(t, buf.String(), "beta")
}
