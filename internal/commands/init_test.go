package commands_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build the binary once for all tests.
	tmpDir, err := os.MkdirTemp("", "beandash-test-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmpDir)

	binaryPath = filepath.Join(tmpDir, "beandash")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/beandash")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic("failed to build binary: " + err.Error())
	}

	os.Exit(m.Run())
}

// runBeandash runs the binary in dir with extra environment variables.
func runBeandash(t *testing.T, dir string, env []string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func TestInit_WritesConfig(t *testing.T) {
	dir := t.TempDir()
	out, err := runBeandash(t, dir, nil, "init", dir, "--ledger", "books.beancount", "--currency", "EUR")
	require.NoError(t, err, out)

	data, err := os.ReadFile(filepath.Join(dir, "beandash.yaml"))
	require.NoError(t, err)
	contents := string(data)
	assert.Contains(t, contents, "path: books.beancount")
	assert.Contains(t, contents, "currency: EUR")
	assert.Contains(t, contents, "valuation: convert")
	assert.Contains(t, contents, "timeout: 30s")

	ignore, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, ".beandash-cache.db\n", string(ignore))
}

func TestInit_KeepsGitignore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("*.bak"), 0o644))

	_, err := runBeandash(t, dir, nil, "init", dir)
	require.NoError(t, err)
	_, err = runBeandash(t, dir, nil, "init", dir, "--force")
	require.NoError(t, err)

	ignore, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, "*.bak\n.beandash-cache.db\n", string(ignore))
}

func TestInit_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	_, err := runBeandash(t, dir, nil, "init", dir)
	require.NoError(t, err)

	out, err := runBeandash(t, dir, nil, "init", dir)
	require.Error(t, err)
	assert.Contains(t, out, "already exists")
}

func TestInit_RejectsBadValuation(t *testing.T) {
	dir := t.TempDir()
	out, err := runBeandash(t, dir, nil, "init", dir, "--valuation", "market")
	require.Error(t, err)
	assert.Contains(t, out, "unknown valuation mode")

	_, statErr := os.Stat(filepath.Join(dir, "beandash.yaml"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestVersion(t *testing.T) {
	out, err := runBeandash(t, t.TempDir(), nil, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "dev")
}
