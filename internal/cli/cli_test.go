package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asad/azurefs/internal/filesystem"
)

// setupDisks writes a disks file with a single azure-local disk and
// returns its path.
func setupDisks(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("AZUREFS_DISK", "")

	file := filepath.Join(dir, "azurefs.yaml")
	content := fmt.Sprintf(`default: local
disks:
  local:
    driver: azure-local
    container: dev
    root: %s
`, filepath.Join(dir, "blobs"))
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	return file
}

func run(t *testing.T, disks, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", disks, "--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "unused.yaml", "", "version")
	require.NoError(t, err)
	assert.Equal(t, "azurefs version dev\n", out)
}

func TestFileCommands(t *testing.T) {
	disks := setupDisks(t)

	_, err := run(t, disks, "hello", "put", "docs/a.txt")
	require.NoError(t, err)

	out, err := run(t, disks, "", "cat", "docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	out, err = run(t, disks, "", "exists", "docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	out, err = run(t, disks, "", "exists", "docs/missing.txt")
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)

	_, err = run(t, disks, "", "cp", "docs/a.txt", "docs/b.txt")
	require.NoError(t, err)
	_, err = run(t, disks, "", "mv", "docs/b.txt", "other/c.txt")
	require.NoError(t, err)

	out, err = run(t, disks, "", "ls", "docs")
	require.NoError(t, err)
	assert.Contains(t, out, "docs/a.txt")
	assert.NotContains(t, out, "docs/b.txt")

	out, err = run(t, disks, "", "ls", "--json")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"path":"docs/a.txt"`)
	assert.Contains(t, lines[1], `"path":"other/c.txt"`)

	out, err = run(t, disks, "", "stat", "other/c.txt")
	require.NoError(t, err)
	assert.Contains(t, out, `"file_size":5`)

	out, err = run(t, disks, "", "url", "docs/a.txt")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "file://"))
	assert.True(t, strings.HasSuffix(out, "dev/docs/a.txt\n"))

	_, err = run(t, disks, "", "rm", "docs/a.txt")
	require.NoError(t, err)

	_, err = run(t, disks, "", "cat", "docs/a.txt")
	assert.ErrorIs(t, err, filesystem.ErrRead)
}

func TestPut_FromFile(t *testing.T) {
	disks := setupDisks(t)
	src := filepath.Join(t.TempDir(), "local.json")
	require.NoError(t, os.WriteFile(src, []byte(`{"a":1}`), 0o644))

	_, err := run(t, disks, "", "put", "data/local.json", src, "--content-type", "application/json")
	require.NoError(t, err)

	out, err := run(t, disks, "", "stat", "data/local.json")
	require.NoError(t, err)
	assert.Contains(t, out, `"file_size":7`)
}

func TestInvalidPath(t *testing.T) {
	disks := setupDisks(t)

	_, err := run(t, disks, "", "cat", "../escape.txt")
	assert.ErrorIs(t, err, filesystem.ErrInvalidPath)
}

func TestPresign(t *testing.T) {
	disks := setupDisks(t)

	_, err := run(t, disks, "", "presign", "a.txt", "--expires", "0s")
	assert.ErrorContains(t, err, "--expires must be positive")

	// Local disks cannot sign links.
	_, err = run(t, disks, "", "presign", "a.txt")
	assert.Error(t, err)
}

func TestUnknownDisk(t *testing.T) {
	disks := setupDisks(t)

	_, err := run(t, disks, "", "--disk", "nope", "ls")
	assert.ErrorIs(t, err, filesystem.ErrConfiguration)
}

func TestMissingDisksFile(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	_, err := run(t, filepath.Join(t.TempDir(), "missing.yaml"), "", "ls")
	assert.Error(t, err)
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestServe(t *testing.T) {
	disks := setupDisks(t)
	port := freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runServe(ctx, &globalOptions{configFile: disks, logLevel: "error"}, port)
	}()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	req, err := http.NewRequest(http.MethodPut, base+"/files/object/served.txt", strings.NewReader("served"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Less(t, resp.StatusCode, 300)

	resp, err = http.Get(base + "/files/object/served.txt")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "served", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestList_DeepFlagUsage(t *testing.T) {
	ls, _, err := NewRootCommand().Find([]string{"ls"})
	require.NoError(t, err)

	deep := ls.Flags().Lookup("deep")
	require.NotNil(t, deep)
	assert.Contains(t, deep.Usage, "flat prefix match")
	assert.NotContains(t, deep.Usage, "recursive")
}
