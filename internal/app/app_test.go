package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService mimics the remote API: tokens with a "live-" prefix resolve,
// everything else gets a 401.
func fakeService(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")

		if r.URL.Path == "/users/@me" {
			if !strings.HasPrefix(token, "live-") {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"id":       "4194304",
				"username": strings.TrimPrefix(token, "live-")[:5],
			})
			return
		}
		if strings.HasSuffix(r.URL.Path, "/profile") {
			_, _ = w.Write([]byte(`{"user":{},"badges":[]}`))
			return
		}
		_, _ = w.Write([]byte("[]"))
	}))
}

// summaryRow reproduces the printer's padded label formatting.
func summaryRow(label, value string) string {
	return fmt.Sprintf("%-20s %s", label+":", value)
}

func writeConfig(t *testing.T, dir, baseURL string) string {
	t.Helper()
	cfg := fmt.Sprintf(`schema_version: "2.0.0"
base_url: %q
token_file: %q
valid_file: %q
min_token_length: 10
retry_limit: 2
timeout_seconds: 5
request_delay_ms: 1
min_request_gap_ms: 1
retry_after_default: 1
backoff_base_ms: 1
jitter_max_ms: 1
`, baseURL, filepath.Join(dir, "tokens.txt"), filepath.Join(dir, "valid.txt"))

	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func TestRunEndToEnd(t *testing.T) {
	srv := fakeService(t)
	defer srv.Close()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, srv.URL)

	// Five lines: one blank, one duplicate, leaving three unique tokens of
	// which two are live and one is dead.
	tokens := "live-alpha-0001\ndead-bravo-0002\n\nlive-alpha-0001\nlive-charlie-03\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tokens.txt"), []byte(tokens), 0o600))

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(),
		[]string{"--config", cfgPath, "--concurrency", "10", "--no-progress", "--no-color"},
		strings.NewReader(""), &stdout, &stderr)

	require.Equal(t, 0, code, "stderr: %s", stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "Loaded 3 tokens (1 duplicates removed)")
	assert.Contains(t, out, summaryRow("Checked", "3/3"))
	assert.Contains(t, out, summaryRow("Valid", "2"))
	assert.Contains(t, out, summaryRow("Invalid", "1"))
	assert.Contains(t, out, summaryRow("Errors", "0"))
	assert.Contains(t, out, "INVALID (Unauthorized)")
	// Full dead token never reaches stdout.
	assert.NotContains(t, out, "dead-bravo-0002")

	saved, err := os.ReadFile(filepath.Join(dir, "valid.txt"))
	require.NoError(t, err)
	lines := strings.Fields(string(saved))
	sort.Strings(lines)
	assert.Equal(t, []string{"live-alpha-0001", "live-charlie-03"}, lines)
}

func TestRunPromptsWhenConcurrencyUnset(t *testing.T) {
	srv := fakeService(t)
	defer srv.Close()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, srv.URL)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tokens.txt"), []byte("live-alpha-0001\n"), 0o600))

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(),
		[]string{"--config", cfgPath, "--no-progress", "--no-color"},
		strings.NewReader("not-a-number\n"), &stdout, &stderr)

	require.Equal(t, 0, code, "stderr: %s", stderr.String())
	assert.Contains(t, stdout.String(), "Thread Count? (1-100): ")
	assert.Contains(t, stdout.String(), "Invalid choice, using (1)...")
	assert.Contains(t, stdout.String(), summaryRow("Valid", "1"))
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), []string{"--help"}, strings.NewReader(""), &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "usage:")
}

func TestRunMissingTokenFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "http://127.0.0.1:1")

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(),
		[]string{"--config", cfgPath, "--concurrency", "1", "--no-progress", "--no-color"},
		strings.NewReader(""), &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "token list error")
}

func TestRunRejectsOldSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("schema_version: \"1.9.0\"\n"), 0o600))

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(),
		[]string{"--config", path, "--concurrency", "1", "--no-progress", "--no-color"},
		strings.NewReader(""), &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "config error")
}
