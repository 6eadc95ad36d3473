package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/invoiceagent/internal/domain"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func fakeGemini(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		reply, _ := json.Marshal(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{map[string]any{
					"text": `{"date":"2024-03-15","vendor":"Acme Co.","total":42.5,"currency":"EUR"}`,
				}}},
			}},
		})
		_, _ = w.Write(reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setTestEnv(t *testing.T, baseURL string) {
	t.Helper()
	t.Setenv("GOOGLE_API_KEY", "test-key")
	t.Setenv("GEMINI_BASE_URL", baseURL)
	t.Setenv("EXTRACTION_REQUESTS_PER_MINUTE", "0")
	t.Setenv("REDIS_URL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("ARCHIVE_COLLISION_POLICY", "suffix")
	t.Setenv("ARCHIVE_PRESERVE_EXTENSION", "false")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env")))

	err := cmd.Execute()
	return out.String(), err
}

func TestRunCommand_ProcessesInvoices(t *testing.T) {
	var calls atomic.Int32
	srv := fakeGemini(t, &calls)
	setTestEnv(t, srv.URL)

	root := t.TempDir()
	in := filepath.Join(root, "in")
	out := filepath.Join(root, "out")
	ledger := filepath.Join(root, "ledger.csv")

	require.NoError(t, os.MkdirAll(in, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(in, "a.png"), append(pngHeader, 'A'), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "b.png"), append(pngHeader, 'B'), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "c.jpg"), []byte("not an image"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "notes.txt"), []byte("ignored"), 0o644))

	stdout, err := execute(t, "run", "--input", in, "--output", out, "--ledger", ledger)
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Contains(t, stdout, "Processed  2/3")
	assert.Contains(t, stdout, "skipped c.jpg")

	assert.FileExists(t, filepath.Join(out, "2024-03-15_AcmeCo_42.5.jpg"))
	assert.FileExists(t, filepath.Join(out, "2024-03-15_AcmeCo_42.5_dup1.jpg"))
	assert.FileExists(t, filepath.Join(in, "c.jpg"))
	assert.NoFileExists(t, filepath.Join(in, "a.png"))

	content, err := os.ReadFile(ledger)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date,vendor,total,currency,source_filename,destination_filename", lines[0])
	assert.Equal(t, "2024-03-15,Acme Co.,42.5,EUR,a.png,2024-03-15_AcmeCo_42.5.jpg", lines[1])
	assert.Equal(t, "2024-03-15,Acme Co.,42.5,EUR,b.png,2024-03-15_AcmeCo_42.5_dup1.jpg", lines[2])

	tail, err := execute(t, "ledger", "tail", "-n", "1", "--ledger", ledger)
	require.NoError(t, err)
	assert.Contains(t, tail, "b.png")
	assert.NotContains(t, tail, "a.png")
}

func TestRunCommand_EmptyInput(t *testing.T) {
	var calls atomic.Int32
	srv := fakeGemini(t, &calls)
	setTestEnv(t, srv.URL)

	root := t.TempDir()
	in := filepath.Join(root, "in")
	out := filepath.Join(root, "out")
	ledger := filepath.Join(root, "ledger.csv")

	stdout, err := execute(t, "run", "--input", in, "--output", out, "--ledger", ledger)
	require.NoError(t, err)

	assert.Equal(t, int32(0), calls.Load())
	assert.Contains(t, stdout, "No invoices to process.")
	assert.DirExists(t, in)
	assert.DirExists(t, out)
	assert.NoFileExists(t, ledger)
}

func TestRunCommand_MissingCredential(t *testing.T) {
	setTestEnv(t, "http://127.0.0.1:0")
	t.Setenv("GOOGLE_API_KEY", "")

	root := t.TempDir()
	in := filepath.Join(root, "in")

	_, err := execute(t, "run", "--input", in, "--output", filepath.Join(root, "out"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingCredential))
	assert.NoDirExists(t, in)
}

func TestLedgerTail_Empty(t *testing.T) {
	setTestEnv(t, "http://127.0.0.1:0")

	stdout, err := execute(t, "ledger", "tail", "--ledger", filepath.Join(t.TempDir(), "missing.csv"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "Ledger is empty.")
}

func TestMigrate_RequiresDatabase(t *testing.T) {
	setTestEnv(t, "http://127.0.0.1:0")

	_, err := execute(t, "migrate", "up")
	assert.ErrorIs(t, err, errNoDatabase)
}
