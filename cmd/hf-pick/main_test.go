package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensigniasec/hf-pick/internal/storage"
)

//nolint:gochecknoglobals // test binary path is set in TestMain
var testBinaryPath string

// TestMain builds the CLI binary once for the entire package and reuses it.
func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "hf-pick-test-")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1) //nolint:gocritic // Mkdir failed, nothing to cleanup
	}
	defer os.RemoveAll(dir)

	bin := filepath.Join(dir, "hf-pick-test")
	cmd := exec.Command("go", "build", "-o", bin, ".")
	if out, err := cmd.CombinedOutput(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to build test binary: %v\nOutput: %s\n", err, string(out))
		os.Exit(1) //nolint:gocritic // Binary failed, nothing to cleanup
	}
	testBinaryPath = bin

	code := m.Run()
	os.Exit(code)
}

func buildTestBinary(t *testing.T) string {
	t.Helper()
	if testBinaryPath == "" {
		t.Fatalf("test binary not built")
	}
	return testBinaryPath
}

// newCmd runs the binary in an empty directory with HF_* variables removed
// from the environment.
func newCmd(t *testing.T, binary string, args ...string) *exec.Cmd {
	t.Helper()
	cmd := exec.Command(binary, args...)
	cmd.Dir = t.TempDir()
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "HF_") {
			continue
		}
		cmd.Env = append(cmd.Env, kv)
	}
	return cmd
}

// fakeHub serves the three registry endpoints from fixed data.
func fakeHub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/models":
			switch r.URL.Query().Get("search") {
			case "llama":
				fmt.Fprint(w, `[{"id":"meta/Llama-2"},{"id":"acme/alpaca-llama"}]`)
			default:
				fmt.Fprint(w, `[]`)
			}
		case "/api/models/TheBloke/tiny-GGUF":
			fmt.Fprint(w, `{
				"id": "TheBloke/tiny-GGUF",
				"sha": "abc123",
				"lastModified": "2024-01-02T03:04:05.000Z",
				"tags": ["gguf"],
				"downloads": 1234,
				"likes": 5,
				"siblings": [{"rfilename": "README.md"}, {"rfilename": "tiny.Q4_K_M.gguf"}]
			}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":"Repository not found"}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCLI_HelpOutput(t *testing.T) {
	binary := buildTestBinary(t)

	tests := []struct {
		name     string
		args     []string
		contains []string
	}{
		{
			name: "root help",
			args: []string{"--help"},
			contains: []string{
				"hf-pick [QUERY]",
				"paginated terminal selector",
				"search",
				"info",
				"download",
				"convert",
				"--endpoint",
				"--page-size",
				"--retries",
			},
		},
		{
			name:     "search help",
			args:     []string{"search", "--help"},
			contains: []string{"QUERY", "--json", "--verbose"},
		},
		{
			name:     "info help",
			args:     []string{"info", "--help"},
			contains: []string{"MODEL_ID", "--output", "--raw"},
		},
		{
			name:     "convert help",
			args:     []string{"convert", "--help"},
			contains: []string{"DIR", "--quant", "q8_0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := newCmd(t, binary, tt.args...).CombinedOutput()

			// Help commands should exit with code 0.
			require.NoError(t, err)
			for _, expected := range tt.contains {
				assert.Contains(t, string(output), expected)
			}
		})
	}
}

func TestCLI_Version(t *testing.T) {
	binary := buildTestBinary(t)

	output, err := newCmd(t, binary, "--version").CombinedOutput()
	require.NoError(t, err)
	assert.Contains(t, string(output), "commit: none")
}

func TestCLI_ErrorHandling(t *testing.T) {
	binary := buildTestBinary(t)

	tests := []struct {
		name     string
		args     []string
		errorMsg string
	}{
		{
			name:     "search without query",
			args:     []string{"search"},
			errorMsg: "accepts 1 arg(s)",
		},
		{
			name:     "info with extra args",
			args:     []string{"info", "a", "b"},
			errorMsg: "accepts 1 arg(s)",
		},
		{
			name:     "invalid page size",
			args:     []string{"search", "--page-size", "0", "x"},
			errorMsg: "invalid config",
		},
		{
			name:     "missing env file",
			args:     []string{"search", "--env-file", "does-not-exist.env", "x"},
			errorMsg: "failed to stat env file",
		},
		{
			name:     "unknown quantization",
			args:     []string{"convert", "--quant", "q2_k", "."},
			errorMsg: "unknown quantization",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := newCmd(t, binary, tt.args...).CombinedOutput()
			require.Error(t, err)
			assert.Contains(t, string(output), tt.errorMsg)
		})
	}
}

func TestCLI_SearchCommand(t *testing.T) {
	binary := buildTestBinary(t)
	srv := fakeHub(t)

	t.Run("plain", func(t *testing.T) {
		cmd := newCmd(t, binary, "search", "--endpoint", srv.URL, "llama")
		output, err := cmd.Output()
		require.NoError(t, err)
		assert.Equal(t, "0: acme/alpaca-llama\n1: meta/Llama-2\n", string(output))
	})

	t.Run("json", func(t *testing.T) {
		cmd := newCmd(t, binary, "search", "--json", "--endpoint", srv.URL, "llama")
		output, err := cmd.Output()
		require.NoError(t, err)

		var result struct {
			Models []struct {
				Index   int    `json:"index"`
				ModelID string `json:"modelId"`
			} `json:"models"`
		}
		require.NoError(t, json.Unmarshal(output, &result), "Output should be valid JSON: %s", output)
		require.Len(t, result.Models, 2)
		assert.Equal(t, "acme/alpaca-llama", result.Models[0].ModelID)
		assert.Equal(t, 1, result.Models[1].Index)
	})

	t.Run("no results", func(t *testing.T) {
		cmd := newCmd(t, binary, "search", "--endpoint", srv.URL, "nothing")
		output, err := cmd.Output()
		require.NoError(t, err)
		assert.Equal(t, "No models found.\n", string(output))
	})

	t.Run("endpoint from environment", func(t *testing.T) {
		cmd := newCmd(t, binary, "search", "llama")
		cmd.Env = append(cmd.Env, "HF_PICK_REGISTRY_ENDPOINT="+srv.URL)
		output, err := cmd.Output()
		require.NoError(t, err)
		assert.Contains(t, string(output), "meta/Llama-2")
	})
}

func TestCLI_InfoCommand(t *testing.T) {
	binary := buildTestBinary(t)
	srv := fakeHub(t)

	output, err := newCmd(t, binary, "info", "--raw", "--endpoint", srv.URL, "TheBloke/tiny-GGUF").Output()
	require.NoError(t, err)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(output, &meta), "Output should be valid JSON: %s", output)
	assert.Equal(t, "TheBloke/tiny-GGUF", meta["modelId"])
	assert.Equal(t, "abc123", meta["sha"])

	output, err = newCmd(t, binary, "info", "-o", "yaml", "--endpoint", srv.URL, "TheBloke/tiny-GGUF").Output()
	require.NoError(t, err)
	assert.Contains(t, string(output), "Model metadata: TheBloke/tiny-GGUF")
	assert.Contains(t, string(output), "modelId: TheBloke/tiny-GGUF")

	output, err = newCmd(t, binary, "info", "--endpoint", srv.URL, "org/missing").CombinedOutput()
	require.Error(t, err)
	assert.Contains(t, string(output), "not found")
}

func TestCLI_InteractiveNoSimilarModel(t *testing.T) {
	binary := buildTestBinary(t)
	srv := fakeHub(t)

	cmd := newCmd(t, binary, "--endpoint", srv.URL)
	cmd.Stdin = strings.NewReader("zzzz\n")
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "Output: %s", output)
	assert.Contains(t, string(output), "Enter a model name or id to search for:")
	assert.Contains(t, string(output), "No similar model found")
	assert.Contains(t, string(output), "Done.")
}

func TestCLI_DownloadGGUF(t *testing.T) {
	binary := buildTestBinary(t)
	srv := fakeHub(t)
	tempDir := t.TempDir()

	// "true" stands in for the download tool and accepts any arguments.
	configFile := filepath.Join(tempDir, "hf-pick.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("tools:\n  download_bin: \"true\"\nretry:\n  backoff_seconds: 0\n"), 0o600))
	dest := filepath.Join(tempDir, "models")

	cmd := newCmd(t, binary, "download", "--config", configFile, "--endpoint", srv.URL, "TheBloke/tiny-GGUF", dest)
	cmd.Stdin = strings.NewReader("0\n")
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "Output: %s", output)
	assert.Contains(t, string(output), "0: tiny.Q4_K_M.gguf")
	assert.Contains(t, string(output), "GGUF file downloaded")
	assert.Contains(t, string(output), "Done.")

	s, err := storage.NewStorage(dest)
	require.NoError(t, err)
	assert.Equal(t, "TheBloke/tiny-GGUF", s.Data.ModelID)
	require.Len(t, s.Data.Runs, 1)
	assert.True(t, s.Data.Runs[0].Succeeded)
	assert.Equal(t, "tiny.Q4_K_M.gguf", s.Data.Runs[0].Target)
}

func TestCLI_ConvertExhaustsRetries(t *testing.T) {
	binary := buildTestBinary(t)
	dir := t.TempDir()

	cmd := newCmd(t, binary, "convert", "--retries", "2", "--backoff", "0", "--quant", "2", dir)
	cmd.Env = append(cmd.Env, "HF_PICK_TOOLS_PYTHON_BIN=false")
	output, err := cmd.CombinedOutput()
	require.Error(t, err)
	assert.Contains(t, string(output), "maximum attempts (2) reached")
	assert.Contains(t, string(output), "Conversion failed after 2 attempts")
}
