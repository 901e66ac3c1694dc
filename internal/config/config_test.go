package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/triagescan"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func Test_DefaultConfig_Is_Valid_When_Unmodified(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, triagescan.DefaultExtensions(), cfg.Extensions)
	assert.Equal(t, triagescan.MaxFileSize, cfg.MaxFileSize)
	assert.Equal(t, 0, cfg.MaxDepth)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, FormatText, cfg.OutputFormat)
	assert.NoError(t, cfg.Validate())
}

func Test_LoadConfig_Returns_Defaults_When_File_Is_Missing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func Test_LoadConfig_Overrides_Only_Present_Keys_When_File_Is_Partial(t *testing.T) {
	path := writeConfig(t, `
extensions: [".db", ".sqlite"]
max_depth: 4
log_level: debug
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{".db", ".sqlite"}, cfg.Extensions)
	assert.Equal(t, 4, cfg.MaxDepth)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, triagescan.MaxFileSize, cfg.MaxFileSize)
	assert.Equal(t, FormatText, cfg.OutputFormat)
}

func Test_LoadConfig_Returns_Error_When_Values_Are_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"malformed yaml", "extensions: [", "failed to parse"},
		{"negative size", "max_file_size: -1", "max_file_size"},
		{"negative depth", "max_depth: -2", "max_depth"},
		{"bad level", "log_level: chatty", "log_level"},
		{"bad format", "output_format: csv", "output_format"},
		{"separator in extension", `extensions: ["a/b"]`, "path separator"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func Test_ScanOptions_Applies_Extensions_When_Scanning(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.db"), []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("b"), 0o600))

	cfg := DefaultConfig()
	cfg.Extensions = []string{"db"}

	set := triagescan.Scan(root, cfg.ScanOptions(nil)...)
	defer set.Release()

	assert.Equal(t, []string{filepath.Join(root, "a.db")}, set.Paths())
}
