package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/bootseq/internal/cli/config"
	"github.com/leapstack-labs/bootseq/internal/loader"
)

func TestNewInitCommand(t *testing.T) {
	tests := []struct {
		name      string
		setupDir  func(t *testing.T, dir string)
		args      []string
		wantErr   bool
		wantFiles []string
	}{
		{
			name:      "init empty directory",
			wantFiles: []string{"bootseq.yaml", "app.yaml", ".gitignore"},
		},
		{
			name:      "init example",
			args:      []string{"--example"},
			wantFiles: []string{"bootseq.yaml", "app.yaml", "lm3s6965.svd", ".gitignore", "macros/board.star"},
		},
		{
			name: "init existing config without force",
			setupDir: func(_ *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "bootseq.yaml"), []byte("existing"), 0600)
			},
			wantErr: true,
		},
		{
			name: "init existing config with force",
			setupDir: func(_ *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "bootseq.yaml"), []byte("existing"), 0600)
			},
			args:      []string{"--force"},
			wantFiles: []string{"bootseq.yaml", "app.yaml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			if tt.setupDir != nil {
				tt.setupDir(t, tmpDir)
			}

			cmd := NewInitCommand()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(append([]string{tmpDir}, tt.args...))

			err := cmd.Execute()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			for _, f := range tt.wantFiles {
				assert.FileExists(t, filepath.Join(tmpDir, f))
			}
		})
	}
}

func TestInitCommandMetadata(t *testing.T) {
	cmd := NewInitCommand()

	assert.Equal(t, "init [directory]", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotNil(t, cmd.Flags().Lookup("force"))
	assert.NotNil(t, cmd.Flags().Lookup("example"))
}

func TestInitTemplatesLoad(t *testing.T) {
	for _, template := range []string{"minimal", "example"} {
		t.Run(template, func(t *testing.T) {
			dir := t.TempDir()
			_, err := copyTemplate(template, dir, false)
			require.NoError(t, err)

			_, err = loader.LoadFile(filepath.Join(dir, "app.yaml"))
			require.NoError(t, err)

			t.Cleanup(config.ResetConfig)
			cfg, err := config.LoadConfig(filepath.Join(dir, "bootseq.yaml"), nil)
			require.NoError(t, err)
			assert.Equal(t, []string{filepath.Join(dir, "app.yaml")}, cfg.Models)
		})
	}
}

func TestInitExampleBuilds(t *testing.T) {
	dir := t.TempDir()
	_, err := copyTemplate("example", dir, false)
	require.NoError(t, err)

	t.Cleanup(config.ResetConfig)
	cfg, err := config.LoadConfig(filepath.Join(dir, "bootseq.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "macros"), cfg.MacrosDir)

	c, _ := newTestContext(t, cfg)
	out := c.diagnose()
	assert.Equal(t, 0, out.Errors, "%+v", out.Checks)
}

func TestScaffold(t *testing.T) {
	files, err := scaffold("example")
	require.NoError(t, err)

	groups := groupTemplateFiles(files)
	assert.Equal(t, []string{"bootseq.yaml", ".gitignore"}, groups["config"])
	assert.Equal(t, []string{"app.yaml"}, groups["models"])
	assert.Equal(t, []string{"lm3s6965.svd"}, groups["device"])
	assert.Equal(t, []string{filepath.Join("macros", "board.star")}, groups["macros"])

	_, err = scaffold("nope")
	assert.Error(t, err)
}

func TestCopyTemplate_KeepsExisting(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(model, []byte("name: mine\n"), 0600))

	_, err := copyTemplate("minimal", dir, false)
	require.NoError(t, err)
	data, err := os.ReadFile(model)
	require.NoError(t, err)
	assert.Equal(t, "name: mine\n", string(data))

	_, err = copyTemplate("minimal", dir, true)
	require.NoError(t, err)
	data, err = os.ReadFile(model)
	require.NoError(t, err)
	assert.NotEqual(t, "name: mine\n", string(data))
}
