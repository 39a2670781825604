package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yakgwan-ai/yakgwan/pkg/version"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()

	buf := &bytes.Buffer{}
	root := NewRootCmd()
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)

	require.NoError(t, root.Execute())
	return buf.String()
}

func TestVersionCommand_Short(t *testing.T) {
	out := execute(t, "version", "--short")
	assert.Equal(t, version.Version+"\n", out)
}

func TestVersionCommand_Full(t *testing.T) {
	out := execute(t, "version")
	assert.Contains(t, out, "yakgwan version")
	assert.Contains(t, out, "commit")
}

func TestConfigInitWritesStarterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yakgwan.yaml")

	out := execute(t, "config", "init", "--output", path)

	assert.Contains(t, out, path)
	assert.FileExists(t, path)
}

func TestConfigShowPrintsEffectiveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yakgwan.yaml")
	execute(t, "config", "init", "--output", path)

	out := execute(t, "config", "show", "--config", path)

	assert.Contains(t, out, "vector_threshold: 0.7")
	assert.Contains(t, out, "rrf_constant: 60")
	assert.Contains(t, out, "chat_model: gpt-4o")
}
