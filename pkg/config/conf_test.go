package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	dir := t.TempDir()

	c1, err := ReadOrCreate(dir)
	require.NoError(t, err)
	require.NotNil(t, c1)
	assert.Equal(t, DefaultPort, c1.Port)
	assert.Equal(t, DefaultTop, c1.Top)
	assert.FileExists(t, filepath.Join(dir, configFileName))

	c1.Port = 9090
	c1.Top = 5
	c1.NoBrowser = true
	c1.ModelPath = "/tmp/model.json"

	err = Save(dir, c1)
	assert.NoError(t, err)

	c2, err := ReadOrCreate(dir)
	assert.NoError(t, err)
	assert.Equal(t, c1, c2)
}

func TestReadOrCreate_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", ".dropwatch")

	c, err := ReadOrCreate(dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, c.Port)
	assert.DirExists(t, dir)
}

func TestReadOrCreate_FillsDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte("no_browser: true\n"), fileMode))

	c, err := ReadOrCreate(dir)
	require.NoError(t, err)
	assert.True(t, c.NoBrowser)
	assert.Equal(t, DefaultPort, c.Port)
	assert.Equal(t, DefaultTop, c.Top)
}

func TestReadOrCreate_Errors(t *testing.T) {
	_, err := ReadOrCreate("")
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte("port: [1"), fileMode))
	_, err = ReadOrCreate(dir)
	assert.Error(t, err)
}

func TestSave_Errors(t *testing.T) {
	assert.Error(t, Save("", &Config{}))
	assert.Error(t, Save(t.TempDir(), nil))
}

func TestGetOrCreateHomeDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, _, err := GetOrCreateHomeDir("")
	assert.Error(t, err)

	dir, created, err := GetOrCreateHomeDir("dropwatch-test")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, ".dropwatch-test", filepath.Base(dir))

	again, created, err := GetOrCreateHomeDir(".dropwatch-test")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, dir, again)
}
