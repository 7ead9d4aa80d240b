package opener

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mangaexporter/backend/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenURLGoesToBrowser(t *testing.T) {
	o := NewBrowserOpener(logger.Nop())
	var gotURL, gotDir string
	o.openURL = func(u string) error { gotURL = u; return nil }
	o.openDir = func(d string) error { gotDir = d; return nil }

	require.NoError(t, o.Open("http://localhost:5000"))
	assert.Equal(t, "http://localhost:5000", gotURL)
	assert.Empty(t, gotDir)
}

func TestOpenFolderCreatesIt(t *testing.T) {
	o := NewBrowserOpener(logger.Nop())
	var gotDir string
	o.openDir = func(d string) error { gotDir = d; return nil }

	target := filepath.Join(t.TempDir(), "output", "mal")
	require.NoError(t, o.Open(target))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, target, gotDir)
}

func TestOpenFolderPropagatesError(t *testing.T) {
	o := NewBrowserOpener(logger.Nop())
	o.openDir = func(string) error { return errors.New("no desktop") }

	err := o.Open(t.TempDir())
	assert.ErrorContains(t, err, "no desktop")
}
