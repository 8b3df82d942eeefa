package archive

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/screepers/steamless-client/internal/archive/archivetest"
)

func TestLoadIndexesEntries(t *testing.T) {
	modTime := time.Date(2024, 5, 1, 12, 30, 45, 900, time.UTC)
	path := archivetest.WriteZip(t, map[string]string{
		"index.html":         "<title>Screeps</title>",
		"config.js":          "var API_URL = '/api/';",
		"lib/engine.js":      "console.log(1);",
		"images/empty/":      "",
		"./dot/relative.css": "body{}",
	}, modTime)

	idx, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 4, idx.Len())
	require.Equal(t, path, idx.Path())
	require.True(t, idx.ModTime().Equal(modTime.Truncate(time.Second)))

	entry, err := idx.Lookup("lib/engine.js")
	require.NoError(t, err)
	text, err := entry.ReadText()
	require.NoError(t, err)
	require.Equal(t, "console.log(1);", text)

	_, err = idx.Lookup("/index.html")
	require.NoError(t, err, "leading slash should be ignored")

	_, err = idx.Lookup("dot/relative.css")
	require.NoError(t, err)

	_, err = idx.Lookup("images/empty/")
	require.ErrorIs(t, err, ErrNotFound, "directories are not entries")

	_, err = idx.Lookup("missing.js")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEntryOpenStreamsBinary(t *testing.T) {
	payload := string([]byte{0x89, 'P', 'N', 'G', 0x00, 0xff})
	path := archivetest.WriteZip(t, map[string]string{"logo.png": payload}, time.Time{})

	idx, err := Load(path)
	require.NoError(t, err)

	entry, err := idx.Lookup("logo.png")
	require.NoError(t, err)
	require.EqualValues(t, len(payload), entry.Size)

	rc, err := entry.Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, payload, string(data))
}

func TestReadTextReplacesInvalidUTF8(t *testing.T) {
	path := archivetest.WriteZip(t, map[string]string{"bad.txt": "a\xffb"}, time.Time{})
	idx, err := Load(path)
	require.NoError(t, err)

	entry, err := idx.Lookup("bad.txt")
	require.NoError(t, err)
	text, err := entry.ReadText()
	require.NoError(t, err)
	require.Equal(t, "a\uFFFDb", text)
}

func TestLoadMissingArchive(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.nw"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestLoadRejectsNonZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "package.nw")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNotFound))
}

func TestNilIndexLookup(t *testing.T) {
	var idx *Index
	_, err := idx.Lookup("index.html")
	require.ErrorIs(t, err, ErrNotFound)
}
