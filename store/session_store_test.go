package store

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return st
}

func TestNewCreatesParents(t *testing.T) {
	st := testStore(t)
	for _, dir := range []string{uploadsDirName, conversionsDirName} {
		info, err := os.Stat(filepath.Join(st.Root(), dir))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestNewSessionID(t *testing.T) {
	a := NewSessionID()
	b := NewSessionID()
	assert.Len(t, a, 32)
	assert.NotContains(t, a, "-")
	assert.True(t, sessionIDPattern.MatchString(a))
	assert.NotEqual(t, a, b)
}

func TestDirsFor(t *testing.T) {
	st := testStore(t)

	sess, err := st.DirsFor("abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", sess.ID)
	for _, dir := range []string{sess.UploadDir, sess.ConversionDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	again, err := st.DirsFor("abc123")
	require.NoError(t, err)
	assert.Equal(t, sess, again)
}

func TestDirsForRejectsUnsafeIDs(t *testing.T) {
	st := testStore(t)
	for _, id := range []string{
		"", "a/b", "../up", "a b", "id!", "..", strings.Repeat("x", 65),
	} {
		_, err := st.DirsFor(id)
		assert.ErrorIs(t, err, ErrInvalidSessionID, "id %q", id)
	}
}

func TestSaveUploadSanitizesNames(t *testing.T) {
	st := testStore(t)
	id := NewSessionID()

	cases := []struct {
		give string
		want string
	}{
		{"plain.png", "plain.png"},
		{"../../escape.png", "escape.png"},
		{"nested/dir/pic.png", "pic.png"},
		{`C:\Users\me\shot.png`, "shot.png"},
		{"  padded.png  ", "padded.png"},
	}
	for _, tc := range cases {
		name, size, err := st.SaveUpload(id, tc.give, strings.NewReader("imagebytes"))
		require.NoError(t, err, "name %q", tc.give)
		assert.Equal(t, tc.want, name, "name %q", tc.give)
		assert.Equal(t, int64(len("imagebytes")), size)

		data, err := os.ReadFile(filepath.Join(st.Root(), uploadsDirName, id, tc.want))
		require.NoError(t, err)
		assert.Equal(t, "imagebytes", string(data))
	}

	// nothing may land outside the session directory
	entries, err := os.ReadDir(filepath.Join(st.Root(), uploadsDirName))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].Name())
}

func TestSaveUploadRejectsEmptyNames(t *testing.T) {
	st := testStore(t)
	id := NewSessionID()
	for _, name := range []string{"", ".", "..", "   ", "/"} {
		_, _, err := st.SaveUpload(id, name, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidFilename, "name %q", name)
	}
}

func TestListUploads(t *testing.T) {
	st := testStore(t)
	id := NewSessionID()

	// a session that never existed lists as empty
	names, err := st.ListUploads(id)
	require.NoError(t, err)
	assert.Empty(t, names)

	for _, name := range []string{"zeta.png", "alpha.png", "mid.png"} {
		_, _, err := st.SaveUpload(id, name, strings.NewReader("x"))
		require.NoError(t, err)
	}
	// directories inside the session are not files and never listed
	sess, err := st.DirsFor(id)
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(sess.UploadDir, "subdir"), 0o755))

	names, err = st.ListUploads(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha.png", "mid.png", "zeta.png"}, names)
}

func TestResolvePaths(t *testing.T) {
	st := testStore(t)

	path, err := st.ResolveUpload("sess1", "pic.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(st.Root(), uploadsDirName, "sess1", "pic.png"), path)

	path, err = st.ResolveConversion("sess1", "pic.webp")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(st.Root(), conversionsDirName, "sess1", "pic.webp"), path)

	_, err = st.ResolveUpload("bad/id", "pic.png")
	assert.ErrorIs(t, err, ErrInvalidSessionID)

	_, err = st.ResolveUpload("sess1", "..")
	assert.ErrorIs(t, err, ErrInvalidFilename)
}

func TestRemoveSession(t *testing.T) {
	st := testStore(t)
	id := NewSessionID()
	_, _, err := st.SaveUpload(id, "a.png", strings.NewReader("x"))
	require.NoError(t, err)
	sess, err := st.DirsFor(id)
	require.NoError(t, err)

	require.NoError(t, st.RemoveSession(id))
	for _, dir := range []string{sess.UploadDir, sess.ConversionDir} {
		_, err := os.Stat(dir)
		assert.True(t, os.IsNotExist(err))
	}
	// removing an absent session is fine
	assert.NoError(t, st.RemoveSession(id))
}
