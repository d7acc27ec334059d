package certstore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalStore_NormalisesPrefix(t *testing.T) {
	s, err := NewLocalStore(filepath.Join(t.TempDir(), "certs"), "certificates/")
	require.NoError(t, err)

	assert.Equal(t, "/certificates", s.URLPrefix())
	assert.DirExists(t, s.Root())
	assert.Equal(t, "/certificates/0xAbC/R-17.pdf", s.URL("0xAbC", "R-17"))
}

func TestEnsureWalletDir_Idempotent(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "/certificates")
	require.NoError(t, err)

	require.NoError(t, s.EnsureWalletDir("0xabc"))
	require.NoError(t, s.EnsureWalletDir("0xabc"))
	assert.DirExists(t, filepath.Join(s.Root(), "0xabc"))
}

func TestSave_WritesAndOverwrites(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "/certificates")
	require.NoError(t, err)

	url, err := s.Save("0xabc", "R1", strings.NewReader("first"))
	require.NoError(t, err)
	assert.Equal(t, "/certificates/0xabc/R1.pdf", url)

	_, err = s.Save("0xabc", "R1", strings.NewReader("second version"))
	require.NoError(t, err)

	data, err := os.ReadFile(s.Path("0xabc", "R1"))
	require.NoError(t, err)
	assert.Equal(t, "second version", string(data))

	entries, err := os.ReadDir(filepath.Join(s.Root(), "0xabc"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp upload files must not be left behind")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestSave_FailedCopyLeavesNoFile(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "/certificates")
	require.NoError(t, err)

	_, err = s.Save("0xabc", "R1", failingReader{})
	require.Error(t, err)

	assert.NoFileExists(t, s.Path("0xabc", "R1"))
	entries, err := os.ReadDir(filepath.Join(s.Root(), "0xabc"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestValidateComponent(t *testing.T) {
	for _, bad := range []string{"", ".", "..", "a/b", `a\b`, "../etc"} {
		assert.ErrorIs(t, ValidateComponent(bad), ErrInvalidPathComponent, bad)
	}
	for _, good := range []string{"0xAbC", "CS-2021-004", "R.1"} {
		assert.NoError(t, ValidateComponent(good), good)
	}
}

func TestSave_RejectsTraversal(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "/certificates")
	require.NoError(t, err)

	_, err = s.Save("..", "R1", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidPathComponent)
	_, err = s.Save("0xabc", "../R1", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidPathComponent)
}
