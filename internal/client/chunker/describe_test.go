package chunker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDescribe_RecordsFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "rows.csv")
	require.NoError(t, os.WriteFile(p, []byte("id,name\n1,alice\n"), 0o600))

	d, err := Describe(p)
	require.NoError(t, err)

	require.Equal(t, "rows.csv", d.Name)
	require.Equal(t, p, d.Path)
	require.Equal(t, int64(16), d.Size)
	require.NotNil(t, d.Info)
	require.False(t, d.ModTime.IsZero())
	require.NotEmpty(t, d.ContentType)
	require.Nil(t, d.Chunks)
}

func TestDescribe_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Describe(filepath.Join(dir, "missing.bin"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = Describe(dir)
	require.ErrorIs(t, err, ErrNotRegularFile)
}

func TestDescribeAll(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.bin")
	b := filepath.Join(dir, "b.bin")
	require.NoError(t, os.WriteFile(a, []byte{1, 2, 3}, 0o600))
	require.NoError(t, os.WriteFile(b, []byte{4}, 0o600))

	files, err := DescribeAll([]string{a, b})
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, "a.bin", files[0].Name)
	require.Equal(t, "b.bin", files[1].Name)

	_, err = DescribeAll([]string{a, filepath.Join(dir, "nope")})
	require.Error(t, err)
}
