package archive

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
)

func deck(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Route_Link.nc"), []byte("links"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "LAKEPARM.nc"), []byte("lakes!"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "diag"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "diag", "Lakes_with_minimum_depth.csv"), []byte("3,0\n"), 0o644))
	return dir
}

var created = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestBuildManifest(t *testing.T) {
	dir := deck(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DeckFile), []byte("old"), 0o644))

	m, err := BuildManifest(dir, "run-1", created)
	require.NoError(t, err)

	var got []string
	for _, e := range m.Files {
		got = append(got, e.Name)
		assert.Len(t, e.Blake2b, 64, e.Name)
	}
	assert.Equal(t, []string{"LAKEPARM.nc", "Route_Link.nc", "diag/Lakes_with_minimum_depth.csv"}, got)

	e, ok := m.Lookup("LAKEPARM.nc")
	require.True(t, ok)
	assert.Equal(t, int64(6), e.Size)
	assert.Equal(t, "run-1", m.RunID)
}

func TestChecksum_KnownDigest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	sum, size, err := Checksum(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), size)
	assert.Equal(t, "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8", sum)
}

func TestVerify(t *testing.T) {
	dir := deck(t)
	m, err := BuildManifest(dir, "run-1", created)
	require.NoError(t, err)
	require.NoError(t, Verify(dir, m))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Route_Link.nc"), []byte("LINKS"), 0o644))
	err = Verify(dir, m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, hydroerr.ErrIO))
}

func TestPack(t *testing.T) {
	dir := deck(t)
	m, err := BuildManifest(dir, "run-2", created)
	require.NoError(t, err)

	out, err := Pack(dir, m)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DeckFile), out)

	zr, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer zr.Close()

	contents := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		contents[f.Name] = string(data)
	}
	assert.Len(t, contents, 4)
	assert.Equal(t, "links", contents["Route_Link.nc"])
	assert.Equal(t, "3,0\n", contents["diag/Lakes_with_minimum_depth.csv"])

	f, err := os.Open(filepath.Join(dir, ManifestFile))
	require.NoError(t, err)
	defer f.Close()
	back, err := ReadManifest(f)
	require.NoError(t, err)
	assert.Equal(t, m.Files, back.Files)
	assert.True(t, created.Equal(back.Created))
}
