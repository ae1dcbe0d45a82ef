// Package archive packs a finished output deck into a single zip with a
// checksummed manifest.
package archive

import (
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/zip"
	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
)

const (
	// ManifestFile sits next to the deck files and inside the archive.
	ManifestFile = "manifest.yaml"
	// DeckFile is the archive written into the output directory.
	DeckFile = "wrfhydro_deck.zip"
)

// Entry describes one file of the deck.
type Entry struct {
	Name    string `yaml:"name"`
	Size    int64  `yaml:"size"`
	Blake2b string `yaml:"blake2b"`
}

// Manifest lists every deck file with its BLAKE2b-256 digest.
type Manifest struct {
	RunID   string    `yaml:"run_id"`
	Created time.Time `yaml:"created"`
	Files   []Entry   `yaml:"files"`
}

// Lookup returns the entry for name.
func (m *Manifest) Lookup(name string) (Entry, bool) {
	for _, e := range m.Files {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// BuildManifest hashes every regular file under dir, except the manifest
// and the archive themselves. Names are slash-separated and sorted.
func BuildManifest(dir, runID string, created time.Time) (*Manifest, error) {
	m := &Manifest{RunID: runID, Created: created.UTC()}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == ManifestFile || rel == DeckFile {
			return nil
		}
		sum, size, err := Checksum(path)
		if err != nil {
			return err
		}
		m.Files = append(m.Files, Entry{Name: rel, Size: size, Blake2b: sum})
		return nil
	})
	if err != nil {
		return nil, hydroerr.IO("archive.BuildManifest", dir, err)
	}
	sort.Slice(m.Files, func(i, j int) bool { return m.Files[i].Name < m.Files[j].Name })
	return m, nil
}

// Checksum returns the hex BLAKE2b-256 digest and size of the file at path.
func Checksum(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// WriteManifest writes m as YAML.
func WriteManifest(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return hydroerr.IO("archive.WriteManifest", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return hydroerr.IO("archive.WriteManifest", path, err)
	}
	return nil
}

// ReadManifest parses a manifest written by WriteManifest.
func ReadManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	return &m, nil
}

// Verify recomputes the digest of every manifest entry under dir.
func Verify(dir string, m *Manifest) error {
	for _, e := range m.Files {
		path := filepath.Join(dir, filepath.FromSlash(e.Name))
		sum, size, err := Checksum(path)
		if err != nil {
			return hydroerr.IO("archive.Verify", path, err)
		}
		if sum != e.Blake2b || size != e.Size {
			return hydroerr.IO("archive.Verify", path, fmt.Errorf("checksum mismatch: have %s (%d bytes), manifest %s (%d bytes)", sum, size, e.Blake2b, e.Size))
		}
	}
	return nil
}

// Pack writes the manifest into dir and zips it together with every file
// it lists into dir/DeckFile. It returns the archive path.
func Pack(dir string, m *Manifest) (string, error) {
	if err := WriteManifest(filepath.Join(dir, ManifestFile), m); err != nil {
		return "", err
	}

	out := filepath.Join(dir, DeckFile)
	f, err := os.Create(out)
	if err != nil {
		return "", hydroerr.IO("archive.Pack", out, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	files := append([]string{ManifestFile}, names(m)...)
	for _, name := range files {
		if err := add(zw, dir, name, m.Created); err != nil {
			zw.Close()
			return "", hydroerr.IO("archive.Pack", out, err)
		}
	}
	if err := zw.Close(); err != nil {
		return "", hydroerr.IO("archive.Pack", out, err)
	}
	if err := f.Close(); err != nil {
		return "", hydroerr.IO("archive.Pack", out, err)
	}
	return out, nil
}

func names(m *Manifest) []string {
	out := make([]string, len(m.Files))
	for i, e := range m.Files {
		out[i] = e.Name
	}
	return out
}

func add(zw *zip.Writer, dir, name string, modified time.Time) error {
	src, err := os.Open(filepath.Join(dir, filepath.FromSlash(name)))
	if err != nil {
		return err
	}
	defer src.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}
