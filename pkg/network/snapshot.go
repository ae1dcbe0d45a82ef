package network

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"time"

	"github.com/golang/snappy"

	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
)

// SnapshotFile is the file name of the network snapshot in an output deck.
const SnapshotFile = "network.gob.sz"

var snapshotMagic = [4]byte{'W', 'H', 'N', '1'}

// ErrCorruptSnapshot is returned when a snapshot fails its checksum.
var ErrCorruptSnapshot = errors.New("corrupt network snapshot")

// Snapshot is the resolved network as persisted for later inspection.
type Snapshot struct {
	RunID   string
	Created time.Time
	Geogrid string
	Network *Network
	Order   []int // arc ids, headwaters first
}

// WriteSnapshot gob-encodes s and stores it snappy-compressed.
// Format: [magic:4][crc32:4][len:4][snappy block].
func WriteSnapshot(path string, s *Snapshot) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return hydroerr.IO("network.WriteSnapshot", path, err)
	}
	compressed := snappy.Encode(nil, buf.Bytes())

	f, err := os.Create(path)
	if err != nil {
		return hydroerr.IO("network.WriteSnapshot", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.Write(snapshotMagic[:]); err != nil {
		return hydroerr.IO("network.WriteSnapshot", path, err)
	}
	if err := binary.Write(w, binary.BigEndian, crc32.ChecksumIEEE(compressed)); err != nil {
		return hydroerr.IO("network.WriteSnapshot", path, err)
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(compressed))); err != nil {
		return hydroerr.IO("network.WriteSnapshot", path, err)
	}
	if _, err := w.Write(compressed); err != nil {
		return hydroerr.IO("network.WriteSnapshot", path, err)
	}
	if err := w.Flush(); err != nil {
		return hydroerr.IO("network.WriteSnapshot", path, err)
	}
	return f.Close()
}

// ReadSnapshot loads a snapshot written by WriteSnapshot.
func ReadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, hydroerr.IO("network.ReadSnapshot", path, err)
	}
	defer f.Close()

	s, err := decodeSnapshot(bufio.NewReader(f))
	if err != nil {
		return nil, hydroerr.IO("network.ReadSnapshot", path, err)
	}
	return s, nil
}

func decodeSnapshot(r io.Reader) (*Snapshot, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, err
	}
	if magic != snapshotMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptSnapshot, magic[:])
	}
	var sum, n uint32
	if err := binary.Read(r, binary.BigEndian, &sum); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	compressed := make([]byte, n)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return nil, err
	}
	if crc32.ChecksumIEEE(compressed) != sum {
		return nil, ErrCorruptSnapshot
	}
	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	var s Snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return nil, err
	}
	if s.Network != nil {
		s.Network.reindex()
	}
	return &s, nil
}
