package raster

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/exp/mmap"

	"github.com/dd0wney/wrfhydro-prep/pkg/grid"
	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
)

// WriteBIL writes r as little-endian float32 band-interleaved-by-line data
// with an ESRI .hdr sidecar next to it.
func WriteBIL(path string, r *Raster) error {
	buf := new(bytes.Buffer)
	for _, v := range r.Data {
		if r.IsNoData(v) {
			v = r.NoData
		}
		if err := binary.Write(buf, binary.LittleEndian, float32(v)); err != nil {
			return hydroerr.IO("raster.WriteBIL", path, err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return hydroerr.IO("raster.WriteBIL", path, err)
	}

	g := r.Geom
	hdr := fmt.Sprintf(`BYTEORDER I
LAYOUT BIL
NROWS %d
NCOLS %d
NBANDS 1
NBITS 32
PIXELTYPE FLOAT
ULXMAP %s
ULYMAP %s
XDIM %s
YDIM %s
NODATA %s
`, g.Rows, g.Cols, ftoa(g.X00+g.DX/2), ftoa(g.Y00+g.DY/2), ftoa(g.DX), ftoa(-g.DY), ftoa(r.NoData))
	hp := headerPath(path)
	if err := os.WriteFile(hp, []byte(hdr), 0o644); err != nil {
		return hydroerr.IO("raster.WriteBIL", hp, err)
	}
	return nil
}

// ReadBIL memory-maps a single-band float32 BIL file described by its .hdr
// sidecar.
func ReadBIL(path string, proj grid.Projection) (*Raster, error) {
	hp := headerPath(path)
	hdr, err := readHeader(hp)
	if err != nil {
		return nil, hydroerr.IO("raster.ReadBIL", hp, err)
	}
	if bits := hdr.intVal("NBITS", 32); bits != 32 || hdr.strVal("PIXELTYPE", "FLOAT") != "FLOAT" {
		return nil, hydroerr.Unsupported("raster.ReadBIL", "%s: only 32-bit float BIL is supported", path)
	}
	var order binary.ByteOrder = binary.LittleEndian
	if b := hdr.strVal("BYTEORDER", "I"); b == "M" {
		order = binary.BigEndian
	}

	rows, cols := hdr.intVal("NROWS", 0), hdr.intVal("NCOLS", 0)
	dx, dy := hdr.floatVal("XDIM", 0), hdr.floatVal("YDIM", 0)
	if rows <= 0 || cols <= 0 || dx <= 0 || dy <= 0 {
		return nil, hydroerr.Unsupported("raster.ReadBIL", "%s: incomplete header", hp)
	}
	g := grid.New(proj, hdr.floatVal("ULXMAP", 0)-dx/2, hdr.floatVal("ULYMAP", 0)+dy/2, dx, -dy, rows, cols)
	out := New(g, hdr.floatVal("NODATA", -9999))

	m, err := mmap.Open(path)
	if err != nil {
		return nil, hydroerr.IO("raster.ReadBIL", path, err)
	}
	defer m.Close()

	if m.Len() < 4*len(out.Data) {
		return nil, hydroerr.IO("raster.ReadBIL", path,
			fmt.Errorf("file holds %d bytes, header needs %d", m.Len(), 4*len(out.Data)))
	}
	line := make([]byte, 4*cols)
	for row := 0; row < rows; row++ {
		if _, err := m.ReadAt(line, int64(row*len(line))); err != nil {
			return nil, hydroerr.IO("raster.ReadBIL", path, err)
		}
		for col := 0; col < cols; col++ {
			bits := order.Uint32(line[4*col:])
			out.Data[g.Offset(row, col)] = float64(math.Float32frombits(bits))
		}
	}
	return out, nil
}

func headerPath(path string) string {
	if i := strings.LastIndexByte(path, '.'); i > strings.LastIndexByte(path, os.PathSeparator) {
		return path[:i] + ".hdr"
	}
	return path + ".hdr"
}

type header map[string]string

func readHeader(path string) (header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := header{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) >= 2 {
			h[strings.ToUpper(fields[0])] = fields[1]
		}
	}
	return h, sc.Err()
}

func (h header) strVal(key, def string) string {
	if v, ok := h[key]; ok {
		return strings.ToUpper(v)
	}
	return def
}

func (h header) intVal(key string, def int) int {
	if v, err := strconv.Atoi(h[key]); err == nil {
		return v
	}
	return def
}

func (h header) floatVal(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(h[key], 64); err == nil {
		return v
	}
	return def
}
