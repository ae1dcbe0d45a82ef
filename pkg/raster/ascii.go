package raster

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dd0wney/wrfhydro-prep/pkg/grid"
	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
)

// ReadASCII parses an ESRI ASCII grid. The file carries no projection, so
// proj is attached to the returned geometry as given.
func ReadASCII(path string, proj grid.Projection) (*Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, hydroerr.IO("raster.ReadASCII", path, err)
	}
	defer f.Close()

	r, err := DecodeASCII(f, proj)
	if err != nil {
		return nil, hydroerr.IO("raster.ReadASCII", path, err)
	}
	return r, nil
}

// DecodeASCII reads an ESRI ASCII grid from rd.
func DecodeASCII(rd io.Reader, proj grid.Projection) (*Raster, error) {
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 1<<20), 1<<28)
	sc.Split(bufio.ScanWords)

	header := map[string]float64{"nodata_value": -9999}
	var first string
	for sc.Scan() {
		key := strings.ToLower(sc.Text())
		if _, err := strconv.ParseFloat(key, 64); err == nil {
			first = key
			break
		}
		if !sc.Scan() {
			return nil, fmt.Errorf("header key %q has no value", key)
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("header %s: %w", key, err)
		}
		header[key] = v
	}

	cols, rows := int(header["ncols"]), int(header["nrows"])
	size, ok := header["cellsize"]
	if !ok || cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("incomplete header (ncols=%d nrows=%d cellsize=%v)", cols, rows, ok)
	}
	x0, y0 := header["xllcorner"], header["yllcorner"]
	if xc, ok := header["xllcenter"]; ok {
		x0 = xc - size/2
	}
	if yc, ok := header["yllcenter"]; ok {
		y0 = yc - size/2
	}

	g := grid.New(proj, x0, y0+float64(rows)*size, size, -size, rows, cols)
	out := New(g, header["nodata_value"])

	i := 0
	parse := func(tok string) error {
		if i >= len(out.Data) {
			return fmt.Errorf("more than %d values", len(out.Data))
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return fmt.Errorf("value %d: %w", i, err)
		}
		out.Data[i] = v
		i++
		return nil
	}
	if first != "" {
		if err := parse(first); err != nil {
			return nil, err
		}
	}
	for sc.Scan() {
		if err := parse(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if i != len(out.Data) {
		return nil, fmt.Errorf("expected %d values, read %d", len(out.Data), i)
	}
	return out, nil
}

// WriteASCII writes r as an ESRI ASCII grid. Only square cells can be
// represented.
func WriteASCII(path string, r *Raster) error {
	f, err := os.Create(path)
	if err != nil {
		return hydroerr.IO("raster.WriteASCII", path, err)
	}
	defer f.Close()

	if err := EncodeASCII(f, r); err != nil {
		return hydroerr.IO("raster.WriteASCII", path, err)
	}
	return f.Close()
}

// EncodeASCII writes r to w in ESRI ASCII format.
func EncodeASCII(w io.Writer, r *Raster) error {
	g := r.Geom
	if g.DX != -g.DY {
		return fmt.Errorf("non-square cells %gx%g", g.DX, g.DY)
	}
	bw := bufio.NewWriter(w)
	ext := g.Extent()
	fmt.Fprintf(bw, "ncols %d\nnrows %d\n", g.Cols, g.Rows)
	fmt.Fprintf(bw, "xllcorner %s\nyllcorner %s\n", ftoa(ext.XMin), ftoa(ext.YMin))
	fmt.Fprintf(bw, "cellsize %s\nNODATA_value %s\n", ftoa(g.DX), ftoa(r.NoData))

	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			if col > 0 {
				bw.WriteByte(' ')
			}
			v := r.At(row, col)
			if r.IsNoData(v) {
				v = r.NoData
			}
			bw.WriteString(ftoa(v))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
