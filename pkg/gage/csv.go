package gage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dd0wney/wrfhydro-prep/pkg/config"
	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
)

// ReadCSV reads forecast points from a CSV file with a header row. The id,
// latitude and longitude columns are named by cols; other columns are
// ignored.
func ReadCSV(path string, cols config.Gages) ([]Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, hydroerr.IO("gage.ReadCSV", path, err)
	}
	defer f.Close()

	points, err := DecodeCSV(f, cols)
	if err != nil {
		return nil, hydroerr.New(hydroerr.ErrUnsupportedInput, "gage.ReadCSV").Path(path).Cause(err).Err()
	}
	return points, nil
}

// DecodeCSV parses forecast points from r.
func DecodeCSV(r io.Reader, cols config.Gages) ([]Point, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToUpper(strings.TrimSpace(h))] = i
	}
	column := func(name string) (int, error) {
		i, ok := idx[strings.ToUpper(name)]
		if !ok {
			return 0, fmt.Errorf("missing column %q", name)
		}
		return i, nil
	}
	idCol, err := column(cols.IDField)
	if err != nil {
		return nil, err
	}
	latCol, err := column(cols.LatField)
	if err != nil {
		return nil, err
	}
	lonCol, err := column(cols.LonField)
	if err != nil {
		return nil, err
	}

	var points []Point
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(rec[latCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: latitude: %w", line, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(rec[lonCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: longitude: %w", line, err)
		}
		points = append(points, Point{
			ID:  strings.TrimSpace(rec[idCol]),
			Lat: lat,
			Lon: lon,
		})
	}
	return points, nil
}
