package terrain

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
	"github.com/dd0wney/wrfhydro-prep/pkg/logging"
	"github.com/dd0wney/wrfhydro-prep/pkg/raster"
)

// Runner executes an external command.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name and returns its trimmed output.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return strings.TrimSpace(stdout.String()), strings.TrimSpace(stderr.String()), err
}

// Whitebox drives the whitebox_tools command line. Rasters are exchanged
// as ESRI ASCII grids in WorkDir.
type Whitebox struct {
	Binary  string
	WorkDir string
	runner  Runner
	logger  logging.Logger
}

// NewWhitebox returns an engine that runs binary in workDir.
func NewWhitebox(binary, workDir string, runner Runner, logger logging.Logger) *Whitebox {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Whitebox{Binary: binary, WorkDir: workDir, runner: runner, logger: logger}
}

const (
	wbDEM      = "dem.asc"
	wbFilled   = "fill_pits.asc"
	wbFdir     = "dir_d8.asc"
	wbFacc     = "flow_acc.asc"
	wbStreams  = "streams.asc"
	wbStrahler = "strahler.asc"
)

// FlowAccumulationWorkflow runs FlowAccumulationFullWorkflow with ESRI
// pointers and accumulation in cells.
func (w *Whitebox) FlowAccumulationWorkflow(ctx context.Context, dem *raster.Raster) (filled, fdir, facc *raster.Raster, err error) {
	if err := w.write(wbDEM, dem); err != nil {
		return nil, nil, nil, err
	}
	if err := w.run(ctx, "FlowAccumulationFullWorkflow",
		"--dem="+wbDEM, "--out_dem="+wbFilled, "--out_pntr="+wbFdir, "--out_accum="+wbFacc,
		"--out_type=cells", "--esri_pntr"); err != nil {
		return nil, nil, nil, err
	}
	if filled, err = w.read(wbFilled, dem); err != nil {
		return nil, nil, nil, err
	}
	if fdir, err = w.read(wbFdir, dem); err != nil {
		return nil, nil, nil, err
	}
	if facc, err = w.read(wbFacc, dem); err != nil {
		return nil, nil, nil, err
	}
	return filled, fdir, facc, nil
}

// ExtractStreams runs ExtractStreams without a zero background.
func (w *Whitebox) ExtractStreams(ctx context.Context, facc *raster.Raster, threshold int) (*raster.Raster, error) {
	if err := w.write(wbFacc, facc); err != nil {
		return nil, err
	}
	if err := w.run(ctx, "ExtractStreams",
		"--flow_accum="+wbFacc, "--output="+wbStreams, fmt.Sprintf("--threshold=%d", threshold)); err != nil {
		return nil, err
	}
	return w.read(wbStreams, facc)
}

// StrahlerOrder runs StrahlerStreamOrder on ESRI pointers.
func (w *Whitebox) StrahlerOrder(ctx context.Context, fdir, streams *raster.Raster) (*raster.Raster, error) {
	if err := w.write(wbFdir, fdir); err != nil {
		return nil, err
	}
	if err := w.write(wbStreams, streams); err != nil {
		return nil, err
	}
	if err := w.run(ctx, "StrahlerStreamOrder",
		"--d8_pntr="+wbFdir, "--streams="+wbStreams, "--output="+wbStrahler, "--esri_pntr"); err != nil {
		return nil, err
	}
	return w.read(wbStrahler, streams)
}

func (w *Whitebox) run(ctx context.Context, tool string, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.WorkDir, 0o755); err != nil {
		return hydroerr.IO("terrain.Whitebox."+tool, w.WorkDir, err)
	}
	full := append([]string{"--run=" + tool, "--wd=" + w.WorkDir}, args...)
	w.logger.Debug("running whitebox tool", logging.String("tool", tool), logging.Any("args", full))

	_, stderr, err := w.runner.Run(ctx, w.Binary, full...)
	if err != nil {
		if stderr != "" {
			err = fmt.Errorf("%w: %s", err, stderr)
		}
		return hydroerr.IO("terrain.Whitebox."+tool, w.Binary, err)
	}
	return nil
}

func (w *Whitebox) write(name string, r *raster.Raster) error {
	if err := os.MkdirAll(w.WorkDir, 0o755); err != nil {
		return hydroerr.IO("terrain.Whitebox", w.WorkDir, err)
	}
	return raster.WriteASCII(filepath.Join(w.WorkDir, name), r)
}

// read loads a tool output and rebinds it to like's geometry and NoData
// marker, since ESRI ASCII carries neither projection nor exact origin.
func (w *Whitebox) read(name string, like *raster.Raster) (*raster.Raster, error) {
	r, err := raster.ReadASCII(filepath.Join(w.WorkDir, name), like.Geom.Proj)
	if err != nil {
		return nil, err
	}
	if r.Geom.Rows != like.Geom.Rows || r.Geom.Cols != like.Geom.Cols {
		return nil, hydroerr.New(hydroerr.ErrIO, "terrain.Whitebox").Path(name).
			Contextf("output is %dx%d, input was %dx%d", r.Geom.Rows, r.Geom.Cols, like.Geom.Rows, like.Geom.Cols).Err()
	}
	out := &raster.Raster{Geom: like.Geom, Data: r.Data, NoData: like.NoData}
	for i, v := range out.Data {
		if r.IsNoData(v) {
			out.Data[i] = like.NoData
		}
	}
	return out, nil
}
