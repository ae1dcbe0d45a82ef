package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	if r.StageDuration == nil {
		t.Error("StageDuration not initialized")
	}
	if r.StragglersTotal == nil {
		t.Error("StragglersTotal not initialized")
	}
	if r.LakesShallowTotal == nil {
		t.Error("LakesShallowTotal not initialized")
	}
	if r.registry == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestNewRegistry_Independent(t *testing.T) {
	a, b := NewRegistry(), NewRegistry()
	a.StragglersTotal.Inc()

	var m dto.Metric
	if err := b.StragglersTotal.Write(&m); err != nil {
		t.Fatal(err)
	}
	if m.GetCounter().GetValue() != 0 {
		t.Error("registries share state")
	}
}

func TestRecordStage(t *testing.T) {
	r := NewRegistry()

	r.RecordStage("topology", 250*time.Millisecond, nil)
	r.RecordStage("lakes", time.Second, errors.New("shapefile unreadable"))

	families, err := r.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Gather() = %v", err)
	}

	var sampleCount uint64
	var failures float64
	for _, mf := range families {
		switch mf.GetName() {
		case "wrfhydro_prep_stage_duration_seconds":
			for _, m := range mf.GetMetric() {
				sampleCount += m.GetHistogram().GetSampleCount()
			}
		case "wrfhydro_prep_stage_failures_total":
			for _, m := range mf.GetMetric() {
				failures += m.GetCounter().GetValue()
				if m.GetLabel()[0].GetValue() != "lakes" {
					t.Errorf("failure label = %s", m.GetLabel()[0].GetValue())
				}
			}
		}
	}
	if sampleCount != 2 {
		t.Errorf("stage samples = %d, want 2", sampleCount)
	}
	if failures != 1 {
		t.Errorf("failures = %v, want 1", failures)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := NewRegistry()
	r.SetRunInfo("run-1", "geo_em.d01.nc")
	r.ArcsTotal.Set(42)
	r.MarkSuccess(time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "wrfhydro_prep.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{
		"wrfhydro_prep_arcs 42",
		`wrfhydro_prep_run_info{geogrid="geo_em.d01.nc",run_id="run-1"} 1`,
		"wrfhydro_prep_last_success_timestamp_seconds 1.7e+09",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("textfile missing %q:\n%s", want, text)
		}
	}
}
