package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/actuate/internal/dynamo"
	"github.com/san-kum/actuate/internal/sim"
)

func testResult() *sim.Result {
	return &sim.Result{
		Times:    []float64{0.0, 0.5},
		Controls: []dynamo.Control{{0.6, 1.4}, {0.3, 0.7}},
		Forces:   [][]float64{{6, 14}, {3, 7}},
		Metrics: map[string]float64{
			"control_effort": 1.5,
		},
		Reports:    []error{errors.New("actuator ghost: unresolved")},
		StepsTaken: 2,
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	meta := RunMetadata{Study: "test", Seed: 42, Dt: 0.5, Duration: 0.5, Actuators: []string{"soleus_r", "tibant_r"}}
	runID, err := st.Save(meta, testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	loaded, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Study != "test" || loaded.Seed != 42 || loaded.Steps != 2 {
		t.Errorf("unexpected metadata: %+v", loaded)
	}
	if loaded.Metrics["control_effort"] != 1.5 {
		t.Errorf("expected effort 1.5, got %f", loaded.Metrics["control_effort"])
	}
	if len(loaded.Reports) != 1 {
		t.Errorf("expected 1 report, got %v", loaded.Reports)
	}

	controls, err := st.LoadControls(runID)
	if err != nil {
		t.Fatalf("load controls failed: %v", err)
	}
	col, ok := controls.Column("tibant_r")
	if !ok || len(col) != 2 || col[0] != 1.4 || col[1] != 0.7 {
		t.Errorf("unexpected tibant_r controls: %v", col)
	}

	forces, err := st.LoadForces(runID)
	if err != nil {
		t.Fatalf("load forces failed: %v", err)
	}
	if col, _ := forces.Column("soleus_r"); col[1] != 3 {
		t.Errorf("unexpected soleus_r forces: %v", col)
	}
}

func TestStoreSaveKeepsCallerReports(t *testing.T) {
	st := New(t.TempDir())
	reports := make([]string, 1, 4)
	reports[0] = "earlier"
	meta := RunMetadata{Study: "test", Reports: reports}

	runID, err := st.Save(meta, testResult())
	if err != nil {
		t.Fatal(err)
	}
	if got := reports[:cap(reports)][0]; got != "earlier" {
		t.Errorf("caller's reports overwritten: %q", got)
	}
	loaded, err := st.Load(runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Reports) != 1 || loaded.Reports[0] != "actuator ghost: unresolved" {
		t.Errorf("stored reports = %v", loaded.Reports)
	}
}

func TestStoreUnnamedColumns(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(RunMetadata{Study: "anon"}, testResult())
	if err != nil {
		t.Fatal(err)
	}
	controls, err := st.LoadControls(runID)
	if err != nil {
		t.Fatal(err)
	}
	if controls.ColumnIndex("u1") != 1 {
		t.Errorf("expected positional labels, got %v", controls.Labels)
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"a", "b"} {
		if _, err := st.Save(RunMetadata{Study: name}, testResult()); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
}

func TestStoreListEmpty(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "missing"))
	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	meta := RunMetadata{Study: "test", Dt: 0.5, Actuators: []string{"a", "b"}}
	if err := WriteJSON(&buf, meta, testResult()); err != nil {
		t.Fatal(err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if data.Steps != 2 || len(data.Controls) != 2 || data.Controls[0][1] != 1.4 {
		t.Errorf("unexpected export: %+v", data)
	}

	path := filepath.Join(t.TempDir(), "out.json")
	if err := ExportJSON(path, meta, testResult()); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var fromFile ExportData
	if err := json.Unmarshal(raw, &fromFile); err != nil {
		t.Fatalf("invalid json file: %v", err)
	}
	if fromFile.Study != "test" || len(fromFile.Reports) != 1 {
		t.Errorf("unexpected file export: %+v", fromFile)
	}
}
