package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/actuate/internal/sim"
	"github.com/san-kum/actuate/internal/table"
)

const (
	metadataFile = "metadata.json"
	controlsFile = "controls.csv"
	forcesFile   = "forces.csv"
)

// Store keeps one directory per run under baseDir.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID          string             `json:"id"`
	Study       string             `json:"study"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	Actuators   []string           `json:"actuators"`
	Controllers []string           `json:"controllers"`
	Metrics     map[string]float64 `json:"metrics"`
	Steps       int                `json:"steps"`
	Reports     []string           `json:"reports,omitempty"`
}

// Save writes meta, the control trajectory and the force trajectory of
// result into a new run directory and returns the run ID. meta.ID,
// Timestamp, Metrics, Steps and Reports are filled from result.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	meta.Timestamp = time.Now()
	meta.ID = fmt.Sprintf("%s_%d_%s", meta.Study, meta.Timestamp.Unix(), uuid.NewString()[:8])
	meta.Metrics = result.Metrics
	meta.Steps = result.StepsTaken
	meta.Reports = nil
	for _, r := range result.Reports {
		meta.Reports = append(meta.Reports, r.Error())
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(runDir, metadataFile), data, 0644); err != nil {
		return "", err
	}

	controls, err := trajectory(result.Times, meta.Actuators, result.Controls)
	if err != nil {
		return "", fmt.Errorf("controls: %w", err)
	}
	if err := controls.Save(filepath.Join(runDir, controlsFile)); err != nil {
		return "", err
	}

	forces, err := trajectory(result.Times, meta.Actuators, result.Forces)
	if err != nil {
		return "", fmt.Errorf("forces: %w", err)
	}
	if err := forces.Save(filepath.Join(runDir, forcesFile)); err != nil {
		return "", err
	}

	return meta.ID, nil
}

// trajectory turns per-sample rows into a table. Missing labels are named
// by position.
func trajectory[T ~[]float64](times []float64, labels []string, rows []T) (*table.Table, error) {
	tbl := table.New(times)
	width := 0
	if len(rows) > 0 {
		width = len(rows[0])
	}
	for j := 0; j < width; j++ {
		label := fmt.Sprintf("u%d", j)
		if j < len(labels) {
			label = labels[j]
		}
		col := make([]float64, len(rows))
		for i, row := range rows {
			if j < len(row) {
				col[i] = row[j]
			}
		}
		if err := tbl.AddColumn(label, col); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadControls(runID string) (*table.Table, error) {
	return table.Load(filepath.Join(s.baseDir, runID, controlsFile))
}

func (s *Store) LoadForces(runID string) (*table.Table, error) {
	return table.Load(filepath.Join(s.baseDir, runID, forcesFile))
}
