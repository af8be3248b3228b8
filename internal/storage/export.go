package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/actuate/internal/sim"
)

type ExportData struct {
	Study     string             `json:"study"`
	Dt        float64            `json:"dt"`
	Duration  float64            `json:"duration"`
	Steps     int                `json:"steps"`
	Actuators []string           `json:"actuators"`
	Times     []float64          `json:"times"`
	Controls  [][]float64        `json:"controls"`
	Forces    [][]float64        `json:"forces"`
	Metrics   map[string]float64 `json:"metrics"`
	Reports   []string           `json:"reports,omitempty"`
}

func NewExportData(meta RunMetadata, result *sim.Result) ExportData {
	data := ExportData{
		Study:     meta.Study,
		Dt:        meta.Dt,
		Duration:  meta.Duration,
		Steps:     len(result.Times),
		Actuators: meta.Actuators,
		Times:     result.Times,
		Controls:  make([][]float64, len(result.Controls)),
		Forces:    result.Forces,
		Metrics:   result.Metrics,
	}
	for i, c := range result.Controls {
		data.Controls[i] = c
	}
	for _, r := range result.Reports {
		data.Reports = append(data.Reports, r.Error())
	}
	return data
}

func WriteJSON(w io.Writer, meta RunMetadata, result *sim.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewExportData(meta, result))
}

func ExportJSON(path string, meta RunMetadata, result *sim.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, meta, result)
}
