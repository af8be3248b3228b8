package config

import "sort"

// Presets holds self-contained studies grouped by mechanism. None of them
// reads files.
var Presets = map[string]map[string]*Config{
	"arm": {
		"flexion": {
			Name:        "arm-flexion",
			Dt:          0.01,
			Duration:    1.0,
			Coordinates: []CoordinateConfig{{Name: "shoulder_elv"}, {Name: "elbow_flex"}},
			Actuators: []ActuatorConfig{
				{Name: "delt_ant", Coordinate: "shoulder_elv", OptimalForce: 100},
				{Name: "biceps", Coordinate: "elbow_flex", OptimalForce: 80},
			},
			Controllers: []ControllerConfig{{
				Name:          "prescribed",
				Kind:          KindPrescribed,
				Interpolation: 3,
				Functions: []FunctionConfig{
					{Actuator: "delt_ant", Times: []float64{0, 0.5, 1}, Values: []float64{0, 0.8, 0.2}},
					{Actuator: "biceps", Times: []float64{0, 0.5, 1}, Values: []float64{0.1, 0.5, 0.9}},
				},
			}},
		},
		"cocontraction": {
			Name:        "arm-cocontraction",
			Dt:          0.01,
			Duration:    1.0,
			Coordinates: []CoordinateConfig{{Name: "elbow_flex"}},
			Actuators: []ActuatorConfig{
				{Name: "biceps", Coordinate: "elbow_flex", OptimalForce: 80},
				{Name: "triceps", Coordinate: "elbow_flex", OptimalForce: 100},
			},
			Controllers: []ControllerConfig{{
				Name:        "elbow",
				Kind:        KindSynergy,
				Actuators:   []string{"biceps", "triceps"},
				Vectors:     [][]float64{{1, 0.8}},
				Excitations: map[string]float64{"synergy_excitation_0": 0.5},
			}},
		},
	},
	"leg": {
		"gait": {
			Name:        "leg-gait",
			Dt:          0.01,
			Duration:    1.0,
			Coordinates: []CoordinateConfig{{Name: "hip_flexion_r"}, {Name: "knee_angle_r"}, {Name: "ankle_angle_r"}},
			Actuators: []ActuatorConfig{
				{Name: "iliacus_r", Coordinate: "hip_flexion_r", OptimalForce: 620},
				{Name: "vasti_r", Coordinate: "knee_angle_r", OptimalForce: 5000},
				{Name: "soleus_r", Coordinate: "ankle_angle_r", OptimalForce: 3500},
				{Name: "tibant_r", Coordinate: "ankle_angle_r", OptimalForce: 900},
			},
			Controllers: []ControllerConfig{{
				Name:      "right",
				Kind:      KindSynergy,
				Actuators: []string{"iliacus_r", "vasti_r", "soleus_r", "tibant_r"},
				Vectors: [][]float64{
					{0.9, 0.1, 0.0, 0.6},
					{0.0, 0.7, 1.0, 0.1},
				},
				Excitations: map[string]float64{"synergy_excitation_0": 0.3, "synergy_excitation_1": 0.6},
			}},
		},
		"saturating": {
			Name:        "leg-saturating",
			Dt:          0.01,
			Duration:    0.5,
			Coordinates: []CoordinateConfig{{Name: "knee_angle_r"}, {Name: "ankle_angle_r"}},
			Actuators: []ActuatorConfig{
				{Name: "vasti_r", Coordinate: "knee_angle_r", OptimalForce: 5000},
				{Name: "soleus_r", Coordinate: "ankle_angle_r", OptimalForce: 3500},
			},
			Controllers: []ControllerConfig{{
				Name:        "right",
				Kind:        KindSynergy,
				Actuators:   []string{"vasti_r", "soleus_r"},
				Vectors:     [][]float64{{0.3, 0.7}},
				Excitations: map[string]float64{"synergy_excitation_0": 2.0},
			}},
		},
	},
	"generic": {
		"reserves": {
			Name:                "generic-reserves",
			Dt:                  0.05,
			Duration:            1.0,
			Coordinates:         []CoordinateConfig{{Name: "q0"}, {Name: "q1"}, {Name: "lock", Constrained: true}},
			CoordinateActuators: CoordinateActuatorsConfig{Enabled: true, OptimalForce: 10},
			Controllers: []ControllerConfig{{
				Name:          "reserves",
				Kind:          KindPrescribed,
				Interpolation: 1,
				Functions: []FunctionConfig{
					{Actuator: "q0_actuator", Times: []float64{0, 1}, Values: []float64{0, 1}},
					{Actuator: "q1_actuator", Times: []float64{0, 1}, Values: []float64{1, 0}},
				},
			}},
		},
	},
}

func GetPreset(group, preset string) *Config {
	groupPresets, ok := Presets[group]
	if !ok {
		return nil
	}
	cfg, ok := groupPresets[preset]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets(group string) []string {
	groupPresets, ok := Presets[group]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(groupPresets))
	for name := range groupPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListGroups() []string {
	groups := make([]string, 0, len(Presets))
	for g := range Presets {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}
