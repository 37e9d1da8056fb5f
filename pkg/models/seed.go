package models

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedRawData []byte

// seedFile is the top-level structure of the embedded YAML.
type seedFile struct {
	Devices []Device `yaml:"devices"`
	Alerts  []Alert  `yaml:"alerts"`
}

var (
	seedOnce sync.Once
	seed     seedFile
	seedErr  error
)

func loadSeed() {
	if err := yaml.Unmarshal(seedRawData, &seed); err != nil {
		seedErr = fmt.Errorf("seed: parse yaml: %w", err)
	}
}

// SeedDevices returns a fresh copy of the built-in device dataset.
func SeedDevices() ([]Device, error) {
	seedOnce.Do(loadSeed)
	if seedErr != nil {
		return nil, seedErr
	}
	return CloneDevices(seed.Devices), nil
}

// SeedAlerts returns a fresh copy of the built-in alert dataset.
func SeedAlerts() ([]Alert, error) {
	seedOnce.Do(loadSeed)
	if seedErr != nil {
		return nil, seedErr
	}
	out := make([]Alert, len(seed.Alerts))
	copy(out, seed.Alerts)
	return out, nil
}
