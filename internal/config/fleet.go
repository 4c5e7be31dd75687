package config

import (
	"fmt"
	"os"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"gopkg.in/yaml.v3"
)

// WorkerSeed is one worker entry of the fleet bootstrap file.
type WorkerSeed struct {
	Name         string              `yaml:"name"`
	Role         domain.WorkerRole   `yaml:"role"`
	Capabilities []string            `yaml:"capabilities"`
	Efficiency   float64             `yaml:"efficiency"`
	Status       domain.WorkerStatus `yaml:"status"`
	Behavior     string              `yaml:"behavior"`
}

type fleetFile struct {
	Workers []WorkerSeed `yaml:"workers"`
}

// LoadFleetSeed reads the worker bootstrap file.
func LoadFleetSeed(path string) ([]WorkerSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fleet seed: %w", err)
	}
	var f fleetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fleet seed: %w", err)
	}
	for i, w := range f.Workers {
		if w.Name == "" || w.Role == "" {
			return nil, fmt.Errorf("fleet seed entry %d: name and role are required", i)
		}
		if w.Status != "" && !w.Status.Valid() {
			return nil, fmt.Errorf("fleet seed entry %q: unknown status %q", w.Name, w.Status)
		}
	}
	return f.Workers, nil
}

// LoadRoutingTable reads an ordered routing table from YAML.
func LoadRoutingTable(path string) (*domain.RoutingTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read routing table: %w", err)
	}
	var table domain.RoutingTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse routing table: %w", err)
	}
	if len(table.Categories) == 0 {
		return nil, fmt.Errorf("routing table %s: at least one category rule is required", path)
	}
	return &table, nil
}

// SeedWorkers converts seed entries into registry records.
func SeedWorkers(seeds []WorkerSeed) []domain.Worker {
	out := make([]domain.Worker, 0, len(seeds))
	for _, s := range seeds {
		eff := s.Efficiency
		if eff == 0 {
			eff = 75
		}
		out = append(out, domain.Worker{
			Name:           s.Name,
			Role:           s.Role,
			CapabilityTags: domain.NewStringSet(s.Capabilities...),
			Efficiency:     eff,
			Status:         s.Status,
			BehaviorText:   s.Behavior,
		})
	}
	return out
}
