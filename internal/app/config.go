package app

import (
	"errors"
	"fmt"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Paths []string // hcl files or directories

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int

	// Field is a field reference: "name", "name.component" or "name[n]".
	Field string
	Mesh  string

	// Exactly one location is used when evaluating.
	Element     int
	Xi          []float64
	Node        int
	Coordinates []float64

	Time       float64
	Derivative int // order of xi derivatives, 0 for values

	Sample    bool
	Divisions int
	Tree      bool
}

// Mode is what Run does once the region is built.
type Mode int

const (
	ModeEvaluate Mode = iota
	ModeSample
	ModeTree
)

func (m Mode) String() string {
	switch m {
	case ModeSample:
		return "sample"
	case ModeTree:
		return "tree"
	default:
		return "evaluate"
	}
}

// Mode reports the action the configuration selects.
func (c *Config) Mode() Mode {
	switch {
	case c.Tree:
		return ModeTree
	case c.Sample:
		return ModeSample
	default:
		return ModeEvaluate
	}
}

func (c *Config) locationCount() int {
	n := 0
	if c.Element > 0 {
		n++
	}
	if c.Node > 0 {
		n++
	}
	if len(c.Coordinates) > 0 {
		n++
	}
	return n
}

func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.Paths) == 0 {
		return nil, errors.New("at least one field description path is required")
	}
	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("worker count must not be negative, got %d", cfg.WorkerCount)
	}
	if cfg.Derivative < 0 {
		return nil, fmt.Errorf("derivative order must not be negative, got %d", cfg.Derivative)
	}
	if cfg.Tree && cfg.Sample {
		return nil, errors.New("tree and sample cannot be combined")
	}

	switch cfg.Mode() {
	case ModeEvaluate:
		if cfg.Field == "" {
			return nil, errors.New("a field to evaluate is required")
		}
		if cfg.locationCount() != 1 {
			return nil, errors.New("exactly one of element, node or coordinates must be given")
		}
		if cfg.Derivative > 0 && cfg.Element == 0 {
			return nil, errors.New("derivatives can only be evaluated at an element location")
		}
	case ModeSample:
		if cfg.Field == "" {
			return nil, errors.New("a field to sample is required")
		}
		if cfg.locationCount() != 0 {
			return nil, errors.New("sampling covers a whole mesh and takes no location")
		}
		if cfg.Derivative > 0 {
			return nil, errors.New("derivatives cannot be sampled")
		}
		if cfg.Divisions < 0 {
			return nil, fmt.Errorf("divisions must not be negative, got %d", cfg.Divisions)
		}
	}
	if len(cfg.Xi) > 0 && cfg.Element == 0 {
		return nil, errors.New("xi coordinates need an element")
	}

	return &cfg, nil
}
