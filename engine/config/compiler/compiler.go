// Package compiler describes the Solidity compilers the contracts are built with. Artifacts
// produced by any other compiler version are rejected before deployment.
package compiler

import (
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// ErrUnsupportedCompiler is returned when an artifact was built by a compiler that is not
// configured.
var ErrUnsupportedCompiler = errors.New("unsupported compiler")

// Optimizer holds the solc optimizer settings.
type Optimizer struct {
	Enabled bool `yaml:"enabled"`
	Runs    uint `yaml:"runs"`
}

// Compiler is one configured solc version. A nil Optimizer inherits Config.Optimizer.
type Compiler struct {
	Version   string     `yaml:"version"`
	Optimizer *Optimizer `yaml:"optimizer,omitempty"`
}

// Config is the set of configured compilers together with the default optimizer settings.
type Config struct {
	Compilers []Compiler `yaml:"compilers"`
	Optimizer Optimizer  `yaml:"optimizer"`
}

// Default returns the compilers the StableYield contracts are built with.
func Default() Config {
	return Config{
		Compilers: []Compiler{
			{Version: "0.6.6"},
			{Version: "0.6.10", Optimizer: &Optimizer{Enabled: true, Runs: 200}},
		},
		Optimizer: Optimizer{Enabled: true, Runs: 10},
	}
}

// Validate checks that every version is a strict semantic version and that no version is
// configured twice.
func (c Config) Validate() error {
	if len(c.Compilers) == 0 {
		return errors.New("at least one compiler is required")
	}

	seen := make([]*semver.Version, 0, len(c.Compilers))
	for _, comp := range c.Compilers {
		v, err := semver.StrictNewVersion(comp.Version)
		if err != nil {
			return fmt.Errorf("compiler %q: %w", comp.Version, err)
		}

		for _, s := range seen {
			if s.Equal(v) {
				return fmt.Errorf("compiler %q is configured twice", comp.Version)
			}
		}
		seen = append(seen, v)
	}

	return nil
}

// Lookup returns the compiler matching version with its effective optimizer settings. Build
// metadata, such as the commit in "0.6.10+commit.00c0fcaf", is ignored.
func (c Config) Lookup(version string) (Compiler, error) {
	want, err := semver.NewVersion(version)
	if err != nil {
		return Compiler{}, fmt.Errorf("%w: invalid version %q: %w", ErrUnsupportedCompiler, version, err)
	}

	for _, comp := range c.Compilers {
		v, err := semver.NewVersion(comp.Version)
		if err != nil {
			continue
		}

		if v.Equal(want) {
			opt := c.Optimizer
			if comp.Optimizer != nil {
				opt = *comp.Optimizer
			}

			return Compiler{Version: comp.Version, Optimizer: &opt}, nil
		}
	}

	return Compiler{}, fmt.Errorf("%w: solc %s (configured: %v)", ErrUnsupportedCompiler, version, c.Versions())
}

// Versions returns the configured versions in declaration order.
func (c Config) Versions() []string {
	out := make([]string, 0, len(c.Compilers))
	for _, comp := range c.Compilers {
		out = append(out, comp.Version)
	}

	return out
}
