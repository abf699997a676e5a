package network

import (
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownNetwork is returned when no profile matches the requested identifier.
	ErrUnknownNetwork = errors.New("unknown network")
	// ErrDuplicateNetwork is returned when a manifest declares the same profile name twice.
	ErrDuplicateNetwork = errors.New("duplicate network")
)

// DefaultNetwork is the network used when neither the manifests nor the operator select one.
const DefaultNetwork = "development"

//go:embed networks.yaml
var embeddedManifest []byte

// Manifest is the file representation of the network configuration.
type Manifest struct {
	// DefaultNetwork optionally overrides the network selected when none is given.
	DefaultNetwork string `yaml:"default_network,omitempty" toml:"default_network,omitempty"`
	// A list of network profiles. Names must be unique within a manifest.
	Networks []Profile `yaml:"networks" toml:"networks"`
}

// ParseManifest decodes a manifest. The format is selected by the file extension of name:
// .toml is decoded as TOML and anything else as YAML.
func ParseManifest(name string, data []byte) (Manifest, error) {
	var m Manifest

	switch strings.ToLower(filepath.Ext(name)) {
	case ".toml":
		if err := toml.Unmarshal(data, &m); err != nil {
			return Manifest{}, fmt.Errorf("failed to unmarshal networks TOML: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &m); err != nil {
			return Manifest{}, fmt.Errorf("failed to unmarshal networks YAML: %w", err)
		}
	}

	seen := make(map[string]struct{}, len(m.Networks))
	for _, p := range m.Networks {
		if _, ok := seen[p.Name]; ok {
			return Manifest{}, fmt.Errorf("%w: %s", ErrDuplicateNetwork, p.Name)
		}
		seen[p.Name] = struct{}{}
	}

	return m, nil
}

// EmbeddedManifest returns the manifest compiled into the binary.
func EmbeddedManifest() (Manifest, error) {
	return ParseManifest("networks.yaml", embeddedManifest)
}

// Registry is the read-only set of network profiles available to a process. It is built once at
// startup and never mutated afterwards.
type Registry struct {
	// profiles holds the raw profiles keyed by name, with placeholders left in place.
	profiles map[string]Profile
	// defaultName is the profile selected when none is requested.
	defaultName string
	// secrets substitutes ${NAME} placeholders on resolution.
	secrets map[string]string
}

// Option configures a Registry.
type Option func(*Registry)

// WithSecrets sets the values substituted for ${NAME} placeholders. Unknown placeholders expand
// to an empty string.
func WithSecrets(secrets map[string]string) Option {
	return func(r *Registry) {
		r.secrets = maps.Clone(secrets)
	}
}

// WithDefaultNetwork overrides the default network name.
func WithDefaultNetwork(name string) Option {
	return func(r *Registry) {
		r.defaultName = name
	}
}

// NewRegistry builds a registry from the given profiles and validates every profile with its
// secrets substituted.
func NewRegistry(profiles []Profile, opts ...Option) (*Registry, error) {
	r := &Registry{
		profiles:    make(map[string]Profile, len(profiles)),
		defaultName: DefaultNetwork,
	}

	for _, p := range profiles {
		if _, ok := r.profiles[p.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNetwork, p.Name)
		}
		r.profiles[p.Name] = p
	}

	for _, opt := range opts {
		opt(r)
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}

	return r, nil
}

// Validate ensures every profile is valid once its secrets are substituted.
func (r *Registry) Validate() error {
	for _, name := range r.Names() {
		p := r.profiles[name].expand(r.lookup)
		if err := p.Validate(); err != nil {
			return fmt.Errorf("network %s: %w", name, err)
		}
	}

	return nil
}

// Resolve returns the profile with the given identifier, with its placeholders substituted.
func (r *Registry) Resolve(identifier string) (Profile, error) {
	p, ok := r.profiles[identifier]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q (available: %s)",
			ErrUnknownNetwork, identifier, strings.Join(r.Names(), ", "),
		)
	}

	return p.expand(r.lookup), nil
}

// Default returns the name of the default network.
func (r *Registry) Default() string {
	return r.defaultName
}

// Names returns the sorted profile names.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.profiles))
}

// Profiles returns the raw profiles sorted by name. Placeholders are not substituted, which
// makes the result safe to print.
func (r *Registry) Profiles() []Profile {
	out := make([]Profile, 0, len(r.profiles))
	for _, name := range r.Names() {
		out = append(out, r.profiles[name])
	}

	return out
}

func (r *Registry) lookup(name string) string {
	return r.secrets[name]
}

// MarshalYAML implements the yaml.Marshaler interface, emitting the raw profiles.
func (r *Registry) MarshalYAML() (any, error) {
	return Manifest{
		DefaultNetwork: r.defaultName,
		Networks:       r.Profiles(),
	}, nil
}

// loadConfig holds the configuration for Load.
type loadConfig struct {
	skipEmbedded bool
	registryOpts []Option
}

// LoadOption defines a function which modifies the load configuration.
type LoadOption func(*loadConfig)

// WithoutEmbedded skips the manifest compiled into the binary, so only the given files are used.
func WithoutEmbedded() LoadOption {
	return func(c *loadConfig) {
		c.skipEmbedded = true
	}
}

// WithRegistryOptions passes options through to NewRegistry.
func WithRegistryOptions(opts ...Option) LoadOption {
	return func(c *loadConfig) {
		c.registryOpts = append(c.registryOpts, opts...)
	}
}

// Load builds a registry from the embedded manifest merged with the manifests at filePaths.
// Later manifests override profiles of the same name and the default network.
func Load(filePaths []string, opts ...LoadOption) (*Registry, error) {
	cfg := &loadConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	var (
		profiles    = make(map[string]Profile)
		order       []string
		defaultName string
	)

	merge := func(m Manifest) {
		for _, p := range m.Networks {
			if _, ok := profiles[p.Name]; !ok {
				order = append(order, p.Name)
			}
			profiles[p.Name] = p
		}
		if m.DefaultNetwork != "" {
			defaultName = m.DefaultNetwork
		}
	}

	if !cfg.skipEmbedded {
		m, err := EmbeddedManifest()
		if err != nil {
			return nil, fmt.Errorf("failed to load embedded networks: %w", err)
		}
		merge(m)
	}

	for _, fp := range filePaths {
		data, err := os.ReadFile(fp)
		if err != nil {
			return nil, fmt.Errorf("failed to read networks file: %w", err)
		}

		m, err := ParseManifest(fp, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fp, err)
		}
		merge(m)
	}

	merged := make([]Profile, 0, len(order))
	for _, name := range order {
		merged = append(merged, profiles[name])
	}

	registryOpts := cfg.registryOpts
	if defaultName != "" {
		registryOpts = append([]Option{WithDefaultNetwork(defaultName)}, registryOpts...)
	}

	r, err := NewRegistry(merged, registryOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to validate networks configuration: %w", err)
	}

	return r, nil
}
