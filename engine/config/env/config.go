// Package env loads the operator secrets used to sign transactions and to reach hosted RPC
// providers.
package env

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the secrets read from the environment.
//
// WARNING: This data type contains sensitive fields and should not be logged.
type Config struct {
	Mnemonic        string `mapstructure:"mnemonic"`          // Secret: BIP39 mnemonic the deployer account is derived from.
	AlchemyKey      string `mapstructure:"alchemy_key"`       // Secret: Alchemy API key for mainnet and rinkeby endpoints.
	AlchemyKeyKovan string `mapstructure:"alchemy_key_kovan"` // Secret: Alchemy API key for the kovan endpoint.
}

// Secrets returns the config as a placeholder map keyed by environment variable name. Network
// manifests reference these names as ${NAME}.
func (c Config) Secrets() map[string]string {
	return map[string]string{
		"MNEMONIC":          c.Mnemonic,
		"ALCHEMY_KEY":       c.AlchemyKey,
		"ALCHEMY_KEY_KOVAN": c.AlchemyKeyKovan,
	}
}

// envBindings maps each config key to the environment variables that can provide it. The first
// variable that is set wins.
var envBindings = map[string][]string{
	"mnemonic":          {"MNEMONIC"},
	"alchemy_key":       {"ALCHEMY_KEY"},
	"alchemy_key_kovan": {"ALCHEMY_KEY_KOVAN"},
}

// Load reads the config from the process environment. If dotEnvPath points at an existing
// dotenv file its values are used as defaults, so variables exported in the shell always win.
// A missing dotenv file is not an error.
func Load(dotEnvPath string) (*Config, error) {
	v := viper.New()

	if dotEnvPath != "" {
		if err := loadDotEnvDefaults(v, dotEnvPath); err != nil {
			return nil, err
		}
	}

	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal env config: %w", err)
	}

	return cfg, nil
}

// loadDotEnvDefaults reads the dotenv file without touching the process environment and
// registers known variables as viper defaults.
func loadDotEnvDefaults(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	values, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("failed to read dotenv file %s: %w", path, err)
	}

	for key, envs := range envBindings {
		for _, name := range envs {
			if val, ok := values[name]; ok {
				v.SetDefault(key, val)

				break
			}
		}
	}

	return nil
}

// bindEnvs binds the environment variables to the viper instance.
func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		inputs := slices.Insert(slices.Clone(envs), 0, key)

		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}

	return nil
}
