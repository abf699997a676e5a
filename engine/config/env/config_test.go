package env

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "test test test test test test test test test test test junk"

func Test_Load(t *testing.T) { //nolint:paralleltest // uses t.Setenv
	tests := []struct {
		name     string
		givePath string
		giveEnv  map[string]string
		want     *Config
		wantErr  string
	}{
		{
			name:     "env only",
			givePath: "",
			giveEnv: map[string]string{
				"MNEMONIC":          testMnemonic,
				"ALCHEMY_KEY":       "env-key",
				"ALCHEMY_KEY_KOVAN": "env-kovan",
			},
			want: &Config{
				Mnemonic:        testMnemonic,
				AlchemyKey:      "env-key",
				AlchemyKeyKovan: "env-kovan",
			},
		},
		{
			name:     "dotenv file provides defaults",
			givePath: filepath.Join("testdata", ".env.test"),
			want: &Config{
				Mnemonic:   testMnemonic,
				AlchemyKey: "file-key",
			},
		},
		{
			name:     "env overrides dotenv file",
			givePath: filepath.Join("testdata", ".env.test"),
			giveEnv: map[string]string{
				"ALCHEMY_KEY": "env-key",
			},
			want: &Config{
				Mnemonic:   testMnemonic,
				AlchemyKey: "env-key",
			},
		},
		{
			name:     "missing dotenv file is ignored",
			givePath: filepath.Join("testdata", "does-not-exist.env"),
			want:     &Config{},
		},
		{
			name:     "dotenv path is a directory",
			givePath: "testdata",
			wantErr:  "failed to read dotenv file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear any values inherited from the shell running the tests.
			for _, envs := range envBindings {
				for _, e := range envs {
					t.Setenv(e, "")
				}
			}
			for k, v := range tt.giveEnv {
				t.Setenv(k, v)
			}

			got, err := Load(tt.givePath)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_Config_Secrets(t *testing.T) {
	t.Parallel()

	cfg := Config{Mnemonic: "m", AlchemyKey: "a", AlchemyKeyKovan: "k"}

	assert.Equal(t, map[string]string{
		"MNEMONIC":          "m",
		"ALCHEMY_KEY":       "a",
		"ALCHEMY_KEY_KOVAN": "k",
	}, cfg.Secrets())
}
