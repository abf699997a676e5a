package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Default_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, Default().Validate())
	assert.Equal(t, []string{"0.6.6", "0.6.10"}, Default().Versions())
}

func Test_Config_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    Config
		wantErr string
	}{
		{
			name:    "no compilers",
			give:    Config{},
			wantErr: "at least one compiler is required",
		},
		{
			name:    "not strict",
			give:    Config{Compilers: []Compiler{{Version: "v0.6"}}},
			wantErr: `compiler "v0.6"`,
		},
		{
			name:    "duplicate",
			give:    Config{Compilers: []Compiler{{Version: "0.6.6"}, {Version: "0.6.6"}}},
			wantErr: `compiler "0.6.6" is configured twice`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			require.ErrorContains(t, tt.give.Validate(), tt.wantErr)
		})
	}
}

func Test_Config_Lookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		give          string
		wantVersion   string
		wantOptimizer Optimizer
		wantErr       bool
	}{
		{
			name:          "inherits default optimizer",
			give:          "0.6.6",
			wantVersion:   "0.6.6",
			wantOptimizer: Optimizer{Enabled: true, Runs: 10},
		},
		{
			name:          "own optimizer",
			give:          "0.6.10",
			wantVersion:   "0.6.10",
			wantOptimizer: Optimizer{Enabled: true, Runs: 200},
		},
		{
			name:          "build metadata ignored",
			give:          "0.6.10+commit.00c0fcaf",
			wantVersion:   "0.6.10",
			wantOptimizer: Optimizer{Enabled: true, Runs: 200},
		},
		{
			name:    "not configured",
			give:    "0.8.20",
			wantErr: true,
		},
		{
			name:    "garbage",
			give:    "latest",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Default().Lookup(tt.give)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedCompiler)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, got.Version)
			require.NotNil(t, got.Optimizer)
			assert.Equal(t, tt.wantOptimizer, *got.Optimizer)
		})
	}
}
