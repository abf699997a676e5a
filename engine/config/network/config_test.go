package network

import (
	"net/url"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var testSecrets = map[string]string{
	"MNEMONIC":          "test test test test test test test test test test test junk",
	"ALCHEMY_KEY":       "alchemy-secret",
	"ALCHEMY_KEY_KOVAN": "kovan-secret",
}

func Test_Load_Embedded(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		giveSecrets map[string]string
	}{
		{name: "with secrets", giveSecrets: testSecrets},
		{name: "without secrets", giveSecrets: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reg, err := Load(nil, WithRegistryOptions(WithSecrets(tt.giveSecrets)))
			require.NoError(t, err)

			assert.Equal(t, []string{"development", "hardhat", "kovan", "mainnet", "rinkeby"}, reg.Names())
			assert.Equal(t, "development", reg.Default())

			for _, name := range reg.Names() {
				p, err := reg.Resolve(name)
				require.NoError(t, err)

				u, err := url.Parse(p.URL)
				require.NoError(t, err, "network %s", name)
				assert.NotEmpty(t, u.Scheme, "network %s", name)
				assert.NotEmpty(t, u.Host, "network %s", name)
				assert.NotContains(t, p.URL, "${", "network %s", name)
			}
		})
	}
}

func Test_Registry_Resolve(t *testing.T) {
	t.Parallel()

	reg, err := Load(nil, WithRegistryOptions(WithSecrets(testSecrets)))
	require.NoError(t, err)

	t.Run("substitutes secrets", func(t *testing.T) {
		t.Parallel()

		got, err := reg.Resolve("kovan")
		require.NoError(t, err)

		assert.Equal(t, "https://eth-kovan.alchemyapi.io/v2/kovan-secret", got.URL)
		assert.Equal(t, testSecrets["MNEMONIC"], got.Accounts.Mnemonic)
		assert.Equal(t, uint64(1000000000), got.GasPrice)

		dai, err := got.Token("DAI")
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress("0xff795577d9ac8bd7d90ee22b6c1703490b6512fd"), dai)
	})

	t.Run("substitutes fork secrets", func(t *testing.T) {
		t.Parallel()

		got, err := reg.Resolve("hardhat")
		require.NoError(t, err)

		require.NotNil(t, got.Fork)
		assert.Equal(t, "https://eth-mainnet.alchemyapi.io/v2/alchemy-secret", got.Fork.URL)
		assert.Equal(t, uint64(11741278), got.Fork.BlockNumber)
		assert.True(t, got.AllowUnlimitedContractSize)
	})

	t.Run("does not mutate raw profiles", func(t *testing.T) {
		t.Parallel()

		_, err := reg.Resolve("mainnet")
		require.NoError(t, err)

		for _, p := range reg.Profiles() {
			if p.Name == "mainnet" {
				assert.Equal(t, "https://eth-mainnet.alchemyapi.io/v2/${ALCHEMY_KEY}", p.URL)
			}
		}
	})

	t.Run("unknown network", func(t *testing.T) {
		t.Parallel()

		_, err := reg.Resolve("ropsten")
		require.ErrorIs(t, err, ErrUnknownNetwork)
		assert.ErrorContains(t, err, `"ropsten"`)
	})
}

func Test_Load_Files(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		givePaths   []string
		giveOpts    []LoadOption
		wantNames   []string
		wantDefault string
		wantURL     map[string]string
		wantErr     string
		wantErrIs   error
	}{
		{
			name:        "merges and overrides embedded profiles",
			givePaths:   []string{filepath.Join("testdata", "override.yaml"), filepath.Join("testdata", "extra.toml")},
			wantNames:   []string{"development", "hardhat", "kovan", "local", "mainnet", "rinkeby", "sepolia"},
			wantDefault: "local",
			wantURL: map[string]string{
				"mainnet": "https://mainnet.example.org/alchemy-secret",
				"sepolia": "https://eth-sepolia.example.org/v2/alchemy-secret",
			},
		},
		{
			name:        "files only",
			givePaths:   []string{filepath.Join("testdata", "extra.toml")},
			giveOpts:    []LoadOption{WithoutEmbedded()},
			wantNames:   []string{"sepolia"},
			wantDefault: DefaultNetwork,
		},
		{
			name:      "duplicate names in one manifest",
			givePaths: []string{filepath.Join("testdata", "duplicate.yaml")},
			wantErrIs: ErrDuplicateNetwork,
		},
		{
			name:      "unsupported url scheme",
			givePaths: []string{filepath.Join("testdata", "bad_scheme.yaml")},
			wantErr:   `network local: url: unsupported scheme "ftp"`,
		},
		{
			name:      "missing file",
			givePaths: []string{filepath.Join("testdata", "nope.yaml")},
			wantErr:   "failed to read networks file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := append([]LoadOption{WithRegistryOptions(WithSecrets(testSecrets))}, tt.giveOpts...)
			reg, err := Load(tt.givePaths, opts...)

			switch {
			case tt.wantErrIs != nil:
				require.ErrorIs(t, err, tt.wantErrIs)
			case tt.wantErr != "":
				require.ErrorContains(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantNames, reg.Names())
				assert.Equal(t, tt.wantDefault, reg.Default())

				for name, want := range tt.wantURL {
					p, err := reg.Resolve(name)
					require.NoError(t, err)
					assert.Equal(t, want, p.URL)
				}
			}
		})
	}
}

func Test_NewRegistry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		give      []Profile
		wantErr   string
		wantErrIs error
	}{
		{
			name: "valid",
			give: []Profile{
				{Name: "a", URL: "http://localhost:8545"},
				{Name: "b", URL: "wss://node.example.org/ws"},
			},
		},
		{
			name: "duplicate name",
			give: []Profile{
				{Name: "a", URL: "http://localhost:8545"},
				{Name: "a", URL: "http://localhost:8546"},
			},
			wantErrIs: ErrDuplicateNetwork,
		},
		{
			name:    "missing url",
			give:    []Profile{{Name: "a"}},
			wantErr: "network a: url: is required",
		},
		{
			name:    "missing host",
			give:    []Profile{{Name: "a", URL: "http:///path"}},
			wantErr: "network a: url: missing host",
		},
		{
			name: "invalid token address",
			give: []Profile{
				{Name: "a", URL: "http://localhost:8545", Tokens: map[string]string{"DAI": "0x1234"}},
			},
			wantErr: `network a: token DAI: invalid address "0x1234"`,
		},
		{
			name: "invalid fork url",
			give: []Profile{
				{Name: "a", URL: "http://localhost:8545", Fork: &ForkSource{URL: "mainnet"}},
			},
			wantErr: "network a: fork url: unsupported scheme",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewRegistry(tt.give)

			switch {
			case tt.wantErrIs != nil:
				require.ErrorIs(t, err, tt.wantErrIs)
			case tt.wantErr != "":
				require.ErrorContains(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
			}
		})
	}
}

func Test_Registry_MarshalYAML(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry([]Profile{
		{
			Name:     "local",
			URL:      "http://127.0.0.1:8546/",
			GasPrice: 1,
			Accounts: Accounts{Mnemonic: "${MNEMONIC}"},
		},
	}, WithSecrets(testSecrets))
	require.NoError(t, err)

	got, err := yaml.Marshal(reg)
	require.NoError(t, err)

	want := `default_network: development
networks:
  - name: local
    url: http://127.0.0.1:8546/
    gas_price: 1
    accounts:
      mnemonic: ${MNEMONIC}
`

	assert.YAMLEq(t, want, string(got))
}
