package provider

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	bip39 "github.com/cosmos/go-bip39"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
)

// DefaultBaseDerivationPath is the BIP-44 path of Ethereum accounts. The account index is
// appended as the last path component.
const DefaultBaseDerivationPath = "m/44'/60'/0'/0"

// ErrInvalidMnemonic is returned when no mnemonic is configured or it fails the BIP-39 checksum.
var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// SignerGenerator is an interface for generating geth's *bind.TransactOpts instances and
// providing hash signing capabilities. These instances are used to sign transactions using geth bindings,
// and the SignHash method allows signing of arbitrary hashes.
type SignerGenerator interface {
	Generate(chainID *big.Int) (*bind.TransactOpts, error)
	SignHash(hash []byte) ([]byte, error)
}

var (
	_ SignerGenerator = (*transactorFromKey)(nil)
	_ SignerGenerator = (*transactorRandom)(nil)
)

// GeneratorOptions contains configuration options for the SignerGenerator.
type GeneratorOptions struct {
	gasLimit uint64
	gasPrice uint64
}

// GeneratorOption is a function that modifies GeneratorOptions.
type GeneratorOption func(*GeneratorOptions)

// WithGasLimit fixes the gas limit of every transaction instead of estimating it.
func WithGasLimit(gasLimit uint64) GeneratorOption {
	return func(opts *GeneratorOptions) {
		opts.gasLimit = gasLimit
	}
}

// WithGasPrice fixes the gas price (in wei) of every transaction, producing legacy
// transactions.
func WithGasPrice(gasPrice uint64) GeneratorOption {
	return func(opts *GeneratorOptions) {
		opts.gasPrice = gasPrice
	}
}

func applyGeneratorOptions(opts []GeneratorOption) GeneratorOptions {
	o := GeneratorOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// TransactorFromMnemonic returns a generator which derives the account at index of a BIP-39
// mnemonic, using the m/44'/60'/0'/0/<index> path wallets and Hardhat use.
func TransactorFromMnemonic(mnemonic string, index uint32, opts ...GeneratorOption) SignerGenerator {
	return &transactorFromKey{
		loadKey: func() (*ecdsa.PrivateKey, error) {
			return DeriveKey(mnemonic, fmt.Sprintf("%s/%d", DefaultBaseDerivationPath, index))
		},
		opts: applyGeneratorOptions(opts),
	}
}

// DeriveKey derives the private key at the given derivation path of a BIP-39 mnemonic.
func DeriveKey(mnemonic, path string) (*ecdsa.PrivateKey, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if mnemonic == "" {
		return nil, fmt.Errorf("%w: mnemonic is empty, set MNEMONIC", ErrInvalidMnemonic)
	}

	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMnemonic, err)
	}

	dpath, err := accounts.ParseDerivationPath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid derivation path %q: %w", path, err)
	}

	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}

	for _, idx := range dpath {
		key, err = key.Derive(idx)
		if err != nil {
			return nil, fmt.Errorf("failed to derive key at %s: %w", path, err)
		}
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("failed to extract private key: %w", err)
	}

	return priv.ToECDSA(), nil
}

// transactorFromKey is a SignerGenerator that creates a transactor from a lazily loaded key.
type transactorFromKey struct {
	loadKey func() (*ecdsa.PrivateKey, error)
	opts    GeneratorOptions
}

// Generate loads the key and returns the bind transactor options.
func (g *transactorFromKey) Generate(chainID *big.Int) (*bind.TransactOpts, error) {
	key, err := g.loadKey()
	if err != nil {
		return nil, err
	}

	transactor, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, err
	}
	if g.opts.gasLimit > 0 {
		transactor.GasLimit = g.opts.gasLimit
	}
	if g.opts.gasPrice > 0 {
		transactor.GasPrice = new(big.Int).SetUint64(g.opts.gasPrice)
	}

	return transactor, nil
}

// SignHash signs a hash using the private key of the generator.
func (g *transactorFromKey) SignHash(hash []byte) ([]byte, error) {
	key, err := g.loadKey()
	if err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign hash: %w", err)
	}

	return sig, nil
}

// TransactorRandom is a SignerGenerator that creates a transactor with a random private key.
// A random private key is generated the first time Generate() or SignHash is called, and the same key is used for subsequent calls.
func TransactorRandom() SignerGenerator {
	return &transactorRandom{}
}

// transactorRandom is a SignerGenerator that creates a transactor from a random keypair.
type transactorRandom struct {
	privKey *ecdsa.PrivateKey
}

func (g *transactorRandom) key() (*ecdsa.PrivateKey, error) {
	if g.privKey == nil {
		privKey, err := crypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate random private key: %w", err)
		}
		g.privKey = privKey
	}

	return g.privKey, nil
}

// Generate generates a random key and returns the bind transactor options.
func (g *transactorRandom) Generate(chainID *big.Int) (*bind.TransactOpts, error) {
	key, err := g.key()
	if err != nil {
		return nil, err
	}

	return bind.NewKeyedTransactorWithChainID(key, chainID)
}

// SignHash signs a hash using the same random private key generated in Generate().
func (g *transactorRandom) SignHash(hash []byte) ([]byte, error) {
	key, err := g.key()
	if err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign hash: %w", err)
	}

	return sig, nil
}
