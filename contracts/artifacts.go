package contracts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/stableyield/deployments/engine/config/compiler"
	"github.com/stableyield/deployments/pkg/logger"
)

// DefaultArtifactsDir is the directory Hardhat writes compiled artifacts to.
const DefaultArtifactsDir = "artifacts"

// buildInfoDir holds the compiler inputs and outputs, which are never contract artifacts.
const buildInfoDir = "build-info"

// Artifact is the subset of a Hardhat contract artifact ("hh-sol-artifact-1") the tooling reads.
type Artifact struct {
	ContractName string          `json:"contractName"`
	SourceName   string          `json:"sourceName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`
}

// debugFile is the "<Name>.dbg.json" file Hardhat writes next to each artifact.
type debugFile struct {
	BuildInfo string `json:"buildInfo"`
}

// buildInfo is the subset of a Hardhat build-info file the tooling reads.
type buildInfo struct {
	SolcVersion     string `json:"solcVersion"`
	SolcLongVersion string `json:"solcLongVersion"`
}

// Factory is a deployable contract: its interface and creation bytecode.
type Factory struct {
	Kind     Kind
	ABI      abi.ABI
	Bytecode []byte
	// SolcVersion is the compiler that produced the bytecode, empty when the artifact has no
	// build-info.
	SolcVersion string
	// Optimizer holds the configured optimizer settings of SolcVersion, nil when the artifact has
	// no build-info.
	Optimizer *compiler.Optimizer
	// Path is the artifact file the factory was loaded from.
	Path string
}

// ArtifactStore loads contract factories from a Hardhat artifacts directory.
type ArtifactStore struct {
	root      string
	compilers compiler.Config
	lggr      logger.Logger
}

// StoreOption configures an ArtifactStore.
type StoreOption func(*ArtifactStore)

// WithCompilers sets the compilers artifacts must have been built with. Defaults to
// compiler.Default(). The configuration is validated by Factory.
func WithCompilers(cfg compiler.Config) StoreOption {
	return func(s *ArtifactStore) { s.compilers = cfg }
}

// WithLogger sets the logger of the store. Defaults to a no-op logger.
func WithLogger(lggr logger.Logger) StoreOption {
	return func(s *ArtifactStore) { s.lggr = lggr }
}

// NewArtifactStore returns a store reading artifacts below root.
func NewArtifactStore(root string, opts ...StoreOption) *ArtifactStore {
	s := &ArtifactStore{
		root:      root,
		compilers: compiler.Default(),
		lggr:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Root returns the artifacts directory.
func (s *ArtifactStore) Root() string {
	return s.root
}

// Factory loads the deployable factory of kind k.
//
// The artifact is looked up by contract name as "<Source>.sol/<Name>.json" anywhere below the
// root, which matches Hardhat's "contracts/**/<Source>.sol/<Name>.json" layout whatever the
// source file is called. A missing artifact, or one without bytecode, fails with
// ErrFactoryNotFound.
func (s *ArtifactStore) Factory(k Kind) (Factory, error) {
	name := k.ArtifactName()
	if name == "" {
		return Factory{}, fmt.Errorf("%w: %s", ErrFactoryNotFound, k)
	}

	if err := s.compilers.Validate(); err != nil {
		return Factory{}, fmt.Errorf("invalid compiler configuration: %w", err)
	}

	path, err := s.find(name)
	if err != nil {
		return Factory{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Factory{}, fmt.Errorf("failed to read artifact %s: %w", path, err)
	}

	var art Artifact
	if err = json.Unmarshal(data, &art); err != nil {
		return Factory{}, fmt.Errorf("failed to unmarshal artifact %s: %w", path, err)
	}

	if art.ContractName != "" && art.ContractName != name {
		return Factory{}, fmt.Errorf("artifact %s holds contract %q, expected %q", path, art.ContractName, name)
	}

	bytecode, err := decodeBytecode(art.Bytecode)
	if err != nil {
		return Factory{}, fmt.Errorf("artifact %s: %w", path, err)
	}
	if len(bytecode) == 0 {
		return Factory{}, fmt.Errorf("%w: %s has no bytecode (abstract contract or interface)", ErrFactoryNotFound, name)
	}

	parsed, err := s.abiFor(k, art)
	if err != nil {
		return Factory{}, fmt.Errorf("artifact %s: %w", path, err)
	}

	solc, comp, err := s.checkCompiler(path)
	if err != nil {
		return Factory{}, fmt.Errorf("artifact %s: %w", path, err)
	}

	f := Factory{
		Kind:        k,
		ABI:         parsed,
		Bytecode:    bytecode,
		SolcVersion: solc,
		Optimizer:   comp.Optimizer,
		Path:        path,
	}

	fields := []any{"contract", name, "path", path, "solc", solc}
	if f.Optimizer != nil {
		fields = append(fields, "optimizer", f.Optimizer.Enabled, "runs", f.Optimizer.Runs)
	}
	s.lggr.Debugw("Loaded contract artifact", fields...)

	return f, nil
}

// find returns the single artifact file of the named contract, found in any "*.sol" directory.
func (s *ArtifactStore) find(name string) (string, error) {
	want := name + ".json"

	var matches []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == buildInfoDir {
				return filepath.SkipDir
			}

			return nil
		}
		if d.Name() == want && strings.HasSuffix(filepath.Base(filepath.Dir(path)), ".sol") {
			matches = append(matches, path)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s (artifacts directory %s does not exist, compile the contracts first)",
				ErrFactoryNotFound, name, s.root,
			)
		}

		return "", fmt.Errorf("failed to search artifacts in %s: %w", s.root, err)
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s (no artifact in %s)", ErrFactoryNotFound, name, s.root)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("ambiguous artifact for %s: %s", name, strings.Join(matches, ", "))
	}
}

// abiFor prefers the artifact's interface and falls back to the embedded one.
func (s *ArtifactStore) abiFor(k Kind, art Artifact) (abi.ABI, error) {
	if len(bytes.TrimSpace(art.ABI)) == 0 || string(bytes.TrimSpace(art.ABI)) == "null" {
		return k.ABI()
	}

	parsed, err := abi.JSON(bytes.NewReader(art.ABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse ABI: %w", err)
	}

	return parsed, nil
}

// checkCompiler follows the debug file of the artifact to its build-info and looks the solc
// version up in the configured compilers. Artifacts without build-info are accepted and return
// an empty version.
func (s *ArtifactStore) checkCompiler(artifactPath string) (string, compiler.Compiler, error) {
	dbgPath := strings.TrimSuffix(artifactPath, ".json") + ".dbg.json"

	data, err := os.ReadFile(dbgPath)
	if errors.Is(err, fs.ErrNotExist) {
		s.lggr.Debugw("Artifact has no debug file, skipping compiler check", "path", artifactPath)

		return "", compiler.Compiler{}, nil
	}
	if err != nil {
		return "", compiler.Compiler{}, fmt.Errorf("failed to read debug file: %w", err)
	}

	var dbg debugFile
	if err = json.Unmarshal(data, &dbg); err != nil {
		return "", compiler.Compiler{}, fmt.Errorf("failed to unmarshal debug file: %w", err)
	}
	if dbg.BuildInfo == "" {
		return "", compiler.Compiler{}, nil
	}

	biPath := filepath.Join(filepath.Dir(dbgPath), filepath.FromSlash(dbg.BuildInfo))
	data, err = os.ReadFile(biPath)
	if errors.Is(err, fs.ErrNotExist) {
		s.lggr.Warnw("Build info referenced by artifact is missing, skipping compiler check",
			"path", artifactPath, "buildInfo", biPath,
		)

		return "", compiler.Compiler{}, nil
	}
	if err != nil {
		return "", compiler.Compiler{}, fmt.Errorf("failed to read build info: %w", err)
	}

	var bi buildInfo
	if err = json.Unmarshal(data, &bi); err != nil {
		return "", compiler.Compiler{}, fmt.Errorf("failed to unmarshal build info: %w", err)
	}

	comp, err := s.compilers.Lookup(bi.SolcVersion)
	if err != nil {
		return "", compiler.Compiler{}, err
	}

	return bi.SolcVersion, comp, nil
}

func decodeBytecode(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0x" {
		return nil, nil
	}
	if strings.Contains(s, "__") {
		return nil, errors.New("bytecode has unlinked library references")
	}
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}

	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid bytecode: %w", err)
	}

	return b, nil
}
