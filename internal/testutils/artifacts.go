package testutils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"
)

// DefaultSolcVersion is the compiler version written to build-info files by default.
const DefaultSolcVersion = "0.6.10"

// ArtifactFixture describes a Hardhat artifact to write.
type ArtifactFixture struct {
	// Name is the contract name.
	Name string
	// Source is the source file name without the ".sol" extension. Defaults to Name.
	Source string
	// ABI is the raw JSON interface.
	ABI []byte
	// Bytecode is the creation code. Empty bytecode mimics an interface.
	Bytecode []byte
	// SolcVersion is written to the build-info file. Defaults to DefaultSolcVersion.
	SolcVersion string
	// SkipDebug omits the .dbg.json file and the build-info.
	SkipDebug bool
}

// WriteArtifact writes a Hardhat style artifact below root:
//
//	contracts/<Source>.sol/<Name>.json
//	contracts/<Source>.sol/<Name>.dbg.json
//	build-info/<Name>.json
//
// and returns the path of the artifact file.
func WriteArtifact(t *testing.T, root string, f ArtifactFixture) string {
	t.Helper()

	source := f.Source
	if source == "" {
		source = f.Name
	}

	dir := filepath.Join(root, "contracts", source+".sol")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	abiJSON := json.RawMessage(f.ABI)
	if len(abiJSON) == 0 {
		abiJSON = json.RawMessage("[]")
	}

	artifact := map[string]any{
		"_format":          "hh-sol-artifact-1",
		"contractName":     f.Name,
		"sourceName":       "contracts/" + source + ".sol",
		"abi":              abiJSON,
		"bytecode":         hexutil.Encode(f.Bytecode),
		"deployedBytecode": "0x",
		"linkReferences":   map[string]any{},
	}

	path := filepath.Join(dir, f.Name+".json")
	writeJSON(t, path, artifact)

	if f.SkipDebug {
		return path
	}

	solc := f.SolcVersion
	if solc == "" {
		solc = DefaultSolcVersion
	}

	writeJSON(t, filepath.Join(dir, f.Name+".dbg.json"), map[string]any{
		"_format":   "hh-sol-dbg-1",
		"buildInfo": "../../build-info/" + f.Name + ".json",
	})

	biDir := filepath.Join(root, "build-info")
	require.NoError(t, os.MkdirAll(biDir, 0o755))
	writeJSON(t, filepath.Join(biDir, f.Name+".json"), map[string]any{
		"_format":         "hh-sol-build-info-1",
		"solcVersion":     solc,
		"solcLongVersion": solc + "+commit.00c0fcaf",
	})

	return path
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()

	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}
