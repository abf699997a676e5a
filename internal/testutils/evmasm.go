// Package testutils provides helpers for tests: synthetic contract bytecode, Hardhat artifact
// fixtures and a fake JSON-RPC node.
package testutils

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

// EVM opcodes used by the assembler.
const (
	opEQ           = 0x14
	opSHR          = 0x1c
	opCALLDATALOAD = 0x35
	opCODECOPY     = 0x39
	opJUMPI        = 0x57
	opJUMPDEST     = 0x5b
	opPUSH1        = 0x60
	opPUSH2        = 0x61
	opPUSH4        = 0x63
	opDUP1         = 0x80
	opRETURN       = 0xf3
	opREVERT       = 0xfd
)

// Sizes of the fixed code sections, in bytes.
const (
	dispatchPrefixSize = 6
	dispatchCaseSize   = 11
	fallbackSize       = 4
	returnStubSize     = 16
	initCodeSize       = 13
)

// StringProperty is a view method without arguments returning a constant string, such as
// name() or symbol().
type StringProperty struct {
	Method string
	Value  string
}

// StringPropertiesRuntime assembles runtime bytecode answering each property's method with its
// ABI encoded value. Any other call reverts.
func StringPropertiesRuntime(props ...StringProperty) []byte {
	stringArgs := abi.Arguments{{Type: mustType("string")}}

	blobs := make([][]byte, len(props))
	for i, p := range props {
		enc, err := stringArgs.Pack(p.Value)
		if err != nil {
			panic(fmt.Sprintf("failed to encode %s(): %v", p.Method, err))
		}
		blobs[i] = enc
	}

	n := len(props)
	firstStub := dispatchPrefixSize + dispatchCaseSize*n + fallbackSize
	firstBlob := firstStub + returnStubSize*n

	code := make([]byte, 0, firstBlob+32*4*n)

	// selector := calldata[0:4]
	code = append(code, opPUSH1, 0x00, opCALLDATALOAD, opPUSH1, 0xe0, opSHR)

	for i, p := range props {
		sel := crypto.Keccak256([]byte(p.Method + "()"))[:4]
		code = append(code, opDUP1, opPUSH4)
		code = append(code, sel...)
		code = append(code, opEQ, opPUSH2)
		code = appendUint16(code, firstStub+returnStubSize*i)
		code = append(code, opJUMPI)
	}

	code = append(code, opPUSH1, 0x00, opDUP1, opREVERT)

	offset := firstBlob
	for _, blob := range blobs {
		code = append(code, opJUMPDEST, opPUSH2)
		code = appendUint16(code, len(blob))
		code = append(code, opPUSH2)
		code = appendUint16(code, offset)
		code = append(code, opPUSH1, 0x00, opCODECOPY, opPUSH2)
		code = appendUint16(code, len(blob))
		code = append(code, opPUSH1, 0x00, opRETURN)

		offset += len(blob)
	}

	for _, blob := range blobs {
		code = append(code, blob...)
	}

	return code
}

// InitCode wraps runtime bytecode in creation code that returns it. Constructor arguments
// appended to the creation code are ignored.
func InitCode(runtime []byte) []byte {
	code := make([]byte, 0, initCodeSize+len(runtime))
	code = append(code, opPUSH2)
	code = appendUint16(code, len(runtime))
	code = append(code, opDUP1, opPUSH2)
	code = appendUint16(code, initCodeSize)
	code = append(code, opPUSH1, 0x00, opCODECOPY, opPUSH1, 0x00, opRETURN)

	return append(code, runtime...)
}

// RevertingInitCode is creation code whose constructor always reverts.
func RevertingInitCode() []byte {
	return []byte{opPUSH1, 0x00, opDUP1, opREVERT}
}

// NameSymbolContract returns creation code of a contract answering name() and symbol().
func NameSymbolContract(name, symbol string) []byte {
	return InitCode(StringPropertiesRuntime(
		StringProperty{Method: "name", Value: name},
		StringProperty{Method: "symbol", Value: symbol},
	))
}

func appendUint16(b []byte, v int) []byte {
	if v < 0 || v > 0xffff {
		panic(fmt.Sprintf("value %d does not fit in PUSH2", v))
	}

	return binary.BigEndian.AppendUint16(b, uint16(v))
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}

	return typ
}
