package wasmrun_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hackvm.dev/n2t/pkg/vm"
	"hackvm.dev/n2t/pkg/vm2wasm"
	"hackvm.dev/n2t/pkg/wasmrun"
)

func TestRunExecutesTranslatedVMProgram(t *testing.T) {
	linker := vm.NewLinker([]vm.Module{{Name: "Sys", Operations: []vm.Operation{
		vm.FuncDecl{Name: "init", NLocal: 0},
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 40},
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 2},
		vm.ArithmeticOp{Operation: vm.Add},
		vm.ReturnOp{},
	}}})
	prog, err := linker.Link()
	require.NoError(t, err)

	moduleBytes, err := vm2wasm.Translate(prog)
	require.NoError(t, err)

	ticks, mem, err := wasmrun.Run(context.Background(), moduleBytes, 100)
	require.NoError(t, err)
	assert.Greater(t, ticks, uint64(0))
	assert.NotEmpty(t, mem)
}

func TestWordAtRejectsOutOfRangeAddress(t *testing.T) {
	_, err := wasmrun.WordAt(make([]byte, 8), 10)
	assert.Error(t, err)
}

func TestWordAtDecodesLittleEndian(t *testing.T) {
	mem := make([]byte, 8)
	mem[4] = 0x2a // Word 1 = 42
	v, err := wasmrun.WordAt(mem, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 42, v)
}
