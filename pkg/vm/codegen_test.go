package vm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hackvm.dev/n2t/pkg/vm"
)

func TestCodeGenRoundTrip(t *testing.T) {
	module := vm.Module{
		Name: "Main",
		Operations: []vm.Operation{
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 42},
			vm.MemoryOp{Operation: vm.Pop, Segment: vm.Local, Offset: 0},
			vm.ArithmeticOp{Operation: vm.Add},
			vm.LabelDeclaration{Name: "loop"},
			vm.GotoOp{Jump: vm.Conditional, Label: "loop"},
			vm.FuncDecl{Name: "main", NLocal: 1},
			vm.FuncCallOp{Name: "Math.multiply", NArgs: 2},
			vm.ReturnOp{},
		},
	}

	cg := vm.NewCodeGenerator(module)
	lines, err := cg.Generate()
	require.NoError(t, err)

	expected := []string{
		"push constant 42",
		"pop local 0",
		"add",
		"label loop",
		"if-goto loop",
		"function main 1",
		"call Math.multiply 2",
		"return",
	}
	assert.Equal(t, expected, lines)

	reparsed := parse(t, joinLines(lines))
	assert.Equal(t, module.Operations, reparsed.Operations)
}

func joinLines(lines []string) string {
	out := ""
	for _, l := range lines {
		out += l + "\n"
	}
	return out
}

func TestCodeGenRejectsInvalidPointerOffset(t *testing.T) {
	cg := vm.NewCodeGenerator(vm.Module{})
	_, err := cg.GenerateMemoryOp(vm.MemoryOp{Operation: vm.Push, Segment: vm.Pointer, Offset: 2})
	assert.Error(t, err)
}

func TestCodeGenRejectsInvalidTempOffset(t *testing.T) {
	cg := vm.NewCodeGenerator(vm.Module{})
	_, err := cg.GenerateMemoryOp(vm.MemoryOp{Operation: vm.Push, Segment: vm.Temp, Offset: 8})
	assert.Error(t, err)
}

func TestCodeGenRejectsPopConstant(t *testing.T) {
	cg := vm.NewCodeGenerator(vm.Module{})
	_, err := cg.GenerateMemoryOp(vm.MemoryOp{Operation: vm.Pop, Segment: vm.Constant, Offset: 0})
	assert.Error(t, err)
}

func TestCodeGenRejectsEmptyLabel(t *testing.T) {
	cg := vm.NewCodeGenerator(vm.Module{})
	_, err := cg.GenerateLabelDeclaration(vm.LabelDeclaration{Name: ""})
	assert.Error(t, err)
}

func TestCodeGenRejectsUnrecognizedJumpType(t *testing.T) {
	cg := vm.NewCodeGenerator(vm.Module{})
	_, err := cg.GenerateGotoOp(vm.GotoOp{Jump: "maybe-goto", Label: "x"})
	assert.Error(t, err)
}
