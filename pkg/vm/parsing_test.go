package vm_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hackvm.dev/n2t/pkg/vm"
)

func parse(t *testing.T, src string) vm.Module {
	t.Helper()
	p := vm.NewParser(strings.NewReader(src), "Main")
	m, err := p.Parse()
	require.NoError(t, err)
	return m
}

func TestParserMemoryAndArithmetic(t *testing.T) {
	m := parse(t, `
		// push two constants and add them
		push constant 7
		push constant 8
		add
	`)
	require.Len(t, m.Operations, 3)
	assert.Equal(t, vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 7}, m.Operations[0])
	assert.Equal(t, vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 8}, m.Operations[1])
	assert.Equal(t, vm.ArithmeticOp{Operation: vm.Add}, m.Operations[2])
}

func TestParserControlFlow(t *testing.T) {
	m := parse(t, `
		label loop
		push constant 0
		if-goto loop
		goto done
		label done
	`)
	require.Len(t, m.Operations, 5)
	assert.Equal(t, vm.LabelDeclaration{Name: "loop"}, m.Operations[0])
	assert.Equal(t, vm.GotoOp{Jump: vm.Conditional, Label: "loop"}, m.Operations[2])
	assert.Equal(t, vm.GotoOp{Jump: vm.Unconditional, Label: "done"}, m.Operations[3])
}

func TestParserFunctionsAndCalls(t *testing.T) {
	m := parse(t, `
		function Main.main 2
		call Math.multiply 2
		return
	`)
	require.Len(t, m.Operations, 3)
	assert.Equal(t, vm.FuncDecl{Name: "main", NLocal: 2}, m.Operations[0])
	assert.Equal(t, vm.FuncCallOp{Name: "Math.multiply", NArgs: 2}, m.Operations[1])
	assert.Equal(t, vm.ReturnOp{}, m.Operations[2])
}

func TestParserRejectsPopConstant(t *testing.T) {
	p := vm.NewParser(strings.NewReader("pop constant 0"), "Main")
	_, err := p.Parse()
	assert.Error(t, err)
}

func TestParserRejectsUnrecognizedSegment(t *testing.T) {
	p := vm.NewParser(strings.NewReader("push bogus 0"), "Main")
	_, err := p.Parse()
	assert.Error(t, err)
}

func TestParserRejectsUnrecognizedCommand(t *testing.T) {
	p := vm.NewParser(strings.NewReader("frobnicate"), "Main")
	_, err := p.Parse()
	assert.Error(t, err)
}

func TestParserBlankLinesAndComments(t *testing.T) {
	m := parse(t, "\n\n  // just a comment\n\nadd   // trailing comment\n")
	require.Len(t, m.Operations, 1)
	assert.Equal(t, vm.ArithmeticOp{Operation: vm.Add}, m.Operations[0])
}
