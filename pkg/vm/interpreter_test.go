package vm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hackvm.dev/n2t/pkg/osshim"
	"hackvm.dev/n2t/pkg/vm"
	"hackvm.dev/n2t/pkg/word"
)

func link(t *testing.T, modules ...vm.Module) vm.Program {
	t.Helper()
	program, err := vm.NewLinker(modules).Link()
	require.NoError(t, err)
	return program
}

// Scenario: pushing two constants and adding them leaves their sum on the stack,
// with SP back down to one past the result.
func TestInterpreterPushAdd(t *testing.T) {
	m := vm.Module{Name: "Main", Operations: []vm.Operation{
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 1337},
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 2337},
		vm.ArithmeticOp{Operation: vm.Add},
	}}
	program := link(t, m)
	it := vm.NewInterpreter(program, nil)

	require.NoError(t, it.Run(3))

	sp := it.RAM[word.SP]
	assert.Equal(t, word.Word(257), sp)
	assert.Equal(t, word.Word(3674), it.RAM[sp-1])
}

// Scenario: Sys.init calls Sys.foo with one argument; Sys.foo ignores it and returns a
// constant. After the call unwinds, the caller's saved segment pointers are restored
// and the return value sits where the argument used to be.
func TestInterpreterCallAndReturn(t *testing.T) {
	sys := vm.Module{Name: "Sys", Operations: []vm.Operation{
		vm.FuncDecl{Name: "init", NLocal: 0},
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 1337},
		vm.FuncCallOp{Name: "Sys.foo", NArgs: 1},
		vm.LabelDeclaration{Name: "nop"},
		vm.GotoOp{Jump: vm.Unconditional, Label: "nop"},
		vm.FuncDecl{Name: "foo", NLocal: 1},
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 2337},
		vm.ReturnOp{},
	}}
	program := link(t, sys)
	it := vm.NewInterpreter(program, nil)

	// init's FuncDecl (0 locals), push 1337, call, foo's FuncDecl (1 local), push 2337, return.
	require.NoError(t, it.Run(6))

	sp := it.RAM[word.SP]
	assert.Equal(t, word.Word(2337), it.RAM[sp-1], "return value should sit at the old argument slot")
	assert.Equal(t, word.InitialSP+1, sp, "SP should be back to just past the consumed argument")
}

// Scenario: two files each write offset 0 of their own static segment; the values must
// land in disjoint RAM cells. Execution only legitimately crosses from one file's code
// into another's via Call, so A calls into B to exercise B's static write.
func TestInterpreterStaticSegmentIsolation(t *testing.T) {
	a := vm.Module{Name: "A", Operations: []vm.Operation{
		vm.FuncDecl{Name: "main", NLocal: 0},
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 111},
		vm.MemoryOp{Operation: vm.Pop, Segment: vm.Static, Offset: 0},
		vm.FuncCallOp{Name: "B.run", NArgs: 0},
	}}
	b := vm.Module{Name: "B", Operations: []vm.Operation{
		vm.FuncDecl{Name: "run", NLocal: 0},
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 222},
		vm.MemoryOp{Operation: vm.Pop, Segment: vm.Static, Offset: 0},
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 0},
		vm.ReturnOp{},
	}}
	program := link(t, a, b)
	it := vm.NewInterpreter(program, nil)

	require.NoError(t, it.Run(7))

	fa, _ := program.FileByName("A")
	fb, _ := program.FileByName("B")
	assert.Equal(t, word.Word(111), it.RAM[word.Word(fa.StaticBase)])
	assert.Equal(t, word.Word(222), it.RAM[word.Word(fb.StaticBase)])
	assert.NotEqual(t, fa.StaticBase, fb.StaticBase)
}

func TestInterpreterComparisonOpsProduceBooleanWords(t *testing.T) {
	m := vm.Module{Name: "Main", Operations: []vm.Operation{
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 5},
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 3},
		vm.ArithmeticOp{Operation: vm.Gt},
	}}
	program := link(t, m)
	it := vm.NewInterpreter(program, nil)
	require.NoError(t, it.Run(3))
	sp := it.RAM[word.SP]
	assert.Equal(t, word.Word(-1), it.RAM[sp-1])
}

func TestInterpreterLocalSegmentRoundTrip(t *testing.T) {
	m := vm.Module{Name: "Main", Operations: []vm.Operation{
		vm.FuncDecl{Name: "main", NLocal: 2},
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 9},
		vm.MemoryOp{Operation: vm.Pop, Segment: vm.Local, Offset: 1},
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Local, Offset: 1},
	}}
	program := link(t, m)
	it := vm.NewInterpreter(program, nil)
	// No call set up a frame for the entry function, so point LCL at the stack base
	// the way a call would; with LCL left at 0 the local segment aliases the registers.
	it.RAM[word.LCL] = word.InitialSP
	require.NoError(t, it.Run(4))
	sp := it.RAM[word.SP]
	assert.Equal(t, word.Word(9), it.RAM[sp-1])
}

// A Dispatch-handling shim satisfies a call without the normal frame machinery: the
// interpreter should consume the arguments and push exactly the shim's result.
type stubShim struct{ result word.Word }

func (s stubShim) Dispatch(ram *word.RAM, name string, argBase word.Word, nArgs int) (word.Word, bool, error) {
	if name != "Math.answer" {
		return 0, false, nil
	}
	return s.result, true, nil
}

func TestInterpreterOSShimDispatch(t *testing.T) {
	m := vm.Module{Name: "Main", Operations: []vm.Operation{
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 1},
		vm.FuncCallOp{Name: "Math.answer", NArgs: 1},
	}}
	program := link(t, m)
	it := vm.NewInterpreter(program, stubShim{result: 42})
	require.NoError(t, it.Run(2))

	sp := it.RAM[word.SP]
	assert.Equal(t, word.Word(42), it.RAM[sp-1])
	assert.Equal(t, word.InitialSP+1, sp)
}

func TestInterpreterCallToUndefinedFunctionErrors(t *testing.T) {
	m := vm.Module{Name: "Main", Operations: []vm.Operation{
		vm.FuncCallOp{Name: "Nowhere.foo", NArgs: 0},
	}}
	program := link(t, m)
	it := vm.NewInterpreter(program, nil)
	err := it.Run(1)
	require.Error(t, err)
	var fault *vm.Fault
	assert.ErrorAs(t, err, &fault)
}

// Scenario: a program that calls Memory.alloc through the real OS shim gets back a
// heap address; the call is consumed by the shim rather than treated as an unresolved
// call to a linked function.
func TestInterpreterCallsRealOSShim(t *testing.T) {
	m := vm.Module{Name: "Main", Operations: []vm.Operation{
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 4},
		vm.FuncCallOp{Name: "Memory.alloc", NArgs: 1},
	}}
	program := link(t, m)
	it := vm.NewInterpreter(program, osshim.New())

	require.NoError(t, it.Run(2))
	sp := it.RAM[word.SP]
	assert.Greater(t, int(it.RAM[sp-1]), 0, "Memory.alloc should return a positive heap address")
}

func TestInterpreterReset(t *testing.T) {
	m := vm.Module{Name: "Main", Operations: []vm.Operation{
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 1},
	}}
	program := link(t, m)
	it := vm.NewInterpreter(program, nil)
	require.NoError(t, it.Run(1))
	it.Reset()
	assert.Equal(t, word.InitialSP, it.RAM[word.SP])
	assert.Equal(t, 0, it.CommandIndex)
}
