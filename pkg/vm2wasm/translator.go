// Package vm2wasm ahead-of-time translates a linked VM program into a WebAssembly
// module. The stack machine is lowered onto the same flat RAM-as-linear-memory model
// the interpreter uses (one i32 slot per Word, SP/LCL/ARG/THIS/THAT at their
// conventional addresses), with control flow expressed as a labelled switch over one
// case per function entry, label, and call-return site.
package vm2wasm

import (
	"fmt"
	"sort"

	"hackvm.dev/n2t/pkg/vm"
	"hackvm.dev/n2t/pkg/wasmenc"
	"hackvm.dev/n2t/pkg/word"
)

// Globals persist state across separate budgeted Run invocations.
const (
	globalTicks = iota
	globalCase
	globalColor     // Screen's current paint color: true draws black, false erases.
	globalFreeHead  // address of the first free heap block's header, 0 if none
	globalHeapReady // 0 until buildEnsureHeapInit has carved the initial free block
)

// Locals inside the emitted run function.
const (
	localBudget = iota // param 0
	localTicks
	localCase
	localA // scratch: address
	localV // scratch: value
	localB // scratch: second operand
	localSP
	localFrame
)

// Translate converts a linked Program into an encoded Wasm module exporting "run" and
// "memory". It fails if the program calls an OS routine this translator doesn't inline
// (String, or any Screen drawing primitive beyond setColor and drawPixel) — those would
// need a guest-resident rasterizer loop or text-buffer model this AOT path deliberately
// does not attempt; programs needing them should run under pkg/vm.Interpreter with
// pkg/osshim instead. Memory.alloc/deAlloc and Array.new/dispose are inlined against a
// guest-resident free-list allocator (see alloc.go) built the same way osshim.Allocator
// manages the interpreter's heap.
func Translate(prog vm.Program) ([]byte, error) {
	boundaries := caseBoundaries(prog)
	cases := buildCaseRanges(prog, boundaries)

	module := wasmenc.NewModule(ramPages)
	module.AddGlobal(wasmenc.Global{Type: wasmenc.I32, Mutable: true, Init: 0}) // ticks
	module.AddGlobal(wasmenc.Global{Type: wasmenc.I32, Mutable: true, Init: int32(caseIndexOf(boundaries, prog.EntryPoint()))})
	module.AddGlobal(wasmenc.Global{Type: wasmenc.I32, Mutable: true, Init: 1}) // color: black by default
	module.AddGlobal(wasmenc.Global{Type: wasmenc.I32, Mutable: true, Init: 0}) // freeHead
	module.AddGlobal(wasmenc.Global{Type: wasmenc.I32, Mutable: true, Init: 0}) // heapReady

	typeIdx := module.AddType(wasmenc.FuncType{
		Params:  []wasmenc.ValType{wasmenc.I32},
		Results: []wasmenc.ValType{wasmenc.I32},
	})

	voidType := module.AddType(wasmenc.FuncType{})
	unlinkType := module.AddType(wasmenc.FuncType{Params: []wasmenc.ValType{wasmenc.I32}})
	allocType := module.AddType(wasmenc.FuncType{
		Params:  []wasmenc.ValType{wasmenc.I32},
		Results: []wasmenc.ValType{wasmenc.I32},
	})

	ensureInitIdx := module.AddFunction(wasmenc.Function{TypeIndex: voidType, Body: buildEnsureHeapInit()})
	unlinkIdx := module.AddFunction(wasmenc.Function{
		TypeIndex: unlinkType,
		Locals:    i32Locals(unlinkLocScratch),
		Body:      buildUnlinkFreeBlock(),
	})
	allocIdx := module.AddFunction(wasmenc.Function{
		TypeIndex: allocType,
		Locals:    i32Locals(allocLocNewFree),
		Body:      buildMemAlloc(ensureInitIdx),
	})
	deallocIdx := module.AddFunction(wasmenc.Function{
		TypeIndex: allocType,
		Locals:    i32Locals(deallocLocScratch),
		Body:      buildMemDealloc(ensureInitIdx, unlinkIdx),
	})

	tr := &translator{prog: prog, boundaries: boundaries, allocFnIdx: allocIdx, deallocFnIdx: deallocIdx}
	body, err := tr.buildRunBody(cases)
	if err != nil {
		return nil, err
	}

	fnIdx := module.AddFunction(wasmenc.Function{
		TypeIndex: typeIdx,
		Locals:    []wasmenc.ValType{wasmenc.I32, wasmenc.I32, wasmenc.I32, wasmenc.I32, wasmenc.I32, wasmenc.I32, wasmenc.I32},
		Body:      body,
	})

	module.ExportFunc["run"] = fnIdx
	module.ExportMemory = "memory"
	module.ExportGlobal["ticks"] = globalTicks

	return module.Encode(), nil
}

const ramPages = (word.MemSize*4 + 0xFFFF) / 0x10000

type translator struct {
	prog       vm.Program
	boundaries []int

	allocFnIdx   uint32 // Memory.alloc / Array.new
	deallocFnIdx uint32 // Memory.deAlloc / Array.dispose
}

// caseBoundaries returns the sorted, de-duplicated set of command indices where a new
// case must start: 0, every FuncDecl and LabelDeclaration, and the index right after
// every FuncCallOp that isn't one of the inlined OS routines (a real call suspends the
// current case and resumes a fresh one when the callee returns).
func caseBoundaries(prog vm.Program) []int {
	set := map[int]bool{0: true, len(prog.Commands): true}
	for i, op := range prog.Commands {
		switch o := op.(type) {
		case vm.FuncDecl:
			set[i] = true
		case vm.LabelDeclaration:
			set[i] = true
		case vm.FuncCallOp:
			if !isInlined(o.Name) {
				set[i+1] = true
			}
		}
	}
	out := make([]int, 0, len(set))
	for idx := range set {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

type caseRange struct{ Start, End int }

func buildCaseRanges(prog vm.Program, boundaries []int) []caseRange {
	cases := make([]caseRange, 0, len(boundaries)-1)
	for i := 0; i+1 < len(boundaries); i++ {
		cases = append(cases, caseRange{Start: boundaries[i], End: boundaries[i+1]})
	}
	if len(cases) == 0 {
		cases = append(cases, caseRange{Start: 0, End: len(prog.Commands)})
	}
	return cases
}

func caseIndexOf(boundaries []int, commandIndex int) uint32 {
	idx := sort.SearchInts(boundaries, commandIndex)
	if idx == len(boundaries) || boundaries[idx] != commandIndex {
		idx--
	}
	if idx < 0 {
		idx = 0
	}
	return uint32(idx)
}

func loopContinueDepth(numCases, index uint32) uint32 {
	return numCases - 1 - index
}

func (tr *translator) buildRunBody(cases []caseRange) ([]byte, error) {
	numCases := uint32(len(cases))

	caseBodies := make([][]byte, len(cases))
	for i, c := range cases {
		body, err := tr.lowerCase(c, numCases, uint32(i))
		if err != nil {
			return nil, err
		}
		caseBodies[i] = body
	}
	dispatch := wasmenc.LabelledSwitch(localCase, caseBodies)

	body := wasmenc.NewInstr()
	body.GlobalGet(globalTicks).LocalSet(localTicks)
	body.GlobalGet(globalCase).LocalSet(localCase)

	outer := wasmenc.NewInstr().Block(wasmenc.EmptyBlockType)
	loop := wasmenc.NewInstr().Loop(wasmenc.EmptyBlockType)
	loop.LocalGet(localTicks).LocalGet(localBudget).I32LtS().I32Eqz().BrIf(1)
	loop.buf = append(loop.buf, dispatch...)
	loop.End()
	outer.buf = append(outer.buf, loop.Bytes()...)
	outer.End()
	body.buf = append(body.buf, outer.Bytes()...)

	body.LocalGet(localTicks).GlobalSet(globalTicks)
	body.LocalGet(localCase).GlobalSet(globalCase)
	body.LocalGet(localTicks).Return()

	return body.Bytes(), nil
}

func (tr *translator) lowerCase(c caseRange, numCases, index uint32) ([]byte, error) {
	b := wasmenc.NewInstr()
	continueDepth := loopContinueDepth(numCases, index)

	for i := c.Start; i < c.End; i++ {
		stop, err := tr.lowerOp(b, i, continueDepth)
		if err != nil {
			return nil, err
		}
		b.LocalGet(localTicks).I32Const(1).I32Add().LocalSet(localTicks)
		if stop {
			return b.Bytes(), nil
		}
	}

	if c.End < len(tr.prog.Commands) {
		next := caseIndexOf(tr.boundaries, c.End)
		b.I32Const(int32(next)).LocalSet(localCase)
		b.Br(continueDepth)
	}
	return b.Bytes(), nil
}

// lowerOp lowers one command. stop reports that the command unconditionally transfers
// control (an unconditional Goto or a Return), so any remaining commands in this case
// (dead code a well-formed program never reaches) must not be emitted.
func (tr *translator) lowerOp(b *wasmenc.Instr, index int, continueDepth uint32) (stop bool, err error) {
	switch op := tr.prog.Commands[index].(type) {
	case vm.MemoryOp:
		return false, tr.lowerMemoryOp(b, index, op)

	case vm.ArithmeticOp:
		lowerArithmeticOp(b, op)
		return false, nil

	case vm.LabelDeclaration:
		return false, nil

	case vm.FuncDecl:
		for i := uint8(0); i < op.NLocal; i++ {
			b.I32Const(0).LocalSet(localV)
			emitPushFromLocal(b, localV)
		}
		return false, nil

	case vm.GotoOp:
		target, err := tr.resolveLabel(index, op.Label)
		if err != nil {
			return false, err
		}
		targetCase := caseIndexOf(tr.boundaries, target)

		if op.Jump == vm.Unconditional {
			b.I32Const(int32(targetCase)).LocalSet(localCase)
			b.Br(continueDepth)
			return true, nil
		}

		emitPopToLocal(b, localV)
		b.LocalGet(localV).I32Eqz().I32Eqz() // true iff popped value != 0
		b.If(wasmenc.EmptyBlockType)
		b.I32Const(int32(targetCase)).LocalSet(localCase)
		b.Br(continueDepth + 1)
		b.End()
		return false, nil

	case vm.FuncCallOp:
		return tr.lowerCall(b, index, op, continueDepth)

	case vm.ReturnOp:
		lowerReturn(b, continueDepth)
		return true, nil

	default:
		return false, fmt.Errorf("vm2wasm: unrecognized operation %T at command %d", op, index)
	}
}

func (tr *translator) resolveLabel(fromIndex int, label string) (int, error) {
	file, ok := tr.prog.FileAt(fromIndex)
	if !ok {
		return 0, fmt.Errorf("command %d not found in any linked file", fromIndex)
	}
	function, ok := tr.enclosingFunction(file, fromIndex)
	if !ok {
		return 0, fmt.Errorf("command %d is not inside any function", fromIndex)
	}
	labels, ok := file.LabelIndex[function]
	if !ok {
		return 0, fmt.Errorf("function '%s.%s' declares no labels", file.Name, function)
	}
	idx, ok := labels[label]
	if !ok {
		return 0, fmt.Errorf("label '%s' not found in '%s.%s'", label, file.Name, function)
	}
	return idx, nil
}

// enclosingFunction walks backward from fromIndex to the nearest preceding FuncDecl in
// the same file (labels are scoped to their enclosing function, never just their file).
func (tr *translator) enclosingFunction(file vm.File, fromIndex int) (string, bool) {
	for i := fromIndex; i >= file.Start; i-- {
		if decl, ok := tr.prog.Commands[i].(vm.FuncDecl); ok {
			return decl.Name, true
		}
	}
	return "", false
}
