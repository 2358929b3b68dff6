// Package hack2wasm ahead-of-time translates a Hack ROM image into a WebAssembly
// module that executes the same program natively in a Wasm sandbox, advancing a tick
// counter and returning control once a caller-supplied budget is exhausted.
package hack2wasm

import (
	"sort"

	"hackvm.dev/n2t/pkg/wasmenc"
	"hackvm.dev/n2t/pkg/word"
)

// Globals persist CPU state across separate Run invocations (the budgeted-run
// contract requires the engine to resume exactly where it left off).
const (
	globalA = iota
	globalD
	globalJumpTarget
	globalTicks
)

// Locals inside the emitted run function: a working copy of A/D/ticks (loaded from
// globals on entry, spilled back out whenever the budget is exhausted or the function
// returns), plus scratch space for ALU intermediates.
const (
	localBudget = iota // param 0: the caller's step budget
	localA
	localD
	localTicks
	localCase // selector fed into the labelled switch each loop iteration
	localTmp
)

// Translate converts a Hack ROM image (one uint16 per instruction word, as produced by
// hack.CodeGenerator) into an encoded Wasm module exporting "run" and "memory".
func Translate(rom []uint16) ([]byte, error) {
	targets, jumpTargets := scanJumps(rom)
	cases := buildCases(rom, targets)

	module := wasmenc.NewModule(ramPages)
	module.AddGlobal(wasmenc.Global{Type: wasmenc.I32, Mutable: true, Init: 0}) // A
	module.AddGlobal(wasmenc.Global{Type: wasmenc.I32, Mutable: true, Init: 0}) // D
	module.AddGlobal(wasmenc.Global{Type: wasmenc.I32, Mutable: true, Init: 0}) // jump_target
	module.AddGlobal(wasmenc.Global{Type: wasmenc.I32, Mutable: true, Init: 0}) // ticks

	typeIdx := module.AddType(wasmenc.FuncType{
		Params:  []wasmenc.ValType{wasmenc.I32},
		Results: []wasmenc.ValType{wasmenc.I32},
	})

	body, err := buildRunBody(rom, cases, targets, jumpTargets)
	if err != nil {
		return nil, err
	}
	fnIdx := module.AddFunction(wasmenc.Function{
		TypeIndex: typeIdx,
		Locals:    []wasmenc.ValType{wasmenc.I32, wasmenc.I32, wasmenc.I32, wasmenc.I32, wasmenc.I32},
		Body:      body,
	})

	module.ExportFunc["run"] = fnIdx
	module.ExportMemory = "memory"
	module.ExportGlobal["ticks"] = globalTicks

	return module.Encode(), nil
}

// ramPages is the number of 64KiB Wasm pages needed to back word.MemSize i32 slots
// (one Word per 4-byte slot, for uniform load/store width with the VM translator).
const ramPages = (word.MemSize*4 + 0xFFFF) / 0x10000

// targetSet scans the ROM for jump targets statically provable from a preceding
// A-instruction constant. It is a thin wrapper around scanJumps for callers (and
// tests) that only need the boundary set, not the per-instruction resolution.
func targetSet(rom []uint16) []int {
	targets, _ := scanJumps(rom)
	return targets
}

// scanJumps walks the ROM once, per the "latest-A hypothesis" algorithm: any
// C-instruction whose jump predicate is non-null adds the current hypothesis (if any)
// to the boundary set, and records that hypothesis as the instruction's own resolved
// jump target; any C-instruction that writes a computed value into A clears the
// hypothesis; any A-instruction sets a fresh hypothesis. 0 and len(rom) are always
// included in the boundary set. jumpTarget[pc] is -1 for instructions that carry no
// provable jump target (A-instructions, and jump-bearing C-instructions whose A was
// last set by a computed value rather than a constant).
func scanJumps(rom []uint16) (targets []int, jumpTarget []int) {
	set := map[int]bool{0: true, len(rom): true}
	jumpTarget = make([]int, len(rom))
	for i := range jumpTarget {
		jumpTarget[i] = -1
	}

	var hypothesis int
	haveHypothesis := false

	for pc, w := range rom {
		if w&0x8000 == 0 {
			hypothesis = int(w & 0x7fff)
			haveHypothesis = true
			continue
		}

		jump := w & 0x7
		if jump != 0 && haveHypothesis {
			set[hypothesis] = true
			jumpTarget[pc] = hypothesis
		}

		destA := w&(1<<5) != 0
		if destA {
			haveHypothesis = false
		}
	}

	targets = make([]int, 0, len(set))
	for t := range set {
		targets = append(targets, t)
	}
	sort.Ints(targets)
	return targets, jumpTarget
}

// caseRange is one basic block: ROM instructions [Start, End) translated in sequence.
type caseRange struct{ Start, End int }

func buildCases(rom []uint16, targets []int) []caseRange {
	cases := make([]caseRange, 0, len(targets)-1)
	for i := 0; i+1 < len(targets); i++ {
		cases = append(cases, caseRange{Start: targets[i], End: targets[i+1]})
	}
	if len(cases) == 0 {
		cases = append(cases, caseRange{Start: 0, End: len(rom)})
	}
	return cases
}

func caseIndexOf(targets []int, pc int) uint32 {
	idx := sort.SearchInts(targets, pc)
	if idx == len(targets) || targets[idx] != pc {
		idx--
	}
	if idx < 0 {
		idx = 0
	}
	return uint32(idx)
}

