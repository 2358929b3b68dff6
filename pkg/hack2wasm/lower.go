package hack2wasm

import (
	"fmt"

	"hackvm.dev/n2t/pkg/wasmenc"
)

// buildRunBody assembles the exported "run" function: load persisted state out of the
// globals, loop over a labelled switch across basic-block cases (each case checking
// the tick budget before it runs), and spill state back to the globals at every exit
// (budget exhausted, or the program fell off the last case).
func buildRunBody(rom []uint16, cases []caseRange, targets []int, jumpTargets []int) ([]byte, error) {
	numCases := uint32(len(cases))

	caseBodies := make([][]byte, len(cases))
	for i, c := range cases {
		body, err := lowerCase(rom, c, targets, jumpTargets, numCases, uint32(i))
		if err != nil {
			return nil, err
		}
		caseBodies[i] = body
	}
	dispatch := wasmenc.LabelledSwitch(localCase, caseBodies)

	body := wasmenc.NewInstr()
	body.GlobalGet(uint32(globalA)).LocalSet(localA)
	body.GlobalGet(uint32(globalD)).LocalSet(localD)
	body.GlobalGet(uint32(globalTicks)).LocalSet(localTicks)
	body.GlobalGet(uint32(globalJumpTarget)).LocalSet(localCase)

	outer := wasmenc.NewInstr().Block(wasmenc.EmptyBlockType)
	loop := wasmenc.NewInstr().Loop(wasmenc.EmptyBlockType)

	// Budget check: ticks >= budget breaks out of the loop (depth 1 from here: 0 is
	// the loop itself, 1 is the enclosing "outer" block).
	loop.LocalGet(localTicks).LocalGet(localBudget).I32LtS().I32Eqz().BrIf(1)
	loop.buf = append(loop.buf, dispatch...)
	loop.End()

	outer.buf = append(outer.buf, loop.Bytes()...)
	outer.End()

	body.buf = append(body.buf, outer.Bytes()...)

	body.LocalGet(localA).GlobalSet(uint32(globalA))
	body.LocalGet(localD).GlobalSet(uint32(globalD))
	body.LocalGet(localTicks).GlobalSet(uint32(globalTicks))
	body.LocalGet(localCase).GlobalSet(uint32(globalJumpTarget))
	body.LocalGet(localTicks).Return()

	return body.Bytes(), nil
}

// loopContinueDepth is the branch depth that reaches the loop (continuing it) from
// inside case index's body: one level per still-open case-wrapper block between this
// case and the loop head, i.e. (numCases-1-index).
func loopContinueDepth(numCases, index uint32) uint32 {
	return numCases - 1 - index
}

// lowerCase translates one basic block of Hack instructions to Wasm: each instruction
// in sequence, where a taken jump branches back to the loop head with localCase already
// pointing at the resolved target case. A block that doesn't jump away ends by setting
// localCase to the sequential next case and branching back to the loop head as well;
// only the last block runs off its body, which ends the loop.
func lowerCase(rom []uint16, c caseRange, targets []int, jumpTargets []int, numCases, index uint32) ([]byte, error) {
	b := wasmenc.NewInstr()
	continueDepth := loopContinueDepth(numCases, index)

	for pc := c.Start; pc < c.End; pc++ {
		w := rom[pc]
		if w&0x8000 == 0 {
			lowerAInstruction(b, w)
		} else {
			jump := w & 0x7
			var targetCase uint32
			if jump != 0 {
				target := jumpTargets[pc]
				if target < 0 {
					return nil, fmt.Errorf("hack2wasm: instruction %d jumps to an address not provable from a preceding constant A-instruction", pc)
				}
				targetCase = caseIndexOf(targets, target)
			}
			lowerCInstruction(b, w, targetCase, continueDepth)
		}
		b.LocalGet(localTicks).I32Const(1).I32Add().LocalSet(localTicks)
	}

	if c.End < len(rom) {
		next := caseIndexOf(targets, c.End)
		b.I32Const(int32(next)).LocalSet(localCase)
		b.Br(continueDepth)
	}
	return b.Bytes(), nil
}

func lowerAInstruction(b *wasmenc.Instr, w uint16) {
	b.I32Const(int32(w & 0x7fff)).LocalSet(localA)
}

// lowerCInstruction lowers one C-instruction. targetCase/continueDepth are only
// meaningful when the instruction carries a jump predicate; they are the case the
// jump target's A-load was proven to resolve to, and the branch depth that continues
// the enclosing loop from this case's body.
func lowerCInstruction(b *wasmenc.Instr, w uint16, targetCase, continueDepth uint32) {
	a := w&(1<<12) != 0
	zx := w&(1<<11) != 0
	nx := w&(1<<10) != 0
	zy := w&(1<<9) != 0
	ny := w&(1<<8) != 0
	useAdd := w&(1<<7) != 0
	negateOut := w&(1<<6) != 0

	destA := w&(1<<5) != 0
	destD := w&(1<<4) != 0
	destM := w&(1<<3) != 0
	jump := w & 0x7

	// x := D, conditionally zeroed/negated, stashed in localTmp.
	if zx {
		b.I32Const(0)
	} else {
		b.LocalGet(localD)
	}
	if nx {
		b.I32Const(-1).I32Xor()
	}
	b.LocalSet(localTmp)

	// y := A-or-M, conditionally zeroed/negated.
	if zy {
		b.I32Const(0)
	} else if a {
		b.LocalGet(localA).I32Const(4).I32Mul().I32Load()
	} else {
		b.LocalGet(localA)
	}
	if ny {
		b.I32Const(-1).I32Xor()
	}

	// result := x f y (f is AND unless the f-bit selects ADD), then optionally
	// negated and truncated back to a signed 16-bit Word.
	b.LocalGet(localTmp) // push x after y, so the binop sees (y, x) — AND/ADD are
	// commutative so operand order doesn't affect the result.
	if useAdd {
		b.I32Add()
	} else {
		b.I32And()
	}
	if negateOut {
		b.I32Const(-1).I32Xor()
	}
	b.Extend16S()
	b.LocalSet(localTmp)

	// Destinations read the same pre-jump result; M and the jump predicate both use
	// the A that was current before any dest=A write in this same instruction.
	if destM {
		b.LocalGet(localA).I32Const(4).I32Mul().LocalGet(localTmp).I32Store()
	}
	if destA {
		b.LocalGet(localTmp).LocalSet(localA)
	}
	if destD {
		b.LocalGet(localTmp).LocalSet(localD)
	}

	if jump != 0 {
		emitJumpPredicate(b, jump)
		b.If(wasmenc.EmptyBlockType)
		b.I32Const(int32(targetCase)).LocalSet(localCase)
		b.Br(continueDepth + 1) // +1: branching out of the If itself first
		b.End()
	}
}

func emitJumpPredicate(b *wasmenc.Instr, jump uint16) {
	switch jump {
	case 0b001: // JGT
		b.LocalGet(localTmp).I32Const(0).I32GtS()
	case 0b010: // JEQ
		b.LocalGet(localTmp).I32Const(0).I32Eq()
	case 0b011: // JGE
		b.LocalGet(localTmp).I32Const(0).I32LtS().I32Eqz()
	case 0b100: // JLT
		b.LocalGet(localTmp).I32Const(0).I32LtS()
	case 0b101: // JNE
		b.LocalGet(localTmp).I32Const(0).I32Eq().I32Eqz()
	case 0b110: // JLE
		b.LocalGet(localTmp).I32Const(0).I32GtS().I32Eqz()
	case 0b111: // JMP
		b.I32Const(1)
	}
}
