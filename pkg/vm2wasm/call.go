package vm2wasm

import (
	"fmt"

	"hackvm.dev/n2t/pkg/vm"
	"hackvm.dev/n2t/pkg/wasmenc"
	"hackvm.dev/n2t/pkg/word"
)

// isInlined reports whether name is one of the OS routines this translator lowers
// directly into Wasm rather than through the call/return case machinery. Routines
// needing a guest-resident rasterizer or text buffer (String, Screen.drawLine/
// drawRectangle/drawCircle, Screen.clearScreen) are intentionally left out: a program
// calling one of those fails to translate rather than silently misbehaving.
func isInlined(name string) bool {
	_, ok := inlineTable[name]
	return ok
}

// inlineTable maps a fully-qualified OS name to a lowering that reads its arguments
// out of the VM stack (already on top, argBase..argBase+nArgs-1) and leaves the call's
// result value in localV, ready to be pushed by lowerCall. Every entry takes the
// translator so Memory.alloc/deAlloc and Array.new/dispose can reach the guest-side
// allocator functions registered on it (see alloc.go); the rest ignore it.
var inlineTable = map[string]func(tr *translator, b *wasmenc.Instr, argBaseLocal uint32){
	"Math.multiply": func(tr *translator, b *wasmenc.Instr, argBase uint32) {
		loadArg(b, argBase, 0)
		loadArg(b, argBase, 1)
		b.I32Mul().Extend16S().LocalSet(localV)
	},
	"Math.divide": func(tr *translator, b *wasmenc.Instr, argBase uint32) {
		loadArg(b, argBase, 0)
		loadArg(b, argBase, 1)
		b.I32DivS().Extend16S().LocalSet(localV)
	},
	"Math.min": func(tr *translator, b *wasmenc.Instr, argBase uint32) {
		loadArg(b, argBase, 0)
		loadArg(b, argBase, 1)
		b.LocalSet(localB).LocalSet(localA)
		b.LocalGet(localA).LocalGet(localB).LocalGet(localA).LocalGet(localB).I32LtS()
		b.Select()
		b.LocalSet(localV)
	},
	"Math.max": func(tr *translator, b *wasmenc.Instr, argBase uint32) {
		loadArg(b, argBase, 0)
		loadArg(b, argBase, 1)
		b.LocalSet(localB).LocalSet(localA)
		b.LocalGet(localA).LocalGet(localB).LocalGet(localA).LocalGet(localB).I32GtS()
		b.Select()
		b.LocalSet(localV)
	},
	"Math.abs": func(tr *translator, b *wasmenc.Instr, argBase uint32) {
		loadArg(b, argBase, 0)
		b.LocalSet(localA)
		b.I32Const(0).LocalGet(localA).I32Sub().LocalGet(localA).LocalGet(localA).I32Const(0).I32LtS()
		b.Select()
		b.LocalSet(localV)
	},
	"Keyboard.keyPressed": func(tr *translator, b *wasmenc.Instr, argBase uint32) {
		loadRAMConst(b, int32(word.KBD))
		b.LocalSet(localV)
	},
	"Memory.peek": func(tr *translator, b *wasmenc.Instr, argBase uint32) {
		loadArg(b, argBase, 0)
		b.LocalSet(localA)
		loadRAMLocal(b, localA)
		b.LocalSet(localV)
	},
	"Memory.poke": func(tr *translator, b *wasmenc.Instr, argBase uint32) {
		loadArg(b, argBase, 1)
		b.LocalSet(localB)
		loadArg(b, argBase, 0) // last, since loadArg clobbers localA
		b.LocalSet(localA)
		storeRAMLocal(b, localA, localB)
		b.I32Const(0).LocalSet(localV)
	},
	"Memory.alloc": func(tr *translator, b *wasmenc.Instr, argBase uint32) {
		loadArg(b, argBase, 0)
		b.Call(tr.allocFnIdx).LocalSet(localV)
	},
	"Memory.deAlloc": func(tr *translator, b *wasmenc.Instr, argBase uint32) {
		loadArg(b, argBase, 0)
		b.Call(tr.deallocFnIdx).LocalSet(localV)
	},
	"Array.new": func(tr *translator, b *wasmenc.Instr, argBase uint32) {
		loadArg(b, argBase, 0)
		b.Call(tr.allocFnIdx).LocalSet(localV)
	},
	"Array.dispose": func(tr *translator, b *wasmenc.Instr, argBase uint32) {
		loadArg(b, argBase, 0)
		b.Call(tr.deallocFnIdx).LocalSet(localV)
	},
	"Screen.setColor": func(tr *translator, b *wasmenc.Instr, argBase uint32) {
		loadArg(b, argBase, 0)
		b.I32Eqz().I32Eqz() // nonzero arg means "black"
		b.GlobalSet(globalColor)
		b.I32Const(0).LocalSet(localV)
	},
	"Screen.drawPixel": func(tr *translator, b *wasmenc.Instr, argBase uint32) {
		// mask := 1 << (x % 16)
		b.I32Const(1)
		loadArg(b, argBase, 0)
		b.I32Const(16).I32RemS()
		b.I32Shl()
		b.LocalSet(localB)

		// word index = SCREEN + y*32 + x/16 ; set last, since loadArg clobbers localA.
		loadArg(b, argBase, 1) // y
		b.I32Const(32).I32Mul()
		loadArg(b, argBase, 0) // x
		b.I32Const(16).I32DivS()
		b.I32Add().I32Const(int32(word.SCREEN)).I32Add().LocalSet(localA)

		b.GlobalGet(globalColor)
		b.If(byte(wasmenc.I32)) // if/else producing the new word value, consumed right after End
		loadRAMLocal(b, localA)
		b.LocalGet(localB).I32Or()
		b.Else()
		loadRAMLocal(b, localA)
		b.LocalGet(localB).I32Const(-1).I32Xor().I32And()
		b.End()
		b.Extend16S()
		b.LocalSet(localV)
		storeRAMLocal(b, localA, localV)

		b.I32Const(0).LocalSet(localV)
	},
}

// unsupported names a fatal error instead of inlining: Screen.clearScreen needs a loop
// sweeping the whole bitmap, which the translator could emit but doesn't yet; treating
// it as inlined with a no-op body would silently drop every clear.
var unsupported = map[string]bool{
	"Screen.clearScreen": true,
}

// loadArg leaves argument i (0-based) of a call whose first argument's address is held
// in argBaseLocal on the value stack. Clobbers localA.
func loadArg(b *wasmenc.Instr, argBaseLocal uint32, i int32) {
	b.LocalGet(argBaseLocal).I32Const(i).I32Add().LocalSet(localA)
	loadRAMLocal(b, localA)
}

func (tr *translator) lowerCall(b *wasmenc.Instr, index int, op vm.FuncCallOp, continueDepth uint32) (bool, error) {
	if unsupported[op.Name] {
		return false, fmt.Errorf("vm2wasm: %s has no inline lowering; run this program under the interpreter instead", op.Name)
	}

	if inline, ok := inlineTable[op.Name]; ok {
		loadRAMConst(b, int32(word.SP))
		b.I32Const(int32(op.NArgs)).I32Sub().LocalSet(localSP)
		inline(tr, b, localSP)

		// Replace the nArgs arguments on the stack with the single result.
		storeRAMConst(b, int32(word.SP), localSP)
		emitPushFromLocal(b, localV)
		return false, nil
	}

	target, ok := tr.prog.FunctionIndex(op.Name)
	if !ok {
		return false, fmt.Errorf("vm2wasm: call to undefined function '%s' at command %d", op.Name, index)
	}
	targetCase := caseIndexOf(tr.boundaries, target)
	returnCase := caseIndexOf(tr.boundaries, index+1)

	// argBase = SP - nArgs, kept in localA for the ARG write below.
	loadRAMConst(b, int32(word.SP))
	b.I32Const(int32(op.NArgs)).I32Sub().LocalSet(localA)

	// Push the return case index in place of a return address, then the caller's
	// segment pointers.
	b.I32Const(int32(returnCase)).LocalSet(localV)
	emitPushFromLocal(b, localV)
	for _, reg := range []int32{int32(word.LCL), int32(word.ARG), int32(word.THIS), int32(word.THAT)} {
		loadRAMConst(b, reg)
		b.LocalSet(localV)
		emitPushFromLocal(b, localV)
	}

	// LCL = current SP (post-pushes); ARG = the saved argBase.
	loadRAMConst(b, int32(word.SP))
	b.LocalSet(localV)
	storeRAMConst(b, int32(word.LCL), localV)
	storeRAMConst(b, int32(word.ARG), localA)

	b.I32Const(int32(targetCase)).LocalSet(localCase)
	b.Br(continueDepth)
	return true, nil
}

// lowerReturn unwinds the current frame exactly as the interpreter's stepReturn does,
// reading the return case (in place of a return address) out of the five-word frame
// saved below LCL, then branches to resume dispatch there.
func lowerReturn(b *wasmenc.Instr, continueDepth uint32) {
	loadRAMConst(b, int32(word.LCL))
	b.LocalSet(localFrame)

	// returnCase = RAM[frame-5]
	b.LocalGet(localFrame).I32Const(5).I32Sub().LocalSet(localA)
	loadRAMLocal(b, localA)
	b.LocalSet(localCase)

	emitPopToLocal(b, localV) // the callee's return value
	loadRAMConst(b, int32(word.ARG))
	b.LocalSet(localA)
	storeRAMLocal(b, localA, localV)

	b.LocalGet(localA).I32Const(1).I32Add().LocalSet(localV)
	storeRAMConst(b, int32(word.SP), localV)

	restoreFromFrame(b, int32(word.THAT), 1)
	restoreFromFrame(b, int32(word.THIS), 2)
	restoreFromFrame(b, int32(word.ARG), 3)
	restoreFromFrame(b, int32(word.LCL), 4)

	b.Br(continueDepth)
}

func restoreFromFrame(b *wasmenc.Instr, reg int32, offsetBelowFrame int32) {
	b.LocalGet(localFrame).I32Const(offsetBelowFrame).I32Sub().LocalSet(localA)
	loadRAMLocal(b, localA)
	b.LocalSet(localV)
	storeRAMConst(b, reg, localV)
}
