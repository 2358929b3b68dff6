package vm2wasm

import (
	"fmt"

	"hackvm.dev/n2t/pkg/vm"
	"hackvm.dev/n2t/pkg/wasmenc"
	"hackvm.dev/n2t/pkg/word"
)

// loadRAMConst leaves RAM[addr] on the value stack.
func loadRAMConst(b *wasmenc.Instr, addr int32) {
	b.I32Const(addr).I32Const(4).I32Mul().I32Load()
}

// loadRAMLocal leaves RAM[addrLocal] on the value stack.
func loadRAMLocal(b *wasmenc.Instr, addrLocal uint32) {
	b.LocalGet(addrLocal).I32Const(4).I32Mul().I32Load()
}

// storeRAMLocal writes valueLocal into RAM[addrLocal].
func storeRAMLocal(b *wasmenc.Instr, addrLocal, valueLocal uint32) {
	b.LocalGet(addrLocal).I32Const(4).I32Mul()
	b.LocalGet(valueLocal)
	b.I32Store()
}

// storeRAMConst writes valueLocal into RAM[addr].
func storeRAMConst(b *wasmenc.Instr, addr int32, valueLocal uint32) {
	b.I32Const(addr).I32Const(4).I32Mul()
	b.LocalGet(valueLocal)
	b.I32Store()
}

// emitPushFromLocal pushes valueLocal onto the VM stack: store it at RAM[SP], then
// increment RAM[SP]. Uses localSP as scratch.
func emitPushFromLocal(b *wasmenc.Instr, valueLocal uint32) {
	loadRAMConst(b, int32(word.SP))
	b.LocalSet(localSP)
	storeRAMLocal(b, localSP, valueLocal)
	b.LocalGet(localSP).I32Const(1).I32Add().LocalSet(localSP)
	storeRAMConst(b, int32(word.SP), localSP)
}

// emitPopToLocal pops the VM stack's top into dstLocal: decrement RAM[SP], then load
// RAM[new SP]. Uses localSP as scratch.
func emitPopToLocal(b *wasmenc.Instr, dstLocal uint32) {
	loadRAMConst(b, int32(word.SP))
	b.I32Const(1).I32Sub().LocalSet(localSP)
	storeRAMConst(b, int32(word.SP), localSP)
	loadRAMLocal(b, localSP)
	b.LocalSet(dstLocal)
}

// emitStackTopAddr leaves the word-address of the VM stack's top (RAM[SP]-1) in
// dstLocal, without popping — used by in-place arithmetic.
func emitStackTopAddr(b *wasmenc.Instr, dstLocal uint32) {
	loadRAMConst(b, int32(word.SP))
	b.I32Const(1).I32Sub().LocalSet(dstLocal)
}

func (tr *translator) lowerMemoryOp(b *wasmenc.Instr, index int, op vm.MemoryOp) error {
	if op.Operation == vm.Push {
		if op.Segment == vm.Constant {
			b.I32Const(int32(op.Offset)).LocalSet(localV)
			emitPushFromLocal(b, localV)
			return nil
		}
		if err := tr.emitSegmentAddr(b, index, op.Segment, op.Offset, localA); err != nil {
			return err
		}
		loadRAMLocal(b, localA)
		b.LocalSet(localV)
		emitPushFromLocal(b, localV)
		return nil
	}

	emitPopToLocal(b, localV)
	if err := tr.emitSegmentAddr(b, index, op.Segment, op.Offset, localA); err != nil {
		return err
	}
	storeRAMLocal(b, localA, localV)
	return nil
}

// emitSegmentAddr leaves the resolved word-address for segment/offset in dstLocal.
func (tr *translator) emitSegmentAddr(b *wasmenc.Instr, index int, segment vm.SegmentType, offset uint16, dstLocal uint32) error {
	switch segment {
	case vm.Local:
		loadRAMConst(b, int32(word.LCL))
		b.I32Const(int32(offset)).I32Add().LocalSet(dstLocal)
	case vm.Argument:
		loadRAMConst(b, int32(word.ARG))
		b.I32Const(int32(offset)).I32Add().LocalSet(dstLocal)
	case vm.This:
		loadRAMConst(b, int32(word.THIS))
		b.I32Const(int32(offset)).I32Add().LocalSet(dstLocal)
	case vm.That:
		loadRAMConst(b, int32(word.THAT))
		b.I32Const(int32(offset)).I32Add().LocalSet(dstLocal)
	case vm.Temp:
		b.I32Const(int32(word.TEMP) + int32(offset)).LocalSet(dstLocal)
	case vm.Pointer:
		b.I32Const(int32(word.THIS) + int32(offset)).LocalSet(dstLocal)
	case vm.Static:
		file, ok := tr.prog.FileAt(index)
		if !ok {
			return fmt.Errorf("command %d not found in any linked file", index)
		}
		b.I32Const(int32(file.StaticBase) + int32(offset)).LocalSet(dstLocal)
	default:
		return fmt.Errorf("segment '%s' has no RAM address", segment)
	}
	return nil
}

func lowerArithmeticOp(b *wasmenc.Instr, op vm.ArithmeticOp) {
	switch op.Operation {
	case vm.Neg, vm.Not:
		emitStackTopAddr(b, localA)
		loadRAMLocal(b, localA)
		if op.Operation == vm.Neg {
			b.I32Const(0).I32Sub()
		} else {
			b.I32Const(-1).I32Xor()
		}
		b.Extend16S()
		b.LocalSet(localV)
		storeRAMLocal(b, localA, localV)
		return
	}

	emitPopToLocal(b, localB)
	emitStackTopAddr(b, localA)
	loadRAMLocal(b, localA)
	b.LocalGet(localB)

	switch op.Operation {
	case vm.Add:
		b.I32Add()
	case vm.Sub:
		b.I32Sub()
	case vm.And:
		b.I32And()
	case vm.Or:
		b.I32Or()
	case vm.Eq:
		b.I32Eq()
		negateBool(b)
	case vm.Gt:
		b.I32GtS()
		negateBool(b)
	case vm.Lt:
		b.I32LtS()
		negateBool(b)
	}
	b.Extend16S()
	b.LocalSet(localV)
	storeRAMLocal(b, localA, localV)
}

// negateBool turns a Wasm 0/1 comparison result into the VM's -1/0 boolean encoding:
// 0 - result (0 stays 0, 1 becomes -1).
func negateBool(b *wasmenc.Instr) {
	b.LocalSet(localV)
	b.I32Const(0).LocalGet(localV).I32Sub()
}
