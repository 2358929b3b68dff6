package vm2wasm

import (
	"hackvm.dev/n2t/pkg/osshim"
	"hackvm.dev/n2t/pkg/wasmenc"
	"hackvm.dev/n2t/pkg/word"
)

// The guest-side heap occupies the same range osshim.Allocator manages on the
// interpreter side: [osshim.HeapStart, word.SCREEN). Since Wasm locals can't carry a
// Go map across calls, the free list lives entirely in RAM: every block (free or in
// use) is bounded by a header and footer word holding its payload size — positive
// while allocated, the negated size while free. A free block's first payload word
// doubles as the free list's "next" pointer, and globalFreeHead holds the address of
// the first free block's header (0 once the list, or the whole heap, is exhausted).
// Memory.alloc/deAlloc and Array.new/dispose all lower to calls into the three
// functions built below, mirroring pkg/osshim/memory.go's best-fit-with-coalescing
// algorithm one RAM load/store at a time instead of with host-side maps.
const heapStart = int32(osshim.HeapStart)
const heapSize = int32(word.SCREEN) - heapStart

// minSplitRemainder is the smallest leftover footprint (header + >=1 payload word +
// footer) worth keeping as its own free block; a smaller remainder is handed out
// together with the request instead, same tradeoff osshim.Allocator.Alloc makes when
// bestSize happens to equal the request exactly.
const minSplitRemainder = 3

// i32Locals returns n declared i32 locals, for functions in this file whose local
// count is large enough that spelling every entry out would be unwieldy.
func i32Locals(n int) []wasmenc.ValType {
	out := make([]wasmenc.ValType, n)
	for i := range out {
		out[i] = wasmenc.I32
	}
	return out
}

// storeRAMConstValue writes a compile-time-constant value into RAM[addr].
func storeRAMConstValue(b *wasmenc.Instr, addr, value int32) {
	b.I32Const(addr).I32Const(4).I32Mul()
	b.I32Const(value)
	b.I32Store()
}

// buildEnsureHeapInit returns a niladic, resultless function that lazily carves the
// whole heap into one free block the first time the guest allocator is touched.
// globalHeapReady distinguishes "never initialized" from "initialized and now
// exhausted" (both of which otherwise look like an empty free list).
func buildEnsureHeapInit() []byte {
	b := wasmenc.NewInstr()
	b.GlobalGet(globalHeapReady).I32Eqz()
	b.If(wasmenc.EmptyBlockType)

	storeRAMConstValue(b, heapStart, -(heapSize - 2))
	storeRAMConstValue(b, heapStart+1, 0) // next = 0: the sole block is list-terminal
	b.I32Const(heapStart).GlobalSet(globalFreeHead)
	b.I32Const(1).GlobalSet(globalHeapReady)

	b.End()
	return b.Bytes()
}

// Locals for unlinkFreeBlock(target i32): splice the free-list node whose header
// address equals target out of the list. Called only with an address the caller has
// already confirmed is a free block's header (a neighbor about to be coalesced), so a
// cur==0 exhaustion without a match never legitimately happens.
const (
	unlinkParamTarget = iota
	unlinkLocCur
	unlinkLocPrev
	unlinkLocNext
	unlinkLocScratch
)

func buildUnlinkFreeBlock() []byte {
	b := wasmenc.NewInstr()
	b.GlobalGet(globalFreeHead).LocalSet(unlinkLocCur)
	b.I32Const(0).LocalSet(unlinkLocPrev)

	outer := wasmenc.NewInstr().Block(wasmenc.EmptyBlockType)
	loop := wasmenc.NewInstr().Loop(wasmenc.EmptyBlockType)

	loop.LocalGet(unlinkLocCur).I32Eqz().BrIf(1)

	loop.LocalGet(unlinkLocCur).LocalGet(unlinkParamTarget).I32Eq()
	loop.If(wasmenc.EmptyBlockType)
	loop.LocalGet(unlinkLocCur).I32Const(1).I32Add().LocalSet(unlinkLocNext)
	loadRAMLocal(loop, unlinkLocNext)
	loop.LocalSet(unlinkLocNext)

	loop.LocalGet(unlinkLocPrev).I32Eqz()
	loop.If(wasmenc.EmptyBlockType)
	loop.LocalGet(unlinkLocNext).GlobalSet(globalFreeHead)
	loop.Else()
	loop.LocalGet(unlinkLocPrev).I32Const(1).I32Add().LocalSet(unlinkLocScratch)
	storeRAMLocal(loop, unlinkLocScratch, unlinkLocNext)
	loop.End()
	loop.Br(2) // found and unlinked: break out of the outer block, done.
	loop.End()

	loop.LocalGet(unlinkLocCur).I32Const(1).I32Add().LocalSet(unlinkLocNext)
	loadRAMLocal(loop, unlinkLocNext)
	loop.LocalSet(unlinkLocNext)
	loop.LocalGet(unlinkLocCur).LocalSet(unlinkLocPrev)
	loop.LocalGet(unlinkLocNext).LocalSet(unlinkLocCur)
	loop.Br(0)
	loop.End()

	outer.buf = append(outer.buf, loop.Bytes()...)
	outer.End()
	b.buf = append(b.buf, outer.Bytes()...)
	return b.Bytes()
}

// Locals for memAlloc(size i32) -> i32, the best-fit search and carve, mirroring
// osshim.Allocator.Alloc: scan every free block for the smallest one that fits,
// unlink it, and split off anything left over as a fresh, smaller free block.
const (
	allocParamSize = iota
	allocLocCur
	allocLocPrev
	allocLocBest
	allocLocBestPrev
	allocLocBestPayload
	allocLocHeader
	allocLocPayload
	allocLocNext
	allocLocRemainder
	allocLocNewFree
)

func buildMemAlloc(ensureInitIdx uint32) []byte {
	b := wasmenc.NewInstr()
	b.Call(ensureInitIdx)

	b.LocalGet(allocParamSize).I32Const(0).I32GtS().I32Eqz()
	b.If(wasmenc.EmptyBlockType)
	b.Unreachable() // Memory.alloc: size must be positive
	b.End()

	b.I32Const(0).LocalSet(allocLocBest)
	b.I32Const(0).LocalSet(allocLocBestPrev)
	b.I32Const(0).LocalSet(allocLocBestPayload)
	b.GlobalGet(globalFreeHead).LocalSet(allocLocCur)
	b.I32Const(0).LocalSet(allocLocPrev)

	outer := wasmenc.NewInstr().Block(wasmenc.EmptyBlockType)
	loop := wasmenc.NewInstr().Loop(wasmenc.EmptyBlockType)

	loop.LocalGet(allocLocCur).I32Eqz().BrIf(1)

	loadRAMLocal(loop, allocLocCur)
	loop.LocalSet(allocLocHeader)
	loop.I32Const(0).LocalGet(allocLocHeader).I32Sub().LocalSet(allocLocPayload)

	loop.LocalGet(allocLocPayload).LocalGet(allocParamSize).I32LtS().I32Eqz()
	loop.If(wasmenc.EmptyBlockType)
	loop.LocalGet(allocLocBest).I32Eqz()
	loop.LocalGet(allocLocPayload).LocalGet(allocLocBestPayload).I32LtS()
	loop.I32Or()
	loop.If(wasmenc.EmptyBlockType)
	loop.LocalGet(allocLocCur).LocalSet(allocLocBest)
	loop.LocalGet(allocLocPrev).LocalSet(allocLocBestPrev)
	loop.LocalGet(allocLocPayload).LocalSet(allocLocBestPayload)
	loop.End()
	loop.End()

	loop.LocalGet(allocLocCur).I32Const(1).I32Add().LocalSet(allocLocNext)
	loadRAMLocal(loop, allocLocNext)
	loop.LocalSet(allocLocNext)
	loop.LocalGet(allocLocCur).LocalSet(allocLocPrev)
	loop.LocalGet(allocLocNext).LocalSet(allocLocCur)
	loop.Br(0)
	loop.End()

	outer.buf = append(outer.buf, loop.Bytes()...)
	outer.End()
	b.buf = append(b.buf, outer.Bytes()...)

	b.LocalGet(allocLocBest).I32Eqz()
	b.If(wasmenc.EmptyBlockType)
	b.Unreachable() // Memory.alloc: no hole large enough
	b.End()

	// Unlink best from the free list.
	b.LocalGet(allocLocBest).I32Const(1).I32Add().LocalSet(allocLocNext)
	loadRAMLocal(b, allocLocNext)
	b.LocalSet(allocLocNext)

	b.LocalGet(allocLocBestPrev).I32Eqz()
	b.If(wasmenc.EmptyBlockType)
	b.LocalGet(allocLocNext).GlobalSet(globalFreeHead)
	b.Else()
	b.LocalGet(allocLocBestPrev).I32Const(1).I32Add().LocalSet(allocLocPrev)
	storeRAMLocal(b, allocLocPrev, allocLocNext)
	b.End()

	b.LocalGet(allocLocBestPayload).LocalGet(allocParamSize).I32Sub().LocalSet(allocLocRemainder)

	b.LocalGet(allocLocRemainder).I32Const(minSplitRemainder).I32LtS()
	b.If(wasmenc.EmptyBlockType)
	// Too small to carve off: hand out the whole block unchanged (a little internal
	// fragmentation rather than a free block nothing could ever satisfy).
	storeRAMLocal(b, allocLocBest, allocLocBestPayload)
	b.LocalGet(allocLocBest).I32Const(1).I32Add().LocalGet(allocLocBestPayload).I32Add().LocalSet(allocLocNewFree)
	storeRAMLocal(b, allocLocNewFree, allocLocBestPayload)
	b.Else()
	storeRAMLocal(b, allocLocBest, allocParamSize)
	b.LocalGet(allocLocBest).I32Const(1).I32Add().LocalGet(allocParamSize).I32Add().LocalSet(allocLocNewFree)
	storeRAMLocal(b, allocLocNewFree, allocParamSize)

	b.LocalGet(allocLocBest).LocalGet(allocParamSize).I32Add().I32Const(2).I32Add().LocalSet(allocLocNewFree)
	b.LocalGet(allocLocRemainder).I32Const(2).I32Sub().LocalSet(allocLocRemainder)
	b.I32Const(0).LocalGet(allocLocRemainder).I32Sub().LocalSet(allocLocHeader)
	storeRAMLocal(b, allocLocNewFree, allocLocHeader)

	// Footer mirrors the header (newFree + 1 + payload) so a later coalesce reading in
	// from either direction sees the carved-down size, not the original block's.
	b.LocalGet(allocLocNewFree).I32Const(1).I32Add().LocalGet(allocLocRemainder).I32Add().LocalSet(allocLocNext)
	storeRAMLocal(b, allocLocNext, allocLocHeader)

	b.LocalGet(allocLocNewFree).I32Const(1).I32Add().LocalSet(allocLocNext)
	b.GlobalGet(globalFreeHead).LocalSet(allocLocHeader)
	storeRAMLocal(b, allocLocNext, allocLocHeader)
	b.LocalGet(allocLocNewFree).GlobalSet(globalFreeHead)
	b.End()

	b.LocalGet(allocLocBest).I32Const(1).I32Add().Return()
	return b.Bytes()
}

// Locals for memDealloc(addr i32) -> i32: free the block at addr, coalescing with
// either RAM-adjacent neighbor that is itself currently free, then push the merged
// block onto the free list. Always returns 0 (the VM call still needs a result word).
const (
	deallocParamAddr = iota
	deallocLocBlock
	deallocLocPayload
	deallocLocRightHeader
	deallocLocRightVal
	deallocLocRightPayload
	deallocLocLeftFooter
	deallocLocLeftVal
	deallocLocLeftPayload
	deallocLocLeftHeader
	deallocLocScratch
)

func buildMemDealloc(ensureInitIdx, unlinkIdx uint32) []byte {
	b := wasmenc.NewInstr()
	b.Call(ensureInitIdx)

	b.LocalGet(deallocParamAddr).I32Const(1).I32Sub().LocalSet(deallocLocBlock)
	loadRAMLocal(b, deallocLocBlock)
	b.LocalSet(deallocLocPayload)

	// Right neighbor: header at block + 2 + payload, only in-bounds while it's still
	// inside the heap (not the memory-mapped screen that follows it).
	b.LocalGet(deallocLocBlock).I32Const(2).I32Add().LocalGet(deallocLocPayload).I32Add().LocalSet(deallocLocRightHeader)
	b.LocalGet(deallocLocRightHeader).I32Const(heapStart + heapSize).I32LtS()
	b.If(wasmenc.EmptyBlockType)
	loadRAMLocal(b, deallocLocRightHeader)
	b.LocalSet(deallocLocRightVal)
	b.LocalGet(deallocLocRightVal).I32Const(0).I32LtS()
	b.If(wasmenc.EmptyBlockType)
	b.I32Const(0).LocalGet(deallocLocRightVal).I32Sub().LocalSet(deallocLocRightPayload)
	b.LocalGet(deallocLocRightHeader).Call(unlinkIdx)
	b.LocalGet(deallocLocPayload).I32Const(2).I32Add().LocalGet(deallocLocRightPayload).I32Add().LocalSet(deallocLocPayload)
	b.End()
	b.End()

	// Left neighbor: footer at block - 1, itself preceded by that block's header at
	// footer - 1 - payload, only in-bounds while block is past the heap's first word.
	b.LocalGet(deallocLocBlock).I32Const(heapStart).I32GtS()
	b.If(wasmenc.EmptyBlockType)
	b.LocalGet(deallocLocBlock).I32Const(1).I32Sub().LocalSet(deallocLocLeftFooter)
	loadRAMLocal(b, deallocLocLeftFooter)
	b.LocalSet(deallocLocLeftVal)
	b.LocalGet(deallocLocLeftVal).I32Const(0).I32LtS()
	b.If(wasmenc.EmptyBlockType)
	b.I32Const(0).LocalGet(deallocLocLeftVal).I32Sub().LocalSet(deallocLocLeftPayload)
	b.LocalGet(deallocLocLeftFooter).I32Const(1).I32Sub().LocalGet(deallocLocLeftPayload).I32Sub().LocalSet(deallocLocLeftHeader)
	b.LocalGet(deallocLocLeftHeader).Call(unlinkIdx)
	b.LocalGet(deallocLocPayload).I32Const(2).I32Add().LocalGet(deallocLocLeftPayload).I32Add().LocalSet(deallocLocPayload)
	b.LocalGet(deallocLocLeftHeader).LocalSet(deallocLocBlock)
	b.End()
	b.End()

	b.I32Const(0).LocalGet(deallocLocPayload).I32Sub().LocalSet(deallocLocScratch)
	storeRAMLocal(b, deallocLocBlock, deallocLocScratch)
	b.LocalGet(deallocLocBlock).I32Const(1).I32Add().LocalGet(deallocLocPayload).I32Add().LocalSet(deallocLocRightHeader)
	storeRAMLocal(b, deallocLocRightHeader, deallocLocScratch)

	b.LocalGet(deallocLocBlock).I32Const(1).I32Add().LocalSet(deallocLocLeftFooter)
	b.GlobalGet(globalFreeHead).LocalSet(deallocLocLeftVal)
	storeRAMLocal(b, deallocLocLeftFooter, deallocLocLeftVal)
	b.LocalGet(deallocLocBlock).GlobalSet(globalFreeHead)

	b.I32Const(0).Return()
	return b.Bytes()
}
