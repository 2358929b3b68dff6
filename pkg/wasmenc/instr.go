package wasmenc

// Instr accumulates one function body's instruction stream. Every method appends its
// opcode (and any immediate) and returns the receiver, so a translator can chain a
// whole basic block as one expression.
type Instr struct{ buf []byte }

func NewInstr() *Instr { return &Instr{} }

func (b *Instr) Bytes() []byte { return b.buf }

func (b *Instr) op(code byte) *Instr {
	b.buf = append(b.buf, code)
	return b
}

func (b *Instr) I32Const(v int32) *Instr {
	b.buf = append(b.buf, 0x41)
	b.buf = sleb128(b.buf, int64(v))
	return b
}

func (b *Instr) LocalGet(i uint32) *Instr  { return b.opIdx(0x20, i) }
func (b *Instr) LocalSet(i uint32) *Instr  { return b.opIdx(0x21, i) }
func (b *Instr) LocalTee(i uint32) *Instr  { return b.opIdx(0x22, i) }
func (b *Instr) GlobalGet(i uint32) *Instr { return b.opIdx(0x23, i) }
func (b *Instr) GlobalSet(i uint32) *Instr { return b.opIdx(0x24, i) }
func (b *Instr) Call(i uint32) *Instr      { return b.opIdx(0x10, i) }

func (b *Instr) opIdx(code byte, i uint32) *Instr {
	b.buf = append(b.buf, code)
	b.buf = uleb128(b.buf, uint64(i))
	return b
}

// I32Load/I32Store address RAM as a flat array of i32 Words; align=2 (4-byte), offset 0.
func (b *Instr) I32Load() *Instr  { return b.memOp(0x28) }
func (b *Instr) I32Store() *Instr { return b.memOp(0x36) }

func (b *Instr) memOp(code byte) *Instr {
	b.buf = append(b.buf, code, 0x02, 0x00)
	return b
}

func (b *Instr) I32Add() *Instr  { return b.op(0x6a) }
func (b *Instr) I32Sub() *Instr  { return b.op(0x6b) }
func (b *Instr) I32Mul() *Instr  { return b.op(0x6c) }
func (b *Instr) I32DivS() *Instr { return b.op(0x6d) }
func (b *Instr) I32RemS() *Instr { return b.op(0x6f) }
func (b *Instr) I32And() *Instr  { return b.op(0x71) }
func (b *Instr) I32Or() *Instr   { return b.op(0x72) }
func (b *Instr) I32Xor() *Instr  { return b.op(0x73) }
func (b *Instr) I32Eqz() *Instr  { return b.op(0x45) }
func (b *Instr) I32Eq() *Instr   { return b.op(0x46) }
func (b *Instr) I32Ne() *Instr   { return b.op(0x47) }
func (b *Instr) I32LtS() *Instr  { return b.op(0x48) }
func (b *Instr) I32GtS() *Instr  { return b.op(0x4a) }
func (b *Instr) I32Shl() *Instr  { return b.op(0x74) }
func (b *Instr) I32ShrS() *Instr { return b.op(0x75) }
func (b *Instr) Drop() *Instr    { return b.op(0x1a) }
func (b *Instr) Select() *Instr  { return b.op(0x1b) }

// Extend16S sign-extends the low 16 bits of the i32 on the stack, the step every
// lowered arithmetic op ends with to keep a Word wrapping at 16 bits.
func (b *Instr) Extend16S() *Instr { return b.op(0xc1) }

func (b *Instr) Block(blockType byte) *Instr { return b.typedOp(0x02, blockType) }
func (b *Instr) Loop(blockType byte) *Instr  { return b.typedOp(0x03, blockType) }
func (b *Instr) If(blockType byte) *Instr    { return b.typedOp(0x04, blockType) }
func (b *Instr) Else() *Instr                { return b.op(0x05) }

func (b *Instr) typedOp(code, blockType byte) *Instr {
	b.buf = append(b.buf, code, blockType)
	return b
}

func (b *Instr) End() *Instr { return b.op(0x0B) }

func (b *Instr) Br(depth uint32) *Instr   { return b.opIdx(0x0c, depth) }
func (b *Instr) BrIf(depth uint32) *Instr { return b.opIdx(0x0d, depth) }

// BrTable emits a branch table over depths, with the last entry as the default.
func (b *Instr) BrTable(depths []uint32, defaultDepth uint32) *Instr {
	b.buf = append(b.buf, 0x0e)
	b.buf = uleb128(b.buf, uint64(len(depths)))
	for _, d := range depths {
		b.buf = uleb128(b.buf, uint64(d))
	}
	b.buf = uleb128(b.buf, uint64(defaultDepth))
	return b
}

func (b *Instr) Unreachable() *Instr { return b.op(0x00) }
func (b *Instr) Return() *Instr      { return b.op(0x0f) }

// EmptyBlockType is the Wasm encoding for a block producing no value.
const EmptyBlockType byte = 0x40
