package hack

import "hackvm.dev/n2t/pkg/word"

// BreakpointVar names the piece of CPU-visible state an equality breakpoint watches.
type BreakpointVar uint8

const (
	BreakA   BreakpointVar = iota // the A register
	BreakD                        // the D register
	BreakM                        // RAM[A]
	BreakPC                       // the program counter
	BreakMem                      // RAM[Address], a fixed address chosen at arm time
)

// Breakpoint fires when Var reads back equal to Value after a step. Address is only
// consulted when Var is BreakMem.
type Breakpoint struct {
	Var     BreakpointVar
	Address word.Word
	Value   word.Word
}

// CPU is a Hack computer: A/D/PC registers, 32K words of ROM and the shared RAM model.
// Its Step/Run/Reset methods are the sole way a Hack program is driven, whether loaded
// from assembled text or produced directly by a code generator.
type CPU struct {
	A, D, PC word.Word

	ROM [word.MemSize]word.Word
	RAM word.RAM

	Breakpoints []Breakpoint
}

// NewCPU returns a CPU with RAM initialized (SP=256, everything else zero) and an
// empty ROM.
func NewCPU() *CPU {
	cpu := &CPU{}
	cpu.Reset()
	return cpu
}

// LoadROM installs a fresh program, zeroing every ROM cell first so that addresses
// past the end of 'words' read back as NOP-shaped zero instructions (decoded as
// '@0', a harmless A-instruction).
func (c *CPU) LoadROM(words []uint16) {
	for i := range c.ROM {
		c.ROM[i] = 0
	}
	for i, w := range words {
		c.ROM[i] = word.Word(int16(w))
	}
}

// Reset clears A, D, PC and the RAM (which re-seeds SP=256), leaving ROM and the
// armed breakpoint list untouched.
func (c *CPU) Reset() {
	c.A, c.D, c.PC = 0, 0, 0
	c.RAM.Reset()
}

// Step executes the instruction at PC and reports whether any armed breakpoint's
// variable equals its value afterward.
func (c *CPU) Step() bool {
	instr := uint16(c.ROM[c.PC])

	if instr&0x8000 == 0 {
		// A-instruction: the low 15 bits are the address, zero-extended.
		c.A = word.Word(int16(instr))
		c.PC++
	} else {
		result := c.compute(instr)

		// The jump target is the A register's value *before* this instruction's own
		// destination writes land — computed here, applied after 'set' below.
		jumpTarget := c.A
		taken := jumpTrue(instr&0x7, result)

		c.set(instr, result)

		if taken {
			c.PC = jumpTarget
		} else {
			c.PC++
		}
	}

	return c.breakpointHit()
}

// Run steps up to n times, stopping early (and returning true) the first time a
// breakpoint fires.
func (c *CPU) Run(n uint64) bool {
	for i := uint64(0); i < n; i++ {
		if c.Step() {
			return true
		}
	}
	return false
}

// compute evaluates the ALU by the semantic rule (zero/negate preprocessing, AND/ADD
// operator selection, output negation) rather than a table lookup, so any bit pattern
// — canonical or not — produces a predictable result.
func (c *CPU) compute(instr uint16) word.Word {
	x := c.D
	y := c.A
	if instr&(1<<12) != 0 { // a-bit: select RAM[A] instead of A
		y = c.RAM[c.A]
	}

	if instr&(1<<11) != 0 { // zx
		x = 0
	}
	if instr&(1<<10) != 0 { // nx
		x = ^x
	}
	if instr&(1<<9) != 0 { // zy
		y = 0
	}
	if instr&(1<<8) != 0 { // ny
		y = ^y
	}

	var result word.Word
	if instr&(1<<7) != 0 { // f: 1=add, 0=and
		result = x + y
	} else {
		result = x & y
	}

	if instr&(1<<6) != 0 { // no: negate output
		result = ^result
	}
	return result
}

// set applies the instruction's destination writes. M is written first, using A's
// value from before this instruction touched it, matching the ISA's documented
// ordering (the jump target read and the M write both see the pre-update A).
func (c *CPU) set(instr uint16, result word.Word) {
	if instr&(1<<3) != 0 { // dest M
		c.RAM[c.A] = result
	}
	if instr&(1<<5) != 0 { // dest A
		c.A = result
	}
	if instr&(1<<4) != 0 { // dest D
		c.D = result
	}
}

// jumpTrue evaluates one of the eight jump predicates against the signed ALU result.
func jumpTrue(jump uint16, result word.Word) bool {
	switch jump {
	case 0:
		return false
	case 1:
		return result > 0
	case 2:
		return result == 0
	case 3:
		return result >= 0
	case 4:
		return result < 0
	case 5:
		return result != 0
	case 6:
		return result <= 0
	case 7:
		return true
	default:
		return false
	}
}

func (c *CPU) breakpointHit() bool {
	for _, bp := range c.Breakpoints {
		if c.breakpointVar(bp) == bp.Value {
			return true
		}
	}
	return false
}

func (c *CPU) breakpointVar(bp Breakpoint) word.Word {
	switch bp.Var {
	case BreakA:
		return c.A
	case BreakD:
		return c.D
	case BreakM:
		return c.RAM[c.A]
	case BreakPC:
		return c.PC
	case BreakMem:
		return c.RAM[bp.Address]
	default:
		return 0
	}
}
