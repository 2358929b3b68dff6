package hack_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hackvm.dev/n2t/pkg/hack"
	"hackvm.dev/n2t/pkg/word"
)

func TestCPUMultiplyROM(t *testing.T) {
	rom := []uint16{15, 60040, 14, 64528, 15, 58114, 13, 64528, 15, 61576, 14, 64648, 2, 60039, 15, 60039}

	cpu := hack.NewCPU()
	cpu.LoadROM(rom)
	cpu.RAM[13] = 34
	cpu.RAM[14] = 12

	for int(cpu.PC) < 15 {
		cpu.Step()
	}

	assert.Equal(t, word.Word(408), cpu.RAM[15])
}

func TestCPUAInstructionLoad(t *testing.T) {
	cpu := hack.NewCPU()
	cpu.LoadROM([]uint16{1337})
	before := cpu.D

	cpu.Step()

	assert.Equal(t, word.Word(1337), cpu.A)
	assert.Equal(t, word.Word(1), cpu.PC)
	assert.Equal(t, before, cpu.D)
}

func TestCPUUnconditionalJumpOrdering(t *testing.T) {
	// dest=A, comp=1, jump=JMP: 111 0111111 100 111
	word16 := uint16(0b1110111111100111)

	cpu := hack.NewCPU()
	cpu.LoadROM([]uint16{word16})

	cpu.Step()

	// comp "1" evaluates to 1, which is written into A (the destination); the jump
	// target is read from A *before* that write, i.e. A's reset value of 0 — so PC
	// lands back on the same instruction, while A now holds 1.
	assert.Equal(t, word.Word(0), cpu.PC)
	assert.Equal(t, word.Word(1), cpu.A)
}

func TestCPURunZeroIsNoop(t *testing.T) {
	cpu := hack.NewCPU()
	cpu.LoadROM([]uint16{0b1110111111100111})

	triggered := cpu.Run(0)

	require.False(t, triggered)
	assert.Equal(t, word.Word(0), cpu.PC)
}

func TestCPUBreakpoint(t *testing.T) {
	cpu := hack.NewCPU()
	cpu.LoadROM([]uint16{1337, 7331})
	cpu.Breakpoints = []hack.Breakpoint{{Var: hack.BreakA, Value: 7331}}

	triggered := cpu.Run(10)

	require.True(t, triggered)
	assert.Equal(t, word.Word(7331), cpu.A)
	assert.Equal(t, word.Word(2), cpu.PC)
}

func TestCPUReset(t *testing.T) {
	cpu := hack.NewCPU()
	cpu.LoadROM([]uint16{1337})
	cpu.Step()
	cpu.D = 42

	cpu.Reset()

	assert.Equal(t, word.Word(0), cpu.A)
	assert.Equal(t, word.Word(0), cpu.D)
	assert.Equal(t, word.Word(0), cpu.PC)
	assert.Equal(t, word.InitialSP, cpu.RAM[word.SP])
	// ROM survives a reset.
	assert.Equal(t, word.Word(1337), cpu.ROM[0])
}
