package hack_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hackvm.dev/n2t/pkg/hack"
)

func TestDisassembleRoundTrip(t *testing.T) {
	table := hack.SymbolTable{}
	program := hack.Program{
		hack.AInstruction{LocType: hack.Raw, LocName: "2"},
		hack.CInstruction{Comp: "A", Dest: "D"},
		hack.AInstruction{LocType: hack.Raw, LocName: "3"},
		hack.CInstruction{Comp: "D+A", Dest: "D"},
		hack.CInstruction{Comp: "M-1", Dest: "MD", Jump: "JGT"},
		hack.CInstruction{Comp: "0", Jump: "JMP"},
	}

	cg := hack.NewCodeGenerator(program, table)
	words, err := cg.GenerateWords()
	require.NoError(t, err)

	lines, err := hack.DisassembleProgram(words)
	require.NoError(t, err)
	require.Len(t, lines, len(words))

	assert.Equal(t, "@2", lines[0])
	assert.Equal(t, "D=A", lines[1])
	assert.Equal(t, "@3", lines[2])
	assert.Equal(t, "D=D+A", lines[3])
	assert.Equal(t, "MD=M-1;JGT", lines[4])
	assert.Equal(t, "0;JMP", lines[5])

	// Re-assembling the disassembled text must reproduce the exact same machine words.
	reassembled := make([]hack.Instruction, 0, len(lines))
	for _, line := range lines {
		if line[0] == '@' {
			reassembled = append(reassembled, hack.AInstruction{LocType: hack.Raw, LocName: line[1:]})
			continue
		}
		inst := parseCLine(t, line)
		reassembled = append(reassembled, inst)
	}

	cg2 := hack.NewCodeGenerator(hack.Program(reassembled), hack.SymbolTable{})
	words2, err := cg2.GenerateWords()
	require.NoError(t, err)
	assert.Equal(t, words, words2)
}

// parseCLine is a tiny test-only helper that splits the canonical "[dest=]comp[;jump]"
// shape DisassembleProgram emits, mirroring what a real Asm parser would recognize.
func parseCLine(t *testing.T, line string) hack.CInstruction {
	t.Helper()
	var inst hack.CInstruction

	rest := line
	if i := strings.IndexByte(rest, '='); i >= 0 {
		inst.Dest, rest = rest[:i], rest[i+1:]
	}
	if i := strings.IndexByte(rest, ';'); i >= 0 {
		inst.Comp, inst.Jump = rest[:i], rest[i+1:]
	} else {
		inst.Comp = rest
	}
	return inst
}

func TestDisassembleUnrecognizedPatterns(t *testing.T) {
	_, err := hack.Disassemble(0b1111111111111111)
	assert.Error(t, err)
}
