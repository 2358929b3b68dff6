package hack

import "fmt"

var (
	reverseCompTable = invert(CompTable)
	reverseDestTable = invert(DestTable)
	reverseJumpTable = invert(JumpTable)
)

func invert(table map[string]uint16) map[uint16]string {
	out := make(map[uint16]string, len(table))
	for k, v := range table {
		out[v] = k
	}
	return out
}

// Disassemble decodes a single 16-bit machine word back into canonical Hack assembly
// text. The mapping is the exact inverse of CodeGenerator's: an A-instruction always
// disassembles to "@<address>" (labels are not recoverable from a bare machine word),
// and a C-instruction's dest/comp/jump are rendered in the same "[dest=]comp[;jump]"
// shape the code generator accepts, so re-assembling the output reproduces the word.
func Disassemble(w uint16) (string, error) {
	if w&0x8000 == 0 {
		return fmt.Sprintf("@%d", w), nil
	}

	comp, ok := reverseCompTable[(w>>6)&0x7F]
	if !ok {
		return "", fmt.Errorf("unrecognized 'comp' bit pattern in word %016b", w)
	}
	dest, ok := reverseDestTable[(w>>3)&0x7]
	if !ok {
		return "", fmt.Errorf("unrecognized 'dest' bit pattern in word %016b", w)
	}
	jump, ok := reverseJumpTable[w&0x7]
	if !ok {
		return "", fmt.Errorf("unrecognized 'jump' bit pattern in word %016b", w)
	}

	switch {
	case dest != "" && jump != "":
		return fmt.Sprintf("%s=%s;%s", dest, comp, jump), nil
	case dest != "":
		return fmt.Sprintf("%s=%s", dest, comp), nil
	case jump != "":
		return fmt.Sprintf("%s;%s", comp, jump), nil
	default:
		return comp, nil
	}
}

// DisassembleProgram decodes every word in a ROM image in order, returning one line
// of canonical text per word.
func DisassembleProgram(words []uint16) ([]string, error) {
	lines := make([]string, len(words))
	for i, w := range words {
		line, err := Disassemble(w)
		if err != nil {
			return nil, fmt.Errorf("word %d: %w", i, err)
		}
		lines[i] = line
	}
	return lines, nil
}
