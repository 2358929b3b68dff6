package wasmenc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleEncodeHasMagicAndVersion(t *testing.T) {
	m := NewModule(1)
	out := m.Encode()
	require.GreaterOrEqual(t, len(out), 8)
	assert.Equal(t, []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}, out[:8])
}

func TestModuleEncodeIncludesAllSections(t *testing.T) {
	m := NewModule(2)
	typeIdx := m.AddType(FuncType{Params: []ValType{I32}, Results: []ValType{I32}})
	body := NewInstr().LocalGet(0).I32Const(1).I32Add().Bytes()
	fnIdx := m.AddFunction(Function{TypeIndex: typeIdx, Body: body})
	m.ExportFunc["increment"] = fnIdx
	m.ExportMemory = "memory"

	out := m.Encode()

	// Every section id we emit (type, function, memory, global, export, code) must
	// appear, in order, after the header.
	ids := []byte{1, 3, 5, 6, 7, 10}
	pos := 8
	for _, id := range ids {
		require.Less(t, pos, len(out))
		assert.Equal(t, id, out[pos], "expected section id %d at position %d", id, pos)
		pos++ // section id byte
		// Section length is itself LEB128-encoded; walk past it plus its content.
		length, n := readULEB(out[pos:])
		pos += n + int(length)
	}
}

func readULEB(buf []byte) (uint64, int) {
	var result uint64
	var shift uint
	for i, b := range buf {
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, i + 1
		}
		shift += 7
	}
	return result, len(buf)
}

func TestLabelledSwitchEmbedsCaseBody(t *testing.T) {
	cases := [][]byte{
		NewInstr().I32Const(10).Bytes(),
		NewInstr().I32Const(20).Bytes(),
	}
	out := LabelledSwitch(0, cases)
	require.NotEmpty(t, out)
	// Structurally: two nested blocks, a br_table, then the two case bodies in order.
	assert.Contains(t, string(out), string(NewInstr().I32Const(10).Bytes()))
}
