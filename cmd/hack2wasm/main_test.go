package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHack2WasmTranslatesAssembledProgram(t *testing.T) {
	output := filepath.Join(t.TempDir(), "Add.wasm")

	status := Handler([]string{"testdata/add/Add.asm", output}, nil)
	require.Equal(t, 0, status)

	compiled, err := os.ReadFile(output)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(compiled), 8)
	assert.Equal(t, []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}, compiled[:8])
}

func TestAssembleWordsMatchesDirectCodegen(t *testing.T) {
	content, err := os.ReadFile("testdata/add/Add.asm")
	require.NoError(t, err)

	words, err := assembleWords(content)
	require.NoError(t, err)
	assert.Equal(t, []uint16{2, 0b1110110000010000, 3, 0b1110000010010000, 0, 0b1110001100001000}, words)
}
