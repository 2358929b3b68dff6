package wasmenc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestULEB128SmallValue(t *testing.T) {
	assert.Equal(t, []byte{0x00}, uleb128(nil, 0))
	assert.Equal(t, []byte{0x7f}, uleb128(nil, 127))
	assert.Equal(t, []byte{0x80, 0x01}, uleb128(nil, 128))
}

func TestSLEB128NegativeValue(t *testing.T) {
	assert.Equal(t, []byte{0x7f}, sleb128(nil, -1))
	assert.Equal(t, []byte{0x00}, sleb128(nil, 0))
}

func TestVecAndName(t *testing.T) {
	assert.Equal(t, []byte{0x00}, vec(nil))
	assert.Equal(t, append([]byte{0x04}, "main"...), name("main"))
}
