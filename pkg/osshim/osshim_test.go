package osshim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hackvm.dev/n2t/pkg/word"
)

func callWith(t *testing.T, shim *Shim, ram *word.RAM, name string, args ...word.Word) (word.Word, error) {
	t.Helper()
	argBase := word.Word(1000)
	for i, v := range args {
		ram[argBase+word.Word(i)] = v
	}
	result, handled, err := shim.Dispatch(ram, name, argBase, len(args))
	require.True(t, handled, "expected %s to be recognized", name)
	return result, err
}

func TestDispatchUnrecognizedNameIsNotHandled(t *testing.T) {
	shim := New()
	var ram word.RAM
	_, handled, err := shim.Dispatch(&ram, "Widget.frob", 0, 0)
	assert.NoError(t, err)
	assert.False(t, handled)
}

func TestMathOps(t *testing.T) {
	shim := New()
	var ram word.RAM

	result, err := callWith(t, shim, &ram, "Math.multiply", 6, 7)
	require.NoError(t, err)
	assert.Equal(t, word.Word(42), result)

	result, err = callWith(t, shim, &ram, "Math.abs", -9)
	require.NoError(t, err)
	assert.Equal(t, word.Word(9), result)

	result, err = callWith(t, shim, &ram, "Math.sqrt", 17)
	require.NoError(t, err)
	assert.Equal(t, word.Word(4), result)

	_, err = callWith(t, shim, &ram, "Math.divide", 10, 0)
	assert.Error(t, err)
}

func TestScreenDrawPixel(t *testing.T) {
	shim := New()
	var ram word.RAM

	_, err := callWith(t, shim, &ram, "Screen.drawPixel", 3, 5)
	require.NoError(t, err)
	assert.True(t, ram.Pixel(3, 5))

	_, err = callWith(t, shim, &ram, "Screen.setColor", 0)
	require.NoError(t, err)
	_, err = callWith(t, shim, &ram, "Screen.drawPixel", 3, 5)
	require.NoError(t, err)
	assert.False(t, ram.Pixel(3, 5))
}

func TestScreenDrawLineHorizontal(t *testing.T) {
	shim := New()
	var ram word.RAM

	_, err := callWith(t, shim, &ram, "Screen.drawLine", 0, 0, 10, 0)
	require.NoError(t, err)
	for x := 0; x <= 10; x++ {
		assert.True(t, ram.Pixel(x, 0), "expected pixel %d,0 set", x)
	}
}

func TestStringAppendAndIntValue(t *testing.T) {
	shim := New()
	var ram word.RAM

	address, err := callWith(t, shim, &ram, "String.new", 5)
	require.NoError(t, err)

	for _, ch := range "12" {
		_, err := callWith(t, shim, &ram, "String.appendChar", address, word.Word(ch))
		require.NoError(t, err)
	}

	length, err := callWith(t, shim, &ram, "String.length", address)
	require.NoError(t, err)
	assert.Equal(t, word.Word(2), length)

	value, err := callWith(t, shim, &ram, "String.intValue", address)
	require.NoError(t, err)
	assert.Equal(t, word.Word(12), value)
}

func TestStringSetInt(t *testing.T) {
	shim := New()
	var ram word.RAM

	address, err := callWith(t, shim, &ram, "String.new", 6)
	require.NoError(t, err)

	_, err = callWith(t, shim, &ram, "String.setInt", address, -42)
	require.NoError(t, err)

	value, err := callWith(t, shim, &ram, "String.intValue", address)
	require.NoError(t, err)
	assert.Equal(t, word.Word(-42), value)
}
