package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHackAssembler(t *testing.T) {
	test := func(t *testing.T, dir, name string) {
		input := filepath.Join("testdata", dir, name+".asm")
		output := filepath.Join(t.TempDir(), name+".hack")
		compare := filepath.Join("testdata", dir, name+".cmp")

		status := Handler([]string{input, output}, nil)
		require.Equal(t, 0, status, "unexpected exit status from Handler")

		compiled, err := os.ReadFile(output)
		require.NoError(t, err)

		expected, err := os.ReadFile(compare)
		require.NoError(t, err)

		assert.Equal(t, string(expected), string(compiled))
	}

	t.Run("Add.asm", func(t *testing.T) { test(t, "add", "Add") })
}
