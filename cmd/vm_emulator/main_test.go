package main

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	saved := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	require.NoError(t, w.Close())
	os.Stdout = saved

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func TestVMEmulatorRunsLinkedProgram(t *testing.T) {
	var status int
	output := captureStdout(t, func() {
		status = Handler([]string{"testdata/basic"}, map[string]string{"steps": "20"})
	})

	// The program pushes 7 and 8, adds them, stores the result and spins in a label
	// loop forever, so the stack is back to empty (SP=256) and the call that was
	// entered at reset (Sys.init) is still the active frame.
	require.Equal(t, 0, status)
	assert.Contains(t, output, "SP=256")
	assert.Contains(t, output, "depth=1")
}

func TestLoadModulesReadsEveryVMFileInADirectory(t *testing.T) {
	modules, err := loadModules("testdata/basic")
	require.NoError(t, err)
	require.Len(t, modules, 1)
	assert.Equal(t, "Sys", modules[0].Name)
}

func TestLoadModulesReadsASingleFile(t *testing.T) {
	modules, err := loadModules("testdata/basic/Sys.vm")
	require.NoError(t, err)
	require.Len(t, modules, 1)
	assert.Equal(t, "Sys", modules[0].Name)
}
