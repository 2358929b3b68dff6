// Package wasmrun hosts a translated module under wazero, a pure-Go WebAssembly
// runtime, and exposes the same budgeted-execution contract the AOT translators
// compile against: call "run" with a tick budget, get back ticks actually spent and
// the engine's linear memory for inspection.
package wasmrun

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
)

// Run instantiates moduleBytes and calls its exported "run" function once with budget,
// returning the number of ticks the engine reports having spent and a snapshot of its
// linear memory. The module's "ticks" and "run" exports are a contract both
// pkg/hack2wasm and pkg/vm2wasm satisfy; Run doesn't care which translator produced
// moduleBytes.
func Run(ctx context.Context, moduleBytes []byte, budget uint64) (ticksUsed uint64, mem []byte, err error) {
	runtime := wazero.NewRuntime(ctx)
	defer runtime.Close(ctx)

	compiled, err := runtime.CompileModule(ctx, moduleBytes)
	if err != nil {
		return 0, nil, fmt.Errorf("wasmrun: compile: %w", err)
	}

	instance, err := runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig())
	if err != nil {
		return 0, nil, fmt.Errorf("wasmrun: instantiate: %w", err)
	}
	defer instance.Close(ctx)

	runFn := instance.ExportedFunction("run")
	if runFn == nil {
		return 0, nil, fmt.Errorf("wasmrun: module exports no 'run' function")
	}

	results, err := runFn.Call(ctx, budget)
	if err != nil {
		return 0, nil, fmt.Errorf("wasmrun: run trapped: %w", err)
	}
	if len(results) != 1 {
		return 0, nil, fmt.Errorf("wasmrun: 'run' returned %d values, expected 1", len(results))
	}
	ticksUsed = results[0]

	memory := instance.ExportedMemory("memory")
	if memory == nil {
		return ticksUsed, nil, fmt.Errorf("wasmrun: module exports no 'memory'")
	}
	mem, ok := memory.Read(0, memory.Size())
	if !ok {
		return ticksUsed, nil, fmt.Errorf("wasmrun: could not read linear memory")
	}

	return ticksUsed, mem, nil
}

// WordAt reads the i32 stored at Word-address addr out of a linear memory snapshot
// returned by Run (four bytes per Word, little-endian, matching how the translators
// address RAM as an array of i32 slots).
func WordAt(mem []byte, addr int) (int32, error) {
	off := addr * 4
	if off < 0 || off+4 > len(mem) {
		return 0, fmt.Errorf("wasmrun: address %d out of range for %d-byte memory", addr, len(mem))
	}
	v := int32(uint32(mem[off]) | uint32(mem[off+1])<<8 | uint32(mem[off+2])<<16 | uint32(mem[off+3])<<24)
	return v, nil
}
