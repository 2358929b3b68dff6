package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/teris-io/cli"

	"hackvm.dev/n2t/pkg/vm"
	"hackvm.dev/n2t/pkg/vm2wasm"
)

var Description = strings.ReplaceAll(`
vm2wasm ahead-of-time translates a .vm file, or every .vm file inside a directory,
into a standalone WebAssembly module. The stack machine is lowered directly onto the
module's linear memory; calls into a curated subset of the OS (Math.multiply/divide/
min/max/abs, Memory.peek/poke/alloc/deAlloc, Array.new/dispose, Keyboard.keyPressed,
Screen.setColor/drawPixel) are inlined, and a call to any other OS routine fails the
translation.
`, "\n", " ")

var VM2Wasm = cli.New(Description).
	WithArg(cli.NewArg("input", "A .vm file, or a directory of .vm files to link together")).
	WithArg(cli.NewArg("output", "The translated WebAssembly module (.wasm)")).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	modules, err := loadModules(args[0])
	if err != nil {
		fmt.Printf("ERROR: Unable to load program: %s\n", err)
		return -1
	}

	linker := vm.NewLinker(modules)
	program, err := linker.Link()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'linking' pass: %s\n", err)
		return -1
	}

	moduleBytes, err := vm2wasm.Translate(program)
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'translation' pass: %s\n", err)
		return -1
	}

	if err := os.WriteFile(args[1], moduleBytes, 0o644); err != nil {
		fmt.Printf("ERROR: Unable to write output file: %s\n", err)
		return -1
	}
	return 0
}

// loadModules parses path as a single .vm file, or (if it names a directory) every .vm
// file inside it in lexical order, one Module per file named after its basename.
func loadModules(path string) ([]vm.Module, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var files []string
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".vm") {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
		sort.Strings(files)
		if len(files) == 0 {
			return nil, fmt.Errorf("no .vm files found in directory %q", path)
		}
	} else {
		files = []string{path}
	}

	modules := make([]vm.Module, 0, len(files))
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		parser := vm.NewParser(bytes.NewReader(content), name)
		module, err := parser.Parse()
		if err != nil {
			return nil, fmt.Errorf("'parsing' pass on %q: %w", f, err)
		}
		modules = append(modules, module)
	}
	return modules, nil
}

func main() { os.Exit(VM2Wasm.Run(os.Args, os.Stdout)) }
