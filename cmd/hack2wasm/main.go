package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/teris-io/cli"

	"hackvm.dev/n2t/pkg/asm"
	"hackvm.dev/n2t/pkg/hack"
	"hackvm.dev/n2t/pkg/hack2wasm"
)

var Description = strings.ReplaceAll(`
hack2wasm ahead-of-time translates a compiled (.hack) or assembly (.asm) Hack program
into a standalone WebAssembly module. The emitted module exports a budgeted "run"
function and its RAM as linear "memory", ready to be hosted by any Wasm runtime.
`, "\n", " ")

var Hack2Wasm = cli.New(Description).
	WithArg(cli.NewArg("input", "The program to translate, either a .hack binary or a .asm source file")).
	WithArg(cli.NewArg("output", "The translated WebAssembly module (.wasm)")).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	words, err := loadROM(args[0])
	if err != nil {
		fmt.Printf("ERROR: Unable to load program: %s\n", err)
		return -1
	}

	moduleBytes, err := hack2wasm.Translate(words)
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

// loadROM reads either a .hack text file (one 16-bit binary literal per line) or a
// .asm source file (assembled in-process through the same asm -> hack pipeline the
// Hack Assembler uses), returning the resulting machine words either way.
func loadROM(path string) ([]uint16, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".asm") {
		return assembleWords(content)
	}
	return parseHackText(content)
}

func assembleWords(content []byte) ([]uint16, error) {
	parser := asm.NewParser(bytes.NewReader(content))
	asmProgram, err := parser.Parse()
	if err != nil {
		return nil, fmt.Errorf("'parsing' pass: %w", err)
	}

	lowerer := asm.NewLowerer(asmProgram)
	hackProgram, table, err := lowerer.Lower()
	if err != nil {
		return nil, fmt.Errorf("'lowering' pass: %w", err)
	}

	codegen := hack.NewCodeGenerator(hackProgram, table)
	words, err := codegen.GenerateWords()
	if err != nil {
		return nil, fmt.Errorf("'codegen' pass: %w", err)
	}
	return words, nil
}

func parseHackText(content []byte) ([]uint16, error) {
	var words []uint16

	scanner := bufio.NewScanner(bytes.NewReader(content))
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		n, err := strconv.ParseUint(line, 2, 16)
		if err != nil {
			return nil, fmt.Errorf("line %d: %q is not a 16-bit binary word: %w", lineNo, line, err)
		}
		words = append(words, uint16(n))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return words, nil
}

func main() { os.Exit(Hack2Wasm.Run(os.Args, os.Stdout)) }
