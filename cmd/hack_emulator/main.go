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
)

var Description = strings.ReplaceAll(`
The Hack Emulator loads a compiled (.hack) or assembly (.asm) program, runs it on a
simulated Hack computer for a bounded number of cycles, and reports the final state
of the CPU's registers (PC, A, D) plus, when asked, the value of one RAM cell.
`, "\n", " ")

var HackEmulator = cli.New(Description).
	WithArg(cli.NewArg("input", "The program to run, either a .hack binary or a .asm source file")).
	WithOption(cli.NewOption("steps", "Maximum number of instructions to execute").WithType(cli.TypeString)).
	WithOption(cli.NewOption("peek", "A RAM address to print after the run").WithType(cli.TypeString)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	words, err := loadROM(args[0])
	if err != nil {
		fmt.Printf("ERROR: Unable to load program: %s\n", err)
		return -1
	}

	steps := uint64(1_000_000)
	if raw, ok := options["steps"]; ok {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			fmt.Printf("ERROR: Invalid 'steps' option: %s\n", err)
			return -1
		}
		steps = n
	}

	cpu := hack.NewCPU()
	cpu.LoadROM(words)
	hit := cpu.Run(steps)

	fmt.Printf("PC=%d A=%d D=%d\n", cpu.PC, cpu.A, cpu.D)
	if hit {
		fmt.Println("stopped: breakpoint hit")
	} else {
		fmt.Printf("stopped: step budget (%d) exhausted\n", steps)
	}

	if raw, ok := options["peek"]; ok {
		addr, err := strconv.ParseUint(raw, 10, 16)
		if err != nil {
			fmt.Printf("ERROR: Invalid 'peek' option: %s\n", err)
			return -1
		}
		fmt.Printf("RAM[%d]=%d\n", addr, cpu.RAM[addr])
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

func main() { os.Exit(HackEmulator.Run(os.Args, os.Stdout)) }
