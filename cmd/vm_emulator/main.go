package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/teris-io/cli"

	"hackvm.dev/n2t/pkg/osshim"
	"hackvm.dev/n2t/pkg/vm"
	"hackvm.dev/n2t/pkg/word"
)

var Description = strings.ReplaceAll(`
The VM Emulator loads a .vm file, or every .vm file inside a directory, links them into
a single program and interprets it directly against the host-provided OS shim, reporting
the final stack pointer, stack top and call depth once the step budget is spent or the
program returns out of its entry frame.
`, "\n", " ")

var VMEmulator = cli.New(Description).
	WithArg(cli.NewArg("input", "A .vm file, or a directory of .vm files to link together")).
	WithOption(cli.NewOption("steps", "Maximum number of commands to execute").WithType(cli.TypeString)).
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

	steps := uint64(1_000_000)
	if raw, ok := options["steps"]; ok {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			fmt.Printf("ERROR: Invalid 'steps' option: %s\n", err)
			return -1
		}
		steps = n
	}

	interpreter := vm.NewInterpreter(program, osshim.New())
	runErr := interpreter.Run(steps)

	sp := interpreter.RAM[word.SP]
	fmt.Printf("SP=%d depth=%d\n", sp, interpreter.Frames.Count())
	if sp > 256 {
		fmt.Printf("top-of-stack=%d\n", interpreter.RAM[sp-1])
	}
	if runErr != nil {
		fmt.Printf("stopped: %s\n", runErr)
		return -1
	}
	fmt.Printf("stopped: step budget (%d) exhausted\n", steps)
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

func main() { os.Exit(VMEmulator.Run(os.Args, os.Stdout)) }
