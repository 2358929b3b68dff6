package vm

import "fmt"

// Linker merges a set of parsed Modules into one Program: a flat command sequence plus
// per-file records for static-segment base, function index and per-function label
// index, grounded on the same "prefix-sum of max static offset used" scheme the
// reference VM uses to keep each file's static segment disjoint.
type Linker struct {
	modules []Module
}

// NewLinker returns a Linker over modules, in the order their Program.Commands should
// appear — this order also determines static-segment base assignment.
func NewLinker(modules []Module) Linker {
	return Linker{modules: modules}
}

// Link concatenates every module's operations and builds the File records described
// above. A function name collision across files, or a label declared twice within the
// same function, is a link error.
func (l *Linker) Link() (Program, error) {
	program := Program{Files: make([]File, 0, len(l.modules))}

	staticBase := uint16(16) // RAM[0..15] is reserved for registers; statics start here.

	for _, mod := range l.modules {
		file := File{
			Name:          mod.Name,
			Start:         len(program.Commands),
			StaticBase:    staticBase,
			FunctionIndex: map[string]int{},
			LabelIndex:    map[string]map[string]int{},
		}

		maxStaticOffset := -1
		currentFunction := ""

		for _, op := range mod.Operations {
			index := len(program.Commands)

			switch o := op.(type) {
			case FuncDecl:
				qualified := mod.Name + "." + o.Name
				_, dupInFile := file.FunctionIndex[qualified]
			if _, dupEarlier := program.FunctionIndex(qualified); dupInFile || dupEarlier {
					return Program{}, fmt.Errorf("duplicate function '%s'", qualified)
				}
				file.FunctionIndex[qualified] = index
				currentFunction = o.Name
				file.LabelIndex[currentFunction] = map[string]int{}

			case LabelDeclaration:
				if currentFunction == "" {
					return Program{}, fmt.Errorf("label '%s' declared outside any function in '%s'", o.Name, mod.Name)
				}
				if _, dup := file.LabelIndex[currentFunction][o.Name]; dup {
					return Program{}, fmt.Errorf("duplicate label '%s' in function '%s.%s'", o.Name, mod.Name, currentFunction)
				}
				file.LabelIndex[currentFunction][o.Name] = index

			case MemoryOp:
				if o.Segment == Static && int(o.Offset) > maxStaticOffset {
					maxStaticOffset = int(o.Offset)
				}
			}

			program.Commands = append(program.Commands, op)
		}

		file.End = len(program.Commands)
		program.Files = append(program.Files, file)
		staticBase += uint16(maxStaticOffset + 1)
	}

	return program, nil
}

// EntryPoint returns the command index execution should begin at: Sys.init's command
// index if present, else 0.
func (p *Program) EntryPoint() int {
	if idx, ok := p.FunctionIndex("Sys.init"); ok {
		return idx
	}
	return 0
}

// FunctionIndex looks up a fully-qualified function name ("File.function") across all
// linked files.
func (p *Program) FunctionIndex(qualified string) (int, bool) {
	for _, f := range p.Files {
		if idx, ok := f.FunctionIndex[qualified]; ok {
			return idx, true
		}
	}
	return 0, false
}

// FileAt returns the File record whose command range contains index.
func (p *Program) FileAt(index int) (File, bool) {
	for _, f := range p.Files {
		if index >= f.Start && index < f.End {
			return f, true
		}
	}
	return File{}, false
}

// FileByName returns the File record for the given module name.
func (p *Program) FileByName(name string) (File, bool) {
	for _, f := range p.Files {
		if f.Name == name {
			return f, true
		}
	}
	return File{}, false
}
