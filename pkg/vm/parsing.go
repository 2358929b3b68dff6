package vm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var segmentNames = map[string]SegmentType{
	"argument": Argument,
	"local":    Local,
	"static":   Static,
	"constant": Constant,
	"this":     This,
	"that":     That,
	"temp":     Temp,
	"pointer":  Pointer,
}

var arithNames = map[string]ArithOpType{
	"eq": Eq, "gt": Gt, "lt": Lt,
	"add": Add, "sub": Sub, "neg": Neg,
	"not": Not, "and": And, "or": Or,
}

// Parser is a straightforward line-based tokenizer for VM text: one Operation per
// non-blank, non-comment line, tokens split on whitespace. Unlike the Hack assembler's
// goparsec front end, the VM grammar has no nesting or lookahead to speak of (spec's
// own characterization of "external interfaces" calls VM tokenizers "straightforward"),
// so a parser-combinator library would be pure overhead here.
type Parser struct {
	reader io.Reader
	name   string // module name, e.g. "Main" for Main.vm
}

// NewParser returns a Parser that reads VM text from r and labels the resulting Module
// with name (conventionally the source file's basename without extension).
func NewParser(r io.Reader, name string) Parser {
	return Parser{reader: r, name: name}
}

// Parse scans every line of the input and returns the resulting Module.
func (p *Parser) Parse() (Module, error) {
	module := Module{Name: p.name}

	scanner := bufio.NewScanner(p.reader)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := stripComment(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		op, err := p.parseLine(fields)
		if err != nil {
			return Module{}, fmt.Errorf("%s:%d: %w", p.name, lineNo, err)
		}
		module.Operations = append(module.Operations, op)
	}
	if err := scanner.Err(); err != nil {
		return Module{}, fmt.Errorf("cannot read from 'io.Reader': %w", err)
	}

	return module, nil
}

func stripComment(line string) string {
	if i := strings.Index(line, "//"); i >= 0 {
		return line[:i]
	}
	return line
}

func (p *Parser) parseLine(fields []string) (Operation, error) {
	switch fields[0] {
	case "push", "pop":
		return parseMemoryOp(fields)
	case "eq", "gt", "lt", "add", "sub", "neg", "not", "and", "or":
		if len(fields) != 1 {
			return nil, fmt.Errorf("'%s' takes no operands", fields[0])
		}
		return ArithmeticOp{Operation: arithNames[fields[0]]}, nil
	case "label":
		if len(fields) != 2 {
			return nil, fmt.Errorf("expected 'label <name>', got %q", strings.Join(fields, " "))
		}
		return LabelDeclaration{Name: fields[1]}, nil
	case "goto", "if-goto":
		if len(fields) != 2 {
			return nil, fmt.Errorf("expected '%s <label>', got %q", fields[0], strings.Join(fields, " "))
		}
		return GotoOp{Jump: JumpType(fields[0]), Label: fields[1]}, nil
	case "function":
		if len(fields) != 3 {
			return nil, fmt.Errorf("expected 'function <name> <locals>', got %q", strings.Join(fields, " "))
		}
		n, err := strconv.ParseUint(fields[2], 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid local count %q: %w", fields[2], err)
		}
		_, fname := splitQualified(fields[1])
		return FuncDecl{Name: fname, NLocal: uint8(n)}, nil
	case "call":
		if len(fields) != 3 {
			return nil, fmt.Errorf("expected 'call <name> <args>', got %q", strings.Join(fields, " "))
		}
		n, err := strconv.ParseUint(fields[2], 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid argument count %q: %w", fields[2], err)
		}
		return FuncCallOp{Name: fields[1], NArgs: uint8(n)}, nil
	case "return":
		if len(fields) != 1 {
			return nil, fmt.Errorf("'return' takes no operands")
		}
		return ReturnOp{}, nil
	default:
		return nil, fmt.Errorf("unrecognized command %q", fields[0])
	}
}

func parseMemoryOp(fields []string) (Operation, error) {
	if len(fields) != 3 {
		return nil, fmt.Errorf("expected '%s <segment> <offset>', got %q", fields[0], strings.Join(fields, " "))
	}

	segment, ok := segmentNames[fields[1]]
	if !ok {
		return nil, fmt.Errorf("unrecognized segment %q", fields[1])
	}

	offset, err := strconv.ParseUint(fields[2], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid offset %q: %w", fields[2], err)
	}

	opType := Push
	if fields[0] == "pop" {
		opType = Pop
		if segment == Constant {
			return nil, fmt.Errorf("'constant' segment is not a valid 'pop' target")
		}
	}

	return MemoryOp{Operation: opType, Segment: segment, Offset: uint16(offset)}, nil
}
