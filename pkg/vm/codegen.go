package vm

import "fmt"

// ----------------------------------------------------------------------------
// Code Generator

// CodeGenerator renders a Module's Operations back to canonical VM text, one line per
// Operation. It is the inverse of the parser, used both to pretty-print a parsed
// module and to satisfy the "parse -> emit -> parse is fixed after one iteration"
// round-trip property.
type CodeGenerator struct {
	module Module
}

// NewCodeGenerator returns a CodeGenerator for the given Module.
func NewCodeGenerator(m Module) CodeGenerator {
	return CodeGenerator{module: m}
}

// Generate renders every Operation in the module to its canonical textual form.
func (cg *CodeGenerator) Generate() ([]string, error) {
	lines := make([]string, 0, len(cg.module.Operations))

	for _, operation := range cg.module.Operations {
		var generated string
		var err error

		switch op := operation.(type) {
		case MemoryOp:
			generated, err = cg.GenerateMemoryOp(op)
		case ArithmeticOp:
			generated, err = cg.GenerateArithmeticOp(op)
		case LabelDeclaration:
			generated, err = cg.GenerateLabelDeclaration(op)
		case GotoOp:
			generated, err = cg.GenerateGotoOp(op)
		case FuncDecl:
			generated, err = cg.GenerateFuncDecl(op)
		case ReturnOp:
			generated, err = cg.GenerateReturnOp(op)
		case FuncCallOp:
			generated, err = cg.GenerateFuncCallOp(op)
		default:
			err = fmt.Errorf("unrecognized operation '%T'", operation)
		}

		if err != nil {
			return nil, err
		}
		lines = append(lines, generated)
	}

	return lines, nil
}

// GenerateMemoryOp converts a MemoryOp to "{push|pop} {segment} {offset}".
func (cg *CodeGenerator) GenerateMemoryOp(op MemoryOp) (string, error) {
	if op.Operation == Pop && op.Segment == Constant {
		return "", fmt.Errorf("'constant' segment is not a valid 'pop' target")
	}
	if op.Segment == Pointer && op.Offset > 1 {
		return "", fmt.Errorf("invalid 'pointer' offset, got %d", op.Offset)
	}
	if op.Segment == Temp && op.Offset > 7 {
		return "", fmt.Errorf("invalid 'temp' offset, got %d", op.Offset)
	}

	return fmt.Sprintf("%s %s %d", string(op.Operation), string(op.Segment), op.Offset), nil
}

// GenerateArithmeticOp converts an ArithmeticOp to its bare mnemonic.
func (cg *CodeGenerator) GenerateArithmeticOp(op ArithmeticOp) (string, error) {
	return string(op.Operation), nil
}

// GenerateLabelDeclaration converts a LabelDeclaration to "label {name}".
func (cg *CodeGenerator) GenerateLabelDeclaration(op LabelDeclaration) (string, error) {
	if op.Name == "" {
		return "", fmt.Errorf("unable to produce empty label declaration")
	}
	return fmt.Sprintf("label %s", op.Name), nil
}

// GenerateGotoOp converts a GotoOp to "{goto|if-goto} {label}".
func (cg *CodeGenerator) GenerateGotoOp(op GotoOp) (string, error) {
	if op.Label == "" {
		return "", fmt.Errorf("unable to produce empty jump label")
	}
	if op.Jump != Unconditional && op.Jump != Conditional {
		return "", fmt.Errorf("unrecognized jump type '%s'", op.Jump)
	}
	return fmt.Sprintf("%s %s", string(op.Jump), op.Label), nil
}

// GenerateFuncDecl converts a FuncDecl to "function {name} {n_locals}".
func (cg *CodeGenerator) GenerateFuncDecl(op FuncDecl) (string, error) {
	if op.Name == "" {
		return "", fmt.Errorf("unable to produce empty function declaration")
	}
	return fmt.Sprintf("function %s %d", op.Name, op.NLocal), nil
}

// GenerateReturnOp converts a ReturnOp to the bare "return" mnemonic.
func (cg *CodeGenerator) GenerateReturnOp(op ReturnOp) (string, error) {
	return "return", nil
}

// GenerateFuncCallOp converts a FuncCallOp to "call {name} {n_args}".
func (cg *CodeGenerator) GenerateFuncCallOp(op FuncCallOp) (string, error) {
	if op.Name == "" {
		return "", fmt.Errorf("unable to produce empty function call")
	}
	return fmt.Sprintf("call %s %d", op.Name, op.NArgs), nil
}
