package vm

import (
	"fmt"
	"strings"

	"hackvm.dev/n2t/pkg/utils"
	"hackvm.dev/n2t/pkg/word"
)

// Frame identifies one active call: the file and (unqualified) function name currently
// executing at that depth. The frame stack's length equals call depth.
type Frame struct {
	File     string
	Function string
}

// Fault is a fatal runtime error: one raised by the OS shim (division by zero, alloc
// with no hole, a string operation out of bounds, ...), or a call to an undefined
// function, an unresolvable label or an unrecognized command. It surfaces up through Step rather
// than panicking, carrying the failing command index for diagnostics.
type Fault struct {
	Command int
	Err     error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("command %d: %s", f.Command, f.Err)
}
func (f *Fault) Unwrap() error { return f.Err }

// OSShim is the host-provided runtime replacing the Jack standard library. Dispatch is
// consulted by Call before falling back to the linked program's own functions; name is
// the fully-qualified function being called (e.g. "Math.multiply"). handled is false
// when name isn't one this shim recognizes, in which case the interpreter treats the
// call as an ordinary VM function call.
type OSShim interface {
	Dispatch(ram *word.RAM, name string, argBase word.Word, nArgs int) (result word.Word, handled bool, err error)
}

// Interpreter executes a linked Program directly, one command at a time.
type Interpreter struct {
	Program Program
	RAM     word.RAM
	OS      OSShim

	CommandIndex int
	Frames       utils.Stack[Frame]

	currentFile     string
	currentFunction string
}

// NewInterpreter returns an Interpreter ready to run Program p, optionally dispatching
// recognized calls to shim (pass nil to run without OS support — any call to an
// unlinked name is then a link/runtime error).
func NewInterpreter(p Program, shim OSShim) *Interpreter {
	it := &Interpreter{Program: p, OS: shim}
	it.Reset()
	return it
}

// Reset clears RAM (reseeding SP=256), the frame stack, and moves execution back to
// the program's entry point (Sys.init if present, else command index 0).
func (it *Interpreter) Reset() {
	it.RAM.Reset()
	it.Frames = utils.NewStack[Frame]()
	it.CommandIndex = it.Program.EntryPoint()
	it.currentFile, it.currentFunction = "", ""

	if f, ok := it.Program.FileAt(it.CommandIndex); ok {
		it.currentFile = f.Name
	}
	if decl, ok := it.commandAt(it.CommandIndex).(FuncDecl); ok {
		it.currentFunction = decl.Name
		it.Frames.Push(Frame{File: it.currentFile, Function: it.currentFunction})
	}
}

func (it *Interpreter) commandAt(index int) Operation {
	return it.Program.Commands[index]
}

// Step executes the command at CommandIndex and advances. It returns a *Fault if the
// command failed (see Fault).
func (it *Interpreter) Step() error {
	switch op := it.commandAt(it.CommandIndex).(type) {
	case MemoryOp:
		if err := it.stepMemoryOp(op); err != nil {
			return &Fault{Command: it.CommandIndex, Err: err}
		}
		it.CommandIndex++

	case ArithmeticOp:
		it.stepArithmeticOp(op)
		it.CommandIndex++

	case LabelDeclaration:
		it.CommandIndex++

	case GotoOp:
		taken := true
		if op.Jump == Conditional {
			taken = it.pop() != 0
		}
		if taken {
			target, err := it.resolveLabel(op.Label)
			if err != nil {
				return &Fault{Command: it.CommandIndex, Err: err}
			}
			it.CommandIndex = target
		} else {
			it.CommandIndex++
		}

	case FuncDecl:
		for i := uint8(0); i < op.NLocal; i++ {
			it.push(0)
		}
		it.CommandIndex++

	case FuncCallOp:
		if err := it.stepCall(op); err != nil {
			return &Fault{Command: it.CommandIndex, Err: err}
		}

	case ReturnOp:
		it.stepReturn()

	default:
		return &Fault{Command: it.CommandIndex, Err: fmt.Errorf("unrecognized operation '%T'", op)}
	}

	return nil
}

// Run steps up to n times, stopping early on the first Fault.
func (it *Interpreter) Run(n uint64) error {
	for i := uint64(0); i < n; i++ {
		if err := it.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (it *Interpreter) push(v word.Word) {
	sp := it.RAM[word.SP]
	it.RAM[sp] = v
	it.RAM[word.SP] = sp + 1
}

func (it *Interpreter) pop() word.Word {
	sp := it.RAM[word.SP] - 1
	it.RAM[word.SP] = sp
	return it.RAM[sp]
}

func (it *Interpreter) stackTop() *word.Word {
	return &it.RAM[it.RAM[word.SP]-1]
}

func (it *Interpreter) resolveLabel(name string) (int, error) {
	file, ok := it.Program.FileByName(it.currentFile)
	if !ok {
		return 0, fmt.Errorf("current file '%s' not found in linked program", it.currentFile)
	}
	labels, ok := file.LabelIndex[it.currentFunction]
	if !ok {
		return 0, fmt.Errorf("function '%s.%s' declares no labels", it.currentFile, it.currentFunction)
	}
	index, ok := labels[name]
	if !ok {
		return 0, fmt.Errorf("label '%s' not found in function '%s.%s'", name, it.currentFile, it.currentFunction)
	}
	return index, nil
}

func (it *Interpreter) segmentAddr(segment SegmentType, offset uint16) (word.Word, error) {
	switch segment {
	case Local:
		return it.RAM[word.LCL] + word.Word(offset), nil
	case Argument:
		return it.RAM[word.ARG] + word.Word(offset), nil
	case This:
		return it.RAM[word.THIS] + word.Word(offset), nil
	case That:
		return it.RAM[word.THAT] + word.Word(offset), nil
	case Temp:
		return word.TEMP + word.Word(offset), nil
	case Pointer:
		return word.THIS + word.Word(offset), nil
	case Static:
		file, ok := it.Program.FileByName(it.currentFile)
		if !ok {
			return 0, fmt.Errorf("current file '%s' not found in linked program", it.currentFile)
		}
		return word.Word(file.StaticBase) + word.Word(offset), nil
	default:
		return 0, fmt.Errorf("segment '%s' has no RAM address", segment)
	}
}

func (it *Interpreter) stepMemoryOp(op MemoryOp) error {
	if op.Operation == Push {
		if op.Segment == Constant {
			it.push(word.Word(op.Offset))
			return nil
		}
		addr, err := it.segmentAddr(op.Segment, op.Offset)
		if err != nil {
			return err
		}
		it.push(it.RAM[addr])
		return nil
	}

	value := it.pop()
	addr, err := it.segmentAddr(op.Segment, op.Offset)
	if err != nil {
		return err
	}
	it.RAM[addr] = value
	return nil
}

func boolWord(b bool) word.Word {
	if b {
		return -1
	}
	return 0
}

func (it *Interpreter) stepArithmeticOp(op ArithmeticOp) {
	switch op.Operation {
	case Add:
		y := it.pop()
		*it.stackTop() += y
	case Sub:
		y := it.pop()
		*it.stackTop() -= y
	case Neg:
		top := it.stackTop()
		*top = -*top
	case Eq:
		y := it.pop()
		top := it.stackTop()
		*top = boolWord(*top == y)
	case Gt:
		y := it.pop()
		top := it.stackTop()
		*top = boolWord(*top > y)
	case Lt:
		y := it.pop()
		top := it.stackTop()
		*top = boolWord(*top < y)
	case And:
		y := it.pop()
		*it.stackTop() &= y
	case Or:
		y := it.pop()
		*it.stackTop() |= y
	case Not:
		top := it.stackTop()
		*top = ^*top
	}
}

func (it *Interpreter) stepCall(op FuncCallOp) error {
	n := word.Word(op.NArgs)
	argBase := it.RAM[word.SP] - n

	if it.OS != nil {
		if result, handled, err := it.OS.Dispatch(&it.RAM, op.Name, argBase, int(op.NArgs)); handled {
			if err != nil {
				return err
			}
			// Behaves as if a matching Return already ran: args are consumed and the
			// result replaces them on the stack; no frame was ever pushed.
			it.RAM[word.SP] = argBase
			it.push(result)
			it.CommandIndex++
			return nil
		}
	}

	target, ok := it.Program.FunctionIndex(op.Name)
	if !ok {
		return fmt.Errorf("call to undefined function '%s'", op.Name)
	}

	it.push(word.Word(it.CommandIndex + 1))
	it.push(it.RAM[word.LCL])
	it.push(it.RAM[word.ARG])
	it.push(it.RAM[word.THIS])
	it.push(it.RAM[word.THAT])

	it.RAM[word.LCL] = it.RAM[word.SP]
	it.RAM[word.ARG] = argBase

	calleeFile, calleeFunc := splitQualified(op.Name)
	if f, ok := it.Program.FileByName(calleeFile); ok {
		it.currentFile = f.Name
	}
	it.currentFunction = calleeFunc
	it.Frames.Push(Frame{File: it.currentFile, Function: it.currentFunction})

	it.CommandIndex = target
	return nil
}

func (it *Interpreter) stepReturn() {
	frame := it.RAM[word.LCL]
	returnAddr := it.RAM[frame-5]
	returnValue := it.pop()

	it.RAM[it.RAM[word.ARG]] = returnValue
	it.RAM[word.SP] = it.RAM[word.ARG] + 1

	it.RAM[word.THAT] = it.RAM[frame-1]
	it.RAM[word.THIS] = it.RAM[frame-2]
	it.RAM[word.ARG] = it.RAM[frame-3]
	it.RAM[word.LCL] = it.RAM[frame-4]

	it.Frames.Pop()
	if caller, err := it.Frames.Top(); err == nil {
		it.currentFile, it.currentFunction = caller.File, caller.Function
	}

	it.CommandIndex = int(returnAddr)
}

func splitQualified(name string) (file, function string) {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}
