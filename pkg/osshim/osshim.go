// Package osshim is the host-side replacement for the Jack standard library. Rather
// than linking compiled Math/Screen/Memory/String/Keyboard/Sys .vm files into every
// program, the interpreter recognizes calls to these names and answers them directly,
// the same shortcut the reference emulator takes.
package osshim

import (
	"fmt"

	"hackvm.dev/n2t/pkg/word"
)

// Shim implements vm.OSShim: it owns the allocator's free-list state and the current
// screen draw color, both of which persist across calls within one run.
type Shim struct {
	memory Allocator
	screen Screen
}

// New returns a Shim with a fresh allocator covering the heap region between the
// static/stack area and the memory-mapped screen, and the default (black) draw color.
func New() *Shim {
	return &Shim{
		memory: NewAllocator(HeapStart, word.SCREEN-HeapStart),
		screen: Screen{Color: true},
	}
}

// HeapStart is the first RAM address available to Memory.alloc / Array.new, matching
// the reference runtime's static-plus-stack reservation.
const HeapStart word.Word = 2048

// call is a shim function taking the caller's argument segment (already resolved to
// concrete RAM addresses by argBase) and returning the VM call's result word.
type call func(ram *word.RAM, args argList) (word.Word, error)

// argList is a thin accessor over the pushed call arguments, so a handler never has to
// think in terms of SP/ARG arithmetic — it just asks for argument i.
type argList struct {
	ram     *word.RAM
	argBase word.Word
	n       int
}

func (a argList) get(i int) word.Word {
	return a.ram[a.argBase+word.Word(i)]
}

func (a argList) set(i int, v word.Word) {
	a.ram[a.argBase+word.Word(i)] = v
}

// Dispatch answers a VM call by fully-qualified function name. handled is false for
// any name this shim doesn't recognize, telling the interpreter to resolve it as an
// ordinary linked VM function instead.
func (s *Shim) Dispatch(ram *word.RAM, name string, argBase word.Word, nArgs int) (word.Word, bool, error) {
	handler, ok := dispatchTable[name]
	if !ok {
		return 0, false, nil
	}
	result, err := handler(s, ram, argList{ram: ram, argBase: argBase, n: nArgs})
	return result, true, err
}

type shimCall func(s *Shim, ram *word.RAM, args argList) (word.Word, error)

var dispatchTable = map[string]shimCall{
	"Math.init":     noop,
	"Math.multiply": func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return mathMultiply(a) },
	"Math.divide":   func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return mathDivide(a) },
	"Math.min":      func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return mathMin(a), nil },
	"Math.max":      func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return mathMax(a), nil },
	"Math.sqrt":     func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return mathSqrt(a) },
	"Math.abs":      func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return mathAbs(a), nil },

	"Keyboard.keyPressed": func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return ram[word.KBD], nil },

	"Screen.init":          noop,
	"Screen.clearScreen":   func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return s.screen.clear(ram) },
	"Screen.setColor":      func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return s.screen.setColor(a) },
	"Screen.drawPixel":     func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return s.screen.drawPixel(ram, a) },
	"Screen.drawLine":      func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return s.screen.drawLine(ram, a) },
	"Screen.drawRectangle": func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return s.screen.drawRectangle(ram, a) },
	"Screen.drawCircle":    func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return s.screen.drawCircle(ram, a) },

	"Memory.init":   noop,
	"Memory.peek":   func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return ram[a.get(0)], nil },
	"Memory.poke":   func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { ram[a.get(0)] = a.get(1); return 0, nil },
	"Memory.alloc":  func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return s.memory.Alloc(a.get(0)) },
	"Memory.deAlloc": func(s *Shim, ram *word.RAM, a argList) (word.Word, error) {
		return 0, s.memory.Dealloc(a.get(0))
	},
	"Array.new":     func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return s.memory.Alloc(a.get(0)) },
	"Array.dispose": func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return 0, s.memory.Dealloc(a.get(0)) },

	"String.new":           func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return s.stringNew(ram, a) },
	"String.dispose":       func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return 0, s.memory.Dealloc(a.get(0)) },
	"String.length":        func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return stringLength(ram, a), nil },
	"String.charAt":        func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return stringCharAt(ram, a) },
	"String.setCharAt":     func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return stringSetCharAt(ram, a) },
	"String.appendChar":    func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return stringAppendChar(ram, a) },
	"String.eraseLastChar": func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return stringEraseLastChar(ram, a) },
	"String.intValue":      func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return stringIntValue(ram, a) },
	"String.setInt":        func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return stringSetInt(ram, a) },
	"String.backSpace":     func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return 129, nil },
	"String.doubleQuote":   func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return 34, nil },
	"String.newLine":       func(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return 128, nil },

	"Sys.error": func(s *Shim, ram *word.RAM, a argList) (word.Word, error) {
		return 0, fmt.Errorf("Sys.error called with code %d", a.get(0))
	},
}

func noop(s *Shim, ram *word.RAM, a argList) (word.Word, error) { return 0, nil }
