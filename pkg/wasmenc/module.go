package wasmenc

import "sort"

// ValType is a Wasm value type byte. The translators only ever need i32: Words,
// addresses and booleans all fit in one, sign-extended where the source semantics
// need it.
type ValType byte

const I32 ValType = 0x7f

const (
	secType     = 1
	secFunction = 3
	secMemory   = 5
	secGlobal   = 6
	secExport   = 7
	secCode     = 10
)

const (
	exportFunc   = 0x00
	exportMem    = 0x02
	exportGlobal = 0x03
)

// FuncType is a function signature: parameter types followed by result types.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

func (f FuncType) encode() []byte {
	out := []byte{0x60}
	out = uleb128(out, uint64(len(f.Params)))
	for _, p := range f.Params {
		out = append(out, byte(p))
	}
	out = uleb128(out, uint64(len(f.Results)))
	for _, r := range f.Results {
		out = append(out, byte(r))
	}
	return out
}

// Global is a module-level mutable or immutable i32 cell with a constant initializer.
type Global struct {
	Type    ValType
	Mutable bool
	Init    int32
}

func (g Global) encode() []byte {
	out := []byte{byte(g.Type)}
	if g.Mutable {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	out = append(out, 0x41) // i32.const
	out = sleb128(out, int64(g.Init))
	out = append(out, 0x0B) // end
	return out
}

// Function is one function body: its signature's type index, its extra locals (beyond
// its parameters), and its already-encoded instruction stream (see Instr).
type Function struct {
	TypeIndex uint32
	Locals    []ValType
	Body      []byte
}

func (f Function) encodeCode() []byte {
	// Wasm groups consecutive locals of the same type; the translators only ever
	// request a handful of i32 locals, so one group suffices.
	var body []byte
	if len(f.Locals) == 0 {
		body = uleb128(nil, 0)
	} else {
		body = uleb128(nil, 1)
		body = uleb128(body, uint64(len(f.Locals)))
		body = append(body, byte(I32))
	}
	body = append(body, f.Body...)
	body = append(body, 0x0B) // end

	out := uleb128(nil, uint64(len(body)))
	return append(out, body...)
}

// Module accumulates the fields of one Wasm module: types, functions, a single linear
// memory, globals and the names exported to the host.
type Module struct {
	Types     []FuncType
	Functions []Function
	Globals   []Global
	MemoryMin uint32 // pages (64 KiB each)

	ExportFunc   map[string]uint32
	ExportMemory string
	ExportGlobal map[string]uint32
}

// NewModule returns an empty Module with minPages of linear memory.
func NewModule(minPages uint32) *Module {
	return &Module{
		MemoryMin:    minPages,
		ExportFunc:   map[string]uint32{},
		ExportGlobal: map[string]uint32{},
	}
}

// AddType registers a function signature and returns its type index.
func (m *Module) AddType(t FuncType) uint32 {
	m.Types = append(m.Types, t)
	return uint32(len(m.Types) - 1)
}

// AddFunction registers a function body and returns its function index.
func (m *Module) AddFunction(f Function) uint32 {
	m.Functions = append(m.Functions, f)
	return uint32(len(m.Functions) - 1)
}

// AddGlobal registers a module global and returns its index.
func (m *Module) AddGlobal(g Global) uint32 {
	m.Globals = append(m.Globals, g)
	return uint32(len(m.Globals) - 1)
}

// Encode serializes the module to its canonical binary form.
func (m *Module) Encode() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	typeItems := make([][]byte, len(m.Types))
	for i, t := range m.Types {
		typeItems[i] = t.encode()
	}
	out = append(out, section(secType, vec(typeItems))...)

	funcItems := make([][]byte, len(m.Functions))
	for i, f := range m.Functions {
		funcItems[i] = uleb128(nil, uint64(f.TypeIndex))
	}
	out = append(out, section(secFunction, vec(funcItems))...)

	memItem := append([]byte{0x00}, uleb128(nil, uint64(m.MemoryMin))...)
	out = append(out, section(secMemory, vec([][]byte{memItem}))...)

	globalItems := make([][]byte, len(m.Globals))
	for i, g := range m.Globals {
		globalItems[i] = g.encode()
	}
	out = append(out, section(secGlobal, vec(globalItems))...)

	out = append(out, section(secExport, m.encodeExports())...)

	codeItems := make([][]byte, len(m.Functions))
	for i, f := range m.Functions {
		codeItems[i] = f.encodeCode()
	}
	out = append(out, section(secCode, vec(codeItems))...)

	return out
}

func (m *Module) encodeExports() []byte {
	var items [][]byte
	if m.ExportMemory != "" {
		items = append(items, append(name(m.ExportMemory), exportMem, 0x00))
	}
	for _, n := range sortedKeys(m.ExportFunc) {
		item := append(name(n), exportFunc)
		item = uleb128(item, uint64(m.ExportFunc[n]))
		items = append(items, item)
	}
	for _, n := range sortedKeys(m.ExportGlobal) {
		item := append(name(n), exportGlobal)
		item = uleb128(item, uint64(m.ExportGlobal[n]))
		items = append(items, item)
	}
	return vec(items)
}

func sortedKeys(m map[string]uint32) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func section(id byte, content []byte) []byte {
	out := []byte{id}
	out = uleb128(out, uint64(len(content)))
	return append(out, content...)
}
