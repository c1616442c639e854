package wasmgen

import (
	"github.com/wippyai/wasm-runtime/wasm"
)

// Module is the write-once accumulator the lowering engine fills across its
// four build phases (spec.md §4.G); Encode hands the accumulated sections
// to wasm.Module, the library's own binary assembler, rather than
// re-implementing section encoding here.
type Module struct {
	types   []wasm.FuncType
	imports []wasm.Import
	funcs   []uint32 // type index per locally-defined function, declaration order
	exports []wasm.Export
	code    []wasm.FuncBody // one entry per local function, same order as funcs
	data    []wasm.DataSegment
}

// funcTypeKey renders a FuncType as a comparable string, used as the
// Lowerer's typeCache interning key: two signatures that lower to the same
// flat Wasm shape share one type-section entry (spec.md §9 "structural
// equality over the sum type").
func funcTypeKey(ft wasm.FuncType) string {
	buf := make([]byte, 0, len(ft.Params)+len(ft.Results)+1)
	for _, v := range ft.Params {
		buf = append(buf, byte(v))
	}
	buf = append(buf, '|')
	for _, v := range ft.Results {
		buf = append(buf, byte(v))
	}
	return string(buf)
}

// internType returns ft's type index, appending a new type-section entry
// the first time this flat shape is seen.
func (m *Module) internType(ft wasm.FuncType, cache map[string]uint32) uint32 {
	k := funcTypeKey(ft)
	if idx, ok := cache[k]; ok {
		return idx
	}
	idx := uint32(len(m.types))
	m.types = append(m.types, ft)
	cache[k] = idx
	return idx
}

func (m *Module) addImport(module, field string, typeIdx uint32) uint32 {
	idx := uint32(len(m.imports))
	m.imports = append(m.imports, wasm.Import{Module: module, Name: field, Kind: wasm.KindFunc, TypeIdx: typeIdx})
	return idx
}

// declareFunction assigns the next function index and records its header
// (type, export name); the body is filled in separately by setBody once
// phase 4 has lowered it, so header declaration and body lowering can
// happen as two distinct passes.
func (m *Module) declareFunction(typeIdx uint32, exportName string) uint32 {
	idx := uint32(len(m.imports) + len(m.funcs))
	m.funcs = append(m.funcs, typeIdx)
	m.code = append(m.code, wasm.FuncBody{})
	m.exports = append(m.exports, wasm.Export{Name: exportName, Kind: wasm.KindFunc, Index: idx})
	return idx
}

// setBody fills in the body previously reserved by declareFunction. Locals
// carries one placeholder local per parameter value type (spec.md §4.G and
// §9's stated policy); Body is the already-lowered instruction stream.
func (m *Module) setBody(funcIdx uint32, locals []wasm.ValType, body []wasm.Instruction) {
	m.code[int(funcIdx)-len(m.imports)] = wasm.FuncBody{Locals: locals, Body: body}
}

func (m *Module) addData(offset uint32, b []byte) {
	m.data = append(m.data, wasm.DataSegment{MemIdx: 0, Offset: int32(offset), Init: b})
}

// Encode finalizes the module: exactly one linear memory with minimum 1
// page and no maximum (spec.md §4.G "Finalize"), handed to wasm.Module's
// own encoder for the actual binary assembly.
func (m *Module) Encode() []byte {
	wm := &wasm.Module{
		Types:   m.types,
		Imports: m.imports,
		Funcs:   m.funcs,
		Memories: []wasm.MemoryType{
			{Min: 1, HasMax: false},
		},
		Exports: m.exports,
		Code:    m.code,
		Data:    m.data,
	}
	return wm.Encode()
}
