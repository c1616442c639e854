package wasmgen

import (
	kratoslog "github.com/go-kratos/kratos/v2/log"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/wasm-runtime/wasm"

	"github.com/clrwasm/clrwasm/clrmeta"
	"github.com/clrwasm/clrwasm/internal/log"
	"github.com/clrwasm/clrwasm/sig"
)

// Options configures a Build call. A nil Options behaves like &Options{}.
type Options struct {
	// Logger receives phase diagnostics (string counts, import/function
	// tallies). Defaults to a stdout logger filtered to error level,
	// matching saferwall-pe's own File.New/NewBytes default.
	Logger kratoslog.Logger
}

// BodyReader resolves a MethodDef row's RVA to the raw bytes its method
// body starts at, bridging the PE envelope the lowering engine otherwise
// never needs to import. The returned slice may run past the body's true
// end; DecodeMethodBody only consumes what its header declares. Phase 4
// calls a BodyReader from multiple goroutines at once, so it must be safe
// for concurrent use; a reader backed by a read-only mmap or byte slice
// always is.
type BodyReader func(rva uint32) ([]byte, error)

type stringCacheEntry struct {
	dataOffset uint32
	byteLength uint32
}

// Lowerer carries the seven section builders and four interning caches
// that accumulate across the build's four ordered phases (spec.md §4.G).
type Lowerer struct {
	img  *clrmeta.Image
	body BodyReader

	mod *Module

	typeCache      map[string]uint32
	signatureCache map[clrmeta.BlobIndex]uint32 // MethodDefSig blob -> type index
	stringCache    map[clrmeta.UserStringIndex]stringCacheEntry
	methodCache    map[clrmeta.RowIndex]uint32
	memberRefCache map[clrmeta.RowIndex]uint32

	importCount int

	logger *log.Helper
}

// Build runs the four-phase construction plan against a decoded image,
// producing a finalized Module ready for Encode. A nil opts behaves like
// &Options{}.
func Build(img *clrmeta.Image, readBody BodyReader, opts *Options) (*Module, error) {
	if opts == nil {
		opts = &Options{}
	}
	l := &Lowerer{
		img:            img,
		body:           readBody,
		mod:            &Module{},
		typeCache:      map[string]uint32{},
		signatureCache: map[clrmeta.BlobIndex]uint32{},
		stringCache:    map[clrmeta.UserStringIndex]stringCacheEntry{},
		methodCache:    map[clrmeta.RowIndex]uint32{},
		memberRefCache: map[clrmeta.RowIndex]uint32{},
		logger:         log.New(opts.Logger),
	}
	if err := l.preloadStrings(); err != nil {
		return nil, err
	}
	l.logger.Infof("preloaded %d user-string data segments", len(l.mod.data))

	if err := l.declareImports(); err != nil {
		return nil, err
	}
	l.logger.Infof("declared %d imports", len(l.mod.imports))

	pending, err := l.declareFunctionHeaders()
	if err != nil {
		return nil, err
	}
	l.logger.Infof("declared %d function headers", len(pending))

	if err := l.lowerBodies(pending); err != nil {
		return nil, err
	}
	l.logger.Infof("lowered %d method bodies", len(pending))
	return l.mod, nil
}

// lowerBodies runs phase 4 over every pending method concurrently (bodies
// are independent of each other once headers are fixed), then writes each
// result into the code section in method-definition order regardless of
// which goroutine finished first (spec.md §5).
func (l *Lowerer) lowerBodies(pending []pendingMethod) error {
	bodies := make([][]wasm.Instruction, len(pending))
	g := new(errgroup.Group)
	for i, p := range pending {
		i, p := i, p
		g.Go(func() error {
			instrs, err := l.lowerBody(p.row)
			if err != nil {
				return err
			}
			bodies[i] = instrs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, p := range pending {
		l.mod.setBody(p.funcIdx, p.params, bodies[i])
	}
	return nil
}

// preloadStrings is phase 1: walk the user-string heap, assigning each
// entry a monotonically increasing data offset and appending its data
// segment.
func (l *Lowerer) preloadStrings() error {
	entries, err := l.img.Heaps.WalkUserStrings()
	if err != nil {
		return err
	}
	var offset uint32
	for _, e := range entries {
		b := []byte(e.Value)
		l.stringCache[e.Index] = stringCacheEntry{dataOffset: offset, byteLength: uint32(len(b))}
		l.mod.addData(offset, b)
		offset += uint32(len(b))
	}
	return nil
}

// declareImports is phase 2: every MemberRef row whose parent is a
// TypeRef becomes a Wasm import.
func (l *Lowerer) declareImports() error {
	for i, row := range l.img.ListTable(clrmeta.TagMemberRef) {
		rowIdx := clrmeta.RowIndex(i + 1)
		class := row.Coded("Class")
		if class.Table != clrmeta.TagTypeRef {
			return ErrUnsupportedMemberRefParent
		}
		typeRef, ok := l.img.ResolveTable(clrmeta.TagTypeRef, class.Row)
		if !ok {
			return ErrUnsupportedMemberRefParent
		}
		namespace, err := l.img.Heaps.RefString(typeRef.String("TypeNamespace"))
		if err != nil {
			return err
		}
		typeName, err := l.img.Heaps.RefString(typeRef.String("TypeName"))
		if err != nil {
			return err
		}
		memberName, err := l.img.Heaps.RefString(row.String("Name"))
		if err != nil {
			return err
		}

		typeIdx, err := l.internSignature(row.Blob("Signature"))
		if err != nil {
			return err
		}

		idx := l.mod.addImport("env", mangle(namespace, typeName, memberName), typeIdx)
		l.memberRefCache[rowIdx] = idx
		l.importCount = len(l.mod.imports)
	}
	return nil
}

type pendingMethod struct {
	funcIdx uint32
	row     *clrmeta.Row
	params  []wasm.ValType
}

// declareFunctionHeaders is phase 3: every TypeDef's owned MethodDef rows
// get a function index, a declared type and an export; bodies are lowered
// afterward by the caller (phase 4), preserving method-definition order.
func (l *Lowerer) declareFunctionHeaders() ([]pendingMethod, error) {
	var pending []pendingMethod
	for i, typeDef := range l.img.ListTable(clrmeta.TagTypeDef) {
		typeDefIdx := clrmeta.RowIndex(i + 1)
		start := typeDef.RowRef("MethodList")
		methods, err := l.img.ResolveMethodList(typeDefIdx)
		if err != nil {
			return nil, err
		}
		if len(methods) == 0 {
			continue
		}
		namespace, err := l.img.Heaps.RefString(typeDef.String("TypeNamespace"))
		if err != nil {
			return nil, err
		}
		typeName, err := l.img.Heaps.RefString(typeDef.String("TypeName"))
		if err != nil {
			return nil, err
		}

		for j, method := range methods {
			methodRowIdx := start + clrmeta.RowIndex(j)

			ms, err := l.decodeSignature(method.Blob("Signature"))
			if err != nil {
				return nil, err
			}
			ft, err := lowerSignature(ms)
			if err != nil {
				return nil, err
			}
			typeIdx := l.mod.internType(ft, l.typeCache)
			l.signatureCache[method.Blob("Signature")] = typeIdx

			methodName, err := l.img.Heaps.RefString(method.String("Name"))
			if err != nil {
				return nil, err
			}
			funcIdx := l.mod.declareFunction(typeIdx, mangle(namespace, typeName, methodName))
			l.methodCache[methodRowIdx] = funcIdx
			pending = append(pending, pendingMethod{funcIdx: funcIdx, row: method, params: ft.Params})
		}
	}
	return pending, nil
}

func (l *Lowerer) decodeSignature(blob clrmeta.BlobIndex) (sig.MethodDefSig, error) {
	raw, err := l.img.Heaps.RefBlob(blob)
	if err != nil {
		return sig.MethodDefSig{}, err
	}
	return sig.DecodeMethodDefSig(raw)
}

// internSignature decodes and lowers the signature at blob, returning its
// interned Wasm type index.
func (l *Lowerer) internSignature(blob clrmeta.BlobIndex) (uint32, error) {
	if idx, ok := l.signatureCache[blob]; ok {
		return idx, nil
	}
	ms, err := l.decodeSignature(blob)
	if err != nil {
		return 0, err
	}
	ft, err := lowerSignature(ms)
	if err != nil {
		return 0, err
	}
	idx := l.mod.internType(ft, l.typeCache)
	l.signatureCache[blob] = idx
	return idx, nil
}
