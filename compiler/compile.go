// Package compiler orchestrates the full pipeline: PE envelope -> CLI
// metadata -> Wasm module, the way saferwall-pe's File.Parse runs its
// directory parsers as a sequence of named phases and aborts on the first
// hard failure.
package compiler

import (
	"fmt"

	kratoslog "github.com/go-kratos/kratos/v2/log"

	"github.com/clrwasm/clrwasm/clrmeta"
	"github.com/clrwasm/clrwasm/internal/log"
	"github.com/clrwasm/clrwasm/pefile"
	"github.com/clrwasm/clrwasm/wasmgen"
)

// Options configures one Compile call. A nil Options behaves like &Options{}.
type Options struct {
	// Logger receives diagnostics about the compile. Defaults to a stdout
	// logger filtered to error level, matching saferwall-pe's own default.
	Logger kratoslog.Logger
}

// Compile runs the whole pipeline over one in-memory managed PE image,
// producing a finalized Wasm 1.0 binary module.
func Compile(image []byte, opts *Options) ([]byte, error) {
	if opts == nil {
		opts = &Options{}
	}
	helper := log.New(opts.Logger)

	helper.Infof("decoding CLI metadata, %d bytes", len(image))
	img, err := clrmeta.Decode(image, &clrmeta.Options{Logger: opts.Logger})
	if err != nil {
		helper.Errorf("metadata decode failed: %v", err)
		return nil, fmt.Errorf("compiler: decode metadata: %w", err)
	}

	f, err := pefile.OpenBytes(image)
	if err != nil {
		return nil, fmt.Errorf("compiler: reopen image for body reads: %w", err)
	}

	helper.Infof("lowering CIL to Wasm")
	mod, err := wasmgen.Build(img, bodyReader(f), &wasmgen.Options{Logger: opts.Logger})
	if err != nil {
		helper.Errorf("lowering failed: %v", err)
		return nil, fmt.Errorf("compiler: lower to wasm: %w", err)
	}

	return mod.Encode(), nil
}

// bodyReader adapts a pefile.File into the wasmgen.BodyReader callback,
// the one bridge between the PE envelope and the lowering engine.
func bodyReader(f *pefile.File) wasmgen.BodyReader {
	return func(rva uint32) ([]byte, error) {
		off, err := f.GetOffsetFromRva(rva)
		if err != nil {
			return nil, err
		}
		return f.ReadBytes(off, f.Size()-off)
	}
}
