// Package log wires up the kratos logging helper the way saferwall-pe's
// file.go sets up its logger field, factored out since clrmeta, wasmgen and
// compiler all need the same helper.
package log

import (
	"os"

	"github.com/go-kratos/kratos/v2/log"
)

// Helper is the logger handle threaded through the decode and lowering
// phases; it is never nil.
type Helper = log.Helper

// New builds a Helper around lg, defaulting to a stdout logger filtered to
// error level when lg is nil.
func New(lg log.Logger) *Helper {
	if lg == nil {
		lg = log.NewStdLogger(os.Stdout)
		return log.NewHelper(log.NewFilter(lg, log.FilterLevel(log.LevelError)))
	}
	return log.NewHelper(lg)
}
