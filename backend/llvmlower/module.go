package llvmlower

import (
	"fmt"

	llvmir "github.com/llir/llvm/ir"
	llvmconst "github.com/llir/llvm/ir/constant"
	llvmenum "github.com/llir/llvm/ir/enum"
	llvmtypes "github.com/llir/llvm/ir/types"
	llvmvalue "github.com/llir/llvm/ir/value"

	"github.com/arc-language/core-irgen/ir"
)

// Lowerer walks a finished *ir.Module and builds the equivalent
// github.com/llir/llvm module, one function at a time. It holds only the
// bookkeeping a linear, two-pass consumer needs: declare every function
// and global first (so calls can forward-reference), then fill bodies.
type Lowerer struct {
	src    *ir.Module
	dst    *llvmir.Module
	funcs  []*llvmir.Func
	global []llvmvalue.Value
}

// Lower produces the llir/llvm module for src. It never mutates src.
func Lower(src *ir.Module) (*llvmir.Module, error) {
	l := &Lowerer{src: src, dst: llvmir.NewModule()}
	l.declareGlobals()
	l.declareFuncs()
	for i := range src.Funcs {
		if err := l.lowerFuncBody(i); err != nil {
			return nil, fmt.Errorf("lowering func %q: %w", src.Funcs[i].Name, err)
		}
	}
	return l.dst, nil
}

func (l *Lowerer) declareGlobals() {
	l.global = make([]llvmvalue.Value, len(l.src.Globals))
	for i, g := range l.src.Globals {
		t := LowerType(g.Type)
		gv := l.dst.NewGlobalDef(g.Name, zeroValue(t))
		if g.External {
			gv.Linkage = llvmenum.LinkageExternal
			gv.Init = nil
		}
		if g.IsConstant {
			gv.Immutable = true
		}
		l.global[i] = gv
	}
}

func (l *Lowerer) declareFuncs() {
	l.funcs = make([]*llvmir.Func, len(l.src.Funcs))
	for i, f := range l.src.Funcs {
		args := make([]*llvmir.Param, len(f.Args))
		for j, at := range f.Args {
			args[j] = llvmir.NewParam("", LowerType(at))
		}
		name := f.Name
		if name == "" {
			name = fmt.Sprintf("func%d", i)
		}
		lf := l.dst.NewFunc(name, LowerType(f.Return), args...)
		if f.Vararg {
			lf.Sig.Variadic = true
		}
		if f.Foreign || len(f.Blocks) == 0 {
			lf.Linkage = llvmenum.LinkageExternal
		}
		l.funcs[i] = lf
	}
}

// zeroValue produces a zeroinitializer-equivalent constant for t, used as
// every global's provisional initializer (a later pass in a full backend
// would replace it with the IrValue-derived constant; this demonstration
// only needs a type-correct placeholder to prove the type lowering).
func zeroValue(t llvmtypes.Type) llvmconst.Constant {
	return llvmconst.NewZeroInitializer(t)
}
