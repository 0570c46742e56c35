package ir

import (
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"
)

// Dump renders a human-readable textual listing of the module, the Go
// counterpart of the original's ir_dump.c (walked function-by-function,
// block-by-block, instruction-by-instruction). Unlike ir_dump.c this
// doesn't try to byte-for-byte match a reference compiler's `-dump-ir`
// output; it exists for tests and `--dump-ir`-style debugging, so unknown
// instruction shapes fall back to spew instead of needing a case added
// here for every new variant.
func (m *Module) Dump() string {
	var sb strings.Builder
	for id := range m.Funcs {
		f := &m.Funcs[id]
		fmt.Fprintf(&sb, "func %s(", f.Name)
		for i, a := range f.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(TypeString(a))
		}
		fmt.Fprintf(&sb, ") %s {\n", TypeString(f.Return))
		for bi := range f.Blocks {
			fmt.Fprintf(&sb, "  block%d:\n", bi)
			for ii, instr := range f.Blocks[bi].Instrs {
				fmt.Fprintf(&sb, "    %%%d.%d = %s\n", bi, ii, dumpInstr(instr))
			}
		}
		sb.WriteString("}\n")
	}
	return sb.String()
}

func dumpInstr(i IrInstr) string {
	switch d := i.Data.(type) {
	case BinaryInstr:
		return fmt.Sprintf("%s %s, %s", d.Op, dumpValue(d.A), dumpValue(d.B))
	case UnaryInstr:
		return fmt.Sprintf("unary(%d) %s", d.Op, dumpValue(d.Operand))
	case LoadInstr:
		return "load " + dumpValue(d.Ptr)
	case StoreInstr:
		return fmt.Sprintf("store %s -> %s", dumpValue(d.Value), dumpValue(d.Dest))
	case MemberInstr:
		return fmt.Sprintf("member %s[%d]", dumpValue(d.Subject), d.Index)
	case ArrayAccessInstr:
		return fmt.Sprintf("arrayaccess %s[%s]", dumpValue(d.Subject), dumpValue(d.Index))
	case BrInstr:
		return fmt.Sprintf("br block%d", d.Target)
	case CondBrInstr:
		return fmt.Sprintf("condbr %s, block%d, block%d", dumpValue(d.Cond), d.TrueBlock, d.FalseBlock)
	case RetInstr:
		if d.HasValue {
			return "ret " + dumpValue(d.Value)
		}
		return "ret"
	case UnreachableInstr:
		return "unreachable"
	case CallInstr:
		return fmt.Sprintf("call func#%d(%s)", d.IrFuncID, dumpValues(d.Args))
	case CastInstr:
		return fmt.Sprintf("cast(%d) %s", d.Op, dumpValue(d.Value))
	default:
		return spew.Sdump(d)
	}
}

func dumpValue(v IrValue) string {
	switch d := v.Data.(type) {
	case Literal:
		return fmt.Sprintf("%s 0x%x", TypeString(v.Type), d.Bytes)
	case Result:
		return fmt.Sprintf("%%%d.%d", d.BlockID, d.InstrID)
	case NullPtr, NullPtrOfType:
		return "null"
	default:
		return spew.Sdump(d)
	}
}

func dumpValues(vs []IrValue) string {
	var sb strings.Builder
	for i, v := range vs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(dumpValue(v))
	}
	return sb.String()
}
