// Package irgen drives AST-to-IR generation end to end (spec.md §2
// "Control flow", §4.5–§4.9): type mapping, global declaration, function
// skeletons, job-list draining, RTTI emission and relocation.
package irgen

import (
	"sort"

	"golang.org/x/exp/slices"

	"github.com/arc-language/core-irgen/ast"
	"github.com/arc-language/core-irgen/builder"
	"github.com/arc-language/core-irgen/diag"
	"github.com/arc-language/core-irgen/ir"
	"github.com/arc-language/core-irgen/mgmt"
	"github.com/arc-language/core-irgen/options"
	"github.com/arc-language/core-irgen/rtti"
	"github.com/arc-language/core-irgen/typeresolve"
)

// FuncCandidate is one overload of a declared name: its AST/IR id pair and
// the signature find_func_conforming tests argument conforming against
// (spec.md §4.6).
type FuncCandidate struct {
	AstFuncID ast.FuncID
	IrFuncID  int
	ArgTypes  []ir.IrType
	Variadic  bool
	Func      *ast.Func
}

type funcMappingEntry struct {
	name       string
	candidates []FuncCandidate
}

// job is one pending function body (spec.md glossary "Job list").
type job struct {
	astFunc  *ast.Func
	irFuncID int
}

// Generator is the ir_gen driver's state: the module under construction,
// the type map, the management-method registry, the overload mapping
// table, the job list, and the pending RTTI relocations.
type Generator struct {
	Module   *ir.Module
	TypeMap  *typeresolve.Map
	Methods  *mgmt.Registry
	Opts     options.Options

	ast         *ast.Ast
	polyByName  map[string]*ast.PolymorphicComposite
	polyFuncs   []*ast.Func
	mappings    []funcMappingEntry
	mappingsOK  bool
	jobs        []job
	rttiTable   *rtti.Table
	rttiPending []pendingRtti
}

// pendingRtti is a `typeinfo T` reference recorded during function-body
// generation, before the rtti.Table exists (rtti.Build runs only after
// every body is generated — spec.md §2 steps 4-5). emitRTTI wires each
// one into the table via rtti.Table.RttiFor once it is built, so the
// usual relocation pass patches it like any other reference.
type pendingRtti struct {
	typeName string
	slot     *ir.IrValue
}

func NewGenerator(a *ast.Ast, opts options.Options) *Generator {
	g := &Generator{
		Module:  ir.NewModule(),
		TypeMap: typeresolve.NewMap(),
		Methods: mgmt.NewRegistry(),
		Opts:    opts,
		ast:     a,
	}
	g.polyByName = make(map[string]*ast.PolymorphicComposite, len(a.PolymorphicComposites))
	for _, pc := range a.PolymorphicComposites {
		g.polyByName[pc.Name] = pc
	}
	return g
}

// PolymorphicComposite implements typeresolve.Templates.
func (g *Generator) PolymorphicComposite(name string) (ast.PolymorphicComposite, bool) {
	pc, ok := g.polyByName[name]
	if !ok {
		return ast.PolymorphicComposite{}, false
	}
	return *pc, true
}

// Generate runs the full pipeline described in spec.md §2 and returns the
// finished module, or the first hard diagnostic encountered.
func Generate(obj *ast.Object, opts options.Options) (*ir.Module, *diag.Error) {
	g := NewGenerator(obj.AST, opts)

	if err := g.buildTypeMap(); err != nil {
		return nil, err
	}
	if err := g.declareGlobals(); err != nil {
		return nil, err
	}
	if err := g.genFunctionSkeletons(); err != nil {
		return nil, err
	}
	if err := g.drainJobList(); err != nil {
		return nil, err
	}
	if err := g.emitRTTI(); err != nil {
		return nil, err
	}
	return g.Module, nil
}

// buildTypeMap implements spec.md §4.2 "Build phase".
func (g *Generator) buildTypeMap() *diag.Error {
	diag.Log.Debug("building type map")
	g.TypeMap.SeedPrimitives()
	for _, c := range g.ast.Composites {
		g.TypeMap.SeedComposite(c.Name, ast.NoLocation)
	}
	for _, e := range g.ast.Enums {
		g.TypeMap.SeedEnum(e.Name, ast.NoLocation)
	}
	if err := g.TypeMap.Sort(); err != nil {
		return err
	}
	for _, c := range g.ast.Composites {
		t, err := typeresolve.LowerBone(c.Layout, g.TypeMap, g, nil)
		if err != nil {
			return err
		}
		g.TypeMap.Fill(c.Name, t)
	}

	strType, err := g.TypeMap.StringStructType()
	if err != nil {
		return err
	}
	g.Module.Common.StringStruct = strType
	g.Module.Common.Usize = ir.U64
	g.Module.Common.Bool = ir.Bool
	g.Module.Common.VariadicArray = ir.StructureType{
		Name: "VariadicArray",
		Subtypes: []ir.IrType{ir.OpaquePtr, ir.U64, ir.U64, ir.OpaquePtr},
	}
	return nil
}

func (g *Generator) declareGlobals() *diag.Error {
	for _, gl := range g.ast.Globals {
		t, err := typeresolve.ResolveType(gl.Type, g.TypeMap, g, nil)
		if err != nil {
			return err
		}
		g.Module.AddGlobal(ir.Global{
			Name:        gl.Name,
			Type:        t,
			ThreadLocal: gl.Traits&ast.GlobalThreadLocal != 0,
			External:    gl.Traits&ast.GlobalExternal != 0,
		})
	}
	return nil
}

// genFunctionSkeletons implements spec.md §2 step 3: signature/argument
// types/traits for every non-polymorphic function, then sorts the
// overload-mapping table for binary search (spec.md §5). Polymorphic
// functions get no skeleton here — find_func_conforming instantiates them
// on demand the first time a call site's arguments solve their catalog
// (spec.md §4.8) — but they are recorded so genPolyCall can find them.
func (g *Generator) genFunctionSkeletons() *diag.Error {
	for _, f := range g.ast.Funcs {
		if f.IsPolymorphic() {
			g.registerPolyFunc(f)
			continue
		}
		if _, err := g.funcHead(f); err != nil {
			return err
		}
	}
	g.sortMappings()
	if g.ast.Common.HasMain {
		g.Module.Common.AstMainID = int(g.ast.Common.MainID)
	}
	return nil
}

// funcHead builds a function's IR skeleton (signature, traits) and
// registers it into the overload mapping table and job list — the step
// instantiate_poly_func also calls for freshly cloned polymorphic
// functions (spec.md §4.8).
func (g *Generator) funcHead(f *ast.Func) (FuncCandidate, *diag.Error) {
	argTypes := make([]ir.IrType, len(f.Args))
	for i, p := range f.Args {
		t, err := typeresolve.ResolveType(p.Type, g.TypeMap, g, nil)
		if err != nil {
			return FuncCandidate{}, err
		}
		argTypes[i] = t
	}
	retType, err := typeresolve.ResolveType(f.ReturnType, g.TypeMap, g, nil)
	if err != nil {
		return FuncCandidate{}, err
	}

	irf := ir.IrFunc{
		Name:     g.symbolName(f),
		Args:     argTypes,
		Return:   retType,
		Vararg:   f.Traits.Has(ast.TraitVararg),
		Foreign:  f.Traits.Has(ast.TraitForeign),
		Stdcall:  f.Traits.Has(ast.TraitStdcall),
		ExportAs: f.ExportAs,
	}
	irFuncID := g.Module.AddFunc(irf)

	candidate := FuncCandidate{AstFuncID: f.ID, IrFuncID: irFuncID, ArgTypes: argTypes, Variadic: irf.Vararg, Func: f}
	g.addCandidate(f.Name, candidate)

	if f.Traits.Has(ast.TraitMain) {
		g.Module.Common.HasMain = true
		g.Module.Common.IrMainID = irFuncID
	}

	if !f.Traits.Has(ast.TraitForeign) {
		g.jobs = append(g.jobs, job{astFunc: f, irFuncID: irFuncID})
	}
	return candidate, nil
}

// symbolName picks the backend-facing function name per spec.md §6
// "Backend contract": foreign functions keep their unnamespaced name,
// main becomes "main", exported functions use ExportAs, everything else
// gets a deterministic mangled name.
func (g *Generator) symbolName(f *ast.Func) string {
	switch {
	case f.Traits.Has(ast.TraitForeign):
		return f.Name
	case f.Traits.Has(ast.TraitMain):
		return "main"
	case f.ExportAs != "":
		return f.ExportAs
	default:
		ordinal := 0
		for _, c := range g.mappings {
			if c.name == f.Name {
				ordinal = len(c.candidates)
			}
		}
		nc := NameContext{FuncName: f.Name}
		return nc.MangledName(f.Name, ordinal)
	}
}

func (g *Generator) addCandidate(name string, c FuncCandidate) {
	for i := range g.mappings {
		if g.mappings[i].name == name {
			g.mappings[i].candidates = append(g.mappings[i].candidates, c)
			g.mappingsOK = false
			return
		}
	}
	g.mappings = append(g.mappings, funcMappingEntry{name: name, candidates: []FuncCandidate{c}})
	g.mappingsOK = false
}

func (g *Generator) sortMappings() {
	sort.SliceStable(g.mappings, func(i, j int) bool { return g.mappings[i].name < g.mappings[j].name })
	g.mappingsOK = true
}

// overloadSet binary-searches the sorted mapping table (spec.md §5
// "function ... mapping tables are sorted ... for binary search").
func (g *Generator) overloadSet(name string) ([]FuncCandidate, bool) {
	if !g.mappingsOK {
		g.sortMappings()
	}
	i, ok := slices.BinarySearchFunc(g.mappings, name, func(e funcMappingEntry, n string) int {
		switch {
		case e.name < n:
			return -1
		case e.name > n:
			return 1
		default:
			return 0
		}
	})
	if !ok {
		return nil, false
	}
	return g.mappings[i].candidates, true
}

// drainJobList implements spec.md §2 step 4: drain the job list LIFO,
// generating each function body; polymorphic instantiation may append
// fresh jobs mid-drain (spec.md §5 "job list drains LIFO but produces
// deterministic output because jobs appended during draining carry fresh
// ids").
func (g *Generator) drainJobList() *diag.Error {
	for len(g.jobs) > 0 {
		j := g.jobs[len(g.jobs)-1]
		g.jobs = g.jobs[:len(g.jobs)-1]
		if err := g.genFuncBody(j.astFunc, j.irFuncID); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) genFuncBody(f *ast.Func, irFuncID int) *diag.Error {
	diag.Log.WithField("func", f.Name).Debug("generating body")
	irf := g.Module.Func(irFuncID)
	root := ir.NewRootScope()
	fnScope := root.Child()
	bld := builder.New(g.Module.Pool, irf, fnScope)
	g2 := &funcGen{Generator: g, b: bld, irFuncID: irFuncID, nc: &NameContext{FuncName: f.Name}, allocs: map[int]ir.IrValue{}}

	for i, p := range f.Args {
		id := fnScope.FollowingVarID
		slot := bld.BuildAlloc(irf.Args[i])
		bld.BuildStore(ir.IrValue{Type: irf.Args[i], Data: ir.ArgRef{Index: i}}, slot, ir.SrcLoc{})
		fnScope.Declare(ir.BridgeVar{
			Name:    p.Name,
			AstType: p.Type,
			IrType:  irf.Args[i],
			StackID: id,
			Traits:  varTraitsFor(p.POD),
		})
		g2.allocs[id] = slot
	}

	terminated, err := g2.genStmts(f.Body, fnScope)
	if err != nil {
		return err
	}
	if !terminated {
		if ir.TypesEqual(irf.Return, ir.Void) {
			g2.emitScopeDefers(fnScope)
			if irf.Name == "main" {
				bld.BuildDeinitSvars()
			}
			bld.BuildReturn(ir.IrValue{}, false)
		} else {
			return diag.New(ast.NoLocation, "function %q does not return a value on every path", f.Name)
		}
	}
	return nil
}

func varTraitsFor(pod bool) ir.VarTraits {
	if pod {
		return ir.VarPOD
	}
	return 0
}

// emitRTTI implements spec.md §2 step 5-6 and §4.9.
func (g *Generator) emitRTTI() *diag.Error {
	if g.Opts.Traits.NoTypeinfo {
		g.Module.Common.HasRttiArray = false
		return nil
	}
	table, err := rtti.Build(g.ast.TypeTable, g.TypeMap)
	if err != nil {
		return err
	}
	g.rttiTable = table
	for _, p := range g.rttiPending {
		table.RttiFor(p.typeName, p.slot)
	}
	idx := table.EmitGlobals(g.Module)
	g.Module.Common.RttiArrayIndex = idx
	g.Module.Common.HasRttiArray = true
	return table.Relocate(g.Module)
}
