package ir

// GlobalVariable is a module-scope storage location with an initializer.
type GlobalVariable struct {
	valueBase
	NameStr  string
	ElemType Type
	Init     Constant
	Parent   *Module
}

// Module owns the ordered function and global lists, and interns types and
// constants for its own lifetime (§3.3). Names of functions and globals
// are unique within a module.
type Module struct {
	Functions []*Function
	Globals   []*GlobalVariable
	MainName  string

	funcByName   map[string]*Function
	globalByName map[string]*GlobalVariable

	types  map[string]Type
	ints   map[string]map[int64]*ConstInt
	floats map[float64]*ConstFloat
	zeros  map[string]*ConstZero
	undefs map[string]*ConstUndef
}

// NewModule returns an empty module with its type/constant interners ready.
func NewModule() *Module {
	return &Module{
		funcByName:   make(map[string]*Function),
		globalByName: make(map[string]*GlobalVariable),
		types:        make(map[string]Type),
		ints:         make(map[string]map[int64]*ConstInt),
		floats:       make(map[float64]*ConstFloat),
		zeros:        make(map[string]*ConstZero),
		undefs:       make(map[string]*ConstUndef),
	}
}

// NewFunction declares a function (initially external: no blocks) and adds
// it to the module. Invariant: fn.NameStr must be unique in the module.
func (m *Module) NewFunction(name string, retType Type, paramTypes []Type, paramNames []string) *Function {
	Invariant(m.funcByName[name] == nil, "duplicate function name %q", name)
	fn := &Function{NameStr: name, RetType: retType, Parent: m}
	fn.init(fn, m.NewFuncType(retType, paramTypes))
	for i, pt := range paramTypes {
		arg := &Argument{Index: i, Parent: fn}
		arg.init(arg, pt)
		if i < len(paramNames) {
			arg.SetName(paramNames[i])
		}
		fn.Params = append(fn.Params, arg)
	}
	m.Functions = append(m.Functions, fn)
	m.funcByName[name] = fn
	if name == "main" {
		m.MainName = name
	}
	return fn
}

// FindFunction looks up a function by name.
func (m *Module) FindFunction(name string) *Function { return m.funcByName[name] }

// Main returns the module's distinguished main function, if any.
func (m *Module) Main() *Function {
	if m.MainName == "" {
		return nil
	}
	return m.funcByName[m.MainName]
}

// RemoveFunction deletes fn from the module, provided it is unused
// (DCE's global sweep never removes main).
func (m *Module) RemoveFunction(fn *Function) {
	Invariant(len(fn.Uses()) == 0, "removing function %q with remaining uses", fn.NameStr)
	delete(m.funcByName, fn.NameStr)
	for i, x := range m.Functions {
		if x == fn {
			m.Functions = append(m.Functions[:i], m.Functions[i+1:]...)
			return
		}
	}
}

// NewGlobal declares a global variable with the given initializer.
func (m *Module) NewGlobal(name string, elemType Type, init Constant) *GlobalVariable {
	Invariant(m.globalByName[name] == nil, "duplicate global name %q", name)
	g := &GlobalVariable{NameStr: name, ElemType: elemType, Init: init, Parent: m}
	g.init(g, m.NewPointer(elemType))
	m.Globals = append(m.Globals, g)
	m.globalByName[name] = g
	return g
}

// RemoveGlobal deletes g from the module, provided it is unused.
func (m *Module) RemoveGlobal(g *GlobalVariable) {
	Invariant(len(g.Uses()) == 0, "removing global %q with remaining uses", g.NameStr)
	delete(m.globalByName, g.NameStr)
	for i, x := range m.Globals {
		if x == g {
			m.Globals = append(m.Globals[:i], m.Globals[i+1:]...)
			return
		}
	}
}

// Function and GlobalVariable are Values too (their "type" being a
// function-pointer/pointer respectively), so they must implement Name to
// satisfy the Value interface without shadowing the ordinary field access
// callers expect (NameStr is the field; Name()/SetName() present the Value
// view).
func (f *Function) Name() string        { return f.NameStr }
func (f *Function) SetName(n string)    { f.NameStr = n }
func (g *GlobalVariable) Name() string     { return g.NameStr }
func (g *GlobalVariable) SetName(n string) { g.NameStr = n }
