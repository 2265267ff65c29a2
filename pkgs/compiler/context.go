package compiler

// aliasTable holds the bindings of one lexical frame. Number and scope
// aliases live in disjoint namespaces; rebinding a name shadows the earlier
// binding in the same namespace only.
type aliasTable struct {
	numbers map[string]uint32
	scopes  map[string]*NormalizedScope
}

func newAliasTable() aliasTable {
	return aliasTable{
		numbers: make(map[string]uint32),
		scopes:  make(map[string]*NormalizedScope),
	}
}

func (t *aliasTable) addNumber(name string, value uint32) {
	t.numbers[name] = value
}

func (t *aliasTable) addScope(name string, scope *NormalizedScope) {
	t.scopes[name] = scope
}

func (t *aliasTable) findNumber(name string) (uint32, bool) {
	v, ok := t.numbers[name]
	return v, ok
}

func (t *aliasTable) findScope(name string) (*NormalizedScope, bool) {
	s, ok := t.scopes[name]
	return s, ok
}

// Context is the alias environment seen by normalization. MainContext
// implements it for the setup field (top-level bindings become globals);
// ScopeContext implements it for everything else.
type Context interface {
	// Main returns the MainContext this environment belongs to
	Main() *MainContext

	// SubScope creates a child frame. Bindings added to the child are not
	// visible from the parent.
	SubScope() *ScopeContext

	AddNumberAlias(name string, value uint32)
	AddScopeAlias(name string, scope *NormalizedScope)

	// FindNumberAlias resolves a number alias, innermost binding first
	FindNumberAlias(name string) (uint32, bool)
	// FindScopeAlias resolves a scope alias, innermost binding first
	FindScopeAlias(name string) (*NormalizedScope, bool)
}

// MainContext owns the state shared by a whole compilation: the assumed tape
// pointer, the instruction registry and the global aliases exported by the
// setup field.
type MainContext struct {
	pointer      int
	cellMod      uint64
	instructions map[string]Instruction
	globals      aliasTable

	// pendingMetas names the meta-instructions declared in the file but not
	// yet registered, so setup can report calls to them precisely
	pendingMetas map[string]bool
	inSetup      bool

	// metaStack holds the names of meta-instructions currently expanding
	metaStack []string
}

// NewMainContext creates a context with all built-in instructions registered
func NewMainContext(opts Options) *MainContext {
	width := opts.CellWidth
	if width == 0 || width > 32 {
		width = 8
	}
	return &MainContext{
		cellMod:      1 << width,
		instructions: builtIn(),
		globals:      newAliasTable(),
		pendingMetas: make(map[string]bool),
	}
}

// Pointer returns the assumed tape pointer position
func (m *MainContext) Pointer() int {
	return m.pointer
}

// SetPointer sets the assumed tape pointer position
func (m *MainContext) SetPointer(position int) {
	m.pointer = position
}

// AddInstruction registers an instruction under ident. It reports whether an
// instruction of the same name was already registered; the caller treats
// that as a declaration error.
func (m *MainContext) AddInstruction(ident string, ins Instruction) bool {
	_, exists := m.instructions[ident]
	m.instructions[ident] = ins
	return exists
}

// FindInstruction looks up a registered built-in or meta-instruction
func (m *MainContext) FindInstruction(ident string) (Instruction, bool) {
	ins, ok := m.instructions[ident]
	return ins, ok
}

// BuildScope creates a root scope frame whose lookups fall through to the
// globals only. Meta-instruction bodies and the main field both start here.
func (m *MainContext) BuildScope() *ScopeContext {
	return &ScopeContext{
		main:  m,
		local: newAliasTable(),
	}
}

func (m *MainContext) Main() *MainContext { return m }

func (m *MainContext) SubScope() *ScopeContext { return m.BuildScope() }

func (m *MainContext) AddNumberAlias(name string, value uint32) {
	m.globals.addNumber(name, value)
}

func (m *MainContext) AddScopeAlias(name string, scope *NormalizedScope) {
	m.globals.addScope(name, scope)
}

func (m *MainContext) FindNumberAlias(name string) (uint32, bool) {
	return m.globals.findNumber(name)
}

func (m *MainContext) FindScopeAlias(name string) (*NormalizedScope, bool) {
	return m.globals.findScope(name)
}

// ScopeContext is one frame of the lexical environment stack. Lookups walk
// the parent chain and finally the globals of the MainContext.
type ScopeContext struct {
	main   *MainContext
	parent *ScopeContext
	local  aliasTable
}

func (s *ScopeContext) Main() *MainContext { return s.main }

func (s *ScopeContext) SubScope() *ScopeContext {
	return &ScopeContext{
		main:   s.main,
		parent: s,
		local:  newAliasTable(),
	}
}

func (s *ScopeContext) AddNumberAlias(name string, value uint32) {
	s.local.addNumber(name, value)
}

func (s *ScopeContext) AddScopeAlias(name string, scope *NormalizedScope) {
	s.local.addScope(name, scope)
}

func (s *ScopeContext) FindNumberAlias(name string) (uint32, bool) {
	if v, ok := s.local.findNumber(name); ok {
		return v, true
	}
	if s.parent != nil {
		return s.parent.FindNumberAlias(name)
	}
	return s.main.FindNumberAlias(name)
}

func (s *ScopeContext) FindScopeAlias(name string) (*NormalizedScope, bool) {
	if v, ok := s.local.findScope(name); ok {
		return v, true
	}
	if s.parent != nil {
		return s.parent.FindScopeAlias(name)
	}
	return s.main.FindScopeAlias(name)
}
