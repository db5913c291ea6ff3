// Package context holds interpreter execution state: the lexical scope
// chain, the object/dataframe arenas, and the class registry. Grounded on
// the teacher's ScopeFrame chain (internal/vm/vm.go's ScopeFrame{locals,
// parent}), adapted from a VM-local struct into a standalone, reusable
// interpreter context for the tree-walking evaluator.
package context

import (
	"strings"

	"xdl/internal/value"
)

// Scope is one lexical frame: a case-insensitive variable table plus a
// link to its enclosing scope. XDL variable names are case-insensitive
// (spec.md §3), so keys are stored upper-cased.
type Scope struct {
	vars   map[string]value.Value
	parent *Scope
}

func newScope(parent *Scope) *Scope {
	return &Scope{vars: make(map[string]value.Value), parent: parent}
}

func (s *Scope) get(name string) (value.Value, bool) {
	key := strings.ToUpper(name)
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.vars[key]; ok {
			return v, true
		}
	}
	return value.Undefined, false
}

// set assigns to the nearest scope that already declares name, walking up
// the chain; if no scope declares it, it is created in the innermost scope
// (spec.md's assignment semantics: first write declares the variable).
func (s *Scope) set(name string, v value.Value) {
	key := strings.ToUpper(name)
	for sc := s; sc != nil; sc = sc.parent {
		if _, ok := sc.vars[key]; ok {
			sc.vars[key] = v
			return
		}
	}
	s.vars[key] = v
}

// setLocal always declares in this exact scope, shadowing any outer
// variable of the same name (used for routine parameters and for-loop
// induction variables).
func (s *Scope) setLocal(name string, v value.Value) {
	s.vars[strings.ToUpper(name)] = v
}

// Object is a live instance created by OBJ_NEW: a class name plus its
// field/property store.
type Object struct {
	Class  string
	Fields map[string]value.Value
}

// Class is a user-defined routine bundle registered by name: its method
// table, keyed upper-case, each pointing at a FunctionDef/ProcedureDef
// body owned by the caller (internal/eval stores the actual AST node).
type Class struct {
	Name    string
	Methods map[string]interface{}
}

// Context is the full mutable interpreter state threaded through
// evaluation: the scope chain, routine tables, object/dataframe arenas,
// and the class registry. One Context exists per program run; the REPL
// keeps it alive across successive inputs (spec.md §6).
type Context struct {
	global *Scope
	top    *Scope

	Functions  map[string]interface{} // name -> *parser.FunctionDef
	Procedures map[string]interface{} // name -> *parser.ProcedureDef
	Classes    map[string]*Class

	objects    map[int]*Object
	nextObjID  int
	dataframes map[int]interface{} // id -> *dataframe.DataFrame
	nextDFID   int

	selfID  int
	hasSelf bool // bound receiver inside a method body; false at top level
}

// New creates a fresh interpreter context with an empty global scope.
func New() *Context {
	g := newScope(nil)
	return &Context{
		global:     g,
		top:        g,
		Functions:  make(map[string]interface{}),
		Procedures: make(map[string]interface{}),
		Classes:    make(map[string]*Class),
		objects:    make(map[int]*Object),
		dataframes: make(map[int]interface{}),
	}
}

// PushScope enters a new lexical block (if/for/while body, routine call).
func (c *Context) PushScope() {
	c.top = newScope(c.top)
}

// PopScope leaves the innermost lexical block. Popping the global scope
// is a programming error in the evaluator and is ignored defensively.
func (c *Context) PopScope() {
	if c.top.parent != nil {
		c.top = c.top.parent
	}
}

// PushFunctionScope enters an isolated scope whose only parent is the
// global scope, used for routine calls so that a function body cannot see
// its caller's locals (spec.md: routines do not close over caller scope
// except via COMMON blocks).
func (c *Context) PushFunctionScope() *Scope {
	prev := c.top
	c.top = newScope(c.global)
	return prev
}

// RestoreScope resets the active scope to a previously saved one, used by
// the evaluator to unwind after a routine call regardless of how it
// returned (normal return, Return/Break/Continue signal, or error).
func (c *Context) RestoreScope(prev *Scope) {
	c.top = prev
}

// GetVariable resolves name up the active scope chain.
func (c *Context) GetVariable(name string) (value.Value, bool) {
	return c.top.get(name)
}

// SetVariable assigns name in the nearest declaring scope, or declares it
// locally if undeclared.
func (c *Context) SetVariable(name string, v value.Value) {
	c.top.set(name, v)
}

// SetLocal declares name in the current innermost scope unconditionally.
func (c *Context) SetLocal(name string, v value.Value) {
	c.top.setLocal(name, v)
}

// NewObject allocates an object instance in the arena and returns its
// handle id, used as the Value.ID payload of a KindObject value.
func (c *Context) NewObject(class string) (*Object, int) {
	id := c.nextObjID
	c.nextObjID++
	obj := &Object{Class: class, Fields: make(map[string]value.Value)}
	c.objects[id] = obj
	return obj, id
}

func (c *Context) Object(id int) (*Object, bool) {
	o, ok := c.objects[id]
	return o, ok
}

// NewDataFrame allocates an arena slot for a dataframe handle; df is
// stored as interface{}, so this package does not import
// internal/dataframe; callers type-assert it back to
// *dataframe.DataFrame.
func (c *Context) NewDataFrame(df interface{}) int {
	id := c.nextDFID
	c.nextDFID++
	c.dataframes[id] = df
	return id
}

func (c *Context) DataFrame(id int) (interface{}, bool) {
	df, ok := c.dataframes[id]
	return df, ok
}

// BindSelf sets the active receiver for the duration of a method call,
// returning the previous binding so the caller can restore it afterward
// regardless of how the call exits (spec.md §4.4, §9 "Self and method
// dispatch").
func (c *Context) BindSelf(id int) (prevID int, hadSelf bool) {
	prevID, hadSelf = c.selfID, c.hasSelf
	c.selfID, c.hasSelf = id, true
	return
}

// RestoreSelf resets the self binding to a value previously returned by
// BindSelf.
func (c *Context) RestoreSelf(prevID int, hadSelf bool) {
	c.selfID, c.hasSelf = prevID, hadSelf
}

// SelfID reports the active receiver id, if any.
func (c *Context) SelfID() (int, bool) {
	return c.selfID, c.hasSelf
}

func (c *Context) RegisterClass(cl *Class) {
	c.Classes[strings.ToUpper(cl.Name)] = cl
}

func (c *Context) LookupClass(name string) (*Class, bool) {
	cl, ok := c.Classes[strings.ToUpper(name)]
	return cl, ok
}
