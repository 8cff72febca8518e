package symtab

import (
	"github.com/microlang/mlc/pkg/ast"
	"github.com/microlang/mlc/pkg/token"
	"github.com/microlang/mlc/pkg/util"
)

// Entry is the state tracked per identifier
type Entry struct {
	Name        string
	Type        ast.VarType
	Declared    bool
	Initialized bool
	String      string
	HasString   bool
	Tok         token.Token // binding occurrence
	Used        bool
}

// Table is a single flat namespace: no block or function scopes, every
// binding anywhere in the program is visible everywhere.
type Table struct {
	entries map[string]*Entry
	order   []string
}

func New() *Table {
	return &Table{entries: make(map[string]*Entry)}
}

// Install records the type of a binding occurrence. The first type installed
// for a name is kept; repeated declarations are caught later by Declare.
func (t *Table) Install(name string, typ ast.VarType, tok token.Token) {
	if _, ok := t.entries[name]; ok {
		return
	}
	t.entries[name] = &Entry{Name: name, Type: typ, Tok: tok}
	t.order = append(t.order, name)
}

func (t *Table) Lookup(name string) (*Entry, bool) {
	e, ok := t.entries[name]
	return e, ok
}

func (t *Table) Has(name string) bool {
	_, ok := t.entries[name]
	return ok
}

// Declare marks name as declared; a second declaration is an error
func (t *Table) Declare(name string, tok token.Token) error {
	e, ok := t.entries[name]
	if !ok {
		return util.Semanticf(tok, "Variable used before declaration.")
	}
	if e.Declared {
		return util.Semanticf(tok, "%s was declared twice.", name)
	}
	e.Declared = true
	return nil
}

func (t *Table) IsDeclared(name string) bool {
	e, ok := t.entries[name]
	return ok && e.Declared
}

func (t *Table) LookupType(name string, tok token.Token) (ast.VarType, error) {
	e, ok := t.entries[name]
	if !ok {
		return ast.TypeUnknown, util.Semanticf(tok, "Variable used before declaration.")
	}
	return e.Type, nil
}

func (t *Table) MarkInitialized(name string) {
	if e, ok := t.entries[name]; ok {
		e.Initialized = true
	}
}

func (t *Table) IsInitialized(name string) bool {
	e, ok := t.entries[name]
	return ok && e.Initialized
}

func (t *Table) MarkUsed(name string) {
	if e, ok := t.entries[name]; ok {
		e.Used = true
	}
}

func (t *Table) SetString(name, value string) {
	if e, ok := t.entries[name]; ok {
		e.String, e.HasString = value, true
	}
}

func (t *Table) StringValue(name string) (string, bool) {
	e, ok := t.entries[name]
	if !ok || !e.HasString {
		return "", false
	}
	return e.String, true
}

// Names returns every installed identifier in installation order
func (t *Table) Names() []string { return append([]string(nil), t.order...) }

func (t *Table) Len() int { return len(t.order) }

// Reset clears everything code generation records, keeping parse-time types
func (t *Table) Reset() {
	for _, e := range t.entries {
		e.Declared, e.Initialized, e.Used = false, false, false
		e.String, e.HasString = "", false
	}
}
