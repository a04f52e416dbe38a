package sv

// Scope is a flat symbol table for one lexical scope (file, package, module,
// class, ...). It maps a declared name to the Decl that introduced it.
// Lookups never traverse into nested scopes; callers walk Parent chains for
// that, mirroring how the semantic layer resolves names outward.
type Scope struct {
	decls map[string]*Decl
}

// NewScope returns an empty scope.
func NewScope() *Scope {
	return &Scope{decls: make(map[string]*Decl)}
}

// Declare records name as introduced by decl. A later declaration with the
// same name overwrites the earlier one; Scope never rejects or diagnoses a
// collision itself. For scopes indexed by SymbolTable.index, the caller
// inspects the returned previous declaration and decides whether it
// warrants a diagnostic.
func (s *Scope) Declare(name string, decl *Decl) {
	if name == "" {
		return
	}
	s.decls[name] = decl
}

// Lookup returns the Decl registered for name in this scope only.
func (s *Scope) Lookup(name string) (*Decl, bool) {
	d, ok := s.decls[name]
	return d, ok
}

// Names returns every name declared in this scope, order unspecified.
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.decls))
	for n := range s.decls {
		names = append(names, n)
	}
	return names
}

// SymbolTable indexes every named declaration across a compilation: a global
// scope for module/program/interface/class/package-level definitions, plus
// one exported scope per package for pkg::symbol resolution.
type SymbolTable struct {
	Global   *Scope
	Packages map[string]*Scope
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		Global:   NewScope(),
		Packages: make(map[string]*Scope),
	}
}

// PackageScope returns the export scope for a package, creating it if this
// is the first declaration seen for that package name.
func (t *SymbolTable) PackageScope(name string) *Scope {
	sc, ok := t.Packages[name]
	if !ok {
		sc = NewScope()
		t.Packages[name] = sc
	}
	return sc
}

// ResolveQualified looks up pkg::name, returning the declaration if the
// package and the name within it are both known.
func (t *SymbolTable) ResolveQualified(pkg, name string) (*Decl, bool) {
	sc, ok := t.Packages[pkg]
	if !ok {
		return nil, false
	}
	return sc.Lookup(name)
}

// isDefinitionKind reports whether kind names a top-level definition whose
// name must be unique within a compilation: a second declaration reusing the
// name is a redefinition, not an overload or a separate namespace.
func isDefinitionKind(kind DeclKind) bool {
	switch kind {
	case DeclModule, DeclProgram, DeclInterface, DeclClass, DeclPackage:
		return true
	default:
		return false
	}
}

// index walks decl's top-level-visible members into the symbol table: decl
// itself goes into the global scope (so modules, classes, and packages are
// all resolvable unqualified, matching how top-level instantiation and
// extends references name them), and if decl is a package, every direct
// child is additionally registered in that package's export scope.
//
// If decl redefines an earlier definition-kind declaration under the same
// name, index returns that earlier declaration and reports duplicate as
// true; the caller is responsible for turning that into a diagnostic, since
// Scope itself has no diagnostic collector to report through.
func (t *SymbolTable) index(decl *Decl) (previous *Decl, duplicate bool) {
	if isDefinitionKind(decl.Kind) {
		if existing, ok := t.Global.Lookup(decl.Name); ok && isDefinitionKind(existing.Kind) {
			previous, duplicate = existing, true
		}
	}
	t.Global.Declare(decl.Name, decl)
	if decl.Kind == DeclPackage {
		pkgScope := t.PackageScope(decl.Name)
		for _, child := range decl.Children {
			pkgScope.Declare(child.Name, child)
		}
	}
	return previous, duplicate
}
