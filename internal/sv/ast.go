package sv

import "github.com/hankhsu1996/slangd-go/location"

// DeclKind classifies a declaration node produced by the parser. The set
// mirrors the symbol kinds the semantic index needs to report, not full
// SystemVerilog grammar productions.
type DeclKind int

const (
	DeclUnknown DeclKind = iota
	DeclModule
	DeclProgram
	DeclPackage
	DeclInterface
	DeclModport
	DeclClass
	DeclUnionType
	DeclStructType
	DeclFunction
	DeclTask
	DeclParameter
	DeclEnumValue
	DeclEnumType
	DeclTypedef
	DeclForwardTypedef
	DeclVariable
	DeclNet
	DeclPort
	DeclInstance
	DeclUninstantiatedDef
	DeclField
	DeclClassProperty
	DeclTypeParameter
	DeclGenerateBlock
	DeclGenerateBlockArray
	DeclNamedBlock
	DeclGenvar
	DeclImport
)

// String returns a human-readable label for the kind, used in document
// symbol projection and diagnostics.
func (k DeclKind) String() string {
	switch k {
	case DeclModule:
		return "module"
	case DeclProgram:
		return "program"
	case DeclPackage:
		return "package"
	case DeclInterface:
		return "interface"
	case DeclModport:
		return "modport"
	case DeclClass:
		return "class"
	case DeclUnionType:
		return "union"
	case DeclStructType:
		return "struct"
	case DeclFunction:
		return "function"
	case DeclTask:
		return "task"
	case DeclParameter:
		return "parameter"
	case DeclEnumValue:
		return "enum value"
	case DeclEnumType:
		return "enum"
	case DeclTypedef:
		return "typedef"
	case DeclForwardTypedef:
		return "forward typedef"
	case DeclVariable:
		return "variable"
	case DeclNet:
		return "net"
	case DeclPort:
		return "port"
	case DeclInstance:
		return "instance"
	case DeclUninstantiatedDef:
		return "uninstantiated definition"
	case DeclField:
		return "field"
	case DeclClassProperty:
		return "class property"
	case DeclTypeParameter:
		return "type parameter"
	case DeclGenerateBlock:
		return "generate block"
	case DeclGenerateBlockArray:
		return "generate block array"
	case DeclNamedBlock:
		return "named block"
	case DeclGenvar:
		return "genvar"
	case DeclImport:
		return "import"
	default:
		return "unknown"
	}
}

// Decl is a single declaration node in the syntax tree the parser produces.
// It carries enough shape for the semantic layer to build a symbol index and
// a document symbol hierarchy without re-parsing source text.
type Decl struct {
	Kind DeclKind

	// Name is the declared identifier. Empty for anonymous generate blocks
	// and unnamed struct/union members processed at the field level.
	Name string

	// NameSpan covers only the identifier token, used for go-to-definition
	// targets and "select just the name" editor behavior.
	NameSpan location.Span

	// Span covers the full declaration, from its leading keyword (or type)
	// through its closing token, used for document symbol ranges and
	// containment queries.
	Span location.Span

	// TypeName is the right-hand type text for typedefs, variables, nets,
	// ports, fields, and class properties. For forwarding typedefs
	// (typedef class Foo;) it is empty and AliasKind names the forwarded
	// category instead.
	TypeName string

	// AliasKind names the forwarded category for DeclForwardTypedef
	// ("class", "interface", "interface class"; empty for the bare
	// "typedef Name;" form). Forward typedefs written with enum, struct or
	// union are not recognized as forward typedefs.
	AliasKind string

	// ExtendsName is the superclass/interface name for DeclClass nodes that
	// carry an extends or implements clause.
	ExtendsName string
	ExtendsSpan location.Span

	// InstanceOf is the module/interface/program definition name a
	// DeclInstance node instantiates.
	InstanceOf     string
	InstanceOfSpan location.Span

	// PackageQualifier is set when a declaration form was written with an
	// explicit pkg:: prefix (e.g. an import target), empty otherwise.
	PackageQualifier string

	Parent   *Decl
	Children []*Decl
}

// AddChild appends child to d.Children and sets child.Parent.
func (d *Decl) AddChild(child *Decl) {
	child.Parent = d
	d.Children = append(d.Children, child)
}

// ReferenceKind classifies what a Reference resolves against.
type ReferenceKind int

const (
	RefTypeUsage ReferenceKind = iota
	RefExtendsClause
	RefPackageQualified
	RefInstanceOf
	RefImportTarget
)

// Reference is a name usage the semantic layer can resolve to a definition:
// a type name in a variable declaration, a superclass name in an extends
// clause, a pkg::symbol usage, a module name at an instantiation site, or an
// import target.
type Reference struct {
	Kind ReferenceKind

	// Name is the unqualified symbol name being referenced.
	Name string

	// Qualifier is the package name for RefPackageQualified and RefImportTarget
	// references (the "pkg" in pkg::symbol), empty otherwise.
	Qualifier string

	// Span covers exactly the referenced name token (the right-hand side of
	// a :: for qualified references), matching NameSpan conventions on Decl.
	Span location.Span

	// From is the declaration this reference occurs within, used to resolve
	// scoping (e.g. an extends clause resolves the file/package scope that
	// contains From).
	From *Decl
}

// Tree is the top-level parse result for one source file: every top-level
// declaration plus every reference collected while walking it.
type Tree struct {
	Source     location.SourceID
	Decls      []*Decl
	References []Reference
}

// Walk calls fn for d and every descendant, depth-first pre-order.
func Walk(d *Decl, fn func(*Decl)) {
	fn(d)
	for _, c := range d.Children {
		Walk(c, fn)
	}
}
