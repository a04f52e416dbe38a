package sv

import (
	"fmt"

	"github.com/hankhsu1996/slangd-go/diag"
	"github.com/hankhsu1996/slangd-go/location"
)

// Compilation is a set of parsed syntax trees sharing one symbol table. It
// mirrors the shape of a real SystemVerilog compiler's "compilation unit"
// closely enough to serve the preamble-build and overlay-build algorithms,
// while stopping well short of elaboration: nothing here resolves generate
// conditions, binds instances to their definitions, or computes parameter
// values. That line is deliberate — elaboration is the semantic package's
// job, never this one's, the same way the preamble build this stands in for
// never walks past its merged declaration set.
type Compilation struct {
	trees   []*Tree
	symbols *SymbolTable
	issues  *diag.Collector
}

// NewCompilation returns an empty compilation.
func NewCompilation() *Compilation {
	return &Compilation{
		symbols: NewSymbolTable(),
		issues:  diag.NewCollectorUnlimited(),
	}
}

// AddSyntaxTree parses content for source and merges its declarations and
// symbols into the compilation. Parse diagnostics are accumulated and
// available via Diagnostics.
func (c *Compilation) AddSyntaxTree(source location.SourceID, content []byte) *Tree {
	result := Parse(source, content)
	c.trees = append(c.trees, result.Tree)
	for _, d := range result.Tree.Decls {
		if previous, duplicate := c.symbols.index(d); duplicate {
			c.issues.Collect(diag.NewIssue(diag.Error, diag.E_DUPLICATE_DEFINITION,
				fmt.Sprintf("%s %q already defined", d.Kind, d.Name)).
				WithSpan(d.NameSpan).
				WithRelated(location.RelatedInfo{
					Span:    previous.NameSpan,
					Message: location.MsgPreviousDefinition,
				}).
				WithDetails(append(diag.DuplicateDefinition(d.Kind.String(), d.Name),
					diag.Detail{Key: diag.DetailKeyFile, Value: previous.NameSpan.Source.String()})...).
				Build())
		}
	}
	for name, scope := range result.Symbols.Packages {
		dst := c.symbols.PackageScope(name)
		for _, n := range scope.Names() {
			decl, _ := scope.Lookup(n)
			dst.Declare(n, decl)
		}
	}
	c.issues.Merge(result.Issues)
	return result.Tree
}

// Trees returns every syntax tree added so far, in addition order.
func (c *Compilation) Trees() []*Tree {
	return c.trees
}

// Symbols returns the shared symbol table built from every added tree.
func (c *Compilation) Symbols() *SymbolTable {
	return c.symbols
}

// Diagnostics returns every parse diagnostic collected across all added
// trees.
func (c *Compilation) Diagnostics() diag.Result {
	return c.issues.Result()
}

// GetPackages returns every package-level declaration seen so far, in no
// particular order.
func (c *Compilation) GetPackages() []*Decl {
	var out []*Decl
	for _, tree := range c.trees {
		for _, d := range tree.Decls {
			if d.Kind == DeclPackage {
				out = append(out, d)
			}
		}
	}
	return out
}

// GetDefinitions returns every top-level declaration of the given kind
// (modules, interfaces, programs, classes, ...) across all added trees.
func (c *Compilation) GetDefinitions(kind DeclKind) []*Decl {
	var out []*Decl
	for _, tree := range c.trees {
		for _, d := range tree.Decls {
			if d.Kind == kind {
				out = append(out, d)
			}
		}
	}
	return out
}

// References returns every reference collected across all added trees, used
// by the semantic index to resolve go-to-definition targets.
func (c *Compilation) References() []Reference {
	var out []Reference
	for _, tree := range c.trees {
		out = append(out, tree.References...)
	}
	return out
}
