package sv

import (
	"fmt"

	"github.com/hankhsu1996/slangd-go/diag"
	"github.com/hankhsu1996/slangd-go/location"
)

// netKeywords are the built-in net types; seeing one at item start starts a
// net declaration rather than a variable declaration.
var netKeywords = map[string]bool{
	"wire": true, "wand": true, "wor": true, "tri": true,
	"triand": true, "trior": true, "supply0": true, "supply1": true,
}

// dataTypeKeywords are built-in variable data types, recognized so the
// parser doesn't need to track a user-defined type namespace to tell a type
// name from the declared identifier that follows it.
var dataTypeKeywords = map[string]bool{
	"logic": true, "bit": true, "reg": true, "byte": true, "shortint": true,
	"int": true, "longint": true, "integer": true, "time": true, "real": true,
	"realtime": true, "shortreal": true, "string": true, "event": true,
	"chandle": true, "void": true,
}

// Parser consumes a token stream and produces a Tree plus a symbol table.
// It recognizes declaration forms and their spans; statement and expression
// bodies are skipped structurally (balanced delimiter tracking) rather than
// parsed, since the semantic index never needs to evaluate them.
type Parser struct {
	source location.SourceID
	toks   []Token
	pos    int
	issues *diag.Collector
	tree   *Tree
	syms   *SymbolTable
}

// ParseResult is everything Parse produces for one file.
type ParseResult struct {
	Tree    *Tree
	Symbols *SymbolTable
	Issues  diag.Result
}

// Parse lexes and parses content, returning its declaration tree, a symbol
// table indexing every top-level and package-exported declaration, and any
// diagnostics collected while recovering from malformed input.
func Parse(source location.SourceID, content []byte) ParseResult {
	lex := NewLexer(source, content)
	var toks []Token
	for {
		t := lex.Next()
		toks = append(toks, t)
		if t.Kind == TokEOF {
			break
		}
	}

	p := &Parser{
		source: source,
		toks:   toks,
		issues: diag.NewCollectorUnlimited(),
		tree:   &Tree{Source: source},
		syms:   NewSymbolTable(),
	}
	p.parseTopLevel()

	return ParseResult{
		Tree:    p.tree,
		Symbols: p.syms,
		Issues:  p.issues.Result(),
	}
}

func (p *Parser) cur() Token {
	if p.pos >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos]
}

func (p *Parser) at(off int) Token {
	idx := p.pos + off
	if idx >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[idx]
}

func (p *Parser) atEOF() bool {
	return p.cur().Kind == TokEOF
}

func (p *Parser) advance() Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) reportf(span location.Span, msg string) {
	p.issues.Collect(diag.NewIssue(diag.Error, diag.E_SYNTAX, msg).WithSpan(span).Build())
}

// indexTopLevel records d in the file's symbol table and reports a
// duplicate-definition diagnostic if it reuses an earlier top-level
// definition's name within the same file.
func (p *Parser) indexTopLevel(d *Decl) {
	if previous, duplicate := p.syms.index(d); duplicate {
		p.issues.Collect(diag.NewIssue(diag.Error, diag.E_DUPLICATE_DEFINITION,
			fmt.Sprintf("%s %q already defined", d.Kind, d.Name)).
			WithSpan(d.NameSpan).
			WithRelated(location.RelatedInfo{
				Span:    previous.NameSpan,
				Message: location.MsgPreviousDefinition,
			}).
			WithDetails(diag.DuplicateDefinition(d.Kind.String(), d.Name)...).
			Build())
	}
}

// parseTopLevel consumes items until EOF, attaching each resulting Decl
// directly to the tree and indexing it in the global symbol table.
func (p *Parser) parseTopLevel() {
	for !p.atEOF() {
		before := p.pos
		d := p.parseItem(nil, DeclVariable)
		if d != nil {
			p.tree.Decls = append(p.tree.Decls, d)
			p.indexTopLevel(d)
		}
		if p.pos == before {
			// No progress: skip one token to guarantee termination.
			p.advance()
		}
	}
}

// parseItem parses one declaration-level item. parent is the enclosing
// Decl (nil at file scope); plainVarKind is the DeclKind to assign to bare
// variable/net declarations in this context (DeclClassProperty inside a
// class body, DeclVariable/DeclField elsewhere).
func (p *Parser) parseItem(parent *Decl, plainVarKind DeclKind) *Decl {
	t := p.cur()

	switch {
	case t.IsKeyword("module") || t.IsKeyword("macromodule"):
		return p.parseModuleLike(DeclModule, "endmodule")
	case t.IsKeyword("program"):
		return p.parseModuleLike(DeclProgram, "endprogram")
	case t.IsKeyword("package"):
		return p.parsePackage()
	case t.IsKeyword("interface"):
		if p.at(1).IsKeyword("class") {
			p.advance() // interface
			return p.parseClass()
		}
		return p.parseModuleLike(DeclInterface, "endinterface")
	case t.IsKeyword("modport"):
		return p.parseModport()
	case t.IsKeyword("class"):
		return p.parseClass()
	case t.IsKeyword("typedef"):
		return p.parseTypedef()
	case t.IsKeyword("import"):
		return p.parseImportAsGroup(parent)
	case t.IsKeyword("parameter") || t.IsKeyword("localparam"):
		group := p.parseParamGroup()
		return p.attachGroup(parent, group)
	case t.IsKeyword("genvar"):
		group := p.parseGenvarGroup()
		return p.attachGroup(parent, group)
	case t.IsKeyword("function"):
		return p.parseFunctionLike(DeclFunction, "endfunction")
	case t.IsKeyword("task"):
		return p.parseFunctionLike(DeclTask, "endtask")
	case t.IsKeyword("virtual") || t.IsKeyword("pure"):
		// virtual/pure precede function or task for methods, but "virtual"
		// also prefixes a virtual-interface variable declaration; peek past
		// the qualifiers and only commit to the method parse if one follows.
		save := p.pos
		for p.cur().IsKeyword("virtual") || p.cur().IsKeyword("pure") {
			p.advance()
		}
		if p.cur().IsKeyword("function") {
			return p.parseFunctionLike(DeclFunction, "endfunction")
		}
		if p.cur().IsKeyword("task") {
			return p.parseFunctionLike(DeclTask, "endtask")
		}
		p.pos = save
		group := p.parseDataDeclOrInstance(plainVarKind)
		return p.attachGroup(parent, group)
	case t.IsKeyword("generate"):
		return p.parseGenerateRegion()
	case t.IsKeyword("for"):
		return p.parseGenerateFor(parent, plainVarKind)
	case t.IsKeyword("if"):
		return p.parseGenerateIf(parent, plainVarKind)
	case t.IsKeyword("begin"):
		return p.parseBeginBlock(false)
	case t.IsKeyword("case") || t.IsKeyword("casex") || t.IsKeyword("casez"):
		p.skipCase()
		return nil
	case t.IsKeyword("input") || t.IsKeyword("output") || t.IsKeyword("inout"):
		group := p.parseDataDecl(DeclPort)
		return p.attachGroup(parent, group)
	case netKeywords[t.Text] && t.Kind == TokKeyword:
		group := p.parseDataDecl(DeclNet)
		return p.attachGroup(parent, group)
	case t.Kind == TokKeyword && (t.Text == "always" || t.Text == "always_comb" || t.Text == "always_ff" ||
		t.Text == "always_latch" || t.Text == "initial" || t.Text == "final" || t.Text == "assign"):
		p.skipStatementOrBlock()
		return nil
	case t.Kind == TokIdent || dataTypeKeywords[t.Text] || t.IsKeyword("signed") || t.IsKeyword("unsigned") ||
		t.IsKeyword("automatic") || t.IsKeyword("static") || t.IsKeyword("virtual") || t.IsKeyword("const"):
		group := p.parseDataDeclOrInstance(plainVarKind)
		return p.attachGroup(parent, group)
	case t.IsPunct(";"):
		p.advance()
		return nil
	default:
		p.reportf(t.Span, "unexpected token '"+t.Text+"'")
		p.advance()
		return nil
	}
}

// attachGroup wires every Decl in group to parent's children when parent is
// non-nil, returning group[0] so the caller's "if not already parented, add
// it" guard leaves it alone. At file scope (parent nil) it appends and
// indexes every member itself and returns nil, since the top-level loop has
// no such guard to avoid double-adding group[0].
func (p *Parser) attachGroup(parent *Decl, group []*Decl) *Decl {
	if len(group) == 0 {
		return nil
	}
	if parent != nil {
		for _, d := range group {
			parent.AddChild(d)
		}
		return group[0]
	}
	for _, d := range group {
		p.tree.Decls = append(p.tree.Decls, d)
		p.indexTopLevel(d)
	}
	return nil
}

// parseHeaderTail parses everything from the optional parameter port
// list through the final ';' that ends a module/interface/program header
// line, adding any ANSI port declarations found as children of container.
func (p *Parser) parseHeaderTail(container *Decl) {
	if p.cur().IsPunct("#") {
		p.advance()
		if p.cur().IsPunct("(") {
			p.skipBalanced("(", ")")
		}
	}
	if p.cur().IsPunct("(") {
		p.parseAnsiPortList(container)
	}
	if p.cur().IsPunct(";") {
		p.advance()
	}
}

// parseAnsiPortList reads a parenthesized port list, emitting a DeclPort
// child for each declared port. Non-ANSI name-only lists still produce
// DeclPort children with an empty TypeName; body-level input/output/inout
// statements refine the type separately (see parseDataDecl with DeclPort).
func (p *Parser) parseAnsiPortList(container *Decl) {
	p.advance() // (
	depth := 1
	var typeText string
	for depth > 0 && !p.atEOF() {
		t := p.cur()
		switch {
		case t.IsPunct("("):
			depth++
			p.advance()
		case t.IsPunct(")"):
			depth--
			p.advance()
		case depth == 1 && (t.IsKeyword("input") || t.IsKeyword("output") || t.IsKeyword("inout")):
			typeText = t.Text
			p.advance()
			for !p.atEOF() && depth >= 1 && !p.cur().IsPunct(",") && !p.cur().IsPunct(")") {
				if p.cur().Kind == TokIdent && p.isPortNamePosition() {
					break
				}
				typeText += " " + p.cur().Text
				p.advance()
			}
		case depth == 1 && t.Kind == TokIdent:
			nameTok := p.advance()
			container.AddChild(&Decl{
				Kind:     DeclPort,
				Name:     nameTok.Text,
				NameSpan: nameTok.Span,
				Span:     nameTok.Span,
				TypeName: typeText,
			})
			p.skipDimensionsAndDefault()
		case depth == 1 && t.IsPunct(","):
			p.advance()
		default:
			p.advance()
		}
	}
}

// isPortNamePosition is a light heuristic: treat the current identifier as
// the declared name if the next significant token is one that can only
// follow a name, never a type: , ) ; = or [ .
func (p *Parser) isPortNamePosition() bool {
	next := p.at(1)
	return next.IsPunct(",") || next.IsPunct(")") || next.IsPunct(";") ||
		next.IsPunct("=") || next.IsPunct("[")
}

func (p *Parser) skipDimensionsAndDefault() {
	for p.cur().IsPunct("[") {
		p.skipBalanced("[", "]")
	}
	if p.cur().IsPunct("=") {
		p.advance()
		// ";" terminates a statement-level default/assignment; "," and ")"
		// terminate one inside a port or argument list. Without ";" here, a
		// default value skip started inside a subroutine body runs past the
		// statement's own terminator and keeps consuming tokens.
		p.skipExprUntil(",", ")", ";")
	}
}

// parseModuleLike parses module/program/interface declarations, which share
// a header shape: keyword [lifetime] name [#(params)] [(ports)] ; body end<kw>.
func (p *Parser) parseModuleLike(kind DeclKind, endKw string) *Decl {
	startTok := p.advance() // keyword
	if p.cur().IsKeyword("automatic") || p.cur().IsKeyword("static") {
		p.advance()
	}
	nameTok := p.expectIdent()
	d := &Decl{Kind: kind, Name: nameTok.Text, NameSpan: nameTok.Span}
	p.parseHeaderTail(d)

	for !p.atEOF() && !p.cur().IsKeyword(endKw) {
		before := p.pos
		child := p.parseItem(d, DeclVariable)
		if child != nil && child.Parent == nil {
			d.AddChild(child)
		}
		if p.pos == before {
			p.advance()
		}
	}
	endTok := p.cur()
	if !p.atEOF() {
		p.advance() // end<kw>
		p.skipOptionalLabel()
	}
	d.Span = p.span(startTok, endTok)
	return d
}

func (p *Parser) parsePackage() *Decl {
	startTok := p.advance() // package
	nameTok := p.expectIdent()
	d := &Decl{Kind: DeclPackage, Name: nameTok.Text, NameSpan: nameTok.Span}
	if p.cur().IsPunct(";") {
		p.advance()
	}
	for !p.atEOF() && !p.cur().IsKeyword("endpackage") {
		before := p.pos
		child := p.parseItem(d, DeclVariable)
		if child != nil && child.Parent == nil {
			d.AddChild(child)
		}
		if p.pos == before {
			p.advance()
		}
	}
	endTok := p.cur()
	if !p.atEOF() {
		p.advance()
		p.skipOptionalLabel()
	}
	d.Span = p.span(startTok, endTok)
	return d
}

func (p *Parser) parseClass() *Decl {
	startTok := p.advance() // class
	if p.cur().IsKeyword("automatic") || p.cur().IsKeyword("static") {
		p.advance()
	}
	nameTok := p.expectIdent()
	d := &Decl{Kind: DeclClass, Name: nameTok.Text, NameSpan: nameTok.Span}
	if p.cur().IsPunct("#") {
		p.advance()
		if p.cur().IsPunct("(") {
			p.parseTypeParamList(d)
		}
	}
	if p.cur().IsKeyword("extends") {
		p.advance()
		baseTok := p.expectIdent()
		d.ExtendsName = baseTok.Text
		d.ExtendsSpan = baseTok.Span
		p.tree.References = append(p.tree.References, Reference{
			Kind: RefExtendsClause, Name: baseTok.Text, Span: baseTok.Span, From: d,
		})
		if p.cur().IsPunct("(") {
			p.skipBalanced("(", ")")
		}
	}
	if p.cur().IsKeyword("implements") {
		p.advance()
		for !p.atEOF() && !p.cur().IsPunct(";") {
			p.advance()
		}
	}
	if p.cur().IsPunct(";") {
		p.advance()
	}

	for !p.atEOF() && !p.cur().IsKeyword("endclass") {
		before := p.pos
		child := p.parseItem(d, DeclClassProperty)
		if child != nil && child.Parent == nil {
			d.AddChild(child)
		}
		if p.pos == before {
			p.advance()
		}
	}
	endTok := p.cur()
	if !p.atEOF() {
		p.advance()
		p.skipOptionalLabel()
	}
	d.Span = p.span(startTok, endTok)
	return d
}

// parseTypeParamList parses a class's #( parameter ... ) type-parameter list.
func (p *Parser) parseTypeParamList(d *Decl) {
	p.advance() // (
	depth := 1
	for depth > 0 && !p.atEOF() {
		t := p.cur()
		switch {
		case t.IsPunct("("):
			depth++
			p.advance()
		case t.IsPunct(")"):
			depth--
			p.advance()
		case depth == 1 && (t.IsKeyword("parameter") || t.IsKeyword("type")):
			isType := t.IsKeyword("type")
			p.advance()
			if isType {
				for !p.atEOF() && p.cur().Kind == TokIdent {
					nameTok := p.advance()
					d.AddChild(&Decl{Kind: DeclTypeParameter, Name: nameTok.Text, NameSpan: nameTok.Span, Span: nameTok.Span})
					if p.cur().IsPunct("=") {
						p.advance()
						p.skipExprUntil(",", ")")
					}
					if p.cur().IsPunct(",") {
						p.advance()
						continue
					}
					break
				}
			}
		case depth == 1 && t.Kind == TokIdent:
			nameTok := p.advance()
			if p.cur().IsPunct("=") {
				p.advance()
				p.skipExprUntil(",", ")")
			}
			d.AddChild(&Decl{Kind: DeclParameter, Name: nameTok.Text, NameSpan: nameTok.Span, Span: nameTok.Span})
			if p.cur().IsPunct(",") {
				p.advance()
			}
		default:
			p.advance()
		}
	}
}

func (p *Parser) parseModport() *Decl {
	startTok := p.advance() // modport
	nameTok := p.expectIdent()
	d := &Decl{Kind: DeclModport, Name: nameTok.Text, NameSpan: nameTok.Span}
	if p.cur().IsPunct("(") {
		p.skipBalanced("(", ")")
	}
	endTok := p.cur()
	if p.cur().IsPunct(";") {
		p.advance()
	}
	d.Span = p.span(startTok, endTok)
	return d
}

// parseTypedef handles all four typedef forms: forwarding, enum, struct/union,
// and plain aliasing.
func (p *Parser) parseTypedef() *Decl {
	startTok := p.advance() // typedef

	if p.cur().IsKeyword("class") || p.cur().IsKeyword("interface") ||
		(p.cur().Kind == TokIdent && p.at(1).IsPunct(";")) {
		aliasKind := p.cur().Text
		if p.cur().Kind == TokIdent {
			aliasKind = "" // forward-referencing an already-declared type name
		} else {
			p.advance()
			if p.cur().IsKeyword("class") { // interface class
				aliasKind = "interface class"
				p.advance()
			}
		}
		nameTok := p.expectIdent()
		endTok := p.cur()
		if p.cur().IsPunct(";") {
			p.advance()
		}
		return &Decl{
			Kind: DeclForwardTypedef, Name: nameTok.Text, NameSpan: nameTok.Span,
			Span: p.span(startTok, endTok), AliasKind: aliasKind,
		}
	}

	if p.cur().IsKeyword("enum") {
		return p.parseEnumTypedef(startTok)
	}
	if p.cur().IsKeyword("struct") || p.cur().IsKeyword("union") {
		return p.parseStructUnionTypedef(startTok)
	}

	// Plain alias: typedef <type> <name> ;
	var typeText string
	for !p.atEOF() && !p.cur().IsPunct(";") && !(p.cur().Kind == TokIdent && p.at(1).IsPunct(";")) {
		typeText += p.cur().Text + " "
		p.advance()
	}
	nameTok := p.expectIdent()
	endTok := p.cur()
	if p.cur().IsPunct(";") {
		p.advance()
	}
	return &Decl{
		Kind: DeclTypedef, Name: nameTok.Text, NameSpan: nameTok.Span,
		Span: p.span(startTok, endTok), TypeName: trimTrailingSpace(typeText),
	}
}

func (p *Parser) parseEnumTypedef(startTok Token) *Decl {
	p.advance() // enum
	var baseType string
	for !p.atEOF() && !p.cur().IsPunct("{") {
		baseType += p.cur().Text + " "
		p.advance()
	}
	d := &Decl{Kind: DeclEnumType, TypeName: trimTrailingSpace(baseType)}
	if p.cur().IsPunct("{") {
		p.advance()
		for !p.atEOF() && !p.cur().IsPunct("}") {
			if p.cur().Kind == TokIdent {
				valTok := p.advance()
				d.AddChild(&Decl{Kind: DeclEnumValue, Name: valTok.Text, NameSpan: valTok.Span, Span: valTok.Span})
				if p.cur().IsPunct("=") {
					p.advance()
					p.skipExprUntil(",", "}")
				}
				if p.cur().IsPunct(",") {
					p.advance()
				}
				continue
			}
			p.advance()
		}
		p.advance() // }
	}
	nameTok := p.expectIdent()
	d.Name = nameTok.Text
	d.NameSpan = nameTok.Span
	endTok := p.cur()
	if p.cur().IsPunct(";") {
		p.advance()
	}
	d.Span = p.span(startTok, endTok)
	return d
}

func (p *Parser) parseStructUnionTypedef(startTok Token) *Decl {
	kind := DeclStructType
	if p.cur().IsKeyword("union") {
		kind = DeclUnionType
	}
	p.advance()
	for p.cur().IsKeyword("packed") || p.cur().IsKeyword("tagged") ||
		p.cur().IsKeyword("signed") || p.cur().IsKeyword("unsigned") {
		p.advance()
	}
	d := &Decl{Kind: kind}
	if p.cur().IsPunct("{") {
		p.advance()
		for !p.atEOF() && !p.cur().IsPunct("}") {
			before := p.pos
			group := p.parseDataDecl(DeclField)
			for _, f := range group {
				d.AddChild(f)
			}
			if p.pos == before {
				p.advance()
			}
		}
		p.advance() // }
	}
	nameTok := p.expectIdent()
	d.Name = nameTok.Text
	d.NameSpan = nameTok.Span
	endTok := p.cur()
	if p.cur().IsPunct(";") {
		p.advance()
	}
	d.Span = p.span(startTok, endTok)
	return d
}

// parseImportAsGroup handles "import pkg::name, pkg2::name2;" and returns a
// single representative Decl (the first import item) after recording every
// item as a Reference and, when parent is non-nil, attaching the rest.
func (p *Parser) parseImportAsGroup(parent *Decl) *Decl {
	startTok := p.advance() // import
	var first *Decl
	for {
		pkgTok := p.expectIdent()
		if p.cur().IsPunct("::") {
			p.advance()
		}
		var name string
		var nameSpan location.Span
		if p.cur().IsPunct("*") {
			t := p.advance()
			name, nameSpan = "*", t.Span
		} else {
			t := p.expectIdent()
			name, nameSpan = t.Text, t.Span
		}
		d := &Decl{
			Kind: DeclImport, Name: name, NameSpan: nameSpan, Span: p.span(pkgTok, p.prevOrCur()),
			PackageQualifier: pkgTok.Text,
		}
		p.tree.References = append(p.tree.References, Reference{
			Kind: RefImportTarget, Name: name, Qualifier: pkgTok.Text, Span: nameSpan, From: d,
		})
		if first == nil {
			first = d
		} else if parent != nil {
			parent.AddChild(d)
		} else {
			p.tree.Decls = append(p.tree.Decls, d)
		}
		if p.cur().IsPunct(",") {
			p.advance()
			continue
		}
		break
	}
	_ = startTok
	if p.cur().IsPunct(";") {
		p.advance()
	}
	return first
}

func (p *Parser) prevOrCur() Token {
	if p.pos == 0 {
		return p.cur()
	}
	return p.toks[p.pos-1]
}

// parseParamGroup parses "parameter|localparam [type] name [=expr] , ... ;"
// and also the bare form used directly inside statement context.
func (p *Parser) parseParamGroup() []*Decl {
	startTok := p.advance() // parameter/localparam
	isType := false
	if p.cur().IsKeyword("type") {
		isType = true
		p.advance()
	}
	var typeText string
	for p.cur().Kind != TokIdent || !p.isNameBeforeAssignOrCommaOrSemi() {
		if p.atEOF() || p.cur().IsPunct(";") {
			break
		}
		typeText += p.cur().Text + " "
		p.advance()
	}
	typeText = trimTrailingSpace(typeText)

	var out []*Decl
	for {
		if p.cur().Kind != TokIdent {
			break
		}
		nameTok := p.advance()
		kind := DeclParameter
		if isType {
			kind = DeclTypeParameter
		}
		d := &Decl{Kind: kind, Name: nameTok.Text, NameSpan: nameTok.Span, Span: nameTok.Span, TypeName: typeText}
		out = append(out, d)
		if p.cur().IsPunct("=") {
			p.advance()
			p.skipExprUntil(",", ";")
		}
		if p.cur().IsPunct(",") {
			p.advance()
			continue
		}
		break
	}
	if p.cur().IsPunct(";") {
		p.advance()
	}
	_ = startTok
	return out
}

// isNameBeforeAssignOrCommaOrSemi is a heuristic used while scanning a
// parameter's optional type text: an identifier is the declared name (not
// part of the type) when followed by = , or ; .
func (p *Parser) isNameBeforeAssignOrCommaOrSemi() bool {
	next := p.at(1)
	return next.IsPunct("=") || next.IsPunct(",") || next.IsPunct(";")
}

func (p *Parser) parseGenvarGroup() []*Decl {
	p.advance() // genvar
	var out []*Decl
	for p.cur().Kind == TokIdent {
		nameTok := p.advance()
		out = append(out, &Decl{Kind: DeclGenvar, Name: nameTok.Text, NameSpan: nameTok.Span, Span: nameTok.Span})
		if p.cur().IsPunct(",") {
			p.advance()
			continue
		}
		break
	}
	if p.cur().IsPunct(";") {
		p.advance()
	}
	return out
}

// parseFunctionLike parses function/task declarations. Arguments are
// captured as DeclVariable children; the body is skipped structurally.
func (p *Parser) parseFunctionLike(kind DeclKind, endKw string) *Decl {
	startTok := p.advance() // function/task
	for p.cur().IsKeyword("automatic") || p.cur().IsKeyword("static") ||
		p.cur().IsKeyword("virtual") || p.cur().IsKeyword("pure") {
		p.advance()
	}
	var returnType string
	if kind == DeclFunction {
		for !p.atEOF() && !(p.cur().Kind == TokIdent && (p.at(1).IsPunct("(") || p.at(1).IsPunct(";"))) {
			returnType += p.cur().Text + " "
			p.advance()
			if p.cur().IsPunct(";") || p.cur().IsKeyword(endKw) {
				break
			}
		}
	}
	nameTok := p.expectIdent()
	d := &Decl{Kind: kind, Name: nameTok.Text, NameSpan: nameTok.Span, TypeName: trimTrailingSpace(returnType)}
	if p.cur().IsPunct("(") {
		p.advance()
		depth := 1
		for depth > 0 && !p.atEOF() {
			t := p.cur()
			switch {
			case t.IsPunct("("):
				depth++
				p.advance()
			case t.IsPunct(")"):
				depth--
				p.advance()
			case depth == 1 && t.Kind == TokIdent && p.isPortNamePosition():
				argTok := p.advance()
				d.AddChild(&Decl{Kind: DeclVariable, Name: argTok.Text, NameSpan: argTok.Span, Span: argTok.Span})
			case depth == 1 && t.IsPunct(","):
				p.advance()
			default:
				p.advance()
			}
		}
	}
	if p.cur().IsPunct(";") {
		p.advance()
	}
	for !p.atEOF() && !p.cur().IsKeyword(endKw) {
		before := p.pos
		child := p.parseItem(d, DeclVariable)
		if child != nil && child.Parent == nil {
			d.AddChild(child)
		}
		if p.pos == before {
			p.advance()
		}
	}
	endTok := p.cur()
	if !p.atEOF() {
		p.advance()
		p.skipOptionalLabel()
	}
	d.Span = p.span(startTok, endTok)
	return d
}

// parseGenerateFor consumes a "for ( ... )" header and indexes only the
// template body that follows, not the (unbounded) set of expanded
// instances — LSP has no notion of a symbol existing N times. A named
// "begin : label ... end" body is tagged DeclGenerateBlockArray so document
// symbol projection can tell it apart from an ordinary named block. A loop
// variable declared in the header ("for (genvar i = ...") is recorded as a
// genvar of the enclosing scope.
func (p *Parser) parseGenerateFor(parent *Decl, plainVarKind DeclKind) *Decl {
	p.advance() // for
	if p.cur().IsPunct("(") {
		if p.at(1).IsKeyword("genvar") && p.at(2).Kind == TokIdent {
			nameTok := p.at(2)
			p.attachGroup(parent, []*Decl{{Kind: DeclGenvar, Name: nameTok.Text, NameSpan: nameTok.Span, Span: nameTok.Span}})
		}
		p.skipBalanced("(", ")")
	}
	var child *Decl
	if p.cur().IsKeyword("begin") {
		child = p.parseBeginBlock(true)
	} else {
		child = p.parseItem(parent, plainVarKind)
	}
	return p.attachIfUnparented(parent, child)
}

// parseGenerateIf consumes an "if ( ... ) body [else [if (...)] body]" chain,
// indexing every named block found along the way and returning the entry for
// the first (if) branch.
func (p *Parser) parseGenerateIf(parent *Decl, plainVarKind DeclKind) *Decl {
	p.advance() // if
	if p.cur().IsPunct("(") {
		p.skipBalanced("(", ")")
	}
	first := p.attachIfUnparented(parent, p.parseItem(parent, plainVarKind))
	for p.cur().IsKeyword("else") {
		p.advance()
		if p.cur().IsKeyword("if") {
			p.advance()
			if p.cur().IsPunct("(") {
				p.skipBalanced("(", ")")
			}
		}
		p.attachIfUnparented(parent, p.parseItem(parent, plainVarKind))
	}
	return first
}

// attachIfUnparented adds child to parent's children when child hasn't
// already been attached by a nested attachGroup call, mirroring the pattern
// every begin/generate loop body uses.
func (p *Parser) attachIfUnparented(parent *Decl, child *Decl) *Decl {
	if child != nil && child.Parent == nil && parent != nil {
		parent.AddChild(child)
	}
	return child
}

func (p *Parser) parseGenerateRegion() *Decl {
	startTok := p.advance() // generate
	d := &Decl{Kind: DeclGenerateBlock, Name: ""}
	for !p.atEOF() && !p.cur().IsKeyword("endgenerate") {
		before := p.pos
		child := p.parseItem(d, DeclVariable)
		if child != nil && child.Parent == nil {
			d.AddChild(child)
		}
		if p.pos == before {
			p.advance()
		}
	}
	endTok := p.cur()
	if !p.atEOF() {
		p.advance()
	}
	d.Span = p.span(startTok, endTok)
	return d
}

// parseBeginBlock handles "begin [:label] ... end [:label]", starting at the
// begin keyword, producing a block Decl whose Kind reflects only whether a
// "for" immediately preceded it (generate-block array); an unlabeled block
// is still DeclNamedBlock, with an empty Name.
func (p *Parser) parseBeginBlock(isArray bool) *Decl {
	startTok := p.advance() // begin
	d := &Decl{Kind: DeclNamedBlock}
	if isArray {
		d.Kind = DeclGenerateBlockArray
	}
	if p.cur().IsPunct(":") {
		p.advance()
		nameTok := p.expectIdent()
		d.Name = nameTok.Text
		d.NameSpan = nameTok.Span
	}
	for !p.atEOF() && !p.cur().IsKeyword("end") {
		before := p.pos
		child := p.parseItem(d, DeclVariable)
		if child != nil && child.Parent == nil {
			d.AddChild(child)
		}
		if p.pos == before {
			p.advance()
		}
	}
	endTok := p.cur()
	if !p.atEOF() {
		p.advance()
		p.skipOptionalLabel()
	}
	d.Span = p.span(startTok, endTok)
	return d
}

func (p *Parser) skipOptionalLabel() {
	if p.cur().IsPunct(":") {
		p.advance()
		if p.cur().Kind == TokIdent {
			p.advance()
		}
	}
}

// skipCase consumes a case/casex/casez ... endcase statement, recursing into
// parseItem for any begin/end blocks nested in its arms so generate-case and
// procedural-case bodies still index named blocks correctly.
func (p *Parser) skipCase() {
	p.advance() // case/casex/casez
	if p.cur().IsPunct("(") {
		p.skipBalanced("(", ")")
	}
	if p.cur().IsKeyword("matches") || p.cur().IsKeyword("inside") {
		p.advance()
	}
	for !p.atEOF() && !p.cur().IsKeyword("endcase") {
		if p.cur().IsKeyword("begin") {
			p.parseBeginBlock(false)
			continue
		}
		p.advance()
	}
	if !p.atEOF() {
		p.advance() // endcase
	}
}

// skipStatementOrBlock consumes a single procedural statement or a
// begin/end block following always/initial/final/assign, preserving any
// named blocks found inside.
func (p *Parser) skipStatementOrBlock() {
	p.advance() // always/initial/.../assign keyword variant, or nothing consumed for assign's LHS start
	for p.cur().IsKeyword("posedge") || p.cur().IsKeyword("negedge") || p.cur().IsPunct("@") || p.cur().IsPunct("(") {
		if p.cur().IsPunct("(") {
			p.skipBalanced("(", ")")
		} else {
			p.advance()
		}
	}
	if p.cur().IsKeyword("begin") {
		p.parseBeginBlock(false)
		return
	}
	p.skipExprUntil(";")
}

// parseDataDecl parses "[input|output|inout] type name [dims] [=init] , ... ;"
// used for ports, struct/union fields, and net declarations where the
// leading keyword already disambiguates the construct.
func (p *Parser) parseDataDecl(kind DeclKind) []*Decl {
	var typeText string
	for !p.atEOF() && !(p.cur().Kind == TokIdent && p.isPortNamePosition()) && !p.cur().IsPunct(";") {
		typeText += p.cur().Text + " "
		p.advance()
		if p.cur().IsPunct("[") {
			p.skipBalanced("[", "]")
		}
	}
	typeText = trimTrailingSpace(typeText)
	var out []*Decl
	for p.cur().Kind == TokIdent {
		nameTok := p.advance()
		d := &Decl{Kind: kind, Name: nameTok.Text, NameSpan: nameTok.Span, Span: nameTok.Span, TypeName: typeText}
		out = append(out, d)
		p.skipDimensionsAndDefault()
		if p.cur().IsPunct(",") {
			p.advance()
			continue
		}
		break
	}
	if p.cur().IsPunct(";") {
		p.advance()
	}
	return out
}

// parseDataDeclOrInstance disambiguates a type-led item into one or more
// variable/net declarations or one or more module/interface instances,
// looking ahead past the declared name to the token that tells them apart:
// '(' means instantiation, anything else means a data declaration.
func (p *Parser) parseDataDeclOrInstance(plainVarKind DeclKind) []*Decl {
	typeTok := p.cur()
	var typeText string
	for !p.atEOF() {
		t := p.cur()
		if t.Kind == TokIdent && p.isDeclaredNamePosition() {
			break
		}
		if t.IsPunct(";") {
			return nil
		}
		typeText += t.Text + " "
		p.advance()
		if p.cur().IsPunct("[") {
			p.skipBalanced("[", "]")
		}
		if p.cur().IsPunct("#") {
			p.advance()
			if p.cur().IsPunct("(") {
				p.skipBalanced("(", ")")
			}
		}
	}
	typeText = trimTrailingSpace(typeText)

	if typeTok.Kind == TokIdent && !dataTypeKeywords[typeTok.Text] {
		p.tree.References = append(p.tree.References, Reference{
			Kind: RefTypeUsage, Name: typeTok.Text, Span: typeTok.Span,
		})
	}

	var out []*Decl
	for p.cur().Kind == TokIdent {
		nameTok := p.advance()
		if p.cur().IsPunct("[") {
			p.skipBalanced("[", "]")
		}
		if p.cur().IsPunct("(") {
			instStart := p.skipBalanced("(", ")")
			d := &Decl{
				Kind: DeclInstance, Name: nameTok.Text, NameSpan: nameTok.Span,
				Span: p.span(typeTok, instStart), InstanceOf: typeTok.Text, InstanceOfSpan: typeTok.Span,
			}
			p.tree.References = append(p.tree.References, Reference{
				Kind: RefInstanceOf, Name: typeTok.Text, Span: typeTok.Span, From: d,
			})
			out = append(out, d)
		} else {
			d := &Decl{
				Kind: plainVarKind, Name: nameTok.Text, NameSpan: nameTok.Span,
				Span: nameTok.Span, TypeName: typeText,
			}
			p.skipDimensionsAndDefault()
			out = append(out, d)
		}
		if p.cur().IsPunct(",") {
			p.advance()
			continue
		}
		break
	}
	if p.cur().IsPunct(";") {
		p.advance()
	}
	return out
}

// isDeclaredNamePosition reports whether the current identifier is the
// declared name (not a further type-qualifying word) by checking that the
// next token is one that can only follow a name: , ; ( [ or =. A '#' after
// an identifier starts a parameter override on the type, not a name.
func (p *Parser) isDeclaredNamePosition() bool {
	next := p.at(1)
	return next.IsPunct(",") || next.IsPunct(";") || next.IsPunct("(") ||
		next.IsPunct("[") || next.IsPunct("=")
}

// skipBalanced consumes a delimiter-balanced run starting at the current
// open token (which must equal open) through its matching close, returning
// the close token.
func (p *Parser) skipBalanced(open, close string) Token {
	p.advance() // opening delimiter
	depth := 1
	for depth > 0 && !p.atEOF() {
		switch {
		case p.cur().IsPunct(open):
			depth++
		case p.cur().IsPunct(close):
			depth--
		}
		t := p.advance()
		if depth == 0 {
			return t
		}
	}
	return p.cur()
}

// skipExprUntil consumes tokens up to (not including) the first occurrence
// of any stopper at bracket depth 0.
func (p *Parser) skipExprUntil(stoppers ...string) {
	depth := 0
	for !p.atEOF() {
		t := p.cur()
		if depth == 0 {
			for _, s := range stoppers {
				if t.IsPunct(s) {
					return
				}
			}
		}
		switch t.Text {
		case "(", "[", "{":
			if t.Kind == TokPunct {
				depth++
			}
		case ")", "]", "}":
			if t.Kind == TokPunct {
				depth--
			}
		}
		p.advance()
	}
}

func (p *Parser) expectIdent() Token {
	if p.cur().Kind == TokIdent {
		return p.advance()
	}
	p.reportf(p.cur().Span, "expected identifier, found '"+p.cur().Text+"'")
	return p.cur()
}

func (p *Parser) span(start, end Token) location.Span {
	if merged, ok := location.MergeSafe(start.Span, end.Span); ok {
		return merged
	}
	return start.Span
}

func trimTrailingSpace(s string) string {
	for len(s) > 0 && s[len(s)-1] == ' ' {
		s = s[:len(s)-1]
	}
	return s
}
