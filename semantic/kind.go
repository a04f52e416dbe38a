package semantic

import "github.com/hankhsu1996/slangd-go/internal/sv"

// Kind is the LSP-facing symbol kind a semantic entry projects as. It is a
// domain-local enum rather than a direct alias of any LSP library type, so
// the index never depends on a transport package.
type Kind int

const (
	KindObject Kind = iota
	KindClass
	KindPackage
	KindInterface
	KindFunction
	KindConstant
	KindEnum
	KindStruct
	KindVariable
	KindField
	KindTypeParameter
	KindNamespace
)

// String returns a human-readable label, used in logging.
func (k Kind) String() string {
	switch k {
	case KindClass:
		return "Class"
	case KindPackage:
		return "Package"
	case KindInterface:
		return "Interface"
	case KindFunction:
		return "Function"
	case KindConstant:
		return "Constant"
	case KindEnum:
		return "Enum"
	case KindStruct:
		return "Struct"
	case KindVariable:
		return "Variable"
	case KindField:
		return "Field"
	case KindTypeParameter:
		return "TypeParameter"
	case KindNamespace:
		return "Namespace"
	default:
		return "Object"
	}
}

// kindForDecl maps a parsed declaration's kind to the LSP symbol kind it
// projects as.
func kindForDecl(d *sv.Decl) Kind {
	switch d.Kind {
	case sv.DeclModule, sv.DeclProgram, sv.DeclClass, sv.DeclUnionType:
		return KindClass
	case sv.DeclPackage:
		return KindPackage
	case sv.DeclInterface, sv.DeclModport:
		return KindInterface
	case sv.DeclFunction, sv.DeclTask:
		return KindFunction
	case sv.DeclParameter, sv.DeclEnumValue:
		return KindConstant
	case sv.DeclTypedef:
		// The parser already resolves "typedef enum {...} t;" and "typedef
		// struct {...} t;" directly to DeclEnumType/DeclStructType with
		// their values/fields attached as children, so a DeclTypedef node
		// here is always the plain-alias form.
		return KindTypeParameter
	case sv.DeclEnumType:
		return KindEnum
	case sv.DeclStructType:
		return KindStruct
	case sv.DeclVariable, sv.DeclNet, sv.DeclPort, sv.DeclInstance, sv.DeclUninstantiatedDef:
		return KindVariable
	case sv.DeclField, sv.DeclClassProperty:
		return KindField
	case sv.DeclTypeParameter, sv.DeclForwardTypedef:
		return KindTypeParameter
	case sv.DeclGenerateBlock, sv.DeclGenerateBlockArray, sv.DeclNamedBlock:
		return KindNamespace
	default:
		return KindObject
	}
}
