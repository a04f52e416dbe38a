package diag

// Detail provides key-value context for diagnostic issues.
//
// Details are used to add structured information to issues that can be
// programmatically inspected by tools. Use the standard detail key constants
// to ensure consistent key naming across the codebase.
type Detail struct {
	Key   string
	Value string
}

// Standard detail keys for consistent diagnostic metadata.
//
// Use these constants to avoid stringly-typed drift and enable programmatic
// inspection of diagnostic details. Custom detail keys are permitted for
// domain-specific diagnostics; use lower_snake_case for custom keys.
const (
	// DetailKeyExpected is the expected value or type.
	DetailKeyExpected = "expected"

	// DetailKeyGot is the actual value or type received.
	DetailKeyGot = "got"

	// DetailKeyDeclKind is the declaration kind involved in the diagnostic
	// (e.g. "module", "interface", "package").
	DetailKeyDeclKind = "decl_kind"

	// DetailKeyName is the declaration or identifier name.
	DetailKeyName = "name"

	// DetailKeyFile is a file path involved in the diagnostic (for errors
	// that span multiple files, such as cross-file duplicate definitions).
	DetailKeyFile = "file"

	// DetailKeyConfigKey is the .slangd YAML key that failed validation
	// (e.g. "files", "include_dirs", "file_lists").
	DetailKeyConfigKey = "config_key"

	// DetailKeyContext is contextual information (e.g. "Parser", "Compilation").
	DetailKeyContext = "context"
)

// ExpectedGot creates a pair of details for type mismatch diagnostics.
//
// This is the standard pattern for reporting "expected X, got Y" errors.
func ExpectedGot(expected, got string) []Detail {
	return []Detail{
		{Key: DetailKeyExpected, Value: expected},
		{Key: DetailKeyGot, Value: got},
	}
}

// DuplicateDefinition creates detail entries identifying the kind and name
// of a redefined top-level declaration (module, interface, program, class,
// or package), alongside the RelatedInfo span pointing at the first
// definition.
func DuplicateDefinition(kind, name string) []Detail {
	return []Detail{
		{Key: DetailKeyDeclKind, Value: kind},
		{Key: DetailKeyName, Value: name},
	}
}

// ConfigField creates a detail entry identifying the .slangd config key that
// triggered a config diagnostic (E_CONFIG_PARSE, E_CONFIG_FILE_LIST).
func ConfigField(key string) []Detail {
	return []Detail{
		{Key: DetailKeyConfigKey, Value: key},
	}
}
