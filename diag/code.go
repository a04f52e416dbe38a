package diag

// CodeCategory represents the semantic domain of an error code.
//
// Categories represent the semantic domain of an error, not necessarily the
// API layer that emits it. Most codes are emitted exclusively by their
// category's layer, but some codes represent cross-cutting concerns.
type CodeCategory uint8

const (
	// CategorySentinel is for sentinel codes like E_LIMIT_REACHED and E_INTERNAL.
	CategorySentinel CodeCategory = iota

	// CategorySyntax is for lexer/parser errors.
	CategorySyntax

	// CategorySemantic is for errors found while merging declarations across
	// a compilation (symbol-table construction), short of full elaboration.
	CategorySemantic

	// CategoryConfig is for workspace configuration loading errors.
	CategoryConfig
)

// String returns a human-readable label for the category.
func (c CodeCategory) String() string {
	switch c {
	case CategorySentinel:
		return "sentinel"
	case CategorySyntax:
		return "syntax"
	case CategorySemantic:
		return "semantic"
	case CategoryConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Code is a stable programmatic identifier for an Issue.
//
// Error codes are stable identifiers that tools can match on, even when
// message text changes. The Code type uses unexported fields to enforce
// a closed set of valid codes—only codes defined in this package are valid.
//
// Code.String() values are globally unique across all categories. The
// CodeCategory is informational metadata for filtering and grouping.
type Code struct {
	value string
	cat   CodeCategory
}

// String returns the code's string representation (e.g., "E_SYNTAX").
func (c Code) String() string {
	return c.value
}

// Category returns the programmatic category for this code.
func (c Code) Category() CodeCategory {
	return c.cat
}

// IsZero reports whether the code is unset.
func (c Code) IsZero() bool {
	return c.value == ""
}

// code is the unexported constructor—callers cannot create arbitrary codes.
func code(value string, cat CodeCategory) Code {
	return Code{value: value, cat: cat}
}

// Sentinel codes.
var (
	// E_LIMIT_REACHED is a sentinel code for explicit limit notification.
	// It does not automatically trigger Result.LimitReached(); use
	// Collector.LimitReached() to check limit status. Callers may inject
	// this code manually when desired.
	E_LIMIT_REACHED = code("E_LIMIT_REACHED", CategorySentinel)

	// E_INTERNAL indicates an unexpected invariant failure (internal bug indicator).
	// Use for conditions that should never occur in correct code.
	E_INTERNAL = code("E_INTERNAL", CategorySentinel)
)

// Syntax codes.
var (
	// E_SYNTAX indicates a syntax error in the source text.
	E_SYNTAX = code("E_SYNTAX", CategorySyntax)
)

// Semantic codes.
var (
	// E_DUPLICATE_DEFINITION indicates two top-level definitions (module,
	// interface, program, class, or package) share the same name within a
	// compilation. The later declaration wins in the symbol table, matching
	// how a real toolchain reports the redefinition at its own site while
	// keeping the last file it saw authoritative for indexing.
	E_DUPLICATE_DEFINITION = code("E_DUPLICATE_DEFINITION", CategorySemantic)
)

// Config codes.
var (
	// E_CONFIG_PARSE indicates the workspace configuration file could not be
	// parsed and the layout fell back to auto-discovery.
	E_CONFIG_PARSE = code("E_CONFIG_PARSE", CategoryConfig)

	// E_CONFIG_FILE_LIST indicates a file_lists entry could not be read; the
	// rest of the layout still loads.
	E_CONFIG_FILE_LIST = code("E_CONFIG_FILE_LIST", CategoryConfig)
)

// allCodes contains all defined codes for AllCodes() and uniqueness verification.
var allCodes = []Code{
	// Sentinel
	E_LIMIT_REACHED,
	E_INTERNAL,
	// Syntax
	E_SYNTAX,
	// Semantic
	E_DUPLICATE_DEFINITION,
	// Config
	E_CONFIG_PARSE,
	E_CONFIG_FILE_LIST,
}

// AllCodes returns all defined codes.
//
// This function is useful for tooling and testing. The returned slice is a
// copy; modifications do not affect the original.
func AllCodes() []Code {
	result := make([]Code, len(allCodes))
	copy(result, allCodes)
	return result
}

// CodesByCategory returns codes in the given category.
//
// The returned slice is a new allocation; modifications do not affect
// internal state.
func CodesByCategory(cat CodeCategory) []Code {
	var result []Code
	for _, c := range allCodes {
		if c.cat == cat {
			result = append(result, c)
		}
	}
	return result
}
