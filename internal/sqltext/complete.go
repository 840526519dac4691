package sqltext

import "strings"

// DefaultLanguage is the procedural language PostgreSQL bodies are declared in.
const DefaultLanguage = "plpgsql"

// DelimiterMarker opens and closes a dollar-quoted function body.
const DelimiterMarker = "$$"

// Clause returns the terminating clause "LANGUAGE <language>;".
func Clause(language string) string {
	if language == "" {
		language = DefaultLanguage
	}
	return "LANGUAGE " + language + ";"
}

// Closer returns the synthetic suffix appended to bodies that lack one,
// e.g. "$$ LANGUAGE plpgsql;".
func Closer(language string) string {
	return DelimiterMarker + " " + Clause(language)
}

// IsComplete reports whether text contains the delimiter marker followed,
// strictly later, by the terminating clause for language.
//
// Markers inside comments or string literals count too; callers rely on this
// exact heuristic for resumption.
func IsComplete(text, language string) bool {
	idx := strings.Index(text, DelimiterMarker)
	if idx < 0 {
		return false
	}
	return strings.Contains(text[idx+len(DelimiterMarker):], Clause(language))
}
