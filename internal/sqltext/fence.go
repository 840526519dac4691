package sqltext

import "strings"

const (
	fenceMarker = "```"
	languageTag = "sql"
)

// StripFences removes markdown code fences and a leading "sql" language tag
// from generated text.
//
// Rules, in order:
//   - a leading ``` is dropped
//   - a trailing ``` is dropped together with any whitespace after it
//   - if the trimmed text starts with "sql" (any case), the tag is dropped
//     and the remainder trimmed
//
// The rules are reapplied until the text stops changing, so
// StripFences(StripFences(x)) == StripFences(x).
func StripFences(text string) string {
	for {
		next := stripOnce(text)
		if next == text {
			return next
		}
		text = next
	}
}

func stripOnce(text string) string {
	text = strings.TrimPrefix(text, fenceMarker)

	if trimmed := strings.TrimRight(text, " \t\r\n"); strings.HasSuffix(trimmed, fenceMarker) {
		text = strings.TrimSuffix(trimmed, fenceMarker)
	}

	if trimmed := strings.TrimSpace(text); len(trimmed) >= len(languageTag) &&
		strings.EqualFold(trimmed[:len(languageTag)], languageTag) {
		text = strings.TrimSpace(trimmed[len(languageTag):])
	}

	return text
}
