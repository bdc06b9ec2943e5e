package validators

import "strings"

// SanitizeString collapses whitespace runs to single spaces, trims the ends and
// cuts the result to maxLen runes. maxLen <= 0 disables the cut.
func SanitizeString(input string, maxLen int) string {
	clean := strings.Join(strings.Fields(input), " ")
	if maxLen <= 0 {
		return clean
	}
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	return strings.TrimSpace(string(runes[:maxLen]))
}

// SanitizeOptional applies SanitizeString to a partial-update field, keeping nil as nil.
func SanitizeOptional(input *string, maxLen int) *string {
	if input == nil {
		return nil
	}
	clean := SanitizeString(*input, maxLen)
	return &clean
}
