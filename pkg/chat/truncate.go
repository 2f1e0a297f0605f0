package chat

// Ellipsis marks truncated text.
const Ellipsis = "…"

// Truncate shortens s to at most n runes, ending in Ellipsis when cut.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + Ellipsis
}
