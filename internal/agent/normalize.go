// ABOUTME: Output normalization replacing typographic punctuation with ASCII
// ABOUTME: Keeps responses renderable on plain terminals and chat bridges
package agent

import "strings"

var punctuationReplacer = strings.NewReplacer(
	"‘", "'", // left single quote
	"’", "'", // right single quote
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"–", "-", // en dash
	"—", "-", // em dash
	"…", "...", // ellipsis
	" ", " ", // non-breaking space
)

// Normalize rewrites typographic punctuation the completion model tends to
// emit into plain ASCII equivalents. Other text is untouched.
func Normalize(text string) string {
	return punctuationReplacer.Replace(text)
}
