package validation

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxCommentLength bounds free-text approval comments and reasons.
const maxCommentLength = 2000

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeText strips all markup from operator-entered free text and trims
// it to maxCommentLength runes.
func SanitizeText(s string) string {
	clean := strings.TrimSpace(strictPolicy.Sanitize(s))
	if r := []rune(clean); len(r) > maxCommentLength {
		clean = string(r[:maxCommentLength])
	}
	return clean
}
