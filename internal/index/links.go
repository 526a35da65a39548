// ABOUTME: Source URL computation and root-relative link rewriting
// ABOUTME: Repo-origin passages get absolute GitHub URLs for attribution
package index

import (
	"fmt"
	"regexp"

	"github.com/byoung/ai-me/internal/models"
)

// rootRelativeLink matches root-relative paths like /website/ at the start
// of the text or after whitespace.
var rootRelativeLink = regexp.MustCompile(`(^|\s)(/[a-zA-Z0-9_-]+/)`)

// SourceURL computes the attribution URL for a chunk's parent document.
// Repository documents get an absolute GitHub blob URL; local documents
// keep a filesystem-relative annotation for traceability only.
func SourceURL(origin models.Origin) string {
	if origin.IsRemote() {
		return fmt.Sprintf("https://github.com/%s/blob/%s/%s", origin.Repository, origin.Ref, origin.Path)
	}
	return origin.Path
}

// RewriteLinks rewrites root-relative markdown links inside chunk text to
// absolute GitHub tree URLs when the document came from a known repository.
// Local-only documents are returned unchanged.
func RewriteLinks(text string, origin models.Origin) string {
	if !origin.IsRemote() {
		return text
	}
	replacement := fmt.Sprintf("${1}https://github.com/%s/tree/%s${2}", origin.Repository, origin.Ref)
	return rootRelativeLink.ReplaceAllString(text, replacement)
}
