// ABOUTME: SourceDocument is a raw text document with provenance metadata
// ABOUTME: One per loaded file, immutable after loading
package models

import "time"

// Origin describes where a document came from: a local path under the
// document root, or a path inside a remote GitHub repository.
type Origin struct {
	Path       string `json:"path"`
	Repository string `json:"repository,omitempty"` // owner/name, empty for local files
	Ref        string `json:"ref,omitempty"`        // branch or commit, empty for local files
}

// IsRemote reports whether the document was loaded from a repository.
func (o Origin) IsRemote() bool {
	return o.Repository != ""
}

// SourceDocument is a raw text document plus provenance.
type SourceDocument struct {
	DocumentID  string    `json:"document_id"`
	Text        string    `json:"text"`
	Origin      Origin    `json:"origin"`
	RetrievedAt time.Time `json:"retrieved_at"`
}
