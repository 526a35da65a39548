// ABOUTME: Chunk is a retrieval-sized passage cut from a source document
// ABOUTME: Records heading path and char span so the document can be reconstructed
package models

// CharSpan is a half-open [Start, End) byte range into the parent document text.
type CharSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Chunk is one passage of a source document.
//
// Concatenating all chunks of a document in SequenceIndex order, dropping
// the overlapped prefix of each chunk (CharSpan makes the overlap explicit),
// reconstructs the document text exactly.
type Chunk struct {
	Text          string   `json:"text"`
	DocumentID    string   `json:"document_id"`
	SequenceIndex int      `json:"sequence_index"`
	HeadingPath   []string `json:"heading_path,omitempty"`
	Span          CharSpan `json:"char_span"`
}
