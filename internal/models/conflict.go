// ABOUTME: ConflictRecord captures contradictory retrieved passages for human review
// ABOUTME: Append-only, written as one JSON object per line, never read back
package models

import "time"

// ConflictRecord is written when two or more co-ranked passages are judged
// to state incompatible facts about the same subject.
type ConflictRecord struct {
	Query      string    `json:"query"`
	SessionID  string    `json:"session_id"`
	PassageIDs []string  `json:"passage_ids"`
	Scores     []float64 `json:"scores"`
	Timestamp  time.Time `json:"timestamp"`
}
