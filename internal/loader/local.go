// ABOUTME: Local document loading from a root directory with glob patterns
// ABOUTME: Per-file failures are logged and skipped, never failing the batch
package loader

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/byoung/ai-me/internal/models"
)

// LoadLocal walks the document root and returns a document for every file
// matching any of the glob patterns. A missing root is a warning, not an
// error: it yields no documents.
func LoadLocal(root string, patterns []string) []models.SourceDocument {
	log.Printf("Loading local documents from: %s", root)

	if _, err := os.Stat(root); err != nil {
		log.Printf("Warning: directory not found: %s - skipping local documents", root)
		return nil
	}

	matchers := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := globToRegexp(pattern)
		if err != nil {
			log.Printf("Warning: invalid glob pattern %q: %v - skipping this pattern", pattern, err)
			continue
		}
		matchers = append(matchers, re)
	}

	var docs []models.SourceDocument
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Printf("Warning: cannot access %s: %v - skipping", path, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		matched := false
		for _, re := range matchers {
			if re.MatchString(rel) {
				matched = true
				break
			}
		}
		if !matched {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("Warning: failed to read %s: %v - skipping", path, err)
			return nil
		}
		if !utf8.Valid(data) {
			log.Printf("Warning: %s is not valid UTF-8 - skipping", path)
			return nil
		}

		docs = append(docs, models.SourceDocument{
			DocumentID:  "local:" + rel,
			Text:        string(data),
			Origin:      models.Origin{Path: rel},
			RetrievedAt: time.Now(),
		})
		return nil
	})
	if err != nil {
		log.Printf("Warning: walking %s failed: %v", root, err)
	}

	log.Printf("Loaded %d total local documents.", len(docs))
	return docs
}

// globToRegexp converts a doublestar-style glob to an anchored regexp.
// ** matches across path separators, * and ? stay within one segment.
func globToRegexp(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("^")

	i := 0
	for i < len(pattern) {
		switch {
		case strings.HasPrefix(pattern[i:], "**/"):
			sb.WriteString(`(?:[^/]+/)*`)
			i += 3
		case strings.HasPrefix(pattern[i:], "**"):
			sb.WriteString(`.*`)
			i += 2
		case pattern[i] == '*':
			sb.WriteString(`[^/]*`)
			i++
		case pattern[i] == '?':
			sb.WriteString(`[^/]`)
			i++
		default:
			sb.WriteString(regexp.QuoteMeta(string(pattern[i])))
			i++
		}
	}
	sb.WriteString("$")
	return regexp.Compile(sb.String())
}
