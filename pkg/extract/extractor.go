// Package extract converts raw document bytes into plain text.
package extract

import (
	"fmt"
	"strings"
)

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractBytes extracts text from content based on the file extension.
// ext should include the leading dot (e.g. ".pdf"). Unknown extensions are
// treated as plain text; callers validate the extension allow-list upstream.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	default:
		return extractPlain(content)
	}
}

// ExtractFilename is a convenience wrapper taking a full filename.
func (e *Extractor) ExtractFilename(content []byte, filename string) (string, error) {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return "", fmt.Errorf("filename %q has no extension", filename)
	}
	return e.ExtractBytes(content, filename[idx:])
}
