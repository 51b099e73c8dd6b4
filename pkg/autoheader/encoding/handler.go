// Package encoding sniffs binary content and converts source files to and from
// UTF-8 so headers can be stamped without corrupting legacy encodings.
package encoding

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

const (
	sniffLen      = 512  // bytes given to http.DetectContentType
	checkLen      = 1024 // bytes scanned for NUL
	nullThreshold = 0.15
)

var knownTextMIMEPrefixes = []string{
	"text/",
	"application/json",
	"application/xml",
	"application/javascript",
	"application/ecmascript",
	"image/svg+xml",
	"application/octet-stream", // decided by the NUL check
}

// UTF8BOM is the byte order mark some editors write at the start of UTF-8 files.
var UTF8BOM = []byte{0xEF, 0xBB, 0xBF}

// EncodingHandler detects encodings, converts between them and UTF-8, and
// recognizes binary content.
type EncodingHandler interface {
	// DetectAndDecode converts content to UTF-8 and reports the IANA name of the
	// source encoding and whether detection was certain.
	DetectAndDecode(content []byte) (utf8Content []byte, detectedEncoding string, certainty bool, err error)
	// Encode converts UTF-8 content back to the named encoding.
	Encode(utf8Content []byte, encodingName string) ([]byte, error)
	// IsBinary reports whether content looks like binary data.
	IsBinary(content []byte) bool
}

type goCharsetEncodingHandler struct {
	defaultEncoding string
}

// NewGoCharsetEncodingHandler creates a handler that falls back to
// defaultEncoding when detection is uncertain.
func NewGoCharsetEncodingHandler(defaultEncoding string) EncodingHandler {
	return &goCharsetEncodingHandler{defaultEncoding: defaultEncoding}
}

// DetectAndDecode implements EncodingHandler.
func (h *goCharsetEncodingHandler) DetectAndDecode(content []byte) ([]byte, string, bool, error) {
	enc, name, certain := charset.DetermineEncoding(content, "")
	if !certain && h.defaultEncoding != "" {
		if fallback, fallbackName := charset.Lookup(h.defaultEncoding); fallback != nil {
			enc, name, certain = fallback, fallbackName, true
		}
	}
	if name == "" {
		name = "utf-8"
	}
	if enc == nil || isUTF8(name) {
		return content, name, certain, nil
	}

	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(content), enc.NewDecoder()))
	if err != nil {
		return content, name, certain, fmt.Errorf("failed to convert from '%s': %w", name, err)
	}
	return decoded, name, certain, nil
}

// Encode implements EncodingHandler.
func (h *goCharsetEncodingHandler) Encode(utf8Content []byte, encodingName string) ([]byte, error) {
	if encodingName == "" || isUTF8(encodingName) {
		return utf8Content, nil
	}
	enc, _ := charset.Lookup(encodingName)
	if enc == nil {
		return nil, fmt.Errorf("unknown encoding '%s'", encodingName)
	}
	encoded, _, err := transform.Bytes(enc.NewEncoder(), utf8Content)
	if err != nil {
		return nil, fmt.Errorf("failed to convert to '%s': %w", encodingName, err)
	}
	return encoded, nil
}

// IsBinary implements EncodingHandler.
func (h *goCharsetEncodingHandler) IsBinary(content []byte) bool {
	if len(content) == 0 {
		return false
	}
	contentType := http.DetectContentType(content[:min(len(content), sniffLen)])
	if !isMIMETextBased(contentType) {
		return true
	}
	sample := content[:min(len(content), checkLen)]
	nulls := bytes.Count(sample, []byte{0x00})
	return float64(nulls)/float64(len(sample)) > nullThreshold
}

func isMIMETextBased(contentType string) bool {
	mimeType := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	for _, prefix := range knownTextMIMEPrefixes {
		if strings.HasPrefix(mimeType, prefix) {
			return true
		}
	}
	return strings.HasSuffix(mimeType, "+xml") || strings.HasSuffix(mimeType, "+json")
}

func isUTF8(name string) bool {
	n := strings.ToLower(name)
	return n == "utf-8" || n == "utf8"
}
