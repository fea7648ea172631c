// Package parser turns uploaded document bytes into plain text. Formats are
// recognised by content sniffing, never by file extension: uploads lie about
// their names often enough that the extension is only a hint for logs.
package parser

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat marks bytes that are neither PDF, DOCX nor plain
// text. Callers treat it as a terminal per-document failure, not a retry.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Format is the sniffed document format.
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatDOCX  Format = "docx"
	FormatPlain Format = "txt"
)

var (
	pdfMagic = []byte("%PDF")
	zipMagic = []byte("PK\x03\x04")
)

// Sniff identifies the format of data from its leading bytes.
func Sniff(data []byte) (Format, error) {
	switch {
	case bytes.HasPrefix(data, pdfMagic):
		return FormatPDF, nil
	case bytes.HasPrefix(data, zipMagic):
		return FormatDOCX, nil
	case looksLikeText(data):
		return FormatPlain, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// DecodeText extracts the plain text of a document. The result is raw
// decoded text; normalization happens downstream.
func DecodeText(data []byte) (string, error) {
	format, err := Sniff(data)
	if err != nil {
		return "", err
	}
	switch format {
	case FormatPDF:
		return decodePDF(data)
	case FormatDOCX:
		return decodeDOCX(data)
	default:
		return string(data), nil
	}
}

func decodePDF(data []byte) (out string, err error) {
	// ledongthuc/pdf panics on some malformed files; a bad upload must not
	// take the worker down.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decoding pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting plain text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(textReader); err != nil {
		return "", fmt.Errorf("reading text buffer: %w", err)
	}

	if strings.TrimSpace(buf.String()) == "" {
		return "", fmt.Errorf("pdf contains no extractable text: %w", ErrUnsupportedFormat)
	}
	return buf.String(), nil
}

// decodeDOCX reads word/document.xml out of the zip container and strips
// the WordprocessingML markup, keeping paragraph breaks.
func decodeDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening docx container: %w", err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		// A zip without the main document part is not a DOCX.
		return "", fmt.Errorf("zip archive has no word/document.xml: %w", ErrUnsupportedFormat)
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("reading word/document.xml: %w", err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("reading word/document.xml: %w", err)
	}
	return flattenDocumentXML(raw), nil
}

// flattenDocumentXML removes tags from WordprocessingML, mapping paragraph
// and line-break elements to newlines and tabs to tabs. A full XML parse is
// unnecessary: w:t content is the only character data in the part.
func flattenDocumentXML(raw []byte) string {
	var sb strings.Builder
	inTag := false
	var tag strings.Builder

	for _, r := range string(raw) {
		switch {
		case r == '<':
			inTag = true
			tag.Reset()
		case r == '>':
			inTag = false
			switch name := tagName(tag.String()); name {
			case "/w:p", "w:br", "w:br/":
				sb.WriteString("\n")
			case "w:tab", "w:tab/":
				sb.WriteString("\t")
			}
		case inTag:
			tag.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	return unescapeXML(sb.String())
}

func tagName(tag string) string {
	tag = strings.TrimSuffix(strings.TrimSpace(tag), "/")
	if idx := strings.IndexAny(tag, " \t\n"); idx >= 0 {
		// Self-closing tags with attributes, e.g. <w:br w:type="page"/>.
		return strings.TrimSpace(tag[:idx])
	}
	return tag
}

func unescapeXML(s string) string {
	replacer := strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
		"&amp;", "&",
	)
	return replacer.Replace(s)
}

// looksLikeText accepts valid UTF-8 without NUL bytes as plain text.
func looksLikeText(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	if bytes.IndexByte(data, 0x00) >= 0 {
		return false
	}
	return utf8.Valid(data)
}
