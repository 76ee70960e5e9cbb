// Package extraction turns uploaded study material into plain text.
// Dispatch is by content-type tag: a closed set of variants, each with
// its own strategy. New formats extend the tag switch.
package extraction

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/studyloop/engine/internal/ai"
	"github.com/studyloop/engine/internal/blob"
	"github.com/studyloop/engine/internal/models"
)

// minPDFTextLen is the threshold below which a PDF is assumed to have
// no usable text layer (scanned pages) and falls back to OCR.
const minPDFTextLen = 32

type Extractor struct {
	ai    ai.Client
	blobs blob.Store
}

func New(aiClient ai.Client, blobs blob.Store) *Extractor {
	return &Extractor{ai: aiClient, blobs: blobs}
}

// Detect maps a file name and declared MIME type to a content-type tag.
// Unknown inputs default to plain text, the most forgiving strategy.
func Detect(fileName, mimeType string) models.ContentType {
	ext := strings.ToLower(filepath.Ext(fileName))
	if mimeType == "" {
		mimeType = mime.TypeByExtension(ext)
	}
	mimeType = strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))

	switch {
	case ext == ".pdf" || mimeType == "application/pdf":
		return models.ContentPDF
	case ext == ".docx":
		return models.ContentDocx
	case ext == ".pptx":
		return models.ContentPptx
	case ext == ".xlsx":
		return models.ContentXlsx
	case ext == ".html" || ext == ".htm" || mimeType == "text/html":
		return models.ContentHTML
	case ext == ".md" || ext == ".markdown" || mimeType == "text/markdown":
		return models.ContentMarkdown
	case strings.HasPrefix(mimeType, "image/") ||
		ext == ".png" || ext == ".jpg" || ext == ".jpeg" || ext == ".gif" || ext == ".webp":
		return models.ContentImage
	default:
		return models.ContentText
	}
}

// Extract loads the item's blob and runs the strategy for its tag,
// returning the extracted plain text and the token usage of any AI call
// made along the way (nil when none was needed).
func (e *Extractor) Extract(ctx context.Context, item models.ExtractedContent) (string, *ai.Response, error) {
	data, err := blob.ReadAll(ctx, e.blobs, item.BlobPath)
	if err != nil {
		return "", nil, fmt.Errorf("load %s: %w", item.FileName, err)
	}

	switch item.ContentType {
	case models.ContentPDF:
		return e.extractPDF(ctx, item.FileName, data)
	case models.ContentImage:
		return e.extractByOCR(ctx, data, imageMediaType(item.FileName))
	case models.ContentText, models.ContentMarkdown:
		return string(data), nil, nil
	case models.ContentHTML:
		text, err := extractHTML(data)
		return text, nil, err
	case models.ContentDocx:
		text, err := extractZipXML(data, isDocxEntry)
		return text, nil, err
	case models.ContentPptx:
		text, err := extractZipXML(data, isPptxEntry)
		return text, nil, err
	case models.ContentXlsx:
		text, err := extractXlsx(data)
		return text, nil, err
	default:
		return "", nil, fmt.Errorf("unsupported content type %q", item.ContentType)
	}
}

// extractPDF reads the PDF text layer; a scan with no selectable text
// falls back to OCR on the raw document.
func (e *Extractor) extractPDF(ctx context.Context, fileName string, data []byte) (string, *ai.Response, error) {
	text, err := pdfTextLayer(data)
	if err != nil {
		log.Printf("WARN: pdf text layer unreadable for %s, falling back to OCR: %v", fileName, err)
	}
	if len(strings.TrimSpace(text)) >= minPDFTextLen {
		return text, nil, nil
	}
	return e.extractByOCR(ctx, data, "application/pdf")
}

func (e *Extractor) extractByOCR(ctx context.Context, data []byte, mediaType string) (string, *ai.Response, error) {
	resp, err := e.ai.ParseImage(ctx, data, mediaType)
	if err != nil {
		return "", nil, fmt.Errorf("ocr: %w", err)
	}
	return resp.Content, resp, nil
}

func pdfTextLayer(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf text layer: %w", err)
	}
	text, err := io.ReadAll(textReader)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return string(text), nil
}

func imageMediaType(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}
