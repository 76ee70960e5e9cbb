package extraction

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/studyloop/engine/internal/ai"
	"github.com/studyloop/engine/internal/models"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		fileName string
		mimeType string
		want     models.ContentType
	}{
		{"lecture.pdf", "", models.ContentPDF},
		{"upload", "application/pdf", models.ContentPDF},
		{"notes.docx", "", models.ContentDocx},
		{"slides.pptx", "", models.ContentPptx},
		{"grades.xlsx", "", models.ContentXlsx},
		{"page.html", "", models.ContentHTML},
		{"page", "text/html; charset=utf-8", models.ContentHTML},
		{"readme.md", "", models.ContentMarkdown},
		{"scan.png", "", models.ContentImage},
		{"photo", "image/jpeg", models.ContentImage},
		{"notes.txt", "", models.ContentText},
		{"mystery", "", models.ContentText},
	}
	for _, tc := range cases {
		if got := Detect(tc.fileName, tc.mimeType); got != tc.want {
			t.Errorf("Detect(%q, %q) = %q, want %q", tc.fileName, tc.mimeType, got, tc.want)
		}
	}
}

func TestExtractHTMLSkipsScripts(t *testing.T) {
	page := `<html><head><style>body{color:red}</style></head>
<body><h1>Cell Biology</h1><script>alert("x")</script><p>Mitochondria produce ATP.</p></body></html>`
	text, err := extractHTML([]byte(page))
	if err != nil {
		t.Fatalf("extractHTML: %v", err)
	}
	if !strings.Contains(text, "Cell Biology") || !strings.Contains(text, "Mitochondria produce ATP.") {
		t.Errorf("missing body text: %q", text)
	}
	if strings.Contains(text, "alert") || strings.Contains(text, "color:red") {
		t.Errorf("script/style leaked into text: %q", text)
	}
}

func TestExtractZipXMLDocx(t *testing.T) {
	doc := `<?xml version="1.0"?><w:document xmlns:w="ns"><w:body>
<w:p><w:r><w:t>Photosynthesis converts light</w:t></w:r><w:r><w:t>into chemical energy.</w:t></w:r></w:p>
</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range map[string]string{
		"word/document.xml": doc,
		"word/styles.xml":   `<w:styles xmlns:w="ns"><w:style>Heading</w:style></w:styles>`,
	} {
		f, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := f.Write([]byte(body)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	text, err := extractZipXML(buf.Bytes(), isDocxEntry)
	if err != nil {
		t.Fatalf("extractZipXML: %v", err)
	}
	if !strings.Contains(text, "Photosynthesis converts light") {
		t.Errorf("missing document text: %q", text)
	}
	if strings.Contains(text, "Heading") {
		t.Errorf("styles entry leaked into text: %q", text)
	}
}

func TestExtractTextPassthrough(t *testing.T) {
	store := newMemStore()
	store.put("u1/notes.txt", []byte("The Krebs cycle has eight steps."))
	extractor := New(ai.NewMockClient(), store)

	text, usage, err := extractor.Extract(context.Background(), models.ExtractedContent{
		FileName:    "notes.txt",
		ContentType: models.ContentText,
		BlobPath:    "u1/notes.txt",
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if text != "The Krebs cycle has eight steps." {
		t.Errorf("text = %q", text)
	}
	if usage != nil {
		t.Errorf("plain text should not spend tokens, got %+v", usage)
	}
}

func TestExtractImageUsesOCR(t *testing.T) {
	store := newMemStore()
	store.put("u1/scan.png", []byte{0x89, 0x50, 0x4e, 0x47})
	extractor := New(ai.NewMockClient(), store)

	text, usage, err := extractor.Extract(context.Background(), models.ExtractedContent{
		FileName:    "scan.png",
		ContentType: models.ContentImage,
		BlobPath:    "u1/scan.png",
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if text == "" {
		t.Error("got empty OCR text")
	}
	if usage == nil {
		t.Error("OCR path should report token usage")
	}
}
