package extraction

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/net/html"
)

// extractHTML walks the parse tree collecting text nodes, skipping
// script and style subtrees.
func extractHTML(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				sb.WriteString(text)
				sb.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.TrimSpace(sb.String()), nil
}

func isDocxEntry(name string) bool {
	return name == "word/document.xml"
}

func isPptxEntry(name string) bool {
	return strings.HasPrefix(name, "ppt/slides/slide") && strings.HasSuffix(name, ".xml")
}

// extractZipXML scrapes character data out of the XML entries an OOXML
// archive stores its text in. Both docx and pptx keep body text in
// <w:t>/<a:t> runs; collecting all character data and joining on
// whitespace is enough for question generation.
func extractZipXML(data []byte, wantEntry func(name string) bool) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}

	var parts []string
	for _, entry := range archive.File {
		if !wantEntry(entry.Name) {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", entry.Name, err)
		}
		text, err := xmlCharData(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("scan %s: %w", entry.Name, err)
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text entries in archive")
	}
	return strings.Join(parts, "\n\n"), nil
}

func xmlCharData(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var sb strings.Builder
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if cd, ok := token.(xml.CharData); ok {
			text := strings.TrimSpace(string(cd))
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteString(" ")
				}
				sb.WriteString(text)
			}
		}
	}
	return sb.String(), nil
}

// extractXlsx renders each sheet as tab-separated rows.
func extractXlsx(data []byte) (string, error) {
	workbook, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer workbook.Close()

	var sb strings.Builder
	for _, sheet := range workbook.GetSheetList() {
		rows, err := workbook.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(sheet)
		sb.WriteString("\n")
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
