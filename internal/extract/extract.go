package extract

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
)

// Text pulls plain text out of an uploaded file, dispatched by extension.
// Markdown passes through untouched so the chunker can use its structure.
func Text(filename string, r io.ReaderAt, size int64) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".md", ".markdown", ".txt", ".text":
		return readAll(r, size)
	case ".pdf":
		return pdfText(r, size)
	case ".docx":
		return docxText(r, size)
	case ".xlsx":
		return xlsxText(r, size)
	default:
		return "", fmt.Errorf("unsupported file format: %s", ext)
	}
}

// Supported reports whether Text can handle the file.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown", ".txt", ".text", ".pdf", ".docx", ".xlsx":
		return true
	}
	return false
}

func readAll(r io.ReaderAt, size int64) (string, error) {
	data, err := io.ReadAll(io.NewSectionReader(r, 0, size))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func pdfText(r io.ReaderAt, size int64) (string, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}
	return sb.String(), nil
}

func docxText(r io.ReaderAt, size int64) (string, error) {
	doc, err := docx.ReadDocxFromMemory(r, size)
	if err != nil {
		return "", err
	}
	defer func() { _ = doc.Close() }()
	content := doc.Editable().GetContent()
	var sb strings.Builder
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func xlsxText(r io.ReaderAt, size int64) (string, error) {
	f, err := excelize.OpenReader(io.NewSectionReader(r, 0, size))
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		sb.WriteString("## Sheet: " + sheet + "\n")
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", err
		}
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
