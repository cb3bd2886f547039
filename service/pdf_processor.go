package service

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFProcessor yields the text of every non-empty page of a document, one
// string per page with rows separated by newlines.
type PDFProcessor interface {
	ExtractPages(pdfData []byte) ([]string, error)
	Validate(pdfData []byte) error
}

type pdfProcessor struct{}

var disableConfigDir sync.Once

func NewPDFProcessor() PDFProcessor {
	disableConfigDir.Do(api.DisableConfigDir)
	return &pdfProcessor{}
}

func (p *pdfProcessor) ExtractPages(pdfData []byte) (pages []string, err error) {
	// the reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdf reader: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(pdfData), int64(len(pdfData)))
	if err != nil {
		return nil, err
	}

	totalPage := r.NumPage()
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", pageIndex, err)
		}

		var textBuilder strings.Builder
		for _, row := range rows {
			var prevEnd float64
			for i, word := range row.Content {
				if i > 0 && word.X > prevEnd+1 && !strings.HasSuffix(word.S, " ") {
					textBuilder.WriteString(" ")
				}
				textBuilder.WriteString(word.S)
				prevEnd = word.X + word.W
			}
			textBuilder.WriteString("\n")
		}

		if text := textBuilder.String(); strings.TrimSpace(text) != "" {
			pages = append(pages, text)
		}
	}
	return pages, nil
}

// Validate checks the document structure with pdfcpu in relaxed mode.
func (p *pdfProcessor) Validate(pdfData []byte) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.Validate(bytes.NewReader(pdfData), conf)
}

// Document is one input file, read lazily from Path unless Data is set.
type Document struct {
	Name string
	Path string
	Data []byte
}

func (d Document) Bytes() ([]byte, error) {
	if d.Data != nil {
		return d.Data, nil
	}
	return os.ReadFile(d.Path)
}

// LoadDocuments lists the PDF files of dir sorted by name.
func LoadDocuments(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var docs []Document
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		docs = append(docs, Document{Name: e.Name(), Path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}
