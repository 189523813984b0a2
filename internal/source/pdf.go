package source

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// PageDPI is the rasterization density of PDF pages.
const PageDPI = 150

// Document is a paged source of pictures.
type Document interface {
	PageCount() int
	RenderPage(index int, dpi int) (image.Image, error)
	Close() error
}

type FitzPDFSource struct {
	doc  *fitz.Document
	path string
}

func NewFitzPDFSource(path string) (*FitzPDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return &FitzPDFSource{doc: doc, path: path}, nil
}

func (f *FitzPDFSource) PageCount() int {
	return f.doc.NumPage()
}

func (f *FitzPDFSource) RenderPage(index int, dpi int) (image.Image, error) {
	if index < 0 || index >= f.doc.NumPage() {
		return nil, fmt.Errorf("%s: page %d out of range (1-%d)", f.path, index+1, f.doc.NumPage())
	}
	return f.doc.ImageDPI(index, float64(dpi))
}

func (f *FitzPDFSource) Close() error {
	return f.doc.Close()
}

// renderPDFPage opens path, renders one page and closes the document.
func renderPDFPage(path string, page int) (image.Image, error) {
	doc, err := NewFitzPDFSource(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	return doc.RenderPage(page, PageDPI)
}

var _ Document = (*FitzPDFSource)(nil)
