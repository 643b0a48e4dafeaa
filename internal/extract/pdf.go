package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// PDFExtractor reads page content streams with pdfcpu and decodes their
// text-showing operators, mapping character codes through each font's
// ToUnicode table where the font has one.
type PDFExtractor struct{}

// NewPDFExtractor returns a PDF extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract returns the text of every page joined in page order.
func (p *PDFExtractor) Extract(ctx context.Context, path string) (string, error) {
	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}

	var b strings.Builder
	for page := 1; page <= pdfCtx.PageCount; page++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := pageText(pdfCtx.XRefTable, page)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", page, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

func pageText(xrt *model.XRefTable, page int) (string, error) {
	// Consolidated resources include those inherited from the page tree.
	d, _, attrs, err := xrt.PageDict(page, true)
	if err != nil {
		if d, _, attrs, err = xrt.PageDict(page, false); err != nil {
			return "", err
		}
	}
	content, err := xrt.PageContent(d, page)
	if errors.Is(err, model.ErrNoContent) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var res types.Dict
	if attrs != nil {
		res = attrs.Resources
	}
	return decodeContent(content, pageFonts(xrt, res)), nil
}

// pageFonts loads the ToUnicode table of every font in a resource dict.
func pageFonts(xrt *model.XRefTable, res types.Dict) map[string]*cmap {
	if res == nil {
		return nil
	}
	o, found := res.Find("Font")
	if !found {
		return nil
	}
	fontDict, err := xrt.DereferenceDict(o)
	if err != nil || fontDict == nil {
		return nil
	}
	fonts := make(map[string]*cmap, len(fontDict))
	for name, o := range fontDict {
		fd, err := xrt.DereferenceDict(o)
		if err != nil || fd == nil {
			continue
		}
		if cm := toUnicode(xrt, fd); cm != nil {
			fonts[name] = cm
		}
	}
	return fonts
}

func toUnicode(xrt *model.XRefTable, font types.Dict) *cmap {
	o, found := font.Find("ToUnicode")
	if !found {
		return nil
	}
	sd, _, err := xrt.DereferenceStreamDict(o)
	if err != nil || sd == nil {
		return nil
	}
	if err := sd.Decode(); err != nil {
		return nil
	}
	codeLen := 1
	if st := font.Subtype(); st != nil && *st == "Type0" {
		codeLen = 2
	}
	return parseCMap(sd.Content, codeLen)
}
