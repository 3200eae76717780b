package document

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"assignment-duper/api/internal/pipeline"
	"assignment-duper/api/internal/util"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Assemble собирает отрисованные страницы в один PDF.
// Порядок листов — по номерам страниц; он же порядок шагов решения.
func Assemble(pages []pipeline.GeneratedPage) ([]byte, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("document: no pages to assemble")
	}

	ordered := make([]pipeline.GeneratedPage, len(pages))
	copy(ordered, pages)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].PageNumber < ordered[j].PageNumber
	})

	readers := make([]io.Reader, 0, len(ordered))
	for _, p := range ordered {
		raw, _, err := util.DecodeBase64MaybeDataURL(p.ImageData)
		if err != nil {
			return nil, fmt.Errorf("document: page %d: %w", p.PageNumber, err)
		}
		readers = append(readers, bytes.NewReader(raw))
	}

	// Одна картинка — один лист A4, на весь лист.
	imp, err := api.Import("form:A4, pos:full", types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("document: import config: %w", err)
	}

	var buf bytes.Buffer
	if err := api.ImportImages(nil, &buf, readers, imp, nil); err != nil {
		return nil, fmt.Errorf("document: assemble pdf: %w", err)
	}
	return buf.Bytes(), nil
}
