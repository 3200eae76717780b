package document

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"assignment-duper/api/internal/pipeline"
)

func pageFromPNG(t *testing.T, number int, c color.Color) pipeline.GeneratedPage {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 60))
	for y := 0; y < 60; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return pipeline.GeneratedPage{
		ImageData:  "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		PageNumber: number,
	}
}

func TestAssemble(t *testing.T) {
	pages := []pipeline.GeneratedPage{
		pageFromPNG(t, 2, color.White),
		pageFromPNG(t, 1, color.Black),
	}

	pdf, err := Assemble(pages)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if len(pdf) == 0 {
		t.Fatal("Assemble() returned empty document")
	}
	if !strings.HasPrefix(string(pdf[:5]), "%PDF-") {
		t.Errorf("output does not start with %%PDF- header")
	}
}

func TestAssembleNoPages(t *testing.T) {
	if _, err := Assemble(nil); err == nil {
		t.Error("Assemble(nil) error = nil, want failure")
	}
}

func TestAssembleBadPayload(t *testing.T) {
	pages := []pipeline.GeneratedPage{{ImageData: "data:image/png;base64,$$$", PageNumber: 1}}
	if _, err := Assemble(pages); err == nil {
		t.Error("Assemble(bad base64) error = nil, want failure")
	}
}
