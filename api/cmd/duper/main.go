package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"assignment-duper/api/internal/document"
	"assignment-duper/api/internal/gateway/gemini"
	"assignment-duper/api/internal/pipeline"
	"assignment-duper/api/internal/util"
)

// duper — одноразовый прогон без телеграма:
//
//	duper -problem task.jpg -sample handwriting.jpg -out solution.pdf
func main() {
	problemPath := flag.String("problem", "", "photo of the math problem (jpg/png)")
	samplePath := flag.String("sample", "", "handwriting sample photo (jpg/png)")
	outPath := flag.String("out", "solution.pdf", "output PDF path")
	timeout := flag.Duration("timeout", 15*time.Minute, "total run timeout")
	flag.Parse()

	if *problemPath == "" || *samplePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Fatal("missing required env GEMINI_API_KEY")
	}

	problem, err := readImage(*problemPath)
	if err != nil {
		log.Fatalf("problem image: %v", err)
	}
	sample, err := readImage(*samplePath)
	if err != nil {
		log.Fatalf("sample image: %v", err)
	}

	gw := gemini.New(apiKey, gemini.Models{
		Pro:   getenvDefault("GEMINI_PRO_MODEL", "gemini-2.5-pro"),
		Flash: getenvDefault("GEMINI_FLASH_MODEL", "gemini-2.5-flash"),
		Image: getenvDefault("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image-preview"),
	})

	orc := pipeline.New(gw, pipeline.Config{
		Observer: func(st pipeline.ProcessingState) {
			fmt.Printf("[%3d%%] %-16s %s\n", st.Progress, st.Step, st.Message)
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pages, err := orc.Run(ctx, problem, sample)
	if err != nil {
		log.Fatalf("run: %v", err)
	}

	pdf, err := document.Assemble(pages)
	if err != nil {
		log.Fatalf("assemble: %v", err)
	}
	if err := os.WriteFile(*outPath, pdf, 0o644); err != nil {
		log.Fatalf("write %s: %v", *outPath, err)
	}
	fmt.Printf("wrote %s (%d pages)\n", *outPath, len(pages))
}

func readImage(path string) (pipeline.Image, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Image{}, err
	}
	return pipeline.Image{Data: b, MIMEType: util.SniffMimeHTTP(b)}, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
