// Command extract runs the PDF ingestion pipeline on local files: it extracts
// the text, splits it into retrieval chunks and writes both to disk for
// inspection.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"arxiv_rag_go_backend/internal/logging"
	"arxiv_rag_go_backend/internal/services"
	"arxiv_rag_go_backend/internal/vectordb"

	"github.com/rs/zerolog/log"
)

func main() {
	outDir := flag.String("out", "test_texts", "directory for extracted text")
	chunkSize := flag.Int("chunk-size", vectordb.DefaultChunkSize, "chunk size in runes")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: extract [flags] file.pdf...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger, err := logging.Setup(logging.Options{Level: "info"})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("dir", *outDir).Msg("Error creating output directory")
	}

	failed := 0
	for _, pdfPath := range flag.Args() {
		l := logger.With().Str("file", pdfPath).Logger()

		data, err := os.ReadFile(pdfPath)
		if err != nil {
			l.Error().Err(err).Msg("Error reading file")
			failed++
			continue
		}
		content, err := services.ExtractTextFromPDF(data)
		if err != nil {
			l.Error().Err(err).Msg("Error extracting text")
			failed++
			continue
		}

		base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
		textPath := filepath.Join(*outDir, base+".txt")
		if err := os.WriteFile(textPath, []byte(content), 0o644); err != nil {
			l.Error().Err(err).Msg("Error writing text")
			failed++
			continue
		}

		chunks := vectordb.ChunkText(content, *chunkSize)
		var b strings.Builder
		for i, c := range chunks {
			fmt.Fprintf(&b, "--- chunk %d ---\n%s\n", i, c)
		}
		chunksPath := filepath.Join(*outDir, base+".chunks.txt")
		if err := os.WriteFile(chunksPath, []byte(b.String()), 0o644); err != nil {
			l.Error().Err(err).Msg("Error writing chunks")
			failed++
			continue
		}

		l.Info().
			Int("chars", len([]rune(content))).
			Int("chunks", len(chunks)).
			Str("text", textPath).
			Msg("Extracted")
	}

	if failed > 0 {
		os.Exit(1)
	}
}
