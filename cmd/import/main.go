// Command import converts an XLSX question bank into the JSON file the
// bot loads at startup.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/aliskhannn/exam-prep-bot/internal/importer"
)

func main() {
	cfg := importer.DefaultConfig()

	flag.StringVar(&cfg.FilePath, "in", "", "path to the XLSX file (required)")
	out := flag.String("out", "assets/questions.json", "path for the resulting JSON bank")
	flag.StringVar(&cfg.SheetName, "sheet", cfg.SheetName, "sheet name to import")
	flag.IntVar(&cfg.StartRow, "start-row", cfg.StartRow, "first data row (1-based)")
	flag.Parse()

	if cfg.FilePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	questions, result, err := importer.Import(cfg)
	if err != nil {
		log.Fatal(err)
	}

	for _, e := range result.Errors {
		fmt.Fprintln(os.Stderr, "warning:", e)
	}

	if len(questions) == 0 {
		log.Fatal("no questions imported")
	}

	if err := importer.WriteJSON(*out, questions); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("imported %d of %d rows into %s (skipped %d)\n",
		result.Imported, result.TotalProcessed, *out, result.Skipped)
}
