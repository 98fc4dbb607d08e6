package main

import (
	"bytes"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/spf13/cobra/doc"

	"github.com/modprep/modprep/cmd"
)

const outputDir = "docs"

var targetWebsite bool

func main() {
	flag.BoolVar(&targetWebsite, "website", targetWebsite, "generate front matter and links for the website")
	flag.Parse()

	root := cmd.NewRootCmd().Command()

	prepender := func(filename string) string {
		return ""
	}
	linker := func(filename string) string {
		return filename
	}
	if targetWebsite {
		// Pages get ascending weights so the website keeps them in
		// generation order, with the root page first.
		weight := 0
		prepender = func(filename string) string {
			weight++
			title := strings.TrimSuffix(path.Base(filename), ".md")
			title = strings.ReplaceAll(title, "_", " ")
			return fmt.Sprintf("---\ntitle: %s\nweight: %d\n---\n\n", title, weight)
		}
		linker = func(filename string) string {
			if filename == "modprep.md" {
				return "_index.md"
			}
			return filename
		}
	}

	if err := doc.GenMarkdownTreeCustom(root, outputDir, prepender, linker); err != nil {
		slog.With("err", err.Error()).Error("markdown generation")
		os.Exit(1)
	}

	if targetWebsite {
		if err := os.Rename(path.Join(outputDir, "modprep.md"), path.Join(outputDir, "_index.md")); err != nil {
			slog.With("err", err.Error()).Error("renaming main docs page")
			os.Exit(1)
		}
	}

	if err := stripSensitive(); err != nil {
		slog.With("err", err.Error()).Error("error replacing sensitive data")
		os.Exit(1)
	}
}

// stripSensitive replaces the current values of sensitive environment
// variables with their $NAME form in every generated page.
func stripSensitive() error {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		filePath := path.Join(outputDir, entry.Name())
		content, err := os.ReadFile(filePath)
		if err != nil {
			return err
		}
		for _, s := range cmd.Sensitive {
			val := os.Getenv(s)
			if val == "" {
				continue
			}
			content = bytes.ReplaceAll(content, []byte(val), []byte("$"+s))
		}
		if err = os.WriteFile(filePath, content, 0o666); err != nil {
			return err
		}
	}
	return nil
}
