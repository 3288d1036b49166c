// Command questions validates and imports question banks.
//
//	questions [-dir questions] validate [subject...]
//	questions [-dir questions] import [-sheet name] <file> <subject>
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/example/questionbot/internal/config"
	"github.com/example/questionbot/internal/excel"
	"github.com/example/questionbot/internal/questionbank"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	defaultDir := "questions"
	if cfg, err := config.Load(false); err == nil {
		defaultDir = cfg.QuestionsDir
	}

	fs := flag.NewFlagSet("questions", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dir := fs.String("dir", defaultDir, "directory with subject banks")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: questions [-dir DIR] validate [subject...]")
		fmt.Fprintln(stderr, "       questions [-dir DIR] import [-sheet NAME] <file> <subject>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	switch fs.Arg(0) {
	case "validate":
		return validate(*dir, fs.Args()[1:], stdout, stderr)
	case "import":
		return importFile(*dir, fs.Args()[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", fs.Arg(0))
		fs.Usage()
		return 2
	}
}

func validate(dir string, subjects []string, stdout, stderr io.Writer) int {
	if len(subjects) == 0 {
		found, err := listSubjects(dir)
		if err != nil {
			fmt.Fprintf(stderr, "❌ %v\n", err)
			return 1
		}
		subjects = found
	}
	if len(subjects) == 0 {
		fmt.Fprintf(stderr, "❌ no question banks in %s\n", dir)
		return 1
	}

	failed := false
	for _, subject := range subjects {
		path, err := questionbank.FindFile(dir, subject)
		if err != nil {
			fmt.Fprintf(stderr, "❌ %s: %v\n", subject, err)
			failed = true
			continue
		}
		records, err := questionbank.ReadFile(path)
		if err != nil {
			fmt.Fprintf(stderr, "❌ %s: %v\n", subject, err)
			failed = true
			continue
		}

		report := questionbank.Validate(records)
		for _, issue := range report.Errors {
			fmt.Fprintf(stdout, "  ❌ %s\n", issue)
		}
		for _, issue := range report.Warnings {
			fmt.Fprintf(stdout, "  ⚠️  %s\n", issue)
		}
		status := "✅"
		if !report.Valid() {
			status = "❌"
			failed = true
		}
		fmt.Fprintf(stdout, "%s %s: %d questions (%d choice, %d open), %d errors, %d warnings\n",
			status, subject, len(records), report.Choice, report.Open, len(report.Errors), len(report.Warnings))
	}

	if failed {
		return 1
	}
	return 0
}

func importFile(dir string, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(stderr)
	sheet := fs.String("sheet", "", "XLSX sheet name (first sheet by default)")
	prefix := fs.String("id-prefix", excel.DefaultImportConfig().IDPrefix, "prefix for generated ids")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(stderr, "usage: questions import [-sheet NAME] <file> <subject>")
		return 2
	}

	cfg := excel.DefaultImportConfig()
	cfg.FilePath = fs.Arg(0)
	cfg.Subject = fs.Arg(1)
	cfg.QuestionsDir = dir
	cfg.SheetName = *sheet
	cfg.IDPrefix = *prefix

	result, err := excel.ImportQuestions(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}
	for _, msg := range result.Errors {
		fmt.Fprintf(stdout, "  ⚠️  %s\n", msg)
	}
	fmt.Fprintf(stdout, "✅ Imported %d of %d questions into %s (%d skipped)\n",
		result.Created, result.TotalProcessed, result.BankPath, result.Skipped)
	fmt.Fprintf(stdout, "📊 Total questions: %d\n", result.Total)
	return 0
}

// listSubjects returns the subjects that have a bank file in dir
func listSubjects(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("questions directory %s does not exist", dir)
		}
		return nil, err
	}
	seen := make(map[string]bool)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		for _, known := range questionbank.Extensions {
			if ext == known {
				seen[strings.TrimSuffix(e.Name(), ext)] = true
			}
		}
	}
	subjects := make([]string, 0, len(seen))
	for s := range seen {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)
	return subjects, nil
}
