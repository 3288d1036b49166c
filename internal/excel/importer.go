package excel

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/example/questionbot/internal/questionbank"
	"github.com/xuri/excelize/v2"
)

// Column headers understood in CSV and XLSX sheets. Header matching is
// case-insensitive; columns may appear in any order.
const (
	columnID            = "id"
	columnTopic         = "topic"
	columnType          = "type"
	columnQuestion      = "question"
	columnOptionPrefix  = "option"
	columnCorrectAnswer = "correctanswer"
	columnAnswer        = "answer"
	columnExplanation   = "explanation"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath     string // CSV, XLSX, JSON or YAML source
	SheetName    string // XLSX sheet; the first sheet when empty
	QuestionsDir string // Directory holding the subject banks
	Subject      string // Target subject bank
	IDPrefix     string // Prefix for generated ids of rows without one
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		QuestionsDir: "questions",
		IDPrefix:     "imported",
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Skipped        int
	Total          int // Bank size after the import
	BankPath       string
	Errors         []string
}

// ImportQuestions reads questions from the source file and appends the valid,
// new ones to the subject bank. Rows whose id or question text already exist
// are skipped, as are rows that fail validation.
func ImportQuestions(config ImportConfig) (*ImportResult, error) {
	if config.Subject == "" {
		return nil, errors.New("subject is required")
	}
	if config.IDPrefix == "" {
		config.IDPrefix = DefaultImportConfig().IDPrefix
	}

	incoming, err := ReadRecords(config)
	if err != nil {
		return nil, err
	}

	bankPath, err := questionbank.FindFile(config.QuestionsDir, config.Subject)
	var existing []questionbank.Record
	switch {
	case err == nil:
		if existing, err = questionbank.ReadFile(bankPath); err != nil {
			return nil, fmt.Errorf("failed to read existing bank: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		bankPath = filepath.Join(config.QuestionsDir, config.Subject+".json")
	default:
		return nil, err
	}

	merged, result := Merge(existing, incoming, config.IDPrefix)
	result.BankPath = bankPath

	if result.Created > 0 {
		if err := questionbank.WriteFile(bankPath, merged); err != nil {
			return nil, fmt.Errorf("failed to write bank: %w", err)
		}
	}
	return result, nil
}

// ReadRecords parses the source file by extension
func ReadRecords(config ImportConfig) ([]questionbank.Record, error) {
	switch ext := strings.ToLower(filepath.Ext(config.FilePath)); ext {
	case ".csv":
		return importFromCSV(config)
	case ".xlsx", ".xlsm":
		return importFromExcel(config)
	case ".json", ".yaml", ".yml":
		return questionbank.ReadFile(config.FilePath)
	default:
		return nil, fmt.Errorf("unsupported import format %q", ext)
	}
}

// Merge appends incoming records to existing ones. Ids are generated for
// rows without one; duplicates and invalid rows are skipped and reported.
func Merge(existing, incoming []questionbank.Record, idPrefix string) ([]questionbank.Record, *ImportResult) {
	result := &ImportResult{Errors: make([]string, 0)}

	ids := make(map[string]bool, len(existing))
	prompts := make(map[string]bool, len(existing))
	for _, rec := range existing {
		ids[strings.TrimSpace(rec.ID)] = true
		prompts[normalize(rec.Question)] = true
	}

	// Validate with ids assigned, so rows without an id are not rejected for it
	candidates := make([]questionbank.Record, 0, len(incoming))
	next := 1
	for _, rec := range incoming {
		rec.ID = strings.TrimSpace(rec.ID)
		if rec.ID == "" {
			for ids[fmt.Sprintf("%s_%d", idPrefix, next)] {
				next++
			}
			rec.ID = fmt.Sprintf("%s_%d", idPrefix, next)
			next++
		}
		candidates = append(candidates, rec)
	}
	report := questionbank.Validate(candidates)
	for _, issue := range report.Errors {
		result.Errors = append(result.Errors, issue.String())
	}

	merged := append([]questionbank.Record(nil), existing...)
	for i, rec := range candidates {
		result.TotalProcessed++
		if report.Rejected(i) {
			result.Skipped++
			continue
		}
		if ids[rec.ID] {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("question #%d (%s): id already in bank", i+1, rec.ID))
			continue
		}
		if prompts[normalize(rec.Question)] {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("question #%d (%s): same question already in bank", i+1, rec.ID))
			continue
		}
		ids[rec.ID] = true
		prompts[normalize(rec.Question)] = true
		merged = append(merged, rec)
		result.Created++
	}
	result.Total = len(merged)
	return merged, result
}

// importFromExcel reads question rows from an XLSX sheet
func importFromExcel(config ImportConfig) ([]questionbank.Record, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := config.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return processRows(rows)
}

// importFromCSV reads question rows from a CSV file with a header line
func importFromCSV(config ImportConfig) ([]questionbank.Record, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return processRows(rows)
}

// processRows maps rows to records using the first row as header. Blank
// rows are ignored.
func processRows(rows [][]string) ([]questionbank.Record, error) {
	if len(rows) == 0 {
		return nil, errors.New("source has no header row")
	}
	header := make(map[string]int)
	var optionCols []int
	for i, name := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		header[key] = i
	}
	if _, ok := header[columnQuestion]; !ok {
		return nil, fmt.Errorf("header has no %q column", columnQuestion)
	}
	for n := 1; n <= questionbank.MaxOptions; n++ {
		if col, ok := header[columnOptionPrefix+strconv.Itoa(n)]; ok {
			optionCols = append(optionCols, col)
		}
	}

	var records []questionbank.Record
	for rowNum, row := range rows[1:] {
		rec, ok, err := processRow(row, header, optionCols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum+2, err)
		}
		if ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// processRow processes a single sheet row
func processRow(row []string, header map[string]int, optionCols []int) (questionbank.Record, bool, error) {
	cell := func(name string) string {
		if col, ok := header[name]; ok && col < len(row) {
			return strings.TrimSpace(row[col])
		}
		return ""
	}

	rec := questionbank.Record{
		ID:          cell(columnID),
		Topic:       cell(columnTopic),
		Type:        cell(columnType),
		Question:    cell(columnQuestion),
		Answer:      cell(columnAnswer),
		Explanation: cell(columnExplanation),
	}
	for _, col := range optionCols {
		if col < len(row) {
			if opt := strings.TrimSpace(row[col]); opt != "" {
				rec.Options = append(rec.Options, opt)
			}
		}
	}
	if rec.Question == "" && rec.ID == "" && len(rec.Options) == 0 {
		return rec, false, nil
	}

	if rec.Type == "" {
		if len(rec.Options) > 0 {
			rec.Type = "choice"
		} else {
			rec.Type = "open"
		}
	}
	if raw := cell(columnCorrectAnswer); raw != "" {
		idx, err := strconv.Atoi(raw)
		if err != nil {
			return rec, false, fmt.Errorf("correctAnswer %q is not a number", raw)
		}
		rec.CorrectIndex = &idx
	}
	return rec, true, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
