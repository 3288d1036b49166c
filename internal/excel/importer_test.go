package excel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/example/questionbot/internal/questionbank"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeXLSX(t *testing.T, path string, rows [][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
}

func TestImportFromExcel(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "math.xlsx")
	writeXLSX(t, src, [][]interface{}{
		{"Topic", "Question", "Option1", "Option2", "Option3", "CorrectAnswer", "Explanation"},
		{"Алгебра", "2+2?", "3", "4", "5", 1, "basic"},
		{},
		{"Геометрия", "Define a point", "", "", "", "", "A location"},
	})

	records, err := ReadRecords(ImportConfig{FilePath: src})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "choice", records[0].Type)
	assert.Equal(t, []string{"3", "4", "5"}, records[0].Options)
	require.NotNil(t, records[0].CorrectIndex)
	assert.Equal(t, 1, *records[0].CorrectIndex)

	assert.Equal(t, "open", records[1].Type)
	assert.Empty(t, records[1].Options)
	assert.Nil(t, records[1].CorrectIndex)
}

func TestImportFromCSV(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "q.csv")
	content := "id,topic,question,option1,option2,correctAnswer,answer\n" +
		"c1,Числа,\"Is 7 prime, really?\",yes,no,0,\n" +
		"c2,Числа,Bad index,yes,no,x,\n"
	require.NoError(t, os.WriteFile(src, []byte(content), 0644))

	_, err := ReadRecords(ImportConfig{FilePath: src})
	assert.ErrorContains(t, err, "row 3")

	content = "id,topic,question,option1,option2,correctAnswer,answer\n" +
		"c1,Числа,\"Is 7 prime, really?\",yes,no,0,\n"
	require.NoError(t, os.WriteFile(src, []byte(content), 0644))
	records, err := ReadRecords(ImportConfig{FilePath: src})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "c1", records[0].ID)
	assert.Equal(t, "Is 7 prime, really?", records[0].Question)
}

func TestReadRecordsRejectsUnknownFormat(t *testing.T) {
	_, err := ReadRecords(ImportConfig{FilePath: "questions.txt"})
	assert.Error(t, err)
}

func TestMergeSkipsDuplicatesAndInvalid(t *testing.T) {
	zero, one, five := 0, 1, 5
	existing := []questionbank.Record{
		{ID: "imported_1", Topic: "t", Type: "choice", Question: "Old question", Options: []string{"a", "b"}, CorrectIndex: &zero},
	}
	incoming := []questionbank.Record{
		{Topic: "t", Type: "choice", Question: "New question", Options: []string{"a", "b"}, CorrectIndex: &one},
		{Topic: "t", Type: "open", Question: "  old   QUESTION ", Answer: "dup"},
		{ID: "imported_1", Topic: "t", Type: "open", Question: "Same id", Answer: "x"},
		{ID: "bad", Topic: "t", Type: "choice", Question: "Out of range", Options: []string{"a", "b"}, CorrectIndex: &five},
		{Topic: "t", Type: "open", Question: "Another new", Answer: "y"},
	}

	merged, result := Merge(existing, incoming, "imported")

	assert.Equal(t, 5, result.TotalProcessed)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 3, result.Skipped)
	assert.Equal(t, 3, result.Total)
	assert.Len(t, result.Errors, 3)

	require.Len(t, merged, 3)
	assert.Equal(t, "imported_2", merged[1].ID, "generated ids avoid existing ones")
	assert.Equal(t, "imported_4", merged[2].ID)
	assert.True(t, questionbank.Validate(merged).Valid())
}

func TestImportQuestionsCreatesAndAppendsBank(t *testing.T) {
	dir := t.TempDir()
	banks := filepath.Join(dir, "questions")
	src := filepath.Join(dir, "new.xlsx")
	writeXLSX(t, src, [][]interface{}{
		{"question", "option1", "option2", "correctAnswer", "topic"},
		{"First?", "a", "b", 0, "t"},
	})

	cfg := DefaultImportConfig()
	cfg.FilePath = src
	cfg.QuestionsDir = banks
	cfg.Subject = "physics"

	result, err := ImportQuestions(cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, filepath.Join(banks, "physics.json"), result.BankPath)

	// Importing the same sheet again adds nothing
	result, err = ImportQuestions(cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Skipped)

	records, err := questionbank.ReadFile(result.BankPath)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "imported_1", records[0].ID)
	assert.Equal(t, "choice", records[0].Type)
}
