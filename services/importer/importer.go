// Package importer fills a track draft from a vocabulary spreadsheet (xlsx or csv).
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/PWRApex/english-prep-companion/core/track"
)

// Config defines the import configuration
type Config struct {
	WordColumn    string // column with the word
	MeaningColumn string // column with the meaning
	GrammarColumn string // optional column with grammar topics
	SheetName     string // xlsx only; the first sheet when empty
	StartRow      int    // first imported row (1-based)
}

// DefaultConfig reads words from A, meanings from B and grammar topics from C, after a header row.
func DefaultConfig() Config {
	return Config{
		WordColumn:    "A",
		MeaningColumn: "B",
		GrammarColumn: "C",
		StartRow:      2,
	}
}

// Result holds the outcome of an import
type Result struct {
	TotalProcessed int
	Vocabulary     int
	GrammarTopics  int
	Skipped        int
	Errors         []string
}

type columns struct {
	word, meaning, grammar int // 0-based; -1 when unset
}

func (cfg Config) columns() (columns, error) {
	idx := func(name string, required bool) (int, error) {
		if name == "" {
			if required {
				return -1, errors.New("word and meaning columns are required")
			}
			return -1, nil
		}
		n, err := excelize.ColumnNameToNumber(strings.ToUpper(strings.TrimSpace(name)))
		if err != nil {
			return -1, errors.Wrapf(err, "invalid column %q", name)
		}
		return n - 1, nil
	}
	var (
		cols columns
		err  error
	)
	if cols.word, err = idx(cfg.WordColumn, true); err != nil {
		return cols, err
	}
	if cols.meaning, err = idx(cfg.MeaningColumn, true); err != nil {
		return cols, err
	}
	cols.grammar, err = idx(cfg.GrammarColumn, false)
	return cols, err
}

// ImportFile imports the file at `path`, picking the format from its extension.
func ImportFile(path string, cfg Config, d *track.Draft) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening import file")
	}
	defer func() { _ = f.Close() }()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return ImportCSV(f, cfg, d)
	case ".xlsx", ".xlsm":
		return ImportXLSX(f, cfg, d)
	default:
		return nil, errors.Errorf("unsupported file type %q: expected .xlsx or .csv", ext)
	}
}

func ImportXLSX(r io.Reader, cfg Config, d *track.Draft) (*Result, error) {
	cols, err := cfg.columns()
	if err != nil {
		return nil, err
	}
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening workbook")
	}
	defer func() { _ = f.Close() }()

	sheet := cfg.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet %q", sheet)
	}

	res := &Result{Errors: make([]string, 0)}
	for i, row := range rows {
		if i < cfg.StartRow-1 {
			continue
		}
		processRow(row, i+1, cols, d, res)
	}
	return res, nil
}

func ImportCSV(r io.Reader, cfg Config, d *track.Draft) (*Result, error) {
	cols, err := cfg.columns()
	if err != nil {
		return nil, err
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // allow variable number of fields
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	res := &Result{Errors: make([]string, 0)}
	for rowNum := 1; ; rowNum++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading csv")
		}
		if rowNum < cfg.StartRow {
			continue
		}
		processRow(row, rowNum, cols, d, res)
	}
	return res, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func processRow(row []string, rowNum int, cols columns, d *track.Draft, res *Result) {
	word, meaning, topic := cell(row, cols.word), cell(row, cols.meaning), cell(row, cols.grammar)
	if word == "" && meaning == "" && topic == "" {
		res.Skipped++
		return
	}
	res.TotalProcessed++

	if topic != "" && d.AddGrammarTopic(topic) {
		res.GrammarTopics++
	}
	switch {
	case word == "" && meaning == "":
	case d.AddVocabulary(word, meaning):
		res.Vocabulary++
	case word == "":
		res.Errors = append(res.Errors, fmt.Sprintf("Row %d: missing word", rowNum))
	default:
		res.Errors = append(res.Errors, fmt.Sprintf("Row %d: missing meaning for %q", rowNum, word))
	}
}
