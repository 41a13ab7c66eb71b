// Package domains checks whether keyword-derived domain names are still
// available for registration.
package domains

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"
)

// ErrNoKeywords is returned when the input holds no usable keyword.
var ErrNoKeywords = errors.New("no keywords found")

// CleanKeyword makes a keyword domain-friendly: surrounding quotes are
// removed, only letters, digits and '-' are kept, the result is lowercased
// and leading or trailing hyphens are trimmed.
func CleanKeyword(keyword string) string {
	keyword = strings.Trim(strings.TrimSpace(keyword), `"`)
	var sb strings.Builder
	for _, r := range keyword {
		if r == '-' || ((unicode.IsLetter(r) || unicode.IsDigit(r)) && r < unicode.MaxASCII) {
			sb.WriteRune(unicode.ToLower(r))
		}
	}
	return strings.Trim(sb.String(), "-")
}

// ReadKeywords reads the first column of a CSV file or of the first sheet
// of an .xlsx workbook. The first row is a header. Blank rows are skipped
// and duplicates after cleaning are dropped, keeping the first occurrence.
func ReadKeywords(path string) ([]string, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readSheet(path)
	default:
		rows, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var keywords []string
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		kw := CleanKeyword(row[0])
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		keywords = append(keywords, kw)
	}
	if len(keywords) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoKeywords)
	}
	return keywords, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keywords: %w", err)
	}
	defer f.Close()
	return parseCSV(f)
}

func parseCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rows, nil
}

func readSheet(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoKeywords)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}
