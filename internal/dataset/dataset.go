package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Dataset headers. The first column is always the timestamp, which doubles
// as the dedup key.
var (
	MusicHeader    = []string{"timestamp", "artist", "title", "genres", "popularity"}
	ActivityHeader = []string{"timestamp", "app_name", "window_title"}
	PhoneHeader    = []string{"timestamp", "phone_minutes"}
)

// timestampColumn is the canonical key column name.
const timestampColumn = "timestamp"

// ReadRows loads every data row from a dataset, skipping the header. A
// missing file yields no rows and no error.
func ReadRows(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", filepath.Base(path), err)
	}
	if len(records) <= 1 {
		return nil, nil
	}
	return records[1:], nil
}

// AppendRows appends rows to a dataset, writing the header first when the
// file does not exist yet. Each call flushes and closes the file so a row is
// either fully present or absent.
func AppendRows(path string, header []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	_, statErr := os.Stat(path)
	writeHeader := errors.Is(statErr, fs.ErrNotExist)
	if statErr != nil && !writeHeader {
		return fmt.Errorf("stat dataset: %w", statErr)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open dataset for append: %w", err)
	}

	writer := csv.NewWriter(file)
	if writeHeader {
		if err := writer.Write(header); err != nil {
			file.Close()
			return fmt.Errorf("write dataset header: %w", err)
		}
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			file.Close()
			return fmt.Errorf("append dataset row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return fmt.Errorf("flush dataset: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close dataset: %w", err)
	}
	return nil
}

// WriteAll rewrites a dataset in full: header first, then the given rows in
// order.
func WriteAll(path string, header []string, rows [][]string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create dataset: %w", err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		file.Close()
		return fmt.Errorf("write dataset header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			file.Close()
			return fmt.Errorf("write dataset row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return fmt.Errorf("flush dataset: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close dataset: %w", err)
	}
	return nil
}
