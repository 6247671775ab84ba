package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LoadKeys returns the set of timestamp strings already persisted in a
// dataset. A missing file yields an empty set and no error. A file that
// fails to parse also yields an empty set, with the parse error returned so
// the caller can warn; collection proceeds either way and the writer will
// simply re-append (the merge path re-deduplicates, the append path accepts
// the accuracy loss the operator was warned about).
//
// Only the timestamp column is read, as a raw string, so inferred formats in
// other columns can never cause a false dedup miss.
func LoadKeys(path string) (map[string]struct{}, error) {
	keys := make(map[string]struct{})

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return keys, nil
		}
		return keys, fmt.Errorf("open dataset: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return keys, nil
		}
		return keys, fmt.Errorf("read dataset header: %w", err)
	}

	column := 0
	for i, name := range header {
		if name == timestampColumn {
			column = i
			break
		}
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return make(map[string]struct{}), fmt.Errorf("parse dataset %s: %w", filepath.Base(path), err)
		}
		if column < len(record) {
			keys[record[column]] = struct{}{}
		}
	}
	return keys, nil
}
