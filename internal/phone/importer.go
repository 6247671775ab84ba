package phone

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"lifelog/internal/config"
	"lifelog/internal/dataset"
	"lifelog/internal/journal"
	"lifelog/internal/localtime"
	"lifelog/internal/logging"
)

// ErrNoExport reports that no pickup export was found in the inbox
// directory. The operator has to AirDrop the file before importing.
var ErrNoExport = errors.New("no pickup export found")

// exportLayouts are the timestamp formats accepted in pickup exports, tried
// in order.
var exportLayouts = []string{
	localtime.StorageLayout,
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
}

// Result summarizes one import.
type Result struct {
	SourceFile string
	Imported   int
	Existing   int
	Total      int
}

// Added reports how many imported rows survived the keep-first merge.
func (r Result) Added() int { return r.Total - r.Existing }

// Importer merges phone pickup exports into the clean phone dataset.
type Importer struct {
	inboxDir   string
	outputPath string
	journal    *journal.Store
	logger     *slog.Logger
}

// New builds an Importer from configuration. The journal store may be nil.
func New(cfg *config.Config, store *journal.Store, logger *slog.Logger) (*Importer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("phone: configuration is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Importer{
		inboxDir:   cfg.Paths.InboxDir,
		outputPath: cfg.PhoneDataPath(),
		journal:    store,
		logger:     logger.With(logging.String("component", "phone-import")),
	}, nil
}

// Import locates the newest pickup export, converts its sessions to
// timestamp and duration rows, and merges them into the clean dataset with
// existing rows winning on duplicate timestamps. The dataset is rewritten in
// full only after the merge succeeds.
func (imp *Importer) Import(ctx context.Context) (Result, error) {
	var result Result

	runID := imp.beginRun(ctx)

	source, err := imp.latestExport()
	if err != nil {
		imp.finishRun(ctx, runID, result, "failed: "+err.Error())
		return result, err
	}
	result.SourceFile = source

	imp.logger.Info("processing pickup export", logging.String("file", filepath.Base(source)))

	imported, err := parseExport(source)
	if err != nil {
		imp.finishRun(ctx, runID, result, "failed: "+err.Error())
		return result, err
	}
	result.Imported = len(imported)

	existing, err := dataset.ReadRows(imp.outputPath)
	if err != nil {
		imp.finishRun(ctx, runID, result, "failed: "+err.Error())
		return result, err
	}
	result.Existing = len(existing)

	merged := dataset.MergeKeepFirst(existing, imported)
	result.Total = len(merged)

	if err := dataset.WriteAll(imp.outputPath, dataset.PhoneHeader, merged); err != nil {
		imp.finishRun(ctx, runID, result, "failed: "+err.Error())
		return result, err
	}

	imp.logger.Info("phone import complete",
		logging.Int("imported", result.Imported),
		logging.Int("added", result.Added()),
		logging.Int("total", result.Total),
	)
	imp.finishRun(ctx, runID, result, "completed")
	return result, nil
}

// latestExport finds the most recently modified *Pickup*.csv in the inbox.
func (imp *Importer) latestExport() (string, error) {
	entries, err := os.ReadDir(imp.inboxDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w in %s", ErrNoExport, imp.inboxDir)
		}
		return "", fmt.Errorf("read inbox %s: %w", imp.inboxDir, err)
	}

	var (
		latest     string
		latestTime time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.Contains(name, "Pickup") || !strings.HasSuffix(name, ".csv") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestTime) {
			latest = filepath.Join(imp.inboxDir, name)
			latestTime = info.ModTime()
		}
	}
	if latest == "" {
		return "", fmt.Errorf("%w in %s", ErrNoExport, imp.inboxDir)
	}
	return latest, nil
}

// parseExport converts a pickup export into dataset rows. Each session row
// becomes [start timestamp, duration in minutes].
func parseExport(path string) ([][]string, error) {
	records, err := readExport(path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("export %s is empty", filepath.Base(path))
	}

	startCol, endCol, err := sessionColumns(records[0])
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", filepath.Base(path), err)
	}

	rows := make([][]string, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) <= startCol || len(record) <= endCol {
			return nil, fmt.Errorf("export %s: row %d is short", filepath.Base(path), i+2)
		}
		start, err := parseExportTime(record[startCol])
		if err != nil {
			return nil, fmt.Errorf("export %s: row %d start: %w", filepath.Base(path), i+2, err)
		}
		end, err := parseExportTime(record[endCol])
		if err != nil {
			return nil, fmt.Errorf("export %s: row %d end: %w", filepath.Base(path), i+2, err)
		}

		minutes := end.Sub(start).Minutes()
		rows = append(rows, []string{
			localtime.Format(start),
			strconv.FormatFloat(minutes, 'f', 2, 64),
		})
	}
	return rows, nil
}

func readExport(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse export %s: %w", filepath.Base(path), err)
	}
	return records, nil
}

func sessionColumns(header []string) (int, int, error) {
	startCol, endCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "start":
			startCol = i
		case "end":
			endCol = i
		}
	}
	if startCol < 0 || endCol < 0 {
		return 0, 0, errors.New("missing start or end column")
	}
	return startCol, endCol, nil
}

func parseExportTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range exportLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return localtime.WallClock(parsed), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

func (imp *Importer) beginRun(ctx context.Context) string {
	if imp.journal == nil {
		return ""
	}
	id, err := imp.journal.Begin(ctx, journal.KindPhoneImport)
	if err != nil {
		imp.logger.Warn("journal start failed", logging.Error(err))
		return ""
	}
	return id
}

func (imp *Importer) finishRun(ctx context.Context, id string, result Result, note string) {
	if imp.journal == nil || id == "" {
		return
	}
	if err := imp.journal.Finish(ctx, id, result.Imported, result.Added(), note); err != nil {
		imp.logger.Warn("journal finish failed", logging.Error(err))
	}
}
