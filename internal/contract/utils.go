package contract

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/huangsam/sensorium/schema"
)

// Color variables for console output.
var (
	ProcessedColor = color.New(color.FgGreen, color.Bold) // ProcessedColor marks newly written rows.
	SkippedColor   = color.New(color.FgYellow)            // SkippedColor marks buckets still pending.
	DuplicateColor = color.New(color.FgCyan)              // DuplicateColor marks buckets another writer finished.
	FailedColor    = color.New(color.FgRed, color.Bold)   // FailedColor marks exhausted retries.
	AlertColor     = color.New(color.FgMagenta, color.Bold)
)

// GetColorLabel returns a colored outcome status for console output (table).
func GetColorLabel(status schema.OutcomeStatus) string {
	text := string(status)

	switch status {
	case schema.ProcessedStatus:
		return ProcessedColor.Sprint(text)
	case schema.SkippedStatus:
		return SkippedColor.Sprint(text)
	case schema.DuplicateStatus:
		return DuplicateColor.Sprint(text)
	default:
		return FailedColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetDBFilePath returns the path to the SQLite DB file for sensor storage.
func GetDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".sensorium.db"
	}
	return filepath.Join(homeDir, ".sensorium.db")
}

// GetSpoolDir returns the default directory for staged ingestion batches.
func GetSpoolDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".sensorium", "spool")
	}
	return filepath.Join(homeDir, ".sensorium", "spool")
}
