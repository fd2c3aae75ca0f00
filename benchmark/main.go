// Package main provides a performance benchmarking tool for the Sensorium CLI.
// It generates synthetic sensor batches, then measures how long ingestion and the
// recovery sweep take for several worker counts, each against a fresh SQLite store,
// and writes the timings to a CSV file.
//
// Prerequisites:
// - sensorium binary installed and available in PATH
//
// Usage: go run benchmark/main.go [hours]
//
//	hours: Number of hours of readings to generate (default 6)
package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

// BenchmarkResult holds the timings of one worker count.
type BenchmarkResult struct {
	Workers     int
	Batches     int
	IngestTime  string
	RecoverTime string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	Hours        int
	BatchMinutes int
	Interval     time.Duration
	Timeout      time.Duration
	WorkerCounts []int
}

func main() {
	config := BenchmarkConfig{
		Hours:        6,
		BatchMinutes: 10,
		Interval:     5 * time.Second,
		Timeout:      10 * time.Minute,
		WorkerCounts: []int{1, 2, 4, 8},
	}
	if len(os.Args) == 2 {
		hours, err := strconv.Atoi(os.Args[1])
		if err != nil || hours <= 0 {
			fmt.Printf("Usage: %s [hours]\n", os.Args[0])
			os.Exit(1)
		}
		config.Hours = hours
	}

	if _, err := exec.LookPath("sensorium"); err != nil {
		fmt.Printf("Prerequisites check failed: sensorium binary not found in PATH\n")
		os.Exit(1)
	}

	workDir, err := os.MkdirTemp("", "sensorium-bench-")
	if err != nil {
		fmt.Printf("Failed to create work dir: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	batches, err := generateBatches(config, filepath.Join(workDir, "batches"))
	if err != nil {
		fmt.Printf("Failed to generate batches: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated %d batches covering %d hours\n", len(batches), config.Hours)

	results := make([]BenchmarkResult, 0, len(config.WorkerCounts))
	for _, workers := range config.WorkerCounts {
		results = append(results, runBenchmark(config, workDir, batches, workers))
	}

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}
	printSummary(results)
}

// generateBatches writes one batch file per BatchMinutes window, ending at the last
// full hour so that every hour is complete by the time the sweep runs.
func generateBatches(config BenchmarkConfig, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	end := time.Now().UTC().Truncate(time.Hour)
	start := end.Add(-time.Duration(config.Hours) * time.Hour)
	perBatch := int(time.Duration(config.BatchMinutes) * time.Minute / config.Interval)

	var paths []string
	for ts, n := start, 0; ts.Before(end); n++ {
		rows := make([]map[string]any, 0, perBatch)
		for range perBatch {
			rows = append(rows, syntheticReading(ts))
			ts = ts.Add(config.Interval)
		}
		data, err := json.Marshal(map[string]any{"data": rows})
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, fmt.Sprintf("batch-%05d.json", n))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// syntheticReading follows a daily cycle with a little noise, in the device payload format.
func syntheticReading(ts time.Time) map[string]any {
	phase := 2 * math.Pi * float64(ts.Hour()*60+ts.Minute()) / (24 * 60)
	jitter := func(scale float64) float64 { return (rand.Float64() - 0.5) * scale }
	round := func(v float64) float64 { return math.Round(v*100) / 100 }
	return map[string]any{
		"temperature": round(21 + 2*math.Sin(phase) + jitter(0.3)),
		"humidity":    round(45 + 8*math.Cos(phase) + jitter(1)),
		"noise":       round(38 + 6*math.Sin(phase) + jitter(3)),
		"pression":    round(1013 + jitter(0.8)),
		"eco2":        round(600 + 150*math.Sin(phase) + jitter(20)),
		"tvoc":        round(120 + 40*math.Sin(phase) + jitter(10)),
		"timestamp":   ts.Format("2006-01-02 15:04:05"),
	}
}

// runBenchmark ingests every batch and then runs the recovery sweep against a fresh store.
func runBenchmark(config BenchmarkConfig, workDir string, batches []string, workers int) BenchmarkResult {
	fmt.Printf("Benchmarking %d workers\n", workers)
	runDir := filepath.Join(workDir, fmt.Sprintf("run-%d", workers))
	common := []string{
		"--db-connect", filepath.Join(runDir, "sensors.db"),
		"--workers", strconv.Itoa(workers),
		"--log-level", "error",
		"--output", "csv",
	}
	env := append(os.Environ(), "SENSORIUM_SPOOL_DIR="+filepath.Join(runDir, "spool"))

	ingestArgs := append(append([]string{"ingest"}, common...), batches...)
	ingestTime := timeCommand(config, env, ingestArgs)

	recoverArgs := append([]string{"sweep", "recover", "--since", fmt.Sprintf("%d hours ago", config.Hours+1)}, common...)
	recoverTime := timeCommand(config, env, recoverArgs)

	fmt.Printf("  Ingest: %s, Recover: %s\n", ingestTime, recoverTime)
	return BenchmarkResult{Workers: workers, Batches: len(batches), IngestTime: ingestTime, RecoverTime: recoverTime}
}

// timeCommand runs sensorium once and returns the elapsed time, or TIMEOUT or FAILED.
func timeCommand(config BenchmarkConfig, env, args []string) string {
	start := time.Now()
	cmd := exec.Command("sensorium", args...)
	cmd.Env = env

	done := make(chan error, 1)
	var output []byte
	go func() {
		var err error
		output, err = cmd.CombinedOutput()
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			fmt.Printf("  Command failed: %v\n%s\n", err, string(output))
			return "FAILED"
		}
		return fmt.Sprintf("%.3fs", time.Since(start).Seconds())
	case <-time.After(config.Timeout):
		_ = cmd.Process.Kill()
		return "TIMEOUT"
	}
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/sensorium_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"workers", "batches", "ingest_time", "recover_time"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		record := []string{strconv.Itoa(result.Workers), strconv.Itoa(result.Batches), result.IngestTime, result.RecoverTime}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, result := range results {
		fmt.Printf("  %2d workers: Ingest: %s, Recover: %s\n", result.Workers, result.IngestTime, result.RecoverTime)
	}
}
