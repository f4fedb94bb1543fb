package radixscan

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// BenchmarkResult captures the result of a single scan benchmark run
type BenchmarkResult struct {
	Name         string    `json:"name"`
	Backend      string    `json:"backend"`
	Sizing       string    `json:"sizing"`
	Status       string    `json:"status"` // "pass" or "fail"
	Iterations   int       `json:"iterations,omitempty"`
	NsPerOp      float64   `json:"ns_per_op,omitempty"`
	StdDevNs     float64   `json:"stddev_ns,omitempty"`
	ValuesPerSec float64   `json:"values_per_sec,omitempty"`
	Error        string    `json:"error,omitempty"`
	Version      string    `json:"version"`
	Timestamp    time.Time `json:"timestamp"`
}

// BenchmarkLogger appends benchmark results to a JSON session file
type BenchmarkLogger struct {
	mu          sync.Mutex
	results     []BenchmarkResult
	logDir      string
	sessionFile string
}

// NewBenchmarkLogger starts a session file under logDir.
func NewBenchmarkLogger(logDir, sessionName string) (*BenchmarkLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	bl := &BenchmarkLogger{
		logDir:      logDir,
		sessionFile: filepath.Join(logDir, fmt.Sprintf("%s_%s.json", sessionName, timestamp)),
	}
	if err := bl.flush(); err != nil {
		return nil, err
	}
	return bl, nil
}

// SessionFile returns the path results are written to
func (bl *BenchmarkLogger) SessionFile() string {
	return bl.sessionFile
}

// Log records a single benchmark result
func (bl *BenchmarkLogger) Log(result BenchmarkResult) error {
	bl.mu.Lock()
	defer bl.mu.Unlock()

	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now()
	}
	if result.Version == "" {
		result.Version = VersionString()
	}
	bl.results = append(bl.results, result)

	// Flush to disk immediately to avoid losing data on crash
	return bl.flush()
}

// LogPass records a successful benchmark
func (bl *BenchmarkLogger) LogPass(name, backend string, s Sizing, iterations int, nsPerOp, stdDevNs float64) error {
	var valuesPerSec float64
	if nsPerOp > 0 {
		valuesPerSec = float64(s.BlockSize()) / (nsPerOp / 1e9)
	}
	return bl.Log(BenchmarkResult{
		Name:         name,
		Backend:      backend,
		Sizing:       s.String(),
		Status:       "pass",
		Iterations:   iterations,
		NsPerOp:      nsPerOp,
		StdDevNs:     stdDevNs,
		ValuesPerSec: valuesPerSec,
	})
}

// LogFail records a failed benchmark
func (bl *BenchmarkLogger) LogFail(name, backend string, s Sizing, err error) error {
	return bl.Log(BenchmarkResult{
		Name:    name,
		Backend: backend,
		Sizing:  s.String(),
		Status:  "fail",
		Error:   err.Error(),
	})
}

// flush writes results to disk, must be called with mu held
func (bl *BenchmarkLogger) flush() error {
	results := bl.results
	if results == nil {
		results = []BenchmarkResult{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	return os.WriteFile(bl.sessionFile, data, 0644)
}

// LoadBenchmarkResults reads a session file written by BenchmarkLogger
func LoadBenchmarkResults(path string) ([]BenchmarkResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var results []BenchmarkResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return results, nil
}

// PrintBenchmarkSummary writes a summary of results to w
func PrintBenchmarkSummary(w io.Writer, results []BenchmarkResult) {
	fmt.Fprintln(w, strings.Repeat("=", 72))

	passed, failed := 0, 0
	for _, r := range results {
		switch r.Status {
		case "pass":
			passed++
			fmt.Fprintf(w, "✓ %-24s %-8s %-8s %12.0f ns/op ±%8.0f %14.0f values/s\n",
				r.Name, r.Backend, r.Sizing, r.NsPerOp, r.StdDevNs, r.ValuesPerSec)
		case "fail":
			failed++
			fmt.Fprintf(w, "✗ %-24s %-8s %-8s FAILED: %s\n", r.Name, r.Backend, r.Sizing, r.Error)
		}
	}

	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintf(w, "Total: %d | Passed: %d | Failed: %d\n", len(results), passed, failed)
}
