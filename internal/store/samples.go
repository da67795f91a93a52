package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cwbudde/coeffbench/internal/bench"
)

// SampleEntry is one timed batch, serialized as a JSON line in
// samples.jsonl.
type SampleEntry struct {
	// Benchmark is the benchmark ID the sample belongs to.
	Benchmark string `json:"benchmark"`

	// Index is the position of the sample in the linear schedule.
	Index int `json:"index"`

	Iters   uint64        `json:"iters"`
	Elapsed time.Duration `json:"elapsedNs"`
}

// Sample converts the entry back to a bench.Sample.
func (e SampleEntry) Sample() bench.Sample {
	return bench.Sample{Iters: e.Iters, Elapsed: e.Elapsed}
}

func samplesPath(baseDir, name string) string {
	return filepath.Join(baseDir, "baselines", name, "samples.jsonl")
}

// SampleWriter writes sample entries to a JSONL file.
type SampleWriter struct {
	file   *os.File
	writer *bufio.Writer
	path   string
}

// NewSampleWriter creates <baseDir>/baselines/<name>/samples.jsonl,
// truncating any previous trace.
func NewSampleWriter(baseDir, name string) (*SampleWriter, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	path := samplesPath(baseDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create baseline directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open samples file: %w", err)
	}

	return &SampleWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, 64*1024),
		path:   path,
	}, nil
}

// Write appends one entry. It is buffered until Flush or Close.
func (sw *SampleWriter) Write(entry SampleEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal sample entry: %w", err)
	}
	if _, err := sw.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write sample entry: %w", err)
	}
	if err := sw.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return nil
}

// WriteResult writes every sample of r in schedule order.
func (sw *SampleWriter) WriteResult(r bench.Result) error {
	for i, s := range r.Samples {
		entry := SampleEntry{Benchmark: r.ID, Index: i, Iters: s.Iters, Elapsed: s.Elapsed}
		if err := sw.Write(entry); err != nil {
			return fmt.Errorf("benchmark %s: %w", r.ID, err)
		}
	}
	return nil
}

// Flush writes buffered data and syncs the file.
func (sw *SampleWriter) Flush() error {
	if err := sw.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush samples writer: %w", err)
	}
	if err := sw.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync samples file: %w", err)
	}
	return nil
}

// Close flushes buffered data and closes the file.
func (sw *SampleWriter) Close() error {
	if err := sw.writer.Flush(); err != nil {
		sw.file.Close()
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := sw.file.Close(); err != nil {
		return fmt.Errorf("failed to close samples file: %w", err)
	}
	return nil
}

// Path returns the filesystem path to the samples file.
func (sw *SampleWriter) Path() string {
	return sw.path
}

// SampleReader reads sample entries from a JSONL file.
type SampleReader struct {
	file    *os.File
	scanner *bufio.Scanner
}

// NewSampleReader opens the sample trace of baseline name.
func NewSampleReader(baseDir, name string) (*SampleReader, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	file, err := os.Open(samplesPath(baseDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Name: name}
		}
		return nil, fmt.Errorf("failed to open samples file: %w", err)
	}

	return &SampleReader{file: file, scanner: bufio.NewScanner(file)}, nil
}

// Read returns the next entry, or io.EOF when the trace is exhausted.
func (sr *SampleReader) Read() (*SampleEntry, error) {
	if !sr.scanner.Scan() {
		if err := sr.scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to scan samples line: %w", err)
		}
		return nil, io.EOF
	}

	var entry SampleEntry
	if err := json.Unmarshal(sr.scanner.Bytes(), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sample entry: %w", err)
	}
	return &entry, nil
}

// ReadAll reads the remaining entries grouped by benchmark ID.
func (sr *SampleReader) ReadAll() (map[string][]bench.Sample, error) {
	out := make(map[string][]bench.Sample)
	for {
		entry, err := sr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		out[entry.Benchmark] = append(out[entry.Benchmark], entry.Sample())
	}
	return out, nil
}

// Close closes the reader.
func (sr *SampleReader) Close() error {
	if err := sr.file.Close(); err != nil {
		return fmt.Errorf("failed to close samples file: %w", err)
	}
	return nil
}
