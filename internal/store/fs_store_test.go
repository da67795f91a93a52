package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/cwbudde/coeffbench/internal/bench"
)

// setupTestStore creates a temporary directory and returns an FSStore for testing.
func setupTestStore(t *testing.T) (*FSStore, string) {
	t.Helper()

	tempDir := t.TempDir()
	store, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	return store, tempDir
}

func testHost() bench.Host {
	return bench.Host{GOOS: "linux", GOARCH: "amd64", GoVersion: "go1.25.0", NumCPU: 8, SIMD: "AVX2", AVX2: true}
}

func testResults() []bench.Result {
	return []bench.Result{
		{
			ID: "reference_196608_512", Name: "reference", Group: "196608_512", Elements: 12288,
			Samples:   []bench.Sample{{Iters: 10, Elapsed: 1000}, {Iters: 20, Elapsed: 2010}},
			Estimates: bench.Estimates{Mean: 100.5, MeanCI: bench.Interval{Lo: 99, Hi: 102}, Median: 100},
		},
		{
			ID: "strided-chunk_196608_512", Name: "strided-chunk", Group: "196608_512", Elements: 12288,
			Samples:   []bench.Sample{{Iters: 10, Elapsed: 500}},
			Estimates: bench.Estimates{Mean: 50.25, MeanCI: bench.Interval{Lo: 49, Hi: 51}},
			Change:    &bench.Change{Ratio: -0.5, Verdict: bench.Improved},
		},
	}
}

func createTestBaseline(name string) *Baseline {
	return NewBaseline(name, testHost(), bench.DefaultConfig(), testResults())
}

func TestNewFSStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	if _, err := NewFSStore(dir); err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("Base directory was not created: %v", err)
	}
}

func TestNewBaseline_StripsSamples(t *testing.T) {
	results := testResults()
	b := NewBaseline("main", testHost(), bench.DefaultConfig(), results)

	if err := b.Validate(); err != nil {
		t.Fatalf("new baseline invalid: %v", err)
	}
	for _, r := range b.Results {
		if r.Samples != nil || r.Change != nil {
			t.Errorf("%s kept samples or change", r.ID)
		}
	}
	if len(results[0].Samples) != 2 || results[1].Change == nil {
		t.Error("input results were modified")
	}

	est := b.Estimates()
	if est["strided-chunk_196608_512"].Mean != 50.25 {
		t.Errorf("estimates map = %+v", est)
	}
}

func TestSaveLoadBaseline(t *testing.T) {
	store, tempDir := setupTestStore(t)
	b := createTestBaseline("main")

	if err := store.SaveBaseline(b); err != nil {
		t.Fatalf("SaveBaseline failed: %v", err)
	}

	path := filepath.Join(tempDir, "baselines", "main", "baseline.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("baseline file missing: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}

	loaded, err := store.LoadBaseline("main")
	if err != nil {
		t.Fatalf("LoadBaseline failed: %v", err)
	}
	if diff := cmp.Diff(b, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveBaseline_Overwrite(t *testing.T) {
	store, _ := setupTestStore(t)

	first := createTestBaseline("main")
	if err := store.SaveBaseline(first); err != nil {
		t.Fatal(err)
	}
	second := createTestBaseline("main")
	if err := store.SaveBaseline(second); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.LoadBaseline("main")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.ID != second.ID {
		t.Errorf("loaded %s, want overwritten baseline %s", loaded.ID, second.ID)
	}
}

func TestSaveBaseline_Invalid(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.SaveBaseline(nil); err == nil {
		t.Error("nil baseline accepted")
	}

	b := createTestBaseline("main")
	b.Results = nil
	var verr *ValidationError
	if err := store.SaveBaseline(b); !errors.As(err, &verr) || verr.Field != "Results" {
		t.Errorf("expected Results validation error, got %v", err)
	}
}

func TestLoadBaseline_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.LoadBaseline("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err.Error() != "baseline not found: missing" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestLoadBaseline_Corrupted(t *testing.T) {
	store, tempDir := setupTestStore(t)

	dir := filepath.Join(tempDir, "baselines", "broken")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "baseline.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := store.LoadBaseline("broken"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected a decode error, got %v", err)
	}

	// Listing skips the corrupted entry.
	infos, err := store.ListBaselines()
	if err != nil || len(infos) != 0 {
		t.Errorf("ListBaselines = %v, %v", infos, err)
	}
}

func TestListBaselines(t *testing.T) {
	store, tempDir := setupTestStore(t)

	infos, err := store.ListBaselines()
	if err != nil || len(infos) != 0 {
		t.Fatalf("empty store listed %v, %v", infos, err)
	}

	now := time.Now()
	for i, name := range []string{"old", "newest", "middle"} {
		b := createTestBaseline(name)
		b.Timestamp = now.Add(time.Duration([]int{-2, 0, -1}[i]) * time.Hour)
		if err := store.SaveBaseline(b); err != nil {
			t.Fatal(err)
		}
	}
	// Directories without baseline.json are ignored.
	if err := os.MkdirAll(filepath.Join(tempDir, "baselines", "empty"), 0755); err != nil {
		t.Fatal(err)
	}

	infos, err = store.ListBaselines()
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, info := range infos {
		names = append(names, info.Name)
	}
	if diff := cmp.Diff([]string{"newest", "middle", "old"}, names); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if infos[0].Benchmarks != 2 || infos[0].Host != "linux/amd64 AVX2 x8" {
		t.Errorf("info = %+v", infos[0])
	}
}

func TestDeleteBaseline(t *testing.T) {
	store, tempDir := setupTestStore(t)

	if _, err := SaveRun(store, "main", testHost(), bench.DefaultConfig(), testResults()); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteBaseline("main"); err != nil {
		t.Fatalf("DeleteBaseline failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "baselines", "main")); !os.IsNotExist(err) {
		t.Error("baseline directory still exists")
	}
	if err := store.DeleteBaseline("main"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestValidateName(t *testing.T) {
	for _, name := range []string{"main", "v1.2", "pr-42_avx2"} {
		if err := ValidateName(name); err != nil {
			t.Errorf("ValidateName(%q) = %v", name, err)
		}
	}
	for _, name := range []string{"", "../escape", "a/b", ".hidden", "with space"} {
		if err := ValidateName(name); err == nil {
			t.Errorf("ValidateName(%q) accepted", name)
		}
	}

	store, _ := setupTestStore(t)
	if _, err := store.LoadBaseline("../x"); err == nil {
		t.Error("path traversal accepted by LoadBaseline")
	}
}

func TestBaselineValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Baseline)
		field  string
	}{
		{"bad id", func(b *Baseline) { b.ID = "nope" }, "ID"},
		{"zero time", func(b *Baseline) { b.Timestamp = time.Time{} }, "Timestamp"},
		{"empty result id", func(b *Baseline) { b.Results[0].ID = "" }, "Results[0].ID"},
		{"duplicate id", func(b *Baseline) { b.Results[1].ID = b.Results[0].ID }, "Results[1].ID"},
		{"zero mean", func(b *Baseline) { b.Results[1].Estimates.Mean = 0 }, "Results[1].Estimates.Mean"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := createTestBaseline("main")
			tt.mutate(b)
			var verr *ValidationError
			if err := b.Validate(); !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("expected %s validation error, got %v", tt.field, err)
			}
		})
	}
}

func TestIsCompatible(t *testing.T) {
	b := createTestBaseline("main")
	cfg := bench.DefaultConfig()

	if err := b.IsCompatible(testHost(), cfg); err != nil {
		t.Errorf("same host incompatible: %v", err)
	}

	var cerr *CompatibilityError
	darwin := testHost()
	darwin.GOOS = "darwin"
	if err := b.IsCompatible(darwin, cfg); !errors.As(err, &cerr) || cerr.Field != "Host.GOOS" {
		t.Errorf("expected GOOS mismatch, got %v", err)
	}

	other := testHost()
	other.SIMD = "SSE2"
	if err := b.IsCompatible(other, cfg); !errors.As(err, &cerr) || cerr.Field != "Host.SIMD" {
		t.Errorf("expected SIMD mismatch, got %v", err)
	}

	pinned := cfg
	pinned.PinCPU = 2
	if err := b.IsCompatible(testHost(), pinned); !errors.As(err, &cerr) || cerr.Expected != "-1" || cerr.Actual != "2" {
		t.Errorf("expected PinCPU mismatch, got %v", err)
	}
}
