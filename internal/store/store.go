package store

// Store persists named benchmark baselines.
//
// Error handling conventions:
//   - Return ErrNotFound if the baseline doesn't exist (for Load/Delete)
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveBaseline atomically writes the baseline under its name,
	// replacing any baseline saved earlier with the same name.
	SaveBaseline(b *Baseline) error

	// LoadBaseline returns the baseline saved under name.
	LoadBaseline(name string) (*Baseline, error)

	// ListBaselines returns metadata for all stored baselines, newest first.
	ListBaselines() ([]BaselineInfo, error)

	// DeleteBaseline removes the baseline and its raw sample trace.
	DeleteBaseline(name string) error
}

// ErrNotFound is returned when a requested baseline does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing baseline.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	if e.Name != "" {
		return "baseline not found: " + e.Name
	}
	return "baseline not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
