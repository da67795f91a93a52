package kernel

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Variant identifies a kernel implementation.
type Variant string

const (
	VariantReference    Variant = "reference"
	VariantStridedChunk Variant = "strided-chunk"
	VariantBoundedChunk Variant = "bounded-chunk"
)

// CheckPolicy describes whether a variant asserts its precondition itself.
type CheckPolicy int

const (
	// PolicyUnchecked variants rely on the caller (and the runtime's index
	// checks) to keep the footprint inside the plane.
	PolicyUnchecked CheckPolicy = iota
	// PolicyChecked variants validate the footprint and coefficient count
	// and panic with a wrapped sentinel error before touching memory.
	PolicyChecked
)

func (p CheckPolicy) String() string {
	switch p {
	case PolicyUnchecked:
		return "unchecked"
	case PolicyChecked:
		return "checked"
	default:
		return "unknown"
	}
}

// ErrUnknownVariant is returned when the name does not match a known variant.
var ErrUnknownVariant = errors.New("unknown kernel variant")

// Kernel is one concrete strategy for adding a coefficient block.
type Kernel struct {
	Variant Variant
	Policy  CheckPolicy
	add     AddCoeffsFunc
}

// AddCoeffs adds coeffs onto the 4x4 block of dst at idx.
func (k Kernel) AddCoeffs(dst []uint8, idx, stride int, coeffs []int16) {
	k.add(dst, idx, stride, coeffs)
}

// Func returns the bare kernel function, for callers that dispatch through
// a function value.
func (k Kernel) Func() AddCoeffsFunc {
	return k.add
}

func (k Kernel) String() string {
	return string(k.Variant)
}

// kernels is the strategy table, in benchmark order.
var kernels = []Kernel{
	{Variant: VariantReference, Policy: PolicyUnchecked, add: addCoeffsReference},
	{Variant: VariantStridedChunk, Policy: PolicyUnchecked, add: addCoeffsStrided},
	{Variant: VariantBoundedChunk, Policy: PolicyChecked, add: addCoeffsBounded},
}

// NormalizeVariant maps arbitrary user input to a canonical variant identifier.
func NormalizeVariant(name string) Variant {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "reference", "ref":
		return VariantReference
	case "strided-chunk", "strided", "chunk":
		return VariantStridedChunk
	case "bounded-chunk", "bounded", "checked":
		return VariantBoundedChunk
	default:
		return Variant(name)
	}
}

// SupportedVariants returns the variants understood by Lookup.
func SupportedVariants() []Variant {
	out := make([]Variant, len(kernels))
	for i, k := range kernels {
		out[i] = k.Variant
	}
	return out
}

// All returns every kernel in benchmark order.
func All() []Kernel {
	out := make([]Kernel, len(kernels))
	copy(out, kernels)
	return out
}

// Lookup returns the kernel registered for name.
func Lookup(name string) (Kernel, error) {
	v := NormalizeVariant(name)
	for _, k := range kernels {
		if k.Variant == v {
			return k, nil
		}
	}
	return Kernel{}, fmt.Errorf("%w: %s", ErrUnknownVariant, name)
}

// Select resolves a list of names, preserving order. An empty list selects
// every variant.
func Select(names []string) ([]Kernel, error) {
	if len(names) == 0 {
		return All(), nil
	}
	out := make([]Kernel, 0, len(names))
	for _, name := range names {
		k, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	slog.Debug("Kernels selected", "requested", names, "kernels", out)
	return out, nil
}
