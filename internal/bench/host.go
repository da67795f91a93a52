package bench

import (
	"runtime"

	vcpu "github.com/cwbudde/algo-vecmath/cpu"
	"golang.org/x/sys/cpu"
)

// Host describes the machine a run was measured on.
type Host struct {
	GOOS      string `json:"goos"`
	GOARCH    string `json:"goarch"`
	GoVersion string `json:"goVersion"`
	NumCPU    int    `json:"numCpu"`
	SIMD      string `json:"simd"`
	AVX2      bool   `json:"avx2"`
	AVX512    bool   `json:"avx512"`
	NEON      bool   `json:"neon"`
}

// simdLevels are checked from the most to the least capable.
var simdLevels = []vcpu.SIMDLevel{
	vcpu.SIMDAVX512,
	vcpu.SIMDAVX2,
	vcpu.SIMDAVX,
	vcpu.SIMDSSE2,
	vcpu.SIMDNEON,
}

// DetectHost inspects the running machine.
func DetectHost() Host {
	features := vcpu.DetectFeatures()
	level := vcpu.SIMDNone
	for _, l := range simdLevels {
		if vcpu.Supports(features, l) {
			level = l
			break
		}
	}

	return Host{
		GOOS:      runtime.GOOS,
		GOARCH:    runtime.GOARCH,
		GoVersion: runtime.Version(),
		NumCPU:    runtime.NumCPU(),
		SIMD:      level.String(),
		AVX2:      cpu.X86.HasAVX2,
		AVX512:    cpu.X86.HasAVX512F,
		NEON:      cpu.ARM64.HasASIMD,
	}
}
