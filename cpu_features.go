package radixscan

import (
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

// CPUFeatures tracks instruction set extensions of the host device
type CPUFeatures struct {
	HasSSE4   bool
	HasAVX    bool
	HasAVX2   bool
	HasAVX512 bool
	HasASIMD  bool // ARM64 Advanced SIMD
	HasSVE    bool // ARM64 Scalable Vector Extension
}

// Global CPU feature detection
var cpuFeatures CPUFeatures

func init() {
	detectCPUFeatures()
}

// detectCPUFeatures populates the global cpuFeatures struct
func detectCPUFeatures() {
	cpuFeatures = CPUFeatures{
		HasSSE4:   cpu.X86.HasSSE41 || cpu.X86.HasSSE42,
		HasAVX:    cpu.X86.HasAVX,
		HasAVX2:   cpu.X86.HasAVX2,
		HasAVX512: cpu.X86.HasAVX512F,
		HasASIMD:  cpu.ARM64.HasASIMD,
		HasSVE:    cpu.ARM64.HasSVE,
	}
}

// GetCPUFeatures returns the detected host features
func GetCPUFeatures() CPUFeatures {
	return cpuFeatures
}

// GetCPUInfo returns a string describing available CPU features
func GetCPUInfo() string {
	var features []string

	if cpuFeatures.HasSSE4 {
		features = append(features, "SSE4")
	}
	if cpuFeatures.HasAVX {
		features = append(features, "AVX")
	}
	if cpuFeatures.HasAVX2 {
		features = append(features, "AVX2")
	}
	if cpuFeatures.HasAVX512 {
		features = append(features, "AVX512F")
	}
	if cpuFeatures.HasASIMD {
		features = append(features, "ASIMD")
	}
	if cpuFeatures.HasSVE {
		features = append(features, "SVE")
	}

	if len(features) == 0 {
		return runtime.GOARCH + ": no SIMD extensions detected"
	}
	return runtime.GOARCH + ": " + strings.Join(features, ", ")
}
