// Package radixscan configuration constants
package radixscan

import (
	"fmt"
	"math/bits"
)

// Workgroup sizing shared by every stage of the sort pipeline
const (
	// Lanes per execution group
	DefaultWorkgroupSize = 256

	// Values owned by each lane
	DefaultElementsPerThread = 4

	// Values processed by one scan invocation
	DefaultBlockSize = DefaultWorkgroupSize * DefaultElementsPerThread
)

// Thread and block dimensions
const (
	// Maximum threads per block (CUDA compatibility)
	MaxThreadsPerBlock = 1024

	// Maximum dynamic shared memory per block in bytes
	MaxSharedMemoryPerBlock = 48 * 1024
)

// Memory pool parameters
const (
	// Memory alignment for allocations
	MemoryAlignment = 64
)

// Sizing holds the tiling constants of a sort pipeline. It is fixed for a
// dispatch and must be identical for the count, reduce, scan and scatter
// stages.
type Sizing struct {
	WorkgroupSize     int // WG, a power of two
	ElementsPerThread int // values each lane owns
}

// DefaultSizing is the 256 x 4 layout used by the pipeline.
var DefaultSizing = Sizing{
	WorkgroupSize:     DefaultWorkgroupSize,
	ElementsPerThread: DefaultElementsPerThread,
}

// BlockSize returns WorkgroupSize * ElementsPerThread.
func (s Sizing) BlockSize() int {
	return s.WorkgroupSize * s.ElementsPerThread
}

// Steps returns log2(WorkgroupSize), the number of doubling passes needed to
// scan the per-lane totals.
func (s Sizing) Steps() int {
	return bits.TrailingZeros(uint(s.WorkgroupSize))
}

// Validate reports whether the sizing can be launched as a single block.
func (s Sizing) Validate() error {
	if s.WorkgroupSize <= 0 || s.WorkgroupSize&(s.WorkgroupSize-1) != 0 {
		return NewInvalidArgError("Sizing",
			fmt.Sprintf("workgroup size %d is not a positive power of two", s.WorkgroupSize))
	}
	if s.WorkgroupSize > MaxThreadsPerBlock {
		return NewInvalidArgError("Sizing",
			fmt.Sprintf("workgroup size %d exceeds %d threads per block", s.WorkgroupSize, MaxThreadsPerBlock))
	}
	if s.ElementsPerThread <= 0 {
		return NewInvalidArgError("Sizing",
			fmt.Sprintf("elements per thread must be positive, got %d", s.ElementsPerThread))
	}
	if ScanSharedBytes(s) > MaxSharedMemoryPerBlock {
		return NewInvalidArgError("Sizing",
			fmt.Sprintf("block of %d values does not fit in %d bytes of shared memory", s.BlockSize(), MaxSharedMemoryPerBlock))
	}
	return nil
}

// String formats the sizing as WGxEPT.
func (s Sizing) String() string {
	return fmt.Sprintf("%dx%d", s.WorkgroupSize, s.ElementsPerThread)
}

// Reported device memory when the OS cannot be queried
const defaultSystemMemory = 16 * 1024 * 1024 * 1024
