package radixscan

import (
	"fmt"
)

// ScanUniforms is the read-only configuration record of one scan dispatch.
type ScanUniforms struct {
	// Entries at or beyond this index are padding and are never written.
	NumScanValues uint32
}

// ScanSharedBytes returns the dynamic shared memory a scan block needs: a
// WorkgroupSize totals array followed by the ElementsPerThread x
// WorkgroupSize tile.
func ScanSharedBytes(s Sizing) int {
	return (s.WorkgroupSize + s.BlockSize()) * 4
}

// ScanKernel computes the exclusive prefix sum of one block of counters in
// place. It expects args (DevicePtr, ScanUniforms), a block of exactly
// Sizing.WorkgroupSize lanes, a grid of one block and ScanSharedBytes of
// shared memory. It performs no validation; see ValidateScan.
//
// All BlockSize input slots are read, so slots in [NumScanValues,
// BlockSize) must be readable. Their contents do not affect the output.
type ScanKernel struct {
	Sizing Sizing
}

// Execute runs one lane of the scan.
func (k ScanKernel) Execute(tid ThreadID, args ...interface{}) {
	reduced := args[0].(DevicePtr).Uint32()
	uniforms := args[1].(ScanUniforms)

	wg := k.Sizing.WorkgroupSize
	ept := k.Sizing.ElementsPerThread
	lane := tid.ThreadIdx.X

	shared := tid.Shared()
	totals := shared.Uint32()[:wg]
	tile := shared.Offset(wg * 4).Uint32()[:wg*ept]

	// Coalesced load, transposed so lane c's chunk is tile column c
	for i := 0; i < ept; i++ {
		idx := lane + i*wg
		tile[k.Sizing.TileIndex(idx)] = reduced[idx]
	}
	tid.SyncThreads()

	// Serial exclusive scan of this lane's column
	var sum uint32
	for row := 0; row < ept; row++ {
		off := k.Sizing.TileOffset(row, lane)
		v := tile[off]
		tile[off] = sum
		sum += v
	}
	totals[lane] = sum
	tid.SyncThreads()

	// Hillis-Steele inclusive scan of the column totals
	for step := 0; step < k.Sizing.Steps(); step++ {
		stride := 1 << step
		tid.SyncThreads()
		if lane >= stride {
			sum += totals[lane-stride]
		}
		tid.SyncThreads()
		totals[lane] = sum
	}
	tid.SyncThreads()

	var base uint32
	if lane > 0 {
		base = totals[lane-1]
	}
	for row := 0; row < ept; row++ {
		tile[k.Sizing.TileOffset(row, lane)] += base
	}
	tid.SyncThreads()

	n := int(uniforms.NumScanValues)
	for i := 0; i < ept; i++ {
		idx := lane + i*wg
		if idx < n {
			reduced[idx] = tile[k.Sizing.TileIndex(idx)]
		}
	}
}

// ScanBarriers returns how many barrier releases one scan block performs.
func ScanBarriers(s Sizing) int {
	return 4 + 2*s.Steps()
}

// ValidateScan checks every dispatch precondition of the scan kernel:
// a launchable sizing, 0 <= numScanValues <= BlockSize, a buffer of at
// least BlockSize counters, and a grid of exactly one group.
func ValidateScan(s Sizing, numScanValues, bufferLen int, grid Dim3) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if numScanValues < 0 {
		return NewInvalidArgError("ExclusiveScan",
			fmt.Sprintf("negative scan count %d", numScanValues))
	}
	if numScanValues > s.BlockSize() {
		return NewInvalidArgError("ExclusiveScan",
			fmt.Sprintf("scan count %d exceeds block size %d", numScanValues, s.BlockSize()))
	}
	if bufferLen < s.BlockSize() {
		return NewInvalidArgError("ExclusiveScan",
			fmt.Sprintf("buffer holds %d counters, need %d", bufferLen, s.BlockSize()))
	}
	if grid.Size() != 1 {
		return ErrGroupCount
	}
	return nil
}

// ExclusiveScan scans reduced on the default context. The result is
// available after Synchronize.
func ExclusiveScan(reduced DevicePtr, numScanValues int, s Sizing) error {
	return defaultContext.ExclusiveScan(reduced, numScanValues, s)
}

// ExclusiveScan validates the dispatch and enqueues one scan launch on the
// default stream.
func (ctx *Context) ExclusiveScan(reduced DevicePtr, numScanValues int, s Sizing) error {
	return ctx.ExclusiveScanStream(reduced, numScanValues, s, ctx.defaultStream)
}

// ExclusiveScanStream enqueues one scan launch on stream.
func (ctx *Context) ExclusiveScanStream(reduced DevicePtr, numScanValues int, s Sizing, stream *Stream) error {
	grid := Dim3{X: 1, Y: 1, Z: 1}
	if err := ValidateScan(s, numScanValues, reduced.Size()/4, grid); err != nil {
		return err
	}

	block := Dim3{X: s.WorkgroupSize, Y: 1, Z: 1}
	uniforms := ScanUniforms{NumScanValues: uint32(numScanValues)}
	return ctx.LaunchStream(ScanKernel{Sizing: s}, grid, block, ScanSharedBytes(s), stream, reduced, uniforms)
}

// ExclusiveScanUint32 scans the first numScanValues entries of values on the
// default context and returns a copy of values with those entries replaced
// by their exclusive prefix sums. values shorter than a block are padded
// with zeros on the device.
func ExclusiveScanUint32(values []uint32, numScanValues int, s Sizing) ([]uint32, error) {
	return defaultContext.ExclusiveScanUint32(values, numScanValues, s)
}

// ExclusiveScanUint32 is the context form of the package function.
func (ctx *Context) ExclusiveScanUint32(values []uint32, numScanValues int, s Sizing) ([]uint32, error) {
	if len(values) > s.BlockSize() {
		return nil, NewInvalidArgError("ExclusiveScanUint32",
			fmt.Sprintf("%d values exceed block size %d", len(values), s.BlockSize()))
	}
	if numScanValues > len(values) {
		return nil, NewInvalidArgError("ExclusiveScanUint32",
			fmt.Sprintf("scan count %d exceeds %d values", numScanValues, len(values)))
	}

	d_reduced, err := ctx.Malloc(s.BlockSize() * 4)
	if err != nil {
		return nil, err
	}
	defer ctx.Free(d_reduced)

	// Pool memory may be reused, so clear the padding explicitly
	clear(d_reduced.Uint32())
	if err := ctx.Memcpy(d_reduced, values, len(values)*4, MemcpyHostToDevice); err != nil {
		return nil, err
	}

	stream := ctx.CreateStream()
	defer ctx.DestroyStream(stream)
	if err := ctx.ExclusiveScanStream(d_reduced, numScanValues, s, stream); err != nil {
		return nil, err
	}
	if err := stream.Synchronize(); err != nil {
		return nil, err
	}

	out := make([]uint32, len(values))
	if err := ctx.Memcpy(out, d_reduced, len(values)*4, MemcpyDeviceToHost); err != nil {
		return nil, err
	}
	return out, nil
}
