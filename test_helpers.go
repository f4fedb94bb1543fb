package radixscan

import (
	"testing"
)

// MallocOrFail allocates device memory and fails the test if unsuccessful
func MallocOrFail(t testing.TB, ctx *Context, size int) DevicePtr {
	t.Helper()
	ptr, err := ctx.Malloc(size)
	if err != nil {
		t.Fatalf("Failed to allocate %d bytes: %v", size, err)
	}
	return ptr
}

// MemcpyOrFail copies data and fails the test if unsuccessful
func MemcpyOrFail(t testing.TB, ctx *Context, dst, src interface{}, size int, direction MemcpyKind) {
	t.Helper()
	if err := ctx.Memcpy(dst, src, size, direction); err != nil {
		t.Fatalf("Memcpy failed: %v", err)
	}
}

// ScanOrFail enqueues an exclusive scan and fails the test if it is rejected
func ScanOrFail(t testing.TB, ctx *Context, reduced DevicePtr, numScanValues int, s Sizing) {
	t.Helper()
	if err := ctx.ExclusiveScan(reduced, numScanValues, s); err != nil {
		t.Fatalf("ExclusiveScan(%d, %v) failed: %v", numScanValues, s, err)
	}
}

// SynchronizeOrFail synchronizes and fails the test if unsuccessful
func SynchronizeOrFail(t testing.TB, ctx *Context) {
	t.Helper()
	if err := ctx.Synchronize(); err != nil {
		t.Fatalf("Synchronize failed: %v", err)
	}
}

// ScanValuesOrFail runs a complete host scan and fails the test on error
func ScanValuesOrFail(t testing.TB, values []uint32, numScanValues int, s Sizing) []uint32 {
	t.Helper()
	out, err := ExclusiveScanUint32(values, numScanValues, s)
	if err != nil {
		t.Fatalf("ExclusiveScanUint32(n=%d, %v) failed: %v", numScanValues, s, err)
	}
	return out
}
