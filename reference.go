// Package radixscan reference implementations for verification
package radixscan

// Reference contains simple, serial implementations of the kernels.
// They are used for testing and verification of the parallel versions.
type Reference struct{}

// ExclusiveScan returns out[i] = sum(x[0..i)) with uint32 wraparound.
func (r Reference) ExclusiveScan(x []uint32) []uint32 {
	out := make([]uint32, len(x))
	var sum uint32
	for i, v := range x {
		out[i] = sum
		sum += v
	}
	return out
}

// Counts inverts an exclusive scan: given the offsets and the grand total
// it recovers the original counts.
func (r Reference) Counts(offsets []uint32, total uint32) []uint32 {
	counts := make([]uint32, len(offsets))
	for i := range offsets {
		next := total
		if i+1 < len(offsets) {
			next = offsets[i+1]
		}
		counts[i] = next - offsets[i]
	}
	return counts
}

// Total returns the wrapping sum of x.
func (r Reference) Total(x []uint32) uint32 {
	var sum uint32
	for _, v := range x {
		sum += v
	}
	return sum
}
