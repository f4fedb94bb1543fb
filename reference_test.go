package radixscan

import (
	"math"
	"slices"
	"testing"
)

func TestReferenceExclusiveScan(t *testing.T) {
	ref := Reference{}

	tests := []struct {
		in, want []uint32
	}{
		{nil, []uint32{}},
		{[]uint32{7}, []uint32{0}},
		{[]uint32{1, 2, 3, 4, 5, 6, 7, 8}, []uint32{0, 1, 3, 6, 10, 15, 21, 28}},
		{[]uint32{math.MaxUint32, 1, 5}, []uint32{0, math.MaxUint32, 0}},
	}

	for _, tt := range tests {
		got := ref.ExclusiveScan(tt.in)
		if !slices.Equal(got, tt.want) {
			t.Errorf("ExclusiveScan(%v) = %v, want %v", tt.in, got, tt.want)
		}
		if counts := ref.Counts(got, ref.Total(tt.in)); !slices.Equal(counts, append([]uint32{}, tt.in...)) {
			t.Errorf("Counts(ExclusiveScan(%v)) = %v", tt.in, counts)
		}
	}
}
