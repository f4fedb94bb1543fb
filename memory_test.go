package radixscan

import (
	"slices"
	"testing"
)

func TestMemoryAllocation(t *testing.T) {
	ctx := NewContext()
	defer ctx.Destroy()

	for _, n := range []int{1, 100, 1024, 100000} {
		ptr := MallocOrFail(t, ctx, n*4)

		values := ptr.Uint32()
		if len(values) != n {
			t.Errorf("len(Uint32()) = %d, want %d", len(values), n)
		}
		for i := range values {
			values[i] = uint32(i)
		}
		for i := range values {
			if values[i] != uint32(i) {
				t.Fatalf("memory corruption at index %d", i)
			}
		}

		if err := ctx.Free(ptr); err != nil {
			t.Fatalf("Free: %v", err)
		}
	}
}

func TestMallocInvalidSize(t *testing.T) {
	ctx := NewContext()
	defer ctx.Destroy()

	for _, size := range []int{0, -4} {
		if _, err := ctx.Malloc(size); err != ErrInvalidSize {
			t.Errorf("Malloc(%d) = %v, want ErrInvalidSize", size, err)
		}
	}
}

func TestFreeErrors(t *testing.T) {
	ctx := NewContext()
	defer ctx.Destroy()

	if err := ctx.Free(DevicePtr{}); err != nil {
		t.Errorf("Free(nil) = %v, want nil", err)
	}

	ptr := MallocOrFail(t, ctx, 64)
	if err := ctx.Free(ptr); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if err := ctx.Free(ptr); err != ErrDoubleFree {
		t.Errorf("second Free = %v, want ErrDoubleFree", err)
	}

	foreign := allocShared(64)
	if err := ctx.Free(foreign); !IsMemoryError(err) {
		t.Errorf("Free(foreign) = %v, want memory error", err)
	}
}

func TestMemoryPoolReuseAndStats(t *testing.T) {
	ctx := NewContext()
	defer ctx.Destroy()

	a := MallocOrFail(t, ctx, 100)
	allocated, peak := ctx.MemoryStats()
	if allocated != 128 || peak != 128 {
		t.Errorf("stats = (%d, %d), want (128, 128)", allocated, peak)
	}

	if err := ctx.Free(a); err != nil {
		t.Fatalf("Free: %v", err)
	}
	b := MallocOrFail(t, ctx, 64)
	if b.ptr != a.ptr {
		t.Error("freed block was not reused")
	}

	allocated, peak = ctx.MemoryStats()
	if allocated != 128 || peak != 128 {
		t.Errorf("stats after reuse = (%d, %d), want (128, 128)", allocated, peak)
	}
}

func TestMemcpy(t *testing.T) {
	ctx := NewContext()
	defer ctx.Destroy()

	const N = 1000
	h_src := make([]uint32, N)
	for i := range h_src {
		h_src[i] = uint32(i * 7)
	}
	h_dst := make([]uint32, N)

	d_src := MallocOrFail(t, ctx, N*4)
	d_dst := MallocOrFail(t, ctx, N*4)
	defer ctx.Free(d_src)
	defer ctx.Free(d_dst)

	MemcpyOrFail(t, ctx, d_src, h_src, N*4, MemcpyHostToDevice)
	MemcpyOrFail(t, ctx, d_dst, d_src, N*4, MemcpyDeviceToDevice)
	MemcpyOrFail(t, ctx, h_dst, d_dst, N*4, MemcpyDeviceToHost)

	if !slices.Equal(h_src, h_dst) {
		t.Fatalf("round trip mismatch at %d", firstMismatch(h_src, h_dst))
	}

	raw := make([]byte, 8)
	MemcpyOrFail(t, ctx, raw, d_src, 8, MemcpyDeviceToHost)
	if raw[4] != 7 {
		t.Errorf("byte view of element 1 = %d, want 7", raw[4])
	}
}

func TestMemcpyErrors(t *testing.T) {
	ctx := NewContext()
	defer ctx.Destroy()

	d := MallocOrFail(t, ctx, 16)
	defer ctx.Free(d)

	tests := []struct {
		name string
		dst  interface{}
		src  interface{}
		size int
	}{
		{"unsupported dst", []float32{1}, d, 4},
		{"unsupported src", d, "text", 4},
		{"overflow dst", d, make([]uint32, 8), 32},
		{"overflow src", make([]uint32, 8), d, 32},
		{"negative size", d, d, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ctx.Memcpy(tt.dst, tt.src, tt.size, MemcpyDefault); !IsInvalidArgError(err) {
				t.Errorf("got %v, want invalid argument error", err)
			}
		})
	}
}

func TestDevicePtrOffset(t *testing.T) {
	ctx := NewContext()
	defer ctx.Destroy()

	d := MallocOrFail(t, ctx, 16*4)
	defer ctx.Free(d)
	for i := range d.Uint32() {
		d.Uint32()[i] = uint32(i)
	}

	tail := d.Offset(8 * 4)
	if tail.Size() != 8*4 {
		t.Errorf("tail.Size() = %d, want %d", tail.Size(), 8*4)
	}
	if got := tail.Uint32()[0]; got != 8 {
		t.Errorf("tail[0] = %d, want 8", got)
	}
	if !d.Offset(16 * 4).IsNil() {
		t.Error("offset past the end should be nil")
	}
}
