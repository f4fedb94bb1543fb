package radixscan

import (
	"testing"
)

func TestLaunchValidation(t *testing.T) {
	ctx := NewContext()
	defer ctx.Destroy()

	noop := KernelFunc(func(tid ThreadID, args ...interface{}) {})

	tests := []struct {
		name   string
		block  Dim3
		shared int
	}{
		{"empty block", Dim3{X: 0}, 0},
		{"block too large", Dim3{X: MaxThreadsPerBlock + 1}, 0},
		{"negative shared", Dim3{X: 4}, -1},
		{"shared too large", Dim3{X: 4}, MaxSharedMemoryPerBlock + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ctx.LaunchShared(noop, Dim3{X: 1}, tt.block, tt.shared)
			if !IsInvalidArgError(err) {
				t.Errorf("got %v, want invalid argument error", err)
			}
		})
	}
}

func TestLaunchCoversGrid(t *testing.T) {
	ctx := NewContext()
	defer ctx.Destroy()

	const blocks, threads = 13, 32
	d_out := MallocOrFail(t, ctx, blocks*threads*4)
	defer ctx.Free(d_out)

	kernel := KernelFunc(func(tid ThreadID, args ...interface{}) {
		out := args[0].(DevicePtr).Uint32()
		out[tid.Global()] = uint32(tid.Global()) + 1
	})

	if err := ctx.LaunchFunc(kernel, Dim3{X: blocks}, Dim3{X: threads}, d_out); err != nil {
		t.Fatalf("LaunchFunc: %v", err)
	}
	SynchronizeOrFail(t, ctx)

	for i, v := range d_out.Uint32() {
		if v != uint32(i)+1 {
			t.Fatalf("out[%d] = %d, want %d", i, v, i+1)
		}
	}
}

func TestSharedMemoryIsPerBlock(t *testing.T) {
	ctx := NewContext()
	defer ctx.Destroy()

	const blocks, threads = 4, 16
	d_out := MallocOrFail(t, ctx, blocks*4)
	defer ctx.Free(d_out)

	// Every lane adds its index into shared[0]; lane 0 publishes the block total
	kernel := KernelFunc(func(tid ThreadID, args ...interface{}) {
		shared := tid.Shared().Uint32()
		slots := shared[1:]
		slots[tid.ThreadIdx.X] = uint32(tid.ThreadIdx.X)
		tid.SyncThreads()
		if tid.ThreadIdx.X == 0 {
			for _, v := range slots[:threads] {
				shared[0] += v
			}
			args[0].(DevicePtr).Uint32()[tid.BlockIdx.X] = shared[0]
		}
	})

	if err := ctx.LaunchShared(kernel, Dim3{X: blocks}, Dim3{X: threads}, (threads+1)*4, d_out); err != nil {
		t.Fatalf("LaunchShared: %v", err)
	}
	SynchronizeOrFail(t, ctx)

	want := uint32(threads * (threads - 1) / 2)
	for b, v := range d_out.Uint32() {
		if v != want {
			t.Errorf("block %d total = %d, want %d (shared memory leaked between blocks?)", b, v, want)
		}
	}
}

func TestEarlyReturnDoesNotDeadlock(t *testing.T) {
	ctx := NewContext()
	defer ctx.Destroy()

	kernel := KernelFunc(func(tid ThreadID, args ...interface{}) {
		if tid.ThreadIdx.X%2 == 1 {
			return
		}
		tid.SyncThreads()
		tid.SyncThreads()
	})

	if err := ctx.LaunchFunc(kernel, Dim3{X: 2}, Dim3{X: 8}); err != nil {
		t.Fatalf("LaunchFunc: %v", err)
	}
	SynchronizeOrFail(t, ctx)
}

func TestKernelPanicBecomesExecutionError(t *testing.T) {
	ctx := NewContext()
	defer ctx.Destroy()

	kernel := KernelFunc(func(tid ThreadID, args ...interface{}) {
		if tid.ThreadIdx.X == 3 {
			panic("lane failure")
		}
		tid.SyncThreads()
	})

	if err := ctx.LaunchFunc(kernel, Dim3{X: 1}, Dim3{X: 8}); err != nil {
		t.Fatalf("LaunchFunc: %v", err)
	}
	err := ctx.Synchronize()
	if !IsExecutionError(err) {
		t.Fatalf("Synchronize() = %v, want execution error", err)
	}

	// The error is reported once
	if err := ctx.Synchronize(); err != nil {
		t.Errorf("second Synchronize() = %v, want nil", err)
	}
}

func TestEmptyGrid(t *testing.T) {
	ctx := NewContext()
	defer ctx.Destroy()

	ran := false
	kernel := KernelFunc(func(tid ThreadID, args ...interface{}) { ran = true })
	if err := ctx.LaunchFunc(kernel, Dim3{X: 0}, Dim3{X: 4}); err != nil {
		t.Fatalf("LaunchFunc: %v", err)
	}
	SynchronizeOrFail(t, ctx)
	if ran {
		t.Error("kernel ran for an empty grid")
	}
}

func TestDim3Size(t *testing.T) {
	tests := []struct {
		dim  Dim3
		want int
	}{
		{Dim3{X: 256}, 256},
		{Dim3{X: 4, Y: 2}, 8},
		{Dim3{X: 4, Y: 2, Z: 3}, 24},
		{Dim3{}, 0},
	}
	for _, tt := range tests {
		if got := tt.dim.Size(); got != tt.want {
			t.Errorf("%+v.Size() = %d, want %d", tt.dim, got, tt.want)
		}
	}
}

func TestSyncThreadsOutsideLaunch(t *testing.T) {
	var tid ThreadID
	tid.SyncThreads()
	if !tid.Shared().IsNil() {
		t.Error("Shared() outside a launch should be nil")
	}
}

func TestKernelPanicCarriesLane(t *testing.T) {
	kernel := KernelFunc(func(tid ThreadID, args ...interface{}) {
		if tid.ThreadIdx.X == 2 {
			var out []uint32
			out[5] = 1
		}
	})

	_, err := runBlock(kernel, Dim3{X: 3}, Dim3{X: 4}, Dim3{X: 4}, 0)
	e, ok := err.(*Error)
	if !ok {
		t.Fatalf("runBlock error = %v, want *Error", err)
	}
	tid, ok := e.Context.(ThreadID)
	if !ok || tid.ThreadIdx.X != 2 || tid.BlockIdx.X != 3 {
		t.Errorf("Context = %+v, want lane 2 of block 3", e.Context)
	}
}
