package radixscan

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"
)

// blockState is the per-block scratch shared by all lanes of one group
type blockState struct {
	barrier *Barrier
	shared  DevicePtr
}

// SyncThreads is the full-group barrier (CUDA __syncthreads). Every write a
// lane issued before the call is visible to every other lane after it.
func (tid ThreadID) SyncThreads() {
	if tid.block == nil {
		return
	}
	if err := tid.block.barrier.Wait(); err != nil {
		panic(err)
	}
}

// Shared returns the block's dynamic shared memory.
func (tid ThreadID) Shared() DevicePtr {
	if tid.block == nil {
		return DevicePtr{}
	}
	return tid.block.shared
}

// launchInternal implements the core kernel execution logic
func (ctx *Context) launchInternal(
	kernelFunc func(ThreadID, ...interface{}),
	grid, block Dim3,
	sharedBytes int,
	stream *Stream,
	args ...interface{},
) error {
	gridSize := grid.Size()
	blockSize := block.Size()

	if blockSize <= 0 {
		return NewInvalidArgError("Launch", fmt.Sprintf("block size must be positive, got %d", blockSize))
	}
	if blockSize > MaxThreadsPerBlock {
		return NewInvalidArgError("Launch",
			fmt.Sprintf("block of %d threads exceeds %d threads per block", blockSize, MaxThreadsPerBlock))
	}
	if sharedBytes < 0 || sharedBytes > MaxSharedMemoryPerBlock {
		return NewInvalidArgError("Launch",
			fmt.Sprintf("shared memory of %d bytes outside [0, %d]", sharedBytes, MaxSharedMemoryPerBlock))
	}

	if gridSize <= 0 {
		// Keep stream ordering
		stream.Submit(func() error { return nil })
		return nil
	}

	numWorkers := runtime.NumCPU()
	if gridSize < numWorkers {
		numWorkers = gridSize
	}

	// Each worker owns a contiguous range of blocks
	blocksPerWorker := (gridSize + numWorkers - 1) / numWorkers

	stream.Submit(func() error {
		var wg sync.WaitGroup
		errs := make([]error, numWorkers)

		for workerID := 0; workerID < numWorkers; workerID++ {
			startBlock := workerID * blocksPerWorker
			endBlock := min(startBlock+blocksPerWorker, gridSize)

			wg.Add(1)
			go func(wID int) {
				defer wg.Done()
				for blockID := startBlock; blockID < endBlock; blockID++ {
					blockIdx := linearTo3D(blockID, grid)
					if _, err := runBlock(kernelFunc, blockIdx, grid, block, sharedBytes, args...); err != nil {
						errs[wID] = err
						return
					}
				}
			}(workerID)
		}

		wg.Wait()
		for _, err := range errs {
			if err != nil {
				return err
			}
		}
		return nil
	})

	return nil
}

// runBlock executes every lane of one block as its own goroutine and waits
// for them. It returns how many times the block's barrier released.
func runBlock(
	kernelFunc func(ThreadID, ...interface{}),
	blockIdx, grid, block Dim3,
	sharedBytes int,
	args ...interface{},
) (uint64, error) {
	blockSize := block.Size()
	state := &blockState{
		barrier: NewBarrier(blockSize),
		shared:  allocShared(sharedBytes),
	}

	var (
		wg       sync.WaitGroup
		failOnce sync.Once
		failure  error
	)
	wg.Add(blockSize)

	for threadID := 0; threadID < blockSize; threadID++ {
		tid := ThreadID{
			BlockIdx:  blockIdx,
			ThreadIdx: linearTo3D(threadID, block),
			BlockDim:  block.normalize(),
			GridDim:   grid.normalize(),
			block:     state,
		}

		go func() {
			defer wg.Done()
			defer func() {
				r := recover()
				if r == nil {
					state.barrier.Leave()
					return
				}
				if err, ok := r.(error); ok && err == ErrBarrierBroken {
					return
				}
				failOnce.Do(func() {
					failure = &Error{
						Type:    ErrTypeExecution,
						Op:      "Kernel",
						Message: fmt.Sprintf("lane %d of block %v panicked", tid.ThreadIdx.X, blockIdx),
						Err:     panicError(r),
						Context: tid,
					}
				})
				state.barrier.Break()
			}()

			kernelFunc(tid, args...)
		}()
	}

	wg.Wait()
	return state.barrier.Generation(), failure
}

// allocShared returns zeroed, 4-byte aligned scratch of the given size
func allocShared(size int) DevicePtr {
	if size <= 0 {
		return DevicePtr{}
	}
	buf := make([]uint32, (size+3)/4)
	return DevicePtr{
		ptr:  unsafe.Pointer(&buf[0]),
		size: size,
	}
}

func panicError(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}

// linearTo3D converts a linear index to 3D coordinates
func linearTo3D(linear int, dim Dim3) Dim3 {
	dim = dim.normalize()
	z := linear / (dim.X * dim.Y)
	y := (linear % (dim.X * dim.Y)) / dim.X
	x := linear % dim.X
	return Dim3{X: x, Y: y, Z: z}
}
