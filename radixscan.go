// Package radixscan provides the block-wide exclusive prefix sum stage of a
// multi-pass radix sort, executed on a CUDA-style CPU runtime.
//
// Example usage:
//
//	ctx := radixscan.NewContext()
//	defer ctx.Destroy()
//
//	// Allocate device memory for one block of counters
//	d_reduced, _ := ctx.Malloc(radixscan.DefaultBlockSize * 4)
//
//	// Copy partial counts to device
//	ctx.Memcpy(d_reduced, h_counts, len(h_counts)*4, radixscan.MemcpyHostToDevice)
//
//	// Scan with a single execution group
//	ctx.ExclusiveScan(d_reduced, len(h_counts), radixscan.DefaultSizing)
//	ctx.Synchronize()
package radixscan

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"
)

// Device represents a compute device. Here this is the CPU with its
// cores and available memory.
type Device struct {
	ID         int    // Unique device identifier
	Name       string // Human-readable device name
	Features   string // Instruction set extensions
	TotalMem   uint64 // Total available memory in bytes
	NumCores   int    // Number of CPU cores
	MaxThreads int    // Maximum threads per block
}

// Context represents an execution context. It manages device resources,
// memory allocation, and stream execution. A Context should be destroyed
// when no longer needed.
type Context struct {
	device        *Device
	mu            sync.Mutex
	streams       map[int]*Stream
	streamID      int32
	memory        *MemoryPool
	defaultStream *Stream
}

// Stream represents an ordered sequence of operations that execute
// asynchronously. Operations within a stream execute in order, but
// operations in different streams may execute concurrently.
type Stream struct {
	id    int
	tasks chan func() error
	done  chan struct{}
	wg    sync.WaitGroup

	mu  sync.Mutex
	err error
}

// Dim3 represents 3D dimensions for grid and block configurations.
// Y and Z default to 1 when left zero.
type Dim3 struct {
	X, Y, Z int
}

// ThreadID identifies a lane's position within the execution hierarchy.
// It provides the same indexing semantics as CUDA's built-in variables
// blockIdx, threadIdx, blockDim, and gridDim, plus access to the block's
// barrier and shared memory.
type ThreadID struct {
	BlockIdx  Dim3 // Block index within the grid
	ThreadIdx Dim3 // Thread index within the block
	BlockDim  Dim3 // Dimensions of the block
	GridDim   Dim3 // Dimensions of the grid

	block *blockState
}

// Kernel represents a compute kernel that can be executed in parallel.
// Execute is called concurrently, once per lane.
type Kernel interface {
	Execute(tid ThreadID, args ...interface{})
}

// KernelFunc is a function that can be launched as a kernel.
// It receives thread identification and variadic arguments.
type KernelFunc func(tid ThreadID, args ...interface{})

// DevicePtr represents a pointer to device memory. Use Uint32 or Byte to
// access the underlying data and Offset for pointer arithmetic.
type DevicePtr struct {
	ptr    unsafe.Pointer
	size   int
	offset int
}

// Global runtime state
var (
	defaultDevice  *Device
	defaultContext *Context
	initOnce       sync.Once
)

func init() {
	initOnce.Do(func() {
		defaultDevice = &Device{
			ID:         0,
			Name:       "CPU",
			Features:   GetCPUInfo(),
			TotalMem:   getSystemMemory(),
			NumCores:   runtime.NumCPU(),
			MaxThreads: MaxThreadsPerBlock,
		}
		defaultContext = NewContext()
	})
}

// NewContext creates a context on the CPU device with its own memory pool
// and default stream.
func NewContext() *Context {
	ctx := &Context{
		device:  defaultDevice,
		streams: make(map[int]*Stream),
		memory:  NewMemoryPool(),
	}
	ctx.defaultStream = ctx.CreateStream()
	return ctx
}

// Malloc allocates device memory of the specified size in bytes.
//
// Example:
//
//	d_data, err := radixscan.Malloc(1024 * 4) // Allocate 1024 uint32s
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer radixscan.Free(d_data)
func Malloc(size int) (DevicePtr, error) {
	return defaultContext.Malloc(size)
}

// Free releases device memory allocated by Malloc.
func Free(ptr DevicePtr) error {
	return defaultContext.Free(ptr)
}

// Memcpy copies memory between host and device.
// Supports DevicePtr, []byte and []uint32.
func Memcpy(dst, src interface{}, size int, kind MemcpyKind) error {
	return defaultContext.Memcpy(dst, src, size, kind)
}

// Launch executes a kernel on the default stream without shared memory.
//
// Example:
//
//	err := radixscan.Launch(kernel, radixscan.Dim3{X: 4}, radixscan.Dim3{X: 256})
func Launch(kernel Kernel, grid, block Dim3, args ...interface{}) error {
	return defaultContext.Launch(kernel, grid, block, args...)
}

// LaunchFunc executes a kernel function
func LaunchFunc(fn KernelFunc, grid, block Dim3, args ...interface{}) error {
	return defaultContext.LaunchFunc(fn, grid, block, args...)
}

// LaunchShared executes a kernel on the default stream, giving every block
// sharedBytes of zeroed dynamic shared memory.
func LaunchShared(kernel Kernel, grid, block Dim3, sharedBytes int, args ...interface{}) error {
	return defaultContext.LaunchShared(kernel, grid, block, sharedBytes, args...)
}

// Synchronize waits for all operations on all streams of the default context
// and returns the first kernel failure recorded since the last call.
func Synchronize() error {
	return defaultContext.Synchronize()
}

// GetDevice returns the current device information.
func GetDevice() *Device {
	return defaultDevice
}

// SetDevice sets the active device (no-op for CPU)
func SetDevice(id int) error {
	if id != 0 {
		return ErrInvalidDevice
	}
	return nil
}

// GetDeviceProperties returns device properties
func GetDeviceProperties(id int) (*Device, error) {
	if id != 0 {
		return nil, NewInvalidArgError("GetDeviceProperties", fmt.Sprintf("invalid device ID: %d", id))
	}
	return defaultDevice, nil
}

// Context methods

// Device returns the device the context runs on
func (ctx *Context) Device() *Device {
	return ctx.device
}

// CreateStream creates a new execution stream
func (ctx *Context) CreateStream() *Stream {
	id := int(atomic.AddInt32(&ctx.streamID, 1))
	stream := &Stream{
		id:    id,
		tasks: make(chan func() error, 1000),
		done:  make(chan struct{}),
	}

	go stream.worker()

	ctx.mu.Lock()
	ctx.streams[id] = stream
	ctx.mu.Unlock()
	return stream
}

// DestroyStream drains stream, stops its worker and forgets it.
func (ctx *Context) DestroyStream(stream *Stream) {
	ctx.mu.Lock()
	delete(ctx.streams, stream.id)
	ctx.mu.Unlock()

	stream.Synchronize()
	close(stream.tasks)
	<-stream.done
}

// DefaultStream returns the stream used by Launch and ExclusiveScan
func (ctx *Context) DefaultStream() *Stream {
	return ctx.defaultStream
}

// Launch executes a kernel on the default stream
func (ctx *Context) Launch(kernel Kernel, grid, block Dim3, args ...interface{}) error {
	return ctx.launchInternal(kernel.Execute, grid, block, 0, ctx.defaultStream, args...)
}

// LaunchFunc executes a kernel function on the default stream
func (ctx *Context) LaunchFunc(fn KernelFunc, grid, block Dim3, args ...interface{}) error {
	return ctx.launchInternal(fn, grid, block, 0, ctx.defaultStream, args...)
}

// LaunchShared executes a kernel with dynamic shared memory on the default stream
func (ctx *Context) LaunchShared(kernel Kernel, grid, block Dim3, sharedBytes int, args ...interface{}) error {
	return ctx.launchInternal(kernel.Execute, grid, block, sharedBytes, ctx.defaultStream, args...)
}

// LaunchStream executes a kernel with dynamic shared memory on a specific stream
func (ctx *Context) LaunchStream(kernel Kernel, grid, block Dim3, sharedBytes int, stream *Stream, args ...interface{}) error {
	return ctx.launchInternal(kernel.Execute, grid, block, sharedBytes, stream, args...)
}

// Synchronize waits for all streams to complete
func (ctx *Context) Synchronize() error {
	ctx.mu.Lock()
	streams := make([]*Stream, 0, len(ctx.streams))
	for _, stream := range ctx.streams {
		streams = append(streams, stream)
	}
	ctx.mu.Unlock()

	var first error
	for _, stream := range streams {
		if err := stream.Synchronize(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Destroy drains and stops every stream of the context. The context must
// not be used afterwards.
func (ctx *Context) Destroy() {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	for id, stream := range ctx.streams {
		stream.Synchronize()
		close(stream.tasks)
		<-stream.done
		delete(ctx.streams, id)
	}
}

// Stream methods

// worker processes tasks for a stream
func (s *Stream) worker() {
	for task := range s.tasks {
		if err := task(); err != nil {
			s.mu.Lock()
			if s.err == nil {
				s.err = err
			}
			s.mu.Unlock()
		}
		s.wg.Done()
	}
	close(s.done)
}

// Synchronize waits for all tasks in the stream to complete and returns
// the first error recorded since the previous call.
func (s *Stream) Synchronize() error {
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.err
	s.err = nil
	return err
}

// Submit adds a task to the stream
func (s *Stream) Submit(task func() error) {
	s.wg.Add(1)
	s.tasks <- task
}

// Helper functions

// Global returns the global thread index
func (tid ThreadID) Global() int {
	return tid.BlockIdx.X*tid.BlockDim.X + tid.ThreadIdx.X
}

// Size returns the total number of elements
func (d Dim3) Size() int {
	n := d.normalize()
	return n.X * n.Y * n.Z
}

func (d Dim3) normalize() Dim3 {
	if d.Y == 0 {
		d.Y = 1
	}
	if d.Z == 0 {
		d.Z = 1
	}
	return d
}

// Execute implements Kernel for KernelFunc
func (fn KernelFunc) Execute(tid ThreadID, args ...interface{}) {
	fn(tid, args...)
}
