package gpu

import (
	"fmt"
	"time"

	"github.com/LynnColeArt/radixscan"
	"github.com/openfluke/webgpu/wgpu"
)

// readTimeout bounds how long a staging map may take
const readTimeout = 2 * time.Second

// ErrReadTimeout is returned when a staging map does not complete in time.
// The map stays pending, so the staging buffer must not be mapped again.
var ErrReadTimeout = radixscan.NewDeviceError("readStaging", fmt.Sprintf("map timed out after %v", readTimeout), nil)

// NewUint32Buffer creates a buffer initialized with data
func NewUint32Buffer(c *Context, label string, data []uint32, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := c.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label,
		Contents: wgpu.ToBytes(data),
		Usage:    usage,
	})
	if err != nil {
		return nil, radixscan.NewDeviceError("NewUint32Buffer", fmt.Sprintf("failed to create %s", label), err)
	}
	return buf, nil
}

// ReadUint32Buffer copies the first n counters of buffer back to the host
func ReadUint32Buffer(c *Context, buffer *wgpu.Buffer, n int) ([]uint32, error) {
	sizeBytes := uint64(n * 4)
	staging, err := c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "ReadStaging",
		Size:  sizeBytes,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, radixscan.NewDeviceError("ReadUint32Buffer", "failed to create staging buffer", err)
	}
	defer staging.Destroy()

	encoder, err := c.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, radixscan.NewDeviceError("ReadUint32Buffer", "failed to create command encoder", err)
	}
	encoder.CopyBufferToBuffer(buffer, 0, staging, 0, sizeBytes)
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, radixscan.NewDeviceError("ReadUint32Buffer", "failed to finish command", err)
	}
	c.Queue.Submit(cmd)

	return readStaging(c, staging, n)
}

// readStaging maps a MapRead buffer and copies n counters out of it
func readStaging(c *Context, staging *wgpu.Buffer, n int) ([]uint32, error) {
	sizeBytes := uint64(n * 4)
	done := make(chan struct{})
	var mapErr error

	err := staging.MapAsync(wgpu.MapModeRead, 0, sizeBytes, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			mapErr = fmt.Errorf("map status: %v", status)
		}
		close(done)
	})
	if err != nil {
		return nil, radixscan.NewDeviceError("readStaging", "MapAsync failed", err)
	}

	timeout := time.After(readTimeout)
Loop:
	for {
		c.Device.Poll(false, nil)

		select {
		case <-done:
			break Loop
		case <-timeout:
			return nil, ErrReadTimeout
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if mapErr != nil {
		return nil, radixscan.NewDeviceError("readStaging", "map failed", mapErr)
	}

	data := staging.GetMappedRange(0, uint(sizeBytes))
	if data == nil {
		return nil, radixscan.NewDeviceError("readStaging", "failed to get mapped range", nil)
	}

	out := make([]uint32, n)
	copy(out, wgpu.FromBytes[uint32](data))
	staging.Unmap()
	return out, nil
}
