// Package gpu runs the radixscan scan kernel on a WebGPU device.
package gpu

import (
	"log"
	"sync"

	"github.com/LynnColeArt/radixscan"
	"github.com/openfluke/webgpu/wgpu"
)

// Debug enables verbose logging of device setup and dispatches
var Debug = false

// Log prints when Debug is set
func Log(format string, args ...interface{}) {
	if Debug {
		log.Printf("[gpu] "+format, args...)
	}
}

// Context holds the single WebGPU context for the process
type Context struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	once     sync.Once
	initErr  error
}

var ctx Context

// GetContext returns the singleton GPU context, initializing it if necessary
func GetContext() (*Context, error) {
	ctx.once.Do(func() {
		ctx.initErr = ctx.setup()
	})

	if ctx.initErr != nil {
		return nil, ctx.initErr
	}
	if ctx.Device == nil || ctx.Queue == nil {
		return nil, radixscan.NewDeviceError("GetContext", "WebGPU device or queue not initialized", nil)
	}
	return &ctx, nil
}

// Available reports whether a WebGPU device can be used
func Available() bool {
	_, err := GetContext()
	return err == nil
}

func (c *Context) setup() error {
	c.Instance = wgpu.CreateInstance(nil)
	if c.Instance == nil {
		return radixscan.NewDeviceError("GetContext", "failed to create WebGPU instance", nil)
	}

	var lastErr error
	for _, opts := range []*wgpu.RequestAdapterOptions{
		{PowerPreference: wgpu.PowerPreferenceHighPerformance},
		{PowerPreference: wgpu.PowerPreferenceLowPower},
		nil,
	} {
		adapter, err := c.Instance.RequestAdapter(opts)
		if err == nil && adapter != nil {
			c.Adapter = adapter
			break
		}
		lastErr = err
		Log("adapter request %+v failed: %v", opts, err)
	}
	if c.Adapter == nil {
		return radixscan.NewDeviceError("GetContext", "all adapter attempts failed", lastErr)
	}

	info := c.Adapter.GetInfo()
	Log("using adapter %s (vendor %s)", info.Name, info.VendorName)

	device, err := c.Adapter.RequestDevice(nil)
	if err != nil {
		return radixscan.NewDeviceError("GetContext", "failed to request device", err)
	}
	c.Device = device
	c.Queue = device.GetQueue()
	return nil
}
