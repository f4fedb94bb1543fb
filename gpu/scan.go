package gpu

import (
	"errors"
	"fmt"

	"github.com/LynnColeArt/radixscan"
	"github.com/openfluke/webgpu/wgpu"
)

// uniformBytes is the size of the uniform record, padded to 16 bytes
const uniformBytes = 16

// ScanPipeline holds the resources of the block scan on a WebGPU device.
// One pipeline scans one block per Run and always dispatches exactly one
// workgroup.
type ScanPipeline struct {
	Sizing radixscan.Sizing

	pipeline        *wgpu.ComputePipeline
	bindGroupLayout *wgpu.BindGroupLayout
	bindGroup       *wgpu.BindGroup

	ReducedBuffer *wgpu.Buffer
	UniformBuffer *wgpu.Buffer
	StagingBuffer *wgpu.Buffer
}

// NewScanPipeline validates the sizing and builds every GPU resource.
func NewScanPipeline(s radixscan.Sizing) (*ScanPipeline, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	c, err := GetContext()
	if err != nil {
		return nil, err
	}

	p := &ScanPipeline{Sizing: s}
	label := "Scan" + s.String()
	if err := p.AllocateBuffers(c, label); err != nil {
		p.Cleanup()
		return nil, err
	}
	if err := p.Compile(c, label); err != nil {
		p.Cleanup()
		return nil, err
	}
	if err := p.CreateBindGroup(c, label); err != nil {
		p.Cleanup()
		return nil, err
	}
	return p, nil
}

// GenerateShader returns the WGSL source of the scan for the pipeline's sizing.
func (p *ScanPipeline) GenerateShader() string {
	s := p.Sizing
	return fmt.Sprintf(`
		struct Uniforms {
			num_scan_values : u32,
		}

		@group(0) @binding(0) var<storage, read_write> reduced : array<u32>;
		@group(0) @binding(1) var<uniform> uniforms : Uniforms;

		const WG : u32 = %du;
		const ELEMENTS_PER_THREAD : u32 = %du;
		const STEPS : u32 = %du;

		var<workgroup> totals : array<u32, %d>;
		var<workgroup> tile : array<u32, %d>;

		fn tile_index(idx : u32) -> u32 {
			let row = idx %% ELEMENTS_PER_THREAD;
			let col = idx / ELEMENTS_PER_THREAD;
			return row * WG + col;
		}

		@compute @workgroup_size(%d)
		fn main(@builtin(local_invocation_index) lane : u32) {
			for (var i = 0u; i < ELEMENTS_PER_THREAD; i++) {
				let idx = lane + i * WG;
				tile[tile_index(idx)] = reduced[idx];
			}
			workgroupBarrier();

			var sum = 0u;
			for (var row = 0u; row < ELEMENTS_PER_THREAD; row++) {
				let off = row * WG + lane;
				let v = tile[off];
				tile[off] = sum;
				sum += v;
			}
			totals[lane] = sum;
			workgroupBarrier();

			for (var s = 0u; s < STEPS; s++) {
				let stride = 1u << s;
				workgroupBarrier();
				if (lane >= stride) {
					sum += totals[lane - stride];
				}
				workgroupBarrier();
				totals[lane] = sum;
			}
			workgroupBarrier();

			var base = 0u;
			if (lane > 0u) {
				base = totals[lane - 1u];
			}
			for (var row = 0u; row < ELEMENTS_PER_THREAD; row++) {
				tile[row * WG + lane] += base;
			}
			workgroupBarrier();

			for (var i = 0u; i < ELEMENTS_PER_THREAD; i++) {
				let idx = lane + i * WG;
				if (idx < uniforms.num_scan_values) {
					reduced[idx] = tile[tile_index(idx)];
				}
			}
		}
	`, s.WorkgroupSize, s.ElementsPerThread, s.Steps(),
		s.WorkgroupSize, s.BlockSize(), s.WorkgroupSize)
}

// AllocateBuffers creates the reduced, uniform and staging buffers
func (p *ScanPipeline) AllocateBuffers(c *Context, labelPrefix string) error {
	Log("Allocating buffers for %s", labelPrefix)
	var err error

	p.ReducedBuffer, err = NewUint32Buffer(c, labelPrefix+"_Reduced", make([]uint32, p.Sizing.BlockSize()),
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst|wgpu.BufferUsageCopySrc)
	if err != nil {
		return err
	}

	p.UniformBuffer, err = c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: labelPrefix + "_Uniforms",
		Size:  uniformBytes,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return radixscan.NewDeviceError("AllocateBuffers", "uniform buffer", err)
	}

	return p.resetStaging(c)
}

// Compile builds the shader module and compute pipeline with an explicit layout
func (p *ScanPipeline) Compile(c *Context, labelPrefix string) error {
	Log("Compiling scan %s", labelPrefix)
	module, err := c.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          labelPrefix + "_Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: p.GenerateShader()},
	})
	if err != nil {
		return radixscan.NewDeviceError("Compile", "shader compile", err)
	}
	defer module.Release()

	p.bindGroupLayout, err = c.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: labelPrefix + "_BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageCompute, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage}}, // Reduced
			{Binding: 1, Visibility: wgpu.ShaderStageCompute, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}}, // Uniforms
		},
	})
	if err != nil {
		return radixscan.NewDeviceError("Compile", "create bind group layout", err)
	}

	pipelineLayout, err := c.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            labelPrefix + "_Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.bindGroupLayout},
	})
	if err != nil {
		return radixscan.NewDeviceError("Compile", "create pipeline layout", err)
	}
	defer pipelineLayout.Release()

	p.pipeline, err = c.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  labelPrefix + "_Pipe",
		Layout: pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return radixscan.NewDeviceError("Compile", "pipeline create", err)
	}
	return nil
}

// CreateBindGroup binds the reduced and uniform buffers
func (p *ScanPipeline) CreateBindGroup(c *Context, labelPrefix string) error {
	var err error
	p.bindGroup, err = c.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  labelPrefix + "_Bind",
		Layout: p.bindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: p.ReducedBuffer, Size: p.ReducedBuffer.GetSize()},
			{Binding: 1, Buffer: p.UniformBuffer, Size: p.UniformBuffer.GetSize()},
		},
	})
	if err != nil {
		return radixscan.NewDeviceError("CreateBindGroup", "create bind group", err)
	}
	return nil
}

// Dispatch records the scan into pass. Exactly one workgroup is launched.
func (p *ScanPipeline) Dispatch(pass *wgpu.ComputePassEncoder) {
	Log("Dispatching scan %s", p.Sizing)
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, p.bindGroup, nil)
	pass.DispatchWorkgroups(1, 1, 1)
}

// validateRun checks the host arguments of Run without touching the device
func (p *ScanPipeline) validateRun(values []uint32, numScanValues int) error {
	block := p.Sizing.BlockSize()
	if len(values) > block {
		return radixscan.NewInvalidArgError("ScanPipeline.Run",
			fmt.Sprintf("%d values exceed block size %d", len(values), block))
	}
	if numScanValues > len(values) {
		return radixscan.NewInvalidArgError("ScanPipeline.Run",
			fmt.Sprintf("scan count %d exceeds %d values", numScanValues, len(values)))
	}
	return radixscan.ValidateScan(p.Sizing, numScanValues, block, radixscan.Dim3{X: 1})
}

// Run uploads values, scans the first numScanValues of them and returns the
// block as read back from the device. values shorter than a block are
// padded with zeros.
func (p *ScanPipeline) Run(values []uint32, numScanValues int) ([]uint32, error) {
	if err := p.validateRun(values, numScanValues); err != nil {
		return nil, err
	}
	block := p.Sizing.BlockSize()

	c, err := GetContext()
	if err != nil {
		return nil, err
	}

	padded := make([]uint32, block)
	copy(padded, values)
	c.Queue.WriteBuffer(p.ReducedBuffer, 0, wgpu.ToBytes(padded))

	uniforms := make([]uint32, uniformBytes/4)
	uniforms[0] = uint32(numScanValues)
	c.Queue.WriteBuffer(p.UniformBuffer, 0, wgpu.ToBytes(uniforms))

	enc, err := c.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, radixscan.NewDeviceError("ScanPipeline.Run", "create command encoder", err)
	}
	pass := enc.BeginComputePass(nil)
	p.Dispatch(pass)
	pass.End()
	enc.CopyBufferToBuffer(p.ReducedBuffer, 0, p.StagingBuffer, 0, p.ReducedBuffer.GetSize())

	cmd, err := enc.Finish(nil)
	if err != nil {
		return nil, radixscan.NewDeviceError("ScanPipeline.Run", "finish command", err)
	}
	c.Queue.Submit(cmd)

	out, err := readStaging(c, p.StagingBuffer, block)
	if errors.Is(err, ErrReadTimeout) {
		// the timed out map is still pending on the old staging buffer
		if resetErr := p.resetStaging(c); resetErr != nil {
			return nil, resetErr
		}
	}
	if err != nil {
		return nil, err
	}
	return out[:len(values)], nil
}

// resetStaging replaces the staging buffer with a fresh unmapped one
func (p *ScanPipeline) resetStaging(c *Context) error {
	if p.StagingBuffer != nil {
		p.StagingBuffer.Destroy()
		p.StagingBuffer = nil
	}
	var err error
	p.StagingBuffer, err = c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Scan" + p.Sizing.String() + "_Staging",
		Size:  uint64(p.Sizing.BlockSize() * 4),
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return radixscan.NewDeviceError("resetStaging", "staging buffer", err)
	}
	return nil
}

// Cleanup releases resources
func (p *ScanPipeline) Cleanup() {
	if p.ReducedBuffer != nil {
		p.ReducedBuffer.Destroy()
	}
	if p.UniformBuffer != nil {
		p.UniformBuffer.Destroy()
	}
	if p.StagingBuffer != nil {
		p.StagingBuffer.Destroy()
	}
	if p.pipeline != nil {
		p.pipeline.Release()
	}
	if p.bindGroup != nil {
		p.bindGroup.Release()
	}
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
	}
}
