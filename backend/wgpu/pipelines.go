//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// computeStage bundles one compute pipeline with its layouts.
type computeStage struct {
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline
}

// compileShader runs WGSL through naga and returns SPIR-V words. Feeding
// the driver pre-compiled SPIR-V makes a shader bug fail pipeline
// construction instead of the first dispatch.
func compileShader(wgslSource string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

func (a *Accelerator) createShaderModule(label, wgslSource string) (hal.ShaderModule, error) {
	words, err := compileShader(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	module, err := a.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: words},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s module: %w", label, err)
	}
	return module, nil
}

// createStage builds one pipeline with its bind group and pipeline
// layouts, cleaning up after itself on failure.
func (a *Accelerator) createStage(label, entry string, module hal.ShaderModule, entries []gputypes.BindGroupLayoutEntry) (computeStage, error) {
	var s computeStage
	bindLayout, err := a.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label + "_bind_layout",
		Entries: entries,
	})
	if err != nil {
		return s, fmt.Errorf("create %s bind group layout: %w", label, err)
	}
	s.bindLayout = bindLayout

	pipeLayout, err := a.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{bindLayout},
	})
	if err != nil {
		a.destroyStage(&s)
		return computeStage{}, fmt.Errorf("create %s pipeline layout: %w", label, err)
	}
	s.pipeLayout = pipeLayout

	pipeline, err := a.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   label + "_pipeline",
		Layout:  pipeLayout,
		Compute: hal.ComputeState{Module: module, EntryPoint: entry},
	})
	if err != nil {
		a.destroyStage(&s)
		return computeStage{}, fmt.Errorf("create %s compute pipeline: %w", label, err)
	}
	s.pipeline = pipeline
	return s, nil
}

// createPipelines compiles the three kernels and builds all five
// pipelines. Called with the mutex held; on error everything built so
// far is destroyed.
func (a *Accelerator) createPipelines() (err error) {
	defer func() {
		if err != nil {
			a.destroyPipelines()
		}
	}()

	// Bind group layout entry helpers, one per binding kind.
	configUniform := func(binding uint32) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		}
	}
	storageRO := func(binding uint32) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
		}
	}
	storageRW := func(binding uint32) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
		}
	}

	if a.strokeShader, err = a.createShaderModule("paint_stroke", strokeShaderSource); err != nil {
		return err
	}
	if a.viewShader, err = a.createShaderModule("paint_view", viewShaderSource); err != nil {
		return err
	}
	if a.reprojectShader, err = a.createShaderModule("paint_reproject", reprojectShaderSource); err != nil {
		return err
	}

	if a.stroke, err = a.createStage("paint_stroke", "main", a.strokeShader, []gputypes.BindGroupLayoutEntry{
		configUniform(0), storageRO(1), storageRO(2), storageRO(3), storageRW(4),
	}); err != nil {
		return err
	}
	// The two view entry points share one module, so both stages carry
	// the full binding set; each kernel ignores the binding it does not
	// read.
	viewEntries := []gputypes.BindGroupLayoutEntry{
		configUniform(0), storageRW(1), storageRW(2), storageRO(3), storageRW(4),
	}
	if a.blend, err = a.createStage("paint_blend", "blend_layer", a.viewShader, viewEntries); err != nil {
		return err
	}
	if a.resolve, err = a.createStage("paint_resolve", "resolve", a.viewShader, viewEntries); err != nil {
		return err
	}
	if a.toVolume, err = a.createStage("paint_to_volume", "to_volume", a.reprojectShader, []gputypes.BindGroupLayoutEntry{
		configUniform(0), storageRW(1), storageRW(2),
	}); err != nil {
		return err
	}
	if a.toLayers, err = a.createStage("paint_to_layers", "to_layers", a.reprojectShader, []gputypes.BindGroupLayoutEntry{
		configUniform(0), storageRW(1), storageRW(2),
	}); err != nil {
		return err
	}
	return nil
}

func (a *Accelerator) destroyStage(s *computeStage) {
	if a.device == nil {
		return
	}
	if s.pipeline != nil {
		a.device.DestroyComputePipeline(s.pipeline)
	}
	if s.pipeLayout != nil {
		a.device.DestroyPipelineLayout(s.pipeLayout)
	}
	if s.bindLayout != nil {
		a.device.DestroyBindGroupLayout(s.bindLayout)
	}
	*s = computeStage{}
}

// destroyPipelines releases every stage and shader module. Called with
// the mutex held.
func (a *Accelerator) destroyPipelines() {
	if a.device == nil {
		return
	}
	a.destroyStage(&a.stroke)
	a.destroyStage(&a.blend)
	a.destroyStage(&a.resolve)
	a.destroyStage(&a.toVolume)
	a.destroyStage(&a.toLayers)
	if a.strokeShader != nil {
		a.device.DestroyShaderModule(a.strokeShader)
		a.strokeShader = nil
	}
	if a.viewShader != nil {
		a.device.DestroyShaderModule(a.viewShader)
		a.viewShader = nil
	}
	if a.reprojectShader != nil {
		a.device.DestroyShaderModule(a.reprojectShader)
		a.reprojectShader = nil
	}
}
