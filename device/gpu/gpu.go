// Package gpu implements device.Device on top of naga and wgpu/hal.
//
// Program sources are define-prefixed WGSL. Each stage is preprocessed
// (see device/wgsl), compiled to SPIR-V with naga and loaded as a HAL
// shader module. Program variables are reflected from the preprocessed
// source. Uniform values are staged per program and read back by the
// pipeline code that records draws.
//
// A Device created without a HAL device validates and reflects programs
// but creates no shader modules. This is what tools and tests use.
package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/g3d"
	"github.com/gogpu/g3d/device"
	"github.com/gogpu/g3d/device/wgsl"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// ErrNoHAL is returned by FromProvider when the provider does not expose HAL types.
var ErrNoHAL = errors.New("gpu: provider does not expose a HAL device")

// CompileFunc compiles WGSL source to SPIR-V bytes.
type CompileFunc func(source string) ([]byte, error)

// Option configures a Device.
type Option func(*options)

type options struct {
	compile   CompileFunc
	cacheSize int
}

// WithCompiler replaces naga.Compile.
func WithCompiler(fn CompileFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.compile = fn
		}
	}
}

// WithSourceCache sets how many preprocessed sources are cached.
func WithSourceCache(size int) Option {
	return func(o *options) {
		o.cacheSize = size
	}
}

type program struct {
	vs, fs hal.ShaderModule
	vars   map[string]device.VariableDesc
	leaves map[string]struct{}
	staged map[string]any
}

// Device compiles WGSL programs and stages their uniform values.
type Device struct {
	hal      hal.Device
	compile  CompileFunc
	pre      *wgsl.Preprocessor
	programs map[device.ProgramHandle]*program
	next     device.ProgramHandle
	uploads  uint64
}

var _ device.Device = (*Device)(nil)

// New creates a Device. halDevice may be nil.
func New(halDevice hal.Device, opts ...Option) (*Device, error) {
	o := options{compile: naga.Compile, cacheSize: wgsl.DefaultCacheSize}
	for _, opt := range opts {
		opt(&o)
	}
	pre, err := wgsl.NewPreprocessor(o.cacheSize)
	if err != nil {
		return nil, err
	}
	return &Device{
		hal:      halDevice,
		compile:  o.compile,
		pre:      pre,
		programs: make(map[device.ProgramHandle]*program),
	}, nil
}

// FromProvider creates a Device sharing the HAL device of a gpucontext
// provider. The provider must implement HalDevice() any returning a
// hal.Device, as gogpu's context does.
func FromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Device, error) {
	type halProvider interface {
		HalDevice() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	dev, ok := hp.HalDevice().(hal.Device)
	if !ok || dev == nil {
		return nil, fmt.Errorf("gpu: HalDevice is not hal.Device: %w", ErrNoHAL)
	}
	return New(dev, opts...)
}

// CompileProgram preprocesses, compiles and reflects both stages.
func (d *Device) CompileProgram(vertexSource, fragmentSource string) (device.ProgramHandle, error) {
	vs, vsVars, err := d.compileStage("vertex", vertexSource)
	if err != nil {
		return device.InvalidProgram, err
	}
	fs, fsVars, err := d.compileStage("fragment", fragmentSource)
	if err != nil {
		d.destroyModule(vs)
		return device.InvalidProgram, err
	}

	vars := vsVars
	for name, desc := range fsVars {
		if _, ok := vars[name]; !ok {
			vars[name] = desc
		}
	}
	leaves := make(map[string]struct{})
	for name, desc := range vars {
		collectLeaves(name, desc, leaves)
	}

	d.next++
	h := d.next
	d.programs[h] = &program{
		vs:     vs,
		fs:     fs,
		vars:   vars,
		leaves: leaves,
		staged: make(map[string]any),
	}
	g3d.Logger().Debug("gpu: program compiled", "handle", h, "variables", len(vars))
	return h, nil
}

func (d *Device) compileStage(stage, source string) (hal.ShaderModule, map[string]device.VariableDesc, error) {
	src, err := d.pre.Preprocess(source)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s stage: %w", device.ErrCompile, stage, err)
	}
	vars, err := wgsl.Reflect(src)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s stage: %w", device.ErrCompile, stage, err)
	}
	spirv, err := d.compile(src)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s stage: %w", device.ErrCompile, stage, err)
	}
	if d.hal == nil {
		return nil, vars, nil
	}
	module, err := d.hal.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: "g3d_" + stage,
		Source: hal.ShaderSource{
			SPIRV: spirvWords(spirv),
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s stage module: %w", device.ErrCompile, stage, err)
	}
	return module, vars, nil
}

// spirvWords converts little-endian SPIR-V bytes to 32-bit words.
func spirvWords(b []byte) []uint32 {
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = uint32(b[i*4]) |
			uint32(b[i*4+1])<<8 |
			uint32(b[i*4+2])<<16 |
			uint32(b[i*4+3])<<24
	}
	return words
}

func collectLeaves(path string, desc device.VariableDesc, out map[string]struct{}) {
	switch desc.Kind {
	case device.KindArray:
		// Arrays may also be uploaded whole (bone palettes).
		out[path] = struct{}{}
		for i := 0; i < desc.Len; i++ {
			collectLeaves(device.ElemPath(path, i), *desc.Elem, out)
		}
	case device.KindStruct:
		for _, m := range desc.Members {
			collectLeaves(device.MemberPath(path, m.Name), m, out)
		}
	default:
		out[path] = struct{}{}
	}
}

// ProgramVariables returns the reflected variables of p.
func (d *Device) ProgramVariables(p device.ProgramHandle) (map[string]device.VariableDesc, error) {
	prog, ok := d.programs[p]
	if !ok {
		return nil, fmt.Errorf("gpu: handle %d: %w", p, device.ErrUnknownProgram)
	}
	out := make(map[string]device.VariableDesc, len(prog.vars))
	for k, v := range prog.vars {
		out[k] = v
	}
	return out, nil
}

// SetUniform stages value for the leaf at path.
func (d *Device) SetUniform(p device.ProgramHandle, path string, value any) error {
	prog, ok := d.programs[p]
	if !ok {
		return fmt.Errorf("gpu: handle %d: %w", p, device.ErrUnknownProgram)
	}
	if _, ok := prog.leaves[path]; !ok {
		return fmt.Errorf("gpu: %s: %w", path, device.ErrUnknownVariable)
	}
	prog.staged[path] = value
	d.uploads++
	return nil
}

// Uniform returns the value staged for path.
func (d *Device) Uniform(p device.ProgramHandle, path string) (any, bool) {
	prog, ok := d.programs[p]
	if !ok {
		return nil, false
	}
	v, ok := prog.staged[path]
	return v, ok
}

// Modules returns the vertex and fragment shader modules of p.
// Both are nil when the Device has no HAL device.
func (d *Device) Modules(p device.ProgramHandle) (vs, fs hal.ShaderModule, ok bool) {
	prog, ok := d.programs[p]
	if !ok {
		return nil, nil, false
	}
	return prog.vs, prog.fs, true
}

// Uploads returns the number of accepted SetUniform calls.
func (d *Device) Uploads() uint64 { return d.uploads }

// Len returns the number of live programs.
func (d *Device) Len() int { return len(d.programs) }

// DestroyProgram destroys the shader modules of p.
func (d *Device) DestroyProgram(p device.ProgramHandle) {
	prog, ok := d.programs[p]
	if !ok {
		return
	}
	d.destroyModule(prog.vs)
	d.destroyModule(prog.fs)
	delete(d.programs, p)
	g3d.Logger().Debug("gpu: program destroyed", "handle", p)
}

func (d *Device) destroyModule(m hal.ShaderModule) {
	if d.hal != nil && m != nil {
		d.hal.DestroyShaderModule(m)
	}
}
