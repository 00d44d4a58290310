package renderer

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/g3d/binding"
	"github.com/gogpu/g3d/device"
	"github.com/gogpu/g3d/device/gpu"
	"github.com/gogpu/g3d/material"
	"github.com/gogpu/g3d/pool"
	"github.com/gogpu/g3d/resource"
	"github.com/gogpu/g3d/scene"
)

const litSource = `struct Light {
    color: vec3<f32>,
    direction: vec3<f32>,
    position: vec3<f32>,
    attenuation: vec3<f32>,
}
@group(0) @binding(0) var<uniform> uViewProjection: mat4x4<f32>;
@group(0) @binding(1) var<uniform> uWorld: mat4x4<f32>;
@group(1) @binding(0) var<uniform> uDiffuseColor: vec3<f32>;
#if NUM_DIR_LIGHTS
@group(2) @binding(0) var<uniform> uDirLights: array<Light, NUM_DIR_LIGHTS>;
#endif
@vertex fn vs_main() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }
@fragment fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }
`

// countingDevice records uploads per path.
type countingDevice struct {
	*gpu.Device
	uploads map[string]int
}

func (d *countingDevice) SetUniform(p device.ProgramHandle, path string, value any) error {
	d.uploads[path]++
	return d.Device.SetUniform(p, path, value)
}

func fakeSPIRV(string) ([]byte, error) {
	return []byte{0x03, 0x02, 0x23, 0x07}, nil
}

type fixture struct {
	dev      *countingDevice
	scene    *scene.Scene
	sun      *scene.Light
	registry *pool.Registry
	clock    time.Time
	ids      *pool.IDSource
	r        *Renderer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	g, err := gpu.New(nil, gpu.WithCompiler(fakeSPIRV))
	if err != nil {
		t.Fatalf("gpu.New: %v", err)
	}
	f := &fixture{
		dev:      &countingDevice{Device: g, uploads: make(map[string]int)},
		scene:    scene.New(scene.NewPerspectiveCamera(1, 1, 0.1, 100)),
		sun:      scene.NewDirectional(mgl32.Vec3{1, 1, 1}),
		registry: pool.NewRegistry(),
		clock:    time.Unix(1000, 0),
		ids:      pool.NewIDSource(),
	}
	f.scene.Add(f.sun)
	sources := map[string]string{"lit": litSource}
	f.r = New(f.dev, f.scene,
		WithRegistry(f.registry),
		WithManagerOptions(
			resource.WithSources(sources, sources),
			resource.WithPoolOptions(
				pool.WithRegistry(f.registry),
				pool.WithClock(func() time.Time { return f.clock }),
				pool.WithMaxLifetime(time.Second),
				pool.WithUpdateInterval(0),
			),
		),
	)
	t.Cleanup(f.r.Close)
	return f
}

func (f *fixture) material(t *testing.T, color mgl32.Vec3) *material.Material {
	t.Helper()
	m, err := material.New(f.ids, material.Config{
		"vertex":       "lit",
		"fragment":     "lit",
		"receiveLight": true,
		"color":        color,
	})
	if err != nil {
		t.Fatalf("material.New: %v", err)
	}
	return m
}

func (f *fixture) draw(t *testing.T, m *material.Material, obj scene.Transform) {
	t.Helper()
	if err := f.r.Draw(Item{Material: m, Object: obj}); err != nil {
		t.Fatalf("Draw(%s): %v", m, err)
	}
}

func colorRenderer(t *testing.T, p *resource.Program) *binding.ScalarRenderer {
	t.Helper()
	r, ok := p.Bundle().Renderer(binding.VarDirLights)
	if !ok {
		t.Fatal("no light renderer")
	}
	slot, ok := r.(*binding.ArrayRenderer).Elem(0).(*binding.StructRenderer).Field("color")
	if !ok {
		t.Fatal("no colour renderer")
	}
	return slot.(*binding.ScalarRenderer)
}

func TestEndToEnd(t *testing.T) {
	f := newFixture(t)
	x := mgl32.Vec3{0.8, 0.1, 0.1}
	a := f.material(t, x)
	b := f.material(t, x)
	obj := scene.NewNode()

	if err := f.r.AddMaterial(a); err != nil {
		t.Fatal(err)
	}
	if err := f.r.AddMaterial(b); err != nil {
		t.Fatal(err)
	}
	pa, _ := f.r.Manager().Program(a)
	pb, _ := f.r.Manager().Program(b)
	if pa != pb || pa.Refs() != 2 {
		t.Fatalf("want one shared program with 2 refs, got %p %p refs %d", pa, pb, pa.Refs())
	}
	if st := f.r.Manager().Stats(); st.Programs != 1 {
		t.Fatalf("programs = %d, want 1", st.Programs)
	}

	const colorPath = "uDirLights[0].color"
	f.draw(t, a, obj)
	f.draw(t, b, obj)
	if got := f.dev.uploads[colorPath]; got != 1 {
		t.Fatalf("initial colour uploads = %d, want 1", got)
	}

	y := mgl32.Vec3{0, 0, 1}
	f.sun.SetColor(y)
	cr := colorRenderer(t, pa)
	if !cr.Dirty() {
		t.Fatal("colour renderer not dirty after light change")
	}

	f.draw(t, a, obj)
	f.draw(t, b, obj)
	if got := f.dev.uploads[colorPath]; got != 2 {
		t.Errorf("colour uploads after change = %d, want 2", got)
	}
	if v, _ := f.dev.Uniform(pa.Handle(), colorPath); v != y {
		t.Errorf("staged colour = %v, want %v", v, y)
	}
	if cr.Dirty() {
		t.Error("colour renderer still dirty after draw")
	}

	lights, _ := f.r.Manager().Catalog().Global(binding.VarDirLights)
	color, _ := lights.(*binding.ArrayGlobal).Elem(0).(*binding.StructGlobal).Field("color")

	if !f.r.RemoveMaterial(a) {
		t.Error("RemoveMaterial(a) = false")
	}
	if pa.Refs() != 1 || f.dev.Len() != 1 {
		t.Fatalf("after first release: refs %d, device programs %d", pa.Refs(), f.dev.Len())
	}
	if !f.r.RemoveMaterial(b) {
		t.Error("RemoveMaterial(b) = false")
	}
	if st := f.r.Manager().Stats(); st.Programs != 0 || st.Shaders != 0 {
		t.Errorf("after last release: %+v", st)
	}
	if f.dev.Len() != 0 {
		t.Errorf("device programs = %d, want 0", f.dev.Len())
	}
	if color.Dependents() != 0 {
		t.Errorf("colour global dependents = %d, want 0", color.Dependents())
	}
}

func TestUngatedWorldPerObject(t *testing.T) {
	f := newFixture(t)
	m := f.material(t, mgl32.Vec3{1, 1, 1})
	first, second := scene.NewNode(), scene.NewNode()
	second.SetPosition(mgl32.Vec3{5, 0, 0})

	f.draw(t, m, first)
	f.draw(t, m, second)
	p, _ := f.r.Manager().Program(m)
	if got := f.dev.uploads[binding.VarWorld]; got != 2 {
		t.Errorf("world uploads = %d, want 2", got)
	}
	if v, _ := f.dev.Uniform(p.Handle(), binding.VarWorld); v != second.World() {
		t.Errorf("staged world = %v, want %v", v, second.World())
	}
	// Unchanged gated values are not uploaded again.
	if got := f.dev.uploads[material.VarDiffuseColor]; got != 1 {
		t.Errorf("diffuse uploads = %d, want 1", got)
	}
}

func TestBeginFrameRefreshesLitMaterials(t *testing.T) {
	f := newFixture(t)
	m := f.material(t, mgl32.Vec3{1, 1, 1})
	if err := f.r.AddMaterial(m); err != nil {
		t.Fatal(err)
	}
	if err := f.r.BeginFrame(f.clock); err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	if f.r.Stats().Refreshes != 0 {
		t.Error("refresh without a light change")
	}

	f.scene.Add(scene.NewDirectional(mgl32.Vec3{0, 1, 0}))
	if err := f.r.BeginFrame(f.clock); err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	st := f.r.Stats()
	if st.Refreshes != 1 || st.Summary.Directional != 2 {
		t.Errorf("Stats = %+v", st)
	}
	p, ok := f.r.Manager().Program(m)
	if !ok {
		t.Fatal("material unbound after refresh")
	}
	pv, ok := p.Variables().Get(binding.VarDirLights)
	if !ok || pv.Len() != 2 {
		t.Fatalf("light slots after refresh: ok %v", ok)
	}

	f.draw(t, m, scene.NewNode())
	if v, _ := f.dev.Uniform(p.Handle(), "uDirLights[1].color"); v != (mgl32.Vec3{0, 1, 0}) {
		t.Errorf("second light colour = %v", v)
	}
}

func TestBeginFrameSweeps(t *testing.T) {
	f := newFixture(t)
	m := f.material(t, mgl32.Vec3{1, 1, 1})
	f.draw(t, m, scene.NewNode())
	f.r.RemoveMaterial(m)

	// Two shaders and one program are idle.
	f.clock = f.clock.Add(2 * time.Second)
	if err := f.r.BeginFrame(f.clock); err != nil {
		t.Fatal(err)
	}
	if got := f.r.Stats().Evicted; got != 3 {
		t.Errorf("Evicted = %d, want 3", got)
	}
}

func TestDrawBindsUnaddedMaterial(t *testing.T) {
	f := newFixture(t)
	m := f.material(t, mgl32.Vec3{1, 1, 1})
	f.draw(t, m, scene.NewNode())
	f.draw(t, m, scene.NewNode())
	if refs := f.r.Manager().MaterialRefs(m); refs != 1 {
		t.Errorf("material refs = %d, want 1", refs)
	}
	if !f.r.RemoveMaterial(m) {
		t.Error("RemoveMaterial = false")
	}
}
