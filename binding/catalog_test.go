package binding

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/g3d/device"
	"github.com/gogpu/g3d/pool"
	"github.com/gogpu/g3d/scene"
)

func lightStruct(members ...string) device.VariableDesc {
	descs := make([]device.VariableDesc, len(members))
	for i, m := range members {
		descs[i] = scalarDesc(m, "vec3<f32>")
	}
	return structDesc("", "Light", descs...)
}

type fixture struct {
	scene   *scene.Scene
	camera  *scene.PerspectiveCamera
	sun     *scene.Light
	catalog *Catalog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cam := scene.NewPerspectiveCamera(1, 1, 0.1, 100)
	s := scene.New(cam)
	sun := scene.NewDirectional(mgl32.Vec3{1, 1, 1})
	s.Add(sun)
	c := NewCatalog(s)
	t.Cleanup(c.Close)
	return &fixture{scene: s, camera: cam, sun: sun, catalog: c}
}

func (f *fixture) build(t *testing.T, descs ...device.VariableDesc) (*VariableSet, *Bundle) {
	t.Helper()
	m := make(map[string]device.VariableDesc, len(descs))
	for _, d := range descs {
		m[d.Name] = d
	}
	vars := NewVariableSet(m)
	b, err := f.catalog.Build(vars)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return vars, b
}

func scalarRendererOf(t *testing.T, r Renderer) *ScalarRenderer {
	t.Helper()
	sr, ok := r.(*ScalarRenderer)
	if !ok {
		t.Fatalf("renderer is %T, want *ScalarRenderer", r)
	}
	return sr
}

func lightField(t *testing.T, b *Bundle, name string, i int, field string) *ScalarRenderer {
	t.Helper()
	r, ok := b.Renderer(name)
	if !ok {
		t.Fatalf("no renderer for %s", name)
	}
	f, ok := r.(*ArrayRenderer).Elem(i).(*StructRenderer).Field(field)
	if !ok {
		t.Fatalf("no field %s", field)
	}
	return scalarRendererOf(t, f)
}

func TestCatalogLightColor(t *testing.T) {
	f := newFixture(t)
	vars, b := f.build(t, arrayDesc(VarDirLights, 2, lightStruct("color", "direction")))
	fs := &FrameState{Scene: f.scene}

	b.Update(fs)
	color := lightField(t, b, VarDirLights, 0, "color")
	if color.Updates() != 1 {
		t.Fatalf("updates = %d, want 1", color.Updates())
	}
	unused := lightField(t, b, VarDirLights, 1, "color")
	if unused.Updates() != 0 {
		t.Errorf("slot without a light updated %d times", unused.Updates())
	}

	f.sun.SetColor(mgl32.Vec3{1, 0, 0})
	if !color.Dirty() {
		t.Fatal("color renderer not dirty after SetColor")
	}
	direction := lightField(t, b, VarDirLights, 0, "direction")
	if direction.Dirty() {
		t.Error("direction renderer dirtied by a colour change")
	}

	b.Update(fs)
	b.Update(fs)
	if color.Updates() != 2 {
		t.Errorf("updates = %d, want 2", color.Updates())
	}
	lights, _ := vars.Get(VarDirLights)
	pv, _ := lights.Elem(0).Member("color")
	if got := pv.Value(); got != (mgl32.Vec3{1, 0, 0}) {
		t.Errorf("color = %v", got)
	}
}

func TestCatalogLightPlacement(t *testing.T) {
	f := newFixture(t)
	_, b := f.build(t, arrayDesc(VarDirLights, 1, lightStruct("direction", "position")))
	fs := &FrameState{Scene: f.scene}
	b.Update(fs)

	f.sun.Node().SetPosition(mgl32.Vec3{0, 5, 0})
	if !lightField(t, b, VarDirLights, 0, "direction").Dirty() || !lightField(t, b, VarDirLights, 0, "position").Dirty() {
		t.Error("placement renderers not dirty after move")
	}
}

func TestCatalogLightSlotFollowsScene(t *testing.T) {
	f := newFixture(t)
	vars, b := f.build(t, arrayDesc(VarDirLights, 2, lightStruct("color")))
	fs := &FrameState{Scene: f.scene}
	b.Update(fs)

	moon := scene.NewDirectional(mgl32.Vec3{0, 0, 1})
	f.scene.Add(moon)
	f.scene.Remove(f.sun)

	slot0 := lightField(t, b, VarDirLights, 0, "color")
	if !slot0.Dirty() {
		t.Fatal("slot 0 not dirty after light composition change")
	}
	b.Update(fs)
	lights, _ := vars.Get(VarDirLights)
	pv, _ := lights.Elem(0).Member("color")
	if got := pv.Value(); got != (mgl32.Vec3{0, 0, 1}) {
		t.Errorf("slot 0 color = %v, want moon", got)
	}

	// The removed light no longer drives the slot.
	f.sun.SetColor(mgl32.Vec3{0, 1, 0})
	if slot0.Dirty() {
		t.Error("removed light still invalidates slot 0")
	}
	moon.SetColor(mgl32.Vec3{1, 1, 0})
	if !slot0.Dirty() {
		t.Error("new occupant does not invalidate slot 0")
	}
}

func TestCatalogCamera(t *testing.T) {
	f := newFixture(t)
	_, b := f.build(t,
		scalarDesc(VarProjection, "mat4x4<f32>"),
		scalarDesc(VarView, "mat4x4<f32>"),
		scalarDesc(VarViewProjection, "mat4x4<f32>"),
	)
	fs := &FrameState{Scene: f.scene}
	b.Update(fs)

	get := func(name string) *ScalarRenderer {
		r, _ := b.Renderer(name)
		return scalarRendererOf(t, r)
	}

	f.camera.Node().SetPosition(mgl32.Vec3{0, 0, 3})
	if get(VarProjection).Dirty() || !get(VarView).Dirty() || !get(VarViewProjection).Dirty() {
		t.Error("view change dirtied the wrong renderers")
	}
	b.Update(fs)

	other := scene.NewPerspectiveCamera(2, 1, 1, 10)
	f.scene.SetCamera(other)
	if !get(VarProjection).Dirty() {
		t.Fatal("camera replacement did not dirty projection")
	}
	b.Update(fs)

	f.camera.SetAspect(3)
	if get(VarProjection).Dirty() {
		t.Error("old camera still drives projection")
	}
	other.SetAspect(3)
	if !get(VarProjection).Dirty() {
		t.Error("active camera does not drive projection")
	}
}

func TestCatalogSharesGlobals(t *testing.T) {
	f := newFixture(t)
	_, b1 := f.build(t, scalarDesc(VarAmbient, "vec3<f32>"))
	_, b2 := f.build(t, scalarDesc(VarAmbient, "vec3<f32>"))

	g, ok := f.catalog.Global(VarAmbient)
	if !ok {
		t.Fatal("no ambient global")
	}
	if g.Dependents() != 2 {
		t.Fatalf("Dependents = %d, want 2", g.Dependents())
	}

	b1.Release()
	if g.Dependents() != 1 {
		t.Errorf("Dependents after release = %d, want 1", g.Dependents())
	}
	b2.Release()
	if g.Dependents() != 0 {
		t.Errorf("Dependents after both released = %d, want 0", g.Dependents())
	}
	f.scene.SetAmbient(mgl32.Vec3{0.1, 0.1, 0.1})
}

func TestCatalogUngatedObject(t *testing.T) {
	f := newFixture(t)
	vars, b := f.build(t,
		scalarDesc(VarWorld, "mat4x4<f32>"),
		scalarDesc(VarWorldInvTranspose, "mat3x3<f32>"),
	)
	if _, ok := f.catalog.Global(VarWorld); ok {
		t.Error("world transform has a global")
	}

	a, c := scene.NewNode(), scene.NewNode()
	c.SetPosition(mgl32.Vec3{1, 2, 3})
	world, _ := vars.Get(VarWorld)

	b.Update(&FrameState{Scene: f.scene, Object: a})
	b.Update(&FrameState{Scene: f.scene, Object: c})
	if got := world.Value().(mgl32.Mat4); !got.ApproxEqual(mgl32.Translate3D(1, 2, 3)) {
		t.Errorf("world = %v", got)
	}
	r, _ := b.Renderer(VarWorld)
	if n := scalarRendererOf(t, r).Updates(); n != 2 {
		t.Errorf("updates = %d, want 2", n)
	}
}

func TestCatalogFog(t *testing.T) {
	f := newFixture(t)
	vars, b := f.build(t, structDesc(VarFog, "Fog",
		scalarDesc("color", "vec3<f32>"), scalarDesc("near", "f32"), scalarDesc("far", "f32")))
	fs := &FrameState{Scene: f.scene}
	b.Update(fs)

	f.scene.SetFog(scene.Fog{Color: mgl32.Vec3{1, 1, 1}, Near: 2, Far: 40})
	b.Update(fs)

	fog, _ := vars.Get(VarFog)
	far, _ := fog.Member("far")
	if far.Value() != float32(40) {
		t.Errorf("far = %v, want 40", far.Value())
	}
}

func TestCatalogShadows(t *testing.T) {
	f := newFixture(t)
	lamp := scene.NewPoint(mgl32.Vec3{1, 1, 1})
	f.scene.Add(lamp)
	faces := []device.Texture{11, 12, 13, 14, 15, 16}
	cube, err := scene.NewCubeShadow(faces)
	if err != nil {
		t.Fatal(err)
	}
	if err := lamp.SetShadow(cube); err != nil {
		t.Fatal(err)
	}

	vars, b := f.build(t,
		arrayDesc(VarPointShadowMaps, 12, scalarDesc("", "texture_depth_2d")),
		arrayDesc(VarPointShadowTransforms, 12, scalarDesc("", "mat4x4<f32>")),
	)
	fs := &FrameState{Scene: f.scene}
	b.Update(fs)

	maps, _ := vars.Get(VarPointShadowMaps)
	if got := maps.Elem(5).Value(); got != device.Texture(16) {
		t.Errorf("face 5 map = %v, want 16", got)
	}
	if maps.Elem(6).Changed() {
		t.Error("face beyond the live shadow count was written")
	}

	lamp.SetShadowTransform(2, mgl32.Translate3D(0, 1, 0))
	r, _ := b.Renderer(VarPointShadowTransforms)
	face2 := scalarRendererOf(t, r.(*ArrayRenderer).Elem(2))
	if !face2.Dirty() {
		t.Fatal("shadow transform renderer not dirty")
	}
	b.Update(fs)
	transforms, _ := vars.Get(VarPointShadowTransforms)
	if got := transforms.Elem(2).Value().(mgl32.Mat4); !got.ApproxEqual(mgl32.Translate3D(0, 1, 0)) {
		t.Errorf("face 2 transform = %v", got)
	}
}

func TestCatalogBones(t *testing.T) {
	f := newFixture(t)
	vars, b := f.build(t, arrayDesc(VarBones, 4, scalarDesc("", "mat4x4<f32>")))

	pose := scene.NewPose(3)
	pose.SetBone(1, mgl32.Scale3D(2, 2, 2))
	b.Update(&FrameState{Scene: f.scene, Skeleton: pose, BoneIndices: []int{1, 0}})

	bones, _ := vars.Get(VarBones)
	got := bones.Value().([]mgl32.Mat4)
	if len(got) != 2 || !got[0].ApproxEqual(mgl32.Scale3D(2, 2, 2)) {
		t.Errorf("bones = %v", got)
	}
}

func TestCatalogShapeError(t *testing.T) {
	f := newFixture(t)
	vars := NewVariableSet(map[string]device.VariableDesc{
		VarAmbient:   scalarDesc(VarAmbient, "vec3<f32>"),
		VarDirLights: scalarDesc(VarDirLights, "vec3<f32>"),
	})
	_, err := f.catalog.Build(vars)
	if !errors.Is(err, ErrShape) {
		t.Fatalf("err = %v, want ErrShape", err)
	}
	if g, ok := f.catalog.Global(VarAmbient); ok && g.Dependents() != 0 {
		t.Errorf("failed build left %d dependents", g.Dependents())
	}
}

// fakeMaterial is a MaterialSource with one custom colour binding.
type fakeMaterial struct {
	id     pool.ID
	color  mgl32.Vec3
	dirty  bool
	writes int
}

func (m *fakeMaterial) ID() pool.ID { return m.id }

func (m *fakeMaterial) Binding(name string) (Custom, bool) {
	if name != "uDiffuseColor" {
		return Custom{}, false
	}
	return Custom{
		Name:  name,
		Dirty: func() bool { return m.dirty },
		Write: func(pv *ProgramVariable) {
			m.writes++
			m.dirty = false
			pv.Set(m.color)
		},
	}, true
}

func TestCatalogCustomBinding(t *testing.T) {
	f := newFixture(t)
	vars, b := f.build(t, scalarDesc("uDiffuseColor", "vec3<f32>"))
	pv, _ := vars.Get("uDiffuseColor")

	red := &fakeMaterial{id: 1, color: mgl32.Vec3{1, 0, 0}}
	blue := &fakeMaterial{id: 2, color: mgl32.Vec3{0, 0, 1}}

	b.Update(&FrameState{Scene: f.scene, Material: red})
	b.Update(&FrameState{Scene: f.scene, Material: red})
	if red.writes != 1 {
		t.Errorf("red writes = %d, want 1", red.writes)
	}

	b.Update(&FrameState{Scene: f.scene, Material: blue})
	if blue.writes != 1 || pv.Value() != blue.color {
		t.Errorf("switching material: writes = %d, value = %v", blue.writes, pv.Value())
	}

	blue.color = mgl32.Vec3{0, 1, 1}
	blue.dirty = true
	b.Update(&FrameState{Scene: f.scene, Material: blue})
	if blue.writes != 2 || pv.Value() != blue.color {
		t.Errorf("dirty material: writes = %d, value = %v", blue.writes, pv.Value())
	}
}

// A program that is never drawn keeps its last written value: invalidation
// only marks it dirty, and nothing is recomputed until the next update.
func TestStaleValueUntilNextUpdate(t *testing.T) {
	f := newFixture(t)
	vars, b := f.build(t, scalarDesc(VarAmbient, "vec3<f32>"))
	fs := &FrameState{Scene: f.scene}

	f.scene.SetAmbient(mgl32.Vec3{0.2, 0.2, 0.2})
	b.Update(fs)
	pv, _ := vars.Get(VarAmbient)
	if err := pv.Flush(func(string, any) error { return nil }); err != nil {
		t.Fatal(err)
	}

	for i := range 5 {
		f.scene.SetAmbient(mgl32.Vec3{float32(i), 0, 0})
	}
	if got := pv.Value(); got != (mgl32.Vec3{0.2, 0.2, 0.2}) {
		t.Errorf("value changed without update: %v", got)
	}
	if pv.Changed() {
		t.Error("variable flagged changed without update")
	}
	r, _ := b.Renderer(VarAmbient)
	if !scalarRendererOf(t, r).Dirty() {
		t.Error("renderer not dirty")
	}

	b.Update(fs)
	if got := pv.Value(); got != (mgl32.Vec3{4, 0, 0}) {
		t.Errorf("value after update = %v, want latest", got)
	}
}

func TestCatalogClose(t *testing.T) {
	cam := scene.NewPerspectiveCamera(1, 1, 0.1, 100)
	s := scene.New(cam)
	c := NewCatalog(s)
	if _, err := c.Build(NewVariableSet(map[string]device.VariableDesc{
		VarView: scalarDesc(VarView, "mat4x4<f32>"),
	})); err != nil {
		t.Fatal(err)
	}
	if n := cam.Events().Listeners(scene.ViewChanged); n != 1 {
		t.Fatalf("view listeners = %d, want 1", n)
	}
	c.Close()
	if n := cam.Events().Listeners(scene.ViewChanged); n != 0 {
		t.Errorf("view listeners after Close = %d", n)
	}
	if n := s.Events().Listeners(scene.LightsChanged); n != 0 {
		t.Errorf("scene listeners after Close = %d", n)
	}
}

func TestKnown(t *testing.T) {
	if !Known(VarBones) || Known("uDiffuseColor") {
		t.Error("Known misreports catalog membership")
	}
}
