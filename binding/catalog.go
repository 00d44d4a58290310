package binding

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/g3d"
	"github.com/gogpu/g3d/device"
	"github.com/gogpu/g3d/event"
	"github.com/gogpu/g3d/scene"
)

// Program variable names with a built-in source.
const (
	VarProjection        = "uProjection"
	VarView              = "uView"
	VarViewProjection    = "uViewProjection"
	VarCameraPosition    = "uCameraPosition"
	VarWorld             = "uWorld"
	VarWorldInvTranspose = "uWorldInvTranspose"

	VarDirLights   = "uDirLights"
	VarSpotLights  = "uSpotLights"
	VarPointLights = "uPointLights"

	VarDirShadowTransforms   = "uDirShadowTransforms"
	VarSpotShadowTransforms  = "uSpotShadowTransforms"
	VarPointShadowTransforms = "uPointShadowTransforms"
	VarDirShadowMaps         = "uDirShadowMaps"
	VarSpotShadowMaps        = "uSpotShadowMaps"
	VarPointShadowMaps       = "uPointShadowMaps"

	VarAmbient   = "uAmbient"
	VarFog       = "uFog"
	VarSceneSize = "uSceneSize"

	VarBones             = "uBones"
	VarBonesInvTranspose = "uBonesInvTranspose"
)

// factory pairs the global and renderer constructors of one variable.
// A nil global means the renderer is ungated and registers nowhere.
type factory struct {
	global   func(c *Catalog) Global
	renderer func(pv *ProgramVariable) (Renderer, error)
}

var factories = map[string]factory{
	VarProjection: {
		global: func(c *Catalog) Global { return c.cameraGlobal(scene.ProjectionChanged) },
		renderer: cameraRenderer(func(cam scene.Camera) any {
			return cam.Projection()
		}),
	},
	VarView: {
		global: func(c *Catalog) Global { return c.cameraGlobal(scene.ViewChanged) },
		renderer: cameraRenderer(func(cam scene.Camera) any {
			return cam.View()
		}),
	},
	VarViewProjection: {
		global: func(c *Catalog) Global {
			return c.cameraGlobal(scene.ProjectionChanged, scene.ViewChanged)
		},
		renderer: cameraRenderer(func(cam scene.Camera) any {
			return cam.ViewProjection()
		}),
	},
	VarCameraPosition: {
		global: func(c *Catalog) Global { return c.cameraGlobal(scene.ViewChanged) },
		renderer: cameraRenderer(func(cam scene.Camera) any {
			return cam.WorldPosition()
		}),
	},
	VarWorld: {
		renderer: objectRenderer(func(t scene.Transform) any { return t.World() }),
	},
	VarWorldInvTranspose: {
		renderer: objectRenderer(func(t scene.Transform) any { return t.WorldInvTranspose() }),
	},

	VarDirLights:   lightsFactory(scene.Directional),
	VarSpotLights:  lightsFactory(scene.Spot),
	VarPointLights: lightsFactory(scene.Point),

	VarDirShadowTransforms:   shadowFactory(scene.Directional, shadowTransform),
	VarSpotShadowTransforms:  shadowFactory(scene.Spot, shadowTransform),
	VarPointShadowTransforms: shadowFactory(scene.Point, shadowTransform),
	VarDirShadowMaps:         shadowFactory(scene.Directional, shadowMap),
	VarSpotShadowMaps:        shadowFactory(scene.Spot, shadowMap),
	VarPointShadowMaps:       shadowFactory(scene.Point, shadowMap),

	VarAmbient: {
		global: func(c *Catalog) Global {
			return NewScalarGlobal(c.scene.Events().Signal(scene.AmbientChanged))
		},
		renderer: sceneRenderer(func(s scene.State) any { return s.Ambient() }),
	},
	VarFog: {
		global: func(c *Catalog) Global {
			sig := c.scene.Events().Signal(scene.FogChanged)
			return NewStructGlobal().
				Add("color", NewScalarGlobal(sig)).
				Add("near", NewScalarGlobal(sig)).
				Add("far", NewScalarGlobal(sig))
		},
		renderer: fogRenderer,
	},
	VarSceneSize: {
		global: func(c *Catalog) Global {
			return NewScalarGlobal(c.scene.Events().Signal(scene.SizeChanged))
		},
		renderer: sceneRenderer(func(s scene.State) any { return s.SceneSize() }),
	},

	VarBones:             {renderer: bonesRenderer(scene.Skeleton.BonesTransforms)},
	VarBonesInvTranspose: {renderer: bonesRenderer(scene.Skeleton.BonesInvTransposes)},
}

// Catalog owns the globals of one scene and builds renderer bundles for
// programs rendered in it. There is one global per distinct source, shared
// by every program that references it; globals outlive the programs.
type Catalog struct {
	scene   scene.State
	globals map[string]Global

	onCamera []func()
	onLights []func()
	subs     []event.Subscription
}

// NewCatalog creates a catalog for s.
func NewCatalog(s scene.State) *Catalog {
	c := &Catalog{
		scene:   s,
		globals: make(map[string]Global),
	}
	c.subs = append(c.subs,
		s.Events().On(scene.CameraChanged, func() { runAll(c.onCamera) }),
		s.Events().On(scene.LightsChanged, func() { runAll(c.onLights) }),
	)
	return c
}

func runAll(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

// Known reports whether name has a built-in source.
func Known(name string) bool {
	_, ok := factories[name]
	return ok
}

// Global returns the global for the variable called name, creating it on
// first use. Variables without a global (ungated or material bindings)
// report false.
func (c *Catalog) Global(name string) (Global, bool) {
	if g, ok := c.globals[name]; ok {
		return g, true
	}
	f, ok := factories[name]
	if !ok || f.global == nil {
		return nil, false
	}
	g := f.global(c)
	c.globals[name] = g
	return g, true
}

// Len returns the number of globals created so far.
func (c *Catalog) Len() int { return len(c.globals) }

// Build creates and binds a renderer for every variable in vars. Names
// without a built-in source get a material custom renderer.
func (c *Catalog) Build(vars *VariableSet) (*Bundle, error) {
	b := &Bundle{}
	for _, name := range vars.Names() {
		pv, _ := vars.Get(name)
		f, ok := factories[name]
		if !ok {
			b.Add(name, NewCustomRenderer(pv, name))
			continue
		}
		r, err := f.renderer(pv)
		if err != nil {
			b.Release()
			return nil, fmt.Errorf("binding: %s: %w", name, err)
		}
		if g, ok := c.Global(name); ok {
			if err := Bind(r, g); err != nil {
				Unbind(r)
				b.Release()
				return nil, err
			}
		}
		b.Add(name, r)
	}
	g3d.Logger().Debug("binding: bundle built", "variables", vars.Len(), "globals", len(c.globals))
	return b, nil
}

// Close cancels every subscription held by the catalog and its globals.
func (c *Catalog) Close() {
	for i := range c.subs {
		c.subs[i].Cancel()
	}
	c.subs = nil
	for _, g := range c.globals {
		g.Close()
	}
}

// cameraGlobal watches events on the active camera and follows camera changes.
func (c *Catalog) cameraGlobal(events ...scene.CameraEvent) *ScalarGlobal {
	g := NewScalarGlobal()
	attach := func() {
		g.Unwatch()
		cam := c.scene.Camera()
		if cam == nil {
			return
		}
		for _, ev := range events {
			g.Watch(cam.Events().Signal(ev))
		}
	}
	attach()
	c.onCamera = append(c.onCamera, func() {
		attach()
		g.Invalidate()
	})
	return g
}

// lightSlot is the struct global of the i-th light of kind. It follows
// whichever light currently occupies the slot.
func (c *Catalog) lightSlot(kind scene.LightKind, i int) Global {
	color := NewScalarGlobal()
	placement := NewScalarGlobal()
	attenuation := NewScalarGlobal()
	attach := func() {
		color.Unwatch()
		placement.Unwatch()
		attenuation.Unwatch()
		lights := c.scene.Lights(kind)
		if i >= len(lights) {
			return
		}
		l := lights[i]
		color.Watch(l.Events().Signal(scene.ColorChanged))
		attenuation.Watch(l.Events().Signal(scene.AttenuationChanged))
		placement.Watch(l.Node().Events().Signal(scene.TransformChanged))
	}
	attach()
	c.onLights = append(c.onLights, func() {
		attach()
		color.Invalidate()
		placement.Invalidate()
		attenuation.Invalidate()
	})
	return NewStructGlobal().
		Add("color", color).
		Add("direction", placement).
		Add("position", placement).
		Add("attenuation", attenuation)
}

// shadowSlot is the global of shadow face j over the shadow-casting lights of kind.
func (c *Catalog) shadowSlot(kind scene.LightKind, j int) Global {
	g := NewScalarGlobal()
	attach := func() {
		g.Unwatch()
		l, _, ok := shadowFace(c.scene, kind, j)
		if !ok {
			return
		}
		g.Watch(l.Events().Signal(scene.ShadowChanged))
		g.Watch(l.Events().Signal(scene.ShadowTransformChanged))
	}
	attach()
	c.onLights = append(c.onLights, func() {
		attach()
		g.Invalidate()
	})
	return g
}

func requireKind(pv *ProgramVariable, kind device.Kind) error {
	if pv.Kind() != kind {
		return fmt.Errorf("%s is %s, want %s: %w", pv.Path(), pv.Kind(), kind, ErrShape)
	}
	return nil
}

func scalarRenderer(write WriteFunc) func(pv *ProgramVariable) (Renderer, error) {
	return func(pv *ProgramVariable) (Renderer, error) {
		if err := requireKind(pv, device.KindScalar); err != nil {
			return nil, err
		}
		return NewScalarRenderer(pv, write), nil
	}
}

func cameraRenderer(value func(scene.Camera) any) func(pv *ProgramVariable) (Renderer, error) {
	return scalarRenderer(func(fs *FrameState, pv *ProgramVariable) {
		if fs.Scene == nil || fs.Scene.Camera() == nil {
			return
		}
		pv.Set(value(fs.Scene.Camera()))
	})
}

func sceneRenderer(value func(scene.State) any) func(pv *ProgramVariable) (Renderer, error) {
	return scalarRenderer(func(fs *FrameState, pv *ProgramVariable) {
		if fs.Scene == nil {
			return
		}
		pv.Set(value(fs.Scene))
	})
}

func objectRenderer(value func(scene.Transform) any) func(pv *ProgramVariable) (Renderer, error) {
	return func(pv *ProgramVariable) (Renderer, error) {
		if err := requireKind(pv, device.KindScalar); err != nil {
			return nil, err
		}
		return NewUngatedRenderer(pv, func(fs *FrameState, pv *ProgramVariable) {
			if fs.Object == nil {
				return
			}
			pv.Set(value(fs.Object))
		}), nil
	}
}

func fogRenderer(pv *ProgramVariable) (Renderer, error) {
	if err := requireKind(pv, device.KindStruct); err != nil {
		return nil, err
	}
	r := NewStructRenderer(pv)
	for i, m := range pv.Members() {
		var value func(scene.Fog) any
		switch name := pv.MemberName(i); name {
		case "color":
			value = func(f scene.Fog) any { return f.Color }
		case "near":
			value = func(f scene.Fog) any { return f.Near }
		case "far":
			value = func(f scene.Fog) any { return f.Far }
		default:
			continue
		}
		r.Add(pv.MemberName(i), NewScalarRenderer(m, func(fs *FrameState, pv *ProgramVariable) {
			if fs.Scene == nil {
				return
			}
			pv.Set(value(fs.Scene.Fog()))
		}))
	}
	return r, nil
}

func lightValue(member string) func(l *scene.Light) any {
	switch member {
	case "color":
		return func(l *scene.Light) any { return l.Color() }
	case "direction":
		return func(l *scene.Light) any { return l.Direction() }
	case "position":
		return func(l *scene.Light) any { return l.Position() }
	case "attenuation":
		return func(l *scene.Light) any { return l.Attenuation() }
	}
	return nil
}

func liveLights(kind scene.LightKind) func(fs *FrameState) int {
	return func(fs *FrameState) int {
		if fs.Scene == nil {
			return 0
		}
		return len(fs.Scene.Lights(kind))
	}
}

func lightsFactory(kind scene.LightKind) factory {
	return factory{
		global: func(c *Catalog) Global {
			return NewArrayGlobal(func(i int) Global { return c.lightSlot(kind, i) })
		},
		renderer: func(pv *ProgramVariable) (Renderer, error) {
			if err := requireKind(pv, device.KindArray); err != nil {
				return nil, err
			}
			elems := make([]Renderer, pv.Len())
			for i := range elems {
				e := pv.Elem(i)
				if err := requireKind(e, device.KindStruct); err != nil {
					return nil, err
				}
				sr := NewStructRenderer(e)
				for j, m := range e.Members() {
					value := lightValue(e.MemberName(j))
					if value == nil {
						continue
					}
					sr.Add(e.MemberName(j), NewScalarRenderer(m, func(fs *FrameState, pv *ProgramVariable) {
						if fs.Scene == nil {
							return
						}
						lights := fs.Scene.Lights(kind)
						if i >= len(lights) {
							return
						}
						pv.Set(value(lights[i]))
					}))
				}
				elems[i] = sr
			}
			return NewArrayRenderer(pv, elems, liveLights(kind)), nil
		},
	}
}

func shadowFaces(kind scene.LightKind) int {
	if kind == scene.Point {
		return 6
	}
	return 1
}

// shadowFace resolves flat shadow index j to a shadow-casting light and face.
func shadowFace(s scene.State, kind scene.LightKind, j int) (*scene.Light, int, bool) {
	faces := shadowFaces(kind)
	n := j / faces
	for _, l := range s.Lights(kind) {
		if !l.CastsShadow() {
			continue
		}
		if n == 0 {
			return l, j % faces, true
		}
		n--
	}
	return nil, 0, false
}

func liveShadows(kind scene.LightKind) func(fs *FrameState) int {
	return func(fs *FrameState) int {
		if fs.Scene == nil {
			return 0
		}
		n := 0
		for _, l := range fs.Scene.Lights(kind) {
			if l.CastsShadow() {
				n++
			}
		}
		return n * shadowFaces(kind)
	}
}

func shadowTransform(s *scene.Shadow, face int) any { return s.Transform(face) }

func shadowMap(s *scene.Shadow, face int) any { return s.Map(face) }

func shadowFactory(kind scene.LightKind, value func(*scene.Shadow, int) any) factory {
	return factory{
		global: func(c *Catalog) Global {
			return NewArrayGlobal(func(j int) Global { return c.shadowSlot(kind, j) })
		},
		renderer: func(pv *ProgramVariable) (Renderer, error) {
			if err := requireKind(pv, device.KindArray); err != nil {
				return nil, err
			}
			elems := make([]Renderer, pv.Len())
			for j := range elems {
				elems[j] = NewScalarRenderer(pv.Elem(j), func(fs *FrameState, pv *ProgramVariable) {
					if fs.Scene == nil {
						return
					}
					l, face, ok := shadowFace(fs.Scene, kind, j)
					if !ok {
						return
					}
					pv.Set(value(l.Shadow(), face))
				})
			}
			return NewArrayRenderer(pv, elems, liveShadows(kind)), nil
		},
	}
}

// bonesRenderer uploads a bone palette as a whole array on every draw.
func bonesRenderer(fill func(scene.Skeleton, []int, []mgl32.Mat4)) func(pv *ProgramVariable) (Renderer, error) {
	return func(pv *ProgramVariable) (Renderer, error) {
		if err := requireKind(pv, device.KindArray); err != nil {
			return nil, err
		}
		buf := make([]mgl32.Mat4, pv.Len())
		return NewUngatedRenderer(pv, func(fs *FrameState, pv *ProgramVariable) {
			if fs.Skeleton == nil {
				return
			}
			n := min(len(fs.BoneIndices), len(buf))
			fill(fs.Skeleton, fs.BoneIndices[:n], buf[:n])
			pv.Set(buf[:n])
		}), nil
	}
}
