// Package scene defines the scene state the binding graph reads from, and
// minimal implementations of it: a transform Node hierarchy, a perspective
// camera, lights with optional shadows, and a bone Pose.
//
// Every mutable property has a change signal in a typed event table so
// binding globals can subscribe to exactly the property they mirror.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/g3d/event"
)

// Event identifies a scene-wide change signal.
type Event uint8

const (
	// LightsChanged fires when lights are added or removed, or a light
	// starts or stops casting shadows.
	LightsChanged Event = iota
	// CameraChanged fires when the active camera is replaced.
	CameraChanged
	// AmbientChanged fires when the ambient colour changes.
	AmbientChanged
	// FogChanged fires when fog parameters change.
	FogChanged
	// SizeChanged fires when the scene size changes.
	SizeChanged
)

// LightSummary counts lights per kind and how many of each cast shadows.
type LightSummary struct {
	Directional int
	Spot        int
	Point       int

	ShadowDirectional int
	ShadowSpot        int
	ShadowPoint       int
}

// Count returns the light count for kind.
func (s LightSummary) Count(kind LightKind) int {
	switch kind {
	case Directional:
		return s.Directional
	case Spot:
		return s.Spot
	case Point:
		return s.Point
	}
	return 0
}

// Fog holds linear fog parameters.
type Fog struct {
	Color     mgl32.Vec3
	Near, Far float32
}

// State is the scene as seen by the binding graph.
type State interface {
	Summary() LightSummary
	Camera() Camera
	Lights(kind LightKind) []*Light
	Ambient() mgl32.Vec3
	Fog() Fog
	SceneSize() float32
	Events() *event.Table[Event]
}

type lightEntry struct {
	light  *Light
	shadow event.Subscription
}

// Scene is a flat collection of lights with one active camera.
type Scene struct {
	camera  Camera
	lights  [numLightKinds][]*Light
	entries map[*Light]*lightEntry
	ambient mgl32.Vec3
	fog     Fog
	size    float32

	events event.Table[Event]
}

var _ State = (*Scene)(nil)

// New creates an empty scene viewed through camera.
func New(camera Camera) *Scene {
	return &Scene{
		camera:  camera,
		entries: make(map[*Light]*lightEntry),
		size:    1,
	}
}

// Events returns the scene's change signals.
func (s *Scene) Events() *event.Table[Event] { return &s.events }

// Camera returns the active camera.
func (s *Scene) Camera() Camera { return s.camera }

// SetCamera replaces the active camera.
func (s *Scene) SetCamera(c Camera) {
	s.camera = c
	s.events.Emit(CameraChanged)
}

// Add adds a light. Adding a light twice is a no-op.
func (s *Scene) Add(l *Light) {
	if _, ok := s.entries[l]; ok {
		return
	}
	e := &lightEntry{light: l}
	e.shadow = l.Events().On(ShadowChanged, func() {
		s.events.Emit(LightsChanged)
	})
	s.entries[l] = e
	s.lights[l.kind] = append(s.lights[l.kind], l)
	s.events.Emit(LightsChanged)
}

// Remove removes a light and reports whether it was present.
func (s *Scene) Remove(l *Light) bool {
	e, ok := s.entries[l]
	if !ok {
		return false
	}
	e.shadow.Cancel()
	delete(s.entries, l)
	list := s.lights[l.kind]
	for i, x := range list {
		if x == l {
			s.lights[l.kind] = append(list[:i], list[i+1:]...)
			break
		}
	}
	s.events.Emit(LightsChanged)
	return true
}

// Lights returns the lights of kind in insertion order.
// The slice is owned by the scene.
func (s *Scene) Lights(kind LightKind) []*Light {
	if kind >= numLightKinds {
		return nil
	}
	return s.lights[kind]
}

// Summary counts the current lights.
func (s *Scene) Summary() LightSummary {
	var sum LightSummary
	shadows := func(ls []*Light) int {
		n := 0
		for _, l := range ls {
			if l.CastsShadow() {
				n++
			}
		}
		return n
	}
	sum.Directional = len(s.lights[Directional])
	sum.Spot = len(s.lights[Spot])
	sum.Point = len(s.lights[Point])
	sum.ShadowDirectional = shadows(s.lights[Directional])
	sum.ShadowSpot = shadows(s.lights[Spot])
	sum.ShadowPoint = shadows(s.lights[Point])
	return sum
}

// Ambient returns the ambient colour.
func (s *Scene) Ambient() mgl32.Vec3 { return s.ambient }

// SetAmbient sets the ambient colour.
func (s *Scene) SetAmbient(c mgl32.Vec3) {
	s.ambient = c
	s.events.Emit(AmbientChanged)
}

// Fog returns the fog parameters.
func (s *Scene) Fog() Fog { return s.fog }

// SetFog sets the fog parameters.
func (s *Scene) SetFog(f Fog) {
	s.fog = f
	s.events.Emit(FogChanged)
}

// SceneSize returns the scene extent used to normalize depth values.
func (s *Scene) SceneSize() float32 { return s.size }

// SetSceneSize sets the scene extent.
func (s *Scene) SetSceneSize(size float32) {
	s.size = size
	s.events.Emit(SizeChanged)
}
