package scene

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/g3d/device"
	"github.com/gogpu/g3d/event"
)

// Light configuration errors.
var (
	// ErrCubeFaces is returned when a cube shadow is not given exactly six faces.
	ErrCubeFaces = errors.New("scene: cube shadow needs exactly 6 faces")

	// ErrShadowKind is returned when a shadow does not match the light kind.
	ErrShadowKind = errors.New("scene: shadow does not match light kind")
)

// LightKind is the kind of a light source.
type LightKind uint8

const (
	Directional LightKind = iota
	Spot
	Point

	numLightKinds
)

// LightKinds lists every kind in summary order.
var LightKinds = [...]LightKind{Directional, Spot, Point}

// String returns the kind name.
func (k LightKind) String() string {
	switch k {
	case Directional:
		return "directional"
	case Spot:
		return "spot"
	case Point:
		return "point"
	default:
		return "LightKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// LightEvent identifies a Light change signal.
type LightEvent uint8

const (
	// ColorChanged fires when the light colour or intensity changes.
	ColorChanged LightEvent = iota
	// AttenuationChanged fires when attenuation or the spot cone changes.
	AttenuationChanged
	// ShadowChanged fires when shadow casting is enabled or disabled.
	ShadowChanged
	// ShadowTransformChanged fires when a shadow face transform changes.
	ShadowTransformChanged
)

// Shadow is the shadow-map state of a light: one face for directional and
// spot lights, six for point lights.
type Shadow struct {
	maps       []device.Texture
	transforms []mgl32.Mat4
}

// NewShadow creates a single-face shadow.
func NewShadow(shadowMap device.Texture) *Shadow {
	return &Shadow{
		maps:       []device.Texture{shadowMap},
		transforms: []mgl32.Mat4{mgl32.Ident4()},
	}
}

// NewCubeShadow creates a six-face shadow for a point light.
func NewCubeShadow(faces []device.Texture) (*Shadow, error) {
	if len(faces) != 6 {
		return nil, fmt.Errorf("got %d: %w", len(faces), ErrCubeFaces)
	}
	s := &Shadow{
		maps:       make([]device.Texture, 6),
		transforms: make([]mgl32.Mat4, 6),
	}
	copy(s.maps, faces)
	for i := range s.transforms {
		s.transforms[i] = mgl32.Ident4()
	}
	return s, nil
}

// Faces returns the number of shadow faces.
func (s *Shadow) Faces() int { return len(s.maps) }

// Map returns the shadow map of face i.
func (s *Shadow) Map(i int) device.Texture { return s.maps[i] }

// Transform returns the light-space transform of face i.
func (s *Shadow) Transform(i int) mgl32.Mat4 { return s.transforms[i] }

// Light is a directional, spot or point light placed by a Node.
// Directional and spot lights shine along the node's -Z axis.
type Light struct {
	kind        LightKind
	node        *Node
	color       mgl32.Vec3
	attenuation mgl32.Vec3
	shadow      *Shadow

	events event.Table[LightEvent]
}

func newLight(kind LightKind, color mgl32.Vec3) *Light {
	return &Light{
		kind:        kind,
		node:        NewNode(),
		color:       color,
		attenuation: mgl32.Vec3{1, 0, 0},
	}
}

// NewDirectional creates a directional light.
func NewDirectional(color mgl32.Vec3) *Light { return newLight(Directional, color) }

// NewSpot creates a spot light.
func NewSpot(color mgl32.Vec3) *Light { return newLight(Spot, color) }

// NewPoint creates a point light.
func NewPoint(color mgl32.Vec3) *Light { return newLight(Point, color) }

// Kind returns the light kind.
func (l *Light) Kind() LightKind { return l.kind }

// Node returns the node placing the light.
func (l *Light) Node() *Node { return l.node }

// Events returns the light's change signals.
func (l *Light) Events() *event.Table[LightEvent] { return &l.events }

// Color returns the light colour.
func (l *Light) Color() mgl32.Vec3 { return l.color }

// SetColor sets the light colour.
func (l *Light) SetColor(c mgl32.Vec3) {
	l.color = c
	l.events.Emit(ColorChanged)
}

// Attenuation returns the constant, linear and quadratic attenuation terms.
func (l *Light) Attenuation() mgl32.Vec3 { return l.attenuation }

// SetAttenuation sets the attenuation terms.
func (l *Light) SetAttenuation(a mgl32.Vec3) {
	l.attenuation = a
	l.events.Emit(AttenuationChanged)
}

// Direction returns the world-space light direction.
func (l *Light) Direction() mgl32.Vec3 { return l.node.WorldDirection() }

// Position returns the world-space light position.
func (l *Light) Position() mgl32.Vec3 { return l.node.WorldPosition() }

// Shadow returns the light's shadow, or nil.
func (l *Light) Shadow() *Shadow { return l.shadow }

// CastsShadow reports whether the light casts shadows.
func (l *Light) CastsShadow() bool { return l.shadow != nil }

// SetShadow enables shadow casting with s, or disables it when s is nil.
// Point lights take cube shadows; other kinds take single-face shadows.
func (l *Light) SetShadow(s *Shadow) error {
	if s != nil {
		want := 1
		if l.kind == Point {
			want = 6
		}
		if s.Faces() != want {
			return fmt.Errorf("%s light with %d faces: %w", l.kind, s.Faces(), ErrShadowKind)
		}
	}
	if l.shadow == s {
		return nil
	}
	l.shadow = s
	l.events.Emit(ShadowChanged)
	return nil
}

// SetShadowTransform sets the light-space transform of shadow face i.
func (l *Light) SetShadowTransform(i int, m mgl32.Mat4) {
	if l.shadow == nil {
		return
	}
	l.shadow.transforms[i] = m
	l.events.Emit(ShadowTransformChanged)
}
