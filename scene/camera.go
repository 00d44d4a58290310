package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/g3d/event"
)

// CameraEvent identifies a Camera change signal.
type CameraEvent uint8

const (
	// ProjectionChanged fires when projection parameters change.
	ProjectionChanged CameraEvent = iota
	// ViewChanged fires when the camera moves.
	ViewChanged
)

// Camera is the active viewpoint.
type Camera interface {
	Projection() mgl32.Mat4
	View() mgl32.Mat4
	ViewProjection() mgl32.Mat4
	WorldPosition() mgl32.Vec3
	Events() *event.Table[CameraEvent]
}

// PerspectiveCamera is a perspective camera placed by a Node.
type PerspectiveCamera struct {
	node *Node

	fovy, aspect, near, far float32

	events event.Table[CameraEvent]
}

var _ Camera = (*PerspectiveCamera)(nil)

// NewPerspectiveCamera creates a camera with vertical field of view fovy
// (radians). The camera emits ViewChanged whenever its node moves.
func NewPerspectiveCamera(fovy, aspect, near, far float32) *PerspectiveCamera {
	c := &PerspectiveCamera{
		node:   NewNode(),
		fovy:   fovy,
		aspect: aspect,
		near:   near,
		far:    far,
	}
	c.node.Events().On(TransformChanged, func() {
		c.events.Emit(ViewChanged)
	})
	return c
}

// Node returns the node placing the camera.
func (c *PerspectiveCamera) Node() *Node { return c.node }

// Events returns the camera's change signals.
func (c *PerspectiveCamera) Events() *event.Table[CameraEvent] { return &c.events }

// SetAspect sets the aspect ratio.
func (c *PerspectiveCamera) SetAspect(aspect float32) {
	c.aspect = aspect
	c.events.Emit(ProjectionChanged)
}

// SetClip sets the near and far planes.
func (c *PerspectiveCamera) SetClip(near, far float32) {
	c.near, c.far = near, far
	c.events.Emit(ProjectionChanged)
}

// Projection returns the projection matrix.
func (c *PerspectiveCamera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(c.fovy, c.aspect, c.near, c.far)
}

// View returns the inverse of the camera's world transform.
func (c *PerspectiveCamera) View() mgl32.Mat4 {
	return c.node.World().Inv()
}

// ViewProjection returns Projection × View.
func (c *PerspectiveCamera) ViewProjection() mgl32.Mat4 {
	return c.Projection().Mul4(c.View())
}

// WorldPosition returns the camera position.
func (c *PerspectiveCamera) WorldPosition() mgl32.Vec3 {
	return c.node.WorldPosition()
}
