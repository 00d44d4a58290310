package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/g3d/event"
)

// TransformEvent identifies a Transform change signal.
type TransformEvent uint8

const (
	// TransformChanged fires when the world transform changes for any reason.
	TransformChanged TransformEvent = iota
	// PositionChanged fires when the local position is set.
	PositionChanged
	// ParentChanged fires when the node is reparented.
	ParentChanged
)

// Transform is a placed object: its world matrices and change signals.
type Transform interface {
	World() mgl32.Mat4
	WorldInvTranspose() mgl32.Mat3
	WorldPosition() mgl32.Vec3
	Events() *event.Table[TransformEvent]
}

// Node is a minimal transform hierarchy node with translation, rotation
// and scale. World matrices are cached until the node or an ancestor moves.
type Node struct {
	parent   *Node
	children []*Node

	position mgl32.Vec3
	rotation mgl32.Quat
	scale    mgl32.Vec3

	world        mgl32.Mat4
	invTranspose mgl32.Mat3
	stale        bool

	events event.Table[TransformEvent]
}

var _ Transform = (*Node)(nil)

// NewNode returns an identity node.
func NewNode() *Node {
	return &Node{
		rotation: mgl32.QuatIdent(),
		scale:    mgl32.Vec3{1, 1, 1},
		stale:    true,
	}
}

// Events returns the node's change signals.
func (n *Node) Events() *event.Table[TransformEvent] { return &n.events }

// Parent returns the parent node or nil.
func (n *Node) Parent() *Node { return n.parent }

// Position returns the local position.
func (n *Node) Position() mgl32.Vec3 { return n.position }

// SetPosition sets the local position.
func (n *Node) SetPosition(p mgl32.Vec3) {
	n.position = p
	n.events.Emit(PositionChanged)
	n.invalidate()
}

// SetRotation sets the local rotation.
func (n *Node) SetRotation(q mgl32.Quat) {
	n.rotation = q.Normalize()
	n.invalidate()
}

// SetScale sets the local scale.
func (n *Node) SetScale(s mgl32.Vec3) {
	n.scale = s
	n.invalidate()
}

// SetParent attaches n under parent. A nil parent detaches n.
func (n *Node) SetParent(parent *Node) {
	if n.parent == parent {
		return
	}
	if n.parent != nil {
		siblings := n.parent.children
		for i, c := range siblings {
			if c == n {
				n.parent.children = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
	}
	n.parent = parent
	if parent != nil {
		parent.children = append(parent.children, n)
	}
	n.events.Emit(ParentChanged)
	n.invalidate()
}

// invalidate marks n and its descendants stale and notifies listeners.
func (n *Node) invalidate() {
	n.stale = true
	n.events.Emit(TransformChanged)
	for _, c := range n.children {
		c.invalidate()
	}
}

func (n *Node) update() {
	if !n.stale {
		return
	}
	local := mgl32.Translate3D(n.position.X(), n.position.Y(), n.position.Z()).
		Mul4(n.rotation.Mat4()).
		Mul4(mgl32.Scale3D(n.scale.X(), n.scale.Y(), n.scale.Z()))
	if n.parent != nil {
		local = n.parent.World().Mul4(local)
	}
	n.world = local
	n.invTranspose = local.Mat3().Inv().Transpose()
	n.stale = false
}

// World returns the world transform.
func (n *Node) World() mgl32.Mat4 {
	n.update()
	return n.world
}

// WorldInvTranspose returns the inverse transpose of the world rotation/scale part.
func (n *Node) WorldInvTranspose() mgl32.Mat3 {
	n.update()
	return n.invTranspose
}

// WorldPosition returns the world-space translation.
func (n *Node) WorldPosition() mgl32.Vec3 {
	return n.World().Col(3).Vec3()
}

// WorldDirection returns the world-space forward (-Z) axis.
func (n *Node) WorldDirection() mgl32.Vec3 {
	return n.World().Mat3().Mul3x1(mgl32.Vec3{0, 0, -1}).Normalize()
}
