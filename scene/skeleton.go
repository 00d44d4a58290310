package scene

import "github.com/go-gl/mathgl/mgl32"

// Skeleton supplies bone palettes for skinning. indices selects bones in
// palette order; out must be at least len(indices) long.
type Skeleton interface {
	BonesTransforms(indices []int, out []mgl32.Mat4)
	BonesInvTransposes(indices []int, out []mgl32.Mat4)
}

// Pose is a fixed set of bone matrices.
type Pose struct {
	bones []mgl32.Mat4
}

var _ Skeleton = (*Pose)(nil)

// NewPose creates a pose of n identity bones.
func NewPose(n int) *Pose {
	p := &Pose{bones: make([]mgl32.Mat4, n)}
	for i := range p.bones {
		p.bones[i] = mgl32.Ident4()
	}
	return p
}

// Len returns the bone count.
func (p *Pose) Len() int { return len(p.bones) }

// SetBone sets the skinning matrix of bone i.
func (p *Pose) SetBone(i int, m mgl32.Mat4) { p.bones[i] = m }

// BonesTransforms copies the selected bone matrices into out.
func (p *Pose) BonesTransforms(indices []int, out []mgl32.Mat4) {
	for i, b := range indices {
		out[i] = p.bones[b]
	}
}

// BonesInvTransposes copies the inverse transposes of the selected bones into out.
func (p *Pose) BonesInvTransposes(indices []int, out []mgl32.Mat4) {
	for i, b := range indices {
		out[i] = p.bones[b].Inv().Transpose()
	}
}
