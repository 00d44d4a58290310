package resource

import (
	"hash/fnv"

	"github.com/gogpu/g3d/binding"
	"github.com/gogpu/g3d/device"
	"github.com/gogpu/g3d/pool"
)

// Stage is a programmable pipeline stage.
type Stage uint8

const (
	// Vertex is the vertex stage.
	Vertex Stage = iota
	// Fragment is the fragment stage.
	Fragment
)

// String returns the stage name.
func (s Stage) String() string {
	if s == Vertex {
		return "vertex"
	}
	return "fragment"
}

// Shader is a cached shader stage, identified by its stage and full source.
type Shader struct {
	id     pool.ID
	stage  Stage
	source string
	hash   uint64
	refs   int
}

type shaderArgs struct {
	stage  Stage
	source string
}

// Init implements pool.Poolable.
func (s *Shader) Init(args shaderArgs) {
	s.stage = args.stage
	s.source = args.source
	s.hash = sourceHash(args.source)
	s.refs = 0
}

// Clean implements pool.Poolable.
func (s *Shader) Clean() {
	s.source = ""
	s.hash = 0
	s.refs = 0
}

// ID returns the shader identity.
func (s *Shader) ID() pool.ID { return s.id }

// Stage returns the shader stage.
func (s *Shader) Stage() Stage { return s.stage }

// Source returns the full source, define prefix included.
func (s *Shader) Source() string { return s.source }

// Refs returns the reference count.
func (s *Shader) Refs() int { return s.refs }

func (s *Shader) matches(stage Stage, hash uint64, source string) bool {
	return s.stage == stage && s.hash == hash && s.source == source
}

func sourceHash(source string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(source))
	return h.Sum64()
}

// programKey identifies a program by its shader pair.
type programKey struct {
	vertex, fragment pool.ID
}

// Program is a cached program linked from a vertex and a fragment shader.
// It holds one reference on each shader and owns the program variables and
// the renderer bundle that feeds them.
type Program struct {
	id       pool.ID
	vertex   *Shader
	fragment *Shader
	handle   device.ProgramHandle
	vars     *binding.VariableSet
	bundle   *binding.Bundle
	refs     int
}

type programArgs struct {
	vertex, fragment *Shader
	handle           device.ProgramHandle
}

// Init implements pool.Poolable.
func (p *Program) Init(args programArgs) {
	p.vertex = args.vertex
	p.fragment = args.fragment
	p.handle = args.handle
	p.vars = nil
	p.bundle = nil
	p.refs = 0
}

// Clean implements pool.Poolable.
func (p *Program) Clean() {
	p.vertex = nil
	p.fragment = nil
	p.handle = device.InvalidProgram
	p.vars = nil
	p.bundle = nil
	p.refs = 0
}

// ID returns the program identity.
func (p *Program) ID() pool.ID { return p.id }

// Handle returns the device program handle.
func (p *Program) Handle() device.ProgramHandle { return p.handle }

// VertexShader returns the vertex shader.
func (p *Program) VertexShader() *Shader { return p.vertex }

// FragmentShader returns the fragment shader.
func (p *Program) FragmentShader() *Shader { return p.fragment }

// Variables returns the program variables.
func (p *Program) Variables() *binding.VariableSet { return p.vars }

// Bundle returns the renderer variable bundle.
func (p *Program) Bundle() *binding.Bundle { return p.bundle }

// Refs returns the number of materials bound to the program.
func (p *Program) Refs() int { return p.refs }

func (p *Program) key() programKey {
	return programKey{vertex: p.vertex.id, fragment: p.fragment.id}
}
