// Package device defines the abstract GPU device the resource cache
// compiles programs on and uploads program variable values to.
//
// The device is the only place where a shading language or a GPU API is
// involved. Implementations live in sub-packages:
//   - device/gpu: WGSL compiled with naga and loaded through wgpu/hal
//
// Program variables are described structurally: a variable is a scalar
// (any non-aggregate value: number, vector, matrix, texture, sampler), a
// fixed-size array, or a struct of named members.
package device

import (
	"errors"
	"strconv"
)

// Device errors.
var (
	// ErrCompile is returned (wrapped) when a program fails to compile or link.
	// Compilation failures are fatal to the caller and never retried.
	ErrCompile = errors.New("device: program compilation failed")

	// ErrUnknownProgram is returned when a handle does not name a live program.
	ErrUnknownProgram = errors.New("device: unknown program")

	// ErrUnknownVariable is returned when uploading to a path the program does not expose.
	ErrUnknownVariable = errors.New("device: unknown program variable")
)

// ProgramHandle is an opaque handle to a compiled program.
type ProgramHandle uint64

// InvalidProgram is the zero handle.
const InvalidProgram ProgramHandle = 0

// Texture is an opaque handle to a GPU texture.
// Texture values are uploaded to texture and sampler program variables.
type Texture uint64

// NoTexture is the zero texture handle.
const NoTexture Texture = 0

// Kind is the structural kind of a program variable.
type Kind uint8

const (
	// KindScalar is any non-aggregate value.
	KindScalar Kind = iota
	// KindArray is a fixed-size array of one element description.
	KindArray
	// KindStruct is a struct of named members.
	KindStruct
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// VariableDesc describes a program variable.
type VariableDesc struct {
	// Name is the variable or member name (not the full path).
	Name string

	// Kind is the structural kind.
	Kind Kind

	// Type is the shading-language type name: the value type for scalars,
	// the struct name for structs, and the full array type for arrays.
	Type string

	// Len is the element count of arrays.
	Len int

	// Elem describes array elements. Nil for non-arrays.
	Elem *VariableDesc

	// Members lists struct members in declaration order.
	Members []VariableDesc
}

// Device compiles programs and accepts program variable values.
//
// Device implementations are driven from the render loop and need not be
// safe for concurrent use.
type Device interface {
	// CompileProgram compiles and links a program from full vertex and
	// fragment source text. Failures are returned wrapped in ErrCompile.
	CompileProgram(vertexSource, fragmentSource string) (ProgramHandle, error)

	// ProgramVariables returns the external-facing inputs of a program,
	// keyed by top-level name.
	ProgramVariables(p ProgramHandle) (map[string]VariableDesc, error)

	// SetUniform uploads value to the leaf variable at path
	// (for example "uDirLights[0].color").
	SetUniform(p ProgramHandle, path string, value any) error

	// DestroyProgram releases the program. Destroying an unknown handle is a no-op.
	DestroyProgram(p ProgramHandle)
}

// ElemPath returns the path of element i of the array at path.
func ElemPath(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

// MemberPath returns the path of member name of the struct at path.
func MemberPath(path, name string) string {
	return path + "." + name
}
