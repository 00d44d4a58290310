package binding

import (
	"sort"

	"github.com/gogpu/g3d/device"
)

// ProgramVariable is one input slot of a compiled program: a scalar, a
// fixed-size array or a struct. Assigning a value sets the changed flag;
// Flush hands changed values to the device and clears it.
type ProgramVariable struct {
	path    string
	desc    device.VariableDesc
	value   any
	changed bool

	elems   []*ProgramVariable
	members []*ProgramVariable
	index   map[string]int
}

func newProgramVariable(path string, desc device.VariableDesc) *ProgramVariable {
	pv := &ProgramVariable{path: path, desc: desc}
	switch desc.Kind {
	case device.KindArray:
		if desc.Elem == nil {
			break
		}
		pv.elems = make([]*ProgramVariable, desc.Len)
		for i := range pv.elems {
			pv.elems[i] = newProgramVariable(device.ElemPath(path, i), *desc.Elem)
		}
	case device.KindStruct:
		pv.members = make([]*ProgramVariable, len(desc.Members))
		pv.index = make(map[string]int, len(desc.Members))
		for i, m := range desc.Members {
			pv.members[i] = newProgramVariable(device.MemberPath(path, m.Name), m)
			pv.index[m.Name] = i
		}
	}
	return pv
}

// Path returns the full path, such as "uDirLights[1].color".
func (pv *ProgramVariable) Path() string { return pv.path }

// Kind returns the structural kind.
func (pv *ProgramVariable) Kind() device.Kind { return pv.desc.Kind }

// Type returns the shading-language type name.
func (pv *ProgramVariable) Type() string { return pv.desc.Type }

// Len returns the array length, or 0 for non-arrays.
func (pv *ProgramVariable) Len() int { return len(pv.elems) }

// Elem returns array element i.
func (pv *ProgramVariable) Elem(i int) *ProgramVariable { return pv.elems[i] }

// Members returns struct members in declaration order.
func (pv *ProgramVariable) Members() []*ProgramVariable { return pv.members }

// Member returns the struct member called name.
func (pv *ProgramVariable) Member(name string) (*ProgramVariable, bool) {
	i, ok := pv.index[name]
	if !ok {
		return nil, false
	}
	return pv.members[i], true
}

// MemberName returns the declared name of member i.
func (pv *ProgramVariable) MemberName(i int) string { return pv.desc.Members[i].Name }

// Value returns the last assigned value.
func (pv *ProgramVariable) Value() any { return pv.value }

// Set assigns v and marks the variable changed.
func (pv *ProgramVariable) Set(v any) {
	pv.value = v
	pv.changed = true
}

// Changed reports whether a value was assigned since the last flush.
func (pv *ProgramVariable) Changed() bool { return pv.changed }

// Flush calls upload for this variable and every descendant whose value
// changed, then clears their changed flags. The first upload error stops
// the flush; variables not yet flushed stay changed.
func (pv *ProgramVariable) Flush(upload func(path string, value any) error) error {
	if pv.changed {
		if err := upload(pv.path, pv.value); err != nil {
			return err
		}
		pv.changed = false
	}
	for _, e := range pv.elems {
		if err := e.Flush(upload); err != nil {
			return err
		}
	}
	for _, m := range pv.members {
		if err := m.Flush(upload); err != nil {
			return err
		}
	}
	return nil
}

// VariableSet is the set of program variables a program exposes.
type VariableSet struct {
	vars  map[string]*ProgramVariable
	names []string
}

// NewVariableSet builds program variables from device descriptions.
func NewVariableSet(descs map[string]device.VariableDesc) *VariableSet {
	s := &VariableSet{
		vars:  make(map[string]*ProgramVariable, len(descs)),
		names: make([]string, 0, len(descs)),
	}
	for name, d := range descs {
		s.vars[name] = newProgramVariable(name, d)
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)
	return s
}

// Get returns the variable called name.
func (s *VariableSet) Get(name string) (*ProgramVariable, bool) {
	pv, ok := s.vars[name]
	return pv, ok
}

// Names returns the variable names in sorted order.
func (s *VariableSet) Names() []string { return s.names }

// Len returns the number of top-level variables.
func (s *VariableSet) Len() int { return len(s.names) }

// Flush flushes every variable in name order.
func (s *VariableSet) Flush(upload func(path string, value any) error) error {
	for _, name := range s.names {
		if err := s.vars[name].Flush(upload); err != nil {
			return err
		}
	}
	return nil
}
