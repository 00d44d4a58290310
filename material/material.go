// Package material builds materials from configuration maps and derives
// their shader permutation defines.
//
// A Material is a value-semantics feature bundle: fixed state, base source
// identifiers, a define prefix for its enabled features and an ordered list
// of custom bindings mapping material properties onto program variables.
// It does not own a program; the resource manager keeps that association.
package material

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/g3d"
	"github.com/gogpu/g3d/binding"
	"github.com/gogpu/g3d/pool"
)

// ErrNoIDSource is returned by New when no identifier source is given.
var ErrNoIDSource = errors.New("material: nil identifier source")

// DefaultSource is the base source identifier used when none is configured.
const DefaultSource = "standard"

// Program variable names of material properties.
const (
	VarDiffuseColor      = "uDiffuseColor"
	VarDiffuseMap        = "uDiffuseMap"
	VarBumpMap           = "uBumpMap"
	VarSpecularMap       = "uSpecularMap"
	VarDisplacementMap   = "uDisplacementMap"
	VarDisplacementScale = "uDisplacementScale"
	VarAOMap             = "uAOMap"
	VarEnvMap            = "uEnvMap"
	VarShininess         = "uShininess"
)

// property is one material value mirrored into a program variable.
type property struct {
	value any
	dirty bool
}

// Material is a configured feature bundle.
type Material struct {
	id       pool.ID
	name     string
	vertex   string
	fragment string
	state    State
	features featureSet
	defines  string
	lit      bool

	props    map[string]*property
	bindings []binding.Custom
}

var _ binding.MaterialSource = (*Material)(nil)

// New builds a material from cfg. Configuration errors are returned
// wrapped in ErrConfig; unknown keys are logged and ignored.
func New(ids *pool.IDSource, cfg Config) (*Material, error) {
	if ids == nil {
		return nil, ErrNoIDSource
	}
	r := &configReader{cfg: cfg}
	r.name = r.str("name", "")

	m := &Material{
		name:     r.name,
		vertex:   r.str("vertex", DefaultSource),
		fragment: r.str("fragment", DefaultSource),
		props:    make(map[string]*property),
	}
	m.state = readState(r)
	m.readFeatures(r)
	if r.err != nil {
		return nil, r.err
	}

	var unknown []string
	for k := range cfg {
		if _, ok := knownKeys[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		g3d.Logger().Warn("material: unknown configuration keys", "material", m.name, "keys", unknown)
	}

	m.id = ids.Next()
	m.defines = m.features.defines()
	m.lit = m.features.has(ReceiveLight)
	return m, nil
}

func (m *Material) readFeatures(r *configReader) {
	f := &m.features

	switch {
	case r.has("texture"):
		f.enable(DiffuseMap)
		m.addProperty(VarDiffuseMap, r.texture("texture"))
	case r.has("color"):
		f.enable(DiffuseColor)
		m.addProperty(VarDiffuseColor, r.vec3("color"))
	}
	if r.has("bumpMap") {
		f.enable(BumpMap)
		m.addProperty(VarBumpMap, r.texture("bumpMap"))
	}
	if r.has("specularMap") {
		f.enable(SpecularMap)
		m.addProperty(VarSpecularMap, r.texture("specularMap"))
	}
	if r.has("displacementMap") {
		f.enable(DisplacementMap)
		m.addProperty(VarDisplacementMap, r.texture("displacementMap"))
		m.addProperty(VarDisplacementScale, r.number("displacementScale", 1))
	}
	if r.has("envMap") {
		f.enable(EnvMap)
		m.addProperty(VarEnvMap, r.texture("envMap"))
		switch blend := r.str("envBlend", ""); blend {
		case "":
		case "multiply":
			f.enable(EnvMultiply)
		case "add":
			f.enable(EnvAdd)
		default:
			r.fail("envBlend", "unknown blend %q", blend)
		}
	} else if r.has("envBlend") {
		r.fail("envBlend", "requires envMap")
	}

	if r.boolean("skinning") {
		if !r.has("bones") {
			r.fail("bones", "required by skinning")
		}
		bones := r.integer("bones", 0)
		influences := r.integer("influences", 4)
		if bones <= 0 && r.has("bones") {
			r.fail("bones", "want a positive count, got %d", bones)
		}
		if influences < 1 || influences > 4 {
			r.fail("influences", "want 1..4, got %d", influences)
		}
		f.enable(Skinning)
		f.set(BoneCount, bones)
		f.set(BoneInfluences, influences)
	}

	lit := r.boolean("receiveLight")
	if lit {
		f.enable(ReceiveLight)
	}
	if r.boolean("phong") {
		if !lit {
			r.fail("phong", "requires receiveLight")
		}
		f.enable(Phong)
		m.addProperty(VarShininess, r.number("shininess", 30))
	}
	if r.boolean("receiveShadows") {
		if !lit {
			r.fail("receiveShadows", "requires receiveLight")
		}
		f.enable(ReceiveShadows)
		switch filter := r.str("shadowFilter", ""); filter {
		case "":
		case "pcf":
			f.enable(ShadowPCF)
		case "bilinear":
			f.enable(ShadowBilinear)
		default:
			r.fail("shadowFilter", "unknown filter %q", filter)
		}
	} else if r.has("shadowFilter") {
		r.fail("shadowFilter", "requires receiveShadows")
	}

	if r.has("aoMap") {
		f.enable(AOMap)
		m.addProperty(VarAOMap, r.texture("aoMap"))
	}
	if r.boolean("fog") {
		f.enable(Fog)
	}
	if r.boolean("uniformScale") {
		f.enable(UniformScale)
	}
	if r.boolean("skipWorldTransform") {
		f.enable(SkipWorldTransform)
	}
	if r.boolean("skipViewTransform") {
		f.enable(SkipViewTransform)
	}
}

func (m *Material) addProperty(name string, value any) {
	p := &property{value: value, dirty: true}
	m.props[name] = p
	m.bindings = append(m.bindings, binding.Custom{
		Name:  name,
		Dirty: func() bool { return p.dirty },
		Write: func(pv *binding.ProgramVariable) {
			pv.Set(p.value)
			p.dirty = false
		},
	})
}

// ID returns the material identity.
func (m *Material) ID() pool.ID { return m.id }

// Name returns the configured name.
func (m *Material) Name() string { return m.name }

// VertexSource returns the base vertex source identifier.
func (m *Material) VertexSource() string { return m.vertex }

// FragmentSource returns the base fragment source identifier.
func (m *Material) FragmentSource() string { return m.fragment }

// State returns the fixed-function state.
func (m *Material) State() State { return m.state }

// Has reports whether feature f is enabled.
func (m *Material) Has(f Feature) bool { return m.features.has(f) }

// Lit reports whether the material receives light and therefore depends
// on the scene light summary.
func (m *Material) Lit() bool { return m.lit }

// Defines returns the feature define prefix, without light counts.
func (m *Material) Defines() string { return m.defines }

// Bindings returns the custom bindings in declaration order.
func (m *Material) Bindings() []binding.Custom { return m.bindings }

// Binding returns the custom binding for the program variable name.
func (m *Material) Binding(name string) (binding.Custom, bool) {
	for _, b := range m.bindings {
		if b.Name == name {
			return b, true
		}
	}
	return binding.Custom{}, false
}

// Value returns the current value of the property bound to name.
func (m *Material) Value(name string) (any, bool) {
	p, ok := m.props[name]
	if !ok {
		return nil, false
	}
	return p.value, true
}

// Set changes the property bound to name. Properties that the material's
// features did not create cannot be added; Set reports false for them.
func (m *Material) Set(name string, value any) bool {
	p, ok := m.props[name]
	if !ok {
		return false
	}
	p.value = value
	p.dirty = true
	return true
}

// SetColor changes the diffuse colour.
func (m *Material) SetColor(c mgl32.Vec3) bool { return m.Set(VarDiffuseColor, c) }

// String returns a short description for logs.
func (m *Material) String() string {
	if m.name != "" {
		return fmt.Sprintf("material %d (%s)", m.id, m.name)
	}
	return fmt.Sprintf("material %d", m.id)
}
