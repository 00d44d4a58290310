package material

import (
	"strconv"
	"strings"

	"github.com/gogpu/g3d/internal/cache"
	"github.com/gogpu/g3d/scene"
)

// Feature is a shader feature a material can enable. Features are emitted
// as define tokens in declaration order, which makes the define string of
// a feature set stable.
type Feature uint8

const (
	DiffuseColor Feature = iota
	DiffuseMap
	BumpMap
	SpecularMap
	DisplacementMap
	EnvMap
	EnvMultiply
	EnvAdd
	Skinning
	BoneCount
	BoneInfluences
	ReceiveLight
	Phong
	ReceiveShadows
	ShadowPCF
	ShadowBilinear
	AOMap
	Fog
	UniformScale
	SkipWorldTransform
	SkipViewTransform

	numFeatures
)

var featureTokens = [numFeatures]string{
	DiffuseColor:       "USE_DIFFUSE_COLOR",
	DiffuseMap:         "USE_DIFFUSE_MAP",
	BumpMap:            "USE_BUMP_MAP",
	SpecularMap:        "USE_SPECULAR_MAP",
	DisplacementMap:    "USE_DISPLACEMENT_MAP",
	EnvMap:             "USE_ENV_MAP",
	EnvMultiply:        "ENV_BLEND_MULTIPLY",
	EnvAdd:             "ENV_BLEND_ADD",
	Skinning:           "USE_SKINNING",
	BoneCount:          "BONE_COUNT",
	BoneInfluences:     "BONE_INFLUENCES",
	ReceiveLight:       "RECEIVE_LIGHT",
	Phong:              "USE_PHONG",
	ReceiveShadows:     "RECEIVE_SHADOWS",
	ShadowPCF:          "SHADOW_PCF",
	ShadowBilinear:     "SHADOW_BILINEAR",
	AOMap:              "USE_AO_MAP",
	Fog:                "USE_FOG",
	UniformScale:       "UNIFORM_SCALE",
	SkipWorldTransform: "SKIP_WORLD_TRANSFORM",
	SkipViewTransform:  "SKIP_VIEW_TRANSFORM",
}

// Token returns the define name of f.
func (f Feature) Token() string {
	if f >= numFeatures {
		return "FEATURE_" + strconv.Itoa(int(f))
	}
	return featureTokens[f]
}

// Light-count define names, emitted after the features of lit materials.
const (
	TokenDirLights    = "NUM_DIR_LIGHTS"
	TokenSpotLights   = "NUM_SPOT_LIGHTS"
	TokenPointLights  = "NUM_POINT_LIGHTS"
	TokenDirShadows   = "NUM_DIR_SHADOWS"
	TokenSpotShadows  = "NUM_SPOT_SHADOWS"
	TokenPointShadows = "NUM_POINT_SHADOWS"
)

// featureSet is the enabled features of a material with optional values.
type featureSet struct {
	on     [numFeatures]bool
	values [numFeatures]string
}

func (s *featureSet) enable(f Feature) { s.on[f] = true }

func (s *featureSet) set(f Feature, value int) {
	s.on[f] = true
	s.values[f] = strconv.Itoa(value)
}

func (s *featureSet) has(f Feature) bool { return s.on[f] }

// defines writes one "#define" line per enabled feature in Feature order.
func (s *featureSet) defines() string {
	var sb strings.Builder
	for f := Feature(0); f < numFeatures; f++ {
		if s.on[f] {
			writeDefine(&sb, featureTokens[f], s.values[f])
		}
	}
	return sb.String()
}

func writeDefine(sb *strings.Builder, name, value string) {
	sb.WriteString("#define ")
	sb.WriteString(name)
	if value != "" {
		sb.WriteByte(' ')
		sb.WriteString(value)
	}
	sb.WriteByte('\n')
}

// DefaultMemoSize is the number of assembled define strings kept.
const DefaultMemoSize = 256

type assembleKey struct {
	features string
	summary  scene.LightSummary
}

var assembled = cache.New[assembleKey, string](DefaultMemoSize)

// Assemble returns the define prefix of m under the light summary s.
// Materials that do not receive light ignore s. Equal feature sets and
// summaries yield byte-identical results.
func Assemble(m *Material, s scene.LightSummary) string {
	if !m.lit {
		return m.defines
	}
	return assembled.GetOrCreate(assembleKey{features: m.defines, summary: s}, func() string {
		var sb strings.Builder
		sb.WriteString(m.defines)
		writeDefine(&sb, TokenDirLights, strconv.Itoa(s.Directional))
		writeDefine(&sb, TokenSpotLights, strconv.Itoa(s.Spot))
		writeDefine(&sb, TokenPointLights, strconv.Itoa(s.Point))
		writeDefine(&sb, TokenDirShadows, strconv.Itoa(s.ShadowDirectional))
		writeDefine(&sb, TokenSpotShadows, strconv.Itoa(s.ShadowSpot))
		writeDefine(&sb, TokenPointShadows, strconv.Itoa(s.ShadowPoint))
		return sb.String()
	})
}

// AssembleStats returns statistics of the assembled-define memo.
func AssembleStats() cache.Stats { return assembled.Stats() }
