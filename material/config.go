package material

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/g3d/device"
)

// ErrConfig is returned (wrapped) for invalid material configurations.
var ErrConfig = errors.New("material: invalid configuration")

// Config is a material configuration map, as written by hand or decoded
// from a material library. Recognized keys:
//
//	name                  string
//	vertex, fragment      base source identifiers (default "standard")
//	color                 [r, g, b] diffuse colour
//	texture               diffuse map handle (takes precedence over color)
//	bumpMap, specularMap  texture handles
//	displacementMap       texture handle; displacementScale float
//	aoMap                 texture handle
//	envMap                texture handle; envBlend "multiply" or "add"
//	skinning              bool; bones int (required); influences int (1..4, default 4)
//	receiveLight          bool; phong bool; shininess float (default 30)
//	receiveShadows        bool; shadowFilter "pcf" or "bilinear"
//	fog, uniformScale     bool
//	skipWorldTransform    bool
//	skipViewTransform     bool
//	blend                 "opaque", "alpha", "premultiplied" or "additive"
//	depthTest             compare function name, or false for "always"
//	cull                  "none", "front" or "back"
//
// Unset fixed state inherits from the pipeline defaults.
type Config map[string]any

var knownKeys = map[string]struct{}{
	"name": {}, "vertex": {}, "fragment": {},
	"color": {}, "texture": {}, "bumpMap": {}, "specularMap": {},
	"displacementMap": {}, "displacementScale": {}, "aoMap": {},
	"envMap": {}, "envBlend": {},
	"skinning": {}, "bones": {}, "influences": {},
	"receiveLight": {}, "phong": {}, "shininess": {},
	"receiveShadows": {}, "shadowFilter": {},
	"fog": {}, "uniformScale": {}, "skipWorldTransform": {}, "skipViewTransform": {},
	"blend": {}, "depthTest": {}, "cull": {},
}

// configReader reads typed values from a Config and remembers the first error.
type configReader struct {
	cfg  Config
	name string
	err  error
}

func (r *configReader) fail(key, format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf("material %q: %s: %s: %w", r.name, key, fmt.Sprintf(format, args...), ErrConfig)
	}
}

func (r *configReader) has(key string) bool {
	_, ok := r.cfg[key]
	return ok
}

func (r *configReader) boolean(key string) bool {
	v, ok := r.cfg[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		r.fail(key, "want bool, got %T", v)
	}
	return b
}

func (r *configReader) str(key, def string) string {
	v, ok := r.cfg[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		r.fail(key, "want string, got %T", v)
		return def
	}
	return s
}

func (r *configReader) integer(key string, def int) int {
	v, ok := r.cfg[key]
	if !ok {
		return def
	}
	n, ok := toInt(v)
	if !ok {
		r.fail(key, "want integer, got %v", v)
		return def
	}
	return n
}

func (r *configReader) number(key string, def float32) float32 {
	v, ok := r.cfg[key]
	if !ok {
		return def
	}
	f, ok := toFloat(v)
	if !ok {
		r.fail(key, "want number, got %v", v)
		return def
	}
	return f
}

func (r *configReader) vec3(key string) mgl32.Vec3 {
	v := r.cfg[key]
	switch c := v.(type) {
	case mgl32.Vec3:
		return c
	case []float32:
		if len(c) == 3 {
			return mgl32.Vec3{c[0], c[1], c[2]}
		}
	case []float64:
		if len(c) == 3 {
			return mgl32.Vec3{float32(c[0]), float32(c[1]), float32(c[2])}
		}
	case []any:
		if len(c) == 3 {
			var out mgl32.Vec3
			for i, x := range c {
				f, ok := toFloat(x)
				if !ok {
					r.fail(key, "component %d is %T", i, x)
					return mgl32.Vec3{}
				}
				out[i] = f
			}
			return out
		}
	}
	r.fail(key, "want 3 components, got %v", v)
	return mgl32.Vec3{}
}

func (r *configReader) texture(key string) device.Texture {
	v := r.cfg[key]
	var t device.Texture
	switch x := v.(type) {
	case device.Texture:
		t = x
	default:
		n, ok := toInt(x)
		if !ok || n < 0 {
			r.fail(key, "want texture handle, got %v", v)
			return device.NoTexture
		}
		t = device.Texture(n)
	}
	if t == device.NoTexture {
		r.fail(key, "missing texture handle")
	}
	return t
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
	}
	return 0, false
}

func toFloat(v any) (float32, bool) {
	switch n := v.(type) {
	case float32:
		return n, true
	case float64:
		return float32(n), true
	case int:
		return float32(n), true
	case int64:
		return float32(n), true
	}
	return 0, false
}
