package material

import "github.com/gogpu/gputypes"

// State is the fixed-function state of a material. A nil field inherits
// the pipeline default.
type State struct {
	Blend        *gputypes.BlendState
	DepthCompare *gputypes.CompareFunction
	Cull         *gputypes.CullMode
}

func blendComponent(src, dst gputypes.BlendFactor) gputypes.BlendComponent {
	return gputypes.BlendComponent{
		SrcFactor: src,
		DstFactor: dst,
		Operation: gputypes.BlendOperationAdd,
	}
}

// BlendMode returns the blend state for a named mode.
func BlendMode(name string) (gputypes.BlendState, bool) {
	switch name {
	case "opaque":
		return gputypes.BlendState{
			Color: blendComponent(gputypes.BlendFactorOne, gputypes.BlendFactorZero),
			Alpha: blendComponent(gputypes.BlendFactorOne, gputypes.BlendFactorZero),
		}, true
	case "alpha":
		return gputypes.BlendState{
			Color: blendComponent(gputypes.BlendFactorSrcAlpha, gputypes.BlendFactorOneMinusSrcAlpha),
			Alpha: blendComponent(gputypes.BlendFactorOne, gputypes.BlendFactorOneMinusSrcAlpha),
		}, true
	case "premultiplied":
		return gputypes.BlendStatePremultiplied(), true
	case "additive":
		return gputypes.BlendState{
			Color: blendComponent(gputypes.BlendFactorSrcAlpha, gputypes.BlendFactorOne),
			Alpha: blendComponent(gputypes.BlendFactorOne, gputypes.BlendFactorOne),
		}, true
	}
	return gputypes.BlendState{}, false
}

var compareFunctions = map[string]gputypes.CompareFunction{
	"never":         gputypes.CompareFunctionNever,
	"less":          gputypes.CompareFunctionLess,
	"equal":         gputypes.CompareFunctionEqual,
	"less-equal":    gputypes.CompareFunctionLessEqual,
	"greater":       gputypes.CompareFunctionGreater,
	"not-equal":     gputypes.CompareFunctionNotEqual,
	"greater-equal": gputypes.CompareFunctionGreaterEqual,
	"always":        gputypes.CompareFunctionAlways,
}

var cullModes = map[string]gputypes.CullMode{
	"none":  gputypes.CullModeNone,
	"front": gputypes.CullModeFront,
	"back":  gputypes.CullModeBack,
}

func readState(r *configReader) State {
	var s State
	if r.has("blend") {
		name := r.str("blend", "")
		b, ok := BlendMode(name)
		if !ok {
			r.fail("blend", "unknown mode %q", name)
		}
		s.Blend = &b
	}
	if v, ok := r.cfg["depthTest"]; ok {
		var fn gputypes.CompareFunction
		switch x := v.(type) {
		case bool:
			fn = gputypes.CompareFunctionLess
			if !x {
				fn = gputypes.CompareFunctionAlways
			}
		case string:
			f, ok := compareFunctions[x]
			if !ok {
				r.fail("depthTest", "unknown compare function %q", x)
			}
			fn = f
		default:
			r.fail("depthTest", "want bool or string, got %T", v)
		}
		s.DepthCompare = &fn
	}
	if r.has("cull") {
		name := r.str("cull", "")
		c, ok := cullModes[name]
		if !ok {
			r.fail("cull", "unknown cull mode %q", name)
		}
		s.Cull = &c
	}
	return s
}
