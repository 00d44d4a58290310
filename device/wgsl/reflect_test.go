package wgsl

import (
	"errors"
	"testing"

	"github.com/gogpu/g3d/device"
)

const reflectSource = `
struct DirLight {
    color: vec3<f32>,
    direction: vec3<f32>,
}

struct Fog {
    color: vec3<f32>,
    near: f32, // start
    far: f32,
}

/* camera */
@group(0) @binding(0) var<uniform> uViewProjection: mat4x4<f32>;
@group(0) @binding(1) var<uniform> uDirLights: array<DirLight, 2>;
@group(0) @binding(2) var<uniform> uFog: Fog;
@group(0) @binding(3) var<uniform> uBones: array<mat4x4<f32>, 4u>;
@group(1) @binding(0) var uDiffuseMap: texture_2d<f32>;
@group(1) @binding(1) var<storage, read> particles: array<vec4<f32>>;
// @group(2) @binding(0) var<uniform> uCommented: f32;
`

func TestReflect(t *testing.T) {
	vars, err := Reflect(reflectSource)
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	if len(vars) != 5 {
		t.Fatalf("len(vars) = %d, want 5: %v", len(vars), vars)
	}

	vp := vars["uViewProjection"]
	if vp.Kind != device.KindScalar || vp.Type != "mat4x4<f32>" {
		t.Errorf("uViewProjection = %+v", vp)
	}

	lights := vars["uDirLights"]
	if lights.Kind != device.KindArray || lights.Len != 2 {
		t.Fatalf("uDirLights = %+v", lights)
	}
	if lights.Elem.Kind != device.KindStruct || len(lights.Elem.Members) != 2 {
		t.Fatalf("uDirLights elem = %+v", lights.Elem)
	}
	if lights.Elem.Members[0].Name != "color" || lights.Elem.Members[1].Name != "direction" {
		t.Errorf("members = %+v", lights.Elem.Members)
	}

	fog := vars["uFog"]
	if fog.Kind != device.KindStruct || len(fog.Members) != 3 || fog.Members[2].Name != "far" {
		t.Errorf("uFog = %+v", fog)
	}

	bones := vars["uBones"]
	if bones.Kind != device.KindArray || bones.Len != 4 || bones.Elem.Kind != device.KindScalar {
		t.Errorf("uBones = %+v", bones)
	}

	if tex := vars["uDiffuseMap"]; tex.Kind != device.KindScalar || tex.Type != "texture_2d<f32>" {
		t.Errorf("uDiffuseMap = %+v", tex)
	}
	if _, ok := vars["particles"]; ok {
		t.Error("storage buffer reported as program variable")
	}
	if _, ok := vars["uCommented"]; ok {
		t.Error("commented declaration reported")
	}
}

func TestReflectAfterPreprocess(t *testing.T) {
	src := "#define NUM_POINT_LIGHTS 3\n" +
		"struct PointLight { color: vec3<f32>, position: vec3<f32>, attenuation: vec3<f32> }\n" +
		"@group(0) @binding(0) var<uniform> uPointLights: array<PointLight, NUM_POINT_LIGHTS>;\n"
	out, err := Preprocess(src)
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	vars, err := Reflect(out)
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	if got := vars["uPointLights"].Len; got != 3 {
		t.Errorf("uPointLights.Len = %d, want 3", got)
	}
}

func TestReflectBadLength(t *testing.T) {
	src := "@group(0) @binding(0) var<uniform> uLights: array<vec3<f32>, COUNT>;"
	if _, err := Reflect(src); !errors.Is(err, ErrArrayLength) {
		t.Errorf("err = %v, want ErrArrayLength", err)
	}
}
