package wgsl

import (
	"errors"
	"strings"
	"testing"
)

func TestPreprocessConditionals(t *testing.T) {
	src := strings.Join([]string{
		"#define USE_LIGHT",
		"#define NUM_DIR_LIGHTS 2",
		"#ifdef USE_LIGHT",
		"lit",
		"#else",
		"unlit",
		"#endif",
		"#ifndef USE_FOG",
		"nofog",
		"#endif",
		"#if NUM_DIR_LIGHTS",
		"count NUM_DIR_LIGHTS",
		"#endif",
	}, "\n")

	got, err := Preprocess(src)
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	want := "lit\nnofog\ncount 2\n"
	if got != want {
		t.Errorf("Preprocess = %q, want %q", got, want)
	}
}

func TestPreprocessIfZero(t *testing.T) {
	src := "#define NUM_SPOT_LIGHTS 0\n#if NUM_SPOT_LIGHTS\nspot\n#else\nnone\n#endif"
	got, err := Preprocess(src)
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	if got != "none\n" {
		t.Errorf("Preprocess = %q, want %q", got, "none\n")
	}
}

func TestPreprocessNested(t *testing.T) {
	src := strings.Join([]string{
		"#define A",
		"#ifdef A",
		"#ifdef B",
		"ab",
		"#else",
		"a",
		"#endif",
		"#else",
		"#define C 1",
		"#endif",
		"#ifdef C",
		"c",
		"#endif",
	}, "\n")
	got, err := Preprocess(src)
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	if got != "a\n" {
		t.Errorf("Preprocess = %q, want %q", got, "a\n")
	}
}

func TestPreprocessSubstitution(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"whole word", "array<Light, N>", "array<Light, 4>"},
		{"prefix untouched", "array<Light, NN>", "array<Light, NN>"},
		{"numeric suffix", "let x = 2N;", "let x = 2N;"},
		{"several", "N + N", "4 + 4"},
		{"none", "plain", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Preprocess("#define N 4\n#define FLAG\n" + tt.line)
			if err != nil {
				t.Fatalf("Preprocess: %v", err)
			}
			if got != tt.want+"\n" {
				t.Errorf("got %q, want %q", got, tt.want+"\n")
			}
		})
	}
}

func TestPreprocessUndef(t *testing.T) {
	got, err := Preprocess("#define A\n#undef A\n#ifdef A\nyes\n#endif")
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	if got != "" {
		t.Errorf("Preprocess = %q, want empty", got)
	}
}

func TestPreprocessErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"unknown directive", "#pragma once", ErrDirective},
		{"empty define", "#define", ErrDirective},
		{"empty ifdef", "#ifdef", ErrDirective},
		{"stray endif", "#endif", ErrUnbalanced},
		{"stray else", "#else", ErrUnbalanced},
		{"double else", "#ifdef A\n#else\n#else\n#endif", ErrUnbalanced},
		{"unterminated", "#ifdef A\nx", ErrUnbalanced},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Preprocess(tt.src)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPreprocessorCaches(t *testing.T) {
	p, err := NewPreprocessor(2)
	if err != nil {
		t.Fatalf("NewPreprocessor: %v", err)
	}
	for _, src := range []string{"a", "b", "a", "c"} {
		if _, err := p.Preprocess(src); err != nil {
			t.Fatalf("Preprocess(%q): %v", src, err)
		}
	}
	if got := p.Len(); got != 2 {
		t.Errorf("Len = %d, want 2", got)
	}

	if _, err := p.Preprocess("#endif"); err == nil {
		t.Error("expected error for bad source")
	}
	if got := p.Len(); got != 2 {
		t.Errorf("Len after failure = %d, want 2", got)
	}
}

func TestNewPreprocessorDefaultSize(t *testing.T) {
	p, err := NewPreprocessor(0)
	if err != nil {
		t.Fatalf("NewPreprocessor: %v", err)
	}
	if p.Len() != 0 {
		t.Errorf("Len = %d, want 0", p.Len())
	}
}
