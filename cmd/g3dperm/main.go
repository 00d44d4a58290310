// Command g3dperm prints the shader permutation of every material in a
// material library under a given light composition, and validates the
// resulting programs by compiling them with naga.
//
// Usage:
//
//	g3dperm -library materials.toml -dir 2 -point 1 -dir-shadows 1
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/g3d"
	"github.com/gogpu/g3d/binding"
	"github.com/gogpu/g3d/config"
	"github.com/gogpu/g3d/device"
	"github.com/gogpu/g3d/device/gpu"
	"github.com/gogpu/g3d/material"
	"github.com/gogpu/g3d/pool"
	"github.com/gogpu/g3d/resource"
	"github.com/gogpu/g3d/scene"
)

func main() {
	var (
		library  = flag.String("library", "", "material library (TOML)")
		cfgPath  = flag.String("config", "", "engine configuration (TOML or YAML)")
		only     = flag.String("material", "", "only print this material")
		validate = flag.Bool("validate", true, "compile programs with naga")
		sum      scene.LightSummary
	)
	flag.IntVar(&sum.Directional, "dir", 1, "directional lights")
	flag.IntVar(&sum.Spot, "spot", 0, "spot lights")
	flag.IntVar(&sum.Point, "point", 0, "point lights")
	flag.IntVar(&sum.ShadowDirectional, "dir-shadows", 0, "shadow-casting directional lights")
	flag.IntVar(&sum.ShadowSpot, "spot-shadows", 0, "shadow-casting spot lights")
	flag.IntVar(&sum.ShadowPoint, "point-shadows", 0, "shadow-casting point lights")
	flag.Parse()

	if *library == "" {
		fmt.Fprintln(os.Stderr, "g3dperm: -library is required")
		flag.Usage()
		os.Exit(2)
	}
	if err := run(os.Stdout, *library, *cfgPath, *only, *validate, sum); err != nil {
		fmt.Fprintf(os.Stderr, "g3dperm: %v\n", err)
		os.Exit(1)
	}
}

func run(w io.Writer, libPath, cfgPath, only string, validate bool, sum scene.LightSummary) error {
	cfg := config.Default()
	if cfgPath != "" {
		var err error
		if cfg, err = config.Load(cfgPath); err != nil {
			return err
		}
	}
	g3d.SetLogger(cfg.NewLogger(os.Stderr))

	f, err := os.Open(libPath)
	if err != nil {
		return err
	}
	defer f.Close()

	mats, err := material.LoadLibrary(pool.NewIDSource(), f)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(mats))
	for name := range mats {
		if only == "" || name == only {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("no material matches %q", only)
	}
	sort.Strings(names)

	s, err := buildScene(sum)
	if err != nil {
		return err
	}

	var mgr *resource.Manager
	if validate {
		dev, err := gpu.New(nil, cfg.GPUOptions()...)
		if err != nil {
			return err
		}
		mgr = resource.New(dev, s, resource.WithPoolOptions(append(cfg.PoolOptions(), pool.WithRegistry(nil))...))
		defer mgr.Close()
	}

	failed := 0
	for _, name := range names {
		m := mats[name]
		fmt.Fprintf(w, "== %s\n", m)
		fmt.Fprint(w, material.Assemble(m, s.Summary()))
		if mgr == nil {
			continue
		}
		p, err := mgr.AcquireProgram(m, s.Summary())
		if err != nil {
			failed++
			fmt.Fprintf(w, "!! %v\n", err)
			continue
		}
		printVariables(w, p)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d materials failed to compile", failed, len(names))
	}
	return nil
}

// buildScene creates a scene whose light summary equals sum.
func buildScene(sum scene.LightSummary) (*scene.Scene, error) {
	s := scene.New(scene.NewPerspectiveCamera(1, 1, 0.1, 100))
	white := mgl32.Vec3{1, 1, 1}
	next := device.Texture(1)
	add := func(n, shadows int, newLight func(mgl32.Vec3) *scene.Light) error {
		for i := 0; i < n; i++ {
			l := newLight(white)
			if i < shadows {
				var sh *scene.Shadow
				if l.Kind() == scene.Point {
					faces := make([]device.Texture, 6)
					for j := range faces {
						faces[j] = next
						next++
					}
					var err error
					if sh, err = scene.NewCubeShadow(faces); err != nil {
						return err
					}
				} else {
					sh = scene.NewShadow(next)
					next++
				}
				if err := l.SetShadow(sh); err != nil {
					return err
				}
			}
			s.Add(l)
		}
		return nil
	}
	if err := add(sum.Directional, sum.ShadowDirectional, scene.NewDirectional); err != nil {
		return nil, err
	}
	if err := add(sum.Spot, sum.ShadowSpot, scene.NewSpot); err != nil {
		return nil, err
	}
	if err := add(sum.Point, sum.ShadowPoint, scene.NewPoint); err != nil {
		return nil, err
	}
	return s, nil
}

func printVariables(w io.Writer, p *resource.Program) {
	for _, name := range p.Variables().Names() {
		pv, _ := p.Variables().Get(name)
		source := "material"
		if _, ok := p.Bundle().Renderer(name); !ok {
			source = "none"
		} else if binding.Known(name) {
			source = "scene"
		}
		desc := pv.Type()
		if pv.Kind() != device.KindScalar {
			desc = pv.Kind().String() + " " + desc
		}
		fmt.Fprintf(w, "   %-24s %-40s %s\n", name, desc, source)
	}
}

