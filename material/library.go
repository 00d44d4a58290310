package material

import (
	"fmt"
	"io"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/g3d/pool"
)

// library is the TOML layout of a material library:
//
//	[materials.floor]
//	texture = 3
//	receiveLight = true
//	receiveShadows = true
//	shadowFilter = "pcf"
type library struct {
	Materials map[string]map[string]any `toml:"materials"`
}

// DecodeLibrary reads a TOML material library into configurations keyed by
// material name. A missing "name" key defaults to the table name.
func DecodeLibrary(r io.Reader) (map[string]Config, error) {
	var lib library
	if err := toml.NewDecoder(r).Decode(&lib); err != nil {
		return nil, fmt.Errorf("material: decode library: %w", err)
	}
	out := make(map[string]Config, len(lib.Materials))
	for name, raw := range lib.Materials {
		cfg := Config(raw)
		if cfg == nil {
			cfg = Config{}
		}
		if _, ok := cfg["name"]; !ok {
			cfg["name"] = name
		}
		out[name] = cfg
	}
	return out, nil
}

// LoadLibrary decodes a library and builds every material in name order,
// so identifiers are assigned deterministically.
func LoadLibrary(ids *pool.IDSource, r io.Reader) (map[string]*Material, error) {
	cfgs, err := DecodeLibrary(r)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cfgs))
	for name := range cfgs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]*Material, len(cfgs))
	for _, name := range names {
		m, err := New(ids, cfgs[name])
		if err != nil {
			return nil, err
		}
		out[name] = m
	}
	return out, nil
}
