package wgsl

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gogpu/g3d/device"
)

// ErrArrayLength is returned when an array length is not a constant integer.
var ErrArrayLength = errors.New("wgsl: array length is not a constant")

var (
	// structBlockRegex captures the name and body of a struct declaration.
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// fieldRegex captures a field name and type after optional attributes.
	fieldRegex = regexp.MustCompile(`^(?:@\w+(?:\([^)]*\))?\s*)*(\w+)\s*:\s*(.+)$`)

	// bindingDeclRegex captures address space, name and type from
	// "@group(0) @binding(1) var<uniform> uView: mat4x4<f32>;" and handle
	// declarations without an address space.
	bindingDeclRegex = regexp.MustCompile(`@group\(\d+\)\s*@binding\(\d+\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)

	blockCommentRegex = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineCommentRegex  = regexp.MustCompile(`//[^\n]*`)
)

// Reflect returns the program variables declared by a preprocessed WGSL
// module, keyed by variable name. Uniform buffers and handle types are
// reported; storage buffers are not program variables and are skipped.
func Reflect(source string) (map[string]device.VariableDesc, error) {
	cleaned := stripComments(source)

	structs := make(map[string][]field)
	for _, m := range structBlockRegex.FindAllStringSubmatch(cleaned, -1) {
		structs[m[1]] = parseFields(m[2])
	}

	vars := make(map[string]device.VariableDesc)
	for _, m := range bindingDeclRegex.FindAllStringSubmatch(cleaned, -1) {
		space := strings.TrimSpace(m[1])
		if strings.HasPrefix(space, "storage") {
			continue
		}
		desc, err := describe(m[2], strings.TrimSpace(m[3]), structs, 0)
		if err != nil {
			return nil, fmt.Errorf("wgsl: variable %s: %w", m[2], err)
		}
		vars[desc.Name] = desc
	}
	return vars, nil
}

type field struct {
	name string
	typ  string
}

func parseFields(body string) []field {
	parts := splitAtTopLevelCommas(body)
	fields := make([]field, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		m := fieldRegex.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		fields = append(fields, field{name: m[1], typ: strings.TrimSpace(m[2])})
	}
	return fields
}

// maxNesting bounds recursion through self-referencing struct names.
const maxNesting = 16

func describe(name, typ string, structs map[string][]field, depth int) (device.VariableDesc, error) {
	if depth > maxNesting {
		return device.VariableDesc{}, fmt.Errorf("type %s nests too deeply", typ)
	}
	desc := device.VariableDesc{Name: name, Kind: device.KindScalar, Type: typ}

	if elem, length, ok := arrayType(typ); ok {
		n, err := parseLength(length)
		if err != nil {
			return device.VariableDesc{}, err
		}
		inner, err := describe("", elem, structs, depth+1)
		if err != nil {
			return device.VariableDesc{}, err
		}
		desc.Kind = device.KindArray
		desc.Len = n
		desc.Elem = &inner
		return desc, nil
	}

	if fields, ok := structs[typ]; ok {
		desc.Kind = device.KindStruct
		desc.Members = make([]device.VariableDesc, 0, len(fields))
		for _, f := range fields {
			member, err := describe(f.name, f.typ, structs, depth+1)
			if err != nil {
				return device.VariableDesc{}, err
			}
			desc.Members = append(desc.Members, member)
		}
	}
	return desc, nil
}

// arrayType splits "array<T, N>" and "binding_array<T, N>" into T and N.
// Runtime-sized arrays have no length and are reported as scalars.
func arrayType(typ string) (elem, length string, ok bool) {
	var inner string
	switch {
	case strings.HasPrefix(typ, "array<"):
		inner = typ[len("array<"):]
	case strings.HasPrefix(typ, "binding_array<"):
		inner = typ[len("binding_array<"):]
	default:
		return "", "", false
	}
	if !strings.HasSuffix(inner, ">") {
		return "", "", false
	}
	parts := splitAtTopLevelCommas(inner[:len(inner)-1])
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

func parseLength(s string) (int, error) {
	s = strings.TrimRight(s, "ui")
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%q: %w", s, ErrArrayLength)
	}
	return n, nil
}

func stripComments(source string) string {
	return lineCommentRegex.ReplaceAllString(blockCommentRegex.ReplaceAllString(source, ""), "")
}

// splitAtTopLevelCommas splits s at commas outside angle brackets and parentheses.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(':
			depth++
		case '>', ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
