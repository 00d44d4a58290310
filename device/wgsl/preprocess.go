// Package wgsl preprocesses define-prefixed WGSL and reflects the program
// variables a WGSL module declares.
//
// WGSL has no preprocessor, but permutation keys are built by prefixing
// "#define" lines to a base source. Preprocess resolves those defines and
// the conditional blocks they select:
//
//	#define USE_LIGHT
//	#define NUM_DIR_LIGHTS 2
//	#ifdef USE_LIGHT
//	@group(0) @binding(1) var<uniform> uDirLights: array<DirLight, NUM_DIR_LIGHTS>;
//	#endif
//
// Supported directives are #define, #undef, #ifdef, #ifndef, #if, #else
// and #endif. "#if NAME" is true when NAME is defined to anything but "0".
// Defined values are substituted for whole identifiers in emitted lines.
package wgsl

import (
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Preprocessor errors.
var (
	// ErrDirective is returned for malformed or unknown directives.
	ErrDirective = errors.New("wgsl: bad directive")

	// ErrUnbalanced is returned when #else/#endif do not match an open block.
	ErrUnbalanced = errors.New("wgsl: unbalanced conditional")
)

// DefaultCacheSize is the default number of preprocessed sources kept.
const DefaultCacheSize = 128

// Preprocessor resolves defines and caches the results by source text.
type Preprocessor struct {
	cache *lru.Cache[string, string]
}

// NewPreprocessor creates a preprocessor that keeps the results of the
// size most recently used sources.
func NewPreprocessor(size int) (*Preprocessor, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("wgsl: create cache: %w", err)
	}
	return &Preprocessor{cache: cache}, nil
}

// Preprocess returns source with directives resolved, using the cache.
func (p *Preprocessor) Preprocess(source string) (string, error) {
	if out, ok := p.cache.Get(source); ok {
		return out, nil
	}
	out, err := Preprocess(source)
	if err != nil {
		return "", err
	}
	p.cache.Add(source, out)
	return out, nil
}

// Len returns the number of cached results.
func (p *Preprocessor) Len() int { return p.cache.Len() }

// cond is one open conditional block.
type cond struct {
	parentActive bool
	taken        bool
	sawElse      bool
}

// Preprocess resolves directives in source without caching.
func Preprocess(source string) (string, error) {
	defines := make(map[string]string)
	var stack []cond
	active := true

	var sb strings.Builder
	sb.Grow(len(source))

	for i, line := range strings.Split(source, "\n") {
		lineNr := i + 1
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			if active {
				sb.WriteString(substitute(line, defines))
				sb.WriteByte('\n')
			}
			continue
		}

		directive, rest, _ := strings.Cut(trimmed[1:], " ")
		rest = strings.TrimSpace(rest)
		switch directive {
		case "define":
			if rest == "" {
				return "", fmt.Errorf("line %d: #define without name: %w", lineNr, ErrDirective)
			}
			if active {
				name, value, _ := strings.Cut(rest, " ")
				defines[name] = strings.TrimSpace(value)
			}
		case "undef":
			if active {
				delete(defines, rest)
			}
		case "ifdef", "ifndef", "if":
			if rest == "" {
				return "", fmt.Errorf("line %d: #%s without name: %w", lineNr, directive, ErrDirective)
			}
			value, defined := defines[rest]
			var ok bool
			switch directive {
			case "ifdef":
				ok = defined
			case "ifndef":
				ok = !defined
			default:
				ok = defined && value != "0"
			}
			stack = append(stack, cond{parentActive: active, taken: ok})
			active = active && ok
		case "else":
			if len(stack) == 0 || stack[len(stack)-1].sawElse {
				return "", fmt.Errorf("line %d: #else: %w", lineNr, ErrUnbalanced)
			}
			top := &stack[len(stack)-1]
			top.sawElse = true
			active = top.parentActive && !top.taken
		case "endif":
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: #endif: %w", lineNr, ErrUnbalanced)
			}
			active = stack[len(stack)-1].parentActive
			stack = stack[:len(stack)-1]
		default:
			return "", fmt.Errorf("line %d: unknown directive #%s: %w", lineNr, directive, ErrDirective)
		}
	}
	if len(stack) != 0 {
		return "", fmt.Errorf("%d unterminated conditional(s): %w", len(stack), ErrUnbalanced)
	}
	return sb.String(), nil
}

// substitute replaces whole identifiers that have a non-empty define value.
func substitute(line string, defines map[string]string) string {
	if len(defines) == 0 {
		return line
	}
	var sb strings.Builder
	last := 0
	i := 0
	for i < len(line) {
		if !isIdentStart(line[i]) {
			i++
			continue
		}
		start := i
		for i < len(line) && isIdentPart(line[i]) {
			i++
		}
		// Suffixes of numeric literals such as "2u" are not identifiers.
		if start > 0 && isIdentPart(line[start-1]) {
			continue
		}
		value, ok := defines[line[start:i]]
		if !ok || value == "" {
			continue
		}
		sb.WriteString(line[last:start])
		sb.WriteString(value)
		last = i
	}
	if last == 0 {
		return line
	}
	sb.WriteString(line[last:])
	return sb.String()
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
