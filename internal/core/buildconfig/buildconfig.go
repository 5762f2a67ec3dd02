// Package buildconfig derives the key/value configuration handed to the external build tool.
package buildconfig

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nightconcept/nativepkg/internal/core/recipe"
)

// Config maps build tool cache keys to values. Booleans are rendered ON/OFF.
type Config map[string]string

// OnOff renders a boolean the way CMake cache entries expect.
func OnOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

// Bool interprets key as a CMake boolean. ok is false when the key is absent
// or its value is not a recognised boolean constant.
func (c Config) Bool(key string) (value, ok bool) {
	v, present := c[key]
	if !present {
		return false, false
	}
	switch strings.ToUpper(v) {
	case "ON", "TRUE", "YES", "1", "Y":
		return true, true
	case "OFF", "FALSE", "NO", "0", "N", "":
		return false, true
	default:
		return false, false
	}
}

// Keys returns the keys in sorted order.
func (c Config) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Args renders the config as sorted -DKEY=VALUE arguments.
func (c Config) Args() []string {
	args := make([]string, 0, len(c))
	for _, k := range c.Keys() {
		args = append(args, fmt.Sprintf("-D%s=%s", k, c[k]))
	}
	return args
}

// With returns a copy of c with key set to value.
func (c Config) With(key, value string) Config {
	out := make(Config, len(c)+1)
	for k, v := range c {
		out[k] = v
	}
	out[key] = value
	return out
}

// Input is everything Derive reads.
type Input struct {
	Options      recipe.OptionSet
	Dependencies []recipe.Dependency
	BuildType    string
	Policy       map[string]string
}

// FromRecipe collects the Derive input of r.
func FromRecipe(r recipe.Recipe) Input {
	return Input{
		Options:      r.Options,
		Dependencies: r.Dependencies,
		BuildType:    r.Settings.BuildType,
		Policy:       r.Policy,
	}
}

// IncludeHintKey returns the cache key carrying dep's include directory hint.
func IncludeHintKey(dep string) string {
	return strings.ToUpper(dep) + "_INCLUDE_DIR_HINTS"
}

// LibraryHintKey returns the cache key carrying dep's library directory hint.
func LibraryHintKey(dep string) string {
	return strings.ToUpper(dep) + "_LIBRARY_DIR_HINTS"
}

// Derive maps options, dependency hints and policy to a Config. It is pure:
// equal inputs always yield equal configs. Policy keys are written last so
// no option or hint can override them.
func Derive(in Input) Config {
	cfg := Config{
		"BUILD_TESTING":     OnOff(in.Options.BuildTests),
		"BUILD_EXAMPLES":    OnOff(in.Options.BuildExamples),
		"BUILD_SHARED_LIBS": OnOff(in.Options.Shared),
	}
	if in.BuildType != "" {
		cfg["CMAKE_BUILD_TYPE"] = in.BuildType
	}
	for _, dep := range in.Dependencies {
		if dep.IncludeDir != "" {
			cfg[IncludeHintKey(dep.Name)] = dep.IncludeDir
		}
		if dep.LibDir != "" {
			cfg[LibraryHintKey(dep.Name)] = dep.LibDir
		}
	}
	for k, v := range in.Policy {
		cfg[k] = v
	}
	return cfg
}
