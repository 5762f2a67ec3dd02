// Package patch applies ordered text substitutions to files in an upstream source tree.
//
// Files are treated as opaque text with known anchor strings; there is no
// structural parsing. A rule whose predicate does not match, or whose search
// text is absent, leaves the file untouched and is reported as skipped.
package patch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFile is the build descriptor a rule targets when Rule.File is empty.
const DefaultFile = "CMakeLists.txt"

// Env is the part of the build environment rule predicates are evaluated against.
type Env struct {
	HostOS      string
	CompilerStd string
}

// Predicate decides whether a rule applies in an environment.
type Predicate func(Env) bool

// Always matches every environment.
func Always() Predicate {
	return func(Env) bool { return true }
}

// HostOS matches when the host OS equals os (case-insensitive).
func HostOS(os string) Predicate {
	return func(e Env) bool { return strings.EqualFold(e.HostOS, os) }
}

// CompilerStd matches when the compiler standard equals std, ignoring a "gnu" prefix.
func CompilerStd(std string) Predicate {
	return func(e Env) bool {
		return strings.TrimPrefix(strings.ToLower(e.CompilerStd), "gnu") == strings.ToLower(std)
	}
}

// Rule is one search/replace substitution. Every occurrence of Search is replaced.
type Rule struct {
	Name    string
	File    string // relative to the source directory; DefaultFile when empty
	Search  string
	Replace string
	// Unless skips the rule when the file already contains this text. Rules whose
	// replacement still contains the search text need it to stay idempotent.
	Unless string
	When   Predicate
}

// Target returns the file the rule edits, relative to the source directory.
func (r Rule) Target() string {
	if r.File == "" {
		return DefaultFile
	}
	return r.File
}

// Outcome says what happened to a rule.
type Outcome string

const (
	Applied               Outcome = "applied"
	SkippedPredicate      Outcome = "predicate-mismatch"
	SkippedNotFound       Outcome = "search-not-found"
	SkippedAlreadyApplied Outcome = "already-applied"
)

// Result records the outcome of one rule.
type Result struct {
	Rule    string
	File    string
	Outcome Outcome
}

// Apply runs rules in order against files under sourceDir.
// Only I/O failures are errors.
func Apply(sourceDir string, rules []Rule, env Env) ([]Result, error) {
	results := make([]Result, 0, len(rules))
	for _, rule := range rules {
		res := Result{Rule: rule.Name, File: rule.Target()}

		if rule.When != nil && !rule.When(env) {
			res.Outcome = SkippedPredicate
			results = append(results, res)
			slog.Debug("patch skipped", "rule", rule.Name, "reason", res.Outcome)
			continue
		}

		path := filepath.Join(sourceDir, filepath.FromSlash(rule.Target()))
		info, err := os.Stat(path)
		if err != nil {
			return results, fmt.Errorf("failed to stat %s for patch %q: %w", path, rule.Name, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return results, fmt.Errorf("failed to read %s for patch %q: %w", path, rule.Name, err)
		}
		content := string(data)

		switch {
		case rule.Unless != "" && strings.Contains(content, rule.Unless):
			res.Outcome = SkippedAlreadyApplied
		case rule.Search == "" || !strings.Contains(content, rule.Search):
			res.Outcome = SkippedNotFound
		default:
			patched := strings.ReplaceAll(content, rule.Search, rule.Replace)
			if err := os.WriteFile(path, []byte(patched), info.Mode().Perm()); err != nil {
				return results, fmt.Errorf("failed to write %s for patch %q: %w", path, rule.Name, err)
			}
			res.Outcome = Applied
		}

		slog.Debug("patch evaluated", "rule", rule.Name, "file", res.File, "outcome", res.Outcome)
		results = append(results, res)
	}
	return results, nil
}
