// Package constraints implements the pure, side-effect-free security
// envelope applied to every tool call: path confinement, command
// allowlisting, timeout capping, and output truncation.
package constraints

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Constraints is the immutable security envelope for one agent run.
// An empty CommandAllowlist means "no restriction" per spec.
type Constraints struct {
	AllowedRoot      string
	CommandAllowlist map[string]struct{}
	TimeoutSec       int
	MaxOutputSize    int
}

// New builds a Constraints value, normalising AllowedRoot to its absolute
// form and the command allowlist to a lookup set.
func New(allowedRoot string, allowedCommands []string, timeoutSec, maxOutputSize int) (Constraints, error) {
	abs, err := filepath.Abs(allowedRoot)
	if err != nil {
		return Constraints{}, fmt.Errorf("constraints: resolve allowed root: %w", err)
	}

	set := make(map[string]struct{}, len(allowedCommands))
	for _, c := range allowedCommands {
		c = strings.TrimSpace(c)
		if c != "" {
			set[c] = struct{}{}
		}
	}

	return Constraints{
		AllowedRoot:      abs,
		CommandAllowlist: set,
		TimeoutSec:       timeoutSec,
		MaxOutputSize:    maxOutputSize,
	}, nil
}

// ValidatePath resolves p against AllowedRoot (if relative) or uses it
// directly (if absolute), canonicalises the result, and reports whether the
// canonical path is a descendant of the canonical allowed root. When
// AllowedRoot is "/" the check always succeeds.
func (c Constraints) ValidatePath(p string) (resolved string, ok bool, reason string) {
	root := c.AllowedRoot

	var candidate string
	if filepath.IsAbs(p) {
		candidate = filepath.Clean(p)
	} else {
		candidate = filepath.Clean(filepath.Join(root, p))
	}

	if root == string(filepath.Separator) {
		return candidate, true, ""
	}

	canonicalRoot := canonicalize(root)
	canonicalCandidate := canonicalizeClosest(candidate)

	if !isDescendant(canonicalCandidate, canonicalRoot) {
		return "", false, fmt.Sprintf("path outside allowed root: %s is not under %s", candidate, root)
	}

	return candidate, true, ""
}

// canonicalize resolves symlinks fully; if the path does not exist it is
// returned cleaned and unresolved.
func canonicalize(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	return filepath.Clean(p)
}

// canonicalizeClosest resolves symlinks on the longest existing ancestor of
// p, so that paths that do not yet exist (e.g. a write_file target) are
// still checked against their real parent directory.
func canonicalizeClosest(p string) string {
	p = filepath.Clean(p)
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}

	parent := filepath.Dir(p)
	if parent == p {
		return p
	}
	resolvedParent := canonicalizeClosest(parent)
	return filepath.Join(resolvedParent, filepath.Base(p))
}

func isDescendant(candidate, root string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && filepath.IsLocal(rel))
}

// ValidateCommand tokenises cmd on whitespace and checks the first token
// against the command allowlist. An empty allowlist accepts everything.
// No shell semantics beyond first-token extraction are applied.
func (c Constraints) ValidateCommand(cmd string) (ok bool, reason string) {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return false, "empty command"
	}
	if len(c.CommandAllowlist) == 0 {
		return true, ""
	}
	name := fields[0]
	if _, allowed := c.CommandAllowlist[name]; !allowed {
		return false, fmt.Sprintf("command %q is not in the allowlist", name)
	}
	return true, ""
}

// EffectiveTimeout returns min(requested, TimeoutSec). A requested value of
// 0 or less means "no request", so the configured cap applies.
func (c Constraints) EffectiveTimeout(requestedSec int) int {
	if requestedSec <= 0 {
		return c.TimeoutSec
	}
	if requestedSec < c.TimeoutSec {
		return requestedSec
	}
	return c.TimeoutSec
}

// hiddenCharsMarker is the distinctive substring TruncateOutput inserts
// between the surviving prefix and suffix. Its presence identifies a string
// as already-truncated output, so re-truncation is a no-op (truncation is
// idempotent).
const hiddenCharsMarker = "chars hidden) ..."

// TruncateOutput returns s unchanged if it fits within cap or already
// carries the hidden-character marker from a prior call; otherwise it
// returns a byte-accurate prefix, the marker, and a suffix, so diagnostic
// text at either end of the original output survives.
func TruncateOutput(s string, cap int) string {
	if cap <= 0 || len(s) <= cap || strings.Contains(s, hiddenCharsMarker) {
		return s
	}

	half := cap / 2
	hidden := len(s) - 2*half
	prefix := s[:half]
	suffix := s[len(s)-half:]
	return fmt.Sprintf("%s\n... (%d %s\n%s", prefix, hidden, hiddenCharsMarker, suffix)
}
