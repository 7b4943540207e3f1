package toolrunner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/coreloop/agentcore/pkg/agenterr"
	"github.com/coreloop/agentcore/pkg/constraints"
	"github.com/coreloop/agentcore/pkg/utils"
)

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key].(string)
	return v, ok
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

func listDir(c constraints.Constraints, args map[string]any) (string, error) {
	path, ok := stringArg(args, "path")
	if !ok || path == "" {
		path = "."
	}

	resolved, ok, reason := c.ValidatePath(path)
	if !ok {
		return "", agenterr.New(agenterr.PathForbidden, reason)
	}

	entries, err := os.ReadDir(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return "", agenterr.Wrap(agenterr.NotFound, "directory not found", err)
		}
		return "", agenterr.Wrap(agenterr.IOFailure, "failed to read directory", err)
	}

	var b strings.Builder
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		b.WriteString(name)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func readFile(c constraints.Constraints, args map[string]any) (string, error) {
	path, ok := stringArg(args, "path")
	if !ok || path == "" {
		return "", agenterr.New(agenterr.BadArgs, "path is required")
	}

	resolved, ok, reason := c.ValidatePath(path)
	if !ok {
		return "", agenterr.New(agenterr.PathForbidden, reason)
	}

	raw, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return "", agenterr.Wrap(agenterr.NotFound, "file not found", err)
		}
		return "", agenterr.Wrap(agenterr.IOFailure, "failed to read file", err)
	}

	offset := intArg(args, "offset", 0)
	limit := intArg(args, "limit", 0)
	if offset == 0 && limit == 0 {
		return string(raw), nil
	}

	lines := strings.Split(string(raw), "\n")
	if offset < 0 {
		offset = 0
	}
	if offset > len(lines) {
		offset = len(lines)
	}
	end := len(lines)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return strings.Join(lines[offset:end], "\n"), nil
}

func writeFile(c constraints.Constraints, args map[string]any) (string, error) {
	path, ok := stringArg(args, "path")
	if !ok || path == "" {
		return "", agenterr.New(agenterr.BadArgs, "path is required")
	}
	content, ok := stringArg(args, "content")
	if !ok {
		return "", agenterr.New(agenterr.BadArgs, "content is required")
	}

	resolved, ok, reason := c.ValidatePath(path)
	if !ok {
		return "", agenterr.New(agenterr.PathForbidden, reason)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return "", agenterr.Wrap(agenterr.IOFailure, "failed to create parent directories", err)
	}
	if err := utils.WriteFileAtomic(resolved, []byte(content), 0o644, 0o755); err != nil {
		return "", agenterr.Wrap(agenterr.IOFailure, "failed to write file", err)
	}

	return fmt.Sprintf("wrote %d bytes to %s", len(content), path), nil
}

func editFile(c constraints.Constraints, args map[string]any) (string, error) {
	path, ok := stringArg(args, "path")
	if !ok || path == "" {
		return "", agenterr.New(agenterr.BadArgs, "path is required")
	}
	oldText, ok := stringArg(args, "oldText")
	if !ok {
		return "", agenterr.New(agenterr.BadArgs, "oldText is required")
	}
	newText, ok := stringArg(args, "newText")
	if !ok {
		return "", agenterr.New(agenterr.BadArgs, "newText is required")
	}

	resolved, ok, reason := c.ValidatePath(path)
	if !ok {
		return "", agenterr.New(agenterr.PathForbidden, reason)
	}

	raw, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return "", agenterr.Wrap(agenterr.NotFound, "file not found", err)
		}
		return "", agenterr.Wrap(agenterr.IOFailure, "failed to read file", err)
	}

	content := string(raw)
	count := strings.Count(content, oldText)
	switch count {
	case 0:
		return "", agenterr.New(agenterr.BadArgs, "oldText not found in file")
	case 1:
	default:
		return "", agenterr.New(agenterr.BadArgs, fmt.Sprintf("oldText appears %d times, expected exactly one match", count))
	}

	updated := strings.Replace(content, oldText, newText, 1)
	if err := utils.WriteFileAtomic(resolved, []byte(updated), 0o644, 0o755); err != nil {
		return "", agenterr.Wrap(agenterr.IOFailure, "failed to write edited file", err)
	}
	return fmt.Sprintf("edited %s", path), nil
}
