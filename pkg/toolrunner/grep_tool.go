package toolrunner

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/coreloop/agentcore/pkg/agenterr"
	"github.com/coreloop/agentcore/pkg/constraints"
)

func secondsToDuration(sec int) time.Duration {
	if sec <= 0 {
		sec = 1
	}
	return time.Duration(sec) * time.Second
}

func grep(c constraints.Constraints, args map[string]any) (string, error) {
	pattern, ok := stringArg(args, "pattern")
	if !ok || pattern == "" {
		return "", agenterr.New(agenterr.BadArgs, "pattern is required")
	}
	path, ok := stringArg(args, "path")
	if !ok || path == "" {
		return "", agenterr.New(agenterr.BadArgs, "path is required")
	}

	resolved, ok, reason := c.ValidatePath(path)
	if !ok {
		return "", agenterr.New(agenterr.PathForbidden, reason)
	}

	re, err := regexp.Compile(pattern)
	useRegexp := err == nil

	info, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return "", agenterr.Wrap(agenterr.NotFound, "path not found", err)
		}
		return "", agenterr.Wrap(agenterr.IOFailure, "failed to stat path", err)
	}

	var b strings.Builder
	matchFile := func(p string) error {
		f, err := os.Open(p)
		if err != nil {
			return nil // best-effort: unreadable files are skipped, not fatal
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Text()
			matched := false
			if useRegexp {
				matched = re.MatchString(line)
			} else {
				matched = strings.Contains(line, pattern)
			}
			if matched {
				fmt.Fprintf(&b, "%s:%d:%s\n", p, lineNo, line)
			}
		}
		return nil
	}

	if info.IsDir() {
		err = filepath.WalkDir(resolved, func(p string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			return matchFile(p)
		})
		if err != nil {
			return "", agenterr.Wrap(agenterr.IOFailure, "failed to walk directory", err)
		}
	} else {
		if err := matchFile(resolved); err != nil {
			return "", agenterr.Wrap(agenterr.IOFailure, "failed to search file", err)
		}
	}

	return b.String(), nil
}
