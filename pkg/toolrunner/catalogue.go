package toolrunner

// Descriptor is the single declarative specification of one tool
// primitive, consumed both by the structured-tool channel (rendered into
// the provider's function-calling schema) and by the textual system
// prompt (rendered as human-readable catalogue lines). There is exactly
// one Descriptor per primitive; neither Planner prompt assembly nor the
// runner's dispatch table describes a tool's shape a second time.
type Descriptor struct {
	Name        string
	Description string
	Parameters  map[string]any
	Required    []string
}

// Catalogue lists the six tool primitives in a fixed order.
var Catalogue = []Descriptor{
	{
		Name:        "list_dir",
		Description: "List directory entries, one per line, with a trailing / on directories",
		Parameters: map[string]any{
			"path": map[string]any{"type": "string", "description": "Directory to list"},
		},
		Required: []string{"path"},
	},
	{
		Name:        "read_file",
		Description: "Read lines from a file, optionally starting at a 0-based line offset and capped at limit lines",
		Parameters: map[string]any{
			"path":   map[string]any{"type": "string", "description": "File to read"},
			"offset": map[string]any{"type": "integer", "description": "0-based starting line index"},
			"limit":  map[string]any{"type": "integer", "description": "Maximum number of lines to return"},
		},
		Required: []string{"path"},
	},
	{
		Name:        "write_file",
		Description: "Write UTF-8 content to a file, creating parent directories as needed",
		Parameters: map[string]any{
			"path":    map[string]any{"type": "string", "description": "File to write"},
			"content": map[string]any{"type": "string", "description": "Content to write"},
		},
		Required: []string{"path", "content"},
	},
	{
		Name:        "edit_file",
		Description: "Replace a single exact occurrence of oldText with newText in a file",
		Parameters: map[string]any{
			"path":    map[string]any{"type": "string", "description": "File to edit"},
			"oldText": map[string]any{"type": "string", "description": "Exact text to find; must occur exactly once"},
			"newText": map[string]any{"type": "string", "description": "Replacement text"},
		},
		Required: []string{"path", "oldText", "newText"},
	},
	{
		Name:        "exec_cmd",
		Description: "Run a shell command with cwd = allowed_root, under a bounded timeout",
		Parameters: map[string]any{
			"command": map[string]any{"type": "string", "description": "Shell command to run"},
			"timeout": map[string]any{"type": "integer", "description": "Requested timeout in seconds"},
		},
		Required: []string{"command"},
	},
	{
		Name:        "grep",
		Description: "Recursively search for a substring or regular expression, one match per line with a file:line prefix",
		Parameters: map[string]any{
			"pattern": map[string]any{"type": "string", "description": "Substring or regular expression"},
			"path":    map[string]any{"type": "string", "description": "File or directory to search"},
		},
		Required: []string{"pattern", "path"},
	},
}

// ByName indexes Catalogue for O(1) lookup.
var ByName = func() map[string]Descriptor {
	m := make(map[string]Descriptor, len(Catalogue))
	for _, d := range Catalogue {
		m[d.Name] = d
	}
	return m
}()

// Names returns the set of known primitive names, for Planner validation.
func Names() map[string]struct{} {
	out := make(map[string]struct{}, len(Catalogue))
	for _, d := range Catalogue {
		out[d.Name] = struct{}{}
	}
	return out
}

// FilterKnownArgs drops argument keys not declared in the descriptor for
// toolName, per the Planner's "unknown argument keys are dropped" rule. If
// toolName is unknown, args is returned unchanged.
func FilterKnownArgs(toolName string, args map[string]any) map[string]any {
	d, ok := ByName[toolName]
	if !ok {
		return args
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		if _, declared := d.Parameters[k]; declared {
			out[k] = v
		}
	}
	return out
}

// RenderTextCatalogue renders the catalogue as human-readable lines for
// the textual fallback system prompt.
func RenderTextCatalogue() string {
	var out string
	for _, d := range Catalogue {
		out += "- " + d.Name + "(" + joinRequired(d.Required) + "): " + d.Description + "\n"
	}
	return out
}

func joinRequired(required []string) string {
	out := ""
	for i, r := range required {
		if i > 0 {
			out += ", "
		}
		out += r
	}
	return out
}
