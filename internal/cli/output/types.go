package output

// SnippetInfo describes a stored snippet in JSON output.
type SnippetInfo struct {
	Name         string   `json:"name"`
	Dependencies []string `json:"dependencies"`
	Dependents   []string `json:"dependents"`
	Upstream     []string `json:"upstream"`
	Downstream   []string `json:"downstream"`
	SQL          string   `json:"sql,omitempty"`
	Rendered     string   `json:"rendered,omitempty"`
}

// SnippetList is the JSON output of snippets list.
type SnippetList struct {
	Snippets []SnippetInfo `json:"snippets"`
	Total    int           `json:"total"`
}

// SaveOutput is the JSON output of save.
type SaveOutput struct {
	Name     string   `json:"name"`
	With     []string `json:"with"`
	Inferred bool     `json:"inferred"`
}

// RenderOutput is the JSON output of render.
type RenderOutput struct {
	Query string   `json:"query"`
	With  []string `json:"with"`
}

// QueryOutput is the JSON output of run.
type QueryOutput struct {
	Query     string           `json:"query"`
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"row_count"`
	Truncated bool             `json:"truncated"`
}

// DeleteOutput is the JSON output of snippets delete.
type DeleteOutput struct {
	Name       string   `json:"name"`
	Mode       string   `json:"mode"`
	Deleted    []string `json:"deleted"`
	Dependents []string `json:"dependents"`
	Message    string   `json:"message"`
}

// GraphOutput is the JSON output of snippets graph.
type GraphOutput struct {
	Levels     []GraphLevel `json:"levels"`
	Missing    []string     `json:"missing"`
	Roots      []string     `json:"roots"`
	Leaves     []string     `json:"leaves"`
	TotalNodes int          `json:"total_snippets"`
	TotalEdges int          `json:"total_dependencies"`
}

// GraphLevel is one level of the dependency graph.
type GraphLevel struct {
	Level    int         `json:"level"`
	Snippets []GraphNode `json:"snippets"`
}

// GraphNode is a snippet in the dependency graph.
type GraphNode struct {
	Name      string   `json:"name"`
	DependsOn []string `json:"depends_on"`
	UsedBy    []string `json:"used_by"`
}

// ErrorOutput is the JSON shape of a failed command.
type ErrorOutput struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}
