package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ToolHandler is the signature for tool execution functions.
type ToolHandler func(ctx context.Context, args map[string]interface{}, session *MCPSession, server *Server) (*ToolResult, error)

// Tool represents a registered MCP tool.
type Tool struct {
	Definition ToolDefinition
	Handler    ToolHandler

	schema *jsonschema.Schema
}

// ToolRegistry manages all registered MCP tools.
// Tools are stored in a slice to preserve registration order for tools/list.
type ToolRegistry struct {
	tools  []*Tool
	byName map[string]*Tool
	server *Server
}

// NewToolRegistry creates a new tool registry and registers all built-in tools.
func NewToolRegistry(server *Server) *ToolRegistry {
	r := &ToolRegistry{
		tools:  make([]*Tool, 0, 8),
		byName: make(map[string]*Tool, 8),
		server: server,
	}

	r.registerBuiltinTools()
	return r
}

// registerBuiltinTools registers the workspace tools from tool_defs.go.
func (r *ToolRegistry) registerBuiltinTools() {
	handlers := map[string]ToolHandler{
		"list_clusters":   handleListClusters,
		"list_warehouses": handleListWarehouses,
		"list_catalogs":   handleListCatalogs,
		"list_schemas":    handleListSchemas,
		"list_jobs":       handleListJobs,
		"execute_sql":     handleExecuteSQL,
	}

	// Register in definition order so tools/list is stable.
	for _, def := range allToolDefinitions() {
		handler, ok := handlers[def.Name]
		if !ok {
			continue
		}
		if err := r.Register(&Tool{Definition: def, Handler: handler}); err != nil {
			panic(err) // built-in schemas are static
		}
	}
}

// Register adds a tool to the registry. The input schema is compiled up
// front; a schema that does not compile is rejected.
func (r *ToolRegistry) Register(tool *Tool) error {
	if tool.Definition.Name == "" {
		return errors.New("tool name is required")
	}
	if _, dup := r.byName[tool.Definition.Name]; dup {
		return fmt.Errorf("tool %q already registered", tool.Definition.Name)
	}
	if tool.Definition.InputSchema != nil {
		schema, err := compileInputSchema(tool.Definition.Name, tool.Definition.InputSchema)
		if err != nil {
			return fmt.Errorf("tool %q: %w", tool.Definition.Name, err)
		}
		tool.schema = schema
	}
	r.tools = append(r.tools, tool)
	r.byName[tool.Definition.Name] = tool
	return nil
}

// Get retrieves a tool by name.
func (r *ToolRegistry) Get(name string) *Tool {
	return r.byName[name]
}

// List returns all tool definitions in registration order.
func (r *ToolRegistry) List() []ToolDefinition {
	defs := make([]ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, tool.Definition)
	}
	return defs
}

// Execute validates args against the tool's input schema and runs it.
// Unknown tools and invalid arguments come back as error results.
func (r *ToolRegistry) Execute(ctx context.Context, name string, args map[string]interface{}, session *MCPSession) (*ToolResult, error) {
	tool := r.byName[name]
	if tool == nil {
		return ToolResultError("tool not found: " + name), nil
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	if tool.schema != nil {
		if err := tool.schema.Validate(args); err != nil {
			return ToolResultErrorf("invalid arguments for %s: %s", name, describeSchemaError(err)), nil
		}
	}
	return tool.Handler(ctx, args, session, r.server)
}

func compileInputSchema(name string, schema map[string]interface{}) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	// Round-trip through JSON so Go literals ([]string etc.) become plain JSON values.
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal input schema: %w", err)
	}

	url := "tool://" + name + ".json"
	if err := compiler.AddResource(url, strings.NewReader(string(data))); err != nil {
		return nil, fmt.Errorf("add input schema: %w", err)
	}
	return compiler.Compile(url)
}

// describeSchemaError flattens a validation error into "field: message" parts.
func describeSchemaError(err error) string {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return err.Error()
	}
	var parts []string
	collectSchemaErrors(verr, &parts)
	if len(parts) == 0 {
		return verr.Message
	}
	return strings.Join(parts, "; ")
}

func collectSchemaErrors(err *jsonschema.ValidationError, parts *[]string) {
	if len(err.Causes) == 0 {
		field := strings.ReplaceAll(strings.TrimPrefix(err.InstanceLocation, "/"), "/", ".")
		if field == "" {
			*parts = append(*parts, err.Message)
		} else {
			*parts = append(*parts, field+": "+err.Message)
		}
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(cause, parts)
	}
}

// =============================================================================
// Argument extraction helpers
// =============================================================================

func getString(args map[string]interface{}, key, defaultVal string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return defaultVal
}

func getInt(args map[string]interface{}, key string, defaultVal int) int {
	if v, ok := args[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case int64:
			return int(n)
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return int(i)
			}
		}
	}
	return defaultVal
}
