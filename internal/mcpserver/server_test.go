package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/modeltree/internal/models"
	"github.com/starford/modeltree/internal/testutil"
	"github.com/starford/modeltree/internal/treeservice"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	_, source := testutil.ModelDir(t, testutil.SampleModels)
	svc, err := treeservice.Open(source, "", treeservice.WithJournal(testutil.Journal(t)))
	if err != nil {
		t.Fatal(err)
	}
	return New(svc, "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" helper, so dispatch to the handlers.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "get_root_name":
		result, err = srv.getRootName(ctx, req)
	case "get_node":
		result, err = srv.getNode(ctx, req)
	case "get_children":
		result, err = srv.getChildren(ctx, req)
	case "get_algorithm":
		result, err = srv.getAlgorithm(ctx, req)
	case "get_ref_count":
		result, err = srv.getRefCount(ctx, req)
	case "rename_node":
		result, err = srv.renameNode(ctx, req)
	case "add_node":
		result, err = srv.addNode(ctx, req)
	case "delete_node":
		result, err = srv.deleteNode(ctx, req)
	case "toggle_node_kind":
		result, err = srv.toggleNodeKind(ctx, req)
	case "update_algorithm":
		result, err = srv.updateAlgorithm(ctx, req)
	case "log_message":
		result, err = srv.logMessage(ctx, req)
	case "get_outline":
		result, err = srv.getOutline(ctx, req)
	case "reload_models":
		result, err = srv.reloadModels(ctx, req)
	case "get_model_contract":
		result, err = srv.getModelContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestQueries(t *testing.T) {
	srv := testServer(t)

	if got := resultText(callTool(t, srv, "get_root_name", nil)); got != "R" {
		t.Errorf("root = %q, want R", got)
	}

	var node models.Node
	r := callTool(t, srv, "get_node", map[string]interface{}{"name": "S"})
	if err := json.Unmarshal([]byte(resultText(r)), &node); err != nil {
		t.Fatalf("get_node result %q: %v", resultText(r), err)
	}
	if node.RefCount != 3 || !node.HasChildren {
		t.Errorf("node = %+v", node)
	}

	var children []string
	r = callTool(t, srv, "get_children", map[string]interface{}{"name": "R"})
	_ = json.Unmarshal([]byte(resultText(r)), &children)
	if strings.Join(children, ",") != "A,S,S" {
		t.Errorf("children = %v", children)
	}

	if got := resultText(callTool(t, srv, "get_algorithm", map[string]interface{}{"name": "L"})); got != "sum" {
		t.Errorf("algorithm = %q", got)
	}
	if got := resultText(callTool(t, srv, "get_ref_count", map[string]interface{}{"name": "ghost"})); got != "0" {
		t.Errorf("ref count of missing = %q, want 0", got)
	}
}

func TestMissingArguments(t *testing.T) {
	srv := testServer(t)
	for _, tool := range []string{"get_node", "get_children", "rename_node", "add_node", "delete_node", "update_algorithm", "log_message"} {
		r := callTool(t, srv, tool, map[string]interface{}{})
		if !r.IsError {
			t.Errorf("%s without arguments should be an error", tool)
		}
	}
}

func TestDesyncIsToolError(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "get_children", map[string]interface{}{"name": "L"})
	if !r.IsError {
		t.Error("get_children on a leaf should be an error")
	}
	r = callTool(t, srv, "delete_node", map[string]interface{}{"parent": "R", "name": "L"})
	if !r.IsError {
		t.Error("deleting a missing edge should be an error")
	}
}

func TestRenameDuplicate(t *testing.T) {
	srv := testServer(t)

	// Leaf onto internal never merges.
	r := callTool(t, srv, "rename_node", map[string]interface{}{"old_name": "L", "new_name": "S"})
	if r.IsError {
		t.Fatalf("rename error: %s", resultText(r))
	}
	var res map[string]any
	_ = json.Unmarshal([]byte(resultText(r)), &res)
	if res["new_name"] != "S (duplicate)" || res["merged"] != false {
		t.Errorf("rename result = %v", res)
	}
}

func TestAddToggleUpdate(t *testing.T) {
	srv := testServer(t)

	name := resultText(callTool(t, srv, "add_node", map[string]interface{}{"parent": "A"}))
	if name != "new node" {
		t.Fatalf("add_node = %q", name)
	}
	r := callTool(t, srv, "update_algorithm", map[string]interface{}{"name": name, "algorithm": "max"})
	if r.IsError {
		t.Fatalf("update_algorithm: %s", resultText(r))
	}
	if got := resultText(callTool(t, srv, "get_algorithm", map[string]interface{}{"name": name})); got != "max" {
		t.Errorf("algorithm = %q", got)
	}

	r = callTool(t, srv, "toggle_node_kind", map[string]interface{}{"name": name})
	if !strings.Contains(resultText(r), `"leaf": false`) {
		t.Errorf("toggle result = %q", resultText(r))
	}

	r = callTool(t, srv, "delete_node", map[string]interface{}{"parent": "A", "name": name})
	if !strings.Contains(resultText(r), `"removed": true`) {
		t.Errorf("delete result = %q", resultText(r))
	}
}

func TestLogAndContract(t *testing.T) {
	srv := testServer(t)

	if r := callTool(t, srv, "log_message", map[string]interface{}{"message": "hi", "level": "debug"}); r.IsError {
		t.Errorf("log_message: %s", resultText(r))
	}
	if r := callTool(t, srv, "log_message", map[string]interface{}{"message": "hi", "level": "nope"}); !r.IsError {
		t.Error("unknown level should be an error")
	}
	if !strings.Contains(resultText(callTool(t, srv, "get_model_contract", nil)), "(duplicate)") {
		t.Error("contract should describe duplicate naming")
	}
}

func TestOutlineAndReload(t *testing.T) {
	srv := testServer(t)

	if got := resultText(callTool(t, srv, "get_outline", nil)); !strings.HasPrefix(got, "# R") {
		t.Errorf("outline = %q", got)
	}
	r := callTool(t, srv, "reload_models", nil)
	if r.IsError || !strings.Contains(resultText(r), "no files changed") {
		t.Errorf("reload = %q", resultText(r))
	}
}

func TestResources(t *testing.T) {
	srv := testServer(t)

	contents, err := srv.readOutlineResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != OutlineURI || !strings.Contains(tc.Text, "- A") {
		t.Errorf("outline resource = %+v", contents[0])
	}

	contents, _ = srv.readContractResource(context.Background(), mcp.ReadResourceRequest{})
	if tc, ok := contents[0].(mcp.TextResourceContents); !ok || tc.Text != ModelFormatContract {
		t.Error("contract resource mismatch")
	}
}
