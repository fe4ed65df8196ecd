// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the model tree for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/modeltree/internal/treeservice"
)

// Resource URIs.
const (
	OutlineURI     = "modeltree://outline"
	ModelFormatURI = "modeltree://model-format"
)

// Server wraps the MCP server with model tree tools.
type Server struct {
	mcp *server.MCPServer
	svc *treeservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *treeservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"modeltree",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	nameArg := func(desc string) mcp.ToolOption {
		return mcp.WithString("name", mcp.Required(), mcp.Description(desc))
	}

	// Queries.
	s.mcp.AddTool(mcp.NewTool("get_root_name",
		mcp.WithDescription("Return the name of the root model."),
	), s.getRootName)

	s.mcp.AddTool(mcp.NewTool("get_node",
		mcp.WithDescription("Return a model's name, ref_count and whether it has children."),
		nameArg("Model name"),
	), s.getNode)

	s.mcp.AddTool(mcp.NewTool("get_children",
		mcp.WithDescription("Return the ordered child names of an internal model. Names may repeat."),
		nameArg("Internal model name"),
	), s.getChildren)

	s.mcp.AddTool(mcp.NewTool("get_algorithm",
		mcp.WithDescription("Return the algorithm of a leaf model."),
		nameArg("Leaf model name"),
	), s.getAlgorithm)

	s.mcp.AddTool(mcp.NewTool("get_ref_count",
		mcp.WithDescription("Return how many child slots reference the model (0 if unknown)."),
		nameArg("Model name"),
	), s.getRefCount)

	// Mutations.
	s.mcp.AddTool(mcp.NewTool("rename_node",
		mcp.WithDescription("Rename a model. Leaf onto leaf merges; other collisions get a "+
			"\" (duplicate)\" suffix. Continue with the returned new_name."),
		mcp.WithString("old_name", mcp.Required(), mcp.Description("Current model name")),
		mcp.WithString("new_name", mcp.Required(), mcp.Description("Requested model name")),
	), s.renameNode)

	s.mcp.AddTool(mcp.NewTool("add_node",
		mcp.WithDescription("Append a new leaf with a generated name to an internal parent."),
		mcp.WithString("parent", mcp.Required(), mcp.Description("Internal parent model name")),
	), s.addNode)

	s.mcp.AddTool(mcp.NewTool("delete_node",
		mcp.WithDescription("Remove every occurrence of a child from a parent. The model is "+
			"dropped entirely only if that parent held all its references."),
		mcp.WithString("parent", mcp.Required(), mcp.Description("Parent model name")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Child model name")),
	), s.deleteNode)

	s.mcp.AddTool(mcp.NewTool("toggle_node_kind",
		mcp.WithDescription("Switch a model between leaf and internal node."),
		nameArg("Model name"),
	), s.toggleNodeKind)

	s.mcp.AddTool(mcp.NewTool("update_algorithm",
		mcp.WithDescription("Replace the algorithm of a leaf model."),
		nameArg("Leaf model name"),
		mcp.WithString("algorithm", mcp.Required(), mcp.Description("New algorithm text")),
	), s.updateAlgorithm)

	// Supporting tools.
	s.mcp.AddTool(mcp.NewTool("log_message",
		mcp.WithDescription("Write a line to the server log and operation journal."),
		mcp.WithString("message", mcp.Required(), mcp.Description("Text to log")),
		mcp.WithString("level", mcp.Description("debug, info, warn or error (default info)")),
	), s.logMessage)

	s.mcp.AddTool(mcp.NewTool("get_outline",
		mcp.WithDescription("Return the tree as a Markdown outline."),
	), s.getOutline)

	s.mcp.AddTool(mcp.NewTool("reload_models",
		mcp.WithDescription("Discard in-memory edits and reload the model files from disk."),
	), s.reloadModels)

	s.mcp.AddTool(mcp.NewTool("get_model_contract",
		mcp.WithDescription("Returns the model file format and identity rules. "+
			"Call this before editing to understand merges and duplicates."),
	), s.getModelContract)

	s.mcp.AddResource(
		mcp.NewResource(OutlineURI, "Model Tree Outline",
			mcp.WithResourceDescription("Current tree as a nested Markdown list."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readOutlineResource,
	)
	s.mcp.AddResource(
		mcp.NewResource(ModelFormatURI, "Model Tree Contract",
			mcp.WithResourceDescription("Model file format and identity rules."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) getRootName(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.svc.RootName(ctx)), nil
}

func (s *Server) getNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	node, err := s.svc.GetNode(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(node), nil
}

func (s *Server) getChildren(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	children, err := s.svc.Children(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(children), nil
}

func (s *Server) getAlgorithm(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	alg, err := s.svc.Algorithm(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(alg), nil
}

func (s *Server) getRefCount(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%d", s.svc.RefCount(ctx, name))), nil
}

func (s *Server) renameNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	oldName, err := req.RequireString("old_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newName, err := req.RequireString("new_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Rename(ctx, oldName, newName)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) addNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	parent, err := req.RequireString("parent")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := s.svc.AddNode(ctx, parent)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(name), nil
}

func (s *Server) deleteNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	parent, err := req.RequireString("parent")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.DeleteNode(ctx, parent, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) toggleNodeKind(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.ToggleKind(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) updateAlgorithm(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	alg, err := req.RequireString("algorithm")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.UpdateAlgorithm(ctx, name, alg); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", name)), nil
}

func (s *Server) logMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	msg, err := req.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	level := req.GetString("level", "")
	if err := s.svc.LogMessage(ctx, level, msg); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("logged"), nil
}

func (s *Server) getOutline(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.svc.Outline(ctx)), nil
}

func (s *Server) reloadModels(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.Reload(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(res.Changed) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("reloaded %d models from %s; no files changed", res.Models, res.Root)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("reloaded %d models from %s; changed: %s",
		res.Models, res.Root, strings.Join(res.Changed, ", "))), nil
}

func (s *Server) getModelContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ModelFormatContract), nil
}

func (s *Server) readOutlineResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      OutlineURI,
			MIMEType: "text/markdown",
			Text:     s.svc.Outline(ctx),
		},
	}, nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ModelFormatURI,
			MIMEType: "text/markdown",
			Text:     ModelFormatContract,
		},
	}, nil
}
