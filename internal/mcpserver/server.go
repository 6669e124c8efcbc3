// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Focos tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/focosx/focos/internal/index"
	"github.com/focosx/focos/internal/vault"
)

// Server wraps the MCP server with Focos tools.
type Server struct {
	mcp *server.MCPServer
	mgr *vault.Manager
	idx index.NodeIndex
}

// New creates a new MCP server with all Focos tools registered.
func New(mgr *vault.Manager, idx index.NodeIndex) *Server {
	s := &Server{mgr: mgr, idx: idx}

	s.mcp = server.NewMCPServer(
		"Focos",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_vaults",
		mcp.WithDescription("List all registered workspaces (virtual and filesystem-backed)."),
	), s.listVaults)

	s.mcp.AddTool(mcp.NewTool("list_tree",
		mcp.WithDescription("List the node tree of a workspace. Loads the tree from its backend first."),
		mcp.WithString("vault_id", mcp.Required(), mcp.Description("Workspace id from list_vaults")),
	), s.listTree)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the stored content of a file or canvas node. "+
			"Canvas payloads follow the canvas format; read the contract first via "+
			"the get_canvas_contract tool or the focos://canvas-format resource."),
		mcp.WithString("vault_id", mcp.Required(), mcp.Description("Workspace id")),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node id from list_tree")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("create_node",
		mcp.WithDescription("Create a FILE, FOLDER, or CANVAS node in a workspace. "+
			"Names get their default extension when missing (.md for files, .canvas for canvases)."),
		mcp.WithString("vault_id", mcp.Required(), mcp.Description("Workspace id")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Node name")),
		mcp.WithString("type", mcp.Required(), mcp.Description("One of FILE, FOLDER, CANVAS")),
		mcp.WithString("parent_id", mcp.Description("Optional parent folder id (empty for root)")),
	), s.createNode)

	s.mcp.AddTool(mcp.NewTool("delete_node",
		mcp.WithDescription("Delete a node. Deleting a folder removes its whole subtree."),
		mcp.WithString("vault_id", mcp.Required(), mcp.Description("Workspace id")),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node id to delete")),
	), s.deleteNode)

	s.mcp.AddTool(mcp.NewTool("get_canvas_contract",
		mcp.WithDescription("Returns the canonical canvas document format contract. "+
			"Call this before writing canvas payloads to ensure correct structure."),
	), s.getCanvasContract)

	s.mcp.AddTool(mcp.NewTool("recent_nodes",
		mcp.WithDescription("List recently updated files and canvases across all workspaces."),
	), s.recentNodes)

	// Resource: canvas format contract.
	s.mcp.AddResource(
		mcp.NewResource("focos://canvas-format", "Canvas Format Contract",
			mcp.WithResourceDescription("Canonical canvas document format that all canvases must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readCanvasFormatResource,
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

func (s *Server) listVaults(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.mgr.Vaults(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	vaultID, err := req.RequireString("vault_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tree, err := s.mgr.OpenVault(ctx, vaultID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(tree, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	vaultID, err := req.RequireString("vault_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nodeID, err := req.RequireString("node_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.mgr.ReadDocument(ctx, vaultID, nodeID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", nodeID)), nil
	}
	if len(data) == 0 {
		return mcp.NewToolResultText("(empty)"), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) createNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	vaultID, err := req.RequireString("vault_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	typ, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var parentID *string
	if p, pErr := req.RequireString("parent_id"); pErr == nil && p != "" {
		parentID = &p
	}

	node, err := s.mgr.CreateNode(ctx, vaultID, name, vault.NodeType(strings.ToUpper(typ)), parentID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%s)", node.Name, node.ID)), nil
}

func (s *Server) deleteNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	vaultID, err := req.RequireString("vault_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nodeID, err := req.RequireString("node_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.mgr.DeleteNode(ctx, vaultID, nodeID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", nodeID)), nil
}

func (s *Server) getCanvasContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(CanvasFormatContract), nil
}

func (s *Server) recentNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rows, err := s.idx.Recent(0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(rows) == 0 {
		return mcp.NewToolResultText("no recent nodes"), nil
	}
	var lines []string
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("%s\t%s\t%s", r.VaultID, r.NodeID, r.Name))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readCanvasFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "focos://canvas-format",
			MIMEType: "text/markdown",
			Text:     CanvasFormatContract,
		},
	}, nil
}
