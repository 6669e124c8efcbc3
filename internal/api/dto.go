package api

import (
	"github.com/focosx/focos/internal/vault"
)

// CreateVaultRequest is the request body for registering a workspace.
// Path is empty for virtual workspaces and an absolute directory path
// for filesystem-backed ones.
type CreateVaultRequest struct {
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
}

// CreateNodeRequest is the request body for creating a tree node.
type CreateNodeRequest struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	ParentID *string `json:"parentId,omitempty"`
}

// RenameNodeRequest is the request body for renaming a tree node.
type RenameNodeRequest struct {
	Name string `json:"name"`
}

// DropFrameRequest is the request body for dropping a tree node onto a
// canvas. The frame type is resolved from the source name's extension.
type DropFrameRequest struct {
	CanvasID string  `json:"canvasId"`
	SourceID string  `json:"sourceId"`
	Name     string  `json:"name"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// PreferenceRequest carries a UI preference value.
type PreferenceRequest struct {
	Value string `json:"value"`
}

// PluginIDsRequest carries an enabled-plugin id list, global or per vault.
type PluginIDsRequest struct {
	IDs []string `json:"ids"`
}

// PluginIDsResponse wraps an enabled-plugin id list.
type PluginIDsResponse struct {
	IDs []string `json:"ids"`
}

// VaultListResponse wraps the workspace registry.
type VaultListResponse struct {
	Vaults []vault.Vault `json:"vaults"`
}

// TreeResponse wraps a workspace's node forest.
type TreeResponse struct {
	Nodes []vault.Node `json:"nodes"`
}

// FrameTypeInfo describes one registered frame type.
type FrameTypeInfo struct {
	Tag           string   `json:"tag"`
	DefaultWidth  float64  `json:"defaultWidth"`
	DefaultHeight float64  `json:"defaultHeight"`
	Extensions    []string `json:"extensions,omitempty"`
}
