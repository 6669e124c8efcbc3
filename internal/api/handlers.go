package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/focosx/focos/internal/apperr"
	"github.com/focosx/focos/internal/canvas"
	"github.com/focosx/focos/internal/geom"
	"github.com/focosx/focos/internal/index"
	"github.com/focosx/focos/internal/sse"
	"github.com/focosx/focos/internal/vault"
)

// Handler holds API route handlers.
type Handler struct {
	mgr     *vault.Manager
	idx     index.NodeIndex
	reg     *canvas.Registry
	prefs   *vault.Preferences
	plugins *vault.PluginStore
	broker  *sse.Broker
}

// NewHandler creates a new Handler.
func NewHandler(mgr *vault.Manager, idx index.NodeIndex, reg *canvas.Registry, prefs *vault.Preferences, plugins *vault.PluginStore, broker *sse.Broker) *Handler {
	return &Handler{mgr: mgr, idx: idx, reg: reg, prefs: prefs, plugins: plugins, broker: broker}
}

// nodeID extracts the node id from the URL wildcard. Filesystem-backed
// node ids contain slashes, so these routes use a catch-all segment.
// Supports encoded separators from OpenAPI clients (e.g. v1%3Anotes%2Fa.md).
func nodeID(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListVaults handles GET /api/vaults.
func (h *Handler) ListVaults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VaultListResponse{Vaults: h.mgr.Vaults()})
}

// CreateVault handles POST /api/vaults.
func (h *Handler) CreateVault(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateVaultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	v, err := h.mgr.CreateVault(req.Name, req.Path)
	if err != nil {
		writeError(w, "create vault", err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// DeleteVault handles DELETE /api/vaults/{vaultID}.
func (h *Handler) DeleteVault(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "vaultID")
	if err := h.mgr.DeleteVault(id); err != nil {
		writeError(w, "delete vault", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OpenVault handles POST /api/vaults/{vaultID}/open. It loads the
// workspace tree from its backend and returns it. A concurrent open of
// the same workspace is rejected with 409.
func (h *Handler) OpenVault(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "vaultID")
	tree, err := h.mgr.OpenVault(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			writeJSON(w, http.StatusConflict, errorBody("vault is already loading"))
			return
		}
		writeError(w, "open vault", err)
		return
	}
	h.broker.PublishTreeChanged(id)
	writeJSON(w, http.StatusOK, TreeResponse{Nodes: tree})
}

// GetTree handles GET /api/vaults/{vaultID}/tree. It serves the cached
// mirror without touching the backend.
func (h *Handler) GetTree(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "vaultID")
	tree, err := h.mgr.Tree(id)
	if err != nil {
		writeError(w, "get tree", err)
		return
	}
	writeJSON(w, http.StatusOK, TreeResponse{Nodes: tree})
}

// CreateNode handles POST /api/vaults/{vaultID}/nodes.
func (h *Handler) CreateNode(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	id := chi.URLParam(r, "vaultID")
	var req CreateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Name == "" || req.Type == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name and type are required"))
		return
	}
	node, err := h.mgr.CreateNode(r.Context(), id, req.Name, vault.NodeType(req.Type), req.ParentID)
	if err != nil {
		writeError(w, "create node", err)
		return
	}
	h.broker.PublishTreeChanged(id)
	writeJSON(w, http.StatusCreated, node)
}

// DeleteNode handles DELETE /api/vaults/{vaultID}/nodes/*.
func (h *Handler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "vaultID")
	nid := nodeID(r)
	if nid == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("node id is required"))
		return
	}
	if err := h.mgr.DeleteNode(r.Context(), id, nid); err != nil {
		writeError(w, "delete node", err)
		return
	}
	h.broker.PublishTreeChanged(id)
	w.WriteHeader(http.StatusNoContent)
}

// RenameNode handles PATCH /api/vaults/{vaultID}/nodes/*. Filesystem
// backends assign the renamed node a new id, which the response carries.
func (h *Handler) RenameNode(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	id := chi.URLParam(r, "vaultID")
	nid := nodeID(r)
	if nid == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("node id is required"))
		return
	}
	var req RenameNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	node, err := h.mgr.RenameNode(r.Context(), id, nid, req.Name)
	if err != nil {
		writeError(w, "rename node", err)
		return
	}
	h.broker.PublishTreeChanged(id)
	writeJSON(w, http.StatusOK, node)
}

// GetDocument handles GET /api/vaults/{vaultID}/documents/*.
// Canvas nodes return a parsed canvas document; unreadable payloads fall
// back to an empty one rather than failing the request. Other nodes
// return their raw content as a string.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "vaultID")
	nid := nodeID(r)
	if nid == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("node id is required"))
		return
	}
	node, err := h.mgr.GetNode(id, nid)
	if err != nil {
		writeError(w, "get document", err)
		return
	}
	data, err := h.mgr.ReadDocument(r.Context(), id, nid)
	if err != nil {
		writeError(w, "get document", err)
		return
	}
	if node.Type == vault.NodeCanvas {
		doc := canvas.LoadDocument(data, node.Name, slog.Default())
		writeJSON(w, http.StatusOK, doc)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"content": string(data)})
}

// PutDocument handles PUT /api/vaults/{vaultID}/documents/*.
// Canvas payloads are validated before being written.
func (h *Handler) PutDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	id := chi.URLParam(r, "vaultID")
	nid := nodeID(r)
	if nid == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("node id is required"))
		return
	}
	node, err := h.mgr.GetNode(id, nid)
	if err != nil {
		writeError(w, "put document", err)
		return
	}
	var body []byte
	if node.Type == vault.NodeCanvas {
		var doc *canvas.Document
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil || doc == nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
		body, err = canvas.MarshalDocument(doc)
		if err != nil {
			writeError(w, "put document", err)
			return
		}
	} else {
		var req struct {
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
		body = []byte(req.Content)
	}
	if err := h.mgr.WriteDocument(r.Context(), id, nid, body); err != nil {
		writeError(w, "put document", err)
		return
	}
	h.broker.PublishDocumentSaved(id, nid)
	w.WriteHeader(http.StatusNoContent)
}

// DropFrame handles POST /api/vaults/{vaultID}/frames. A tree node
// dropped onto a canvas becomes a new frame whose type is resolved from
// the source name's extension; unhandled extensions produce a plain
// file frame with fallback dimensions.
func (h *Handler) DropFrame(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	id := chi.URLParam(r, "vaultID")
	var req DropFrameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.CanvasID == "" || req.SourceID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("canvasId and sourceId are required"))
		return
	}

	node, err := h.mgr.GetNode(id, req.CanvasID)
	if err != nil {
		writeError(w, "drop frame", err)
		return
	}
	if node.Type != vault.NodeCanvas {
		writeJSON(w, http.StatusBadRequest, errorBody("target node is not a canvas"))
		return
	}

	data, err := h.mgr.ReadDocument(r.Context(), id, req.CanvasID)
	if err != nil {
		writeError(w, "drop frame", err)
		return
	}
	doc := canvas.LoadDocument(data, node.Name, slog.Default())

	tag := "file"
	if b, resolveErr := h.reg.ResolveByExtension(filepath.Ext(req.Name)); resolveErr == nil {
		tag = b.Tag
	}
	frame := doc.AddFrame(h.reg, tag, geom.Pt(req.X, req.Y))
	content, err := json.Marshal(map[string]string{
		"sourceId": req.SourceID,
		"name":     req.Name,
	})
	if err != nil {
		writeError(w, "drop frame", err)
		return
	}
	frame.Content = content

	body, err := canvas.MarshalDocument(doc)
	if err != nil {
		writeError(w, "drop frame", err)
		return
	}
	if err := h.mgr.WriteDocument(r.Context(), id, req.CanvasID, body); err != nil {
		writeError(w, "drop frame", err)
		return
	}
	h.broker.PublishDocumentSaved(id, req.CanvasID)
	writeJSON(w, http.StatusCreated, frame)
}

// FrameTypes handles GET /api/frame-types.
func (h *Handler) FrameTypes(w http.ResponseWriter, r *http.Request) {
	tags := h.reg.Tags()
	infos := make([]FrameTypeInfo, 0, len(tags))
	for _, tag := range tags {
		b, err := h.reg.Resolve(tag)
		if err != nil {
			continue
		}
		infos = append(infos, FrameTypeInfo{
			Tag:           b.Tag,
			DefaultWidth:  b.DefaultWidth,
			DefaultHeight: b.DefaultHeight,
			Extensions:    b.HandledExtensions,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"types": infos})
}

// Recent handles GET /api/recent.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := h.idx.Recent(limit)
	if err != nil {
		writeError(w, "recent", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": rows})
}

// GetPreference handles GET /api/preferences/{key}.
func (h *Handler) GetPreference(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, err := h.prefs.Get(key)
	if err != nil {
		writeError(w, "get preference", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

// GetGlobalPlugins handles GET /api/plugins/global.
func (h *Handler) GetGlobalPlugins(w http.ResponseWriter, r *http.Request) {
	ids, err := h.plugins.GlobalPluginIDs()
	if err != nil {
		writeError(w, "get global plugins", err)
		return
	}
	writeJSON(w, http.StatusOK, PluginIDsResponse{IDs: ids})
}

// PutGlobalPlugins handles PUT /api/plugins/global.
func (h *Handler) PutGlobalPlugins(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req PluginIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.plugins.SaveGlobalPluginIDs(req.IDs); err != nil {
		writeError(w, "save global plugins", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetVaultPlugins handles GET /api/vaults/{vaultID}/plugins.
func (h *Handler) GetVaultPlugins(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "vaultID")
	if _, err := h.mgr.VaultByID(id); err != nil {
		writeError(w, "get vault plugins", err)
		return
	}
	ids, err := h.plugins.WorkspacePluginIDs(id)
	if err != nil {
		writeError(w, "get vault plugins", err)
		return
	}
	writeJSON(w, http.StatusOK, PluginIDsResponse{IDs: ids})
}

// PutVaultPlugins handles PUT /api/vaults/{vaultID}/plugins.
func (h *Handler) PutVaultPlugins(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	id := chi.URLParam(r, "vaultID")
	if _, err := h.mgr.VaultByID(id); err != nil {
		writeError(w, "save vault plugins", err)
		return
	}
	var req PluginIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.plugins.SaveWorkspacePluginIDs(id, req.IDs); err != nil {
		writeError(w, "save vault plugins", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRemotePlugins handles GET /api/plugins/remote.
func (h *Handler) ListRemotePlugins(w http.ResponseWriter, r *http.Request) {
	plugins, err := h.plugins.InstalledRemotePlugins()
	if err != nil {
		writeError(w, "list remote plugins", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plugins": plugins})
}

// InstallRemotePlugin handles POST /api/plugins/remote. Installing an id
// that is already present replaces it in place (an update).
func (h *Handler) InstallRemotePlugin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req vault.RemotePlugin
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.ID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	if err := h.plugins.SaveRemotePlugin(req); err != nil {
		writeError(w, "install remote plugin", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// RemoveRemotePlugin handles DELETE /api/plugins/remote/{pluginID}.
func (h *Handler) RemoveRemotePlugin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "pluginID")
	if err := h.plugins.RemoveRemotePlugin(id); err != nil {
		writeError(w, "remove remote plugin", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetPreference handles PUT /api/preferences/{key}.
func (h *Handler) SetPreference(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	key := chi.URLParam(r, "key")
	var req PreferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.prefs.Set(key, req.Value); err != nil {
		writeError(w, "set preference", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
