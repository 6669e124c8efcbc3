package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Workspace registry.
	r.Get("/vaults", h.ListVaults)
	r.Post("/vaults", h.CreateVault)
	r.Delete("/vaults/{vaultID}", h.DeleteVault)
	r.Post("/vaults/{vaultID}/open", h.OpenVault)
	r.Get("/vaults/{vaultID}/tree", h.GetTree)

	// Tree nodes. Node ids may contain slashes, hence the wildcards.
	r.Post("/vaults/{vaultID}/nodes", h.CreateNode)
	r.Delete("/vaults/{vaultID}/nodes/*", h.DeleteNode)
	r.Patch("/vaults/{vaultID}/nodes/*", h.RenameNode)

	// Document payloads.
	r.Get("/vaults/{vaultID}/documents/*", h.GetDocument)
	r.Put("/vaults/{vaultID}/documents/*", h.PutDocument)

	// Canvas drag and drop.
	r.Post("/vaults/{vaultID}/frames", h.DropFrame)

	// Frame type registry.
	r.Get("/frame-types", h.FrameTypes)

	// Recently touched files and canvases.
	r.Get("/recent", h.Recent)

	// UI preferences.
	r.Get("/preferences/{key}", h.GetPreference)
	r.Put("/preferences/{key}", h.SetPreference)

	// Plugin state: enabled ids (global and per vault) and installed
	// remote bundles.
	r.Get("/plugins/global", h.GetGlobalPlugins)
	r.Put("/plugins/global", h.PutGlobalPlugins)
	r.Get("/vaults/{vaultID}/plugins", h.GetVaultPlugins)
	r.Put("/vaults/{vaultID}/plugins", h.PutVaultPlugins)
	r.Get("/plugins/remote", h.ListRemotePlugins)
	r.Post("/plugins/remote", h.InstallRemotePlugin)
	r.Delete("/plugins/remote/{pluginID}", h.RemoveRemotePlugin)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
