package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/hierarchy/internal/checksum"
	"github.com/starford/hierarchy/internal/service"
)

// Handler holds API route handlers.
type Handler struct {
	svc *service.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// GetHierarchy handles GET /api/hierarchy.
//
//	@Summary		Get the assembled page and content type listing
//	@Tags			hierarchy
//	@Produce		json
//	@Param			page	query		int	false	"1-based listing page"
//	@Success		200		{object}	HierarchyResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/hierarchy [get]
func (h *Handler) GetHierarchy(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorBody("page must be a positive integer"))
			return
		}
		page = n
	}
	res, err := h.svc.Hierarchy(r.Context(), page)
	if err != nil {
		writeError(w, "get hierarchy", err)
		return
	}
	writeJSON(w, http.StatusOK, toHierarchyResponse(res))
}

// ListContentTypes handles GET /api/content-types.
//
//	@Summary		List registered content types with their settings
//	@Tags			content-types
//	@Produce		json
//	@Success		200	{object}	ContentTypeListResponse
//	@Security		BearerAuth
//	@Router			/content-types [get]
func (h *Handler) ListContentTypes(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ContentTypes(r.Context())
	if err != nil {
		writeError(w, "list content types", err)
		return
	}
	writeJSON(w, http.StatusOK, ContentTypeListResponse{ContentTypes: views})
}

// GetPlacement handles GET /api/content-types/{name}/placement.
//
//	@Summary		Report where a content type lands in the listing
//	@Tags			content-types
//	@Produce		json
//	@Param			name	path		string	true	"Content type name"
//	@Success		200		{object}	Placement
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/content-types/{name}/placement [get]
func (h *Handler) GetPlacement(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	p, err := h.svc.Place(r.Context(), name)
	if err != nil {
		writeError(w, "place content type", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetSettings handles GET /api/settings.
//
//	@Summary		Get the hierarchy settings
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	SettingsResponse
//	@Header			200	{string}	ETag	"Settings checksum"
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, sum := h.svc.Settings(r.Context())
	w.Header().Set("ETag", checksum.ETag(sum))
	writeJSON(w, http.StatusOK, SettingsResponse{Settings: cfg, Checksum: sum})
}

// UpdateSettings handles PUT /api/settings.
//
//	@Summary		Save the hierarchy settings with optimistic concurrency
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			If-Match	header	string			false	"Settings checksum"
//	@Param			body		body	SettingsRequest	true	"Settings to save"
//	@Success		200		{object}	SettingsResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [put]
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	cfg, sum, err := h.svc.UpdateSettings(r.Context(), req, r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, "update settings", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(sum))
	writeJSON(w, http.StatusOK, SettingsResponse{Settings: cfg, Checksum: sum})
}

// Import handles POST /api/import.
//
//	@Summary		Replace the stored site with a YAML snapshot
//	@Tags			content
//	@Accept			application/yaml
//	@Produce		json
//	@Success		200	{object}	ImportResponse
//	@Failure		400	{object}	errResponse
//	@Failure		413	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/import [post]
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("snapshot too large"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	changed, err := h.svc.Import(r.Context(), data)
	if err != nil {
		writeError(w, "import snapshot", err)
		return
	}
	slog.Debug("import handled", slog.Bool("changed", changed))
	writeJSON(w, http.StatusOK, ImportResponse{Changed: changed})
}
