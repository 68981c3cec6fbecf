package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/atvirokodosprendimai/culturalatlas/internal/application"
	"github.com/atvirokodosprendimai/culturalatlas/internal/domain"
	"github.com/atvirokodosprendimai/culturalatlas/internal/observability"
	"github.com/atvirokodosprendimai/culturalatlas/internal/platform/logger"
	"github.com/atvirokodosprendimai/culturalatlas/internal/presentation"
	"github.com/atvirokodosprendimai/culturalatlas/internal/search"
)

const maxUploadMemory = 32 << 20

type Handler struct {
	service *application.GraphService
	log     *logger.Logger
	metrics *observability.Metrics
}

func NewRouter(service *application.GraphService, log *logger.Logger, metrics *observability.Metrics) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	h := &Handler{service: service, log: log, metrics: metrics}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.observe)

	r.Route("/api", func(api chi.Router) {
		api.Get("/entity/{id}", h.handleEntity)
		api.Get("/entities", h.handleEntities)
		api.Post("/entities", h.handleCreateEntity)
		api.Put("/entities/{id}", h.handleUpdateEntity)
		api.Delete("/entities/{id}", h.handleDeleteEntity)
		api.Get("/system_class/{class}", h.handleSystemClass)
		api.Get("/view/{view}", h.handleView)

		api.Get("/links/{id}", h.handleLinks)
		api.Put("/link/{id}", h.handleUpdateLink)
		api.Delete("/link/{id}", h.handleDeleteLink)
		api.Get("/linked/{id}", h.handleLinked)

		api.Get("/type_tree", h.handleTypeTree)
		api.Get("/type/{id}/subs", h.handleTypeSubs)
		api.Get("/type/{id}/root", h.handleTypeRoot)
		api.Post("/type/{id}/parent", h.handleTypeParent)

		api.Post("/files", h.handleUploadFiles)
		api.Get("/file/{id}", h.handleFile)

		api.Post("/traverse", h.handleTraverse)
		api.Get("/logs/{id}", h.handleLogs)
		api.Get("/classes", h.handleClasses)
		api.Get("/properties", h.handleProperties)
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	return r
}

func (h *Handler) handleEntity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	e, err := h.service.BuildEntity(r.Context(), id, application.Full)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "lp"
	}
	h.render(w, r, format, []domain.Entity{e}, true)
}

func (h *Handler) handleEntities(w http.ResponseWriter, r *http.Request) {
	ids, err := parseIDs(splitCSV(r.URL.Query().Get("ids")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.query(w, r, application.Query{IDs: ids})
}

func (h *Handler) handleSystemClass(w http.ResponseWriter, r *http.Request) {
	classes := make([]domain.SystemClass, 0)
	for _, c := range splitCSV(chi.URLParam(r, "class")) {
		classes = append(classes, domain.SystemClass(c))
	}
	h.query(w, r, application.Query{Classes: classes})
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, application.Query{View: chi.URLParam(r, "view")})
}

// query runs a listing endpoint: selection from the route, then the shared
// search, limit and format parameters.
func (h *Handler) query(w http.ResponseWriter, r *http.Request, q application.Query) {
	groups, err := search.ParseGroups(r.URL.Query()["search"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q.Groups = groups
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("limit must be an integer: %w", domain.ErrInvalidArgument))
			return
		}
		q.Limit = limit
	}
	items, err := h.service.QueryEntities(r.Context(), h.service.NewScope(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.render(w, r, strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))), items, false)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, format string, items []domain.Entity, single bool) {
	switch format {
	case "", "json":
		if single && len(items) == 1 {
			writeJSON(w, http.StatusOK, presentation.Entity(items[0]))
			return
		}
		writeJSON(w, http.StatusOK, presentation.Entities(items))
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="entities.csv"`)
		if err := presentation.WriteCSV(w, items); err != nil {
			h.log.Error("csv export failed", "error", err)
		}
	case "geojson":
		bundles, err := h.service.Bundles(r.Context(), items)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		fc, err := presentation.GeoJSON(bundles)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(fc)
	case "lp":
		bundles, err := h.service.Bundles(r.Context(), items)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		tree, err := h.service.NewScope().Tree(r.Context())
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		base := baseURL(r)
		out := make([]presentation.LPCollection, 0, len(bundles))
		for _, b := range bundles {
			out = append(out, presentation.LinkedPlaces(b, tree, base))
		}
		if single && len(out) == 1 {
			writeJSON(w, http.StatusOK, out[0])
			return
		}
		writeJSON(w, http.StatusOK, out)
	default:
		h.writeError(w, r, fmt.Errorf("unknown format %q: %w", format, domain.ErrInvalidArgument))
	}
}

func (h *Handler) handleCreateEntity(w http.ResponseWriter, r *http.Request) {
	var req application.SaveInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	req.ID = 0
	e, err := h.service.SaveEntity(r.Context(), h.service.NewScope(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, presentation.Entity(e))
}

func (h *Handler) handleUpdateEntity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req application.SaveInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	req.ID = id
	e, err := h.service.SaveEntity(r.Context(), h.service.NewScope(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presentation.Entity(e))
}

func (h *Handler) handleDeleteEntity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteEntity(r.Context(), h.service.NewScope(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLinks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	inverse, err := queryBool(r, "inverse")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	links, err := h.service.GetLinks(r.Context(), []uint{id}, splitCSV(r.URL.Query().Get("codes")), inverse)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presentation.Links(links))
}

type apiUpdateLinkRequest struct {
	TypeID       *uint  `json:"type_id"`
	Description  string `json:"description"`
	BeginFrom    string `json:"begin_from"`
	BeginTo      string `json:"begin_to"`
	BeginComment string `json:"begin_comment"`
	EndFrom      string `json:"end_from"`
	EndTo        string `json:"end_to"`
	EndComment   string `json:"end_comment"`
}

func (h *Handler) handleUpdateLink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req apiUpdateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	err := h.service.UpdateLink(r.Context(), domain.Link{
		ID:          id,
		TypeID:      req.TypeID,
		Description: req.Description,
		Timespan: domain.Timespan{
			BeginFrom:    req.BeginFrom,
			BeginTo:      req.BeginTo,
			BeginComment: req.BeginComment,
			EndFrom:      req.EndFrom,
			EndTo:        req.EndTo,
			EndComment:   req.EndComment,
		},
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteLink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteLink(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLinked(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	code := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("code")))
	if _, known := domain.LookupProperty(code); !known {
		h.writeError(w, r, fmt.Errorf("unknown property code %q: %w", code, domain.ErrInvalidArgument))
		return
	}
	inverse, err := queryBool(r, "inverse")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	safe, err := queryBool(r, "safe")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if safe {
		e, err := h.service.GetLinkedEntitySafe(r.Context(), id, code, inverse)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"entity": presentation.Entity(e)})
		return
	}
	e, err := h.service.GetLinkedEntity(r.Context(), id, code, inverse)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if e == nil {
		writeJSON(w, http.StatusOK, map[string]any{"entity": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entity": presentation.Entity(*e)})
}

func (h *Handler) handleTypeTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.service.NewScope().Tree(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"type_tree": presentation.TypeTree(tree)})
}

func (h *Handler) handleTypeSubs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	subs, err := h.service.NewScope().SubIDsOf(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subs": subs})
}

func (h *Handler) handleTypeRoot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	root, err := h.service.NewScope().RootOf(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"root": root})
}

type apiReparentRequest struct {
	ParentID uint `json:"parent_id"`
}

func (h *Handler) handleTypeParent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req apiReparentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ParentID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	if err := h.service.ReparentType(r.Context(), h.service.NewScope(), id, req.ParentID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUploadFiles(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid multipart form"})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	var referringID uint
	if raw := strings.TrimSpace(r.FormValue("entity_id")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid entity_id"})
			return
		}
		referringID = uint(parsed)
	}

	headers := r.MultipartForm.File["file"]
	uploads := make([]application.FileUpload, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		opened = append(opened, f)
		uploads = append(uploads, application.FileUpload{
			Filename:    fh.Filename,
			Description: r.FormValue("description"),
			Content:     f,
		})
	}

	ids, err := h.service.InsertFiles(r.Context(), uploads, referringID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ids": ids})
}

func (h *Handler) handleFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	rc, e, err := h.service.OpenFile(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer func() { _ = rc.Close() }()
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", e.Name))
	if _, err := io.Copy(w, rc); err != nil {
		h.log.Warn("file stream interrupted", "entity_id", id, "error", err)
	}
}

type apiTraverseRequest struct {
	StartEntityID uint     `json:"start_entity_id"`
	MaxDepth      int      `json:"max_depth"`
	Codes         []string `json:"codes"`
}

func (h *Handler) handleTraverse(w http.ResponseWriter, r *http.Request) {
	var req apiTraverseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	hops, err := h.service.Traverse(r.Context(), domain.TraverseQuery{
		StartEntityID: req.StartEntityID,
		MaxDepth:      req.MaxDepth,
		Properties:    req.Codes,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presentation.Hops(hops))
}

func (h *Handler) handleLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := h.service.ListLogs(r.Context(), id, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presentation.Logs(logs))
}

func (h *Handler) handleClasses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, presentation.Classes(h.service.Classes()))
}

func (h *Handler) handleProperties(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, presentation.Properties(h.service.Properties()))
}

// statusFor maps service errors to HTTP statuses. Geometry is checked first
// because a rejected geometry also arrives wrapped in a transaction error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidGeometry):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrInvalidOperator),
		errors.Is(err, domain.ErrTypeSelfParent),
		errors.Is(err, domain.ErrTypeCycle),
		errors.Is(err, domain.ErrReadOnlyType),
		errors.Is(err, domain.ErrTypeInUse):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, status, map[string]any{"error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	parsed, err := strconv.ParseUint(strings.TrimSpace(chi.URLParam(r, name)), 10, 64)
	if err != nil || parsed == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid " + name})
		return 0, false
	}
	return uint(parsed), true
}

func parseIDs(parts []string) ([]uint, error) {
	out := make([]uint, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("id %q must be an integer: %w", p, domain.ErrInvalidArgument)
		}
		out = append(out, uint(v))
	}
	return out, nil
}

func queryBool(r *http.Request, name string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false: %w", name, domain.ErrInvalidArgument)
	}
	return v, nil
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return scheme + "://" + r.Host
}

func splitCSV(input string) []string {
	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	return result
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
