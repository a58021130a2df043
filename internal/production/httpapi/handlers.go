package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/romariotrain/studio-platform/internal/production/domain"
	"github.com/romariotrain/studio-platform/internal/production/models"
	"github.com/romariotrain/studio-platform/internal/production/service"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Productions handles the collection route: POST creates, GET lists.
func (h *Handler) Productions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createProduction(w, r)
	case http.MethodGet:
		h.listProductions(w, r)
	default:
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) createProduction(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req CreateProductionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid json body")
		return
	}

	p, err := h.svc.CreateProduction(r.Context(), req.Title, req.Concept, req.LengthSeconds, req.Orientation)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductionResponse(p))
}

func (h *Handler) listProductions(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("archived") == "true"

	items, err := h.svc.ListProductions(r.Context(), includeArchived)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := make([]ProductionResponse, 0, len(items))
	for i := range items {
		resp = append(resp, toProductionResponse(&items[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ProductionTree routes everything under /productions/{id}. Path shapes:
//
//	{id}
//	{id}/analyze | render | stitch | archive | unarchive
//	{id}/scenes/{sceneID}/frame | video
func (h *Handler) ProductionTree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/productions/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeErrorJSON(w, http.StatusBadRequest, "missing id")
		return
	}

	id, err := uuid.Parse(parts[0])
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid id")
		return
	}

	switch {
	case len(parts) == 1:
		h.getProduction(w, r, id)
	case len(parts) == 2 && parts[1] == "analyze":
		h.analyze(w, r, id)
	case len(parts) == 2 && parts[1] == "render":
		h.render(w, r, id)
	case len(parts) == 2 && parts[1] == "stitch":
		h.stitch(w, r, id)
	case len(parts) == 2 && parts[1] == "archive":
		h.setArchived(w, r, id, true)
	case len(parts) == 2 && parts[1] == "unarchive":
		h.setArchived(w, r, id, false)
	case len(parts) == 4 && parts[1] == "scenes":
		sceneID, err := uuid.Parse(parts[2])
		if err != nil {
			writeErrorJSON(w, http.StatusBadRequest, "invalid scene id")
			return
		}
		switch parts[3] {
		case "frame":
			h.sceneFrame(w, r, id, sceneID)
		case "video":
			h.sceneVideo(w, r, id, sceneID)
		default:
			writeErrorJSON(w, http.StatusNotFound, "not found")
		}
	default:
		writeErrorJSON(w, http.StatusNotFound, "not found")
	}
}

func (h *Handler) getProduction(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if r.Method != http.MethodGet {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	p, err := h.svc.GetProduction(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductionResponse(p))
}

func (h *Handler) analyze(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if r.Method != http.MethodPost {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	p, err := h.svc.AnalyzeBrief(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductionResponse(p))
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if r.Method != http.MethodPost {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	p, err := h.svc.KickoffRender(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	// Фан-аут идёт в фоне, поэтому 202
	writeJSON(w, http.StatusAccepted, toProductionResponse(p))
}

func (h *Handler) stitch(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var (
		p   *models.Production
		err error
	)
	switch r.Method {
	case http.MethodPost:
		p, err = h.svc.RequestStitch(r.Context(), id)
	case http.MethodGet:
		p, err = h.svc.ResolveStitch(r.Context(), id)
	case http.MethodDelete:
		p, err = h.svc.AbandonStitch(r.Context(), id)
	default:
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductionResponse(p))
}

func (h *Handler) setArchived(w http.ResponseWriter, r *http.Request, id uuid.UUID, archived bool) {
	if r.Method != http.MethodPost {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := h.svc.SetArchived(r.Context(), id, archived); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"archived": archived})
}

func (h *Handler) sceneFrame(w http.ResponseWriter, r *http.Request, id, sceneID uuid.UUID) {
	if r.Method != http.MethodPost {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sc, err := h.svc.GenerateFrame(r.Context(), id, sceneID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSceneResponse(sc))
}

func (h *Handler) sceneVideo(w http.ResponseWriter, r *http.Request, id, sceneID uuid.UUID) {
	var (
		sc  *models.Scene
		err error
	)
	switch r.Method {
	case http.MethodPost:
		sc, err = h.svc.StartSceneVideo(r.Context(), id, sceneID)
	case http.MethodGet:
		sc, err = h.svc.ResolveSceneOperation(r.Context(), id, sceneID)
	default:
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSceneResponse(sc))
}

// Uploads handles POST /uploads.
func (h *Handler) Uploads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	defer r.Body.Close()

	var req InitUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid json body")
		return
	}

	u, putURL, err := h.svc.InitUpload(r.Context(), req.FileName, req.ContentType)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, InitUploadResponse{
		Upload:    toUploadResponse(u),
		UploadURL: putURL,
	})
}

// UploadTree routes everything under /uploads/{id}. Path shapes:
//
//	{id}
//	{id}/complete
//	{id}/compress
//	{id}/compress/{resolution}
func (h *Handler) UploadTree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/uploads/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeErrorJSON(w, http.StatusBadRequest, "missing id")
		return
	}

	id, err := uuid.Parse(parts[0])
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid id")
		return
	}

	var u *models.Upload
	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		u, err = h.svc.GetUpload(r.Context(), id)
	case len(parts) == 2 && parts[1] == "complete" && r.Method == http.MethodPost:
		u, err = h.svc.CompleteUpload(r.Context(), id)
	case len(parts) == 2 && parts[1] == "compress" && r.Method == http.MethodPost:
		defer r.Body.Close()
		var req CompressRequest
		if derr := json.NewDecoder(r.Body).Decode(&req); derr != nil {
			writeErrorJSON(w, http.StatusBadRequest, "invalid json body")
			return
		}
		u, err = h.svc.RequestCompression(r.Context(), id, req.Resolution)
	case len(parts) == 3 && parts[1] == "compress" && r.Method == http.MethodGet:
		u, err = h.svc.ResolveCompression(r.Context(), id, parts[2])
	default:
		writeErrorJSON(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUploadResponse(u))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorJSON(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps orchestration errors onto HTTP statuses. Conflict
// and precondition messages pass through: they name the offending scene or
// handle and the client needs that.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound), errors.Is(err, domain.ErrNotFound):
		writeErrorJSON(w, http.StatusNotFound, "not found")
	case errors.Is(err, models.ErrConflict):
		writeErrorJSON(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrPreconditionFailed),
		errors.Is(err, models.ErrInvalidArgument),
		errors.Is(err, domain.ErrInvalidTransition):
		writeErrorJSON(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrUnavailable):
		writeErrorJSON(w, http.StatusServiceUnavailable, "upstream unavailable")
	default:
		writeErrorJSON(w, http.StatusInternalServerError, "internal error")
	}
}
