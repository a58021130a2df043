package httpapi

import "net/http"

func NewRouter(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", h.Health)

	// POST /productions, GET /productions
	mux.HandleFunc("/productions", h.Productions)

	// всё под /productions/{id} — trailing slash, чтобы handler мог TrimPrefix
	mux.HandleFunc("/productions/", h.ProductionTree)

	// POST /uploads
	mux.HandleFunc("/uploads", h.Uploads)

	// всё под /uploads/{id}
	mux.HandleFunc("/uploads/", h.UploadTree)

	return mux
}
