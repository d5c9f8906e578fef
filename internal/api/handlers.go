// Package api exposes the text document operations over HTTP.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/quillmark/text-analyzer/internal/auth"
	"github.com/quillmark/text-analyzer/internal/errs"
	"github.com/quillmark/text-analyzer/internal/obs"
	"github.com/quillmark/text-analyzer/internal/texts"
)

// TextRequest is the body of create and update calls.
type TextRequest struct {
	Content string `json:"content"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler serves the text document endpoints.
type Handler struct {
	texts *texts.Service
}

// NewHandler creates the HTTP handler over the texts service.
func NewHandler(svc *texts.Service) *Handler {
	return &Handler{texts: svc}
}

// Chain wraps a handler in per-route middleware, e.g. the authorization gate
// and the rate limiter.
type Chain func(http.Handler) http.Handler

// RegisterRoutes mounts all endpoints on mux. Every route is wrapped by
// protect, which must establish the caller's identity before the handlers
// run.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, protect Chain) {
	mux.Handle("POST /texts", protect(http.HandlerFunc(h.createText)))
	mux.Handle("GET /texts/{id}", protect(http.HandlerFunc(h.getText)))
	mux.Handle("PUT /texts/{id}", protect(http.HandlerFunc(h.updateText)))
	mux.Handle("DELETE /texts/{id}", protect(http.HandlerFunc(h.deleteText)))
	mux.Handle("GET /texts/{id}/analysis", protect(http.HandlerFunc(h.getAnalysis)))
	mux.Handle("GET /auth/validate", protect(http.HandlerFunc(h.validateAuth)))
}

func (h *Handler) createText(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTextRequest(w, r)
	if !ok {
		return
	}

	rec, err := h.texts.Create(r.Context(), auth.SubjectFromContext(r.Context()), req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) getText(w http.ResponseWriter, r *http.Request) {
	rec, err := h.texts.Read(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) updateText(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTextRequest(w, r)
	if !ok {
		return
	}

	rec, err := h.texts.Update(r.Context(), r.PathValue("id"), auth.SubjectFromContext(r.Context()), req.Content)
	if err != nil {
		// Update reports both a missing record and a wrong owner as a bad
		// request, so a caller probing ids they do not own learns nothing
		// from the status code.
		if errs.CodeOf(err) == errs.NotFound {
			err = errs.New(errs.InvalidArgument, errs.MessageOf(err))
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) deleteText(w http.ResponseWriter, r *http.Request) {
	err := h.texts.Delete(r.Context(), r.PathValue("id"), auth.SubjectFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.texts.GetAnalysis(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if analysis == nil {
		writeError(w, r, errs.New(errs.NotFound, "analysis not yet computed"))
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// validateAuth echoes the verified identity. Clients use it to check a
// stored credential without touching any document.
func (h *Handler) validateAuth(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, errs.New(errs.Unauthenticated, "no verified identity"))
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

func decodeTextRequest(w http.ResponseWriter, r *http.Request) (TextRequest, bool) {
	var req TextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, errs.New(errs.InvalidArgument, "invalid request body"))
		return TextRequest{}, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obs.Pkg("api").Error("failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errs.CodeOf(err)
	status := errs.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		obs.From(r.Context()).Error("request failed", "code", code, "err", err)
	}
	writeJSON(w, status, ErrorResponse{Error: errs.MessageOf(err)})
}
