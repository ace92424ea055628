// Package httpapi exposes the contact service as a JSON HTTP API.
package httpapi

import (
	"contactbook/docs/openapi"
	"contactbook/internal/blob"
	"contactbook/internal/core"
	"contactbook/pkg/domain"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// maxRequestBodySize limits request bodies.
const maxRequestBodySize = 1 << 20

// Handler routes contact API requests to the service.
type Handler struct {
	svc     *core.Service
	blobs   blob.Store
	logger  *zap.Logger
	metrics http.Handler
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the request logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetricsHandler replaces the handler served on /metrics.
func WithMetricsHandler(metrics http.Handler) Option {
	return func(h *Handler) {
		if metrics != nil {
			h.metrics = metrics
		}
	}
}

// NewHandler constructs the API handler. blobs may be nil, in which case the
// export endpoint reports 503.
func NewHandler(svc *core.Service, blobs blob.Store, opts ...Option) *Handler {
	h := &Handler{svc: svc, blobs: blobs, logger: zap.NewNop(), metrics: promhttp.Handler()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the mux wrapped with request id and logging middleware.
//
//	GET    /api/v1/contacts[?q=]
//	POST   /api/v1/contacts
//	GET    /api/v1/contacts/{code}
//	PUT    /api/v1/contacts/{code}
//	DELETE /api/v1/contacts/{code}
//	POST   /api/v1/contacts/export
//	POST   /api/v1/contacts/import[?mode=merge|replace]
//	GET    /healthz
//	GET    /metrics
//	GET    /openapi.yaml
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/contacts", h.handleList)
	mux.HandleFunc("POST /api/v1/contacts", h.handleCreate)
	mux.HandleFunc("POST /api/v1/contacts/export", h.handleExport)
	mux.HandleFunc("POST /api/v1/contacts/import", h.handleImport)
	mux.HandleFunc("GET /api/v1/contacts/{code}", h.handleGet)
	mux.HandleFunc("PUT /api/v1/contacts/{code}", h.handleUpdate)
	mux.HandleFunc("DELETE /api/v1/contacts/{code}", h.handleDelete)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.Handle("GET /metrics", h.metrics)
	mux.HandleFunc("GET /openapi.yaml", handleOpenAPI)
	return requestLogger(h.logger, mux)
}

// ContactPayload is the wire form of a contact in requests.
type ContactPayload struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Number  string `json:"number"`
}

type contactResponse struct {
	Contact    domain.Contact     `json:"contact"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

type listResponse struct {
	Contacts []domain.Contact `json:"contacts"`
}

type exportRequest struct {
	Key string `json:"key"`
}

type importResponse struct {
	core.ImportReport
	Violations []domain.Violation `json:"violations,omitempty"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.svc.FindContacts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Contacts: contacts})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	contact, err := h.svc.GetContact(r.Context(), r.PathValue("code"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contactResponse{Contact: contact})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body ContactPayload
	if !decodeBody(w, r, &body) {
		return
	}
	created, res, err := h.svc.AddContact(r.Context(), domain.NewContact(body.Code, body.Name, body.Surname, body.Number))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/contacts/"+created.Code())
	writeJSON(w, http.StatusCreated, contactResponse{Contact: created, Violations: res.Violations})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	var body ContactPayload
	if !decodeBody(w, r, &body) {
		return
	}
	incoming := domain.NewContact(body.Code, body.Name, body.Surname, body.Number)
	if incoming.Code() != "" && incoming.Code() != code {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("body code %q does not match path code %q", incoming.Code(), code))
		return
	}
	updated, res, err := h.svc.UpdateContact(r.Context(), code, func(c *domain.Contact) error {
		c.Name = incoming.Name
		c.Surname = incoming.Surname
		c.Number = incoming.Number
		return nil
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contactResponse{Contact: updated, Violations: res.Violations})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.RemoveContact(r.Context(), r.PathValue("code")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		writeError(w, http.StatusServiceUnavailable, "export storage not configured")
		return
	}
	var body exportRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &body) {
		return
	}
	info, err := h.svc.ExportContacts(r.Context(), h.blobs, strings.TrimSpace(body.Key))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	mode, err := core.ParseImportMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	report, res, err := h.svc.ImportContacts(r.Context(), r.Body, mode)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, importResponse{ImportReport: report, Violations: res.Violations})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", openapi.ContentType)
	_, _ = w.Write(openapi.Spec())
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeServiceError maps service errors onto HTTP status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var rve domain.RuleViolationError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &rve):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      err.Error(),
			"violations": rve.Result.Violations,
		})
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, core.ErrInvalidImport), errors.Is(err, domain.ErrEmptyCode):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrDuplicateCode), errors.Is(err, blob.ErrExists):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
