package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/habittracker/internal/logging"
	"github.com/dmitrijs2005/habittracker/internal/server/services"
)

// Resource is the CRUD surface shared by habits, dailies and tasks.
type Resource[Req, T any] interface {
	Create(ctx context.Context, userID string, req Req) (*T, error)
	Get(ctx context.Context, userID string, id int64) (*T, error)
	List(ctx context.Context, userID string, p services.ListParams) (*services.Page[T], error)
	Update(ctx context.Context, userID string, id int64, req Req) (*T, error)
	Delete(ctx context.Context, userID string, id int64) error
}

type resourceHandler[Req, T any] struct {
	svc Resource[Req, T]
	log logging.Logger
}

func mountResource[Req, T any](r chi.Router, base string, svc Resource[Req, T], log logging.Logger) {
	h := &resourceHandler[Req, T]{svc: svc, log: log}
	r.Route(base, func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

func (h *resourceHandler[Req, T]) list(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	p, ok := listParams(w, r)
	if !ok {
		return
	}
	page, err := h.svc.List(r.Context(), userID, p)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *resourceHandler[Req, T]) create(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	var req Req
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.svc.Create(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *resourceHandler[Req, T]) get(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, err := h.svc.Get(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *resourceHandler[Req, T]) update(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req Req
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.svc.Update(r.Context(), userID, id, req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *resourceHandler[Req, T]) delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathID answers 404 for ids that are not positive integers, the same as a
// missing row.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusNotFound, "Not found")
		return 0, false
	}
	return id, true
}

func listParams(w http.ResponseWriter, r *http.Request) (services.ListParams, bool) {
	q := r.URL.Query()
	p := services.ListParams{SortBy: q.Get("sortBy"), Order: q.Get("order")}

	var fields []services.FieldError
	for name, dst := range map[string]*int{"page": &p.Page, "pageSize": &p.PageSize} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			fields = append(fields, services.FieldError{Field: name, Message: name + " must be an integer."})
			continue
		}
		*dst = n
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Validation failed", Fields: fields})
		return p, false
	}
	return p, true
}
