package http

import (
	"errors"
	"net/http"

	"smartexpense/internal/core"
	applog "smartexpense/internal/log"
	"smartexpense/internal/storage"
)

const msgDuplicateCategory = "Category may already exist."

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.backend.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]categoryView, 0, len(categories))
	for _, c := range categories {
		out = append(out, newCategoryView(c))
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeBodyError(w, r, err)
		return
	}

	verr := core.ValidationError{}
	c := core.Category{Name: p.String(verr, "name", true)}
	c.Normalize()
	mergeMissing(verr, c.Validate())
	if err := verr.Err(); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.backend.CreateCategory(r.Context(), c)
	if errors.Is(err, storage.ErrConflict) {
		BadRequestError(msgDuplicateCategory).Write(w)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	NewJSONResponse().Status(http.StatusCreated).Body(newCategoryView(created)).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.backend.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Category deleted",
		applog.FieldCategoryID, id, applog.FieldOperation, applog.OpDelete)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
