package http

import (
	"errors"
	"net/http"
	"strconv"

	"smartexpense/internal/core"
	applog "smartexpense/internal/log"
	"smartexpense/internal/storage"
)

const msgDuplicateUser = "User with that name/email may already exist."

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.backend.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, newUserView(u))
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeBodyError(w, r, err)
		return
	}

	verr := core.ValidationError{}
	u := core.User{
		Name:  p.String(verr, "name", true),
		Email: p.String(verr, "email", false),
	}
	u.Normalize()
	mergeMissing(verr, u.Validate())
	if err := verr.Err(); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.backend.CreateUser(r.Context(), u)
	if errors.Is(err, storage.ErrConflict) {
		BadRequestError(msgDuplicateUser).Write(w)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	NewJSONResponse().Status(http.StatusCreated).Body(newUserView(created)).Write(w)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.backend.DeleteUser(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "User deleted",
		applog.FieldUserID, id, applog.FieldOperation, applog.OpDelete)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// pathID reads the {id} wildcard, writing a 404 when it is not a positive
// integer.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		NotFoundError("Not found.").Write(w)
		return 0, false
	}
	return id, true
}

// writeBodyError reports a body that could not be decoded at all.
func writeBodyError(w http.ResponseWriter, r *http.Request, err error) {
	var malformed errMalformedBody
	if errors.As(err, &malformed) {
		BadRequestError(malformed.msg).Write(w)
		return
	}
	writeError(w, r, err)
}
