package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/LarsVonQualen/quick-api/internal/document"
	"github.com/LarsVonQualen/quick-api/internal/errs"
)

// ---------- helpers ----------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.ErrorWith("request failed", err, map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		})
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errs.IsNotFound(err):
		return http.StatusNotFound
	case errs.IsInvalidInput(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func readObject(r *http.Request) (document.Object, error) {
	defer r.Body.Close()
	var obj document.Object
	if err := json.NewDecoder(r.Body).Decode(&obj); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "request body is not a JSON object", err)
	}
	return obj, nil
}

// intParam parses a numeric query value; anything unparseable counts as absent.
func intParam(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// ---------- endpoints ----------

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.writeError(w, r, errs.Wrap(errs.ErrKindIOFailure, "storage unreachable", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listObjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	objs, err := s.store.List(r.Context(), chi.URLParam(r, "bucket"),
		q.Get("sort"), intParam(q.Get("page")), intParam(q.Get("pageSize")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, objs)
}

func (s *Server) createObject(w http.ResponseWriter, r *http.Request) {
	value, err := readObject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.store.Create(r.Context(), chi.URLParam(r, "bucket"), value)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (s *Server) getObject(w http.ResponseWriter, r *http.Request) {
	obj, err := s.store.Get(r.Context(), chi.URLParam(r, "bucket"), chi.URLParam(r, "key"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

func (s *Server) updateObject(w http.ResponseWriter, r *http.Request) {
	patch, err := readObject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	echoed, err := s.store.Update(r.Context(), chi.URLParam(r, "bucket"), chi.URLParam(r, "key"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, echoed)
}

func (s *Server) removeObject(w http.ResponseWriter, r *http.Request) {
	removed, err := s.store.Remove(r.Context(), chi.URLParam(r, "bucket"), chi.URLParam(r, "key"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, removed)
}
