package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/larkmail/keepd/internal/directory"
)

func (s *Server) handleGetPrincipal(w http.ResponseWriter, r *http.Request) {
	id, err := parsePrincipalID(r)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	set, err := s.directory.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			RespondError(w, http.StatusNotFound, "not_found", "principal not found")
			return
		}
		s.logger.Error("fetching principal", "id", id, "error", err)
		RespondError(w, http.StatusInternalServerError, "internal_error", "failed to fetch principal")
		return
	}

	Respond(w, http.StatusOK, set)
}

func (s *Server) handlePutPrincipal(w http.ResponseWriter, r *http.Request) {
	id, err := parsePrincipalID(r)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	var set directory.PrincipalSet
	if err := json.NewDecoder(r.Body).Decode(&set); err != nil {
		if errors.Is(err, directory.ErrStringTooLong) {
			RespondError(w, http.StatusBadRequest, "string_too_long", err.Error())
			return
		}
		RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	set.ID = id

	if err := s.directory.Save(r.Context(), id, &set); err != nil {
		s.logger.Error("saving principal", "id", id, "error", err)
		RespondError(w, http.StatusInternalServerError, "internal_error", "failed to save principal")
		return
	}

	Respond(w, http.StatusOK, set)
}

func parsePrincipalID(r *http.Request) (uint32, error) {
	raw := chi.URLParam(r, "id")
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, errInvalidPrincipalID
	}
	return uint32(n), nil
}

var errInvalidPrincipalID = errors.New("invalid principal id")
