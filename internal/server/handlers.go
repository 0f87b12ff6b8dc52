package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/claude/repflow/internal/ingest"
	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/storage"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 10 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var snap models.WorkoutSnapshot
	if err := decodeBody(w, r, &snap); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if snap.Tree.Workout.ID == "" {
		snap.Tree.Workout.ID = id
	}
	if snap.Tree.Workout.ID != id {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "workout id does not match path"})
		return
	}

	result, err := s.sync.IngestSnapshot(r.Context(), snap)
	if err != nil {
		s.writeIngestError(w, "snapshot", id, err)
		return
	}
	writeJSON(w, http.StatusOK, result.Push())
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var upd models.SetUpdate
	if err := decodeBody(w, r, &upd); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if upd.Set.ID == "" {
		upd.Set.ID = id
	}
	if upd.Set.ID != id {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "set id does not match path"})
		return
	}

	result, err := s.sync.IngestSet(r.Context(), upd)
	if err != nil {
		s.writeIngestError(w, "set", id, err)
		return
	}
	writeJSON(w, http.StatusOK, result.Push())
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	stored, err := s.db.GetWorkout(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workout not found"})
		return
	}
	if err != nil {
		s.log.Error("get workout error", "workout_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	refs, err := s.db.ListWorkouts(r.Context(), chi.URLParam(r, "member"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if refs == nil {
		refs = []storage.WorkoutRef{}
	}
	writeJSON(w, http.StatusOK, refs)
}

func (s *Server) handlePushLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	logs, err := s.db.QueryPushLogs(r.Context(), chi.URLParam(r, "member"), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if logs == nil {
		logs = []storage.PushLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) writeIngestError(w http.ResponseWriter, kind, id string, err error) {
	var ve *ingest.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Error()})
		return
	}
	s.log.Error("ingest error", "kind", kind, "id", id, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
