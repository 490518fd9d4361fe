package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sqewdb/sqew/internal/apperr"
)

func (s *Server) listQueues(w http.ResponseWriter, req *http.Request) {
	queues, err := s.registry.List(req.Context())
	if err != nil {
		sendFromErr(w, err)
		return
	}
	out := make([]queueDTO, 0, len(queues))
	for i := range queues {
		out = append(out, toQueueDTO(&queues[i]))
	}
	sendJSON(w, http.StatusOK, out)
}

func (s *Server) createQueue(w http.ResponseWriter, req *http.Request) {
	var in createQueueRequest
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		sendError(w, http.StatusBadRequest, apperr.KindInvalidArg, "malformed JSON body")
		return
	}
	q, err := s.registry.Create(req.Context(), in.Name, in.MaxAttempts, in.VisibilityMs, in.DLQ)
	if err != nil {
		sendFromErr(w, err)
		return
	}
	sendJSON(w, http.StatusCreated, toQueueDTO(q))
}

func (s *Server) getQueue(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "name")
	q, err := s.registry.Get(req.Context(), name)
	if err != nil {
		sendFromErr(w, err)
		return
	}
	sendJSON(w, http.StatusOK, toQueueDTO(q))
}

func (s *Server) deleteQueue(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "name")
	if err := s.registry.Delete(req.Context(), name); err != nil {
		sendFromErr(w, err)
		return
	}
	sendNoContent(w)
}

func (s *Server) queueStats(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "name")
	st, err := s.registry.Stats(req.Context(), name)
	if err != nil {
		sendFromErr(w, err)
		return
	}
	sendJSON(w, http.StatusOK, toStatsDTO(st))
}

func (s *Server) purgeQueue(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "name")
	n, err := s.registry.Purge(req.Context(), name)
	if err != nil {
		sendFromErr(w, err)
		return
	}
	sendJSON(w, http.StatusOK, deletedResponse{Deleted: n})
}

func (s *Server) compactQueue(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "name")
	if err := s.registry.Compact(req.Context(), name); err != nil {
		sendFromErr(w, err)
		return
	}
	sendNoContent(w)
}

// queryInt reads a query-string int, returning fallback on absence or
// malformed input (validated further downstream by the engine).
func queryInt(req *http.Request, key string, fallback int64) int64 {
	v := req.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
