package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sqewdb/sqew/internal/apperr"
	"github.com/sqewdb/sqew/internal/config"
	"github.com/sqewdb/sqew/internal/engine"
)

func (s *Server) peekMessages(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "name")
	limit := int(queryInt(req, "limit", 50))
	msgs, err := s.engine.Peek(req.Context(), name, limit)
	if err != nil {
		sendFromErr(w, err)
		return
	}
	out := make([]messageDTO, 0, len(msgs))
	for i := range msgs {
		out = append(out, toMessageDTO(&msgs[i]))
	}
	sendJSON(w, http.StatusOK, out)
}

func (s *Server) peekMessageByID(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "name")
	id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
	if err != nil {
		sendError(w, http.StatusBadRequest, apperr.KindInvalidArg, "id must be an integer")
		return
	}
	m, err := s.engine.Get(req.Context(), name, id)
	if err != nil {
		sendFromErr(w, err)
		return
	}
	sendJSON(w, http.StatusOK, toMessageDTO(m))
}

func (s *Server) removeMessage(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "name")
	id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
	if err != nil {
		sendError(w, http.StatusBadRequest, apperr.KindInvalidArg, "id must be an integer")
		return
	}
	if err := s.engine.Remove(req.Context(), name, id); err != nil {
		sendFromErr(w, err)
		return
	}
	sendNoContent(w)
}

func (s *Server) enqueueMessage(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "name")
	if !s.limiters.allow(name) {
		sendError(w, http.StatusTooManyRequests, apperr.KindOverload, "rate limit exceeded for queue "+name)
		return
	}

	var in enqueueRequest
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		sendError(w, http.StatusBadRequest, apperr.KindInvalidArg, "malformed JSON body")
		return
	}

	input := engine.EnqueueInput{
		QueueName:      name,
		Payload:        in.Payload,
		DelayMs:        in.DelayMs,
		Priority:       in.Priority,
		IdempotencyKey: in.IdempotencyKey,
	}
	if in.TTLMs != nil {
		input.HasTTL = true
		input.TTLMs = *in.TTLMs
	}

	res, err := s.engine.Enqueue(req.Context(), input)
	if err != nil {
		sendFromErr(w, err)
		return
	}
	sendJSON(w, http.StatusCreated, enqueueResponse{ID: res.ID, Deduplicated: res.Deduplicated})
}

func (s *Server) pollMessages(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "name")
	batch := int(queryInt(req, "batch", 10))
	waitMs := queryInt(req, "wait_ms", 0)
	if waitMs > config.MaxLongPollMs {
		waitMs = config.MaxLongPollMs
	}

	var in pollRequest
	if req.ContentLength != 0 {
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			sendError(w, http.StatusBadRequest, apperr.KindInvalidArg, "malformed JSON body")
			return
		}
	}
	if in.WaitMs > 0 {
		waitMs = in.WaitMs
		if waitMs > config.MaxLongPollMs {
			waitMs = config.MaxLongPollMs
		}
	}

	res, err := s.engine.Lease(req.Context(), engine.LeaseInput{
		QueueName:            name,
		Batch:                batch,
		VisibilityOverrideMs: in.VisibilityMs,
		ConsumerTag:          req.Header.Get("X-Consumer-Tag"),
		WaitMs:               waitMs,
	})
	if err != nil {
		sendFromErr(w, err)
		return
	}
	out := make([]leasedMessageDTO, 0, len(res.Messages))
	for _, m := range res.Messages {
		out = append(out, toLeasedMessageDTO(m))
	}
	sendJSON(w, http.StatusOK, pollResponse{Messages: out})
}

func (s *Server) ackMessages(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "name")
	var in ackRequest
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		sendError(w, http.StatusBadRequest, apperr.KindInvalidArg, "malformed JSON body")
		return
	}
	items := make([]engine.AckItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, engine.AckItem{ID: it.ID, Token: it.Token})
	}
	results, err := s.engine.Ack(req.Context(), name, items)
	if err != nil {
		sendFromErr(w, err)
		return
	}
	out := make([]ackResultDTO, 0, len(results))
	for _, r := range results {
		out = append(out, ackResultDTO{ID: r.ID, Outcome: r.Outcome})
	}
	sendJSON(w, http.StatusOK, resultsResponse[ackResultDTO]{Results: out})
}

func (s *Server) nackMessages(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "name")
	var in nackRequest
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		sendError(w, http.StatusBadRequest, apperr.KindInvalidArg, "malformed JSON body")
		return
	}
	items := make([]engine.NackItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, engine.NackItem{ID: it.ID, Token: it.Token})
	}
	results, err := s.engine.Nack(req.Context(), name, items, in.DelayMs)
	if err != nil {
		sendFromErr(w, err)
		return
	}
	out := make([]nackResultDTO, 0, len(results))
	for _, r := range results {
		out = append(out, nackResultDTO{ID: r.ID, Outcome: r.Outcome, AvailableAt: r.AvailableAt})
	}
	sendJSON(w, http.StatusOK, resultsResponse[nackResultDTO]{Results: out})
}

func (s *Server) extendLease(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "name")
	var in extendRequest
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		sendError(w, http.StatusBadRequest, apperr.KindInvalidArg, "malformed JSON body")
		return
	}
	newExpiry, err := s.engine.ExtendLease(req.Context(), name, in.ID, in.Token, in.ExtendMs)
	if err != nil {
		sendFromErr(w, err)
		return
	}
	sendJSON(w, http.StatusOK, extendResponse{LeaseExpiresAt: newExpiry})
}
