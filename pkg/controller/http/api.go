package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hearth-archive/hearth/pkg/domain/interfaces"
	"github.com/hearth-archive/hearth/pkg/domain/model"
	"github.com/hearth-archive/hearth/pkg/usecase"
	"github.com/hearth-archive/hearth/pkg/utils/errutil"
	"github.com/hearth-archive/hearth/pkg/utils/safe"
	"github.com/m-mizutani/goerr/v2"
)

const maxRequestBody = 1 << 20

type memoriesResponse struct {
	Memories []*model.Memory `json:"memories"`
}

type triggerResponse struct {
	Date    model.Date     `json:"date"`
	Trigger *model.Trigger `json:"trigger"`
}

type deliveriesResponse struct {
	Deliveries []*model.DeliveryRecord `json:"deliveries"`
}

type clientsResponse struct {
	Clients []model.ConnectedClient `json:"clients"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	safe.WriteJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusOf maps use case errors to HTTP status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, interfaces.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrAckForbidden):
		return http.StatusForbidden
	case errors.Is(err, usecase.ErrInvalidRequest),
		errors.Is(err, usecase.ErrInvalidAction),
		errors.Is(err, usecase.ErrInvalidTrigger),
		errors.Is(err, usecase.ErrInvalidRole):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	errutil.HandleHTTP(r.Context(), w, err, statusOf(err))
}

func badRequest(w http.ResponseWriter, r *http.Request, err error, msg string, values ...goerr.Option) {
	errutil.HandleHTTP(r.Context(), w, goerr.Wrap(errors.Join(usecase.ErrInvalidRequest, err), msg, values...), http.StatusBadRequest)
}

func parseLimit(r *http.Request, fallback int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, goerr.Wrap(usecase.ErrInvalidRequest, "limit must be a non-negative integer", goerr.V("limit", raw))
	}
	return n, nil
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	var req usecase.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		badRequest(w, r, err, "failed to decode chat request")
		return
	}

	resp, err := s.uc.Chat.Ask(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	safe.WriteJSON(r.Context(), w, http.StatusOK, resp)
}

// bundlesHandler accepts repeated or comma separated person_id parameters
func (s *Server) bundlesHandler(w http.ResponseWriter, r *http.Request) {
	var ids []model.PersonID
	for _, raw := range r.URL.Query()["person_id"] {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, model.PersonID(id))
			}
		}
	}
	if len(ids) == 0 {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(usecase.ErrInvalidRequest, "person_id is required"), http.StatusBadRequest)
		return
	}

	limit, err := parseLimit(r, s.uc.Ranker.TopN())
	if err != nil {
		writeError(w, r, err)
		return
	}

	memories, err := s.uc.Ranker.RankByPeople(r.Context(), ids, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	safe.WriteJSON(r.Context(), w, http.StatusOK, memoriesResponse{Memories: memories})
}

func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	memories, err := s.uc.Ranker.RankByQuery(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	safe.WriteJSON(r.Context(), w, http.StatusOK, memoriesResponse{Memories: memories})
}

// triggerTodayHandler previews detection without dispatching. An optional
// date parameter evaluates another day.
func (s *Server) triggerTodayHandler(w http.ResponseWriter, r *http.Request) {
	date := s.uc.Trigger.Today()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := model.ParseDate(raw)
		if err != nil {
			badRequest(w, r, err, "invalid date", goerr.V("date", raw))
			return
		}
		date = parsed
	}

	trigger, err := s.uc.Trigger.CheckOn(r.Context(), date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	safe.WriteJSON(r.Context(), w, http.StatusOK, triggerResponse{Date: date, Trigger: trigger})
}

func (s *Server) triggerRunHandler(w http.ResponseWriter, r *http.Request) {
	result, err := s.uc.Proactive.RunCycle(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	safe.WriteJSON(r.Context(), w, http.StatusOK, result)
}

func (s *Server) listDeliveriesHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, 50)
	if err != nil {
		writeError(w, r, err)
		return
	}

	records, err := s.uc.Delivery.List(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	safe.WriteJSON(r.Context(), w, http.StatusOK, deliveriesResponse{Deliveries: records})
}

func (s *Server) getDeliveryHandler(w http.ResponseWriter, r *http.Request) {
	id := model.DeliveryID(chi.URLParam(r, "id"))
	rec, err := s.uc.Delivery.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	safe.WriteJSON(r.Context(), w, http.StatusOK, rec)
}

func (s *Server) acknowledgeHandler(action usecase.AckAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := model.DeliveryID(chi.URLParam(r, "id"))
		rec, err := s.uc.Delivery.Acknowledge(r.Context(), id, action)
		if err != nil {
			writeError(w, r, err)
			return
		}
		safe.WriteJSON(r.Context(), w, http.StatusOK, rec)
	}
}

func (s *Server) clientsHandler(w http.ResponseWriter, r *http.Request) {
	safe.WriteJSON(r.Context(), w, http.StatusOK, clientsResponse{Clients: s.uc.Delivery.Clients()})
}
