// Package httpapi exposes the REST handlers and translates HTTP requests into
// voting service calls. It is a consumer of the engine, not part of it.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ArthurKelvin/polling-app/internal/app/voting"
	"github.com/ArthurKelvin/polling-app/internal/domain"
)

type API struct {
	service  *voting.Service
	identity domain.Identity
	logger   *slog.Logger
}

func New(service *voting.Service, identity domain.Identity, logger *slog.Logger) *API {
	return &API{service: service, identity: identity, logger: logger}
}

func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/polls", a.handlePolls)
	mux.HandleFunc("/polls/", a.handlePollDetails)
	mux.HandleFunc("/votes", a.handleVotes)
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (a *API) handlePolls(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listPolls(w, r)
	case http.MethodPost:
		a.createPoll(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (a *API) handlePollDetails(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/polls/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}

	id := domain.PollID(parts[0])

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		a.pollStats(w, r, id)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		a.deletePoll(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "vote" && r.Method == http.MethodGet:
		a.userVote(w, r, id)
	case len(parts) == 2 && parts[1] == "vote" && r.Method == http.MethodDelete:
		a.withdrawVote(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

func (a *API) handleVotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	a.castVote(w, r)
}

type createPollRequest struct {
	Question string   `json:"question"`
	Public   *bool    `json:"public"`
	Options  []string `json:"options"`
}

func (a *API) createPoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	public := true
	if req.Public != nil {
		public = *req.Public
	}

	poll, err := a.service.CreatePoll(r.Context(), bearerToken(r), req.Question, public, req.Options)
	if err != nil {
		a.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, poll)
}

func (a *API) listPolls(w http.ResponseWriter, r *http.Request) {
	polls, err := a.service.ListPublicPolls(r.Context())
	if err != nil {
		a.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, polls)
}

func (a *API) deletePoll(w http.ResponseWriter, r *http.Request, pollID string) {
	if err := a.service.DeletePoll(r.Context(), bearerToken(r), pollID); err != nil {
		a.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type castVoteRequest struct {
	PollID      string `json:"poll_id"`
	OptionID    string `json:"option_id"`
	AllowUpdate bool   `json:"allow_update"`
}

type voteOutcomeResponse struct {
	Success           bool   `json:"success"`
	Kind              string `json:"kind"`
	VoteID            string `json:"vote_id,omitempty"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

func (a *API) castVote(w http.ResponseWriter, r *http.Request) {
	var req castVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	outcome := a.service.CastVote(r.Context(), voting.CastRequest{
		Credential:  bearerToken(r),
		PollID:      req.PollID,
		OptionID:    req.OptionID,
		AllowUpdate: req.AllowUpdate,
		CSRFToken:   r.Header.Get("X-CSRF-Token"),
	})

	status := statusForOutcome(outcome.Kind)
	if outcome.Kind == voting.KindRateLimited {
		w.Header().Set("Retry-After", strconv.Itoa(outcome.RetryAfterSeconds()))
	}

	respondJSON(w, status, voteOutcomeResponse{
		Success:           outcome.Success,
		Kind:              string(outcome.Kind),
		VoteID:            string(outcome.VoteID),
		RetryAfterSeconds: outcome.RetryAfterSeconds(),
	})
}

func (a *API) pollStats(w http.ResponseWriter, r *http.Request, id domain.PollID) {
	caller, ok := a.optionalCaller(w, r)
	if !ok {
		return
	}

	stats, err := a.service.GetPollStats(r.Context(), caller, id)
	if err != nil {
		a.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (a *API) userVote(w http.ResponseWriter, r *http.Request, id domain.PollID) {
	caller, err := a.identity.Authenticate(r.Context(), bearerToken(r))
	if err != nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	vote, err := a.service.GetUserVote(r.Context(), caller, id)
	if err != nil {
		a.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, vote)
}

func (a *API) withdrawVote(w http.ResponseWriter, r *http.Request, pollID string) {
	if err := a.service.WithdrawVote(r.Context(), bearerToken(r), pollID); err != nil {
		a.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// optionalCaller resolves the bearer credential when one is present. A
// missing credential is an anonymous read; an invalid one is rejected.
func (a *API) optionalCaller(w http.ResponseWriter, r *http.Request) (domain.UserID, bool) {
	token := bearerToken(r)
	if token == "" {
		return "", true
	}
	caller, err := a.identity.Authenticate(r.Context(), token)
	if err != nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return "", false
	}
	return caller, true
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return token
	}
	return ""
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (a *API) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := err.Error()

	switch {
	case errors.Is(err, voting.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, voting.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, voting.ErrInvalidPoll):
		status = http.StatusBadRequest
	case errors.Is(err, voting.ErrPollNotFound), errors.Is(err, voting.ErrVoteNotFound), errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	default:
		// Never leak storage error text to the caller.
		a.logger.Error("request failed", "err", err)
		message = "internal error"
	}

	respondJSON(w, status, map[string]string{"error": message})
}

func statusForOutcome(kind voting.OutcomeKind) int {
	switch kind {
	case voting.KindInserted:
		return http.StatusCreated
	case voting.KindUpdated:
		return http.StatusOK
	case voting.KindAlreadyVoted:
		return http.StatusConflict
	case voting.KindAuthRequired:
		return http.StatusUnauthorized
	case voting.KindInvalidCSRF:
		return http.StatusForbidden
	case voting.KindInvalidOption:
		return http.StatusBadRequest
	case voting.KindPollNotFound:
		return http.StatusNotFound
	case voting.KindRateLimited:
		return http.StatusTooManyRequests
	case voting.KindStorageError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
