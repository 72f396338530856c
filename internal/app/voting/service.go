// Package voting implements the vote-casting engine: admission, referential
// validation, the ledger write and the read model behind it.
package voting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ArthurKelvin/polling-app/internal/domain"
	"github.com/ArthurKelvin/polling-app/internal/platform/ids"
	"github.com/ArthurKelvin/polling-app/internal/platform/metrics"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrRateLimited     = errors.New("rate limited")
	ErrInvalidPoll     = errors.New("invalid poll")
	ErrPollNotFound    = errors.New("poll not found")
	ErrNotOwner        = fmt.Errorf("%w: caller does not own the poll", domain.ErrForbidden)
	ErrVoteNotFound    = errors.New("vote not found")
)

const (
	minOptions = 2
	maxOptions = 10
)

// Service sequences every cast through the same gates: identity, CSRF,
// structural validation, rate limit, referential validation, ledger. It holds
// no per-request state.
type Service struct {
	polls    domain.PollRepository
	ledger   domain.VoteLedger
	limiter  domain.RateLimiter
	identity domain.Identity
	csrf     domain.CSRFVerifier
	clock    domain.Clock
	ids      *ids.Generator
	logger   *slog.Logger

	// csrfRequired disables the legacy tolerance for requests that carry no
	// CSRF token at all.
	csrfRequired bool
}

func NewService(
	polls domain.PollRepository,
	ledger domain.VoteLedger,
	limiter domain.RateLimiter,
	identity domain.Identity,
	csrf domain.CSRFVerifier,
	clock domain.Clock,
	idsGen *ids.Generator,
	logger *slog.Logger,
	csrfRequired bool,
) *Service {
	if idsGen == nil {
		idsGen = ids.DefaultGenerator()
	}
	return &Service{
		polls:        polls,
		ledger:       ledger,
		limiter:      limiter,
		identity:     identity,
		csrf:         csrf,
		clock:        clock,
		ids:          idsGen,
		logger:       logger,
		csrfRequired: csrfRequired,
	}
}

// CastRequest carries one cast attempt. PollID and OptionID arrive raw from
// the caller and are validated structurally before anything touches storage.
type CastRequest struct {
	Credential  string
	PollID      string
	OptionID    string
	AllowUpdate bool
	CSRFToken   string
}

// CastVote is the public entry point of the engine. Every failure maps to an
// outcome kind; nothing mutates state before the ledger step.
func (s *Service) CastVote(ctx context.Context, req CastRequest) VoteOutcome {
	start := time.Now()
	out := s.castVote(ctx, req)
	metrics.ObserveCastOutcome(string(out.Kind))
	metrics.ObserveCastDuration(time.Since(start).Seconds())
	return out
}

func (s *Service) castVote(ctx context.Context, req CastRequest) VoteOutcome {
	userID, err := s.identity.Authenticate(ctx, req.Credential)
	if err != nil {
		return rejected(KindAuthRequired)
	}

	if req.CSRFToken == "" {
		// Tolerated for backward compatibility unless strict mode is on.
		if s.csrfRequired {
			return rejected(KindInvalidCSRF)
		}
	} else if !s.csrf.Verify(userID, req.CSRFToken) {
		return rejected(KindInvalidCSRF)
	}

	// A malformed id can never name an existing row, so structural failures
	// collapse into the corresponding not-found kinds.
	if !ids.Valid(req.PollID) {
		return rejected(KindPollNotFound)
	}
	if !ids.Valid(req.OptionID) {
		return rejected(KindInvalidOption)
	}

	decision, err := s.limiter.Admit(ctx, userID, domain.ActionVote)
	if err != nil {
		s.logger.Error("rate limiter unavailable", "err", err, "user", userID)
		return rejected(KindStorageError)
	}
	if !decision.Allowed {
		metrics.IncRateLimited(string(domain.ActionVote))
		out := rejected(KindRateLimited)
		out.RetryAfter = decision.ResetAt.Sub(s.clock.Now())
		return out
	}

	pollID := domain.PollID(req.PollID)
	optionID := domain.OptionID(req.OptionID)

	poll, err := s.polls.FindByID(ctx, pollID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return rejected(KindPollNotFound)
		}
		s.logger.Error("poll lookup failed", "err", err, "poll", pollID, "user", userID)
		return rejected(KindStorageError)
	}

	// A private poll is votable only by its owner; its existence is not
	// revealed to anyone else.
	if !poll.Public && poll.OwnerID != userID {
		return rejected(KindPollNotFound)
	}

	if !pollHasOption(poll, optionID) {
		return rejected(KindInvalidOption)
	}

	vote := domain.Vote{
		ID:       domain.VoteID(s.ids.New()),
		PollID:   pollID,
		OptionID: optionID,
		VoterID:  userID,
		CastAt:   s.clock.Now(),
	}

	result, err := s.ledger.Cast(ctx, vote, req.AllowUpdate)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// The poll (or option) was deleted between validation and write;
			// the foreign key caught it.
			return rejected(KindPollNotFound)
		}
		s.logger.Error("ledger cast failed", "err", err, "poll", pollID, "user", userID)
		return rejected(KindStorageError)
	}

	switch result.Outcome {
	case domain.CastInserted:
		return accepted(KindInserted, result.VoteID)
	case domain.CastUpdated:
		return accepted(KindUpdated, result.VoteID)
	case domain.CastConflict:
		return rejected(KindAlreadyVoted)
	default:
		s.logger.Error("unknown cast outcome", "outcome", result.Outcome, "poll", pollID, "user", userID)
		return rejected(KindStorageError)
	}
}

// CreatePoll validates and persists a poll with its options in one shot.
func (s *Service) CreatePoll(ctx context.Context, credential, question string, public bool, optionLabels []string) (domain.Poll, error) {
	ownerID, err := s.identity.Authenticate(ctx, credential)
	if err != nil {
		return domain.Poll{}, ErrUnauthenticated
	}

	if err := s.admit(ctx, ownerID, domain.ActionCreatePoll); err != nil {
		return domain.Poll{}, err
	}

	if question == "" {
		return domain.Poll{}, fmt.Errorf("%w: question required", ErrInvalidPoll)
	}
	if len(optionLabels) < minOptions || len(optionLabels) > maxOptions {
		return domain.Poll{}, fmt.Errorf("%w: between %d and %d options required", ErrInvalidPoll, minOptions, maxOptions)
	}

	poll := domain.Poll{
		ID:       domain.PollID(s.ids.New()),
		OwnerID:  ownerID,
		Question: question,
		Public:   public,
	}

	options := make([]domain.Option, len(optionLabels))
	for i, label := range optionLabels {
		if label == "" {
			return domain.Poll{}, fmt.Errorf("%w: empty option label", ErrInvalidPoll)
		}
		options[i] = domain.Option{
			ID:       domain.OptionID(s.ids.New()),
			PollID:   poll.ID,
			Label:    label,
			Position: i,
		}
	}
	poll.Options = options

	if err := s.polls.Create(ctx, poll); err != nil {
		return domain.Poll{}, err
	}

	return poll, nil
}

// DeletePoll removes a poll, cascading to its options and votes. Owner only.
func (s *Service) DeletePoll(ctx context.Context, credential, rawPollID string) error {
	userID, err := s.identity.Authenticate(ctx, credential)
	if err != nil {
		return ErrUnauthenticated
	}

	if !ids.Valid(rawPollID) {
		return ErrPollNotFound
	}
	pollID := domain.PollID(rawPollID)

	if err := s.admit(ctx, userID, domain.ActionDeletePoll); err != nil {
		return err
	}

	poll, err := s.polls.FindByID(ctx, pollID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrPollNotFound
		}
		return err
	}

	if poll.OwnerID != userID {
		return ErrNotOwner
	}

	return s.polls.Delete(ctx, pollID)
}

// WithdrawVote removes the caller's own vote. The caller's identity is the
// lookup key; there is no way to address another voter's row.
func (s *Service) WithdrawVote(ctx context.Context, credential, rawPollID string) error {
	userID, err := s.identity.Authenticate(ctx, credential)
	if err != nil {
		return ErrUnauthenticated
	}

	if !ids.Valid(rawPollID) {
		return ErrVoteNotFound
	}

	err = s.ledger.DeleteByVoter(ctx, domain.PollID(rawPollID), userID)
	if errors.Is(err, domain.ErrNotFound) {
		return ErrVoteNotFound
	}
	return err
}

func (s *Service) HasVoted(ctx context.Context, userID domain.UserID, pollID domain.PollID) (bool, error) {
	_, err := s.ledger.FindByVoter(ctx, pollID, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) GetUserVote(ctx context.Context, userID domain.UserID, pollID domain.PollID) (domain.Vote, error) {
	vote, err := s.ledger.FindByVoter(ctx, pollID, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Vote{}, ErrVoteNotFound
	}
	return vote, err
}

// GetPollStats returns the read model for one poll. caller may be empty for
// anonymous reads of public polls.
func (s *Service) GetPollStats(ctx context.Context, caller domain.UserID, pollID domain.PollID) (domain.PollStats, error) {
	if caller != "" {
		if err := s.admit(ctx, caller, domain.ActionViewPoll); err != nil {
			return domain.PollStats{}, err
		}
	}

	poll, err := s.polls.FindByID(ctx, pollID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.PollStats{}, ErrPollNotFound
		}
		return domain.PollStats{}, err
	}

	if !poll.Public && poll.OwnerID != caller {
		return domain.PollStats{}, ErrPollNotFound
	}

	stats := domain.PollStats{
		PollID:     poll.ID,
		Question:   poll.Question,
		TotalVotes: poll.TotalVotes,
		Options:    make([]domain.OptionStats, len(poll.Options)),
	}
	for i, opt := range poll.Options {
		stats.Options[i] = domain.OptionStats{
			OptionID: opt.ID,
			Label:    opt.Label,
			Position: opt.Position,
			Votes:    opt.Votes,
		}
	}

	if caller != "" {
		vote, err := s.ledger.FindByVoter(ctx, pollID, caller)
		switch {
		case err == nil:
			stats.CallerHasVoted = true
			stats.CallerOptionID = vote.OptionID
		case errors.Is(err, domain.ErrNotFound):
			// no vote yet
		default:
			return domain.PollStats{}, err
		}
	}

	return stats, nil
}

func (s *Service) ListPublicPolls(ctx context.Context) ([]domain.Poll, error) {
	return s.polls.ListPublic(ctx)
}

// RecountPoll rebuilds the denormalized counters for one poll from the ledger.
func (s *Service) RecountPoll(ctx context.Context, pollID domain.PollID) error {
	return s.ledger.Recount(ctx, pollID)
}

func (s *Service) admit(ctx context.Context, subject domain.UserID, action domain.Action) error {
	decision, err := s.limiter.Admit(ctx, subject, action)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		metrics.IncRateLimited(string(action))
		return fmt.Errorf("%w: retry at %s", ErrRateLimited, decision.ResetAt.UTC().Format(time.RFC3339))
	}
	return nil
}

func pollHasOption(poll domain.Poll, optionID domain.OptionID) bool {
	for _, opt := range poll.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}
