package domain

import (
	"context"
	"time"
)

type PollRepository interface {
	Create(ctx context.Context, p Poll) error
	FindByID(ctx context.Context, id PollID) (Poll, error)
	Delete(ctx context.Context, id PollID) error
	ListPublic(ctx context.Context) ([]Poll, error)
	ListIDs(ctx context.Context) ([]PollID, error)
}

// CastOutcome tags what the ledger actually did with a cast attempt. Conflict
// means a row for (poll, voter) already existed and updates were not allowed;
// deciding how to present that is the caller's job, not the storage layer's.
type CastOutcome int

const (
	CastInserted CastOutcome = iota + 1
	CastUpdated
	CastConflict
)

type CastResult struct {
	Outcome CastOutcome
	VoteID  VoteID
	// PreviousOptionID is set on CastUpdated when the voter switched options.
	PreviousOptionID OptionID
}

// VoteLedger is the authoritative one-vote-per-user-per-poll store. Cast must
// be atomic: the row write and the denormalized tally adjustment either both
// commit or neither does.
type VoteLedger interface {
	Cast(ctx context.Context, vote Vote, allowUpdate bool) (CastResult, error)
	FindByVoter(ctx context.Context, pollID PollID, voterID UserID) (Vote, error)
	DeleteByVoter(ctx context.Context, pollID PollID, voterID UserID) error
	// Recount rebuilds option and poll counters from the ledger rows. The
	// counters are derived state; the ledger always wins.
	Recount(ctx context.Context, pollID PollID) error
}

type Action string

const (
	ActionVote       Action = "vote"
	ActionCreatePoll Action = "create_poll"
	ActionDeletePoll Action = "delete_poll"
	ActionViewPoll   Action = "view_poll"
)

// Decision is the rate limiter's answer for one attempt. A rejected attempt
// has not consumed a slot.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type RateLimiter interface {
	Admit(ctx context.Context, subject UserID, action Action) (Decision, error)
}

// Identity resolves a request-scoped credential to a stable user id. It is
// consulted on every call; sessions can expire between two requests.
type Identity interface {
	Authenticate(ctx context.Context, credential string) (UserID, error)
}

// CSRFVerifier answers whether a token is valid for the given user. The engine
// only consumes the boolean; issuing tokens lives with the HTTP layer.
type CSRFVerifier interface {
	Verify(userID UserID, token string) bool
}

type Clock interface {
	Now() time.Time
}
