package voting

import (
	"time"

	"github.com/ArthurKelvin/polling-app/internal/domain"
)

// OutcomeKind is the closed set of machine-readable results a cast-vote
// attempt can have.
type OutcomeKind string

const (
	KindInserted      OutcomeKind = "inserted"
	KindUpdated       OutcomeKind = "updated"
	KindAlreadyVoted  OutcomeKind = "already_voted"
	KindAuthRequired  OutcomeKind = "auth_required"
	KindInvalidOption OutcomeKind = "invalid_option"
	KindPollNotFound  OutcomeKind = "poll_not_found"
	KindRateLimited   OutcomeKind = "rate_limited"
	KindInvalidCSRF   OutcomeKind = "invalid_csrf"
	KindStorageError  OutcomeKind = "storage_error"
)

// VoteOutcome is the structured result of one cast attempt. Expected failures
// are encoded here, not as errors; only storage/internal trouble is also
// logged.
type VoteOutcome struct {
	Success    bool
	Kind       OutcomeKind
	VoteID     domain.VoteID
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds the retry hint up so a caller sleeping that many
// whole seconds always lands past the window reset.
func (o VoteOutcome) RetryAfterSeconds() int {
	if o.RetryAfter <= 0 {
		return 0
	}
	secs := int(o.RetryAfter / time.Second)
	if o.RetryAfter%time.Second != 0 {
		secs++
	}
	return secs
}

func accepted(kind OutcomeKind, voteID domain.VoteID) VoteOutcome {
	return VoteOutcome{Success: true, Kind: kind, VoteID: voteID}
}

func rejected(kind OutcomeKind) VoteOutcome {
	return VoteOutcome{Kind: kind}
}
