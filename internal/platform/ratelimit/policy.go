// Package ratelimit provides fixed-window admission control per
// (subject, action) key, either in-process or shared via Redis.
package ratelimit

import (
	"time"

	"github.com/ArthurKelvin/polling-app/internal/domain"
)

// Policy is the quota for one action: at most Limit admissions per Window.
type Policy struct {
	Limit  int
	Window time.Duration
}

func DefaultPolicies() map[domain.Action]Policy {
	return map[domain.Action]Policy{
		domain.ActionVote:       {Limit: 5, Window: time.Minute},
		domain.ActionCreatePoll: {Limit: 3, Window: time.Minute},
		domain.ActionDeletePoll: {Limit: 3, Window: time.Minute},
		domain.ActionViewPoll:   {Limit: 60, Window: time.Minute},
	}
}
