package domain

import (
	"time"
)

type (
	PollID   string
	OptionID string
	UserID   string
	VoteID   string
)

// Poll is a single-question poll. TotalVotes is denormalized and always equals
// the number of ledger rows referencing the poll; the ledger transaction keeps
// it in sync and Recount rebuilds it from scratch.
type Poll struct {
	ID         PollID    `gorm:"column:id;type:char(26);primaryKey"`
	OwnerID    UserID    `gorm:"column:owner_id;type:char(26);not null;index:idx_polls_owner"`
	Question   string    `gorm:"column:question;type:text;not null"`
	Public     bool      `gorm:"column:public;not null;default:true"`
	TotalVotes int64     `gorm:"column:total_votes;not null;default:0"`
	Options    []Option  `gorm:"foreignKey:PollID;constraint:OnDelete:CASCADE"`
	Votes      []Vote    `gorm:"foreignKey:PollID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Option belongs to exactly one poll. Position is a stable ordering index,
// unique within the poll. Votes mirrors the ledger the same way TotalVotes does.
type Option struct {
	ID        OptionID  `gorm:"column:id;type:char(26);primaryKey"`
	PollID    PollID    `gorm:"column:poll_id;type:char(26);not null;index:idx_options_poll;uniqueIndex:uniq_options_poll_position,priority:1"`
	Label     string    `gorm:"column:label;type:text;not null"`
	Position  int       `gorm:"column:position;not null;uniqueIndex:uniq_options_poll_position,priority:2"`
	Votes     int64     `gorm:"column:votes;not null;default:0"`
	Ballots   []Vote    `gorm:"foreignKey:OptionID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Vote is one ledger row. The unique index over (poll_id, voter_id) is what
// makes concurrent first-time casts collapse into a single row.
type Vote struct {
	ID       VoteID    `gorm:"column:id;type:char(26);primaryKey"`
	PollID   PollID    `gorm:"column:poll_id;type:char(26);not null;index:idx_votes_poll;uniqueIndex:uniq_votes_poll_voter,priority:1"`
	OptionID OptionID  `gorm:"column:option_id;type:char(26);not null;index:idx_votes_option"`
	VoterID  UserID    `gorm:"column:voter_id;type:char(26);not null;index:idx_votes_voter;uniqueIndex:uniq_votes_poll_voter,priority:2"`
	CastAt   time.Time `gorm:"column:cast_at;not null"`
}

// PollStats is the read model for one poll, including the caller's own vote
// when a caller identity was supplied.
type PollStats struct {
	PollID         PollID
	Question       string
	TotalVotes     int64
	Options        []OptionStats
	CallerHasVoted bool
	CallerOptionID OptionID
}

type OptionStats struct {
	OptionID OptionID
	Label    string
	Position int
	Votes    int64
}

func (Poll) TableName() string { return "polls" }

func (Option) TableName() string { return "options" }

func (Vote) TableName() string { return "votes" }
