package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ArthurKelvin/polling-app/internal/domain"
)

// VoteLedger owns the one-row-per-(poll,voter) invariant. Correctness under
// concurrent casts rests on the unique index over (poll_id, voter_id), never
// on an application-level existence check: Cast inserts first and classifies
// the constraint violation if one comes back.
type VoteLedger struct {
	db *gorm.DB
}

func NewVoteLedger(db *gorm.DB) *VoteLedger {
	return &VoteLedger{db: db}
}

// Cast records vote for (vote.PollID, vote.VoterID) atomically with the tally
// adjustment. When a row already exists it is overwritten in place if
// allowUpdate is set, otherwise the result is tagged Conflict with no
// mutation. A foreign-key violation (poll or option deleted between
// validation and write) surfaces as domain.ErrNotFound.
func (l *VoteLedger) Cast(ctx context.Context, vote domain.Vote, allowUpdate bool) (domain.CastResult, error) {
	var result domain.CastResult

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Postgres aborts the whole transaction on any statement error, so the
		// insert is guarded by a savepoint: rolling back to it after a unique
		// violation keeps the transaction usable for the update branch.
		if err := tx.SavePoint("cast").Error; err != nil {
			return fmt.Errorf("gorm votes: savepoint: %w", err)
		}

		fresh := vote
		insertErr := tx.Create(&fresh).Error

		if insertErr == nil {
			if err := adjustTallies(tx, fresh.PollID, fresh.OptionID, +1); err != nil {
				return err
			}
			if err := adjustPollTotal(tx, fresh.PollID, +1); err != nil {
				return err
			}
			result = domain.CastResult{Outcome: domain.CastInserted, VoteID: fresh.ID}
			return nil
		}

		if errors.Is(insertErr, gorm.ErrForeignKeyViolated) {
			return domain.ErrNotFound
		}
		if !errors.Is(insertErr, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("gorm votes: insert: %w", insertErr)
		}
		if err := tx.RollbackTo("cast").Error; err != nil {
			return fmt.Errorf("gorm votes: rollback to savepoint: %w", err)
		}

		// A row for this (poll, voter) pair exists: either it was there all
		// along or a concurrent first cast won the insert race. Both collapse
		// into the same two outcomes.
		if !allowUpdate {
			result = domain.CastResult{Outcome: domain.CastConflict}
			return nil
		}

		var existing domain.Vote
		if err := tx.First(&existing, "poll_id = ? AND voter_id = ?", vote.PollID, vote.VoterID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// The conflicting row vanished under us; the poll is going away.
				return domain.ErrNotFound
			}
			return fmt.Errorf("gorm votes: load existing: %w", err)
		}

		if err := tx.Model(&domain.Vote{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{
				"option_id": vote.OptionID,
				"cast_at":   vote.CastAt,
			}).Error; err != nil {
			return fmt.Errorf("gorm votes: update: %w", err)
		}

		result = domain.CastResult{Outcome: domain.CastUpdated, VoteID: existing.ID}

		if existing.OptionID != vote.OptionID {
			// One voter, one vote: option counts shift, the poll total does not.
			if err := adjustTallies(tx, vote.PollID, existing.OptionID, -1); err != nil {
				return err
			}
			if err := adjustTallies(tx, vote.PollID, vote.OptionID, +1); err != nil {
				return err
			}
			result.PreviousOptionID = existing.OptionID
		}

		return nil
	})
	if err != nil {
		return domain.CastResult{}, err
	}
	return result, nil
}

func (l *VoteLedger) FindByVoter(ctx context.Context, pollID domain.PollID, voterID domain.UserID) (domain.Vote, error) {
	var vote domain.Vote
	if err := l.db.WithContext(ctx).
		First(&vote, "poll_id = ? AND voter_id = ?", pollID, voterID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Vote{}, domain.ErrNotFound
		}
		return domain.Vote{}, fmt.Errorf("gorm votes: find by voter: %w", err)
	}
	return vote, nil
}

// DeleteByVoter removes the voter's row and decrements the tallies in the
// same transaction. This is the only NoVote transition besides cascade.
func (l *VoteLedger) DeleteByVoter(ctx context.Context, pollID domain.PollID, voterID domain.UserID) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Vote
		if err := tx.First(&existing, "poll_id = ? AND voter_id = ?", pollID, voterID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("gorm votes: load for delete: %w", err)
		}

		if err := tx.Delete(&domain.Vote{}, "id = ?", existing.ID).Error; err != nil {
			return fmt.Errorf("gorm votes: delete: %w", err)
		}

		if err := adjustTallies(tx, pollID, existing.OptionID, -1); err != nil {
			return err
		}
		return adjustPollTotal(tx, pollID, -1)
	})
}

// Recount rebuilds the denormalized counters for one poll from the ledger
// rows. The counters are projections; whenever they disagree with the ledger,
// this is the repair.
func (l *VoteLedger) Recount(ctx context.Context, pollID domain.PollID) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`
            UPDATE options
            SET votes = (SELECT COUNT(*) FROM votes WHERE votes.option_id = options.id)
            WHERE poll_id = ?
        `, pollID).Error; err != nil {
			return fmt.Errorf("gorm votes: recount options: %w", err)
		}

		if err := tx.Exec(`
            UPDATE polls
            SET total_votes = (SELECT COUNT(*) FROM votes WHERE votes.poll_id = polls.id)
            WHERE id = ?
        `, pollID).Error; err != nil {
			return fmt.Errorf("gorm votes: recount poll total: %w", err)
		}

		return nil
	})
}

func adjustTallies(tx *gorm.DB, pollID domain.PollID, optionID domain.OptionID, delta int64) error {
	res := tx.Model(&domain.Option{}).
		Where("id = ? AND poll_id = ?", optionID, pollID).
		Update("votes", gorm.Expr("votes + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("gorm options: adjust votes: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func adjustPollTotal(tx *gorm.DB, pollID domain.PollID, delta int64) error {
	res := tx.Model(&domain.Poll{}).
		Where("id = ?", pollID).
		Update("total_votes", gorm.Expr("total_votes + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("gorm polls: adjust total: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.VoteLedger = (*VoteLedger)(nil)
