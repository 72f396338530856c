package voting

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ArthurKelvin/polling-app/internal/domain"
	"github.com/ArthurKelvin/polling-app/internal/platform/identity"
	"github.com/ArthurKelvin/polling-app/internal/platform/ids"
	"github.com/ArthurKelvin/polling-app/internal/platform/ratelimit"
)

func TestServiceCastVoteFirstTime(t *testing.T) {
	deps := newServiceDeps(t, defaultTestPolicies())
	svc := deps.service(false)

	owner := deps.newUser()
	voter := deps.newUser()
	poll := deps.mustCreatePoll(t, svc, owner, "Favorite color?", true, "Red", "Blue")

	out := svc.CastVote(context.Background(), CastRequest{
		Credential: voter.credential,
		PollID:     string(poll.ID),
		OptionID:   string(poll.Options[0].ID),
	})
	if !out.Success || out.Kind != KindInserted {
		t.Fatalf("expected inserted outcome, got %+v", out)
	}
	if out.VoteID == "" {
		t.Fatal("inserted outcome must carry a vote id")
	}

	stats, err := svc.GetPollStats(context.Background(), voter.id, poll.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalVotes != 1 {
		t.Fatalf("total votes = %d, want 1", stats.TotalVotes)
	}
	if stats.Options[0].Votes != 1 || stats.Options[1].Votes != 0 {
		t.Fatalf("option votes = %d/%d, want 1/0", stats.Options[0].Votes, stats.Options[1].Votes)
	}
	if !stats.CallerHasVoted || stats.CallerOptionID != poll.Options[0].ID {
		t.Fatalf("caller vote not reflected in stats: %+v", stats)
	}
}

func TestServiceCastVoteSecondCastRejectedWithoutUpdate(t *testing.T) {
	deps := newServiceDeps(t, defaultTestPolicies())
	svc := deps.service(false)

	owner := deps.newUser()
	voter := deps.newUser()
	poll := deps.mustCreatePoll(t, svc, owner, "Favorite color?", true, "Red", "Blue")

	deps.mustCast(t, svc, voter, poll.ID, poll.Options[0].ID, false)

	out := svc.CastVote(context.Background(), CastRequest{
		Credential: voter.credential,
		PollID:     string(poll.ID),
		OptionID:   string(poll.Options[1].ID),
	})
	if out.Success || out.Kind != KindAlreadyVoted {
		t.Fatalf("expected already_voted, got %+v", out)
	}

	stats, err := svc.GetPollStats(context.Background(), "", poll.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalVotes != 1 || stats.Options[0].Votes != 1 || stats.Options[1].Votes != 0 {
		t.Fatalf("stats changed by rejected cast: %+v", stats)
	}
}

func TestServiceCastVoteUpdateMovesOptionCounts(t *testing.T) {
	deps := newServiceDeps(t, defaultTestPolicies())
	svc := deps.service(false)

	owner := deps.newUser()
	voter := deps.newUser()
	poll := deps.mustCreatePoll(t, svc, owner, "Favorite color?", true, "Red", "Blue")

	deps.mustCast(t, svc, voter, poll.ID, poll.Options[0].ID, false)

	out := svc.CastVote(context.Background(), CastRequest{
		Credential:  voter.credential,
		PollID:      string(poll.ID),
		OptionID:    string(poll.Options[1].ID),
		AllowUpdate: true,
	})
	if !out.Success || out.Kind != KindUpdated {
		t.Fatalf("expected updated, got %+v", out)
	}

	stats, err := svc.GetPollStats(context.Background(), "", poll.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalVotes != 1 {
		t.Fatalf("update must not change the poll total, got %d", stats.TotalVotes)
	}
	if stats.Options[0].Votes != 0 || stats.Options[1].Votes != 1 {
		t.Fatalf("option votes = %d/%d, want 0/1", stats.Options[0].Votes, stats.Options[1].Votes)
	}
}

func TestServiceCastVoteUpdateSameOptionIsIdempotent(t *testing.T) {
	deps := newServiceDeps(t, defaultTestPolicies())
	svc := deps.service(false)

	owner := deps.newUser()
	voter := deps.newUser()
	poll := deps.mustCreatePoll(t, svc, owner, "Favorite color?", true, "Red", "Blue")

	deps.mustCast(t, svc, voter, poll.ID, poll.Options[0].ID, true)

	out := svc.CastVote(context.Background(), CastRequest{
		Credential:  voter.credential,
		PollID:      string(poll.ID),
		OptionID:    string(poll.Options[0].ID),
		AllowUpdate: true,
	})
	if out.Kind != KindUpdated {
		t.Fatalf("expected updated, got %+v", out)
	}

	stats, err := svc.GetPollStats(context.Background(), "", poll.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalVotes != 1 || stats.Options[0].Votes != 1 {
		t.Fatalf("idempotent update changed counts: %+v", stats)
	}
}

func TestServiceCastVoteOptionFromAnotherPoll(t *testing.T) {
	deps := newServiceDeps(t, defaultTestPolicies())
	svc := deps.service(false)

	owner := deps.newUser()
	voter := deps.newUser()
	pollA := deps.mustCreatePoll(t, svc, owner, "Poll A?", true, "A1", "A2")
	pollB := deps.mustCreatePoll(t, svc, owner, "Poll B?", true, "B1", "B2")

	out := svc.CastVote(context.Background(), CastRequest{
		Credential: voter.credential,
		PollID:     string(pollA.ID),
		OptionID:   string(pollB.Options[0].ID),
	})
	if out.Success || out.Kind != KindInvalidOption {
		t.Fatalf("expected invalid_option, got %+v", out)
	}
}

func TestServiceCastVoteGateOrdering(t *testing.T) {
	deps := newServiceDeps(t, defaultTestPolicies())
	svc := deps.service(false)

	owner := deps.newUser()
	voter := deps.newUser()
	poll := deps.mustCreatePoll(t, svc, owner, "Favorite color?", true, "Red", "Blue")

	tests := []struct {
		name string
		req  CastRequest
		want OutcomeKind
	}{
		{
			name: "bad credential",
			req:  CastRequest{Credential: "nobody.forged", PollID: string(poll.ID), OptionID: string(poll.Options[0].ID)},
			want: KindAuthRequired,
		},
		{
			name: "wrong csrf token",
			req:  CastRequest{Credential: voter.credential, CSRFToken: "bogus", PollID: string(poll.ID), OptionID: string(poll.Options[0].ID)},
			want: KindInvalidCSRF,
		},
		{
			name: "malformed poll id",
			req:  CastRequest{Credential: voter.credential, PollID: "not-a-ulid", OptionID: string(poll.Options[0].ID)},
			want: KindPollNotFound,
		},
		{
			name: "malformed option id",
			req:  CastRequest{Credential: voter.credential, PollID: string(poll.ID), OptionID: "not-a-ulid"},
			want: KindInvalidOption,
		},
		{
			name: "unknown poll",
			req:  CastRequest{Credential: voter.credential, PollID: deps.idGen.New(), OptionID: string(poll.Options[0].ID)},
			want: KindPollNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := svc.CastVote(context.Background(), tt.req)
			if out.Kind != tt.want {
				t.Fatalf("kind = %s, want %s", out.Kind, tt.want)
			}
			if out.Success {
				t.Fatal("gate failures must not be successful")
			}
		})
	}

	stats, err := svc.GetPollStats(context.Background(), "", poll.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalVotes != 0 {
		t.Fatalf("rejected casts mutated state: %+v", stats)
	}
}

func TestServiceCastVoteCSRFToken(t *testing.T) {
	deps := newServiceDeps(t, defaultTestPolicies())
	voter := deps.newUser()

	owner := deps.newUser()
	relaxed := deps.service(false)
	poll := deps.mustCreatePoll(t, relaxed, owner, "Favorite color?", true, "Red", "Blue")

	// Valid token is accepted.
	out := relaxed.CastVote(context.Background(), CastRequest{
		Credential: voter.credential,
		CSRFToken:  deps.csrf.TokenFor(voter.id),
		PollID:     string(poll.ID),
		OptionID:   string(poll.Options[0].ID),
	})
	if out.Kind != KindInserted {
		t.Fatalf("valid csrf token rejected: %+v", out)
	}

	// Absent token is tolerated in relaxed mode but not in strict mode.
	strict := deps.service(true)
	out = strict.CastVote(context.Background(), CastRequest{
		Credential:  voter.credential,
		PollID:      string(poll.ID),
		OptionID:    string(poll.Options[0].ID),
		AllowUpdate: true,
	})
	if out.Kind != KindInvalidCSRF {
		t.Fatalf("strict mode must reject a missing csrf token, got %+v", out)
	}
}

func TestServiceCastVotePrivatePollHiddenFromNonOwner(t *testing.T) {
	deps := newServiceDeps(t, defaultTestPolicies())
	svc := deps.service(false)

	owner := deps.newUser()
	stranger := deps.newUser()
	poll := deps.mustCreatePoll(t, svc, owner, "Private question?", false, "Yes", "No")

	out := svc.CastVote(context.Background(), CastRequest{
		Credential: stranger.credential,
		PollID:     string(poll.ID),
		OptionID:   string(poll.Options[0].ID),
	})
	if out.Kind != KindPollNotFound {
		t.Fatalf("private poll leaked to non-owner: %+v", out)
	}

	out = svc.CastVote(context.Background(), CastRequest{
		Credential: owner.credential,
		PollID:     string(poll.ID),
		OptionID:   string(poll.Options[0].ID),
	})
	if out.Kind != KindInserted {
		t.Fatalf("owner should be able to vote on own private poll: %+v", out)
	}

	if _, err := svc.GetPollStats(context.Background(), stranger.id, poll.ID); err != ErrPollNotFound {
		t.Fatalf("private poll stats leaked to non-owner: %v", err)
	}
}

func TestServiceCastVoteRateLimitBoundary(t *testing.T) {
	deps := newServiceDeps(t, defaultTestPolicies())
	svc := deps.service(false)

	owner := deps.newUser()
	voter := deps.newUser()
	poll := deps.mustCreatePoll(t, svc, owner, "Favorite color?", true, "Red", "Blue")

	// Quota is 5 vote attempts per minute; the first cast inserts, the next
	// four are admitted but land on already_voted.
	for i := 0; i < 5; i++ {
		out := svc.CastVote(context.Background(), CastRequest{
			Credential: voter.credential,
			PollID:     string(poll.ID),
			OptionID:   string(poll.Options[0].ID),
		})
		if out.Kind == KindRateLimited {
			t.Fatalf("attempt %d should have been admitted", i+1)
		}
	}

	out := svc.CastVote(context.Background(), CastRequest{
		Credential: voter.credential,
		PollID:     string(poll.ID),
		OptionID:   string(poll.Options[0].ID),
	})
	if out.Kind != KindRateLimited {
		t.Fatalf("6th attempt in the window must be rate limited, got %+v", out)
	}
	if secs := out.RetryAfterSeconds(); secs <= 0 || secs > 60 {
		t.Fatalf("retry-after %d out of range (0, 60]", secs)
	}

	// After the window passes the voter is admitted again.
	deps.fakeClock.Advance(61 * time.Second)
	deps.clock.now = deps.clock.now.Add(61 * time.Second)

	out = svc.CastVote(context.Background(), CastRequest{
		Credential: voter.credential,
		PollID:     string(poll.ID),
		OptionID:   string(poll.Options[0].ID),
	})
	if out.Kind != KindAlreadyVoted {
		t.Fatalf("after window reset expected already_voted, got %+v", out)
	}
}

func TestServiceCastVoteConcurrentFirstCasts(t *testing.T) {
	policies := defaultTestPolicies()
	policies[domain.ActionVote] = ratelimit.Policy{Limit: 1000, Window: time.Minute}
	deps := newServiceDeps(t, policies)
	svc := deps.service(false)

	owner := deps.newUser()
	voter := deps.newUser()
	poll := deps.mustCreatePoll(t, svc, owner, "Favorite color?", true, "Red", "Blue")

	const n = 16
	outcomes := make([]VoteOutcome, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = svc.CastVote(context.Background(), CastRequest{
				Credential: voter.credential,
				PollID:     string(poll.ID),
				OptionID:   string(poll.Options[0].ID),
			})
		}(i)
	}
	wg.Wait()

	var inserted, alreadyVoted int
	for _, out := range outcomes {
		switch out.Kind {
		case KindInserted:
			inserted++
		case KindAlreadyVoted:
			alreadyVoted++
		default:
			t.Fatalf("unexpected outcome under race: %+v", out)
		}
	}
	if inserted != 1 || alreadyVoted != n-1 {
		t.Fatalf("race collapsed wrong: %d inserted, %d already_voted", inserted, alreadyVoted)
	}

	stats, err := svc.GetPollStats(context.Background(), "", poll.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalVotes != 1 || stats.Options[0].Votes != 1 {
		t.Fatalf("race left wrong counts: %+v", stats)
	}
}

func TestServiceWithdrawVote(t *testing.T) {
	deps := newServiceDeps(t, defaultTestPolicies())
	svc := deps.service(false)

	owner := deps.newUser()
	voter := deps.newUser()
	poll := deps.mustCreatePoll(t, svc, owner, "Favorite color?", true, "Red", "Blue")

	deps.mustCast(t, svc, voter, poll.ID, poll.Options[0].ID, false)

	voted, err := svc.HasVoted(context.Background(), voter.id, poll.ID)
	if err != nil || !voted {
		t.Fatalf("HasVoted = %v, %v; want true", voted, err)
	}

	vote, err := svc.GetUserVote(context.Background(), voter.id, poll.ID)
	if err != nil {
		t.Fatalf("GetUserVote: %v", err)
	}
	if vote.OptionID != poll.Options[0].ID {
		t.Fatalf("GetUserVote option = %s, want %s", vote.OptionID, poll.Options[0].ID)
	}

	if err := svc.WithdrawVote(context.Background(), voter.credential, string(poll.ID)); err != nil {
		t.Fatalf("WithdrawVote: %v", err)
	}

	voted, err = svc.HasVoted(context.Background(), voter.id, poll.ID)
	if err != nil || voted {
		t.Fatalf("HasVoted after withdraw = %v, %v; want false", voted, err)
	}

	stats, err := svc.GetPollStats(context.Background(), "", poll.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalVotes != 0 || stats.Options[0].Votes != 0 {
		t.Fatalf("withdraw left counts behind: %+v", stats)
	}

	if err := svc.WithdrawVote(context.Background(), voter.credential, string(poll.ID)); err != ErrVoteNotFound {
		t.Fatalf("second withdraw = %v, want ErrVoteNotFound", err)
	}
}

func TestServiceCreatePollValidation(t *testing.T) {
	deps := newServiceDeps(t, defaultTestPolicies())
	svc := deps.service(false)
	owner := deps.newUser()

	if _, err := svc.CreatePoll(context.Background(), owner.credential, "", true, []string{"A", "B"}); err == nil {
		t.Fatal("empty question must be rejected")
	}
	if _, err := svc.CreatePoll(context.Background(), owner.credential, "Q?", true, []string{"only one"}); err == nil {
		t.Fatal("one option must be rejected")
	}

	labels := make([]string, 11)
	for i := range labels {
		labels[i] = "opt"
	}
	if _, err := svc.CreatePoll(context.Background(), owner.credential, "Q?", true, labels); err == nil {
		t.Fatal("eleven options must be rejected")
	}

	if _, err := svc.CreatePoll(context.Background(), "bad.credential", "Q?", true, []string{"A", "B"}); err != ErrUnauthenticated {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestServiceDeletePollOwnerOnly(t *testing.T) {
	deps := newServiceDeps(t, defaultTestPolicies())
	svc := deps.service(false)

	owner := deps.newUser()
	stranger := deps.newUser()
	poll := deps.mustCreatePoll(t, svc, owner, "Q?", true, "A", "B")

	err := svc.DeletePoll(context.Background(), stranger.credential, string(poll.ID))
	if err != ErrNotOwner {
		t.Fatalf("stranger delete = %v, want ErrNotOwner", err)
	}
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("ownership failure must carry the forbidden sentinel, got %v", err)
	}

	if err := svc.DeletePoll(context.Background(), owner.credential, string(poll.ID)); err != nil {
		t.Fatalf("owner delete: %v", err)
	}

	if _, err := svc.GetPollStats(context.Background(), "", poll.ID); err != ErrPollNotFound {
		t.Fatalf("deleted poll still visible: %v", err)
	}
}

// --- test dependencies -----------------------------------------------------

type testUser struct {
	id         domain.UserID
	credential string
}

type serviceDeps struct {
	store     *memoryStore
	limiter   *ratelimit.MemoryLimiter
	auth      *identity.TokenAuthenticator
	csrf      *identity.CSRFGuard
	clock     *staticClock
	fakeClock clockwork.FakeClock
	idGen     *ids.Generator
	baseTime  time.Time
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func defaultTestPolicies() map[domain.Action]ratelimit.Policy {
	policies := ratelimit.DefaultPolicies()
	// Plenty of headroom for tests that create several polls.
	policies[domain.ActionCreatePoll] = ratelimit.Policy{Limit: 100, Window: time.Minute}
	policies[domain.ActionViewPoll] = ratelimit.Policy{Limit: 1000, Window: time.Minute}
	return policies
}

func newServiceDeps(t *testing.T, policies map[domain.Action]ratelimit.Policy) *serviceDeps {
	t.Helper()
	base := time.Date(2026, 2, 1, 20, 0, 0, 0, time.UTC)
	fakeClock := clockwork.NewFakeClockAt(base)

	return &serviceDeps{
		store:     newMemoryStore(),
		limiter:   ratelimit.NewMemoryLimiter(fakeClock, policies),
		auth:      identity.NewTokenAuthenticator("test-session-secret"),
		csrf:      identity.NewCSRFGuard("test-csrf-secret"),
		clock:     &staticClock{now: base},
		fakeClock: fakeClock,
		idGen:     ids.NewGenerator(),
		baseTime:  base,
	}
}

func (d *serviceDeps) service(csrfRequired bool) *Service {
	return NewService(
		d.store,
		d.store,
		d.limiter,
		d.auth,
		d.csrf,
		d.clock,
		d.idGen,
		discardLogger(),
		csrfRequired,
	)
}

func (d *serviceDeps) newUser() testUser {
	id := domain.UserID(d.idGen.New())
	return testUser{id: id, credential: d.auth.Issue(id)}
}

func (d *serviceDeps) mustCreatePoll(t *testing.T, svc *Service, owner testUser, question string, public bool, labels ...string) domain.Poll {
	t.Helper()
	poll, err := svc.CreatePoll(context.Background(), owner.credential, question, public, labels)
	if err != nil {
		t.Fatalf("creating poll: %v", err)
	}
	return poll
}

func (d *serviceDeps) mustCast(t *testing.T, svc *Service, voter testUser, pollID domain.PollID, optionID domain.OptionID, allowUpdate bool) {
	t.Helper()
	out := svc.CastVote(context.Background(), CastRequest{
		Credential:  voter.credential,
		PollID:      string(pollID),
		OptionID:    string(optionID),
		AllowUpdate: allowUpdate,
	})
	if !out.Success {
		t.Fatalf("cast failed: %+v", out)
	}
}

type staticClock struct {
	now time.Time
}

func (s *staticClock) Now() time.Time {
	return s.now
}

// memoryStore implements both the poll repository and the vote ledger over a
// single mutex so cast-plus-tally is atomic, mirroring the real transaction.
type memoryStore struct {
	mu    sync.Mutex
	polls map[domain.PollID]*domain.Poll
	votes map[string]domain.Vote
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		polls: make(map[domain.PollID]*domain.Poll),
		votes: make(map[string]domain.Vote),
	}
}

func voteKey(pollID domain.PollID, voterID domain.UserID) string {
	return string(pollID) + "|" + string(voterID)
}

func (m *memoryStore) Create(_ context.Context, p domain.Poll) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := p
	stored.Options = append([]domain.Option(nil), p.Options...)
	m.polls[p.ID] = &stored
	return nil
}

func (m *memoryStore) FindByID(_ context.Context, id domain.PollID) (domain.Poll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.polls[id]
	if !ok {
		return domain.Poll{}, domain.ErrNotFound
	}
	out := *p
	out.Options = append([]domain.Option(nil), p.Options...)
	return out, nil
}

func (m *memoryStore) Delete(_ context.Context, id domain.PollID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.polls[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.polls, id)
	for key, vote := range m.votes {
		if vote.PollID == id {
			delete(m.votes, key)
		}
	}
	return nil
}

func (m *memoryStore) ListPublic(_ context.Context) ([]domain.Poll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.Poll
	for _, p := range m.polls {
		if p.Public {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (m *memoryStore) ListIDs(_ context.Context) ([]domain.PollID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pollIDs := make([]domain.PollID, 0, len(m.polls))
	for id := range m.polls {
		pollIDs = append(pollIDs, id)
	}
	return pollIDs, nil
}

func (m *memoryStore) Cast(_ context.Context, vote domain.Vote, allowUpdate bool) (domain.CastResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	poll, ok := m.polls[vote.PollID]
	if !ok {
		return domain.CastResult{}, domain.ErrNotFound
	}

	key := voteKey(vote.PollID, vote.VoterID)
	existing, exists := m.votes[key]

	if !exists {
		m.votes[key] = vote
		m.bumpOption(poll, vote.OptionID, 1)
		poll.TotalVotes++
		return domain.CastResult{Outcome: domain.CastInserted, VoteID: vote.ID}, nil
	}

	if !allowUpdate {
		return domain.CastResult{Outcome: domain.CastConflict}, nil
	}

	result := domain.CastResult{Outcome: domain.CastUpdated, VoteID: existing.ID}
	if existing.OptionID != vote.OptionID {
		m.bumpOption(poll, existing.OptionID, -1)
		m.bumpOption(poll, vote.OptionID, 1)
		result.PreviousOptionID = existing.OptionID
	}
	existing.OptionID = vote.OptionID
	existing.CastAt = vote.CastAt
	m.votes[key] = existing
	return result, nil
}

func (m *memoryStore) FindByVoter(_ context.Context, pollID domain.PollID, voterID domain.UserID) (domain.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vote, ok := m.votes[voteKey(pollID, voterID)]
	if !ok {
		return domain.Vote{}, domain.ErrNotFound
	}
	return vote, nil
}

func (m *memoryStore) DeleteByVoter(_ context.Context, pollID domain.PollID, voterID domain.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := voteKey(pollID, voterID)
	vote, ok := m.votes[key]
	if !ok {
		return domain.ErrNotFound
	}
	delete(m.votes, key)
	if poll, ok := m.polls[pollID]; ok {
		m.bumpOption(poll, vote.OptionID, -1)
		poll.TotalVotes--
	}
	return nil
}

func (m *memoryStore) Recount(_ context.Context, pollID domain.PollID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	poll, ok := m.polls[pollID]
	if !ok {
		return domain.ErrNotFound
	}
	poll.TotalVotes = 0
	for i := range poll.Options {
		poll.Options[i].Votes = 0
	}
	for _, vote := range m.votes {
		if vote.PollID != pollID {
			continue
		}
		poll.TotalVotes++
		m.bumpOption(poll, vote.OptionID, 1)
	}
	return nil
}

func (m *memoryStore) bumpOption(poll *domain.Poll, optionID domain.OptionID, delta int64) {
	for i := range poll.Options {
		if poll.Options[i].ID == optionID {
			poll.Options[i].Votes += delta
			return
		}
	}
}

var (
	_ domain.PollRepository = (*memoryStore)(nil)
	_ domain.VoteLedger     = (*memoryStore)(nil)
)
