package registry

import (
	"errors"
	"testing"
	"time"

	"github.com/pawlik/clickarena/internal/domain/model"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func TestCreateBattleStartsWaiting(t *testing.T) {
	clock := newClock()
	r := New(WithClock(clock.Now))

	battle, creator := r.CreateBattle("alice", 0)
	if battle.Status != model.StatusWaiting {
		t.Errorf("expected waiting, got %s", battle.Status)
	}
	if battle.Duration != defaultDuration {
		t.Errorf("expected default duration, got %s", battle.Duration)
	}
	if creator.PlayerID != "alice" || !creator.IsReady {
		t.Errorf("unexpected creator: %+v", creator)
	}
}

func TestJoinActivatesBattle(t *testing.T) {
	clock := newClock()
	r := New(WithClock(clock.Now))
	battle, _ := r.CreateBattle("alice", 30*time.Second)

	clock.Advance(2 * time.Second)
	joined, joiner, err := r.JoinBattle(battle.ID, "bob")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if joined.Status != model.StatusActive {
		t.Errorf("expected active after second join, got %s", joined.Status)
	}
	if !joined.StartedAt.Equal(clock.Now()) {
		t.Errorf("start time not stamped at join")
	}
	if joiner.PlayerID != "bob" {
		t.Errorf("unexpected joiner: %+v", joiner)
	}
}

func TestJoinIsIdempotentPerPlayer(t *testing.T) {
	r := New()
	battle, creator := r.CreateBattle("alice", 0)

	again, p, err := r.JoinBattle(battle.ID, "alice")
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if again.Status != model.StatusWaiting {
		t.Error("creator rejoin must not activate the battle")
	}
	if p.ID != creator.ID {
		t.Error("rejoin should return the existing participant")
	}
}

func TestJoinErrors(t *testing.T) {
	r := New()
	if _, _, err := r.JoinBattle("nope", "bob"); !errors.Is(err, ErrBattleNotFound) {
		t.Errorf("expected ErrBattleNotFound, got %v", err)
	}

	battle, _ := r.CreateBattle("alice", 0)
	if _, _, err := r.JoinBattle(battle.ID, "bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, _, err := r.JoinBattle(battle.ID, "carol"); !errors.Is(err, ErrBattleFull) {
		t.Errorf("expected ErrBattleFull, got %v", err)
	}

	if _, err := r.Finish(battle.ID, ""); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if _, _, err := r.JoinBattle(battle.ID, "dave"); !errors.Is(err, ErrBattleFinished) {
		t.Errorf("expected ErrBattleFinished, got %v", err)
	}
}

func TestEnsureParticipantLazyCreation(t *testing.T) {
	r := New()
	battle, _ := r.CreateBattle("alice", 0)

	p, err := r.EnsureParticipant(battle.ID, "p-lazy")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if p.ID != "p-lazy" || p.IsReady {
		t.Errorf("lazy participant should not be ready: %+v", p)
	}

	same, err := r.EnsureParticipant(battle.ID, "p-lazy")
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if !same.JoinedAt.Equal(p.JoinedAt) {
		t.Error("ensure must be idempotent")
	}
}

func TestParticipantsOrderedByJoin(t *testing.T) {
	clock := newClock()
	r := New(WithClock(clock.Now))
	battle, creator := r.CreateBattle("alice", 0)
	clock.Advance(time.Second)
	_, joiner, _ := r.JoinBattle(battle.ID, "bob")

	list, err := r.Participants(battle.ID)
	if err != nil {
		t.Fatalf("participants: %v", err)
	}
	if len(list) != 2 || list[0].ID != creator.ID || list[1].ID != joiner.ID {
		t.Errorf("unexpected order: %+v", list)
	}
}

func TestFindOpponentPicksOldestWaiting(t *testing.T) {
	clock := newClock()
	r := New(WithClock(clock.Now))

	first, _ := r.CreateBattle("alice", 0)
	clock.Advance(time.Second)
	r.CreateBattle("carol", 0)

	battle, joiner, found := r.FindOpponent("bob")
	if !found {
		t.Fatal("expected a match")
	}
	if battle.ID != first.ID {
		t.Errorf("expected the oldest waiting battle, got %s", battle.ID)
	}
	if battle.Status != model.StatusActive {
		t.Errorf("matchmade battle should be active, got %s", battle.Status)
	}
	if joiner.PlayerID != "bob" {
		t.Errorf("unexpected joiner: %+v", joiner)
	}
}

func TestFindOpponentSkipsOwnBattles(t *testing.T) {
	r := New()
	r.CreateBattle("alice", 0)

	if _, _, found := r.FindOpponent("alice"); found {
		t.Error("a player must not match their own battle")
	}
}

func TestFinishSetsWinnerOnce(t *testing.T) {
	clock := newClock()
	r := New(WithClock(clock.Now))
	battle, creator := r.CreateBattle("alice", 0)
	r.JoinBattle(battle.ID, "bob")

	clock.Advance(5 * time.Second)
	done, err := r.Finish(battle.ID, creator.ID)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if done.Status != model.StatusFinished || done.WinnerID != creator.ID {
		t.Errorf("unexpected finished battle: %+v", done)
	}

	// Finishing again keeps the original winner.
	again, err := r.Finish(battle.ID, "someone-else")
	if err != nil {
		t.Fatalf("second finish: %v", err)
	}
	if again.WinnerID != creator.ID {
		t.Error("second finish must not overwrite the winner")
	}
}

func TestExpiredListsOverdueBattles(t *testing.T) {
	clock := newClock()
	r := New(WithClock(clock.Now))

	battle, _ := r.CreateBattle("alice", 10*time.Second)
	r.JoinBattle(battle.ID, "bob")
	waitingOnly, _ := r.CreateBattle("carol", 10*time.Second)

	if ids := r.Expired(clock.Now()); len(ids) != 0 {
		t.Errorf("nothing should be expired yet: %v", ids)
	}

	clock.Advance(11 * time.Second)
	ids := r.Expired(clock.Now())
	if len(ids) != 1 || ids[0] != battle.ID {
		t.Errorf("expected only the active battle to expire: %v", ids)
	}
	_ = waitingOnly
}

func TestCounts(t *testing.T) {
	r := New()
	b1, _ := r.CreateBattle("alice", 0)
	r.JoinBattle(b1.ID, "bob")
	r.CreateBattle("carol", 0)
	b3, _ := r.CreateBattle("dave", 0)
	r.Finish(b3.ID, "")

	waiting, active, finished := r.Counts()
	if waiting != 1 || active != 1 || finished != 1 {
		t.Errorf("unexpected counts: %d/%d/%d", waiting, active, finished)
	}
}

func TestRecordScore(t *testing.T) {
	r := New()
	battle, creator := r.CreateBattle("alice", 0)

	if err := r.RecordScore(battle.ID, creator.ID, 7, 7); err != nil {
		t.Fatalf("record score: %v", err)
	}
	list, _ := r.Participants(battle.ID)
	if list[0].Clicks != 7 || list[0].Score != 7 {
		t.Errorf("score not applied: %+v", list[0])
	}

	if err := r.RecordScore(battle.ID, "nope", 1, 1); !errors.Is(err, ErrParticipantNotFound) {
		t.Errorf("expected ErrParticipantNotFound, got %v", err)
	}
}
