package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pawlik/clickarena/internal/adapters/eventstore"
	"github.com/pawlik/clickarena/internal/adapters/http/api"
	"github.com/pawlik/clickarena/internal/app"
	"github.com/pawlik/clickarena/internal/config"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := config.New()
	cfg.FlushWorkerCount = 2
	cfg.PollTimeoutSeconds = 1
	cfg.PollIntervalMS = 10

	svc := app.New(cfg, eventstore.NewMemoryStore())
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}

	mux := http.NewServeMux()
	api.NewServer(svc).Register(mux)
	ts := httptest.NewServer(mux)

	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Stop(ctx)
	})
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func createBattle(t *testing.T, ts *httptest.Server, playerID string) (battleID, participantID string) {
	t.Helper()
	resp := postJSON(t, ts.URL+"/battles", map[string]any{
		"playerId": playerID, "durationSeconds": 60,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create battle: status %d", resp.StatusCode)
	}
	var created struct {
		BattleID      string `json:"battleId"`
		Status        string `json:"status"`
		ParticipantID string `json:"participantId"`
	}
	decode(t, resp, &created)
	if created.Status != "waiting" {
		t.Fatalf("expected waiting battle, got %s", created.Status)
	}
	return created.BattleID, created.ParticipantID
}

func TestBattleFlow(t *testing.T) {
	ts := newTestServer(t)
	battleID, _ := createBattle(t, ts, "alice")

	// Second player joins; the battle activates.
	resp := postJSON(t, ts.URL+"/battles/"+battleID+"/join", map[string]any{"playerId": "bob"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join: status %d", resp.StatusCode)
	}
	var joined struct {
		ParticipantID string `json:"participantId"`
		Snapshot      struct {
			Status       string `json:"status"`
			Participants []any  `json:"participants"`
		} `json:"snapshot"`
	}
	decode(t, resp, &joined)
	if joined.Snapshot.Status != "active" || len(joined.Snapshot.Participants) != 2 {
		t.Errorf("unexpected join snapshot: %+v", joined.Snapshot)
	}

	// Clicks land and return running totals.
	resp = postJSON(t, ts.URL+"/battles/"+battleID+"/clicks", map[string]any{
		"participantId":   joined.ParticipantID,
		"clickDelta":      3,
		"clientTimestamp": time.Now().Format(time.RFC3339),
		"sessionTag":      "s1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("clicks: status %d", resp.StatusCode)
	}
	var clicked struct {
		ParticipantTotal int64 `json:"participantTotal"`
		BattleTotal      int64 `json:"battleTotal"`
	}
	decode(t, resp, &clicked)
	if clicked.ParticipantTotal != 3 || clicked.BattleTotal != 3 {
		t.Errorf("unexpected totals: %+v", clicked)
	}

	// A zero delta coerces to one click.
	resp = postJSON(t, ts.URL+"/battles/"+battleID+"/clicks", map[string]any{
		"participantId": joined.ParticipantID,
		"clickDelta":    0,
	})
	decode(t, resp, &clicked)
	if clicked.ParticipantTotal != 4 {
		t.Errorf("expected coerced single click, got %+v", clicked)
	}

	// The cached snapshot endpoint serves the battle.
	getResp, err := http.Get(ts.URL + "/battles/" + battleID)
	if err != nil {
		t.Fatalf("get battle: %v", err)
	}
	var snapshotBody struct {
		Fingerprint string `json:"fingerprint"`
		Snapshot    struct {
			BattleID    string `json:"battleId"`
			TotalClicks int64  `json:"totalClicks"`
		} `json:"snapshot"`
	}
	decode(t, getResp, &snapshotBody)
	if snapshotBody.Fingerprint == "" || snapshotBody.Snapshot.BattleID != battleID {
		t.Errorf("unexpected snapshot body: %+v", snapshotBody)
	}
}

func TestUnknownBattleIs404(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/battles/missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}

	clickResp := postJSON(t, ts.URL+"/battles/missing/clicks", map[string]any{
		"participantId": "p1", "clickDelta": 1,
	})
	defer clickResp.Body.Close()
	if clickResp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for clicks, got %d", clickResp.StatusCode)
	}
}

func TestBadRequests(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/battles", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", resp.StatusCode)
	}

	missing := postJSON(t, ts.URL+"/battles", map[string]any{"durationSeconds": 60})
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for missing playerId, got %d", missing.StatusCode)
	}
}

func TestUpdatesLongPoll(t *testing.T) {
	ts := newTestServer(t)
	battleID, participantID := createBattle(t, ts, "alice")

	// An empty fingerprint never matches; the first poll returns at once.
	resp, err := http.Get(ts.URL + "/battles/" + battleID + "/updates")
	if err != nil {
		t.Fatalf("updates: %v", err)
	}
	var first struct {
		HasUpdate   bool            `json:"hasUpdate"`
		Fingerprint string          `json:"fingerprint"`
		Snapshot    json.RawMessage `json:"snapshot"`
	}
	decode(t, resp, &first)
	if !first.HasUpdate || first.Fingerprint == "" || len(first.Snapshot) == 0 {
		t.Fatalf("expected immediate update: %+v", first)
	}

	// Poll with the current fingerprint, then push enough clicks to
	// trigger the scheduled refresh.
	type pollOut struct {
		hasUpdate bool
		err       error
	}
	done := make(chan pollOut, 1)
	go func() {
		resp, err := http.Get(fmt.Sprintf("%s/battles/%s/updates?fingerprint=%s", ts.URL, battleID, first.Fingerprint))
		if err != nil {
			done <- pollOut{err: err}
			return
		}
		var out struct {
			HasUpdate bool `json:"hasUpdate"`
		}
		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			done <- pollOut{err: err}
			return
		}
		done <- pollOut{hasUpdate: out.HasUpdate}
	}()

	time.Sleep(50 * time.Millisecond)
	clickResp := postJSON(t, ts.URL+"/battles/"+battleID+"/clicks", map[string]any{
		"participantId": participantID,
		"clickDelta":    10, // the tenth click schedules a snapshot refresh
	})
	clickResp.Body.Close()

	select {
	case out := <-done:
		if out.err != nil {
			t.Fatalf("poll: %v", out.err)
		}
		if !out.hasUpdate {
			t.Error("expected the long poll to report an update")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("long poll never returned")
	}
}

func TestMatchmake(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/matchmake", map[string]any{"playerId": "bob"})
	var none struct {
		Found bool `json:"found"`
	}
	decode(t, resp, &none)
	if none.Found {
		t.Error("expected no match with no battles")
	}

	battleID, _ := createBattle(t, ts, "alice")
	resp = postJSON(t, ts.URL+"/matchmake", map[string]any{"playerId": "bob"})
	var matched struct {
		Found         bool   `json:"found"`
		BattleID      string `json:"battleId"`
		ParticipantID string `json:"participantId"`
	}
	decode(t, resp, &matched)
	if !matched.Found || matched.BattleID != battleID || matched.ParticipantID == "" {
		t.Errorf("unexpected match: %+v", matched)
	}
}

func TestContainersAndRedeem(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/containers")
	if err != nil {
		t.Fatalf("containers: %v", err)
	}
	var listing struct {
		Containers []struct {
			ID    string `json:"id"`
			Price int64  `json:"price"`
		} `json:"containers"`
	}
	decode(t, resp, &listing)
	if len(listing.Containers) != 2 {
		t.Fatalf("expected 2 containers, got %d", len(listing.Containers))
	}

	redeemResp := postJSON(t, ts.URL+"/redeem", map[string]any{
		"playerId": "alice", "containerId": "basic",
	})
	if redeemResp.StatusCode != http.StatusOK {
		t.Fatalf("redeem: status %d", redeemResp.StatusCode)
	}
	var result struct {
		Success     bool   `json:"success"`
		OutcomeKind string `json:"outcomeKind"`
		Message     string `json:"message"`
		NewBalance  int64  `json:"newBalance"`
	}
	decode(t, redeemResp, &result)
	if !result.Success || result.OutcomeKind == "" || result.Message == "" {
		t.Errorf("unexpected redeem result: %+v", result)
	}

	unknown := postJSON(t, ts.URL+"/redeem", map[string]any{
		"playerId": "alice", "containerId": "mystery",
	})
	defer unknown.Body.Close()
	if unknown.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown container, got %d", unknown.StatusCode)
	}
}

func TestRedeemInsufficientFunds(t *testing.T) {
	ts := newTestServer(t)

	// Premium costs 300 and credits at most 200 back; the balance only
	// goes down, so a 402 arrives within a handful of openings.
	for i := 0; i < 20; i++ {
		resp := postJSON(t, ts.URL+"/redeem", map[string]any{
			"playerId": "spender", "containerId": "premium",
		})
		if resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			continue
		}
		if resp.StatusCode != http.StatusPaymentRequired {
			t.Fatalf("expected 402, got %d", resp.StatusCode)
		}
		var failure struct {
			Code     string `json:"code"`
			Required int64  `json:"required"`
		}
		decode(t, resp, &failure)
		if failure.Code != "insufficient_funds" || failure.Required != 300 {
			t.Errorf("unexpected failure body: %+v", failure)
		}
		return
	}
	t.Fatal("never ran out of funds")
}

func TestStatsAndHealth(t *testing.T) {
	ts := newTestServer(t)
	createBattle(t, ts, "alice")

	resp, err := http.Get(ts.URL + "/stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	var stats map[string]any
	decode(t, resp, &stats)
	for _, key := range []string{"queueLength", "subscribers", "battlesWaiting", "battlesActive", "battlesFinished"} {
		if _, ok := stats[key]; !ok {
			t.Errorf("missing stats key %q", key)
		}
	}

	health, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	defer health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from healthz, got %d", health.StatusCode)
	}
}
