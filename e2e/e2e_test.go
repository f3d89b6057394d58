package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ayusman/sign2me/internal/app"
	"github.com/ayusman/sign2me/internal/config"
	"github.com/ayusman/sign2me/internal/session"
)

// fakeService stands in for the sign classification service. It recognizes
// V and Y from finger extension in the offset vector.
type fakeService struct {
	predicts atomic.Int32

	mu     sync.Mutex
	latest map[string]any
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/predict":
		f.predicts.Add(1)
		var req struct {
			Landmarks []float64 `json:"landmarks"`
			Target    string    `json:"target"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		sign := classify(req.Landmarks)
		resp := map[string]any{"sign": sign, "confidence": "91%"}
		if sign != req.Target {
			resp["feedback"] = "That looks like " + sign + ", try " + req.Target
		}
		json.NewEncoder(w).Encode(resp)
	case "/prediction":
		f.mu.Lock()
		latest := f.latest
		f.mu.Unlock()
		if latest == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"error": "no prediction yet"})
			return
		}
		json.NewEncoder(w).Encode(latest)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeService) setLatest(sign string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest = map[string]any{"sign": sign, "confidence": "88%"}
}

func classify(v []float64) string {
	const stride = 2
	if len(v) < 21*stride {
		return "?"
	}
	x := func(i int) float64 { return v[i*stride] }
	extended := func(tip int) bool { return v[tip*stride+1] < -0.3 }

	switch {
	case extended(8) && extended(12) && !extended(16) && !extended(20):
		return "V"
	case extended(20) && !extended(8) && x(4) > 0.15:
		return "Y"
	}
	return "?"
}

func loadHand(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "hands", name+".json"))
	if err != nil {
		t.Fatalf("load fixture %s: %v", name, err)
	}
	return data
}

type harness struct {
	t       *testing.T
	svc     *fakeService
	app     *app.App
	ts      *httptest.Server
	client  *http.Client
	session string
}

func newHarness(t *testing.T, mode string) *harness {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	svc := &fakeService{}
	classifierSrv := httptest.NewServer(svc)
	t.Cleanup(classifierSrv.Close)

	cfg := config.New()
	cfg.DataDir = t.TempDir()
	cfg.StaticDir = t.TempDir()
	cfg.ClassifierURL = classifierSrv.URL
	cfg.GatewayMode = mode
	cfg.PollInterval = 20 * time.Millisecond
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}

	a, err := app.New(cfg, app.Options{})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })

	ts := httptest.NewServer(a.Server())
	t.Cleanup(ts.Close)

	return &harness{t: t, svc: svc, app: a, ts: ts, client: ts.Client()}
}

func (h *harness) do(method, path string, body []byte) (int, []byte) {
	h.t.Helper()
	req, err := http.NewRequest(method, h.ts.URL+path, bytes.NewReader(body))
	if err != nil {
		h.t.Fatal(err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		h.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func (h *harness) state() session.State {
	h.t.Helper()
	code, body := h.do(http.MethodGet, "/api/sessions/"+h.session, nil)
	if code != http.StatusOK {
		h.t.Fatalf("GET session status = %d: %s", code, body)
	}
	var s session.State
	if err := json.Unmarshal(body, &s); err != nil {
		h.t.Fatalf("decode state: %v", err)
	}
	return s
}

func (h *harness) waitFor(desc string, ok func(session.State) bool) session.State {
	h.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		s := h.state()
		if ok(s) {
			return s
		}
		if time.Now().After(deadline) {
			h.t.Fatalf("timed out waiting for %s, last state %+v", desc, s)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (h *harness) postFrame(fixture string) {
	h.t.Helper()
	code, body := h.do(http.MethodPost, "/api/frames", loadHand(h.t, fixture))
	if code != http.StatusAccepted {
		h.t.Fatalf("POST /api/frames status = %d: %s", code, body)
	}
}

func other(letter string) string {
	if letter == "V" {
		return "letter_y"
	}
	return "letter_v"
}

func TestE2E_PushPractice(t *testing.T) {
	h := newHarness(t, config.ModePush)

	t.Run("RestrictAlphabet", func(t *testing.T) {
		code, body := h.do(http.MethodPut, "/api/settings", []byte(`{"alphabet":"vy","exclude_repeat":"true"}`))
		if code != http.StatusOK {
			t.Fatalf("PUT /api/settings status = %d: %s", code, body)
		}
		code, body = h.do(http.MethodGet, "/api/letters", nil)
		if code != http.StatusOK || !strings.Contains(string(body), `["V","Y"]`) {
			t.Fatalf("letters = %d %s", code, body)
		}
	})

	t.Run("CreateSession", func(t *testing.T) {
		code, body := h.do(http.MethodPost, "/api/sessions", []byte(`{"source":"feed"}`))
		if code != http.StatusCreated {
			t.Fatalf("POST /api/sessions status = %d: %s", code, body)
		}
		var created struct {
			ID string `json:"id"`
		}
		json.Unmarshal(body, &created)
		h.session = created.ID

		s := h.state()
		if s.Target != "V" && s.Target != "Y" {
			t.Fatalf("target %q outside the configured alphabet", s.Target)
		}
		if s.Status != session.StatusPending || s.PredictedSign != session.NoPrediction {
			t.Fatalf("initial state = %+v", s)
		}
	})

	t.Run("NoHandStaysPending", func(t *testing.T) {
		h.postFrame("no_hand")
		h.postFrame("bad_reference")
		time.Sleep(50 * time.Millisecond)

		if s := h.state(); s.Status != session.StatusPending {
			t.Fatalf("state after empty frames = %+v", s)
		}
		if n := h.svc.predicts.Load(); n != 0 {
			t.Fatalf("classifier called %d times for frames without a hand", n)
		}
	})

	t.Run("WrongLetterShowsServiceFeedback", func(t *testing.T) {
		target := h.state().Target
		h.postFrame(other(target))

		s := h.waitFor("incorrect", func(s session.State) bool { return s.Status == session.StatusIncorrect })
		if s.Locked {
			t.Fatal("incorrect state must not lock")
		}
		if !strings.Contains(s.FeedbackText, "try "+target) {
			t.Errorf("feedback = %q", s.FeedbackText)
		}
		if s.Confidence != "91%" {
			t.Errorf("confidence = %q", s.Confidence)
		}
	})

	t.Run("RightLetterLocks", func(t *testing.T) {
		target := h.state().Target
		h.postFrame("letter_" + strings.ToLower(target))

		s := h.waitFor("locked", func(s session.State) bool { return s.Locked })
		if s.Status != session.StatusCorrect || s.PredictedSign != target {
			t.Fatalf("locked state = %+v", s)
		}
		if s.FeedbackText != session.DefaultCorrectMessage {
			t.Errorf("feedback = %q", s.FeedbackText)
		}

		// Frames after the lock are not sent to the service.
		before := h.svc.predicts.Load()
		h.postFrame(other(target))
		time.Sleep(50 * time.Millisecond)
		if h.svc.predicts.Load() != before {
			t.Error("frame classified while locked")
		}
		if got := h.state(); got.PredictedSign != s.PredictedSign || got.FeedbackText != s.FeedbackText || !got.Locked {
			t.Errorf("locked state changed to %+v", got)
		}
	})

	t.Run("AdvanceDrawsTheOtherLetter", func(t *testing.T) {
		prev := h.state().Target
		code, body := h.do(http.MethodPost, "/api/sessions/"+h.session+"/advance", nil)
		if code != http.StatusOK {
			t.Fatalf("advance status = %d: %s", code, body)
		}

		s := h.state()
		if s.Target == prev {
			t.Errorf("exclude_repeat drew %s again", prev)
		}
		if s.Locked || s.Status != session.StatusPending || s.FeedbackText != "" {
			t.Errorf("state after advance = %+v", s)
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		code, body := h.do(http.MethodGet, "/metrics", nil)
		if code != http.StatusOK {
			t.Fatalf("GET /metrics status = %d", code)
		}
		for _, want := range []string{
			`sign2me_gateway_requests_total{mode="push",outcome="ok"}`,
			`sign2me_session_transitions_total{status="correct"} 1`,
			"sign2me_session_active 1",
		} {
			if !strings.Contains(string(body), want) {
				t.Errorf("metrics missing %s", want)
			}
		}
	})

	t.Run("DeleteSession", func(t *testing.T) {
		code, _ := h.do(http.MethodDelete, "/api/sessions/"+h.session, nil)
		if code != http.StatusNoContent {
			t.Fatalf("DELETE status = %d", code)
		}
		if ids := h.app.Manager().IDs(); len(ids) != 0 {
			t.Errorf("sessions left: %v", ids)
		}
	})
}

func TestE2E_PollPractice(t *testing.T) {
	h := newHarness(t, config.ModePoll)

	ctrl, err := h.app.Manager().Create(context.Background(), "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	h.session = ctrl.ID()
	target := ctrl.Snapshot().Target

	// The service has nothing yet; the session stays pending.
	time.Sleep(60 * time.Millisecond)
	if s := h.state(); s.Status != session.StatusPending {
		t.Fatalf("state before any prediction = %+v", s)
	}

	wrong := "B"
	if target == wrong {
		wrong = "C"
	}
	h.svc.setLatest(wrong)
	s := h.waitFor("incorrect", func(s session.State) bool { return s.Status == session.StatusIncorrect })
	if s.FeedbackText != session.DefaultFallbackFeedback {
		t.Errorf("feedback = %q, want fallback", s.FeedbackText)
	}

	h.svc.setLatest(strings.ToLower(target))
	h.waitFor("locked", func(s session.State) bool { return s.Locked && s.PredictedSign == target })

	if n := h.svc.predicts.Load(); n != 0 {
		t.Errorf("poll mode posted %d frames", n)
	}
}
