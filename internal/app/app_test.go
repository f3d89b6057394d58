package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/sign2me/internal/capture"
	"github.com/ayusman/sign2me/internal/classifier"
	"github.com/ayusman/sign2me/internal/config"
	"github.com/ayusman/sign2me/internal/detector"
	"github.com/ayusman/sign2me/internal/feature"
	"github.com/ayusman/sign2me/internal/landmark"
	"github.com/ayusman/sign2me/internal/session"
)

// echoClient predicts whatever target it is sent.
type echoClient struct{}

func (echoClient) Predict(_ context.Context, _ []float64, target string) (classifier.Prediction, error) {
	return classifier.Prediction{Sign: target}, nil
}

func (echoClient) Latest(context.Context) (classifier.Prediction, error) {
	return classifier.Prediction{}, classifier.ErrNoPrediction
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.New()
	cfg.DataDir = t.TempDir()
	cfg.StaticDir = t.TempDir()
	cfg.Addr = "127.0.0.1:0"
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, opts Options) *App {
	t.Helper()
	if opts.Classifier == nil {
		opts.Classifier = echoClient{}
	}
	a, err := New(cfg, opts)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNew_CreatesStore(t *testing.T) {
	cfg := testConfig(t)
	newTestApp(t, cfg, Options{})

	_, err := os.Stat(cfg.DBPath())
	assert.NoError(t, err)
}

func TestNew_InvalidAlphabet(t *testing.T) {
	cfg := testConfig(t)
	cfg.Alphabet = "AZ"

	_, err := New(cfg, Options{Classifier: echoClient{}})
	assert.Error(t, err)
}

func TestApp_FeedSessionOverHTTP(t *testing.T) {
	a := newTestApp(t, testConfig(t), Options{})
	ts := httptest.NewServer(a.Server())
	defer ts.Close()

	resp, err := ts.Client().Post(ts.URL+"/api/sessions", "application/json", bytes.NewReader([]byte(`{"source":"feed"}`)))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()

	ctrl, err := a.Manager().Get(created.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, a.Feed().Push(feature.FromHand(landmark.LetterA())))
	require.Eventually(t, func() bool { return ctrl.Snapshot().Locked }, 2*time.Second, 5*time.Millisecond)

	// Camera sessions are unavailable when the camera is disabled.
	resp, err = ts.Client().Post(ts.URL+"/api/sessions", "application/json", bytes.NewReader([]byte(`{"source":"camera"}`)))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestApp_SettingsApplyToNewSessions(t *testing.T) {
	a := newTestApp(t, testConfig(t), Options{})
	ts := httptest.NewServer(a.Server())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/settings", bytes.NewReader([]byte(`{"alphabet":"W"}`)))
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ctrl, err := a.Manager().Create(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "W", ctrl.Snapshot().Target)
}

func TestApp_Serve(t *testing.T) {
	a := newTestApp(t, testConfig(t), Options{})
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- a.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestApp_PracticeWithoutCamera(t *testing.T) {
	a := newTestApp(t, testConfig(t), Options{})
	err := a.Practice(context.Background(), func(context.Context, *session.Controller) error {
		t.Fatal("presenter must not run")
		return nil
	})
	assert.ErrorIs(t, err, ErrNoCamera)
}

func TestApp_PracticeWithCamera(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that creates OpenCV matrices")
	}

	frames := capture.SolidFrames(2, 48, 64)
	defer func() {
		for i := range frames {
			frames[i].Close()
		}
	}()

	det := detector.NewMockDetector()
	det.SetHands([]landmark.Hand{landmark.LetterL()})

	cfg := testConfig(t)
	cfg.CameraEnabled = true
	a := newTestApp(t, cfg, Options{
		Camera:   capture.NewMockCamera(frames, true),
		Detector: det,
	})

	var final session.State
	err := a.Practice(context.Background(), func(ctx context.Context, c *session.Controller) error {
		updates, cancel := c.Subscribe()
		defer cancel()

		timeout := time.After(5 * time.Second)
		for {
			select {
			case s := <-updates:
				if s.Locked {
					final = s
					return nil
				}
			case <-timeout:
				return errors.New("session never locked")
			}
		}
	})
	require.NoError(t, err)

	assert.Equal(t, session.StatusCorrect, final.Status)
	assert.Equal(t, final.Target, final.PredictedSign)
	assert.Empty(t, a.Manager().IDs(), "practice session should be removed")
	assert.Greater(t, det.Calls(), 0)
}

func TestResolveStaticDir(t *testing.T) {
	assert.Equal(t, "/srv/web", resolveStaticDir("/srv/web"))

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "web"), 0o755))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	got := resolveStaticDir("")
	assert.Equal(t, "web", filepath.Base(got))
	assert.True(t, filepath.IsAbs(got))
}
