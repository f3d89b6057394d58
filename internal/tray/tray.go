// Package tray provides a system tray interface for a practice session.
package tray

import (
	"context"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/sign2me/internal/session"
)

// Session is the part of a practice session the tray drives.
type Session interface {
	Subscribe() (<-chan session.State, func())
	Advance(ctx context.Context) (session.State, error)
}

// View is the menu text for one session state.
type View struct {
	Title      string
	Target     string
	Predicted  string
	Feedback   string
	CanAdvance bool
}

// Render maps a state onto menu text.
func Render(s session.State) View {
	v := View{
		Title:      "Sign " + s.Target,
		Target:     "Target: " + s.Target,
		Predicted:  "Detected: " + s.PredictedSign,
		Feedback:   s.FeedbackText,
		CanAdvance: s.Locked,
	}
	switch s.Status {
	case session.StatusCorrect:
		v.Title = "✓ " + s.Target
	case session.StatusIncorrect:
		v.Title = "✗ " + s.Target
	}
	if v.Feedback == "" {
		v.Feedback = "Show your hand to the camera"
	}
	return v
}

// Tray represents the system tray application.
type Tray struct {
	sess       Session
	onSettings func()
	onQuit     func()
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuTarget    *systray.MenuItem
	menuPredicted *systray.MenuItem
	menuFeedback  *systray.MenuItem
	menuNext      *systray.MenuItem
}

// New creates a tray bound to a session.
func New(s Session) *Tray {
	return &Tray{sess: s}
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until the user quits, ctx ends or the session closes.
func (t *Tray) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(func() { t.onReady(ctx, cancel) }, func() {})
	return nil
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady(ctx context.Context, cancel context.CancelFunc) {
	systray.SetTitle("sign2me")
	systray.SetTooltip("ASL fingerspelling practice")

	t.mu.Lock()
	t.menuTarget = systray.AddMenuItem("Target: -", "Letter to sign")
	t.menuTarget.Disable()
	t.menuPredicted = systray.AddMenuItem("Detected: -", "Latest prediction")
	t.menuPredicted.Disable()
	t.menuFeedback = systray.AddMenuItem("", "Feedback")
	t.menuFeedback.Disable()
	systray.AddSeparator()

	t.menuNext = systray.AddMenuItem("Next letter", "Practice another letter")
	t.menuNext.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	menuQuit := systray.AddMenuItem("Quit", "Quit sign2me")

	updates, unsubscribe := t.sess.Subscribe()
	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case s, ok := <-updates:
				if !ok {
					cancel()
					return
				}
				t.apply(Render(s))
			case <-t.menuNext.ClickedCh:
				t.handleNext(ctx)
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				cancel()
				return
			}
		}
	}()
}

// apply updates the menu to a rendered state.
func (t *Tray) apply(v View) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	systray.SetTitle(v.Title)
	t.menuTarget.SetTitle(v.Target)
	t.menuPredicted.SetTitle(v.Predicted)
	t.menuFeedback.SetTitle(v.Feedback)
	if v.CanAdvance {
		t.menuNext.Enable()
	} else {
		t.menuNext.Disable()
	}
}

// handleNext advances the session; the new state arrives through the subscription.
func (t *Tray) handleNext(ctx context.Context) {
	t.sess.Advance(ctx)
}

// handleSettings handles the settings menu item click.
func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}
