package notifications

import (
	"context"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/cyclopcam/firewatch/pkg/nn"
	"github.com/cyclopcam/firewatch/server/configdb"
	"github.com/cyclopcam/firewatch/server/storage"
	"github.com/cyclopcam/logs"
)

// Defaults for Settings
const (
	DefaultFireNotifyThreshold  = 0.70
	DefaultSmokeNotifyThreshold = 0.60
	DefaultCooldown             = 30 * time.Second
	DefaultHttpTimeout          = 10 * time.Second
)

type Settings struct {
	FireThreshold  float32       // Minimum confidence of a confirmed fire before we alert
	SmokeThreshold float32       // Minimum confidence of confirmed smoke before we alert
	Cooldown       time.Duration // Minimum time between delivery attempts
	BotToken       string        // System bot, used when a subject has no bot of their own
	ChatID         string        // Fallback recipient, used when a subject has no chat of their own
}

func DefaultSettings() Settings {
	return Settings{
		FireThreshold:  DefaultFireNotifyThreshold,
		SmokeThreshold: DefaultSmokeNotifyThreshold,
		Cooldown:       DefaultCooldown,
	}
}

// Alert is a confirmed event that might be worth telling the subject about
type Alert struct {
	Subject    *configdb.Subject
	Class      nn.Class
	Confidence float32
	Time       time.Time

	// Render produces the snapshot JPEG. It is only called once we've decided to send.
	Render func() ([]byte, error)
}

// Gatekeeper decides whether a confirmed event becomes a chat alert, and sends it.
// The gates are checked in order, and the first one that fails decides the outcome:
// notify threshold, credentials, recipient, cooldown.
// The cooldown is armed when an attempt starts, so a failed attempt still blocks the next one.
type Gatekeeper struct {
	log       logs.Log
	settings  Settings
	deliverer Deliverer
	snapshots *storage.Snapshots

	lock        sync.Mutex
	lastAttempt time.Time
	now         func() time.Time
}

// deliverer may be nil, in which case every eligible alert is OutcomeDisabled
func NewGatekeeper(log logs.Log, settings Settings, deliverer Deliverer, snapshots *storage.Snapshots) *Gatekeeper {
	return &Gatekeeper{
		log:       log,
		settings:  settings,
		deliverer: deliverer,
		snapshots: snapshots,
		now:       time.Now,
	}
}

// ShouldNotify is true if the confidence of a confirmed event is high enough to alert on
func (g *Gatekeeper) ShouldNotify(class nn.Class, confidence float32) bool {
	switch class {
	case nn.Fire:
		return confidence >= g.settings.FireThreshold
	case nn.Smoke:
		return confidence >= g.settings.SmokeThreshold
	}
	return false
}

// Credentials resolves who we send as, and who we send to, for this subject
func (g *Gatekeeper) Credentials(subject *configdb.Subject) Credentials {
	c := Credentials{
		BotToken: g.settings.BotToken,
		ChatID:   g.settings.ChatID,
	}
	if subject != nil {
		if strings.TrimSpace(subject.BotToken) != "" {
			c.BotToken = strings.TrimSpace(subject.BotToken)
		}
		if subject.HasRecipient() {
			c.ChatID = strings.TrimSpace(subject.ChatID)
		}
	}
	return c
}

// Notify runs the alert through the gates, and delivers it if they all pass.
// Returns the outcome, and the name of the saved snapshot (if any).
func (g *Gatekeeper) Notify(ctx context.Context, alert *Alert) (Outcome, string) {
	if !g.ShouldNotify(alert.Class, alert.Confidence) {
		return OutcomeNotAttempted, ""
	}
	creds := g.Credentials(alert.Subject)
	if g.deliverer == nil || creds.BotToken == "" {
		return OutcomeDisabled, ""
	}
	if alert.Subject == nil || creds.ChatID == "" {
		return OutcomeNoRecipient, ""
	}
	if !g.armCooldown() {
		g.log.Infof("Alert for %v suppressed by cooldown", alert.Class)
		return OutcomeCooldown, ""
	}
	// The cooldown is now armed, so this is our only chance to deliver. A caller that goes away
	// (eg the HTTP client that submitted the frame) must not cancel it. The transport has its own timeout.
	return g.deliver(context.WithoutCancel(ctx), alert, creds)
}

// Returns true if the cooldown has elapsed, in which case it is re-armed
func (g *Gatekeeper) armCooldown() bool {
	g.lock.Lock()
	defer g.lock.Unlock()
	now := g.now()
	if !g.lastAttempt.IsZero() && now.Sub(g.lastAttempt) < g.settings.Cooldown {
		return false
	}
	g.lastAttempt = now
	return true
}

// LastAttempt returns the time of the most recent delivery attempt, or zero
func (g *Gatekeeper) LastAttempt() time.Time {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.lastAttempt
}

func (g *Gatekeeper) deliver(ctx context.Context, alert *Alert, creds Credentials) (outcome Outcome, snapshot string) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Errorf("Alert delivery panicked: %v", r)
			outcome = OutcomeError
		}
	}()

	jpg, err := alert.Render()
	if err != nil {
		g.log.Errorf("Failed to render snapshot: %v", err)
		return OutcomeError, ""
	}
	if g.snapshots != nil {
		snapshot, err = g.snapshots.Save(alert.Time, alert.Class.String(), jpg)
		if err != nil {
			g.log.Errorf("%v", err)
			return OutcomeError, ""
		}
	}

	msg := ComposeMessage(alert.Subject, alert.Class, alert.Confidence, alert.Time)
	textOK := g.deliverer.DeliverText(ctx, creds, msg)
	filename := path.Base(snapshot)
	if snapshot == "" {
		filename = "snapshot.jpg"
	}
	imageOK := g.deliverer.DeliverImage(ctx, creds, filename, jpg)

	outcome = outcomeFromDeliveries(textOK, imageOK)
	g.log.Infof("Alert %v for %v: %v", alert.Class, alert.Subject.Name, outcome)
	return outcome, snapshot
}
