package monitor

import (
	"context"
	"sync"

	"github.com/cyclopcam/firewatch/pkg/nn"
	"github.com/cyclopcam/firewatch/pkg/vision"
	"github.com/cyclopcam/firewatch/server/configdb"
	"github.com/cyclopcam/firewatch/server/metrics"
	"github.com/cyclopcam/firewatch/server/notifications"
	"github.com/cyclopcam/logs"
)

// monitor runs the fire/smoke model over submitted frames, and decides when to raise the alarm

// Settings of the per-frame decision pipeline.
// The defaults were tuned on webcam footage at roughly one frame per 800ms.
type Settings struct {
	Fire                   ClassThreshold `json:"fire"`
	Smoke                  ClassThreshold `json:"smoke"`
	FireFrames             int            `json:"fireFrames"`             // Consecutive fire wins needed to confirm fire
	SmokeFrames            int            `json:"smokeFrames"`            // Consecutive smoke wins needed to confirm smoke
	DisableMotionGate      bool           `json:"disableMotionGate"`      // Run the model on every frame, even static ones
	MotionNoiseFloor       uint8          `json:"motionNoiseFloor"`       // Grayscale difference below which a pixel is unchanged
	MotionMinChangedPixels int            `json:"motionMinChangedPixels"` // Number of changed pixels above which there is motion
	CLAHEClipLimit         float64        `json:"claheClipLimit"`
	CLAHETileGrid          int            `json:"claheTileGrid"`
	HistorySize            int            `json:"historySize"`     // Number of confirmed events to remember
	SnapshotQuality        int            `json:"snapshotQuality"` // JPEG quality of alert snapshots
}

func DefaultSettings() Settings {
	return Settings{
		Fire:                   ClassThreshold{Confidence: 0.65, MinArea: 3000},
		Smoke:                  ClassThreshold{Confidence: 0.70, MinArea: 4500},
		FireFrames:             DefaultFireFrames,
		SmokeFrames:            DefaultSmokeFrames,
		MotionNoiseFloor:       vision.DefaultMotionNoiseFloor,
		MotionMinChangedPixels: vision.DefaultMotionMinChangedPixels,
		CLAHEClipLimit:         vision.DefaultCLAHEClipLimit,
		CLAHETileGrid:          vision.DefaultCLAHETileGrid,
		HistorySize:            DefaultHistorySize,
		SnapshotQuality:        90,
	}
}

// Notifier is the gatekeeper between a confirmed event and the chat transport
type Notifier interface {
	ShouldNotify(class nn.Class, confidence float32) bool
	Notify(ctx context.Context, alert *notifications.Alert) (notifications.Outcome, string)
}

// SubjectStore looks up the person that a session is bound to.
// Returns nil if the subject does not exist.
type SubjectStore interface {
	ResolveSubject(id int64) *configdb.Subject
}

type Monitor struct {
	Log logs.Log

	settings   Settings
	classifier nn.Classifier
	notifier   Notifier
	subjects   SubjectStore
	metrics    *metrics.Metrics // may be nil
	gate       *vision.MotionGate
	pre        *vision.Preprocessor
	session    *Session

	watchersLock  sync.RWMutex
	watchers      []chan *FrameResult
	eventWatchers []chan *ConfirmedEvent
}

// Create a new monitor with a fresh (inactive) session.
// m may be nil.
func NewMonitor(logger logs.Log, settings Settings, classifier nn.Classifier, notifier Notifier, subjects SubjectStore, m *metrics.Metrics) *Monitor {
	mon := &Monitor{
		Log:        logger,
		settings:   settings,
		classifier: classifier,
		notifier:   notifier,
		subjects:   subjects,
		metrics:    m,
		gate:       vision.NewMotionGate(settings.MotionNoiseFloor, settings.MotionMinChangedPixels),
		pre: &vision.Preprocessor{
			ClipLimit: settings.CLAHEClipLimit,
			TileGrid:  settings.CLAHETileGrid,
		},
	}
	mon.session = NewSession(settings)
	logger.Infof("Monitor ready. Fire >= %.2f (%v px, %v frames), Smoke >= %.2f (%v px, %v frames)",
		settings.Fire.Confidence, settings.Fire.MinArea, settings.FireFrames,
		settings.Smoke.Confidence, settings.Smoke.MinArea, settings.SmokeFrames)
	return mon
}

func (m *Monitor) Settings() Settings {
	return m.settings
}

// Replace the session, discarding all state. Used by tests and the replay tool.
// Must not be called while frames are being submitted.
func (m *Monitor) SetSession(s *Session) {
	old := m.session
	m.session = s
	if old != nil {
		old.Close()
	}
}

// Close the monitor, and release all watchers
func (m *Monitor) Close() {
	m.Log.Infof("Monitor shutting down")
	m.watchersLock.Lock()
	for _, ch := range m.watchers {
		close(ch)
	}
	for _, ch := range m.eventWatchers {
		close(ch)
	}
	m.watchers = nil
	m.eventWatchers = nil
	m.watchersLock.Unlock()
	m.session.Close()
	m.Log.Infof("Monitor is closed")
}
