package monitor

import (
	"context"
	"time"

	"github.com/cyclopcam/firewatch/pkg/nn"
	"github.com/cyclopcam/firewatch/pkg/vision"
	"github.com/cyclopcam/firewatch/server/configdb"
	"github.com/cyclopcam/firewatch/server/notifications"
	"github.com/cyclopcam/firewatch/server/perfstats"
	"gocv.io/x/gocv"
)

// FrameStatus is how far a frame made it through the pipeline
type FrameStatus string

const (
	FrameStatusInactive     FrameStatus = "inactive"      // Session inactive, or no subject bound
	FrameStatusDecodeFailed FrameStatus = "decode_failed" // Not an image
	FrameStatusIdle         FrameStatus = "idle"          // No motion, so the model was not run
	FrameStatusProcessed    FrameStatus = "processed"     // Ran through the model and the stabilizer
)

// FrameResult is the outcome of SubmitFrame
// SYNC-FRAME-RESULT
type FrameResult struct {
	Time          time.Time             `json:"time"`
	Status        FrameStatus           `json:"status"`
	Fire          bool                  `json:"fire"` // True if fire or smoke was confirmed on this frame
	DetectedClass nn.Class              `json:"detectedClass"`
	Confidence    float32               `json:"confidence"`
	Box           nn.Rect               `json:"box"`
	ShouldNotify  bool                  `json:"shouldNotify"`
	Notification  notifications.Outcome `json:"notification"`
	Snapshot      string                `json:"snapshot,omitempty"` // Name of the saved snapshot, if we attempted an alert
	FireStreak    int                   `json:"fireStreak"`
	SmokeStreak   int                   `json:"smokeStreak"`
	ChangedPixels int                   `json:"changedPixels"` // -1 if the motion gate could not compare
	Subject       *configdb.Subject     `json:"subject,omitempty"`
}

func newFrameResult(now time.Time, status FrameStatus) *FrameResult {
	return &FrameResult{
		Time:          now,
		Status:        status,
		DetectedClass: nn.None,
		Notification:  notifications.OutcomeNotAttempted,
		ChangedPixels: -1,
	}
}

// SubmitFrame runs one encoded frame through the pipeline:
// motion gate, dual view, classifier, candidate extraction, arbitration, stabilization,
// and (on confirmation) the notification gatekeeper.
// It never fails. Problems are reported through FrameResult.Status and FrameResult.Notification.
func (m *Monitor) SubmitFrame(ctx context.Context, frame []byte) *FrameResult {
	now := time.Now()
	s := m.session

	s.lock.Lock()
	ready := s.active && s.subject != nil
	s.lock.Unlock()
	if !ready {
		return m.finish(newFrameResult(now, FrameStatusInactive), nil)
	}

	start := time.Now()
	raw, err := vision.Decode(frame)
	if err != nil {
		m.Log.Warnf("Frame decode failed: %v", err)
		return m.finish(newFrameResult(now, FrameStatusDecodeFailed), nil)
	}
	defer raw.Close()
	perfstats.Since(&perfstats.Stats.DecodeNanoseconds, start)

	// The previous frame is replaced even if we end up idle, so that slow drift never accumulates into "motion"
	prev, ok := s.swapPrevious(raw)
	if !ok {
		return m.finish(newFrameResult(now, FrameStatusInactive), nil)
	}
	changed := -1
	if prev != nil {
		var motion bool
		motion, changed = m.gate.HasMotion(prev, raw)
		prev.Close()
		if !motion && !m.settings.DisableMotionGate {
			result := newFrameResult(now, FrameStatusIdle)
			result.ChangedPixels = changed
			return m.finish(result, nil)
		}
	}

	verdict := m.classifyFrame(ctx, raw)

	s.lock.Lock()
	if !s.active || s.subject == nil {
		// Stopped while we were busy with the model
		s.lock.Unlock()
		return m.finish(newFrameResult(now, FrameStatusInactive), nil)
	}
	subject := s.subject
	confirmed := s.stabilizer.Observe(verdict.Class)
	var event *ConfirmedEvent
	if confirmed != nn.None {
		s.totalConfirmed++
		event = &ConfirmedEvent{
			Time:       now,
			Class:      confirmed,
			Confidence: verdict.Confidence,
			SubjectID:  subject.ID,
			Subject:    subject.Name,
		}
		s.history.Add(*event)
	}
	fireStreak, smokeStreak := s.stabilizer.Streaks()
	s.lock.Unlock()

	result := newFrameResult(now, FrameStatusProcessed)
	result.DetectedClass = verdict.Class
	result.Confidence = verdict.Confidence
	result.Box = verdict.Box
	result.FireStreak = fireStreak
	result.SmokeStreak = smokeStreak
	result.ChangedPixels = changed
	result.Subject = subject

	if event != nil {
		result.Fire = true
		m.alert(ctx, result, event, subject, raw)
	}
	return m.finish(result, event)
}

// Run both views through the model, and pick the winner
func (m *Monitor) classifyFrame(ctx context.Context, raw gocv.Mat) Verdict {
	start := time.Now()
	fireView, smokeView := m.pre.DualView(raw)
	defer fireView.Close()
	defer smokeView.Close()
	perfstats.Since(&perfstats.Stats.DualViewNanoseconds, start)

	fire := ExtractCandidates(m.classify(ctx, fireView), nn.Fire, m.settings.Fire)
	smoke := ExtractCandidates(m.classify(ctx, smokeView), nn.Smoke, m.settings.Smoke)
	for _, c := range fire {
		m.Log.Debugf("Fire candidate conf=%.2f area=%.0f", c.Confidence, c.Area)
	}
	for _, c := range smoke {
		m.Log.Debugf("Smoke candidate conf=%.2f area=%.0f", c.Confidence, c.Area)
	}

	verdict := Arbitrate(fire, smoke)
	if verdict.Class != nn.None {
		m.Log.Infof("%v wins frame, conf=%.2f", verdict.Class, verdict.Confidence)
	}
	return verdict
}

// A classifier failure counts as "nothing found" for that view
func (m *Monitor) classify(ctx context.Context, img gocv.Mat) []nn.ObjectDetection {
	start := time.Now()
	dets, err := m.classifier.DetectObjects(ctx, img)
	elapsed := time.Since(start)
	perfstats.Update(&perfstats.Stats.ClassifyNanoseconds, elapsed.Nanoseconds())
	if m.metrics != nil {
		m.metrics.ClassifyTime.Observe(elapsed.Seconds())
	}
	if err != nil {
		m.Log.Errorf("Classifier failed: %v", err)
		return nil
	}
	return dets
}

func (m *Monitor) alert(ctx context.Context, result *FrameResult, event *ConfirmedEvent, subject *configdb.Subject, raw gocv.Mat) {
	result.ShouldNotify = m.notifier != nil && m.notifier.ShouldNotify(event.Class, event.Confidence)
	if result.ShouldNotify {
		m.Log.Warnf("%v CONFIRMED for %v, conf=%.2f. Notification enabled", event.Class, subject.Name, event.Confidence)
	} else {
		m.Log.Infof("%v confirmed for %v, conf=%.2f. Confidence too low to notify", event.Class, subject.Name, event.Confidence)
	}
	if m.notifier == nil {
		return
	}
	box := result.Box
	result.Notification, result.Snapshot = m.notifier.Notify(ctx, &notifications.Alert{
		Subject:    subject,
		Class:      event.Class,
		Confidence: event.Confidence,
		Time:       event.Time,
		Render: func() ([]byte, error) {
			return vision.RenderSnapshot(raw, event.Class, event.Confidence, box, m.settings.SnapshotQuality)
		},
	})
}

// Record metrics and inform watchers
func (m *Monitor) finish(result *FrameResult, event *ConfirmedEvent) *FrameResult {
	if m.metrics != nil {
		m.metrics.Frames.WithLabelValues(string(result.Status)).Inc()
		if event != nil {
			m.metrics.Confirmations.WithLabelValues(event.Class.String()).Inc()
			m.metrics.Notifications.WithLabelValues(string(result.Notification)).Inc()
		}
	}
	m.sendToWatchers(result)
	if event != nil {
		m.sendToEventWatchers(event)
	}
	return result
}
