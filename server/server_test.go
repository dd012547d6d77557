package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cyclopcam/firewatch/pkg/nn"
	"github.com/cyclopcam/firewatch/pkg/vision"
	"github.com/cyclopcam/firewatch/server/config"
	"github.com/cyclopcam/firewatch/server/configdb"
	"github.com/cyclopcam/firewatch/server/monitor"
	"github.com/cyclopcam/firewatch/server/notifications"
	"github.com/cyclopcam/firewatch/server/storage"
	"github.com/cyclopcam/logs"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type fireClassifier struct{}

func (c *fireClassifier) DetectObjects(ctx context.Context, img gocv.Mat) ([]nn.ObjectDetection, error) {
	return []nn.ObjectDetection{
		{Class: nn.ClassFire, Confidence: 0.91, Box: nn.Rect{X: 20, Y: 20, Width: 80, Height: 60}},
	}, nil
}

func (c *fireClassifier) Config() *nn.ModelConfig {
	return nn.FireSmokeModelConfig()
}

type recordingDeliverer struct {
	lock   sync.Mutex
	texts  []string
	images int
	chats  []string
}

func (d *recordingDeliverer) DeliverText(ctx context.Context, creds notifications.Credentials, text string) bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.texts = append(d.texts, text)
	d.chats = append(d.chats, creds.ChatID)
	return true
}

func (d *recordingDeliverer) DeliverImage(ctx context.Context, creds notifications.Credentials, filename string, jpg []byte) bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.images++
	return true
}

type testServer struct {
	*Server
	t         *testing.T
	http      *httptest.Server
	deliverer *recordingDeliverer
}

func newTestServer(t *testing.T) *testServer {
	log := logs.NewTestingLog(t)
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Classifier.URL = "http://unused"
	cfg.Storage.Filesystem = &config.StorageConfigFS{Root: filepath.Join(dir, "blobs")}
	cfg.Telegram.BotToken = "BOT"
	cfg.Monitor.DisableMotionGate = true
	cfg.RateLimit = 1000
	require.NoError(t, cfg.Validate())

	db, err := configdb.NewConfigDB(log, filepath.Join(dir, "firewatch.sqlite"))
	require.NoError(t, err)
	store, err := storage.NewStorageFS(log, cfg.Storage.Filesystem.Root)
	require.NoError(t, err)
	deliverer := &recordingDeliverer{}
	s, err := newServer(log, cfg, db, &fireClassifier{}, deliverer, store)
	require.NoError(t, err)

	ts := &testServer{
		Server:    s,
		t:         t,
		http:      httptest.NewServer(s.httpRouter),
		deliverer: deliverer,
	}
	t.Cleanup(func() {
		ts.http.Close()
		s.monitor.Close()
	})
	return ts
}

func (ts *testServer) do(method, path string, body io.Reader, contentType string) *http.Response {
	req, err := http.NewRequest(method, ts.http.URL+path, body)
	require.NoError(ts.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(ts.t, err)
	return resp
}

// Send a request and decode the JSON response into out
func (ts *testServer) doJSON(method, path string, in any, out any) int {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		require.NoError(ts.t, err)
		body = bytes.NewReader(b)
	}
	resp := ts.do(method, path, body, "application/json")
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(ts.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (ts *testServer) submit(frame []byte) *monitor.FrameResult {
	resp := ts.do("POST", "/api/detect", bytes.NewReader(frame), "image/jpeg")
	defer resp.Body.Close()
	require.Equal(ts.t, http.StatusOK, resp.StatusCode)
	result := &monitor.FrameResult{}
	require.NoError(ts.t, json.NewDecoder(resp.Body).Decode(result))
	return result
}

func (ts *testServer) createSubject(name, chatID string) configdb.Subject {
	subject := configdb.Subject{}
	code := ts.doJSON("POST", "/api/subjects", createSubjectRequest{Name: name, Location: "Jl. Gatot Subroto 1", ChatID: chatID}, &subject)
	require.Equal(ts.t, http.StatusOK, code)
	require.NotEqual(ts.t, int64(0), subject.ID)
	return subject
}

func testFrame(t *testing.T) []byte {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(30, 60, 90, 0), 240, 320, gocv.MatTypeCV8UC3)
	defer img.Close()
	jpg, err := vision.EncodeJPEG(img, 90)
	require.NoError(t, err)
	return jpg
}

func TestPing(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do("GET", "/api/ping", nil, "")
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSubjects(t *testing.T) {
	ts := newTestServer(t)
	a := ts.createSubject("Dewi", "123")
	ts.createSubject("Rudi", "")

	list := []configdb.Subject{}
	require.Equal(t, http.StatusOK, ts.doJSON("GET", "/api/subjects", nil, &list))
	require.Len(t, list, 2)

	got := configdb.Subject{}
	require.Equal(t, http.StatusOK, ts.doJSON("GET", "/api/subject/"+jsonID(a.ID), nil, &got))
	require.Equal(t, "Dewi", got.Name)
	require.Equal(t, "123", got.ChatID)

	require.Equal(t, http.StatusNotFound, ts.doJSON("GET", "/api/subject/9999", nil, nil))
	require.Equal(t, http.StatusBadRequest, ts.doJSON("GET", "/api/subject/abc", nil, nil))
	require.Equal(t, http.StatusBadRequest, ts.doJSON("POST", "/api/subjects", createSubjectRequest{Name: "  "}, nil))

	require.Equal(t, http.StatusOK, ts.doJSON("DELETE", "/api/subject/"+jsonID(a.ID), nil, nil))
	require.Equal(t, http.StatusNotFound, ts.doJSON("GET", "/api/subject/"+jsonID(a.ID), nil, nil))
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestControl(t *testing.T) {
	ts := newTestServer(t)
	subject := ts.createSubject("Dewi", "123")

	status := monitor.Status{}
	require.Equal(t, http.StatusOK, ts.doJSON("GET", "/api/status", nil, &status))
	require.False(t, status.Active)

	// Frames are ignored while inactive
	require.Equal(t, monitor.FrameStatusInactive, ts.submit(testFrame(t)).Status)

	require.Equal(t, http.StatusOK, ts.doJSON("POST", "/api/control", controlRequest{Action: monitor.ActionStart, SubjectID: subject.ID}, &status))
	require.True(t, status.Active)
	require.Equal(t, "Dewi", status.Subject.Name)

	require.Equal(t, http.StatusBadRequest, ts.doJSON("POST", "/api/control", controlRequest{Action: "launch"}, nil))

	require.Equal(t, http.StatusOK, ts.doJSON("POST", "/api/control", controlRequest{Action: monitor.ActionStop}, &status))
	require.False(t, status.Active)
	require.Nil(t, status.Subject)
}

func TestDetectAndAlert(t *testing.T) {
	ts := newTestServer(t)
	subject := ts.createSubject("Dewi", "123")
	require.Equal(t, http.StatusOK, ts.doJSON("POST", "/api/control", controlRequest{Action: monitor.ActionStart, SubjectID: subject.ID}, nil))

	frame := testFrame(t)
	for i := 0; i < 3; i++ {
		r := ts.submit(frame)
		require.Equal(t, monitor.FrameStatusProcessed, r.Status)
		require.Equal(t, nn.Fire, r.DetectedClass)
		require.False(t, r.Fire)
		require.Equal(t, i+1, r.FireStreak)
	}

	// The fourth frame goes in as a multipart upload
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("file", "frame.jpg")
	require.NoError(t, err)
	fw.Write(frame)
	require.NoError(t, mw.Close())
	resp := ts.do("POST", "/api/detect", body, mw.FormDataContentType())
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	r := &monitor.FrameResult{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(r))

	require.True(t, r.Fire)
	require.True(t, r.ShouldNotify)
	require.Equal(t, notifications.OutcomeSent, r.Notification)
	require.True(t, strings.HasPrefix(r.Snapshot, storage.SnapshotPrefix))
	require.Len(t, ts.deliverer.texts, 1)
	require.Contains(t, ts.deliverer.texts[0], "Dewi")
	require.Equal(t, []string{"123"}, ts.deliverer.chats)
	require.Equal(t, 1, ts.deliverer.images)

	history := []monitor.ConfirmedEvent{}
	require.Equal(t, http.StatusOK, ts.doJSON("GET", "/api/history", nil, &history))
	require.Len(t, history, 1)
	require.Equal(t, nn.Fire, history[0].Class)

	status := monitor.Status{}
	ts.doJSON("GET", "/api/status", nil, &status)
	require.EqualValues(t, 1, status.TotalConfirmed)

	// Read back the snapshot
	snap := ts.do("GET", "/api/snapshot/"+strings.TrimPrefix(r.Snapshot, storage.SnapshotPrefix), nil, "")
	defer snap.Body.Close()
	require.Equal(t, http.StatusOK, snap.StatusCode)
	require.Equal(t, "image/jpeg", snap.Header.Get("Content-Type"))
	jpg, err := io.ReadAll(snap.Body)
	require.NoError(t, err)
	img, err := vision.Decode(jpg)
	require.NoError(t, err)
	require.Equal(t, 320, img.Cols())
	img.Close()

	missing := ts.do("GET", "/api/snapshot/2020-01-01/nothing.jpg", nil, "")
	missing.Body.Close()
	require.Equal(t, http.StatusNotFound, missing.StatusCode)

	files := []storage.FileInfo{}
	require.Equal(t, http.StatusOK, ts.doJSON("GET", "/api/snapshots", nil, &files))
	require.Len(t, files, 1)
	require.Equal(t, r.Snapshot, files[0].Name)

	// Everything older than a year from now is gone
	require.Equal(t, 0, ts.pruneSnapshots(time.Now()))
	require.Equal(t, 1, ts.pruneSnapshots(time.Now().Add(365*24*time.Hour)))
}

func TestDecodeFailed(t *testing.T) {
	ts := newTestServer(t)
	subject := ts.createSubject("Dewi", "123")
	ts.doJSON("POST", "/api/control", controlRequest{Action: monitor.ActionStart, SubjectID: subject.ID}, nil)
	r := ts.submit([]byte("garbage"))
	require.Equal(t, monitor.FrameStatusDecodeFailed, r.Status)
	require.False(t, r.Fire)
}

func TestMetrics(t *testing.T) {
	ts := newTestServer(t)
	ts.submit(testFrame(t))
	resp := ts.do("GET", "/metrics", nil, "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(b)
	require.Contains(t, text, `firewatch_frames_total{status="inactive"} 1`)
	require.Contains(t, text, "firewatch_session_active 0")
}

func TestEventsWebSocket(t *testing.T) {
	ts := newTestServer(t)
	subject := ts.createSubject("Dewi", "123")
	ts.doJSON("POST", "/api/control", controlRequest{Action: monitor.ActionStart, SubjectID: subject.ID}, nil)

	wsURL := "ws" + strings.TrimPrefix(ts.http.URL, "http") + "/api/events/ws"
	c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer c.Close()

	frame := testFrame(t)
	for i := 0; i < 4; i++ {
		ts.submit(frame)
	}

	c.SetReadDeadline(time.Now().Add(5 * time.Second))
	nFrames := 0
	nConfirmed := 0
	for nFrames < 4 || nConfirmed < 1 {
		msg := eventMessage{}
		require.NoError(t, c.ReadJSON(&msg))
		switch msg.Type {
		case "frame":
			nFrames++
		case "confirmed":
			nConfirmed++
			require.Equal(t, nn.Fire, msg.Event.Class)
			require.Equal(t, "Dewi", msg.Event.Subject)
		}
	}
}
