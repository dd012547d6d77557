package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/cyclopcam/firewatch/server/monitor"
	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"
)

// A 4K JPEG is comfortably below this
const maxFrameBytes = 16 * 1024 * 1024

// Submit one frame. The body is either a multipart form with the image in "file",
// or the raw image itself.
func (s *Server) httpDetect(w http.ResponseWriter, r *http.Request) {
	frame := readFrame(w, r)
	result := s.monitor.SubmitFrame(r.Context(), frame)
	www.SendJSON(w, result)
}

func readFrame(w http.ResponseWriter, r *http.Request) []byte {
	r.Body = http.MaxBytesReader(w, r.Body, maxFrameBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		f, _, err := r.FormFile("file")
		if err != nil {
			www.PanicBadRequestf("Expected an image in the 'file' field: %v", err)
		}
		defer f.Close()
		frame, err := io.ReadAll(f)
		www.Check(err)
		return frame
	}
	frame, err := io.ReadAll(r.Body)
	if err != nil {
		www.PanicBadRequestf("Failed to read frame: %v", err)
	}
	return frame
}

type controlRequest struct {
	Action    monitor.Action `json:"action"`
	SubjectID int64          `json:"subjectID"`
}

func (s *Server) httpControl(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	req := controlRequest{}
	www.ReadJSON(w, r, &req, 1024*1024)
	status, err := s.monitor.SetActivation(req.Action, req.SubjectID)
	if err != nil {
		www.PanicBadRequestf("%v", err)
	}
	www.SendJSON(w, status)
}

func (s *Server) httpStatus(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendJSON(w, s.monitor.Status())
}

func (s *Server) httpHistory(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendJSON(w, s.monitor.History())
}
