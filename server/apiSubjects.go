package server

import (
	"errors"
	"io/fs"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/cyclopcam/firewatch/server/configdb"
	"github.com/cyclopcam/firewatch/server/storage"
	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"
)

// BotToken is write-only, so it's not part of the JSON form of configdb.Subject
type createSubjectRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	ChatID   string `json:"chatID"`
	BotToken string `json:"botToken"`
}

func parseID(params httprouter.Params) int64 {
	id, err := strconv.ParseInt(params.ByName("id"), 10, 64)
	if err != nil {
		www.PanicBadRequestf("Invalid id '%v'", params.ByName("id"))
	}
	return id
}

func (s *Server) httpListSubjects(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	subjects, err := s.configDB.ListSubjects()
	www.Check(err)
	www.SendJSON(w, subjects)
}

func (s *Server) httpCreateSubject(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	req := createSubjectRequest{}
	www.ReadJSON(w, r, &req, 1024*1024)
	subject := configdb.Subject{
		Name:     req.Name,
		Location: req.Location,
		ChatID:   req.ChatID,
		BotToken: strings.TrimSpace(req.BotToken),
	}
	err := s.configDB.CreateSubject(&subject)
	if errors.Is(err, configdb.ErrSubjectNameRequired) {
		www.PanicBadRequestf("%v", err)
	}
	www.Check(err)
	www.SendJSON(w, &subject)
}

func (s *Server) httpGetSubject(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	subject, err := s.configDB.GetSubjectFromID(parseID(params))
	www.Check(err)
	if subject == nil {
		www.PanicNotFound()
	}
	www.SendJSON(w, subject)
}

func (s *Server) httpDeleteSubject(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.Check(s.configDB.DeleteSubject(parseID(params)))
	www.SendOK(w)
}

func (s *Server) httpListSnapshots(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	files, err := s.snapshots.List()
	www.Check(err)
	www.SendJSON(w, files)
}

func (s *Server) httpGetSnapshot(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	name := storage.SnapshotPrefix + strings.TrimPrefix(path.Clean(params.ByName("name")), "/")
	if url, err := s.snapshots.Storage().URL(name); err == nil {
		http.Redirect(w, r, url, http.StatusFound)
		return
	}
	jpg, err := s.snapshots.Read(name)
	if errors.Is(err, fs.ErrNotExist) {
		www.PanicNotFound()
	}
	www.Check(err)
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "max-age=31536000, immutable")
	w.Write(jpg)
}
