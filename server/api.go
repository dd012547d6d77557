package server

import (
	"net/http"
	"time"

	"github.com/cyclopcam/www"
	"github.com/go-chi/httprate"
	"github.com/julienschmidt/httprouter"
)

func (s *Server) setupHttpRoutes() error {
	logEveryRequest := false
	router := httprouter.New()

	// unprotected creates an HTTP handler that is accessible without authentication.
	// Firewatch runs on a private network, next to the cameras, so that's all we have.
	unprotected := func(method, route string, handle httprouter.Handle) {
		www.Handle(s.Log, router, method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			if logEveryRequest {
				s.Log.Infof("HTTP %v %v", method, r.URL.Path)
			}
			handle(w, r, params)
		})
	}

	// ratelimited creates an unprotected handler with a per-IP request limit
	ratelimited := func(method, route string, handle func(w http.ResponseWriter, r *http.Request), requestLimit int, windowLength time.Duration) {
		limited := httprate.Limit(requestLimit, windowLength, httprate.WithKeyFuncs(httprate.KeyByIP))
		www.Handle(s.Log, router, method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			limited(http.HandlerFunc(handle)).ServeHTTP(w, r)
		})
	}

	unprotected("GET", "/api/ping", s.httpPing)
	unprotected("GET", "/api/status", s.httpStatus)
	unprotected("POST", "/api/control", s.httpControl)
	unprotected("GET", "/api/history", s.httpHistory)
	unprotected("GET", "/api/events/ws", s.httpEventsWebSocket)

	if s.Config.RateLimit > 0 {
		ratelimited("POST", "/api/detect", s.httpDetect, s.Config.RateLimit, time.Second)
	} else {
		unprotected("POST", "/api/detect", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
			s.httpDetect(w, r)
		})
	}

	unprotected("GET", "/api/subjects", s.httpListSubjects)
	unprotected("POST", "/api/subjects", s.httpCreateSubject)
	unprotected("GET", "/api/subject/:id", s.httpGetSubject)
	unprotected("DELETE", "/api/subject/:id", s.httpDeleteSubject)

	unprotected("GET", "/api/snapshots", s.httpListSnapshots)
	unprotected("GET", "/api/snapshot/*name", s.httpGetSnapshot)

	router.Handler("GET", "/metrics", s.metrics.Handler())

	s.httpRouter = router
	return nil
}

func (s *Server) httpPing(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendOK(w)
}
