package http

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/openoptiga/optigatrust/pkg/command"
)

// Server exposes the command encoders over a plain net/http mux, the same
// CiA-309-inspired shape as the teacher's gateway but scoped to this
// element's own operation set instead of CANopen's SDO/NMT/PDO surface.
type Server struct {
	cmd *command.Command
	log *logrus.Entry
	mux *http.ServeMux
}

// NewServer builds a gateway Server over cmd. log may be nil, in which case
// the standard logrus logger is used.
func NewServer(cmd *command.Command, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	g := &Server{cmd: cmd, log: log.WithField("service", "gateway-http")}
	g.mux = http.NewServeMux()
	g.registerRoutes()
	return g
}

// ListenAndServe blocks, serving the gateway on addr.
func (g *Server) ListenAndServe(addr string) error {
	g.log.WithField("addr", addr).Info("starting HTTP gateway")
	return http.ListenAndServe(addr, g.mux)
}

// Handler returns the gateway's http.Handler, for embedding in a larger
// mux or a test server instead of calling ListenAndServe directly.
func (g *Server) Handler() http.Handler { return g.mux }

func (g *Server) registerRoutes() {
	g.mux.HandleFunc("/chip-id", g.methodGuard(http.MethodGet, g.handleChipID))

	g.mux.HandleFunc("/object/", func(w http.ResponseWriter, r *http.Request) {
		oid := pathTail(r.URL.Path, "/object/")
		switch r.Method {
		case http.MethodGet:
			g.handleGetObject(w, r, oid)
		case http.MethodPut:
			g.handleSetObject(w, r, oid)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	g.mux.HandleFunc("/random/", g.methodGuard(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		g.handleGetRandom(w, r, pathTail(r.URL.Path, "/random/"))
	}))

	g.mux.HandleFunc("/keypair/", g.methodGuard(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		g.handleGenKeyPair(w, r, pathTail(r.URL.Path, "/keypair/"))
	}))

	g.mux.HandleFunc("/sign/", g.methodGuard(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		g.handleSign(w, r, pathTail(r.URL.Path, "/sign/"))
	}))

	g.mux.HandleFunc("/verify/", g.methodGuard(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		g.handleVerify(w, r, pathTail(r.URL.Path, "/verify/"))
	}))

	g.mux.HandleFunc("/counter/", func(w http.ResponseWriter, r *http.Request) {
		tail := pathTail(r.URL.Path, "/counter/")
		if strings.HasSuffix(tail, "/increment") {
			if r.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			g.handleCounterIncrement(w, r, strings.TrimSuffix(tail, "/increment"))
			return
		}
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		g.handleCounterRead(w, r, tail)
	})
}

func (g *Server) methodGuard(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}
