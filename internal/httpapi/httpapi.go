// Package httpapi wires the HTTP surface (spec §4.5): room creation,
// the websocket upgrade endpoint, and the static role pages a client
// loads before it ever opens a socket.
//
// Grounded on the teacher's internal/server/routes.go RegisterRoutes /
// corsMiddleware, and on internal/websockets/ws.go's upgrader for the
// websocket endpoint.
package httpapi

import (
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/adabra/server/internal/registry"
	"github.com/adabra/server/internal/session"
)

//go:embed public/*.html
var embeddedPublic embed.FS

// Server bundles the dependencies every handler needs.
type Server struct {
	registry *registry.Registry
	upgrader websocket.Upgrader
	public   fs.FS
}

// New builds the HTTP surface over a live registry.
func New(reg *registry.Registry) *Server {
	public, err := fs.Sub(embeddedPublic, "public")
	if err != nil {
		logrus.WithError(err).Fatal("embedded public assets missing")
	}
	return &Server{
		registry: reg,
		public:   public,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Brain Ring clients run from a browser origin different
			// from the API's; this is an open buzzer room, not an
			// authenticated API, so any origin may connect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Routes returns the wired router, CORS middleware included: the
// landing page, the three static consoles, room creation, the
// websocket endpoint, and a 404 fallback for anything else.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.corsMiddleware)

	r.HandleFunc("/", s.servePage("index.html")).Methods(http.MethodGet)
	r.HandleFunc("/host", s.servePage("host.html")).Methods(http.MethodGet)
	r.HandleFunc("/play", s.servePage("play.html")).Methods(http.MethodGet)
	r.HandleFunc("/screen", s.servePage("screen.html")).Methods(http.MethodGet)
	r.HandleFunc("/api/rooms/create", s.handleCreateRoom).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	return r
}

func (s *Server) servePage(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := fs.ReadFile(s.public, name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(b)
	}
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type createRoomResponse struct {
	RoomCode string `json:"roomCode"`
	HostKey  string `json:"hostKey"`
}

// handleCreateRoom is the one non-websocket way a host ever touches
// the registry directly (spec §4.1 createRoom): it returns the host
// key out-of-band so the host console's first joinRoom carries it.
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	h, err := s.registry.CreateRoom()
	if err != nil {
		logrus.WithError(err).Error("create room failed")
		http.Error(w, "could not create room", http.StatusInternalServerError)
		return
	}

	h.Room.Mu.Lock()
	resp := createRoomResponse{RoomCode: h.Room.RoomCode, HostKey: h.Room.HostKey}
	h.Room.Mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}

	sess := session.New(conn, s.registry, func() int64 { return time.Now().UnixMilli() })
	sess.Serve()
}
