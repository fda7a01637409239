package main

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Server bundles what the HTTP routes need
type Server struct {
	hub     *Hub
	invites *Invites
	db      *DB // nil when history is disabled
}

// SetupRoutes configures HTTP routes
func SetupRoutes(srv *Server, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()

	if staticDir != "" {
		fs := http.FileServer(http.Dir(staticDir))
		mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-cache")
			fs.ServeHTTP(w, r)
		}))
	}

	mux.HandleFunc("/ws", srv.handleWS)
	mux.HandleFunc("GET /api/rooms", srv.handleRooms)
	mux.HandleFunc("GET /api/invite", srv.handleInvite)
	mux.HandleFunc("GET /qr", srv.handleQR)
	mux.HandleFunc("GET /api/rounds", srv.handleRounds)
	mux.HandleFunc("GET /api/leaderboard", srv.handleLeaderboard)
	return mux
}

// handleWS admits a player. Query: room, name, enc=msgpack, invite.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := NormalizeRoomCode(q.Get("room"))
	if tok := q.Get("invite"); tok != "" {
		room, err := s.invites.Resolve(tok)
		if err != nil {
			http.Error(w, "invalid invite", http.StatusBadRequest)
			return
		}
		code = room
	}

	ip := extractIP(r)
	if !s.hub.CanAccept(ip) {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("addr", ip).Msg("upgrade error")
		return
	}

	s.hub.TrackConnect(ip)

	client := NewClient(s.hub, conn, ip, q.Get("enc") == "msgpack")
	s.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(code, q.Get("name"))
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.hub.rooms.List())
}

type inviteResponse struct {
	Room  string `json:"room"`
	Token string `json:"token"`
	URL   string `json:"url"`
}

func (s *Server) inviteFor(r *http.Request) (inviteResponse, error) {
	code := NormalizeRoomCode(r.URL.Query().Get("room"))
	token, err := s.invites.Issue(code)
	if err != nil {
		return inviteResponse{}, err
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	link := s.invites.Link(scheme+"://"+r.Host, code, token)
	return inviteResponse{Room: code, Token: token, URL: link}, nil
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	inv, err := s.inviteFor(r)
	if err != nil {
		log.Error().Err(err).Msg("issue invite")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	inv, err := s.inviteFor(r)
	if err != nil {
		log.Error().Err(err).Msg("issue invite")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	png, err := s.invites.QRCode(inv.URL)
	if err != nil {
		log.Error().Err(err).Msg("encode qr")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

var errHistoryDisabled = errors.New("round history is disabled")

func (s *Server) handleRounds(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		http.Error(w, errHistoryDisabled.Error(), http.StatusNotFound)
		return
	}
	rounds, err := s.db.RecentRounds(listLimit(r))
	if err != nil {
		log.Error().Err(err).Msg("query rounds")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rounds)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		http.Error(w, errHistoryDisabled.Error(), http.StatusNotFound)
		return
	}
	board, err := s.db.Leaderboard(listLimit(r))
	if err != nil {
		log.Error().Err(err).Msg("query leaderboard")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func listLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	return min(n, maxListLimit)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}
