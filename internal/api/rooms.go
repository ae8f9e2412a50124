package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleHealth reports liveness and the running version.
//
// GET /api/v1/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

// handleListRooms returns the current scheduling state of every room.
//
// GET /api/v1/rooms
func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	snaps := s.rooms.Snapshots()
	writeJSON(w, http.StatusOK, map[string]any{
		"rooms": snaps,
		"count": len(snaps),
	})
}

// handleGetRoom returns one room's scheduling state.
//
// GET /api/v1/rooms/{name}
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	for _, snap := range s.rooms.Snapshots() {
		if snap.Room == name {
			writeJSON(w, http.StatusOK, snap)
			return
		}
	}
	writeNotFound(w, "unknown room: "+name)
}
