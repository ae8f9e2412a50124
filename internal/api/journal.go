package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/emberhaus/ember-core/internal/heating"
	"github.com/emberhaus/ember-core/internal/journal"
)

// journalEntry is the wire shape of one resolved command.
type journalEntry struct {
	ID         string    `json:"id"`
	Room       string    `json:"room"`
	EntityID   string    `json:"entity_id"`
	Target     string    `json:"target"`
	Source     string    `json:"source"`
	Attempts   int       `json:"attempts"`
	Outcome    string    `json:"outcome"`
	IssuedAt   time.Time `json:"issued_at"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// handleListJournal returns resolved commands, most recent first.
//
// GET /api/v1/journal?room={name}&limit={n}
func (s *Server) handleListJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeNotFound(w, "journal not available")
		return
	}

	filter := journal.ListFilter{Room: r.URL.Query().Get("room")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	entries, err := s.journal.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("journal query failed", "error", err)
		writeInternalError(w, "journal query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": toWire(entries),
		"count":   len(entries),
	})
}

func toWire(entries []heating.JournalEntry) []journalEntry {
	out := make([]journalEntry, len(entries))
	for i, e := range entries {
		out[i] = journalEntry{
			ID:         e.ID,
			Room:       e.Room,
			EntityID:   e.EntityID,
			Target:     e.Target,
			Source:     e.Source,
			Attempts:   e.Attempts,
			Outcome:    e.Outcome,
			IssuedAt:   e.IssuedAt,
			ResolvedAt: e.ResolvedAt,
		}
	}
	return out
}
