package storage

import (
	"time"

	"github.com/google/uuid"

	"clickload/internal/report"
)

// HistoryItem is one finished run as kept in the history database.
type HistoryItem struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Summary   report.Summary `json:"summary"`
}

// NewHistoryItem wraps s with a time-ordered id, so keys sort by run start.
func NewHistoryItem(s report.Summary) (HistoryItem, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return HistoryItem{}, err
	}
	return HistoryItem{
		ID:        id.String(),
		Timestamp: s.Started,
		Summary:   s,
	}, nil
}

// Label is the short description shown in history listings.
func (h HistoryItem) Label() string {
	host := h.Summary.Config.Host
	if host == "" {
		host = "-"
	}
	return host
}
