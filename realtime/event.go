// Package realtime fans board mutation events out to open WebSocket connections.
package realtime

import (
	"strconv"
	"time"
)

type EventType string

const (
	CardCreated EventType = "CARD_CREATED"
	CardUpdated EventType = "CARD_UPDATED"
	CardMoved   EventType = "CARD_MOVED"
	CardDeleted EventType = "CARD_DELETED"
	ListCreated EventType = "LIST_CREATED"
	ListUpdated EventType = "LIST_UPDATED"
	ListDeleted EventType = "LIST_DELETED"

	ConnectionEstablished EventType = "CONNECTION_ESTABLISHED"
)

// Event is the JSON envelope pushed to board subscribers. Ids are encoded as
// strings so that clients never lose precision.
type Event struct {
	Type       EventType      `json:"type"`
	BoardID    string         `json:"boardId"`
	CardID     string         `json:"cardId,omitempty"`
	ListID     string         `json:"listId,omitempty"`
	FromListID string         `json:"fromListId,omitempty"`
	ToListID   string         `json:"toListId,omitempty"`
	Data       any            `json:"data,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func id(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func CardEvent(t EventType, boardID, listID, cardID uint, data any) Event {
	return Event{
		Type:      t,
		BoardID:   id(boardID),
		ListID:    id(listID),
		CardID:    id(cardID),
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

func CardMovedEvent(boardID, cardID, fromListID, toListID uint, data any) Event {
	return Event{
		Type:       CardMoved,
		BoardID:    id(boardID),
		CardID:     id(cardID),
		ListID:     id(toListID),
		FromListID: id(fromListID),
		ToListID:   id(toListID),
		Data:       data,
		Timestamp:  time.Now().UTC(),
	}
}

func ListEvent(t EventType, boardID, listID uint, data any) Event {
	return Event{
		Type:      t,
		BoardID:   id(boardID),
		ListID:    id(listID),
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

func welcomeEvent(boardID uint, connID string, active int) Event {
	return Event{
		Type:      ConnectionEstablished,
		BoardID:   id(boardID),
		Data:      "Connected to board " + id(boardID),
		Timestamp: time.Now().UTC(),
		Metadata: map[string]any{
			"sessionId":         connID,
			"activeConnections": active,
		},
	}
}
