package http

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// StreamManager fans diagram events out to active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // DiagramID -> set of channels
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
	}
}

// Subscribe registers a channel for diagramID. The returned func unsubscribes and closes it.
func (sm *StreamManager) Subscribe(diagramID string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[diagramID]; !ok {
		sm.subscribers[diagramID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[diagramID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[diagramID]; ok {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, diagramID)
			}
		}
	}
}

// Broadcast sends event as JSON to every subscriber of diagramID.
// Slow subscribers drop messages instead of blocking the caller.
func (sm *StreamManager) Broadcast(diagramID string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Warn("sse: event encode failed", "diagram", diagramID, "err", err)
		return
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[diagramID] {
		select {
		case ch <- string(payload):
		default:
			slog.Warn("sse: client buffer full, dropping message", "diagram", diagramID)
		}
	}
}

// Subscribers returns the number of active subscribers for diagramID.
func (sm *StreamManager) Subscribers(diagramID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[diagramID])
}
