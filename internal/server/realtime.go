package server

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	RealtimeEventNoteChanged = "note-change"
	realtimeEventHeartbeat   = "heartbeat"
	realtimeSourceBackend    = "notepad-backend"

	RealtimeOperationCreate = "create"
	RealtimeOperationUpdate = "update"
	RealtimeOperationToggle = "toggle-complete"
	RealtimeOperationDelete = "delete"
)

type RealtimeMessage struct {
	EventType string
	Operation string
	NoteIDs   []string
	Timestamp time.Time
}

type realtimeEventPayload struct {
	NoteIDs   []string `json:"noteIds"`
	Operation string   `json:"operation"`
	Timestamp string   `json:"timestamp"`
	Source    string   `json:"source"`
}

// RealtimeDispatcher fans note changes out to every open stream.
// Subscribers that fall behind lose messages instead of blocking publishers.
type RealtimeDispatcher struct {
	mu          sync.RWMutex
	subscribers map[int64]*realtimeSubscriber
	nextID      int64
	bufferSize  int
	closed      bool
	watchers    atomic.Int64
}

type realtimeSubscriber struct {
	id       int64
	stream   chan RealtimeMessage
	done     chan struct{}
	stopOnce sync.Once
}

// stop releases the goroutine watching the subscriber's context.
func (s *realtimeSubscriber) stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

func NewRealtimeDispatcher() *RealtimeDispatcher {
	return &RealtimeDispatcher{
		subscribers: make(map[int64]*realtimeSubscriber),
		bufferSize:  16,
	}
}

// Subscribe registers a stream until ctx ends or the returned cleanup runs.
func (d *RealtimeDispatcher) Subscribe(ctx context.Context) (<-chan RealtimeMessage, func()) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		ch := make(chan RealtimeMessage)
		close(ch)
		return ch, func() {}
	}
	d.nextID++
	subscriber := &realtimeSubscriber{
		id:     d.nextID,
		stream: make(chan RealtimeMessage, d.bufferSize),
		done:   make(chan struct{}),
	}
	d.subscribers[subscriber.id] = subscriber
	d.mu.Unlock()

	cleanup := func() {
		subscriber.stop()
		d.unregisterSubscriber(subscriber.id)
	}
	d.watchers.Add(1)
	go func() {
		defer d.watchers.Add(-1)
		select {
		case <-ctx.Done():
			cleanup()
		case <-subscriber.done:
		}
	}()
	return subscriber.stream, cleanup
}

func (d *RealtimeDispatcher) Publish(message RealtimeMessage) {
	if message.EventType == "" {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	for _, subscriber := range d.subscribers {
		select {
		case subscriber.stream <- message:
		default:
		}
	}
}

// Close ends every open stream. Later subscriptions receive a closed channel.
func (d *RealtimeDispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for id, subscriber := range d.subscribers {
		close(subscriber.stream)
		subscriber.stop()
		delete(d.subscribers, id)
	}
}

// SubscriberCount reports the number of open streams.
func (d *RealtimeDispatcher) SubscriberCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers)
}

func (d *RealtimeDispatcher) unregisterSubscriber(subscriberID int64) {
	d.mu.Lock()
	delete(d.subscribers, subscriberID)
	d.mu.Unlock()
}

func (h *httpHandler) handleNotesStream(c *gin.Context) {
	ctx := c.Request.Context()
	stream, cleanup := h.realtime.Subscribe(ctx)
	defer cleanup()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	h.logger.Debug("realtime stream opened", zap.String("client_ip", c.ClientIP()))
	defer h.logger.Debug("realtime stream closed", zap.String("client_ip", c.ClientIP()))

	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-stream:
			if !ok {
				return
			}
			c.SSEvent(message.EventType, realtimeEventPayload{
				NoteIDs:   message.NoteIDs,
				Operation: message.Operation,
				Timestamp: message.Timestamp.UTC().Format(time.RFC3339Nano),
				Source:    realtimeSourceBackend,
			})
			c.Writer.Flush()
		case tick := <-ticker.C:
			c.SSEvent(realtimeEventHeartbeat, gin.H{
				"timestamp": tick.UTC().Format(time.RFC3339Nano),
				"source":    realtimeSourceBackend,
			})
			c.Writer.Flush()
		}
	}
}
