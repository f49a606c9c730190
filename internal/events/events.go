package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"card-offer-finder/internal/models"
)

// EventType represents the type of event.
type EventType string

const (
	// EventSelectionChanged is emitted after a toggle, clear or restore
	EventSelectionChanged EventType = "selection.changed"
	// EventUsageRecorded is emitted when an offer is marked as used
	EventUsageRecorded EventType = "usage.recorded"
	// EventUsageEdited is emitted when a recorded usage date is corrected
	EventUsageEdited EventType = "usage.edited"
	// EventCarouselAdvanced is emitted on timer-driven carousel advances
	EventCarouselAdvanced EventType = "carousel.advanced"
)

// Event represents an event in the system.
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// SelectionChangedData contains data for selection changed events.
type SelectionChangedData struct {
	Selected []string
	Reason   string
}

// UsageData contains data for usage recorded and edited events.
type UsageData struct {
	CardID string
	Source models.Source
	Index  int
	Date   time.Time
}

// CarouselAdvancedData contains data for carousel advanced events.
type CarouselAdvancedData struct {
	CurrentIndex int
	TotalSlides  int
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager manages event handlers and event publishing.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
	wg       sync.WaitGroup
}

// NewManager creates a new event manager.
func NewManager(enabled bool) *Manager {
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled {
		return
	}
	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish publishes an event to all subscribed handlers. Handlers run
// asynchronously; use Wait to drain them.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data interface{}) {
	m.mu.RLock()
	enabled := m.enabled
	handlers := m.handlers[eventType]
	m.mu.RUnlock()

	if !enabled || len(handlers) == 0 {
		return
	}

	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	// handlers outlive the request that triggered them
	ctx = context.WithoutCancel(ctx)
	for _, handler := range handlers {
		m.wg.Add(1)
		go func(h Handler) {
			defer m.wg.Done()
			if err := h(ctx, event); err != nil {
				slog.Warn("event handler failed",
					slog.String("event", string(event.Type)),
					slog.String("event_id", event.ID),
					slog.Any("error", err))
			}
		}(handler)
	}
}

// PublishSelectionChanged publishes a selection changed event.
func (m *Manager) PublishSelectionChanged(ctx context.Context, selected []string, reason string) {
	m.Publish(ctx, EventSelectionChanged, SelectionChangedData{Selected: selected, Reason: reason})
}

// PublishUsageRecorded publishes a usage recorded event.
func (m *Manager) PublishUsageRecorded(ctx context.Context, cardID string, source models.Source, index int, date time.Time) {
	m.Publish(ctx, EventUsageRecorded, UsageData{CardID: cardID, Source: source, Index: index, Date: date})
}

// PublishUsageEdited publishes a usage edited event.
func (m *Manager) PublishUsageEdited(ctx context.Context, cardID string, source models.Source, index int, date time.Time) {
	m.Publish(ctx, EventUsageEdited, UsageData{CardID: cardID, Source: source, Index: index, Date: date})
}

// PublishCarouselAdvanced publishes a carousel advanced event.
func (m *Manager) PublishCarouselAdvanced(ctx context.Context, current, total int) {
	m.Publish(ctx, EventCarouselAdvanced, CarouselAdvancedData{CurrentIndex: current, TotalSlides: total})
}

// Wait blocks until all running handlers have returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Shutdown disables the manager and waits for running handlers.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
	m.mu.Unlock()

	m.wg.Wait()
}

// LogHandler logs every event it receives.
func LogHandler(logger *slog.Logger) Handler {
	return func(ctx context.Context, event Event) error {
		logger.InfoContext(ctx, "event",
			slog.String("type", string(event.Type)),
			slog.String("id", event.ID),
			slog.Any("data", event.Data))
		return nil
	}
}
