// Package bridge negotiates capabilities with a host-provided native AR
// module and relays its measurement and detection events. The host is an
// opaque upstream collaborator; everything here degrades cleanly when it is
// absent.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/umzugtech/volumescan/internal/domain"
)

var (
	// ErrARUnavailable is returned by commands when the host reports no AR
	// capability or there is no host at all.
	ErrARUnavailable = errors.New("bridge: ar unavailable")

	// ErrBridgeTimeout records that the host never announced capabilities
	// within the negotiation window.
	ErrBridgeTimeout = errors.New("bridge: timed out waiting for host capabilities")
)

// State is the bridge lifecycle.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateAwaitingHost  State = "awaiting_host"
	StateReady         State = "ready"
	StateUnavailable   State = "unavailable"
)

// Capabilities is the host's announced AR feature set.
type Capabilities struct {
	Available    bool   `json:"available"`
	Platform     string `json:"platform"`
	HasLiDAR     bool   `json:"has_lidar,omitempty"`
	DeviceModel  string `json:"device_model,omitempty"`
	ARKitVersion string `json:"arkit_version,omitempty"`
}

// DefaultWaitTimeout bounds how long the bridge waits for the host to
// announce capabilities before giving up on AR for the session.
const DefaultWaitTimeout = 5 * time.Second

type handlerEntry struct {
	id int
	fn func(Message)
}

// Bridge is constructed once per process. It is safe for concurrent use by
// multiple subscribers.
type Bridge struct {
	transport Transport
	logger    *slog.Logger

	mu       sync.RWMutex
	state    State
	caps     Capabilities
	err      error
	nextID   int
	handlers map[MessageType][]handlerEntry

	capsCh      chan Capabilities
	unsubscribe func()
}

// Option configures a Bridge.
type Option func(*options)

type options struct {
	waitTimeout time.Duration
}

// WithWaitTimeout overrides the capability negotiation window.
func WithWaitTimeout(d time.Duration) Option {
	return func(o *options) { o.waitTimeout = d }
}

// New builds the bridge. With a nil transport (not hosted) it resolves
// synchronously to Unavailable with web-platform capabilities and starts
// neither goroutine nor timer. With a transport it enters AwaitingHost and
// waits for a capabilities announcement, bounded by the wait timeout.
func New(transport Transport, logger *slog.Logger, opts ...Option) *Bridge {
	o := options{waitTimeout: DefaultWaitTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	b := &Bridge{
		transport: transport,
		logger:    logger,
		state:     StateUninitialized,
		handlers:  make(map[MessageType][]handlerEntry),
	}

	if transport == nil {
		b.state = StateUnavailable
		b.caps = Capabilities{Available: false, Platform: "web"}
		return b
	}

	b.state = StateAwaitingHost
	b.capsCh = make(chan Capabilities, 1)
	b.unsubscribe = transport.Subscribe(b.receive)
	go b.awaitCapabilities(o.waitTimeout)
	return b
}

// awaitCapabilities races the host's announcement against the timeout. The
// timer is stopped on the winning branch either way, so no timer leaks.
func (b *Bridge) awaitCapabilities(timeout time.Duration) {
	timer := time.NewTimer(timeout)
	select {
	case caps := <-b.capsCh:
		timer.Stop()
		b.mu.Lock()
		b.state = StateReady
		b.caps = caps
		b.mu.Unlock()
		b.logger.Info("ar host ready", "platform", caps.Platform, "lidar", caps.HasLiDAR)
		b.emit(Message{Type: TypeARReady, Timestamp: time.Now()})
	case <-timer.C:
		b.mu.Lock()
		b.state = StateUnavailable
		b.caps = Capabilities{Available: false, Platform: "native"}
		b.err = ErrBridgeTimeout
		b.mu.Unlock()
		b.logger.Warn("ar host did not announce capabilities", "timeout", timeout)
	}
}

// receive handles every message arriving from the host transport.
func (b *Bridge) receive(msg Message) {
	if msg.Type == TypeCapabilities {
		var caps Capabilities
		if err := json.Unmarshal(msg.Data, &caps); err != nil {
			b.logger.Error("malformed capabilities message", "error", err)
			return
		}
		// Non-blocking: a repeated announcement after readiness is dropped.
		select {
		case b.capsCh <- caps:
		default:
		}
	}
	b.emit(msg)
}

// emit dispatches a message to the handlers registered for its type. The
// handler list is snapshotted under the lock so concurrent Off calls cannot
// corrupt iteration.
func (b *Bridge) emit(msg Message) {
	b.mu.RLock()
	entries := make([]handlerEntry, len(b.handlers[msg.Type]))
	copy(entries, b.handlers[msg.Type])
	b.mu.RUnlock()

	for _, e := range entries {
		e.fn(msg)
	}
}

// On registers a handler for a message type and returns a subscription id
// for Off. Multiple concurrent subscribers per type are supported.
func (b *Bridge) On(t MessageType, handler func(Message)) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[t] = append(b.handlers[t], handlerEntry{id: b.nextID, fn: handler})
	return b.nextID
}

// Off removes a subscription. Unknown ids are ignored.
func (b *Bridge) Off(t MessageType, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.handlers[t]
	for i, e := range entries {
		if e.id == id {
			b.handlers[t] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// State returns the current lifecycle state.
func (b *Bridge) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Capabilities returns the negotiated capability set. Before negotiation
// completes it is the zero value.
func (b *Bridge) Capabilities() Capabilities {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.caps
}

// Err reports why the bridge became unavailable, if it did.
func (b *Bridge) Err() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.err
}

// startScanCommand is the payload of the session command sent to the host.
type startScanCommand struct {
	Action    string          `json:"action"`
	SessionID string          `json:"session_id"`
	RoomName  domain.RoomType `json:"room_name"`
}

// StartARScan asks the host to begin a native scan for the given session
// and room. It fails fast with ErrARUnavailable unless the bridge is Ready
// and the host reported AR availability; otherwise it is fire-and-forget.
func (b *Bridge) StartARScan(sessionID string, room domain.RoomType) error {
	b.mu.RLock()
	state, caps := b.state, b.caps
	b.mu.RUnlock()

	if state != StateReady || !caps.Available || b.transport == nil {
		return ErrARUnavailable
	}

	data, err := json.Marshal(startScanCommand{
		Action:    "start_scan",
		SessionID: sessionID,
		RoomName:  room,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal start command: %w", err)
	}
	if err := b.transport.Send(Message{Type: TypeSession, Data: data, Timestamp: time.Now()}); err != nil {
		return fmt.Errorf("failed to send start command: %w", err)
	}
	return nil
}

// Close detaches the bridge from its transport.
func (b *Bridge) Close() {
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
}
