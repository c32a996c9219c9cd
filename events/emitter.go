package events

import (
	"sync"

	"go.uber.org/zap"
)

// EventType labels what happened.
type EventType string

const (
	// EventBlockValidationFailed mirrors the external Hooks collaborator's
	// on_block_validation_failed callback (spec.md §6). Nothing in this
	// module emits it; consensus reports validation failures only through
	// its Hooks interface.
	EventBlockValidationFailed EventType = "block_validation_failed"
	EventBlockCommitted        EventType = "block_committed"
	EventVoteSent              EventType = "vote_sent"
	EventForeignProposalTimedOut EventType = "foreign_proposal_timed_out"
	EventHighQcAdvanced        EventType = "high_qc_advanced"
)

// Event carries a typed payload emitted after a consensus state change.
type Event struct {
	Type    EventType      `json:"type"`
	BlockId string         `json:"block_id,omitempty"`
	Height  uint64         `json:"height,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Handler is a callback invoked for matching events.
type Handler func(Event)

// Emitter is a simple pub/sub broker. Subscribe before Emit. It is
// standalone: no consensus.Hooks implementation in this module forwards to
// it, and the consensus package does not import it.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	log      *zap.SugaredLogger
}

// NewEmitter creates an Emitter with no subscribers.
func NewEmitter(log *zap.SugaredLogger) *Emitter {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Emitter{handlers: make(map[EventType][]Handler), log: log}
}

// Subscribe registers h to be called whenever typ is emitted.
func (e *Emitter) Subscribe(typ EventType, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[typ] = append(e.handlers[typ], h)
}

// Emit delivers ev to all subscribers for ev.Type synchronously.
// Each handler is guarded by panic recovery so a misbehaving subscriber
// cannot crash the node or halt block production.
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	handlers := e.handlers[ev.Type]
	e.mu.RUnlock()
	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.log.Errorw("event handler panicked", "type", ev.Type, "recover", r)
				}
			}()
			h(ev)
		}()
	}
}
