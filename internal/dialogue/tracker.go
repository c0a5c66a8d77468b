// Package dialogue holds the ephemeral per-chat conversation state.
// State lives only in process memory: a restart resets every chat back to
// Start, which is intentional.
package dialogue

import "sync"

// Kind enumerates the per-chat dialogue modes.
type Kind int

const (
	// Start is the default mode: the chat is not composing a fresh
	// anonymous message.
	Start Kind = iota
	// AwaitingMessage means the user opened someone's link and the next
	// content message is addressed to RecipientID.
	AwaitingMessage
)

// State is the dialogue state of one chat.
type State struct {
	Kind Kind

	// RecipientID is set while Kind == AwaitingMessage.
	RecipientID int64
	// PendingPromptID is the message id of the prompt shown when entering
	// AwaitingMessage, kept so its UI can be retracted on exit.
	PendingPromptID int
}

// Tracker keeps dialogue state per chat id and gives every chat its own
// sequential processing lane. Distinct chats never block on each other;
// two updates for the same chat are serialized by Serialize.
type Tracker struct {
	mu     sync.RWMutex
	states map[int64]State

	lanesMu sync.Mutex
	lanes   map[int64]*sync.Mutex
}

// NewTracker is the Tracker constructor.
func NewTracker() *Tracker {
	return &Tracker{
		states: make(map[int64]State),
		lanes:  make(map[int64]*sync.Mutex),
	}
}

// GetOrDefault returns the chat's current state, defaulting to Start for
// chats never seen before.
func (t *Tracker) GetOrDefault(chatID int64) State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.states[chatID]
}

// Set replaces the chat's state.
func (t *Tracker) Set(chatID int64, state State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states[chatID] = state
}

// Reset puts the chat back to Start.
func (t *Tracker) Reset(chatID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, chatID)
}

// Serialize runs fn while holding the chat's lane mutex, so concurrent
// updates for the same chat observe each other's state transitions as one
// logical step. Lanes are created lazily and never torn down; the map is
// bounded by the number of distinct chats seen during the process lifetime.
func (t *Tracker) Serialize(chatID int64, fn func()) {
	lane := t.lane(chatID)
	lane.Lock()
	defer lane.Unlock()
	fn()
}

func (t *Tracker) lane(chatID int64) *sync.Mutex {
	t.lanesMu.Lock()
	defer t.lanesMu.Unlock()
	lane, ok := t.lanes[chatID]
	if !ok {
		lane = &sync.Mutex{}
		t.lanes[chatID] = lane
	}
	return lane
}
