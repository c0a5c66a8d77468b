package relay

import "context"

// Callback action tags carried by the inline buttons the bot attaches.
const (
	ActionCancel  = "cancel"
	ActionReply   = "reply"
	ActionHideTip = "hide_tip"
)

// ContentRef points at the message to relay. The orchestrator never looks
// inside the content; the transport copies it type-preserving.
type ContentRef struct {
	ChatID    int64
	MessageID int
}

// Inbound is a transport-agnostic view of one incoming message.
type Inbound struct {
	ChatID    int64
	MessageID int

	// ReplyToID is the id of the message this one swipe-replies to,
	// 0 when it is not a reply.
	ReplyToID int

	IsCommand bool
	Command   string
	Payload   string

	// Text is the plain text, if any. Used for the cancel keyword.
	Text string

	// HasContent reports whether the message carries anything deliverable.
	HasContent bool
}

// Callback is a UI callback action (inline button press).
type Callback struct {
	ID        string
	ChatID    int64
	MessageID int
	Action    string
}

// DeliveryError is any transport-side delivery failure: blocked recipient,
// network trouble, rejected content. The orchestrator treats all causes
// uniformly and never retries.
type DeliveryError struct {
	Reason string
}

func (e *DeliveryError) Error() string {
	return "delivery failed: " + e.Reason
}

// Transport is the outbound side of the messaging platform. Implementations
// deliver content and small service texts; they never touch the ledger or
// the dialogue state.
type Transport interface {
	// DeepLink renders the shareable link for a link code.
	DeepLink(code string) string

	// RelayContent copies the source message to destChatID, preserving its
	// type, optionally threaded as a reply to replyTo (0 for none) and
	// optionally carrying the reply affordance. Returns the delivered
	// message id; failures come back as *DeliveryError.
	RelayContent(ctx context.Context, src ContentRef, destChatID int64, replyTo int, withReplyTip bool) (int, error)

	// SendText sends a plain service text, optionally as a reply.
	SendText(ctx context.Context, chatID int64, text string, replyTo int) error

	// PromptForMessage shows the "send your anonymous message" prompt with
	// a cancel affordance and returns the prompt's message id.
	PromptForMessage(ctx context.Context, chatID int64, text string) (int, error)

	// RetractPrompt removes a previously shown prompt.
	RetractPrompt(ctx context.Context, chatID int64, promptID int) error

	// AnswerCallback acknowledges a callback action with a transient notice.
	AnswerCallback(ctx context.Context, callbackID, text string) error
}
