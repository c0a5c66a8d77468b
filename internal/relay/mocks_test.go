package relay_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"whisperlink/backend/internal/relay"
	"whisperlink/backend/internal/storage"
)

// MockStorage is a testify double for the storage.Storage interface.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) EnsureLink(ctx context.Context, userID int64, invitedBy *int64) (string, error) {
	args := m.Called(ctx, userID, invitedBy)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) ResolveLink(ctx context.Context, code string) (*int64, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	id := args.Get(0).(int64)
	return &id, args.Error(1)
}

func (m *MockStorage) RecordRelay(ctx context.Context, senderID int64, senderMsgID int, recipientID int64, recipientMsgID int) error {
	args := m.Called(ctx, senderID, senderMsgID, recipientID, recipientMsgID)
	return args.Error(0)
}

func (m *MockStorage) FindCounterpart(ctx context.Context, chatID int64, messageID int) (*storage.Counterpart, error) {
	args := m.Called(ctx, chatID, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Counterpart), args.Error(1)
}

func (m *MockStorage) DisableAnswerTip(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockStorage) AnswerTipEnabled(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

// MockTransport is a testify double for the relay.Transport interface.
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) DeepLink(code string) string {
	args := m.Called(code)
	return args.String(0)
}

func (m *MockTransport) RelayContent(ctx context.Context, src relay.ContentRef, destChatID int64, replyTo int, withReplyTip bool) (int, error) {
	args := m.Called(ctx, src, destChatID, replyTo, withReplyTip)
	return args.Int(0), args.Error(1)
}

func (m *MockTransport) SendText(ctx context.Context, chatID int64, text string, replyTo int) error {
	args := m.Called(ctx, chatID, text, replyTo)
	return args.Error(0)
}

func (m *MockTransport) PromptForMessage(ctx context.Context, chatID int64, text string) (int, error) {
	args := m.Called(ctx, chatID, text)
	return args.Int(0), args.Error(1)
}

func (m *MockTransport) RetractPrompt(ctx context.Context, chatID int64, promptID int) error {
	args := m.Called(ctx, chatID, promptID)
	return args.Error(0)
}

func (m *MockTransport) AnswerCallback(ctx context.Context, callbackID, text string) error {
	args := m.Called(ctx, callbackID, text)
	return args.Error(0)
}
