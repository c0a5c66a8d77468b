package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"whisperlink/backend/internal/api/handler"
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

func newTestRouter(store storage.Storage) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handler.NewHandler(store, func(code string) string {
		return "https://t.me/bot?start=" + code
	}, zap.NewNop().Sugar())

	r := gin.New()
	r.GET("/healthz", h.Health)
	r.GET("/qr/:code", h.ShareQR)
	return r
}

func TestHealth(t *testing.T) {
	r := newTestRouter(new(MockStorage))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestShareQRKnownCode(t *testing.T) {
	store := new(MockStorage)
	store.On("ResolveLink", mock.Anything, "abcd2345").Return(int64(10), nil).Once()
	r := newTestRouter(store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/qr/abcd2345", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())
	store.AssertExpectations(t)
}

func TestShareQRUnknownCode(t *testing.T) {
	store := new(MockStorage)
	store.On("ResolveLink", mock.Anything, "zzzz9999").Return(nil, nil).Once()
	r := newTestRouter(store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/qr/zzzz9999", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// Codes of the wrong shape are rejected before the store is consulted.
func TestShareQRMalformedCode(t *testing.T) {
	store := new(MockStorage)
	r := newTestRouter(store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/qr/short", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	store.AssertNotCalled(t, "ResolveLink", mock.Anything, mock.Anything)
}

func TestShareQRStoreFailure(t *testing.T) {
	store := new(MockStorage)
	store.On("ResolveLink", mock.Anything, "abcd2345").Return(nil, errors.New("db down")).Once()
	r := newTestRouter(store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/qr/abcd2345", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
