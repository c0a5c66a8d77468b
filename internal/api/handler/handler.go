// Package handler exposes the small HTTP surface of the bot: a health probe
// and a QR share card for invitation links.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"whisperlink/backend/internal/storage"
)

// Handler wires the HTTP routes to the identity store.
type Handler struct {
	Store storage.Storage
	// DeepLink renders the shareable link for a code; provided by the
	// transport so the HTTP surface never talks to the Bot API itself.
	DeepLink func(code string) string
	logger   *zap.SugaredLogger
}

// NewHandler is the Handler constructor.
func NewHandler(store storage.Storage, deepLink func(string) string, logger *zap.SugaredLogger) *Handler {
	return &Handler{Store: store, DeepLink: deepLink, logger: logger}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ShareQR renders a PNG QR code of the deep link for an issued link code.
// Unknown codes get a 404 so the endpoint cannot be used to mint links.
func (h *Handler) ShareQR(c *gin.Context) {
	code := c.Param("code")
	if len(code) != storage.LinkCodeLength {
		c.Status(http.StatusNotFound)
		return
	}

	userID, err := h.Store.ResolveLink(c.Request.Context(), code)
	if err != nil {
		h.logger.Errorw("link resolution failed", "code", code, "err", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if userID == nil {
		c.Status(http.StatusNotFound)
		return
	}

	png, err := qrcode.Encode(h.DeepLink(code), qrcode.Medium, 256)
	if err != nil {
		h.logger.Errorw("qr encoding failed", "code", code, "err", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
