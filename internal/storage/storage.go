// Package storage persists user identities and the relay ledger in
// PostgreSQL, with Redis acting as a read-through cache for link resolution.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"whisperlink/backend/internal/models"
)

// ErrNotFound is returned when a lookup that expects an existing row
// (e.g. the tip flag of a registered user) finds nothing.
var ErrNotFound = errors.New("storage: not found")

// ErrLinkCodeExhausted is returned when repeated link code samples keep
// colliding with already issued codes.
var ErrLinkCodeExhausted = errors.New("storage: could not allocate a unique link code")

// maxLinkCodeAttempts bounds the unique-violation retry loop in EnsureLink.
const maxLinkCodeAttempts = 5

// linkCacheTTL bounds Redis memory; codes are immutable so staleness is
// not a correctness concern.
const linkCacheTTL = 24 * time.Hour

// Counterpart is the opposite side of a relay record: the chat and the
// transport-local message id a threaded reply should target.
type Counterpart struct {
	ChatID    int64
	MessageID int
}

// Storage is the persistence surface consumed by the relay orchestrator
// and the HTTP handlers.
type Storage interface {
	// EnsureLink returns the user's link code, creating the user row on
	// first contact and refreshing last_activity on every later call.
	// An existing invited_by is never changed.
	EnsureLink(ctx context.Context, userID int64, invitedBy *int64) (string, error)

	// ResolveLink maps a link code back to its owner. A nil result with a
	// nil error means the code was never issued.
	ResolveLink(ctx context.Context, code string) (*int64, error)

	// RecordRelay appends one ledger row. Must only be called after the
	// transport confirmed delivery.
	RecordRelay(ctx context.Context, senderID int64, senderMsgID int, recipientID int64, recipientMsgID int) error

	// FindCounterpart looks the (chatID, messageID) pair up on either side
	// of the ledger and returns the opposite pair, or nil when no record
	// references it.
	FindCounterpart(ctx context.Context, chatID int64, messageID int) (*Counterpart, error)

	// DisableAnswerTip permanently turns the reply affordance off for a
	// user. Idempotent.
	DisableAnswerTip(ctx context.Context, userID int64) error

	// AnswerTipEnabled reports whether the user still wants the reply
	// affordance. Returns ErrNotFound for users never registered.
	AnswerTipEnabled(ctx context.Context, userID int64) (bool, error)
}

// Service is the GORM/Redis implementation of Storage.
type Service struct {
	DB     *gorm.DB
	Redis  *redis.Client
	logger *zap.SugaredLogger
}

// NewService is the Service constructor.
func NewService(db *gorm.DB, rdb *redis.Client, logger *zap.SugaredLogger) *Service {
	return &Service{DB: db, Redis: rdb, logger: logger}
}

func (s *Service) EnsureLink(ctx context.Context, userID int64, invitedBy *int64) (string, error) {
	var user models.User
	err := s.DB.WithContext(ctx).First(&user, userID).Error
	if err == nil {
		if err := s.DB.WithContext(ctx).
			Model(&models.User{}).
			Where("id = ?", userID).
			Update("last_activity", time.Now()).Error; err != nil {
			return "", fmt.Errorf("refresh last_activity for %d: %w", userID, err)
		}
		return user.LinkCode, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("lookup user %d: %w", userID, err)
	}

	for attempt := 0; attempt < maxLinkCodeAttempts; attempt++ {
		user = models.User{
			ID:               userID,
			LinkCode:         NewLinkCode(),
			InvitedBy:        invitedBy,
			AnswerTipEnabled: true,
		}
		err = s.DB.WithContext(ctx).Create(&user).Error
		if err == nil {
			s.cacheLink(ctx, user.LinkCode, userID)
			s.logger.Infow("registered new user", "user_id", userID, "invited", invitedBy != nil)
			return user.LinkCode, nil
		}
		if !isUniqueViolation(err) {
			return "", fmt.Errorf("insert user %d: %w", userID, err)
		}

		// Unique violation: either the sampled code collided, or a
		// concurrent first contact won the primary-key race. Re-check the
		// row before sampling again.
		var existing models.User
		if lookupErr := s.DB.WithContext(ctx).First(&existing, userID).Error; lookupErr == nil {
			return existing.LinkCode, nil
		}
		s.logger.Debugw("link code collision, resampling", "user_id", userID, "attempt", attempt+1)
	}
	return "", ErrLinkCodeExhausted
}

func (s *Service) ResolveLink(ctx context.Context, code string) (*int64, error) {
	key := linkCacheKey(code)
	if cached, err := s.Redis.Get(ctx, key).Result(); err == nil {
		if id, parseErr := strconv.ParseInt(cached, 10, 64); parseErr == nil {
			return &id, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		// Cache trouble must not break resolution; fall through to the DB.
		s.logger.Warnw("link cache read failed", "err", err)
	}

	var user models.User
	err := s.DB.WithContext(ctx).Where("link_code = ?", code).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve link %q: %w", code, err)
	}

	s.cacheLink(ctx, code, user.ID)
	return &user.ID, nil
}

func (s *Service) RecordRelay(ctx context.Context, senderID int64, senderMsgID int, recipientID int64, recipientMsgID int) error {
	record := models.RelayRecord{
		SenderID:           senderID,
		SenderMessageID:    senderMsgID,
		RecipientID:        recipientID,
		RecipientMessageID: recipientMsgID,
	}
	if err := s.DB.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("record relay %d/%d -> %d/%d: %w",
			senderID, senderMsgID, recipientID, recipientMsgID, err)
	}
	return nil
}

func (s *Service) FindCounterpart(ctx context.Context, chatID int64, messageID int) (*Counterpart, error) {
	var record models.RelayRecord

	// Sender side first: the recipient pair carries the uniqueness
	// guarantee, so on the (theoretical) double match the sender side wins.
	err := s.DB.WithContext(ctx).
		Where("sender_id = ? AND sender_message_id = ?", chatID, messageID).
		Order("id DESC").
		First(&record).Error
	if err == nil {
		return &Counterpart{ChatID: record.RecipientID, MessageID: record.RecipientMessageID}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("counterpart lookup (sender side): %w", err)
	}

	err = s.DB.WithContext(ctx).
		Where("recipient_id = ? AND recipient_message_id = ?", chatID, messageID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("counterpart lookup (recipient side): %w", err)
	}
	return &Counterpart{ChatID: record.SenderID, MessageID: record.SenderMessageID}, nil
}

func (s *Service) DisableAnswerTip(ctx context.Context, userID int64) error {
	if err := s.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("answer_tip_enabled", false).Error; err != nil {
		return fmt.Errorf("disable answer tip for %d: %w", userID, err)
	}
	return nil
}

func (s *Service) AnswerTipEnabled(ctx context.Context, userID int64) (bool, error) {
	var user models.User
	err := s.DB.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("lookup tip flag for %d: %w", userID, err)
	}
	return user.AnswerTipEnabled, nil
}

// cacheLink best-effort populates the Redis link cache.
func (s *Service) cacheLink(ctx context.Context, code string, userID int64) {
	if err := s.Redis.Set(ctx, linkCacheKey(code), strconv.FormatInt(userID, 10), linkCacheTTL).Err(); err != nil {
		s.logger.Warnw("link cache write failed", "code", code, "err", err)
	}
}

func linkCacheKey(code string) string { return "link:" + code }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
