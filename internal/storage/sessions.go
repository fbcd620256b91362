package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"traderadar/backend/internal/failure"
	"traderadar/backend/internal/models"
	"traderadar/backend/internal/negotiation"
)

// OpenSession повертає активну сесію для пари користувачів або створює нову,
// якщо запит містить картки. Запит без карток (History) повертає останню
// сесію пари лише для читання.
func (s *Service) OpenSession(ctx context.Context, userID string, req negotiation.OpenRequest) (*models.NegotiationSession, error) {
	const op = "open session"
	if req.CounterpartID == "" || req.CounterpartID == userID {
		return nil, failure.ValidationErr(op, "invalid counterpart")
	}
	if req.MatchID != models.PairKey(userID, req.CounterpartID) {
		return nil, failure.ValidationErr(op, "match id does not belong to this pair")
	}
	if len(req.CardIDs) > 0 && req.MatchType != models.TheyHaveWhatIWant && req.MatchType != models.IHaveWhatTheyWant {
		return nil, failure.ValidationErr(op, "cards given for match type "+string(req.MatchType))
	}

	unlock, err := s.lock(ctx, matchLockPrefix+req.MatchID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var active models.NegotiationSession
	err = s.DB.WithContext(ctx).
		Where("match_id = ? AND status = ?", req.MatchID, models.StatusActive).
		Order("started_at desc").
		First(&active).Error
	if err == nil {
		return &active, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if len(req.CardIDs) == 0 {
		var latest models.NegotiationSession
		err := s.DB.WithContext(ctx).
			Where("match_id = ?", req.MatchID).
			Order("started_at desc, id desc").
			First(&latest).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, failure.ValidationErr(op, "no session to resume and no cards to negotiate")
		}
		if err != nil {
			return nil, err
		}
		return &latest, nil
	}

	session := models.NegotiationSession{
		ID:             uuid.NewString(),
		MatchID:        req.MatchID,
		User1ID:        userID,
		User2ID:        req.CounterpartID,
		InitiatorID:    userID,
		MatchType:      req.MatchType,
		MatchedCardIDs: dedup(req.CardIDs),
		Status:         models.StatusActive,
		StartedAt:      time.Now().UTC(),
	}
	if err := s.DB.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, err
	}
	s.Logger.Info("session created",
		zap.String("session_id", session.ID), zap.String("match_id", session.MatchID),
		zap.String("initiator_id", userID))
	return &session, nil
}

// GetSessionByID повертає сесію або ErrNotFound.
func (s *Service) GetSessionByID(ctx context.Context, sessionID string) (*models.NegotiationSession, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, ErrNotFound
	}
	var session models.NegotiationSession
	err := s.DB.WithContext(ctx).Where("id = ?", sessionID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSessionsForUser повертає всі сесії користувача, незалежно від статусу.
func (s *Service) GetSessionsForUser(ctx context.Context, userID string) ([]models.NegotiationSession, error) {
	var sessions []models.NegotiationSession
	if err := s.DB.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("started_at asc").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// TransitionSession переводить активну сесію в термінальний статус.
// Умовне оновлення (WHERE status = 'active') робить термінальний статус
// незмінним: повторний перехід повертає Conflict.
func (s *Service) TransitionSession(ctx context.Context, sessionID string, to models.NegotiationStatus, reason string) error {
	const op = "transition session"
	if !to.Terminal() {
		return failure.ValidationErr(op, "target status must be terminal")
	}
	res := s.DB.WithContext(ctx).Model(&models.NegotiationSession{}).
		Where("id = ? AND status = ?", sessionID, models.StatusActive).
		Updates(map[string]interface{}{
			"status":       to,
			"close_reason": reason,
			"ended_at":     gorm.Expr("NOW()"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		current, err := s.GetSessionByID(ctx, sessionID)
		if err != nil {
			return err
		}
		return failure.ConflictErr(op, fmt.Errorf("session %s is already %s", sessionID, current.Status))
	}
	s.Logger.Info("session closed",
		zap.String("session_id", sessionID), zap.String("status", string(to)), zap.String("reason", reason))
	return nil
}

// SaveMessage зберігає повідомлення з серверним часом та ULID.
// Рядок сесії блокується на час вставки, тож повідомлення не може
// з'явитися після переходу сесії в термінальний статус.
func (s *Service) SaveMessage(ctx context.Context, sessionID, senderID, content string) (*models.MessageRecord, error) {
	const op = "save message"
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, failure.ValidationErr(op, "empty message")
	}

	var msg models.MessageRecord
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session models.NegotiationSession
		err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Where("id = ?", sessionID).First(&session).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if session.Status.Terminal() {
			return failure.ConflictErr(op, fmt.Errorf("session %s is %s", sessionID, session.Status))
		}

		now := time.Now().UTC()
		msg = models.MessageRecord{
			ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
			SessionID: sessionID,
			SenderID:  senderID,
			Content:   content,
			SentAt:    now,
		}
		return tx.Create(&msg).Error
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetMessages отримує повну історію повідомлень сесії в порядку надсилання.
func (s *Service) GetMessages(ctx context.Context, sessionID string) ([]models.MessageRecord, error) {
	var history []models.MessageRecord
	if err := s.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("sent_at asc, id asc").
		Find(&history).Error; err != nil {
		return nil, err
	}
	return history, nil
}
