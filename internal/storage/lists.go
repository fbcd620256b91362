package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"traderadar/backend/internal/config"
	"traderadar/backend/internal/failure"
	"traderadar/backend/internal/models"
)

const lockRetryDelay = 50 * time.Millisecond

// GetList повертає список бажаного або наявного, впорядкований за card_template_id.
func (s *Service) GetList(ctx context.Context, userID string, kind models.ListKind) ([]models.TradeListEntry, error) {
	if !kind.Valid() {
		return nil, failure.ValidationErr("get list", "unknown list kind "+string(kind))
	}
	if entries, ok := s.Cache.Get(userID, kind); ok {
		return entries, nil
	}

	var rows []models.ListEntry
	if err := s.DB.WithContext(ctx).
		Where("user_id = ? AND kind = ?", userID, kind).
		Order("card_template_id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]models.TradeListEntry, len(rows))
	for i, r := range rows {
		entries[i] = r.Entry()
	}
	s.Cache.Set(userID, kind, entries)
	return entries, nil
}

// AddListEntry додає картку до списку. Повторне додавання оновлює опис картки.
func (s *Service) AddListEntry(ctx context.Context, userID string, kind models.ListKind, entry models.TradeListEntry) error {
	if !kind.Valid() {
		return failure.ValidationErr("add list entry", "unknown list kind "+string(kind))
	}
	if strings.TrimSpace(entry.CardTemplateID) == "" || strings.TrimSpace(entry.CardName) == "" {
		return failure.ValidationErr("add list entry", "card_template_id and card_name are required")
	}

	row := models.ListEntry{
		UserID:         userID,
		Kind:           kind,
		CardTemplateID: entry.CardTemplateID,
		CardName:       entry.CardName,
		TCGType:        entry.TCGType,
		Rarity:         entry.Rarity,
		ImageURL:       entry.ImageURL,
	}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "kind"}, {Name: "card_template_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"card_name", "tcg_type", "rarity", "image_url"}),
	}).Create(&row).Error
	if err != nil {
		return err
	}
	s.invalidateList(ctx, userID, kind)
	return nil
}

// RemoveEntries видаляє картки зі списку користувача після завершення угоди.
// Видалення атомарне: якщо хоча б однієї картки вже немає, нічого не
// видаляється і повертається Conflict. Паралельні видалення для одного
// користувача серіалізуються через Redis-lock.
func (s *Service) RemoveEntries(ctx context.Context, userID string, cardIDs []string, kind models.ListKind) error {
	const op = "remove list entries"
	if !kind.Valid() {
		return failure.ValidationErr(op, "unknown list kind "+string(kind))
	}
	if len(cardIDs) == 0 {
		return failure.ValidationErr(op, "no cards to remove")
	}
	ids := dedup(cardIDs)

	unlock, err := s.lock(ctx, listLockPrefix+userID)
	if err != nil {
		return failure.Classify(op, err)
	}
	defer unlock()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND kind = ? AND card_template_id IN ?", userID, kind, ids).
			Delete(&models.ListEntry{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(ids)) {
			return failure.ConflictErr(op, fmt.Errorf("%d of %d cards no longer in %s list", len(ids)-int(res.RowsAffected), len(ids), kind))
		}
		return nil
	})
	if err != nil {
		return failure.Classify(op, err)
	}

	s.invalidateList(ctx, userID, kind)
	s.Logger.Info("list entries removed",
		zap.String("user_id", userID), zap.String("kind", string(kind)), zap.Int("count", len(ids)))
	return nil
}

// invalidateList скидає кеш локально та сповіщає інші інстанси через Pub/Sub.
func (s *Service) invalidateList(ctx context.Context, userID string, kind models.ListKind) {
	key := listKey(userID, kind)
	s.Cache.Del(key)
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Publish(ctx, listChangedChan, key).Err(); err != nil {
		s.Logger.Warn("list invalidation publish failed", zap.String("key", key), zap.Error(err))
	}
}

// lock бере короткий Redis-lock (SET NX PX) і повертає функцію звільнення.
// Звільняється лише власний lock: значення є випадковим токеном.
func (s *Service) lock(ctx context.Context, key string) (func(), error) {
	if s.Redis == nil {
		return func() {}, nil
	}
	token := uuid.NewString()
	for {
		ok, err := s.Redis.SetNX(ctx, key, token, config.ListLockTTL).Result()
		if err != nil {
			return nil, failure.TransientErr("lock "+key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, failure.TransientErr("lock "+key, ctx.Err())
		case <-time.After(lockRetryDelay):
		}
	}
	return func() {
		// Звільняємо з фоновим контекстом: запит міг уже завершитися.
		if err := unlockScript.Run(context.Background(), s.Redis, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			s.Logger.Warn("unlock failed", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

func dedup(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
