package storage

import (
	"context"

	"go.uber.org/zap"
)

// StartInvalidationListener запускає Goroutine, яка слухає Redis Pub/Sub і
// скидає локальний кеш списків, змінених на будь-якому інстансі.
// Зупиняється разом із ctx.
func (s *Service) StartInvalidationListener(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	go func() {
		pubsub := s.Redis.Subscribe(ctx, listChangedChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				s.Cache.Del(msg.Payload)
				s.Logger.Debug("list cache invalidated", zap.String("key", msg.Payload))
			}
		}
	}()
}
