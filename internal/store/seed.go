package store

import (
	"context"
	"log/slog"
	"sort"

	"github.com/samber/lo"

	"github.com/xojiakbarxolboyev/telegrambot/core/bootstrap"
	"github.com/xojiakbarxolboyev/telegrambot/core/logger"
)

// TopicSeeder adds configured topics whose numbers are not stored yet.
// Entries the operator already edited are left alone.
func TopicSeeder(topics map[int64]string) bootstrap.Seeder[Store] {
	return bootstrap.SeederFunc[Store](func(ctx context.Context, s Store) error {
		numbers := lo.Keys(topics)
		sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
		added := 0
		for _, n := range numbers {
			_, ok, err := s.Topic(ctx, n)
			if err != nil {
				return err
			}
			if ok {
				continue
			}
			if err := s.AddTopic(ctx, n, topics[n]); err != nil {
				return err
			}
			added++
		}
		logger.Info(ctx, logger.CompStore, "store.seed",
			slog.String("status", "ok"),
			slog.Int("topics", added),
		)
		return nil
	})
}
