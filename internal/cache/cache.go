// Package cache maintains the local mirror of remote collections, used for
// instant reads and as the base for optimistic writes.
package cache

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/andrew-thompson-55/trainer-2.0/internal/model"
	"github.com/andrew-thompson-55/trainer-2.0/internal/storage"
)

const (
	workoutsKey  = "trainer_cache_workouts"
	dailyLogsKey = "trainer_cache_daily_logs"
)

// Cache mirrors remote collections in a key-value store. Reads never fail:
// storage faults and corrupt payloads degrade to an empty collection, with
// the fault logged.
type Cache struct {
	store storage.Adapter
	log   logrus.FieldLogger
}

func New(store storage.Adapter, log logrus.FieldLogger) *Cache {
	return &Cache{store: store, log: log}
}

// Workouts returns the last-known workout collection, or an empty slice if
// nothing usable is stored.
func (c *Cache) Workouts(ctx context.Context) []model.Workout {
	raw, ok, err := c.store.Get(ctx, workoutsKey)
	if err != nil {
		c.log.WithError(err).Warn("workout cache read failed, treating as empty")
		return []model.Workout{}
	}
	if !ok {
		return []model.Workout{}
	}

	var workouts []model.Workout
	if err := json.Unmarshal([]byte(raw), &workouts); err != nil {
		c.log.WithError(err).Warn("workout cache corrupt, treating as empty")
		return []model.Workout{}
	}
	if workouts == nil {
		workouts = []model.Workout{}
	}
	return workouts
}

// WriteWorkouts replaces the stored workout collection.
func (c *Cache) WriteWorkouts(ctx context.Context, workouts []model.Workout) error {
	if workouts == nil {
		workouts = []model.Workout{}
	}
	raw, err := json.Marshal(workouts)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, workoutsKey, string(raw))
}

// DailyLogs returns the date-keyed log map, or an empty map if nothing
// usable is stored.
func (c *Cache) DailyLogs(ctx context.Context) map[string]model.DailyLog {
	raw, ok, err := c.store.Get(ctx, dailyLogsKey)
	if err != nil {
		c.log.WithError(err).Warn("daily log cache read failed, treating as empty")
		return map[string]model.DailyLog{}
	}
	if !ok {
		return map[string]model.DailyLog{}
	}

	var logs map[string]model.DailyLog
	if err := json.Unmarshal([]byte(raw), &logs); err != nil {
		c.log.WithError(err).Warn("daily log cache corrupt, treating as empty")
		return map[string]model.DailyLog{}
	}
	if logs == nil {
		logs = map[string]model.DailyLog{}
	}
	return logs
}

// WriteDailyLogs replaces the stored daily-log map.
func (c *Cache) WriteDailyLogs(ctx context.Context, logs map[string]model.DailyLog) error {
	if logs == nil {
		logs = map[string]model.DailyLog{}
	}
	raw, err := json.Marshal(logs)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, dailyLogsKey, string(raw))
}
