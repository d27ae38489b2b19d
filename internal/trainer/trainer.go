// Package trainer is the entry point the rest of the application calls. It
// composes the connectivity oracle, remote client, entity cache and offline
// outbox into a cache-first read / optimistic-write / queue-on-failure
// policy per entity type.
package trainer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/andrew-thompson-55/trainer-2.0/internal/cache"
	"github.com/andrew-thompson-55/trainer-2.0/internal/client"
	"github.com/andrew-thompson-55/trainer-2.0/internal/connectivity"
	"github.com/andrew-thompson-55/trainer-2.0/internal/model"
	"github.com/andrew-thompson-55/trainer-2.0/internal/outbox"
	"github.com/andrew-thompson-55/trainer-2.0/internal/storage"
	"github.com/andrew-thompson-55/trainer-2.0/internal/syncer"
)

// WorkoutFilter narrows GetWorkouts to a date range. Zero values are omitted.
type WorkoutFilter struct {
	StartDate string
	EndDate   string
}

// API is the domain façade. Reads are served cache-first and never surface
// errors; writes are applied optimistically and queued when the network is
// unavailable or rejects the attempt.
//
// Writes to the same entity type are serialized by a per-type mutex; the
// cache read-modify-write sequence is not otherwise atomic across its
// suspension points.
type API struct {
	oracle connectivity.Oracle
	client *client.Client
	cache  *cache.Cache
	queue  *outbox.Queue
	engine *syncer.Engine
	log    logrus.FieldLogger

	workoutsMu  sync.Mutex
	dailyLogsMu sync.Mutex
}

// New wires a façade from its injected capabilities. The cache, queue and
// sync engine are owned exclusively by the returned API.
func New(store storage.Adapter, rc *client.Client, oracle connectivity.Oracle, log logrus.FieldLogger) *API {
	q := outbox.New(store, log)
	return &API{
		oracle: oracle,
		client: rc,
		cache:  cache.New(store, log),
		queue:  q,
		engine: syncer.New(q, rc, log),
		log:    log,
	}
}

// QueueLen reports the number of pending offline mutations.
func (a *API) QueueLen(ctx context.Context) int {
	return a.queue.Len(ctx)
}

func (a *API) online(ctx context.Context) bool {
	return a.oracle.State(ctx).Online()
}

// GetWorkouts returns the workout collection, fetching from the backend and
// refreshing the cache when online, and falling back to the cached copy on
// any failure. A malformed (non-list) server payload is discarded rather
// than cached.
func (a *API) GetWorkouts(ctx context.Context, filter *WorkoutFilter) []model.Workout {
	if a.online(ctx) {
		endpoint := "/workouts"
		if filter != nil {
			query := url.Values{}
			if filter.StartDate != "" {
				query.Set("start_date", filter.StartDate)
			}
			if filter.EndDate != "" {
				query.Set("end_date", filter.EndDate)
			}
			if encoded := query.Encode(); encoded != "" {
				endpoint += "?" + encoded
			}
		}

		workouts, err := a.fetchWorkouts(ctx, endpoint)
		if err == nil {
			if err := a.cache.WriteWorkouts(ctx, workouts); err != nil {
				a.log.WithError(err).Warn("unable to refresh workout cache")
			}
			return workouts
		}
		a.log.WithError(err).Info("workout fetch failed, falling back to cache")
	}

	return a.GetCachedWorkouts(ctx)
}

func (a *API) fetchWorkouts(ctx context.Context, endpoint string) ([]model.Workout, error) {
	req, err := a.client.NewRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("fetching workouts: status %d", resp.StatusCode)
	}

	var workouts []model.Workout
	if err := resp.Decode(&workouts); err != nil {
		return nil, fmt.Errorf("malformed workout collection: %w", err)
	}
	if workouts == nil {
		workouts = []model.Workout{}
	}
	return workouts, nil
}

// GetCachedWorkouts returns the last-known workout collection without
// touching the network.
func (a *API) GetCachedWorkouts(ctx context.Context) []model.Workout {
	return a.cache.Workouts(ctx)
}

// GetWorkout returns a single workout by identifier, from the backend when
// online and from the cached collection otherwise. It returns nil when the
// workout is unknown; it never fabricates a result.
func (a *API) GetWorkout(ctx context.Context, id string) *model.Workout {
	if a.online(ctx) {
		req, err := a.client.NewRequest(ctx, http.MethodGet, "/workouts/"+id, nil)
		if err == nil {
			if resp, err := a.client.Do(req); err == nil && resp.OK() {
				var w model.Workout
				if err := resp.Decode(&w); err == nil {
					return &w
				}
			}
		}
		a.log.WithField("id", id).Info("workout lookup failed, falling back to cache")
	}

	for _, w := range a.cache.Workouts(ctx) {
		if w.ID == id {
			return &w
		}
	}
	return nil
}

// CreateWorkout creates a workout on the backend when possible. When offline
// or on failure it synthesizes a temp-identified entity with status defaulted
// to planned, caches it and queues the creation.
func (a *API) CreateWorkout(ctx context.Context, data model.WorkoutCreate) *model.Workout {
	if a.online(ctx) {
		req, err := a.client.NewRequest(ctx, http.MethodPost, "/workouts", data)
		if err == nil {
			if resp, err := a.client.Do(req); err == nil && resp.OK() {
				var created model.Workout
				if err := resp.Decode(&created); err == nil {
					a.appendToCache(ctx, created)
					return &created
				}
			}
		}
		a.log.Info("workout creation failed, switching to offline mode")
	}

	status := data.Status
	if status == "" {
		status = model.StatusPlanned
	}
	optimistic := model.Workout{
		ID:           model.TempIDPrefix + uuid.NewString(),
		Title:        data.Title,
		Description:  data.Description,
		StartTime:    data.StartTime,
		EndTime:      data.EndTime,
		ActivityType: data.ActivityType,
		Status:       status,
		CreatedAt:    time.Now().UTC(),
		Offline:      true,
	}

	a.appendToCache(ctx, optimistic)

	payload := struct {
		model.WorkoutCreate
		ID string `json:"id"`
	}{WorkoutCreate: data, ID: optimistic.ID}
	if err := a.queue.Enqueue(ctx, outbox.KindCreate, "/workouts", payload); err != nil {
		a.log.WithError(err).Warn("unable to queue workout creation")
	}

	return &optimistic
}

func (a *API) appendToCache(ctx context.Context, w model.Workout) {
	a.workoutsMu.Lock()
	defer a.workoutsMu.Unlock()
	workouts := append(a.cache.Workouts(ctx), w)
	if err := a.cache.WriteWorkouts(ctx, workouts); err != nil {
		a.log.WithError(err).Warn("unable to persist workout cache")
	}
}

// UpdateWorkout applies patch to the cached workout immediately, then
// attempts the backend PATCH. On failure the mutation is queued and the
// optimistic local copy is returned flagged Offline.
func (a *API) UpdateWorkout(ctx context.Context, id string, patch model.WorkoutUpdate) *model.Workout {
	a.workoutsMu.Lock()
	var local *model.Workout
	workouts := a.cache.Workouts(ctx)
	for i := range workouts {
		if workouts[i].ID == id {
			workouts[i].Apply(patch)
			local = &workouts[i]
			break
		}
	}
	if err := a.cache.WriteWorkouts(ctx, workouts); err != nil {
		a.log.WithError(err).Warn("unable to persist workout cache")
	}
	a.workoutsMu.Unlock()

	if a.online(ctx) {
		req, err := a.client.NewRequest(ctx, http.MethodPatch, "/workouts/"+id, patch)
		if err == nil {
			if resp, err := a.client.Do(req); err == nil && resp.OK() {
				var updated model.Workout
				if err := resp.Decode(&updated); err == nil {
					return &updated
				}
			}
		}
		a.log.WithField("id", id).Info("workout update failed, queuing")
	}

	if err := a.queue.Enqueue(ctx, outbox.KindUpdate, "/workouts/"+id, patch); err != nil {
		a.log.WithError(err).Warn("unable to queue workout update")
	}

	if local == nil {
		return nil
	}
	local.Offline = true
	return local
}

// DeleteWorkout removes the workout from the cache immediately, then
// attempts the backend DELETE. On failure a DELETE is queued; deleting an
// entity the server never saw instead purges its queued history.
func (a *API) DeleteWorkout(ctx context.Context, id string) {
	a.workoutsMu.Lock()
	workouts := a.cache.Workouts(ctx)
	kept := workouts[:0]
	for _, w := range workouts {
		if w.ID != id {
			kept = append(kept, w)
		}
	}
	if err := a.cache.WriteWorkouts(ctx, kept); err != nil {
		a.log.WithError(err).Warn("unable to persist workout cache")
	}
	a.workoutsMu.Unlock()

	if a.online(ctx) {
		req, err := a.client.NewRequest(ctx, http.MethodDelete, "/workouts/"+id, nil)
		if err == nil {
			if resp, err := a.client.Do(req); err == nil && resp.OK() {
				return
			}
		}
		a.log.WithField("id", id).Info("workout delete failed, queuing")
	}

	if err := a.queue.Enqueue(ctx, outbox.KindDelete, "/workouts/"+id, struct{}{}); err != nil {
		a.log.WithError(err).Warn("unable to queue workout delete")
	}
}

// GetDailyLog returns the log for an ISO calendar date, refreshing the
// cached entry when online and falling back to the cache otherwise. It
// returns nil for a date that was never seen.
func (a *API) GetDailyLog(ctx context.Context, date string) *model.DailyLog {
	logs := a.cache.DailyLogs(ctx)

	if a.online(ctx) {
		req, err := a.client.NewRequest(ctx, http.MethodGet, "/daily-logs/"+date, nil)
		if err == nil {
			if resp, err := a.client.Do(req); err == nil && resp.OK() {
				var fetched model.DailyLog
				if err := resp.Decode(&fetched); err == nil {
					logs[date] = fetched
					if err := a.cache.WriteDailyLogs(ctx, logs); err != nil {
						a.log.WithError(err).Warn("unable to refresh daily log cache")
					}
					return &fetched
				}
			}
		}
		a.log.WithField("date", date).Info("daily log fetch failed, using cache")
	}

	if entry, ok := logs[date]; ok {
		return &entry
	}
	return nil
}

// UpdateDailyLog merges data into the cached entry for the date (the server
// preserves unspecified fields on its PUT, and the local copy follows suit),
// then attempts the backend PUT. On failure the partial update is queued.
func (a *API) UpdateDailyLog(ctx context.Context, date string, data model.DailyLog) *model.DailyLog {
	a.dailyLogsMu.Lock()
	logs := a.cache.DailyLogs(ctx)
	merged := logs[date].Merge(data)
	merged.Date = date
	logs[date] = merged
	if err := a.cache.WriteDailyLogs(ctx, logs); err != nil {
		a.log.WithError(err).Warn("unable to persist daily log cache")
	}
	a.dailyLogsMu.Unlock()

	if a.online(ctx) {
		req, err := a.client.NewRequest(ctx, http.MethodPut, "/daily-logs/"+date, data)
		if err == nil {
			if resp, err := a.client.Do(req); err == nil && resp.OK() {
				var updated model.DailyLog
				if err := resp.Decode(&updated); err == nil {
					return &updated
				}
			}
		}
		a.log.WithField("date", date).Info("daily log update failed, queuing")
	}

	if err := a.queue.Enqueue(ctx, outbox.KindUpdate, "/daily-logs/"+date, data); err != nil {
		a.log.WithError(err).Warn("unable to queue daily log update")
	}

	return &merged
}

// ProcessOfflineQueue drains the outbox against the backend and returns the
// number of mutations taken off the queue. Callers typically re-run the
// read path afterwards to pick up server-confirmed state.
func (a *API) ProcessOfflineQueue(ctx context.Context) int {
	return a.engine.Drain(ctx)
}

// GetLinkedActivity returns the raw third-party activity linked to a planned
// workout, or nil when none is linked or the backend declines.
func (a *API) GetLinkedActivity(ctx context.Context, workoutID string) (json.RawMessage, error) {
	req, err := a.client.NewRequest(ctx, http.MethodGet, "/workouts/"+workoutID+"/activity", nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, nil
	}
	return json.RawMessage(resp.Body), nil
}

// SyncCalendar asks the backend to reconcile workouts with the linked
// external calendar.
func (a *API) SyncCalendar(ctx context.Context) error {
	req, err := a.client.NewRequest(ctx, http.MethodPost, "/workouts/sync-gcal", nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("calendar sync failed: status %d", resp.StatusCode)
	}
	return nil
}

// ConnectStrava exchanges an OAuth code for a linked Strava account.
func (a *API) ConnectStrava(ctx context.Context, code string) error {
	req, err := a.client.NewRequest(ctx, http.MethodPost, "/strava/connect", map[string]string{"code": code})
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("strava connection failed: status %d", resp.StatusCode)
	}
	return nil
}

// StravaStatus reports whether a Strava account is linked. Any failure
// reads as not connected.
func (a *API) StravaStatus(ctx context.Context) bool {
	req, err := a.client.NewRequest(ctx, http.MethodGet, "/strava/status", nil)
	if err != nil {
		return false
	}
	resp, err := a.client.Do(req)
	if err != nil || !resp.OK() {
		return false
	}

	var status struct {
		Connected bool `json:"connected"`
	}
	if err := resp.Decode(&status); err != nil {
		return false
	}
	return status.Connected
}
