package trainer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/andrew-thompson-55/trainer-2.0/internal/client"
	"github.com/andrew-thompson-55/trainer-2.0/internal/connectivity"
	"github.com/andrew-thompson-55/trainer-2.0/internal/model"
	"github.com/andrew-thompson-55/trainer-2.0/internal/outbox"
	"github.com/andrew-thompson-55/trainer-2.0/internal/storage"
)

type harness struct {
	api    *API
	store  *storage.MemStore
	queue  *outbox.Queue
	online bool
	mux    *http.ServeMux
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{store: storage.NewMemStore(), online: true, mux: http.NewServeMux()}

	server := httptest.NewServer(h.mux)
	t.Cleanup(server.Close)

	l := logrus.New()
	l.SetOutput(io.Discard)

	surl, _ := url.Parse(server.URL + "/")
	oracle := connectivity.OracleFunc(func(context.Context) connectivity.State {
		return connectivity.State{Connected: &h.online}
	})

	h.api = New(h.store, client.NewClient(surl, nil), oracle, l)
	h.queue = outbox.New(h.store, l)
	return h
}

func sampleWorkouts() []model.Workout {
	start := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)
	return []model.Workout{
		{ID: "w1", Title: "Morning run", StartTime: start, EndTime: start.Add(time.Hour), ActivityType: model.ActivityRun, Status: model.StatusPlanned},
		{ID: "w2", Title: "Evening swim", ActivityType: model.ActivitySwim, Status: model.StatusCompleted},
	}
}

func TestGetWorkoutsFallsBackToCache(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	seeded := sampleWorkouts()
	require.NoError(t, h.api.cache.WriteWorkouts(ctx, seeded))

	h.mux.HandleFunc("/workouts", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	require.Equal(t, seeded, h.api.GetWorkouts(ctx, nil))
}

func TestGetWorkoutsRefreshesCacheWhenOnline(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.mux.HandleFunc("/workouts", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `[{"id":"srv1","title":"Track session","activity_type":"run","status":"planned"}]`)
	})

	got := h.api.GetWorkouts(ctx, nil)
	require.Len(t, got, 1)
	require.Equal(t, "srv1", got[0].ID)
	require.Equal(t, got, h.api.GetCachedWorkouts(ctx))
}

func TestGetWorkoutsDiscardsMalformedPayload(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	seeded := sampleWorkouts()
	require.NoError(t, h.api.cache.WriteWorkouts(ctx, seeded))

	h.mux.HandleFunc("/workouts", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"unexpected":"shape"}`)
	})

	require.Equal(t, seeded, h.api.GetWorkouts(ctx, nil))
	// Nothing malformed was stored.
	require.Equal(t, seeded, h.api.GetCachedWorkouts(ctx))
}

func TestGetWorkoutsSendsDateRange(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	var gotQuery url.Values
	h.mux.HandleFunc("/workouts", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprintln(w, `[]`)
	})

	h.api.GetWorkouts(ctx, &WorkoutFilter{StartDate: "2024-05-01", EndDate: "2024-05-31"})
	require.Equal(t, "2024-05-01", gotQuery.Get("start_date"))
	require.Equal(t, "2024-05-31", gotQuery.Get("end_date"))
}

func TestOptimisticUpdateVisibleOffline(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.NoError(t, h.api.cache.WriteWorkouts(ctx, sampleWorkouts()))
	h.online = false

	completed := model.StatusCompleted
	updated := h.api.UpdateWorkout(ctx, "w1", model.WorkoutUpdate{Status: &completed})
	require.NotNil(t, updated)
	require.True(t, updated.Offline)

	got := h.api.GetWorkout(ctx, "w1")
	require.NotNil(t, got)
	require.Equal(t, model.StatusCompleted, got.Status)

	items, err := h.queue.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, outbox.KindUpdate, items[0].Kind)
	require.Equal(t, "/workouts/w1", items[0].Endpoint)
}

func TestCreateThenDeleteOfflineLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.online = false

	created := h.api.CreateWorkout(ctx, model.WorkoutCreate{Title: "Hill repeats", ActivityType: model.ActivityRun})
	require.NotNil(t, created)
	require.True(t, model.IsTempID(created.ID))
	require.Equal(t, model.StatusPlanned, created.Status)

	h.api.DeleteWorkout(ctx, created.ID)

	items, err := h.queue.Items(ctx)
	require.NoError(t, err)
	for _, it := range items {
		require.NotContains(t, it.Endpoint, created.ID)
		require.NotContains(t, string(it.Payload), created.ID)
	}
	require.Empty(t, items)

	for _, w := range h.api.GetCachedWorkouts(ctx) {
		require.NotEqual(t, created.ID, w.ID)
	}
}

func TestCreateOnlineAppendsServerEntity(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.mux.HandleFunc("/workouts", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"id":"99","title":"Hill repeats","activity_type":"run","status":"planned"}`)
	})

	created := h.api.CreateWorkout(ctx, model.WorkoutCreate{Title: "Hill repeats", ActivityType: model.ActivityRun})
	require.NotNil(t, created)
	require.Equal(t, "99", created.ID)

	cached := h.api.GetCachedWorkouts(ctx)
	require.Len(t, cached, 1)
	require.Equal(t, "99", cached[0].ID)
	require.Equal(t, 0, h.api.QueueLen(ctx))
}

func TestGetWorkoutFallsBackToCachedCollection(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.NoError(t, h.api.cache.WriteWorkouts(ctx, sampleWorkouts()))
	h.online = false

	got := h.api.GetWorkout(ctx, "w2")
	require.NotNil(t, got)
	require.Equal(t, "Evening swim", got.Title)

	require.Nil(t, h.api.GetWorkout(ctx, "nope"))
}

func TestDeleteQueuesOnFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.NoError(t, h.api.cache.WriteWorkouts(ctx, sampleWorkouts()))
	h.mux.HandleFunc("/workouts/w1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	h.api.DeleteWorkout(ctx, "w1")

	// Optimistic removal happened regardless of the failed DELETE.
	for _, w := range h.api.GetCachedWorkouts(ctx) {
		require.NotEqual(t, "w1", w.ID)
	}

	items, err := h.queue.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, outbox.KindDelete, items[0].Kind)
	require.Equal(t, "/workouts/w1", items[0].Endpoint)
}

func TestUpdateDailyLogMergesOffline(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.online = false

	sleep := 7.5
	h.api.UpdateDailyLog(ctx, "2024-05-01", model.DailyLog{SleepTotal: &sleep})

	motivation := 9
	merged := h.api.UpdateDailyLog(ctx, "2024-05-01", model.DailyLog{Motivation: &motivation})
	require.NotNil(t, merged)
	require.Equal(t, "2024-05-01", merged.Date)
	// The earlier field survives the partial update, matching the
	// backend's preserve-unspecified-fields PUT.
	require.NotNil(t, merged.SleepTotal)
	require.Equal(t, 7.5, *merged.SleepTotal)
	require.NotNil(t, merged.Motivation)
	require.Equal(t, 9, *merged.Motivation)

	got := h.api.GetDailyLog(ctx, "2024-05-01")
	require.NotNil(t, got)
	require.Equal(t, merged, got)

	items, err := h.queue.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, it := range items {
		require.Equal(t, outbox.KindUpdate, it.Kind)
		require.Equal(t, "/daily-logs/2024-05-01", it.Endpoint)
	}
}

func TestGetDailyLogUnknownDateIsNil(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.online = false

	require.Nil(t, h.api.GetDailyLog(ctx, "1999-01-01"))
}

func TestProcessOfflineQueueSyncsCreation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	var postBody string
	h.mux.HandleFunc("/workouts", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		postBody = string(body)
		fmt.Fprintln(w, `{"id":"real-1","title":"Hill repeats","activity_type":"run","status":"planned"}`)
	})

	h.online = false
	created := h.api.CreateWorkout(ctx, model.WorkoutCreate{Title: "Hill repeats", ActivityType: model.ActivityRun})
	require.Equal(t, 1, h.api.QueueLen(ctx))

	h.online = true
	require.Equal(t, 1, h.api.ProcessOfflineQueue(ctx))
	require.Equal(t, 0, h.api.QueueLen(ctx))
	require.False(t, strings.Contains(postBody, created.ID))
}

func TestStravaStatus(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.mux.HandleFunc("/strava/status", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"connected":true}`)
	})

	require.True(t, h.api.StravaStatus(ctx))
}

func TestGetLinkedActivity(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.mux.HandleFunc("/workouts/w1/activity", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"provider":"strava","distance":10000}`)
	})
	h.mux.HandleFunc("/workouts/w2/activity", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	raw, err := h.api.GetLinkedActivity(ctx, "w1")
	require.NoError(t, err)
	require.Contains(t, string(raw), "strava")

	raw, err = h.api.GetLinkedActivity(ctx, "w2")
	require.NoError(t, err)
	require.Nil(t, raw)
}
