// Package outbox persists the ordered queue of mutations not yet confirmed
// by the server. Replay order is strict FIFO: later items may reference
// identifiers produced by earlier ones.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/andrew-thompson-55/trainer-2.0/internal/model"
	"github.com/andrew-thompson-55/trainer-2.0/internal/storage"
)

const queueKey = "trainer_offline_queue"

// Kind is the operation class of a queued mutation.
type Kind string

const (
	KindCreate Kind = "CREATE"
	KindUpdate Kind = "UPDATE"
	KindDelete Kind = "DELETE"
)

// Item is one pending mutation. Payload is the mutation body as it will be
// sent; it is only ever rewritten by identifier substitution during a drain.
type Item struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	Endpoint   string          `json:"endpoint"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// PayloadID returns the "id" field of the payload, if it carries one.
func (it Item) PayloadID() string {
	var body struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(it.Payload, &body); err != nil {
		return ""
	}
	return body.ID
}

// Queue is the durable offline outbox.
type Queue struct {
	store storage.Adapter
	log   logrus.FieldLogger
}

func New(store storage.Adapter, log logrus.FieldLogger) *Queue {
	return &Queue{store: store, log: log}
}

// Enqueue appends a mutation to the queue.
//
// Deleting an entity that only exists locally (a temp identifier) instead
// purges every queued item referencing that identifier and enqueues nothing:
// the server never saw the entity, so its whole history is dead.
func (q *Queue) Enqueue(ctx context.Context, kind Kind, endpoint string, payload interface{}) error {
	items, err := q.Items(ctx)
	if err != nil {
		return err
	}

	if kind == KindDelete {
		if tempID := tempIDFromEndpoint(endpoint); tempID != "" {
			kept := items[:0]
			for _, it := range items {
				if it.Kind == KindCreate && it.PayloadID() == tempID {
					continue
				}
				if strings.Contains(it.Endpoint, tempID) {
					continue
				}
				kept = append(kept, it)
			}
			if len(kept) < len(items) {
				q.log.WithField("temp_id", tempID).Info("purged unsynced entity from queue")
				return q.Replace(ctx, kept)
			}
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling queue payload: %w", err)
	}

	items = append(items, Item{
		ID:         uuid.NewString(),
		Kind:       kind,
		Endpoint:   endpoint,
		Payload:    raw,
		EnqueuedAt: time.Now().UTC(),
	})

	q.log.WithFields(logrus.Fields{"kind": kind, "endpoint": endpoint}).Info("queued offline mutation")
	return q.Replace(ctx, items)
}

// Items returns the full queue in enqueue order. It does not remove
// anything; removal is explicit.
func (q *Queue) Items(ctx context.Context) ([]Item, error) {
	raw, ok, err := q.store.Get(ctx, queueKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []Item{}, nil
	}

	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("unmarshaling queue: %w", err)
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

// Replace persists items as the whole queue.
func (q *Queue) Replace(ctx context.Context, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshaling queue: %w", err)
	}
	return q.store.Set(ctx, queueKey, string(raw))
}

// Remove deletes a single item by its queue-item identifier.
func (q *Queue) Remove(ctx context.Context, id string) error {
	items, err := q.Items(ctx)
	if err != nil {
		return err
	}

	kept := items[:0]
	for _, it := range items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	return q.Replace(ctx, kept)
}

// Clear empties the queue.
func (q *Queue) Clear(ctx context.Context) error {
	return q.store.Remove(ctx, queueKey)
}

// Len returns the number of queued items. Storage faults count as empty.
func (q *Queue) Len(ctx context.Context) int {
	items, err := q.Items(ctx)
	if err != nil {
		return 0
	}
	return len(items)
}

// tempIDFromEndpoint extracts a temp identifier from the final path segment
// of endpoint, or returns "" when the endpoint addresses a real entity.
func tempIDFromEndpoint(endpoint string) string {
	segments := strings.Split(endpoint, "/")
	last := segments[len(segments)-1]
	if model.IsTempID(last) {
		return last
	}
	return ""
}
