// Package syncer replays the offline outbox against the backend once
// connectivity returns.
package syncer

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/andrew-thompson-55/trainer-2.0/internal/client"
	"github.com/andrew-thompson-55/trainer-2.0/internal/model"
	"github.com/andrew-thompson-55/trainer-2.0/internal/outbox"
)

// Engine drains the outbox against the backend. Per-item failures are
// absorbed into retry/drop handling; the only caller-visible outcome is the
// number of items taken off the queue.
type Engine struct {
	queue  *outbox.Queue
	client *client.Client
	log    logrus.FieldLogger
}

func New(queue *outbox.Queue, c *client.Client, log logrus.FieldLogger) *Engine {
	return &Engine{queue: queue, client: c, log: log}
}

// Drain replays the queue snapshot front to back, in enqueue order.
//
// Per item: a 2xx removes it (after substituting a freshly assigned
// identifier into later items, for creates); a 404/422 removes it as
// permanently unsatisfiable; any other status leaves it for a future drain;
// a transport failure aborts the whole drain with the current and all
// remaining items untouched. The queue is persisted after every removal so
// a crash mid-drain loses no confirmed progress.
func (e *Engine) Drain(ctx context.Context) int {
	items, err := e.queue.Items(ctx)
	if err != nil {
		e.log.WithError(err).Warn("unable to read offline queue")
		return 0
	}
	if len(items) == 0 {
		return 0
	}

	e.log.WithField("items", len(items)).Info("processing offline queue")

	processed := 0
	i := 0
	for i < len(items) {
		item := items[i]

		req, err := e.buildRequest(ctx, item)
		if err != nil {
			e.log.WithError(err).WithField("endpoint", item.Endpoint).Warn("unable to build request, leaving item queued")
			i++
			continue
		}

		resp, err := e.client.Do(req)
		if err != nil {
			// Network failure: nothing past this point may be sent
			// out of order, so stop the drain entirely.
			e.log.WithError(err).Info("network error, stopping sync")
			return processed
		}

		switch resp.Outcome() {
		case client.OutcomeOK:
			if item.Kind == outbox.KindCreate {
				e.substituteID(item, resp, items[i+1:])
			}
			items = append(items[:i], items[i+1:]...)
			processed++
			e.persist(ctx, items)

		case client.OutcomeStale:
			e.log.WithFields(logrus.Fields{"endpoint": item.Endpoint, "status": resp.StatusCode}).
				Info("item no longer satisfiable, dropping")
			items = append(items[:i], items[i+1:]...)
			processed++
			e.persist(ctx, items)

		default:
			e.log.WithFields(logrus.Fields{"endpoint": item.Endpoint, "status": resp.StatusCode}).
				Info("server error, keeping item for next sync")
			i++
		}
	}

	return processed
}

func (e *Engine) buildRequest(ctx context.Context, item outbox.Item) (*http.Request, error) {
	body := prepareBody(item)

	var payload interface{}
	if len(body) > 0 {
		payload = json.RawMessage(body)
	}

	return e.client.NewRequest(ctx, methodFor(item), item.Endpoint, payload)
}

// substituteID rewrites references to the item's temp identifier in every
// later queue item, so mutations that depend on the freshly created entity
// resolve against its real identifier.
func (e *Engine) substituteID(item outbox.Item, resp *client.Response, rest []outbox.Item) {
	tempID := item.PayloadID()
	if !model.IsTempID(tempID) {
		return
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := resp.Decode(&created); err != nil || created.ID == "" {
		e.log.WithError(err).Warn("create succeeded but no identifier in response")
		return
	}

	for j := range rest {
		modified := false
		if strings.Contains(rest[j].Endpoint, tempID) {
			rest[j].Endpoint = strings.ReplaceAll(rest[j].Endpoint, tempID, created.ID)
			modified = true
		}
		if rest[j].PayloadID() == tempID {
			if raw, err := replacePayloadID(rest[j].Payload, created.ID); err == nil {
				rest[j].Payload = raw
				modified = true
			}
		}
		if modified {
			e.log.WithFields(logrus.Fields{"temp_id": tempID, "id": created.ID}).Info("substituted identifier")
		}
	}
}

func (e *Engine) persist(ctx context.Context, items []outbox.Item) {
	if err := e.queue.Replace(ctx, items); err != nil {
		e.log.WithError(err).Warn("unable to persist queue progress")
	}
}

// methodFor maps the mutation kind to an HTTP method. Daily-log endpoints
// always use PUT whatever the kind, matching the backend's upsert contract.
func methodFor(item outbox.Item) string {
	if strings.Contains(item.Endpoint, "/daily-logs") {
		return http.MethodPut
	}
	switch item.Kind {
	case outbox.KindUpdate:
		return http.MethodPatch
	case outbox.KindDelete:
		return http.MethodDelete
	default:
		return http.MethodPost
	}
}

// prepareBody returns the payload to transmit. Creates carrying a temp
// identifier have it stripped: the server must assign the real one. Empty
// payloads transmit no body.
func prepareBody(item outbox.Item) []byte {
	raw := item.Payload
	if len(raw) == 0 || string(raw) == "null" || string(raw) == "{}" {
		return nil
	}

	if item.Kind == outbox.KindCreate && model.IsTempID(item.PayloadID()) {
		var body map[string]interface{}
		if err := json.Unmarshal(raw, &body); err == nil {
			delete(body, "id")
			if stripped, err := json.Marshal(body); err == nil {
				raw = stripped
			}
		}
	}

	return raw
}

func replacePayloadID(raw json.RawMessage, id string) (json.RawMessage, error) {
	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	body["id"] = id
	return json.Marshal(body)
}
