package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/connectboard/app/models"
	"github.com/ManuelReschke/connectboard/internal/pkg/apperror"
)

// ErrVerifierNotConfigured is returned by verifiers that have no signing secret.
var ErrVerifierNotConfigured = errors.New("webhook verifier not configured")

const (
	msgMissingSignature = "Missing stripe-signature header"
	msgBadSignature     = "Webhook signature verification failed"
	msgNotConfigured    = "Webhook secret not configured"
)

// Event is a verified provider event.
type Event struct {
	ID      string
	Type    string
	Account string
	Object  json.RawMessage
}

// EventVerifier checks a payload against its signature header and parses it.
type EventVerifier interface {
	Verify(payload []byte, signatureHeader string) (Event, error)
}

// EventStore records received events.
type EventStore interface {
	CreateIfNotExists(ctx context.Context, event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkProcessed(ctx context.Context, id uint, at time.Time) error
	MarkFailed(ctx context.Context, id uint, processingErr error) error
}

// Archiver keeps a copy of raw payloads outside the database.
type Archiver interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// HandlerFunc applies the side effects of one event type.
type HandlerFunc func(ctx context.Context, event Event) error

// Result describes what Ingest did with a delivery.
type Result struct {
	EventID   string
	Type      string
	Duplicate bool
	Handled   bool
	// DispatchErr is set when a handler failed. The delivery is still acknowledged.
	DispatchErr error
}

// Ingestor verifies, deduplicates and dispatches provider webhooks.
type Ingestor struct {
	verifier EventVerifier
	events   EventStore
	archiver Archiver
	now      func() time.Time

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewIngestor creates an ingestor. verifier may be nil when no secret is configured;
// archiver may be nil to skip archiving.
func NewIngestor(verifier EventVerifier, events EventStore, archiver Archiver) *Ingestor {
	return &Ingestor{
		verifier: verifier,
		events:   events,
		archiver: archiver,
		now:      time.Now,
		handlers: make(map[string]HandlerFunc),
	}
}

// WithClock replaces the time source used for processed stamps and archive keys.
func (i *Ingestor) WithClock(now func() time.Time) *Ingestor {
	i.now = now
	return i
}

// Register sets the handler for an event type, replacing any previous one.
func (i *Ingestor) Register(eventType string, h HandlerFunc) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.handlers[eventType] = h
}

func (i *Ingestor) handler(eventType string) (HandlerFunc, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	h, ok := i.handlers[eventType]
	return h, ok
}

// Ingest handles one delivery. Once the event is stored the delivery counts as
// received, even if its handler fails.
func (i *Ingestor) Ingest(ctx context.Context, payload []byte, signatureHeader string) (Result, error) {
	if strings.TrimSpace(signatureHeader) == "" {
		return Result{}, apperror.Validation(msgMissingSignature)
	}
	if i.verifier == nil {
		log.Error("[Webhook] STRIPE_WEBHOOK_SECRET is not configured")
		return Result{}, apperror.Configuration(msgNotConfigured)
	}

	event, err := i.verifier.Verify(payload, signatureHeader)
	if err != nil {
		if errors.Is(err, ErrVerifierNotConfigured) {
			log.Error("[Webhook] STRIPE_WEBHOOK_SECRET is not configured")
			return Result{}, apperror.Configuration(msgNotConfigured)
		}
		log.Warnf("[Webhook] signature verification failed: %v", err)
		return Result{}, apperror.Validation(msgBadSignature)
	}
	if event.ID == "" || event.Type == "" {
		return Result{}, apperror.Validation("Invalid webhook payload")
	}

	created, stored, err := i.events.CreateIfNotExists(ctx, &models.WebhookEvent{
		ExternalEventID: event.ID,
		Provider:        models.WEBHOOK_PROVIDER_STRIPE,
		Type:            event.Type,
		Payload:         string(payload),
	})
	if err != nil {
		return Result{}, apperror.Internal("Failed to store webhook event", err)
	}

	res := Result{EventID: event.ID, Type: event.Type, Duplicate: !created}
	if stored.IsProcessed() {
		log.Infof("[Webhook] duplicate event %s ignored", event.ID)
		return res, nil
	}
	if created {
		i.archive(ctx, event, payload)
	}

	h, ok := i.handler(event.Type)
	if !ok {
		log.Infof("[Webhook] unhandled event type %s (%s)", event.Type, event.ID)
	} else {
		res.Handled = true
		res.DispatchErr = dispatch(ctx, h, event)
	}

	if res.DispatchErr != nil {
		log.Errorf("[Webhook] handler for %s (%s) failed: %v", event.Type, event.ID, res.DispatchErr)
		if err := i.events.MarkFailed(ctx, stored.ID, res.DispatchErr); err != nil {
			log.Errorf("[Webhook] failed to record dispatch failure for %s: %v", event.ID, err)
		}
		return res, nil
	}
	if err := i.events.MarkProcessed(ctx, stored.ID, i.now()); err != nil {
		log.Errorf("[Webhook] failed to mark %s processed: %v", event.ID, err)
	}
	return res, nil
}

func dispatch(ctx context.Context, h HandlerFunc, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, event)
}

func (i *Ingestor) archive(ctx context.Context, event Event, payload []byte) {
	if i.archiver == nil {
		return
	}
	key := fmt.Sprintf("webhooks/%s/%s/%s.json", models.WEBHOOK_PROVIDER_STRIPE, i.now().UTC().Format("2006/01/02"), event.ID)
	if err := i.archiver.Put(ctx, key, payload, "application/json"); err != nil {
		log.Warnf("[Webhook] archiving %s failed: %v", event.ID, err)
	}
}
