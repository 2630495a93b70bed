package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/atc-endorsement-api/internal/models"
	"github.com/noah-isme/atc-endorsement-api/pkg/config"
	appErrors "github.com/noah-isme/atc-endorsement-api/pkg/errors"
	"github.com/noah-isme/atc-endorsement-api/pkg/jobs"
)

// WebhookNotifier posts transition notifications to a configured webhook.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWebhookNotifier constructs a WebhookNotifier.
func NewWebhookNotifier(cfg config.NotifierConfig, logger *zap.Logger) *WebhookNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookNotifier{
		url:        cfg.WebhookURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type notificationBody struct {
	Transition   models.EndorsementTransition `json:"transition"`
	Endorsement  string                       `json:"endorsement_id"`
	ControllerID string                       `json:"controller_id"`
	Position     string                       `json:"position"`
	Tier         models.EndorsementTier       `json:"tier"`
}

// Notify delivers one transition notification.
func (n *WebhookNotifier) Notify(ctx context.Context, endorsement models.Endorsement, transition models.EndorsementTransition) error {
	if n.url == "" {
		return nil
	}

	body, err := json.Marshal(notificationBody{
		Transition:   transition,
		Endorsement:  endorsement.ID,
		ControllerID: endorsement.ControllerID,
		Position:     endorsement.Position,
		Tier:         endorsement.Tier,
	})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrNotification.Code, appErrors.ErrNotification.Status, "marshal notification")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrNotification.Code, appErrors.ErrNotification.Status, "build notification request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrNotification.Code, appErrors.ErrNotification.Status, "notification endpoint unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return appErrors.Clone(appErrors.ErrNotification, fmt.Sprintf("notification endpoint returned %d", resp.StatusCode))
	}
	return nil
}

// notificationJob is the queued payload for asynchronous dispatch.
type notificationJob struct {
	Endorsement models.Endorsement
	Transition  models.EndorsementTransition
}

// QueuedNotifier decouples notification delivery from state transitions by
// pushing each dispatch onto a worker queue with bounded retries. Stop the
// queue to drain pending notifications before a one-shot command exits.
type QueuedNotifier struct {
	queue *jobs.Queue
}

// NewNotificationQueue wires the webhook notifier behind a jobs queue. The
// onFailure hook fires once per dispatch attempt that errors.
func NewNotificationQueue(notifier *WebhookNotifier, cfg config.NotifierConfig, logger *zap.Logger, onFailure func()) (*QueuedNotifier, *jobs.Queue) {
	handler := func(ctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(notificationJob)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", job.Payload)
		}
		if err := notifier.Notify(ctx, payload.Endorsement, payload.Transition); err != nil {
			if onFailure != nil {
				onFailure()
			}
			return err
		}
		return nil
	}

	queue := jobs.NewQueue("notifications", handler, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return &QueuedNotifier{queue: queue}, queue
}

// Notify enqueues a dispatch. A full or stopped queue is reported as a
// notification failure; callers log and move on.
func (q *QueuedNotifier) Notify(ctx context.Context, endorsement models.Endorsement, transition models.EndorsementTransition) error {
	err := q.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "endorsement." + string(transition),
		Payload: notificationJob{Endorsement: endorsement, Transition: transition},
	})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrNotification.Code, appErrors.ErrNotification.Status, "enqueue notification")
	}
	return nil
}
