package alert

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"polyscope/internal/models"
	"polyscope/internal/repository"
)

// Publisher is the live-update sink. Delivery is best-effort: the stored
// notification row is the durable source of truth and a publish failure
// never rolls it back.
type Publisher interface {
	Publish(ctx context.Context, payload any) error
}

type Notifier struct {
	Repo           repository.Repository
	Publisher      Publisher
	Logger         *zap.Logger
	PublishTimeout time.Duration
}

// Notify persists one notification for the subscription and, on first
// insert, pushes it to the publisher. Replaying the same trigger key is a
// silent no-op at the unique index.
func (n *Notifier) Notify(ctx context.Context, sub models.AlertSubscription, kind, triggerKey, title, message string, metadata map[string]any) (bool, error) {
	if n == nil || n.Repo == nil {
		return false, nil
	}
	var meta datatypes.JSON
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err == nil {
			meta = raw
		}
	}
	item := &models.AlertNotification{
		UserID:         sub.UserID,
		SubscriptionID: sub.ID,
		AlertKind:      kind,
		TriggerKey:     triggerKey,
		Title:          title,
		Message:        message,
		Metadata:       meta,
		CreatedAt:      time.Now().UTC(),
	}
	inserted, err := n.Repo.InsertNotification(ctx, item)
	if err != nil {
		return false, err
	}
	if !inserted {
		return false, nil
	}

	if n.Publisher != nil {
		timeout := n.PublishTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		pubCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := n.Publisher.Publish(pubCtx, item); err != nil && n.Logger != nil {
			n.Logger.Warn("live publish failed",
				zap.String("kind", kind),
				zap.String("trigger", triggerKey),
				zap.Error(err))
		}
	}
	return true, nil
}
