// Package notify tells downstream consumers, such as the email worker, that a
// report reached a terminal state.
package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/adreports/internal/models"
)

// Notification describes a report status change.
type Notification struct {
	ReportID     string              `json:"report_id"`
	UserID       string              `json:"user_id"`
	ReportName   string              `json:"report_name"`
	Status       models.ReportStatus `json:"status"`
	ErrorMessage string              `json:"error_message,omitempty"`
	ReportURL    string              `json:"report_url,omitempty"`
	OccurredAt   time.Time           `json:"occurred_at"`
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Publisher publishes a JSON payload on a channel.
type Publisher interface {
	PublishJSON(ctx context.Context, channel string, v any) (int64, error)
}

// RedisNotifier publishes notifications on a Redis pub/sub channel.
type RedisNotifier struct {
	pub     Publisher
	channel string
	appURL  string
	logger  *zap.Logger
}

// NewRedisNotifier creates a notifier publishing on channel. appURL is used
// to build report links.
func NewRedisNotifier(pub Publisher, channel, appURL string, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{pub: pub, channel: channel, appURL: appURL, logger: logger}
}

func (r *RedisNotifier) Notify(ctx context.Context, n Notification) error {
	if n.ReportURL == "" && r.appURL != "" {
		n.ReportURL = fmt.Sprintf("%s/reports/%s", r.appURL, n.ReportID)
	}
	if n.OccurredAt.IsZero() {
		n.OccurredAt = time.Now().UTC()
	}
	receivers, err := r.pub.PublishJSON(ctx, r.channel, n)
	if err != nil {
		return err
	}
	if receivers == 0 {
		r.logger.Warn("report notification had no subscribers",
			zap.String("channel", r.channel),
			zap.String("report_id", n.ReportID))
	}
	return nil
}

// LogNotifier only logs notifications. It is used when Redis is unavailable.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	l.logger.Info("report notification",
		zap.String("report_id", n.ReportID),
		zap.String("user_id", n.UserID),
		zap.String("status", string(n.Status)),
		zap.String("error", n.ErrorMessage))
	return nil
}
