package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ellysus/Momentary/config"
	"github.com/ellysus/Momentary/db"
	"github.com/ellysus/Momentary/schema"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	// Minutes used on recent days are excluded when picking the next
	// prompt time, so prompts do not cluster.
	promptHistoryDays = 30

	promptTitle = "Momentary time!"
	promptBody  = "Send a photo of what you're doing right now. You have 60 seconds."
	promptURL   = "/prompt"

	pushTTL = 300
)

// Scheduler opens one prompt window per UTC day at a random minute and
// fans the announcement out to every registered push subscription.
type Scheduler struct {
	logger *zap.SugaredLogger
	db     *db.DB
	cfg    *config.Config
	tracer trace.Tracer
}

func NewScheduler(logger *zap.SugaredLogger, database *db.DB, cfg *config.Config) *Scheduler {
	return &Scheduler{
		logger: logger,
		db:     database,
		cfg:    cfg,
		tracer: otel.GetTracerProvider().Tracer("scheduler"),
	}
}

// Run blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		target, err := s.nextPromptTime(ctx)
		if err != nil {
			s.logger.Errorf("Error computing next prompt time: %v", err)
			target = time.Now().UTC().Add(5 * time.Minute)
		}

		s.logger.Infow("Next prompt scheduled", "target", target.Format(time.RFC3339))
		timer := time.NewTimer(time.Until(target))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := s.TriggerNow(ctx); err != nil {
			s.logger.Errorf("Error sending prompt: %v", err)
		}
	}
}

// TriggerNow opens a prompt window immediately and notifies everyone.
// Also used by the admin endpoint.
func (s *Scheduler) TriggerNow(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "OpenPrompt")
	defer span.End()

	now := time.Now().UTC()
	expiresAt := now.Add(s.cfg.PromptWindow)

	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	query, args, _ := psql.Insert("prompts").
		Columns("prompt_id", "sent_at", "expires_at").
		Values(uuid.New(), now, expiresAt).
		ToSql()
	if _, err := conn.Exec(ctx, query, args...); err != nil {
		return err
	}

	// Prune history beyond what the minute exclusion needs
	query, args, _ = psql.Delete("prompts").
		Where(sq.Lt{"sent_at": now.AddDate(0, 0, -promptHistoryDays)}).
		ToSql()
	if _, err := conn.Exec(ctx, query, args...); err != nil {
		s.logger.Warnf("Error pruning prompt history: %v", err)
	}

	return s.fanOut(ctx, conn)
}

func (s *Scheduler) fanOut(ctx context.Context, conn *pgxpool.Conn) error {
	query, args, _ := psql.Select("subscription_id", "endpoint", "p256dh", "auth").
		From("push_subscriptions").
		ToSql()

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return err
	}

	type subscriptionRow struct {
		SubscriptionID uuid.UUID
		Endpoint       string
		P256dh         string
		Auth           string
	}

	subscriptions := make([]subscriptionRow, 0)
	for rows.Next() {
		var row subscriptionRow
		if err := rows.Scan(&row.SubscriptionID, &row.Endpoint, &row.P256dh, &row.Auth); err != nil {
			rows.Close()
			return err
		}
		subscriptions = append(subscriptions, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(schema.NotificationPayload{
		Title: promptTitle,
		Body:  promptBody,
		URL:   promptURL,
	})
	if err != nil {
		return err
	}

	sendCtx, sendSpan := s.tracer.Start(ctx, "FanOutWebPush")
	defer sendSpan.End()

	var gone []uuid.UUID
	for _, subscription := range subscriptions {
		sub := &webpush.Subscription{
			Endpoint: subscription.Endpoint,
			Keys: webpush.Keys{
				P256dh: subscription.P256dh,
				Auth:   subscription.Auth,
			},
		}

		resp, err := webpush.SendNotificationWithContext(sendCtx, payload, sub, &webpush.Options{
			TTL:             pushTTL,
			Subscriber:      s.cfg.VAPIDContact,
			VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
			VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		})
		if err != nil {
			s.logger.Warnw("Failed to send push", "endpoint", subscription.Endpoint, "error", err)
			continue
		}

		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			gone = append(gone, subscription.SubscriptionID)
		}
		resp.Body.Close()
	}

	// The push service no longer knows these endpoints, drop them
	if len(gone) > 0 {
		query, args, _ := psql.Delete("push_subscriptions").
			Where(sq.Eq{"subscription_id": gone}).
			ToSql()
		if _, err := conn.Exec(ctx, query, args...); err != nil {
			s.logger.Warnf("Error deleting stale subscriptions: %v", err)
		}
		s.logger.Infow("Dropped stale push subscriptions", "count", len(gone))
	}

	s.logger.Infow("Prompt fan-out complete", "subscriptions", len(subscriptions))
	return nil
}

// nextPromptTime picks the next target, honoring the one-prompt-per-day
// rule and avoiding minutes already used on recent days.
func (s *Scheduler) nextPromptTime(ctx context.Context) (time.Time, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return time.Time{}, err
	}
	defer conn.Release()

	now := time.Now().UTC()

	query, args, _ := psql.Select("sent_at").
		From("prompts").
		OrderBy("sent_at DESC").
		Limit(1).
		ToSql()

	var lastPrompt *time.Time
	var sentAt time.Time
	err = conn.QueryRow(ctx, query, args...).Scan(&sentAt)
	if err == nil {
		lastPrompt = &sentAt
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, err
	}

	query, args, _ = psql.Select("sent_at").
		From("prompts").
		Where(sq.GtOrEq{"sent_at": now.AddDate(0, 0, -(promptHistoryDays - 1))}).
		ToSql()

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return time.Time{}, err
	}
	defer rows.Close()

	excluded := make(map[int]bool)
	for rows.Next() {
		var usedAt time.Time
		if err := rows.Scan(&usedAt); err != nil {
			return time.Time{}, err
		}
		usedAt = usedAt.UTC()
		excluded[usedAt.Hour()*60+usedAt.Minute()] = true
	}
	if err := rows.Err(); err != nil {
		return time.Time{}, err
	}

	return ChoosePromptTime(now, lastPrompt, excluded), nil
}

// ChoosePromptTime picks a random minute of the day for the next prompt.
// If a prompt already went out today the target moves to tomorrow, and a
// target that already passed rolls over to the next day as well.
func ChoosePromptTime(now time.Time, lastPrompt *time.Time, excludedMinutes map[int]bool) time.Time {
	now = now.UTC()
	targetDay := now
	if lastPrompt != nil && sameUTCDay(*lastPrompt, now) {
		targetDay = now.AddDate(0, 0, 1)
	}

	minuteOfDay := pickMinute(excludedMinutes)
	target := atMinute(targetDay, minuteOfDay)
	if !target.After(now) {
		target = atMinute(now.AddDate(0, 0, 1), pickMinute(excludedMinutes))
	}
	return target
}

func pickMinute(excluded map[int]bool) int {
	available := make([]int, 0, 24*60)
	for minute := 0; minute < 24*60; minute++ {
		if !excluded[minute] {
			available = append(available, minute)
		}
	}
	if len(available) == 0 {
		return rand.Intn(24 * 60)
	}
	return available[rand.Intn(len(available))]
}

func atMinute(day time.Time, minuteOfDay int) time.Time {
	day = day.UTC()
	return time.Date(day.Year(), day.Month(), day.Day(), minuteOfDay/60, minuteOfDay%60, 0, 0, time.UTC)
}

func sameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
