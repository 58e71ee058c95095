package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ellysus/Momentary/db"
	"github.com/ellysus/Momentary/middleware"
	"github.com/ellysus/Momentary/schema"
)

type PushHdlr interface {
	GetPublicKey(c *gin.Context)           // GET /push/vapid-public-key
	CreatePushSubscription(c *gin.Context) // POST /push/subscribe
}

type PushHandler struct {
	logger         *zap.SugaredLogger
	db             *db.DB
	vapidPublicKey string
}

func NewPushHandler(logger *zap.SugaredLogger, database *db.DB, vapidPublicKey string) PushHdlr {
	return &PushHandler{
		logger:         logger,
		db:             database,
		vapidPublicKey: vapidPublicKey,
	}
}

func (p *PushHandler) GetPublicKey(c *gin.Context) {
	if p.vapidPublicKey == "" {
		p.logger.Error("VAPID public key is not configured")
		c.String(http.StatusInternalServerError, "push is not configured on this server")
		return
	}

	c.JSON(http.StatusOK, schema.PublicKeyResponse{PublicKey: p.vapidPublicKey})
}

func (p *PushHandler) CreatePushSubscription(c *gin.Context) {
	req := c.MustGet(middleware.ValidatedPayloadKey).(*schema.CreatePushSubscriptionRequest)
	userID := c.GetInt64(middleware.UserIDKey)
	ctx := c.Request.Context()

	conn, err := p.db.Acquire(ctx)
	if err != nil {
		p.logger.Errorf("Error in db.Acquire: %v", err)
		c.String(http.StatusInternalServerError, "database unavailable")
		return
	}
	defer conn.Release()

	// Re-subscribing from the same browser yields the same endpoint, so
	// treat the endpoint as the natural key and refresh the record.
	query, args, _ := psql.Insert("push_subscriptions").
		Columns("subscription_id", "user_id", "endpoint", "p256dh", "auth", "created_at").
		Values(uuid.New(), userID, req.Endpoint, req.Keys.P256dh, req.Keys.Auth, time.Now()).
		Suffix("ON CONFLICT (endpoint) DO UPDATE SET user_id = EXCLUDED.user_id, p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth").
		ToSql()

	p.logger.Debugw("Inserting push subscription", "userID", userID, "endpoint", req.Endpoint)
	if _, err := conn.Exec(ctx, query, args...); err != nil {
		p.logger.Errorf("Error in conn.Exec: %v", err)
		c.String(http.StatusInternalServerError, "failed to store subscription")
		return
	}

	c.Status(http.StatusCreated)
}
