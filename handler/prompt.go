package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ellysus/Momentary/db"
	"github.com/ellysus/Momentary/schema"
)

type PromptHdlr interface {
	GetStatus(c *gin.Context)     // GET /prompt/status
	TriggerPrompt(c *gin.Context) // POST /admin/prompt/now
}

// PromptTrigger opens a prompt window out of schedule. Implemented by the
// scheduler so the admin endpoint and the daily loop share one code path.
type PromptTrigger interface {
	TriggerNow(ctx context.Context) error
}

type PromptHandler struct {
	logger  *zap.SugaredLogger
	db      *db.DB
	trigger PromptTrigger
}

func NewPromptHandler(logger *zap.SugaredLogger, database *db.DB, trigger PromptTrigger) PromptHdlr {
	return &PromptHandler{
		logger:  logger,
		db:      database,
		trigger: trigger,
	}
}

func (p *PromptHandler) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()

	lastPrompt, expiresAt, err := latestPromptWindow(ctx, p.db)
	if err != nil {
		p.logger.Errorf("Error fetching latest prompt: %v", err)
		c.String(http.StatusInternalServerError, "failed to query database")
		return
	}

	c.JSON(http.StatusOK, schema.ComputePromptStatus(lastPrompt, expiresAt, time.Now()))
}

func (p *PromptHandler) TriggerPrompt(c *gin.Context) {
	if err := p.trigger.TriggerNow(c.Request.Context()); err != nil {
		p.logger.Errorf("Error in trigger.TriggerNow: %v", err)
		c.String(http.StatusInternalServerError, "failed to open prompt window")
		return
	}
	c.Status(http.StatusNoContent)
}

// latestPromptWindow returns the most recent prompt row, or nils if no
// prompt has ever been sent.
func latestPromptWindow(ctx context.Context, database *db.DB) (*time.Time, *time.Time, error) {
	conn, err := database.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer conn.Release()

	query, args, _ := psql.Select("sent_at", "expires_at").
		From("prompts").
		OrderBy("sent_at DESC").
		Limit(1).
		ToSql()

	var sentAt, expiresAt time.Time
	if err := conn.QueryRow(ctx, query, args...).Scan(&sentAt, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	return &sentAt, &expiresAt, nil
}
