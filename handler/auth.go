package handler

import (
	"errors"
	"net/http"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ellysus/Momentary/db"
	"github.com/ellysus/Momentary/manager"
	"github.com/ellysus/Momentary/middleware"
	"github.com/ellysus/Momentary/schema"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type AuthHdlr interface {
	RegisterUser(c *gin.Context) // POST /auth/register
	LoginUser(c *gin.Context)    // POST /auth/login
	LogoutUser(c *gin.Context)   // POST /auth/logout
	GetMe(c *gin.Context)        // GET /me
}

type AuthHandler struct {
	logger     *zap.SugaredLogger
	db         *db.DB
	tracer     trace.Tracer
	sessions   manager.SessionManager
	sessionTTL time.Duration
}

func NewAuthHandler(logger *zap.SugaredLogger, database *db.DB, sessions manager.SessionManager, sessionTTL time.Duration) AuthHdlr {
	return &AuthHandler{
		logger:     logger,
		db:         database,
		tracer:     otel.GetTracerProvider().Tracer("auth-handler"),
		sessions:   sessions,
		sessionTTL: sessionTTL,
	}
}

func (a *AuthHandler) RegisterUser(c *gin.Context) {
	req := c.MustGet(middleware.ValidatedPayloadKey).(*schema.CredentialsRequest)
	ctx := c.Request.Context()

	// Hash the password
	_, hashSpan := a.tracer.Start(ctx, "HashPassword")
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	hashSpan.End()
	if err != nil {
		a.logger.Errorf("Error in bcrypt.GenerateFromPassword: %v", err)
		c.String(http.StatusInternalServerError, "failed to process credentials")
		return
	}

	conn, err := a.db.Acquire(ctx)
	if err != nil {
		a.logger.Errorf("Error in db.Acquire: %v", err)
		c.String(http.StatusInternalServerError, "database unavailable")
		return
	}
	defer conn.Release()

	tx, err := a.db.BeginTx(ctx, conn)
	if err != nil {
		a.logger.Errorf("Error in db.BeginTx: %v", err)
		c.String(http.StatusInternalServerError, "failed to start transaction")
		return
	}
	defer a.db.RollbackTx(ctx, tx)

	// Check for an existing username
	query, args, _ := psql.Select("user_id").
		From("users").
		Where(sq.Eq{"username": req.Username}).
		ToSql()

	var existingID int64
	err = tx.QueryRow(ctx, query, args...).Scan(&existingID)
	if err == nil {
		a.logger.Debugw("Username already exists", "username", req.Username)
		c.String(http.StatusConflict, "username already taken")
		return
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		a.logger.Errorf("Error in tx.QueryRow: %v", err)
		c.String(http.StatusInternalServerError, "failed to query database")
		return
	}

	query, args, _ = psql.Insert("users").
		Columns("username", "display_name", "password", "created_at").
		Values(req.Username, req.Username, hashedPassword, time.Now()).
		Suffix("RETURNING user_id").
		ToSql()

	var userID int64
	a.logger.Debugw("Inserting user into database", "username", req.Username)
	if err := tx.QueryRow(ctx, query, args...).Scan(&userID); err != nil {
		a.logger.Errorw("Error while inserting user into database", "error", err, "username", req.Username)
		c.String(http.StatusInternalServerError, "failed to create user")
		return
	}

	if err := a.db.CommitTx(ctx, tx); err != nil {
		a.logger.Errorf("Error in db.CommitTx: %v", err)
		c.String(http.StatusInternalServerError, "failed to commit transaction")
		return
	}

	identity := schema.Identity{ID: userID, DisplayName: req.Username}
	if !a.setSessionCookie(c, identity) {
		return
	}

	a.logger.Infow("User registered successfully", "username", req.Username)
	c.JSON(http.StatusCreated, identity)
}

func (a *AuthHandler) LoginUser(c *gin.Context) {
	req := c.MustGet(middleware.ValidatedPayloadKey).(*schema.CredentialsRequest)
	ctx := c.Request.Context()

	conn, err := a.db.Acquire(ctx)
	if err != nil {
		a.logger.Errorf("Error in db.Acquire: %v", err)
		c.String(http.StatusInternalServerError, "database unavailable")
		return
	}
	defer conn.Release()

	query, args, _ := psql.Select("user_id", "display_name", "password").
		From("users").
		Where(sq.Eq{"username": req.Username}).
		ToSql()

	var userID int64
	var displayName string
	var hashedPassword []byte
	if err := conn.QueryRow(ctx, query, args...).Scan(&userID, &displayName, &hashedPassword); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.String(http.StatusUnauthorized, "invalid credentials")
			return
		}
		a.logger.Errorf("Error in conn.QueryRow: %v", err)
		c.String(http.StatusInternalServerError, "failed to query database")
		return
	}

	_, passwordSpan := a.tracer.Start(ctx, "ComparePassword")
	err = bcrypt.CompareHashAndPassword(hashedPassword, []byte(req.Password))
	passwordSpan.End()
	if err != nil {
		a.logger.Debugw("Invalid password", "username", req.Username)
		c.String(http.StatusUnauthorized, "invalid credentials")
		return
	}

	identity := schema.Identity{ID: userID, DisplayName: displayName}
	if !a.setSessionCookie(c, identity) {
		return
	}

	c.JSON(http.StatusOK, identity)
}

func (a *AuthHandler) LogoutUser(c *gin.Context) {
	c.SetCookie(manager.SessionCookieName, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

func (a *AuthHandler) GetMe(c *gin.Context) {
	userID := c.GetInt64(middleware.UserIDKey)
	ctx := c.Request.Context()

	conn, err := a.db.Acquire(ctx)
	if err != nil {
		a.logger.Errorf("Error in db.Acquire: %v", err)
		c.String(http.StatusInternalServerError, "database unavailable")
		return
	}
	defer conn.Release()

	query, args, _ := psql.Select("display_name").
		From("users").
		Where(sq.Eq{"user_id": userID}).
		ToSql()

	var displayName string
	if err := conn.QueryRow(ctx, query, args...).Scan(&displayName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Session outlived the account
			c.Status(http.StatusNotFound)
			return
		}
		a.logger.Errorf("Error in conn.QueryRow: %v", err)
		c.String(http.StatusInternalServerError, "failed to query database")
		return
	}

	c.JSON(http.StatusOK, schema.Identity{ID: userID, DisplayName: displayName})
}

func (a *AuthHandler) setSessionCookie(c *gin.Context, identity schema.Identity) bool {
	token, err := a.sessions.Generate(identity.ID, identity.DisplayName)
	if err != nil {
		a.logger.Errorf("Error in sessions.Generate: %v", err)
		c.String(http.StatusInternalServerError, "failed to create session")
		return false
	}

	c.SetCookie(manager.SessionCookieName, token, int(a.sessionTTL.Seconds()), "/", "", false, true)
	return true
}
