package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ellysus/Momentary/db"
	"github.com/ellysus/Momentary/middleware"
	"github.com/ellysus/Momentary/schema"
	"github.com/ellysus/Momentary/storage"
)

const MaxPhotoSize = 10 * 1024 * 1024 // 10 MB

type PhotoHdlr interface {
	UploadPhoto(c *gin.Context) // POST /photos/upload
	ListPhotos(c *gin.Context)  // GET /photos
}

type PhotoHandler struct {
	logger  *zap.SugaredLogger
	db      *db.DB
	storage *storage.PhotoStorage
}

func NewPhotoHandler(logger *zap.SugaredLogger, database *db.DB, photoStorage *storage.PhotoStorage) PhotoHdlr {
	return &PhotoHandler{
		logger:  logger,
		db:      database,
		storage: photoStorage,
	}
}

func (p *PhotoHandler) UploadPhoto(c *gin.Context) {
	userID := c.GetInt64(middleware.UserIDKey)
	ctx := c.Request.Context()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.String(http.StatusBadRequest, "missing file field")
		return
	}
	if fileHeader.Size > MaxPhotoSize {
		c.String(http.StatusRequestEntityTooLarge, "photo exceeds the size limit")
		return
	}

	lastPrompt, expiresAt, err := latestPromptWindow(ctx, p.db)
	if err != nil {
		p.logger.Errorf("Error fetching latest prompt: %v", err)
		c.String(http.StatusInternalServerError, "failed to query database")
		return
	}
	if !schema.ComputePromptStatus(lastPrompt, expiresAt, time.Now()).Active {
		c.String(http.StatusForbidden, "the prompt window is closed")
		return
	}

	conn, err := p.db.Acquire(ctx)
	if err != nil {
		p.logger.Errorf("Error in db.Acquire: %v", err)
		c.String(http.StatusInternalServerError, "database unavailable")
		return
	}
	defer conn.Release()

	// One photo per prompt per user
	query, args, _ := psql.Select("photo_id").
		From("photos").
		Where(sq.And{sq.Eq{"user_id": userID}, sq.GtOrEq{"uploaded_at": *lastPrompt}}).
		ToSql()

	var existing uuid.UUID
	err = conn.QueryRow(ctx, query, args...).Scan(&existing)
	if err == nil {
		c.String(http.StatusConflict, "a photo was already submitted for this prompt")
		return
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		p.logger.Errorf("Error in conn.QueryRow: %v", err)
		c.String(http.StatusInternalServerError, "failed to query database")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		p.logger.Errorf("Error in fileHeader.Open: %v", err)
		c.String(http.StatusBadRequest, "unreadable file")
		return
	}
	defer file.Close()

	photoID := uuid.New()
	objectKey := fmt.Sprintf("%d/%s", userID, photoID)
	contentType := fileHeader.Header.Get("Content-Type")

	p.logger.Infow("Uploading photo", "userID", userID, "objectKey", objectKey)
	if err := p.storage.Put(ctx, objectKey, file, fileHeader.Size, contentType); err != nil {
		p.logger.Errorf("Error in storage.Put: %v", err)
		c.String(http.StatusInternalServerError, "failed to store photo")
		return
	}

	query, args, _ = psql.Insert("photos").
		Columns("photo_id", "user_id", "object_key", "uploaded_at").
		Values(photoID, userID, objectKey, time.Now()).
		ToSql()

	if _, err := conn.Exec(ctx, query, args...); err != nil {
		p.logger.Errorf("Error in conn.Exec: %v", err)
		c.String(http.StatusInternalServerError, "failed to record photo")
		return
	}

	c.Status(http.StatusCreated)
}

func (p *PhotoHandler) ListPhotos(c *gin.Context) {
	userID := c.GetInt64(middleware.UserIDKey)
	ctx := c.Request.Context()

	conn, err := p.db.Acquire(ctx)
	if err != nil {
		p.logger.Errorf("Error in db.Acquire: %v", err)
		c.String(http.StatusInternalServerError, "database unavailable")
		return
	}
	defer conn.Release()

	query, args, _ := psql.Select("photo_id", "object_key", "uploaded_at").
		From("photos").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("uploaded_at DESC").
		ToSql()

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		p.logger.Errorf("Error in conn.Query: %v", err)
		c.String(http.StatusInternalServerError, "failed to query database")
		return
	}
	defer rows.Close()

	response := schema.ListPhotosResponse{Records: []schema.Photo{}}
	for rows.Next() {
		var photoID uuid.UUID
		var objectKey string
		var uploadedAt time.Time
		if err := rows.Scan(&photoID, &objectKey, &uploadedAt); err != nil {
			p.logger.Errorf("Error in rows.Scan: %v", err)
			c.String(http.StatusInternalServerError, "failed to read photos")
			return
		}

		url, err := p.storage.PresignedURL(ctx, objectKey)
		if err != nil {
			p.logger.Errorw("Error in storage.PresignedURL", "error", err, "objectKey", objectKey)
			continue
		}

		response.Records = append(response.Records, schema.Photo{
			PhotoID:    photoID.String(),
			UploadedAt: uploadedAt,
			URL:        url,
		})
	}

	c.JSON(http.StatusOK, response)
}
