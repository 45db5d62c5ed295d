package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vnkhanh/taskboard-server/models"
	"github.com/vnkhanh/taskboard-server/realtime"
	"github.com/vnkhanh/taskboard-server/utils"
)

const MaxAttachmentSize = 10 << 20

// Uploader stores a file and returns a URL it can be fetched from.
type Uploader interface {
	Upload(ctx context.Context, folder, fileID, fileName, contentType string, r io.Reader) (string, error)
}

type AttachmentService struct {
	db          *gorm.DB
	cards       *CardService
	uploader    Uploader
	broadcaster Broadcaster
}

func NewAttachmentService(db *gorm.DB, cards *CardService, uploader Uploader, b Broadcaster) *AttachmentService {
	if b == nil {
		b = nopBroadcaster{}
	}
	return &AttachmentService{db: db, cards: cards, uploader: uploader, broadcaster: b}
}

type AttachmentUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Upload stores a file for a card. Any board member may attach files.
func (s *AttachmentService) Upload(ctx context.Context, actorID, cardID uint, up AttachmentUpload) (*models.CardAttachment, error) {
	if s.uploader == nil {
		return nil, Invalid("File storage is not configured")
	}
	name := filepath.Base(strings.TrimSpace(up.FileName))
	if name == "" || name == "." {
		return nil, Invalid("File name is required")
	}
	if up.Size > MaxAttachmentSize {
		return nil, Invalid("File is too large")
	}

	card, boardID, err := s.cards.locate(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, s.cards.authz.CanUpdateCard, actorID, boardID, ErrNotBoardMember); err != nil {
		return nil, err
	}

	if up.ContentType == "" {
		up.ContentType = "application/octet-stream"
	}
	folder := fmt.Sprintf("boards/%d/cards/%d", boardID, card.ID)
	fileURL, err := s.uploader.Upload(ctx, folder, uuid.NewString(), name, up.ContentType, up.Body)
	if err != nil {
		utils.LoggerFrom(ctx).Error("attachment upload failed",
			slog.Uint64("card_id", uint64(card.ID)),
			slog.Any("error", err),
		)
		return nil, err
	}

	a := models.CardAttachment{
		CardID:       card.ID,
		FileName:     name,
		URL:          fileURL,
		ContentType:  up.ContentType,
		Size:         up.Size,
		UploadedByID: actorID,
	}
	if err := s.db.WithContext(ctx).Create(&a).Error; err != nil {
		return nil, err
	}

	card.Attachments = append(card.Attachments, a)
	s.broadcaster.Broadcast(ctx, boardID, realtime.CardEvent(realtime.CardUpdated, boardID, card.ListID, card.ID, card))
	return &a, nil
}

func (s *AttachmentService) List(ctx context.Context, actorID, cardID uint) ([]models.CardAttachment, error) {
	c, err := s.cards.Get(ctx, actorID, cardID)
	if err != nil {
		return nil, err
	}
	return c.Attachments, nil
}
