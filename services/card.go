package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/vnkhanh/taskboard-server/models"
	"github.com/vnkhanh/taskboard-server/realtime"
)

type CardService struct {
	db          *gorm.DB
	authz       *AuthzService
	broadcaster Broadcaster
}

func NewCardService(db *gorm.DB, authz *AuthzService, b Broadcaster) *CardService {
	if b == nil {
		b = nopBroadcaster{}
	}
	return &CardService{db: db, authz: authz, broadcaster: b}
}

type CardInput struct {
	Title       string
	Description *string
	DueDate     *time.Time
}

type CardPatch struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	ClearDue    bool
	Position    *int
}

// locate loads a card and the board it belongs to.
func (s *CardService) locate(ctx context.Context, cardID uint) (*models.Card, uint, error) {
	var c models.Card
	if err := s.db.WithContext(ctx).First(&c, cardID).Error; err != nil {
		return nil, 0, notFound(err, ErrCardNotFound)
	}
	var l models.List
	if err := s.db.WithContext(ctx).Select("id", "board_id").First(&l, c.ListID).Error; err != nil {
		return nil, 0, notFound(err, ErrListNotFound)
	}
	return &c, l.BoardID, nil
}

func (s *CardService) list(ctx context.Context, listID uint) (*models.List, error) {
	var l models.List
	if err := s.db.WithContext(ctx).First(&l, listID).Error; err != nil {
		return nil, notFound(err, ErrListNotFound)
	}
	return &l, nil
}

func (s *CardService) nextPosition(ctx context.Context, listID uint) (int, error) {
	var maxPos sql.NullInt64
	if err := s.db.WithContext(ctx).Model(&models.Card{}).Where("list_id = ?", listID).
		Select("MAX(position)").Row().Scan(&maxPos); err != nil {
		return 0, err
	}
	if !maxPos.Valid {
		return 0, nil
	}
	return int(maxPos.Int64) + 1, nil
}

func (s *CardService) Cards(ctx context.Context, actorID, listID uint) ([]models.Card, error) {
	l, err := s.list(ctx, listID)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, s.authz.IsMember, actorID, l.BoardID, ErrNotBoardMember); err != nil {
		return nil, err
	}
	var cards []models.Card
	err = s.db.WithContext(ctx).Where("list_id = ?", listID).Order("position, id").Find(&cards).Error
	return cards, err
}

func (s *CardService) Get(ctx context.Context, actorID, cardID uint) (*models.Card, error) {
	c, boardID, err := s.locate(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, s.authz.IsMember, actorID, boardID, ErrNotBoardMember); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Where("card_id = ?", c.ID).Find(&c.Attachments).Error; err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CardService) Create(ctx context.Context, actorID, listID uint, in CardInput) (*models.Card, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, Invalid("Card title is required")
	}
	l, err := s.list(ctx, listID)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, s.authz.CanCreateCard, actorID, l.BoardID, ErrNotBoardOwner); err != nil {
		return nil, err
	}

	pos, err := s.nextPosition(ctx, listID)
	if err != nil {
		return nil, err
	}
	c := models.Card{
		ListID:      listID,
		Title:       title,
		Description: in.Description,
		DueDate:     in.DueDate,
		Position:    pos,
		CreatedByID: actorID,
	}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, err
	}

	s.broadcaster.Broadcast(ctx, l.BoardID, realtime.CardEvent(realtime.CardCreated, l.BoardID, listID, c.ID, c))
	return &c, nil
}

// Update edits card content. Any board member may do this.
func (s *CardService) Update(ctx context.Context, actorID, cardID uint, patch CardPatch) (*models.Card, error) {
	c, boardID, err := s.locate(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, s.authz.CanUpdateCard, actorID, boardID, ErrNotBoardMember); err != nil {
		return nil, err
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, Invalid("Card title is required")
		}
		c.Title = title
	}
	if patch.Description != nil {
		c.Description = patch.Description
	}
	if patch.ClearDue {
		c.DueDate = nil
	} else if patch.DueDate != nil {
		c.DueDate = patch.DueDate
	}
	if patch.Position != nil {
		if *patch.Position < 0 {
			return nil, Invalid("Position must not be negative")
		}
		c.Position = *patch.Position
	}

	if err := s.db.WithContext(ctx).Save(c).Error; err != nil {
		return nil, err
	}

	s.broadcaster.Broadcast(ctx, boardID, realtime.CardEvent(realtime.CardUpdated, boardID, c.ListID, c.ID, c))
	return c, nil
}

// Move puts the card in another list of the same board. A nil position
// appends it at the end.
func (s *CardService) Move(ctx context.Context, actorID, cardID, toListID uint, position *int) (*models.Card, error) {
	c, boardID, err := s.locate(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, s.authz.CanMoveCard, actorID, boardID, ErrNotBoardMember); err != nil {
		return nil, err
	}

	target, err := s.list(ctx, toListID)
	if err != nil {
		return nil, err
	}
	if target.BoardID != boardID {
		return nil, Invalid("Cards can only move between lists of the same board")
	}

	fromListID := c.ListID
	if position != nil {
		if *position < 0 {
			return nil, Invalid("Position must not be negative")
		}
		c.Position = *position
	} else if fromListID != toListID {
		pos, err := s.nextPosition(ctx, toListID)
		if err != nil {
			return nil, err
		}
		c.Position = pos
	}
	c.ListID = toListID

	if err := s.db.WithContext(ctx).Model(c).Updates(map[string]any{
		"list_id":  c.ListID,
		"position": c.Position,
	}).Error; err != nil {
		return nil, err
	}

	s.broadcaster.Broadcast(ctx, boardID, realtime.CardMovedEvent(boardID, c.ID, fromListID, toListID, c))
	return c, nil
}

func (s *CardService) Delete(ctx context.Context, actorID, cardID uint) error {
	c, boardID, err := s.locate(ctx, cardID)
	if err != nil {
		return err
	}
	if err := authorize(ctx, s.authz.CanDeleteCard, actorID, boardID, ErrNotBoardOwner); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("card_id = ?", c.ID).Delete(&models.CardAttachment{}).Error; err != nil {
			return err
		}
		return tx.Delete(c).Error
	})
	if err != nil {
		return err
	}

	s.broadcaster.Broadcast(ctx, boardID, realtime.CardEvent(realtime.CardDeleted, boardID, c.ListID, c.ID, nil))
	return nil
}
