package services

import (
	"context"
	"database/sql"
	"strings"

	"gorm.io/gorm"

	"github.com/vnkhanh/taskboard-server/models"
	"github.com/vnkhanh/taskboard-server/realtime"
)

type ListService struct {
	db          *gorm.DB
	authz       *AuthzService
	broadcaster Broadcaster
}

func NewListService(db *gorm.DB, authz *AuthzService, b Broadcaster) *ListService {
	if b == nil {
		b = nopBroadcaster{}
	}
	return &ListService{db: db, authz: authz, broadcaster: b}
}

func (s *ListService) find(ctx context.Context, listID uint) (*models.List, error) {
	var l models.List
	if err := s.db.WithContext(ctx).First(&l, listID).Error; err != nil {
		return nil, notFound(err, ErrListNotFound)
	}
	return &l, nil
}

func (s *ListService) Lists(ctx context.Context, actorID, boardID uint) ([]models.List, error) {
	if err := authorize(ctx, s.authz.IsMember, actorID, boardID, ErrNotBoardMember); err != nil {
		return nil, err
	}
	var lists []models.List
	err := s.db.WithContext(ctx).Where("board_id = ?", boardID).Order("position, id").Find(&lists).Error
	return lists, err
}

func (s *ListService) nameTaken(ctx context.Context, boardID uint, name string, exceptID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.List{}).
		Where("board_id = ? AND name = ? AND id <> ?", boardID, name, exceptID).
		Count(&count).Error
	return count > 0, err
}

// Create appends a list at the end of the board.
func (s *ListService) Create(ctx context.Context, actorID, boardID uint, name string) (*models.List, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Invalid("List name is required")
	}
	var board models.Board
	if err := s.db.WithContext(ctx).Select("id").First(&board, boardID).Error; err != nil {
		return nil, notFound(err, ErrBoardNotFound)
	}
	if err := authorize(ctx, s.authz.CanCreateList, actorID, boardID, ErrNotBoardOwner); err != nil {
		return nil, err
	}
	taken, err := s.nameTaken(ctx, boardID, name, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrListNameTaken
	}

	var maxPos sql.NullInt64
	if err := s.db.WithContext(ctx).Model(&models.List{}).Where("board_id = ?", boardID).
		Select("MAX(position)").Row().Scan(&maxPos); err != nil {
		return nil, err
	}
	pos := 0
	if maxPos.Valid {
		pos = int(maxPos.Int64) + 1
	}

	l := models.List{BoardID: boardID, Name: name, Position: pos}
	if err := s.db.WithContext(ctx).Create(&l).Error; err != nil {
		return nil, err
	}

	s.broadcaster.Broadcast(ctx, boardID, realtime.ListEvent(realtime.ListCreated, boardID, l.ID, l))
	return &l, nil
}

type ListPatch struct {
	Name     *string
	Position *int
}

func (s *ListService) Update(ctx context.Context, actorID, listID uint, patch ListPatch) (*models.List, error) {
	l, err := s.find(ctx, listID)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, s.authz.CanEditList, actorID, l.BoardID, ErrNotBoardOwner); err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, Invalid("List name is required")
		}
		taken, err := s.nameTaken(ctx, l.BoardID, name, l.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrListNameTaken
		}
		l.Name = name
	}
	if patch.Position != nil {
		if *patch.Position < 0 {
			return nil, Invalid("Position must not be negative")
		}
		l.Position = *patch.Position
	}

	if err := s.db.WithContext(ctx).Save(l).Error; err != nil {
		return nil, err
	}

	s.broadcaster.Broadcast(ctx, l.BoardID, realtime.ListEvent(realtime.ListUpdated, l.BoardID, l.ID, l))
	return l, nil
}

// Delete removes the list together with its cards.
func (s *ListService) Delete(ctx context.Context, actorID, listID uint) error {
	l, err := s.find(ctx, listID)
	if err != nil {
		return err
	}
	if err := authorize(ctx, s.authz.CanDeleteList, actorID, l.BoardID, ErrNotBoardOwner); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cardIDs := tx.Model(&models.Card{}).Select("id").Where("list_id = ?", l.ID)
		if err := tx.Where("card_id IN (?)", cardIDs).Delete(&models.CardAttachment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("list_id = ?", l.ID).Delete(&models.Card{}).Error; err != nil {
			return err
		}
		return tx.Delete(l).Error
	})
	if err != nil {
		return err
	}

	s.broadcaster.Broadcast(ctx, l.BoardID, realtime.ListEvent(realtime.ListDeleted, l.BoardID, l.ID, nil))
	return nil
}
