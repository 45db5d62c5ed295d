package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/vnkhanh/taskboard-server/models"
	"github.com/vnkhanh/taskboard-server/utils"
)

type BoardService struct {
	db    *gorm.DB
	authz *AuthzService
}

func NewBoardService(db *gorm.DB, authz *AuthzService) *BoardService {
	return &BoardService{db: db, authz: authz}
}

type BoardInput struct {
	Name        string
	Description *string
}

type ListView struct {
	models.List
	Cards []models.Card `json:"cards"`
}

type BoardView struct {
	models.Board
	Lists   []ListView           `json:"lists"`
	Members []models.BoardMember `json:"members"`
}

// Create makes a board with its OWNER and MEMBER roles and the creator as
// OWNER, all in one transaction.
func (s *BoardService) Create(ctx context.Context, userID uint, in BoardInput) (*models.Board, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, Invalid("Board name is required")
	}

	board := models.Board{Name: name, Description: in.Description, CreatedByID: userID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Board{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrBoardNameTaken
		}

		if err := tx.Create(&board).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrBoardNameTaken
			}
			return err
		}

		owner := models.BoardRole{BoardID: board.ID, Name: models.RoleOwner, Description: "Board Owner - Full access"}
		member := models.BoardRole{BoardID: board.ID, Name: models.RoleMember, Description: "Board Member - Basic access", IsDefault: true}
		if err := tx.Create(&owner).Error; err != nil {
			return err
		}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}

		return tx.Create(&models.BoardMember{
			BoardID:  board.ID,
			UserID:   userID,
			RoleID:   owner.ID,
			JoinedAt: time.Now(),
			Status:   models.MemberStatusActive,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	utils.LoggerFrom(ctx).Info("board created",
		slog.Uint64("board_id", uint64(board.ID)),
		slog.Uint64("user_id", uint64(userID)),
	)
	return &board, nil
}

// List returns every board for admins and the caller's boards otherwise.
func (s *BoardService) List(ctx context.Context, userID uint) ([]models.Board, error) {
	admin, err := s.authz.IsAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}

	var boards []models.Board
	q := s.db.WithContext(ctx).Model(&models.Board{})
	if !admin {
		q = q.Joins("JOIN board_members ON board_members.board_id = boards.id").
			Where("board_members.user_id = ?", userID)
	}
	if err := q.Order("boards.created_at desc").Find(&boards).Error; err != nil {
		return nil, err
	}
	return boards, nil
}

func (s *BoardService) find(ctx context.Context, boardID uint) (*models.Board, error) {
	var b models.Board
	if err := s.db.WithContext(ctx).First(&b, boardID).Error; err != nil {
		return nil, notFound(err, ErrBoardNotFound)
	}
	return &b, nil
}

// Get returns the board with its lists, cards and members.
func (s *BoardService) Get(ctx context.Context, userID, boardID uint) (*BoardView, error) {
	board, err := s.find(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, s.authz.IsMember, userID, boardID, ErrNotBoardMember); err != nil {
		return nil, err
	}

	var lists []models.List
	if err := s.db.WithContext(ctx).Where("board_id = ?", boardID).Order("position, id").Find(&lists).Error; err != nil {
		return nil, err
	}
	listIDs := make([]uint, 0, len(lists))
	for _, l := range lists {
		listIDs = append(listIDs, l.ID)
	}

	var cards []models.Card
	if len(listIDs) > 0 {
		if err := s.db.WithContext(ctx).Preload("Attachments").
			Where("list_id IN ?", listIDs).Order("position, id").Find(&cards).Error; err != nil {
			return nil, err
		}
	}
	byList := make(map[uint][]models.Card, len(lists))
	for _, c := range cards {
		byList[c.ListID] = append(byList[c.ListID], c)
	}

	view := &BoardView{Board: *board, Lists: make([]ListView, 0, len(lists))}
	for _, l := range lists {
		cs := byList[l.ID]
		if cs == nil {
			cs = []models.Card{}
		}
		view.Lists = append(view.Lists, ListView{List: l, Cards: cs})
	}

	if err := s.db.WithContext(ctx).Preload("User").Preload("Role").
		Where("board_id = ?", boardID).Order("joined_at").Find(&view.Members).Error; err != nil {
		return nil, err
	}
	return view, nil
}

type BoardPatch struct {
	Name        *string
	Description *string
}

func (s *BoardService) Update(ctx context.Context, userID, boardID uint, patch BoardPatch) (*models.Board, error) {
	board, err := s.find(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, s.authz.CanEditBoard, userID, boardID, ErrNotBoardOwner); err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, Invalid("Board name is required")
		}
		if name != board.Name {
			var count int64
			if err := s.db.WithContext(ctx).Model(&models.Board{}).
				Where("name = ? AND id <> ?", name, boardID).Count(&count).Error; err != nil {
				return nil, err
			}
			if count > 0 {
				return nil, ErrBoardNameTaken
			}
		}
		board.Name = name
	}
	if patch.Description != nil {
		board.Description = patch.Description
	}

	if err := s.db.WithContext(ctx).Save(board).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrBoardNameTaken
		}
		return nil, err
	}
	return board, nil
}

// Delete removes the board and everything hanging off it.
func (s *BoardService) Delete(ctx context.Context, userID, boardID uint) error {
	if _, err := s.find(ctx, boardID); err != nil {
		return err
	}
	if err := authorize(ctx, s.authz.CanDeleteBoard, userID, boardID, ErrNotBoardOwner); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		listIDs := tx.Model(&models.List{}).Select("id").Where("board_id = ?", boardID)
		cardIDs := tx.Model(&models.Card{}).Select("id").Where("list_id IN (?)", listIDs)

		steps := []struct {
			model any
			query string
			arg   any
		}{
			{&models.CardAttachment{}, "card_id IN (?)", cardIDs},
			{&models.Card{}, "list_id IN (?)", listIDs},
			{&models.List{}, "board_id = ?", boardID},
			{&models.BoardMember{}, "board_id = ?", boardID},
			{&models.BoardRole{}, "board_id = ?", boardID},
			{&models.ExportJob{}, "board_id = ?", boardID},
		}
		for _, st := range steps {
			if err := tx.Where(st.query, st.arg).Delete(st.model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Board{}, boardID).Error
	})
	if err != nil {
		return err
	}

	utils.LoggerFrom(ctx).Info("board deleted",
		slog.Uint64("board_id", uint64(boardID)),
		slog.Uint64("user_id", uint64(userID)),
	)
	return nil
}
