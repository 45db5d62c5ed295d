package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/taskboard-server/services"
	"github.com/vnkhanh/taskboard-server/utils"
)

type CardController struct {
	cards *services.CardService
}

func NewCardController(cards *services.CardService) *CardController {
	return &CardController{cards: cards}
}

// GET /card/:listId
func (cc *CardController) ByList(c *gin.Context) {
	listID, ok := uintParam(c, "listId")
	if !ok {
		return
	}
	cards, err := cc.cards.Cards(c.Request.Context(), mustUser(c).ID, listID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "OK", cards)
}

// GET /card/detail/:id
func (cc *CardController) Get(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	card, err := cc.cards.Get(c.Request.Context(), mustUser(c).ID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "OK", card)
}

type CreateCardReq struct {
	LaneID      uint       `json:"laneId" binding:"required"`
	Title       string     `json:"title" binding:"required,max=255"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
}

// POST /add/card
func (cc *CardController) Create(c *gin.Context) {
	var req CreateCardReq
	if !bindJSON(c, &req) {
		return
	}
	card, err := cc.cards.Create(c.Request.Context(), mustUser(c).ID, req.LaneID, services.CardInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Respond(c, http.StatusCreated, "Card created", card)
}

type UpdateCardReq struct {
	ID           uint       `json:"id" binding:"required"`
	Title        *string    `json:"title" binding:"omitempty,max=255"`
	Description  *string    `json:"description"`
	DueDate      *time.Time `json:"dueDate"`
	ClearDueDate bool       `json:"clearDueDate"`
	Position     *int       `json:"position" binding:"omitempty,min=0"`
}

// PUT /edit/card
func (cc *CardController) Update(c *gin.Context) {
	var req UpdateCardReq
	if !bindJSON(c, &req) {
		return
	}
	card, err := cc.cards.Update(c.Request.Context(), mustUser(c).ID, req.ID, services.CardPatch{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		ClearDue:    req.ClearDueDate,
		Position:    req.Position,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Card updated", card)
}

type MoveCardReq struct {
	CardID   uint `json:"cardId" binding:"required"`
	LaneID   uint `json:"laneId" binding:"required"`
	Position *int `json:"position" binding:"omitempty,min=0"`
}

// PUT /cards/update/category moves a card to another list of its board.
func (cc *CardController) Move(c *gin.Context) {
	var req MoveCardReq
	if !bindJSON(c, &req) {
		return
	}
	card, err := cc.cards.Move(c.Request.Context(), mustUser(c).ID, req.CardID, req.LaneID, req.Position)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Card moved", card)
}

// DELETE /delete/card?id=
func (cc *CardController) Delete(c *gin.Context) {
	id, ok := uintQuery(c, "id")
	if !ok {
		return
	}
	if err := cc.cards.Delete(c.Request.Context(), mustUser(c).ID, id); err != nil {
		respondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Card deleted", nil)
}
