package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	carddomain "github.com/smallbiznis/loyala/internal/card/domain"
)

type addStampsRequest struct {
	StoreID string   `json:"storeId"`
	OwnerID string   `json:"ownerId"`
	CardID  string   `json:"cardId"`
	Add     *float64 `json:"add"`
}

func (s *Server) AddStamps(c *gin.Context) {
	var req addStampsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	storeID := strings.TrimSpace(req.StoreID)
	c.Set("store_id", storeID)

	if !s.allowScan(c, storeID) {
		AbortWithError(c, ErrRateLimited)
		return
	}

	// An absent add means one stamp; an explicit value, including zero,
	// is passed through for validation.
	delta := 1.0
	if req.Add != nil {
		delta = *req.Add
	}

	resp, err := s.cardSvc.AddStamps(c.Request.Context(), carddomain.AddStampsRequest{
		StoreID:         storeID,
		OwnerID:         carddomain.OwnerID(strings.TrimSpace(req.OwnerID)),
		CardID:          strings.TrimSpace(req.CardID),
		Delta:           delta,
		PresentedSecret: c.GetHeader(headerScanSecret),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type consumeRewardRequest struct {
	StoreID string `json:"storeId"`
	OwnerID string `json:"ownerId"`
	CardID  string `json:"cardId"`
}

func (s *Server) ConsumeReward(c *gin.Context) {
	var req consumeRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	storeID := strings.TrimSpace(req.StoreID)
	c.Set("store_id", storeID)

	if !s.allowScan(c, storeID) {
		AbortWithError(c, ErrRateLimited)
		return
	}

	resp, err := s.cardSvc.ConsumeReward(c.Request.Context(), carddomain.ConsumeRewardRequest{
		StoreID: storeID,
		OwnerID: carddomain.OwnerID(strings.TrimSpace(req.OwnerID)),
		CardID:  strings.TrimSpace(req.CardID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCards(c *gin.Context) {
	ownerID := strings.TrimSpace(c.Query("ownerId"))

	cards, err := s.cardSvc.List(c.Request.Context(), carddomain.ListRequest{
		OwnerID: carddomain.OwnerID(ownerID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": cards})
}

type deleteCardRequest struct {
	OwnerID string `json:"ownerId"`
	CardID  string `json:"cardId"`
}

func (s *Server) DeleteCard(c *gin.Context) {
	var req deleteCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.cardSvc.Remove(c.Request.Context(), carddomain.RemoveRequest{
		OwnerID: carddomain.OwnerID(strings.TrimSpace(req.OwnerID)),
		CardID:  strings.TrimSpace(req.CardID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

type devCreateCardRequest struct {
	StoreID string `json:"storeId"`
	OwnerID string `json:"ownerId"`
	Goal    int    `json:"goal"`
}

func (s *Server) DevCreateCard(c *gin.Context) {
	var req devCreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	card, err := s.cardSvc.Create(c.Request.Context(), carddomain.CreateRequest{
		StoreID: strings.TrimSpace(req.StoreID),
		OwnerID: carddomain.OwnerID(strings.TrimSpace(req.OwnerID)),
		Goal:    req.Goal,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": card})
}

func isCardValidationError(err error) bool {
	switch err {
	case carddomain.ErrInvalidStore,
		carddomain.ErrInvalidOwner,
		carddomain.ErrInvalidCard,
		carddomain.ErrInvalidDelta,
		carddomain.ErrInvalidGoal,
		carddomain.ErrNotActive,
		carddomain.ErrNotAReward:
		return true
	default:
		return false
	}
}
