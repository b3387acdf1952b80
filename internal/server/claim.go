package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	carddomain "github.com/smallbiznis/loyala/internal/card/domain"
	claimdomain "github.com/smallbiznis/loyala/internal/claim/domain"
)

type claimCardRequest struct {
	Token   string `json:"token"`
	OwnerID string `json:"ownerId"`
}

func (s *Server) ClaimCard(c *gin.Context) {
	var req claimCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.claimSvc.Resolve(c.Request.Context(), claimdomain.ResolveRequest{
		Token:   strings.TrimSpace(req.Token),
		OwnerID: carddomain.OwnerID(strings.TrimSpace(req.OwnerID)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("store_id", resp.StoreID)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type createClaimRequest struct {
	StoreID string `json:"storeId"`
}

func (s *Server) CreateClaim(c *gin.Context) {
	var req createClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	c.Set("store_id", strings.TrimSpace(req.StoreID))

	resp, err := s.claimSvc.Create(c.Request.Context(), claimdomain.CreateRequest{
		StoreID: strings.TrimSpace(req.StoreID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isClaimValidationError(err error) bool {
	switch err {
	case claimdomain.ErrInvalidToken,
		claimdomain.ErrInvalidOwner,
		claimdomain.ErrInvalidStore,
		claimdomain.ErrUnresolvableStore:
		return true
	default:
		return false
	}
}
