package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	storedomain "github.com/smallbiznis/loyala/internal/store/domain"
)

func (s *Server) GetStore(c *gin.Context) {
	id := strings.TrimSpace(c.Param("storeId"))
	c.Set("store_id", id)

	resp, err := s.storeSvc.Get(c.Request.Context(), storedomain.GetRequest{
		ID: id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) BatchGetStores(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("ids"))
	if raw == "" {
		AbortWithError(c, newValidationError("ids", "invalid_ids", "invalid ids"))
		return
	}

	ids := make([]string, 0, 8)
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	resp, err := s.storeSvc.BatchGet(c.Request.Context(), storedomain.BatchGetRequest{
		IDs: ids,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateStoreTemplateRequest struct {
	CardTemplate map[string]interface{} `json:"cardTemplate"`
}

func (s *Server) UpdateStoreTemplate(c *gin.Context) {
	id := strings.TrimSpace(c.Param("storeId"))
	c.Set("store_id", id)

	var req updateStoreTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.storeSvc.UpdateTemplate(c.Request.Context(), storedomain.UpdateTemplateRequest{
		ID:           id,
		CardTemplate: req.CardTemplate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isStoreValidationError(err error) bool {
	switch err {
	case storedomain.ErrInvalidID,
		storedomain.ErrInvalidTemplate:
		return true
	default:
		return false
	}
}
