package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	liabilitydomain "github.com/smallbiznis/royalty/internal/liability/domain"
)

func (s *Server) GetLiability(c *gin.Context) {
	var req liabilitydomain.SummaryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.liabilitySvc.Summary(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
