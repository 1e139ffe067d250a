package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/royalty/internal/batch"
)

func (s *Server) RunBatch(c *gin.Context) {
	if s.batches == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	var req batch.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	report, err := s.batches.Run(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}
