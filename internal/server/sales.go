package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	salesdomain "github.com/smallbiznis/royalty/internal/sales/domain"
)

func (s *Server) AppendSales(c *gin.Context) {
	var req salesdomain.AppendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req.TitleID = strings.TrimSpace(req.TitleID)

	resp, err := s.salesSvc.Append(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}
