package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	statementdomain "github.com/smallbiznis/royalty/internal/statement/domain"
)

func (s *Server) GenerateStatement(c *gin.Context) {
	var req statementdomain.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req.ContractID = strings.TrimSpace(req.ContractID)
	req.AuthorID = strings.TrimSpace(req.AuthorID)
	c.Set("contract_id", req.ContractID)

	resp, err := s.statementSvc.Generate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if resp.Statement != nil {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"data": resp})
}

func (s *Server) ListStatements(c *gin.Context) {
	var req statementdomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.statementSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      resp.Items,
		"page_info": resp.PageInfo,
	})
}

func (s *Server) GetStatementByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	resp, err := s.statementSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("contract_id", resp.ContractID.String())
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetStatementDocument(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	doc, err := s.statementSvc.Document(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+doc.FileName+`"`)
	c.Data(http.StatusOK, "application/pdf", doc.Content)
}
