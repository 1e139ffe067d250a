package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	contractdomain "github.com/smallbiznis/royalty/internal/contract/domain"
)

type updateContractStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) ListContracts(c *gin.Context) {
	var req contractdomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.contractSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateContract(c *gin.Context) {
	var req contractdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req.TitleID = strings.TrimSpace(req.TitleID)
	req.TierMode = strings.TrimSpace(req.TierMode)

	resp, err := s.contractSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("contract_id", resp.ID.String())
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetContractByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	c.Set("contract_id", id)

	resp, err := s.contractSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateContractStatus(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	c.Set("contract_id", id)

	var req updateContractStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.contractSvc.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RecordAdvancePayment(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	c.Set("contract_id", id)

	var req contractdomain.AdvancePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ContractID = id

	resp, err := s.contractSvc.RecordAdditionalAdvancePayment(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
