package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ownershipdomain "github.com/smallbiznis/royalty/internal/ownership/domain"
)

// replaceOwnershipRequest takes either explicit shares or a list of authors
// to split equally, the first one primary.
type replaceOwnershipRequest struct {
	Shares    []ownershipdomain.ShareInput `json:"shares"`
	AuthorIDs []string                     `json:"author_ids"`
}

func (s *Server) GetOwnership(c *gin.Context) {
	titleID := strings.TrimSpace(c.Param("id"))

	set, err := s.ownership.LoadSet(c.Request.Context(), titleID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if set == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"title_id": set.TitleID(), "shares": set.Shares()}})
}

func (s *Server) ReplaceOwnership(c *gin.Context) {
	titleID := strings.TrimSpace(c.Param("id"))

	var req replaceOwnershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if len(req.Shares) > 0 && len(req.AuthorIDs) > 0 {
		AbortWithError(c, newValidationError("shares", "ambiguous_split", "send shares or author_ids, not both"))
		return
	}

	var (
		set *ownershipdomain.Set
		err error
	)
	if len(req.AuthorIDs) > 0 {
		set, err = s.ownership.EqualSplitFor(c.Request.Context(), titleID, req.AuthorIDs)
	} else {
		set, err = s.ownership.ReplaceSplit(c.Request.Context(), titleID, req.Shares)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"title_id": set.TitleID(), "shares": set.Shares()}})
}
