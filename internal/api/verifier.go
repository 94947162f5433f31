package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/verza/zkcreds/pkg/verifier"
)

// checkRequest is the /verifier/check request body.
type checkRequest struct {
	CredIssuers   []string `json:"cred_issuers" binding:"required"`
	Base64Receipt string   `json:"base64_receipt" binding:"required"`
}

func (s *Server) verifierCheck(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := s.Verifier.Check(c.Request.Context(), verifier.CheckInput{
		CredIssuers:   req.CredIssuers,
		Base64Receipt: req.Base64Receipt,
	})

	resp := gin.H{"verdict": result.Verdict}
	if result.Error != "" {
		resp["error"] = result.Error
	}
	if result.Journal != nil {
		resp["journal"] = result.Journal
	}
	c.JSON(http.StatusAccepted, resp)
}

func (s *Server) verifierListPresentations(c *gin.Context) {
	c.JSON(http.StatusOK, s.Verifier.PendingRequests())
}

// editPresentationsRequest is the /verifier/presentations POST body:
// indices (positions in the slice GET /verifier/presentations returns)
// to approve or deny.
type editPresentationsRequest struct {
	Approve []int `json:"approve"`
	Deny    []int `json:"deny"`
}

func (s *Server) verifierEditPresentations(c *gin.Context) {
	var req editPresentationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.Verifier.SetStatus(req.Approve, verifier.RequestStatusApproved)
	s.Verifier.SetStatus(req.Deny, verifier.RequestStatusDenied)
	c.JSON(http.StatusOK, true)
}
