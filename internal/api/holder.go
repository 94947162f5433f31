package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/verza/zkcreds/pkg/orchestrator"
	"github.com/verza/zkcreds/pkg/prover"
	"github.com/verza/zkcreds/pkg/scriptgen"
	"github.com/verza/zkcreds/pkg/zkvmtypes"
)

// generateProofRequest is the /holder/proof/generate request body.
type generateProofRequest struct {
	Credentials []string             `json:"credentials" binding:"required"`
	Lang        zkvmtypes.ScriptLang `json:"lang" binding:"required"`
	Script      string               `json:"script" binding:"required"`
}

func (s *Server) holderProofGenerate(c *gin.Context) {
	var req generateProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	taskID, activeTask := s.Orchestrator.Submit(zkvmtypes.ZkvmInput{
		Credentials: req.Credentials,
		Lang:        req.Lang,
		Script:      req.Script,
	})

	c.JSON(http.StatusAccepted, gin.H{"task_id": taskID, "active_task": activeTask})
}

// statusResponse is the tagged {status, ...} wire shape for a proof
// task's status: a sum type on the wire rather than a single overloaded
// field.
func statusResponse(result orchestrator.StatusResult) gin.H {
	switch result.Status {
	case orchestrator.StatusReady:
		encoded, err := prover.EncodeReceipt(result.Receipt)
		if err != nil {
			return gin.H{"status": "failed", "reason": "failed to encode receipt: " + err.Error()}
		}
		return gin.H{"status": "ready", "receipt": encoded}
	case orchestrator.StatusPending:
		return gin.H{
			"status":                "pending",
			"current_task":          result.CurrentTask,
			"time_estimate_minutes": result.TimeEstimateMins,
		}
	case orchestrator.StatusFailed:
		return gin.H{"status": "failed", "reason": result.FailureReason}
	default:
		return gin.H{"status": "unknown"}
	}
}

func (s *Server) holderProofStatus(c *gin.Context) {
	taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	result := s.Orchestrator.Status(c.Request.Context(), taskID)
	c.JSON(http.StatusAccepted, statusResponse(result))
}

// genScriptRequest is the /holder/genscript request body.
type genScriptRequest struct {
	Lang         zkvmtypes.ScriptLang `json:"lang" binding:"required"`
	CredSchemes  []string             `json:"cred_schemes"`
	Requirements string               `json:"requirements" binding:"required"`
}

func (s *Server) holderGenScript(c *gin.Context) {
	var req genScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s.ScriptGen == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "script generation is not configured"})
		return
	}

	script, err := s.ScriptGen.Generate(c.Request.Context(), scriptgen.Request{
		Lang:         req.Lang,
		CredSchemes:  req.CredSchemes,
		Requirements: req.Requirements,
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"script": script})
}
