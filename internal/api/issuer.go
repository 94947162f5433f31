package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/verza/zkcreds/pkg/prover"
	"github.com/verza/zkcreds/pkg/registry"
)

// pageFromQuery exposes (from, limit) pagination on registry reads as
// optional query parameters. A request naming neither reads the
// registry's own default (from=0, all).
func pageFromQuery(c *gin.Context) *registry.Page {
	fromStr, hasFrom := c.GetQuery("from")
	limitStr, hasLimit := c.GetQuery("limit")
	if !hasFrom && !hasLimit {
		return nil
	}
	var page registry.Page
	if hasFrom {
		from, err := strconv.ParseUint(fromStr, 10, 32)
		if err == nil {
			page.From = uint32(from)
		}
	}
	if hasLimit {
		limit, err := strconv.ParseUint(limitStr, 10, 32)
		if err == nil {
			page.Limit = uint32(limit)
		}
	}
	return &page
}

func (s *Server) issuerListSchemas(c *gin.Context) {
	schemas, err := s.Registry.GetIssuerSchemas(c.Request.Context(), s.IssuerAccount, pageFromQuery(c))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, schemas)
}

type addSchemaRequest struct {
	Schema string `json:"schema" binding:"required"`
}

func (s *Server) issuerAddSchema(c *gin.Context) {
	var req addSchemaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := s.Registry.AddSchema(c.Request.Context(), s.IssuerAccount, req.Schema); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, true)
}

func (s *Server) issuerListHolders(c *gin.Context) {
	holders, err := s.Store.ListHolders(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, holders)
}

type newHolder struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
}

type editHoldersRequest struct {
	Remove []string    `json:"remove"`
	Add    []newHolder `json:"add"`
}

func (s *Server) issuerEditHolders(c *gin.Context) {
	var req editHoldersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	for _, id := range req.Remove {
		if err := s.Store.DeleteHolder(ctx, id); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	for _, h := range req.Add {
		if _, err := s.Store.CreateHolder(ctx, h.FirstName, h.LastName); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, true)
}

func (s *Server) issuerListCredentials(c *gin.Context) {
	creds, err := s.Store.ListCredentials(c.Request.Context(), c.Param("holder_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, creds)
}

type newCredential struct {
	SchemaID uint32          `json:"schema_id"`
	Details  json.RawMessage `json:"details" binding:"required"`
}

// credentialEdit is one element of the batch /issuer/credentials/:holder_id
// POST body: `[{holder_id,remove:[id],add:[(schema_id,details)]}]`.
// HolderID defaults to the path parameter when omitted.
type credentialEdit struct {
	HolderID string          `json:"holder_id"`
	Remove   []string        `json:"remove"`
	Add      []newCredential `json:"add"`
}

func (s *Server) issuerEditCredentials(c *gin.Context) {
	pathHolderID := c.Param("holder_id")

	var edits []credentialEdit
	if err := c.ShouldBindJSON(&edits); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	for _, edit := range edits {
		holderID := edit.HolderID
		if holderID == "" {
			holderID = pathHolderID
		}
		for _, id := range edit.Remove {
			if err := s.Store.DeleteCredential(ctx, id); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		}
		for _, add := range edit.Add {
			if _, err := s.Store.CreateCredential(ctx, holderID, add.SchemaID, string(add.Details)); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		}
	}
	c.JSON(http.StatusOK, true)
}

func (s *Server) issuerListInstances(c *gin.Context) {
	instances, err := s.Store.ListInstances(c.Request.Context(), c.Param("cred_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, instances)
}

type editInstancesRequest struct {
	Remove   []string `json:"remove"`
	NumToAdd int      `json:"num_to_add"`
}

func (s *Server) issuerEditInstances(c *gin.Context) {
	credID := c.Param("cred_id")

	var req editInstancesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.Materialiser.Refresh(c.Request.Context(), credID, req.NumToAdd, req.Remove); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, true)
}

func (s *Server) issuerSyncInstances(c *gin.Context) {
	if err := s.Synchroniser.Sync(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, true)
}

// checkZkpRequest is an issuer self-service sanity-check body: verify a
// receipt cryptographically with no registry cross-check and no
// pending-queue side effect, so an issuer can sanity-check a proof before
// publishing the schemas/instances it depends on.
type checkZkpRequest struct {
	Base64Receipt string `json:"base64_receipt" binding:"required"`
}

func (s *Server) issuerCheckZkp(c *gin.Context) {
	var req checkZkpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := prover.DecodeReceipt(req.Base64Receipt)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": "malformed receipt"})
		return
	}

	journal, err := s.Prover.Verify(receipt)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": "receipt verification failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true, "journal": journal})
}
