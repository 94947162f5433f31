// Package api wires the HTTP surface onto the component packages
// (pkg/orchestrator, pkg/verifier, pkg/store, ...): a gin.Engine built
// once in main, with handler methods hung off a small Server struct
// holding the process's collaborators.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verza/zkcreds/pkg/instances"
	"github.com/verza/zkcreds/pkg/orchestrator"
	"github.com/verza/zkcreds/pkg/prover"
	"github.com/verza/zkcreds/pkg/registry"
	"github.com/verza/zkcreds/pkg/scriptgen"
	"github.com/verza/zkcreds/pkg/security"
	"github.com/verza/zkcreds/pkg/store"
	"github.com/verza/zkcreds/pkg/sync"
	"github.com/verza/zkcreds/pkg/verifier"
)

// Server holds the collaborators every handler needs. It is constructed
// once in cmd/server/main.go and its dependencies (one DB handle, one
// wallet signer, one RPC client) are reused across every request.
type Server struct {
	Logger        *zap.Logger
	Orchestrator  *orchestrator.Orchestrator
	Verifier      *verifier.Verifier
	Prover        prover.Prover
	Store         *store.Store
	Registry      registry.Registry
	Materialiser  *instances.Materialiser
	Synchroniser  *sync.Synchroniser
	ScriptGen     *scriptgen.Generator
	IssuerAccount string

	// RateLimiter throttles per-IP when set. Left nil, the router skips the
	// middleware entirely (used by tests, which issue requests faster than
	// any real client and would otherwise trip it).
	RateLimiter *security.RateLimiter
}

// Router builds the gin.Engine serving the holder/issuer/verifier
// routes, with permissive CORS on every method they use.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	})
	r.Use(security.SecurityHeaders())
	r.Use(security.InputValidation(1 << 20))
	if s.RateLimiter != nil {
		r.Use(s.RateLimiter.RateLimitMiddleware())
	}
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization"},
	}))

	r.GET("/healthz", s.healthz)

	holder := r.Group("/holder")
	{
		holder.POST("/proof/generate", s.holderProofGenerate)
		holder.GET("/proof/status/:id", s.holderProofStatus)
		holder.POST("/genscript", s.holderGenScript)
	}

	issuer := r.Group("/issuer")
	{
		issuer.GET("/schemas", s.issuerListSchemas)
		issuer.POST("/schemas", s.issuerAddSchema)
		issuer.GET("/holders", s.issuerListHolders)
		issuer.POST("/holders", s.issuerEditHolders)
		issuer.GET("/credentials/:holder_id", s.issuerListCredentials)
		issuer.POST("/credentials/:holder_id", s.issuerEditCredentials)
		issuer.GET("/instances/:cred_id", s.issuerListInstances)
		issuer.POST("/instances/:cred_id", s.issuerEditInstances)
		issuer.POST("/instances/sync", s.issuerSyncInstances)
		issuer.POST("/check-zkp", s.issuerCheckZkp)
	}

	v := r.Group("/verifier")
	{
		v.POST("/check", s.verifierCheck)
		v.GET("/presentations", s.verifierListPresentations)
		v.POST("/presentations", s.verifierEditPresentations)
	}

	return r
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "zkcreds"})
}
