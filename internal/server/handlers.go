package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Deuthe/test-odrl-integration/internal/credential"
	"github.com/Deuthe/test-odrl-integration/internal/eventlog"
	"github.com/Deuthe/test-odrl-integration/internal/gateway"
	"github.com/Deuthe/test-odrl-integration/internal/observability"
	"github.com/Deuthe/test-odrl-integration/internal/policy"
	"github.com/Deuthe/test-odrl-integration/internal/util"
)

// Client-facing error bodies.
const (
	msgInvalidPolicy      = "Invalid policy document"
	msgPolicyEngineFailed = "Failed to update policy engine"
	msgInvalidWallet      = "Invalid wallet data: missing role or jurisdiction attributes"
	msgTokenFailed        = "Failed to generate token"
	msgResourceNotFound   = "The requested data resource does not exist."
	msgMissingToken       = "Unauthorized: Missing or invalid token"
	msgInvalidToken       = "Unauthorized: Invalid token"
	msgAccessDenied       = "Access Denied"
	msgInternal           = "Internal System Error"
)

const defaultPayloadType = "application/json; charset=utf-8"

var errNullDocument = errors.New("policy document is null")

func (s *Server) handleApplyPolicy(c *gin.Context) {
	s.deps.Recorder.Record("Received request to update policy...", eventlog.ClassSend)

	var doc *policy.UsagePolicy
	err := c.ShouldBindJSON(&doc)
	if err == nil && doc == nil {
		err = errNullDocument
	}
	if err != nil {
		s.deps.Recorder.Record("Invalid policy document.", eventlog.ClassFail)
		s.logger.WithContext(c.Request.Context()).Warn("malformed policy document", observability.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidPolicy})
		return
	}

	if _, err := s.deps.Policies.Apply(c.Request.Context(), doc); err != nil {
		if util.KindOf(err) == util.KindValidation {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidPolicy})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgPolicyEngineFailed})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "status": "Policy Active"})
}

func (s *Server) handleIssueToken(c *gin.Context) {
	var req *credential.TokenRequest
	var body credential.TokenRequest
	if err := c.ShouldBindJSON(&body); err == nil {
		req = &body
	}

	token, err := s.deps.Tokens.Issue(c.Request.Context(), req)
	if err != nil {
		if util.KindOf(err) == util.KindValidation {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidWallet})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgTokenFailed})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) handleData(c *gin.Context) {
	name := c.Param("resourceName")
	ctx := util.ContextWithResource(c.Request.Context(), name)

	resp, err := s.deps.Gateway.Authorize(ctx, &gateway.Request{
		ResourceName:  name,
		Method:        c.Request.Method,
		Path:          c.Request.URL.Path,
		Authorization: c.GetHeader("Authorization"),
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = defaultPayloadType
	}
	c.Data(http.StatusOK, contentType, resp.Body)
}

func (s *Server) handleLogs(c *gin.Context) {
	if s.deps.Events == nil {
		c.JSON(http.StatusOK, []eventlog.Event{})
		return
	}
	c.JSON(http.StatusOK, s.deps.Events.Drain())
}

// writeError maps a classified error to its status and JSON body.
func (s *Server) writeError(c *gin.Context, err error) {
	status := util.HTTPStatus(err)

	switch util.KindOf(err) {
	case util.KindNotFound:
		c.JSON(status, gin.H{"error": msgResourceNotFound})
	case util.KindAuth:
		msg := msgInvalidToken
		if errors.Is(err, gateway.ErrMissingCredential) {
			msg = msgMissingToken
		}
		c.JSON(status, gin.H{"error": msg})
	case util.KindDenied:
		c.JSON(status, gin.H{"error": msgAccessDenied, "reason": util.ReasonOf(err)})
	case util.KindValidation:
		c.JSON(status, gin.H{"error": err.Error()})
	default:
		s.logger.WithContext(c.Request.Context()).Error("request failed",
			observability.String("path", c.Request.URL.Path),
			observability.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
	}
}
