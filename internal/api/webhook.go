package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/devricklin/wechat-oa-bridge/internal/biz/domain"
	"github.com/devricklin/wechat-oa-bridge/internal/service"
)

const maxWebhookBody = 1 << 20

func signatureParams(c *gin.Context) service.SignatureParams {
	return service.SignatureParams{
		Signature: c.Query("signature"),
		Timestamp: c.Query("timestamp"),
		Nonce:     c.Query("nonce"),
	}
}

// handleVerify answers WeChat's server ownership check
func (s *Server) handleVerify(c *gin.Context) {
	echo, ok := s.webhook.Verify(signatureParams(c), c.Query("echostr"))
	if !ok {
		c.String(http.StatusOK, "")
		return
	}
	c.String(http.StatusOK, echo)
}

// handleMessage answers a message or event push. WeChat retries anything
// that is not a 200, so only a bad signature gets another status.
func (s *Server) handleMessage(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		s.log.WithError(err).Warn("failed to read webhook body")
		body = nil
	}

	reply, err := s.webhook.HandleMessage(c.Request.Context(), signatureParams(c), body)
	if errors.Is(err, domain.ErrSignatureMismatch) {
		c.Status(http.StatusForbidden)
		return
	}

	if reply == "" {
		c.String(http.StatusOK, service.AckBody)
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", []byte(reply))
}
