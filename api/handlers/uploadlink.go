package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	er "github.com/bosatsu/aws-twilio-fax/internal/errors"
	"github.com/bosatsu/aws-twilio-fax/internal/tracing"
	"github.com/bosatsu/aws-twilio-fax/services/uploadlink"
)

type uploadLinkRequest struct {
	SenderEmail string `json:"senderEmail" binding:"required,email"`
	ToPhone     string `json:"toPhone" binding:"required"`
}

// CreateUploadLink issues a presigned browser upload for a new fax job.
func CreateUploadLink(svc *uploadlink.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "UploadLinkHandler.CreateUploadLink")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var req uploadLinkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		post, key, err := svc.GenerateUploadLink(ctx, req.SenderEmail, req.ToPhone)
		if err != nil {
			tracing.TraceErr(span, err)
			if errors.Is(err, er.ErrSenderNotAllowed) {
				c.JSON(http.StatusForbidden, gin.H{"error": "sender is not approved"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create upload link"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"key":    key,
			"url":    post.URL,
			"fields": post.Fields,
		})
	}
}
