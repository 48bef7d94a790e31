// Webhook HTTP handler.
//
// This file exposes the WhatsApp inbound endpoint:
//   - POST /process-message  (admit a shared link and schedule its pipeline run)
//
// The handler is transport-thin: it validates and normalizes the webhook
// payload, delegates to the pipeline coordinator, and reports the admission
// outcome.
//
// Response contract:
// WhatsApp redelivers any webhook that does not answer 200, so this endpoint
// always answers 200 once the payload parses, and carries success/failure
// inside the envelope. Duplicate redeliveries get the same successful
// envelope as the first delivery. Only a malformed payload gets a 400.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/headstart/go-poi-backend/internal/domain"
	"github.com/headstart/go-poi-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// PipelineCoordinator defines the link-admission operations consumed by the
// webhook handler.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type PipelineCoordinator interface {
	// Submit admits one inbound message and schedules its processing.
	Submit(ctx context.Context, msg services.InboundMessage) (*services.Submission, error)
	// Status returns the durable record of a scheduled run.
	Status(ctx context.Context, jobID string) (*domain.Job, error)
}

//
// DTOs
//

// ProcessMessageRequest is the inbound webhook payload. Message, Name and
// PhoneNo are required; the identifier fields are optional and feed the
// dedup key (explicit WhatsApp message id preferred, content hash fallback).
type ProcessMessageRequest struct {
	// Message is the shared text, expected to contain a YouTube or Instagram URL.
	Message string `json:"message" binding:"required,min=1"`
	// Name is the sender's profile name.
	Name string `json:"name" binding:"required,min=1"`
	// PhoneNo is the sender's WhatsApp id.
	PhoneNo string `json:"phoneNo" binding:"required,min=1"`

	WhatsAppMessageID string `json:"whatsapp_message_id"`
	ID                string `json:"id"`
	Timestamp         string `json:"timestamp"`
}

// ProcessMessageResponse is the always-200 webhook envelope.
type ProcessMessageResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	JobID   string `json:"job_id,omitempty"`
	Link    string `json:"link,omitempty"`
	Name    string `json:"name"`
	PhoneNo string `json:"phoneNo"`
}

//
// Handlers
//

// ProcessMessage admits a shared link for asynchronous processing. The reply
// acknowledges admission only; clients poll GET /status/{job_id} for the
// outcome.
func (h *Handlers) ProcessMessage(c *gin.Context) {
	ctx := c.Request.Context()

	var req ProcessMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message, name and phoneNo are required")
		return
	}

	msg := services.InboundMessage{
		Text:              strings.TrimSpace(req.Message),
		WaID:              strings.TrimSpace(req.PhoneNo),
		SenderName:        strings.TrimSpace(req.Name),
		WhatsAppMessageID: strings.TrimSpace(req.WhatsAppMessageID),
		ID:                strings.TrimSpace(req.ID),
		Timestamp:         strings.TrimSpace(req.Timestamp),
	}
	if msg.Text == "" || msg.WaID == "" || msg.SenderName == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message, name and phoneNo are required")
		return
	}

	resp := ProcessMessageResponse{
		Name:    msg.SenderName,
		PhoneNo: msg.WaID,
		Link:    msg.Text,
	}

	sub, err := h.pipeline.Submit(ctx, msg)
	switch {
	case err == nil:
		resp.Success = true
		resp.JobID = sub.JobID
	case err == services.ErrDuplicateMessage:
		// Redelivery of an admitted message: acknowledge as success so the
		// sender stops retrying, but name the reason so clients can tell a
		// short-circuited duplicate from a fresh admission.
		resp.Success = true
		resp.Error = err.Error()
	case err == services.ErrUnsupportedPlatform:
		resp.Error = err.Error()
		resp.Link = ""
	default:
		resp.Error = err.Error()
	}

	ok(c, http.StatusOK, resp)
}
