package screening

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"strings"

	"gorm.io/gorm"

	"hireops-backend/internal/model"
	"hireops-backend/internal/workflow"
)

// ErrBadSignature rejects webhook deliveries whose HMAC does not match.
var ErrBadSignature = errors.New("webhook signature mismatch")

// VerifySignature checks a vendor webhook's HMAC-SHA256 signature over the
// raw request body. The signature header carries lowercase hex, optionally
// prefixed with "sha256=".
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	signature = strings.TrimPrefix(signature, "sha256=")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// WebhookSecret returns the shared secret for vendor webhook verification.
func WebhookSecret() string {
	return os.Getenv("AGENT_WEBHOOK_SECRET")
}

// ProcessWebhookTranscript handles a server-side transcript delivery keyed by
// the vendor conversation id. It shares the idempotent RecordTranscript path
// with the client-side submission, so whichever arrives first wins and the
// other no-ops.
func (m *Manager) ProcessWebhookTranscript(ctx context.Context, conversationID, transcript string, durationSeconds int) error {
	var link model.InterviewLink
	err := m.DB.WithContext(ctx).Where("conversation_id = ?", conversationID).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrLinkNotFound
	}
	if err != nil {
		return err
	}

	workflow.AppendEvent(m.DB.DB, &link.AppID, model.EventWebhookTranscriptReceived, map[string]any{
		"conversation_id": conversationID,
	})
	return m.RecordTranscript(ctx, link.Token, transcript, durationSeconds)
}
