package channel

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	apperrors "video-conversion/internal/app/errors"
	"video-conversion/internal/app/model"
)

// decodeMessage parses a queue body. fallbackID is used when the body carries no id.
func decodeMessage(body []byte, fallbackID string) (model.QueueMessage, error) {
	var msg model.QueueMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, apperrors.Wrap(apperrors.ErrMessageMalformed, err.Error())
	}
	if strings.TrimSpace(msg.ObjectKey) == "" || strings.TrimSpace(msg.Status) == "" {
		return msg, apperrors.Wrap(apperrors.ErrMessageMalformed, "missing key or status")
	}
	switch msg.Process {
	case "":
		msg.Process = model.ProcessTranscoder
	case model.ProcessTranscoder, model.ProcessSubtitle:
	default:
		return msg, apperrors.Wrapf(apperrors.ErrMessageMalformed, "unknown process %q", msg.Process)
	}
	if msg.ID == "" {
		msg.ID = fallbackID
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	return msg, nil
}

// PayloadHash identifies a delivery by its content, so redundant deliveries of the same
// notification collapse into one stored event.
func PayloadHash(msg model.QueueMessage) string {
	h := sha256.New()
	for _, part := range []string{
		string(msg.Process),
		strings.ToUpper(msg.Status),
		msg.ObjectKey,
		string(msg.Payload),
		msg.SentAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
