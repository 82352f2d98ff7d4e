// Package notify maps outbox events to human-readable notification copy.
package notify

import "github.com/manisense/constellation-push-dispatcher/internal/domain/entity"

// MaxPreviewLen bounds user-supplied text embedded in a notification body.
const MaxPreviewLen = 120

type Copy struct {
	Title string
	Body  string
}

// Build is a pure mapping from event type and payload to title/body. It is
// total: unknown event types fall back to generic copy instead of failing.
func Build(eventType entity.EventType, payload map[string]any) Copy {
	switch eventType {
	case entity.EventMessageNew:
		body := Truncate(stringField(payload, "preview_text"), MaxPreviewLen)
		if body == "" {
			body = "You have a new message"
		}
		return Copy{Title: "New message from your partner", Body: body}

	case entity.EventCallRinging:
		body := "Your partner is calling you"
		if callType := stringField(payload, "call_type"); callType == "video" {
			body = "Your partner is starting a video call"
		} else if callType == "voice" {
			body = "Your partner is starting a voice call"
		}
		return Copy{Title: "Incoming call", Body: body}

	case entity.EventRitualReminder:
		body := "Time for your ritual together"
		if title := Truncate(stringField(payload, "ritual_title"), MaxPreviewLen); title != "" {
			body = "Time for " + title
		}
		return Copy{Title: "Ritual reminder", Body: body}

	case entity.EventPartnerJoined:
		return Copy{Title: "Your partner joined", Body: "Your constellation is now complete"}

	case entity.EventSystem:
		if msg := Truncate(stringField(payload, "message"), MaxPreviewLen); msg != "" {
			return Copy{Title: "Constellation", Body: msg}
		}
		return fallback()

	default:
		return fallback()
	}
}

func fallback() Copy {
	return Copy{Title: "Constellation", Body: "You have a new notification"}
}

// Truncate bounds s to max runes.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func stringField(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	value, _ := payload[key].(string)
	return value
}
