package notify

import (
	"strings"
	"testing"

	"github.com/manisense/constellation-push-dispatcher/internal/domain/entity"
	"github.com/stretchr/testify/assert"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name      string
		eventType entity.EventType
		payload   map[string]any
		wantTitle string
		wantBody  string
	}{
		{
			name:      "new message with preview",
			eventType: entity.EventMessageNew,
			payload:   map[string]any{"preview_text": "hi"},
			wantTitle: "New message from your partner",
			wantBody:  "hi",
		},
		{
			name:      "new message without preview",
			eventType: entity.EventMessageNew,
			payload:   map[string]any{},
			wantTitle: "New message from your partner",
			wantBody:  "You have a new message",
		},
		{
			name:      "video call",
			eventType: entity.EventCallRinging,
			payload:   map[string]any{"call_type": "video"},
			wantTitle: "Incoming call",
			wantBody:  "Your partner is starting a video call",
		},
		{
			name:      "voice call",
			eventType: entity.EventCallRinging,
			payload:   map[string]any{"call_type": "voice"},
			wantTitle: "Incoming call",
			wantBody:  "Your partner is starting a voice call",
		},
		{
			name:      "call without type",
			eventType: entity.EventCallRinging,
			payload:   nil,
			wantTitle: "Incoming call",
			wantBody:  "Your partner is calling you",
		},
		{
			name:      "ritual reminder",
			eventType: entity.EventRitualReminder,
			payload:   map[string]any{"ritual_title": "evening check-in"},
			wantTitle: "Ritual reminder",
			wantBody:  "Time for evening check-in",
		},
		{
			name:      "partner joined",
			eventType: entity.EventPartnerJoined,
			payload:   nil,
			wantTitle: "Your partner joined",
			wantBody:  "Your constellation is now complete",
		},
		{
			name:      "system with message",
			eventType: entity.EventSystem,
			payload:   map[string]any{"message": "maintenance tonight"},
			wantTitle: "Constellation",
			wantBody:  "maintenance tonight",
		},
		{
			name:      "unknown event type falls back",
			eventType: entity.EventType("something_else"),
			payload:   map[string]any{"preview_text": "ignored"},
			wantTitle: "Constellation",
			wantBody:  "You have a new notification",
		},
		{
			name:      "non-string preview ignored",
			eventType: entity.EventMessageNew,
			payload:   map[string]any{"preview_text": 42},
			wantTitle: "New message from your partner",
			wantBody:  "You have a new message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Build(tt.eventType, tt.payload)
			assert.Equal(t, tt.wantTitle, got.Title)
			assert.Equal(t, tt.wantBody, got.Body)
		})
	}
}

func TestBuildTruncatesPreview(t *testing.T) {
	long := strings.Repeat("a", MaxPreviewLen+30)
	got := Build(entity.EventMessageNew, map[string]any{"preview_text": long})
	assert.Len(t, got.Body, MaxPreviewLen)
	assert.Equal(t, strings.Repeat("a", MaxPreviewLen), got.Body)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "", Truncate("", 5))
	// rune-safe: multibyte characters are never split
	assert.Equal(t, "héll", Truncate("héllo", 4))
}
