package whatsapp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShouldProcessFiltersAcksAndBroadcasts(t *testing.T) {
	require.False(t, shouldProcess(map[string]interface{}{"event": "message_ack"}))
	require.False(t, shouldProcess(map[string]interface{}{"from": "123@newsletter"}))
	require.False(t, shouldProcess(map[string]interface{}{"from": "123@broadcast"}))
	require.True(t, shouldProcess(map[string]interface{}{"from": "123@c.us"}))
}

func TestShouldProcessFiltersE2ENotifications(t *testing.T) {
	payload := map[string]interface{}{
		"from": "123@c.us",
		"_data": map[string]interface{}{
			"type": "e2e_notification",
		},
	}
	require.False(t, shouldProcess(payload))
}

func TestToSourceItemDirectMessage(t *testing.T) {
	payload := map[string]interface{}{
		"from":      "972501234567@c.us",
		"body":      "hello there",
		"timestamp": float64(1700000000),
		"id":        "msg-1",
		"_data":     map[string]interface{}{"notifyName": "Alice"},
	}
	item, ok := toSourceItem(payload)
	require.True(t, ok)
	require.Equal(t, "hello there", item.Text)
	require.Equal(t, "Alice", item.Sender)
	require.False(t, item.IsGroup)
	require.Equal(t, "972501234567@c.us", item.ChatID)
}

func TestToSourceItemGroupMessage(t *testing.T) {
	payload := map[string]interface{}{
		"from":        "120363123456789@g.us",
		"participant": "972501234567@c.us",
		"body":        "group hello",
		"_data":       map[string]interface{}{"notifyName": "Bob"},
	}
	item, ok := toSourceItem(payload)
	require.True(t, ok)
	require.True(t, item.IsGroup)
	require.Equal(t, "120363123456789@g.us", item.ChatID)
	require.Contains(t, item.ParticipantNames, "Bob")
}

func TestToSourceItemRejectsEmptyBody(t *testing.T) {
	_, ok := toSourceItem(map[string]interface{}{"from": "123@c.us"})
	require.False(t, ok)
}
