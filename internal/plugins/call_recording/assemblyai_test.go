package call_recording

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatWithSpeakersGroupsConsecutiveUtterances(t *testing.T) {
	utterances := []transcriptUtterance{
		{Speaker: "A", Text: "Hello,"},
		{Speaker: "A", Text: "how are you?"},
		{Speaker: "B", Text: "I'm fine, thanks."},
	}
	got := formatWithSpeakers(utterances)
	require.Equal(t, "Speaker A: Hello, how are you?\nSpeaker B: I'm fine, thanks.", got)
}

func TestFormatWithSpeakersEmpty(t *testing.T) {
	require.Equal(t, "", formatWithSpeakers(nil))
}

func TestNewAssemblyAIClientDefaultsModel(t *testing.T) {
	c := newAssemblyAIClient("key", "", true)
	require.Equal(t, "universal-2", c.model)
}
