package identity

import "testing"

import "github.com/stretchr/testify/require"

func TestShouldExtractShortMessageWithoutPatternSkipped(t *testing.T) {
	require.False(t, shouldExtract("ok see you later", false, 15))
}

func TestShouldExtractBirthdayPatternTriggers(t *testing.T) {
	require.True(t, shouldExtract("I'm turning 30 next week, born March 15th", false, 15))
}

func TestShouldExtractDocumentBypassesPatternFilter(t *testing.T) {
	require.True(t, shouldExtract("Just a plain invoice with no special patterns at all here", true, 15))
}

func TestBlockedFactKeysExcludesAge(t *testing.T) {
	require.True(t, blockedFactKeys["age"])
	require.False(t, blockedFactKeys["birth_date"])
}

func TestExtractedFactValueUnmarshalsBothShapes(t *testing.T) {
	var v1 ExtractedFactValue
	require.NoError(t, v1.UnmarshalJSON([]byte(`"Tel Aviv"`)))
	require.Equal(t, "Tel Aviv", v1.Value)

	var v2 ExtractedFactValue
	require.NoError(t, v2.UnmarshalJSON([]byte(`{"value":"Tel Aviv","quote":"I live in Tel Aviv"}`)))
	require.Equal(t, "Tel Aviv", v2.Value)
	require.Equal(t, "I live in Tel Aviv", v2.Quote)
}
