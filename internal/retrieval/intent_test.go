package retrieval

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func containsIntent(intents []Intent, want Intent) bool {
	for _, i := range intents {
		if i == want {
			return true
		}
	}
	return false
}

func TestClassifyIntentPersonHistory(t *testing.T) {
	intents := ClassifyIntent("what did David say about the meeting?", true, false)
	require.True(t, containsIntent(intents, IntentPersonHistory))
}

func TestClassifyIntentFamilyContext(t *testing.T) {
	intents := ClassifyIntent("who is in Sarah's family?", false, false)
	require.True(t, containsIntent(intents, IntentFamilyContext))
}

func TestClassifyIntentDefaultsToGeneral(t *testing.T) {
	intents := ClassifyIntent("what's the weather like", false, false)
	require.Equal(t, []Intent{IntentGeneral}, intents)
}

func TestClassifyIntentResolvedPersonsWithoutSpecificPatternDefaultsToPersonHistory(t *testing.T) {
	intents := ClassifyIntent("David", true, false)
	require.True(t, containsIntent(intents, IntentPersonHistory))
}

func TestClassifyIntentFacts(t *testing.T) {
	intents := ClassifyIntent("how old is David and where does he live?", false, false)
	require.True(t, containsIntent(intents, IntentPersonFacts))
}

func TestClassifyIntentAssetAttachment(t *testing.T) {
	intents := ClassifyIntent("can you find the attached invoice?", false, false)
	require.True(t, containsIntent(intents, IntentAssetAttachment))
}

func TestClassifyIntentCrossChannel(t *testing.T) {
	intents := ClassifyIntent("did she email me about this too?", false, false)
	require.True(t, containsIntent(intents, IntentCrossChannel))
}

func TestShouldExpandRelationships(t *testing.T) {
	require.True(t, ShouldExpandRelationships([]Intent{IntentFamilyContext}))
	require.False(t, ShouldExpandRelationships([]Intent{IntentGeneral}))
}

func TestShouldExpandAssetNeighborhood(t *testing.T) {
	require.True(t, ShouldExpandAssetNeighborhood([]Intent{IntentAssetThread}))
	require.True(t, ShouldExpandAssetNeighborhood([]Intent{IntentCrossChannel}))
	require.False(t, ShouldExpandAssetNeighborhood([]Intent{IntentPersonFacts}))
}
