package summarize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatSummaries(t *testing.T) {
	got := FormatSummaries([]string{"first", "second"})
	assert.Equal(t, "Summary 1:\nfirst\n\nSummary 2:\nsecond", got)
	assert.Equal(t, "", FormatSummaries(nil))
}

func TestBuildPrompts_SteeringOnlyWhenGiven(t *testing.T) {
	without := BuildMapPrompt("body", "")
	assert.NotContains(t, without, "ADDITIONAL USER INSTRUCTIONS")
	assert.True(t, strings.HasPrefix(without, MapPrompt))

	for _, p := range []string{
		BuildMapPrompt("body", "be brief"),
		BuildReducePrompt([]string{"a"}, "be brief"),
		BuildFinalPrompt([]string{"a"}, "be brief"),
		BuildExecutivePrompt("doc", "be brief"),
	} {
		assert.Contains(t, p, "ADDITIONAL USER INSTRUCTIONS:\nbe brief")
	}
}

func TestTieredModels(t *testing.T) {
	m := TieredModels("small", "large")
	assert.Equal(t, ChainModels{Map: "small", Reduce: "small", Final: "large", Executive: "large"}, m)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("detailed")
	assert.NoError(t, err)
	assert.Equal(t, ModeDetailed, m)

	_, err = ParseMode("bullet")
	assert.ErrorIs(t, err, ErrInvalidState)
}
