package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/internal/ai"
)

func newTestKeywordExtractor(chatter ai.IChatter) *KeywordExtractor {
	return NewKeywordExtractor(chatter, 5*time.Second)
}

func TestExtractParsesFencedReply(t *testing.T) {
	chatter := &scriptedChatter{replies: []string{"```json\n[\"postgres\", \"vector search\", \"embeddings\"]\n```"}}
	ext := newTestKeywordExtractor(chatter)

	terms := ext.Extract(context.Background(), "some passage about vector search", 7)
	require.NotEmpty(t, terms)
	require.LessOrEqual(t, len(terms), 7)
	require.Equal(t, []string{"postgres", "vector search", "embeddings"}, terms)
}

func TestExtractToleratesSurroundingProse(t *testing.T) {
	chatter := &scriptedChatter{replies: []string{"Here are the keywords:\n[\"alpha\", \"beta\"]\nHope that helps!"}}
	ext := newTestKeywordExtractor(chatter)

	terms := ext.Extract(context.Background(), "passage", 5)
	require.Equal(t, []string{"alpha", "beta"}, terms)
}

func TestExtractDeduplicatesCaseInsensitively(t *testing.T) {
	chatter := &scriptedChatter{replies: []string{"[\"Go\", \"go\", \"GO\", \"channels\"]"}}
	ext := newTestKeywordExtractor(chatter)

	terms := ext.Extract(context.Background(), "passage", 10)
	require.Equal(t, []string{"Go", "channels"}, terms)
}

func TestExtractRespectsTargetCap(t *testing.T) {
	chatter := &scriptedChatter{replies: []string{"[\"a\",\"b\",\"c\",\"d\",\"e\",\"f\"]"}}
	ext := newTestKeywordExtractor(chatter)

	terms := ext.Extract(context.Background(), "passage", 3)
	require.Len(t, terms, 3)
}

func TestExtractFailureDegradesToEmpty(t *testing.T) {
	for name, chatter := range map[string]*scriptedChatter{
		"provider error":    {errs: []error{ai.ErrUnavailable}},
		"unparsable reply":  {replies: []string{"I could not find any keywords."}},
		"empty array reply": {replies: []string{"[]"}},
	} {
		t.Run(name, func(t *testing.T) {
			ext := newTestKeywordExtractor(chatter)
			terms := ext.Extract(context.Background(), "passage", 5)
			require.Empty(t, terms)
		})
	}
}

func TestExtractEmptyTextSkipsProviderCall(t *testing.T) {
	chatter := &scriptedChatter{replies: []string{"[\"x\"]"}}
	ext := newTestKeywordExtractor(chatter)

	terms := ext.Extract(context.Background(), "   ", 5)
	require.Empty(t, terms)
	require.Equal(t, 0, chatter.calls)
}
