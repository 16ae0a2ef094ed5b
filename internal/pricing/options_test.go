package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveOptions(t *testing.T) {
	ctx := context.Background()

	require.Equal(t, DefaultVocabulary(), ResolveOptions(ctx, nil, nil))
	require.Equal(t, DefaultVocabulary(), ResolveOptions(ctx, stubOptions{err: errors.New("down")}, nil))
	require.Equal(t, DefaultVocabulary(), ResolveOptions(ctx, stubOptions{}, nil))

	custom := Vocabulary{
		Metals:   []string{"Gold", "Silver"},
		Purities: map[string][]string{"Gold": {"22K", "18K"}},
	}
	got := ResolveOptions(ctx, stubOptions{vocab: custom}, nil)
	require.Equal(t, SourceSettings, got.Source)
	require.Equal(t, custom.Metals, got.Metals)
}

func TestVocabularyAllows(t *testing.T) {
	vocab := DefaultVocabulary()
	require.True(t, vocab.Allows("gold", "22K"))
	require.True(t, vocab.Allows("Silver", "925"))
	require.True(t, vocab.Allows("Platinum", "950"))
	require.True(t, vocab.Allows("Mixed", "Not Applicable"))
	require.False(t, vocab.Allows("Gold", "10K"))
	require.False(t, vocab.Allows("Copper", "999"))

	open := Vocabulary{Metals: []string{"Gold"}}
	require.True(t, open.Allows("Gold", "10K"))
}
