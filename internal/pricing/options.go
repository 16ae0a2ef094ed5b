package pricing

import (
	"context"
	"log/slog"
	"strings"
)

// Vocabulary lists the metals and purities administrators may assign to items.
type Vocabulary struct {
	Metals   []string            `json:"metals"`
	Purities map[string][]string `json:"purities"`
	Source   string              `json:"source"`
}

// OptionsProvider supplies the admin-configured vocabulary.
type OptionsProvider interface {
	ValidOptions(ctx context.Context) (Vocabulary, error)
}

// Vocabulary sources.
const (
	SourceSettings = "settings"
	SourceDefault  = "default"
)

// DefaultVocabulary is the built-in vocabulary used when settings are unavailable.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Metals: []string{string(MetalGold), string(MetalSilver), string(MetalPlatinum), string(MetalDiamond), string(MetalMixed)},
		Purities: map[string][]string{
			string(MetalGold):     {Purity24K, Purity22K, Purity18K, Purity14K},
			string(MetalSilver):   {PuritySilver999, PuritySterling},
			string(MetalPlatinum): {PurityPlatinum950},
			string(MetalDiamond):  {PurityCarat},
			string(MetalMixed):    {PurityNotApplicable},
		},
		Source: SourceDefault,
	}
}

// ResolveOptions asks provider for the vocabulary and falls back to
// DefaultVocabulary when the provider is missing, fails or returns nothing.
func ResolveOptions(ctx context.Context, provider OptionsProvider, logger *slog.Logger) Vocabulary {
	if provider == nil {
		return DefaultVocabulary()
	}
	vocab, err := provider.ValidOptions(ctx)
	if err != nil {
		if logger != nil {
			logger.Warn("valid options unavailable, using defaults", slog.Any("error", err))
		}
		return DefaultVocabulary()
	}
	if len(vocab.Metals) == 0 {
		return DefaultVocabulary()
	}
	if vocab.Source == "" {
		vocab.Source = SourceSettings
	}
	return vocab
}

// Allows reports whether metal/purity is part of the vocabulary. Metals
// without a purity list accept any purity.
func (v Vocabulary) Allows(metal, purity string) bool {
	var canonical string
	for _, m := range v.Metals {
		if strings.EqualFold(m, strings.TrimSpace(metal)) {
			canonical = m
			break
		}
	}
	if canonical == "" {
		return false
	}
	allowed, ok := v.Purities[canonical]
	if !ok || len(allowed) == 0 {
		return true
	}
	want := canonicalPurity(purity)
	for _, p := range allowed {
		if canonicalPurity(p) == want {
			return true
		}
	}
	return false
}
