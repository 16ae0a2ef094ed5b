package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jewelcraft/metalpricing/internal/pricing"
)

// vocabularySettingKey names the catalog_settings row holding allowed metals and purities.
const vocabularySettingKey = "pricing.vocabulary"

// ErrVocabularyNotConfigured means no vocabulary row exists.
var ErrVocabularyNotConfigured = errors.New("catalog: pricing vocabulary not configured")

// SettingsOptions reads the admin-configured vocabulary from catalog_settings.
type SettingsOptions struct {
	pool *pgxpool.Pool
}

// NewSettingsOptions constructs the provider.
func NewSettingsOptions(pool *pgxpool.Pool) *SettingsOptions {
	return &SettingsOptions{pool: pool}
}

type vocabularySetting struct {
	Metals   []string            `json:"metals"`
	Purities map[string][]string `json:"purities"`
}

// ValidOptions implements pricing.OptionsProvider.
func (s *SettingsOptions) ValidOptions(ctx context.Context) (pricing.Vocabulary, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM catalog_settings WHERE key = $1`, vocabularySettingKey).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return pricing.Vocabulary{}, ErrVocabularyNotConfigured
	}
	if err != nil {
		return pricing.Vocabulary{}, fmt.Errorf("catalog: load vocabulary: %w", err)
	}
	return decodeVocabulary(raw)
}

func decodeVocabulary(raw []byte) (pricing.Vocabulary, error) {
	var setting vocabularySetting
	if err := json.Unmarshal(raw, &setting); err != nil {
		return pricing.Vocabulary{}, fmt.Errorf("catalog: decode vocabulary: %w", err)
	}
	for _, metal := range setting.Metals {
		if _, ok := pricing.ParseMetal(metal); !ok {
			return pricing.Vocabulary{}, fmt.Errorf("catalog: vocabulary lists unknown metal %q", metal)
		}
	}
	return pricing.Vocabulary{
		Metals:   setting.Metals,
		Purities: setting.Purities,
		Source:   pricing.SourceSettings,
	}, nil
}
