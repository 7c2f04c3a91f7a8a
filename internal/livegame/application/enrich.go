package application

import (
	"context"

	"go.uber.org/zap"

	"riftcoach/internal/livegame/domain"
	"riftcoach/internal/observability/metrics"
)

// enrich attaches icon URLs. A failed lookup leaves that one URL nil.
func (a *Aggregator) enrich(ctx context.Context, snap *domain.Snapshot, entry *domain.RosterEntry, spells *domain.SummonerSpells) {
	ctx, cancel := context.WithTimeout(ctx, a.enrichTimeout)
	defer cancel()

	if snap.Player != nil && entry != nil {
		snap.Player.ChampionIconURL = a.lookup(ctx, "champion", func() (string, error) {
			return a.icons.ChampionIconURL(ctx, entry.ChampionName, entry.RawChampionName)
		})
	}

	for i, item := range snap.Equipment {
		if item == nil {
			continue
		}
		enriched := *item
		id := item.ID
		enriched.IconURL = a.lookup(ctx, "item", func() (string, error) {
			return a.icons.ItemIconURL(ctx, id)
		})
		snap.Equipment[i] = &enriched
	}

	if spells != nil {
		if snap.Spells.One != nil && spells.One != nil {
			snap.Spells.One.IconURL = a.lookup(ctx, "spell", func() (string, error) {
				return a.icons.SpellIconURL(ctx, spells.One.DisplayName, spells.One.RawDisplayName)
			})
		}
		if snap.Spells.Two != nil && spells.Two != nil {
			snap.Spells.Two.IconURL = a.lookup(ctx, "spell", func() (string, error) {
				return a.icons.SpellIconURL(ctx, spells.Two.DisplayName, spells.Two.RawDisplayName)
			})
		}
	}

	if snap.Runes != nil && snap.Runes.KeystoneID > 0 {
		id := snap.Runes.KeystoneID
		snap.Runes.KeystoneIconURL = a.lookup(ctx, "rune", func() (string, error) {
			return a.icons.RuneIconURL(ctx, id)
		})
	}
}

func (a *Aggregator) lookup(ctx context.Context, kind string, fn func() (string, error)) *string {
	if ctx.Err() != nil {
		metrics.IncEnrichFailure(kind)
		return nil
	}
	value, err := fn()
	if err != nil || value == "" {
		a.logger.Debug("icon lookup failed", zap.String("kind", kind), zap.Error(err))
		metrics.IncEnrichFailure(kind)
		return nil
	}
	return &value
}
