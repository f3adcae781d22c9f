package anomaly

import (
	"github.com/vfg2006/watchdog-api/internal/domain"
	"github.com/vfg2006/watchdog-api/pkg/utils"
)

// Tetos das penalidades: nenhuma categoria isolada zera o score, mas as
// duas juntas podem (40 + 60 = 100)
const (
	maxSpikePenalty   = 40
	maxMissingPenalty = 60
)

// ComputeHealthScore converte as contagens de dias com spike e dias sem
// entrega em um score 0-100 com faixa qualitativa. Função pura.
func ComputeHealthScore(spikeDays, missingDays, windowDays int) domain.HealthScore {
	spikePenalty := spikeDays * 3
	if spikePenalty > maxSpikePenalty {
		spikePenalty = maxSpikePenalty
	}

	missingPenalty := missingDays
	if missingPenalty > maxMissingPenalty {
		missingPenalty = maxMissingPenalty
	}

	score := utils.Clamp(100-spikePenalty-missingPenalty, 0, 100)

	return domain.HealthScore{
		Score:       score,
		Band:        bandFor(score),
		SpikeDays:   spikeDays,
		MissingDays: missingDays,
		WindowDays:  windowDays,
	}
}

func bandFor(score int) domain.HealthScoreBand {
	switch {
	case score >= 90:
		return domain.BandExcellent
	case score >= 75:
		return domain.BandGood
	case score >= 55:
		return domain.BandFair
	}
	return domain.BandPoor
}
