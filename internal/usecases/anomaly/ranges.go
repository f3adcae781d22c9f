// Package anomaly implementa a análise de anomalias de entrega de
// Floodlight: detecção de lacunas contíguas, score de saúde, inferência
// de canal dominante e as tabelas de problemas consumidas pelas telas.
package anomaly

import (
	"sort"
	"time"

	"github.com/vfg2006/watchdog-api/internal/domain"
	"github.com/vfg2006/watchdog-api/pkg/utils"
)

// ContinuousDateRanges recebe uma coleção desordenada de datas (com
// possíveis nulos e duplicatas) e devolve o conjunto mínimo de intervalos
// contíguos máximos cobrindo exatamente os dias distintos válidos.
// Resultado em ordem cronológica ascendente por data de início.
func ContinuousDateRanges(dates []*time.Time) []domain.DateRange {
	seen := make(map[time.Time]bool)
	days := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		if d == nil {
			continue
		}
		day := utils.NormalizeDay(*d)
		if seen[day] {
			continue
		}
		seen[day] = true
		days = append(days, day)
	}

	if len(days) == 0 {
		return []domain.DateRange{}
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	ranges := make([]domain.DateRange, 0)
	start := days[0]
	prev := days[0]
	for _, day := range days[1:] {
		// Lacuna maior que um dia fecha o intervalo aberto
		if day.Sub(prev) > 24*time.Hour {
			ranges = append(ranges, newRange(start, prev))
			start = day
		}
		prev = day
	}
	ranges = append(ranges, newRange(start, prev))

	return ranges
}

func newRange(start, end time.Time) domain.DateRange {
	return domain.DateRange{
		Start: start,
		End:   end,
		Days:  int(end.Sub(start).Hours()/24) + 1,
	}
}
