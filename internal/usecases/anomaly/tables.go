package anomaly

import (
	"sort"
	"time"

	"github.com/vfg2006/watchdog-api/internal/domain"
	"github.com/vfg2006/watchdog-api/pkg/utils"
)

// BuildSpikeProblems monta a tabela de problemas de spike a partir das
// linhas brutas. Linhas sem data ou sem contagem de impressões são
// descartadas em silêncio; a tabela resultante pode ser vazia, nunca nula.
// Ordenação: data decrescente, depois impressões decrescentes, estável.
func BuildSpikeProblems(rows []domain.SpikeRow) []domain.SpikeProblem {
	problems := make([]domain.SpikeProblem, 0, len(rows))
	for _, row := range rows {
		if row.Date == nil || row.Impressions == nil {
			continue
		}
		problems = append(problems, domain.SpikeProblem{
			ProblemType:  "Spike de impressões",
			Date:         utils.NormalizeDay(*row.Date),
			ActivityName: row.ActivityName,
			Impressions:  *row.Impressions,
		})
	}

	sort.SliceStable(problems, func(i, j int) bool {
		if !problems[i].Date.Equal(problems[j].Date) {
			return problems[i].Date.After(problems[j].Date)
		}
		return problems[i].Impressions > problems[j].Impressions
	})

	return problems
}

// BuildMissingProblems agrupa as linhas de dias sem entrega por atividade,
// roda o detector de lacunas por grupo e emite uma linha por intervalo
// contíguo. Ordenação: dias ausentes decrescentes, depois início decrescente.
func BuildMissingProblems(rows []domain.MissingRow) []domain.MissingProblem {
	type group struct {
		name  string
		dates []*time.Time
	}
	groups := make([]*group, 0)
	index := make(map[string]*group)
	for _, row := range rows {
		if row.MissingDate == nil {
			continue
		}
		key := row.ActivityName
		if key == "" {
			key = row.ActivityID
		}
		g, ok := index[key]
		if !ok {
			g = &group{name: key}
			index[key] = g
			groups = append(groups, g)
		}
		g.dates = append(g.dates, row.MissingDate)
	}

	problems := make([]domain.MissingProblem, 0)
	for _, g := range groups {
		for _, r := range ContinuousDateRanges(g.dates) {
			problems = append(problems, domain.MissingProblem{
				ProblemType:  "Dias sem entrega",
				ActivityName: g.name,
				StartDate:    r.Start,
				EndDate:      r.End,
				MissingDays:  r.Days,
			})
		}
	}

	sort.SliceStable(problems, func(i, j int) bool {
		if problems[i].MissingDays != problems[j].MissingDays {
			return problems[i].MissingDays > problems[j].MissingDays
		}
		return problems[i].StartDate.After(problems[j].StartDate)
	})

	return problems
}

// SpikeImpressionsByDay agrega as impressões de spike por dia, em ordem
// cronológica ascendente, para alimentar séries temporais
func SpikeImpressionsByDay(rows []domain.SpikeRow) []domain.DayPoint {
	perDay := make(map[time.Time]int)
	for _, row := range rows {
		if row.Date == nil || row.Impressions == nil {
			continue
		}
		perDay[utils.NormalizeDay(*row.Date)] += *row.Impressions
	}
	return sortedDayPoints(perDay)
}

// MissingEventsByDay conta os eventos de entrega ausente por dia
func MissingEventsByDay(rows []domain.MissingRow) []domain.DayPoint {
	perDay := make(map[time.Time]int)
	for _, row := range rows {
		if row.MissingDate == nil {
			continue
		}
		perDay[utils.NormalizeDay(*row.MissingDate)]++
	}
	return sortedDayPoints(perDay)
}

// SessionImpressionsByDay agrega o total diário de impressões reportado
// junto das sessões do GA4
func SessionImpressionsByDay(rows []domain.SessionRow) []domain.DayPoint {
	perDay := make(map[time.Time]int)
	for _, row := range rows {
		if row.Date == nil || row.TotalImpressions == nil {
			continue
		}
		day := utils.NormalizeDay(*row.Date)
		// O total diário se repete em todas as linhas do dia; manter o maior
		if *row.TotalImpressions > perDay[day] {
			perDay[day] = *row.TotalImpressions
		}
	}
	return sortedDayPoints(perDay)
}

// ChannelTotals soma as sessões por canal sobre todo o histórico
func ChannelTotals(rows []domain.SessionRow) map[string]int {
	totals := make(map[string]int)
	for _, row := range rows {
		if row.Sessions == nil || row.Channel == "" {
			continue
		}
		totals[row.Channel] += *row.Sessions
	}
	return totals
}

func sortedDayPoints(perDay map[time.Time]int) []domain.DayPoint {
	points := make([]domain.DayPoint, 0, len(perDay))
	for day, value := range perDay {
		points = append(points, domain.DayPoint{Day: day, Value: value})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Day.Before(points[j].Day) })
	return points
}
