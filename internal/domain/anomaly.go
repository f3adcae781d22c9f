package domain

import "time"

// DateRange é um intervalo contíguo de dias. Invariante: Start <= End e
// Days = End-Start+1. Construído pelo detector de lacunas; nunca mutado.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
}

// HealthScoreBand é a faixa qualitativa do score de saúde
type HealthScoreBand string

const (
	BandExcellent HealthScoreBand = "Excellent"
	BandGood      HealthScoreBand = "Good"
	BandFair      HealthScoreBand = "Fair"
	BandPoor      HealthScoreBand = "Poor"
)

// HealthScore é o score 0-100 derivado de dias com spike e dias sem entrega.
// Recalculado por (anunciante, dataset); nunca persistido.
type HealthScore struct {
	Score       int             `json:"score"`
	Band        HealthScoreBand `json:"band"`
	SpikeDays   int             `json:"spike_days"`
	MissingDays int             `json:"missing_days"`
	WindowDays  int             `json:"days_in_window"`
}

// ChannelDriver descreve o canal dominante de um dia e seu desvio em
// relação à baseline histórica. Derivado por (anunciante, data).
type ChannelDriver struct {
	DominantChannel  string  `json:"dominant_channel"`
	DominantSessions int     `json:"dominant_sessions"`
	ZScore           float64 `json:"zscore"`
	Cause            string  `json:"cause"`
	Evidence         string  `json:"evidence"`
}

// SpikeProblem é uma linha da tabela de problemas de spike
type SpikeProblem struct {
	ProblemType  string    `json:"problem_type"`
	Date         time.Time `json:"date"`
	ActivityName string    `json:"floodlight_activity_name"`
	Impressions  int       `json:"impressions"`
}

// MissingProblem é uma linha da tabela de lacunas de entrega, uma por
// intervalo contíguo detectado para a atividade
type MissingProblem struct {
	ProblemType  string    `json:"problem_type"`
	ActivityName string    `json:"floodlight_activity_name"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	MissingDays  int       `json:"missing_days"`
}

// DayPoint é um ponto de série temporal agregado por dia, consumido
// pelas camadas de apresentação para montar gráficos
type DayPoint struct {
	Day   time.Time `json:"day"`
	Value int       `json:"value"`
}

// ChannelDriverCount acumula em quantos dias de spike um canal foi dominante
type ChannelDriverCount struct {
	Channel   string `json:"channel"`
	SpikeDays int    `json:"spike_days"`
}

// AnomalyOverview é o resumo geral da análise de anomalias de um anunciante
type AnomalyOverview struct {
	AdvertiserName     string               `json:"adv_name"`
	TotalActivities    int                  `json:"total_activities"`
	MissingEventsTotal int                  `json:"missing_events_total"`
	SpikeRowsTotal     int                  `json:"spike_rows_total"`
	TopDrivers         []ChannelDriverCount `json:"top_drivers"`
	Verdict            string               `json:"verdict"`
	VerdictReason      string               `json:"verdict_reason"`
	LastMissingDate    *time.Time           `json:"last_missing_date,omitempty"`
	LastSpikeDate      *time.Time           `json:"last_spike_date,omitempty"`
}

// AnomalySummary é o resumo narrativo (gerado ou de template) de uma
// categoria de problema (lacunas ou spikes)
type AnomalySummary struct {
	Summary         string   `json:"summary"`
	LikelyRootCause string   `json:"likely_root_cause"`
	Recommendations []string `json:"recommendations"`
}

// AnomalyReport é o resultado completo da análise de um anunciante
type AnomalyReport struct {
	AdvertiserID       string           `json:"adv_id"`
	AdvertiserName     string           `json:"adv_name"`
	Health             HealthScore      `json:"health"`
	SpikeTable         []SpikeProblem   `json:"spike_table"`
	MissingTable       []MissingProblem `json:"missing_table"`
	IssueHistory       []DayPoint       `json:"issue_history"`
	ImpressionsByDay   []DayPoint       `json:"impressions_by_day"`
	ChannelTotals      map[string]int   `json:"channel_totals,omitempty"`
	Overview           AnomalyOverview  `json:"overall_summary"`
	MissingSummary     AnomalySummary   `json:"missing_summary"`
	SpikeSummary       AnomalySummary   `json:"spike_summary"`
	MissingEventsTotal int              `json:"missing_events_total"`
}
