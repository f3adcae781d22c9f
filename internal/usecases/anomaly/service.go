package anomaly

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/watchdog-api/infrastructure/integrator/gemini"
	"github.com/vfg2006/watchdog-api/infrastructure/tabular"
	"github.com/vfg2006/watchdog-api/internal/config"
	"github.com/vfg2006/watchdog-api/internal/domain"
	"github.com/vfg2006/watchdog-api/pkg/utils"
)

// AgentName identifica o agente de anomalias nos eventos e nos passos
const AgentName = "Analista de Anomalias"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Service implementa a interface Analyzer sobre a fonte tabular e a
// capacidade opcional de geração de texto
type Service struct {
	cfg       *config.Config
	source    *tabular.Source
	generator gemini.TextGenerator
}

// NewService cria uma nova instância do analisador de anomalias
func NewService(cfg *config.Config, source *tabular.Source, generator gemini.TextGenerator) Analyzer {
	return &Service{
		cfg:       cfg,
		source:    source,
		generator: generator,
	}
}

// Advertisers lista as opções de anunciante extraídas das sessões
func (s *Service) Advertisers() ([]domain.Advertiser, error) {
	return s.source.Advertisers()
}

// Analyze executa a análise completa de um anunciante
func (s *Service) Analyze(ctx context.Context, advertiserID string) (*domain.AnomalyReport, error) {
	return s.analyze(ctx, advertiserID, func(domain.Event) {})
}

// Stream executa a análise emitindo o passo a passo como eventos
func (s *Service) Stream(ctx context.Context, advertiserID string) <-chan domain.Event {
	events := make(chan domain.Event, 64)

	go func() {
		defer close(events)

		emit := func(event domain.Event) {
			select {
			case events <- event:
			case <-ctx.Done():
			}
		}

		report, err := s.analyze(ctx, advertiserID, emit)
		if err != nil {
			logrus.WithError(err).Error("Erro na análise de anomalias")
			return
		}

		emit(domain.Event{
			Type:          domain.EventAnomalyReport,
			Agent:         AgentName,
			AnomalyReport: report,
		})
	}()

	return events
}

func (s *Service) analyze(ctx context.Context, advertiserID string, emit func(domain.Event)) (*domain.AnomalyReport, error) {
	advertiser, err := s.resolveAdvertiser(advertiserID)
	if err != nil {
		return nil, err
	}

	s.step(emit, fmt.Sprintf("Analisando anunciante '%s' (%s)", advertiser.Name, advertiser.ID))

	spikes, err := s.source.Spikes()
	if err != nil {
		return nil, err
	}
	missing, err := s.source.Missing()
	if err != nil {
		return nil, err
	}
	sessions, err := s.source.Sessions()
	if err != nil {
		return nil, err
	}

	spikes = filterSpikes(spikes, advertiser.ID)
	missing = filterMissing(missing, advertiser.ID)
	sessions = filterSessions(sessions, advertiser.ID)

	s.step(emit, fmt.Sprintf(
		"Datasets carregados: %d linhas de spike, %d de entrega ausente, %d de sessões",
		len(spikes), len(missing), len(sessions),
	))

	spikeTable := BuildSpikeProblems(spikes)
	missingTable := BuildMissingProblems(missing)
	health := ComputeHealthScore(distinctSpikeDays(spikes), distinctMissingDays(missing), distinctSessionDays(sessions))

	s.step(emit, fmt.Sprintf(
		"Score de saúde calculado: %d (%s) com %d dias de spike e %d dias sem entrega",
		health.Score, health.Band, health.SpikeDays, health.MissingDays,
	))

	overview := s.buildOverview(advertiser, spikes, missing, sessions, health, emit)

	report := &domain.AnomalyReport{
		AdvertiserID:       advertiser.ID,
		AdvertiserName:     advertiser.Name,
		Health:             health,
		SpikeTable:         spikeTable,
		MissingTable:       missingTable,
		IssueHistory:       MissingEventsByDay(missing),
		ImpressionsByDay:   SpikeImpressionsByDay(spikes),
		ChannelTotals:      ChannelTotals(sessions),
		Overview:           overview,
		MissingEventsTotal: overview.MissingEventsTotal,
	}

	report.MissingSummary = s.summarizeMissing(ctx, missingTable, emit)
	report.SpikeSummary = s.summarizeSpikes(ctx, spikeTable, emit)

	s.step(emit, "Análise de anomalias concluída")
	return report, nil
}

// resolveAdvertiser recua para o primeiro anunciante disponível quando o
// ID pedido é desconhecido ou vazio
func (s *Service) resolveAdvertiser(advertiserID string) (domain.Advertiser, error) {
	advertisers, err := s.source.Advertisers()
	if err != nil {
		return domain.Advertiser{}, err
	}

	if len(advertisers) == 0 {
		logrus.Warn("Nenhum anunciante encontrado nas sessões, análise seguirá vazia")
		return domain.Advertiser{}, nil
	}

	for _, adv := range advertisers {
		if adv.ID == advertiserID {
			return adv, nil
		}
	}

	if advertiserID != "" {
		logrus.WithFields(logrus.Fields{
			"advertiser_id": advertiserID,
			"fallback_id":   advertisers[0].ID,
		}).Warn("Anunciante não encontrado, usando o primeiro disponível")
	}

	return advertisers[0], nil
}

func (s *Service) buildOverview(
	advertiser domain.Advertiser,
	spikes []domain.SpikeRow,
	missing []domain.MissingRow,
	sessions []domain.SessionRow,
	health domain.HealthScore,
	emit func(domain.Event),
) domain.AnomalyOverview {
	overview := domain.AnomalyOverview{
		AdvertiserName:  advertiser.Name,
		TotalActivities: countActivities(spikes, missing),
		SpikeRowsTotal:  len(spikes),
		LastSpikeDate:   lastSpikeDate(spikes),
		LastMissingDate: lastMissingDate(missing),
	}
	for _, row := range missing {
		if row.MissingDate != nil {
			overview.MissingEventsTotal++
		}
	}

	overview.TopDrivers = s.topDrivers(spikes, sessions)
	if len(overview.TopDrivers) > 0 {
		s.step(emit, fmt.Sprintf(
			"Canal mais frequente nos dias de spike: '%s' (%d dias)",
			overview.TopDrivers[0].Channel, overview.TopDrivers[0].SpikeDays,
		))
	}

	overview.Verdict, overview.VerdictReason = verdictFor(health)
	return overview
}

// topDrivers infere o canal dominante de cada dia de spike e conta em
// quantos dias cada canal liderou, retornando os três mais frequentes
func (s *Service) topDrivers(spikes []domain.SpikeRow, sessions []domain.SessionRow) []domain.ChannelDriverCount {
	days := make(map[time.Time]bool)
	ordered := make([]time.Time, 0)
	for _, row := range spikes {
		if row.Date == nil {
			continue
		}
		day := utils.NormalizeDay(*row.Date)
		if !days[day] {
			days[day] = true
			ordered = append(ordered, day)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Before(ordered[j]) })

	counts := make(map[string]int)
	for _, day := range ordered {
		driver := InferChannelDriver(sessions, day)
		if driver.DominantChannel == "" {
			continue
		}
		counts[driver.DominantChannel]++
	}

	drivers := make([]domain.ChannelDriverCount, 0, len(counts))
	for channel, spikeDays := range counts {
		drivers = append(drivers, domain.ChannelDriverCount{Channel: channel, SpikeDays: spikeDays})
	}
	sort.Slice(drivers, func(i, j int) bool {
		if drivers[i].SpikeDays != drivers[j].SpikeDays {
			return drivers[i].SpikeDays > drivers[j].SpikeDays
		}
		return drivers[i].Channel < drivers[j].Channel
	})

	if len(drivers) > 3 {
		drivers = drivers[:3]
	}
	return drivers
}

func verdictFor(health domain.HealthScore) (verdict, reason string) {
	switch health.Band {
	case domain.BandExcellent:
		verdict = "Confiável"
	case domain.BandGood:
		verdict = "Majoritariamente confiável"
	case domain.BandFair:
		verdict = "Requer atenção"
	default:
		verdict = "Não confiável"
	}

	reason = fmt.Sprintf(
		"Score %d/100: %d dias com spike e %d dias sem entrega na janela analisada",
		health.Score, health.SpikeDays, health.MissingDays,
	)
	return verdict, reason
}

// summarizeMissing produz o resumo narrativo das lacunas de entrega,
// degradando para o template determinístico sem capacidade de geração
func (s *Service) summarizeMissing(ctx context.Context, table []domain.MissingProblem, emit func(domain.Event)) domain.AnomalySummary {
	fallback := missingFallback(table)
	if len(table) == 0 {
		return fallback
	}

	sample := table
	if len(sample) > 10 {
		sample = sample[:10]
	}
	serialized, err := json.Marshal(sample)
	if err != nil {
		return fallback
	}

	prompt := fmt.Sprintf(
		"Você é um analista de mídia. A tabela JSON abaixo lista intervalos de dias em que atividades de Floodlight não registraram eventos.\n%s\n"+
			"Responda SOMENTE com um JSON no formato {\"summary\": \"...\", \"likely_root_cause\": \"...\", \"recommendations\": [\"...\"]}, em português, sem markdown.",
		string(serialized),
	)

	summary, ok := s.generateSummary(ctx, prompt)
	if !ok {
		s.step(emit, "Geração de resumo indisponível, usando template de lacunas")
		return fallback
	}
	return summary
}

// summarizeSpikes produz o resumo narrativo dos spikes de impressões
func (s *Service) summarizeSpikes(ctx context.Context, table []domain.SpikeProblem, emit func(domain.Event)) domain.AnomalySummary {
	fallback := spikeFallback(table)
	if len(table) == 0 {
		return fallback
	}

	sample := table
	if len(sample) > 10 {
		sample = sample[:10]
	}
	serialized, err := json.Marshal(sample)
	if err != nil {
		return fallback
	}

	prompt := fmt.Sprintf(
		"Você é um analista de mídia. A tabela JSON abaixo lista dias em que atividades de Floodlight registraram picos anômalos de impressões.\n%s\n"+
			"Responda SOMENTE com um JSON no formato {\"summary\": \"...\", \"likely_root_cause\": \"...\", \"recommendations\": [\"...\"]}, em português, sem markdown.",
		string(serialized),
	)

	summary, ok := s.generateSummary(ctx, prompt)
	if !ok {
		s.step(emit, "Geração de resumo indisponível, usando template de spikes")
		return fallback
	}
	return summary
}

func (s *Service) generateSummary(ctx context.Context, prompt string) (domain.AnomalySummary, bool) {
	if s.generator == nil || !s.generator.Available() {
		return domain.AnomalySummary{}, false
	}

	text, err := s.generator.Generate(ctx, prompt, float32(s.cfg.Gemini.Temperature), int32(s.cfg.Gemini.MaxTokens))
	if err != nil {
		return domain.AnomalySummary{}, false
	}

	var summary domain.AnomalySummary
	if err := json.Unmarshal([]byte(extractJSON(text)), &summary); err != nil {
		logrus.WithError(err).Warn("Resposta de geração sem JSON válido, usando template")
		return domain.AnomalySummary{}, false
	}
	if summary.Summary == "" {
		return domain.AnomalySummary{}, false
	}
	return summary, true
}

// extractJSON recorta o trecho entre a primeira '{' e a última '}' para
// tolerar respostas com cercas de markdown ao redor do JSON
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return text
	}
	return text[start : end+1]
}

func missingFallback(table []domain.MissingProblem) domain.AnomalySummary {
	if len(table) == 0 {
		return domain.AnomalySummary{
			Summary:         "Nenhum intervalo de entrega ausente detectado na janela analisada.",
			LikelyRootCause: "Não se aplica.",
			Recommendations: []string{"Manter o monitoramento diário das atividades de Floodlight."},
		}
	}

	worst := table[0]
	return domain.AnomalySummary{
		Summary: fmt.Sprintf(
			"Foram detectados %d intervalos sem entrega. O mais longo afeta '%s' por %d dias, de %s a %s.",
			len(table), worst.ActivityName, worst.MissingDays,
			worst.StartDate.Format("2006-01-02"), worst.EndDate.Format("2006-01-02"),
		),
		LikelyRootCause: "Tag de Floodlight removida, container do GTM despublicado ou site fora do ar durante os períodos sem eventos.",
		Recommendations: []string{
			"Verificar se a tag da atividade mais afetada segue publicada no container.",
			"Confrontar os períodos sem entrega com janelas de deploy do site.",
			"Reprocessar as conversões perdidas junto à plataforma de mídia quando possível.",
		},
	}
}

func spikeFallback(table []domain.SpikeProblem) domain.AnomalySummary {
	if len(table) == 0 {
		return domain.AnomalySummary{
			Summary:         "Nenhum spike de impressões detectado na janela analisada.",
			LikelyRootCause: "Não se aplica.",
			Recommendations: []string{"Manter o monitoramento de baseline por atividade."},
		}
	}

	worst := table[0]
	return domain.AnomalySummary{
		Summary: fmt.Sprintf(
			"Foram detectados %d registros de spike. O mais recente afeta '%s' em %s com %d impressões.",
			len(table), worst.ActivityName, worst.Date.Format("2006-01-02"), worst.Impressions,
		),
		LikelyRootCause: "Disparo duplicado da tag, tráfego de bots ou campanha nova sem baseline configurada.",
		Recommendations: []string{
			"Inspecionar a implementação da tag nos dias de pico para detectar disparo duplicado.",
			"Cruzar os dias de spike com o canal dominante de tráfego para isolar a origem.",
		},
	}
}

func (s *Service) step(emit func(domain.Event), text string) {
	entry := domain.ReasoningStep{
		Timestamp: time.Now(),
		Agent:     AgentName,
		Step:      text,
	}
	logrus.WithField("agent", AgentName).Debug(text)
	emit(domain.Event{Type: domain.EventStep, Agent: AgentName, Step: &entry})
}

func filterSpikes(rows []domain.SpikeRow, advertiserID string) []domain.SpikeRow {
	filtered := make([]domain.SpikeRow, 0, len(rows))
	for _, row := range rows {
		if row.AdvertiserID == advertiserID {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

func filterMissing(rows []domain.MissingRow, advertiserID string) []domain.MissingRow {
	filtered := make([]domain.MissingRow, 0, len(rows))
	for _, row := range rows {
		if row.AdvertiserID == advertiserID {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

func filterSessions(rows []domain.SessionRow, advertiserID string) []domain.SessionRow {
	filtered := make([]domain.SessionRow, 0, len(rows))
	for _, row := range rows {
		if row.AdvertiserID == advertiserID {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

func countActivities(spikes []domain.SpikeRow, missing []domain.MissingRow) int {
	seen := make(map[string]bool)
	for _, row := range spikes {
		key := row.ActivityName
		if key == "" {
			key = row.ActivityID
		}
		if key != "" {
			seen[key] = true
		}
	}
	for _, row := range missing {
		key := row.ActivityName
		if key == "" {
			key = row.ActivityID
		}
		if key != "" {
			seen[key] = true
		}
	}
	return len(seen)
}

func distinctSpikeDays(rows []domain.SpikeRow) int {
	days := make(map[time.Time]bool)
	for _, row := range rows {
		if row.Date != nil {
			days[utils.NormalizeDay(*row.Date)] = true
		}
	}
	return len(days)
}

func distinctMissingDays(rows []domain.MissingRow) int {
	days := make(map[time.Time]bool)
	for _, row := range rows {
		if row.MissingDate != nil {
			days[utils.NormalizeDay(*row.MissingDate)] = true
		}
	}
	return len(days)
}

func distinctSessionDays(rows []domain.SessionRow) int {
	days := make(map[time.Time]bool)
	for _, row := range rows {
		if row.Date != nil {
			days[utils.NormalizeDay(*row.Date)] = true
		}
	}
	return len(days)
}

func lastSpikeDate(rows []domain.SpikeRow) *time.Time {
	var last *time.Time
	for _, row := range rows {
		if row.Date == nil {
			continue
		}
		day := utils.NormalizeDay(*row.Date)
		if last == nil || day.After(*last) {
			last = &day
		}
	}
	return last
}

func lastMissingDate(rows []domain.MissingRow) *time.Time {
	var last *time.Time
	for _, row := range rows {
		if row.MissingDate == nil {
			continue
		}
		day := utils.NormalizeDay(*row.MissingDate)
		if last == nil || day.After(*last) {
			last = &day
		}
	}
	return last
}
