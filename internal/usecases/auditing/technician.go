package auditing

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vfg2006/watchdog-api/infrastructure/tabular"
	"github.com/vfg2006/watchdog-api/internal/config"
	"github.com/vfg2006/watchdog-api/internal/domain"
	"github.com/vfg2006/watchdog-api/pkg/utils"
)

// TechnicianAgent identifica o agente técnico nos eventos e nos findings
const TechnicianAgent = "Técnico de Implementação"

// Technician varre os snapshots de DV360, GTM e dos sites em busca de
// problemas de implementação: pixels ausentes ou mortos, consentimento
// bloqueando medições, divergências entre sistemas e chamadas bloqueadas
type Technician struct {
	cfg    *config.Config
	source *tabular.Source

	// Relógio injetável para as verificações sensíveis a "agora"
	now func() time.Time
}

// NewTechnician cria o agente técnico
func NewTechnician(cfg *config.Config, source *tabular.Source) *Technician {
	return &Technician{
		cfg:    cfg,
		source: source,
		now:    time.Now,
	}
}

// Run executa a bateria completa do agente técnico
func (t *Technician) Run(ctx context.Context) (*domain.AuditRun, error) {
	return t.run(ctx, func(domain.Event) {})
}

// Stream executa a bateria emitindo o passo a passo como eventos
func (t *Technician) Stream(ctx context.Context) <-chan domain.Event {
	return streamRun(ctx, TechnicianAgent, t.run)
}

func (t *Technician) run(ctx context.Context, emit func(domain.Event)) (*domain.AuditRun, error) {
	run := domain.NewAuditRun(uuid.NewString(), TechnicianAgent)

	lineItems, err := t.source.LineItems()
	if err != nil {
		return nil, err
	}
	tags, err := t.source.Tags()
	if err != nil {
		return nil, err
	}
	properties, err := t.source.Properties()
	if err != nil {
		return nil, err
	}
	scans, err := t.source.WebsiteScans()
	if err != nil {
		return nil, err
	}

	emitStep(run, emit, fmt.Sprintf(
		"Snapshots carregados: %d line items, %d tags, %d propriedades, %d URLs varridas",
		len(lineItems), len(tags), len(properties), len(scans),
	))

	totalSessions := 0
	for _, property := range properties {
		if property.SessionsLast24h != nil {
			totalSessions += *property.SessionsLast24h
		}
	}

	batches := Partition(len(lineItems), t.cfg.Audit.MinBatchSize, t.cfg.Audit.MaxBatchSize, t.now().UnixNano())
	for _, batch := range batches {
		if ctx.Err() != nil {
			return run, ctx.Err()
		}

		emit(domain.Event{
			Type:         domain.EventBatchStart,
			Agent:        TechnicianAgent,
			BatchID:      batch.ID,
			TotalBatches: len(batches),
			BatchSize:    batch.End - batch.Start,
		})

		rows := lineItems[batch.Start:batch.End]
		t.checkPixelExistence(run, emit, rows)
		t.checkPixelLiveness(run, emit, rows)
		t.checkConsentBlocking(run, emit, rows)
		t.checkIDLinkage(run, emit, rows, tags)
		t.checkCountingMethod(run, emit, rows, tags)
		t.checkDiscrepancy(run, emit, rows, totalSessions)

		emit(domain.Event{
			Type:         domain.EventBatchComplete,
			Agent:        TechnicianAgent,
			BatchID:      batch.ID,
			TotalBatches: len(batches),
			BatchSize:    batch.End - batch.Start,
		})
	}

	t.checkConsentSettings(run, emit, tags)
	t.checkNetworkBlocked(run, emit, scans)

	run.Complete()
	emitStep(run, emit, fmt.Sprintf(
		"Bateria técnica concluída: %d findings (%d P0, %d P1, %d P2)",
		len(run.Findings),
		run.CountByPriority(domain.PriorityP0),
		run.CountByPriority(domain.PriorityP1),
		run.CountByPriority(domain.PriorityP2),
	))
	return run, nil
}

// checkPixelExistence sinaliza line items ativos sem atividade de
// Floodlight vinculada: gasto sem nenhuma medição de conversão
func (t *Technician) checkPixelExistence(run *domain.AuditRun, emit func(domain.Event), rows []domain.LineItemRow) {
	for _, row := range rows {
		if row.ActivityID != "" || row.DailySpend <= 0 {
			continue
		}
		addFinding(run, emit, domain.Finding{
			Check:        "pixel_existence",
			Priority:     domain.PriorityP0,
			Issue:        "Pixel Floodlight ausente em line item ativo",
			AdvertiserID: row.AdvertiserID,
			LineItemID:   row.LineItemID,
			TechnicalProof: fmt.Sprintf(
				"Floodlight_Activity_ID vazio com Daily_Spend=%.2f", row.DailySpend,
			),
			Reasoning: []string{
				fmt.Sprintf("O line item %s gasta $%.2f por dia.", row.LineItemID, row.DailySpend),
				"Nenhuma atividade de Floodlight está vinculada, então nenhuma conversão é medida.",
				"Todo o investimento desse line item roda às cegas.",
			},
			Recommendation: "Vincular uma atividade de Floodlight ao line item ou pausá-lo até a medição existir.",
			DailySpend:     row.DailySpend,
		})
	}
}

// checkPixelLiveness sinaliza pixels sem conversão recente
func (t *Technician) checkPixelLiveness(run *domain.AuditRun, emit func(domain.Event), rows []domain.LineItemRow) {
	staleAfter := time.Duration(t.cfg.Audit.StalePixelDays) * 24 * time.Hour
	now := t.now()

	for _, row := range rows {
		last := utils.ParseDate(row.LastConversionDate)
		if last == nil {
			continue
		}
		age := now.Sub(*last)
		if age <= staleAfter {
			continue
		}
		daysSince := int(age.Hours() / 24)
		addFinding(run, emit, domain.Finding{
			Check:        "pixel_liveness",
			Priority:     domain.PriorityP0,
			Issue:        "Pixel Floodlight sem conversões recentes",
			AdvertiserID: row.AdvertiserID,
			LineItemID:   row.LineItemID,
			ActivityID:   row.ActivityID,
			TechnicalProof: fmt.Sprintf(
				"Last_Conversion_Date='%s' (%d dias atrás, limite %d)",
				row.LastConversionDate, daysSince, t.cfg.Audit.StalePixelDays,
			),
			Reasoning: []string{
				fmt.Sprintf("A última conversão registrada foi em %s, há %d dias.", row.LastConversionDate, daysSince),
				"Um pixel saudável em line item ativo converte com frequência muito maior.",
				"O pixel provavelmente foi removido do site ou está quebrado.",
			},
			Recommendation: "Validar o disparo do pixel no site e republicar a tag se necessário.",
			DailySpend:     row.DailySpend,
		})
	}
}

// checkConsentBlocking sinaliza linhas em que os dois contadores de
// consentimento estão zerados: nenhum usuário medido, consentido ou não
func (t *Technician) checkConsentBlocking(run *domain.AuditRun, emit func(domain.Event), rows []domain.LineItemRow) {
	for _, row := range rows {
		if row.CookieConsented == nil || row.CookieUnconsented == nil {
			continue
		}
		if *row.CookieConsented != 0 || *row.CookieUnconsented != 0 {
			continue
		}
		addFinding(run, emit, domain.Finding{
			Check:          "consent_blocking",
			Priority:       domain.PriorityP0,
			Issue:          "Consentimento bloqueando 100% das medições",
			AdvertiserID:   row.AdvertiserID,
			LineItemID:     row.LineItemID,
			ActivityID:     row.ActivityID,
			TechnicalProof: "Cookie_Consented_Count=0 e Cookie_Unconsented_Count=0",
			Reasoning: []string{
				"Os contadores de usuários consentidos e não consentidos estão ambos em zero.",
				"Com tráfego real, ao menos um dos dois deveria ser positivo.",
				"A configuração de consentimento está descartando todos os eventos antes da medição.",
			},
			Recommendation: "Revisar a integração de consent mode: o banner provavelmente nunca libera os eventos.",
			DailySpend:     row.DailySpend,
		})
	}
}

// checkIDLinkage confronta o advertiser configurado na tag do GTM com o
// advertiser dono do line item para o mesmo container e atividade
func (t *Technician) checkIDLinkage(run *domain.AuditRun, emit func(domain.Event), rows []domain.LineItemRow, tags []domain.TagRow) {
	for _, row := range rows {
		if row.ActivityID == "" {
			continue
		}
		for _, tag := range tags {
			if tag.LinkedActivityID != row.ActivityID {
				continue
			}
			if tag.ContainerID == "" || !strings.Contains(row.GTMContainerLink, tag.ContainerID) {
				continue
			}
			if tag.AdvertiserIDConfig == "" || tag.AdvertiserIDConfig == row.AdvertiserID {
				continue
			}
			addFinding(run, emit, domain.Finding{
				Check:        "id_linkage",
				Priority:     domain.PriorityP1,
				Issue:        "Advertiser da tag diverge do dono do line item",
				AdvertiserID: row.AdvertiserID,
				LineItemID:   row.LineItemID,
				ActivityID:   row.ActivityID,
				TagID:        tag.TagID,
				ContainerID:  tag.ContainerID,
				TechnicalProof: fmt.Sprintf(
					"Advertiser_ID_Config='%s' na tag %s, esperado '%s'",
					tag.AdvertiserIDConfig, tag.TagID, row.AdvertiserID,
				),
				Reasoning: []string{
					fmt.Sprintf("A tag %s do container %s aponta para o advertiser %s.", tag.TagID, tag.ContainerID, tag.AdvertiserIDConfig),
					fmt.Sprintf("O line item %s pertence ao advertiser %s.", row.LineItemID, row.AdvertiserID),
					"As conversões estão sendo creditadas à conta errada.",
				},
				Recommendation: "Corrigir o advertiser ID configurado na tag do GTM.",
				DailySpend:     row.DailySpend,
			})
		}
	}
}

// checkCountingMethod confronta o método de contagem configurado nos dois
// sistemas para a mesma atividade
func (t *Technician) checkCountingMethod(run *domain.AuditRun, emit func(domain.Event), rows []domain.LineItemRow, tags []domain.TagRow) {
	for _, row := range rows {
		if row.ActivityID == "" || row.CountingMethod == "" {
			continue
		}
		for _, tag := range tags {
			if tag.LinkedActivityID != row.ActivityID || tag.CountingMethod == "" {
				continue
			}
			if strings.EqualFold(tag.CountingMethod, row.CountingMethod) {
				continue
			}
			addFinding(run, emit, domain.Finding{
				Check:        "counting_method",
				Priority:     domain.PriorityP1,
				Issue:        "Método de contagem divergente entre DV360 e GTM",
				AdvertiserID: row.AdvertiserID,
				LineItemID:   row.LineItemID,
				ActivityID:   row.ActivityID,
				TagID:        tag.TagID,
				TechnicalProof: fmt.Sprintf(
					"DV360 Counting_Method='%s' vs GTM Configured_Counting_Method='%s'",
					row.CountingMethod, tag.CountingMethod,
				),
				Reasoning: []string{
					fmt.Sprintf("O DV360 espera contagem '%s' para a atividade %s.", row.CountingMethod, row.ActivityID),
					fmt.Sprintf("A tag %s do GTM está configurada como '%s'.", tag.TagID, tag.CountingMethod),
					"Os totais de conversão dos dois sistemas nunca vão bater.",
				},
				Recommendation: "Alinhar o método de contagem da tag com o configurado na atividade.",
				DailySpend:     row.DailySpend,
			})
		}
	}
}

// checkDiscrepancy compara os cliques agregados do lote com as sessões
// das últimas 24h reportadas pelas propriedades
func (t *Technician) checkDiscrepancy(run *domain.AuditRun, emit func(domain.Event), rows []domain.LineItemRow, totalSessions int) {
	totalClicks := 0
	for _, row := range rows {
		if row.ClicksLast24h != nil {
			totalClicks += *row.ClicksLast24h
		}
	}
	if totalClicks == 0 {
		return
	}

	discrepancy := math.Abs(float64(totalClicks-totalSessions)) / float64(totalClicks) * 100
	if discrepancy <= t.cfg.Audit.DiscrepancyThresholdPercent {
		return
	}

	addFinding(run, emit, domain.Finding{
		Check:    "cross_system_discrepancy",
		Priority: domain.PriorityP1,
		Issue:    "Divergência entre cliques da mídia e sessões do GA4",
		TechnicalProof: fmt.Sprintf(
			"%d cliques nas últimas 24h contra %d sessões (divergência %.1f%%, limite %.1f%%)",
			totalClicks, totalSessions, discrepancy, t.cfg.Audit.DiscrepancyThresholdPercent,
		),
		Reasoning: []string{
			fmt.Sprintf("O lote somou %d cliques nas últimas 24 horas.", totalClicks),
			fmt.Sprintf("O GA4 registrou %d sessões no mesmo período.", totalSessions),
			fmt.Sprintf("A divergência de %.1f%% ultrapassa o limite tolerado.", discrepancy),
		},
		Recommendation:     "Investigar perda de parâmetros de campanha, bloqueio de tags ou tráfego inválido.",
		DiscrepancyPercent: utils.RoundWithTwoDecimalPlace(discrepancy),
	})
}

// checkConsentSettings sinaliza tags do GTM sem configuração de consentimento
func (t *Technician) checkConsentSettings(run *domain.AuditRun, emit func(domain.Event), tags []domain.TagRow) {
	for _, tag := range tags {
		if tag.ConsentSettings != "" {
			continue
		}
		addFinding(run, emit, domain.Finding{
			Check:          "consent_settings",
			Priority:       domain.PriorityP1,
			Issue:          "Tag do GTM sem configuração de consentimento",
			TagID:          tag.TagID,
			ContainerID:    tag.ContainerID,
			ActivityID:     tag.LinkedActivityID,
			TechnicalProof: fmt.Sprintf("Consent_Settings vazio na tag %s", tag.TagID),
			Reasoning: []string{
				fmt.Sprintf("A tag %s do container %s não declara configuração de consentimento.", tag.TagID, tag.ContainerID),
				"Sem essa configuração o comportamento sob consent mode é indefinido.",
			},
			Recommendation: "Declarar as configurações de consentimento exigidas na tag.",
		})
	}
}

// checkNetworkBlocked sinaliza URLs cuja chamada de medição foi bloqueada
func (t *Technician) checkNetworkBlocked(run *domain.AuditRun, emit func(domain.Event), scans []domain.ScanRow) {
	for _, scan := range scans {
		if scan.NetworkCallStatus != t.cfg.Audit.BlockedStatusSentinel {
			continue
		}
		addFinding(run, emit, domain.Finding{
			Check:          "network_blocked",
			Priority:       domain.PriorityP0,
			Issue:          "Chamada de medição bloqueada pelo site",
			URL:            scan.URL,
			TechnicalProof: fmt.Sprintf("Network_Call_Status='%s' em %s", scan.NetworkCallStatus, scan.URL),
			Reasoning: []string{
				fmt.Sprintf("A varredura de %s registrou o status '%s' na chamada de medição.", scan.URL, scan.NetworkCallStatus),
				"Nenhum evento dessa página chega às plataformas de medição.",
			},
			Recommendation: "Revisar CSP, firewall ou bloqueadores que estejam barrando a chamada.",
		})
	}
}
