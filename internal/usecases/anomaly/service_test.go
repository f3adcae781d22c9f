package anomaly

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	geminimocks "github.com/vfg2006/watchdog-api/infrastructure/integrator/gemini/mocks"
	"github.com/vfg2006/watchdog-api/infrastructure/tabular"
	"github.com/vfg2006/watchdog-api/internal/config"
	"github.com/vfg2006/watchdog-api/internal/domain"
	"go.uber.org/mock/gomock"
)

func writeDataset(t *testing.T, dir, file, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644))
}

func newTestService(t *testing.T, generator *geminimocks.MockTextGenerator) (*Service, string) {
	t.Helper()
	dir := t.TempDir()

	writeDataset(t, dir, "spikes.csv",
		"Advertiser ID,Floodlight Activity ID,Floodlight Activity Name,Date,Floodlight Impressions\n"+
			"ADV1,FL1,Compra,2026-01-03,900\n"+
			"ADV1,FL1,Compra,2026-01-05,400\n"+
			"ADV2,FL9,Outra,2026-01-03,100\n")
	writeDataset(t, dir, "missing.csv",
		"Advertiser ID,Floodlight Activity ID,Floodlight Activity Name,Missing Date\n"+
			"ADV1,FL1,Compra,2026-01-01\n"+
			"ADV1,FL1,Compra,2026-01-02\n"+
			"ADV1,FL1,Compra,2026-01-10\n")
	writeDataset(t, dir, "sessions.csv",
		"Advertiser,Advertiser ID,Date,GA4 Default Channel Group,Sessions (sampled),Floodlight Impressions (total/day)\n"+
			"Loja Um,ADV1,2026-01-03,Referral,300,900\n"+
			"Loja Um,ADV1,2026-01-03,Direct,100,900\n"+
			"Loja Um,ADV1,2026-01-05,Referral,120,400\n"+
			"Loja Dois,ADV2,2026-01-03,Direct,80,100\n")

	cfg := &config.Config{}
	cfg.Data = config.Data{
		Dir:          dir,
		SpikesFile:   "spikes.csv",
		MissingFile:  "missing.csv",
		SessionsFile: "sessions.csv",
	}
	cfg.Gemini = config.Gemini{Temperature: 0.2, MaxTokens: 350}

	service := &Service{
		cfg:       cfg,
		source:    tabular.NewSource(cfg.Data),
		generator: generator,
	}
	return service, dir
}

func TestService_Analyze(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	generator := geminimocks.NewMockTextGenerator(ctrl)
	generator.EXPECT().Available().Return(false).AnyTimes()

	service, _ := newTestService(t, generator)

	report, err := service.Analyze(context.Background(), "ADV1")

	require.NoError(t, err)
	assert.Equal(t, "ADV1", report.AdvertiserID)
	assert.Equal(t, "Loja Um", report.AdvertiserName)

	// 2 dias de spike (penalidade 6) e 3 dias sem entrega (penalidade 3)
	assert.Equal(t, 91, report.Health.Score)
	assert.Equal(t, domain.BandExcellent, report.Health.Band)

	require.Len(t, report.SpikeTable, 2)
	assert.Equal(t, 400, report.SpikeTable[0].Impressions)

	require.Len(t, report.MissingTable, 2)
	assert.Equal(t, 2, report.MissingTable[0].MissingDays)

	assert.Equal(t, 1, report.Overview.TotalActivities)
	assert.Equal(t, 3, report.Overview.MissingEventsTotal)
	require.NotEmpty(t, report.Overview.TopDrivers)
	assert.Equal(t, "Referral", report.Overview.TopDrivers[0].Channel)

	// Sem capacidade de geração os resumos vêm do template
	assert.NotEmpty(t, report.MissingSummary.Summary)
	assert.NotEmpty(t, report.SpikeSummary.Summary)
	assert.Contains(t, report.MissingSummary.Summary, "Compra")
}

func TestService_Analyze_AnuncianteDesconhecidoRecuaParaOPrimeiro(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	generator := geminimocks.NewMockTextGenerator(ctrl)
	generator.EXPECT().Available().Return(false).AnyTimes()

	service, _ := newTestService(t, generator)

	report, err := service.Analyze(context.Background(), "NAO-EXISTE")

	require.NoError(t, err)
	// Primeiro na ordenação por nome: "Loja Dois"
	assert.Equal(t, "ADV2", report.AdvertiserID)
	assert.Equal(t, "Loja Dois", report.AdvertiserName)
}

func TestService_Analyze_ResumoGeradoQuandoCapacidadeDisponivel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	generator := geminimocks.NewMockTextGenerator(ctrl)
	generator.EXPECT().Available().Return(true).AnyTimes()
	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("```json\n{\"summary\": \"Resumo gerado\", \"likely_root_cause\": \"Tag removida\", \"recommendations\": [\"Republicar o container\"]}\n```", nil).
		Times(2)

	service, _ := newTestService(t, generator)

	report, err := service.Analyze(context.Background(), "ADV1")

	require.NoError(t, err)
	assert.Equal(t, "Resumo gerado", report.MissingSummary.Summary)
	assert.Equal(t, "Tag removida", report.MissingSummary.LikelyRootCause)
	assert.Equal(t, "Resumo gerado", report.SpikeSummary.Summary)
}

func TestService_Analyze_RespostaSemJSONValidoUsaTemplate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	generator := geminimocks.NewMockTextGenerator(ctrl)
	generator.EXPECT().Available().Return(true).AnyTimes()
	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("desculpe, não consigo responder em JSON", nil).
		Times(2)

	service, _ := newTestService(t, generator)

	report, err := service.Analyze(context.Background(), "ADV1")

	require.NoError(t, err)
	assert.Contains(t, report.MissingSummary.Summary, "intervalos sem entrega")
}

func TestService_Stream(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	generator := geminimocks.NewMockTextGenerator(ctrl)
	generator.EXPECT().Available().Return(false).AnyTimes()

	service, _ := newTestService(t, generator)

	var events []domain.Event
	for event := range service.Stream(context.Background(), "ADV1") {
		events = append(events, event)
	}

	require.NotEmpty(t, events)

	last := events[len(events)-1]
	assert.Equal(t, domain.EventAnomalyReport, last.Type)
	require.NotNil(t, last.AnomalyReport)
	assert.Equal(t, "ADV1", last.AnomalyReport.AdvertiserID)

	steps := 0
	for _, event := range events {
		if event.Type == domain.EventStep {
			steps++
			assert.Equal(t, AgentName, event.Agent)
			require.NotNil(t, event.Step)
		}
	}
	assert.Greater(t, steps, 0)
}
