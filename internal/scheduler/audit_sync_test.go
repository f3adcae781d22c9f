package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	geminimocks "github.com/vfg2006/watchdog-api/infrastructure/integrator/gemini/mocks"
	"github.com/vfg2006/watchdog-api/infrastructure/repository/mocks"
	"github.com/vfg2006/watchdog-api/infrastructure/tabular"
	"github.com/vfg2006/watchdog-api/internal/config"
	"github.com/vfg2006/watchdog-api/internal/domain"
	"github.com/vfg2006/watchdog-api/internal/usecases/auditing"
	"github.com/vfg2006/watchdog-api/internal/usecases/narrating"
	"github.com/vfg2006/watchdog-api/pkg/log"
	"go.uber.org/mock/gomock"
)

func TestMain(m *testing.M) {
	log.SetupTestLogger()
	os.Exit(m.Run())
}

func newSyncServiceForTest(t *testing.T, ctrl *gomock.Controller, runRepo *mocks.MockAuditRunRepository) *AuditSyncService {
	t.Helper()
	dir := t.TempDir()

	// Um line item sem pixel garante ao menos um finding por ciclo
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dv360.csv"), []byte(
		"Advertiser_ID,Line_Item_ID,Floodlight_Activity_ID,GTM_Container_Link,Counting_Method,Last_Conversion_Date,Daily_Spend,Cookie_Consented_Count,Cookie_Unconsented_Count,Clicks_Last_24h\n"+
			"ADV1,LI-1,,https://tagmanager.google.com/#/container/GTM-AAA,,,100.0,,,\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ga4.csv"), []byte(
		"Property_ID,Stream_ID,Sample_URL_Query,Data_Retention_Months,Google_Signals_Enabled,Enhanced_Measurement_Config,Session_Campaign_Name,Referral_Exclusion_List,Consent_Mode_Status,Cost_Data_Import_Status,Sessions_Last_24h\n"+
			"P-1,S-1,?page=home,26,true,\"scrolls,outbound_clicks,site_search,video_engagement\",summer_sale,\"paypal.com\",GRANTED,enabled,10\n"), 0o644))

	cfg := &config.Config{}
	cfg.Data = config.Data{
		Dir:             dir,
		LineItemsFile:   "dv360.csv",
		TagsFile:        "gtm.csv",
		PropertiesFile:  "ga4.csv",
		WebsiteScanFile: "website.csv",
	}
	cfg.Audit = config.Audit{
		StalePixelDays:                7,
		DiscrepancyThresholdPercent:   25.0,
		MinRetentionMonths:            14,
		EnhancedMeasurementMinMissing: 2,
		KeyGatewayDomain:              "paypal.com",
		BlockedStatusSentinel:         "403 BLOCKED",
		MinBatchSize:                  20,
		MaxBatchSize:                  30,
	}
	cfg.AuditSync = config.AuditSync{
		CronSchedule:  "0 3 * * *",
		Enabled:       true,
		RetentionDays: 90,
	}
	cfg.Gemini = config.Gemini{Temperature: 0.2, MaxTokens: 350}

	generator := geminimocks.NewMockTextGenerator(ctrl)
	generator.EXPECT().Available().Return(false).AnyTimes()

	source := tabular.NewSource(cfg.Data)
	return NewAuditSyncService(
		cfg,
		source,
		auditing.NewTechnician(cfg, source),
		auditing.NewAuditor(cfg, source),
		narrating.NewService(cfg, generator),
		runRepo,
	)
}

func TestAuditSyncService_SyncAudits(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	runRepo := mocks.NewMockAuditRunRepository(ctrl)

	var persisted []*domain.AuditRun
	runRepo.EXPECT().
		SaveOrUpdate(gomock.Any()).
		DoAndReturn(func(run *domain.AuditRun) error {
			persisted = append(persisted, run)
			return nil
		}).
		Times(2)
	runRepo.EXPECT().DeleteOlderThan(90).Return(int64(3), nil)

	service := newSyncServiceForTest(t, ctrl, runRepo)

	service.syncAudits()

	// Uma execução por agente, na ordem técnica -> auditoria
	require.Len(t, persisted, 2)
	assert.Equal(t, auditing.TechnicianAgent, persisted[0].Agent)
	assert.Equal(t, auditing.AuditorAgent, persisted[1].Agent)
	assert.NotEmpty(t, persisted[0].Findings)

	status := service.GetStatus()
	assert.Equal(t, false, status["running"])
	assert.NotNil(t, status["last_completed_at"])
}

func TestAuditSyncService_SemRepositorioNaoPersiste(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service := newSyncServiceForTest(t, ctrl, nil)
	service.runRepository = nil

	// Sem repositório a auditoria roda e termina sem persistir
	service.syncAudits()

	status := service.GetStatus()
	assert.Equal(t, false, status["running"])
}

func TestAuditSyncService_TriggerManualSync_JaEmAndamento(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service := newSyncServiceForTest(t, ctrl, nil)
	service.runRepository = nil

	service.syncMutex.Lock()
	service.syncRunning = true
	service.syncMutex.Unlock()

	err := service.TriggerManualSync()

	assert.Error(t, err)
}

func TestAuditSyncService_Start_DesabilitadoNaoAgenda(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service := newSyncServiceForTest(t, ctrl, nil)
	service.cfg.AuditSync.Enabled = false

	err := service.Start(context.Background())

	assert.NoError(t, err)
}
