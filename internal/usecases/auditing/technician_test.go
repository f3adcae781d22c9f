package auditing

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/watchdog-api/infrastructure/tabular"
	"github.com/vfg2006/watchdog-api/internal/config"
	"github.com/vfg2006/watchdog-api/internal/domain"
)

func testAuditConfig(dir string) *config.Config {
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
	return cfg
}

func writeDataset(t *testing.T, dir, file, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644))
}

const dv360Header = "Advertiser_ID,Line_Item_ID,Floodlight_Activity_ID,GTM_Container_Link,Counting_Method,Last_Conversion_Date,Daily_Spend,Cookie_Consented_Count,Cookie_Unconsented_Count,Clicks_Last_24h\n"

const gtmHeader = "Tag_ID,Container_ID,Linked_Floodlight_ID,Advertiser_ID_Config,Configured_Counting_Method,Consent_Settings\n"

const ga4Header = "Property_ID,Stream_ID,Sample_URL_Query,Data_Retention_Months,Google_Signals_Enabled,Enhanced_Measurement_Config,Session_Campaign_Name,Referral_Exclusion_List,Consent_Mode_Status,Cost_Data_Import_Status,Sessions_Last_24h\n"

const websiteHeader = "URL,GTM_Container_Found,Network_Call_Status\n"

const healthyGA4Row = "P-OK,S-OK,?page=home,26,true,\"scrolls,outbound_clicks,site_search,video_engagement\",summer_sale,\"paypal.com,stripe.com\",GRANTED,enabled,10\n"

func newTechnicianForTest(t *testing.T, dv360, gtm, ga4, website string) *Technician {
	t.Helper()
	dir := t.TempDir()

	writeDataset(t, dir, "dv360.csv", dv360)
	writeDataset(t, dir, "gtm.csv", gtm)
	writeDataset(t, dir, "ga4.csv", ga4)
	writeDataset(t, dir, "website.csv", website)

	cfg := testAuditConfig(dir)
	technician := NewTechnician(cfg, tabular.NewSource(cfg.Data))
	technician.now = func() time.Time { return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC) }
	return technician
}

func findingsByCheck(run *domain.AuditRun, check string) []domain.Finding {
	matched := make([]domain.Finding, 0)
	for _, finding := range run.Findings {
		if finding.Check == check {
			matched = append(matched, finding)
		}
	}
	return matched
}

func TestTechnician_Run(t *testing.T) {
	dv360 := dv360Header +
		// Pixel ausente em line item ativo
		"ADV1,LI-1,,https://tagmanager.google.com/#/container/GTM-AAA,,,100.0,,,\n" +
		// Pixel morto + consentimento zerado + tag com advertiser e contagem divergentes
		"ADV1,LI-2,FL-9,https://tagmanager.google.com/#/container/GTM-AAA,Standard,2025-12-01,50.0,0,0,120\n"
	gtm := gtmHeader +
		"TAG-1,GTM-AAA,FL-9,ADV9,Transactions,\n"
	ga4 := ga4Header + healthyGA4Row
	website := websiteHeader +
		"https://loja.com/checkout,yes,403 BLOCKED\n" +
		"https://loja.com/,yes,200 OK\n"

	technician := newTechnicianForTest(t, dv360, gtm, ga4, website)

	run, err := technician.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, TechnicianAgent, run.Agent)
	assert.False(t, run.CompletedAt.IsZero())

	// Pixel ausente referencia o gasto do line item
	existence := findingsByCheck(run, "pixel_existence")
	require.Len(t, existence, 1)
	assert.Equal(t, domain.PriorityP0, existence[0].Priority)
	assert.Equal(t, "CRITICAL", existence[0].PriorityLabel)
	assert.Equal(t, "LI-1", existence[0].LineItemID)
	assert.Equal(t, 100.0, existence[0].DailySpend)
	assert.NotEmpty(t, existence[0].Reasoning)

	liveness := findingsByCheck(run, "pixel_liveness")
	require.Len(t, liveness, 1)
	assert.Equal(t, "LI-2", liveness[0].LineItemID)
	assert.Contains(t, liveness[0].TechnicalProof, "2025-12-01")

	require.Len(t, findingsByCheck(run, "consent_blocking"), 1)

	linkage := findingsByCheck(run, "id_linkage")
	require.Len(t, linkage, 1)
	assert.Equal(t, "TAG-1", linkage[0].TagID)
	assert.Contains(t, linkage[0].TechnicalProof, "ADV9")

	counting := findingsByCheck(run, "counting_method")
	require.Len(t, counting, 1)
	assert.Contains(t, counting[0].TechnicalProof, "Standard")
	assert.Contains(t, counting[0].TechnicalProof, "Transactions")

	// 120 cliques contra 10 sessões: divergência de 91.7%
	discrepancy := findingsByCheck(run, "cross_system_discrepancy")
	require.Len(t, discrepancy, 1)
	assert.InDelta(t, 91.67, discrepancy[0].DiscrepancyPercent, 0.01)

	consentSettings := findingsByCheck(run, "consent_settings")
	require.Len(t, consentSettings, 1)
	assert.Equal(t, "TAG-1", consentSettings[0].TagID)

	blocked := findingsByCheck(run, "network_blocked")
	require.Len(t, blocked, 1)
	assert.Equal(t, "https://loja.com/checkout", blocked[0].URL)
	assert.Equal(t, domain.PriorityP0, blocked[0].Priority)
}

func TestTechnician_Run_SemLinhasQualificadas(t *testing.T) {
	dv360 := dv360Header +
		"ADV1,LI-1,FL-1,https://tagmanager.google.com/#/container/GTM-AAA,Standard,2026-01-14,80.0,10,5,100\n"
	gtm := gtmHeader +
		"TAG-1,GTM-AAA,FL-1,ADV1,Standard,analytics_storage\n"
	ga4 := ga4Header +
		"P-OK,S-OK,?page=home,26,true,\"scrolls,outbound_clicks,site_search,video_engagement\",summer_sale,\"paypal.com\",GRANTED,enabled,90\n"
	website := websiteHeader + "https://loja.com/,yes,200 OK\n"

	technician := newTechnicianForTest(t, dv360, gtm, ga4, website)

	run, err := technician.Run(context.Background())

	require.NoError(t, err)
	// 100 cliques contra 90 sessões: 10% fica abaixo do limite
	assert.Empty(t, run.Findings)
}

func TestTechnician_Run_Deterministico(t *testing.T) {
	dv360 := dv360Header +
		"ADV1,LI-1,,https://tagmanager.google.com/#/container/GTM-AAA,,,100.0,,,\n" +
		"ADV1,LI-2,FL-9,https://tagmanager.google.com/#/container/GTM-AAA,Standard,2025-12-01,50.0,0,0,120\n"
	gtm := gtmHeader + "TAG-1,GTM-AAA,FL-9,ADV9,Transactions,\n"
	ga4 := ga4Header + healthyGA4Row
	website := websiteHeader + "https://loja.com/checkout,yes,403 BLOCKED\n"

	technician := newTechnicianForTest(t, dv360, gtm, ga4, website)

	first, err := technician.Run(context.Background())
	require.NoError(t, err)
	second, err := technician.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, stripIDs(first.Findings), stripIDs(second.Findings))
}

func TestTechnician_Stream(t *testing.T) {
	dv360 := dv360Header +
		"ADV1,LI-1,,https://tagmanager.google.com/#/container/GTM-AAA,,,100.0,,,\n"
	gtm := gtmHeader
	ga4 := ga4Header + healthyGA4Row
	website := websiteHeader

	technician := newTechnicianForTest(t, dv360, gtm, ga4, website)

	var batchStarts, batchCompletes, findings int
	for event := range technician.Stream(context.Background()) {
		switch event.Type {
		case domain.EventBatchStart:
			batchStarts++
			assert.Equal(t, 1, event.TotalBatches)
		case domain.EventBatchComplete:
			batchCompletes++
		case domain.EventFinding:
			findings++
			require.NotNil(t, event.Finding)
			assert.Equal(t, TechnicianAgent, event.Finding.Agent)
		}
	}

	assert.Equal(t, 1, batchStarts)
	assert.Equal(t, 1, batchCompletes)
	assert.Equal(t, 1, findings)
}

// stripIDs zera os identificadores aleatórios para comparar execuções
func stripIDs(findings []domain.Finding) []domain.Finding {
	stripped := make([]domain.Finding, len(findings))
	copy(stripped, findings)
	for i := range stripped {
		stripped[i].ID = ""
	}
	return stripped
}
