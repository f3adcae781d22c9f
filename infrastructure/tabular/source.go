package tabular

import (
	"path/filepath"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/watchdog-api/internal/config"
	"github.com/vfg2006/watchdog-api/internal/domain"
)

// Nomes dos datasets conhecidos
const (
	DatasetSpikes      = "spikes"
	DatasetMissing     = "missing"
	DatasetSessions    = "ga4_sessions"
	DatasetLineItems   = "dv360"
	DatasetTags        = "gtm"
	DatasetProperties  = "ga4_audit"
	DatasetWebsiteScan = "website_scan"
)

// Source carrega e memoiza os datasets CSV. O cache pertence ao chamador
// (uma instância por orquestração) e é invalidado explicitamente, nunca
// estado implícito de processo.
type Source struct {
	cfg config.Data

	mu         sync.Mutex
	spikes     []domain.SpikeRow
	missing    []domain.MissingRow
	sessions   []domain.SessionRow
	lineItems  []domain.LineItemRow
	tags       []domain.TagRow
	properties []domain.PropertyRow
	scans      []domain.ScanRow
	loaded     map[string]bool
}

// NewSource cria uma fonte de dados para o diretório configurado
func NewSource(cfg config.Data) *Source {
	return &Source{
		cfg:    cfg,
		loaded: make(map[string]bool),
	}
}

// Invalidate descarta todos os datasets memoizados
func (s *Source) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.spikes = nil
	s.missing = nil
	s.sessions = nil
	s.lineItems = nil
	s.tags = nil
	s.properties = nil
	s.scans = nil
	s.loaded = make(map[string]bool)
}

func (s *Source) path(file string) string {
	return filepath.Join(s.cfg.Dir, file)
}

// Spikes retorna as linhas do export de spikes de impressões
func (s *Source) Spikes() ([]domain.SpikeRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded[DatasetSpikes] {
		return s.spikes, nil
	}

	t, err := readTable(s.path(s.cfg.SpikesFile))
	if err != nil {
		return nil, err
	}
	if err := t.require(DatasetSpikes, "Advertiser ID", "Date"); err != nil {
		return nil, err
	}

	rows := make([]domain.SpikeRow, 0, len(t.rows))
	for _, raw := range t.rows {
		rows = append(rows, domain.SpikeRow{
			AdvertiserID: t.stringCell(raw, "Advertiser ID"),
			ActivityID:   t.stringCell(raw, "Floodlight Activity ID"),
			ActivityName: t.stringCell(raw, "Floodlight Activity Name"),
			Date:         t.dateCell(raw, "Date"),
			Impressions:  t.intCell(raw, "Floodlight Impressions"),
		})
	}

	s.spikes = rows
	s.loaded[DatasetSpikes] = true
	s.logLoaded(DatasetSpikes, len(rows))
	return rows, nil
}

// Missing retorna as linhas do export de dias sem entrega
func (s *Source) Missing() ([]domain.MissingRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded[DatasetMissing] {
		return s.missing, nil
	}

	t, err := readTable(s.path(s.cfg.MissingFile))
	if err != nil {
		return nil, err
	}
	if err := t.require(DatasetMissing, "Advertiser ID", "Missing Date"); err != nil {
		return nil, err
	}

	rows := make([]domain.MissingRow, 0, len(t.rows))
	for _, raw := range t.rows {
		rows = append(rows, domain.MissingRow{
			AdvertiserID: t.stringCell(raw, "Advertiser ID"),
			ActivityID:   t.stringCell(raw, "Floodlight Activity ID"),
			ActivityName: t.stringCell(raw, "Floodlight Activity Name"),
			MissingDate:  t.dateCell(raw, "Missing Date"),
		})
	}

	s.missing = rows
	s.loaded[DatasetMissing] = true
	s.logLoaded(DatasetMissing, len(rows))
	return rows, nil
}

// Sessions retorna as linhas de sessões amostradas do GA4
func (s *Source) Sessions() ([]domain.SessionRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded[DatasetSessions] {
		return s.sessions, nil
	}

	t, err := readTable(s.path(s.cfg.SessionsFile))
	if err != nil {
		return nil, err
	}
	err = t.require(DatasetSessions, "Advertiser", "Advertiser ID", "Date", "GA4 Default Channel Group", "Sessions (sampled)")
	if err != nil {
		return nil, err
	}

	rows := make([]domain.SessionRow, 0, len(t.rows))
	for _, raw := range t.rows {
		rows = append(rows, domain.SessionRow{
			AdvertiserID:     t.stringCell(raw, "Advertiser ID"),
			AdvertiserName:   t.stringCell(raw, "Advertiser"),
			Date:             t.dateCell(raw, "Date"),
			Channel:          t.stringCell(raw, "GA4 Default Channel Group"),
			Sessions:         t.intCell(raw, "Sessions (sampled)"),
			TotalImpressions: t.intCell(raw, "Floodlight Impressions (total/day)"),
		})
	}

	s.sessions = rows
	s.loaded[DatasetSessions] = true
	s.logLoaded(DatasetSessions, len(rows))
	return rows, nil
}

// LineItems retorna o snapshot de auditoria do DV360
func (s *Source) LineItems() ([]domain.LineItemRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded[DatasetLineItems] {
		return s.lineItems, nil
	}

	t, err := readTable(s.path(s.cfg.LineItemsFile))
	if err != nil {
		return nil, err
	}
	if err := t.require(DatasetLineItems, "Advertiser_ID", "Line_Item_ID"); err != nil {
		return nil, err
	}

	rows := make([]domain.LineItemRow, 0, len(t.rows))
	for _, raw := range t.rows {
		rows = append(rows, domain.LineItemRow{
			AdvertiserID:       t.stringCell(raw, "Advertiser_ID"),
			LineItemID:         t.stringCell(raw, "Line_Item_ID"),
			ActivityID:         t.stringCell(raw, "Floodlight_Activity_ID"),
			GTMContainerLink:   t.stringCell(raw, "GTM_Container_Link"),
			CountingMethod:     t.stringCell(raw, "Counting_Method"),
			LastConversionDate: t.stringCell(raw, "Last_Conversion_Date"),
			DailySpend:         t.floatCell(raw, "Daily_Spend"),
			CookieConsented:    t.intCell(raw, "Cookie_Consented_Count"),
			CookieUnconsented:  t.intCell(raw, "Cookie_Unconsented_Count"),
			ClicksLast24h:      t.intCell(raw, "Clicks_Last_24h"),
		})
	}

	s.lineItems = rows
	s.loaded[DatasetLineItems] = true
	s.logLoaded(DatasetLineItems, len(rows))
	return rows, nil
}

// Tags retorna o snapshot de configuração de tags do GTM
func (s *Source) Tags() ([]domain.TagRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded[DatasetTags] {
		return s.tags, nil
	}

	t, err := readTable(s.path(s.cfg.TagsFile))
	if err != nil {
		return nil, err
	}
	if err := t.require(DatasetTags, "Tag_ID", "Container_ID"); err != nil {
		return nil, err
	}

	rows := make([]domain.TagRow, 0, len(t.rows))
	for _, raw := range t.rows {
		rows = append(rows, domain.TagRow{
			TagID:              t.stringCell(raw, "Tag_ID"),
			ContainerID:        t.stringCell(raw, "Container_ID"),
			LinkedActivityID:   t.stringCell(raw, "Linked_Floodlight_ID"),
			AdvertiserIDConfig: t.stringCell(raw, "Advertiser_ID_Config"),
			CountingMethod:     t.stringCell(raw, "Configured_Counting_Method"),
			ConsentSettings:    t.stringCell(raw, "Consent_Settings"),
		})
	}

	s.tags = rows
	s.loaded[DatasetTags] = true
	s.logLoaded(DatasetTags, len(rows))
	return rows, nil
}

// Properties retorna o snapshot de auditoria de propriedades do GA4
func (s *Source) Properties() ([]domain.PropertyRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded[DatasetProperties] {
		return s.properties, nil
	}

	t, err := readTable(s.path(s.cfg.PropertiesFile))
	if err != nil {
		return nil, err
	}
	if err := t.require(DatasetProperties, "Property_ID"); err != nil {
		return nil, err
	}

	rows := make([]domain.PropertyRow, 0, len(t.rows))
	for _, raw := range t.rows {
		rows = append(rows, domain.PropertyRow{
			PropertyID:            t.stringCell(raw, "Property_ID"),
			StreamID:              t.stringCell(raw, "Stream_ID"),
			SampleURLQuery:        t.stringCell(raw, "Sample_URL_Query"),
			DataRetentionMonths:   t.intCell(raw, "Data_Retention_Months"),
			GoogleSignalsEnabled:  t.boolCell(raw, "Google_Signals_Enabled"),
			EnhancedMeasurement:   t.stringCell(raw, "Enhanced_Measurement_Config"),
			SessionCampaignName:   t.stringCell(raw, "Session_Campaign_Name"),
			ReferralExclusionList: t.stringCell(raw, "Referral_Exclusion_List"),
			ConsentModeStatus:     t.stringCell(raw, "Consent_Mode_Status"),
			CostDataImportStatus:  t.stringCell(raw, "Cost_Data_Import_Status"),
			SessionsLast24h:       t.intCell(raw, "Sessions_Last_24h"),
		})
	}

	s.properties = rows
	s.loaded[DatasetProperties] = true
	s.logLoaded(DatasetProperties, len(rows))
	return rows, nil
}

// WebsiteScans retorna o snapshot da varredura dos sites
func (s *Source) WebsiteScans() ([]domain.ScanRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded[DatasetWebsiteScan] {
		return s.scans, nil
	}

	t, err := readTable(s.path(s.cfg.WebsiteScanFile))
	if err != nil {
		return nil, err
	}
	if err := t.require(DatasetWebsiteScan, "URL", "Network_Call_Status"); err != nil {
		return nil, err
	}

	rows := make([]domain.ScanRow, 0, len(t.rows))
	for _, raw := range t.rows {
		rows = append(rows, domain.ScanRow{
			URL:               t.stringCell(raw, "URL"),
			GTMContainerFound: t.stringCell(raw, "GTM_Container_Found"),
			NetworkCallStatus: t.stringCell(raw, "Network_Call_Status"),
		})
	}

	s.scans = rows
	s.loaded[DatasetWebsiteScan] = true
	s.logLoaded(DatasetWebsiteScan, len(rows))
	return rows, nil
}

// Advertisers extrai as opções de anunciante das sessões do GA4,
// deduplicadas e ordenadas por nome e ID
func (s *Source) Advertisers() ([]domain.Advertiser, error) {
	sessions, err := s.Sessions()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	advertisers := make([]domain.Advertiser, 0)
	for _, row := range sessions {
		if row.AdvertiserID == "" || seen[row.AdvertiserID] {
			continue
		}
		seen[row.AdvertiserID] = true
		advertisers = append(advertisers, domain.Advertiser{
			ID:   row.AdvertiserID,
			Name: row.AdvertiserName,
		})
	}

	sort.Slice(advertisers, func(i, j int) bool {
		if advertisers[i].Name != advertisers[j].Name {
			return advertisers[i].Name < advertisers[j].Name
		}
		return advertisers[i].ID < advertisers[j].ID
	})

	return advertisers, nil
}

func (s *Source) logLoaded(dataset string, rows int) {
	logrus.WithFields(logrus.Fields{
		"dataset_name": dataset,
		"dataset_rows": rows,
	}).Debug("Dataset carregado")
}
