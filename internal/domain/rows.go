package domain

import "time"

// Advertiser identifica a entidade dona da configuração auditada
type Advertiser struct {
	ID   string `json:"advertiser_id"`
	Name string `json:"advertiser"`
}

// SpikeRow é uma linha do export de spikes de impressões de Floodlight.
// Datas e contagens inválidas chegam como nil (valor ausente).
type SpikeRow struct {
	AdvertiserID string     `json:"advertiser_id"`
	ActivityID   string     `json:"floodlight_activity_id"`
	ActivityName string     `json:"floodlight_activity_name"`
	Date         *time.Time `json:"date"`
	Impressions  *int       `json:"floodlight_impressions"`
}

// MissingRow é uma linha do export de dias sem entrega de Floodlight
type MissingRow struct {
	AdvertiserID string     `json:"advertiser_id"`
	ActivityID   string     `json:"floodlight_activity_id"`
	ActivityName string     `json:"floodlight_activity_name"`
	MissingDate  *time.Time `json:"missing_date"`
}

// SessionRow é uma linha do export de sessões amostradas do GA4
type SessionRow struct {
	AdvertiserID     string     `json:"advertiser_id"`
	AdvertiserName   string     `json:"advertiser"`
	Date             *time.Time `json:"date"`
	Channel          string     `json:"channel"`
	Sessions         *int       `json:"sessions"`
	TotalImpressions *int       `json:"floodlight_impressions_total"`
}

// LineItemRow é uma linha do snapshot de auditoria do DV360
type LineItemRow struct {
	AdvertiserID       string  `json:"advertiser_id"`
	LineItemID         string  `json:"line_item_id"`
	ActivityID         string  `json:"floodlight_activity_id"`
	GTMContainerLink   string  `json:"gtm_container_link"`
	CountingMethod     string  `json:"counting_method"`
	LastConversionDate string  `json:"last_conversion_date"`
	DailySpend         float64 `json:"daily_spend"`
	CookieConsented    *int    `json:"cookie_consented_count"`
	CookieUnconsented  *int    `json:"cookie_unconsented_count"`
	ClicksLast24h      *int    `json:"clicks_last_24h"`
}

// TagRow é uma linha do snapshot de configuração de tags do GTM
type TagRow struct {
	TagID              string `json:"tag_id"`
	ContainerID        string `json:"container_id"`
	LinkedActivityID   string `json:"linked_floodlight_id"`
	AdvertiserIDConfig string `json:"advertiser_id_config"`
	CountingMethod     string `json:"configured_counting_method"`
	ConsentSettings    string `json:"consent_settings"`
}

// PropertyRow é uma linha do snapshot de auditoria de propriedades do GA4
type PropertyRow struct {
	PropertyID            string `json:"property_id"`
	StreamID              string `json:"stream_id"`
	SampleURLQuery        string `json:"sample_url_query"`
	DataRetentionMonths   *int   `json:"data_retention_months"`
	GoogleSignalsEnabled  *bool  `json:"google_signals_enabled"`
	EnhancedMeasurement   string `json:"enhanced_measurement_config"`
	SessionCampaignName   string `json:"session_campaign_name"`
	ReferralExclusionList string `json:"referral_exclusion_list"`
	ConsentModeStatus     string `json:"consent_mode_status"`
	CostDataImportStatus  string `json:"cost_data_import_status"`
	SessionsLast24h       *int   `json:"sessions_last_24h"`
}

// ScanRow é uma linha do snapshot de varredura dos sites auditados
type ScanRow struct {
	URL               string `json:"url"`
	GTMContainerFound string `json:"gtm_container_found"`
	NetworkCallStatus string `json:"network_call_status"`
}
