package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/watchdog-api/internal/domain"
)

func TestBuildSpikeProblems(t *testing.T) {
	rows := []domain.SpikeRow{
		{AdvertiserID: "ADV1", ActivityName: "Compra", Date: dayPtr("2026-01-02"), Impressions: intPtr(500)},
		{AdvertiserID: "ADV1", ActivityName: "Lead", Date: dayPtr("2026-01-05"), Impressions: intPtr(200)},
		{AdvertiserID: "ADV1", ActivityName: "Cadastro", Date: dayPtr("2026-01-05"), Impressions: intPtr(900)},
		{AdvertiserID: "ADV1", ActivityName: "Sem data", Date: nil, Impressions: intPtr(999)},
		{AdvertiserID: "ADV1", ActivityName: "Sem contagem", Date: dayPtr("2026-01-04"), Impressions: nil},
	}

	problems := BuildSpikeProblems(rows)

	// Linhas sem data ou sem contagem caem fora; ordenação por data
	// decrescente e impressões decrescentes
	require.Len(t, problems, 3)
	assert.Equal(t, "Cadastro", problems[0].ActivityName)
	assert.Equal(t, "Lead", problems[1].ActivityName)
	assert.Equal(t, "Compra", problems[2].ActivityName)
	assert.Equal(t, 900, problems[0].Impressions)
}

func TestBuildSpikeProblems_EntradaInvalidaProduzTabelaVazia(t *testing.T) {
	rows := []domain.SpikeRow{
		{AdvertiserID: "ADV1", ActivityName: "A", Date: nil, Impressions: nil},
	}

	problems := BuildSpikeProblems(rows)

	assert.NotNil(t, problems)
	assert.Empty(t, problems)
}

func TestBuildMissingProblems(t *testing.T) {
	rows := []domain.MissingRow{
		{AdvertiserID: "ADV1", ActivityName: "X", MissingDate: dayPtr("2026-01-01")},
		{AdvertiserID: "ADV1", ActivityName: "X", MissingDate: dayPtr("2026-01-02")},
		{AdvertiserID: "ADV1", ActivityName: "X", MissingDate: dayPtr("2026-01-03")},
		{AdvertiserID: "ADV1", ActivityName: "X", MissingDate: dayPtr("2026-01-10")},
	}

	problems := BuildMissingProblems(rows)

	// Dois intervalos, o mais longo primeiro
	require.Len(t, problems, 2)
	assert.Equal(t, "X", problems[0].ActivityName)
	assert.Equal(t, day("2026-01-01"), problems[0].StartDate)
	assert.Equal(t, day("2026-01-03"), problems[0].EndDate)
	assert.Equal(t, 3, problems[0].MissingDays)
	assert.Equal(t, day("2026-01-10"), problems[1].StartDate)
	assert.Equal(t, 1, problems[1].MissingDays)
}

func TestBuildMissingProblems_EmpateOrdenaPorInicioDecrescente(t *testing.T) {
	rows := []domain.MissingRow{
		{AdvertiserID: "ADV1", ActivityName: "A", MissingDate: dayPtr("2026-01-01")},
		{AdvertiserID: "ADV1", ActivityName: "B", MissingDate: dayPtr("2026-01-08")},
	}

	problems := BuildMissingProblems(rows)

	require.Len(t, problems, 2)
	assert.Equal(t, "B", problems[0].ActivityName)
	assert.Equal(t, "A", problems[1].ActivityName)
}

func TestBuildMissingProblems_AgrupaPorAtividade(t *testing.T) {
	rows := []domain.MissingRow{
		{AdvertiserID: "ADV1", ActivityName: "A", MissingDate: dayPtr("2026-01-01")},
		{AdvertiserID: "ADV1", ActivityName: "B", MissingDate: dayPtr("2026-01-02")},
		{AdvertiserID: "ADV1", ActivityName: "A", MissingDate: dayPtr("2026-01-02")},
	}

	problems := BuildMissingProblems(rows)

	// Dias consecutivos de atividades diferentes não se fundem
	require.Len(t, problems, 2)
	assert.Equal(t, "A", problems[0].ActivityName)
	assert.Equal(t, 2, problems[0].MissingDays)
	assert.Equal(t, "B", problems[1].ActivityName)
	assert.Equal(t, 1, problems[1].MissingDays)
}

func TestSpikeImpressionsByDay(t *testing.T) {
	rows := []domain.SpikeRow{
		{Date: dayPtr("2026-01-02"), Impressions: intPtr(100)},
		{Date: dayPtr("2026-01-01"), Impressions: intPtr(50)},
		{Date: dayPtr("2026-01-02"), Impressions: intPtr(30)},
		{Date: nil, Impressions: intPtr(999)},
	}

	points := SpikeImpressionsByDay(rows)

	require.Len(t, points, 2)
	assert.Equal(t, day("2026-01-01"), points[0].Day)
	assert.Equal(t, 50, points[0].Value)
	assert.Equal(t, 130, points[1].Value)
}

func TestMissingEventsByDay(t *testing.T) {
	rows := []domain.MissingRow{
		{ActivityName: "A", MissingDate: dayPtr("2026-01-01")},
		{ActivityName: "B", MissingDate: dayPtr("2026-01-01")},
		{ActivityName: "A", MissingDate: dayPtr("2026-01-03")},
	}

	points := MissingEventsByDay(rows)

	require.Len(t, points, 2)
	assert.Equal(t, 2, points[0].Value)
	assert.Equal(t, 1, points[1].Value)
}

func TestChannelTotals(t *testing.T) {
	rows := []domain.SessionRow{
		sessionRow("2026-01-01", "Direct", 10),
		sessionRow("2026-01-02", "Direct", 15),
		sessionRow("2026-01-01", "Referral", 7),
	}

	totals := ChannelTotals(rows)

	assert.Equal(t, 25, totals["Direct"])
	assert.Equal(t, 7, totals["Referral"])
}
