package anomaly

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/vfg2006/watchdog-api/internal/domain"
	"github.com/vfg2006/watchdog-api/pkg/utils"
)

// Explicações causais por família de canal. O casamento é por substring,
// sem diferenciar maiúsculas, na ordem declarada.
var channelCauses = []struct {
	keyword string
	cause   string
}{
	{"referral", "Pico de tráfego de referral: um site externo (parceiro, imprensa ou agregador) passou a enviar visitantes, o que costuma disparar contagens de Floodlight fora da baseline."},
	{"direct", "Pico de tráfego direto: acessos sem origem rastreável, frequentemente causados por perda de parâmetros de campanha ou por tráfego de bots."},
	{"paid", "Pico de tráfego pago: uma campanha de mídia entrou no ar ou teve o orçamento ampliado, multiplicando as sessões e os disparos de conversão."},
	{"organic", "Pico de tráfego orgânico: ganho de posição em busca ou conteúdo viralizado elevou as sessões acima da baseline histórica."},
}

const genericCause = "Canal sem causa conhecida mapeada: investigar manualmente a origem do tráfego do dia."

// InferChannelDriver encontra o canal dominante do dia informado e o seu
// desvio (z-score) em relação à baseline histórica do próprio canal.
// Sem sessões no dia, retorna um driver vazio com z-score 0.
func InferChannelDriver(sessions []domain.SessionRow, date time.Time) domain.ChannelDriver {
	day := utils.NormalizeDay(date)

	// Soma de sessões por canal no dia, preservando a ordem de aparição
	type channelSum struct {
		channel  string
		sessions int
	}
	totals := make([]channelSum, 0)
	index := make(map[string]int)
	for _, row := range sessions {
		if row.Date == nil || row.Sessions == nil || !utils.SameDay(*row.Date, day) {
			continue
		}
		i, ok := index[row.Channel]
		if !ok {
			index[row.Channel] = len(totals)
			totals = append(totals, channelSum{channel: row.Channel})
			i = len(totals) - 1
		}
		totals[i].sessions += *row.Sessions
	}

	if len(totals) == 0 {
		return domain.ChannelDriver{
			Cause:    "Sem dados de sessões para a data consultada.",
			Evidence: fmt.Sprintf("Nenhuma sessão registrada em %s", day.Format("2006-01-02")),
		}
	}

	// Desempate determinístico: ordenação estável por sessões em ordem
	// decrescente e escolha do primeiro elemento, ou seja, entre empatados
	// vence o canal que apareceu primeiro nos dados
	sort.SliceStable(totals, func(i, j int) bool { return totals[i].sessions > totals[j].sessions })
	dominant := totals[0]

	mean, std := channelBaseline(sessions, dominant.channel)
	divisor := std
	if divisor <= 0 {
		divisor = 1.0
	}
	z := (float64(dominant.sessions) - mean) / divisor

	return domain.ChannelDriver{
		DominantChannel:  dominant.channel,
		DominantSessions: dominant.sessions,
		ZScore:           z,
		Cause:            causeFor(dominant.channel),
		Evidence: fmt.Sprintf(
			"Canal '%s' dominou %s com %d sessões (média histórica %.1f, z≈%.1f)",
			dominant.channel, day.Format("2006-01-02"), dominant.sessions, mean, z,
		),
	}
}

// channelBaseline calcula média e desvio padrão populacional das sessões
// diárias do canal sobre todo o histórico. Com uma única observação o
// desvio é 0, deixando o divisor de fallback para o chamador.
func channelBaseline(sessions []domain.SessionRow, channel string) (mean, std float64) {
	perDay := make(map[time.Time]int)
	for _, row := range sessions {
		if row.Date == nil || row.Sessions == nil || row.Channel != channel {
			continue
		}
		perDay[utils.NormalizeDay(*row.Date)] += *row.Sessions
	}

	if len(perDay) == 0 {
		return 0, 0
	}

	var sum float64
	for _, v := range perDay {
		sum += float64(v)
	}
	mean = sum / float64(len(perDay))

	if len(perDay) == 1 {
		return mean, 0
	}

	var variance float64
	for _, v := range perDay {
		diff := float64(v) - mean
		variance += diff * diff
	}
	variance /= float64(len(perDay))

	return mean, math.Sqrt(variance)
}

func causeFor(channel string) string {
	lowered := strings.ToLower(channel)
	for _, entry := range channelCauses {
		if strings.Contains(lowered, entry.keyword) {
			return entry.cause
		}
	}
	return genericCause
}
