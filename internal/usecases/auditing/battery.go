// Package auditing implementa a bateria de verificações de governança e
// implementação: o agente técnico varre os snapshots de DV360/GTM/sites
// e o auditor de configuração varre as propriedades do GA4. Cada
// verificação é uma função pura sobre um lote de linhas que emite zero ou
// mais findings estruturados.
package auditing

import (
	"context"
	"math/rand"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/watchdog-api/internal/domain"
	"github.com/vfg2006/watchdog-api/pkg/utils"
)

// Agent é um executor de bateria de verificações
type Agent interface {
	// Run executa a bateria completa e retorna a execução finalizada
	Run(ctx context.Context) (*domain.AuditRun, error)

	// Stream executa a bateria emitindo o passo a passo como eventos.
	// O canal é fechado quando a execução termina.
	Stream(ctx context.Context) <-chan domain.Event
}

// Batch delimita um lote de linhas pelos índices [Start, End)
type Batch struct {
	ID    int
	Start int
	End   int
}

// Partition divide n linhas em lotes contíguos de tamanho aleatório dentro
// de [minSize, maxSize]. O tamanho dos lotes é um detalhe de exibição: toda
// linha cai em exatamente um lote e as verificações rodam sobre todos eles,
// então o particionamento nunca altera o conjunto final de findings.
func Partition(n, minSize, maxSize int, seed int64) []Batch {
	if n <= 0 {
		return []Batch{}
	}
	if minSize < 1 {
		minSize = 1
	}
	if maxSize < minSize {
		maxSize = minSize
	}

	rng := rand.New(rand.NewSource(seed))

	batches := make([]Batch, 0, n/minSize+1)
	start := 0
	for start < n {
		size := minSize + rng.Intn(maxSize-minSize+1)
		end := start + size
		if end > n {
			end = n
		}
		batches = append(batches, Batch{ID: len(batches) + 1, Start: start, End: end})
		start = end
	}
	return batches
}

// streamRun converte uma execução com emissor em um canal de eventos
func streamRun(
	ctx context.Context,
	agent string,
	runFn func(ctx context.Context, emit func(domain.Event)) (*domain.AuditRun, error),
) <-chan domain.Event {
	events := make(chan domain.Event, 64)

	go func() {
		defer close(events)

		emit := func(event domain.Event) {
			select {
			case events <- event:
			case <-ctx.Done():
			}
		}

		if _, err := runFn(ctx, emit); err != nil {
			logrus.WithError(err).WithField("agent", agent).Error("Erro na execução da bateria de verificações")
		}
	}()

	return events
}

// addFinding completa os campos derivados do finding, o registra na
// execução e o emite como evento
func addFinding(run *domain.AuditRun, emit func(domain.Event), finding domain.Finding) {
	id, err := utils.GenerateID()
	if err != nil {
		logrus.WithError(err).Warn("Erro ao gerar ID de finding")
	}
	finding.ID = id
	finding.Agent = run.Agent
	finding.PriorityLabel = finding.Priority.Label()

	run.AddFinding(finding)
	emit(domain.Event{Type: domain.EventFinding, Agent: run.Agent, Finding: &finding})
}

func emitStep(run *domain.AuditRun, emit func(domain.Event), text string) {
	entry := run.AddStep(text)
	logrus.WithField("agent", run.Agent).Debug(text)
	emit(domain.Event{Type: domain.EventStep, Agent: run.Agent, Step: &entry})
}
