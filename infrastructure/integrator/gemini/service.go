// Package gemini integra a capacidade externa de geração de texto.
// A ausência de credenciais é um estado normal e esperado: o serviço
// reporta indisponibilidade e os chamadores degradam para templates.
package gemini

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/watchdog-api/internal/config"
	"google.golang.org/genai"
)

// ErrUnavailable indica que a capacidade de geração está ausente ou
// falhou. Nunca deve chegar ao usuário final: o chamador usa o template.
var ErrUnavailable = errors.New("capacidade de geração de texto indisponível")

// TextGenerator define a interface consumida pelos agentes
type TextGenerator interface {
	// Generate produz texto para o prompt informado. Retorna ErrUnavailable
	// (possivelmente encapsulado) quando a capacidade está ausente ou falhou.
	Generate(ctx context.Context, prompt string, temperature float32, maxTokens int32) (string, error)

	// Available informa se há um cliente configurado
	Available() bool
}

// Service é o adaptador concreto sobre o SDK do Gemini, selecionado na
// inicialização por configuração
type Service struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// New cria o adaptador. Sem chave de API retorna um serviço indisponível,
// não um erro: operar sem geração é um modo normal.
func New(ctx context.Context, cfg config.Gemini) (*Service, error) {
	service := &Service{
		model:   cfg.Model,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}

	if cfg.APIKey == "" {
		logrus.Info("Chave de API do Gemini ausente, narrativas usarão template")
		return service, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, errors.Wrap(err, "erro ao criar cliente do Gemini")
	}

	service.client = client
	logrus.WithField("model", cfg.Model).Info("Cliente do Gemini inicializado")
	return service, nil
}

// Available informa se há um cliente configurado
func (s *Service) Available() bool {
	return s != nil && s.client != nil
}

// Generate chama o modelo com timeout limitado. Resposta vazia ou não
// textual também conta como indisponibilidade.
func (s *Service) Generate(ctx context.Context, prompt string, temperature float32, maxTokens int32) (string, error) {
	if !s.Available() {
		return "", ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(temperature),
		MaxOutputTokens: maxTokens,
	})
	if err != nil {
		logrus.WithError(err).Warn("Falha na geração de texto, degradando para template")
		return "", errors.Wrap(ErrUnavailable, err.Error())
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		logrus.Warn("Resposta de geração vazia, degradando para template")
		return "", ErrUnavailable
	}

	return text, nil
}
