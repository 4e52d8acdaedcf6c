package gemini

import (
	"context"
	"errors"
	"strings"

	"github.com/darknessitachi/pquant/internal/service/llm"
	"github.com/google/generative-ai-go/genai"
)

const defaultModel = "gemini-2.0-flash"

var ErrEmptyAnswer = errors.New("gemini returned no text")

type Service struct {
	client *genai.Client
	model  string
	temp   *float32
}

type Option func(service *Service)

func WithModel(name string) Option {
	return func(service *Service) {
		if name != "" {
			service.model = name
		}
	}
}

func WithTemperature(temp float32) Option {
	return func(service *Service) {
		service.temp = &temp
	}
}

func NewService(client *genai.Client, opts ...Option) *Service {
	svc := &Service{
		client: client,
		model:  defaultModel,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

var _ llm.Service = (*Service)(nil)

// AskOnce 每次构造新的模型实例, 以便带上本次问题的 system 设定
func (s *Service) AskOnce(ctx context.Context, q llm.Question) (llm.Answer, error) {
	model := s.client.GenerativeModel(s.model)
	if s.temp != nil {
		model.SetTemperature(*s.temp)
	}
	if q.System != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(q.System))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(q.Content))
	if err != nil {
		return llm.Answer{}, err
	}
	text := parseResponse(resp)
	if text == "" {
		return llm.Answer{}, ErrEmptyAnswer
	}

	answer := llm.Answer{Content: text}
	if resp.UsageMetadata != nil {
		answer.InputToken = int(resp.UsageMetadata.PromptTokenCount)
		answer.OutputToken = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return answer, nil
}

// parseResponse 拼接第一个候选中的全部文本片段
func parseResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	texts := make([]string, 0, len(resp.Candidates[0].Content.Parts))
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok && text != "" {
			texts = append(texts, string(text))
		}
	}
	return strings.Join(texts, "\n")
}
