package annotator

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/aleister1102/pagewatch/internal/common"
	"github.com/aleister1102/pagewatch/internal/config"
	"github.com/aleister1102/pagewatch/internal/models"
	"github.com/rs/zerolog"
)

// OpenAIAnnotator classifies change records through an OpenAI-compatible
// chat completion endpoint. The credential is supplied per instance and is
// never persisted.
type OpenAIAnnotator struct {
	client  *openai.Client
	config  config.AnnotatorConfig
	logger  zerolog.Logger
	timeout time.Duration
}

// NewOpenAIAnnotator builds an annotator bound to the given credential.
func NewOpenAIAnnotator(cfg config.AnnotatorConfig, credential string, log zerolog.Logger) *OpenAIAnnotator {
	clientConfig := openai.DefaultConfig(credential)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIAnnotator{
		client:  openai.NewClientWithConfig(clientConfig),
		config:  cfg,
		logger:  log.With().Str("component", "Annotator").Logger(),
		timeout: cfg.Timeout(),
	}
}

// annotationReply is the strict JSON shape the model is instructed to return.
type annotationReply struct {
	NotableDetected bool          `json:"notable_detected"`
	Entities        []replyEntity `json:"entities"`
	AddedEntity     *string       `json:"added_entity"`
	RemovedEntity   *string       `json:"removed_entity"`
	ModifiedEntity  *string       `json:"modified_entity"`
	Summary         string        `json:"summary"`
}

type replyEntity struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	Confidence string `json:"confidence"`
	Evidence   string `json:"evidence"`
	Source     string `json:"source"`
}

// Annotate sends the change record to the model and parses the structured
// verdict. Any transport or decode failure maps to ErrUnavailable so callers
// can degrade to an unannotated record.
func (a *OpenAIAnnotator) Annotate(ctx context.Context, record models.ChangeRecord) (*models.Annotation, error) {
	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model: a.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(record),
			},
		},
		Temperature: 0.1,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.logger.Warn().Err(err).Str("change_type", string(record.Type)).Msg("Chat completion request failed")
		return nil, common.WrapError(ErrUnavailable, err.Error())
	}

	if len(resp.Choices) == 0 {
		return nil, common.WrapError(ErrUnavailable, "empty completion response")
	}

	annotation, err := parseAnnotationReply(resp.Choices[0].Message.Content)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Failed to parse annotation reply")
		return nil, common.WrapError(ErrUnavailable, err.Error())
	}

	return annotation, nil
}

// parseAnnotationReply decodes the model output, tolerating markdown code
// fences around the JSON body.
func parseAnnotationReply(content string) (*models.Annotation, error) {
	cleaned := stripCodeFences(content)

	var reply annotationReply
	if err := json.Unmarshal([]byte(cleaned), &reply); err != nil {
		return nil, common.WrapError(err, "invalid annotation JSON")
	}

	annotation := &models.Annotation{
		NotableDetected: reply.NotableDetected,
		AddedEntity:     derefOrEmpty(reply.AddedEntity),
		RemovedEntity:   derefOrEmpty(reply.RemovedEntity),
		ModifiedEntity:  derefOrEmpty(reply.ModifiedEntity),
		Summary:         reply.Summary,
	}

	for _, entity := range reply.Entities {
		if entity.Name == "" {
			continue
		}
		annotation.Entities = append(annotation.Entities, models.Entity{
			Name:       entity.Name,
			Category:   entity.Category,
			Confidence: entity.Confidence,
			Evidence:   entity.Evidence,
			Source:     entity.Source,
		})
	}

	return annotation, nil
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}
	if trimmed == "" || trimmed == "null" {
		return "{}"
	}
	return trimmed
}

func derefOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
