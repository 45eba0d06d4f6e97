// Package evaluation scores generated documents with a fixed judge model.
// The judge prompt is managed per document type; unlike generation there is
// no built-in fallback, a missing prompt is an error.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medidocs/backend/internal/audit"
	"github.com/medidocs/backend/internal/config"
	"github.com/medidocs/backend/internal/llm"
	"github.com/medidocs/backend/internal/messages"
	"github.com/medidocs/backend/internal/models"
	"github.com/medidocs/backend/internal/prompt"
	"github.com/medidocs/backend/internal/sanitize"
	"github.com/medidocs/backend/internal/sse"
)

// Request is the evaluation input.
type Request struct {
	DocumentType        string `json:"document_type"`
	InputText           string `json:"input_text"`
	CurrentPrescription string `json:"current_prescription"`
	AdditionalInfo      string `json:"additional_info"`
	OutputSummary       string `json:"output_summary"`
}

// Response is returned by the sync endpoint and carried in the terminal SSE
// frame of the streaming endpoint.
type Response struct {
	Success          bool    `json:"success"`
	EvaluationResult string  `json:"evaluation_result"`
	InputTokens      int     `json:"input_tokens"`
	OutputTokens     int     `json:"output_tokens"`
	ProcessingTime   float64 `json:"processing_time"`
	ErrorMessage     string  `json:"error_message,omitempty"`
}

func errorResponse(msg string, processingTime float64) Response {
	return Response{Success: false, ProcessingTime: processingTime, ErrorMessage: msg}
}

// ProviderRegistry resolves provider ids to providers.
type ProviderRegistry interface {
	Provider(id string) (llm.Provider, error)
}

// PromptSource supplies the active judge prompt for a document type.
type PromptSource interface {
	GetActive(ctx context.Context, documentType string) (*models.EvaluationPrompt, error)
}

// Service runs the evaluation pipeline.
type Service struct {
	cfg       config.PipelineConfig
	evalModel string
	providers ProviderRegistry
	prompts   PromptSource
	audit     *audit.Logger
}

func NewService(cfg config.PipelineConfig, evalModel string, providers ProviderRegistry,
	prompts PromptSource, auditLog *audit.Logger) *Service {
	return &Service{
		cfg:       cfg,
		evalModel: evalModel,
		providers: providers,
		prompts:   prompts,
		audit:     auditLog,
	}
}

// buildPrompt assembles the judge prompt from the template and the labeled
// request blocks.
func buildPrompt(template string, req Request) string {
	return fmt.Sprintf(`%s

【カルテ記載】
%s

【現在の処方】
%s

【追加情報】
%s

【生成された出力】
%s
`, template, req.InputText, req.CurrentPrescription, req.AdditionalInfo, req.OutputSummary)
}

// validateAndResolvePrompt checks the request and loads the judge prompt.
// Returns the template or a user-facing error message.
func (s *Service) validateAndResolvePrompt(ctx context.Context, req Request) (string, string) {
	if req.OutputSummary == "" {
		return "", messages.ValidationEvaluationNoOutput
	}

	if ok, msg := sanitize.Validate(req.OutputSummary, s.cfg.MaxInputLength); !ok {
		return "", msg
	}
	if req.InputText != "" {
		if ok, msg := sanitize.Validate(req.InputText, s.cfg.MaxInputLength); !ok {
			return "", msg
		}
	}

	if s.evalModel == "" {
		return "", messages.ConfigEvaluationModelMissing
	}

	p, err := s.prompts.GetActive(ctx, req.DocumentType)
	if errors.Is(err, prompt.ErrNotFound) {
		return "", messages.EvaluationPromptNotSet(req.DocumentType)
	}
	if err != nil {
		return "", err.Error()
	}
	return p.Content, ""
}

// prepare runs the shared pre-evaluation steps: audit, sanitization,
// validation and prompt lookup.
func (s *Service) prepare(ctx context.Context, req *Request, userIP string) (template string, errMsg string) {
	s.audit.Log(audit.Event{
		Type:         messages.AuditEvaluationStart,
		UserIP:       userIP,
		DocumentType: req.DocumentType,
		Success:      true,
	})

	req.InputText = sanitize.Sanitize(req.InputText)
	req.CurrentPrescription = sanitize.Sanitize(req.CurrentPrescription)
	req.AdditionalInfo = sanitize.Sanitize(req.AdditionalInfo)
	req.OutputSummary = sanitize.Sanitize(req.OutputSummary)

	template, errMsg = s.validateAndResolvePrompt(ctx, *req)
	if errMsg != "" {
		s.auditFailure(req.DocumentType, userIP, errMsg)
	}
	return template, errMsg
}

// Evaluate runs the judge synchronously.
func (s *Service) Evaluate(ctx context.Context, req Request, userIP string) Response {
	template, errMsg := s.prepare(ctx, &req, userIP)
	if errMsg != "" {
		return errorResponse(errMsg, 0)
	}

	provider, err := s.providers.Provider(llm.ProviderGemini)
	if err != nil {
		s.auditFailure(req.DocumentType, userIP, err.Error())
		return errorResponse(err.Error(), 0)
	}

	fullPrompt := buildPrompt(template, req)

	start := time.Now()
	result, inputTokens, outputTokens, err := provider.Generate(ctx, fullPrompt, s.evalModel)
	processingTime := time.Since(start).Seconds()
	if err != nil {
		errMsg := fmt.Sprintf(messages.ErrorEvaluationAPIFailed, err.Error())
		s.auditFailure(req.DocumentType, userIP, errMsg)
		return errorResponse(errMsg, processingTime)
	}

	s.auditSuccess(req.DocumentType, userIP, inputTokens, outputTokens, processingTime)

	return Response{
		Success:          true,
		EvaluationResult: result,
		InputTokens:      inputTokens,
		OutputTokens:     outputTokens,
		ProcessingTime:   processingTime,
	}
}

// EvaluateStream runs the judge behind the SSE heartbeat protocol.
func (s *Service) EvaluateStream(ctx context.Context, req Request, userIP string) <-chan string {
	template, errMsg := s.prepare(ctx, &req, userIP)
	if errMsg != "" {
		return singleFrame(sse.ErrorFrame(errMsg))
	}

	provider, err := s.providers.Provider(llm.ProviderGemini)
	if err != nil {
		s.auditFailure(req.DocumentType, userIP, err.Error())
		return singleFrame(sse.ErrorFrame(err.Error()))
	}

	fullPrompt := buildPrompt(template, req)
	workCtx := context.WithoutCancel(ctx)
	start := time.Now()

	work := func() (string, error) {
		result, inputTokens, outputTokens, err := provider.Generate(workCtx, fullPrompt, s.evalModel)
		if err != nil {
			errMsg := fmt.Sprintf(messages.ErrorEvaluationAPIFailed, err.Error())
			s.auditFailure(req.DocumentType, userIP, errMsg)
			return "", errors.New(errMsg)
		}

		processingTime := time.Since(start).Seconds()
		s.auditSuccess(req.DocumentType, userIP, inputTokens, outputTokens, processingTime)

		return sse.Encode("complete", Response{
			Success:          true,
			EvaluationResult: result,
			InputTokens:      inputTokens,
			OutputTokens:     outputTokens,
			ProcessingTime:   processingTime,
		}), nil
	}

	return sse.RunWithHeartbeat(ctx, sse.Options{
		StartMessage:    messages.StatusEvaluationStart,
		RunningStatus:   "evaluating",
		RunningMessage:  messages.StatusEvaluating,
		ElapsedTemplate: messages.StatusEvaluatingElapsed,
		Interval:        s.cfg.HeartbeatInterval,
	}, work)
}

func (s *Service) auditSuccess(documentType, userIP string, inputTokens, outputTokens int, processingTime float64) {
	s.audit.Log(audit.Event{
		Type:           messages.AuditEvaluationSuccess,
		UserIP:         userIP,
		DocumentType:   documentType,
		Success:        true,
		InputTokens:    inputTokens,
		OutputTokens:   outputTokens,
		ProcessingTime: processingTime,
	})
}

func (s *Service) auditFailure(documentType, userIP, errMsg string) {
	s.audit.Log(audit.Event{
		Type:         messages.AuditEvaluationFailure,
		UserIP:       userIP,
		DocumentType: documentType,
		Success:      false,
		ErrorMessage: errMsg,
	})
}

func singleFrame(frame string) <-chan string {
	ch := make(chan string, 1)
	ch <- frame
	close(ch)
	return ch
}
