// Package summary runs the referral document generation pipeline: sanitize,
// validate, pick a model, call the provider, then normalize and split the
// output.
package summary

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/medidocs/backend/internal/audit"
	"github.com/medidocs/backend/internal/config"
	"github.com/medidocs/backend/internal/llm"
	"github.com/medidocs/backend/internal/messages"
	"github.com/medidocs/backend/internal/models"
	"github.com/medidocs/backend/internal/sanitize"
	"github.com/medidocs/backend/internal/sse"
	"github.com/medidocs/backend/internal/textproc"
)

// Request is the generation input. Only medical_text is required.
type Request struct {
	ReferralPurpose         string `json:"referral_purpose"`
	CurrentPrescription     string `json:"current_prescription"`
	MedicalText             string `json:"medical_text"`
	AdditionalInfo          string `json:"additional_info"`
	Department              string `json:"department"`
	Doctor                  string `json:"doctor"`
	DocumentType            string `json:"document_type"`
	Model                   string `json:"model"`
	ModelExplicitlySelected bool   `json:"model_explicitly_selected"`
}

func (r *Request) applyDefaults() {
	if r.Department == "" {
		r.Department = messages.DefaultScope
	}
	if r.Doctor == "" {
		r.Doctor = messages.DefaultScope
	}
	if r.DocumentType == "" {
		r.DocumentType = messages.DefaultDocumentType
	}
}

// Response is returned by the sync endpoint and carried in the terminal SSE
// frame of the streaming endpoint.
type Response struct {
	Success        bool              `json:"success"`
	OutputSummary  string            `json:"output_summary"`
	ParsedSummary  map[string]string `json:"parsed_summary"`
	InputTokens    int               `json:"input_tokens"`
	OutputTokens   int               `json:"output_tokens"`
	ProcessingTime float64           `json:"processing_time"`
	ModelUsed      string            `json:"model_used"`
	ModelSwitched  bool              `json:"model_switched"`
	ErrorMessage   string            `json:"error_message,omitempty"`
}

func errorResponse(msg, model string, switched bool) Response {
	return Response{
		Success:       false,
		ParsedSummary: map[string]string{},
		ModelUsed:     model,
		ModelSwitched: switched,
		ErrorMessage:  msg,
	}
}

// ProviderRegistry resolves provider ids to providers.
type ProviderRegistry interface {
	Provider(id string) (llm.Provider, error)
}

// PromptResolver supplies the generation instruction for a scope.
type PromptResolver interface {
	ResolveContent(ctx context.Context, department, documentType, doctor string) string
}

// UsageRecorder persists one usage record, best effort.
type UsageRecorder interface {
	Record(ctx context.Context, rec models.UsageRecord)
}

// Service is the generation pipeline.
type Service struct {
	cfg       config.PipelineConfig
	selector  *llm.Selector
	providers ProviderRegistry
	prompts   PromptResolver
	usage     UsageRecorder
	audit     *audit.Logger
	parser    *textproc.Parser
}

func NewService(cfg config.PipelineConfig, selector *llm.Selector, providers ProviderRegistry,
	prompts PromptResolver, usageRec UsageRecorder, auditLog *audit.Logger) *Service {
	return &Service{
		cfg:       cfg,
		selector:  selector,
		providers: providers,
		prompts:   prompts,
		usage:     usageRec,
		audit:     auditLog,
		parser:    textproc.NewDefaultParser(),
	}
}

// validateInput checks the chart text: present, within the configured length
// band, and free of injection patterns. Lengths are counted in characters,
// not bytes.
func (s *Service) validateInput(text string) (bool, string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false, messages.ValidationNoInput
	}

	n := utf8.RuneCountInString(trimmed)
	if n < s.cfg.MinInputLength {
		return false, messages.ValidationInputTooShort
	}
	if n > s.cfg.MaxInputLength {
		return false, messages.ValidationInputTooLong
	}

	return sanitize.Validate(text, s.cfg.MaxInputLength)
}

// buildPrompt assembles the provider prompt from the resolved template and
// the labeled request blocks.
func (s *Service) buildPrompt(ctx context.Context, req Request) string {
	template := s.prompts.ResolveContent(ctx, req.Department, req.DocumentType, req.Doctor)

	var b strings.Builder
	b.WriteString(template)
	b.WriteString("\n【カルテ情報】\n")
	b.WriteString(req.MedicalText)

	if strings.TrimSpace(req.ReferralPurpose) != "" {
		b.WriteString("\n【紹介目的】\n")
		b.WriteString(req.ReferralPurpose)
	}
	if strings.TrimSpace(req.CurrentPrescription) != "" {
		b.WriteString("\n【退院時処方(現在の処方)】\n")
		b.WriteString(req.CurrentPrescription)
	}

	b.WriteString("\n【追加情報】")
	b.WriteString(req.AdditionalInfo)
	return b.String()
}

// prepare runs the shared pre-generation steps. On failure the returned
// Response carries the user-facing error.
func (s *Service) prepare(ctx context.Context, req *Request, userIP string) (provider llm.Provider, modelName string, sel llm.Selection, failed *Response) {
	req.applyDefaults()

	s.audit.Log(audit.Event{
		Type:         messages.AuditGenerationStart,
		UserIP:       userIP,
		DocumentType: req.DocumentType,
		Department:   req.Department,
		Doctor:       req.Doctor,
		Model:        req.Model,
		Success:      true,
	})

	req.MedicalText = sanitize.Sanitize(req.MedicalText)
	req.AdditionalInfo = sanitize.Sanitize(req.AdditionalInfo)
	req.ReferralPurpose = sanitize.Sanitize(req.ReferralPurpose)
	req.CurrentPrescription = sanitize.Sanitize(req.CurrentPrescription)

	if ok, msg := s.validateInput(req.MedicalText); !ok {
		s.auditFailure(req, userIP, req.Model, msg)
		r := errorResponse(msg, req.Model, false)
		return nil, "", llm.Selection{}, &r
	}

	totalLength := utf8.RuneCountInString(req.MedicalText) + utf8.RuneCountInString(req.AdditionalInfo)
	sel, err := s.selector.DetermineModel(ctx, req.Model, req.ModelExplicitlySelected,
		totalLength, req.Department, req.DocumentType, req.Doctor)
	if err != nil {
		s.auditFailure(req, userIP, req.Model, err.Error())
		r := errorResponse(err.Error(), req.Model, false)
		return nil, "", llm.Selection{}, &r
	}

	providerID, modelName, err := s.selector.ProviderAndModel(sel.Model)
	if err != nil {
		s.auditFailure(req, userIP, sel.Model, err.Error())
		r := errorResponse(err.Error(), sel.Model, sel.Switched)
		return nil, "", sel, &r
	}

	provider, err = s.providers.Provider(providerID)
	if err != nil {
		s.auditFailure(req, userIP, sel.Model, err.Error())
		r := errorResponse(err.Error(), sel.Model, sel.Switched)
		return nil, "", sel, &r
	}

	return provider, modelName, sel, nil
}

// Generate runs the pipeline synchronously. Failures come back in the
// Response rather than as an error so the handler always has a complete
// payload to serialize.
func (s *Service) Generate(ctx context.Context, req Request, userIP string) Response {
	provider, modelName, sel, failed := s.prepare(ctx, &req, userIP)
	if failed != nil {
		return *failed
	}

	prompt := s.buildPrompt(ctx, req)

	start := time.Now()
	content, inputTokens, outputTokens, err := provider.Generate(ctx, prompt, modelName)
	if err != nil {
		s.auditFailure(&req, userIP, sel.Model, err.Error())
		return errorResponse(err.Error(), sel.Model, sel.Switched)
	}
	processingTime := time.Since(start).Seconds()

	return s.complete(ctx, req, sel, userIP, content, inputTokens, outputTokens, processingTime)
}

// GenerateStream runs the pipeline behind the SSE heartbeat protocol. The
// returned channel yields encoded frames and closes after the terminal one.
// A dropped client stops frame delivery but the generation finishes and its
// usage record is still written.
func (s *Service) GenerateStream(ctx context.Context, req Request, userIP string) <-chan string {
	provider, modelName, sel, failed := s.prepare(ctx, &req, userIP)
	if failed != nil {
		return singleFrame(sse.ErrorFrame(failed.ErrorMessage))
	}

	prompt := s.buildPrompt(ctx, req)

	// Side effects must survive a client disconnect.
	workCtx := context.WithoutCancel(ctx)
	start := time.Now()

	work := func() (string, error) {
		stream, err := provider.GenerateStream(workCtx, prompt, modelName)
		if err != nil {
			s.auditFailure(&req, userIP, sel.Model, err.Error())
			return "", err
		}

		var content strings.Builder
		var inputTokens, outputTokens int
		for chunk := range stream {
			if chunk.Err != nil {
				s.auditFailure(&req, userIP, sel.Model, chunk.Err.Error())
				return "", chunk.Err
			}
			content.WriteString(chunk.Content)
			if chunk.Done {
				inputTokens = chunk.InputTokens
				outputTokens = chunk.OutputTokens
			}
		}

		processingTime := time.Since(start).Seconds()
		resp := s.complete(workCtx, req, sel, userIP, content.String(), inputTokens, outputTokens, processingTime)
		return sse.Encode("complete", resp), nil
	}

	return sse.RunWithHeartbeat(ctx, sse.Options{
		StartMessage:    messages.StatusGenerationStart,
		RunningStatus:   "generating",
		RunningMessage:  messages.StatusGenerating,
		ElapsedTemplate: messages.StatusGeneratingElapsed,
		Interval:        s.cfg.HeartbeatInterval,
	}, work)
}

// complete runs the post-generation steps shared by both paths.
func (s *Service) complete(ctx context.Context, req Request, sel llm.Selection, userIP,
	content string, inputTokens, outputTokens int, processingTime float64) Response {

	formatted := textproc.FormatOutputSummary(content)
	parsed := s.parser.Parse(formatted)

	s.usage.Record(ctx, models.UsageRecord{
		Department:     req.Department,
		Doctor:         req.Doctor,
		DocumentType:   req.DocumentType,
		Model:          sel.Model,
		InputTokens:    inputTokens,
		OutputTokens:   outputTokens,
		ProcessingTime: processingTime,
	})

	s.audit.Log(audit.Event{
		Type:           messages.AuditGenerationSuccess,
		UserIP:         userIP,
		DocumentType:   req.DocumentType,
		Model:          sel.Model,
		Success:        true,
		InputTokens:    inputTokens,
		OutputTokens:   outputTokens,
		ProcessingTime: processingTime,
	})

	return Response{
		Success:        true,
		OutputSummary:  formatted,
		ParsedSummary:  parsed,
		InputTokens:    inputTokens,
		OutputTokens:   outputTokens,
		ProcessingTime: processingTime,
		ModelUsed:      sel.Model,
		ModelSwitched:  sel.Switched,
	}
}

func (s *Service) auditFailure(req *Request, userIP, model, errMsg string) {
	s.audit.Log(audit.Event{
		Type:         messages.AuditGenerationFailure,
		UserIP:       userIP,
		DocumentType: req.DocumentType,
		Model:        model,
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
