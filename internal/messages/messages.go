// Package messages holds the Japanese user-facing message catalog and the
// clinic-level presentation constants. Handlers and services reference these
// instead of embedding literals so the wording stays consistent across the
// sync and streaming paths.
package messages

import "fmt"

// Validation messages.
const (
	ValidationNoInput            = "カルテ情報を入力してください"
	ValidationInputTooShort      = "入力文字数が少なすぎます"
	ValidationInputTooLong       = "入力テキストが長すぎます"
	ValidationSuspiciousInput    = "入力テキストに不正なパターンが検出されました"
	ValidationEmptyText          = "入力テキストが空です"
	ValidationEvaluationNoOutput = "評価対象の出力がありません"
	ValidationPromptRequired     = "プロンプト内容を入力してください"
	ValidationEvalPromptRequired = "評価プロンプトの内容を入力してください"
)

// Configuration messages.
const (
	ConfigThresholdExceededNoGemini = "入力が長すぎますが、Geminiモデルが設定されていません"
	ConfigClaudeModelNotSet         = "Claudeモデルが設定されていません"
	ConfigGeminiModelNotSet         = "Geminiモデルが設定されていません"
	ConfigEvaluationModelMissing    = "GEMINI_EVALUATION_MODEL環境変数が設定されていません"
)

// Generic error messages.
const (
	ErrorInputError          = "入力エラーが発生しました"
	ErrorUsageSaveFailed     = "使用統計の保存に失敗しました"
	ErrorPromptNotFound      = "プロンプトが見つかりません"
	ErrorEvalPromptNotFound  = "%sの評価プロンプトが見つかりません"
	ErrorEvaluationAPIFailed = "評価中にエラーが発生しました: %s"
)

// SSE status messages.
const (
	StatusGenerationStart   = "文書生成を開始します..."
	StatusGenerating        = "文書を生成中..."
	StatusGeneratingElapsed = "文書を生成中... (%d秒経過)"
	StatusEvaluationStart   = "評価を開始します..."
	StatusEvaluating        = "評価中..."
	StatusEvaluatingElapsed = "評価中... (%d秒経過)"
)

// Success messages for prompt management.
const (
	SuccessPromptCreated     = "プロンプトを新規作成しました"
	SuccessPromptUpdated     = "プロンプトを更新しました"
	SuccessPromptDeleted     = "プロンプトを削除しました"
	SuccessEvalPromptCreated = "評価プロンプトを新規作成しました"
	SuccessEvalPromptUpdated = "評価プロンプトを更新しました"
	SuccessEvalPromptDeleted = "評価プロンプトを削除しました"
)

// Audit event names. These are log identifiers, never shown to end users.
const (
	AuditGenerationStart   = "文書生成開始"
	AuditGenerationSuccess = "文書生成完了"
	AuditGenerationFailure = "文書生成失敗"
	AuditEvaluationStart   = "評価開始"
	AuditEvaluationSuccess = "評価完了"
	AuditEvaluationFailure = "評価失敗"
	AuditPromptCreated     = "プロンプト作成"
	AuditPromptUpdated     = "プロンプト更新"
	AuditPromptDeleted     = "プロンプト削除"
	AuditEvalPromptSaved   = "評価プロンプト保存"
	AuditEvalPromptDeleted = "評価プロンプト削除"
)

// Presentation labels used by the statistics API.
const (
	DefaultDepartmentLabel = "全科共通"
	DefaultDoctorLabel     = "医師共通"
)

// DefaultScope is the catch-all value in the (department, document_type,
// doctor) prompt hierarchy.
const DefaultScope = "default"

// Document types the clinic produces.
var DocumentTypes = []string{"他院への紹介", "紹介元への逆紹介", "返書", "最終返書"}

// DefaultDocumentType is assumed when a request omits the document type.
const DefaultDocumentType = "他院への紹介"

// Departments and their doctors, for the settings API.
var (
	Departments              = []string{"default", "眼科"}
	DepartmentDoctorsMapping = map[string][]string{
		"default": {"default"},
		"眼科":      {"default", "橋本義弘"},
	}
)

// DefaultSummaryPrompt is the fallback generation instruction used when no
// prompt template is registered for any level of the hierarchy.
const DefaultSummaryPrompt = `
以下のカルテ情報を要約してください。これまでの治療内容を記載してください。
`

// Canonical output sections and the alias labels that fold into them.
var (
	DefaultSectionNames = []string{"現在の処方", "備考"}
	SectionAliases      = map[string]string{
		"その他": "備考",
		"補足":  "備考",
		"メモ":  "備考",
	}
	SectionAliasOrder = []string{"その他", "補足", "メモ"}
)

// AppType tags every usage record written by this service.
const AppType = "referral_letter"

// UnsupportedModel formats the configuration error for unknown model values.
func UnsupportedModel(model string) string {
	return fmt.Sprintf("サポートされていないモデル: %s", model)
}

// EvaluationPromptNotSet formats the validation error emitted when no active
// evaluation prompt exists for the document type.
func EvaluationPromptNotSet(documentType string) string {
	return fmt.Sprintf("%sの評価プロンプトが設定されていません", documentType)
}
