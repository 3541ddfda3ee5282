package rag_http

import "rag-assistant/internal/domain"

type errorResponse struct {
	Error string `json:"error"`
}

// AnswerRequest is the body of POST /v1/rag/answer.
type AnswerRequest struct {
	Query    string `json:"query"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	APIKey   string `json:"apiKey,omitempty"`
}

// PromptRequest is the legacy body of POST /prompt.
type PromptRequest struct {
	Prompt   string `json:"prompt"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	APIKey   string `json:"apiKey,omitempty"`
}

type RankedDocumentResponse struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	Similarity  float64 `json:"similarity"`
	RerankScore float64 `json:"rerank_score"`
}

type AnswerResponse struct {
	Answer      string                   `json:"answer"`
	Documents   []RankedDocumentResponse `json:"documents"`
	RetrievalID string                   `json:"retrieval_id"`
	Queries     []string                 `json:"queries"`
	Metric      string                   `json:"metric"`
	Provider    string                   `json:"provider"`
	Model       string                   `json:"model"`
}

type PromptResponse struct {
	Answer string `json:"answer"`
	// Docs carry one metric-specific score field each, named as in search results.
	Docs []map[string]any `json:"docs"`
}

type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type SearchResponse struct {
	// Results carry one metric-specific score field each.
	Results      []map[string]any `json:"results"`
	MetricUsed   string           `json:"metric_used"`
	TotalResults int              `json:"total_results"`
}

type DocumentInput struct {
	Title          string `json:"title,omitempty"`
	Content        string `json:"content"`
	SourceLocation string `json:"sourceLocation,omitempty"`
}

// AddDocumentsRequest accepts bare contents, full documents, or both.
type AddDocumentsRequest struct {
	Contents  []string        `json:"contents,omitempty"`
	Documents []DocumentInput `json:"documents,omitempty"`
}

type AddDocumentsResponse struct {
	Status         string `json:"status"`
	Received       int    `json:"received"`
	Inserted       int64  `json:"inserted"`
	Skipped        int64  `json:"skipped"`
	EmbeddingModel string `json:"embedding_model"`
}

// SettingsPatch updates only the fields present.
type SettingsPatch struct {
	EmbeddingModel *string `json:"embeddingModel,omitempty"`
	Metric         *string `json:"metric,omitempty"`
	Provider       *string `json:"llmProvider,omitempty"`
	Model          *string `json:"model,omitempty"`
}

type SettingsResponse struct {
	Status   string                   `json:"status"`
	Settings domain.RetrievalSettings `json:"settings"`
}

// metricScoreField names the score field used in search results.
func metricScoreField(m domain.Metric) string {
	switch m {
	case domain.MetricL2:
		return "l2_distance"
	case domain.MetricInnerProduct:
		return "inner_product_score"
	default:
		return "similarity_percent"
	}
}

func metricScoreValue(m domain.Metric, hit domain.SearchHit) float64 {
	if m == domain.MetricL2 {
		return hit.Distance
	}
	return hit.Score
}

// rankedScoreValue is metricScoreValue for a ranked document, whose
// Similarity holds the hit's higher-is-better Score.
func rankedScoreValue(m domain.Metric, d domain.RankedDocument) float64 {
	if m == domain.MetricL2 {
		return -d.Similarity
	}
	return d.Similarity
}
