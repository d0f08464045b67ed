package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/hitoshi/tenkiman/internal/chat"
	"github.com/hitoshi/tenkiman/internal/metrics"
	"github.com/hitoshi/tenkiman/internal/model"
)

// ChatAgentInterface はチャットハンドラーが必要とするアシスタントインターフェース。
type ChatAgentInterface interface {
	// Summarize は複数都市の天気の自然言語要約を生成する。
	Summarize(ctx context.Context, cities []*model.City) (string, error)
	// Ask は天気に関する自由質問に構造化された回答を返す。
	Ask(ctx context.Context, question string, cities []*model.City) (*chat.AskResponse, error)
}

// CachedCityLister はチャットのコンテキストとなる都市キャッシュのインターフェース。
type CachedCityLister interface {
	ListCached(ctx context.Context) ([]*model.City, error)
}

// ChatHandler は天気アシスタントのHTTPハンドラー。
type ChatHandler struct {
	agent    ChatAgentInterface
	cities   CachedCityLister
	metrics  metrics.MetricsCollector
	validate *validator.Validate
}

// NewChatHandler はChatHandlerを生成する。
func NewChatHandler(agent ChatAgentInterface, cities CachedCityLister, collector metrics.MetricsCollector) *ChatHandler {
	return &ChatHandler{
		agent:    agent,
		cities:   cities,
		metrics:  collector,
		validate: validator.New(),
	}
}

// askRequest は天気質問リクエストのボディ。
type askRequest struct {
	Question string `json:"question" validate:"required"`
}

// summaryResponse は天気要約のAPIレスポンス。
type summaryResponse struct {
	Summary string `json:"summary"`
}

// askResponseBody は天気質問のAPIレスポンス。
type askResponseBody struct {
	Answer         string   `json:"answer"`
	MatchingCities []string `json:"matchingCities"`
}

// Summary はキャッシュ済み都市の天気要約を生成する。
// POST /api/v1/chat/summary
func (h *ChatHandler) Summary(w http.ResponseWriter, r *http.Request) {
	cities, err := h.cities.ListCached(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordChatRequest("summary")

	summary, err := h.agent.Summarize(r.Context(), cities)
	if err != nil {
		slog.Error("failed to generate weather summary", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusBadGateway, model.NewChatFailedError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summaryResponse{Summary: summary})
}

// Ask はキャッシュ済み都市の天気に関する質問に回答する。
// POST /api/v1/chat/ask
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError("JSONの解析に失敗しました"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError(err.Error()))
		return
	}

	cities, err := h.cities.ListCached(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordChatRequest("ask")

	answer, err := h.agent.Ask(r.Context(), req.Question, cities)
	if err != nil {
		slog.Error("failed to answer weather question", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusBadGateway, model.NewChatFailedError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(askResponseBody{
		Answer:         answer.Answer,
		MatchingCities: answer.MatchingCities,
	})
}
