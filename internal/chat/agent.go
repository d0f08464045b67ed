// Package chat はOpenAI APIを利用した天気アシスタントを提供する。
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hitoshi/tenkiman/internal/model"
)

// noDataSummary は天気データが空の場合の要約の固定応答。
const noDataSummary = "No weather data available to summarize."

// noDataAnswer は天気データが空の場合の質問への固定応答。
const noDataAnswer = "No weather data available to answer the question."

// AskResponse は天気に関する質問への構造化された回答を表す。
type AskResponse struct {
	Answer         string   `json:"answer"`
	MatchingCities []string `json:"matchingCities"`
}

// Agent は都市の天気データをコンテキストとしてLLMに問い合わせる。
type Agent struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewAgent はAgentを生成する。
func NewAgent(apiKey, model string, logger *slog.Logger) *Agent {
	return &Agent{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

// NewAgentWithClient は外部で構築したOpenAIクライアントからAgentを生成する。
// テストでエンドポイントを差し替えるために使用する。
func NewAgentWithClient(client *openai.Client, model string, logger *slog.Logger) *Agent {
	return &Agent{
		client: client,
		model:  model,
		logger: logger,
	}
}

// Summarize は複数都市の天気の自然言語要約を生成する。
// 都市データが空の場合はAPIを呼ばず固定メッセージを返す。
func (a *Agent) Summarize(ctx context.Context, cities []*model.City) (string, error) {
	if len(cities) == 0 {
		return noDataSummary, nil
	}

	prompt := fmt.Sprintf(weatherSummaryPrompt, buildWeatherContext(cities))

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   150,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate weather summary: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("failed to generate weather summary: empty response")
	}

	a.logger.Debug("weather summary generated",
		slog.Int("cities", len(cities)),
	)

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Ask は都市の天気に関する自由質問に構造化された回答を返す。
// 都市データが空の場合はAPIを呼ばず固定メッセージを返す。
func (a *Agent) Ask(ctx context.Context, question string, cities []*model.City) (*AskResponse, error) {
	if len(cities) == 0 {
		return &AskResponse{
			Answer:         noDataAnswer,
			MatchingCities: []string{},
		}, nil
	}

	prompt := fmt.Sprintf(weatherQueryPrompt, buildWeatherContext(cities))

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
		MaxTokens:   150,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate weather response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("failed to generate weather response: empty response")
	}

	var answer AskResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &answer); err != nil {
		return nil, fmt.Errorf("failed to parse weather response: %w", err)
	}
	if answer.MatchingCities == nil {
		answer.MatchingCities = []string{}
	}

	return &answer, nil
}

// buildWeatherContext は都市リストをプロンプト用のコンテキスト文字列に変換する。
func buildWeatherContext(cities []*model.City) string {
	lines := make([]string, 0, len(cities))
	for _, city := range cities {
		lines = append(lines, fmt.Sprintf("- %s: %s, %d°C", city.Name, city.WeatherCondition, city.Temperature))
	}
	return strings.Join(lines, "\n")
}
