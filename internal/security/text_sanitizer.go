package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService は外部サイトから取得したテキストのサニタイズ機能の
// インターフェースを定義する。天気ページからスクレイピングした天気状況の
// 文字列を保存・応答する前に使用される。
type TextSanitizerService interface {
	// SanitizeText はテキストから全てのHTMLタグを除去してプレーンテキストを返す。
	// scriptタグやon*イベント属性を含む全てのマークアップが除去される。
	// HTMLエンティティ（&amp;等）はデコードされる。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは全てのタグと属性を除去し、テキストノードのみを残す。
// スクレイピング結果は表示用の短いフレーズ（"partly cloudy"等）であり、
// マークアップを保持する必要がないため許可リストは空でよい。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText はテキストから全てのHTMLタグを除去してプレーンテキストを返す。
// bluemondayはエスケープ済みのエンティティを出力するため、
// 表示用テキストとして扱えるようhtml.UnescapeStringでデコードする。
func (s *textSanitizer) SanitizeText(raw string) string {
	cleaned := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}
