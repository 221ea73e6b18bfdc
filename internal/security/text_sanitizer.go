// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は気分投稿のテキストからHTMLを取り除き、プレーンテキストとして保存できる形にする。
// OutboundGuard は住所検索などの外部HTTP呼び出しでSSRFを防止する。
package security

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService は投稿テキストのサニタイズ機能のインターフェースを定義する。
type TextSanitizerService interface {
	// Sanitize はHTMLタグを全て除去したプレーンテキストを返す。
	// script, styleタグは中身ごと除去する。制御文字（改行とタブを除く）は取り除き、前後の空白を詰める。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はタグを一切許可しないbluemondayポリシーでTextSanitizerServiceを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// maxSanitizePasses はエンティティの多重エスケープを剥がす最大回数。
const maxSanitizePasses = 8

// Sanitize はHTMLタグを全て除去したプレーンテキストを返す。
// エスケープされたタグ（&lt;b&gt; など）は戻した後に再度除去し、出力が変化しなくなるまで繰り返す。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}

	text := raw
	for i := 0; i < maxSanitizePasses; i++ {
		next := s.pass(text)
		if next == text {
			return next
		}
		text = next
	}

	// 上限まで変化し続けた入力はタグとエンティティの記号ごと落とす
	return strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '&':
			return -1
		}
		return r
	}, text)
}

// pass はポリシーでタグを除去し、プレーンテキストへ戻す1回分の処理。
// StrictPolicyの出力はHTMLエスケープ済みのため、保存用に戻す。表示時のエスケープは描画側の責務とする。
func (s *textSanitizer) pass(text string) string {
	stripped := html.UnescapeString(s.policy.Sanitize(text))

	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, stripped)

	return strings.TrimSpace(cleaned)
}
