package security

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer は外部APIから受け取ったプロフィール文字列（bio、表示名）から
// HTMLタグを取り除く。結果はJSONでそのまま返し、トップページではtextContentで描画する。
type TextSanitizer interface {
	SanitizeText(s string) string
}

type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はタグを一切許可しないbluemondayのStrictPolicyでTextSanitizerを生成する。
func NewTextSanitizer() TextSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// SanitizeText は全タグを除去した文字列を返す。
// StrictPolicyはテキスト部分もエスケープするため、エンティティは元の文字に戻す。
func (s *textSanitizer) SanitizeText(text string) string {
	if text == "" {
		return ""
	}
	return html.UnescapeString(s.policy.Sanitize(text))
}
