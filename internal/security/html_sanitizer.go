// Package security はアプリケーションのセキュリティ機能を提供する。
//
// HTMLSanitizer は授業メモ・コンポーネント説明・リソース説明のリッチテキストを
// 保存前にサニタイズする。外部サイトから取得したプレビュー文字列は
// StripTagsでタグをすべて取り除く。
package security

import (
	"net/url"

	"github.com/microcosm-cc/bluemonday"
)

// HTMLSanitizer はHTMLサニタイズ機能のインターフェース。
type HTMLSanitizer interface {
	// Sanitize はリッチテキストエディタのHTMLを許可リストに沿ってサニタイズする。
	// 許可タグ: p, br, ul, ol, li, blockquote, pre, code, strong, em, u, s, h1〜h3, a, img
	// aタグにはtarget="_blank"とrel="noopener noreferrer"が付与され、imgのsrcはhttpsのみ許可される。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawHTML string) string

	// StripTags はすべてのタグを除去したテキストを返す。
	StripTags(raw string) string
}

// htmlSanitizer はHTMLSanitizerの実装。
// bluemondayのPolicyは生成後はスレッドセーフに利用できる。
type htmlSanitizer struct {
	rich   *bluemonday.Policy
	strict *bluemonday.Policy
}

// NewHTMLSanitizer はHTMLSanitizerの新しいインスタンスを生成する。
func NewHTMLSanitizer() *htmlSanitizer {
	p := bluemonday.NewPolicy()

	// script, iframe, style等は許可リストに含めないことで除去される
	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em", "u", "s",
		"h1", "h2", "h3",
	)

	// リソースへのリンク（メンション）は絶対URLのみ許可
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	p.AllowAttrs("src", "alt").OnElements("img")
	p.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return true
	})

	return &htmlSanitizer{
		rich:   p,
		strict: bluemonday.StrictPolicy(),
	}
}

// Sanitize はリッチテキストHTMLをサニタイズする。
func (s *htmlSanitizer) Sanitize(rawHTML string) string {
	return s.rich.Sanitize(rawHTML)
}

// StripTags はすべてのタグを除去する。
func (s *htmlSanitizer) StripTags(raw string) string {
	return s.strict.Sanitize(raw)
}
