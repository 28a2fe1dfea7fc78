// Package locale はAccept-Languageからの表示ロケール解決と翻訳メッセージを提供する。
package locale

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/hitoshi/planneredu/internal/planning"
)

//go:embed locales/*.json
var localeFS embed.FS

// メッセージID
const (
	MsgCalendarName    = "CalendarName"
	MsgClassDay        = "ClassDay"
	MsgLessonCount     = "LessonCount"
	MsgWorkloadSummary = "WorkloadSummary"
)

// formats はサポートする言語タグと日付表示形式の対応。
var formats = map[string]planning.Locale{
	"pt-BR": planning.LocalePTBR,
	"en":    planning.LocaleEN,
}

// Registry は翻訳バンドルと言語マッチャーを保持する。
// 生成後は読み取り専用のため、複数のgoroutineから同時に利用できる。
type Registry struct {
	bundle     *i18n.Bundle
	matcher    language.Matcher
	supported  []string
	defaultTag string
}

// NewRegistry は埋め込みのロケールファイルを読み込んでRegistryを生成する。
// defaultLocaleがサポート外の場合はpt-BRを既定とする。
func NewRegistry(defaultLocale string) (*Registry, error) {
	bundle := i18n.NewBundle(language.BrazilianPortuguese)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("failed to read locales: %w", err)
	}
	for _, entry := range entries {
		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+entry.Name()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", entry.Name(), err)
		}
	}

	defaultTag := canonical(defaultLocale)
	if _, ok := formats[defaultTag]; !ok {
		slog.Warn("unsupported default locale, falling back to pt-BR",
			slog.String("locale", defaultLocale),
		)
		defaultTag = "pt-BR"
	}

	// マッチしない場合はMatcherが先頭のタグを返すため、既定のロケールを先頭に置く
	supported := []string{defaultTag}
	for tag := range formats {
		if tag != defaultTag {
			supported = append(supported, tag)
		}
	}
	tags := make([]language.Tag, len(supported))
	for i, s := range supported {
		tags[i] = language.MustParse(s)
	}

	return &Registry{
		bundle:     bundle,
		matcher:    language.NewMatcher(tags),
		supported:  supported,
		defaultTag: defaultTag,
	}, nil
}

// canonical はpt_br、PT-BR、en-USなどの表記をサポート対象のタグ表記に寄せる。
func canonical(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "-")
	switch strings.ToLower(s) {
	case "pt", "pt-br":
		return "pt-BR"
	case "en", "en-us", "en-gb":
		return "en"
	}
	return s
}

// Resolve はAccept-Languageヘッダーの値から表示ロケールを決定する。
// 空・解析不能・マッチしない場合は既定のロケールを返す。
func (r *Registry) Resolve(acceptLanguage string) *Locale {
	tag := r.defaultTag
	if acceptLanguage != "" {
		if prefs, _, err := language.ParseAcceptLanguage(acceptLanguage); err == nil && len(prefs) > 0 {
			_, idx, conf := r.matcher.Match(prefs...)
			if conf != language.No {
				tag = r.supported[idx]
			}
		}
	}
	return r.Get(tag)
}

// Get は指定タグのLocaleを返す。サポート外のタグは既定のロケールになる。
func (r *Registry) Get(tag string) *Locale {
	tag = canonical(tag)
	format, ok := formats[tag]
	if !ok {
		tag = r.defaultTag
		format = formats[tag]
	}
	return &Locale{
		Tag:       tag,
		Format:    format,
		localizer: i18n.NewLocalizer(r.bundle, tag),
	}
}

// Default は既定のロケールを返す。
func (r *Registry) Default() *Locale {
	return r.Get(r.defaultTag)
}

// Locale は1リクエスト分の表示ロケール。
type Locale struct {
	Tag    string
	Format planning.Locale

	localizer *i18n.Localizer
}

// Message はメッセージIDを翻訳する。翻訳が見つからない場合はIDをそのまま返す。
func (l *Locale) Message(id string, data map[string]any) string {
	msg, err := l.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
	})
	if err != nil {
		slog.Debug("translation missing",
			slog.String("locale", l.Tag),
			slog.String("message_id", id),
			slog.String("error", err.Error()),
		)
		return id
	}
	return msg
}

// Plural は件数に応じた複数形のメッセージを返す。テンプレートには.Countとして渡される。
func (l *Locale) Plural(id string, count int) string {
	msg, err := l.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: map[string]any{"Count": count},
		PluralCount:  count,
	})
	if err != nil {
		return fmt.Sprintf("%d", count)
	}
	return msg
}

// FormatDuration は分数を "1h05min" 形式で表す。
func (l *Locale) FormatDuration(minutes int) string {
	return planning.SplitMinutes(minutes).String()
}
