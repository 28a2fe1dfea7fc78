package resource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/planneredu/internal/metrics"
	"github.com/hitoshi/planneredu/internal/model"
	"github.com/hitoshi/planneredu/internal/security"
	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"
)

// SSRFValidator はSSRF検証のインターフェース。
// security.SSRFGuardServiceを抽象化してテストで差し替えられるようにする。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration) *http.Client
}

// maxDescriptionRunes はプレビュー説明文の最大文字数。
const maxDescriptionRunes = 500

// feedContentTypes はフィードとして扱うContent-Type。
var feedContentTypes = []string{
	"application/rss+xml",
	"application/atom+xml",
	"application/feed+json",
}

// Previewer はリソースURLからタイトルと説明文を取得する。
// RSS/Atom（ポッドキャスト等）はgofeedで、HTMLはheadのtitle・metaから抽出する。
type Previewer struct {
	guard     SSRFValidator
	sanitizer security.HTMLSanitizer
	metrics   metrics.MetricsCollector
	timeout   time.Duration
	maxSize   int64
}

// NewPreviewer はPreviewerの新しいインスタンスを生成する。
func NewPreviewer(guard SSRFValidator, sanitizer security.HTMLSanitizer, collector metrics.MetricsCollector, timeout time.Duration, maxSize int64) *Previewer {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Previewer{
		guard:     guard,
		sanitizer: sanitizer,
		metrics:   collector,
		timeout:   timeout,
		maxSize:   maxSize,
	}
}

// Preview は指定URLのプレビューを取得する。
// 取得・解析に失敗した場合はPREVIEW_FAILEDを返す。
func (p *Previewer) Preview(ctx context.Context, rawURL string) (*model.ResourcePreview, error) {
	preview, err := p.fetch(ctx, rawURL)
	p.metrics.RecordPreview(err == nil)
	return preview, err
}

func (p *Previewer) fetch(ctx context.Context, rawURL string) (*model.ResourcePreview, error) {
	rawURL = strings.TrimSpace(rawURL)
	if err := checkURLShape(rawURL); err != nil {
		return nil, err
	}
	if err := p.guard.ValidateURL(rawURL); err != nil {
		return nil, model.NewSSRFBlockedError()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, model.NewInvalidURLError(err.Error())
	}
	req.Header.Set("User-Agent", "PlannerEdu/1.0 (+resource preview)")
	req.Header.Set("Accept", "text/html, application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.5")

	resp, err := p.guard.NewSafeClient(p.timeout).Do(req)
	if err != nil {
		return nil, model.NewPreviewFailedError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, model.NewPreviewFailedError(fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	// 上限+1バイトまで読み、超過していれば打ち切る
	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxSize+1))
	if err != nil {
		return nil, model.NewPreviewFailedError(fmt.Sprintf("read body: %v", err))
	}
	if int64(len(body)) > p.maxSize {
		return nil, model.NewPreviewFailedError(fmt.Sprintf("response exceeds %d bytes", p.maxSize))
	}

	preview := &model.ResourcePreview{URL: rawURL}
	mediaType := mediaTypeOf(resp.Header.Get("Content-Type"))

	switch {
	case isFeed(mediaType, body):
		feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
		if err != nil {
			return nil, model.NewPreviewFailedError(fmt.Sprintf("parse feed: %v", err))
		}
		preview.IsFeed = true
		preview.Title = feed.Title
		preview.Description = feed.Description
	case strings.Contains(mediaType, "html"):
		preview.Title, preview.Description = parseHTMLHead(body)
	default:
		return nil, model.NewPreviewFailedError(fmt.Sprintf("unsupported content type %q", mediaType))
	}

	preview.Title = p.clean(preview.Title, 0)
	preview.Description = p.clean(preview.Description, maxDescriptionRunes)
	if preview.Title == "" && preview.Description == "" {
		return nil, model.NewPreviewFailedError("no title or description found")
	}
	return preview, nil
}

// clean はタグを除去して空白を詰め、maxRunes文字（0は無制限）に切り詰める。
func (p *Previewer) clean(s string, maxRunes int) string {
	s = strings.Join(strings.Fields(p.sanitizer.StripTags(s)), " ")
	s = html.UnescapeString(s)
	if maxRunes > 0 && utf8.RuneCountInString(s) > maxRunes {
		s = string([]rune(s)[:maxRunes]) + "…"
	}
	return s
}

func mediaTypeOf(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	return strings.ToLower(mediaType)
}

// isFeed はContent-Typeとボディ先頭からRSS/Atomかを判定する。
func isFeed(mediaType string, body []byte) bool {
	for _, ct := range feedContentTypes {
		if mediaType == ct {
			return true
		}
	}
	if mediaType != "text/xml" && mediaType != "application/xml" {
		return false
	}

	prefix := body
	if len(prefix) > 4096 {
		prefix = prefix[:4096]
	}
	lower := bytes.ToLower(prefix)
	return bytes.Contains(lower, []byte("<rss")) ||
		bytes.Contains(lower, []byte("<rdf:rdf")) ||
		bytes.Contains(lower, []byte("<feed"))
}

// parseHTMLHead はHTMLのheadからタイトルと説明文を取り出す。
// 説明文はmeta name=description、なければog:descriptionを使う。
// titleタグがなければog:titleを使う。
func parseHTMLHead(body []byte) (title, description string) {
	var ogTitle, ogDescription string
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	inTitle := false

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return pick(title, ogTitle), pick(description, ogDescription)

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			switch string(tn) {
			case "title":
				inTitle = true
			case "body":
				return pick(title, ogTitle), pick(description, ogDescription)
			case "meta":
				if !hasAttr {
					continue
				}
				var name, content string
				for {
					key, val, more := tokenizer.TagAttr()
					switch strings.ToLower(string(key)) {
					case "name", "property":
						name = strings.ToLower(string(val))
					case "content":
						content = string(val)
					}
					if !more {
						break
					}
				}
				switch name {
				case "description":
					description = content
				case "og:description":
					ogDescription = content
				case "og:title":
					ogTitle = content
				}
			}

		case html.TextToken:
			if inTitle && title == "" {
				title = string(tokenizer.Text())
			}

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			switch string(tn) {
			case "title":
				inTitle = false
			case "head":
				return pick(title, ogTitle), pick(description, ogDescription)
			}
		}
	}
}

func pick(primary, fallback string) string {
	if strings.TrimSpace(primary) != "" {
		return primary
	}
	return fallback
}
