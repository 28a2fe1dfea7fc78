package lesson

import "regexp"

// mentionPattern は授業メモ内のリソース参照 @[タイトル](リソースID) にマッチする。
var mentionPattern = regexp.MustCompile(`@\[([^\]]*)\]\(([^)\s]+)\)`)

// Mention は授業メモ内の1件のリソース参照。
type Mention struct {
	Title      string
	ResourceID string
}

// ExtractMentions は本文中のリソース参照を出現順に返す。
// 同じリソースIDは最初の1件のみ返す。
func ExtractMentions(text string) []Mention {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	mentions := make([]Mention, 0, len(matches))
	for _, m := range matches {
		id := m[2]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		mentions = append(mentions, Mention{Title: m[1], ResourceID: id})
	}
	return mentions
}

// MentionedResourceIDs は本文中で参照されているリソースIDを出現順に返す。
func MentionedResourceIDs(text string) []string {
	mentions := ExtractMentions(text)
	ids := make([]string, len(mentions))
	for i, m := range mentions {
		ids[i] = m.ResourceID
	}
	return ids
}
