package keywords

import (
	"strings"

	"ig-comment-bot/internal/domain"
)

// symbolAliases сопоставляет символы ключевым словам.
var symbolAliases = []struct {
	symbol  string
	keyword string
}{
	{"+", "plus"},
	{"➕", "plus"},
}

// Resolver находит ключевое слово в тексте комментария.
type Resolver struct {
	keywords   []string
	links      map[string]string
	defaultURL string
}

// New создаёт резолвер. Ключевые слова нормализуются, порядок сохраняется, дубликаты отбрасываются.
func New(mappings []domain.KeywordMapping, defaultURL string) *Resolver {
	r := &Resolver{links: make(map[string]string, len(mappings)), defaultURL: defaultURL}
	for _, m := range mappings {
		kw := normalize(m.Keyword)
		if kw == "" {
			continue
		}
		if _, ok := r.links[kw]; ok {
			continue
		}
		r.links[kw] = strings.TrimSpace(m.URL)
		r.keywords = append(r.keywords, kw)
	}
	return r
}

// Resolve возвращает первое подходящее ключевое слово.
func (r *Resolver) Resolve(text string) (string, bool) {
	for _, a := range symbolAliases {
		if !strings.Contains(text, a.symbol) {
			continue
		}
		if _, ok := r.links[a.keyword]; ok {
			return a.keyword, true
		}
	}
	lower := strings.ToLower(text)
	for _, kw := range r.keywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

// ContentFor возвращает ссылку для ключевого слова или ссылку по умолчанию.
func (r *Resolver) ContentFor(keyword string) string {
	if url, ok := r.links[normalize(keyword)]; ok && url != "" {
		return url
	}
	return r.defaultURL
}

// Keywords возвращает настроенные ключевые слова по порядку.
func (r *Resolver) Keywords() []string {
	return append([]string(nil), r.keywords...)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
