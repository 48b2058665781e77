package keywords

import (
	"testing"

	"ig-comment-bot/internal/domain"
)

func newResolver() *Resolver {
	return New([]domain.KeywordMapping{
		{Keyword: "link", URL: "https://a"},
		{Keyword: " Narx ", URL: "https://price"},
		{Keyword: "LINK", URL: "https://dup"},
	}, "https://d")
}

func TestResolveCaseInsensitiveSubstring(t *testing.T) {
	r := newResolver()
	cases := map[string]string{
		"Please send LINK": "link",
		"narxi qancha?":    "narx",
		"salom":            "",
	}
	for text, want := range cases {
		got, ok := r.Resolve(text)
		if want == "" {
			if ok {
				t.Fatalf("не ожидали совпадения для %q, получили %s", text, got)
			}
			continue
		}
		if !ok || got != want {
			t.Fatalf("для %q ожидали %s, получили %s", text, want, got)
		}
	}
}

func TestResolveFirstConfiguredWins(t *testing.T) {
	r := newResolver()
	got, ok := r.Resolve("narx va link")
	if !ok || got != "link" {
		t.Fatalf("ожидали link по порядку настройки, получили %s", got)
	}
}

func TestContentForFallsBackToDefault(t *testing.T) {
	r := newResolver()
	if got := r.ContentFor("link"); got != "https://a" {
		t.Fatalf("ожидали https://a, получили %s", got)
	}
	if got := r.ContentFor("unknown"); got != "https://d" {
		t.Fatalf("ожидали https://d, получили %s", got)
	}
	if kws := r.Keywords(); len(kws) != 2 || kws[0] != "link" || kws[1] != "narx" {
		t.Fatalf("неожиданные ключевые слова %v", kws)
	}
}

func TestSymbolAliasRequiresPlusKeyword(t *testing.T) {
	r := newResolver()
	if _, ok := r.Resolve("+"); ok {
		t.Fatal("без ключевого слова plus символ не должен срабатывать")
	}
	r = New([]domain.KeywordMapping{{Keyword: "plus", URL: "https://p"}}, "https://d")
	for _, text := range []string{"+", "➕ menga ham"} {
		got, ok := r.Resolve(text)
		if !ok || got != "plus" {
			t.Fatalf("для %q ожидали plus, получили %s", text, got)
		}
	}
}
