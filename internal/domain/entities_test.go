package domain

import (
	"errors"
	"testing"
)

func TestCompareIDs(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"10", "9", 1},
		{"9", "10", -1},
		{"17953", "17953", 0},
		{"0012", "12", 0},
		{"18000000000000001", "18000000000000002", -1},
	}
	for _, c := range cases {
		if got := CompareIDs(c.a, c.b); got != c.want {
			t.Fatalf("CompareIDs(%s, %s): ожидали %d, получили %d", c.a, c.b, c.want, got)
		}
	}
}

func TestStatFieldValid(t *testing.T) {
	if !StatDMsSent.Valid() {
		t.Fatal("dms_sent должен быть допустимым")
	}
	if StatField("id; DROP TABLE statistics").Valid() {
		t.Fatal("произвольная строка не должна проходить проверку")
	}
}

func TestIsQuotaMessage(t *testing.T) {
	quota := []string{"Rate limit reached", "HTTP 429 Too Many Requests", "RESOURCE_EXHAUSTED", "quota exceeded"}
	for _, msg := range quota {
		if !IsQuotaMessage(errors.New(msg)) {
			t.Fatalf("ожидали квоту для %q", msg)
		}
	}
	other := []string{"invalid api key", `Post "https://x/models/gemini-2.5-flash:generateContent": dial tcp: i/o timeout`, "generate failed"}
	for _, msg := range other {
		if IsQuotaMessage(errors.New(msg)) {
			t.Fatalf("не ожидали квоту для %q", msg)
		}
	}
	if IsQuotaMessage(nil) {
		t.Fatal("nil не квота")
	}
}
