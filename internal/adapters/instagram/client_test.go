package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ig-comment-bot/internal/domain"
	"ig-comment-bot/internal/infra/cache"
)

func newGateway(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second)
}

func TestLoginStoresSelfAndSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Username != "shop" || string(req.Settings) != `{"uuid":"1"}` {
			t.Errorf("неожиданный запрос %+v", req)
		}
		_, _ = w.Write([]byte(`{"user_id": 42, "session_id": "s-1", "settings": {"uuid":"2"}}`))
	})
	mux.HandleFunc("/media/user_medias", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Session-ID") != "s-1" {
			t.Errorf("нет заголовка сессии")
		}
		if r.URL.Query().Get("user_id") != "42" || r.URL.Query().Get("amount") != "10" {
			t.Errorf("неожиданные параметры %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`[{"pk":"100","code":"abc"},{"pk":101,"code":"def"}]`))
	})
	c := newGateway(t, mux)

	blob, err := c.Login(context.Background(), domain.Credentials{Username: "shop", Password: "pw"}, []byte(`{"uuid":"1"}`))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if string(blob) != `{"uuid":"2"}` {
		t.Fatalf("ожидали обновлённую сессию, получили %s", blob)
	}
	if c.SelfID() != "42" {
		t.Fatalf("ожидали self id 42, получили %s", c.SelfID())
	}
	posts, err := c.ListRecentPosts(context.Background(), 10)
	if err != nil {
		t.Fatalf("posts: %v", err)
	}
	if len(posts) != 2 || posts[0].ID != "100" || posts[1].ID != "101" || posts[1].Code != "def" {
		t.Fatalf("неожиданные посты %+v", posts)
	}
}

func TestLoginChallengeIsAuthError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"challenge_required"}`))
	})
	c := newGateway(t, mux)
	if _, err := c.Login(context.Background(), domain.Credentials{Username: "u", Password: "p"}, nil); !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("ожидали ErrAuth, получили %v", err)
	}
}

func TestListCommentsMapsAuthor(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/media/comments", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("media_id") != "100" {
			t.Errorf("неожиданный media_id %s", r.URL.Query().Get("media_id"))
		}
		_, _ = w.Write([]byte(`[{"pk":"9","text":"link pls","user":{"pk":7,"username":"ali"}}]`))
	})
	c := newGateway(t, mux)
	comments, err := c.ListComments(context.Background(), domain.Post{ID: "100"}, 30)
	if err != nil {
		t.Fatalf("comments: %v", err)
	}
	want := domain.Comment{ID: "9", PostID: "100", AuthorID: "7", AuthorHandle: "ali", Text: "link pls"}
	if len(comments) != 1 || comments[0] != want {
		t.Fatalf("ожидали %+v, получили %+v", want, comments)
	}
}

func TestReplyAndDirectBodies(t *testing.T) {
	var reply replyRequest
	var direct directRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/media/comment", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&reply)
		_, _ = w.Write([]byte(`{"pk":"1"}`))
	})
	mux.HandleFunc("/direct/send", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&direct)
		w.WriteHeader(http.StatusNoContent)
	})
	c := newGateway(t, mux)
	ctx := context.Background()
	if err := c.ReplyToComment(ctx, domain.Post{ID: "100"}, "9", "@ali salom"); err != nil {
		t.Fatalf("reply: %v", err)
	}
	if err := c.SendDirectMessage(ctx, "7", "hi"); err != nil {
		t.Fatalf("direct: %v", err)
	}
	if reply.MediaID != "100" || reply.RepliedToCommentID != "9" || reply.Text != "@ali salom" {
		t.Fatalf("неожиданный ответ %+v", reply)
	}
	if len(direct.UserIDs) != 1 || direct.UserIDs[0] != "7" || direct.Text != "hi" {
		t.Fatalf("неожиданное сообщение %+v", direct)
	}
}

func TestStatusErrorsAreClassified(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusUnauthorized)
	mux := http.NewServeMux()
	mux.HandleFunc("/user/friendship", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	})
	c := newGateway(t, mux)
	ctx := context.Background()

	if _, err := c.IsFollowing(ctx, "7"); !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("ожидали ErrAuth, получили %v", err)
	}
	status.Store(http.StatusBadGateway)
	if _, err := c.IsFollowing(ctx, "7"); !errors.Is(err, domain.ErrTransient) {
		t.Fatalf("ожидали ErrTransient, получили %v", err)
	}
	status.Store(http.StatusNotFound)
	_, err := c.IsFollowing(ctx, "7")
	if err == nil || errors.Is(err, domain.ErrAuth) || errors.Is(err, domain.ErrTransient) {
		t.Fatalf("404 должен быть обычной ошибкой, получили %v", err)
	}
}

type memCache struct {
	data map[string][]byte
	sets int
}

func (m *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.data[key] = value
	m.sets++
	return nil
}

func (m *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return v, nil
}

type countingFollow struct {
	domain.SocialClient
	answer bool
	calls  int
}

func (c *countingFollow) IsFollowing(ctx context.Context, userID string) (bool, error) {
	c.calls++
	return c.answer, nil
}

func TestFollowCacheOnlyRemembersPositive(t *testing.T) {
	ctx := context.Background()
	mc := &memCache{data: map[string][]byte{}}
	inner := &countingFollow{answer: false}
	fc := NewFollowCache(inner, mc, time.Minute, zerolog.Nop())

	for i := 0; i < 2; i++ {
		if ok, _ := fc.IsFollowing(ctx, "7"); ok {
			t.Fatal("ожидали false")
		}
	}
	if inner.calls != 2 || mc.sets != 0 {
		t.Fatalf("отрицательный ответ не должен кэшироваться: calls=%d sets=%d", inner.calls, mc.sets)
	}

	inner.answer = true
	for i := 0; i < 3; i++ {
		if ok, _ := fc.IsFollowing(ctx, "7"); !ok {
			t.Fatal("ожидали true")
		}
	}
	if inner.calls != 3 || mc.sets != 1 {
		t.Fatalf("положительный ответ должен браться из кэша: calls=%d sets=%d", inner.calls, mc.sets)
	}
}
