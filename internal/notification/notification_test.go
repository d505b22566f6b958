package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/pot-code/learnhub/internal/infrastructure/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu    sync.Mutex
	items []*Notification
	email string
}

func (r *memoryRepo) Insert(ctx context.Context, n *Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *n
	r.items = append(r.items, &cp)
	return nil
}

func (r *memoryRepo) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*Notification
	for _, n := range r.items {
		if n.UserID == userID && (!unreadOnly || !n.Read) && len(result) < limit {
			result = append(result, n)
		}
	}
	return result, nil
}

func (r *memoryRepo) MarkRead(ctx context.Context, userID, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.items {
		if n.ID == id && n.UserID == userID {
			n.Read = true
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, item := range r.items {
		if item.UserID == userID && !item.Read {
			item.Read = true
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) Recipient(ctx context.Context, userID string) (string, string, error) {
	return r.email, "alice", nil
}

type recordingPusher struct {
	users    []string
	messages []interface{}
}

func (rp *recordingPusher) SendToUser(userID string, message interface{}) int {
	rp.users = append(rp.users, userID)
	rp.messages = append(rp.messages, message)
	return 1
}

type failingMailer struct{ calls int }

func (fm *failingMailer) Send(ctx context.Context, toEmail, toName string, n *Notification) error {
	fm.calls++
	return errors.New("smtp down")
}

func TestNotify(t *testing.T) {
	ctx := context.Background()
	repo := &memoryRepo{email: "alice@example.com"}
	pusher := &recordingPusher{}
	mailer := &failingMailer{}
	nu := NewNotificationUseCase(repo, uuid.V4Generator{}, pusher, mailer)

	n := &Notification{UserID: "u1", Title: "Welcome", Message: "hello"}
	require.NoError(t, nu.Notify(ctx, n), "delivery failures are not fatal")
	assert.True(t, uuid.IsValid(n.ID))
	assert.Equal(t, KindInfo, n.Kind)
	assert.Equal(t, []string{"u1"}, pusher.users)
	assert.Equal(t, "NOTIFICATION", pusher.messages[0].(map[string]interface{})["type"])
	assert.Equal(t, 1, mailer.calls)

	repo.email = ""
	require.NoError(t, nu.Notify(ctx, &Notification{UserID: "u1", Title: "Second"}))
	assert.Equal(t, 1, mailer.calls, "no mail without an address")
}

func TestNotifyWithoutDelivery(t *testing.T) {
	repo := &memoryRepo{}
	nu := NewNotificationUseCase(repo, uuid.V4Generator{}, nil, nil)
	require.NoError(t, nu.Notify(context.Background(), &Notification{UserID: "u1", Title: "x"}))
	assert.Len(t, repo.items, 1)
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()
	repo := &memoryRepo{}
	nu := NewNotificationUseCase(repo, uuid.V4Generator{}, nil, nil)
	a := &Notification{UserID: "u1", Title: "a"}
	b := &Notification{UserID: "u1", Title: "b"}
	require.NoError(t, nu.Notify(ctx, a))
	require.NoError(t, nu.Notify(ctx, b))
	require.NoError(t, nu.Notify(ctx, &Notification{UserID: "u2", Title: "c"}))

	require.NoError(t, nu.MarkRead(ctx, "u1", a.ID))
	assert.Equal(t, ErrNotificationNotFound, nu.MarkRead(ctx, "u2", b.ID))

	unread, err := nu.List(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, b.ID, unread[0].ID)

	n, err := nu.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	unread, _ = nu.List(ctx, "u1", true)
	assert.Empty(t, unread)
}

func TestSendGridMailer(t *testing.T) {
	var (
		auth string
		body map[string]interface{}
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.Equal(t, sendGridEndpoint, r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sm := NewSendGridMailer("sg-key", "Learnhub", "noreply@example.com", "https://learnhub.example.com")
	sm.host = server.URL
	err := sm.Send(context.Background(), "alice@example.com", "alice", &Notification{
		Title:   "Achievement unlocked",
		Message: "You finished <Go>",
		Link:    "/achievements",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer sg-key", auth)

	p := body["personalizations"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "[Learnhub] Achievement unlocked", p["subject"])
	content := body["content"].([]interface{})
	assert.Contains(t, content[0].(map[string]interface{})["value"], "https://learnhub.example.com/achievements")
	assert.Contains(t, content[1].(map[string]interface{})["value"], "&lt;Go&gt;")
}

func TestSendGridMailerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer server.Close()

	sm := NewSendGridMailer("bad", "Learnhub", "noreply@example.com", "")
	sm.host = server.URL
	err := sm.Send(context.Background(), "alice@example.com", "alice", &Notification{Title: "x", Message: "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
