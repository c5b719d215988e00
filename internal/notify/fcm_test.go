package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/spec-kit/averias/internal/config"
	"github.com/spec-kit/averias/internal/domain"
)

type fakeDevices struct {
	mu          sync.Mutex
	devices     []domain.Device
	deactivated []string
	touched     []string
}

func (f *fakeDevices) ListActiveByUser(_ context.Context, userID string) ([]domain.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Device
	for _, d := range f.devices {
		if d.UserID == userID && d.Active {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDevices) Deactivate(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deactivated = append(f.deactivated, token)
	return nil
}

func (f *fakeDevices) Touch(_ context.Context, token string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, token)
	return nil
}

func newTestNotifier(t *testing.T, handler http.HandlerFunc, devices *fakeDevices) *FCMNotifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.NotificationConfig{
		FCMProjectID:   "demo",
		FCMEndpoint:    srv.URL,
		BaseURL:        "https://averias.example/",
		TimeoutSeconds: 2,
	}
	tokens := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "secret"})
	return NewFCMNotifier(cfg, devices, tokens, zap.NewNop())
}

func assigned(id string) domain.Ticket {
	return domain.Ticket{
		ID:           "t-1",
		Number:       "AV-0001",
		LocationCode: "B01",
		LocationName: "Banca Centro",
		CategoryName: "Impresora",
		Status:       domain.TicketStatusPending,
		AssignedToID: &id,
	}
}

func TestNotifySendsToEachActiveDevice(t *testing.T) {
	devices := &fakeDevices{devices: []domain.Device{
		{ID: "d1", UserID: "tech", Token: "tok-1", Active: true},
		{ID: "d2", UserID: "tech", Token: "tok-2", Active: true},
		{ID: "d3", UserID: "other", Token: "tok-3", Active: true},
	}}
	var mu sync.Mutex
	var bodies []fcmMessage
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/projects/demo/messages:send", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var msg fcmMessage
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		mu.Lock()
		bodies = append(bodies, msg)
		mu.Unlock()
		_, _ = w.Write([]byte(`{"name":"projects/demo/messages/1"}`))
	}, devices)

	sent, err := n.NotifyTicketCreated(context.Background(), assigned("tech"))
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	require.Len(t, bodies, 2)
	assert.Equal(t, "Nuevo ticket AV-0001", bodies[0].Message.Notification.Title)
	assert.Equal(t, "B01 Banca Centro - Impresora", bodies[0].Message.Notification.Body)
	assert.Equal(t, "https://averias.example/tickets/t-1/", bodies[0].Message.Data["ticket_url"])
	assert.Equal(t, "PENDING", bodies[0].Message.Data["status"])
	assert.ElementsMatch(t, []string{"tok-1", "tok-2"}, devices.touched)
}

func TestNotifyDeactivatesUnregisteredTokens(t *testing.T) {
	devices := &fakeDevices{devices: []domain.Device{
		{ID: "d1", UserID: "tech", Token: "gone", Active: true},
		{ID: "d2", UserID: "tech", Token: "fine", Active: true},
	}}
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		var msg fcmMessage
		_ = json.NewDecoder(r.Body).Decode(&msg)
		if msg.Message.Token == "gone" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad","status":"INVALID_ARGUMENT","details":[{"errorCode":"UNREGISTERED"}]}}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}, devices)

	sent, err := n.NotifyTicketCreated(context.Background(), assigned("tech"))
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"gone"}, devices.deactivated)
}

func TestNotifyReportsServerErrors(t *testing.T) {
	devices := &fakeDevices{devices: []domain.Device{{ID: "d1", UserID: "tech", Token: "tok", Active: true}}}
	n := newTestNotifier(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":500,"message":"backend down"}}`))
	}, devices)

	sent, err := n.NotifyTicketCreated(context.Background(), assigned("tech"))
	assert.Equal(t, 0, sent)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "backend down"))
}

func TestNotifyWithoutAssigneeOrDevices(t *testing.T) {
	called := false
	n := newTestNotifier(t, func(http.ResponseWriter, *http.Request) { called = true }, &fakeDevices{})

	sent, err := n.NotifyTicketCreated(context.Background(), domain.Ticket{ID: "x"})
	assert.NoError(t, err)
	assert.Zero(t, sent)

	sent, err = n.NotifyTicketCreated(context.Background(), assigned("nobody"))
	assert.NoError(t, err)
	assert.Zero(t, sent)
	assert.False(t, called)
}

type stalledTokens struct{ release chan struct{} }

func (s stalledTokens) Token() (*oauth2.Token, error) {
	<-s.release
	return &oauth2.Token{AccessToken: "late"}, nil
}

func TestNotifyTokenFetchHonoursContext(t *testing.T) {
	devices := &fakeDevices{devices: []domain.Device{{ID: "d1", UserID: "tech", Token: "tok", Active: true}}}
	called := false
	n := newTestNotifier(t, func(http.ResponseWriter, *http.Request) { called = true }, devices)
	tokens := stalledTokens{release: make(chan struct{})}
	defer close(tokens.release)
	n.tokens = tokens

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	sent, err := n.NotifyTicketCreated(ctx, assigned("tech"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, sent)
	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, called)
}

func TestTokenSourceFromFileRejectsMissingFile(t *testing.T) {
	_, err := TokenSourceFromFile(context.Background(), t.TempDir()+"/missing.json", time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read fcm credentials")
}
