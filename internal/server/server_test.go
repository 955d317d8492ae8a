package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/amsaid/relayconsole/internal/config"
	"github.com/amsaid/relayconsole/internal/database"
	"github.com/amsaid/relayconsole/internal/install"
	"github.com/amsaid/relayconsole/internal/server"
	"github.com/amsaid/relayconsole/internal/state"
)

type stubRelay struct {
	sentChatID string
	sentText   string
}

func (s *stubRelay) MemberCount(_ context.Context, _ string) (int, error) { return 5, nil }
func (s *stubRelay) SyncAdmins(_ context.Context, _ string) (int, error)  { return 3, nil }
func (s *stubRelay) Send(_ context.Context, chatID, text string) (int, error) {
	s.sentChatID = chatID
	s.sentText = text
	return 99, nil
}
func (s *stubRelay) LookupChannel(_ context.Context, chatID string) (*database.Channel, error) {
	return &database.Channel{ID: chatID, Title: "stub"}, nil
}
func (s *stubRelay) ChannelMessages(_ context.Context, _ string, _ int) ([]database.Message, error) {
	return nil, nil
}

type fixture struct {
	store   database.Store
	state   *state.State
	handler http.Handler
	relay   server.Relay
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	store := database.NewStore(db, nil)
	st := state.New(store, nil)
	if err := st.Initialize(context.Background()); err != nil {
		t.Fatalf("state.Initialize: %v", err)
	}

	cfg := &config.Config{
		ServerAddr:             ":0",
		ServerCORSOrigins:      []string{"*"},
		InstallMsgDBError:      "db error",
		InstallMsgConfigError:  "config error",
		InstallMsgStepOrder:    "step order",
		InstallMsgTokenMissing: "token missing",
		InstallMsgComplete:     "complete",
	}
	wizard, err := install.New(context.Background(), store, cfg, nil)
	if err != nil {
		t.Fatalf("install.New: %v", err)
	}

	f := &fixture{store: store, state: st}
	srv := server.New(cfg, server.Deps{
		Store:  store,
		State:  st,
		Wizard: wizard,
		Relay:  func() server.Relay { return f.relay },
	})
	f.handler = srv.Handler()
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reqBody = bytes.NewBuffer(encoded)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestInstallFlowOverHTTP(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/install/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("install status: expected 200, got %d", rec.Code)
	}
	var status install.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Installed {
		t.Fatal("expected fresh install state")
	}

	// Completing ahead of order is rejected with the localized message.
	rec = f.do(t, http.MethodPost, "/api/install/complete", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("out-of-order complete: expected 422, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/api/install/database", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("install database: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	form := install.Form{Token: "tok", SourceGroup: "111", TargetGroup: "222"}
	rec = f.do(t, http.MethodPost, "/api/install/config", form)
	if rec.Code != http.StatusOK {
		t.Fatalf("install config: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/api/install/complete", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("install complete: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/api/config", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get config: expected 200, got %d", rec.Code)
	}
	var cfg database.BotConfig
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.Token != "tok" {
		t.Errorf("expected persisted token, got %q", cfg.Token)
	}
}

func TestGetConfigBeforeInstall(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/config", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before install, got %d", rec.Code)
	}
}

func TestMessageStatusEndpoint(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	msg := &database.Message{SourceMessageID: 1, SourceChatID: "-100111", Content: "hi"}
	if err := f.store.AddMessage(ctx, msg); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if err := f.store.UpdateMessageStatus(ctx, msg.ID, database.MessageActive); err != nil {
		t.Fatalf("UpdateMessageStatus: %v", err)
	}

	// Backward transition surfaces as a conflict.
	rec := f.do(t, http.MethodPatch, "/api/messages/1/status",
		map[string]string{"status": "received"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for backward transition, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPatch, "/api/messages/1/status",
		map[string]string{"status": "deleted"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for forward transition, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPatch, "/api/messages/999/status",
		map[string]string{"status": "active"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown message, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPatch, "/api/messages/1/status",
		map[string]string{"status": "bogus"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}
}

func TestSendRequiresRelay(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/messages/send",
		map[string]string{"chatId": "222", "text": "hello"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 without a running relay, got %d: %s", rec.Code, rec.Body.String())
	}

	stub := &stubRelay{}
	f.relay = stub

	rec = f.do(t, http.MethodPost, "/api/messages/send",
		map[string]string{"chatId": "222", "text": "hello"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with relay, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.sentChatID != "222" || stub.sentText != "hello" {
		t.Errorf("unexpected send call: %q %q", stub.sentChatID, stub.sentText)
	}
}

func TestListMessagesStatusFilter(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	cfg := &database.BotConfig{Token: "tok", SourceGroup: "111", TargetGroup: "222"}
	if err := f.store.SaveBotConfig(ctx, cfg); err != nil {
		t.Fatalf("SaveBotConfig: %v", err)
	}
	for i := int64(1); i <= 3; i++ {
		msg := &database.Message{SourceMessageID: i, SourceChatID: "-100111"}
		if err := f.store.AddMessage(ctx, msg); err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
	}
	if err := f.state.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	rec := f.do(t, http.MethodGet, "/api/messages", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var messages []database.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &messages); err != nil {
		t.Fatalf("decode messages: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}

	rec = f.do(t, http.MethodGet, "/api/messages?status=deleted", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &messages); err != nil {
		t.Fatalf("decode filtered messages: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected no deleted messages, got %d", len(messages))
	}

	rec = f.do(t, http.MethodGet, "/api/messages?status=bogus", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status filter, got %d", rec.Code)
	}
}

func TestChannelSettings(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	ch := database.Channel{
		Title: "News",
		Rules: database.StringList{"no spam"},
	}
	rec := f.do(t, http.MethodPut, "/api/channels/-100555", ch)
	if rec.Code != http.StatusOK {
		t.Fatalf("put channel: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/api/channels/-100555", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get channel: expected 200, got %d", rec.Code)
	}
	var got database.Channel
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode channel: %v", err)
	}
	if got.ID != "-100555" || got.Title != "News" || len(got.Rules) != 1 {
		t.Errorf("unexpected channel after put: %+v", got)
	}

	rec = f.do(t, http.MethodGet, "/api/channels/unknown", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown channel, got %d", rec.Code)
	}
}

func TestListMessagesByChatID(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	msg := &database.Message{SourceMessageID: 1, SourceChatID: "-100333", Content: "direct"}
	if err := f.store.AddMessage(ctx, msg); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	// A bare chat id normalizes to the stored -100 form.
	rec := f.do(t, http.MethodGet, "/api/messages?chat_id=333", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var messages []database.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &messages); err != nil {
		t.Fatalf("decode messages: %v", err)
	}
	if len(messages) != 1 || messages[0].Content != "direct" {
		t.Fatalf("expected the stored message, got %+v", messages)
	}
}

func TestUserEndpoints(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	if err := f.store.SaveUser(ctx, &database.User{UserID: 7, Username: "bob"}); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}

	rec := f.do(t, http.MethodGet, "/api/users", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var users []database.User
	if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
		t.Fatalf("decode users: %v", err)
	}
	if len(users) != 1 || users[0].Username != "bob" {
		t.Fatalf("expected bob, got %+v", users)
	}

	rec = f.do(t, http.MethodPatch, "/api/users/7/status",
		map[string]string{"status": "banned"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPatch, "/api/users/999/status",
		map[string]string{"status": "banned"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodDelete, "/api/users/7", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestActivityEndpoint(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	if err := f.store.SaveUser(ctx, &database.User{UserID: 1, Username: "alice"}); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}

	rec := f.do(t, http.MethodGet, "/api/activity?limit=5", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var entries []database.ActivityEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode activity: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 activity entry, got %d", len(entries))
	}
}
