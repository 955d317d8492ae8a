package relay_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amsaid/relayconsole/internal/database"
	"github.com/amsaid/relayconsole/internal/relay"
)

func newTestStore(t *testing.T) database.Store {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	return database.NewStore(db, nil)
}

// fakeTelegram serves canned Bot API responses keyed by method name.
func fakeTelegram(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		method := parts[len(parts)-1]

		body, ok := responses[method]
		if !ok {
			body = `{"ok":false,"error_code":400,"description":"unexpected method ` + method + `"}`
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, store database.Store, srv *httptest.Server) *relay.Client {
	t.Helper()

	cfg := &database.BotConfig{Token: "12345:testtoken", SourceGroup: "111", TargetGroup: "222"}
	client, err := relay.New(cfg, store, nil, relay.Options{
		APIURL:    srv.URL,
		SkipGetMe: true,
	})
	if err != nil {
		t.Fatalf("relay.New: %v", err)
	}
	return client
}

func TestMemberCount(t *testing.T) {
	t.Parallel()

	srv := fakeTelegram(t, map[string]string{
		"getChatMemberCount": `{"ok":true,"result":42}`,
	})
	client := newTestClient(t, newTestStore(t), srv)

	count, err := client.MemberCount(context.Background(), "555")
	if err != nil {
		t.Fatalf("MemberCount: %v", err)
	}
	if count != 42 {
		t.Errorf("expected 42 members, got %d", count)
	}

	if _, err := client.MemberCount(context.Background(), ""); err == nil {
		t.Error("expected an error for an empty chat id")
	}
}

func TestMemberCountAPIError(t *testing.T) {
	t.Parallel()

	srv := fakeTelegram(t, map[string]string{
		"getChatMemberCount": `{"ok":false,"error_code":400,"description":"chat not found"}`,
	})
	client := newTestClient(t, newTestStore(t), srv)

	_, err := client.MemberCount(context.Background(), "555")
	if !errors.Is(err, relay.ErrAPI) {
		t.Fatalf("expected ErrAPI, got %v", err)
	}
	if errors.Is(err, relay.ErrTransport) {
		t.Error("an API rejection must not classify as a transport error")
	}
}

func TestSend(t *testing.T) {
	t.Parallel()

	srv := fakeTelegram(t, map[string]string{
		"sendMessage": `{"ok":true,"result":{"message_id":77,"date":1756500000,"chat":{"id":-100222,"type":"supergroup"}}}`,
	})
	client := newTestClient(t, newTestStore(t), srv)

	id, err := client.Send(context.Background(), "222", "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id != 77 {
		t.Errorf("expected message id 77, got %d", id)
	}

	if _, err := client.Send(context.Background(), "222", ""); err == nil {
		t.Error("expected an error for empty text")
	}
}

func TestAdministrators(t *testing.T) {
	t.Parallel()

	srv := fakeTelegram(t, map[string]string{
		"getChatAdministrators": `{"ok":true,"result":[
			{"status":"creator","user":{"id":1,"is_bot":false,"first_name":"Alice","username":"alice"},"is_anonymous":false},
			{"status":"administrator","user":{"id":2,"is_bot":false,"first_name":"Bob","username":"bob"},"is_anonymous":false,"can_be_edited":false,"can_manage_chat":true,"can_delete_messages":true,"can_manage_video_chats":false,"can_restrict_members":true,"can_promote_members":false,"can_change_info":true,"can_invite_users":true,"can_post_stories":false,"can_edit_stories":false,"can_delete_stories":false}
		]}`,
	})
	store := newTestStore(t)
	client := newTestClient(t, store, srv)

	admins, err := client.Administrators(context.Background(), "111")
	if err != nil {
		t.Fatalf("Administrators: %v", err)
	}
	if len(admins) != 2 {
		t.Fatalf("expected 2 admins, got %d", len(admins))
	}
	for _, a := range admins {
		if !a.IsAdmin {
			t.Errorf("expected admin flag on user %d", a.UserID)
		}
	}

	saved, err := client.SyncAdmins(context.Background(), "111")
	if err != nil {
		t.Fatalf("SyncAdmins: %v", err)
	}
	if saved != 2 {
		t.Errorf("expected 2 saved admins, got %d", saved)
	}

	user, err := store.GetUser(context.Background(), 1)
	if err != nil || user == nil {
		t.Fatalf("GetUser after sync: %v", err)
	}
	if user.Username != "alice" || !user.IsAdmin {
		t.Errorf("expected synced admin alice, got %+v", user)
	}
}

func TestLookupChannel(t *testing.T) {
	t.Parallel()

	srv := fakeTelegram(t, map[string]string{
		"getChat": `{"ok":true,"result":{"id":-100555,"type":"channel","title":"News Feed","username":"newsfeed","accent_color_id":0,"max_reaction_count":11}}`,
	})
	store := newTestStore(t)
	client := newTestClient(t, store, srv)

	ch, err := client.LookupChannel(context.Background(), "555")
	if err != nil {
		t.Fatalf("LookupChannel: %v", err)
	}
	if ch.ID != "-100555" || ch.Title != "News Feed" || ch.Username != "newsfeed" {
		t.Errorf("unexpected channel record: %+v", ch)
	}

	// The lookup result must be persisted.
	stored, err := store.GetChannel(context.Background(), "-100555")
	if err != nil || stored == nil {
		t.Fatalf("GetChannel after lookup: %v", err)
	}
	if stored.Title != "News Feed" {
		t.Errorf("expected persisted channel, got %+v", stored)
	}
}

func TestTransportErrorClassification(t *testing.T) {
	t.Parallel()

	srv := fakeTelegram(t, nil)
	client := newTestClient(t, newTestStore(t), srv)
	srv.Close()

	_, err := client.MemberCount(context.Background(), "555")
	if err == nil {
		t.Fatal("expected an error against a closed server")
	}
	if !errors.Is(err, relay.ErrTransport) && !errors.Is(err, relay.ErrAPI) {
		t.Fatalf("expected a classified relay error, got %v", err)
	}
}

func TestChannelMessagesReadsStore(t *testing.T) {
	t.Parallel()

	srv := fakeTelegram(t, nil)
	store := newTestStore(t)
	client := newTestClient(t, store, srv)

	msg := &database.Message{SourceMessageID: 9, SourceChatID: "-100555", Content: "post"}
	if err := store.AddMessage(context.Background(), msg); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	messages, err := client.ChannelMessages(context.Background(), "555", 10)
	if err != nil {
		t.Fatalf("ChannelMessages: %v", err)
	}
	if len(messages) != 1 || messages[0].Content != "post" {
		t.Errorf("expected the stored message, got %+v", messages)
	}
}
