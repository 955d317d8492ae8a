package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/amsaid/relayconsole/internal/database"
	"github.com/amsaid/relayconsole/internal/install"
	"github.com/amsaid/relayconsole/internal/relay"
)

type handlers struct {
	deps Deps
}

func (h *handlers) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.deps.Logger.Error("Failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// respondError maps domain sentinels onto HTTP statuses so clients get a
// reason, not just a failure.
func (h *handlers) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		h.respond(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, database.ErrDuplicate):
		h.respond(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, database.ErrInvalidTransition):
		h.respond(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, relay.ErrTransport):
		h.respond(w, http.StatusBadGateway, errorBody{Error: err.Error()})
	case errors.Is(err, relay.ErrAPI):
		h.respond(w, http.StatusBadGateway, errorBody{Error: err.Error()})
	default:
		h.respond(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

func (h *handlers) badRequest(w http.ResponseWriter, msg string) {
	h.respond(w, http.StatusBadRequest, errorBody{Error: msg})
}

// relayOrError returns the relay client or writes a 409 when the bot is
// not installed yet.
func (h *handlers) relayOrError(w http.ResponseWriter) (Relay, bool) {
	if h.deps.Relay != nil {
		if c := h.deps.Relay(); c != nil {
			return c, true
		}
	}
	h.respond(w, http.StatusConflict, errorBody{Error: "relay not running: complete installation first"})
	return nil, false
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Store.Ping(r.Context()); err != nil {
		h.respond(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statsResponse struct {
	database.MessageStats
	MemberCount int `json:"memberCount,omitempty"`
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.deps.Store.GetMessageStats(r.Context(), time.Now())
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.deps.State.UpdateMessageStats(stats)

	resp := statsResponse{MessageStats: stats}

	// Member count is best effort: the dashboard still renders message
	// counters when the relay is down or not yet installed.
	if h.deps.Relay != nil {
		if client := h.deps.Relay(); client != nil {
			snapshot := h.deps.State.Snapshot()
			if snapshot.BotConfig != nil && snapshot.BotConfig.SourceGroup != "" {
				count, err := client.MemberCount(r.Context(), snapshot.BotConfig.SourceGroup)
				if err != nil {
					h.deps.Logger.Warn("Member count lookup failed", "error", err)
				} else {
					resp.MemberCount = count
				}
			}
		}
	}

	h.respond(w, http.StatusOK, resp)
}

func (h *handlers) activity(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.deps.Store.ListActivity(r.Context(), limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, entries)
}

func (h *handlers) installStatus(w http.ResponseWriter, _ *http.Request) {
	h.respond(w, http.StatusOK, h.deps.Wizard.Status())
}

func (h *handlers) writeWizardStatus(w http.ResponseWriter, status install.Status) {
	code := http.StatusOK
	if status.Error != "" {
		code = http.StatusUnprocessableEntity
	}
	h.respond(w, code, status)
}

func (h *handlers) installDatabase(w http.ResponseWriter, r *http.Request) {
	h.writeWizardStatus(w, h.deps.Wizard.CheckDatabase(r.Context()))
}

func (h *handlers) installConfig(w http.ResponseWriter, r *http.Request) {
	var form install.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		h.badRequest(w, "invalid json body")
		return
	}
	h.writeWizardStatus(w, h.deps.Wizard.SubmitForm(r.Context(), form))
}

func (h *handlers) installComplete(w http.ResponseWriter, r *http.Request) {
	h.writeWizardStatus(w, h.deps.Wizard.Complete(r.Context()))
}

func (h *handlers) getConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.deps.Store.GetBotConfig(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	if cfg == nil {
		h.respond(w, http.StatusNotFound, errorBody{Error: "no bot config installed"})
		return
	}
	h.respond(w, http.StatusOK, cfg)
}

// putConfig appends a new config record; the newest record wins. The
// state cache refreshes so the change is visible immediately.
func (h *handlers) putConfig(w http.ResponseWriter, r *http.Request) {
	var form install.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		h.badRequest(w, "invalid json body")
		return
	}
	if form.Token == "" || form.SourceGroup == "" || form.TargetGroup == "" {
		h.badRequest(w, "token, sourceGroup, and targetGroup are required")
		return
	}

	cfg := &database.BotConfig{
		Token:       form.Token,
		SourceGroup: form.SourceGroup,
		TargetGroup: form.TargetGroup,
		IsActive:    true,
	}
	if err := h.deps.Store.SaveBotConfig(r.Context(), cfg); err != nil {
		h.respondError(w, err)
		return
	}
	if err := h.deps.State.Refresh(r.Context()); err != nil {
		h.deps.Logger.Warn("State refresh after config update failed", "error", err)
	}
	h.respond(w, http.StatusOK, cfg)
}

func (h *handlers) listMessages(w http.ResponseWriter, r *http.Request) {
	var messages []database.Message

	// An explicit chat_id bypasses the snapshot and reads the store.
	if chatID := r.URL.Query().Get("chat_id"); chatID != "" {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		var err error
		messages, err = h.deps.Store.ListMessagesByChat(r.Context(), relay.NormalizeChatID(chatID), limit)
		if err != nil {
			h.respondError(w, err)
			return
		}
	} else {
		messages = h.deps.State.Snapshot().Messages
	}

	if status := r.URL.Query().Get("status"); status != "" {
		want := database.MessageStatus(status)
		if !want.Valid() {
			h.badRequest(w, "unknown message status "+strconv.Quote(status))
			return
		}
		messages = lo.Filter(messages, func(m database.Message, _ int) bool {
			return m.Status == want
		})
	}

	if messages == nil {
		messages = []database.Message{}
	}
	h.respond(w, http.StatusOK, messages)
}

type sendRequest struct {
	ChatID string `json:"chatId"`
	Text   string `json:"text"`
}

func (h *handlers) sendMessage(w http.ResponseWriter, r *http.Request) {
	client, ok := h.relayOrError(w)
	if !ok {
		return
	}

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "invalid json body")
		return
	}
	if req.ChatID == "" || req.Text == "" {
		h.badRequest(w, "chatId and text are required")
		return
	}

	id, err := client.Send(r.Context(), req.ChatID, req.Text)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]int{"messageId": id})
}

func (h *handlers) updateMessageStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.badRequest(w, "invalid message id")
		return
	}

	var req struct {
		Status database.MessageStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "invalid json body")
		return
	}
	if !req.Status.Valid() {
		h.badRequest(w, "unknown message status "+strconv.Quote(string(req.Status)))
		return
	}

	if err := h.deps.Store.UpdateMessageStatus(r.Context(), uint(id), req.Status); err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"status": string(req.Status)})
}

func (h *handlers) deleteMessage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.badRequest(w, "invalid message id")
		return
	}
	if err := h.deps.Store.DeleteMessage(r.Context(), uint(id)); err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusNoContent, nil)
}

func (h *handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.deps.Store.ListUsers(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	if users == nil {
		users = []database.User{}
	}
	h.respond(w, http.StatusOK, users)
}

// syncUsers pulls the admin roster of the watched source group through
// the relay into the store.
func (h *handlers) syncUsers(w http.ResponseWriter, r *http.Request) {
	client, ok := h.relayOrError(w)
	if !ok {
		return
	}

	snapshot := h.deps.State.Snapshot()
	if snapshot.BotConfig == nil {
		h.respond(w, http.StatusConflict, errorBody{Error: "no bot config installed"})
		return
	}

	saved, err := client.SyncAdmins(r.Context(), snapshot.BotConfig.SourceGroup)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]int{"synced": saved})
}

func (h *handlers) updateUserStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.badRequest(w, "invalid user id")
		return
	}

	var req struct {
		Status database.UserStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "invalid json body")
		return
	}
	if !req.Status.Valid() {
		h.badRequest(w, "unknown user status "+strconv.Quote(string(req.Status)))
		return
	}

	if err := h.deps.Store.UpdateUserStatus(r.Context(), id, req.Status); err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"status": string(req.Status)})
}

func (h *handlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.badRequest(w, "invalid user id")
		return
	}
	if err := h.deps.Store.DeleteUser(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusNoContent, nil)
}

func (h *handlers) listChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := h.deps.Store.ListChannels(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	if channels == nil {
		channels = []database.Channel{}
	}
	h.respond(w, http.StatusOK, channels)
}

func (h *handlers) getChannel(w http.ResponseWriter, r *http.Request) {
	ch, err := h.deps.Store.GetChannel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	if ch == nil {
		h.respond(w, http.StatusNotFound, errorBody{Error: "channel not found"})
		return
	}
	h.respond(w, http.StatusOK, ch)
}

// putChannel replaces a channel's settings (auto responses, rules,
// filters, scheduled posts). The path ID wins over any ID in the body.
func (h *handlers) putChannel(w http.ResponseWriter, r *http.Request) {
	var ch database.Channel
	if err := json.NewDecoder(r.Body).Decode(&ch); err != nil {
		h.badRequest(w, "invalid json body")
		return
	}
	ch.ID = chi.URLParam(r, "id")

	if err := h.deps.Store.SaveChannel(r.Context(), &ch); err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, ch)
}

func (h *handlers) lookupChannel(w http.ResponseWriter, r *http.Request) {
	client, ok := h.relayOrError(w)
	if !ok {
		return
	}

	ch, err := client.LookupChannel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, ch)
}

func (h *handlers) channelMessages(w http.ResponseWriter, r *http.Request) {
	client, ok := h.relayOrError(w)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	messages, err := client.ChannelMessages(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if messages == nil {
		messages = []database.Message{}
	}
	h.respond(w, http.StatusOK, messages)
}

func (h *handlers) channelMembers(w http.ResponseWriter, r *http.Request) {
	client, ok := h.relayOrError(w)
	if !ok {
		return
	}

	count, err := client.MemberCount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]int{"memberCount": count})
}
