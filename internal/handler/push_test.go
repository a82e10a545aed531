package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/convocation/internal/model"
	"github.com/dukerupert/convocation/internal/push"
)

func TestPushSubscribe(t *testing.T) {
	env := setupEnv(t)
	h := NewPushHandler(env.pushSubs, push.NewService(push.Config{}), env.logger)

	rec := httptest.NewRecorder()
	h.Subscribe(rec, jsonRequest(t, http.MethodPost, "/api/push/subscribe", map[string]string{"endpoint": "https://push.example.com/a"}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing keys status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Subscribe(rec, jsonRequest(t, http.MethodPost, "/api/push/subscribe", map[string]string{
		"endpoint": "http://push.example.com/a", "p256dh": "k", "auth": "a",
	}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("plain http endpoint status = %d, want 400", rec.Code)
	}

	req := map[string]string{"endpoint": "https://push.example.com/a", "p256dh": "k", "auth": "a", "device_name": "Registry PC"}
	for range 2 {
		rec = httptest.NewRecorder()
		h.Subscribe(rec, jsonRequest(t, http.MethodPost, "/api/push/subscribe", req))
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body)
		}
	}

	rec = httptest.NewRecorder()
	h.ListSubscriptions(rec, httptest.NewRequest(http.MethodGet, "/api/push/subscriptions", nil))
	subs := decodeBody[[]model.PushSubscription](t, rec)
	if len(subs) != 1 {
		t.Fatalf("subscriptions = %d, want 1 after re-subscribe", len(subs))
	}

	rec = httptest.NewRecorder()
	h.Unsubscribe(rec, withID(httptest.NewRequest(http.MethodDelete, "/", nil), subs[0].ID))
	if rec.Code != http.StatusNoContent {
		t.Errorf("unsubscribe status = %d", rec.Code)
	}
}

func TestVAPIDKey(t *testing.T) {
	env := setupEnv(t)

	rec := httptest.NewRecorder()
	NewPushHandler(env.pushSubs, push.NewService(push.Config{}), env.logger).VAPIDKey(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unconfigured status = %d, want 503", rec.Code)
	}

	svc := push.NewService(push.Config{VAPIDPublicKey: "pub", VAPIDPrivateKey: "priv"})
	rec = httptest.NewRecorder()
	NewPushHandler(env.pushSubs, svc, env.logger).VAPIDKey(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := decodeBody[map[string]string](t, rec); got["public_key"] != "pub" {
		t.Errorf("public key = %v", got)
	}
}
