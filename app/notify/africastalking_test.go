package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAfricasTalkingSend(t *testing.T) {
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/version1/messaging" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("apiKey") != "at_key" {
			t.Errorf("unexpected api key header: %s", r.Header.Get("apiKey"))
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = map[string]string{
			"username": r.PostFormValue("username"),
			"to":       r.PostFormValue("to"),
			"message":  r.PostFormValue("message"),
			"from":     r.PostFormValue("from"),
		}
		_, _ = w.Write([]byte(`{"SMSMessageData":{"Message":"Sent to 1/1"}}`))
	}))
	defer srv.Close()

	n := NewAfricasTalkingNotifier(AfricasTalkingConfig{
		Username: "hotspot",
		APIKey:   "at_key",
		SenderID: "HOTSPOT",
		BaseURL:  srv.URL,
	})

	if err := n.Send(context.Background(), "254700000001", "your voucher"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if gotForm["to"] != "254700000001" || gotForm["message"] != "your voucher" || gotForm["from"] != "HOTSPOT" || gotForm["username"] != "hotspot" {
		t.Fatalf("unexpected form: %+v", gotForm)
	}
}

func TestAfricasTalkingSendUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	n := NewAfricasTalkingNotifier(AfricasTalkingConfig{BaseURL: srv.URL})
	if err := n.Send(context.Background(), "254700000001", "msg"); err == nil {
		t.Fatal("expected error on upstream failure")
	}
}

func TestNopNotifier(t *testing.T) {
	if err := (NopNotifier{}).Send(context.Background(), "254700000001", "msg"); err != nil {
		t.Fatalf("nop notifier must never fail: %v", err)
	}
}
