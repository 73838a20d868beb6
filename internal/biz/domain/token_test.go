package domain

import (
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestTokenCache_EmptyByDefault(t *testing.T) {
	cache := NewTokenCache(nil)

	if _, ok := cache.Get(); ok {
		t.Error("Expected empty cache to return absent")
	}
}

func TestTokenCache_ServesUntilSafetyMargin(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	cache := NewTokenCache(clock.Now)

	cache.Set("token-1", 3600*time.Second)

	got, ok := cache.Get()
	if !ok || got.Value != "token-1" {
		t.Fatalf("Expected token-1 immediately, got %q ok=%v", got.Value, ok)
	}

	clock.Advance(3294 * time.Second)
	if got, ok := cache.Get(); !ok || got.Value != "token-1" {
		t.Fatalf("Expected token-1 at 3294s, got %q ok=%v", got.Value, ok)
	}

	clock.Advance(time.Second)
	if _, ok := cache.Get(); ok {
		t.Error("Expected token to be absent at 3295s")
	}
}

func TestTokenCache_Invalidate(t *testing.T) {
	cache := NewTokenCache(nil)
	cache.Set("token-1", 7200*time.Second)

	cache.Invalidate()

	if _, ok := cache.Get(); ok {
		t.Error("Expected invalidated cache to return absent")
	}
}

func TestTokenCache_LastWriterWins(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	cache := NewTokenCache(clock.Now)

	cache.Set("token-1", 7200*time.Second)
	cache.Set("token-2", 7200*time.Second)

	got, ok := cache.Get()
	if !ok || got.Value != "token-2" {
		t.Errorf("Expected token-2, got %q ok=%v", got.Value, ok)
	}
	if want := clock.now.Add(6900 * time.Second); !got.ExpiresAt.Equal(want) {
		t.Errorf("Expected expiry %v, got %v", want, got.ExpiresAt)
	}
}

func TestTokenCache_ShortLifetimeNeverServed(t *testing.T) {
	cache := NewTokenCache(nil)

	cache.Set("token-1", 200*time.Second)

	if _, ok := cache.Get(); ok {
		t.Error("Expected lifetime shorter than the safety margin to be absent")
	}
}

func TestReply_Variants(t *testing.T) {
	if !Acknowledge().IsAcknowledge() {
		t.Error("Expected Acknowledge to be an acknowledgment")
	}

	msg := &TextMessage{MessageHeader: MessageHeader{ToUser: "gh_account", FromUser: "openid-1"}}
	reply := ReplyWith(NewTextReply(msg, ""))
	if reply.IsAcknowledge() {
		t.Error("Expected a reply with empty content to still be a reply document")
	}

	text, ok := reply.Message().(*TextReply)
	if !ok {
		t.Fatal("Expected *TextReply")
	}
	if text.ToUser != "openid-1" || text.FromUser != "gh_account" {
		t.Errorf("Expected sender/receiver swapped, got %+v", text)
	}
}
