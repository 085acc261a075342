package core

import (
	"errors"
	"reflect"
	"testing"
)

func TestRoomMessageBroadcastAndVersionOrder(t *testing.T) {
	room := newTestRoom(t, Options{})

	alice := NewClient("a", "user-a", "Alice", RoleMember)
	bob := NewClient("b", "user-b", "Bob", RoleMember)
	room.subscribe(alice)
	room.subscribe(bob)
	drain(alice.Events)
	drain(bob.Events)

	msg, err := room.SendMessage("user-a", "Alice", "hello cohort")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if msg.ID != 1 || msg.SenderID != "user-a" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	// Both subscribers see the message, then the leaderboard, in version order.
	for _, c := range []*Client{alice, bob} {
		msgEv := mustEvent(t, c.Events, EventMessage)
		boardEv := mustEvent(t, c.Events, EventLeaderboard)
		if msgEv.Version+1 != boardEv.Version {
			t.Fatalf("versions not contiguous: message=%d leaderboard=%d", msgEv.Version, boardEv.Version)
		}
		if msgEv.Message.Text != "hello cohort" {
			t.Fatalf("unexpected message event: %+v", msgEv.Message)
		}
	}
}

func TestRoomMessageValidation(t *testing.T) {
	room := newTestRoom(t, Options{ChatMaxLen: 10})

	if _, err := room.SendMessage("user-a", "Alice", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for empty text, got %v", err)
	}
	if _, err := room.SendMessage("user-a", "Alice", "this is far too long"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for oversized text, got %v", err)
	}
}

func TestRoomBanBlocksFutureMessagesOnly(t *testing.T) {
	room := newTestRoom(t, Options{})

	watcher := NewClient("w", "user-w", "Watcher", RoleMember)
	room.subscribe(watcher)
	drain(watcher.Events)

	if _, err := room.SendMessage("user-b", "Bob", "before the ban"); err != nil {
		t.Fatalf("send before ban: %v", err)
	}

	if err := room.Ban(RoleModerator, "user-b", "mod-1"); err != nil {
		t.Fatalf("ban: %v", err)
	}
	banEv := mustEvent(t, watcher.Events, EventUserBanned)
	if banEv.BannedUserID != "user-b" {
		t.Fatalf("unexpected ban event: %+v", banEv)
	}

	if _, err := room.SendMessage("user-b", "Bob", "after the ban"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden error, got %v", err)
	}

	// The pre-ban message is never retracted.
	snap := room.Snapshot()
	if len(snap.Messages) != 1 || snap.Messages[0].Text != "before the ban" {
		t.Fatalf("pre-ban message missing from snapshot: %+v", snap.Messages)
	}
	if len(snap.Banned) != 1 || snap.Banned[0] != "user-b" {
		t.Fatalf("ban set not in snapshot: %+v", snap.Banned)
	}
}

func TestRoomBanIdempotent(t *testing.T) {
	room := newTestRoom(t, Options{})

	if err := room.Ban(RoleModerator, "user-b", "mod-1"); err != nil {
		t.Fatalf("first ban: %v", err)
	}
	if !room.IsBanned("user-b") {
		t.Fatal("ban not recorded")
	}
	before := room.Snapshot().Version
	if err := room.Ban(RoleModerator, "user-b", "mod-2"); err != nil {
		t.Fatalf("repeated ban should succeed silently: %v", err)
	}
	if after := room.Snapshot().Version; after != before {
		t.Fatalf("repeated ban bumped version: %d -> %d", before, after)
	}
}

func TestRoomBanRequiresModerator(t *testing.T) {
	room := newTestRoom(t, Options{})
	if err := room.Ban(RoleMember, "user-b", "user-a"); !errors.Is(err, ErrAuthorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
}

func TestRoomSnapshotResyncAfterReconnect(t *testing.T) {
	room := newTestRoom(t, Options{})

	first := NewClient("c1", "user-a", "Alice", RoleModerator)
	room.subscribe(first)
	drain(first.Events)

	if _, err := room.SendMessage("user-a", "Alice", "state builds up"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := room.StartStream(RoleModerator, "https://example.com/live"); err != nil {
		t.Fatalf("start stream: %v", err)
	}
	room.unsubscribe(first)

	// A reconnect is a fresh client; its first event must be the full
	// authoritative snapshot at the current version.
	second := NewClient("c2", "user-a", "Alice", RoleModerator)
	room.subscribe(second)

	ev := mustEvent(t, second.Events, EventSnapshot)
	if ev.Snapshot == nil {
		t.Fatal("snapshot event without payload")
	}
	if !reflect.DeepEqual(ev.Snapshot, room.Snapshot()) {
		t.Fatalf("snapshot differs from authoritative state:\n got %+v\nwant %+v", ev.Snapshot, room.Snapshot())
	}
	if ev.Snapshot.Stream.Status != StreamLive {
		t.Fatalf("snapshot missed stream state: %+v", ev.Snapshot.Stream)
	}
}

func TestRoomChatLogEviction(t *testing.T) {
	room := newTestRoom(t, Options{ChatLogCapacity: 3})

	for i := 0; i < 5; i++ {
		if _, err := room.SendMessage("user-a", "Alice", "msg"); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	snap := room.Snapshot()
	if len(snap.Messages) != 3 {
		t.Fatalf("expected 3 retained messages, got %d", len(snap.Messages))
	}
	// Oldest evicted, IDs stay monotonic.
	if snap.Messages[0].ID != 3 || snap.Messages[2].ID != 5 {
		t.Fatalf("unexpected retained ids: %d..%d", snap.Messages[0].ID, snap.Messages[2].ID)
	}
}

func TestRoomChatDrivesAnalytics(t *testing.T) {
	room := newTestRoom(t, Options{})

	alice := NewClient("a", "user-a", "Alice", RoleMember)
	bob := NewClient("b", "user-b", "Bob", RoleMember)
	room.subscribe(alice)
	room.subscribe(bob)
	drain(alice.Events)
	drain(bob.Events)

	if _, err := room.SendMessage("user-a", "Alice", "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}

	boardEv := mustEvent(t, alice.Events, EventLeaderboard)
	statsEv := mustEvent(t, alice.Events, EventAnalytics)
	if statsEv.Version != boardEv.Version+1 {
		t.Fatalf("analytics out of order: leaderboard=%d analytics=%d", boardEv.Version, statsEv.Version)
	}
	stats := statsEv.Analytics
	if n := len(stats.Viewers); n == 0 || stats.Viewers[n-1] != 2 {
		t.Fatalf("viewer series missed the audience: %+v", stats.Viewers)
	}
	if n := len(stats.Chats); n == 0 || stats.Chats[n-1] != 1 {
		t.Fatalf("chat series missed the message: %+v", stats.Chats)
	}

	// Leaving is sampled without a broadcast.
	room.unsubscribe(bob)
	if v := room.Analytics().Viewers; v[len(v)-1] != 1 {
		t.Fatalf("leave not sampled: %+v", v)
	}
}

func TestRoomStreamTransitions(t *testing.T) {
	room := newTestRoom(t, Options{})

	sub := NewClient("s", "user-s", "Sub", RoleMember)
	room.subscribe(sub)
	drain(sub.Events)

	if err := room.StartStream(RoleMember, "url"); !errors.Is(err, ErrAuthorization) {
		t.Fatalf("member started stream: %v", err)
	}

	if err := room.StartStream(RoleModerator, "https://example.com/live"); err != nil {
		t.Fatalf("start: %v", err)
	}
	ev := mustEvent(t, sub.Events, EventStreamStatus)
	if ev.Stream.Status != StreamLive || ev.Stream.URL != "https://example.com/live" {
		t.Fatalf("unexpected stream event: %+v", ev.Stream)
	}

	if err := room.StopStream(RoleModerator); err != nil {
		t.Fatalf("stop: %v", err)
	}
	ev = mustEvent(t, sub.Events, EventStreamStatus)
	if ev.Stream.Status != StreamOffline || ev.Stream.URL != "" {
		t.Fatalf("stop did not clear stream: %+v", ev.Stream)
	}
}

func TestRoomSlowSubscriberDetached(t *testing.T) {
	room := newTestRoom(t, Options{})

	slow := NewClient("slow", "user-slow", "Slow", RoleMember)
	fast := NewClient("fast", "user-fast", "Fast", RoleMember)
	room.subscribe(slow)
	room.subscribe(fast)

	// Never drain slow; each message broadcasts two events, so the buffer
	// fills well before 100 sends.
	for i := 0; i < 100; i++ {
		if _, err := room.SendMessage("user-a", "Alice", "flood"); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
		drain(fast.Events)
	}

	select {
	case <-slow.Done():
	default:
		t.Fatal("slow subscriber was not detached")
	}

	// The fast subscriber kept receiving with no version gaps.
	drain(fast.Events)
	if _, err := room.SendMessage("user-a", "Alice", "after flood"); err != nil {
		t.Fatalf("send after flood: %v", err)
	}
	ev := mustEvent(t, fast.Events, EventMessage)
	if ev.Message.Text != "after flood" {
		t.Fatalf("fast subscriber missed the follow-up message: %+v", ev.Message)
	}
}
