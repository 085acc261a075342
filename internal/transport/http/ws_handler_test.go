package http

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/cohortlabs/cohort-hub/internal/core"
	"github.com/cohortlabs/cohort-hub/internal/proto"
)

// wsEnvelope mirrors proto.Outbound with raw data for test-side decoding.
type wsEnvelope struct {
	Type     string          `json:"type"`
	CohortID string          `json:"cohortId"`
	Version  uint64          `json:"version"`
	Data     json.RawMessage `json:"data"`
	Error    *proto.Error    `json:"error"`
}

func dialWS(t *testing.T, ctx context.Context, s *testServer, token string) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(s.ts.URL, "http", "ws", 1) + "/ws?token=" + token
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func sendCommand(t *testing.T, ctx context.Context, conn *websocket.Conn, cmdType string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", cmdType, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: cmdType, Data: payload}); err != nil {
		t.Fatalf("write %s: %v", cmdType, err)
	}
}

func readEnvelope(t *testing.T, ctx context.Context, conn *websocket.Conn) wsEnvelope {
	t.Helper()

	var env wsEnvelope
	if err := wsjson.Read(ctx, conn, &env); err != nil {
		t.Fatalf("read envelope: %v", err)
	}
	return env
}

// readUntil skips envelopes until one of the wanted type arrives.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, wanted string) wsEnvelope {
	t.Helper()

	for i := 0; i < 20; i++ {
		env := readEnvelope(t, ctx, conn)
		if env.Type == wanted {
			return env
		}
	}
	t.Fatalf("no %s envelope received", wanted)
	return wsEnvelope{}
}

func TestWebSocketJoinAndChat(t *testing.T) {
	s := startTestServer(t)
	aliceToken, _ := s.registerUser(t, "alice", "member")
	bobToken, _ := s.registerUser(t, "bob", "member")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice := dialWS(t, ctx, s, aliceToken)
	bob := dialWS(t, ctx, s, bobToken)

	sendCommand(t, ctx, alice, proto.InboundJoinCohort, proto.JoinCohortData{CohortID: "cohort-1"})
	sendCommand(t, ctx, bob, proto.InboundJoinCohort, proto.JoinCohortData{CohortID: "cohort-1"})

	// The snapshot is always the first event after joining.
	env := readEnvelope(t, ctx, alice)
	if env.Type != proto.OutboundSnapshot || env.CohortID != "cohort-1" {
		t.Fatalf("first event = %s, want snapshot", env.Type)
	}
	env = readEnvelope(t, ctx, bob)
	if env.Type != proto.OutboundSnapshot {
		t.Fatalf("first event = %s, want snapshot", env.Type)
	}

	sendCommand(t, ctx, alice, proto.InboundSendMessage, proto.SendMessageData{
		CohortID: "cohort-1", Text: "hi there",
	})

	env = readUntil(t, ctx, bob, proto.OutboundMessage)
	var msg proto.MessageData
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		t.Fatalf("unmarshal message: %v", err)
	}
	if msg.Username != "alice" || msg.Text != "hi there" {
		t.Fatalf("unexpected message payload: %+v", msg)
	}

	// Chat feeds the leaderboard; the follow-up event is one version later.
	board := readUntil(t, ctx, bob, proto.OutboundLeaderboard)
	if board.Version != env.Version+1 {
		t.Fatalf("leaderboard version %d, message version %d", board.Version, env.Version)
	}

	// Chat also refreshes the engagement series.
	stats := readUntil(t, ctx, bob, proto.OutboundAnalytics)
	var view core.AnalyticsView
	if err := json.Unmarshal(stats.Data, &view); err != nil {
		t.Fatalf("unmarshal analytics: %v", err)
	}
	if n := len(view.Chats); n == 0 || view.Chats[n-1] != 1 {
		t.Fatalf("analytics missed the message: %+v", view.Chats)
	}
}

func TestWebSocketModerationFlow(t *testing.T) {
	s := startTestServer(t)
	modToken, _ := s.registerUser(t, "mod", "moderator")
	memberToken, memberID := s.registerUser(t, "member", "member")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mod := dialWS(t, ctx, s, modToken)
	member := dialWS(t, ctx, s, memberToken)

	sendCommand(t, ctx, mod, proto.InboundJoinCohort, proto.JoinCohortData{CohortID: "cohort-1"})
	sendCommand(t, ctx, member, proto.InboundJoinCohort, proto.JoinCohortData{CohortID: "cohort-1"})
	readEnvelope(t, ctx, mod)
	readEnvelope(t, ctx, member)

	// A member may not ban; the rejection goes to the member only.
	sendCommand(t, ctx, member, proto.InboundBanUser, proto.BanUserData{
		CohortID: "cohort-1", UserID: "someone",
	})
	env := readUntil(t, ctx, member, proto.OutboundError)
	if env.Error == nil || env.Error.Code != "authorization_error" {
		t.Fatalf("unexpected error envelope: %+v", env.Error)
	}

	sendCommand(t, ctx, mod, proto.InboundBanUser, proto.BanUserData{
		CohortID: "cohort-1", UserID: memberID,
	})
	env = readUntil(t, ctx, member, proto.OutboundUserBanned)
	var banned proto.UserBannedData
	if err := json.Unmarshal(env.Data, &banned); err != nil {
		t.Fatalf("unmarshal ban: %v", err)
	}
	if banned.UserID != memberID {
		t.Fatalf("unexpected banned user: %+v", banned)
	}

	// Banned members are rejected at admission time.
	sendCommand(t, ctx, member, proto.InboundSendMessage, proto.SendMessageData{
		CohortID: "cohort-1", Text: "let me in",
	})
	env = readUntil(t, ctx, member, proto.OutboundError)
	if env.Error == nil || env.Error.Code != "forbidden" {
		t.Fatalf("unexpected error envelope: %+v", env.Error)
	}
}

func TestWebSocketPollFlow(t *testing.T) {
	s := startTestServer(t)
	modToken, _ := s.registerUser(t, "mod", "moderator")
	voterToken, _ := s.registerUser(t, "voter", "member")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mod := dialWS(t, ctx, s, modToken)
	voter := dialWS(t, ctx, s, voterToken)

	sendCommand(t, ctx, mod, proto.InboundJoinCohort, proto.JoinCohortData{CohortID: "cohort-1"})
	sendCommand(t, ctx, voter, proto.InboundJoinCohort, proto.JoinCohortData{CohortID: "cohort-1"})
	readEnvelope(t, ctx, mod)
	readEnvelope(t, ctx, voter)

	sendCommand(t, ctx, mod, proto.InboundStartPoll, proto.StartPollData{
		CohortID: "cohort-1", Question: "Ready?", Options: []string{"yes", "no"},
	})
	env := readUntil(t, ctx, voter, proto.OutboundPollUpdate)

	var poll struct {
		ID    string         `json:"id"`
		State string         `json:"state"`
		Votes map[string]int `json:"votes"`
	}
	if err := json.Unmarshal(env.Data, &poll); err != nil {
		t.Fatalf("unmarshal poll: %v", err)
	}
	if poll.State != "open" {
		t.Fatalf("unexpected poll: %+v", poll)
	}

	sendCommand(t, ctx, voter, proto.InboundVote, proto.VoteData{CohortID: "cohort-1", Option: "yes"})
	env = readUntil(t, ctx, voter, proto.OutboundPollUpdate)
	if err := json.Unmarshal(env.Data, &poll); err != nil {
		t.Fatalf("unmarshal tally: %v", err)
	}
	if poll.Votes["yes"] != 1 || poll.Votes["no"] != 0 {
		t.Fatalf("unexpected tally: %+v", poll.Votes)
	}

	// Second vote from the same user is rejected, tally unchanged.
	sendCommand(t, ctx, voter, proto.InboundVote, proto.VoteData{CohortID: "cohort-1", Option: "no"})
	env = readUntil(t, ctx, voter, proto.OutboundError)
	if env.Error == nil || env.Error.Code != "conflict" {
		t.Fatalf("unexpected error envelope: %+v", env.Error)
	}

	sendCommand(t, ctx, mod, proto.InboundEndPoll, proto.EndPollData{CohortID: "cohort-1"})
	env = readUntil(t, ctx, voter, proto.OutboundPollEnded)
	if err := json.Unmarshal(env.Data, &poll); err != nil {
		t.Fatalf("unmarshal final: %v", err)
	}
	if poll.State != "closed" || poll.Votes["yes"] != 1 {
		t.Fatalf("unexpected final poll: %+v", poll)
	}
}

func TestWebSocketUnknownCommand(t *testing.T) {
	s := startTestServer(t)
	token, _ := s.registerUser(t, "alice", "member")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, s, token)
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: "teleport"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	env := readEnvelope(t, ctx, conn)
	if env.Type != proto.OutboundError || env.Error == nil || env.Error.Code != "invalid_message" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}
