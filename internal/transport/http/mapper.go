package http

import (
	"context"
	"encoding/json"

	"github.com/cohortlabs/cohort-hub/internal/core"
	"github.com/cohortlabs/cohort-hub/internal/proto"
)

// handleInbound executes one client command against the hub. Room mutations
// are synchronous: by the time this returns, an accepted mutation has been
// versioned and fanned out by the owning room. A non-nil return is a
// rejection for the originating connection.
func (h *WSHandler) handleInbound(ctx context.Context, client *core.Client, limiter *rateLimiter, inbound proto.Inbound) *proto.Error {
	switch inbound.Type {
	case proto.InboundJoinCohort:
		var data proto.JoinCohortData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return malformed()
		}
		if err := h.hub.Join(client, data.CohortID); err != nil {
			return errToProto(err)
		}
		// Presence counts toward the leaderboard.
		h.hub.Attendance(data.CohortID, client.UserID, client.DisplayName)
		return nil

	case proto.InboundSendMessage:
		var data proto.SendMessageData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return malformed()
		}
		if !limiter.allow() {
			return &proto.Error{Code: "rate_limited", Msg: "too many messages, slow down"}
		}
		if _, err := h.hub.SendMessage(client, data.CohortID, data.Text); err != nil {
			return errToProto(err)
		}
		return nil

	case proto.InboundVote:
		var data proto.VoteData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return malformed()
		}
		return errToProto(h.hub.Vote(client, data.CohortID, data.Option))

	case proto.InboundBanUser:
		var data proto.BanUserData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return malformed()
		}
		return errToProto(h.hub.Ban(ctx, client, data.CohortID, data.UserID))

	case proto.InboundStartPoll:
		var data proto.StartPollData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return malformed()
		}
		if _, err := h.hub.CreatePoll(client, data.CohortID, data.Question, data.Options); err != nil {
			return errToProto(err)
		}
		return nil

	case proto.InboundEndPoll:
		var data proto.EndPollData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return malformed()
		}
		return errToProto(h.hub.EndPoll(client, data.CohortID))

	case proto.InboundUpdateStream:
		var data proto.UpdateStreamData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return malformed()
		}
		return errToProto(h.hub.UpdateStream(ctx, client, data.CohortID, data.Status, data.URL))

	default:
		return &proto.Error{Code: "invalid_message", Msg: "unknown message type"}
	}
}

func malformed() *proto.Error {
	return &proto.Error{Code: core.ErrCodeValidation, Msg: "malformed command data"}
}

func errToProto(err error) *proto.Error {
	if err == nil {
		return nil
	}
	code := core.ErrorCode(err)
	if code == "" {
		code = "internal_error"
	}
	return &proto.Error{Code: code, Msg: err.Error()}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	out := proto.Outbound{
		CohortID: event.Room,
		Version:  event.Version,
	}
	switch event.Kind {
	case core.EventSnapshot:
		out.Type = proto.OutboundSnapshot
		out.Data = event.Snapshot
	case core.EventStreamStatus:
		out.Type = proto.OutboundStreamStatus
		out.Data = proto.StreamStatusData{
			Status: string(event.Stream.Status),
			URL:    event.Stream.URL,
		}
	case core.EventPollUpdate:
		out.Type = proto.OutboundPollUpdate
		out.Data = event.Poll
	case core.EventPollEnded:
		out.Type = proto.OutboundPollEnded
		out.Data = event.Poll
	case core.EventMessage:
		out.Type = proto.OutboundMessage
		out.Data = proto.MessageData{
			ID:        event.Message.ID,
			UserID:    event.Message.SenderID,
			Username:  event.Message.SenderName,
			Text:      event.Message.Text,
			Timestamp: event.Message.Timestamp,
		}
	case core.EventUserBanned:
		out.Type = proto.OutboundUserBanned
		out.Data = proto.UserBannedData{UserID: event.BannedUserID}
	case core.EventLeaderboard:
		out.Type = proto.OutboundLeaderboard
		out.Data = event.Leaderboard
	case core.EventAnalytics:
		out.Type = proto.OutboundAnalytics
		out.Data = event.Analytics
	case core.EventStreamScheduled:
		out.Type = proto.OutboundStreamScheduled
		out.Data = event.Scheduled
	case core.EventNotification:
		out.Type = proto.OutboundNotification
		out.Data = event.Notification
	case core.EventError:
		out.Type = proto.OutboundError
		if event.Error != nil {
			out.Error = &proto.Error{Code: event.Error.Code, Msg: event.Error.Message}
		}
	default:
		out.Type = proto.OutboundError
		out.Error = &proto.Error{Code: "unknown", Msg: "unknown event"}
	}
	return out
}
