package core

import (
	"sort"
	"time"
)

// ScoreWeights are the per-event point values feeding the leaderboard.
type ScoreWeights struct {
	Chat       int
	Vote       int
	Attendance int
}

// DefaultScoreWeights mirrors the "points from chat, polls, and engagement"
// split of the dashboard.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{Chat: 1, Vote: 2, Attendance: 5}
}

// LeaderboardEntry is one ranked row of the leaderboard snapshot.
type LeaderboardEntry struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"name"`
	Score       int    `json:"score"`
	Rank        int    `json:"rank"`
}

type participantScore struct {
	userID      string
	displayName string
	score       int
	firstAt     time.Time
}

// leaderboard derives scores from admitted chat messages, cast votes, and
// attendance events. Ordering is deterministic: score descending, then
// earliest first contribution, then userID.
type leaderboard struct {
	weights ScoreWeights
	scores  map[string]*participantScore
}

func newLeaderboard(weights ScoreWeights) *leaderboard {
	return &leaderboard{
		weights: weights,
		scores:  make(map[string]*participantScore),
	}
}

func (b *leaderboard) record(userID, displayName string, points int, at time.Time) {
	s, ok := b.scores[userID]
	if !ok {
		s = &participantScore{userID: userID, displayName: displayName, firstAt: at}
		b.scores[userID] = s
	}
	if displayName != "" {
		s.displayName = displayName
	}
	s.score += points
}

func (b *leaderboard) recordChat(userID, name string, at time.Time) {
	b.record(userID, name, b.weights.Chat, at)
}

func (b *leaderboard) recordVote(userID, name string, at time.Time) {
	b.record(userID, name, b.weights.Vote, at)
}

func (b *leaderboard) recordAttendance(userID, name string, at time.Time) {
	b.record(userID, name, b.weights.Attendance, at)
}

// snapshot produces the ranked entries. Ranks are assigned at snapshot time.
func (b *leaderboard) snapshot() []LeaderboardEntry {
	ordered := make([]*participantScore, 0, len(b.scores))
	for _, s := range b.scores {
		ordered = append(ordered, s)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].score != ordered[j].score {
			return ordered[i].score > ordered[j].score
		}
		if !ordered[i].firstAt.Equal(ordered[j].firstAt) {
			return ordered[i].firstAt.Before(ordered[j].firstAt)
		}
		return ordered[i].userID < ordered[j].userID
	})

	entries := make([]LeaderboardEntry, 0, len(ordered))
	for i, s := range ordered {
		entries = append(entries, LeaderboardEntry{
			UserID:      s.userID,
			DisplayName: s.displayName,
			Score:       s.score,
			Rank:        i + 1,
		})
	}
	return entries
}
