package core

import "time"

// analyticsWindow bounds both series to the most recent half hour of buckets.
const analyticsWindow = 30

// AnalyticsView is the dashboard-facing engagement summary: parallel
// per-minute series plus a 0-100 engagement score.
type AnalyticsView struct {
	Viewers    []int `json:"viewers"`
	Chats      []int `json:"chats"`
	Engagement int   `json:"engagement"`
}

type analyticsBucket struct {
	minute  time.Time
	viewers int
	chats   int
}

// analytics keeps minute-bucketed viewer counts and chat activity for one
// room. Viewer samples are taken on membership changes, chat samples on every
// admitted message. All writes happen under the room mutex.
type analytics struct {
	buckets []analyticsBucket
}

func newAnalytics() *analytics {
	return &analytics{}
}

// bucketFor rolls to the bucket covering now, carrying the last known viewer
// count forward so quiet minutes still chart the audience.
func (a *analytics) bucketFor(now time.Time) *analyticsBucket {
	minute := now.Truncate(time.Minute)
	if n := len(a.buckets); n > 0 && a.buckets[n-1].minute.Equal(minute) {
		return &a.buckets[n-1]
	}
	carry := 0
	if n := len(a.buckets); n > 0 {
		carry = a.buckets[n-1].viewers
	}
	a.buckets = append(a.buckets, analyticsBucket{minute: minute, viewers: carry})
	if len(a.buckets) > analyticsWindow {
		a.buckets = a.buckets[len(a.buckets)-analyticsWindow:]
	}
	return &a.buckets[len(a.buckets)-1]
}

func (a *analytics) recordViewers(now time.Time, count int) {
	a.bucketFor(now).viewers = count
}

func (a *analytics) recordChat(now time.Time) {
	a.bucketFor(now).chats++
}

// view builds the series. The engagement score reads the latest bucket: ten
// messages per viewer within a minute saturates the score at 100, an empty
// room scores zero.
func (a *analytics) view() *AnalyticsView {
	v := &AnalyticsView{
		Viewers: make([]int, 0, len(a.buckets)),
		Chats:   make([]int, 0, len(a.buckets)),
	}
	for _, b := range a.buckets {
		v.Viewers = append(v.Viewers, b.viewers)
		v.Chats = append(v.Chats, b.chats)
	}
	if n := len(a.buckets); n > 0 && a.buckets[n-1].viewers > 0 {
		last := a.buckets[n-1]
		score := last.chats * 10 / last.viewers
		if score > 100 {
			score = 100
		}
		v.Engagement = score
	}
	return v
}
