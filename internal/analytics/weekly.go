package analytics

import (
	"sort"
	"time"

	"aichannel-bot/internal/postlog"
	"aichannel-bot/pkg/utils"
)

const (
	reportWindow   = 7 * 24 * time.Hour
	reportTopPosts = 3
	previewRunes   = 70
)

// TopPost is one entry of the weekly leaderboard.
type TopPost struct {
	MessageID int
	Reactions int
	Preview   string
}

// WeeklySummary covers the posts of the last seven days.
type WeeklySummary struct {
	From           time.Time
	To             time.Time
	TotalPosts     int
	TotalReactions int
	MeanReactions  float64
	Top            []TopPost
}

// Empty reports whether no post fell into the window.
func (w WeeklySummary) Empty() bool {
	return w.TotalPosts == 0
}

// WeeklyReport summarises records published strictly after now minus seven days.
func WeeklyReport(records []postlog.Record, now time.Time) WeeklySummary {
	summary := WeeklySummary{From: now.Add(-reportWindow), To: now}

	var recent []postlog.Record
	for _, rec := range records {
		if rec.HasTimestamp() && rec.Timestamp.After(summary.From) {
			recent = append(recent, rec)
			summary.TotalReactions += rec.Reactions
		}
	}
	summary.TotalPosts = len(recent)
	if summary.TotalPosts == 0 {
		return summary
	}
	summary.MeanReactions = float64(summary.TotalReactions) / float64(summary.TotalPosts)

	sort.SliceStable(recent, func(i, j int) bool { return recent[i].Reactions > recent[j].Reactions })
	for i := 0; i < len(recent) && i < reportTopPosts; i++ {
		summary.Top = append(summary.Top, TopPost{
			MessageID: recent[i].MessageID,
			Reactions: recent[i].Reactions,
			Preview:   utils.Preview(recent[i].Text, previewRunes),
		})
	}
	return summary
}
