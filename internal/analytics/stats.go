// Package analytics derives posting-time recommendations and reports from the post log.
package analytics

import (
	"sort"

	"aichannel-bot/internal/postlog"
	"aichannel-bot/pkg/utils"
)

// HourStat aggregates the posts published within one UTC hour of the day.
type HourStat struct {
	Hour          int
	Posts         int
	Reactions     int
	MeanReactions float64
}

// BestTime is the recommended daily posting time.
type BestTime struct {
	// Time is formatted as HH:MM.
	Time          string
	Hour          int
	MeanReactions float64
	// Fallback is set when there was nothing to analyse and Time comes from configuration.
	Fallback bool
	Stats    []HourStat
}

// HourlyStats groups records with a valid timestamp by UTC hour. The result is sorted by hour.
func HourlyStats(records []postlog.Record) []HourStat {
	byHour := make(map[int]*HourStat)
	for _, rec := range records {
		if !rec.HasTimestamp() {
			continue
		}
		h := rec.Timestamp.UTC().Hour()
		st, ok := byHour[h]
		if !ok {
			st = &HourStat{Hour: h}
			byHour[h] = st
		}
		st.Posts++
		st.Reactions += rec.Reactions
	}

	stats := make([]HourStat, 0, len(byHour))
	for _, st := range byHour {
		st.MeanReactions = float64(st.Reactions) / float64(st.Posts)
		stats = append(stats, *st)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Hour < stats[j].Hour })
	return stats
}

// BestPostingTime returns the hour with the highest mean reaction count.
// Ties go to the earliest hour. Without usable records the fallback time is returned.
func BestPostingTime(records []postlog.Record, fallback string) BestTime {
	stats := HourlyStats(records)
	if len(stats) == 0 {
		h, _, _ := utils.ParseClock(fallback)
		return BestTime{Time: fallback, Hour: h, Fallback: true}
	}

	best := stats[0]
	for _, st := range stats[1:] {
		if st.MeanReactions > best.MeanReactions {
			best = st
		}
	}
	return BestTime{
		Time:          utils.FormatClock(best.Hour, 0),
		Hour:          best.Hour,
		MeanReactions: best.MeanReactions,
		Stats:         stats,
	}
}
