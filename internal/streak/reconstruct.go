package streak

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/streakdhq/streakd/internal/date"
	"github.com/streakdhq/streakd/internal/models"
)

// DayRecord is one (day, qualifies) pair from a user's history.
type DayRecord struct {
	Day       date.Day
	StreakDay bool
}

// sequence is a maximal run of consecutive streak days, used only while
// scanning. Runs are closed into models.StreakRun entries.
type sequence struct {
	start  date.Day
	end    date.Day
	length int
}

// Reconstruct derives streak statistics from a user's complete day history.
//
// The history need not be sorted and may contain records from legacy writers;
// reconstruction is total over arbitrary input. today is the evaluation day
// and is the only calendar-dependent input: a run is current iff it ends on
// today or yesterday. Recomputing from the full history every time keeps the
// result idempotent and self-healing at the cost of O(n) per run, which is
// the intended trade-off for a once-or-twice-daily per-user operation.
func Reconstruct(userID uuid.UUID, history []DayRecord, today date.Day, threshold int) (*models.StreakData, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	if !today.Valid() {
		return nil, fmt.Errorf("invalid evaluation day %q", today)
	}
	if threshold <= 0 {
		threshold = models.DefaultStreakThreshold
	}

	records := make([]DayRecord, 0, len(history))
	for _, rec := range history {
		// Skip unparseable legacy rows rather than failing the whole recompute.
		if rec.Day.Valid() {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Day.Before(records[j].Day)
	})

	data := models.NewStreakData(userID)
	data.StreakThreshold = threshold

	var sequences []sequence
	var run *sequence
	closeRun := func() {
		if run != nil {
			sequences = append(sequences, *run)
			run = nil
		}
	}

	for _, rec := range records {
		if !rec.StreakDay {
			closeRun()
			continue
		}
		if run != nil && run.end == rec.Day {
			// Duplicate record for the same day from a legacy writer;
			// count the day once.
			continue
		}
		data.TotalDaysActive++
		data.LastActiveDate = rec.Day

		switch {
		case run == nil:
			run = &sequence{start: rec.Day, end: rec.Day, length: 1}
		case run.end.Next() == rec.Day:
			run.end = rec.Day
			run.length++
		default:
			closeRun()
			run = &sequence{start: rec.Day, end: rec.Day, length: 1}
		}
	}
	closeRun()

	for _, seq := range sequences {
		if seq.length > data.LongestStreak {
			data.LongestStreak = seq.length
		}
	}

	// The last sequence is current iff it reaches today or yesterday; the
	// yesterday case tolerates today's activity not being recorded yet.
	currentIdx := -1
	if n := len(sequences); n > 0 {
		last := sequences[n-1]
		if last.end == today || last.end == today.Prev() {
			currentIdx = n - 1
			data.CurrentStreak = last.length
		}
	}

	for i, seq := range sequences {
		if i == currentIdx {
			continue
		}
		data.StreakHistory = append(data.StreakHistory, models.StreakRun{
			StartDate: seq.start,
			EndDate:   seq.end,
			Length:    seq.length,
		})
	}

	if data.LongestStreak < data.CurrentStreak {
		// Cannot happen for fresh output; guard the invariant anyway.
		data.LongestStreak = data.CurrentStreak
	}

	return data, nil
}

// HistoryFromStats classifies stored DailyStats rows under threshold. The
// stored streak-day flag is deliberately ignored: rows carry every classifier
// input, and re-deriving the flag is what makes a threshold change
// reclassify existing history on the next recompute. Rows with inconsistent
// legacy counters (completed > assigned) are clamped instead of rejected, so
// reconstruction stays total over arbitrary historical data.
func HistoryFromStats(stats []*models.DailyStats, threshold int) []DayRecord {
	records := make([]DayRecord, 0, len(stats))
	for _, s := range stats {
		if s == nil {
			continue
		}
		row := *s
		if row.TasksCompleted > row.TasksAssigned {
			row.TasksCompleted = row.TasksAssigned
			if row.TasksAssigned > 0 {
				row.CompletionPercentage = 100
			} else {
				row.CompletionPercentage = 0
			}
		}
		records = append(records, DayRecord{Day: s.Day, StreakDay: IsStreakDay(&row, threshold)})
	}
	return records
}
