package shoes

import (
	"fmt"
	"sort"
	"time"
)

// Granularity selects the calendar bucketing for period reports.
type Granularity int

const (
	Weekly Granularity = iota
	Monthly
	Yearly
)

func (g Granularity) String() string {
	switch g {
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	case Yearly:
		return "yearly"
	}
	return "unknown"
}

// ParseGranularity maps a report type argument to its Granularity.
func ParseGranularity(s string) (Granularity, error) {
	switch s {
	case "weekly":
		return Weekly, nil
	case "monthly":
		return Monthly, nil
	case "yearly":
		return Yearly, nil
	}
	return 0, fmt.Errorf("unknown granularity %q", s)
}

// label buckets a start date. Labels are fixed width per granularity so their
// lexicographic order is chronological.
func (g Granularity) label(t time.Time) string {
	switch g {
	case Weekly:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case Monthly:
		return t.Format("2006-01")
	default:
		return t.Format("2006")
	}
}

type accumulator struct {
	period    string
	gearID    string
	meters    float64
	seconds   int
	elevation float64
	count     int
}

func (a *accumulator) add(act *Activity) {
	a.meters += act.Distance
	a.seconds += act.MovingTime
	a.elevation += act.ElevationGain
	a.count++
}

// row materializes the accumulator, converting meters to km and seconds to
// hours. No rounding; formatting is the consumer's concern.
func (a *accumulator) row(gear map[string]string) *Row {
	name, ok := gear[a.gearID]
	if !ok {
		name = a.gearID
	}
	return &Row{
		Period:        a.period,
		GearID:        a.gearID,
		GearName:      name,
		Distance:      a.meters / 1000,
		MovingTime:    float64(a.seconds) / 3600,
		ElevationGain: a.elevation,
		Count:         a.count,
	}
}

// Summary aggregates the all-time totals per shoe. Activities with no gear id
// are excluded. Rows are sorted by total distance descending, gear id breaking
// ties; a gear id missing from the name mapping keeps the raw id as its name.
func Summary(acts []*Activity, gear map[string]string) []*Row {
	groups := make(map[string]*accumulator)
	for _, act := range acts {
		if act.GearID == "" {
			continue
		}
		acc, ok := groups[act.GearID]
		if !ok {
			acc = &accumulator{gearID: act.GearID}
			groups[act.GearID] = acc
		}
		acc.add(act)
	}
	rows := make([]*Row, 0, len(groups))
	for _, acc := range groups {
		rows = append(rows, acc.row(gear))
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Distance != rows[j].Distance {
			return rows[i].Distance > rows[j].Distance
		}
		return rows[i].GearID < rows[j].GearID
	})
	return rows
}

// Report aggregates per shoe within calendar periods. Activities before the
// cutoff, with no gear id, or with no start date are excluded. Periods with no
// qualifying activity produce no row. Rows are sorted by period descending
// (most recent first), then distance descending, then gear id.
func Report(acts []*Activity, gear map[string]string, g Granularity, after time.Time) []*Row {
	type key struct {
		period string
		gearID string
	}
	groups := make(map[key]*accumulator)
	for _, act := range acts {
		if act.GearID == "" || act.StartDate.IsZero() {
			continue
		}
		if !after.IsZero() && act.StartDate.Before(after) {
			continue
		}
		k := key{period: g.label(act.StartDate), gearID: act.GearID}
		acc, ok := groups[k]
		if !ok {
			acc = &accumulator{period: k.period, gearID: k.gearID}
			groups[k] = acc
		}
		acc.add(act)
	}
	rows := make([]*Row, 0, len(groups))
	for _, acc := range groups {
		rows = append(rows, acc.row(gear))
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Period != rows[j].Period {
			return rows[i].Period > rows[j].Period
		}
		if rows[i].Distance != rows[j].Distance {
			return rows[i].Distance > rows[j].Distance
		}
		return rows[i].GearID < rows[j].GearID
	})
	return rows
}

// Activities returns the activities matching an optional gear id and cutoff,
// most recent first, each annotated with its resolved gear name. The input is
// never modified; returned records are copies.
func Activities(acts []*Activity, gearID string, after time.Time, gear map[string]string) []*Activity {
	res := make([]*Activity, 0, len(acts))
	for _, act := range acts {
		if gearID != "" && act.GearID != gearID {
			continue
		}
		if !after.IsZero() && act.StartDate.Before(after) {
			continue
		}
		dup := *act
		if dup.GearID != "" {
			name, ok := gear[dup.GearID]
			if !ok {
				name = dup.GearID
			}
			dup.GearName = name
		}
		res = append(res, &dup)
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].StartDate.Equal(res[j].StartDate) {
			return res[i].StartDate.After(res[j].StartDate)
		}
		return res[i].ID < res[j].ID
	})
	return res
}
