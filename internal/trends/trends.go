// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package trends projects activity rows into daily and weekly buckets
// with continuous, gap-filled timelines per requested range. All
// grouping uses the activity's local start date; multiple activities
// on one date are summed. Strictly read-side.
package trends

import (
	"strings"
	"time"

	"github.com/stridelab/stride-backend/internal/repository"
	"github.com/stridelab/stride-backend/internal/util"
	"github.com/stridelab/stride-backend/pkg/schema"
)

// Range keys and their day counts. ALL is unbounded.
var rangeDays = map[string]int{
	"7D":  7,
	"30D": 30,
	"3M":  90,
	"6M":  180,
	"1Y":  365,
	"ALL": 0,
}

const dateLayout = "2006-01-02"

/* Response types */

type Summary struct {
	TotalDistanceM   int     `json:"total_distance_m"`
	TotalMovingTimeS int     `json:"total_moving_time_s"`
	ActivityCount    int     `json:"activity_count"`
	TotalSufferScore float64 `json:"total_suffer_score"`
}

type WeeklyDistancePoint struct {
	WeekStart      string `json:"week_start"`
	TotalDistanceM int    `json:"total_distance_m"`
	ActivityCount  int    `json:"activity_count"`
}

type WeeklyTimePoint struct {
	WeekStart        string `json:"week_start"`
	TotalMovingTimeS int    `json:"total_moving_time_s"`
	ActivityCount    int    `json:"activity_count"`
}

type WeeklySufferScorePoint struct {
	WeekStart   string  `json:"week_start"`
	EffortScore float64 `json:"effort_score"`
}

type DailyDistancePoint struct {
	Date           string `json:"date"`
	TotalDistanceM int    `json:"total_distance_m"`
	ActivityCount  int    `json:"activity_count"`
}

type DailyTimePoint struct {
	Date             string `json:"date"`
	TotalMovingTimeS int    `json:"total_moving_time_s"`
	ActivityCount    int    `json:"activity_count"`
}

type SufferScorePoint struct {
	Date        string  `json:"date"`
	EffortScore float64 `json:"effort_score"`
	Type        string  `json:"type"`
}

type DailySufferScorePoint struct {
	Date        string  `json:"date"`
	EffortScore float64 `json:"effort_score"`
}

type EfficiencyPoint struct {
	Date             string  `json:"date"`
	EfficiencyMpsBpm float64 `json:"efficiency_mps_per_bpm"`
	Type             string  `json:"type"`
}

type ZoneLoadWeekPoint struct {
	WeekStart   string  `json:"week_start"`
	EasyMin     float64 `json:"easy_min"`
	ModerateMin float64 `json:"moderate_min"`
	HardMin     float64 `json:"hard_min"`
}

type DailyZoneLoadPoint struct {
	Date        string  `json:"date"`
	EasyMin     float64 `json:"easy_min"`
	ModerateMin float64 `json:"moderate_min"`
	HardMin     float64 `json:"hard_min"`
}

type Response struct {
	Range             string                   `json:"range"`
	Summary           Summary                  `json:"summary"`
	PreviousSummary   *Summary                 `json:"previous_summary"`
	WeeklyDistance    []WeeklyDistancePoint    `json:"weekly_distance"`
	WeeklyTime        []WeeklyTimePoint        `json:"weekly_time"`
	WeeklySufferScore []WeeklySufferScorePoint `json:"weekly_suffer_score"`
	DailyDistance     []DailyDistancePoint     `json:"daily_distance"`
	DailyTime         []DailyTimePoint         `json:"daily_time"`
	SufferScore       []SufferScorePoint       `json:"suffer_score"`
	DailySufferScore  []DailySufferScorePoint  `json:"daily_suffer_score"`
	EfficiencyTrend   []EfficiencyPoint        `json:"efficiency_trend"`
	WeeklyZoneLoad    []ZoneLoadWeekPoint      `json:"weekly_zone_load"`
	DailyZoneLoad     []DailyZoneLoadPoint     `json:"daily_zone_load"`
}

/* Facts */

// activityFact is the minimal per-activity projection the charts need.
type activityFact struct {
	localDate     time.Time
	effectiveType string
	distanceM     int
	movingTimeS   int
	elapsedTimeS  int
	elevGainM     float64
	avgHR         *float64
	avgSpeedMps   *float64
	effortScore   *float64
	timeInZones   schema.ZoneTimes
}

type dailyFact struct {
	localDate        time.Time
	totalDistanceM   int
	totalMovingTimeS int
	totalEffort      float64
	activityCount    int
}

type weekBucket struct {
	weekStart        time.Time
	totalDistanceM   int
	totalMovingTimeS int
	totalEffort      float64
	activityCount    int
}

// Aggregator reads activities with their metrics eagerly loaded and
// folds them into the chart series.
type Aggregator struct {
	activities *repository.ActivityRepository
}

func NewAggregator() *Aggregator {
	return &Aggregator{activities: repository.GetActivityRepository()}
}

// AvailableTypes lists the distinct provider types of a user.
func (ag *Aggregator) AvailableTypes(userID string) ([]string, error) {
	return ag.activities.DistinctTypes(userID)
}

// BuildReport assembles the complete trends response for one range.
// Unknown range keys fall back to 30D.
func (ag *Aggregator) BuildReport(userID, rangeKey string, types []string) (*Response, error) {
	rangeKey = strings.ToUpper(rangeKey)
	days, ok := rangeDays[rangeKey]
	if !ok {
		rangeKey, days = "30D", 30
	}

	today := dateOf(time.Now().UTC())

	var since *time.Time
	if days > 0 {
		s := today.AddDate(0, 0, -days)
		since = &s
	}

	facts, err := ag.queryFacts(userID, since, nil, types)
	if err != nil {
		return nil, err
	}

	daily := buildDailyFacts(facts)

	summary := Summary{}
	for _, d := range daily {
		summary.TotalDistanceM += d.totalDistanceM
		summary.TotalMovingTimeS += d.totalMovingTimeS
		summary.ActivityCount += d.activityCount
		summary.TotalSufferScore += d.totalEffort
	}

	// Previous period: the same-length window immediately before the
	// current range. Undefined for ALL.
	var previous *Summary
	if days > 0 {
		currentStart := today.AddDate(0, 0, -days)
		prevStart := currentStart.AddDate(0, 0, -days)
		prevFacts, err := ag.queryFacts(userID, &prevStart, &currentStart, types)
		if err != nil {
			return nil, err
		}
		prev := Summary{ActivityCount: len(prevFacts)}
		for _, f := range prevFacts {
			prev.TotalDistanceM += f.distanceM
			prev.TotalMovingTimeS += f.movingTimeS
			if f.effortScore != nil {
				prev.TotalSufferScore += *f.effortScore
			}
		}
		previous = &prev
	}

	continuousDaily := fillDaily(daily, since, today)
	weekly := buildWeeklyBuckets(daily, since, today)

	resp := &Response{
		Range:           rangeKey,
		Summary:         summary,
		PreviousSummary: previous,
	}

	for _, d := range continuousDaily {
		resp.DailyDistance = append(resp.DailyDistance, DailyDistancePoint{
			Date:           d.localDate.Format(dateLayout),
			TotalDistanceM: d.totalDistanceM,
			ActivityCount:  d.activityCount,
		})
		resp.DailyTime = append(resp.DailyTime, DailyTimePoint{
			Date:             d.localDate.Format(dateLayout),
			TotalMovingTimeS: d.totalMovingTimeS,
			ActivityCount:    d.activityCount,
		})
	}

	for _, w := range weekly {
		resp.WeeklyDistance = append(resp.WeeklyDistance, WeeklyDistancePoint{
			WeekStart:      w.weekStart.Format(dateLayout),
			TotalDistanceM: w.totalDistanceM,
			ActivityCount:  w.activityCount,
		})
		resp.WeeklyTime = append(resp.WeeklyTime, WeeklyTimePoint{
			WeekStart:        w.weekStart.Format(dateLayout),
			TotalMovingTimeS: w.totalMovingTimeS,
			ActivityCount:    w.activityCount,
		})
		resp.WeeklySufferScore = append(resp.WeeklySufferScore, WeeklySufferScorePoint{
			WeekStart:   w.weekStart.Format(dateLayout),
			EffortScore: util.Round(w.totalEffort, 1),
		})
	}

	resp.SufferScore = buildSufferScore(facts)
	resp.DailySufferScore = buildDailySufferScore(facts, since, today)
	resp.EfficiencyTrend = buildEfficiencyTrend(facts)
	resp.WeeklyZoneLoad = buildZoneLoadWeekly(facts, weekly)
	resp.DailyZoneLoad = buildZoneLoadDaily(facts, continuousDaily)
	return resp, nil
}

// queryFacts loads activities in [from, to) with their metrics and
// projects them. Type filtering is case-insensitive set membership on
// the effective type.
func (ag *Aggregator) queryFacts(userID string, from, to *time.Time, types []string) ([]activityFact, error) {
	activities, err := ag.activities.InRange(userID, from, to)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(activities))
	for i, a := range activities {
		ids[i] = a.ID
	}
	metrics, err := ag.activities.MetricsFor(ids)
	if err != nil {
		return nil, err
	}

	var typeSet map[string]bool
	if len(types) > 0 {
		typeSet = make(map[string]bool, len(types))
		for _, t := range types {
			typeSet[strings.ToLower(t)] = true
		}
	}

	facts := make([]activityFact, 0, len(activities))
	for _, a := range activities {
		fact := activityFact{
			localDate:     dateOf(a.StartDate),
			effectiveType: a.EffectiveType(),
			distanceM:     a.DistanceM,
			movingTimeS:   a.MovingTimeS,
			elapsedTimeS:  a.ElapsedTimeS,
			elevGainM:     a.ElevGainM,
			avgHR:         a.AvgHR,
			avgSpeedMps:   a.AverageSpeedMps,
		}
		if m, ok := metrics[a.ID]; ok {
			score := m.EffortScore
			fact.effortScore = &score
			fact.timeInZones = m.TimeInZones
		}

		if typeSet != nil && !typeSet[strings.ToLower(fact.effectiveType)] {
			continue
		}
		facts = append(facts, fact)
	}
	return facts, nil
}

func buildDailyFacts(facts []activityFact) []dailyFact {
	byDate := map[time.Time]*dailyFact{}
	var order []time.Time
	for _, f := range facts {
		d, ok := byDate[f.localDate]
		if !ok {
			d = &dailyFact{localDate: f.localDate}
			byDate[f.localDate] = d
			order = append(order, f.localDate)
		}
		d.totalDistanceM += f.distanceM
		d.totalMovingTimeS += f.movingTimeS
		d.activityCount++
		if f.effortScore != nil {
			d.totalEffort += *f.effortScore
		}
	}

	sortDates(order)
	out := make([]dailyFact, len(order))
	for i, d := range order {
		out[i] = *byDate[d]
	}
	return out
}

// fillDaily emits one row per day in [since, today], zero-filled.
func fillDaily(daily []dailyFact, since *time.Time, today time.Time) []dailyFact {
	start := today
	if since != nil {
		start = *since
	} else if len(daily) > 0 {
		start = daily[0].localDate
	}

	existing := map[time.Time]dailyFact{}
	for _, d := range daily {
		existing[d.localDate] = d
	}

	var out []dailyFact
	for cursor := start; !cursor.After(today); cursor = cursor.AddDate(0, 0, 1) {
		if d, ok := existing[cursor]; ok {
			out = append(out, d)
		} else {
			out = append(out, dailyFact{localDate: cursor})
		}
	}
	return out
}

// buildWeeklyBuckets rolls daily facts into ISO weeks (Monday start),
// contiguous from the range start's Monday through the current week.
func buildWeeklyBuckets(daily []dailyFact, since *time.Time, today time.Time) []weekBucket {
	buckets := map[time.Time]*weekBucket{}
	for _, d := range daily {
		monday := mondayOf(d.localDate)
		b, ok := buckets[monday]
		if !ok {
			b = &weekBucket{weekStart: monday}
			buckets[monday] = b
		}
		b.totalDistanceM += d.totalDistanceM
		b.totalMovingTimeS += d.totalMovingTimeS
		b.totalEffort += d.totalEffort
		b.activityCount += d.activityCount
	}

	endMonday := mondayOf(today)
	startMonday := endMonday
	if since != nil {
		startMonday = mondayOf(*since)
	} else if len(daily) > 0 {
		startMonday = mondayOf(daily[0].localDate)
	}

	var out []weekBucket
	for cursor := startMonday; !cursor.After(endMonday); cursor = cursor.AddDate(0, 0, 7) {
		if b, ok := buckets[cursor]; ok {
			out = append(out, *b)
		} else {
			out = append(out, weekBucket{weekStart: cursor})
		}
	}
	return out
}

func buildSufferScore(facts []activityFact) []SufferScorePoint {
	points := []SufferScorePoint{}
	for _, f := range facts {
		if f.effortScore == nil {
			continue
		}
		points = append(points, SufferScorePoint{
			Date:        f.localDate.Format(dateLayout),
			EffortScore: util.Round(*f.effortScore, 1),
			Type:        f.effectiveType,
		})
	}
	return points
}

func buildDailySufferScore(facts []activityFact, since *time.Time, today time.Time) []DailySufferScorePoint {
	start := today
	if since != nil {
		start = *since
	} else if len(facts) > 0 {
		start = facts[0].localDate
	}

	byDate := map[time.Time]float64{}
	for _, f := range facts {
		if f.effortScore != nil {
			byDate[f.localDate] += *f.effortScore
		}
	}

	points := []DailySufferScorePoint{}
	for cursor := start; !cursor.After(today); cursor = cursor.AddDate(0, 0, 1) {
		points = append(points, DailySufferScorePoint{
			Date:        cursor.Format(dateLayout),
			EffortScore: util.Round(byDate[cursor], 1),
		})
	}
	return points
}

// buildEfficiencyTrend emits speed/HR per activity, for activities of
// at least 1 km with a plausible average HR.
func buildEfficiencyTrend(facts []activityFact) []EfficiencyPoint {
	points := []EfficiencyPoint{}
	for _, f := range facts {
		if f.distanceM < 1000 || f.avgHR == nil || *f.avgHR < 1 {
			continue
		}

		var speed float64
		if f.avgSpeedMps != nil && *f.avgSpeedMps > 0 {
			speed = *f.avgSpeedMps
		} else if f.movingTimeS > 0 {
			speed = float64(f.distanceM) / float64(f.movingTimeS)
		}
		if speed <= 0 {
			continue
		}

		points = append(points, EfficiencyPoint{
			Date:             f.localDate.Format(dateLayout),
			EfficiencyMpsBpm: util.Round(speed / *f.avgHR, 4),
			Type:             f.effectiveType,
		})
	}
	return points
}

// collapseTo3Zones folds Z1..Z5 seconds into easy (Z1+Z2), moderate
// (Z3) and hard (Z4+Z5).
func collapseTo3Zones(zones schema.ZoneTimes) (easy, moderate, hard int) {
	return zones["Z1"] + zones["Z2"], zones["Z3"], zones["Z4"] + zones["Z5"]
}

func buildZoneLoadWeekly(facts []activityFact, weekly []weekBucket) []ZoneLoadWeekPoint {
	type zones struct{ easy, moderate, hard int }
	byWeek := map[time.Time]zones{}
	for _, f := range facts {
		if f.timeInZones == nil {
			continue
		}
		monday := mondayOf(f.localDate)
		e, m, h := collapseTo3Zones(f.timeInZones)
		prev := byWeek[monday]
		byWeek[monday] = zones{prev.easy + e, prev.moderate + m, prev.hard + h}
	}

	points := []ZoneLoadWeekPoint{}
	for _, wb := range weekly {
		z := byWeek[wb.weekStart]
		points = append(points, ZoneLoadWeekPoint{
			WeekStart:   wb.weekStart.Format(dateLayout),
			EasyMin:     util.Round(float64(z.easy)/60, 1),
			ModerateMin: util.Round(float64(z.moderate)/60, 1),
			HardMin:     util.Round(float64(z.hard)/60, 1),
		})
	}
	return points
}

func buildZoneLoadDaily(facts []activityFact, continuousDaily []dailyFact) []DailyZoneLoadPoint {
	type zones struct{ easy, moderate, hard int }
	byDate := map[time.Time]zones{}
	for _, f := range facts {
		if f.timeInZones == nil {
			continue
		}
		e, m, h := collapseTo3Zones(f.timeInZones)
		prev := byDate[f.localDate]
		byDate[f.localDate] = zones{prev.easy + e, prev.moderate + m, prev.hard + h}
	}

	points := []DailyZoneLoadPoint{}
	for _, d := range continuousDaily {
		z := byDate[d.localDate]
		points = append(points, DailyZoneLoadPoint{
			Date:        d.localDate.Format(dateLayout),
			EasyMin:     util.Round(float64(z.easy)/60, 1),
			ModerateMin: util.Round(float64(z.moderate)/60, 1),
			HardMin:     util.Round(float64(z.hard)/60, 1),
		})
	}
	return points
}

/* Date helpers */

// dateOf truncates to the local calendar date of the timestamp.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// mondayOf returns the Monday starting the ISO week of d.
func mondayOf(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

func sortDates(dates []time.Time) {
	for i := 1; i < len(dates); i++ {
		for j := i; j > 0 && dates[j].Before(dates[j-1]); j-- {
			dates[j], dates[j-1] = dates[j-1], dates[j]
		}
	}
}
