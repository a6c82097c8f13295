// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stridelab/stride-backend/pkg/log"
	"github.com/stridelab/stride-backend/pkg/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var setupOnce sync.Once

func setup(tb testing.TB) {
	tb.Helper()
	setupOnce.Do(func() {
		log.Init("warn", true)
		dir, err := os.MkdirTemp("", "stride-repo-test-")
		if err != nil {
			panic(err)
		}
		dbfile := filepath.Join(dir, "stride.db")
		if err := MigrateDB("sqlite3", dbfile); err != nil {
			panic(err)
		}
		Connect("sqlite3", dbfile)
	})
}

func newTestUser(t *testing.T) *schema.User {
	t.Helper()
	user, err := GetUserRepository().CreateUser(nil)
	require.NoError(t, err)
	return user
}

func testActivity(userID string, stravaID int64, start time.Time) *schema.Activity {
	avgHR := 150.0
	return &schema.Activity{
		UserID:           userID,
		StravaActivityID: stravaID,
		Name:             "Morning Run",
		Type:             "Run",
		StartDate:        start,
		DistanceM:        5000,
		MovingTimeS:      1500,
		ElapsedTimeS:     1550,
		ElevGainM:        40,
		AvgHR:            &avgHR,
		RawSummary:       json.RawMessage(`{"id": 1, "sport_type": "Run"}`),
	}
}

func TestLinkAccount(t *testing.T) {
	setup(t)
	repo := GetUserRepository()

	account, err := repo.LinkAccount(111222, "access-1", "refresh-1", 1700000000, "read")
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.NotEmpty(t, account.UserID)

	// The owning user was created implicitly.
	user, err := repo.FindUser(account.UserID)
	require.NoError(t, err)
	assert.Equal(t, account.UserID, user.ID)

	// Linking the same athlete again only rotates tokens.
	again, err := repo.LinkAccount(111222, "access-2", "refresh-2", 1700009999, "read")
	require.NoError(t, err)
	assert.Equal(t, account.ID, again.ID)
	assert.Equal(t, account.UserID, again.UserID)
	assert.Equal(t, "access-2", again.AccessToken)
	assert.Equal(t, int64(1700009999), again.ExpiresAt)
}

func TestSwapTokensCompareAndSet(t *testing.T) {
	setup(t)
	repo := GetUserRepository()

	account, err := repo.LinkAccount(333444, "access-1", "refresh-1", 1700000000, "read")
	require.NoError(t, err)

	// First worker wins.
	ok, err := repo.SwapTokens(account.ID, 1700000000, "access-2", "refresh-2", 1700100000)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second worker carried the stale expiry and must lose.
	ok, err = repo.SwapTokens(account.ID, 1700000000, "access-X", "refresh-X", 1700200000)
	require.NoError(t, err)
	assert.False(t, ok)

	// The row holds the winner's tokens.
	current, err := repo.FindAccount(account.ID)
	require.NoError(t, err)
	assert.Equal(t, "access-2", current.AccessToken)
	assert.Equal(t, int64(1700100000), current.ExpiresAt)
}

func TestUpsertActivityIdempotent(t *testing.T) {
	setup(t)
	repo := GetActivityRepository()
	user := newTestUser(t)

	start := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	first, err := repo.Upsert(testActivity(user.ID, 900001, start))
	require.NoError(t, err)

	second, err := repo.Upsert(testActivity(user.ID, 900001, start))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.StravaActivityID, second.StravaActivityID)
	assert.Equal(t, first.DistanceM, second.DistanceM)

	list, err := repo.List(user.ID, 0, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUpsertPreservesUserIntent(t *testing.T) {
	setup(t)
	repo := GetActivityRepository()
	user := newTestUser(t)

	start := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)
	created, err := repo.Upsert(testActivity(user.ID, 900002, start))
	require.NoError(t, err)

	intent := "Tempo"
	require.NoError(t, repo.SetUserIntent(created.ID, &intent))

	// A later provider update must not clobber the override.
	updated, err := repo.Upsert(testActivity(user.ID, 900002, start))
	require.NoError(t, err)
	require.NotNil(t, updated.UserIntent)
	assert.Equal(t, "Tempo", *updated.UserIntent)
}

func TestSetUserIntentNotFound(t *testing.T) {
	setup(t)
	intent := "Tempo"
	err := GetActivityRepository().SetUserIntent("no-such-id", &intent)
	assert.Equal(t, ErrNotFound, err)
}

func TestSoftDelete(t *testing.T) {
	setup(t)
	repo := GetActivityRepository()
	user := newTestUser(t)

	start := time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC)
	created, err := repo.Upsert(testActivity(user.ID, 900003, start))
	require.NoError(t, err)

	require.NoError(t, repo.SoftDeleteByStravaId(900003))

	// Gone from listings...
	list, err := repo.List(user.ID, 0, 10)
	require.NoError(t, err)
	for _, a := range list {
		assert.NotEqual(t, created.ID, a.ID)
	}

	// ...but still visible to processing.
	found, err := repo.FindById(created.ID)
	require.NoError(t, err)
	assert.True(t, found.IsDeleted)
}

func TestReplaceStreams(t *testing.T) {
	setup(t)
	repo := GetActivityRepository()
	user := newTestUser(t)

	start := time.Date(2024, 3, 13, 8, 0, 0, 0, time.UTC)
	activity, err := repo.Upsert(testActivity(user.ID, 900004, start))
	require.NoError(t, err)

	has, err := repo.HasStreams(activity.ID)
	require.NoError(t, err)
	assert.False(t, has)

	err = repo.ReplaceStreams(activity.ID, map[string]json.RawMessage{
		"time":            json.RawMessage(`[0, 1, 2]`),
		"heartrate":       json.RawMessage(`[140, 141, 142]`),
		"velocity_smooth": json.RawMessage(`[3.0, 3.1, 3.2]`),
	})
	require.NoError(t, err)

	rows, err := repo.FetchStreams(activity.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	// Refetch replaces wholesale: the dropped channel vanishes.
	err = repo.ReplaceStreams(activity.ID, map[string]json.RawMessage{
		"time": json.RawMessage(`[0, 1]`),
	})
	require.NoError(t, err)

	rows, err = repo.FetchStreams(activity.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "time", rows[0].Type)
	assert.JSONEq(t, `[0, 1]`, string(rows[0].RawData))
}

func TestMetricUpsertRoundTrip(t *testing.T) {
	setup(t)
	repo := GetActivityRepository()
	user := newTestUser(t)

	start := time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC)
	activity, err := repo.Upsert(testActivity(user.ID, 900005, start))
	require.NoError(t, err)

	pv := 8.5
	metric := &schema.DerivedMetric{
		ActivityID:        activity.ID,
		ActivityClass:     schema.ClassEasyRun,
		EffortScore:       105.5,
		PaceVariability:   &pv,
		TimeInZones:       schema.ZoneTimes{"Z1": 100, "Z2": 800, "Z3": 500, "Z4": 90, "Z5": 10},
		Flags:             []string{schema.FlagLowConfidenceHR},
		RiskLevel:         schema.RiskGreen,
		RiskScore:         0,
		RiskReasons:       []string{},
		Confidence:        schema.ConfidenceMedium,
		ConfidenceReasons: []string{"no_stream_data"},
	}
	require.NoError(t, repo.UpsertMetric(metric))

	stored, err := repo.FindMetric(activity.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.ClassEasyRun, stored.ActivityClass)
	assert.Equal(t, 105.5, stored.EffortScore)
	require.NotNil(t, stored.PaceVariability)
	assert.Equal(t, 8.5, *stored.PaceVariability)
	assert.Equal(t, 800, stored.TimeInZones["Z2"])
	assert.Equal(t, []string{schema.FlagLowConfidenceHR}, stored.Flags)
	assert.Nil(t, stored.IntervalStructure)

	// Rewriting in place replaces wholesale.
	metric.Flags = []string{}
	metric.ActivityClass = schema.ClassTempo
	require.NoError(t, repo.UpsertMetric(metric))

	stored2, err := repo.FindMetric(activity.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, stored2.ID)
	assert.Equal(t, schema.ClassTempo, stored2.ActivityClass)
	assert.Empty(t, stored2.Flags)
}

func TestCheckInUpsertPartialUpdate(t *testing.T) {
	setup(t)
	repo := GetActivityRepository()
	user := newTestUser(t)

	start := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	activity, err := repo.Upsert(testActivity(user.ID, 900006, start))
	require.NoError(t, err)

	rpe, pain := 6, 2
	created, err := repo.UpsertCheckIn(&schema.CheckIn{
		ActivityID: activity.ID, RPE: &rpe, PainScore: &pain,
	})
	require.NoError(t, err)
	require.NotNil(t, created.RPE)
	assert.Equal(t, 6, *created.RPE)

	// Partial update keeps the untouched fields.
	sleep := 8
	updated, err := repo.UpsertCheckIn(&schema.CheckIn{
		ActivityID: activity.ID, SleepQuality: &sleep,
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	require.NotNil(t, updated.RPE)
	assert.Equal(t, 6, *updated.RPE)
	require.NotNil(t, updated.SleepQuality)
	assert.Equal(t, 8, *updated.SleepQuality)
}

func TestProfileDefaults(t *testing.T) {
	setup(t)
	repo := GetUserRepository()
	user := newTestUser(t)

	profile, err := repo.GetOrCreateProfile(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "general", profile.GoalType)
	assert.Equal(t, "intermediate", profile.ExperienceLevel)
	assert.Equal(t, 4, profile.WeeklyDaysAvailable)
	require.NotNil(t, profile.MaxHR)
	assert.Equal(t, schema.DefaultMaxHR, *profile.MaxHR)

	// No source tag: the default max HR does not calibrate zones.
	assert.False(t, profile.ZonesCalibrated())

	source := "lab_test"
	maxHR := 187
	profile.MaxHR = &maxHR
	profile.MaxHRSource = &source
	require.NoError(t, repo.SaveProfile(profile))

	stored, err := repo.FindProfile(user.ID)
	require.NoError(t, err)
	assert.True(t, stored.ZonesCalibrated())
	assert.Equal(t, 187, stored.EffectiveMaxHR())
}

func TestHistoryWindow(t *testing.T) {
	setup(t)
	repo := GetActivityRepository()
	user := newTestUser(t)

	base := time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := repo.Upsert(testActivity(user.ID, 910000+int64(i), base.AddDate(0, 0, i)))
		require.NoError(t, err)
	}

	// History of the newest activity: everything strictly before it.
	history, err := repo.History(user.ID, base.AddDate(0, 0, 4), 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	// Newest first.
	assert.True(t, history[0].StartDate.After(history[1].StartDate))
}
