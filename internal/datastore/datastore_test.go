package datastore

import (
	"context"
	"testing"
	"time"

	drivermysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echolens-ai/echolens/internal/chat"
	"github.com/echolens-ai/echolens/internal/conf"
	"github.com/echolens-ai/echolens/internal/detection"
	"github.com/echolens-ai/echolens/internal/errors"
	"github.com/echolens-ai/echolens/internal/preferences"
)

// countingRecorder counts recorded operations by name and status.
type countingRecorder struct {
	ops    map[string]int
	errors map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{ops: map[string]int{}, errors: map[string]int{}}
}

func (r *countingRecorder) RecordOperation(op, status string) { r.ops[op+"/"+status]++ }
func (r *countingRecorder) RecordDuration(string, float64)    {}
func (r *countingRecorder) RecordError(op, errorType string)  { r.errors[op+"/"+errorType]++ }

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = ":memory:"

	store, ok := New(settings).(*SQLiteStore)
	require.True(t, ok, "sqlite settings should create a SQLiteStore")
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func mustTranscription(t *testing.T, text, emotion string, ts time.Time) *detection.Transcription {
	t.Helper()
	tr, err := detection.NewTranscription(text, 0.9,
		&detection.EmotionAnalysis{Emotion: emotion, Confidence: 0.8, Intensity: 0.5, Source: detection.AnalysisRemote},
		detection.SourceLive, ts)
	require.NoError(t, err)
	return &tr
}

func mustAlert(t *testing.T, label string, ts time.Time) *detection.SoundAlert {
	t.Helper()
	a, err := detection.NewSoundAlert(label, 0.7, detection.AlertOptions{
		Direction:       "left",
		Angle:           -45,
		Distance:        detection.DistanceNear,
		ImportantSounds: []string{"doorbell"},
		Source:          detection.SourceLive,
	}, ts)
	require.NoError(t, err)
	return &a
}

func TestNew_SelectsBackend(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	assert.Nil(t, New(settings), "no store when no output is enabled")

	settings.Output.MySQL.Enabled = true
	_, ok := New(settings).(*MySQLStore)
	assert.True(t, ok)
}

func TestMySQLStore_DSN(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	settings.Output.MySQL.Username = "user"
	settings.Output.MySQL.Password = "p@ss/word"
	settings.Output.MySQL.Host = "db"
	settings.Output.MySQL.Port = "3306"
	settings.Output.MySQL.Database = "echolens"

	store := &MySQLStore{Settings: settings}
	dsn := store.dsn()
	assert.Contains(t, dsn, "charset=utf8mb4")
	cfg, err := drivermysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "user", cfg.User)
	assert.Equal(t, "p@ss/word", cfg.Passwd)
	assert.Equal(t, "db:3306", cfg.Addr)
	assert.Equal(t, "echolens", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, mysqlDialTimeout, cfg.Timeout)
}

func TestDataStore_NotInitialized(t *testing.T) {
	t.Parallel()

	ds := &DataStore{}
	err := ds.SaveSoundAlert(context.Background(), &detection.SoundAlert{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.True(t, errors.IsCategory(err, errors.CategoryState))
}

func TestSQLiteStore_TranscriptionsRoundTrip(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour).Truncate(time.Second)

	require.NoError(t, store.SaveTranscription(ctx, mustTranscription(t, "hello there", "happy", base)))
	require.NoError(t, store.SaveTranscription(ctx, mustTranscription(t, "this is awful", "sad", base.Add(time.Minute))))
	require.NoError(t, store.SaveTranscription(ctx, mustTranscription(t, "great news", "happy", base.Add(2*time.Minute))))

	all, err := store.GetTranscriptions(ctx, 10, 0, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "great news", all[0].Text, "newest first")
	assert.Equal(t, detection.SourceLive, all[0].Source)
	assert.Equal(t, detection.AnalysisRemote, all[0].AnalysisSource)

	happy, err := store.GetTranscriptions(ctx, 10, 0, "happy")
	require.NoError(t, err)
	assert.Len(t, happy, 2)

	paged, err := store.GetTranscriptions(ctx, 1, 1, "")
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "this is awful", paged[0].Text)
}

func TestSQLiteStore_SoundAlertsFilterByPriority(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	doorbell := mustAlert(t, "Doorbell", now)
	require.NoError(t, store.SaveSoundAlert(ctx, doorbell))
	require.NoError(t, store.SaveSoundAlert(ctx, mustAlert(t, "dog", now.Add(time.Second))))

	high, err := store.GetSoundAlerts(ctx, 10, 0, detection.PriorityHigh)
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, doorbell.ID, high[0].ID)
	assert.Equal(t, "doorbell", high[0].Sound)
	assert.Equal(t, "left", high[0].Direction)
	assert.InDelta(t, -45.0, high[0].Angle, 1e-9)

	all, err := store.GetSoundAlerts(ctx, 10, 0, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSQLiteStore_ClearResults(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSoundAlert(ctx, mustAlert(t, "alarm", time.Now())))
	require.NoError(t, store.SaveTranscription(ctx, mustTranscription(t, "hi", "neutral", time.Now())))
	require.NoError(t, store.ClearResults(ctx))

	alerts, err := store.GetSoundAlerts(ctx, 10, 0, "")
	require.NoError(t, err)
	assert.Empty(t, alerts)
	transcriptions, err := store.GetTranscriptions(ctx, 10, 0, "")
	require.NoError(t, err)
	assert.Empty(t, transcriptions)
}

func TestSQLiteStore_ChatHistory(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now()

	for i, content := range []string{"one", "two", "three"} {
		require.NoError(t, store.AppendMessage(ctx, "s1", chat.Message{
			Role: "user", Content: content, Timestamp: base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, store.AppendMessage(ctx, "s2", chat.Message{Role: "user", Content: "other", Timestamp: base}))

	history, err := store.History(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "two", history[0].Content, "oldest first within the limit")
	assert.Equal(t, "three", history[1].Content)

	require.NoError(t, store.ClearHistory(ctx, "s1"))
	history, err = store.History(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Empty(t, history)

	other, err := store.History(ctx, "s2", 0)
	require.NoError(t, err)
	assert.Len(t, other, 1, "clearing one session keeps the others")

	require.NoError(t, store.ClearHistory(ctx, ""))
	other, err = store.History(ctx, "s2", 0)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSQLiteStore_Preferences(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	loaded, err := store.LoadPreferences(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded, "nothing saved yet")

	prefs := preferences.Defaults()
	prefs.NotificationVolume = 30
	require.NoError(t, store.SavePreferences(ctx, prefs))

	prefs.DirectionalAudio = false
	prefs.ImportantSounds = []string{"alarm"}
	require.NoError(t, store.SavePreferences(ctx, prefs), "second save updates the same row")

	loaded, err = store.LoadPreferences(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 30, loaded.NotificationVolume)
	assert.False(t, loaded.DirectionalAudio)
	assert.Equal(t, []string{"alarm"}, loaded.ImportantSounds)

	var count int64
	require.NoError(t, store.DB.Model(&UserPreferences{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSQLiteStore_PreferencesStoreIntegration(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	prefStore := preferences.NewStore(preferences.Defaults(), store)
	volume := 10
	_, err := prefStore.Update(ctx, preferences.Patch{NotificationVolume: &volume})
	require.NoError(t, err)

	reloaded := preferences.NewStore(preferences.Defaults(), store)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, 10, reloaded.Get().NotificationVolume)
}

func TestSQLiteStore_DeleteOlderThan(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	old := now.Add(-48 * time.Hour)

	require.NoError(t, store.SaveSoundAlert(ctx, mustAlert(t, "alarm", old)))
	require.NoError(t, store.SaveSoundAlert(ctx, mustAlert(t, "alarm", now)))
	require.NoError(t, store.SaveTranscription(ctx, mustTranscription(t, "old", "sad", old)))
	require.NoError(t, store.AppendMessage(ctx, "s", chat.Message{Role: "user", Content: "old", Timestamp: old}))

	deleted, err := store.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted[tableSoundAlerts])
	assert.Equal(t, int64(1), deleted[tableTranscriptions])
	assert.Equal(t, int64(1), deleted[tableChatMessages])

	alerts, err := store.GetSoundAlerts(ctx, 10, 0, "")
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

func TestSQLiteStore_RecordsMetrics(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	rec := newCountingRecorder()
	store.Metrics = rec
	ctx := context.Background()

	require.NoError(t, store.SaveSoundAlert(ctx, mustAlert(t, "dog", time.Now())))
	_, err := store.GetSoundAlerts(ctx, 5, 0, "")
	require.NoError(t, err)

	assert.Equal(t, 1, rec.ops["insert_sound_alerts/success"])
	assert.Equal(t, 1, rec.ops["query_sound_alerts/success"])

	require.NoError(t, store.Close())
	err = store.SaveSoundAlert(ctx, mustAlert(t, "dog", time.Now()))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))
	assert.Equal(t, 1, rec.ops["insert_sound_alerts/error"])
	assert.Equal(t, 1, rec.errors["insert_sound_alerts/database"])
}
