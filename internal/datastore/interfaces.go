// interfaces.go defines the interface for the database operations
package datastore

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/echolens-ai/echolens/internal/chat"
	"github.com/echolens-ai/echolens/internal/conf"
	"github.com/echolens-ai/echolens/internal/detection"
	"github.com/echolens-ai/echolens/internal/observability/metrics"
	"github.com/echolens-ai/echolens/internal/preferences"
)

// Interface abstracts the underlying database implementation.
type Interface interface {
	Open() error
	Close() error

	detection.Repository
	chat.HistoryStore
	preferences.Persister

	GetTranscriptions(ctx context.Context, limit, offset int, emotion string) ([]detection.Transcription, error)
	GetSoundAlerts(ctx context.Context, limit, offset int, priority detection.Priority) ([]detection.SoundAlert, error)
	// ClearResults deletes all stored transcriptions and sound alerts.
	ClearResults(ctx context.Context) error
	// DeleteOlderThan removes records created before cutoff and returns the
	// number of deleted rows per table.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (map[string]int64, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB      *gorm.DB // GORM database instance
	Metrics metrics.Recorder
}

// SetMetrics sets the recorder for database operations.
func (ds *DataStore) SetMetrics(m metrics.Recorder) {
	ds.Metrics = m
}

// New creates the store selected by the output settings, or nil when
// neither database is enabled.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}
	default:
		return nil
	}
}

// Table names used in metrics, errors and retention results.
const (
	tableTranscriptions = "transcriptions"
	tableSoundAlerts    = "sound_alerts"
	tableChatMessages   = "chat_messages"
	tablePreferences    = "user_preferences"
)

// observe records the outcome of one operation on table.
func (ds *DataStore) observe(op, table string, start time.Time, err error) error {
	rec := ds.Metrics
	if rec == nil {
		rec = metrics.NopRecorder{}
	}
	name := op + "_" + table
	rec.RecordDuration(name, time.Since(start).Seconds())
	if err != nil {
		rec.RecordOperation(name, metrics.StatusError)
		rec.RecordError(name, "database")
		return dbError(err, op, table)
	}
	rec.RecordOperation(name, metrics.StatusSuccess)
	return nil
}

func (ds *DataStore) db(ctx context.Context) (*gorm.DB, error) {
	if ds.DB == nil {
		return nil, ErrNotInitialized
	}
	return ds.DB.WithContext(ctx), nil
}

// SaveTranscription implements detection.Repository.
func (ds *DataStore) SaveTranscription(ctx context.Context, t *detection.Transcription) error {
	db, err := ds.db(ctx)
	if err != nil {
		return err
	}
	start := time.Now()
	return ds.observe("insert", tableTranscriptions, start, db.Create(transcriptionFromDetection(t)).Error)
}

// SaveSoundAlert implements detection.Repository.
func (ds *DataStore) SaveSoundAlert(ctx context.Context, a *detection.SoundAlert) error {
	db, err := ds.db(ctx)
	if err != nil {
		return err
	}
	start := time.Now()
	return ds.observe("insert", tableSoundAlerts, start, db.Create(soundAlertFromDetection(a)).Error)
}

// ClearResults deletes all stored transcriptions and sound alerts.
func (ds *DataStore) ClearResults(ctx context.Context) error {
	db, err := ds.db(ctx)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		start := time.Now()
		if err := ds.observe("delete", tableTranscriptions, start,
			tx.Where("1 = 1").Delete(&Transcription{}).Error); err != nil {
			return err
		}
		start = time.Now()
		return ds.observe("delete", tableSoundAlerts, start,
			tx.Where("1 = 1").Delete(&SoundAlert{}).Error)
	})
}

// GetTranscriptions returns stored transcriptions, newest first.
func (ds *DataStore) GetTranscriptions(ctx context.Context, limit, offset int, emotion string) ([]detection.Transcription, error) {
	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}
	q := db.Order("created_at DESC").Limit(limit).Offset(offset)
	if emotion != "" {
		q = q.Where("emotion = ?", emotion)
	}

	var rows []Transcription
	start := time.Now()
	if err := ds.observe("query", tableTranscriptions, start, q.Find(&rows).Error); err != nil {
		return nil, err
	}
	out := make([]detection.Transcription, len(rows))
	for i := range rows {
		out[i] = rows[i].toDetection()
	}
	return out, nil
}

// GetSoundAlerts returns stored sound alerts, newest first.
func (ds *DataStore) GetSoundAlerts(ctx context.Context, limit, offset int, priority detection.Priority) ([]detection.SoundAlert, error) {
	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}
	q := db.Order("created_at DESC").Limit(limit).Offset(offset)
	if priority != "" {
		q = q.Where("priority = ?", string(priority))
	}

	var rows []SoundAlert
	start := time.Now()
	if err := ds.observe("query", tableSoundAlerts, start, q.Find(&rows).Error); err != nil {
		return nil, err
	}
	out := make([]detection.SoundAlert, len(rows))
	for i := range rows {
		out[i] = rows[i].toDetection()
	}
	return out, nil
}

// AppendMessage implements chat.HistoryStore.
func (ds *DataStore) AppendMessage(ctx context.Context, sessionID string, msg chat.Message) error {
	db, err := ds.db(ctx)
	if err != nil {
		return err
	}
	row := &ChatMessage{SessionID: sessionID, Role: msg.Role, Content: msg.Content, CreatedAt: msg.Timestamp}
	start := time.Now()
	return ds.observe("insert", tableChatMessages, start, db.Create(row).Error)
}

// History implements chat.HistoryStore. It returns up to limit of the most
// recent messages of a session, oldest first.
func (ds *DataStore) History(ctx context.Context, sessionID string, limit int) ([]chat.Message, error) {
	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}
	q := db.Where("session_id = ?", sessionID).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []ChatMessage
	start := time.Now()
	if err := ds.observe("query", tableChatMessages, start, q.Find(&rows).Error); err != nil {
		return nil, err
	}
	out := make([]chat.Message, len(rows))
	for i := range rows {
		out[len(rows)-1-i] = rows[i].toChat()
	}
	return out, nil
}

// ClearHistory implements chat.HistoryStore. An empty sessionID clears all sessions.
func (ds *DataStore) ClearHistory(ctx context.Context, sessionID string) error {
	db, err := ds.db(ctx)
	if err != nil {
		return err
	}
	q := db.Where("1 = 1")
	if sessionID != "" {
		q = db.Where("session_id = ?", sessionID)
	}
	start := time.Now()
	return ds.observe("delete", tableChatMessages, start, q.Delete(&ChatMessage{}).Error)
}

// LoadPreferences implements preferences.Persister. It returns nil when
// no preferences were saved yet.
func (ds *DataStore) LoadPreferences(ctx context.Context) (*preferences.Preferences, error) {
	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}
	var rows []UserPreferences
	start := time.Now()
	if err := ds.observe("query", tablePreferences, start, db.Where("id = ?", preferencesRowID).Limit(1).Find(&rows).Error); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	p := rows[0].toPreferences()
	return &p, nil
}

// SavePreferences implements preferences.Persister.
func (ds *DataStore) SavePreferences(ctx context.Context, p preferences.Preferences) error {
	db, err := ds.db(ctx)
	if err != nil {
		return err
	}
	start := time.Now()
	err = db.Clauses(clause.OnConflict{UpdateAll: true}).Create(preferencesRecord(p)).Error
	return ds.observe("upsert", tablePreferences, start, err)
}

// DeleteOlderThan implements Interface.
func (ds *DataStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (map[string]int64, error) {
	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}

	deleted := make(map[string]int64, 3)
	err = db.Transaction(func(tx *gorm.DB) error {
		for _, target := range []struct {
			table string
			model any
		}{
			{tableTranscriptions, &Transcription{}},
			{tableSoundAlerts, &SoundAlert{}},
			{tableChatMessages, &ChatMessage{}},
		} {
			start := time.Now()
			res := tx.Where("created_at < ?", cutoff).Delete(target.model)
			if err := ds.observe("delete", target.table, start, res.Error); err != nil {
				return err
			}
			deleted[target.table] = res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
