package preferences

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echolens-ai/echolens/internal/conf"
)

type memPersister struct {
	saved   *Preferences
	saveErr error
}

func (m *memPersister) LoadPreferences(context.Context) (*Preferences, error) { return m.saved, nil }

func (m *memPersister) SavePreferences(_ context.Context, p Preferences) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = &p
	return nil
}

func ptr[T any](v T) *T { return &v }

func TestDefaults(t *testing.T) {
	t.Parallel()

	p := Defaults()
	assert.True(t, p.TranscriptionEnabled)
	assert.True(t, p.SoundDetectionEnabled)
	assert.True(t, p.EmotionDetectionEnabled)
	assert.True(t, p.DirectionalAudio)
	assert.Equal(t, 70, p.NotificationVolume)
	assert.True(t, p.DistanceReporting)
	assert.Equal(t, []string{"doorbell", "alarm", "phone", "name_called"}, p.ImportantSounds)
}

func TestFromSettings(t *testing.T) {
	t.Parallel()

	p := FromSettings(&conf.PreferenceDefaults{
		NotificationVolume: 30,
		ImportantSounds:    []string{" Doorbell", "doorbell", "", "Siren"},
	})
	assert.Equal(t, 30, p.NotificationVolume)
	assert.Equal(t, []string{"doorbell", "siren"}, p.ImportantSounds)
	assert.False(t, p.TranscriptionEnabled)
}

func TestStoreUpdateMergesPatch(t *testing.T) {
	t.Parallel()

	mp := &memPersister{}
	s := NewStore(Defaults(), mp)

	got, err := s.Update(context.Background(), Patch{
		DirectionalAudio: ptr(false),
		ImportantSounds:  ptr([]string{"Knock"}),
	})
	require.NoError(t, err)
	assert.False(t, got.DirectionalAudio)
	assert.True(t, got.TranscriptionEnabled)
	assert.Equal(t, []string{"knock"}, got.ImportantSounds)
	assert.Equal(t, got, s.Get())
	require.NotNil(t, mp.saved)
	assert.Equal(t, got, *mp.saved)
}

func TestStoreUpdateRejectsInvalid(t *testing.T) {
	t.Parallel()

	s := NewStore(Defaults(), nil)
	_, err := s.Update(context.Background(), Patch{NotificationVolume: ptr(101)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, 70, s.Get().NotificationVolume)
}

func TestStoreUpdatePersistFailureKeepsSnapshot(t *testing.T) {
	t.Parallel()

	s := NewStore(Defaults(), &memPersister{saveErr: errors.New("disk full")})
	_, err := s.Update(context.Background(), Patch{TranscriptionEnabled: ptr(false)})
	require.Error(t, err)
	assert.True(t, s.Get().TranscriptionEnabled)
}

func TestStoreLoad(t *testing.T) {
	t.Parallel()

	stored := Defaults()
	stored.NotificationVolume = 10
	s := NewStore(Defaults(), &memPersister{saved: &stored})
	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, 10, s.Get().NotificationVolume)
}

func TestStoreSnapshotsAreIsolated(t *testing.T) {
	t.Parallel()

	s := NewStore(Defaults(), nil)
	snap := s.Get()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Update(context.Background(), Patch{NotificationVolume: ptr(i * 10)})
			_ = s.Get()
		}()
	}
	wg.Wait()

	assert.Equal(t, 70, snap.NotificationVolume)
	assert.Equal(t, []string{"doorbell", "alarm", "phone", "name_called"}, snap.ImportantSounds)
}
