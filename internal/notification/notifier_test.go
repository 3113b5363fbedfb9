package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echolens-ai/echolens/internal/detection"
	"github.com/echolens-ai/echolens/internal/preferences"
)

type recordingProvider struct {
	name string
	err  error

	mu   sync.Mutex
	sent []Notification
}

func (p *recordingProvider) Name() string { return p.name }

func (p *recordingProvider) Send(_ context.Context, n *Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, *n)
	return p.err
}

func (p *recordingProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

type recordingMetrics struct {
	mu         sync.Mutex
	deliveries map[string]int
	errors     map[string]int
	suppressed map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{deliveries: map[string]int{}, errors: map[string]int{}, suppressed: map[string]int{}}
}

func (m *recordingMetrics) RecordDelivery(provider, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries[provider+"/"+status]++
}

func (m *recordingMetrics) RecordDeliveryError(provider, category string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[provider+"/"+category]++
}

func (m *recordingMetrics) RecordSuppressed(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suppressed[reason]++
}

func (m *recordingMetrics) get(table map[string]int, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return table[key]
}

type staticPrefs struct{ p preferences.Preferences }

func (s staticPrefs) Get() preferences.Preferences { return s.p }

func alert(t *testing.T, label string) detection.SoundAlert {
	t.Helper()
	a, err := detection.NewSoundAlert(label, 0.92, detection.AlertOptions{Direction: "left"}, time.Now())
	require.NoError(t, err)
	return a
}

func TestNewNotifier_RequiresProviders(t *testing.T) {
	t.Parallel()
	_, err := NewNotifier(DefaultConfig(), nil, nil, nil)
	require.ErrorIs(t, err, ErrNoProviders)
}

func TestNotifier_OnlyHighPriority(t *testing.T) {
	t.Parallel()

	p := &recordingProvider{name: "rec"}
	n, err := NewNotifier(Config{Node: "Kitchen", Cooldown: time.Minute}, []Provider{p}, nil, nil)
	require.NoError(t, err)
	defer n.Close()

	require.NoError(t, n.HandleSoundAlert(t.Context(), alert(t, "dog")))
	require.NoError(t, n.HandleSoundAlert(t.Context(), alert(t, "doorbell")))
	require.NoError(t, n.HandleTranscription(t.Context(), detection.Transcription{}))

	require.Eventually(t, func() bool { return p.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Equal(t, "doorbell", p.sent[0].Sound)
	assert.Contains(t, p.sent[0].Title, "Kitchen")
	assert.Contains(t, p.sent[0].Message, "92% confidence")
}

func TestNotifier_CooldownPerSound(t *testing.T) {
	t.Parallel()

	p := &recordingProvider{name: "rec"}
	m := newRecordingMetrics()
	n, err := NewNotifier(Config{Cooldown: time.Hour}, []Provider{p}, nil, m)
	require.NoError(t, err)
	defer n.Close()

	for range 3 {
		require.NoError(t, n.HandleSoundAlert(t.Context(), alert(t, "alarm")))
	}
	require.NoError(t, n.HandleSoundAlert(t.Context(), alert(t, "doorbell")))

	require.Eventually(t, func() bool { return p.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, m.get(m.suppressed, reasonCooldown))
}

func TestNotifier_MutedByPreferences(t *testing.T) {
	t.Parallel()

	prefs := preferences.Defaults()
	prefs.NotificationVolume = 0
	p := &recordingProvider{name: "rec"}
	m := newRecordingMetrics()
	n, err := NewNotifier(DefaultConfig(), []Provider{p}, staticPrefs{prefs}, m)
	require.NoError(t, err)
	n.Close()

	require.NoError(t, n.HandleSoundAlert(t.Context(), alert(t, "alarm")))
	assert.Equal(t, 0, p.count())
	assert.Equal(t, 1, m.get(m.suppressed, reasonMuted))
}

func TestNotifier_NotifyRecordsMetrics(t *testing.T) {
	t.Parallel()

	ok := &recordingProvider{name: "ok"}
	failing := &recordingProvider{name: "failing", err: errors.New("boom")}
	m := newRecordingMetrics()
	n, err := NewNotifier(DefaultConfig(), []Provider{ok, failing}, nil, m)
	require.NoError(t, err)
	defer n.Close()

	err = n.Notify(t.Context(), &Notification{Title: "t", Message: "m", Sound: "alarm"})
	require.Error(t, err)
	assert.Equal(t, 1, ok.count(), "a failing provider does not block the others")
	assert.Equal(t, 1, m.get(m.deliveries, "ok/success"))
	assert.Equal(t, 1, m.get(m.deliveries, "failing/error"))
	assert.Equal(t, 1, m.get(m.errors, "failing/send"))
}

func TestNotifier_BreakerSkipsFailingProvider(t *testing.T) {
	t.Parallel()

	failing := &recordingProvider{name: "failing", err: errors.New("boom")}
	m := newRecordingMetrics()
	n, err := NewNotifier(DefaultConfig(), []Provider{failing}, nil, m)
	require.NoError(t, err)
	defer n.Close()

	for range DefaultCircuitBreakerConfig().MaxFailures + 2 {
		_ = n.Notify(t.Context(), &Notification{Sound: "alarm"})
	}
	assert.Equal(t, DefaultCircuitBreakerConfig().MaxFailures, failing.count())
	assert.Equal(t, 2, m.get(m.errors, "failing/circuit_open"))
}

func TestShoutrrrProvider_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewShoutrrrProvider("", nil, time.Second)
	require.ErrorIs(t, err, ErrNoProviders)

	_, err = NewShoutrrrProvider("push", []string{"notaservice://token@host"}, time.Second)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "token@host")
}
