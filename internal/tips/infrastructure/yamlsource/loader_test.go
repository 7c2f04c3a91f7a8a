package yamlsource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	tips "riftcoach/internal/tips/domain"
)

func known(name string) bool { return name == "dragon" || name == "baron" }

const objectivesFile = `
version: 1
modules:
  - id: objectives
    rules:
      - id: dragon_prep
        trigger: { type: objective_spawn, objective: dragon, leadSeconds: 30 }
        notify: { channels: [ { type: overlay, title: "{objective} in {lead}s" } ] }
`

const wavesFile = `
version: 1
modules:
  - id: laning
    rules:
      - id: cannon
        trigger: { type: cannon_wave, leadSeconds: 10 }
        notify: { channels: [ { type: overlay, title: "Cannon in {lead}s" } ] }
      - id: dragon_prep
        trigger: { type: objective_spawn, objective: dragon, leadSeconds: 60 }
        notify: { channels: [ { type: overlay, title: shadowed } ] }
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type sinkRecorder struct {
	mu   sync.Mutex
	sets []*tips.RuleSet
}

func (s *sinkRecorder) SetRules(set *tips.RuleSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets = append(s.sets, set)
}

func (s *sinkRecorder) last() *tips.RuleSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sets) == 0 {
		return nil
	}
	return s.sets[len(s.sets)-1]
}

func TestLoaderMergesDirectoryInNameOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "10-objectives.yaml", objectivesFile)
	writeFile(t, dir, "20-waves.yml", wavesFile)
	writeFile(t, dir, "30-legacy.yaml", "version: 2\nmodules: []\n")
	writeFile(t, dir, "40-broken.yaml", "version: [\n")
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0o755))

	core, logs := observer.New(zap.WarnLevel)
	loader, err := NewLoader(dir, known, zap.New(core))
	require.NoError(t, err)

	result, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 4, result.Files)
	assert.Equal(t, 2, result.Documents)
	require.Equal(t, 2, result.Set.Len())
	assert.Equal(t, "dragon_prep", result.Set.Rules[0].ID)
	assert.Equal(t, "objectives", result.Set.Rules[0].ModuleID)
	assert.Equal(t, "cannon", result.Set.Rules[1].ID)

	require.Len(t, result.Problems, 3)
	assert.True(t, errors.Is(result.Problems[0], tips.ErrUnsupportedVersion))
	assert.True(t, errors.Is(result.Problems[2], tips.ErrDuplicateRule))
	assert.Equal(t, 2, logs.FilterMessage("rule document skipped").Len())
	assert.Equal(t, 1, logs.FilterMessage("rule skipped").Len())
}

func TestLoaderMissingDirectory(t *testing.T) {
	loader, err := NewLoader(filepath.Join(t.TempDir(), "absent"), known, nil)
	require.NoError(t, err)
	_, err = loader.Load()
	assert.Error(t, err)

	_, err = NewLoader(" ", known, nil)
	assert.Error(t, err)
}

func TestReloaderKeepsPreviousRulesWhenNothingParses(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rules.yaml", objectivesFile)
	loader, err := NewLoader(dir, known, nil)
	require.NoError(t, err)
	sink := &sinkRecorder{}
	reloader, err := NewReloader(loader, sink, time.Hour, nil)
	require.NoError(t, err)

	status, err := reloader.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, status.Rules)
	first := sink.last()
	require.NotNil(t, first)

	require.NoError(t, os.WriteFile(path, []byte(":::"), 0o644))
	_, err = reloader.Reload(context.Background())
	assert.ErrorIs(t, err, ErrNoDocuments)
	assert.Same(t, first, sink.last())

	status = reloader.Status()
	assert.Equal(t, 1, status.Rules)
	assert.NotEmpty(t, status.LastError)
	assert.Len(t, status.Problems, 1)
}

func TestReloaderEmptyDirectoryClearsRules(t *testing.T) {
	dir := t.TempDir()
	loader, err := NewLoader(dir, known, nil)
	require.NoError(t, err)
	sink := &sinkRecorder{}
	reloader, err := NewReloader(loader, sink, time.Hour, nil)
	require.NoError(t, err)

	status, err := reloader.Reload(context.Background())
	require.NoError(t, err)
	assert.Zero(t, status.Rules)
	require.NotNil(t, sink.last())
	assert.Zero(t, sink.last().Len())
}

func TestReloaderPicksUpChangedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", objectivesFile)
	loader, err := NewLoader(dir, known, nil)
	require.NoError(t, err)
	sink := &sinkRecorder{}
	reloader, err := NewReloader(loader, sink, 10*time.Millisecond, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, reloader.Start(ctx))
	require.Equal(t, 1, sink.last().Len())

	path := writeFile(t, dir, "b.yaml", `
version: 1
modules:
  - id: more
    rules:
      - id: baron_prep
        trigger: { type: objective_spawn, objective: baron, leadSeconds: 45 }
        notify: { channels: [ { type: overlay, title: Baron } ] }
`)
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	require.Eventually(t, func() bool {
		set := sink.last()
		return set != nil && set.Len() == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNewReloaderValidates(t *testing.T) {
	loader, err := NewLoader(t.TempDir(), known, nil)
	require.NoError(t, err)
	_, err = NewReloader(nil, &sinkRecorder{}, 0, nil)
	assert.Error(t, err)
	_, err = NewReloader(loader, nil, 0, nil)
	assert.Error(t, err)
}
