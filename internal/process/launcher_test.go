package process

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStarter struct {
	started []string
	fail    map[string]error
}

func (r *recordingStarter) start(name string) (int, error) {
	r.started = append(r.started, name)
	if err, ok := r.fail[name]; ok {
		return 0, err
	}
	return 4242, nil
}

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0755))
	return path
}

func TestLaunch_ExplicitPathWins(t *testing.T) {
	dir := t.TempDir()
	explicit := touch(t, filepath.Join(dir, "custom", "Antigravity"))
	installed := touch(t, filepath.Join(dir, "installed", "Antigravity"))
	starter := &recordingStarter{}

	l := &Launcher{ExplicitPath: explicit, Paths: []string{installed}, Commands: []string{"antigravity"}, Start: starter.start}
	d, err := l.Launch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, MethodExplicit, d.Method)
	assert.Equal(t, explicit, d.Target)
	assert.Equal(t, 4242, d.PID)
	assert.Equal(t, []string{explicit}, starter.started)
}

func TestLaunch_InvalidExplicitFallsBackToPaths(t *testing.T) {
	dir := t.TempDir()
	installed := touch(t, filepath.Join(dir, "installed", "Antigravity"))
	starter := &recordingStarter{}

	l := &Launcher{
		ExplicitPath: dir, // a directory, not a regular file
		Paths:        []string{filepath.Join(dir, "missing"), installed},
		Start:        starter.start,
	}
	d, err := l.Launch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MethodPath, d.Method)
	assert.Equal(t, installed, d.Target)
	assert.Equal(t, []string{installed}, starter.started, "only existing paths are spawned")
}

func TestLaunch_FallsBackToCommands(t *testing.T) {
	starter := &recordingStarter{fail: map[string]error{"Antigravity": errors.New("executable file not found in $PATH")}}
	l := &Launcher{
		Paths:    []string{filepath.Join(t.TempDir(), "nope")},
		Commands: []string{"Antigravity", "antigravity"},
		Start:    starter.start,
	}

	d, err := l.Launch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MethodCommand, d.Method)
	assert.Equal(t, "antigravity", d.Target)
	assert.Equal(t, []string{"Antigravity", "antigravity"}, starter.started)
}

func TestLaunch_AllFailAccumulatesAttempts(t *testing.T) {
	dir := t.TempDir()
	broken := touch(t, filepath.Join(dir, "broken"))
	starter := &recordingStarter{fail: map[string]error{
		broken:        errors.New("exec format error"),
		"antigravity": errors.New("not found in PATH"),
	}}
	l := &Launcher{
		ExplicitPath: filepath.Join(dir, "custom-missing"),
		Paths:        []string{broken},
		Commands:     []string{"antigravity"},
		Start:        starter.start,
	}

	d, err := l.Launch(context.Background())
	assert.Nil(t, d)

	var launchErr *LaunchError
	require.ErrorAs(t, err, &launchErr)
	require.Len(t, launchErr.Attempts, 3)
	assert.Equal(t, MethodExplicit, launchErr.Attempts[0].Method)
	assert.Equal(t, MethodPath, launchErr.Attempts[1].Method)
	assert.Equal(t, MethodCommand, launchErr.Attempts[2].Method)
	assert.Contains(t, err.Error(), "exec format error")
	assert.Contains(t, err.Error(), "not found in PATH")
}

func TestLaunch_NoCandidates(t *testing.T) {
	l := &Launcher{Start: (&recordingStarter{}).start}
	_, err := l.Launch(context.Background())
	var launchErr *LaunchError
	require.ErrorAs(t, err, &launchErr)
	assert.Empty(t, launchErr.Attempts)
	assert.Contains(t, err.Error(), "no launch candidates")
}

func TestDetect(t *testing.T) {
	dir := t.TempDir()
	installed := touch(t, filepath.Join(dir, "Antigravity"))

	l := &Launcher{Paths: []string{filepath.Join(dir, "missing"), installed}}
	path, ok := l.Detect()
	assert.True(t, ok)
	assert.Equal(t, installed, path)

	l = &Launcher{Paths: []string{filepath.Join(dir, "missing")}, Commands: []string{"definitely-not-a-real-command-xyz"}}
	_, ok = l.Detect()
	assert.False(t, ok)
}
