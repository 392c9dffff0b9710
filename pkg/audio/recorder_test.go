package audio

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func shellRecorder(script string) *Recorder {
	return NewRecorder(Options{
		Command:     []string{"sh", "-c", script, "sh", FilePlaceholder},
		StopTimeout: time.Second,
	})
}

func TestRecorderStopReturnsFile(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := shellRecorder(`printf 'RIFFdata' > "$1"; while :; do sleep 0.05; done`)
	require.NoError(t, r.Start())
	require.True(t, r.Recording())
	require.Eventually(t, func() bool {
		fi, err := os.Stat(r.Path())
		return err == nil && fi.Size() > 0
	}, 2*time.Second, 10*time.Millisecond)

	path, err := r.Stop(context.Background())
	require.NoError(t, err)
	require.False(t, r.Recording())
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "RIFFdata", string(b))
	require.Equal(t, "recording.wav", r.Filename())

	again, err := r.Stop(context.Background())
	require.NoError(t, err)
	require.Equal(t, path, again)

	require.NoError(t, r.Close())
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
	require.NoError(t, r.Close())
}

func TestRecorderEmptyRecording(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := shellRecorder(`while :; do sleep 0.05; done`)
	require.NoError(t, r.Start())
	_, err := r.Stop(context.Background())
	require.Error(t, err)
	require.NoError(t, r.Close())
}

func TestRecorderCloseWhileRecording(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := shellRecorder(`printf x > "$1"; while :; do sleep 0.05; done`)
	require.NoError(t, r.Start())
	path := r.Path()
	require.NoError(t, r.Close())
	require.False(t, r.Recording())
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
	require.Error(t, r.Start())
}

func TestRecorderKeep(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := shellRecorder(`printf x > "$1"; while :; do sleep 0.05; done`)
	require.NoError(t, r.Start())
	require.Eventually(t, func() bool {
		fi, err := os.Stat(r.Path())
		return err == nil && fi.Size() > 0
	}, 2*time.Second, 10*time.Millisecond)
	path, err := r.Stop(context.Background())
	require.NoError(t, err)
	r.Keep()
	require.NoError(t, r.Close())
	_, err = os.Stat(path)
	require.NoError(t, err)
	_ = os.Remove(path)
}

func TestRecorderMissingBinary(t *testing.T) {
	r := NewRecorder(Options{Command: []string{"/definitely/not/a/recorder", FilePlaceholder}})
	require.Error(t, r.Start())
	require.False(t, r.Recording())
}
