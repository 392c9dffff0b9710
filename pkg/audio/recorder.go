// Package audio captures microphone input by running an external recorder
// (arecord by default) into a temporary file.
package audio

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// FilePlaceholder in a command line is replaced by the output path.
const FilePlaceholder = "{file}"

var DefaultCommand = []string{"arecord", "-q", "-f", "cd", "-t", "wav", FilePlaceholder}

type Options struct {
	Command     []string
	Dir         string
	Extension   string
	StopTimeout time.Duration
}

type state int

const (
	stateIdle state = iota
	stateRecording
	stateStopped
	stateClosed
)

// Recorder is a single-use capture handle. Close always releases it, and
// removes the recording unless it was taken with Keep.
type Recorder struct {
	opts Options

	mu      sync.Mutex
	st      state
	cmd     *exec.Cmd
	path    string
	started time.Time
	done    chan struct{}
	waitErr error
	keep    bool
}

func NewRecorder(opts Options) *Recorder {
	if len(opts.Command) == 0 {
		opts.Command = DefaultCommand
	}
	if opts.Extension == "" {
		opts.Extension = ".wav"
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = 3 * time.Second
	}
	return &Recorder{opts: opts}
}

func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.st != stateIdle {
		return errors.New("recorder already used")
	}

	f, err := os.CreateTemp(r.opts.Dir, "infravoice-*"+r.opts.Extension)
	if err != nil {
		return errors.Wrap(err, "create recording file")
	}
	r.path = f.Name()
	_ = f.Close()

	args := make([]string, len(r.opts.Command))
	for i, a := range r.opts.Command {
		args[i] = strings.ReplaceAll(a, FilePlaceholder, r.path)
	}

	// #nosec G204 -- recorder command comes from user config.
	cmd := exec.Command(args[0], args[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		_ = os.Remove(r.path)
		r.st = stateClosed
		return errors.Wrapf(err, "start recorder %s", args[0])
	}
	r.cmd = cmd
	r.started = time.Now()
	r.done = make(chan struct{})
	r.st = stateRecording
	go func() {
		err := cmd.Wait()
		r.mu.Lock()
		r.waitErr = err
		r.mu.Unlock()
		close(r.done)
	}()
	log.Debug().Str("file", r.path).Int("pid", cmd.Process.Pid).Msg("recording started")
	return nil
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st == stateRecording
}

func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started.IsZero() {
		return 0
	}
	return time.Since(r.started)
}

// Stop interrupts the recorder and returns the recorded file. The recorder
// gets SIGINT so it can finalize the file header, then SIGKILL after
// StopTimeout.
func (r *Recorder) Stop(ctx context.Context) (string, error) {
	r.mu.Lock()
	switch r.st {
	case stateStopped:
		p := r.path
		r.mu.Unlock()
		return p, nil
	case stateRecording:
	default:
		r.mu.Unlock()
		return "", errors.New("recorder is not recording")
	}
	cmd, done := r.cmd, r.done
	r.st = stateStopped
	r.mu.Unlock()

	if err := interruptGroup(ctx, cmd.Process.Pid, done, r.opts.StopTimeout); err != nil {
		return "", err
	}

	r.mu.Lock()
	path := r.path
	r.mu.Unlock()
	fi, err := os.Stat(path)
	if err != nil {
		return "", errors.Wrap(err, "stat recording")
	}
	if fi.Size() == 0 {
		return "", errors.New("recording is empty; is a microphone available?")
	}
	log.Debug().Str("file", path).Int64("bytes", fi.Size()).Msg("recording stopped")
	return path, nil
}

// Keep makes Close leave the recorded file in place.
func (r *Recorder) Keep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keep = true
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.st == stateClosed {
		r.mu.Unlock()
		return nil
	}
	recording := r.st == stateRecording
	r.mu.Unlock()

	if recording {
		_, _ = r.Stop(context.Background())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.st = stateClosed
	if r.path != "" && !r.keep {
		if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "remove recording")
		}
	}
	return nil
}

func interruptGroup(ctx context.Context, pid int, done <-chan struct{}, timeout time.Duration) error {
	signal := func(sig syscall.Signal) {
		if pgid, err := syscall.Getpgid(pid); err == nil {
			_ = syscall.Kill(-pgid, sig)
			return
		}
		_ = syscall.Kill(pid, sig)
	}

	signal(syscall.SIGINT)
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-done:
		return nil
	case <-t.C:
	case <-ctx.Done():
	}

	signal(syscall.SIGKILL)
	select {
	case <-done:
		return ctx.Err()
	case <-time.After(2 * time.Second):
		return errors.Errorf("recorder pid %d did not exit", pid)
	}
}

// Path returns where the recording is written.
func (r *Recorder) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// Filename is the upload name for the recording.
func (r *Recorder) Filename() string {
	return "recording" + filepath.Ext(r.Path())
}
