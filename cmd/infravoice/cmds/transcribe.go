package cmds

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-go-golems/infravoice/pkg/audio"
	"github.com/go-go-golems/infravoice/pkg/services"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newTranscribeCmd() *cobra.Command {
	var record bool
	var duration time.Duration
	var history bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "transcribe [audio-file]",
		Short: "Transcribe an audio file (.mp3, .wav, .webm, .m4a) or a live recording",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromCmd(cmd)
			if err != nil {
				return err
			}
			if err := a.requireLogin(); err != nil {
				return err
			}
			ctx := cmd.Context()

			if history {
				h, err := a.Services.Voice.History(ctx, 0, 20)
				if err != nil {
					return commandError(err, "transcription history")
				}
				return printJSON(cmd.OutOrStdout(), h)
			}

			var t *services.Transcript
			switch {
			case record:
				if len(args) > 0 {
					return errors.New("--record does not take an audio file")
				}
				t, err = recordAndTranscribe(ctx, cmd, a, duration)
			case len(args) == 1:
				t, err = transcribeFile(ctx, a, args[0])
			default:
				return errors.New("give an audio file or --record")
			}
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), t)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), t.Transcript)
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "confidence %.0f%%, %.1fs, %s\n", t.Confidence*100, t.Duration, t.Language)
			return nil
		},
	}
	cmd.Flags().BoolVar(&record, "record", false, "Record from the microphone (press Enter to stop)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop recording after this long")
	cmd.Flags().BoolVar(&history, "history", false, "List previous transcriptions instead")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full transcription as JSON")
	return cmd
}

func transcribeFile(ctx context.Context, a *app, path string) (*services.Transcript, error) {
	if !services.IsSupportedAudio(path) {
		return nil, errors.Errorf("unsupported audio format %q (supported: %v)", filepath.Ext(path), services.SupportedAudioExtensions)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open audio file")
	}
	defer func() { _ = f.Close() }()
	t, err := a.Services.Voice.Transcribe(ctx, filepath.Base(path), f)
	if err != nil {
		return nil, commandError(err, "transcribe")
	}
	return t, nil
}

func recordAndTranscribe(ctx context.Context, cmd *cobra.Command, a *app, limit time.Duration) (*services.Transcript, error) {
	rec := audio.NewRecorder(audio.Options{Command: a.Config.Recorder.Command})
	defer func() { _ = rec.Close() }()
	if err := rec.Start(); err != nil {
		return nil, err
	}
	_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Recording… press Enter to stop.")

	waitForStop(ctx, cmd.InOrStdin(), limit)

	path, err := rec.Stop(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "stop recording")
	}
	log.Debug().Str("path", path).Dur("elapsed", rec.Elapsed()).Msg("recording stopped")
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open recording")
	}
	defer func() { _ = f.Close() }()
	t, err := a.Services.Voice.Transcribe(ctx, rec.Filename(), f)
	if err != nil {
		return nil, commandError(err, "transcribe")
	}
	return t, nil
}

// waitForStop returns on a line from stdin, after limit, or when ctx ends.
func waitForStop(ctx context.Context, stdin io.Reader, limit time.Duration) {
	line := make(chan struct{})
	go func() {
		_, _ = bufio.NewReader(stdin).ReadString('\n')
		close(line)
	}()
	var timeout <-chan time.Time
	if limit > 0 {
		t := time.NewTimer(limit)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case <-line:
	case <-timeout:
	case <-ctx.Done():
	}
}
