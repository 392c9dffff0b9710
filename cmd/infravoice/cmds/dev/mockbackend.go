package dev

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-go-golems/infravoice/pkg/mockbackend"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newMockBackendCmd() *cobra.Command {
	var addr string
	var accessTTL time.Duration

	cmd := &cobra.Command{
		Use:   "mock-backend",
		Short: "Serve the in-process mock backend over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend := mockbackend.New(mockbackend.Options{AccessTTL: accessTTL})

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return errors.Wrapf(err, "listen %s", addr)
			}
			srv := &http.Server{
				Handler:           backend.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "mock backend on http://%s (login %s / %s)\n",
				ln.Addr(), mockbackend.DefaultEmail, mockbackend.DefaultPassword)

			eg, ctx := errgroup.WithContext(cmd.Context())
			eg.Go(func() error {
				err := srv.Serve(ln)
				if stderrors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			})
			eg.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				log.Info().Msg("shutting down mock backend")
				return srv.Shutdown(shutdownCtx)
			})
			return eg.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8000", "Listen address")
	cmd.Flags().DurationVar(&accessTTL, "access-ttl", 30*time.Minute, "Lifetime of issued access tokens")
	return cmd
}
