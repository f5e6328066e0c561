package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/danielpatrickdp/digital-cow/internal/chainrpc"
	"github.com/danielpatrickdp/digital-cow/internal/cow"
	"github.com/danielpatrickdp/digital-cow/internal/logging"
	"github.com/danielpatrickdp/digital-cow/internal/metrics"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

// #region serve
func (a *app) newServeCmd() *cobra.Command {
	var (
		addr        string
		metricsAddr string
		warm        bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the herd's chain over gRPC with Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			m := metrics.New(nil)
			observers := cow.Observers{m, &logging.Recorder{DB: store.DB(), Logger: a.logger}}
			cache := cow.NewChainCache(a.logger, observers)
			if warm {
				if _, err := cache.Get(ctx, a.params, a.params.DaysInMilkLimit, a.params.LactationNumberLimit, a.prec()); err != nil {
					return err
				}
			}

			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}
			srv := grpc.NewServer(
				grpc.ChainUnaryInterceptor(m.UnaryInterceptor()),
				grpc.ChainStreamInterceptor(m.StreamInterceptor()),
			)
			chainrpc.RegisterChainServiceServer(srv, chainrpc.NewServer(a.params, cache, a.logger))

			mux := http.NewServeMux()
			mux.Handle("/metrics", m.Handler())
			httpSrv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				a.logger.Info("chain service listening", "addr", lis.Addr().String())
				return srv.Serve(lis)
			})
			if metricsAddr != "" {
				g.Go(func() error {
					a.logger.Info("metrics listening", "addr", metricsAddr)
					if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				})
			}
			g.Go(func() error {
				<-ctx.Done()
				a.logger.Info("shutting down")
				srv.GracefulStop()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return httpSrv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":50051", "gRPC listen address")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Prometheus listen address (empty to disable)")
	cmd.Flags().BoolVar(&warm, "warm", true, "generate the herd's chain before accepting calls")
	return cmd
}

// #endregion serve
