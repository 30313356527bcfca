package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"brandevo/internal/config"
	"brandevo/internal/httpapi"
	"brandevo/internal/logging"
	"brandevo/internal/mcptools"
	"brandevo/pkg/brandevo"
)

// openClient loads configuration, builds the logger and initializes the
// generation log. The caller owns Close.
func openClient(cmd *cobra.Command, opts *globalOptions, logOut *os.File) (*brandevo.Client, *slog.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log, logOut)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)

	client, err := brandevo.New(brandevo.Options{Config: &cfg, Logger: logger})
	if err != nil {
		return nil, nil, err
	}
	if err := client.Init(cmd.Context()); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return client, logger, nil
}

func newServeCmd(opts *globalOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run scheduled evolution",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, logger, err := openClient(cmd, opts, os.Stderr)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			httpCfg := client.Config().HTTP
			if addr != "" {
				httpCfg.Addr = addr
			}
			if err := client.Start(cmd.Context()); err != nil {
				return fmt.Errorf("start background tasks: %w", err)
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return httpapi.NewServer(httpCfg, client.Controller(), logger).Run(ctx)
			})
			g.Go(func() error {
				<-ctx.Done()
				client.Stop()
				return nil
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides http.addr")
	return cmd
}

func newMCPCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the optimizer tools over MCP stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// stdout carries the protocol, so logs always go to stderr.
			client, _, err := openClient(cmd, opts, os.Stderr)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()
			if err := client.Start(cmd.Context()); err != nil {
				return err
			}
			return server.ServeStdio(mcptools.NewServer(client.Controller()))
		},
	}
}
