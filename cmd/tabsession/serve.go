package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/tabsession"
	"pkt.systems/tabsession/httpapi"
	"pkt.systems/tabsession/internal/appconfig"
	"pkt.systems/tabsession/sshserver"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	var httpAddr string
	var sshAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and SSH front-ends",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if httpAddr != "" {
				cfg.HTTP.Addr = httpAddr
				cfg.HTTP.Enabled = true
			}
			if sshAddr != "" {
				cfg.SSH.Addr = sshAddr
				cfg.SSH.Enabled = true
			}
			opts, err := serverOptions(cfg)
			if err != nil {
				return err
			}
			server, err := tabsession.New(toServerConfig(cfg), tabsession.ServerDeps{Logger: logger}, opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&httpAddr, "http", "", "HTTP listen address (overrides config)")
	cmd.Flags().StringVar(&sshAddr, "ssh", "", "SSH listen address (overrides config)")
	return cmd
}

func serverOptions(cfg appconfig.Config) ([]tabsession.ServerOption, error) {
	var opts []tabsession.ServerOption
	if cfg.HTTP.Enabled {
		opts = append(opts, tabsession.WithHTTP())
	}
	if cfg.SSH.Enabled {
		opts = append(opts, tabsession.WithSSH())
	}
	if len(opts) == 0 {
		return nil, errors.New("both http and ssh are disabled")
	}
	return opts, nil
}

func toServerConfig(cfg appconfig.Config) tabsession.ServerConfig {
	return tabsession.ServerConfig{
		Session: cfg.SessionSettings(),
		HTTP: httpapi.Config{
			Addr:         cfg.HTTP.Addr,
			HistoryLimit: cfg.HTTP.HistoryLimit,
		},
		SSH: sshserver.Config{
			Addr:               cfg.SSH.Addr,
			HostKeyPath:        cfg.SSH.HostKeyPath,
			AuthorizedKeysPath: cfg.SSH.AuthorizedKeysPath,
		},
		TabMaxWidth: cfg.UI.TabMaxWidth,
		StateDir:    cfg.StateDir,
	}
}
