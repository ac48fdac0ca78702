package main

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/tabsession"
	"pkt.systems/tabsession/internal/appconfig"
	"pkt.systems/tabsession/internal/tui"
)

func newTUICmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Run a local session in this terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			rt, err := tabsession.NewRuntime(toServerConfig(cfg), tabsession.ServerDeps{Logger: logger})
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := rt.Close(closeCtx); err != nil {
					logger.Warn("session close failed", "err", err)
				}
			}()
			if err := rt.EnsureWindow(cmd.Context()); err != nil {
				return err
			}
			return tui.Run(cmd.Context(), tui.Options{
				Session:  rt.Controller,
				Host:     rt.Host,
				Bus:      rt.Bus,
				Renderer: lipgloss.NewRenderer(os.Stdout),
				Logger:   logger,
			}, os.Stdin, os.Stdout)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	return cmd
}
