package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pinas/config"
	"pinas/controller"
	"pinas/logging"
	"pinas/service/registry"
)

var (
	cfgFile string
	port    uint
	verbose bool
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pinas",
		Short:         "Browse and manage the storage devices of a Raspberry Pi over SSH",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default ~/.pinas/config.yaml)")
	rootCmd.Flags().UintVar(&port, "port", config.DefaultPort, "The port to listen on")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	return rootCmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg, path, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = int(port)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := logging.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}

	log := logging.For("main")
	log.Info().Str("config", path).Msg("configuration loaded")
	for _, w := range cfg.Warnings() {
		log.Warn().Msg(w)
	}

	reg := registry.New(registry.Options{
		SSHPort:     cfg.SSH.Port,
		DialTimeout: cfg.SSH.DialTimeout,
		ShowHidden:  cfg.Listing.ShowHidden,
	}, logging.For("registry"))
	defer func() {
		if err := reg.Close(); err != nil {
			log.Warn().Err(err).Msg("closing connections")
		}
	}()

	c, err := controller.New(cfg, reg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return controller.Run(ctx, c)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
