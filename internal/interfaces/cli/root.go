// Package cli comandos de administración de erpctl sobre la base local.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/erp-offline/internal/bootstrap"
	"github.com/jhoicas/erp-offline/internal/infrastructure/storage"
	"github.com/jhoicas/erp-offline/pkg/config"
	"github.com/jhoicas/erp-offline/pkg/logger"
)

// RootOptions flags globales y dependencias compartidas por los subcomandos.
type RootOptions struct {
	Driver  string
	Path    string
	Verbose bool

	// LoadConfig por defecto config.Load; los tests inyectan una configuración fija.
	LoadConfig func() (*config.Config, error)

	cfg *config.Config
	log *logger.Logger
}

// NewRootCommand crea el comando raíz de erpctl.
func NewRootCommand(load func() (*config.Config, error)) *cobra.Command {
	if load == nil {
		load = config.Load
	}
	opts := &RootOptions{LoadConfig: load}

	cmd := &cobra.Command{
		Use:           "erpctl",
		Short:         "Administración de la base local del ERP",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.prepare(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "driver de almacenamiento (memory|sqlite|bolt|postgres); vacío = STORAGE_DRIVER")
	cmd.PersistentFlags().StringVar(&opts.Path, "path", "", "archivo de la base para sqlite/bolt; vacío = STORAGE_PATH")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "logs de depuración en stderr")

	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewCompanyCommand(opts))
	cmd.AddCommand(NewCollectionsCommand(opts))

	return cmd
}

func (o *RootOptions) prepare(cmd *cobra.Command) error {
	cfg, err := o.LoadConfig()
	if err != nil {
		return err
	}
	if o.Driver != "" {
		cfg.Storage.Driver = o.Driver
	}
	if o.Path != "" {
		cfg.Storage.Path = o.Path
	}
	// Los comandos siembran solo cuando se pide explícitamente.
	cfg.Storage.Seed = false

	level := "warn"
	if o.Verbose {
		level = "debug"
	}
	o.cfg = cfg
	o.log = logger.New(logger.Config{Env: "development", Level: level, Output: cmd.ErrOrStderr()})
	return nil
}

// withEngine abre la base, ejecuta fn y la cierra.
func (o *RootOptions) withEngine(ctx context.Context, fn func(*storage.Engine) error) error {
	engine, err := bootstrap.OpenEngine(ctx, o.cfg, o.log)
	if err != nil {
		return fmt.Errorf("abrir base local: %w", err)
	}
	runErr := fn(engine)
	if err := engine.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
