package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/erp-offline/internal/bootstrap"
	"github.com/jhoicas/erp-offline/internal/infrastructure/storage"
)

// NewSeedCommand siembra los datos iniciales. Las colecciones con datos no se tocan.
func NewSeedCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Carga los datos iniciales en las colecciones vacías",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEngine(cmd.Context(), func(engine *storage.Engine) error {
				report := bootstrap.Seed(cmd.Context(), engine, opts.log)
				out := cmd.OutOrStdout()
				for _, r := range report.Results {
					switch {
					case r.Err != nil:
						fmt.Fprintf(out, "%-20s error: %v\n", r.Collection, r.Err)
					case r.Skipped:
						fmt.Fprintf(out, "%-20s omitida (ya tiene datos)\n", r.Collection)
					default:
						fmt.Fprintf(out, "%-20s %d registros\n", r.Collection, r.Inserted)
					}
				}
				fmt.Fprintf(out, "total insertados: %d\n", report.Inserted())
				return report.Err()
			})
		},
	}
}
