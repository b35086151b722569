package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jhoicas/erp-offline/internal/infrastructure/storage"
)

// NewCollectionsCommand inspección de colecciones de la base local.
func NewCollectionsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "Inspección de colecciones",
	}
	cmd.AddCommand(newCollectionsListCommand(opts))
	cmd.AddCommand(newCollectionsDumpCommand(opts))
	return cmd
}

func newCollectionsListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Lista las colecciones con su clave, módulo y cantidad de registros",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEngine(cmd.Context(), func(engine *storage.Engine) error {
				reg := engine.Registry()
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "COLECCIÓN\tCLAVE\tMÓDULO\tREGISTROS")
				for _, name := range reg.ListCollectionNames() {
					s, err := reg.GetSchema(name)
					if err != nil {
						return err
					}
					n, err := engine.Count(cmd.Context(), name)
					if err != nil {
						return err
					}
					feature := s.Feature
					if feature == "" {
						feature = "-"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", name, s.PrimaryKey, feature, n)
				}
				return tw.Flush()
			})
		},
	}
}

func newCollectionsDumpCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dump <name>",
		Short: "Imprime los registros de una colección como JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEngine(cmd.Context(), func(engine *storage.Engine) error {
				records, err := engine.GetAll(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if records == nil {
					records = []storage.Record{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			})
		},
	}
}
