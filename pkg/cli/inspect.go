// pkg/cli/inspect.go
package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/David-Botos/texture-ingress/pkg/dataset"
)

func inspectCmd() *cobra.Command {
	var file string
	var classes []string
	var layers int
	var separator string
	var noHeader bool

	c := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize a dataset file written in the texture2par layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := dataset.DefaultConfig()
			cfg.HSULayers = layers

			opts := dataset.DefaultReadOptions()
			opts.Separator = separator
			opts.Header = !noHeader

			d, err := dataset.ReadFile(file, classes, nil, cfg, opts)
			if err != nil {
				return err
			}
			return printDataset(cmd.OutOrStdout(), d)
		},
	}

	c.Flags().StringVarP(&file, "file", "f", "", "Dataset file (required)")
	c.Flags().StringSliceVarP(&classes, "classes", "c", nil, "Texture class names in column order (required)")
	c.Flags().IntVar(&layers, "nlay", 0, "Number of hydrostratigraphic unit columns")
	c.Flags().StringVar(&separator, "separator", "\t", "Column separator")
	c.Flags().BoolVar(&noHeader, "no-header", false, "The file has no header line")

	_ = c.MarkFlagRequired("file")
	_ = c.MarkFlagRequired("classes")
	return c
}

func printDataset(w io.Writer, d *dataset.Dataset) error {
	fmt.Fprintf(w, "Wells:     %d\n", d.WellCount())
	fmt.Fprintf(w, "Intervals: %d\n\n", d.Len())

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLocation\tX\tY\tIntervals")
	for _, wc := range d.WellCoords() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n",
			wc.ID, wc.Name, wc.X, wc.Y, len(d.Intervals(wc.ID)))
	}
	return tw.Flush()
}
