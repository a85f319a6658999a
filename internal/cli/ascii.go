package cli

import (
	"github.com/spf13/cobra"
)

// asciiCommand creates the ascii command: the same pipeline with no texts,
// so every cell gets the character closest to its brightness.
func (c *CLI) asciiCommand() *cobra.Command {
	var flags mosaicFlags
	var output string

	cmd := &cobra.Command{
		Use:   "ascii <image>",
		Short: "Draw an image with single characters only",
		Example: `  textmosaic ascii cat.jpg --width 100 -f txt
  textmosaic ascii cat.jpg --font gomono --colors 16`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd, c)
			if err != nil {
				return err
			}
			return c.runMosaic(cmd.Context(), args[0], nil, opts, flags.noCache, output)
		},
	}

	flags.register(cmd, true)
	cmd.Flags().StringVarP(&output, "output", "o", defaultOutputDir, "output directory")

	return cmd
}
