package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/textmosaic/pkg/fonts"
	"github.com/matzehuels/textmosaic/pkg/pipeline"
)

// grayscaleOpts holds the command-line flags for the grayscale command.
type grayscaleOpts struct {
	font     string
	fontSize float64
	white    bool // invert for dark-on-light output
	asJSON   bool
	list     bool // list embedded fonts instead
	noCache  bool
	refresh  bool
}

// grayscaleCommand creates the grayscale command, which prints the
// character brightness ramp of a font.
func (c *CLI) grayscaleCommand() *cobra.Command {
	opts := grayscaleOpts{font: pipeline.DefaultFont, fontSize: pipeline.DefaultFontSize}

	cmd := &cobra.Command{
		Use:   "grayscale",
		Short: "Print the brightness ramp of a font's characters",
		Example: `  textmosaic grayscale --font gomono
  textmosaic grayscale --font MyFont.ttf --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if opts.list {
				for _, name := range fonts.Names() {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			runner, err := c.newRunner(opts.noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			m, cached, err := runner.Grayscale(cmd.Context(), pipeline.Options{
				Font:     opts.font,
				FontSize: opts.fontSize,
				FontDir:  c.config.Mosaic.FontDir,
				Refresh:  opts.refresh,
			})
			if err != nil {
				return err
			}
			if opts.white {
				m = m.Invert()
			}

			if opts.asJSON {
				data, err := json.MarshalIndent(m, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			printKeyValue("Font", fmt.Sprintf("%s %s pt", opts.font, strconv.FormatFloat(opts.fontSize, 'g', -1, 64)))
			printKeyValue("Characters", strconv.Itoa(m.Len()))
			printKeyValue("Range", fmt.Sprintf("%.0f..%.0f", m.Min(), m.Max()))
			if cached {
				printKeyValue("Source", iconCached)
			}
			printNewline()
			fmt.Fprintln(out, visibleRamp(m.Ramp()))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.font, "font", opts.font, "embedded font name or font file")
	cmd.Flags().Float64Var(&opts.fontSize, "font-size", opts.fontSize, "font size in points")
	cmd.Flags().BoolVar(&opts.white, "white", false, "show the ramp for a white background")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the full map as JSON")
	cmd.Flags().BoolVar(&opts.list, "list", false, "list the embedded fonts")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "remeasure even when cached")

	return cmd
}

// visibleRamp replaces whitespace so the ramp prints on one line.
var visibleRamp = strings.NewReplacer(" ", "␠", "\t", "␉", "\n", "␤", "\r", "␍", "\v", "␋", "\f", "␌").Replace
