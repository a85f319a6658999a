package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/textmosaic/pkg/mosaic"
	"github.com/matzehuels/textmosaic/pkg/pipeline"
	"github.com/matzehuels/textmosaic/pkg/raster"
)

// renderCommand creates the render command, the full pipeline from an image
// and texts to files on disk.
func (c *CLI) renderCommand() *cobra.Command {
	var flags mosaicFlags
	var output string

	cmd := &cobra.Command{
		Use:   "render <image> <text>...",
		Short: "Render an image with the words of one or more texts",
		Long: `Render an image as a mosaic of words.

Each text becomes one stream of words. Words are placed in reading order
wherever their ink density matches the image, and leftover cells are filled
with single characters. Use "-" to read a text from standard input.

Results are written to <output>/<image name>/<id>.<ext>.`,
		Example: `  textmosaic render cat.jpg poem.txt --width 120
  textmosaic render cat.jpg a.txt b.txt --colors 8 -f png,txt,colors
  cat poem.txt | textmosaic render cat.jpg - --black=false`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd, c)
			if err != nil {
				return err
			}
			texts, err := readTexts(args[1:], cmd.InOrStdin())
			if err != nil {
				return err
			}
			return c.runMosaic(cmd.Context(), args[0], texts, opts, flags.noCache, output)
		},
	}

	flags.register(cmd, true)
	cmd.Flags().StringVarP(&output, "output", "o", defaultOutputDir, "output directory")

	return cmd
}

// runMosaic runs the pipeline on one image and writes its artifacts.
func (c *CLI) runMosaic(ctx context.Context, imagePath string, texts []string, opts pipeline.Options, noCache bool, output string) error {
	logger := loggerFromContext(ctx)
	logger.Infof("Rendering %s", imagePath)

	img, err := raster.Open(imagePath)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(logger)
	spinner := newSpinnerWithContext(ctx, "Building mosaic...")
	spinner.Start()
	res, err := runner.Execute(ctx, opts, pipeline.Input{
		Image: img,
		Name:  filepath.Base(imagePath),
		Texts: texts,
	})
	if err != nil {
		spinner.StopWithError("Mosaic failed")
		return err
	}
	if res.Status == mosaic.StatusComplete {
		spinner.StopWithSuccess("Placed every word")
	} else {
		spinner.Stop()
		printShortfall(res)
	}
	prog.done("Built mosaic", "id", res.ID, "status", res.Status)

	paths, err := writeArtifacts(output, imagePath, res)
	if err != nil {
		return err
	}

	printStats(res)
	for _, p := range paths {
		printFile(p)
	}
	if len(texts) > 0 {
		printNewline()
		printNextStep("Browse it in the terminal", fmt.Sprintf("%s preview %s <text>...", appName, imagePath))
	}
	return nil
}
