package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/textmosaic/pkg/mosaic"
	"github.com/matzehuels/textmosaic/pkg/pipeline"
	"github.com/matzehuels/textmosaic/pkg/raster"
)

// previewCommand creates the preview command, which fills a grid and opens
// it in a scrollable terminal viewer.
func (c *CLI) previewCommand() *cobra.Command {
	var flags mosaicFlags

	cmd := &cobra.Command{
		Use:   "preview <image> <text>...",
		Short: "Fill an image with texts and browse the result in the terminal",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd, c)
			if err != nil {
				return err
			}
			// Only the grid is needed; skip the PNG.
			opts.Formats = []string{pipeline.FormatText}

			texts, err := readTexts(args[1:], cmd.InOrStdin())
			if err != nil {
				return err
			}
			img, err := raster.Open(args[0])
			if err != nil {
				return err
			}

			runner, err := c.newRunner(flags.noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			res, err := runner.Execute(cmd.Context(), opts, pipeline.Input{Image: img, Name: filepath.Base(args[0]), Texts: texts})
			if err != nil {
				return err
			}

			p := tea.NewProgram(newPreviewModel(res, filepath.Base(args[0])), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err = p.Run()
			return err
		},
	}

	flags.register(cmd, false)
	return cmd
}

// =============================================================================
// previewModel - Scrollable mosaic viewer
// =============================================================================

// previewChrome is the number of lines taken by the header and footer.
const previewChrome = 4

// previewModel is the bubbletea model of the mosaic viewer. The viewport
// shows the cells from (offX, offY) on.
type previewModel struct {
	grid    *mosaic.Grid
	title   string
	summary string

	offX, offY    int
	width, height int // viewport size in cells
}

func newPreviewModel(res *pipeline.Result, title string) previewModel {
	summary := fmt.Sprintf("%dx%d · %d words placed · %s", res.Grid.Width(), res.Grid.Height(), res.Placed, res.Status)
	return previewModel{
		grid:    res.Grid,
		title:   title,
		summary: summary,
		width:   80,
		height:  20,
	}
}

func (m previewModel) Init() tea.Cmd {
	return nil
}

func (m previewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			m.offY--
		case "down", "j":
			m.offY++
		case "left", "h":
			m.offX--
		case "right", "l":
			m.offX++
		case "pgup", "b":
			m.offY -= m.height
		case "pgdown", " ", "f":
			m.offY += m.height
		case "home", "g":
			m.offX, m.offY = 0, 0
		case "end", "G":
			m.offY = m.grid.Height()
		}
	case tea.WindowSizeMsg:
		m.width = max(msg.Width, 1)
		m.height = max(msg.Height-previewChrome, 1)
	}
	m.clamp()
	return m, nil
}

// clamp keeps the viewport inside the grid.
func (m *previewModel) clamp() {
	m.offX = min(m.offX, m.grid.Width()-m.width)
	m.offY = min(m.offY, m.grid.Height()-m.height)
	m.offX = max(m.offX, 0)
	m.offY = max(m.offY, 0)
}

func (m previewModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.title))
	b.WriteString("  ")
	b.WriteString(StyleDim.Render(m.summary))
	b.WriteString("\n\n")

	endY := min(m.offY+m.height, m.grid.Height())
	endX := min(m.offX+m.width, m.grid.Width())
	for y := m.offY; y < endY; y++ {
		b.WriteString(m.renderRow(y, m.offX, endX))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(StyleDim.Render(fmt.Sprintf("←↓↑→/hjkl scroll  g top  q quit  [%d,%d]", m.offY, m.offX)))
	return b.String()
}

// renderRow styles the cells [from, to) of row y, one style run per stream.
func (m previewModel) renderRow(y, from, to int) string {
	var b, run strings.Builder
	stream := 0
	flush := func() {
		if run.Len() > 0 {
			b.WriteString(streamStyle(stream).Render(run.String()))
			run.Reset()
		}
	}
	for x := from; x < to; x++ {
		cell := m.grid.At(mosaic.Position{Row: y, Col: x})
		s := mosaic.FillerStream
		if cell.Placed {
			s = cell.Owner.Stream
		}
		if x == from || s != stream {
			flush()
			stream = s
		}
		char := cell.Char
		if !cell.Placed || unicode.IsSpace(char) {
			char = ' '
		}
		run.WriteRune(char)
	}
	flush()
	return b.String()
}
