package pipeline

import (
	"context"
	"image"
	"image/color"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/textmosaic/pkg/cache"
	"github.com/matzehuels/textmosaic/pkg/errors"
	"github.com/matzehuels/textmosaic/pkg/mosaic"
	"github.com/matzehuels/textmosaic/pkg/observability"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"png", false},
		{"txt", false},
		{"json", false},
		{"colors", false},
		{"svg", true},
		{"PNG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidFormat) {
			t.Errorf("ValidateFormat(%q) code = %q, want INVALID_FORMAT", tt.format, errors.GetCode(err))
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"png", "txt"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}

	if err := ValidateFormats([]string{"png", "invalid"}); err == nil {
		t.Error("Invalid format should fail")
	}

	// Empty slice is valid
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestParseFormats(t *testing.T) {
	got := ParseFormats(" png, TXT,,png ,json")
	if diff := cmp.Diff([]string{"png", "txt", "json"}, got); diff != "" {
		t.Errorf("ParseFormats() mismatch (-want +got):\n%s", diff)
	}
	if got := ParseFormats(""); got != nil {
		t.Errorf("ParseFormats(\"\") = %v, want nil", got)
	}
}

func TestValidateThreshold(t *testing.T) {
	for _, v := range []float64{0, 1, 100, 255, 1000} {
		if err := ValidateThreshold(v); err != nil {
			t.Errorf("ValidateThreshold(%v) error: %v", v, err)
		}
	}
	for _, v := range []float64{-1, math.NaN(), math.Inf(1)} {
		if err := ValidateThreshold(v); err == nil {
			t.Errorf("ValidateThreshold(%v) should fail", v)
		}
	}
}

func TestOptionsDefaults(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("zero options should validate: %v", err)
	}

	if opts.Threshold == nil || *opts.Threshold != DefaultThreshold {
		t.Errorf("Threshold = %v, want %v", opts.FillThreshold(), DefaultThreshold)
	}
	if opts.Font != DefaultFont || opts.FontSize != DefaultFontSize {
		t.Errorf("font = %s %v", opts.Font, opts.FontSize)
	}
	if opts.CaseWidth != DefaultCaseWidth || opts.CaseHeight != DefaultCaseHeight {
		t.Errorf("case = %dx%d", opts.CaseWidth, opts.CaseHeight)
	}
	if opts.Seed != DefaultSeed {
		t.Errorf("Seed = %d, want %d", opts.Seed, DefaultSeed)
	}
	if diff := cmp.Diff(DefaultFormats, opts.Formats); diff != "" {
		t.Errorf("Formats mismatch (-want +got):\n%s", diff)
	}
	if !opts.BlackBackground() {
		t.Error("black background should be the default")
	}
	if opts.Logger == nil {
		t.Error("Logger should default to a discard logger")
	}

	// Formats must not alias the package default.
	opts.Formats[0] = "json"
	if DefaultFormats[0] != FormatPNG {
		t.Error("SetDefaults should copy DefaultFormats")
	}
}

func threshold(v float64) *float64 { return &v }

func TestZeroThresholdKept(t *testing.T) {
	opts := Options{Threshold: threshold(0)}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if got := opts.FillThreshold(); got != 0 {
		t.Errorf("FillThreshold() = %v, want 0", got)
	}
	if got := (&Options{}).FillThreshold(); got != DefaultThreshold {
		t.Errorf("unset FillThreshold() = %v, want %v", got, DefaultThreshold)
	}
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"negative threshold", Options{Threshold: threshold(-1)}, errors.ErrCodeInvalidInput},
		{"negative width", Options{Width: -1}, errors.ErrCodeInvalidInput},
		{"width too large", Options{Width: MaxWidth + 1}, errors.ErrCodeInvalidInput},
		{"too many colors", Options{Colors: MaxColors + 1}, errors.ErrCodeInvalidInput},
		{"colors format without colors", Options{Formats: []string{FormatColors}}, errors.ErrCodeInvalidInput},
		{"bad format", Options{Formats: []string{"gif"}}, errors.ErrCodeInvalidFormat},
		{"negative case", Options{CaseWidth: -2}, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want code %s", err, tt.code)
			}
		})
	}

	ok := Options{Colors: 4, Formats: []string{FormatColors, FormatPNG}}
	if err := ok.ValidateAndSetDefaults(); err != nil {
		t.Errorf("colors format with colors should pass: %v", err)
	}
}

func TestValidateAndSetDefaultsIdempotent(t *testing.T) {
	opts := Options{Threshold: threshold(30)}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	first := opts.Formats
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.FillThreshold() != 30 || len(opts.Formats) != len(first) {
		t.Errorf("second call changed options: %+v", opts)
	}
}

func TestLayerArtifact(t *testing.T) {
	tests := []struct {
		stream int
		want   string
	}{
		{0, "layer-0"},
		{3, "layer-3"},
		{mosaic.FillerStream, "layer-filler"},
	}
	for _, tt := range tests {
		if got := LayerArtifact(tt.stream); got != tt.want {
			t.Errorf("LayerArtifact(%d) = %q, want %q", tt.stream, got, tt.want)
		}
	}
	for artifact, want := range map[string]string{
		FormatPNG:        "png",
		FormatText:       "txt",
		FormatJSON:       "json",
		FormatColors:     "colors.txt",
		LayerArtifact(1): "txt",
	} {
		if got := Extension(artifact); got != want {
			t.Errorf("Extension(%q) = %q, want %q", artifact, got, want)
		}
	}
}

// gradient returns a w x h image whose left half is dark red and right half
// light blue.
func gradient(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			c := color.NRGBA{R: 90, G: 10, B: 10, A: 255}
			if x >= w/2 {
				c = color.NRGBA{R: 180, G: 210, B: 250, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestExecute(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(fc, nil, nil)
	defer runner.Close()

	opts := Options{
		Colors:  2,
		Formats: []string{FormatPNG, FormatText, FormatJSON, FormatColors},
		Layers:  true,
		Workers: 2,
	}
	in := Input{Image: gradient(8, 4), Name: "gradient.png", Texts: []string{"hello world"}}

	first, err := runner.Execute(context.Background(), opts, in)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if first.Grid.Width() != 8 || first.Grid.Height() != 4 {
		t.Errorf("grid = %dx%d, want 8x4", first.Grid.Width(), first.Grid.Height())
	}
	if first.Stats.Streams != 1 {
		t.Errorf("Streams = %d, want 1", first.Stats.Streams)
	}
	if first.Placed+first.Remaining != 2 {
		t.Errorf("placed %d + remaining %d, want 2 words", first.Placed, first.Remaining)
	}
	if len(first.Labels) != 32 || len(first.Palette) == 0 || len(first.Palette) > 2 {
		t.Errorf("labels = %d, palette = %d", len(first.Labels), len(first.Palette))
	}
	for _, key := range []string{FormatPNG, FormatText, FormatJSON, FormatColors, LayerArtifact(0), LayerArtifact(mosaic.FillerStream)} {
		if len(first.Artifacts[key]) == 0 {
			t.Errorf("artifact %q missing", key)
		}
	}
	if !strings.HasPrefix(string(first.Artifacts[FormatText]), "gradient.png\ngoregular    12\n") {
		t.Errorf("text header = %q", first.Artifacts[FormatText])
	}
	if first.CacheInfo.GrayscaleHit || first.CacheInfo.PaletteHit {
		t.Errorf("first run should miss the cache: %+v", first.CacheInfo)
	}

	second, err := runner.Execute(context.Background(), opts, in)
	if err != nil {
		t.Fatalf("second Execute() error: %v", err)
	}
	if !second.CacheInfo.GrayscaleHit || !second.CacheInfo.PaletteHit {
		t.Errorf("second run should hit the cache: %+v", second.CacheInfo)
	}
	if second.ID == first.ID {
		t.Error("runs should get distinct IDs")
	}
	if diff := cmp.Diff(first.Grid.String(), second.Grid.String()); diff != "" {
		t.Errorf("cached run differs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Labels, second.Labels); diff != "" {
		t.Errorf("cached labels differ (-first +second):\n%s", diff)
	}
}

func TestExecuteResize(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	// 20x10 image, 10 columns, cells twice as tall as wide.
	res, err := runner.Execute(context.Background(), Options{Width: 10, CaseWidth: 10, CaseHeight: 20, Formats: []string{FormatText}}, Input{Image: gradient(20, 10)})
	if err != nil {
		t.Fatal(err)
	}
	if res.Grid.Width() != 10 || res.Grid.Height() != 3 {
		t.Errorf("grid = %dx%d, want 10x3", res.Grid.Width(), res.Grid.Height())
	}
	if res.Status != mosaic.StatusComplete {
		t.Errorf("Status = %v, want complete", res.Status)
	}
}

func TestExecuteErrors(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	ctx := context.Background()

	if _, err := runner.Execute(ctx, Options{}, Input{}); !errors.Is(err, errors.ErrCodeInvalidRaster) {
		t.Errorf("nil image error = %v", err)
	}
	if _, err := runner.Execute(ctx, Options{Font: "missing.ttf", FontDir: t.TempDir()}, Input{Image: gradient(2, 2)}); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing font error = %v", err)
	}
	if _, err := runner.Execute(ctx, Options{Formats: []string{"gif"}}, Input{Image: gradient(2, 2)}); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("bad format error = %v", err)
	}
}

func TestValidateSize(t *testing.T) {
	tests := []struct {
		name    string
		formats []string
		w, h    int
		wantErr bool
	}{
		{"small", nil, 80, 40, false},
		{"max width", []string{FormatText}, MaxWidth, 1, false},
		{"too wide", []string{FormatText}, MaxWidth + 1, 1, true},
		{"too many cells", []string{FormatText}, 1000, 1100, true},
		{"canvas too large", []string{FormatPNG}, 1000, 300, true},
		{"same grid without png", []string{FormatText}, 1000, 300, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Options{Formats: tt.formats}
			opts.SetDefaults()
			err := opts.ValidateSize(tt.w, tt.h)
			if tt.wantErr && !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("ValidateSize(%d, %d) error = %v, want INVALID_INPUT", tt.w, tt.h, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateSize(%d, %d) error = %v", tt.w, tt.h, err)
			}
		})
	}
}

func TestFitWidth(t *testing.T) {
	tests := []struct {
		name    string
		formats []string
		bounds  image.Rectangle
	}{
		{"wide strip", []string{FormatText}, image.Rect(0, 0, 6000, 1)},
		{"wide strip png", nil, image.Rect(0, 0, 6000, 1)},
		{"square png", nil, image.Rect(0, 0, 4000, 4000)},
		{"tall", []string{FormatText}, image.Rect(0, 0, 300, 90000)},
		{"already small", nil, image.Rect(0, 0, 40, 30)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Options{Formats: tt.formats}
			opts.SetDefaults()
			w := opts.FitWidth(tt.bounds)
			if w < 1 || w > MaxWidth || w > tt.bounds.Dx() {
				t.Fatalf("FitWidth() = %d", w)
			}
			size := func(w int) (int, int) {
				h := float64(tt.bounds.Dy()) / float64(tt.bounds.Dx()) * float64(w)
				return w, max(int(math.Round(h)), 1)
			}
			if err := opts.ValidateSize(size(w)); err != nil {
				t.Errorf("FitWidth() = %d does not fit: %v", w, err)
			}
			if w < min(MaxWidth, tt.bounds.Dx()) && opts.ValidateSize(size(w+1)) == nil {
				t.Errorf("FitWidth() = %d, but %d fits too", w, w+1)
			}
		})
	}
	if w := (&Options{}).FitWidth(image.Rectangle{}); w != 0 {
		t.Errorf("FitWidth(empty) = %d, want 0", w)
	}
}

func TestExecuteRejectsOversizedGrid(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	ctx := context.Background()
	tests := []struct {
		name string
		opts Options
		img  image.Image
	}{
		{"native width over max", Options{}, gradient(6000, 1)},
		{"tall image", Options{Width: 1000, Formats: []string{FormatText}}, image.NewGray(image.Rect(0, 0, 1000, 1100))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := runner.Execute(ctx, tt.opts, Input{Image: tt.img})
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("Execute() = %v, %v; want INVALID_INPUT", res, err)
			}
		})
	}
}

type recordingHooks struct {
	observability.NoopPipelineHooks
	stages []string
}

func (h *recordingHooks) OnGrayscaleComplete(context.Context, string, float64, bool, time.Duration, error) {
	h.stages = append(h.stages, "grayscale")
}

func (h *recordingHooks) OnFillComplete(_ context.Context, _ int, status string, _ time.Duration, _ error) {
	h.stages = append(h.stages, "fill:"+status)
}

func (h *recordingHooks) OnRenderComplete(context.Context, []string, time.Duration, error) {
	h.stages = append(h.stages, "render")
}

func TestExecuteFiresHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetPipelineHooks(hooks)
	defer observability.Reset()

	runner := NewRunner(nil, nil, nil)
	if _, err := runner.Execute(context.Background(), Options{Formats: []string{FormatText}}, Input{Image: gradient(4, 2)}); err != nil {
		t.Fatal(err)
	}
	want := []string{"grayscale", "fill:complete", "render"}
	if diff := cmp.Diff(want, hooks.stages); diff != "" {
		t.Errorf("hook order mismatch (-want +got):\n%s", diff)
	}
}
