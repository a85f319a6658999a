package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/textmosaic/pkg/cache"
	"github.com/matzehuels/textmosaic/pkg/errors"
	"github.com/matzehuels/textmosaic/pkg/pipeline"
	"github.com/matzehuels/textmosaic/pkg/store"
)

func encodedImage(t *testing.T) string {
	t.Helper()
	return encodePNG(t, 8, 4)
}

func encodePNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 30), G: uint8(y * 60), B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func newTestServer(t *testing.T) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	runner := pipeline.NewRunner(cache.NewNullCache(), nil, nil)
	srv := httptest.NewServer(New(runner, st, nil).Handler())
	t.Cleanup(srv.Close)
	return srv, st
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url+"/v1/mosaics", "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestCreateAndFetch(t *testing.T) {
	srv, st := newTestServer(t)

	resp := post(t, srv.URL, CreateRequest{
		Image: encodedImage(t),
		Name:  "photos/cat.png",
		Texts: []string{"hello world"},
		Options: pipeline.Options{
			Formats: []string{pipeline.FormatText, pipeline.FormatJSON},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	created := decode[MosaicResponse](t, resp)
	if created.ID == "" || created.Image != "cat.png" {
		t.Errorf("created = %+v", created.Record)
	}
	if created.Width != 8 || created.Height != 4 {
		t.Errorf("size = %dx%d, want 8x4", created.Width, created.Height)
	}
	if diff := cmp.Diff([]string{"json", "txt"}, created.Artifacts); diff != "" {
		t.Errorf("artifacts mismatch (-want +got):\n%s", diff)
	}
	if got := resp.Header.Get("Location"); got != "/v1/mosaics/"+created.ID {
		t.Errorf("Location = %q", got)
	}

	rec, err := st.Get(t.Context(), created.ID)
	if err != nil {
		t.Fatalf("record not stored: %v", err)
	}

	art, err := http.Get(srv.URL + "/v1/mosaics/" + created.ID + "/txt")
	if err != nil {
		t.Fatal(err)
	}
	defer art.Body.Close()
	if art.StatusCode != http.StatusOK {
		t.Fatalf("artifact status = %d", art.StatusCode)
	}
	if ct := art.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q", ct)
	}
	var body bytes.Buffer
	if _, err := body.ReadFrom(art.Body); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(body.Bytes(), rec.Artifacts[pipeline.FormatText]) {
		t.Errorf("artifact body differs from stored text")
	}

	got, err := http.Get(srv.URL + "/v1/mosaics/" + created.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer got.Body.Close()
	if m := decode[MosaicResponse](t, got); m.ID != created.ID || m.Status != created.Status {
		t.Errorf("GET = %+v, want %+v", m.Record, created.Record)
	}

	list, err := http.Get(srv.URL + "/v1/mosaics?limit=5")
	if err != nil {
		t.Fatal(err)
	}
	defer list.Body.Close()
	if l := decode[ListResponse](t, list); len(l.Mosaics) != 1 || l.Mosaics[0].ID != created.ID {
		t.Errorf("list = %+v", l)
	}
}

func TestCreateErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	img := encodedImage(t)

	tests := []struct {
		name   string
		body   any
		status int
		code   errors.Code
	}{
		{"missing image", CreateRequest{Texts: []string{"hi"}}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"bad base64", CreateRequest{Image: "!!"}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"not an image", CreateRequest{Image: base64.StdEncoding.EncodeToString([]byte("text"))}, http.StatusBadRequest, errors.ErrCodeInvalidRaster},
		{"traversal name", CreateRequest{Image: img, Name: "../../etc/cat.png"}, http.StatusBadRequest, errors.ErrCodeInvalidPath},
		{"blank text", CreateRequest{Image: img, Texts: []string{"  "}}, http.StatusBadRequest, errors.ErrCodeEmptyWord},
		{"font path", CreateRequest{Image: img, Options: pipeline.Options{Font: "/etc/passwd"}}, http.StatusBadRequest, errors.ErrCodeInvalidFont},
		{"bad format", CreateRequest{Image: img, Options: pipeline.Options{Formats: []string{"gif"}}}, http.StatusBadRequest, errors.ErrCodeInvalidFormat},
		{"unknown field", map[string]any{"image": img, "bogus": true}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL, tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if e := decode[ErrorResponse](t, resp); e.Code != tt.code {
				t.Errorf("code = %s, want %s (%s)", e.Code, tt.code, e.Message)
			}
		})
	}
}

func TestCreateFitsWideImage(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := post(t, srv.URL, CreateRequest{
		Image:   encodePNG(t, 3000, 10),
		Options: pipeline.Options{Formats: []string{pipeline.FormatText}},
	})
	if resp.StatusCode != http.StatusCreated {
		e := decode[ErrorResponse](t, resp)
		t.Fatalf("status = %d, want 201 (%s: %s)", resp.StatusCode, e.Code, e.Message)
	}
	created := decode[MosaicResponse](t, resp)
	if created.Width != pipeline.MaxWidth || created.Height != 7 {
		t.Errorf("size = %dx%d, want %dx7", created.Width, created.Height, pipeline.MaxWidth)
	}

	// An explicit width is never overridden.
	resp = post(t, srv.URL, CreateRequest{
		Image:   encodePNG(t, 3000, 10),
		Options: pipeline.Options{Width: 30, Formats: []string{pipeline.FormatText}},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if m := decode[MosaicResponse](t, resp); m.Width != 30 {
		t.Errorf("width = %d, want 30", m.Width)
	}
}

func TestNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := post(t, srv.URL, CreateRequest{Image: encodedImage(t), Options: pipeline.Options{Formats: []string{"txt"}}})
	created := decode[MosaicResponse](t, resp)

	for _, path := range []string{
		"/v1/mosaics/nope",
		"/v1/mosaics/nope/txt",
		"/v1/mosaics/" + created.ID + "/png",
	} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + path)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusNotFound {
				t.Errorf("status = %d, want 404", resp.StatusCode)
			}
			if e := decode[ErrorResponse](t, resp); e.Code != errors.ErrCodeNotFound {
				t.Errorf("code = %s", e.Code)
			}
		})
	}
}

func TestListLimit(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, q := range []string{"0", "x", "1000"} {
		resp, err := http.Get(srv.URL + "/v1/mosaics?limit=" + q)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("limit=%s status = %d, want 400", q, resp.StatusCode)
		}
	}
}

func TestCheckFont(t *testing.T) {
	s := New(nil, nil, nil)
	if err := s.checkFont("goregular"); err != nil {
		t.Errorf("builtin font rejected: %v", err)
	}
	if err := s.checkFont("custom.ttf"); !errors.Is(err, errors.ErrCodeInvalidFont) {
		t.Errorf("font without dir = %v, want INVALID_FONT", err)
	}
	s = New(nil, nil, nil, WithFontDir(t.TempDir()))
	if err := s.checkFont("custom.ttf"); err != nil {
		t.Errorf("font in dir rejected: %v", err)
	}
	if err := s.checkFont("../custom.ttf"); err == nil {
		t.Error("traversal accepted")
	}
}

func TestWithDefaults(t *testing.T) {
	st := store.NewMemoryStore()
	runner := pipeline.NewRunner(cache.NewNullCache(), nil, nil)
	h := New(runner, st, nil, WithDefaults(func(o *pipeline.Options) {
		if len(o.Formats) == 0 {
			o.Formats = []string{pipeline.FormatJSON}
		}
	})).Handler()
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp := post(t, srv.URL, CreateRequest{Image: encodedImage(t)})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if m := decode[MosaicResponse](t, resp); !cmp.Equal(m.Artifacts, []string{"json"}) {
		t.Errorf("artifacts = %v, want [json]", m.Artifacts)
	}
}
