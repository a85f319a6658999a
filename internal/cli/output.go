package cli

import (
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/textmosaic/pkg/errors"
	"github.com/matzehuels/textmosaic/pkg/pipeline"
)

// artifactName names one artifact file of a run: "<id>.<ext>", or
// "<id>.<layer>.txt" for layers.
func artifactName(artifact, id string) string {
	name := id
	if strings.HasPrefix(artifact, "layer-") {
		name += "." + artifact
	}
	return name + "." + pipeline.Extension(artifact)
}

// resultDir is the directory of one image's results: <output>/<image base
// name without extension>.
func resultDir(output, image string) string {
	base := filepath.Base(image)
	return filepath.Join(output, strings.TrimSuffix(base, filepath.Ext(base)))
}

// writeArtifacts writes every artifact of res under resultDir and returns
// the written paths in name order.
func writeArtifacts(output, image string, res *pipeline.Result) ([]string, error) {
	dir := resultDir(output, image)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", dir)
	}

	keys := make([]string, 0, len(res.Artifacts))
	for k := range res.Artifacts {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	paths := make([]string, 0, len(keys))
	for _, k := range keys {
		path := filepath.Join(dir, artifactName(k, res.ID.String()))
		if err := os.WriteFile(path, res.Artifacts[k], 0o644); err != nil {
			return paths, errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// readTexts loads the source texts. "-" reads standard input.
func readTexts(paths []string, stdin io.Reader) ([]string, error) {
	texts := make([]string, 0, len(paths))
	for _, p := range paths {
		var data []byte
		var err error
		if p == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(p)
		}
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "text %s not found", p)
			}
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read text %s", p)
		}
		if err := errors.ValidateText(string(data), 0); err != nil {
			return nil, errors.Wrap(errors.ErrCodeEmptyWord, err, "text %s", p)
		}
		texts = append(texts, string(data))
	}
	return texts, nil
}
