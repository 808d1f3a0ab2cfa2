package pypi

import (
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Distribution is the upload metadata derived from a distribution file name.
type Distribution struct {
	Name      string
	Version   string
	FileType  string // bdist_wheel or sdist
	PyVersion string // python tag of a wheel, "source" for an sdist
}

var sdistSuffixes = []string{".tar.gz", ".zip"}

// ParseFilename reads name, version and type from a wheel
// ({name}-{version}(-{build})?-{python}-{abi}-{platform}.whl) or sdist
// ({name}-{version}.tar.gz) file name.
func ParseFilename(file string) (*Distribution, error) {
	base := filepath.Base(file)

	if stem, ok := strings.CutSuffix(base, ".whl"); ok {
		parts := strings.Split(stem, "-")
		if len(parts) != 5 && len(parts) != 6 {
			return nil, goerr.New("invalid wheel file name", goerr.V("file", base))
		}
		return &Distribution{
			Name:      parts[0],
			Version:   parts[1],
			FileType:  "bdist_wheel",
			PyVersion: parts[len(parts)-3],
		}, nil
	}

	for _, suffix := range sdistSuffixes {
		stem, ok := strings.CutSuffix(base, suffix)
		if !ok {
			continue
		}
		idx := strings.LastIndex(stem, "-")
		if idx <= 0 || idx == len(stem)-1 {
			return nil, goerr.New("invalid sdist file name", goerr.V("file", base))
		}
		return &Distribution{
			Name:      stem[:idx],
			Version:   stem[idx+1:],
			FileType:  "sdist",
			PyVersion: "source",
		}, nil
	}

	return nil, goerr.New("unsupported distribution file", goerr.V("file", base))
}
