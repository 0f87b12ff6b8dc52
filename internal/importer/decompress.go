package importer

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// readDataset returns the contents of a dataset file, gunzipping files that
// end in .gz.
func readDataset(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gunzip %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}
	return io.ReadAll(r)
}
