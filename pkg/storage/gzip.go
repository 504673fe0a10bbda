package storage

import (
	"bytes"
	"io"
	"io/ioutil"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"github.com/serverlessresearch/gcrest/pkg/request"
)

// gzipFile compresses its source on first use and serves the compressed
// bytes from memory, so Size reports the length actually sent.
type gzipFile struct {
	src  request.File
	data []byte
	err  error
	done bool
}

// Gzip wraps src so uploads send it gzip-compressed.
func Gzip(src request.File) request.File {
	return &gzipFile{src: src}
}

func (g *gzipFile) compress() ([]byte, error) {
	if g.done {
		return g.data, g.err
	}
	g.done = true

	r, err := g.src.Open()
	if err != nil {
		g.err = errors.Wrap(err, "Failed to open "+g.src.Name())
		return nil, g.err
	}
	defer r.Close()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := io.Copy(zw, r); err != nil {
		g.err = errors.Wrap(err, "Failed to compress "+g.src.Name())
		return nil, g.err
	}
	if err := zw.Close(); err != nil {
		g.err = errors.Wrap(err, "Failed to compress "+g.src.Name())
		return nil, g.err
	}
	g.data = buf.Bytes()
	return g.data, nil
}

func (g *gzipFile) Name() string {
	return g.src.Name()
}

func (g *gzipFile) Size() (int64, error) {
	data, err := g.compress()
	return int64(len(data)), err
}

func (g *gzipFile) Open() (io.ReadCloser, error) {
	data, err := g.compress()
	if err != nil {
		return nil, err
	}
	return ioutil.NopCloser(bytes.NewReader(data)), nil
}

func (g *gzipFile) Create() (io.WriteCloser, error) {
	return nil, errors.New("gzip upload source is read-only")
}
