package request

import (
	"io"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

// File is the stream collaborator for uploads and downloads. Uploads use
// Size and Open, downloads use Create.
type File interface {
	Name() string
	Size() (int64, error)
	Open() (io.ReadCloser, error)
	Create() (io.WriteCloser, error)
}

type localFile struct {
	path string
}

// LocalFile returns a File backed by path on the local filesystem. A leading
// "~" is expanded to the user's home directory.
func LocalFile(path string) (File, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to expand path "+path)
	}
	return &localFile{path: expanded}, nil
}

func (f *localFile) Name() string {
	return f.path
}

func (f *localFile) Size() (int64, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return 0, errors.Wrap(err, "Failed to stat "+f.path)
	}
	return info.Size(), nil
}

func (f *localFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

// Create truncates or creates the file, making parent directories as needed.
func (f *localFile) Create() (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(f.path), 0775); err != nil {
		return nil, errors.Wrap(err, "Failed to create directory for "+f.path)
	}
	return os.Create(f.path)
}
