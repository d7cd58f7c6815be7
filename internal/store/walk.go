package store

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/aidanlsb/skycat/internal/canon"
)

// WalkResult is one record file found while walking a partition.
type WalkResult struct {
	Path  string // relative to the store root
	Data  []byte
	Error error
}

// walkRecordFiles walks every record file of a partition and calls handler
// for each. It skips hidden files and directories, which is where the atomic
// writer keeps its temporary files, and anything without the record
// extension. A missing partition directory is an empty partition.
func walkRecordFiles(fs billy.Filesystem, partition string, handler func(WalkResult) error) error {
	if _, err := fs.Stat(partition); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	return util.Walk(fs, partition, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return handler(WalkResult{Path: path, Error: err})
		}

		name := info.Name()
		if strings.HasPrefix(name, ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() || filepath.Ext(name) != canon.RecordExt {
			return nil
		}

		data, err := util.ReadFile(fs, path)
		if err != nil {
			return handler(WalkResult{Path: path, Error: err})
		}
		return handler(WalkResult{Path: path, Data: data})
	})
}
