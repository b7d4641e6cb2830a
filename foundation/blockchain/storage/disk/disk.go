// Package disk implements the ability to read and write blobs to disk
// using a file per blob.
package disk

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ardanlabs/utxochain/foundation/blockchain/storage"
)

// ext is the file extension of every blob.
const ext = ".cbor"

// Disk represents the serialization implementation for reading and storing
// blobs in their own separate files on disk. This implements the
// storage.Blobs interface.
type Disk struct {
	dbPath string
}

// New constructs a Disk value for use.
func New(dbPath string) (*Disk, error) {
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, err
	}

	return &Disk{dbPath: dbPath}, nil
}

// Close in this implementation has nothing to do since a file is written
// for each blob and then immediately closed.
func (d *Disk) Close() error {
	return nil
}

// Read returns the contents of the named blob.
func (d *Disk) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(d.getPath(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	return data, nil
}

// Write replaces the contents of the named blob. The data is written to a
// temporary file first and renamed over the blob so a crash never leaves a
// partial blob behind.
func (d *Disk) Write(name string, data []byte) error {
	f, err := os.CreateTemp(d.dbPath, name+"-*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, d.getPath(name)); err != nil {
		os.Remove(tmp)
		return err
	}

	return nil
}

// getPath forms the path to the specified blob.
func (d *Disk) getPath(name string) string {
	return filepath.Join(d.dbPath, name+ext)
}
