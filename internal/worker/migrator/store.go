// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package migrator

import (
	"os"

	"github.com/juju/errors"
	"github.com/juju/utils/v4"
	"gopkg.in/yaml.v3"

	coremigration "github.com/juju/vmmigrate/core/migration"
)

// FileStore keeps a migration record in a YAML file.
type FileStore struct {
	Path string
}

// NewFileStore returns a store for the record at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load returns the stored record, or a new record if the file does not
// exist yet.
func (s *FileStore) Load() (coremigration.Record, error) {
	var record coremigration.Record
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return record, nil
	} else if err != nil {
		return record, errors.Trace(err)
	}
	if err := yaml.Unmarshal(data, &record); err != nil {
		return record, errors.Annotatef(err, "parsing migration record %q", s.Path)
	}
	return record, nil
}

// Save replaces the stored record.
func (s *FileStore) Save(record coremigration.Record) error {
	data, err := yaml.Marshal(record)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Annotatef(utils.AtomicWriteFile(s.Path, data, 0600), "writing migration record %q", s.Path)
}
