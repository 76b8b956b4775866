package local

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/mathiasertl/gpg-mime/backend"
	"github.com/mathiasertl/gpg-mime/fingerprint"
)

const trustDBFilename = "trustdb.json"

// trustDB records owner trust per fingerprint in a JSON file next to the
// keyring files. Keys without a record have ValidityUnknown.
type trustDB struct {
	path string

	levels map[string]backend.Validity
}

type trustDBFile struct {
	Keys []trustDBEntry `json:"keys"`
}

type trustDBEntry struct {
	Fingerprint string `json:"fingerprint"`
	Trust       string `json:"trust"`
}

func openTrustDB(home string) (*trustDB, error) {
	db := &trustDB{
		path:   filepath.Join(home, trustDBFilename),
		levels: map[string]backend.Validity{},
	}

	data, err := os.ReadFile(db.path)
	if err != nil {
		if os.IsNotExist(err) {
			return db, nil
		}
		return nil, errors.Wrap(err, "gpgmime: cannot read trust db")
	}

	var file trustDBFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "gpgmime: cannot parse trust db")
	}
	for _, entry := range file.Keys {
		trust, err := backend.ParseValidity(entry.Trust)
		if err != nil {
			return nil, err
		}
		db.levels[entry.Fingerprint] = trust
	}
	return db, nil
}

func (db *trustDB) save() error {
	var file trustDBFile
	for fp, trust := range db.levels {
		file.Keys = append(file.Keys, trustDBEntry{Fingerprint: fp, Trust: trust.String()})
	}

	data, err := json.MarshalIndent(&file, "", "    ")
	if err != nil {
		return errors.Wrap(err, "gpgmime: cannot encode trust db")
	}
	if err := os.WriteFile(db.path, data, 0o600); err != nil {
		return errors.Wrap(err, "gpgmime: cannot write trust db")
	}
	return nil
}

func (db *trustDB) get(fp fingerprint.Fingerprint) backend.Validity {
	return db.levels[fp.Hex()]
}

func (db *trustDB) set(fp fingerprint.Fingerprint, trust backend.Validity) error {
	db.levels[fp.Hex()] = trust
	return db.save()
}
