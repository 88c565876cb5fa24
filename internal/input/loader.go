package input

import (
	"encoding/json"
	"fmt"
	"os"

	"tax-reconciliation-service/internal/models"
	"tax-reconciliation-service/pkg/errors"
	"tax-reconciliation-service/pkg/logger"
)

// Loader reads the OCR collaborator's record files. Each file is a JSON
// array of one document category; the values are the literal extracted
// strings, parsing happens later in the normalizer.
type Loader struct {
	log logger.Logger
}

// NewLoader creates a Loader.
func NewLoader() *Loader {
	return &Loader{
		log: logger.WithComponent("input"),
	}
}

// LoadFakturPajak reads a Faktur Pajak record file.
func (l *Loader) LoadFakturPajak(path string) ([]*models.FakturPajakRecord, error) {
	var records []*models.FakturPajakRecord
	if err := l.loadJSON(path, &records); err != nil {
		return nil, err
	}

	if err := requireIDs(path, len(records), func(i int) string { return records[i].ID }); err != nil {
		return nil, err
	}

	l.log.WithFields(logger.Fields{"path": path, "records": len(records)}).Debug("loaded invoices")
	return records, nil
}

// LoadBuktiPotong reads a Bukti Potong record file.
func (l *Loader) LoadBuktiPotong(path string) ([]*models.BuktiPotongRecord, error) {
	var records []*models.BuktiPotongRecord
	if err := l.loadJSON(path, &records); err != nil {
		return nil, err
	}

	if err := requireIDs(path, len(records), func(i int) string { return records[i].ID }); err != nil {
		return nil, err
	}

	l.log.WithFields(logger.Fields{"path": path, "records": len(records)}).Debug("loaded certificates")
	return records, nil
}

// LoadRekeningKoran reads a Rekening Koran record file.
func (l *Loader) LoadRekeningKoran(path string) ([]*models.RekeningKoranRecord, error) {
	var records []*models.RekeningKoranRecord
	if err := l.loadJSON(path, &records); err != nil {
		return nil, err
	}

	if err := requireIDs(path, len(records), func(i int) string { return records[i].ID }); err != nil {
		return nil, err
	}

	l.log.WithFields(logger.Fields{"path": path, "records": len(records)}).Debug("loaded bank rows")
	return records, nil
}

func (l *Loader) loadJSON(path string, target interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.FileError(errors.CodeFileNotFound, path, err)
		}
		return errors.FileError(errors.CodeInvalidFormat, path, err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return errors.FileError(errors.CodeInvalidFormat, path, err)
	}

	return nil
}

// requireIDs rejects files with missing record IDs; every diagnostic and
// match downstream is keyed by them.
func requireIDs(path string, count int, idAt func(int) string) error {
	for i := 0; i < count; i++ {
		if idAt(i) == "" {
			return errors.FileError(errors.CodeInvalidFormat, path,
				fmt.Errorf("record at index %d has no id", i))
		}
	}
	return nil
}
