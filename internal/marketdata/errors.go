package marketdata

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData means no bars were found for the requested sector and period.
	ErrNoData = errors.New("no data found")

	// ErrMalformedRaw marks a raw telemetry file without a usable header or rows.
	ErrMalformedRaw = errors.New("malformed raw file")

	// ErrSectorNotFound means the sector list file does not exist.
	ErrSectorNotFound = errors.New("sector not found")
)

// DataContractError reports a bar file that lacks a required column.
type DataContractError struct {
	File   string
	Column string
}

func (e *DataContractError) Error() string {
	return fmt.Sprintf("%s: missing required column %q", e.File, e.Column)
}
