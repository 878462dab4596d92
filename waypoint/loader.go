package waypoint

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ReadCSV parses waypoint rows of the form `x,y,z,yaw[,velocity]`. Rows without a velocity
// column get defaultVelocity. A leading header row is skipped.
func ReadCSV(r io.Reader, defaultVelocity float64) (*Path, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var wps []Waypoint
	for first := true; ; first = false {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading waypoints")
		}
		line, _ := reader.FieldPos(0)
		if len(record) < 4 || len(record) > 5 {
			return nil, errors.Errorf("line %d: expected 4 or 5 fields, got %d", line, len(record))
		}
		values := make([]float64, len(record))
		for i, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				if first {
					values = nil
					break
				}
				return nil, errors.Wrapf(err, "line %d field %d", line, i+1)
			}
			values[i] = v
		}
		if values == nil {
			continue
		}
		velocity := defaultVelocity
		if len(values) == 5 {
			velocity = values[4]
		}
		wps = append(wps, New(values[0], values[1], values[2], values[3], velocity))
	}
	if len(wps) == 0 {
		return nil, ErrPathEmpty
	}
	return NewPath(wps), nil
}

// LoadFile reads a waypoint CSV file from disk.
func LoadFile(path string, defaultVelocity float64) (*Path, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := ReadCSV(f, defaultVelocity)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	return p, nil
}
