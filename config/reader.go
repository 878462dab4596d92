package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// Read reads a config from the given file, substituting ${VAR} references from the environment
// first.
func Read(filePath string) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(filePath, bytes.NewReader(buf))
}

// FromReader reads a config from the given reader and specifies where, if applicable, the file
// the reader originated from. The body is JSON5, so comments and trailing commas are allowed.
// Defaults are applied before validation.
func FromReader(originalPath string, r io.Reader) (*Config, error) {
	body, err := normalizeJSON5(r)
	if err != nil {
		return nil, errors.Wrap(err, "cannot unmarshal config")
	}
	var unprocessed Config
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&unprocessed); err != nil {
		return nil, errors.Wrap(err, "cannot unmarshal config")
	}
	cfg := unprocessed.WithDefaults()
	cfg.ConfigFilePath = originalPath
	if err := cfg.Validate("config"); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalizeJSON5 rewrites a JSON5 document as plain JSON so it can be decoded strictly.
func normalizeJSON5(r io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, io.EOF
	}
	var doc interface{}
	if err := json5.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}
