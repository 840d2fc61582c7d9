package config

import (
	"encoding/json"

	"github.com/a8m/envsubst"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"go.viam.com/gridmap/mapfile"
	"go.viam.com/gridmap/ros"
)

// Read reads a config from the given file. Environment variables in the file are
// expanded before it is parsed.
func Read(filePath string) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", filePath)
	}
	return FromBytes(buf)
}

// FromBytes parses and validates a JSON config, filling in defaults.
func FromBytes(buf []byte) (*Config, error) {
	var attributes map[string]interface{}
	if err := json.Unmarshal(buf, &attributes); err != nil {
		return nil, errors.Wrap(err, "cannot parse config")
	}

	var conf Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      &conf,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrap(err, "cannot decode config")
	}

	if conf.PoseType == "" {
		conf.PoseType = ros.PoseTypePose2D
	}
	if conf.ImageFormat == "" {
		conf.ImageFormat = mapfile.FormatPNG
	}
	if err := conf.Validate(""); err != nil {
		return nil, err
	}
	return &conf, nil
}
