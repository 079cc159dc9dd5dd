package config

import (
	"os"

	"github.com/RoyceAzure/lab/retail/internal/domain/model"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadSeed 讀取 yaml 種子資料；path 為空時回傳 nil
func LoadSeed(path string) (*model.Seed, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read seed file %s", path)
	}
	seed := &model.Seed{}
	if err := yaml.Unmarshal(raw, seed); err != nil {
		return nil, errors.Wrapf(err, "parse seed file %s", path)
	}
	return seed, nil
}
