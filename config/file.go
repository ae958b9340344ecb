package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aggsim/aggsim/protocols/handel"
	"github.com/aggsim/aggsim/protocols/p2psig"
)

// LoadP2PSigFile reads path as YAML and overlays it onto
// p2psig.DefaultParameters: fields absent from the file keep their
// default value.
func LoadP2PSigFile(path string) (p2psig.Parameters, error) {
	params := p2psig.DefaultParameters()
	data, err := os.ReadFile(path)
	if err != nil {
		return p2psig.Parameters{}, fmt.Errorf("config: read p2psig scenario %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &params); err != nil {
		return p2psig.Parameters{}, fmt.Errorf("config: parse p2psig scenario %q: %w", path, err)
	}
	return params, nil
}

// LoadHandelFile reads path as YAML and overlays it onto
// handel.DefaultParameters.
func LoadHandelFile(path string) (handel.Parameters, error) {
	params := handel.DefaultParameters()
	data, err := os.ReadFile(path)
	if err != nil {
		return handel.Parameters{}, fmt.Errorf("config: read handel scenario %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &params); err != nil {
		return handel.Parameters{}, fmt.Errorf("config: parse handel scenario %q: %w", path, err)
	}
	return params, nil
}
