package config

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/aggsim/aggsim/protocols/handel"
	"github.com/aggsim/aggsim/protocols/p2psig"
)

// yamlTagDecoder makes viper's Unmarshal match against the "yaml" struct
// tags the protocol Parameters already carry, instead of requiring a
// second set of mapstructure tags.
func yamlTagDecoder(c *mapstructure.DecoderConfig) {
	c.TagName = "yaml"
}

// newScenarioViper builds a viper instance that merges every file in
// paths (later files override earlier ones) and then layers environment
// variables prefixed envPrefix on top: file defaults, then env for
// deployment-specific overrides.
func newScenarioViper(paths []string, envPrefix string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for i, path := range paths {
		if i == 0 {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("config: read %q: %w", path, err)
			}
			continue
		}
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("config: merge %q: %w", path, err)
		}
	}
	return v, nil
}

// LoadP2PSigViper merges paths (in order) and envPrefix-prefixed
// environment variables onto p2psig.DefaultParameters. An environment
// variable overrides only a key that appears in at least one file; with no
// paths, the defaults are returned unchanged and the environment is not read.
func LoadP2PSigViper(paths []string, envPrefix string) (p2psig.Parameters, error) {
	params := p2psig.DefaultParameters()
	if len(paths) == 0 {
		return params, nil
	}
	v, err := newScenarioViper(paths, envPrefix)
	if err != nil {
		return p2psig.Parameters{}, err
	}
	if err := v.Unmarshal(&params, viper.DecoderConfigOption(yamlTagDecoder)); err != nil {
		return p2psig.Parameters{}, fmt.Errorf("config: decode p2psig scenario: %w", err)
	}
	return params, nil
}

// LoadHandelViper merges paths (in order) and envPrefix-prefixed
// environment variables onto handel.DefaultParameters. An environment
// variable overrides only a key that appears in at least one file; with no
// paths, the defaults are returned unchanged and the environment is not read.
func LoadHandelViper(paths []string, envPrefix string) (handel.Parameters, error) {
	params := handel.DefaultParameters()
	if len(paths) == 0 {
		return params, nil
	}
	v, err := newScenarioViper(paths, envPrefix)
	if err != nil {
		return handel.Parameters{}, err
	}
	if err := v.Unmarshal(&params, viper.DecoderConfigOption(yamlTagDecoder)); err != nil {
		return handel.Parameters{}, fmt.Errorf("config: decode handel scenario: %w", err)
	}
	return params, nil
}
