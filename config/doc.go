// Package config loads scenario Parameters for the two aggregation
// protocols from YAML files. A single file loads straight through
// gopkg.in/yaml.v3 onto each protocol's flat key/value struct;
// a scenario spread across several files, or overridden by environment
// variables, loads through github.com/spf13/viper instead, merging
// sources before the same struct tags take over.
package config
