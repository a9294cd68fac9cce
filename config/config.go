/*
Package config implements the type to pass the arguments to the node set
and implements a function to load the parameters from a configuration file.
*/
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Commit modes.
const (
	CommitUnconditional = "unconditional"
	CommitQuorum        = "quorum"
)

// DefaultPhaseTimeout bounds every phase of a round unless configured otherwise.
const DefaultPhaseTimeout = 5 * time.Second

// Config defines a type to describe the configuration.
type Config struct {
	Name          string
	NodeNum       int
	LogLevel      int
	Identity      string // rsa or ed25519
	RSABits       int
	HashAlgorithm string // sha512 or blake3
	CommitMode    string
	PhaseTimeout  time.Duration
	Faulty        map[int]string // map from node index to fault kind
}

// New creates a new variable of type Config for test
func New(name string, nodeNum int, logLevel int, identity string, rsaBits int, hashAlgorithm string,
	commitMode string, phaseTimeout time.Duration, faulty map[int]string) *Config {
	if faulty == nil {
		faulty = make(map[int]string)
	}
	return &Config{
		Name:          name,
		NodeNum:       nodeNum,
		LogLevel:      logLevel,
		Identity:      identity,
		RSABits:       rsaBits,
		HashAlgorithm: hashAlgorithm,
		CommitMode:    commitMode,
		PhaseTimeout:  phaseTimeout,
		Faulty:        faulty,
	}
}

// Default returns the configuration of the reference deployment: four RSA
// backed nodes, SHA-512 digests and unconditional commit votes.
func Default() *Config {
	return New("tpmchain", 4, 3, "rsa", 2048, "sha512", CommitUnconditional, DefaultPhaseTimeout, nil)
}

// Validate checks the parameters that cannot be repaired by defaults.
func (c *Config) Validate() error {
	if c.NodeNum < 1 {
		return fmt.Errorf("node_num must be at least 1, got %d", c.NodeNum)
	}
	if c.PhaseTimeout < 0 {
		return errors.New("phase_timeout must not be negative")
	}
	switch c.CommitMode {
	case CommitUnconditional, CommitQuorum:
	default:
		return fmt.Errorf("unknown commit_mode %q", c.CommitMode)
	}
	for id, kind := range c.Faulty {
		if id < 0 || id >= c.NodeNum {
			return fmt.Errorf("faulty node%d is outside the node set of size %d", id, c.NodeNum)
		}
		// a silent node only gives up its slot when the phase deadline fires
		if c.PhaseTimeout == 0 && strings.EqualFold(strings.TrimSpace(kind), "silent") {
			return fmt.Errorf("faulty node%d is silent, which needs a positive phase_timeout", id)
		}
	}
	return nil
}

// LoadConfig loads configuration files by package viper.
func LoadConfig(configPrefix, configName string) (*Config, error) {
	viperConfig := viper.New()

	// for environment variables
	viperConfig.SetEnvPrefix(configPrefix)
	viperConfig.AutomaticEnv()
	replacer := strings.NewReplacer(".", "_")
	viperConfig.SetEnvKeyReplacer(replacer)
	viperConfig.SetConfigName(configName)
	viperConfig.AddConfigPath("./")

	def := Default()
	viperConfig.SetDefault("name", def.Name)
	viperConfig.SetDefault("node_num", def.NodeNum)
	viperConfig.SetDefault("log_level", def.LogLevel)
	viperConfig.SetDefault("identity", def.Identity)
	viperConfig.SetDefault("rsa_bits", def.RSABits)
	viperConfig.SetDefault("hash_algorithm", def.HashAlgorithm)
	viperConfig.SetDefault("commit_mode", def.CommitMode)
	viperConfig.SetDefault("phase_timeout", def.PhaseTimeout)

	err := viperConfig.ReadInConfig()
	if err != nil {
		return nil, err
	}

	conf := &Config{
		Name:          viperConfig.GetString("name"),
		NodeNum:       viperConfig.GetInt("node_num"),
		LogLevel:      viperConfig.GetInt("log_level"),
		Identity:      viperConfig.GetString("identity"),
		RSABits:       viperConfig.GetInt("rsa_bits"),
		HashAlgorithm: viperConfig.GetString("hash_algorithm"),
		CommitMode:    strings.ToLower(viperConfig.GetString("commit_mode")),
		PhaseTimeout:  viperConfig.GetDuration("phase_timeout"),
		Faulty:        make(map[int]string),
	}

	// faulty nodes are keyed by name, e.g. node2: byzantine
	for name, kind := range viperConfig.GetStringMapString("faulty") {
		if !strings.HasPrefix(name, "node") {
			return nil, fmt.Errorf("faulty entry %q is not a node name", name)
		}
		idStr := name[4:]
		id, err := strconv.Atoi(idStr)
		if err != nil {
			return nil, fmt.Errorf("faulty entry %q: %w", name, err)
		}
		conf.Faulty[id] = kind
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}
