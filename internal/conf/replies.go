package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/devricklin/wechat-oa-bridge/internal/biz/usecase"
)

// RepliesConfig contains the passive reply texts loaded from YAML
type RepliesConfig struct {
	Welcome    string `yaml:"welcome"`
	EchoPrefix string `yaml:"echo_prefix"`
}

// LoadRepliesConfig loads reply texts from a YAML file. With an empty path
// the usual locations are tried; if none exists the defaults are used.
func LoadRepliesConfig(configPath string) (*RepliesConfig, error) {
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/replies.yaml",
			"/etc/wechat-oa-bridge/replies.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "replies.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	for _, p := range paths {
		if b, err := os.ReadFile(p); err == nil {
			data = b
			loadedPath = p
			break
		}
	}

	if data == nil {
		logrus.Debug("no replies.yaml found, using defaults")
		return DefaultRepliesConfig(), nil
	}

	logrus.WithField("path", loadedPath).Info("loading reply texts")

	var config RepliesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return DefaultRepliesConfig(), fmt.Errorf("failed to parse %s: %w", loadedPath, err)
	}

	config.fillDefaults()
	return &config, nil
}

func (c *RepliesConfig) fillDefaults() {
	defaults := DefaultRepliesConfig()
	if c.Welcome == "" {
		c.Welcome = defaults.Welcome
	}
	if c.EchoPrefix == "" {
		c.EchoPrefix = defaults.EchoPrefix
	}
}

// DefaultRepliesConfig returns the default reply texts
func DefaultRepliesConfig() *RepliesConfig {
	return &RepliesConfig{
		Welcome:    usecase.DefaultRouterConfig.Welcome,
		EchoPrefix: usecase.DefaultRouterConfig.EchoPrefix,
	}
}
