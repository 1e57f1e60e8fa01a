package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/go-i2p/go-i2p-endpoint/lib/util"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"github.com/spf13/viper"
)

var (
	// CfgFile overrides the default config file location when set.
	CfgFile string
	log     = logger.GetGoI2PLogger()
)

const GOI2P_BASE_DIR = ".go-i2p"

// InitConfig applies defaults, then loads the config file, writing one with
// the defaults when none exists yet.
func InitConfig() error {
	if CfgFile != "" {
		viper.SetConfigFile(CfgFile)
	} else {
		viper.AddConfigPath(BuildI2PDirPath())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	setDefaults()

	return handleConfigFile()
}

func setDefaults() {
	d := Defaults()
	viper.SetDefault("endpoint.min_forward_lifetime", d.MinForwardLifetime)
	viper.SetDefault("endpoint.max_garlic_depth", d.MaxGarlicDepth)
	viper.SetDefault("endpoint.garlic_tag_cache_size", d.GarlicTagCacheSize)
	viper.SetDefault("endpoint.inbound_pool_size", d.InboundPoolSize)
	viper.SetDefault("endpoint.duplicate_cache_size", d.DuplicateCacheSize)
	viper.SetDefault("endpoint.log_rate", d.LogRate)
	viper.SetDefault("endpoint.log_burst", d.LogBurst)
	viper.SetDefault("endpoint.ntp_servers", d.NTPServers)
	viper.SetDefault("endpoint.ntp_timeout", d.NTPTimeout)
	viper.SetDefault("endpoint.ntp_interval", d.NTPInterval)
}

func handleConfigFile() error {
	err := viper.ReadInConfig()
	if err == nil {
		log.Debugf("Using config file: %s", viper.ConfigFileUsed())
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if !errors.As(err, &notFound) {
		return oops.Wrapf(err, "error reading config file")
	}
	if CfgFile != "" {
		return oops.Wrapf(err, "config file %s is not found", CfgFile)
	}
	return createDefaultConfig(BuildI2PDirPath())
}

func createDefaultConfig(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return oops.Wrapf(err, "could not create config directory %s", dir)
	}
	path := filepath.Join(dir, "config.yaml")
	if err := viper.WriteConfigAs(path); err != nil {
		return oops.Wrapf(err, "could not write default config file")
	}
	log.Debugf("Created default configuration at: %s", path)
	return nil
}

// BuildI2PDirPath returns $HOME/.go-i2p.
func BuildI2PDirPath() string {
	return filepath.Join(util.UserHome(), GOI2P_BASE_DIR)
}
