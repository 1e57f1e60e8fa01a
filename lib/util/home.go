package util

import (
	"os"

	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

// UserHome returns the current user's home directory, falling back to
// $HOME, then %USERPROFILE%, then the working directory.
func UserHome() string {
	home, err := os.UserHomeDir()
	if err == nil {
		return home
	}
	for _, env := range []string{"HOME", "USERPROFILE"} {
		if home := os.Getenv(env); home != "" {
			log.WithError(err).WithField("env", env).Warn("os.UserHomeDir failed, using environment")
			return home
		}
	}
	if wd, wdErr := os.Getwd(); wdErr == nil {
		log.WithError(err).Warn("no home directory, using working directory")
		return wd
	}
	panic("unable to determine home directory; set $HOME")
}
