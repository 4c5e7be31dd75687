package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// WatchLogLevel re-reads logger.level whenever the config file is written
// and hands it to apply.
func WatchLogLevel(apply func(level string)) {
	viper.OnConfigChange(func(in fsnotify.Event) {
		if in.Op&fsnotify.Write == 0 {
			return
		}
		apply(viper.GetString("logger.level"))
	})
	viper.WatchConfig()
}
