package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"

	"github.com/autopeer-io/assistcart/pkg/log"
)

const configFlagName = "config"

// addConfigFlag registers --config and prepares env lookups with the given prefix,
// e.g. ASSISTCART_SERIAL_PORT for serial.port.
func (a *App) addConfigFlag(fs *pflag.FlagSet) {
	fs.StringVarP(&a.cfgFile, configFlagName, "c", a.cfgFile,
		"Read configuration from the specified file, support JSON, TOML, YAML formats.")

	a.v.AutomaticEnv()
	a.v.SetEnvPrefix(strings.ReplaceAll(strings.ToUpper(a.basename), "-", "_"))
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// loadConfig merges flags, env and the optional config file into the options.
func (a *App) loadConfig(fs *pflag.FlagSet) error {
	if err := a.v.BindPFlags(fs); err != nil {
		return err
	}

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read configuration file(%s): %w", a.cfgFile, err)
		}
	}

	if err := a.v.Unmarshal(a.options); err != nil {
		return fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return nil
}

// watchConfig applies log level changes from the config file without a restart.
// Every other setting needs a restart.
func (a *App) watchConfig() {
	if a.cfgFile == "" || !a.watch {
		return
	}
	if _, err := os.Stat(a.cfgFile); err != nil {
		return
	}

	a.v.OnConfigChange(func(e fsnotify.Event) {
		level := a.v.GetString("log.level")
		log.SetLevel(level)
		log.Info("Configuration file changed", "name", e.Name, "op", e.Op.String(), "log.level", level)
	})
	a.v.WatchConfig()
}
