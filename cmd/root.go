package cmd

import (
	"fmt"
	"os"

	"smartobd/internal/cmd/root"
	"smartobd/internal/config"
	"smartobd/internal/obd"
	"smartobd/internal/obd/elm327"
	"smartobd/pkg/log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "smartobd",
	Short: "OBD-II scanner for ELM327 adapters",
	Long: `smartobd talks to an ELM327 adapter over a serial link: it reads live
values, trouble codes and the VIN, logs samples to CSV and exports
diagnostic reports. Without a subcommand it opens the live dashboard.`,
	Run: root.Run,
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default $HOME/.smartobd.yaml)")
	pf.String(config.KeyPort, "", "Serial port of the adapter (discovered when empty)")
	pf.Int(config.KeyBaud, elm327.DefaultBaud, "Baud rate for serial connection")
	pf.Duration(config.KeyTimeout, obd.DefaultTimeout, "Per command timeout")
	pf.Bool(config.KeyMock, false, "Use the simulated adapter")
	pf.Bool(config.KeyDebug, false, "Enable debug mode")
	pf.String(config.KeyDTCCatalog, "", "YAML file with extra trouble code descriptions")

	for _, key := range []string{
		config.KeyPort,
		config.KeyBaud,
		config.KeyTimeout,
		config.KeyMock,
		config.KeyDebug,
		config.KeyDTCCatalog,
	} {
		viper.BindPFlag(key, pf.Lookup(key))
	}

	// Set default values
	config.SetDefaults(viper.GetViper())

	addSamplingFlags(rootCmd, 2)
}

func initConfig() {
	if err := config.Init(viper.GetViper(), cfgFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogger() {
	log.InitLogger(viper.GetBool(config.KeyDebug))
	if f := viper.ConfigFileUsed(); f != "" {
		log.Debug("config file loaded", zap.String("path", f))
	}
}

func Execute() {
	defer log.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
