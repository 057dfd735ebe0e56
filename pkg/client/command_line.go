package client

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func AddJobDashApiConnectionCommandlineArgs(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().String("jobDashUrl", "http://localhost:8080", "specify jobdash server url")
	_ = viper.BindPFlag("jobDashUrl", rootCmd.PersistentFlags().Lookup("jobDashUrl"))
}

// LoadCommandlineArgsFromConfigFile reads jobdash-defaults.yaml next to the executable, if present, then
// cfgFile or, when that is empty, ~/.jobdash.yaml.
func LoadCommandlineArgsFromConfigFile(cfgFile string) error {
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("[LoadCommandlineArgsFromConfigFile] error finding executable path: %s", err)
	}
	viper.SetConfigFile(filepath.Join(filepath.Dir(exePath), "jobdash-defaults.yaml"))
	if err := viper.ReadInConfig(); err != nil {
		switch err.(type) {
		case viper.ConfigFileNotFoundError, *os.PathError:
			// No default config is fine
		default:
			return fmt.Errorf("[LoadCommandlineArgsFromConfigFile] error reading config file %s: %s", viper.ConfigFileUsed(), err)
		}
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return fmt.Errorf("[LoadCommandlineArgsFromConfigFile] error getting user home directory: %s", err)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".jobdash")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("JOBDASH")
	viper.AutomaticEnv()

	if err := viper.MergeInConfig(); err != nil {
		switch err.(type) {
		case viper.ConfigFileNotFoundError:
			// Users don't have to have a ~/.jobdash.yaml
		default:
			return fmt.Errorf("[LoadCommandlineArgsFromConfigFile] error reading config file %s: %s", viper.ConfigFileUsed(), err)
		}
	}
	return nil
}

func ExtractCommandlineJobDashApiConnectionDetails() *ApiConnectionDetails {
	apiConnectionDetails := &ApiConnectionDetails{}
	_ = viper.Unmarshal(apiConnectionDetails)
	return apiConnectionDetails
}
