package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/lpspool/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample lpspool configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/lpspool/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  lpspool init

  # Initialize with custom path
  lpspool init --config /etc/lpspool/config.yaml

  # Force overwrite existing config
  lpspool init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	var configPath string
	var err error

	if configFile != "" {
		// Use custom path
		err = config.InitConfigToPath(configFile, initForce)
		configPath = configFile
	} else {
		// Use default path
		configPath, err = config.InitConfig(initForce)
	}

	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Create your queue directories under the spool dir")
	fmt.Println("  3. Start the server with: lpspool start")
	fmt.Printf("  4. Or specify custom config: lpspool start --config %s\n", configPath)

	return nil
}
