// Root of command-line argument parsing.
// This file was based off the standard cobra template, see
// https://github.com/spf13/cobra
package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/serverlessresearch/gcrest/pkg/gcmgr"
	"github.com/spf13/cobra"
)

var cfgFile string

var requestTimeout time.Duration

var manager *gcmgr.Manager

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gcrest",
	Short: "Google Cloud REST client",
	Long: `Issue Firestore and Cloud Storage REST requests from the command line.
Credentials come from the config file or GCREST_ACCESS_TOKEN and
GOOGLE_CLOUD_PROJECT.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		mgrArgs := map[string]interface{}{}
		if cfgFile != "" {
			mgrArgs["config-file"] = cfgFile
		} else {
			// Environment variables alone are enough to run
			mgrArgs["allow-missing-config"] = true
		}

		var err error
		manager, err = gcmgr.NewManager(mgrArgs)
		if err != nil {
			fmt.Printf("Failed to initialize gcrest manager: %v\n", err)
			os.Exit(1)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		manager.Destroy()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if manager == nil || manager.Logger == nil {
			fmt.Printf("%v\n", err)
		} else {
			manager.Logger.Error(err)
		}
		os.Exit(1)
	}
}

func parseKeyValue(s string) map[string]string {

	if s == "" {
		return nil
	}

	result := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		keyValue := strings.SplitN(pair, "=", 2)
		if len(keyValue) == 2 {
			result[keyValue[0]] = keyValue[1]
		}
	}

	return result
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is configs/gcrest.yaml)")
	rootCmd.PersistentFlags().DurationVar(&requestTimeout, "timeout", 60*time.Second, "how long to wait for a request to settle")
}
