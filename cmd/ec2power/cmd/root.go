/*
Copyright © 2025 Mulga Defense Corporation

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"fmt"
	"os"

	"github.com/mulgadc/ec2power/ec2power/backend"
	"github.com/mulgadc/ec2power/ec2power/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newController is swapped out in tests
var newController = backend.NewController

// cli carries state shared by the subcommands of one root command
type cli struct {
	v         *viper.Viper
	cfgFile   string
	appConfig *config.Config
}

// NewRootCmd builds the ec2power command tree with its own viper instance
func NewRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "ec2power",
		Short: "ec2power - start and stop a single EC2 instance",
		Long: `ec2power runs the same start/stop handlers that are deployed as Lambda
functions, for manual invocation. The target instance and lifecycle API can be
configured via config file, environment variables, or command line flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			c.appConfig, err = config.Load(c.v, c.cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			backend.SetupLogging(cmd.ErrOrStderr(), c.appConfig.Debug)
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", os.Getenv(backend.ConfigPathEnv), "config file (TOML)")

	// Each flag overrides the config file and env for its key
	bindings := []struct {
		flag, key, usage string
	}{
		{"instance-id", "instance_id", "target instance ID (default $INSTANCE_ID)"},
		{"backend", "backend", "lifecycle API: ec2 or nats"},
		{"region", "region", "AWS region"},
		{"profile", "profile", "AWS shared config profile"},
		{"endpoint", "endpoint", "EC2 endpoint URL, e.g. a Hive AWS gateway"},
		{"ca-bundle", "ca_bundle", "PEM CA bundle used to verify a custom endpoint"},
		{"nats-host", "nats.host", "NATS server host"},
		{"nats-token", "nats.token", "NATS authentication token"},
	}
	for _, b := range bindings {
		flags.String(b.flag, "", b.usage)
		c.v.BindPFlag(b.key, flags.Lookup(b.flag))
	}

	flags.Bool("insecure", false, "skip TLS verification for a custom endpoint")
	c.v.BindPFlag("insecure", flags.Lookup("insecure"))

	flags.Bool("debug", false, "enable debug logging")
	c.v.BindPFlag("debug", flags.Lookup("debug"))

	rootCmd.AddCommand(c.newStartCmd(), c.newStopCmd(), c.newConfigCmd())

	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
