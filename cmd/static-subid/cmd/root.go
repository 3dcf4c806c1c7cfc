/*
Copyright 2024 The static-subid Authors

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

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/containertools/static-subid/pkg/assign"
	"github.com/containertools/static-subid/pkg/config"
	"github.com/containertools/static-subid/pkg/logging"
	"github.com/containertools/static-subid/pkg/subid"
	"github.com/containertools/static-subid/pkg/system"
	"github.com/containertools/static-subid/pkg/users"
)

var (
	opts      = &config.AssignOptions{}
	logLevel  string
	logFormat string
)

func init() {
	RootCmd.PersistentFlags().StringVarP(&logLevel, "verbosity", "v", logging.DefaultLevel, "Log level (trace, debug, info, warn, error, fatal, panic)")
	RootCmd.PersistentFlags().StringVarP(&logFormat, "log-format", "", logging.FormatColor, "Log format (text, color, json)")
	addAssignOptionsFlags(RootCmd.PersistentFlags())
}

// RootCmd is the static-subid command that is run
var RootCmd = &cobra.Command{
	Use:   "static-subid [flags] <username|uid>",
	Short: "Assign static deterministic subordinate uid/gid ranges to users",
	Long: `static-subid assigns each user a deterministic block of subordinate
uids/gids derived from the primary uid, so unprivileged containers see the
same id mappings on every machine that shares the account database.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Configure(logLevel, logFormat); err != nil {
			return err
		}
		if opts.DumpConfig {
			return nil
		}
		if len(args) == 0 {
			return errors.New("missing username or uid argument")
		}
		opts.User = args[0]
		if !opts.Subuid && !opts.Subgid {
			return errors.New("must specify --subuid and/or --subgid")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		sys := system.New()

		if opts.DumpConfig {
			cfg, err := config.NewLoader(sys).Load(config.DefaultSources())
			if err != nil {
				exit(errors.Wrap(err, "error loading configuration"))
			}
			fmt.Println("Parsed configuration (including defaults):")
			cfg.Dump(os.Stdout, "  ")
			return
		}

		user, err := users.NewResolver(sys).Resolve(opts.User)
		if err != nil {
			exit(errors.Wrap(err, "error resolving user"))
		}
		cfg, err := config.NewLoader(sys).Load(config.DefaultSources())
		if err != nil {
			exit(errors.Wrap(err, "error loading configuration"))
		}
		store := subid.NewShadowTools(sys, opts.Noop)
		if err := assign.DoAssign(cfg, store, user, requestedClasses(opts)); err != nil {
			exit(err)
		}
	},
}

// addAssignOptionsFlags configures opts
func addAssignOptionsFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&opts.Subuid, "subuid", "u", false, "Assign subordinate uids")
	fs.BoolVarP(&opts.Subgid, "subgid", "g", false, "Assign subordinate gids")
	fs.BoolVarP(&opts.Noop, "noop", "n", false, "Show what would be done without executing")
	fs.BoolVarP(&opts.DumpConfig, "dump-config", "", false, "Print the resolved configuration and exit")
}

func requestedClasses(opts *config.AssignOptions) []subid.Class {
	var classes []subid.Class
	if opts.Subuid {
		classes = append(classes, subid.ClassUID)
	}
	if opts.Subgid {
		classes = append(classes, subid.ClassGID)
	}
	return classes
}

func exit(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
