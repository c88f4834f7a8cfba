// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-authd.
//
// go-authd is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package cli implements the authd command line interface.
package cli

import (
	"github.com/spf13/cobra"
)

var configFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "authd",
	Short: "go-authd - web application authentication service",
	Long: `go-authd serves a web application authentication API with
password accounts, email verification, password reset, JWT sessions
and WebAuthn passkeys.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is ./authd.yaml or /etc/authd/authd.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
