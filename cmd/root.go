package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "automagik-omni",
	Short: "Routes WhatsApp and Discord messages through a tenant's AI agent",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("command failed")
		os.Exit(1)
	}
}
