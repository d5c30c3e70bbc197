package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	configx "github.com/tanpawarit/clinical-intake-orchestrator/pkg/config"
	logx "github.com/tanpawarit/clinical-intake-orchestrator/pkg/logger"
)

func Execute(ctx context.Context) error {
	return newRootCmd(wireApp).ExecuteContext(ctx)
}

func newRootCmd(factory appFactory) *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "clinical-intake",
		Short:         "Clinical intake orchestrator: route patient messages to a medical agent",
		Long:          "clinical-intake runs a conversational front door for clinical intake. Medical messages go to a tool-using specialist agent that extracts patient details and drafts a diagnosis; everything else gets a polite redirect.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(envFile) == "" {
				return nil
			}
			configx.SetEnvFile(envFile)
			conf, err := configx.New[logx.Config]("LOG")
			if err != nil {
				return err
			}
			logx.InitTo(cmd.ErrOrStderr(), *conf)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "dotenv file to load before reading configuration")

	load := lazyApp(factory)
	rootCmd.AddCommand(
		newChatCmd(load),
		newExtractCmd(load),
		newDiagnoseCmd(load),
		newValidateCmd(load),
		newTranscribeCmd(load),
		newStatusCmd(load),
	)

	return rootCmd
}
