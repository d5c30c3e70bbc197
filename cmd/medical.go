package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

func newExtractCmd(load appLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <text>",
		Short: "Extract structured patient information from free text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}
			extraction, err := a.service.Extract(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), extraction)
		},
	}
}

func newDiagnoseCmd(load appLoader) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Draft a diagnosis from an extraction read from a file or stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			extraction, err := readExtraction(cmd, file)
			if err != nil {
				return err
			}
			a, err := load(cmd)
			if err != nil {
				return err
			}
			diagnosis, err := a.service.Diagnose(cmd.Context(), extraction)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), diagnosis)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "extraction JSON file (default stdin)")

	return cmd
}

func newValidateCmd(load appLoader) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check an extraction for completeness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			extraction, err := readExtraction(cmd, file)
			if err != nil {
				return err
			}
			a, err := load(cmd)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), a.service.Validate(extraction))
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "extraction JSON file (default stdin)")

	return cmd
}
