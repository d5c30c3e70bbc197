package cmd

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tanpawarit/clinical-intake-orchestrator/agent/agents/supervisor"
	contractx "github.com/tanpawarit/clinical-intake-orchestrator/agent/contract"
)

var errAudioSource = errors.New("pass either an audio url or --file, not both")

func newTranscribeCmd(load appLoader) *cobra.Command {
	var (
		file      string
		chat      bool
		sessionID string
	)

	cmd := &cobra.Command{
		Use:   "transcribe [url]",
		Short: "Transcribe an audio URL or local file, optionally handling it as a chat message",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file = strings.TrimSpace(file)
			if (len(args) == 1) == (file != "") {
				return errAudioSource
			}
			a, err := load(cmd)
			if err != nil {
				return err
			}

			if chat {
				var resp contractx.ChatResponse
				if file != "" {
					resp, err = a.service.HandleAudioFile(cmd.Context(), sessionID, file)
				} else {
					resp, err = a.service.HandleAudio(cmd.Context(), sessionID, args[0])
				}
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), resp)
			}

			if a.audio == nil {
				return supervisor.ErrAudioNotConfigured
			}
			transcribe := func(ctx context.Context) (string, error) {
				if file != "" {
					return a.audio.TranscribeFile(ctx, file)
				}
				return a.audio.TranscribeURL(ctx, args[0])
			}
			text, err := transcribe(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]string{"text": text})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "local audio file to transcribe instead of a url")
	cmd.Flags().BoolVar(&chat, "chat", false, "send the transcript through the chat pipeline")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id used with --chat")

	return cmd
}
