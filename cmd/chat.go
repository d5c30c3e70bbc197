package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	contractx "github.com/tanpawarit/clinical-intake-orchestrator/agent/contract"
)

const chatHelp = "commands: /sessions, /delete <id>, /status, /new, /audio <url|file>, /quit"

func newChatCmd(load appLoader) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}
			r := &repl{
				svc:       a.service,
				out:       cmd.OutOrStdout(),
				errOut:    cmd.ErrOrStderr(),
				sessionID: strings.TrimSpace(sessionID),
			}
			return r.run(cmd.Context(), cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "resume or name a session")

	return cmd
}

type repl struct {
	svc       service
	out       io.Writer
	errOut    io.Writer
	sessionID string
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	_, _ = fmt.Fprintln(r.errOut, chatHelp)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		_, _ = fmt.Fprint(r.errOut, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		quit, err := r.handle(ctx, line)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			_, _ = fmt.Fprintf(r.errOut, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func (r *repl) handle(ctx context.Context, line string) (bool, error) {
	if !strings.HasPrefix(line, "/") {
		resp, err := r.svc.HandleMessage(ctx, r.sessionID, line)
		if err != nil {
			return false, err
		}
		r.printReply(resp)
		return false, nil
	}

	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch command {
	case "/quit", "/exit":
		return true, nil
	case "/new":
		r.sessionID = ""
		_, _ = fmt.Fprintln(r.out, "started a new session")
	case "/status":
		status, err := r.svc.Status(ctx)
		if err != nil {
			return false, err
		}
		return false, writeJSON(r.out, status)
	case "/sessions":
		return false, r.listSessions(ctx)
	case "/delete":
		if arg == "" {
			return false, errors.New("usage: /delete <id>")
		}
		deleted, err := r.svc.DeleteSession(ctx, arg)
		if err != nil {
			return false, err
		}
		if !deleted {
			_, _ = fmt.Fprintf(r.out, "session %s not found\n", arg)
			return false, nil
		}
		if arg == r.sessionID {
			r.sessionID = ""
		}
		_, _ = fmt.Fprintf(r.out, "session %s deleted\n", arg)
	case "/audio":
		if arg == "" {
			return false, errors.New("usage: /audio <url|file>")
		}
		var resp contractx.ChatResponse
		var err error
		if isRemote(arg) {
			resp, err = r.svc.HandleAudio(ctx, r.sessionID, arg)
		} else {
			resp, err = r.svc.HandleAudioFile(ctx, r.sessionID, arg)
		}
		if err != nil {
			return false, err
		}
		r.printReply(resp)
	default:
		return false, fmt.Errorf("unknown command %q; %s", command, chatHelp)
	}
	return false, nil
}

func (r *repl) printReply(resp contractx.ChatResponse) {
	r.sessionID = resp.SessionID
	_, _ = fmt.Fprintf(r.out, "[%s] %s\n", resp.AgentUsed, resp.Response)
	if len(resp.ToolsInvoked) > 0 {
		names := make([]string, len(resp.ToolsInvoked))
		for i, t := range resp.ToolsInvoked {
			names[i] = string(t)
		}
		_, _ = fmt.Fprintf(r.errOut, "tools: %s\n", strings.Join(names, ", "))
	}
	if resp.Degraded {
		_, _ = fmt.Fprintf(r.errOut, "degraded: %s\n", strings.Join(resp.Errors, "; "))
	}
}

func (r *repl) listSessions(ctx context.Context) error {
	sessions, err := r.svc.ListSessions(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		_, _ = fmt.Fprintln(r.out, "no active sessions")
		return nil
	}
	for _, id := range slices.Sorted(maps.Keys(sessions)) {
		s := sessions[id]
		marker := " "
		if id == r.sessionID {
			marker = "*"
		}
		_, _ = fmt.Fprintf(r.out, "%s %s\t%d messages\t%s\tlast active %s\n",
			marker, id, s.TurnCount, s.LastAgent, humanize.Time(s.LastActivity))
	}
	return nil
}

func isRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
