package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tamsal/storefront/internal/domain/entities"
	"github.com/tamsal/storefront/internal/domain/usecases"
)

func newChatCommand(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the TamSal consultant",
		Long:  "Interactive consultant chat. Commands: /reset, /lang <code>, /quit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), get(), cmd.OutOrStdout())
		},
	}
}

func runChat(ctx context.Context, a *app, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".tamsal-history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           readline.NewCancelableStdin(os.Stdin),
		Stdout:          out,
	})
	if err != nil {
		return fmt.Errorf("initializing readline: %w", err)
	}
	defer rl.Close()

	lang := a.cfg.Language()
	conv := usecases.NewConversation(lang)
	printMessage(out, conv.Messages()[0])

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				return nil
			}
			continue
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "exit":
			return nil
		case line == "/reset":
			conv.Reset(lang)
			printMessage(out, conv.Messages()[0])
			continue
		case strings.HasPrefix(line, "/lang"):
			next, err := a.language(strings.TrimSpace(strings.TrimPrefix(line, "/lang")))
			if err != nil {
				fmt.Fprintln(out, red(err.Error()))
				continue
			}
			lang = next
			conv.Reset(lang)
			printMessage(out, conv.Messages()[0])
			continue
		}

		outcome := a.chat.ReplyOutcome(ctx, usecases.ChatRequest{
			Message:  line,
			History:  conv.History(),
			Language: lang,
		})
		if outcome.Failure != usecases.FailureNone {
			a.log.WithFields(logrus.Fields{"failure": outcome.Failure.Label()}).WithError(outcome.Err).Debug("chat reply failed")
		}
		conv.Record(line, outcome.Reply)
		printMessage(out, entities.ChatMessage{Role: entities.RoleAssistant, Text: outcome.Reply.Text, Citations: outcome.Reply.Citations})
	}
}

func printMessage(out io.Writer, msg entities.ChatMessage) {
	fmt.Fprintf(out, "\n%s %s\n", green("TamSal AI:"), msg.Text)
	for _, c := range msg.Citations {
		fmt.Fprintf(out, "  %s %s %s\n", gray("•"), c.DisplayTitle(), cyan(c.URI))
	}
	fmt.Fprintln(out)
}
