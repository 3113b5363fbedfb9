// Package chat implements an interactive terminal chat with the assistant.
package chat

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/echolens-ai/echolens/internal/app"
	chatsvc "github.com/echolens-ai/echolens/internal/chat"
	"github.com/echolens-ai/echolens/internal/conf"
)

// Command creates the chat command.
func Command(settings *conf.Settings) *cobra.Command {
	var emotion string

	cmd := &cobra.Command{
		Use:   "chat [message...]",
		Short: "Chat with the assistant in the terminal",
		Long: "With a message argument, print a single reply. Otherwise read messages from standard input " +
			"and print the assistant replies until an empty line or EOF.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context(), settings)
			if err != nil {
				return err
			}
			defer a.Close()

			var emo *chatsvc.EmotionContext
			if emotion != "" {
				emo = &chatsvc.EmotionContext{Emotion: strings.ToLower(emotion)}
			}

			out := cmd.OutOrStdout()
			sessionID := ""
			reply := func(msg string) error {
				resp, err := a.Chat.Reply(cmd.Context(), chatsvc.Request{
					Message:   msg,
					Context:   emo,
					SessionID: sessionID,
				})
				if err != nil {
					return err
				}
				sessionID = resp.SessionID
				fmt.Fprintln(out, resp.Response)
				return nil
			}

			if msg := strings.TrimSpace(strings.Join(args, " ")); msg != "" {
				return reply(msg)
			}

			in := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !in.Scan() {
					break
				}
				msg := strings.TrimSpace(in.Text())
				if msg == "" {
					break
				}
				if err := reply(msg); err != nil {
					return err
				}
			}
			return in.Err()
		},
	}

	cmd.Flags().StringVar(&emotion, "emotion", "", "Current emotion passed to the assistant as context")
	return cmd
}
