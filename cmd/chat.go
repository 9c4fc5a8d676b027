package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	logx "github.com/Chative-querybot/server/pkg/logger"
)

var noLog bool

type exchange struct {
	user string
	bot  string
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `The chat command starts an interactive session on the terminal. Responses are
streamed as they are produced. Type 'exit' to end the session; the conversation log is
printed on exit unless --no-log is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(envFile)
		if err != nil {
			return err
		}
		cfg.initLogger()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := buildApp(ctx, cfg)
		if err != nil {
			pterm.Println("❌ Failed to start the chat session")
			return err
		}
		defer a.Close()

		sessionID := uuid.NewString()
		transcript := runChat(ctx, a, sessionID, bufio.NewScanner(os.Stdin))

		if !noLog {
			printTranscript(transcript)
		}
		return nil
	},
}

func init() {
	chatCmd.Flags().BoolVar(&noLog, "no-log", false, "Do not print the conversation log on exit")
}

func runChat(ctx context.Context, a *app, sessionID string, in *bufio.Scanner) []exchange {
	var transcript []exchange
	youStyle := pterm.NewStyle(pterm.FgLightCyan, pterm.Bold)
	botStyle := pterm.NewStyle(pterm.FgGreen, pterm.Bold)
	hintStyle := pterm.NewStyle(pterm.FgGray, pterm.Italic)

	pterm.Println("Welcome to the Database Chatbot! Type 'exit' to quit.")
	for {
		pterm.Print(youStyle.Sprint("You: "))
		if !in.Scan() {
			pterm.Println()
			endSession(ctx, a, sessionID)
			return transcript
		}
		line := in.Text()
		if strings.EqualFold(strings.TrimSpace(line), "exit") {
			endSession(ctx, a, sessionID)
			pterm.Println("Goodbye!")
			return transcript
		}

		pterm.Print(botStyle.Sprint("Bot: "))
		response := a.bot.SubmitStream(ctx, sessionID, line, func(fragment string) {
			pterm.Print(fragment)
		})
		pterm.Println()
		transcript = append(transcript, exchange{user: line, bot: response})

		if table := a.bot.CurrentTable(ctx, sessionID); table != "" {
			pterm.Println(hintStyle.Sprint(fmt.Sprintf("(Hint: You are currently working with the table: %s)", table)))
		}
		pterm.Println()

		if ctx.Err() != nil {
			endSession(context.WithoutCancel(ctx), a, sessionID)
			return transcript
		}
	}
}

// endSession drops the session state so nothing outlives the chat.
func endSession(ctx context.Context, a *app, sessionID string) {
	if err := a.bot.ResetSession(ctx, sessionID); err != nil {
		logx.Session(sessionID).Warn().Err(err).Msg("Failed to reset session on exit")
	}
}

func printTranscript(transcript []exchange) {
	pterm.Println()
	pterm.DefaultSection.Println("Conversation Log")
	for _, e := range transcript {
		pterm.Printf("You: %s\nBot: %s\n\n", e.user, e.bot)
	}
}
