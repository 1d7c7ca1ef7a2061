// Command chat runs the booking assistant in a terminal against in-memory
// storage. Useful for walking the dialog without the web client.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"

	"github.com/wolfman30/dental-assistant/cmd/mainconfig"
	"github.com/wolfman30/dental-assistant/internal/app/bootstrap"
	"github.com/wolfman30/dental-assistant/internal/appointments"
	appconfig "github.com/wolfman30/dental-assistant/internal/config"
	"github.com/wolfman30/dental-assistant/internal/conversation"
	"github.com/wolfman30/dental-assistant/internal/dialog"
	"github.com/wolfman30/dental-assistant/pkg/logging"
)

const help = `Escriba su mensaje y pulse Enter.
  /fecha AAAA-MM-DD  elegir un día
  /hora HH:MM        elegir una hora
  /reiniciar         empezar de nuevo
  /salir             terminar`

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	// Logs go to stderr so they do not interleave with the conversation.
	logger := logging.NewWithWriter(cfg.LogLevel, "text", os.Stderr)

	ctx := context.Background()
	chat, cleanup, err := newChat(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start chat", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := repl(ctx, chat, os.Stdin, os.Stdout); err != nil {
		logger.Error("chat ended with error", "error", err)
		os.Exit(1)
	}
}

func newChat(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*conversation.Service, func(), error) {
	profiles, profile := bootstrap.BuildProfileStore(nil, cfg)
	var awsCfg *aws.Config
	if cfg.BedrockModelID != "" {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		awsCfg = &loaded
	}
	responder, cleanup, err := bootstrap.BuildResponder(ctx, cfg, awsCfg, profiles, logger)
	if err != nil {
		return nil, nil, err
	}
	core, err := bootstrap.BuildCore(bootstrap.CoreDeps{
		Profile:   profile,
		Hours:     bootstrap.BuildHours(cfg),
		Store:     appointments.NewMemoryStore(),
		Responder: responder,
		Logger:    logger,
	}, cfg.BookingHorizonDays)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	sessions := conversation.NewMemorySessionStore(cfg.SessionTTL)
	return conversation.NewService(core.Engine, sessions, logger), cleanup, nil
}

func repl(ctx context.Context, chat *conversation.Service, in io.Reader, out io.Writer) error {
	sess, err := chat.StartSession(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, help)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		req := conversation.MessageRequest{SessionID: sess.ID, Channel: conversation.ChannelTerminal}
		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case "/salir":
			return nil
		case "/reiniciar":
			if err := chat.Reset(ctx, sess.ID); err != nil {
				return err
			}
			if sess, err = chat.StartSession(ctx); err != nil {
				return err
			}
			fmt.Fprintln(out, "Conversación reiniciada.")
			continue
		case "/fecha":
			req.SideChannel = &dialog.SideChannel{Date: strings.TrimSpace(arg)}
		case "/hora":
			req.SideChannel = &dialog.SideChannel{Time: strings.TrimSpace(arg)}
		default:
			req.Message = line
		}

		resp, err := chat.ProcessMessage(ctx, req)
		if err != nil {
			if dialog.IsInputError(err) {
				fmt.Fprintf(out, "(entrada no válida: %v)\n", err)
				continue
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		render(out, resp.Outcome)
	}
}

func render(out io.Writer, o *dialog.Outcome) {
	fmt.Fprintln(out, o.Text)
	if len(o.AvailableDays) > 0 {
		labels := make([]string, 0, len(o.AvailableDays))
		for _, d := range o.AvailableDays {
			labels = append(labels, fmt.Sprintf("%s (%s)", d.Date, d.Weekday))
		}
		fmt.Fprintf(out, "  Días: %s\n", strings.Join(labels, ", "))
	}
	if len(o.AvailableSlots) > 0 {
		fmt.Fprintf(out, "  Horas: %s\n", strings.Join(o.AvailableSlots, ", "))
	}
	if o.AppointmentID != 0 {
		fmt.Fprintf(out, "  [cita #%d registrada]\n", o.AppointmentID)
	}
}
