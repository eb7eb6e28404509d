// cmd/racebot/main.go drives a scripted player against a running server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := logrus.New()

	cmd := &cli.Command{
		Name:  "racebot",
		Usage: "create or join a typing race and play it at a fixed speed",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "ws://localhost:3001/ws", Usage: "server websocket endpoint", Sources: cli.EnvVars("RACEBOT_URL")},
			&cli.StringFlag{Name: "room", Usage: "room id to join; a new room is created when empty"},
			&cli.StringFlag{Name: "name", Value: "Racebot", Usage: "display name"},
			&cli.IntFlag{Name: "wpm", Value: 70, Usage: "typing speed in words per minute"},
			&cli.BoolFlag{Name: "verbose", Usage: "log every received event"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Bool("verbose") {
				logger.SetLevel(logrus.DebugLevel)
			}
			bot := &Bot{
				URL:    cmd.String("url"),
				RoomID: cmd.String("room"),
				Name:   cmd.String("name"),
				WPM:    cmd.Int("wpm"),
				Log:    logger.WithField("bot", cmd.String("name")),
			}
			standings, err := bot.Run(ctx)
			if err != nil {
				return err
			}
			for i, p := range standings {
				fmt.Printf("%d. %-20s %4d wpm\n", i+1, p.Name, p.WPM)
			}
			return nil
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.Run(ctx, os.Args); err != nil {
		logger.Fatal(err)
	}
}
