package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/school-notify/internal/app"
	"github.com/school-notify/internal/application/dispatch"
	"github.com/school-notify/internal/config"
	"github.com/school-notify/internal/domain"
	"github.com/school-notify/internal/streamclient"
	"github.com/urfave/cli/v2"
)

func openApp(c *cli.Context) (*app.App, error) {
	return app.New(c.Context, config.Load(), slog.Default())
}

func processDueCommand() *cli.Command {
	return &cli.Command{
		Name:  "process-due",
		Usage: "run one scheduler pass over due scheduled notifications",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 100, Usage: "maximum entries to claim"},
		},
		Action: func(c *cli.Context) error {
			a, err := openApp(c)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Engine.ProcessDue(c.Context, c.Int("limit"))
			if err != nil {
				return err
			}
			return printJSON(c, report)
		},
	}
}

func sendTestCommand() *cli.Command {
	return &cli.Command{
		Name:      "send-test",
		Usage:     "dispatch a notification immediately",
		ArgsUsage: "RECIPIENT_ID...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Required: true, Usage: "notification type, e.g. exam.reminder"},
			&cli.StringSliceFlag{Name: "channel", Usage: "override the type's channels (repeatable)"},
			&cli.StringFlag{Name: "title", Value: "Test notification"},
			&cli.StringFlag{Name: "message", Value: "This is a test."},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.Exit("at least one recipient id is required", 2)
			}
			channels, err := domain.ParseChannels(c.StringSlice("channel"))
			if err != nil {
				return err
			}

			a, err := openApp(c)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Dispatcher.Send(c.Context, dispatch.Request{
				Type:       c.String("type"),
				Recipients: c.Args().Slice(),
				Channels:   channels,
				Data: map[string]any{
					"title":   c.String("title"),
					"message": c.String("message"),
				},
			})
			if err != nil {
				return err
			}
			return printJSON(c, res)
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "follow a user's inbox over the live stream until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", EnvVars: []string{"NOTIFY_URL"}},
			&cli.StringFlag{Name: "token", Required: true, EnvVars: []string{"NOTIFY_TOKEN"}},
			&cli.BoolFlag{Name: "mark-read", Usage: "mark every received notification as read"},
		},
		Action: func(c *cli.Context) error {
			transport := streamclient.NewHTTPTransport(strings.TrimRight(c.String("url"), "/"), c.String("token"), http.DefaultClient)
			client := streamclient.New(transport, streamclient.Config{Logger: slog.Default()})

			out := c.App.Writer
			unsubscribe := client.SubscribeNew(func(r domain.NotificationRecord) {
				fmt.Fprintf(out, "%s  %-20s %s\n", r.CreatedAt.Format("15:04:05"), r.Type, r.Data["title"])
				if !c.Bool("mark-read") {
					return
				}
				if err := client.MarkAsRead(c.Context, r.ID); err != nil {
					slog.Warn("mark read", "id", r.ID, "err", err)
				}
			})
			defer unsubscribe()

			client.Initialize(c.Context)
			defer client.Cleanup()

			fmt.Fprintf(out, "watching, %d unread\n", client.UnreadCount())
			<-c.Context.Done()
			return nil
		},
	}
}
