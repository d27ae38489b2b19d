package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	// Autoloads .env file to supply environment variables
	_ "github.com/joho/godotenv/autoload"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/andrew-thompson-55/trainer-2.0/internal/calendarevent"
	"github.com/andrew-thompson-55/trainer-2.0/internal/client"
	"github.com/andrew-thompson-55/trainer-2.0/internal/config"
	"github.com/andrew-thompson-55/trainer-2.0/internal/connectivity"
	"github.com/andrew-thompson-55/trainer-2.0/internal/logger"
	"github.com/andrew-thompson-55/trainer-2.0/internal/storage"
	"github.com/andrew-thompson-55/trainer-2.0/internal/trainer"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx := context.Background()
	cfg := config.Load()
	log := logger.NewLogger()

	api, err := buildAPI(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("unable to initialise")
	}

	switch os.Args[1] {
	case "list":
		listWorkouts(ctx, cfg, api)
	case "sync":
		count := api.ProcessOfflineQueue(ctx)
		fmt.Printf("synced %d updates\n", count)
	case "log":
		date := time.Now().Format("2006-01-02")
		if len(os.Args) > 2 {
			date = os.Args[2]
		}
		showDailyLog(ctx, api, date)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: trainer <list|sync|log [date]>")
}

func buildAPI(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*trainer.API, error) {
	var store storage.Adapter
	var err error
	if cfg.RedisURL != "" {
		store, err = storage.NewRedisStore(ctx, cfg.RedisURL)
	} else {
		store, err = storage.NewGormStore(cfg.StoragePath)
	}
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}

	baseURL, err := url.Parse(cfg.APIBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing API base URL: %w", err)
	}

	var hc *http.Client
	if cfg.APIToken != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIToken})
		hc = oauth2.NewClient(ctx, ts)
		hc.Timeout = cfg.RequestTimeout
	} else {
		hc = &http.Client{Timeout: cfg.RequestTimeout}
	}

	oracle := connectivity.Probe{Addr: probeAddr(baseURL), Timeout: 2 * time.Second}
	return trainer.New(store, client.NewClient(baseURL, hc), oracle, log), nil
}

func probeAddr(u *url.URL) string {
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		if u.Scheme == "http" {
			port = "80"
		} else {
			port = "443"
		}
	}
	return net.JoinHostPort(host, port)
}

func listWorkouts(ctx context.Context, cfg config.Config, api *trainer.API) {
	var cal calendarevent.EventGetter
	if cfg.CalendarFeedURL != "" {
		cal = calendarevent.NewService(http.DefaultClient, cfg.CalendarFeedURL)
	}

	for _, w := range api.GetWorkouts(ctx, nil) {
		line := fmt.Sprintf("%s  %-10s %-10s %s", w.StartTime.Format("2006-01-02 15:04"), w.ActivityType, w.Status, w.Title)
		if w.Offline {
			line += " (pending sync)"
		}
		if cal != nil {
			if event, err := cal.EventFor(ctx, w.StartTime); err == nil && event != nil {
				line += fmt.Sprintf(" [%s]", event.Summary)
			}
		}
		fmt.Println(line)
	}

	if pending := api.QueueLen(ctx); pending > 0 {
		fmt.Printf("%d mutations pending sync\n", pending)
	}
}

func showDailyLog(ctx context.Context, api *trainer.API, date string) {
	entry := api.GetDailyLog(ctx, date)
	if entry == nil {
		fmt.Printf("no log for %s\n", date)
		return
	}

	out, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
