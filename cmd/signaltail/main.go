// Command signaltail consumes signalhub channels and prints each signal as
// a JSON line.
//
// Usage:
//
//	signaltail -url http://localhost:3000 -channels a,c -mode ws
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	ossignal "os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rickgao/signalhub/internal/api"
	"github.com/rickgao/signalhub/internal/connection"
	"github.com/rickgao/signalhub/internal/poller"
	"github.com/rickgao/signalhub/internal/signal"
	"github.com/rickgao/signalhub/internal/version"
)

type line struct {
	Channel    string      `json:"channel"`
	ReceivedAt time.Time   `json:"received_at"`
	Signal     signal.Wire `json:"signal"`
}

// printer serializes output lines across consumers.
type printer struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func (p *printer) HandleSignal(channel string, sig signal.Signal) error {
	return p.print(channel, sig, time.Now())
}

func (p *printer) print(channel string, sig signal.Signal, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enc.Encode(line{Channel: channel, ReceivedAt: at.UTC(), Signal: sig.ToWire()})
}

func main() {
	baseURL := flag.String("url", "http://localhost:3000", "signalhub base URL")
	key := flag.String("key", "", "Shared secret (default: $SECRET_KEY)")
	channels := flag.String("channels", "a", "Comma-separated channels to consume")
	mode := flag.String("mode", "ws", "Consumption mode: ws or poll")
	interval := flag.Duration("interval", time.Second, "Poll interval (poll mode)")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	_ = godotenv.Load()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *key == "" {
		*key = os.Getenv("SECRET_KEY")
	}
	names := splitChannels(*channels)
	if len(names) == 0 {
		fmt.Fprintln(os.Stderr, "at least one channel is required")
		os.Exit(2)
	}

	logger.Debug("starting signaltail", "version", version.String(), "mode", *mode, "channels", names)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	out := &printer{enc: json.NewEncoder(os.Stdout)}

	var err error
	switch *mode {
	case "poll":
		err = runPoll(ctx, *baseURL, *key, names, *interval, out, logger)
	case "ws":
		err = runStream(ctx, *baseURL, *key, names, out, logger)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		logger.Error("signaltail failed", "error", err)
		os.Exit(1)
	}
}

func runPoll(ctx context.Context, baseURL, key string, channels []string, interval time.Duration, out *printer, logger *slog.Logger) error {
	client := api.NewClient(baseURL, key, api.WithLogger(logger))
	if err := client.Health(ctx); err != nil {
		return fmt.Errorf("health check: %w", err)
	}

	p := poller.New(poller.Config{Channels: channels, Interval: interval}, client, out, logger)
	if err := p.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	return p.Stop(stopCtx)
}

func runStream(ctx context.Context, baseURL, key string, channels []string, out *printer, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for _, ch := range channels {
		cfg := connection.DefaultClientConfig()
		cfg.URL = baseURL
		cfg.Channel = ch
		cfg.Key = key

		wg.Add(1)
		go func() {
			defer wg.Done()
			err := connection.Follow(ctx, cfg, func(d connection.Delivery) error {
				return out.print(d.Channel, d.Signal, d.ReceivedAt)
			}, logger.With("channel", cfg.Channel))
			if err != nil {
				once.Do(func() { firstErr = fmt.Errorf("channel %s: %w", cfg.Channel, err) })
				cancel()
			}
		}()
	}
	wg.Wait()
	return firstErr
}

func splitChannels(s string) []string {
	var names []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
