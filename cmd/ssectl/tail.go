package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/ssekit/bootstrap"
	"github.com/kbukum/ssekit/client"
	"github.com/kbukum/ssekit/config"
	"github.com/kbukum/ssekit/observability"
)

var errRetriesExhausted = errors.New("reconnect retries exhausted")

// TailConfig is the configuration of `ssectl tail`.
type TailConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Client  client.Config     `yaml:"client" mapstructure:"client"`
	Events  []string          `yaml:"events" mapstructure:"events"`
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
	JSON    bool              `yaml:"json" mapstructure:"json"`
}

// ApplyDefaults keeps logs off stdout, which carries the events.
func (c *TailConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stderr"
	}
	c.ServiceConfig.ApplyDefaults()
}

// Validate checks the service and client sections.
func (c *TailConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	return c.Client.Validate()
}

type headerFlags map[string]string

func (h headerFlags) String() string { return fmt.Sprint(map[string]string(h)) }

func (h headerFlags) Set(v string) error {
	k, val, ok := strings.Cut(v, ":")
	if !ok || strings.TrimSpace(k) == "" {
		return fmt.Errorf("header %q must look like Name: value", v)
	}
	h[strings.TrimSpace(k)] = strings.TrimSpace(val)
	return nil
}

func runTail(args []string) error {
	fs := flag.NewFlagSet("tail", flag.ExitOnError)
	configFile := fs.String("config", "", "path to config.yml")
	url := fs.String("url", "", "stream URL")
	creds := fs.Bool("credentials", false, "send cookies and auth with the stream request")
	interval := fs.Duration("interval", time.Second, "base reconnect wait")
	delay := fs.Duration("delay", 500*time.Millisecond, "extra wait added per attempt")
	retries := fs.Int("retries", -1, "reconnect attempts before giving up, -1 for unlimited")
	noReconnect := fs.Bool("no-reconnect", false, "exit on the first error")
	events := fs.String("event", "", "comma-separated event types to print besides message")
	asJSON := fs.Bool("json", false, "print events as JSON lines")
	headers := headerFlags{}
	fs.Var(headers, "header", "extra request header, repeatable (Name: value)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var cfg TailConfig
	var opts []config.LoaderOption
	if *configFile != "" {
		opts = append(opts, config.WithConfigFile(*configFile))
	}
	if err := config.LoadConfig(serviceName, &cfg, append(opts, config.WithEnvPrefix("SSECTL"))...); err != nil {
		return err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["url"] {
		cfg.Client.URL = *url
	}
	if set["credentials"] {
		cfg.Client.WithCredentials = *creds
	}
	if set["event"] {
		cfg.Events = splitList(*events)
	}
	if set["json"] {
		cfg.JSON = *asJSON
	}
	for k, v := range headers {
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		cfg.Headers[k] = v
	}
	switch {
	case *noReconnect:
		cfg.Client.Reconnect = nil
	case cfg.Client.Reconnect == nil || set["interval"] || set["delay"] || set["retries"]:
		r := client.ReconnectOptions{Interval: *interval, Delay: *delay}
		if *retries >= 0 {
			r.Retries = client.Retries(*retries)
		}
		cfg.Client.Reconnect = &r
	}

	app, err := bootstrap.NewApp(&cfg, bootstrap.WithSummaryOutput(io.Discard))
	if err != nil {
		return err
	}

	metrics, err := observability.NewSSEMetrics(observability.Meter(serviceName))
	if err != nil {
		return err
	}
	dialer, err := client.NewDialer(client.DialerConfig{
		Headers:   cfg.Headers,
		UserAgent: serviceName,
		Logger:    app.Logger,
	})
	if err != nil {
		return err
	}
	conn, err := client.NewFromConfig(cfg.Client,
		client.WithDialer(dialer),
		client.WithLogger(app.Logger),
		client.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}

	p := &printer{out: os.Stdout, json: cfg.JSON}
	return app.RunTask(context.Background(), func(ctx context.Context) error {
		return tail(ctx, conn, cfg.Events, p)
	})
}

// tail prints events until ctx ends or the connector gives up.
func tail(ctx context.Context, conn *client.Connector, events []string, p *printer) error {
	conn.OnMessage(p.print)
	for _, e := range events {
		conn.On(e, p.print)
	}

	exhausted := make(chan struct{})
	var once sync.Once
	conn.OnRetriesExhausted(func() { once.Do(func() { close(exhausted) }) })

	if err := conn.Connect(); err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	select {
	case <-ctx.Done():
		return nil
	case <-exhausted:
		return errRetriesExhausted
	}
}

// printer serializes output from concurrent listeners.
type printer struct {
	mu   sync.Mutex
	out  io.Writer
	json bool
}

type printedEvent struct {
	Event string `json:"event"`
	Data  string `json:"data"`
	ID    string `json:"id,omitempty"`
}

func (p *printer) print(ev *client.Event) {
	name := ev.Type()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.json {
		_ = json.NewEncoder(p.out).Encode(printedEvent{Event: name, Data: ev.Data, ID: ev.ID})
		return
	}
	fmt.Fprintf(p.out, "[%s] %s\n", name, ev.Data)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
