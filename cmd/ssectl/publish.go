package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kbukum/ssekit/httpclient"
)

type publishFlags struct {
	server  *string
	event   *string
	data    *string
	timeout *time.Duration
}

func addPublishFlags(fs *flag.FlagSet) publishFlags {
	return publishFlags{
		server:  fs.String("server", "http://localhost:8080", "ssectl serve base URL"),
		event:   fs.String("event", "", "event type, empty for message"),
		data:    fs.String("data", "", `event payload, "-" reads stdin`),
		timeout: fs.Duration("timeout", 10*time.Second, "request timeout"),
	}
}

func (f publishFlags) payload(stdin io.Reader) (string, error) {
	if *f.data != "-" {
		return *f.data, nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

func runEmit(args []string) error {
	fs := flag.NewFlagSet("emit", flag.ExitOnError)
	pf := addPublishFlags(fs)
	ids := fs.String("id", "", "comma-separated client ids")
	path := fs.String("path", "/events", "stream path on the server")
	if err := fs.Parse(args); err != nil {
		return err
	}

	targets := splitList(*ids)
	if len(targets) == 0 {
		return fmt.Errorf("-id is required")
	}
	data, err := pf.payload(os.Stdin)
	if err != nil {
		return err
	}

	return publish(*pf.server, *pf.timeout, emitRequest(*path, targets, *pf.event, data), os.Stdout)
}

// emitRequest targets POST <path>/<id> for one client and the multi-target
// POST <path> otherwise.
func emitRequest(path string, targets []string, event, data string) httpclient.Request {
	if len(targets) == 1 {
		return httpclient.Request{
			Method: http.MethodPost,
			Path:   path + "/" + url.PathEscape(targets[0]),
			Body:   publishRequest{Event: event, Data: data},
		}
	}
	return httpclient.Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   multiPublishRequest{IDs: targets, Event: event, Data: data},
	}
}

func runBroadcast(args []string) error {
	fs := flag.NewFlagSet("broadcast", flag.ExitOnError)
	pf := addPublishFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	data, err := pf.payload(os.Stdin)
	if err != nil {
		return err
	}
	req := httpclient.Request{
		Method: http.MethodPost,
		Path:   "/broadcast",
		Body:   publishRequest{Event: *pf.event, Data: data},
	}
	return publish(*pf.server, *pf.timeout, req, os.Stdout)
}

// publish sends req with retry on transient failures and prints the
// response body. Error responses are reported with the server's message.
func publish(baseURL string, timeout time.Duration, req httpclient.Request, out io.Writer) error {
	hc, err := httpclient.New(httpclient.Config{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Timeout:   timeout,
		UserAgent: serviceName,
		Retry:     httpclient.DefaultRetryConfig(),
	})
	if err != nil {
		return err
	}

	resp, err := hc.Do(context.Background(), req)
	if err != nil {
		var herr *httpclient.Error
		if errors.As(err, &herr) {
			return herr.AppError()
		}
		return err
	}
	fmt.Fprintln(out, string(resp.Body))
	return nil
}
