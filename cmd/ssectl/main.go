// Command ssectl serves and exercises server-sent event streams.
//
//	ssectl serve     [-config config.yml] [-env .env]
//	ssectl tail      -url http://localhost:8080/events/alice [-retries 5]
//	ssectl emit      -server http://localhost:8080 -id alice -event greeting -data hello
//	ssectl broadcast -server http://localhost:8080 -event notice -data "maintenance at 5"
package main

import (
	"fmt"
	"os"
	"strings"
)

const serviceName = "ssectl"

type command struct {
	name  string
	usage string
	run   func(args []string) error
}

var commands = []command{
	{"serve", "run the event stream server", runServe},
	{"tail", "connect to a stream and print its events", runTail},
	{"emit", "send an event to one or more clients", runEmit},
	{"broadcast", "send an event to every client", runBroadcast},
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	name := os.Args[1]
	for _, c := range commands {
		if c.name == name {
			if err := c.run(os.Args[2:]); err != nil {
				fatalf("%s: %v", name, err)
			}
			return
		}
	}
	if name == "-h" || name == "--help" || name == "help" {
		usage()
		return
	}
	fatalf("unknown command %q (supported: %s)", name, commandNames())
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s <command> [flags]\n\ncommands:\n", serviceName)
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", c.name, c.usage)
	}
}

func commandNames() string {
	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = c.name
	}
	return strings.Join(names, ", ")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
