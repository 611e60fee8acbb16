// Package main is longform, a command line client that publishes long form
// articles to nostr relays and follows the articles other people publish.
//
// Settings come from the environment, run `longform help` to list them.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/pkg/profile"

	"longform.lol/client"
	"longform.lol/config"
	"longform.lol/context"
	"longform.lol/interrupt"
	"longform.lol/log"
	"longform.lol/lol"
)

type args struct {
	Publish *PublishCmd `arg:"subcommand:publish" help:"publish a markdown article"`
	Note    *NoteCmd    `arg:"subcommand:note" help:"publish a short text note"`
	Feed    *FeedCmd    `arg:"subcommand:feed" help:"list the newest articles"`
	Profile *ProfileCmd `arg:"subcommand:profile" help:"show the metadata of a user"`
	Npub    *NpubCmd    `arg:"subcommand:npub" help:"encode a hex public key as npub"`
	Decode  *DecodeCmd  `arg:"subcommand:decode" help:"decode an npub to a hex public key"`
	Whoami  *WhoamiCmd  `arg:"subcommand:whoami" help:"log in and print the identity"`
	Relays  *RelaysCmd  `arg:"subcommand:relays" help:"show the configured relays and what they say about themselves"`
}

func (args) Version() string { return "longform " + config.Version }

// command is run with a client that has not logged in yet.
type command interface {
	Run(c context.T, cl *client.T) (err error)
}

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() (err error) {
	var cfg *config.C
	if cfg, err = config.New(); err != nil {
		return
	}
	lol.SetLogLevel(cfg.LogLevel)
	if len(os.Args) == 2 {
		switch strings.ToLower(os.Args[1]) {
		case "version":
			fmt.Println(config.Version)
			return
		case "env":
			config.PrintEnv(cfg, os.Stdout)
			return
		}
	}
	var a args
	if config.HelpRequested() {
		config.PrintHelp(cfg, os.Stderr)
		var p *arg.Parser
		if p, err = arg.NewParser(arg.Config{}, &a); err != nil {
			return
		}
		p.WriteHelp(os.Stderr)
		return
	}
	p := arg.MustParse(&a)
	cmd, ok := p.Subcommand().(command)
	if !ok {
		p.WriteHelp(os.Stderr)
		return
	}
	if mode := profileMode(cfg.Pprof); mode != nil {
		defer profile.Start(mode, profile.ProfilePath(cfg.Profile), profile.NoShutdownHook).Stop()
	}
	c, cancel := context.Cancel(context.Bg())
	defer cancel()
	interrupt.AddHandler(cancel)
	var cl *client.T
	if cl, err = client.New(c, cfg); err != nil {
		return
	}
	defer cl.Disconnect()
	return cmd.Run(c, cl)
}

func profileMode(name string) func(*profile.Profile) {
	switch strings.ToLower(name) {
	case "":
	case "cpu":
		return profile.CPUProfile
	case "memory", "mem":
		return profile.MemProfile
	case "allocation", "allocs":
		return profile.MemProfileAllocs
	case "block":
		return profile.BlockProfile
	case "mutex":
		return profile.MutexProfile
	case "goroutine":
		return profile.GoroutineProfile
	case "trace":
		return profile.TraceProfile
	default:
		log.W.F("unknown PPROF mode %q, profiling disabled", name)
	}
	return nil
}
