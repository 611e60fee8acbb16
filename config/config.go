// Package config loads the settings of the longform client from the environment
// and from a .env file in the profile directory.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"go-simpler.org/env"
	"gopkg.in/yaml.v3"

	"longform.lol/chk"
	lenv "longform.lol/env"
	"longform.lol/errorf"
	"longform.lol/normalize"
	"longform.lol/ws"
)

// Version is printed by the version command.
var Version = "v0.1.0"

// DefaultRelays are used when neither RELAYS nor RELAYS_FILE is set.
var DefaultRelays = []string{
	"wss://relay.damus.io",
	"wss://nos.lol",
	"wss://relay.nostr.band",
	"wss://nostr-pub.wellorder.net",
}

// C is the configuration of the client.
type C struct {
	AppName    string        `env:"APP_NAME" default:"longform" usage:"name used for the profile directory"`
	Profile    string        `env:"PROFILE" usage:"directory holding the .env file, defaults to the user config dir plus APP_NAME"`
	LogLevel   string        `env:"LOG_LEVEL" default:"info" usage:"debug level: fatal error warn info debug trace"`
	Relays     []string      `env:"RELAYS" usage:"comma separated relays, each url or url|r, url|w, url|rw"`
	RelaysFile string        `env:"RELAYS_FILE" usage:"yaml file listing relays, replaces RELAYS when set"`
	OpTimeout  time.Duration `env:"OP_TIMEOUT" default:"5s" usage:"time allowed for each relay to answer a publish"`
	Quorum     string        `env:"QUORUM" default:"one" usage:"relays that must accept a publish: one, majority or all"`
	FeedCap    int           `env:"FEED_CAP" default:"50" usage:"maximum number of articles kept in a feed"`
	Reconnect  bool          `env:"RECONNECT" default:"false" usage:"resubscribe to relays that drop a feed"`
	Nsec       string        `env:"NSEC" usage:"secret key, hex or nsec, for local key signing"`
	Bunker     string        `env:"BUNKER" usage:"bunker:// url of a remote signer"`
	Pprof      string        `env:"PPROF" usage:"write a profile to the profile directory: cpu, memory, allocation, block, mutex, goroutine or trace"`
}

// Source looks up a variable by name.
type Source interface {
	LookupEnv(key string) (value string, ok bool)
}

type osSource struct{}

func (osSource) LookupEnv(key string) (string, bool) { return os.LookupEnv(key) }

// layered prefers the process environment to the .env file.
type layered struct {
	top  Source
	file lenv.Env
}

func (l layered) LookupEnv(key string) (value string, ok bool) {
	if value, ok = l.top.LookupEnv(key); ok {
		return
	}
	return l.file.LookupEnv(key)
}

var options = &env.Options{SliceSep: ","}

// New loads the configuration from the process environment.
func New() (cfg *C, err error) { return FromSource(osSource{}) }

// FromSource loads the configuration from src, layered over the .env file of
// the profile directory when one exists.
func FromSource(src Source) (cfg *C, err error) {
	cfg = &C{}
	if err = env.Load(cfg, &env.Options{Source: src, SliceSep: ","}); chk.E(err) {
		return
	}
	if cfg.Profile == "" {
		cfg.Profile = filepath.Join(xdg.ConfigHome, cfg.AppName)
	}
	envPath := filepath.Join(cfg.Profile, ".env")
	if _, serr := os.Stat(envPath); serr == nil {
		var e lenv.Env
		if e, err = lenv.GetEnv(envPath); chk.E(err) {
			return
		}
		profile := cfg.Profile
		cfg = &C{}
		if err = env.Load(cfg, &env.Options{Source: layered{src, e}, SliceSep: ","}); chk.E(err) {
			return
		}
		if cfg.Profile == "" {
			cfg.Profile = profile
		}
	}
	if _, err = ws.ParseQuorum(cfg.Quorum); err != nil {
		return
	}
	if cfg.FeedCap <= 0 {
		err = errorf.E("FEED_CAP must be positive, got %d", cfg.FeedCap)
		return
	}
	if cfg.OpTimeout <= 0 {
		err = errorf.E("OP_TIMEOUT must be positive, got %v", cfg.OpTimeout)
		return
	}
	return
}

// ParseRelay reads url, url|r, url|w or url|rw.
func ParseRelay(s string) (ep ws.Endpoint, err error) {
	u, mode, found := strings.Cut(strings.TrimSpace(s), "|")
	if ep.URL = normalize.URL(u); ep.URL == "" {
		err = errorf.E("invalid relay %q", s)
		return
	}
	if !found {
		ep.Read, ep.Write = true, true
		return
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "r":
		ep.Read = true
	case "w":
		ep.Write = true
	case "rw", "wr":
		ep.Read, ep.Write = true, true
	default:
		err = errorf.E("invalid relay mode %q in %q", mode, s)
	}
	return
}

type relayEntry struct {
	URL   string `yaml:"url"`
	Read  *bool  `yaml:"read"`
	Write *bool  `yaml:"write"`
}

// ReadRelaysFile loads a yaml list of relays. read and write default to true.
//
//	# relays.yaml
//	- url: wss://relay.damus.io
//	- url: wss://nos.lol
//	  write: false
func ReadRelaysFile(path string) (eps []ws.Endpoint, err error) {
	var b []byte
	if b, err = os.ReadFile(path); chk.E(err) {
		return
	}
	var entries []relayEntry
	if err = yaml.Unmarshal(b, &entries); err != nil {
		err = errorf.E("relays file %s: %w", path, err)
		return
	}
	for _, e := range entries {
		ep := ws.Endpoint{URL: normalize.URL(e.URL), Read: true, Write: true}
		if ep.URL == "" {
			err = errorf.E("relays file %s: invalid relay %q", path, e.URL)
			return
		}
		if e.Read != nil {
			ep.Read = *e.Read
		}
		if e.Write != nil {
			ep.Write = *e.Write
		}
		eps = append(eps, ep)
	}
	return
}

// Endpoints are the relays the client uses.
func (cfg *C) Endpoints() (eps []ws.Endpoint, err error) {
	if cfg.RelaysFile != "" {
		return ReadRelaysFile(cfg.RelaysFile)
	}
	var relays []string
	for _, r := range cfg.Relays {
		if strings.TrimSpace(r) != "" {
			relays = append(relays, r)
		}
	}
	if len(relays) == 0 {
		relays = DefaultRelays
	}
	for _, r := range relays {
		var ep ws.Endpoint
		if ep, err = ParseRelay(r); err != nil {
			return
		}
		eps = append(eps, ep)
	}
	return
}

// PoolOptions turns the relay settings into options for a ws.Pool.
func (cfg *C) PoolOptions() (opts []ws.PoolOption) {
	q, _ := ws.ParseQuorum(cfg.Quorum)
	return []ws.PoolOption{
		ws.WithTimeout(cfg.OpTimeout),
		ws.WithQuorum(q),
		ws.WithCap(cfg.FeedCap),
		ws.WithReconnect(cfg.Reconnect),
	}
}

// HelpRequested returns true if any of the common types of help invocation are
// found as the first command line parameter.
func HelpRequested() (help bool) {
	if len(os.Args) > 1 {
		switch strings.ToLower(os.Args[1]) {
		case "help", "-h", "--h", "-help", "--help", "?":
			help = true
		}
	}
	return
}

// PrintHelp lists the variables and their defaults.
func PrintHelp(cfg *C, printer io.Writer) {
	_, _ = fmt.Fprintf(printer,
		"\nenvironment variables that configure %s\n\n", cfg.AppName)
	env.Usage(cfg, printer, options)
	_, _ = fmt.Fprintf(printer, `
a .env file in %s is loaded as well, the environment overrides it.

commands:

  - print this help message

      %s help

  - print version info

      %s version

  - print environment variables as a shell script that can be edited to set the configuration

      %s env > %s/.env

`, cfg.Profile, os.Args[0], os.Args[0], os.Args[0], cfg.Profile)
}
