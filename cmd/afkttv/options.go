package main

import (
	"errors"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/plsuwu/afkttv"
	"github.com/plsuwu/afkttv/internal/config"
)

type options struct {
	irc         bool
	eventEdge   bool
	percent     int
	channel     string
	configPath  string
	verbose     bool
	strict      bool
	metricsAddr string
	chatURL     string
	eventsURL   string
}

func defaultOptions() *options {
	return &options{
		irc:        true,
		percent:    afkttv.DefaultPercent,
		configPath: config.DefaultPath(),
		chatURL:    afkttv.URLChat,
		eventsURL:  afkttv.URLEvents,
	}
}

func (o *options) addFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&o.irc, "irc", "i", o.irc, "hold a chat connection")
	fs.BoolVarP(&o.eventEdge, "event-edge", "e", o.eventEdge, "hold a pubsub edge connection")
	fs.IntVarP(&o.percent, "percent", "p", o.percent, "share of time to stay connected, 0-100")
	fs.StringVarP(&o.channel, "channel", "c", o.channel, "channel to join (default: the configured user)")
	fs.StringVar(&o.configPath, "config", o.configPath, "credentials file")
	fs.BoolVarP(&o.verbose, "verbose", "v", o.verbose, "log debug records, including every line sent")
	fs.BoolVar(&o.strict, "strict", o.strict, "stop on a malformed chat line instead of printing it raw")
	fs.StringVar(&o.metricsAddr, "metrics-addr", o.metricsAddr, "serve /metrics and /healthz on this address")
	fs.StringVar(&o.chatURL, "chat-url", o.chatURL, "chat endpoint")
	fs.StringVar(&o.eventsURL, "events-url", o.eventsURL, "pubsub edge endpoint")

	fs.SortFlags = false
}

func (o *options) validate() error {
	if o.percent < 0 || o.percent > 100 {
		return fmt.Errorf("--percent must be between 0 and 100, got %d", o.percent)
	}
	if !o.irc && !o.eventEdge {
		return errors.New("nothing to do: both --irc and --event-edge are off")
	}
	if o.configPath == "" {
		return errors.New("--config must not be empty")
	}
	return nil
}
