package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/viant/authgate"
	"github.com/viant/authgate/config"
	"github.com/viant/authgate/gate"
	"github.com/viant/authgate/nav"
)

// Options configure the demo shell.
type Options struct {
	Authority  string `short:"a" long:"authority" description:"OIDC authority URL" required:"true"`
	ClientID   string `short:"c" long:"client-id" description:"OIDC client id" required:"true"`
	APIBaseURL string `short:"b" long:"api" description:"protected API base URL" required:"true"`
	Storage    string `short:"s" long:"storage" description:"state storage: session or persistent" default:"session"`
	StateURL   string `long:"state-url" description:"afs URL backing persistent state"`
	Target     string `short:"t" long:"target" description:"route to navigate to" default:"/"`
	Production bool   `short:"p" long:"production" description:"enable production config validation"`
}

func run(args []string) error {
	options := &Options{}
	if _, err := flags.ParseArgs(options, args); err != nil {
		return err
	}
	cfg := config.New()
	cfg.Authority = options.Authority
	cfg.ClientID = options.ClientID
	cfg.APIBaseURL = options.APIBaseURL
	if options.Storage == string(config.StoragePersistent) {
		cfg.Storage = config.StoragePersistent
		cfg.StateURL = options.StateURL
	}

	navigator := nav.NewMemory(options.Target)
	service, err := authgate.New(cfg,
		authgate.WithNavigator(navigator),
		authgate.WithProduction(options.Production))
	if err != nil {
		return err
	}
	ctx := context.Background()
	if err := service.Initialize(ctx); err != nil {
		return err
	}
	resolution := service.Gate.Guard(ctx, options.Target)
	fmt.Printf("route %v: %v\n", options.Target, resolution.Decision)
	switch resolution.Decision {
	case gate.Allow:
		fmt.Printf("resolved: %v (%v)\n", resolution.Route.Path, resolution.Route.Name)
	case gate.Redirect:
		fmt.Printf("redirect: %v\n", resolution.Target)
	case gate.Halt:
		fmt.Printf("login redirect issued, navigator at: %v\n", navigator.Current())
	case gate.NotFound:
		fmt.Println("no such route")
	}
	if service.Session.IsAuthenticated() {
		items, err := service.Menus.Tree(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("menu entries: %v\n", len(items))
	}
	return nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
