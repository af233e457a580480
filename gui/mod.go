package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"go.dedis.ch/kadem/gui/httpnode/controller"
	"go.dedis.ch/kadem/peer"
	"go.dedis.ch/kadem/peer/impl"
	"go.dedis.ch/kadem/transport"
	"go.dedis.ch/kadem/transport/udp"
	"go.dedis.ch/kadem/transport/vlog"
	"go.dedis.ch/kadem/types"
)

func main() {
	app := &cli.App{
		Name:  "kadem",
		Usage: "run a kadem node with an HTTP frontend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "UDP address the node binds to",
				Value: "127.0.0.1:0",
			},
			&cli.StringFlag{
				Name:  "proxyaddr",
				Usage: "address the HTTP frontend binds to",
				Value: "127.0.0.1:8080",
			},
			&cli.StringFlag{
				Name:  "bootstrap",
				Usage: "address of a known peer to join through",
			},
			&cli.StringSliceFlag{
				Name:  "seed",
				Usage: "resource to seed, as name=value",
			},
			&cli.DurationFlag{
				Name:  "lookuptimeout",
				Usage: "deadline after which silent peers are given up on",
				Value: time.Second * 5,
			},
			&cli.BoolFlag{
				Name:  "acceptinvites",
				Usage: "whether invites are accepted",
				Value: true,
			},
			&cli.StringFlag{
				Name:  "vectorlog",
				Usage: "name of a GoVector log to trace packets into",
			},
		},
		Action: run,
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()

	var trans transport.Transport = udp.NewUDP()
	if name := c.String("vectorlog"); name != "" {
		trans = vlog.NewTransport(trans, name)
	}

	socket, err := trans.CreateSocket(c.String("addr"))
	if err != nil {
		return xerrors.Errorf("failed to create socket: %v", err)
	}

	node := impl.NewPeer(peer.Configuration{
		Socket:        socket,
		LookupTimeout: c.Duration("lookuptimeout"),
		AcceptInvites: c.Bool("acceptinvites"),
	})

	err = node.Start()
	if err != nil {
		return xerrors.Errorf("failed to start node: %v", err)
	}
	defer node.Stop()

	logger.Info().Msgf("node listening on %s", socket.GetAddress())

	for _, seed := range c.StringSlice("seed") {
		parts := strings.SplitN(seed, "=", 2)
		if len(parts) != 2 {
			return xerrors.Errorf("malformed seed %q, want name=value", seed)
		}

		key, err := node.Seed(types.Resource{Name: parts[0], Value: parts[1]})
		if err != nil {
			return xerrors.Errorf("failed to seed %q: %v", parts[0], err)
		}
		logger.Info().Msgf("seeded %q at %s", parts[0], key)
	}

	if addr := c.String("bootstrap"); addr != "" {
		node.Bootstrap(addr)
	}

	ctrl := controller.NewNodeController(node, &logger)

	mux := http.NewServeMux()
	mux.Handle("/seed", ctrl.SeedHandler())
	mux.Handle("/lookup", ctrl.LookupHandler())
	mux.Handle("/ping", ctrl.PingHandler())
	mux.Handle("/invite", ctrl.InviteHandler())
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	logger.Info().Msgf("frontend listening on %s", c.String("proxyaddr"))
	return http.ListenAndServe(c.String("proxyaddr"), mux)
}
