package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/sanity-io/litter"

	"github.com/driftline/crdt/comm"
	"github.com/driftline/crdt/config"
	"github.com/driftline/crdt/store"
)

// Functions

// initLogger initializes a JSON gokit-logger set
// to the according log level supplied via cli flag.
func initLogger(loglevel string) log.Logger {

	logger := log.NewJSONLogger(log.NewSyncWriter(os.Stdout))
	logger = log.With(logger,
		"ts", log.DefaultTimestampUTC,
		"caller", log.DefaultCaller,
	)

	switch strings.ToLower(loglevel) {
	case "info":
		logger = level.NewFilter(logger, level.AllowInfo())
	case "warn":
		logger = level.NewFilter(logger, level.AllowWarn())
	case "error":
		logger = level.NewFilter(logger, level.AllowError())
	default:
		logger = level.NewFilter(logger, level.AllowDebug())
	}

	return logger
}

// initStore opens the Postgres-backed snapshot store this replica was
// configured with, if any, folding in the password read from the
// environment since it never lives in the checked-in TOML config.
func initStore(conf *config.Config, env *config.Env) (*store.Store, error) {

	if conf.Store == nil {
		return nil, nil
	}

	return store.NewStore(
		conf.Store.IP,
		conf.Store.Port,
		conf.Store.Database,
		conf.Store.User,
		env.StorePassword,
		conf.Store.UseTLS,
	)
}

func main() {

	var err error

	// Set CPUs usable by this replica to all available.
	runtime.GOMAXPROCS(runtime.NumCPU())

	// Parse command-line flags.
	configFlag := flag.String("config", "config.toml", "Provide path to configuration file in TOML syntax.")
	loglevelFlag := flag.String("loglevel", "debug", "This flag sets the default logging level.")
	dumpFlag := flag.Bool("dump", false, "Append this flag to print every hosted view's state to stdout on SIGHUP.")
	flag.Parse()

	logger := initLogger(*loglevelFlag)

	// Read configuration from file.
	conf, err := config.LoadConfig(*configFlag)
	if err != nil {
		level.Error(logger).Log(
			"msg", "failed to load the config", "err", err,
		)
		os.Exit(1)
	}

	var env *config.Env
	if conf.Store != nil {
		env, err = config.LoadEnv()
		if err != nil {
			level.Error(logger).Log(
				"msg", "failed to load the environment", "err", err,
			)
			os.Exit(2)
		}
	}

	st, err := initStore(conf, env)
	if err != nil {
		level.Error(logger).Log(
			"msg", "failed to connect to the snapshot store", "err", err,
		)
		os.Exit(3)
	}

	metrics := NewReplicaMetrics(conf.MetricsAddr)
	go runMetricsHTTP(logger, conf.MetricsAddr)

	r, err := newReplica(conf, st, metrics, logger)
	if err != nil {
		level.Error(logger).Log(
			"msg", "failed to initialize replica views", "err", err,
		)
		os.Exit(4)
	}

	var peerNames []string
	for name := range conf.Peers {
		peerNames = append(peerNames, name)
	}

	hub, err := comm.NewHub(conf.SiteID, peerNames, nil, r.apply, logger)
	if err != nil {
		level.Error(logger).Log(
			"msg", "failed to initialize sync hub", "err", err,
		)
		os.Exit(5)
	}
	r.hub = hub

	ln, err := comm.Listen(conf.ListenSyncAddr, hub, logger)
	if err != nil {
		level.Error(logger).Log(
			"msg", "failed to listen for incoming sync connections", "err", err, "addr", conf.ListenSyncAddr,
		)
		os.Exit(6)
	}
	defer ln.Close()

	for name, addr := range conf.Peers {
		go dialPeer(name, addr, hub, logger)
	}

	level.Info(logger).Log(
		"msg", "replica is up",
		"site_id", conf.SiteID,
		"listen_sync_addr", conf.ListenSyncAddr,
		"views", len(conf.Views),
		"peers", len(conf.Peers),
	)

	go handleSignals(r, *dumpFlag, logger)

	// Loop on incoming commands.
	runREPL(r, logger)
}

// dialPeer connects to one configured peer and registers the
// connection with hub, retrying indefinitely across connection
// refused errors - the common case when peers are started out of
// order.
func dialPeer(name, addr string, hub *comm.Hub, logger log.Logger) {

	conn, err := comm.ReliableDial(name, addr, comm.DefaultDialOptions)
	if err != nil {
		level.Error(logger).Log("msg", "failed to connect to peer", "peer", name, "addr", addr, "err", err)
		return
	}

	hub.AddPeer(name, conn)
	level.Info(logger).Log("msg", "connected to peer", "peer", name, "addr", addr)
}

// handleSignals saves every view's snapshot on SIGINT/SIGTERM before
// exiting, and logs every view's state via r.dumpState on SIGHUP when
// dumpEnabled is set.
func handleSignals(r *replica, dumpEnabled bool, logger log.Logger) {

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	for s := range sig {

		if s == syscall.SIGHUP {
			if dumpEnabled {
				r.dumpState()
			}
			continue
		}

		level.Info(logger).Log("msg", "shutting down, saving view snapshots", "signal", s.String())
		if err := r.SaveAll(); err != nil {
			level.Error(logger).Log("msg", "failed to save view snapshots on shutdown", "err", err)
			os.Exit(7)
		}
		os.Exit(0)
	}
}

// runREPL reads simple line commands from stdin, letting a person
// driving this replica by hand mint local updates without a separate
// client binary. It blocks for the lifetime of the process.
//
// Commands:
//   set <view> <value>      register.Set, replacing every currently live tag
//   add <view> <value>      set.Add
//   insert <view> <value>   list.Insert at the end
//   text <view> <value>     text.Update, diffed against the current value
//   dump                    pretty-print every view's state via litter
func runREPL(r *replica, logger log.Logger) {

	scanner := bufio.NewScanner(os.Stdin)

	for scanner.Scan() {

		fields := strings.SplitN(strings.TrimSpace(scanner.Text()), " ", 3)
		if len(fields) == 0 || fields[0] == "" {
			continue
		}

		cmd := fields[0]

		if cmd == "dump" {
			for name, v := range r.views {
				var state interface{}
				switch v.kind {
				case config.KindRegister:
					state = v.register.Dump()
				case config.KindSet:
					state = v.set.Dump()
				case config.KindList:
					state = v.list.Dump()
				case config.KindText:
					state = v.text.Dump()
				}
				litter.Dump(map[string]interface{}{"view": name, "kind": v.kind, "state": state})
			}
			continue
		}

		if len(fields) < 3 {
			fmt.Fprintln(os.Stderr, "usage: <set|add|insert|text> <view> <value>")
			continue
		}

		view, rawValue := fields[1], fields[2]
		value := decodeREPLValue(rawValue)

		var opErr error
		switch cmd {
		case "set":
			opErr = r.broadcastRegisterSet(view, value)
		case "add":
			opErr = r.broadcastSetAdd(view, value)
		case "insert":
			opErr = r.broadcastListInsert(view, value)
		case "text":
			opErr = r.broadcastTextUpdate(view, rawValue)
		default:
			fmt.Fprintf(os.Stderr, "unrecognized command %q\n", cmd)
			continue
		}

		if opErr != nil {
			level.Warn(logger).Log("msg", "local update failed", "cmd", cmd, "view", view, "err", opErr)
		}
	}
}

// decodeREPLValue interprets raw as an int64 when it parses cleanly,
// falling back to the literal string otherwise - just enough so a
// person typing at the REPL can exercise numeric and string values
// without a full expression syntax.
func decodeREPLValue(raw string) interface{} {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	return raw
}
