package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ofdp/switchd/api"
	"github.com/ofdp/switchd/internal/chanframe"
	"github.com/ofdp/switchd/internal/dispatch"
	"github.com/ofdp/switchd/internal/dpreg"
	"github.com/ofdp/switchd/internal/forward"
	"github.com/ofdp/switchd/internal/pktbuf"
	"github.com/ofdp/switchd/internal/stats"
	"github.com/ofdp/switchd/openflow/of10"

	"github.com/op/go-logging"
)

// statusLister adapts the process-wide datapath registry to the status
// API's read-only DatapathLister shape, projecting live collaborator
// references down to the plain data the API is allowed to expose.
type statusLister struct {
	reg *dpreg.Registry
}

func (s statusLister) Each() []api.Datapath {
	dps := s.reg.Each()
	out := make([]api.Datapath, 0, len(dps))
	for _, d := range dps {
		entry := api.Datapath{Idx: d.Idx, ID: d.ID, Description: d.Description()}
		for _, p := range d.Ports() {
			entry.Ports = append(entry.Ports, api.Port{
				Number: p.Number,
				Name:   p.Iface.Name(),
				Up:     !p.IsPortDown(),
			})
		}
		out = append(out, entry)
	}
	return out
}

const (
	programName     = "switchd"
	programVersion  = "0.1.0"
	defaultLogLevel = logging.INFO
)

var (
	logger            = logging.MustGetLogger("main")
	loggerLeveled     logging.LeveledBackend
	showVersion       = flag.Bool("version", false, "Show program version and exit")
	defaultConfigFile = flag.String("config", fmt.Sprintf("/usr/local/etc/%v.conf", programName), "absolute path of the configuration file")
)

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())
	flag.Parse()
	if *showVersion {
		fmt.Printf("Version: %v\n", programVersion)
		os.Exit(0)
	}

	conf := NewConfig()
	if err := conf.Read(*defaultConfigFile); err != nil {
		logger.Fatalf("failed to read configurations: %v", err)
	}
	if err := initLog(getLogLevel(conf.LogLevel)); err != nil {
		logger.Fatalf("failed to init log: %v", err)
	}
	watchConfig(*defaultConfigFile, conf)

	bufs := pktbuf.New()
	fwd := forward.New(bufs)
	desc := of10.DescStats{
		Manufacturer: "ofdp",
		Hardware:     programName,
		Software:     programVersion,
		Serial:       "none",
		Description:  "software datapath",
	}
	statsEngine := stats.New(desc)
	disp := dispatch.New(statsEngine, conf.AdminSecret, fwd, bufs)

	done := make(chan struct{})
	go func() {
		defer close(done)
		serve(conf.ControlPort, disp)
	}()

	go func() {
		core := &api.Core{}
		core.Port = uint16(conf.RestPort)
		core.TLS.Cert = conf.RestTLSCert
		core.TLS.Key = conf.RestTLSKey
		core.Datapaths = statusLister{reg: disp.Datapaths()}
		if err := core.Serve(); err != nil {
			logger.Fatalf("failed to run the status API server: %v", err)
		}
	}()

	initSignalHandler()
	<-done
}

func initLog(level logging.Level) error {
	backend, err := newSyslog(programName)
	if err != nil {
		return err
	}
	formatted := logging.NewBackendFormatter(backend, logging.MustStringFormatter(`%{level}: %{shortpkg}.%{shortfunc}: %{message}`))

	loggerLeveled = logging.AddModuleLevel(formatted)
	loggerLeveled.SetLevel(level, "")
	logging.SetBackend(loggerLeveled)

	return nil
}

func getLogLevel(level string) logging.Level {
	level = strings.ToUpper(level)
	ret, err := logging.LogLevel(level)
	if err != nil {
		logger.Infof("invalid log level=%v, defaulting to %v..", level, defaultLogLevel)
		return defaultLogLevel
	}
	return ret
}

// watchConfig re-applies the log level whenever the configuration file
// is rewritten, without requiring a daemon restart.
func watchConfig(path string, conf *Config) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warningf("failed to watch the configuration file: %v", err)
		return
	}
	if err := watcher.Add(path); err != nil {
		logger.Warningf("failed to watch the configuration file: %v", err)
		return
	}

	go func() {
		for event := range watcher.Events {
			if event.Op != fsnotify.Write {
				continue
			}
			if err := conf.Read(path); err != nil {
				logger.Warningf("failed to re-read the configuration file: %v", err)
				continue
			}
			if loggerLeveled != nil {
				loggerLeveled.SetLevel(getLogLevel(conf.LogLevel), "")
			}
		}
	}()
}

func initSignalHandler() {
	c := make(chan os.Signal, 5)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	go func() {
		for s := range c {
			switch s {
			case syscall.SIGTERM, syscall.SIGINT:
				logger.Info("shutting down...")
				os.Exit(0)
			case syscall.SIGHUP:
				logger.Info("received SIGHUP (no-op: config is watched automatically)")
			}
		}
	}()
}

// serve accepts control-channel connections and hands each one to its
// own read loop (spec §4.6: one framed connection per controller,
// demultiplexed by the request dispatcher).
func serve(port int, disp *dispatch.Dispatcher) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%v", port))
	if err != nil {
		logger.Fatalf("failed to listen on control port %v: %v", port, err)
	}
	defer listener.Close()
	logger.Infof("control channel listening on :%v", port)

	for {
		conn, err := listener.Accept()
		if err != nil {
			logger.Errorf("failed to accept a new connection: %v", err)
			continue
		}
		if tc, ok := conn.(*net.TCPConn); ok {
			tc.SetKeepAlive(true)
			tc.SetKeepAlivePeriod(5 * time.Second)
		}
		logger.Infof("new controller connected from %v", conn.RemoteAddr())
		go handleConn(conn, disp)
	}
}

func handleConn(conn net.Conn, disp *dispatch.Dispatcher) {
	defer conn.Close()
	peerID := conn.RemoteAddr().String()

	for {
		env, err := chanframe.ReadEnvelope(conn)
		if err != nil {
			logger.Debugf("connection %v closed: %v", peerID, err)
			return
		}
		if err := disp.Handle(env, peerID, conn); err != nil {
			logger.Warningf("request from %v failed: %v", peerID, err)
		}
	}
}
