// Command friendlamp runs one lamp of a friendship-lamp pair: a touch
// lights both lamps, a double tap puts them to sleep, holding sends a
// heartbeat.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/friendship-lamp/internal/animation"
	"github.com/sweeney/friendship-lamp/internal/color"
	"github.com/sweeney/friendship-lamp/internal/config"
	"github.com/sweeney/friendship-lamp/internal/fault"
	"github.com/sweeney/friendship-lamp/internal/hw"
	"github.com/sweeney/friendship-lamp/internal/lamp"
	"github.com/sweeney/friendship-lamp/internal/logging"
	"github.com/sweeney/friendship-lamp/internal/mqtt"
	"github.com/sweeney/friendship-lamp/internal/status"
	"github.com/sweeney/friendship-lamp/internal/tick"
	"github.com/sweeney/friendship-lamp/internal/web"
	"github.com/sweeney/friendship-lamp/internal/wifi"
)

// Exit codes.
const (
	exitOK    = 0
	exitFault = 1
	exitSetup = 2
)

// unrecoverableWait keeps the connection fault code blinking until someone
// restarts the lamp.
const unrecoverableWait = 365 * 24 * time.Hour

type options struct {
	configPath string
	httpAddr   string
	sim        bool
	// hold keeps the process (status LED and page) alive after a fatal
	// fault until it is signalled.
	hold bool
}

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to the YAML settings file")
	httpAddr := flag.String("http", "=config", `HTTP status address ("=config" uses http_addr from the settings, empty disables)`)
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "text", "Log format: text or json")
	logFile := flag.String("log-file", "", "Also append logs to this file")
	sim := flag.Bool("sim", false, "Run without lamp hardware (simulated sensor, strip and status LED)")
	hold := flag.Bool("hold-on-fault", true, "Keep showing a fatal fault until signalled instead of exiting")

	flag.Parse()

	closer, err := logging.Init(os.Stderr, *logLevel, *logFormat, *logFile)
	if err != nil {
		log.Fatalf("init logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, options{
		configPath: *configPath,
		httpAddr:   *httpAddr,
		sim:        *sim,
		hold:       *hold,
	})
	stop()

	code := exitCode(err)
	if errors.Is(err, lamp.ErrReboot) {
		closer.Close()
		if rerr := reexec(); rerr != nil {
			log.Fatalf("reboot: %v", rerr)
		}
	}
	if code != exitOK {
		slog.Error("friendlamp stopped", "error", err)
	}
	closer.Close()
	os.Exit(code)
}

func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, lamp.ErrReboot):
		return exitOK
	case fault.IsSetup(err):
		return exitSetup
	default:
		return exitFault
	}
}

// reexec replaces the process with a fresh copy of itself.
func reexec() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	return syscall.Exec(exe, os.Args, os.Environ())
}

func run(ctx context.Context, o options) error {
	store := config.NewStore(o.configPath)
	cfg, cfgErr := store.Load()

	pin := config.Defaults().StatusPin
	addr := config.Defaults().HTTPAddr
	if cfgErr == nil {
		pin = cfg.StatusPin
		addr = cfg.HTTPAddr
	}
	if o.httpAddr != "=config" {
		addr = o.httpAddr
	}

	light, lightCloser := openLight(o.sim, pin)
	defer lightCloser.Close()
	blinker := hw.NewBlinker(light, tick.SystemClock{})
	defer blinker.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		Name:       cfg.Name,
		Friend:     cfg.FriendName,
		Broker:     brokerOf(cfg, cfgErr),
		HTTPAddr:   addr,
		ConfigPath: o.configPath,
	})
	notifier := status.Fanout{blinker, tracker}
	notifier.Booting()

	if addr != "" {
		srv := web.New(addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		slog.Info("http status server listening", "addr", addr)
	}

	err := start(ctx, o, store, cfg, cfgErr, tracker, notifier)
	report(err, notifier)
	if err != nil && o.hold && !errors.Is(err, lamp.ErrReboot) && ctx.Err() == nil {
		slog.Error("halted, waiting for restart", "error", err)
		<-ctx.Done()
	}
	return err
}

// start runs everything after the status outputs are up: hardware, the
// broker connection and the lamp loop.
func start(ctx context.Context, o options, store *config.Store, cfg config.Config, cfgErr error, tracker *status.Tracker, notifier status.Notifier) error {
	if cfgErr != nil {
		return cfgErr
	}
	slog.Info("config loaded", "path", store.Path(), "name", cfg.Name, "friend", cfg.FriendName)

	if err := config.Watch(ctx, store.Path(), func() {
		tracker.SetRebootPending("config file changed")
	}); err != nil {
		slog.Warn("config watch disabled", "error", err)
	}

	sensor, display, hwCloser, err := openHardware(cfg, o.sim)
	if err != nil {
		return err
	}
	defer hwCloser.Close()

	link := mqtt.NewLink(cfg.Link())
	deps := mqtt.Deps{
		Dial:     mqtt.DialPaho,
		Notifier: notifier,
	}
	timeout := time.Duration(cfg.Timeout * float64(time.Second))
	if cfg.WifiSSID != "" && !o.sim {
		deps.Wifi = wifi.NewNMCLI(timeout)
	}
	if cfg.ConnectToInternet {
		deps.Internet = wifi.NewDialChecker(cfg.InternetCheckAddr, timeout)
	}
	sup := mqtt.NewSupervisor(cfg.Supervisor(), link, deps)
	defer sup.Close()

	notifier.Connecting()
	if err := sup.Start(ctx); err != nil {
		return err
	}
	notifier.Connected()
	slog.Info("connected", "broker", cfg.BrokerURL(), "room", link.Topics().Room, "boot", link.BootID())

	coord, err := lamp.New(cfg, lamp.Deps{
		Sensor:  sensor,
		Display: display,
		Link:    sup,
		Rebooter: lamp.RebootFunc(func() error {
			tracker.SetRebootPending("remote request")
			return nil
		}),
		Config:   store,
		Observer: tracker,
	})
	if err != nil {
		return err
	}
	return coord.Run(ctx)
}

// report tells the operator how the run ended.
func report(err error, n status.Notifier) {
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, lamp.ErrReboot):
	case fault.IsSetup(err):
		n.SetupFault(err)
	case fault.IsNetwork(err):
		n.ConnectionFault(fault.CodeOf(err), unrecoverableWait)
	default:
		n.OtherFault(err)
	}
}

func brokerOf(cfg config.Config, cfgErr error) string {
	if cfgErr != nil {
		return ""
	}
	return cfg.BrokerURL()
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// openLight returns the status LED. A missing GPIO line is not fatal: the
// lamp still works, it just cannot blink its status.
func openLight(sim bool, pin int) (hw.Light, io.Closer) {
	if !sim {
		l, err := hw.NewGPIOLight(pin)
		if err == nil {
			return l, l
		}
		slog.Warn("status led unavailable, continuing without it", "pin", pin, "error", err)
	}
	l := &hw.SimLight{}
	return l, l
}

// openHardware opens the touch sensor and the pixel strip.
func openHardware(cfg config.Config, sim bool) (hw.Sensor, animation.Display, io.Closer, error) {
	if sim {
		return hw.SimSensor{}, hw.NewSimDisplay(cfg.NumLEDs), closerFunc(func() error { return nil }), nil
	}

	bus, err := hw.OpenSPI(cfg.SPISpeed)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open spi: %w", err)
	}
	sensor, err := hw.NewADCSensor(bus, cfg.SensorChannel)
	if err != nil {
		bus.Close()
		return nil, nil, nil, fmt.Errorf("open sensor: %w", err)
	}
	strip := hw.NewStrip(bus, cfg.NumLEDs, cfg.LEDCorrection)
	closer := closerFunc(func() error {
		strip.SetAll(color.Off)
		if err := strip.Show(); err != nil {
			slog.Warn("blank strip on exit", "error", err)
		}
		sensor.Close()
		return bus.Close()
	})
	return sensor, strip, closer, nil
}
