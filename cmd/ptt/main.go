package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomw/ptt/internal/api"
	"github.com/tomw/ptt/internal/audio"
	"github.com/tomw/ptt/internal/config"
	"github.com/tomw/ptt/internal/controller"
	"github.com/tomw/ptt/internal/history"
	"github.com/tomw/ptt/internal/input"
	"github.com/tomw/ptt/internal/output"
	"github.com/tomw/ptt/internal/transcription"
	"github.com/tomw/ptt/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML config file")
	device := flag.String("device", "", "Capture device name or index (overrides config)")
	key := flag.String("key", "", "Trigger key (overrides config)")
	language := flag.String("language", "", "Transcription language code (overrides config)")
	typeText := flag.Bool("type", false, "Type recognized text into the focused window")
	listDevices := flag.Bool("list-devices", false, "List capture devices and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *device != "" {
		cfg.Audio.Device = *device
	}
	if *key != "" {
		cfg.Input.TriggerKey = *key
	}
	if *language != "" {
		cfg.Transcription.Language = *language
	}
	if *typeText {
		cfg.Output.TypeText = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, *listDevices, log); err != nil {
		log.Error("Exiting with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, listDevices bool, log *logger.Logger) error {
	host, err := audio.NewPortAudioHost(log)
	if err != nil {
		return fmt.Errorf("failed to initialize audio host: %w", err)
	}
	defer host.Terminate()

	if listDevices {
		return printDevices(host)
	}

	// The level cell is written from the capture callback and read by the
	// status API and websocket level feed.
	level := &audio.LevelCell{}
	recorder := audio.NewRecorder(host, audio.StreamConfig{
		Device:     cfg.Audio.Device,
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
		BlockSize:  cfg.Audio.BlockSize,
	}, func(block []int16) {
		level.Set(audio.RMSLevel(block))
	}, log)

	engine, err := transcription.New(transcription.Config{
		Backend:        cfg.Transcription.Backend,
		APIKey:         cfg.Transcription.APIKey,
		Model:          cfg.Transcription.Model,
		Endpoint:       cfg.Transcription.Endpoint,
		SampleRate:     cfg.Audio.SampleRate,
		TimeoutSeconds: cfg.Transcription.TimeoutSeconds,
		MaxRetries:     cfg.Transcription.MaxRetries,
		RetryBackoffMs: cfg.Transcription.RetryBackoffMs,
	}, log)
	if err != nil {
		return err
	}

	var notifier *output.Notifier
	if cfg.Output.Notifications {
		notifier = output.NewNotifier(log)
	}
	dispatcher := output.NewDispatcher(buildSinks(cfg, log), notifier, log)

	listeners := []controller.Events{dispatcher, levelEvents{cell: level}}

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.NewStore(cfg.History.DBPath, cfg.History.MaxEntries, log)
		if err != nil {
			return err
		}
		defer store.Close()
		listeners = append(listeners, history.NewEventSink(store, log))
	}

	// The hub reports controller state, and the controller broadcasts through
	// the hub. The status closure late-binds ctrl to break the cycle; it is
	// only called once the server is up, well after ctrl is assigned.
	var ctrl *controller.Controller
	status := func() api.Status {
		return api.Status{
			State: ctrl.State().String(),
			Level: level.Load(),
		}
	}

	var hub *api.Hub
	if cfg.Server.Enabled {
		hub = api.NewHub(status, log)
		listeners = append(listeners, hub)
	}

	ctrl = controller.New(recorder, engine, controller.Multi(listeners...), controller.Config{
		SampleRate:     cfg.Audio.SampleRate,
		Language:       cfg.Transcription.Language,
		ReleaseTimeout: cfg.Controller.ReleaseTimeout(),
		MinDuration:    cfg.Controller.MinDuration(),
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	source := input.NewTerminalSource(cfg.Input.TriggerKey[0], log)
	g.Go(func() error {
		err := ctrl.Run(ctx, source)
		stop()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if cfg.Server.Enabled {
		router := api.NewRouter(status, host.Devices, store, hub, log)
		server := &http.Server{
			Addr:    cfg.Server.Addr,
			Handler: router.Routes(),
		}

		g.Go(func() error {
			hub.Run(ctx.Done())
			return nil
		})
		g.Go(func() error {
			log.Info("Local API listening", logger.String("addr", cfg.Server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	log.Info("Push-to-talk ready",
		logger.String("trigger_key", cfg.Input.TriggerKey),
		logger.String("backend", cfg.Transcription.Backend))

	return g.Wait()
}

// buildSinks assembles the output chain from the configuration
func buildSinks(cfg *config.Config, log *logger.Logger) []output.Sink {
	var sinks []output.Sink
	if cfg.Output.Print {
		sinks = append(sinks, output.NewPrintSink(os.Stdout))
	}
	if cfg.Output.File != "" {
		sinks = append(sinks, output.NewFileSink(cfg.Output.File))
	}
	if cfg.Output.Clipboard {
		sinks = append(sinks, output.NewClipboardSink())
	}
	if cfg.Output.TypeText {
		sinks = append(sinks, output.NewTypeSink(log))
	}
	return sinks
}

func printDevices(host *audio.PortAudioHost) error {
	devices, err := host.Devices()
	if err != nil {
		return err
	}
	for _, d := range devices {
		marker := " "
		if d.IsDefault {
			marker = "*"
		}
		fmt.Printf("%s %3d  %s\n", marker, d.Index, d.Name)
	}
	return nil
}

// levelEvents clears the level meter when a recording ends
type levelEvents struct {
	controller.NopEvents
	cell *audio.LevelCell
}

func (e levelEvents) RecordingStopped(time.Duration) {
	e.cell.Reset()
}
