// Command adcmon samples an ADC channel continuously, averages every batch,
// calibrates the average into a temperature and a voltage and reports it at a
// fixed cadence.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/itohio/adcmon/pkg/calib"
	"github.com/itohio/adcmon/pkg/config"
	"github.com/itohio/adcmon/pkg/engine"
	"github.com/itohio/adcmon/pkg/logging"
	"github.com/itohio/adcmon/pkg/meter"
	"github.com/itohio/adcmon/pkg/notify"
	"github.com/itohio/adcmon/pkg/output"
)

func main() {
	var (
		configFlag    = flag.String("config", "config.yaml", "Configuration file path")
		portFlag      = flag.String("p", "", "Serial port override for the uart source (e.g., COM3 or /dev/ttyACM0)")
		engineFlag    = flag.String("engine", "", "Conversion source override: sim, uart or ads1115")
		variantFlag   = flag.String("variant", "", "Calibration variant override: cubic or linear")
		intervalFlag  = flag.Duration("interval", 0, "Reporting interval override (e.g., 1s)")
		logLevelFlag  = flag.String("log-level", "", "Log level override: debug, info, warn, error")
		listPortsFlag = flag.Bool("list-ports", false, "List serial ports and exit")
		writeFlag     = flag.Bool("write-config", false, "Write the effective configuration to -config and exit")
	)
	flag.Parse()

	if *listPortsFlag {
		if err := listPorts(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *engineFlag != "" {
		cfg.Engine.Source = *engineFlag
	}
	if *variantFlag != "" {
		cfg.Calibration.Variant = *variantFlag
	}
	if *intervalFlag > 0 {
		cfg.Report.Interval = *intervalFlag
	}
	if *logLevelFlag != "" {
		cfg.Log.Level = *logLevelFlag
	}

	log, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log configuration: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "config", *configFlag, "err", err)
		os.Exit(1)
	}

	if *writeFlag {
		if err := cfg.Save(*configFlag); err != nil {
			log.Error("failed to write configuration", "err", err)
			os.Exit(1)
		}
		log.Info("configuration written", "config", *configFlag)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		op := "run"
		var fatal *meter.FatalError
		if errors.As(err, &fatal) {
			op = fatal.Op
		}
		log.Error("fatal", "op", op, "err", err)
		stop()
		os.Exit(1)
	}
}

// run wires the pipeline and blocks until ctx is done or the drain loop fails.
func run(ctx context.Context, cfg *config.Config, log *slog.Logger) (err error) {
	cal, err := calib.New(cfg.Calibration, cfg.Engine.BitWidth)
	if err != nil {
		return &meter.FatalError{Op: "calibration", Err: err}
	}

	outs, err := openOutputs(cfg.Outputs, log)
	if err != nil {
		return &meter.FatalError{Op: "output open", Err: err}
	}
	defer func() {
		if cerr := outs.Close(); cerr != nil {
			log.Warn("failed to close outputs", "err", cerr)
		}
	}()

	eng, err := engine.Open(cfg, log)
	if err != nil {
		return &meter.FatalError{Op: "engine init", Err: err}
	}
	defer func() {
		if derr := eng.Deinit(); derr != nil && err == nil {
			err = &meter.FatalError{Op: "engine deinit", Err: derr}
		}
	}()

	sig := notify.New()
	if err := eng.RegisterCallbacks(engine.Callbacks{OnConvDone: sig.Give}); err != nil {
		return &meter.FatalError{Op: "engine register callbacks", Err: err}
	}

	m := meter.New(eng, eng.Config(), sig, cal, meter.NewInterval(cfg.Report.Interval), log)
	m.OnUpdate(func(r output.Report) {
		if err := outs.Publish(r); err != nil {
			log.Warn("failed to publish reading", "err", err)
		}
	})

	if err := eng.Start(); err != nil {
		return &meter.FatalError{Op: "engine start", Err: err}
	}
	log.Info("sampling started",
		"source", cfg.Engine.Source,
		"rate", cfg.Engine.SampleRate,
		"unit", cfg.Engine.Unit,
		"channel", cfg.Engine.Channel,
		"bits", cfg.Engine.BitWidth,
		"variant", cfg.Calibration.Variant,
		"interval", cfg.Report.Interval,
	)

	runErr := m.Run(ctx)

	if err := eng.Stop(); err != nil && runErr == nil {
		runErr = &meter.FatalError{Op: "engine stop", Err: err}
	}
	log.Info("sampling stopped", "overflows", eng.Overflows())

	return runErr
}

// openOutputs creates the configured outputs. Outputs opened before a failure are closed.
func openOutputs(cfgs []config.OutputConfig, log *slog.Logger) (output.Multi, error) {
	outs := make(output.Multi, 0, len(cfgs))
	for i, oc := range cfgs {
		o, err := newOutput(oc, log)
		if err != nil {
			outs.Close()
			return nil, fmt.Errorf("outputs[%d] %s: %w", i, oc.Type, err)
		}
		outs = append(outs, o)
	}
	return outs, nil
}

func listPorts() error {
	ports, err := engine.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p.Name)
	}
	return nil
}
