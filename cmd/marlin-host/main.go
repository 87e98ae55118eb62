// marlin-host runs the G-code command intake as a host process: it
// assembles command lines from serial, websocket, and MQTT ports plus
// stored print jobs, runs the line-number/checksum protocol with
// resend recovery, and dispatches commands to the interpreter.
//
// Usage:
//
//	marlin-host -config host.cfg [options]
//
// Options:
//
//	-config string  Host configuration file (required)
//	-trace          Enable debug tracing
//	-logfile string Log file path (default: stdout)
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"marlin-go-migration/pkg/config"
	"marlin-go-migration/pkg/gcode"
	"marlin-go-migration/pkg/host"
	"marlin-go-migration/pkg/log"
	"marlin-go-migration/pkg/media"
	"marlin-go-migration/pkg/metrics"
	"marlin-go-migration/pkg/port"
	"marlin-go-migration/pkg/queue"
)

func main() {
	configFile := flag.String("config", "", "Host configuration file (required)")
	trace := flag.Bool("trace", false, "Enable debug tracing")
	logFile := flag.String("logfile", "", "Log file path (default: stdout)")
	flag.Parse()

	if *configFile == "" {
		fmt.Fprintf(os.Stderr, "Error: -config is required\n")
		flag.Usage()
		os.Exit(1)
	}

	logger := log.GetLogger("main")
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logger.SetWriter(f)
		logger.SetColorize(false)
	}
	if *trace {
		logger.SetLevel(log.DEBUG)
	}
	log.SetDefaultLogger(logger)

	logger.Info("marlin host starting")

	cfg, err := config.LoadHost(*configFile)
	if err != nil {
		logger.WithError(err).Error("config load failed")
		os.Exit(1)
	}

	reg := metrics.NewRegistry()
	stats := metrics.NewIntake(reg)

	planner := gcode.NewPlanner(gcode.DefaultPlannerSlots)
	exec := gcode.NewExecutor(planner)

	q := queue.New(queue.Config{
		BufSize:           cfg.Intake.BufSize,
		MaxCommandSize:    cfg.Intake.MaxCommandSize,
		RuntimeInjectSize: cfg.Intake.RuntimeInjectSize,
		RequireChecksum:   cfg.Intake.RequireChecksum,
	}, exec)
	q.SetPlanner(planner)
	q.SetMetrics(stats)

	for _, sc := range cfg.Serial {
		sp, err := port.OpenSerial(port.SerialConfig{
			Device:   sc.Device,
			BaudRate: sc.BaudRate,
			RxSize:   sc.RxSize,
		})
		if err != nil {
			logger.WithError(err).Error("serial port open failed")
			os.Exit(1)
		}
		defer sp.Close()
		q.AttachPort(sp)
		logger.Info("serial port attached: %s @ %d", sc.Device, sc.BaudRate)
	}

	if cfg.Web.Enabled {
		ws := port.NewWSPort("websocket")
		q.AttachPort(ws)
		mux := http.NewServeMux()
		mux.Handle("/ws", ws)
		mux.Handle("/metrics", stats.Handler())
		go func() {
			logger.Info("web listener on %s", cfg.Web.Listen)
			if err := http.ListenAndServe(cfg.Web.Listen, mux); err != nil {
				logger.WithError(err).Error("web listener failed")
			}
		}()
	}

	if cfg.MQTT.Enabled {
		mp, err := port.OpenMQTT(port.MQTTConfig{
			Broker:        cfg.MQTT.Broker,
			ClientID:      cfg.MQTT.ClientID,
			CommandTopic:  cfg.MQTT.CommandTopic,
			ResponseTopic: cfg.MQTT.ResponseTopic,
		})
		if err != nil {
			logger.WithError(err).Error("mqtt port open failed")
			os.Exit(1)
		}
		defer mp.Close()
		q.AttachPort(mp)
	}

	if cfg.Media.JobFile != "" {
		job, err := media.Open(cfg.Media.JobFile)
		if err != nil {
			logger.WithError(err).Error("media job open failed")
			os.Exit(1)
		}
		q.SetMedia(job)
		if cfg.Media.AutoStart {
			job.Start()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loop := host.NewLoop(q, planner, cfg.CycleHz)
	if err := loop.Run(ctx); err != nil && err != context.Canceled {
		logger.WithError(err).Error("control loop failed")
		os.Exit(1)
	}
	logger.Info("marlin host stopped")
}
