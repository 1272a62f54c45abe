package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/cbodonnell/cloudflight/pkg/client/network"
	"github.com/cbodonnell/cloudflight/pkg/client/prediction"
	"github.com/cbodonnell/cloudflight/pkg/client/remote"
	"github.com/cbodonnell/cloudflight/pkg/kinematic"
	"github.com/cbodonnell/cloudflight/pkg/log"
	"github.com/cbodonnell/cloudflight/pkg/version"
)

// framesPerHUD logs telemetry once a second at 60 frames per second
const framesPerHUD = 60

func main() {
	serverURL := flag.String("url", network.DefaultServerURL, "Server websocket URL")
	pattern := flag.String("pattern", "orbit", "Scripted flight pattern (cruise, climb or orbit)")
	duration := flag.Duration("duration", 0, "How long to fly, 0 flies until interrupted")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}
	log.SetDefaultLogger(log.NewConsole(os.Stdout, parsedLogLevel))

	source, err := flightPattern(*pattern)
	if err != nil {
		panic(err.Error())
	}

	log.Info("Starting cloudflight client version %s", version.Get())
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	client, err := network.Dial(ctx, *serverURL, network.DialOptions{
		Predictor: prediction.NewPredictor(prediction.NewPredictorOptions{Terrain: rollingHills}),
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to connect: %v", err))
	}
	defer client.Close()

	connErr := make(chan error, 1)
	go func() {
		connErr <- client.HandleMessages(ctx)
	}()

	flyErr := make(chan error, 1)
	go func() {
		flyErr <- client.Fly(ctx, source, func(frame int, state kinematic.FlightState) {
			if frame%framesPerHUD != 0 {
				return
			}
			registry := client.Registry()
			log.Info("HUD alt=%.0fm hdg=%03.0f spd=%.0fm/s players=%d visible=%d",
				state.Position.Y,
				kinematic.Heading(state.Rotation),
				kinematic.Airspeed(state.Velocity),
				registry.PlayerCount(),
				registry.InRange(state.Position, remote.RadarRange),
			)
		})
	}()

	select {
	case err := <-connErr:
		if ctx.Err() == nil {
			log.Error("Disconnected: %v", err)
			os.Exit(1)
		}
	case err := <-flyErr:
		if err != nil {
			log.Error("Flight aborted: %v", err)
			os.Exit(1)
		}
	}
	log.Info("Landed")
}

// flightPattern returns a scripted input source standing in for a pilot.
func flightPattern(name string) (network.InputSource, error) {
	switch name {
	case "cruise":
		return func(int) kinematic.Input {
			return kinematic.Input{Throttle: 0.8}
		}, nil
	case "climb":
		return func(frame int) kinematic.Input {
			// climb for ten seconds, then level off
			if frame < 600 {
				return kinematic.Input{Throttle: 1, VerticalInput: 1}
			}
			return kinematic.Input{Throttle: 1}
		}, nil
	case "orbit":
		return func(int) kinematic.Input {
			return kinematic.Input{Yaw: 0.1, Throttle: 0.6}
		}, nil
	default:
		return nil, fmt.Errorf("unknown flight pattern %s", name)
	}
}

func rollingHills(x, z float64) float64 {
	return 100 + 100*math.Sin(x/5000)*math.Cos(z/5000)
}
