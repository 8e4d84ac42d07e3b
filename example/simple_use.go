package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/leandrodaf/posemidi/internal/logger"
	"github.com/leandrodaf/posemidi/sdk/contracts"
	"github.com/leandrodaf/posemidi/sdk/posemidi"
)

// Pose frames are read from stdin, one JSON array per line, e.g.
//
//	[{"x":0.5,"y":0.2,"visibility":0.98}, null, ...]
func main() {
	inputID := flag.Int("in", 0, "trigger input device ID")
	outputID := flag.Int("out", 0, "note output device ID")
	configPath := flag.String("config", "posemidi.json", "tracking config file")
	backend := flag.String("backend", "", "input backend: native or rtmidi")
	flag.Parse()

	log := logger.NewZapLogger()

	opts := []contracts.Option{
		contracts.WithLogger(log),
		contracts.WithLogLevel(contracts.InfoLevel),
		contracts.WithConfigPath(*configPath),
	}
	if *backend != "" {
		opts = append(opts, contracts.WithInputBackend(contracts.InputBackend(*backend)))
	}

	runner, err := posemidi.NewRunner(opts...)
	if err != nil {
		log.Error("Failed to initialize runner", log.Field().Error("error", err))
		os.Exit(1)
	}
	defer runner.Stop()

	inputs, _ := runner.ListInputs()
	outputs, _ := runner.ListOutputs()
	fmt.Println("Inputs:", inputs)
	fmt.Println("Outputs:", outputs)

	if err := runner.SelectInput(*inputID); err != nil {
		log.Error("Failed to select input", log.Field().Error("error", err))
		return
	}
	if err := runner.SelectOutput(*outputID); err != nil {
		log.Error("Failed to select output", log.Field().Error("error", err))
		return
	}

	// Play the left wrist on channel 1 when channel 1 is triggered, unless a
	// saved config already says otherwise.
	if !runner.Tracking()[posemidi.LeftWrist].Active() {
		ch, m := contracts.Channel(1), posemidi.ModeXY
		if err := runner.UpdateTracking(posemidi.LeftWrist, posemidi.TrackingPatch{
			TriggerChannel: &ch,
			OutputChannel:  &ch,
			OutputMapper:   &m,
		}); err != nil {
			log.Error("Failed to configure tracking", log.Field().Error("error", err))
			return
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			frame, err := posemidi.DecodeFrame(scanner.Bytes())
			if err != nil {
				log.Warn("Skipping pose frame", log.Field().Error("error", err))
				continue
			}
			runner.UpdatePose(frame)
		}
	}()

	fmt.Println("Reading pose frames from stdin... Press Ctrl+C to exit.")
	if err := runner.Run(ctx); err != nil {
		log.Error("Runner failed", log.Field().Error("error", err))
	}
}
