// Command octowatchd is the daemon entrypoint: it wires the DMA heap,
// camera pipeline, hardware encoders, stream adapters, remote-control
// server, thermal watchdog, and orchestrator together, then waits for
// SIGINT.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/octowatch/videoservice/camera"
	"github.com/octowatch/videoservice/cpujpeg"
	"github.com/octowatch/videoservice/dmaheap"
	"github.com/octowatch/videoservice/encoder"
	"github.com/octowatch/videoservice/internal/config"
	"github.com/octowatch/videoservice/internal/logging"
	"github.com/octowatch/videoservice/orchestrator"
	"github.com/octowatch/videoservice/remotecontrol"
	"github.com/octowatch/videoservice/stream/h264"
	"github.com/octowatch/videoservice/stream/mjpeg"
	"github.com/octowatch/videoservice/watchdog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "octowatchd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	log := logging.New(cfg.LogLevel)

	framework, err := newFramework(log)
	if err != nil {
		return fmt.Errorf("camera framework: %w", err)
	}

	heap, err := dmaheap.Open(log)
	if err != nil {
		return fmt.Errorf("open dma heap: %w", err)
	}
	defer heap.Close()

	pipeline := camera.New(framework, heap, log)
	if err := pipeline.Initialize(); err != nil {
		return fmt.Errorf("initialize camera pipeline: %w", err)
	}

	jpegQuality := cfg.JPEGQuality(log)
	useCPUJPEG := cfg.UseCPUJPEGEncoder()

	// orch is referenced by the adapter factories below, closing the loop
	// between each adapter's subscriber-change callback and the
	// orchestrator that reacts to it; it is assigned before either factory
	// can run.
	var orch *orchestrator.Orchestrator

	newH264Adapter := func() (orchestrator.StreamAdapter, error) {
		enc, err := encoder.NewH264(cfg.H264Device, log)
		if err != nil {
			return nil, fmt.Errorf("open h264 encoder: %w", err)
		}
		return h264.New(enc, orch.OnH264SubscriberChange, log), nil
	}
	newMJPEGAdapter := func() (orchestrator.StreamAdapter, error) {
		var enc mjpeg.Encoder
		if useCPUJPEG {
			enc = cpujpeg.New(jpegQuality, log)
		} else {
			hwEnc, err := encoder.NewJPEG(cfg.JPEGDevice, jpegQuality, log)
			if err != nil {
				return nil, fmt.Errorf("open jpeg encoder: %w", err)
			}
			enc = hwEnc
		}
		return mjpeg.New(enc, orch.OnMJPEGSubscriberChange, log), nil
	}

	orch = orchestrator.New(
		pipeline,
		newH264Adapter, newMJPEGAdapter,
		fmt.Sprintf(":%d", cfg.H264Port),
		fmt.Sprintf(":%d", cfg.MJPEGPort),
		log,
	)
	if err := orch.Start(); err != nil {
		return fmt.Errorf("start stream adapters: %w", err)
	}
	defer orch.Close()

	rc := remotecontrol.New(pipeline.Capabilities(), log)
	if err := rc.Listen(fmt.Sprintf(":%d", cfg.ControlPort)); err != nil {
		return fmt.Errorf("start remote control server: %w", err)
	}
	defer rc.Close()

	wd := watchdog.New(watchdog.SemaphorePath(), orch.OnThermalChange, log)
	wd.Start()
	defer wd.Stop()

	log.Info().Msg("octowatchd started")
	waitForSignal()
	log.Info().Msg("octowatchd shutting down")
	return nil
}

func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}

// newFramework is the seam a production build would fill in with a real
// camera-framework binding (libcamera or an equivalent request/completion
// API). No such binding exists in this module: camera.Pipeline is built
// and tested entirely against the camera.Framework interface and its test
// fake, so this always fails fast rather than silently running against a
// fake in production.
func newFramework(log zerolog.Logger) (camera.Framework, error) {
	return nil, fmt.Errorf("no camera framework binding is configured for this platform")
}
