// main.go - Main entry point for the Cosmac Engine virtual machine

/*
(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/CosmacEngine
License: GPLv3 or later
*/

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

type engineOptions struct {
	debugger    bool
	fade        bool
	wrapSprites bool
	scale       int
	ips         int
	videoName   string
	audioName   string
	fontFile    string
	showVersion bool
	program     string
}

func boilerPlate() {
	fmt.Println("\nCosmac Engine - a CHIP-8 virtual machine for the desktop and the terminal.")
	fmt.Println("(c) 2024 - 2026 Zayn Otley")
	fmt.Println("https://github.com/IntuitionAmiga/CosmacEngine")
	fmt.Println("License: GPLv3 or later")
	fmt.Println()
}

func main() {
	opts, err := readArguments()
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if opts.showVersion {
		fmt.Printf("version: %s\n", buildinfo.Version(version, commit, date))
		os.Exit(0)
	}

	boilerPlate()
	logger := createLogger(opts.debugger)

	if err := run(logger, opts); err != nil {
		logger.Fatal(err.Error())
	}
}

func readArguments() (engineOptions, error) {
	opts := engineOptions{}

	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.BoolVar(&opts.debugger, "debugger", false, "run one instruction per resume and trace each to the log")
	flagSet.BoolVar(&opts.fade, "fade", true, "fade pixels out after they are cleared")
	flagSet.BoolVar(&opts.wrapSprites, "wrap-sprites", false, "wrap sprites around the display edges instead of clipping")
	flagSet.IntVar(&opts.scale, "scale", DEFAULT_WINDOW_SCALE, "window scale factor")
	flagSet.IntVar(&opts.ips, "ips", INSTRUCTIONS_PER_TICK*60, "instruction execution rate per second")
	flagSet.StringVar(&opts.videoName, "video", "ebiten", "video backend: ebiten or terminal")
	flagSet.StringVar(&opts.audioName, "audio", "oto", "audio backend: oto or none")
	flagSet.StringVar(&opts.fontFile, "font", "", "80 byte font file to use instead of the built-in font")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version information")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: ./cosmac_engine [options] program.ch8")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return opts, err
	}
	opts.program = flagSet.Arg(0)
	return opts, nil
}

func createLogger(debug bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	}
	return log.NewWithConfig(cfg)
}

func run(logger *log.Logger, opts engineOptions) error {
	ctx := app.Context()

	if opts.program == "" {
		return errors.New("no program file given, run with -h for usage")
	}
	if opts.ips < 1 {
		return errors.New("instruction rate must be positive")
	}

	var font *[FONT_SIZE]byte
	if opts.fontFile != "" {
		loaded, err := LoadFontFile(opts.fontFile)
		if err != nil {
			return fmt.Errorf("loading font '%s': %w", opts.fontFile, err)
		}
		font = loaded
	}

	program, err := os.ReadFile(opts.program)
	if err != nil {
		return fmt.Errorf("reading program '%s': %w", opts.program, err)
	}

	cpu := NewCPU_Chip8()
	if err := cpu.Load(font, program); err != nil {
		return fmt.Errorf("loading program '%s': %w", opts.program, err)
	}
	logger.Info("Program loaded",
		log.String("file", opts.program),
		log.Int("bytes", len(program)))

	display := NewDisplayBuffer(DisplayOptions{
		TrackChanges: opts.fade,
		WrapSprites:  opts.wrapSprites,
	})
	runner := NewChip8Runner(cpu, display, RunnerOptions{
		DebugMode: opts.debugger,
		// 60 ticks per second; round up so low rates still execute.
		InstructionsPerTick: (opts.ips + 59) / 60,
	})

	video, audio, err := createBackends(opts)
	if err != nil {
		return err
	}
	defer audio.Close()
	defer video.Close()

	renderer := NewFrameRenderer(DefaultColors(), opts.fade)
	runner.SetPresentHandler(func(d *DisplayBuffer) {
		if err := video.UpdateFrame(renderer.Render(d)); err != nil {
			logger.Error("Frame update failed", log.Err(err))
		}
	})
	runner.SetSoundHandler(audio.Trigger)

	keys := runner.Keyboard()
	video.SetKeypadHandler(func(key byte, down bool) {
		if down {
			keys.Hold(int(key))
		} else {
			keys.Release(int(key))
		}
	})

	// Backends invoke control handlers on their own goroutines; queue
	// the actions for the event loop instead of acting inline.
	controls := make(chan int, 8)
	video.SetControlHandler(func(action int) {
		select {
		case controls <- action:
		default:
		}
	})

	if err := video.Start(); err != nil {
		return fmt.Errorf("starting video: %w", err)
	}
	audio.Start()

	if err := runner.Start(); err != nil {
		return err
	}
	logger.Info("Machine started",
		log.String("video", opts.videoName),
		log.String("audio", opts.audioName))

	return eventLoop(ctx, logger, runner, video, controls)
}

func createBackends(opts engineOptions) (VideoOutput, AudioOutput, error) {
	videoBackend := VIDEO_BACKEND_EBITEN
	switch opts.videoName {
	case "ebiten":
	case "terminal":
		videoBackend = VIDEO_BACKEND_TERMINAL
	default:
		return nil, nil, fmt.Errorf("unknown video backend: %s", opts.videoName)
	}
	video, err := NewVideoOutput(videoBackend)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing video: %w", err)
	}
	if err := video.SetDisplayConfig(DisplayConfig{
		Width:  DISPLAY_WIDTH,
		Height: DISPLAY_HEIGHT,
		Scale:  opts.scale,
	}); err != nil {
		return nil, nil, fmt.Errorf("configuring video: %w", err)
	}

	audioBackend := AUDIO_BACKEND_OTO
	switch opts.audioName {
	case "oto":
	case "none":
		audioBackend = AUDIO_BACKEND_NONE
	default:
		return nil, nil, fmt.Errorf("unknown audio backend: %s", opts.audioName)
	}
	audio, err := NewAudioOutput(audioBackend)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing audio: %w", err)
	}
	return video, audio, nil
}

func eventLoop(ctx context.Context, logger *log.Logger, runner *Chip8Runner, video VideoOutput, controls <-chan int) error {
	ticker := time.NewTicker(TICK_INTERVAL)
	defer ticker.Stop()

	stop := func() {
		if !runner.Started() {
			return
		}
		if _, err := runner.Stop(); err != nil {
			logger.Error("Stop failed", log.Err(err))
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("Interrupted")
			stop()
			_ = drainMailbox(logger, runner)
			return nil

		case <-video.Done():
			stop()
			_ = drainMailbox(logger, runner)
			return nil

		case action := <-controls:
			switch action {
			case CONTROL_QUIT:
				stop()
				_ = drainMailbox(logger, runner)
				return nil
			case CONTROL_PAUSE:
				if runner.Suspended() {
					if err := runner.Resume(); err != nil {
						logger.Error("Resume failed", log.Err(err))
					} else {
						logger.Info("Resumed")
					}
				} else if runner.Started() {
					if err := runner.Suspend(); err != nil {
						logger.Error("Suspend failed", log.Err(err))
					} else {
						logger.Info("Suspended")
					}
				}
			case CONTROL_STEP:
				if runner.Suspended() {
					if err := runner.Resume(); err != nil {
						logger.Error("Step failed", log.Err(err))
					}
				}
			case CONTROL_RESET:
				stop()
				if err := runner.Reset(); err != nil {
					logger.Error("Reset failed", log.Err(err))
					continue
				}
				if err := runner.Start(); err != nil {
					return fmt.Errorf("restarting after reset: %w", err)
				}
				logger.Info("Machine reset")
			}

		case <-ticker.C:
			if err := drainMailbox(logger, runner); err != nil {
				stop()
				return err
			}
		}
	}
}

// drainMailbox empties the runner mailbox into the log, returning the
// first fatal error it sees.
func drainMailbox(logger *log.Logger, runner *Chip8Runner) error {
	for {
		msg, ok := runner.Message()
		if !ok {
			return nil
		}
		if msg.Trace != "" {
			logger.Debug(msg.Trace)
		}
		if msg.Err != nil {
			if fatalError(msg.Err) {
				return msg.Err
			}
			logger.Error("Execution fault, machine suspended", log.Err(msg.Err))
		}
	}
}
