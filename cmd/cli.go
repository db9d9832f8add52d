// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"spectrum/internal/config"
	"spectrum/pkg/build"
)

// Commands set on Config.Command instead of running the pipeline.
const (
	CommandList    = "list"
	CommandVersion = "version"
)

// flagValues receives the command line before it is merged over the loaded
// configuration. Only flags the user actually set override the file.
type flagValues struct {
	configPath string
	envPath    string

	device          int
	pick            bool
	file            string
	loop            bool
	sampleRate      float64
	framesPerBuffer int
	channels        int
	lowLatency      bool

	windowSize int
	transform  string
	fftWindow  string
	scale      string
	binCount   int
	loudness   float64

	tui      bool
	record   bool
	output   string
	interval time.Duration

	logFrames bool
	udp       string
	ws        string
	redis     string

	verbose  bool
	logLevel string
}

// ParseArgs parses args (without the program name), loads the .env and YAML
// configuration they point at and returns the merged result. A nil config
// with a nil error means cobra already handled the invocation (--help).
func ParseArgs(args []string, out io.Writer) (*config.Config, error) {
	buildInfo := build.GetBuildFlags()
	var (
		v      flagValues
		result *config.Config
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd, &v)
			if err != nil {
				return err
			}
			result = cfg
			return nil
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// One-off commands still load the config so log settings apply.
	oneOff := func(name, short string) *cobra.Command {
		return &cobra.Command{
			Use:   name,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := load(cmd, &v)
				if err != nil {
					return err
				}
				cfg.Command = name
				result = cfg
				return nil
			},
		}
	}
	rootCmd.AddCommand(
		oneOff(CommandList, "List available audio devices"),
		oneOff(CommandVersion, "Print build information"),
	)

	pf := rootCmd.PersistentFlags()

	// Configuration sources
	pf.StringVarP(&v.configPath, "config", "C", "", "YAML configuration file (default: ./config.yaml if present)")
	pf.StringVar(&v.envPath, "env", ".env", "dotenv file with ENV_* overrides")

	// Audio input
	pf.IntVarP(&v.device, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	pf.BoolVar(&v.pick, "pick", false, "Choose the input device interactively")
	pf.StringVarP(&v.file, "file", "f", "", "Analyse a wav, aiff, mp3 or ogg file instead of a device")
	pf.BoolVar(&v.loop, "loop", false, "Restart the file at the end")
	pf.Float64VarP(&v.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	pf.IntVarP(&v.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	pf.IntVarP(&v.channels, "channels", "c", config.DefaultInputChannels,
		"Number of channels to capture before mixdown")
	pf.BoolVarP(&v.lowLatency, "low-latency", "l", false,
		"Use low latency mode for real-time processing")

	// Analysis
	pf.IntVarP(&v.windowSize, "window", "w", 0, "Analysis window in samples (power of two)")
	pf.StringVarP(&v.transform, "transform", "t", "", "Transform: fft or resonator")
	pf.StringVar(&v.fftWindow, "fft-window", "", "FFT window function (e.g. Hann, Blackman)")
	pf.StringVar(&v.scale, "scale", "", "Bin layout: linear or log")
	pf.IntVar(&v.binCount, "bins", 0, "Number of output bins (0 for the natural count)")
	pf.Float64Var(&v.loudness, "loudness", 0, "Equal-loudness correction strength, 0 to 1")

	// Output
	pf.BoolVar(&v.tui, "tui", false, "Render the spectrum in the terminal")
	pf.BoolVarP(&v.record, "record", "r", false, "Record the mono input to WAV files")
	pf.StringVarP(&v.output, "output", "o", "", "Directory for recordings")
	pf.DurationVar(&v.interval, "interval", 0, "Frame publish interval (e.g. 33ms)")
	pf.BoolVar(&v.logFrames, "log-frames", false, "Log a summary of published frames")
	pf.StringVar(&v.udp, "udp", "", "Send binary frames to this UDP host:port")
	pf.StringVar(&v.ws, "ws", "", "Serve JSON frames to WebSocket clients on this address")
	pf.StringVar(&v.redis, "redis", "", "Publish JSON frames to the Redis server at this address")

	// Debug Configuration
	pf.BoolVarP(&v.verbose, "verbose", "v", false, "Show verbose output")
	pf.StringVar(&v.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return result, nil
}

// load reads .env and YAML, then lays the flags the user set over them.
func load(cmd *cobra.Command, v *flagValues) (*config.Config, error) {
	if err := config.LoadEnvFile(v.envPath); err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(v.configPath)
	if err != nil {
		return nil, err
	}

	set := cmd.Flags().Changed
	if set("device") {
		cfg.Audio.InputDevice = v.device
	}
	if set("pick") {
		cfg.Audio.Pick = v.pick
	}
	if set("file") {
		cfg.Audio.File = v.file
	}
	if set("loop") {
		cfg.Audio.Loop = v.loop
	}
	if set("sample-rate") {
		cfg.Audio.SampleRate = v.sampleRate
	}
	if set("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = v.framesPerBuffer
	}
	if set("channels") {
		cfg.Audio.InputChannels = v.channels
	}
	if set("low-latency") {
		cfg.Audio.LowLatency = v.lowLatency
	}

	if set("window") {
		cfg.Analysis.WindowSize = v.windowSize
	}
	if set("transform") {
		cfg.Analysis.Transform = v.transform
	}
	if set("fft-window") {
		cfg.Analysis.FFTWindow = v.fftWindow
	}
	if set("scale") {
		cfg.Analysis.Scale = v.scale
	}
	if set("bins") {
		cfg.Analysis.BinCount = v.binCount
	}
	if set("loudness") {
		cfg.Analysis.LoudnessStrength = v.loudness
	}

	if set("tui") {
		cfg.TUI = v.tui
	}
	if set("record") {
		cfg.Recording.Enabled = v.record
	}
	if set("output") {
		cfg.Recording.OutputDir = v.output
	}
	if set("interval") {
		cfg.Transport.Interval = v.interval
	}
	if set("log-frames") {
		cfg.Transport.LogEnabled = v.logFrames
	}
	if set("udp") {
		cfg.Transport.UDPEnabled = true
		cfg.Transport.UDPTargetAddress = v.udp
	}
	if set("ws") {
		cfg.Transport.WebSocketEnabled = true
		cfg.Transport.WebSocketAddress = v.ws
	}
	if set("redis") {
		cfg.Transport.RedisEnabled = true
		cfg.Transport.RedisAddress = v.redis
	}

	if set("log-level") {
		cfg.LogLevel = v.logLevel
	}
	if v.verbose {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}

	// Flags can reintroduce bad values.
	cfg.Sanitize()
	return cfg, nil
}

// Version formats the version command's output.
func Version() string {
	f := build.GetBuildFlags()
	return fmt.Sprintf("%s\ninstance %s\n", f, f.Instance)
}
