package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"go-pianoroll/config"
	"go-pianoroll/debug"
	"go-pianoroll/instrument"
	"go-pianoroll/midi"
	"go-pianoroll/sequencer"
	"go-pianoroll/storage"
	"go-pianoroll/theme"
	"go-pianoroll/tui"
)

var version = "dev"

var flags struct {
	config     string
	logFile    string
	logLevel   string
	ephemeral  bool
	dataDir    string
	instrument string
	soundFont  string
	midiIn     string
	workspace  int
}

var rootCmd = &cobra.Command{
	Use:   "go-pianoroll",
	Short: "A terminal piano roll for practising with a MIDI keyboard",
	Long: `go-pianoroll is a piano-roll sequencer for the terminal.

Place notes on a grid of rows and pitches, play them back at a fixed tempo,
or let playback wait until you hold the right keys on a MIDI keyboard.
Up to ten workspaces are saved between runs.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runPianoRoll,
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI input and output ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ins, outs, ok := midi.Ports(3 * time.Second)
		if !ok {
			return fmt.Errorf("timed out listing MIDI ports")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Inputs:")
		for i, name := range ins {
			fmt.Fprintf(cmd.OutOrStdout(), "  %d: %s\n", i, name)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Outputs:")
		for i, name := range outs {
			fmt.Fprintf(cmd.OutOrStdout(), "  %d: %s\n", i, name)
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <file.mid>",
	Short: "Write a saved workspace as a Standard MIDI File",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flags.config, "config", "",
		"Config file (default ~/.config/go-pianoroll/config.json)")
	rootCmd.PersistentFlags().StringVarP(&flags.logFile, "log", "l", "",
		"Log file (default ~/.config/go-pianoroll/debug.log)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "",
		"Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&flags.ephemeral, "ephemeral", false,
		"Keep workspaces in memory only")
	rootCmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "",
		"Directory for saved workspaces")
	rootCmd.Flags().StringVarP(&flags.instrument, "instrument", "i", "",
		"Sound source: synth, midi or silent")
	rootCmd.Flags().StringVar(&flags.soundFont, "soundfont", "",
		"SoundFont (.sf2) for the synth instrument")
	rootCmd.Flags().StringVar(&flags.midiIn, "midi-in", "",
		"Prefer the MIDI input whose name contains this text")
	exportCmd.Flags().IntVarP(&flags.workspace, "workspace", "w", 1,
		"Workspace number to export (1-10)")

	rootCmd.AddCommand(portsCmd, exportCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, sequencer.UserMessage(err))
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies flag overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.config != "" {
		cfg, err = config.LoadFrom(flags.config)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if f := cmd.Flags(); f.Changed("instrument") {
		cfg.Instrument.Kind = config.InstrumentKind(flags.instrument)
	}
	if flags.soundFont != "" {
		cfg.Instrument.SoundFont = flags.soundFont
	}
	if flags.midiIn != "" {
		cfg.MIDI.Preferred = flags.midiIn
	}
	if flags.dataDir != "" {
		cfg.DataDir = flags.dataDir
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (storage.Store, error) {
	if flags.ephemeral {
		return storage.NewMemoryStore(), nil
	}
	dir, err := cfg.ResolveDataDir()
	if err != nil {
		return nil, err
	}
	return storage.NewFileStore(dir)
}

func runPianoRoll(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := debug.Init(cfg.LogLevel, flags.logFile); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer debug.Disable()
	log := debug.For("main")

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("data dir: %w", err)
	}
	palette, err := theme.LoadOrDefault(cfg.UI.Palette)
	if err != nil {
		log.Warn("palette unavailable, using the default", "err", err)
		palette = theme.Default()
	}

	inst, err := instrument.Open(cfg.Instrument)
	if err != nil {
		log.Warn("instrument unavailable, running silent", "kind", cfg.Instrument.Kind, "err", err)
		inst = instrument.Silent{}
	}
	defer inst.Close()

	var conn *midi.Connection
	if access, err := midi.NewRtMIDI(); err != nil {
		log.Warn("MIDI unavailable", "err", err)
	} else {
		defer access.Close()
		conn = midi.NewConnection(access, cfg.MIDI.Preferred)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	mgr := sequencer.NewManager(sequencer.Options{
		Octaves:      cfg.UI.Octaves,
		Store:        store,
		Instrument:   inst,
		DefaultTempo: cfg.UI.DefaultTempo,
		MIDI:         conn,
	})
	go mgr.Run(ctx)
	if conn != nil && cfg.MIDI.AutoConnect {
		go mgr.ConnectMIDI(ctx)
	}

	m := tui.NewModel(ctx, mgr, theme.New(palette))
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx))
	_, runErr := p.Run()

	cancel()
	if err := mgr.Close(); err != nil {
		log.Error("saving workspaces failed", "err", err)
		if runErr == nil {
			runErr = fmt.Errorf("save workspaces: %w", err)
		}
	}
	return runErr
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("data dir: %w", err)
	}

	mgr := sequencer.NewManager(sequencer.Options{Octaves: cfg.UI.Octaves, Store: store})
	if err := mgr.ExportWorkspace(flags.workspace-1, args[0]); err != nil {
		return fmt.Errorf("workspace %d: %w", flags.workspace, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", args[0])
	return nil
}
