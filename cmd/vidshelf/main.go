package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jdefrancesco/vidshelf/internal/config"
	"github.com/jdefrancesco/vidshelf/internal/playback"
	"github.com/jdefrancesco/vidshelf/internal/session"
	"github.com/jdefrancesco/vidshelf/internal/ui"
	"github.com/jdefrancesco/vidshelf/internal/vlog"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
)

func init() {

	// Custom help message
	flag.Usage = func() {
		fmt.Printf("Usage: vidshelf [options] [FOLDER]\n\n")
		flag.PrintDefaults()
	}
}

// Version
const ver = "0.1.0"

// signalHandler stops whatever is running so deferred cleanup can release
// the playback URLs.
func signalHandler(cancel context.CancelFunc, sig os.Signal) {
	vlog.Vlogger.Infof("Signal received: %v", sig)
	if sig == syscall.SIGINT {
		fmt.Fprintf(os.Stderr, "\r[!] SIGINT! Quitting...\n")
	}
	cancel()
	if ui.Program != nil {
		ui.Program.Quit()
	}
}

func main() {
	if err := run(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Default()

	// Parse command flags.
	var (
		flNoBanner    = flag.Bool("no-banner", false, "Do not show the vidshelf banner.")
		flShowVersion = flag.Bool("version", false, "Display version")
		flDepth       = flag.Int("depth", int(cfg.Depth), "Folder levels above each video: 2 (subject/chapter) or 3 (subject/branch/chapter).")
		flShowHidden  = flag.Bool("hidden", false, "Include hidden files and directories.")
		flMaxFileSize = flag.String("max-file-size", "", "Ignore files at or over this size, e.g. 8GiB. No limit by default.")
		flListen      = flag.String("listen", cfg.ListenAddr, "Address of the playback server.")
		flPlayer      = flag.String("player", "", "External player command started with the stream URL, e.g. \"mpv --force-window\".")
		flLogFile     = flag.String("log-file", cfg.LogFile, "Write logs to this file.")
		flLogLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error).")
		flVideoExts   = flag.String("ext", "", "Comma separated video extensions to use instead of the defaults.")
		flJSON        = flag.String("json", "", "With -list, export the catalog as JSON to this file.")
		flCSV         = flag.String("csv", "", "With -list, export the catalog as CSV to this file.")
		flList        = flag.Bool("list", false, "Print the catalog tree and exit instead of starting the browser.")
	)
	flag.Parse()

	if *flShowVersion {
		showVersion()
		return nil
	}

	depth, err := config.ParseDepth(*flDepth)
	if err != nil {
		return err
	}
	cfg.Depth = depth
	cfg.SkipHidden = !*flShowHidden
	cfg.ListenAddr = *flListen
	cfg.PlayerCmd = *flPlayer
	cfg.LogFile = *flLogFile
	cfg.LogLevel = *flLogLevel
	cfg.JSONOut = *flJSON
	cfg.CSVOut = *flCSV
	cfg.ListOnly = *flList
	if *flMaxFileSize != "" {
		if cfg.MaxFileSize, err = humanize.ParseBytes(*flMaxFileSize); err != nil {
			return fmt.Errorf("invalid -max-file-size: %w", err)
		}
	}
	if *flVideoExts != "" {
		cfg.VideoExtensions = config.ParseExtensions(*flVideoExts)
	}
	if flag.NArg() > 0 {
		cfg.Root = flag.Arg(0)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Initialize logger
	if err := vlog.InitializeVlogger(cfg.LogFile); err != nil {
		return err
	}
	if cfg.LogLevel != "" {
		if err := vlog.SetLevel(cfg.LogLevel); err != nil {
			return fmt.Errorf("invalid -log-level: %w", err)
		}
	}
	vlog.Vlogger.Info("Logger initialized")

	if !*flNoBanner && cfg.ListOnly {
		showHeader()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handler
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for sig := range sigChan {
			signalHandler(cancel, sig)
		}
	}()

	ln, err := playback.Listen(cfg.ListenAddr)
	if err != nil {
		return err
	}
	registry := playback.NewRegistry("http://" + ln.Addr().String())
	server := playback.NewServer(registry)
	go func() {
		if err := server.Serve(ln); err != nil {
			vlog.Vlogger.Errorf("Playback server stopped: %v", err)
		}
	}()

	sess := session.New(cfg, registry, playback.NewLauncher(cfg.PlayerCmd))
	defer func() {
		sess.Close()
		shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()
		if err := server.Shutdown(shutdownCtx); err != nil {
			vlog.Vlogger.Warnf("Playback server shutdown: %v", err)
		}
	}()

	if cfg.ListOnly {
		return listCatalog(ctx, sess)
	}
	return ui.LaunchTUI(sess)
}

// listCatalog scans the configured root once, prints the tree and writes any
// requested exports.
func listCatalog(ctx context.Context, sess *session.Session) error {
	cfg := sess.Config()

	start := time.Now()
	infoSpinner, _ := pterm.DefaultSpinner.Start("Scanning " + cfg.Root + "...")
	err := sess.ChooseFolder(ctx, sess.Selector(cfg.Root))
	if infoSpinner != nil {
		_ = infoSpinner.Stop()
	}
	if err != nil {
		return err
	}

	cat := sess.Machine().Catalog()
	if cat == nil {
		pterm.Warning.Println("Scan cancelled.")
		return nil
	}

	finalInfo := "Total of " + pterm.LightWhite(cat.EntryCount()) + " videos in " +
		pterm.LightWhite(len(cat.Subjects())) + " subjects found in " +
		pterm.LightWhite(time.Since(start).Round(time.Millisecond))
	pterm.Success.Println(finalInfo)

	if err := cat.ShowTree(); err != nil {
		return err
	}

	var errs []error
	if cfg.JSONOut != "" {
		if err := cat.WriteJSON(cfg.JSONOut); err != nil {
			errs = append(errs, fmt.Errorf("json export: %w", err))
		} else {
			pterm.Info.Printfln("Catalog written to %s", cfg.JSONOut)
		}
	}
	if cfg.CSVOut != "" {
		if err := cat.WriteCSV(cfg.CSVOut); err != nil {
			errs = append(errs, fmt.Errorf("csv export: %w", err))
		} else {
			pterm.Info.Printfln("Catalog written to %s", cfg.CSVOut)
		}
	}
	return errors.Join(errs...)
}

// showHeader prints colorful vidshelf banner.
func showHeader() {

	fmt.Println("")

	pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("vid", pterm.NewStyle(pterm.FgLightGreen)),
		putils.LettersFromStringWithStyle("shelf", pterm.NewStyle(pterm.FgLightWhite))).
		Render()
}

func showVersion() {
	fmt.Printf("Version: %s\n\n", ver)
}
