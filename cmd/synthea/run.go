package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/liuscraft/synthea/internal/audio"
	"github.com/liuscraft/synthea/internal/board"
	"github.com/liuscraft/synthea/internal/config"
	"github.com/liuscraft/synthea/internal/logging"
	"github.com/liuscraft/synthea/internal/observe"
	"github.com/liuscraft/synthea/internal/remote"
)

func newRunCmd(configPath *string) *cobra.Command {
	var (
		projectPath string
		console     bool
		verbose     bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load a project and run the board until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), *configPath, projectPath, console, verbose)
		},
	}
	cmd.Flags().StringVarP(&projectPath, "project", "p", "", "project file (overrides project.path)")
	cmd.Flags().BoolVar(&console, "console", false, "read hotkeys or cue names from stdin, one per line")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	return cmd
}

func run(ctx context.Context, configPath, projectPath string, console, verbose bool) error {
	appConfig, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if projectPath != "" {
		appConfig.Project.Path = projectPath
	}

	if err := logging.Init(appConfig.LoggingOptions()); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logging.Sync()
	if verbose {
		_ = logging.SetLevel("debug")
	}
	logging.SetShowID(logging.NewShowID())

	logging.Infof("========================================")
	logging.Infof("        Synthea Starting...            ")
	logging.Infof("========================================")

	var metrics *observe.Metrics
	if appConfig.Metrics.Enable {
		met, shutdown, err := observe.InitProvider(observe.ProviderConfig{ServiceVersion: appVersion()})
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		defer func() { _ = shutdown(context.Background()) }()
		metrics = met
		logging.Infof("Metrics enabled")
	}

	project, err := config.LoadProject(appConfig.Project.Path)
	if err != nil {
		return err
	}
	boardConfig, err := appConfig.BoardConfig()
	if err != nil {
		return err
	}

	logging.Infof("Creating %s audio backend...", appConfig.Audio.Backend)
	backend, err := audio.New(appConfig.BackendConfig())
	if err != nil {
		return fmt.Errorf("create audio backend: %w", err)
	}
	defer backend.Close()

	ctl, err := board.New(backend, project, boardConfig, board.WithMetrics(metrics))
	if err != nil {
		return fmt.Errorf("create board: %w", err)
	}
	defer ctl.Close()

	unsubscribe := ctl.Subscribe(func(st board.Status) {
		logging.Debugf("Status: %s | %s | %s | %s", st.QueueLabel(), st.PlayingLabel(), st.Crossfade, st.Fade)
	})
	defer unsubscribe()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	if appConfig.Remote.Enable {
		srv := remote.New(remote.Config{
			ListenAddr: appConfig.Remote.ListenAddr,
			Metrics:    appConfig.Metrics.Enable,
		}, ctl)
		g.Go(func() error { return srv.Run(gctx) })
	}
	if appConfig.Project.Watch {
		w := config.NewProjectWatcher(appConfig.Project.Path, func(p *board.Project) {
			if err := ctl.Reload(p); err != nil {
				logging.Warnf("Reload rejected: %v", err)
			}
		})
		g.Go(func() error { return w.Run(gctx) })
	}
	if console {
		// stdin 读取无法取消，不放入 errgroup
		go readConsole(os.Stdin, ctl, stop)
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	logging.Infof("Synthea running with project %q, press Ctrl+C to exit", project.Name)
	if err := g.Wait(); err != nil {
		return err
	}
	logging.Infof("Shutting down...")
	return nil
}

// readConsole 每行一个热键；未绑定的行按条目名触发。EOF 时退出。
func readConsole(r io.Reader, ctl *board.Controller, stop func()) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		handled, err := ctl.HandleKey(line)
		if err == nil && !handled {
			err = ctl.Trigger(line)
		}
		if err != nil {
			if errors.Is(err, board.ErrUnknownCue) {
				logging.Warnf("Console: %v", err)
				continue
			}
			logging.Errorf("Console: %v", err)
		}
	}
	if err := scanner.Err(); err != nil {
		logging.Warnf("Console: read stdin: %v", err)
	}
	stop()
}
