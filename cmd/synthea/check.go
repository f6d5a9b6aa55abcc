package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/liuscraft/synthea/internal/board"
	"github.com/liuscraft/synthea/internal/config"
	"github.com/liuscraft/synthea/internal/cue"
)

// sourceRow 项目中引用的一个音频文件
type sourceRow struct {
	page, frame, cue string
	group            string
	mode             string
	source           string
	path             string
	missing          bool
}

func newCheckCmd(configPath *string) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "check [project]",
		Short: "Validate a project and report missing audio files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				appConfig, err := config.Load(*configPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				path = appConfig.Project.Path
			}

			project, err := config.LoadProject(path)
			if err != nil {
				return err
			}
			rows := collectSources(project, fileExists)
			missing := renderSources(cmd.OutOrStdout(), project, rows)
			if strict && missing > 0 {
				return fmt.Errorf("%d source file(s) missing", missing)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when any source file is missing")
	return cmd
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// collectSources 列出每个模式下每个条目的全部变体、循环引子以及冲击噪声
func collectSources(p *board.Project, exists func(string) bool) []sourceRow {
	modes := p.Settings.Modes
	if len(modes) == 0 {
		modes = []string{""}
	}

	var rows []sourceRow
	add := func(r sourceRow) {
		r.path = cue.Resolve(p.Root, r.mode, r.source)
		r.missing = !exists(r.path)
		rows = append(rows, r)
	}
	for _, mode := range modes {
		for _, page := range p.Layout.Pages {
			for _, frame := range page.Frames {
				for _, c := range frame.Cues {
					base := sourceRow{page: page.Name, frame: frame.Name, cue: c.Name, group: c.Group.String(), mode: mode}
					for _, src := range c.Sources {
						r := base
						r.source = src
						add(r)
					}
					if c.HasIntro() {
						r := base
						r.source = c.LoopIntro
						add(r)
					}
				}
			}
		}
		if p.CrashNoise != "" && p.CrashNoise != "none" {
			add(sourceRow{cue: "(crash noise)", mode: mode, source: p.CrashNoise})
		}
	}
	return rows
}

// renderSources 输出表格，返回缺失文件数
func renderSources(w io.Writer, p *board.Project, rows []sourceRow) int {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Page", "Frame", "Cue", "Group", "Mode", "Source", "Status"})
	for _, r := range rows {
		status := "ok"
		if r.missing {
			status = "MISSING"
		}
		mode := r.mode
		if mode == "" {
			mode = "-"
		}
		t.AppendRow(table.Row{r.page, r.frame, r.cue, r.group, mode, r.source, status})
	}
	t.Render()

	missing := lo.CountBy(rows, func(r sourceRow) bool { return r.missing })
	fmt.Fprintf(w, "\nProject %q: %d cue(s), %d file reference(s), %d missing\n",
		p.Name, len(p.Layout.Cues()), len(rows), missing)
	return missing
}
