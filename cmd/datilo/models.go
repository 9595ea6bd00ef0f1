package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ayusman/datilo/internal/classifier"
	"github.com/ayusman/datilo/internal/config"
)

func newModelsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List trained model artifacts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runModels(cmd.OutOrStdout(), cfg)
		},
	}
}

func runModels(out io.Writer, cfg *config.Config) error {
	files, err := classifier.List(cfg.ModelDir(), cfg.Model.Pattern)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(out, "No models in %s\n", cfg.ModelDir())
		return nil
	}

	rows := make([][]string, 0, len(files))
	for i, f := range files {
		active := ""
		if i == 0 {
			active = "*"
		}
		row := []string{active, filepath.Base(f.Path), f.ModTime.Format("2006-01-02 15:04")}

		a, err := classifier.Load(f.Path)
		if err != nil {
			row = append(row, "invalid", "", "")
		} else {
			row = append(row,
				string(a.Scheme),
				strconv.Itoa(len(a.Classes)),
				fmt.Sprintf("%.1f%%", a.Accuracy*100),
			)
		}
		rows = append(rows, row)
	}

	fmt.Fprintln(out, renderTable(
		[]string{"", "File", "Modified", "Scheme", "Classes", "Accuracy"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	))
	return nil
}
