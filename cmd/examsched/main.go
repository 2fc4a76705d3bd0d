package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler-api/pkg/config"
	"github.com/noah-isme/exam-scheduler-api/pkg/logger"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "examsched",
		Short:        "Exam timetable generator",
		Long:         "Places every exam in a day and slot range with enough rooms so that no student\nsits overlapping or back-to-back exams, then seats students in rooms.",
		SilenceUsage: true,
	}
	root.AddCommand(newSolveCommand(), newCheckCommand(), newTokenCommand())
	return root
}

// setup loads configuration and a logger for a command.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logr, nil
}
