package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/research-agent/internal/event"
	"github.com/sells-group/research-agent/internal/model"
)

var (
	researchSession string
	researchMode    string
	researchIters   int
)

var researchCmd = &cobra.Command{
	Use:   "research [query]",
	Short: "Run one research query and print the report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		query := args[0]

		mem, err := initMemory(ctx)
		if err != nil {
			return err
		}
		defer mem.Close()

		checkpoints, err := initCheckpoints(ctx)
		if err != nil {
			return err
		}
		defer checkpoints.Close()

		if err := mem.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}
		if err := checkpoints.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate checkpoints")
		}

		runner := initRunner(checkpoints, mem)

		sessionID := researchSession
		if sessionID == "" {
			sessionID = uuid.New().String()
		}
		mode := model.Mode(researchMode)
		if mode != model.ModeQuick {
			mode = model.ModeResearch
		}
		run := &model.Run{
			ID:        uuid.New().String(),
			SessionID: sessionID,
			Query:     query,
			Mode:      mode,
			Status:    model.RunStatusRunning,
		}

		// The CLI watches its own run, so events stay in process regardless
		// of the configured backend.
		broker := event.NewLocalBroker()
		sink, err := broker.Open(ctx, run.ID, event.Meta{
			SessionID: sessionID,
			ReplyID:   uuid.New().String(),
		})
		if err != nil {
			return eris.Wrap(err, "open event sink")
		}
		sub, err := broker.Subscribe(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "subscribe")
		}

		runErr := make(chan error, 1)
		go func() {
			defer sink.Close()
			runErr <- runner.Run(ctx, run, researchIters, sink)
		}()

		var report strings.Builder
		for ev := range sub.Events {
			switch ev.Type {
			case event.TypeSteps:
				printSteps(ev)
			case event.TypeAnswer:
				if answer, ok := ev.Data["answer"].(map[string]any); ok {
					if text, ok := answer["text"].(string); ok {
						report.WriteString(text)
					}
				}
			case event.TypeError:
				msg, _ := ev.Data["error"].(string)
				return eris.Errorf("run failed: %s", msg)
			}
		}
		if err := <-runErr; err != nil {
			return eris.Wrap(err, "run")
		}

		zap.L().Info("research complete",
			zap.String("run_id", run.ID),
			zap.String("session_id", sessionID),
		)
		fmt.Println(report.String())
		return nil
	},
}

// printSteps renders progress entries to stderr so stdout stays clean for
// the report itself.
func printSteps(ev event.Event) {
	steps, ok := ev.Data["steps"].([]map[string]any)
	if !ok {
		return
	}
	for _, s := range steps {
		status, _ := s["status"].(string)
		text, _ := s["text"].(string)
		fmt.Fprintf(os.Stderr, "[%s] %s\n", status, text)
	}
}

func init() {
	researchCmd.Flags().StringVar(&researchSession, "session", "", "session id for checkpoint continuity")
	researchCmd.Flags().StringVar(&researchMode, "mode", "research", "research or quick")
	researchCmd.Flags().IntVar(&researchIters, "max-iterations", 0, "refinement iteration cap (default from config)")
	rootCmd.AddCommand(researchCmd)
}
