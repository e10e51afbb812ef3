package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cobaltgrid/axon/pkg/agent"
	"github.com/cobaltgrid/axon/pkg/logger"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the agent tick loop until interrupted",
		RunE:  runRun,
	}
	cmd.Flags().String("session", "", "Session ID to restore and persist under")
	cmd.Flags().StringArray("task", nil, "Task to queue before starting (repeatable)")
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigFrom(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	session, _ := cmd.Flags().GetString("session")
	engine, actx, store, err := buildAgent(ctx, cfg, session)
	if err != nil {
		return err
	}
	defer store.Close()

	if tasks, _ := cmd.Flags().GetStringArray("task"); len(tasks) > 0 {
		actx.ReplaceTask(append(actx.Task(), tasks...))
	}

	interval := time.Duration(cfg.Agent.TickIntervalSecs) * time.Second
	runner := agent.NewRunner(engine, interval)
	runner.Start(ctx)

	logger.InfoCF("main", "agent running", map[string]any{
		"session_id": actx.SessionID(),
		"interval":   interval.String(),
	})
	fmt.Printf("axon %s running, session %s (ctrl+c to stop)\n", formatVersion(), actx.SessionID())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sigCh:
			fmt.Println("\nShutting down...")
			runner.Stop()
			return nil
		case ev := <-runner.Events():
			switch ev.Kind {
			case agent.EventTickFailed:
				runner.Stop()
				return ev.Err
			case agent.EventStopped:
				return nil
			}
		}
	}
}
