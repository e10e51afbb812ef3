package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cobaltgrid/axon/pkg/agentctx"
)

func newTickCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tick [task...]",
		Short: "Run a single tick, optionally queueing tasks first",
		RunE:  runTick,
	}
	cmd.Flags().String("session", "", "Session ID to restore and persist under")
	return cmd
}

func runTick(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigFrom(cmd)
	if err != nil {
		return err
	}

	session, _ := cmd.Flags().GetString("session")
	engine, actx, store, err := buildAgent(cmd.Context(), cfg, session)
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) > 0 {
		actx.ReplaceTask(append(actx.Task(), args...))
	}

	results, err := engine.Tick(cmd.Context())
	if errors.Is(err, agentctx.ErrNoTasks) {
		fmt.Println("No tasks queued.")
		return nil
	}
	if err != nil {
		return err
	}

	for i, res := range results {
		status := "ok"
		if res.Err != nil {
			status = "error: " + res.Err.Error()
		}
		fmt.Printf("[%d] %s\n    %s.%s -> %s\n", i+1, res.Step, res.Call.Capability, res.Call.Action, status)
		if res.Output != "" {
			fmt.Printf("    %s\n", res.Output)
		}
	}
	fmt.Printf("Session %s: %d steps dispatched, %d tasks remaining.\n",
		actx.SessionID(), len(results), len(actx.Task()))
	return nil
}
