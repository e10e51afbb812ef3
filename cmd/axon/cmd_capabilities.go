package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cobaltgrid/axon/pkg/agentctx"
	"github.com/cobaltgrid/axon/pkg/capability"
)

func newCapabilitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities",
		Short: "List registered capabilities and their actions",
		RunE:  runCapabilities,
	}
}

func runCapabilities(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigFrom(cmd)
	if err != nil {
		return err
	}

	store, err := openSnapshotStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	actx := agentctx.NewStore(settingsFrom(cfg))
	registry := capability.BuiltinRegistry(cfg, store, actx)

	fmt.Printf("%d capabilities registered:\n", registry.Count())
	for _, line := range registry.Summaries() {
		fmt.Println("  " + line)
	}
	return nil
}
