// HookClaw - webhook-driven chat assistant bridge
// License: MIT
//
// Copyright (c) 2026 HookClaw contributors

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/hookclaw/cmd/hookclaw/internal"
	"github.com/tinyland-inc/hookclaw/cmd/hookclaw/internal/chat"
	"github.com/tinyland-inc/hookclaw/cmd/hookclaw/internal/serve"
	"github.com/tinyland-inc/hookclaw/cmd/hookclaw/internal/version"
)

func NewHookclawCommand() *cobra.Command {
	short := fmt.Sprintf("%s hookclaw - Slack assistant bridge v%s\n\n", internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "hookclaw",
		Short:   short,
		Example: "hookclaw serve",
	}

	cmd.AddCommand(
		serve.NewServeCommand(),
		chat.NewChatCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewHookclawCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
