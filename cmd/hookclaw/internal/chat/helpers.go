package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/tinyland-inc/hookclaw/cmd/hookclaw/internal"
	"github.com/tinyland-inc/hookclaw/pkg/ledger"
	"github.com/tinyland-inc/hookclaw/pkg/logger"
	"github.com/tinyland-inc/hookclaw/pkg/providers"
	"github.com/tinyland-inc/hookclaw/pkg/responder"
	"github.com/tinyland-inc/hookclaw/pkg/scheduler"
	"github.com/tinyland-inc/hookclaw/pkg/store"
	"github.com/tinyland-inc/hookclaw/pkg/tools"
)

// localIdentity is the ledger identity used for the CLI session, so
// reminders captured here live alongside webhook-captured ones.
const localIdentity = "cli"

func chatCmd(message, model string, debug bool) error {
	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("🔍 Debug mode enabled")
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if model != "" {
		cfg.Responder.Model = model
	}

	engine, modelID, err := providers.CreateEngine(cfg)
	if err != nil && !errors.Is(err, providers.ErrNotConfigured) {
		return fmt.Errorf("error creating provider: %w", err)
	}
	if modelID != "" {
		cfg.Responder.Model = modelID
	}

	blob, err := store.NewFileBlob(cfg.Ledger.Dir)
	if err != nil {
		return fmt.Errorf("error opening ledger dir: %w", err)
	}

	var sched *scheduler.Service
	if cfg.Scheduler.Enabled {
		sched = scheduler.NewService(cfg.Scheduler.StorePath)
	}

	resp := responder.New(engine, tools.DefaultRegistry(), responder.Options{
		Model:             cfg.Responder.Model,
		MaxTokens:         cfg.Responder.MaxTokens,
		MaxToolIterations: cfg.Responder.MaxToolIterations,
	})
	inv := tools.Invocation{
		Ledger:    ledger.NewStore(blob, cfg.Ledger.Namespace),
		Scheduler: sched,
		Identity:  localIdentity,
	}

	if message != "" {
		reply := resp.Respond(context.Background(), message, inv)
		fmt.Printf("\n%s %s\n", internal.Logo, reply)
		return nil
	}

	fmt.Printf("%s Interactive mode (Ctrl+C to exit)\n\n", internal.Logo)
	interactiveMode(resp, inv)

	return nil
}

func interactiveMode(resp *responder.Responder, inv tools.Invocation) {
	prompt := fmt.Sprintf("%s You: ", internal.Logo)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     filepath.Join(os.TempDir(), ".hookclaw_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		fmt.Println("Falling back to simple input mode...")
		simpleInteractiveMode(resp, inv)
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			return
		}

		reply := resp.Respond(context.Background(), input, inv)
		fmt.Printf("\n%s %s\n\n", internal.Logo, reply)
	}
}

func simpleInteractiveMode(resp *responder.Responder, inv tools.Invocation) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("%s You: ", internal.Logo)
		if !scanner.Scan() {
			fmt.Println("\nGoodbye!")
			return
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			return
		}

		reply := resp.Respond(context.Background(), input, inv)
		fmt.Printf("\n%s %s\n\n", internal.Logo, reply)
	}
}
