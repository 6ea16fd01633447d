// Command checkpoints is the operator tool for inspecting and clearing
// session checkpoints: what is resumable, where it stopped, and why.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"petreel/internal/checkpoint"
	"petreel/internal/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store, err := checkpoint.NewStore(cfg.CheckpointDir)
	if err != nil {
		return err
	}

	command := "list"
	if len(args) > 0 {
		command = args[0]
	}

	switch command {
	case "list":
		return list(store)
	case "show":
		if len(args) < 2 {
			return fmt.Errorf("usage: checkpoints show <session-id>")
		}
		return show(store, args[1])
	case "clear":
		if len(args) < 2 {
			return fmt.Errorf("usage: checkpoints clear <session-id>")
		}
		if err := store.Clear(args[1]); err != nil {
			return err
		}
		fmt.Printf("cleared checkpoint for session %s\n", args[1])
		return nil
	case "clear-all":
		removed, err := store.ClearAll()
		if err != nil {
			return err
		}
		fmt.Printf("cleared %d checkpoint(s)\n", removed)
		return nil
	default:
		return fmt.Errorf("unknown command %q (expected list, show, clear, clear-all)", command)
	}
}

func list(store *checkpoint.Store) error {
	summaries, err := store.List()
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("no checkpoints found")
		return nil
	}
	for _, s := range summaries {
		state := "in progress"
		if s.Completed {
			state = "completed"
		} else if s.FailedAt != nil {
			state = fmt.Sprintf("failed at item %d: %s", s.FailedAt.Index+1, s.FailedAt.Error)
		}
		fmt.Printf("%s  %-16s  %d/%d  %s  (%s)\n",
			s.SessionID, s.Phase, s.CompletedItems, s.TotalItems,
			state, s.LastUpdate.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func show(store *checkpoint.Store, sessionID string) error {
	cp, err := store.Load(sessionID)
	if err != nil {
		return err
	}
	if cp == nil {
		return fmt.Errorf("no checkpoint for session %s", sessionID)
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
