package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/becomeliminal/parley-go-sdk/core"
	"github.com/becomeliminal/parley-go-sdk/engine"
	"github.com/becomeliminal/parley-go-sdk/persona"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat session on stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Debug)
			if err != nil {
				return err
			}
			defer logger.Sync()

			embedder, err := cfg.newEmbedder()
			if err != nil {
				return err
			}
			catalog, err := cfg.newCatalog(logger, embedder)
			if err != nil {
				return err
			}
			store, err := cfg.newStore(logger, "chat")
			if err != nil {
				return err
			}
			eng, err := engine.NewEngine(embedder, catalog, newLedger(), store, persona.NewState(nil),
				engine.WithLogger(logger))
			if err != nil {
				return err
			}

			return runREPL(cmd, eng)
		},
	}
}

func runREPL(cmd *cobra.Command, eng *engine.Engine) error {
	fmt.Println("parley chat: type a message, /feedback <0..1> to score the last reply, /quit to exit")

	var lastProv *core.Provenance
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "/quit":
			return nil

		case strings.HasPrefix(line, "/feedback"):
			if lastProv == nil {
				fmt.Println("nothing to score yet")
				continue
			}
			score, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, "/feedback")), 64)
			if err != nil {
				fmt.Println("usage: /feedback <0..1>")
				continue
			}
			eng.ReceiveFeedback(*lastProv, score, "")
			fmt.Println("noted")

		default:
			turn, err := eng.Respond(cmd.Context(), line)
			if err != nil {
				return err
			}
			lastProv = &turn.Provenance
			if turn.Fallback {
				fmt.Printf("parley: %s\n", turn.Response)
			} else {
				fmt.Printf("parley: %s  (pattern %d, score %.2f)\n",
					turn.Response, turn.Provenance.PatternID, turn.Provenance.Score)
			}
		}
	}
}
