package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"

	"github.com/thanhnp/pow-ledger/internal/config"
	"github.com/thanhnp/pow-ledger/internal/ledger"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	difficulty := flag.Int("difficulty", ledger.DefaultDifficulty, "leading zero hex characters required of a block hash")
	flag.Parse()

	logger := slog.New(pterm.NewSlogHandler(&pterm.DefaultLogger))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "difficulty" {
			cfg.Ledger.Difficulty = *difficulty
		}
	})

	chain, err := ledger.New(cfg.Ledger.Difficulty, ledger.WithGenesisTransactions(cfg.Ledger.GenesisTransactions))
	if err != nil {
		logger.Error("failed to create chain", "error", err)
		os.Exit(1)
	}

	title, err := pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("PoW ", pterm.FgRed.ToStyle()),
		putils.LettersFromStringWithStyle("Ledger", pterm.FgDarkGray.ToStyle()),
	).Srender()
	if err != nil {
		logger.Error(err.Error())
	}
	pterm.Print(title)
	pterm.Info.Printfln("Difficulty: %d", chain.Difficulty())

	newShell(chain, logger).run()
}
