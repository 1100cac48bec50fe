package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/pterm/pterm"

	"github.com/thanhnp/pow-ledger/internal/ledger"
)

const (
	optionAdd      = "Add a new block"
	optionDisplay  = "Display the blockchain"
	optionValidate = "Check blockchain integrity"
	optionExit     = "Exit"
)

var menuOptions = []string{optionAdd, optionDisplay, optionValidate, optionExit}

// doneMarker ends transaction entry, matched case-insensitively
const doneMarker = "done"

type shell struct {
	chain  *ledger.Chain
	logger *slog.Logger
}

func newShell(chain *ledger.Chain, logger *slog.Logger) *shell {
	return &shell{chain: chain, logger: logger}
}

func (s *shell) run() {
	for {
		pterm.Println()
		choice, err := pterm.DefaultInteractiveSelect.
			WithDefaultText("Blockchain Menu").
			WithOptions(menuOptions).
			Show()
		if err != nil {
			s.logger.Error("failed to read menu choice", "error", err)
			return
		}

		switch choice {
		case optionAdd:
			s.addBlock()
		case optionDisplay:
			s.display()
		case optionValidate:
			s.validate()
		case optionExit:
			pterm.Info.Println("Exiting...")
			return
		}
	}
}

func (s *shell) addBlock() {
	pterm.Info.Printfln("Enter transactions (type '%s' to finish)", doneMarker)
	txs, err := readTransactions(func() (string, error) {
		return pterm.DefaultInteractiveTextInput.WithDefaultText(">").Show()
	})
	if err != nil {
		s.logger.Error("failed to read transaction", "error", err)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	spinner, _ := pterm.DefaultSpinner.Start("Mining block (Ctrl-C to cancel)...")
	block, err := s.chain.AppendContext(ctx, txs)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			spinner.Warning("Mining cancelled, chain unchanged")
			return
		}
		spinner.Fail(err.Error())
		return
	}
	spinner.Success(pterm.Sprintf("New block %d added successfully! (nonce %d)", block.Index, block.Nonce))
}

func (s *shell) display() {
	for _, b := range s.chain.Snapshot() {
		pterm.DefaultBox.
			WithTitle(pterm.LightCyan(pterm.Sprintf("Block %d", b.Index))).
			WithTitleTopLeft().
			Println(formatBlock(b))
	}
}

func (s *shell) validate() {
	if err := s.chain.Verify(); err != nil {
		pterm.Error.Printfln("Blockchain integrity is valid: false (%v)", err)
		return
	}
	pterm.Success.Println("Blockchain integrity is valid: true")
}

// readTransactions collects lines from next until the done marker
func readTransactions(next func() (string, error)) ([]string, error) {
	txs := []string{}
	for {
		line, err := next()
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(strings.TrimSpace(line), doneMarker) {
			return txs, nil
		}
		txs = append(txs, line)
	}
}
