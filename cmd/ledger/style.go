package main

import (
	"strings"

	"github.com/pterm/pterm"

	"github.com/thanhnp/pow-ledger/internal/ledger"
	"github.com/thanhnp/pow-ledger/internal/models"
)

// formatBlock renders the fields of one block, one per line
func formatBlock(b models.Block) string {
	var sb strings.Builder
	sb.WriteString(pterm.Sprintfln("Timestamp: %s", b.Timestamp.UTC().Format(ledger.TimestampLayout)))
	sb.WriteString(pterm.Sprintfln("Transactions: [%s]", strings.Join(b.Transactions, ", ")))
	sb.WriteString(pterm.Sprintfln("Hash: %s", b.Hash))
	sb.WriteString(pterm.Sprintfln("Previous Hash: %s", b.PreviousHash))
	sb.WriteString(pterm.Sprintf("Nonce: %d", b.Nonce))
	return sb.String()
}
