package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/plura-proxy/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import ledger records from JSON",
		Long:  "Import ledger records from stdin. Expects the format produced by export; records already present are skipped.",
		Run:   runImport,
	}

	ledgerCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}

	var dump store.Export
	if err := json.Unmarshal(data, &dump); err != nil {
		exitErr("parse json", err)
	}

	s, _ := openStore()
	defer s.Close()

	imported, err := s.Import(cmd.Context(), dump.Records)
	if err != nil {
		exitErr("import", err)
	}

	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", imported)
}
