package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lehigh-university-libraries/ezid-batch/batch"
	"github.com/lehigh-university-libraries/ezid-batch/ezid"
	"github.com/lehigh-university-libraries/ezid-batch/mapping"
)

var (
	credentials     string
	outputColumns   string
	previewMode     bool
	removeIDMapping bool
	shoulder        string
	tabMode         bool
	server          string
)

func newOperationCmd(op, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   op + " mappings input.csv",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runBatch(cmd.Context(), op, args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&credentials, "credentials", "c", "", "Credentials: username:password, username, or sessionid=...")
	cmd.Flags().StringVarP(&outputColumns, "output-columns", "o", "_n,_id,_error", "Comma-separated list of columns to output")
	cmd.Flags().BoolVarP(&previewMode, "preview", "p", false, "Preview mode: write transformed metadata to standard output instead of registering")
	cmd.Flags().BoolVarP(&removeIDMapping, "remove-id-mapping", "r", false, "Remove any mapping to _id; useful when temporarily minting")
	cmd.Flags().StringVarP(&shoulder, "shoulder", "s", "", "Shoulder to mint under, e.g. ark:/99999/fk4")
	cmd.Flags().BoolVarP(&tabMode, "tab-mode", "t", false, "Tab mode: the input metadata is tab-separated")
	cmd.Flags().StringVar(&server, "server", "", "EZID server name (production, staging) or base URL")

	return cmd
}

func runBatch(ctx context.Context, op, mappingsFile, inputFile string) error {
	cfg, err := ezid.LoadDefaultConfig()
	if err != nil {
		return err
	}
	if credentials == "" {
		credentials = cfg.Credentials
	}
	if server == "" {
		server = cfg.Server
	}
	if server == "" {
		server = "production"
	}

	if !previewMode && credentials == "" {
		return fmt.Errorf("operation requires -c argument")
	}
	if op == ezid.OpMint && shoulder == "" {
		return fmt.Errorf("operation requires -s argument")
	}

	mappings, err := mapping.ParseFile(mappingsFile)
	if err != nil {
		return err
	}
	if removeIDMapping {
		mappings = batch.StripIDMappings(mappings)
	}
	if (op == ezid.OpCreate || op == ezid.OpUpdate) && !batch.HasIDMapping(mappings) {
		return fmt.Errorf("operation requires mapping to _id")
	}

	var registrar batch.Registrar
	if !previewMode {
		creds, needPassword := ezid.ParseCredentials(credentials)
		if needPassword {
			password, err := promptPassword()
			if err != nil {
				return err
			}
			creds.Password = password
		}
		registrar = ezid.NewClient(server, creds)
	}

	in, err := os.Open(inputFile)
	if err != nil {
		return fmt.Errorf("opening input file: %w", err)
	}
	defer in.Close()

	runner := &batch.Runner{
		Mappings:  mappings,
		Operation: op,
		Shoulder:  shoulder,
		Registrar: registrar,
		Columns:   batch.ParseColumns(outputColumns),
		Preview:   previewMode,
		TabMode:   tabMode,
	}
	return runner.Run(ctx, in, os.Stdout)
}

// promptPassword reads a password from the controlling terminal, not
// stdin, which may be carrying the input table.
func promptPassword() (string, error) {
	tty, err := os.Open("/dev/tty")
	if err != nil {
		return "", fmt.Errorf("cannot prompt for password: %w", err)
	}
	defer tty.Close()

	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(int(tty.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(password), nil
}
