package main

import (
	"contactbook/internal/blob"
	"contactbook/internal/core"
	"contactbook/pkg/domain"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (a *app) addCmd() *cobra.Command {
	var c core.Contact
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a contact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closer, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closer.Close()
			created, res, err := svc.AddContact(cmd.Context(), domain.NewContact(c.ContactCode, c.Name, c.Surname, c.Number))
			if err != nil {
				return err
			}
			printViolations(cmd.ErrOrStderr(), res)
			fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", created.Code(), created.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVar(&c.ContactCode, "code", "", "Unique contact code")
	cmd.Flags().StringVar(&c.Name, "name", "", "Given name")
	cmd.Flags().StringVar(&c.Surname, "surname", "", "Family name")
	cmd.Flags().StringVar(&c.Number, "number", "", "Phone number")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var (
		query  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contacts ordered by surname, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closer, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closer.Close()
			contacts, err := svc.FindContacts(cmd.Context(), query)
			if err != nil {
				return err
			}
			if asJSON {
				coll, err := domain.EntitiesOf(contacts...)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(coll)
			}
			return printTable(cmd.OutOrStdout(), contacts)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Case-insensitive substring filter")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as a JSON list")
	return cmd
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <code>",
		Short: "Show one contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closer, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closer.Close()
			c, err := svc.GetContact(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(c)
		},
	}
}

func (a *app) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <code>",
		Aliases: []string{"rm"},
		Short:   "Remove a contact",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closer, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closer.Close()
			if _, err := svc.RemoveContact(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all contacts as JSON to the configured blob store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closer, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closer.Close()
			store, err := blob.Open(cmd.Context(), a.cfg.Blob)
			if err != nil {
				return err
			}
			info, err := svc.ExportContacts(cmd.Context(), store, key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s contacts to %s (%d bytes)\n", info.Metadata["contacts"], info.Key, info.Size)
			if info.URL != "" {
				fmt.Fprintln(cmd.OutOrStdout(), info.URL)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Blob key (default exports/contacts-<uuid>.json)")
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import a JSON list of contacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := core.ParseImportMode(mode)
			if err != nil {
				return err
			}
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			svc, closer, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closer.Close()
			report, res, err := svc.ImportContacts(cmd.Context(), r, m)
			if err != nil {
				return err
			}
			printViolations(cmd.ErrOrStderr(), res)
			fmt.Fprintf(cmd.OutOrStdout(), "%s import: %d added, %d skipped, %d removed\n", report.Mode, report.Added, report.Skipped, report.Removed)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(core.ImportMerge), "merge keeps existing contacts, replace drops them first")
	return cmd
}

func printTable(w io.Writer, contacts []core.Contact) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME\tSURNAME\tNUMBER")
	for _, c := range contacts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Code(), c.Name, c.Surname, c.Number)
	}
	return tw.Flush()
}

func printViolations(w io.Writer, res core.Result) {
	for _, v := range res.Violations {
		fmt.Fprintf(w, "%s: %s (%s)\n", v.Severity, v.Message, v.Rule)
	}
}
