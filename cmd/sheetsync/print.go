package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"sheetsync/internal/app"

	"github.com/spf13/cobra"
)

// print command
var printCmd = &cobra.Command{
	Use:   "print [ID...]",
	Short: "Render records as a printable HTML document",
	Long: `Render records as a printable HTML document.

With one ID a single-record document is printed. With several IDs, or
--selected, one bulk document is printed. With neither, every record is.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		selected, _ := cmd.Flags().GetBool("selected")
		layout, _ := cmd.Flags().GetString("layout")
		out, _ := cmd.Flags().GetString("out")
		publish, _ := cmd.Flags().GetBool("publish")
		encrypt, _ := cmd.Flags().GetBool("encrypt")

		a, err := newApp(cmd, "Print", args)
		if err != nil {
			return err
		}
		defer a.Close()

		var res app.PrintResult
		err = withOutput(out, func(w io.Writer) error {
			var err error
			res, err = a.Print(cmd.Context(), w, app.PrintRequest{
				IDs:      args,
				Selected: selected,
				Layout:   layout,
				Publish:  publish,
				Encrypt:  encrypt,
			})
			return err
		})
		if err != nil {
			return err
		}

		if res.Count == 0 {
			fmt.Fprintf(os.Stderr, "Nothing to print.\n")
			return nil
		}
		fmt.Fprintf(os.Stderr, "Printed %d %s with %s\n", res.Count, a.Kind().Name, res.Layout)
		if res.Key != "" {
			fmt.Fprintf(os.Stderr, "Published as %s\n", res.Key)
		}
		return nil
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write an encrypted JSON snapshot of the collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		publish, _ := cmd.Flags().GetBool("publish")

		a, err := newApp(cmd, "Export", args)
		if err != nil {
			return err
		}
		defer a.Close()

		var res app.ExportResult
		err = withOutput(out, func(w io.Writer) error {
			var err error
			res, err = a.Export(cmd.Context(), w, publish)
			return err
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Exported %d %s\n", res.Count, a.Kind().Name)
		if res.Key != "" {
			fmt.Fprintf(os.Stderr, "Published as %s\n", res.Key)
		}
		return nil
	},
}

// decrypt command
var decryptCmd = &cobra.Command{
	Use:   "decrypt FILE",
	Short: "Decrypt an export or encrypted document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")

		cfg, _, err := readConfig()
		if err != nil {
			return err
		}

		in, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer in.Close()

		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		return withOutput(out, func(w io.Writer) error {
			return app.Decrypt(cfg, pass, in, w)
		})
	},
}

// archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Browse published documents and exports",
}

var archiveListCmd = &cobra.Command{
	Use:   "list [PREFIX]",
	Short: "List archive entries",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ArchiveList", args)
		if err != nil {
			return err
		}
		defer a.Close()

		prefix := ""
		if len(args) > 0 {
			prefix = args[0]
		}
		entries, err := a.Archived(cmd.Context(), prefix)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No entries.")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s  %10d  %s\n", e.ModTime.In(a.Location()).Format("2006-01-02 15:04:05"), e.Size, e.Key)
		}
		return nil
	},
}

var archiveGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Write an archive entry to stdout or --out",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")

		a, err := newApp(cmd, "ArchiveGet", args)
		if err != nil {
			return err
		}
		defer a.Close()

		return withOutput(out, func(w io.Writer) error {
			return a.FetchArchived(cmd.Context(), args[0], w)
		})
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a read-only web view with print pages and metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		a, err := newApp(cmd, "Serve", args)
		if err != nil {
			return err
		}
		defer a.Close()

		if addr == "" {
			addr = a.ServeAddr()
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return a.Serve(ctx, addr)
	},
}

func init() {
	printCmd.Flags().Bool("selected", false, "Print the bulk selection")
	printCmd.Flags().StringP("layout", "l", "", "Print layout (default from config or kind)")
	printCmd.Flags().StringP("out", "o", "", "Write to file instead of stdout")
	printCmd.Flags().Bool("publish", false, "Also store the document in the archive")
	printCmd.Flags().Bool("encrypt", false, "Encrypt the document with the configured key")

	exportCmd.Flags().StringP("out", "o", "", "Write to file instead of stdout")
	exportCmd.Flags().Bool("publish", false, "Also store the export in the archive")
	decryptCmd.Flags().StringP("out", "o", "", "Write to file instead of stdout")

	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveGetCmd)
	archiveGetCmd.Flags().StringP("out", "o", "", "Write to file instead of stdout")

	serveCmd.Flags().String("addr", "", "Listen address (default from config)")

	rootCmd.AddCommand(printCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(decryptCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(serveCmd)
}
