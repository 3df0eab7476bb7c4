package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"sheetsync/internal/app"
	"sheetsync/internal/config"
	"sheetsync/internal/record"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// readConfig loads the config file at the default path.
func readConfig() (*config.Config, string, error) {
	paths, err := app.DefaultPaths()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.ReadFromFile(paths.ConfigPath)
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, paths.ConfigPath, nil
}

// newApp reads the config and creates an App. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "List", "Print").
func newApp(cmd *cobra.Command, operation string, args []string) (*app.App, error) {
	cfg, _, err := readConfig()
	if err != nil {
		return nil, err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	a, err := app.NewApp(cmd.Context(), cfg, operation, strings.Join(args, " "), app.WithVerbose(verbose))
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// readPassphrase prompts on the terminal without echo. When stdin is not a
// terminal one line is read from it instead.
func readPassphrase(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

// confirm asks a yes/no question on stderr and reads the answer from stdin.
func confirm(question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// withOutput runs fn with stdout or, when path is set, a new file that is
// only readable by the user.
func withOutput(path string, fn func(io.Writer) error) error {
	if path == "" || path == "-" {
		return fn(os.Stdout)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// photoField reads an image file and returns it as a data URI.
func photoField(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading photo: %w", err)
	}
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("%s is not an image (%s)", path, mimeType)
	}
	if len(data) > record.MaxPhotoBytes {
		return "", fmt.Errorf("photo is %d bytes, limit is %d", len(data), record.MaxPhotoBytes)
	}
	return record.PhotoDataURI(mimeType, data), nil
}

var rootCmd = &cobra.Command{
	Use:          "sheetsync",
	Short:        "Manage spreadsheet-backed athlete registrations and flower orders",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoint, _ := cmd.Flags().GetString("endpoint")
		kind, _ := cmd.Flags().GetString("kind")

		paths, err := app.DefaultPaths()
		if err != nil {
			return err
		}

		instanceID := uuid.New().String()
		cfg := config.NewConfig(instanceID, paths.BaseDir)
		cfg.Remote.Endpoint = endpoint
		if kind != "" {
			if _, err := record.LookupKind(kind); err != nil {
				return err
			}
			cfg.Remote.Kind = kind
		}

		if err := config.Init(paths.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		if err := app.MigrateJournal(cfg); err != nil {
			return err
		}

		fmt.Printf("Configuration initialized at %s\n", paths.ConfigPath)
		fmt.Printf("Instance ID: %s\n", instanceID)
		fmt.Printf("Base Dir:    %s\n", paths.BaseDir)
		fmt.Printf("Log Dir:     %s\n", paths.LogDir())
		if endpoint == "" {
			fmt.Println("Set remote.endpoint before using the record commands.")
		}
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := readConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Instance ID: %s\n", cfg.InstanceID)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Endpoint:    %s\n", cfg.Remote.Endpoint)
		fmt.Printf("Kind:        %s\n", cfg.Remote.Kind)
		fmt.Printf("Timezone:    %s\n", cfg.Timezone)
		fmt.Printf("Journal:     %s\n", cfg.Journal.Type)
		fmt.Printf("Archive:     %s\n", cfg.Archive.Type)
		fmt.Printf("Selection:   %s\n", cfg.Selection.Type)
		fmt.Printf("Encryption:  %s\n", cfg.Encryption.Type)
		if err := cfg.Validate(); err != nil {
			fmt.Printf("\nProblems:\n%s\n", err)
		}
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the key pair used for exports and encrypted documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := readConfig()
		if err != nil {
			return err
		}

		pass, err := readPassphrase("New passphrase: ")
		if err != nil {
			return err
		}
		if term.IsTerminal(int(os.Stdin.Fd())) {
			again, err := readPassphrase("Repeat passphrase: ")
			if err != nil {
				return err
			}
			if again != pass {
				return errors.New("passphrases do not match")
			}
		}

		if err := app.InitKeys(cfg, pass); err != nil {
			return err
		}
		fmt.Printf("Public key:  %s\n", cfg.Encryption.PublicKeyPath)
		fmt.Printf("Private key: %s (passphrase protected)\n", cfg.Encryption.PrivateKeyPath)
		return nil
	},
}

// journal command
var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Manage the mutation journal",
}

var journalMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending journal schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := readConfig()
		if err != nil {
			return err
		}
		if err := app.MigrateJournal(cfg); err != nil {
			return err
		}
		fmt.Println("Journal schema is up to date.")
		return nil
	},
}

var journalBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Store a snapshot of the journal in the archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "BackupJournal", args)
		if err != nil {
			return err
		}
		defer a.Close()

		key, err := a.BackupJournal(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Journal stored as %s\n", key)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug messages")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configInitCmd.Flags().String("endpoint", "", "Spreadsheet web app URL")
	configInitCmd.Flags().String("kind", "", "Record kind: athletes or orders")

	keysCmd.AddCommand(keysInitCmd)

	journalCmd.AddCommand(journalMigrateCmd)
	journalCmd.AddCommand(journalBackupCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(journalCmd)
}
