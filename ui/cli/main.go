// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the command-line interface (CLI) for the Gobro
// application using the Cobra library. It defines the root command,
// subcommands (like push, backup, audit), flags, and the main entry
// point for execution.

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"runtime/debug"

	log "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/ssh"
	"golang.org/x/term"

	"github.com/bnrobert/gobro/internal/backup"
	"github.com/bnrobert/gobro/internal/config"
	"github.com/bnrobert/gobro/internal/db"
	"github.com/bnrobert/gobro/internal/i18n"
	"github.com/bnrobert/gobro/internal/logging"
	"github.com/bnrobert/gobro/internal/model"
	"github.com/bnrobert/gobro/internal/qrgen"
	"github.com/bnrobert/gobro/internal/transfer"
	"github.com/bnrobert/gobro/internal/tui"
)

var version = "dev"   // this will be set by the linker
var gitCommit = "dev" // set at build time with the short commit SHA
var buildDate = ""    // set at build time (RFC3339)
var cfgFile string
var fullRestore bool // Flag for the restore command
var forcePush bool   // Flag for the push command

var verbose bool
var showVersionFlag bool

var appConfig config.Config

func setupDefaultServices(cmd *cobra.Command, args []string) error {
	// Load optional config file argument from cli
	optionalConfigPath, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}

	if wd, wderr := os.Getwd(); wderr == nil {
		logging.Debugf("startup cwd: %s", wd)
	}

	// Load config
	defaults := map[string]any{
		"database.type":        "sqlite",
		"database.dsn":         "./gobro.db",
		"language":             "en",
		"anonymize.workers":    0,
		"anonymize.output_dir": "anonymized",
		"push.port":            22,
		"qr.size":              qrgen.DefaultSize,
		"qr.color":             qrgen.DefaultColor,
	}

	appConfig, err = config.LoadConfig[config.Config](cmd, defaults, optionalConfigPath)
	// A "file not found" error is expected on first run, so we handle it
	// specifically. Other errors during loading are fatal.
	if errors.As(err, &viper.ConfigFileNotFoundError{}) {
		// This is the first run, or the config file was deleted. Create a default one.
		if writeErr := config.WriteConfigFile(&appConfig, false); writeErr != nil {
			// Log a warning but don't fail, as the app can run on defaults.
			log.Warnf("Warning: could not write default config file: %v", writeErr)
		}
	} else if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	// Post-process config to ensure critical values are not empty, falling
	// back to defaults. This handles cases where the user's config file has
	// empty values for these fields.
	if appConfig.Database.Type == "" {
		appConfig.Database.Type = defaults["database.type"].(string)
	}
	if appConfig.Database.Dsn == "" {
		appConfig.Database.Dsn = defaults["database.dsn"].(string)
	}
	if appConfig.Language == "" {
		appConfig.Language = defaults["language"].(string)
	}

	// The db and language flags are spelled differently from their config
	// keys, so viper's name-based flag binding does not cover them. Apply
	// them by hand; explicit flags win over file and environment.
	if f := cmd.Flags().Lookup("db-type"); f != nil && f.Changed {
		appConfig.Database.Type = f.Value.String()
	}
	if f := cmd.Flags().Lookup("db-dsn"); f != nil && f.Changed {
		appConfig.Database.Dsn = f.Value.String()
	}
	if f := cmd.Flags().Lookup("lang"); f != nil && f.Changed {
		appConfig.Language = f.Value.String()
	}

	// Initialize i18n
	i18n.Init(appConfig.Language)

	// Initialize the database if not already initialized by tests or earlier setup.
	if !db.IsInitialized() {
		if _, err := db.New(appConfig.Database.Type, appConfig.Database.Dsn); err != nil {
			return errors.New(i18n.T("config.error_init_db", err))
		}
	}

	return nil
}

// Execute runs the CLI entrypoint. The root main package should call this
// function and handle process exit.
func Execute() error {
	rootCmd := NewRootCmd()

	if err := rootCmd.Execute(); err != nil {
		return err
	}

	return nil
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	// Only proceed if the user has explicitly set the --config flag.
	if cmd.Flags().Changed("config") {
		path, err := cmd.Flags().GetString("config")
		if err != nil {
			// This is unlikely if Changed() is true, but good practice.
			return nil, fmt.Errorf("could not read --config flag: %w", err)
		}

		// If the flag is set but the value is empty, do nothing.
		if path == "" {
			return nil, nil
		}

		// Make sure the user-provided file exists to avoid unwanted behavior.
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
		}
		return &path, nil // Return the valid path
	}
	return nil, nil
}

// NewRootCmd creates and configures a new root cobra command.
// This function is used to create the main application command as well as
// fresh instances for isolated testing.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gobro",
		Short: "Gobro is a workbench for clinical research data.",
		Long: `Gobro handles the data chores of a clinical research group: anonymizing
DICOM studies, keeping a searchable catalog of them, importing PubMed
bibliographies, generating contact QR codes and pushing anonymized data
to collaborator drop boxes.

Running without a subcommand will launch the interactive TUI.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if showVersionFlag {
				v, c, d := resolveBuildVersion(nil)
				compositeVersion := v
				if c != "" && c != "dev" {
					compositeVersion = compositeVersion + " (" + c + ")"
				}
				if d != "" {
					compositeVersion = compositeVersion + " built: " + d
				}
				fmt.Printf("%s\n", compositeVersion)
				os.Exit(0)
			}
			if verbose {
				logging.SetDebug(true)
				db.SetDebug(true)
			}
			return setupDefaultServices(cmd, args)
		},
		Run: func(cmd *cobra.Command, args []string) {
			// The database is already initialized by PersistentPreRunE.
			// i18n is also initialized, so we can just run the TUI.
			tui.Run()
		},
	}

	v, c, d := resolveBuildVersion(nil)
	compositeVersion := v
	if c != "" && c != "dev" {
		compositeVersion = compositeVersion + " (" + c + ")"
	}
	if d != "" {
		compositeVersion = compositeVersion + " built: " + d
	}
	cmd.Version = compositeVersion

	// Define flags
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output (sets debug level for app and DB logs)")
	cmd.PersistentFlags().BoolVarP(&showVersionFlag, "version", "V", false, "Print version and exit")
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	cmd.PersistentFlags().String("lang", "", `UI language ("en", "fr")`)
	cmd.PersistentFlags().String("db-type", "", "Database type (sqlite, postgres, mysql)")
	cmd.PersistentFlags().String("db-dsn", "", "Database connection string (DSN)")

	// Add subcommand flags. NewRootCmd may be called multiple times in tests
	// which creates a new root but reuses package-level subcommands. pflag
	// will panic on duplicate flag definitions, so check first.
	if pushCmd.Flags().Lookup("force") == nil {
		pushCmd.Flags().BoolVar(&forcePush, "force", false, "Push even when the path is not inside an anonymized tree")
	}
	if restoreCmd.Flags().Lookup("full") == nil {
		restoreCmd.Flags().BoolVar(&fullRestore, "full", false, "Perform a full, destructive restore (wipes all existing data first)")
	}
	if auditCmd.Flags().Lookup("search") == nil {
		auditCmd.Flags().String("search", "", "Filter entries by user, action or details")
	}

	// Add subcommands to the newly created root command.
	cmd.AddCommand(
		dicomCmd,
		pubmedCmd,
		qrCmd,
		pushCmd,
		trustHostCmd,
		backupCmd,
		restoreCmd,
		auditCmd,
		dbCmd,
		versionCmd,
	)

	return cmd
}

// resolveBuildVersion computes the best-available version, commit and build
// date for the running binary. If `info` is nil, it reads build info from
// the runtime. This helper is separated to make unit testing straightforward.
func resolveBuildVersion(info *debug.BuildInfo) (versionOut, commitOut, dateOut string) {
	resolvedVersion := version
	resolvedCommit := gitCommit
	resolvedDate := buildDate

	var ok bool
	if info == nil {
		if infoLocal, found := debug.ReadBuildInfo(); found {
			info = infoLocal
			ok = true
		}
	} else {
		ok = true
	}

	if ok && info != nil {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			resolvedVersion = info.Main.Version
		}
		// If Main doesn't contain the version (some build paths), try to
		// find our module in the dependencies and use that version.
		if (resolvedVersion == "dev" || resolvedVersion == "(devel)") && info.Deps != nil {
			for _, dep := range info.Deps {
				if dep.Path == "github.com/bnrobert/gobro" && dep.Version != "" {
					resolvedVersion = dep.Version
					break
				}
			}
		}

		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" {
					resolvedCommit = s.Value
				}
			case "vcs.time":
				if s.Value != "" {
					resolvedDate = s.Value
				}
			}
		}
	}

	// As a last resort, if no version was discovered, but a gitCommit was
	// provided via ldflags, show that to aid support.
	if resolvedVersion == "dev" && gitCommit != "dev" && gitCommit != "" {
		resolvedVersion = gitCommit
	}

	return resolvedVersion, resolvedCommit, resolvedDate
}

// versionCmd prints the resolved version, commit and build date so users
// and CI can run `gobro version`.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		resolvedVersion, resolvedCommit, resolvedDate := resolveBuildVersion(nil)
		fmt.Printf("version: %s\n", resolvedVersion)
		fmt.Printf("commit: %s\n", resolvedCommit)
		if resolvedDate != "" {
			fmt.Printf("built: %s\n", resolvedDate)
		}
	},
}

// trustHostCmd represents the 'trust-host' command.
// It facilitates the initial trust of a new drop box host by fetching its
// public SSH key, displaying its fingerprint, and prompting the user to save
// it to the database as a known host.
var trustHostCmd = &cobra.Command{
	Use:   "trust-host [host[:port]]",
	Short: "Adds a host's public key to the list of known hosts",
	Long: `Connects to a host for the first time, retrieves its public key,
and prompts the user to save it to the database. This is a required
step before 'gobro push' can upload to a new drop box.

With no argument, the host from the push section of the config is used.`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: setupDefaultServices,
	Run: func(cmd *cobra.Command, args []string) {
		target := appConfig.Push.Host
		if len(args) > 0 {
			target = args[0]
		}
		if target == "" {
			log.Fatalf("%s", i18n.T("trust_host.error_no_host"))
		}
		canonicalHost := transfer.CanonicalizeHostPort(target)

		fmt.Printf("Attempting to retrieve host key from %s…\n", canonicalHost)
		key, err := transfer.GetRemoteHostKey(target)
		if err != nil {
			log.Fatalf("%s", i18n.T("trust_host.error_get_key", err))
		}
		fmt.Printf("The authenticity of host '%s' can't be established.\n", canonicalHost)
		fmt.Printf("Key fingerprint: %s\n", transfer.Fingerprint(key))

		// prompt user
		ans := promptForConfirmation("Are you sure you want to continue connecting (yes/no)? ")
		if ans != "yes" && ans != "y" {
			fmt.Println("Cancelled.")
			return
		}
		// Save the retrieved key into the store, keyed by the bare hostname.
		hostname, _, err := transfer.ParseHostPort(target)
		if err != nil {
			log.Fatalf("%s", i18n.T("trust_host.error_get_key", err))
		}
		line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(key)))
		if err := db.AddKnownHostKey(hostname, line); err != nil {
			log.Fatalf("%s", i18n.T("trust_host.error_save", err))
		}
		_ = db.LogAction("TRUST_HOST", hostname+" "+transfer.Fingerprint(key))
		fmt.Printf("Warning: Permanently added '%s' (%s) to the list of known hosts.\n", hostname, key.Type())
	},
}

// pushCmd represents the 'push' command.
// It uploads an anonymized file or directory tree to the configured drop box
// over SFTP.
var pushCmd = &cobra.Command{
	Use:   "push <file|dir>",
	Short: "Upload anonymized data to the configured drop box over SFTP",
	Long: `Uploads a file or a directory tree to the drop box configured in the push
section of the config file. Uploads are atomic on the remote side (temp
name, then rename), and the transfer is recorded in the audit log.

Only paths inside an 'anonymized' tree are accepted; use --force when you
really do mean to push something else.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: setupDefaultServices,
	Run: func(cmd *cobra.Command, args []string) {
		localPath := args[0]
		st, err := os.Stat(localPath)
		if err != nil {
			log.Fatalf("%s", i18n.T("push.cli_error_push", err))
		}
		if !forcePush && !transfer.IsAnonymizedPath(localPath) {
			log.Fatalf("%s", i18n.T("push.cli_refuse_unanonymized", localPath))
		}

		cfg := transfer.Config{
			Host:      appConfig.Push.Host,
			Port:      appConfig.Push.Port,
			User:      appConfig.Push.User,
			RemoteDir: appConfig.Push.RemoteDir,
			KeyFile:   appConfig.Push.KeyFile,
		}
		fmt.Println(i18n.T("push.cli_starting", cfg.Host))
		pusher, err := transfer.NewPusher(cfg)
		if err != nil {
			log.Fatalf("%s", i18n.T("push.cli_error_connect", err))
		}
		defer pusher.Close()

		if st.IsDir() {
			res, err := pusher.PushDir(localPath, cfg.RemoteDir, func(done, total int, path string, perr error) {
				if perr != nil {
					fmt.Printf("%s\n", i18n.T("push.cli_file_fail", path, perr))
				} else {
					fmt.Printf("%s\n", i18n.T("push.cli_file_ok", path))
				}
			})
			if err != nil {
				log.Fatalf("%s", i18n.T("push.cli_error_push", err))
			}
			_ = db.LogAction("PUSH_FILES", fmt.Sprintf("%d/%d from %s to %s", res.Pushed, res.Total, localPath, cfg.Host))
			fmt.Printf("%s\n", i18n.T("push.cli_summary", res.Pushed, res.Total, res.Failed))
			if res.Failed > 0 {
				os.Exit(1)
			}
			return
		}

		remotePath := path.Join(cfg.RemoteDir, filepath.Base(localPath))
		if err := pusher.PushFile(localPath, remotePath); err != nil {
			log.Fatalf("%s", i18n.T("push.cli_error_push", err))
		}
		_ = db.LogAction("PUSH_FILES", fmt.Sprintf("1/1 from %s to %s", localPath, cfg.Host))
		fmt.Printf("%s\n", i18n.T("push.cli_pushed_file", remotePath))
	},
}

// auditCmd shows the audit log.
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the audit log",
	Long: `Display the audit log in table format, newest entries first.
You can filter entries by user, action or details with --search.`,
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		searchTerm, _ := cmd.Flags().GetString("search")

		entries, err := db.GetAllAuditLogEntries()
		if err != nil {
			return fmt.Errorf("failed to load audit log: %w", err)
		}

		// Filter by search term
		if searchTerm != "" {
			searchLower := strings.ToLower(searchTerm)
			filtered := []model.AuditLogEntry{}
			for _, e := range entries {
				if strings.Contains(strings.ToLower(e.Username), searchLower) ||
					strings.Contains(strings.ToLower(e.Action), searchLower) ||
					strings.Contains(strings.ToLower(e.Details), searchLower) {
					filtered = append(filtered, e)
				}
			}
			entries = filtered
		}

		if len(entries) == 0 {
			fmt.Println("No audit log entries found.")
			return nil
		}

		// Display as table
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTIMESTAMP\tUSER\tACTION\tDETAILS")
		for _, e := range entries {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
				e.ID, e.Timestamp, e.Username, e.Action, e.Details)
		}
		w.Flush()

		return nil
	},
}

// dbCmd groups database utilities.
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database utilities",
}

// dbMaintainCmd runs database maintenance tasks for the configured database.
var dbMaintainCmd = &cobra.Command{
	Use:     "maintain",
	Short:   "Run database maintenance (VACUUM/OPTIMIZE) for the configured DB",
	Long:    `Runs engine-specific maintenance tasks (VACUUM, OPTIMIZE TABLE, PRAGMA optimize).`,
	PreRunE: setupDefaultServices,
	Run: func(cmd *cobra.Command, args []string) {
		timeoutSec, _ := cmd.Flags().GetInt("timeout")
		dsn := appConfig.Database.Dsn
		dbType := appConfig.Database.Type
		if timeoutSec > 0 {
			done := make(chan error, 1)
			go func() {
				done <- db.RunDBMaintenance(dbType, dsn)
			}()
			select {
			case err := <-done:
				if err != nil {
					fmt.Printf("Maintenance failed: %v\n", err)
					os.Exit(1)
				}
				fmt.Println("Maintenance completed successfully")
			case <-time.After(time.Duration(timeoutSec) * time.Second):
				fmt.Println("Maintenance timed out")
				os.Exit(2)
			}
			return
		}
		if err := db.RunDBMaintenance(dbType, dsn); err != nil {
			fmt.Printf("Maintenance failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Maintenance completed successfully")
	},
}

func init() {
	dbCmd.AddCommand(dbMaintainCmd)
	dbMaintainCmd.Flags().Int("timeout", 0, "Timeout in seconds for maintenance (0 means no timeout)")
}

// backupCmd represents the 'backup' command.
// It dumps all data from the database into a single compressed JSON file.
var backupCmd = &cobra.Command{
	Use:   "backup [output-file]",
	Short: "Create a compressed (zstd) JSON backup of the database",
	Long: `Dumps the entire contents of the Gobro database (DICOM catalog, bibliography,
audit log, known hosts) into a single, Zstandard-compressed JSON file.

If an output file is specified, '.zst' will be appended to the name if it's not already present.
If no output file is specified, a default filename 'gobro-backup-YYYY-MM-DD.json.zst' is used.

This file can be used for disaster recovery or for migrating to a different database backend.

Examples:
  # Backup to a default file (e.g., gobro-backup-2026-08-25.json.zst)
  gobro backup

  # Backup to a specific file
  gobro backup my-backup.json`, // .zst will be appended
	Args:    cobra.MaximumNArgs(1),
	PreRunE: setupDefaultServices,
	Run: func(cmd *cobra.Command, args []string) {
		var outputFile string
		if len(args) == 0 {
			outputFile = backup.DefaultFilename(time.Now())
		} else {
			outputFile = backup.NormalizeFilename(args[0])
		}
		fmt.Println(i18n.T("backup.cli_starting"))
		data, err := db.ExportDataForBackup()
		if err != nil {
			log.Fatalf("%s", i18n.T("backup.cli_error_export", err))
		}
		outf, err := os.Create(outputFile)
		if err != nil {
			log.Fatalf("%s", i18n.T("backup.cli_error_write", err))
		}
		defer func() { _ = outf.Close() }()
		if err := backup.Write(outf, data); err != nil {
			log.Fatalf("%s", i18n.T("backup.cli_error_write", err))
		}
		_ = db.LogAction("BACKUP_DB", outputFile)
		fmt.Println(i18n.T("backup.cli_success", outputFile))
	},
}

// restoreCmd represents the 'restore' command.
// It restores the database from a compressed JSON backup file.
var restoreCmd = &cobra.Command{
	Use:   "restore <backup-file.zst>",
	Short: "Restore the database from a compressed JSON backup",
	Long: `Restores the Gobro database from a Zstandard-compressed JSON backup file.
By default, this command performs a non-destructive "integration" restore, only adding
data that does not already exist.

To perform a full, destructive restore that WIPES all existing data before importing, use the --full flag.
WARNING: The --full flag is destructive and not reversible.
This command is intended for disaster recovery or for migrating between
database backends (e.g., from SQLite to PostgreSQL).

Example (Integrate):
  gobro restore ./gobro-backup-2026-08-25.json.zst

Example (Full Restore):
  gobro restore --full ./gobro-backup-2026-08-25.json.zst`,
	Args:    cobra.ExactArgs(1),
	PreRunE: setupDefaultServices,
	Run: func(cmd *cobra.Command, args []string) {
		inputFile := args[0]
		if fullRestore && term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Println(i18n.T("restore.cli_confirm_full"))
			ans := promptForConfirmation(i18n.T("restore.cli_confirm_prompt"))
			if ans != "yes" && ans != "y" {
				fmt.Println(i18n.T("restore.cli_aborted"))
				return
			}
		}
		fmt.Println(i18n.T("restore.cli_starting", inputFile))
		f, err := os.Open(inputFile)
		if err != nil {
			log.Fatalf("%s", i18n.T("restore.cli_error_read", err))
		}
		defer func() { _ = f.Close() }()
		if err := backup.Restore(f, backup.Options{Full: fullRestore}, db.Current()); err != nil {
			log.Fatalf("%s", i18n.T("restore.cli_error_import", err))
		}
		_ = db.LogAction("RESTORE_DB", inputFile)
		fmt.Println(i18n.T("restore.cli_success"))
	},
}

// promptForConfirmation displays a prompt and reads a line from stdin.
func promptForConfirmation(prompt string) string {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	return strings.TrimSpace(strings.ToLower(answer))
}
