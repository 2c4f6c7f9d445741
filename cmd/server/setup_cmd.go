package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	goauth2 "golang.org/x/oauth2"

	"github.com/altafino/mail-watcher/internal/app"
	"github.com/altafino/mail-watcher/internal/config"
	xoauth "github.com/altafino/mail-watcher/internal/oauth2"
	"github.com/altafino/mail-watcher/internal/types"
	"github.com/altafino/mail-watcher/internal/wizard"
)

// CreateSetupCommand creates and returns the account setup command
func CreateSetupCommand() *cobra.Command {
	var reauthID string
	var optionsID string

	setupCmd := &cobra.Command{
		Use:   "setup",
		Short: "Add or update a mail account",
		Long:  `Run the guided setup flow to add a mail account, refresh its credentials or change its options`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := wizard.ModeCreate
			entryID := ""
			switch {
			case reauthID != "":
				mode = wizard.ModeReauth
				entryID = reauthID
			case optionsID != "":
				mode = wizard.ModeOptions
				entryID = optionsID
			}
			return runSetup(mode, entryID)
		},
	}

	setupCmd.Flags().StringVar(&reauthID, "reauth", "", "re-authenticate an existing entry by ID")
	setupCmd.Flags().StringVar(&optionsID, "options", "", "change the options of an existing entry by ID")

	return setupCmd
}

// CreateOptionsCommand creates and returns the options command
func CreateOptionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "options [entry-id]",
		Short: "Change the options of an existing mail account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(wizard.ModeOptions, args[0])
		},
	}
}

// CreateEntriesCommand creates and returns the entry listing command
func CreateEntriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "entries",
		Short: "List configured mail accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			application, err := app.New(setupLogger(), cfg)
			if err != nil {
				return fmt.Errorf("failed to create application: %w", err)
			}

			entries := application.Entries().List()
			if len(entries) == 0 {
				fmt.Println("No accounts configured")
				return nil
			}
			for _, entry := range entries {
				fmt.Printf("%s  %s\n", entry.ID, entry.Title)
			}
			return nil
		},
	}
}

func runSetup(mode wizard.Mode, entryID string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger()

	application, err := app.New(log, cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	// The callback server must be up before the interactive consent step.
	if err := application.Start(); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}
	defer application.Stop()

	driver := &setupDriver{
		app:    application,
		cfg:    cfg,
		reader: bufio.NewReader(os.Stdin),
	}
	return driver.run(mode, entryID)
}

type setupDriver struct {
	app    *app.App
	cfg    *types.Config
	reader *bufio.Reader
}

func (d *setupDriver) run(mode wizard.Mode, entryID string) error {
	ctx := context.Background()
	wiz := d.app.Wizard()

	st, err := wiz.Begin(mode, entryID)
	if err != nil {
		return err
	}

	for !st.Terminal() {
		input, abort, err := d.collect(st)
		if err != nil {
			return err
		}
		if abort {
			st = wiz.Abort(st)
			break
		}

		st, err = wiz.Submit(ctx, st, input)
		if err != nil {
			return err
		}
		printErrors(st.Errors)
	}

	switch st.Outcome {
	case wizard.OutcomeCreated:
		fmt.Printf("Account created: %s\n", st.EntryID)
	case wizard.OutcomeReauthSuccessful:
		fmt.Println("Re-authentication successful")
	case wizard.OutcomeUpdated:
		fmt.Println("Options updated")
	case wizard.OutcomeAborted:
		fmt.Println("Setup aborted")
	}
	return nil
}

// collect renders the current step and gathers its input from the terminal.
func (d *setupDriver) collect(st wizard.State) (map[string]any, bool, error) {
	switch st.Step {
	case wizard.StepMethodChoice:
		return map[string]any{
			wizard.KeyMethod: d.promptString("Authentication method (manual/o365/gmail)", "manual"),
		}, false, nil

	case wizard.StepReauthConfirm:
		if !d.promptBool(fmt.Sprintf("Re-authenticate account %q", stringOr(st.Data[wizard.KeyUsername], st.EntryID)), true) {
			return nil, true, nil
		}
		return nil, false, nil

	case wizard.StepManualCredentials, wizard.StepOptionsInit:
		return map[string]any{
			wizard.KeyHost:     d.promptString("IMAP host", stringOr(st.Data[wizard.KeyHost], "")),
			wizard.KeyPort:     d.promptInt("IMAP port", intOr(st.Data[wizard.KeyPort], wizard.DefaultPort)),
			wizard.KeyUsername: d.promptString("Username", stringOr(st.Data[wizard.KeyUsername], "")),
			wizard.KeyPassword: d.promptString("Password", ""),
		}, false, nil

	case wizard.StepO365Credentials:
		return map[string]any{
			wizard.KeyUsername:     d.promptString("Mailbox address", stringOr(st.Data[wizard.KeyUsername], "")),
			wizard.KeyClientID:     d.promptString("Client ID", stringOr(st.Data[wizard.KeyClientID], "")),
			wizard.KeyClientSecret: d.promptString("Client secret", ""),
			wizard.KeyTenantID:     d.promptString("Tenant ID", stringOr(st.Data[wizard.KeyTenantID], "")),
		}, false, nil

	case wizard.StepInteractiveConsent:
		code, err := d.awaitConsent()
		if err != nil {
			return nil, false, err
		}
		return map[string]any{"code": code}, false, nil

	case wizard.StepResourceSelection, wizard.StepOptionsResourceSelection:
		fmt.Printf("Available folders: %s\n", strings.Join(st.Folders, ", "))
		fmt.Printf("Available resources: %s\n", strings.Join(wizard.Resources(), ", "))
		input := map[string]any{
			wizard.KeyFolder:        d.promptString("Folder", stringOr(st.Data[wizard.KeyFolder], wizard.DefaultFolder)),
			wizard.KeyResources:     splitList(d.promptString("Resources (comma separated)", "usps_mail")),
			wizard.KeyScanInterval:  d.promptInt("Scan interval (minutes)", intOr(st.Data[wizard.KeyScanInterval], wizard.DefaultScanInterval)),
			wizard.KeyIMAPTimeout:   d.promptInt("IMAP timeout (seconds)", intOr(st.Data[wizard.KeyIMAPTimeout], wizard.DefaultIMAPTimeout)),
			wizard.KeyAmazonDays:    d.promptInt("Amazon order lookback (days)", intOr(st.Data[wizard.KeyAmazonDays], wizard.DefaultAmazonDays)),
			wizard.KeyDuration:      d.promptInt("Animation duration (seconds)", intOr(st.Data[wizard.KeyDuration], wizard.DefaultDuration)),
			wizard.KeyGenerateMP4:   d.promptBool("Generate mp4 from animated images", false),
			wizard.KeyAllowExternal: d.promptBool("Allow external access to generated images", false),
			wizard.KeyCustomImg:     d.promptBool("Use a custom fallback image", false),
		}
		if fwds := d.promptString("Amazon forwarding addresses (comma separated, empty for none)", ""); fwds != "" {
			input[wizard.KeyAmazonFwds] = fwds
		}
		return input, false, nil

	case wizard.StepCustomImagePath, wizard.StepOptionsCustomImagePath:
		return map[string]any{
			wizard.KeyCustomImgFile: d.promptString("Custom image path", stringOr(st.Data[wizard.KeyCustomImgFile], "")),
		}, false, nil
	}

	return nil, false, fmt.Errorf("no prompt for step %q", st.Step)
}

// awaitConsent prints the authorization URL and blocks until the provider
// redirects the browser to the callback server.
func (d *setupDriver) awaitConsent() (string, error) {
	reg := d.app.Webhooks().Registration()
	oauthCfg := xoauth.GetGoogleConfig(
		d.cfg.OAuth.GmailClientID,
		d.cfg.OAuth.GmailClientSecret,
		reg.URL(),
	)

	state := uuid.New().String()
	codeCh := d.app.Webhooks().Expect(state)

	authURL := oauthCfg.AuthCodeURL(state, goauth2.AccessTypeOffline, goauth2.ApprovalForce)
	fmt.Printf("Please open the following URL in your browser:\n\n%s\n\n", authURL)
	fmt.Println("Waiting for authentication...")

	code := <-codeCh
	fmt.Println("Authorization code received")
	return code, nil
}

func (d *setupDriver) promptString(label, def string) string {
	if def != "" {
		fmt.Printf("%s [%s]: ", label, def)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, _ := d.reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

func (d *setupDriver) promptInt(label string, def int) int {
	for {
		raw := d.promptString(label, strconv.Itoa(def))
		n, err := strconv.Atoi(raw)
		if err == nil {
			return n
		}
		fmt.Println("Please enter a number")
	}
}

func (d *setupDriver) promptBool(label string, def bool) bool {
	defLabel := "y/N"
	if def {
		defLabel = "Y/n"
	}
	raw := strings.ToLower(d.promptString(fmt.Sprintf("%s (%s)", label, defLabel), ""))
	switch raw {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	}
	return def
}

func printErrors(errs map[string]string) {
	for field, code := range errs {
		fmt.Printf("  %s: %s\n", field, code)
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func stringOr(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

func intOr(v any, def int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}
