package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"liscraper/pkg/auth"
	"liscraper/pkg/ui"
)

var (
	addInactive bool
	removeAll   bool
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage the LinkedIn account catalog",
	Long: `Manage the accounts a run rotates through.

Accounts are stored in:
  - the system keychain (when available)
  - an encrypted file, keyed by LISCRAPER_PASSPHRASE
  - LINKEDIN_ACCOUNTS or LINKEDIN_EMAIL_n/LINKEDIN_PASSWORD_n (read-only)

Runs use accounts in the order they were added.`,
}

var addAccountCmd = &cobra.Command{
	Use:   "add [email]",
	Short: "Add or update an account",
	Example: `  liscraper accounts add me@example.com
  liscraper accounts add spare@example.com --inactive`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAddAccount,
}

var removeAccountCmd = &cobra.Command{
	Use:   "remove [email]",
	Short: "Remove an account",
	Long: `Remove an account from every store holding it.

Without an email you are shown the catalog to choose from.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRemoveAccount,
}

var listAccountsCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts with masked passwords",
	RunE:  runListAccounts,
}

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(addAccountCmd, removeAccountCmd, listAccountsCmd)

	addAccountCmd.Flags().BoolVar(&addInactive, "inactive", false, "store the account but leave it out of rotation")
	removeAccountCmd.Flags().BoolVar(&removeAll, "all", false, "remove every stored account")
}

func runAddAccount(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	var email string
	if len(args) > 0 {
		email = args[0]
	} else if email, err = promptLine("LinkedIn email: "); err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}
	email = auth.NormalizeEmail(email)
	if email == "" {
		return errors.New("an email is required")
	}

	if existing, _ := manager.Retrieve(email); existing != nil {
		if !confirm(fmt.Sprintf("Account %q already exists. Update it?", email)) {
			return nil
		}
	}

	password, err := promptSecret("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return errors.New("a password is required")
	}

	account := &auth.Account{
		Email:        email,
		Password:     password,
		Active:       !addInactive,
		AddedAt:      time.Now(),
		LastModified: time.Now(),
	}
	if err := manager.Store(account); err != nil {
		return fmt.Errorf("failed to store account: %w", err)
	}

	ui.PrintSuccess("Account saved: " + email)
	if auth.IsKeyringAvailable() {
		ui.PrintInfo("Stored in", "system keychain")
	} else {
		ui.PrintInfo("Stored in", "encrypted credentials file")
	}
	return nil
}

// saveAccount adds an account collected through `session collect`
func saveAccount(email, password string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return err
	}
	now := time.Now()
	return manager.Store(&auth.Account{
		Email:        email,
		Password:     password,
		Active:       true,
		AddedAt:      now,
		LastModified: now,
	})
}

func runRemoveAccount(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if len(args) == 1 {
		if err := manager.Delete(args[0]); err != nil {
			return fmt.Errorf("failed to remove account: %w", err)
		}
		ui.PrintSuccess("Account removed: " + auth.NormalizeEmail(args[0]))
		return nil
	}

	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "use 'liscraper accounts add' to add one")
		return nil
	}

	if removeAll {
		answer, _ := promptLine(fmt.Sprintf("Remove ALL %d accounts? Type yes to confirm: ", len(accounts)))
		if answer != "yes" {
			return nil
		}
		var errs []error
		for _, account := range accounts {
			if err := manager.Delete(account.Email); err != nil {
				errs = append(errs, err)
			}
		}
		if err := errors.Join(errs...); err != nil {
			return fmt.Errorf("failed to remove some accounts: %w", err)
		}
		ui.PrintSuccess("All accounts removed")
		return nil
	}

	fmt.Println("Select account to remove:")
	for i, account := range accounts {
		fmt.Printf("  %d. %s\n", i+1, account.Email)
	}
	fmt.Println("  0. Cancel")

	input, err := promptLine("Choice: ")
	if err != nil {
		return err
	}
	choice, err := strconv.Atoi(input)
	if err != nil || choice < 0 || choice > len(accounts) {
		return fmt.Errorf("invalid choice %q", input)
	}
	if choice == 0 {
		return nil
	}

	email := accounts[choice-1].Email
	if err := manager.Delete(email); err != nil {
		return fmt.Errorf("failed to remove account: %w", err)
	}
	ui.PrintSuccess("Account removed: " + email)
	return nil
}

func runListAccounts(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "use 'liscraper accounts add' to add one")
		return nil
	}

	for i, account := range accounts {
		clean := auth.SanitizeAccount(account)
		state := ui.Green("active")
		if !clean.Active {
			state = ui.Yellow("inactive")
		}
		fmt.Printf("%d. %s  %s  password %s\n", i+1, clean.Email, state, clean.Password)
		if !clean.LastModified.IsZero() {
			fmt.Printf("   %s\n", ui.Dim("modified "+clean.LastModified.Local().Format(time.DateTime)))
		}
	}
	return nil
}
