package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/guildsight/guildsight/internal/model"
	"github.com/guildsight/guildsight/internal/store"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "key",
		Aliases: []string{"credential"},
		Short:   "Manage API credentials",
		Long:    "Create, list, revoke, and inspect the API credentials used to authenticate against the analytics API.",
	}

	cmd.AddCommand(newKeyCreateCmd())
	cmd.AddCommand(newKeyListCmd())
	cmd.AddCommand(newKeyRevokeCmd())
	cmd.AddCommand(newKeyStatsCmd())

	return cmd
}

// ---------- key create ----------

func newKeyCreateCmd() *cobra.Command {
	var (
		role string
		name string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API credential",
		Long:  "Generate a new API credential. The secret is shown once and cannot be retrieved again.",
		Example: `  guildsight key create --name "CI dashboard" --role read
  guildsight key create --name "ops" --role admin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyCreate(name, role)
		},
	}

	cmd.Flags().StringVar(&role, "role", "read", "Role for the credential: read or admin")
	cmd.Flags().StringVar(&name, "name", "", "Human-readable name for the credential (required)")
	cmd.MarkFlagRequired("name")

	return cmd
}

func runKeyCreate(name, roleName string) error {
	role, err := model.ParseRole(roleName)
	if err != nil {
		return err
	}

	st, err := openControlStore()
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}
	defer st.Close()

	cred, secret, err := st.IssueCredential(context.Background(), name, role)
	if err != nil {
		return fmt.Errorf("issue credential: %w", err)
	}

	// When piped, print only the secret so scripts can capture it.
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Println(secret)
		return nil
	}

	fmt.Println("Credential created:")
	fmt.Println()
	fmt.Printf("  ID:     %s\n", cred.ID)
	fmt.Printf("  Name:   %s\n", cred.Name)
	fmt.Printf("  Role:   %s\n", cred.Role)
	fmt.Printf("  Secret: %s\n", secret)
	fmt.Println()
	fmt.Println("  Save this secret now - it cannot be retrieved again.")
	return nil
}

// ---------- key list ----------

func newKeyListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all API credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runKeyList(jsonOutput bool) error {
	st, err := openControlStore()
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}
	defer st.Close()

	creds, err := st.ListCredentials(context.Background())
	if err != nil {
		return fmt.Errorf("list credentials: %w", err)
	}

	if jsonOutput {
		return printJSON(os.Stdout, creds)
	}

	if len(creds) == 0 {
		fmt.Println("No credentials yet. Use 'guildsight key create' to create one.")
		return nil
	}

	fmt.Printf("%-38s %-24s %-22s %-6s %-8s %s\n", "ID", "NAME", "PREFIX", "ROLE", "REVOKED", "LAST USED")
	for _, c := range creds {
		lastUsed := "never"
		if c.LastUsed != nil {
			lastUsed = c.LastUsed.Format(time.RFC3339)
		}
		revoked := "no"
		if c.Revoked {
			revoked = "yes"
		}
		fmt.Printf("%-38s %-24s %-22s %-6s %-8s %s\n", c.ID, c.Name, c.KeyPrefix, c.Role, revoked, lastUsed)
	}

	return nil
}

// ---------- key revoke ----------

func newKeyRevokeCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "revoke <id-or-prefix>",
		Short: "Revoke a credential by id or display prefix",
		Long:  "Permanently disable a credential. The record is kept for the audit trail; only authentication is cut off.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyRevoke(args[0], yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func runKeyRevoke(idOrPrefix string, yes bool) error {
	st, err := openControlStore()
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	cred, err := resolveCredential(ctx, st, idOrPrefix)
	if err != nil {
		return err
	}

	// Revocation is permanent; confirm interactively unless --yes was
	// given. Non-interactive callers (scripts, pipes) proceed unprompted.
	if !yes && term.IsTerminal(int(os.Stdin.Fd())) {
		if !confirm(fmt.Sprintf("Revoke credential %s (%s)? Clients using it stop authenticating immediately.", cred.KeyPrefix, cred.Name)) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if _, err := st.RevokeCredential(ctx, cred.ID); err != nil {
		return fmt.Errorf("revoke credential: %w", err)
	}

	fmt.Printf("Revoked credential %s (%s)\n", cred.ID, cred.Name)
	return nil
}

// confirm asks a yes/no question on the terminal and defaults to no.
func confirm(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// ---------- key stats ----------

func newKeyStatsCmd() *cobra.Command {
	var (
		days   int
		recent int
	)

	cmd := &cobra.Command{
		Use:   "stats <id-or-prefix>",
		Short: "Show a credential's usage summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyStats(args[0], days, recent)
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "Trailing window in days")
	cmd.Flags().IntVar(&recent, "recent", 0, "Also show the N most recent requests")

	return cmd
}

func runKeyStats(idOrPrefix string, days, recent int) error {
	st, err := openControlStore()
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	cred, err := resolveCredential(ctx, st, idOrPrefix)
	if err != nil {
		return err
	}

	usage, err := st.CredentialUsageStats(ctx, cred.ID, days, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("usage stats: %w", err)
	}

	fmt.Printf("Credential %s (%s), last %d days:\n", cred.ID, cred.Name, days)
	fmt.Printf("  Total requests: %d\n", usage.TotalRequests)
	fmt.Printf("  Requests today: %d\n", usage.RequestsToday)
	fmt.Printf("  Errors:         %d\n", usage.ErrorRequests)
	fmt.Printf("  Success rate:   %.1f%%\n", usage.SuccessRate)

	if recent > 0 {
		records, err := st.ListUsage(ctx, cred.ID, recent)
		if err != nil {
			return fmt.Errorf("list usage: %w", err)
		}
		fmt.Println()
		fmt.Printf("%-22s %-7s %-40s %s\n", "TIME", "STATUS", "ENDPOINT", "LATENCY")
		for _, r := range records {
			fmt.Printf("%-22s %-7d %-40s %.1fms\n",
				r.Timestamp.Format(time.RFC3339), r.Status, r.Method+" "+r.Endpoint, r.LatencyMs)
		}
	}

	return nil
}

// resolveCredential finds a credential by exact id or by display-prefix
// match. Prefix matches must be unambiguous.
func resolveCredential(ctx context.Context, st *store.Store, idOrPrefix string) (*model.Credential, error) {
	if cred, err := st.GetCredential(ctx, idOrPrefix); err == nil {
		return cred, nil
	}

	creds, err := st.ListCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}

	var matched *model.Credential
	for i := range creds {
		if strings.HasPrefix(creds[i].KeyPrefix, idOrPrefix) {
			if matched != nil {
				return nil, fmt.Errorf("prefix %q is ambiguous", idOrPrefix)
			}
			matched = &creds[i]
		}
	}
	if matched == nil {
		return nil, fmt.Errorf("no credential found for %q", idOrPrefix)
	}
	return matched, nil
}
