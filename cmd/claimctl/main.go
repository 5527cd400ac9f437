package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/medifast/claims-api/internal/model"
)

var rootCmd = &cobra.Command{
	Use:   "claimctl",
	Short: "MediFast claims CLI",
	Long: `claimctl drives a running claims API from the terminal.
Claims move submitted -> in_review -> under_investigation/pending_documents -> approved -> payment_processing -> completed, with rejected as the other exit.
Who may move them depends on role: patients submit and attach documents, hospitals and insurers review, admins assign and export audit logs.
Authenticate once with 'claimctl login', then pass the access token via --token or CLAIMCTL_TOKEN.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("CLAIMCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("server", "s", "http://localhost:8080", "claims API base URL")
	rootCmd.PersistentFlags().String("token", "", "bearer access token")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(claimsCmd())
	rootCmd.AddCommand(auditCmd())
	rootCmd.AddCommand(notificationsCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(healthCmd())
}

func loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange credentials for a token pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := client().login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(tokens)
			}
			fmt.Printf("Access token:  %s\n", tokens.AccessToken)
			fmt.Printf("Refresh token: %s\n", tokens.RefreshToken)
			fmt.Printf("Expires in:    %ds\n", tokens.ExpiresIn)
			fmt.Printf("\nexport CLAIMCTL_TOKEN=%s\n", tokens.AccessToken)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func claimsCmd() *cobra.Command {
	claims := &cobra.Command{
		Use:   "claims",
		Short: "Inspect and move claims",
	}
	claims.AddCommand(claimsListCmd())
	claims.AddCommand(claimsShowCmd())
	claims.AddCommand(claimsTransitionCmd())
	claims.AddCommand(claimsAssignCmd())
	return claims
}

func claimsListCmd() *cobra.Command {
	var status string
	var page, pageSize int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List claims visible to the caller",
		RunE: func(cmd *cobra.Command, args []string) error {
			claims, meta, err := client().listClaims(cmd.Context(), status, page, pageSize)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"claims": claims, "meta": meta})
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Number", "Status", "Patient", "Amount", "Updated"})
			for _, c := range claims {
				tw.AppendRow(table.Row{
					c.ClaimNumber,
					c.Status,
					c.ExtractedData.PatientName,
					fmt.Sprintf("%.2f", c.ExtractedData.ClaimAmount),
					c.UpdatedAt.Format(time.RFC3339),
				})
			}
			tw.Render()
			if meta != nil {
				fmt.Printf("page %d, %d claims total\n", meta.Page, meta.Total)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().IntVar(&page, "page", 0, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "page size")
	return cmd
}

func claimsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id-or-number>",
		Short: "Show one claim by UUID or CLM number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			claim, err := client().getClaim(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			return printJSONOrIndented(claim)
		},
	}
	return cmd
}

func claimsTransitionCmd() *cobra.Command {
	var status, notes string
	cmd := &cobra.Command{
		Use:   "transition <id>",
		Short: "Request a status transition",
		Long:  "Moves a claim to a new status as the authenticated role. Rejections and document requests need --notes.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid claim id %q", args[0])
			}
			claim, err := client().transitionClaim(cmd.Context(), id, status, notes)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(claim)
			}
			fmt.Printf("%s is now %s (version %d)\n", claim.ClaimNumber, claim.Status, claim.Version)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "target status")
	cmd.Flags().StringVar(&notes, "notes", "", "reviewer notes")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func claimsAssignCmd() *cobra.Command {
	var hospital, insurer string
	cmd := &cobra.Command{
		Use:   "assign <id>",
		Short: "Assign a claim to a hospital or insurer (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid claim id %q", args[0])
			}
			hospitalID, err := optionalUUID(hospital)
			if err != nil {
				return fmt.Errorf("invalid hospital id %q", hospital)
			}
			insurerID, err := optionalUUID(insurer)
			if err != nil {
				return fmt.Errorf("invalid insurer id %q", insurer)
			}
			claim, err := client().assignClaim(cmd.Context(), id, hospitalID, insurerID)
			if err != nil {
				return err
			}
			return printJSONOrIndented(claim)
		},
	}
	cmd.Flags().StringVar(&hospital, "hospital", "", "hospital account id")
	cmd.Flags().StringVar(&insurer, "insurer", "", "insurer account id")
	return cmd
}

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit <claim-id>",
		Short: "Show the audit trail for a claim (staff)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid claim id %q", args[0])
			}
			entries, err := client().claimTrail(cmd.Context(), id)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(entries)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Action", "From", "To", "Role", "Reason", "At"})
			for _, e := range entries {
				tw.AppendRow(table.Row{
					e.Action, e.FromStatus, e.ToStatus, e.ActorRole, e.Reason,
					e.CreatedAt.Format(time.RFC3339),
				})
			}
			tw.Render()
			return nil
		},
	}
	return cmd
}

func notificationsCmd() *cobra.Command {
	var unread bool
	var page, pageSize int
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List your notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			notifications, meta, err := client().listNotifications(cmd.Context(), unread, page, pageSize)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"notifications": notifications, "meta": meta})
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Created", "Type", "Title", "Read"})
			for _, n := range notifications {
				tw.AppendRow(table.Row{
					n.CreatedAt.Format(time.RFC3339), n.Type, n.Title, n.IsRead,
				})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "unread only")
	cmd.Flags().IntVar(&page, "page", 0, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "page size")
	return cmd
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show claim analytics (staff)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := client().claimAnalytics(cmd.Context())
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(stats)
			}
			fmt.Printf("Total claims:      %d\n", stats.TotalClaims)
			fmt.Printf("Total amount:      %.2f\n", stats.TotalClaimAmount)
			fmt.Printf("Approved amount:   %.2f\n", stats.ApprovedAmount)
			fmt.Printf("Rejection rate:    %.1f%%\n", stats.RejectionRate)
			fmt.Printf("Avg processing:    %.1f days\n", stats.AverageProcessingTime)
			fmt.Println("By status:")
			for _, status := range model.AllClaimStatuses {
				if count, ok := stats.ClaimsByStatus[status]; ok {
					fmt.Printf("  %s: %d\n", status, count)
				}
			}
			return nil
		},
	}
	return cmd
}

func healthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check API readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client().ready(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("API ready")
			return nil
		},
	}
	return cmd
}

// --- helpers ---

func client() *apiClient {
	return newAPIClient(viper.GetString("server"), viper.GetString("token"))
}

func printJSONOrIndented(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func optionalUUID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
