package tenant

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-tenancy/apps/cli/cmd/clienv"
	mediarepo "github.com/zenGate-Global/palmyra-tenancy/domains/media/be/repo"
	mediaservice "github.com/zenGate-Global/palmyra-tenancy/domains/media/be/service"
	tenantsservice "github.com/zenGate-Global/palmyra-tenancy/domains/tenants/be/service"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/media"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/storage"
)

// Command groups tenant registry operations.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Tenant registry management",
	}

	cmd.AddCommand(createCommand())
	cmd.AddCommand(addDomainCommand())
	cmd.AddCommand(removeDomainCommand())
	cmd.AddCommand(purgeMediaCommand())
	return cmd
}

func createCommand() *cobra.Command {
	var slug string
	var displayName string
	var status string
	var domains []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a tenant and map its domains",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svcs, err := clienv.Open(ctx)
			if err != nil {
				return err
			}
			defer svcs.Close()

			input := tenantsservice.CreateInput{
				Slug:    slug,
				Status:  tenantsservice.Status(strings.ToLower(strings.TrimSpace(status))),
				Domains: domains,
			}
			if strings.TrimSpace(displayName) != "" {
				input.DisplayName = &displayName
			}

			created, err := svcs.Tenants.Create(ctx, input)
			if err != nil {
				return describe(err)
			}
			printTenant(cmd, created)
			return nil
		},
	}

	cmd.Flags().StringVar(&slug, "slug", "", "tenant slug (kebab-case)")
	cmd.Flags().StringVar(&displayName, "display-name", "", "optional display name")
	cmd.Flags().StringVar(&status, "status", string(tenantsservice.StatusActive), "initial status: pending, active or disabled")
	cmd.Flags().StringSliceVar(&domains, "domain", nil, "domain mapped to the tenant (repeatable)")
	_ = cmd.MarkFlagRequired("slug")

	return cmd
}

func addDomainCommand() *cobra.Command {
	var ref string
	var domain string

	cmd := &cobra.Command{
		Use:   "add-domain",
		Short: "Map a domain to a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svcs, err := clienv.Open(ctx)
			if err != nil {
				return err
			}
			defer svcs.Close()

			t, err := clienv.ResolveTenant(ctx, svcs.Tenants, ref)
			if err != nil {
				return describe(err)
			}
			updated, err := svcs.Tenants.AddDomain(ctx, t.ID, domain)
			if err != nil {
				return describe(err)
			}
			printTenant(cmd, updated)
			return nil
		},
	}

	cmd.Flags().StringVar(&ref, "tenant", "", "tenant id or slug")
	cmd.Flags().StringVar(&domain, "domain", "", "domain to map")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("domain")

	return cmd
}

func removeDomainCommand() *cobra.Command {
	var ref string
	var domain string

	cmd := &cobra.Command{
		Use:   "remove-domain",
		Short: "Unmap a domain from a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svcs, err := clienv.Open(ctx)
			if err != nil {
				return err
			}
			defer svcs.Close()

			t, err := clienv.ResolveTenant(ctx, svcs.Tenants, ref)
			if err != nil {
				return describe(err)
			}
			updated, err := svcs.Tenants.RemoveDomain(ctx, t.ID, domain)
			if err != nil {
				return describe(err)
			}
			printTenant(cmd, updated)
			return nil
		},
	}

	cmd.Flags().StringVar(&ref, "tenant", "", "tenant id or slug")
	cmd.Flags().StringVar(&domain, "domain", "", "domain to unmap")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("domain")

	return cmd
}

func purgeMediaCommand() *cobra.Command {
	var ref string
	var objects storage.Config

	cmd := &cobra.Command{
		Use:   "purge-media",
		Short: "Delete every media object and record of a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			logger, err := clienv.Logger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			svcs, err := clienv.Open(ctx)
			if err != nil {
				return err
			}
			defer svcs.Close()

			t, err := clienv.ResolveTenant(ctx, svcs.Tenants, ref)
			if err != nil {
				return describe(err)
			}

			store, closeStore, err := storage.Open(ctx, objects)
			if err != nil {
				return err
			}
			defer closeStore()

			mediaStore, err := persistence.NewMediaStore(svcs.Pool, clienv.Schema())
			if err != nil {
				return fmt.Errorf("init media store: %w", err)
			}
			svc := mediaservice.New(mediarepo.NewPostgresRepository(mediaStore), store, media.TenantAwarePaths{}, 0, logger)

			res, err := svc.PurgeTenant(ctx, t.ID)
			if err != nil {
				return err
			}
			logger.Info("tenant media purged", zap.String("tenantId", t.ID.String()))
			fmt.Fprintf(cmd.OutOrStdout(), "tenant %s: removed %d objects and %d records\n", t.Slug, res.Objects, res.Records)
			return nil
		},
	}

	cmd.Flags().StringVar(&ref, "tenant", "", "tenant id or slug")
	cmd.Flags().StringVar(&objects.Backend, "storage-backend", clienv.EnvOr("STORAGE_BACKEND", storage.BackendGCS), "object storage backend: gcs or local")
	cmd.Flags().StringVar(&objects.Bucket, "storage-bucket", clienv.EnvOr("STORAGE_BUCKET", ""), "bucket for the gcs backend")
	cmd.Flags().StringVar(&objects.LocalDir, "storage-local-dir", clienv.EnvOr("STORAGE_LOCAL_DIR", "./.data/storage"), "root directory for the local backend")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

func printTenant(cmd *cobra.Command, t tenantsservice.Tenant) {
	fmt.Fprintf(cmd.OutOrStdout(), "tenant %s (%s) status=%s domains=%s\n", t.Slug, t.ID, t.Status, strings.Join(t.Domains, ","))
}

func describe(err error) error {
	var vErr *tenantsservice.ValidationError
	if errors.As(err, &vErr) {
		return clienv.InvalidInput(vErr.Fields)
	}
	return err
}
