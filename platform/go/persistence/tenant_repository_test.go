package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestBootstrapSchemaIsIdempotent(t *testing.T) {
	pool, schema := mustTestPool(t)
	require.NoError(t, BootstrapSchema(context.Background(), pool, schema))
	require.Error(t, BootstrapSchema(context.Background(), pool, "Bad-Schema"))
}

func TestTenantStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	pool, schema := mustTestPool(t)

	store, err := NewTenantStore(pool, schema)
	require.NoError(t, err)

	name := "Acme Co"
	rec := TenantRecord{
		TenantID:    uuid.New(),
		Slug:        "acme-co",
		DisplayName: &name,
		Status:      "active",
		CreatedAt:   time.Now().UTC(),
	}

	inserted, err := store.Create(ctx, rec)
	require.NoError(t, err)
	require.Equal(t, rec.Slug, inserted.Slug)

	dup := rec
	dup.TenantID = uuid.New()
	_, err = store.Create(ctx, dup)
	require.ErrorIs(t, err, ErrConflict)

	require.NoError(t, store.AddDomain(ctx, rec.TenantID, "acme.example.com"))
	require.NoError(t, store.AddDomain(ctx, rec.TenantID, "acme.test"))

	byDomain, err := store.GetByDomain(ctx, "acme.example.com")
	require.NoError(t, err)
	require.Equal(t, rec.TenantID, byDomain.TenantID)
	require.Equal(t, []string{"acme.example.com", "acme.test"}, byDomain.Domains)

	_, err = store.GetByDomain(ctx, "unknown.example.com")
	require.ErrorIs(t, err, ErrNotFound)

	other := TenantRecord{TenantID: uuid.New(), Slug: "beta", Status: "active", CreatedAt: time.Now().UTC()}
	_, err = store.Create(ctx, other)
	require.NoError(t, err)
	require.ErrorIs(t, store.AddDomain(ctx, other.TenantID, "acme.test"), ErrConflict)

	inserted.Status = "disabled"
	updated, err := store.Update(ctx, inserted)
	require.NoError(t, err)
	require.Equal(t, "disabled", updated.Status)
	require.Len(t, updated.Domains, 2)

	require.NoError(t, store.RemoveDomain(ctx, rec.TenantID, "acme.test"))
	require.ErrorIs(t, store.RemoveDomain(ctx, rec.TenantID, "acme.test"), ErrNotFound)

	active := "active"
	records, total, err := store.List(ctx, &active, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "beta", records[0].Slug)

	_, err = store.Get(ctx, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}
