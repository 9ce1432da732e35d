package permission

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-tenancy/platform/go/tenant"
)

type team struct{ id string }

func (t team) ScopeKey() string { return t.id }

func TestNormalize(t *testing.T) {
	id := uuid.New()
	explicit := ScopeID("abc")

	testCases := []struct {
		name  string
		input any
		want  *ScopeID
	}{
		{name: "nil", input: nil, want: nil},
		{name: "string", input: " abc ", want: ScopeID("abc").Ptr()},
		{name: "blank string", input: "  ", want: nil},
		{name: "scope id", input: ScopeID("abc"), want: ScopeID("abc").Ptr()},
		{name: "scope pointer", input: &explicit, want: ScopeID("abc").Ptr()},
		{name: "nil scope pointer", input: (*ScopeID)(nil), want: nil},
		{name: "uuid", input: id, want: ScopeID(id.String()).Ptr()},
		{name: "nil uuid", input: uuid.Nil, want: nil},
		{name: "entity reference", input: team{id: "team-7"}, want: ScopeID("team-7").Ptr()},
		{name: "tenant entity", input: tenant.Tenant{ID: id}, want: ScopeID(id.String()).Ptr()},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.input)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}

	_, err := Normalize(42)
	require.Error(t, err)
}

func TestCurrentPrefersResolvedTenant(t *testing.T) {
	scopes := NewScopes()
	require.NoError(t, scopes.Set("explicit"))

	tenantID := uuid.New()
	ctx := tenant.WithTenant(context.Background(), tenant.Tenant{ID: tenantID, Slug: "acme"})
	ctx, err := WithScope(ctx, "from-context")
	require.NoError(t, err)

	require.Equal(t, ScopeID(tenantID.String()).Ptr(), scopes.Current(ctx))
}

func TestCurrentFallsBackToContextThenExplicitThenGlobal(t *testing.T) {
	scopes := NewScopes()
	require.Nil(t, scopes.Current(context.Background()))

	require.NoError(t, scopes.Set(team{id: "job-scope"}))
	require.Equal(t, ScopeID("job-scope").Ptr(), scopes.Current(context.Background()))

	ctx, err := WithScope(context.Background(), "ctx-scope")
	require.NoError(t, err)
	require.Equal(t, ScopeID("ctx-scope").Ptr(), scopes.Current(ctx))

	// An explicit nil on the context forces the global scope.
	globalCtx, err := WithScope(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, scopes.Current(globalCtx))

	scopes.Clear()
	require.Nil(t, scopes.Current(context.Background()))
}

func TestCurrentReturnsCopy(t *testing.T) {
	scopes := NewScopes()
	require.NoError(t, scopes.Set("a"))

	got := scopes.Current(context.Background())
	*got = "mutated"

	require.Equal(t, ScopeID("a").Ptr(), scopes.Explicit())
}

func TestRunLeavesOverrideUntouched(t *testing.T) {
	scopes := NewScopes()
	require.NoError(t, scopes.Set("outer"))

	err := scopes.Run(context.Background(), "job", func(ctx context.Context) error {
		require.Equal(t, ScopeID("job").Ptr(), scopes.Current(ctx))
		require.Equal(t, ScopeID("outer").Ptr(), scopes.Explicit())
		return errors.New("job failed")
	})
	require.EqualError(t, err, "job failed")
	require.Equal(t, ScopeID("outer").Ptr(), scopes.Explicit())

	err = scopes.Run(context.Background(), nil, func(ctx context.Context) error {
		require.Nil(t, scopes.Current(ctx))
		return nil
	})
	require.NoError(t, err)

	require.Panics(t, func() {
		_ = scopes.Run(context.Background(), "panicky", func(context.Context) error {
			panic("boom")
		})
	})
	require.Equal(t, ScopeID("outer").Ptr(), scopes.Explicit())

	require.Error(t, scopes.Run(context.Background(), 3.14, func(context.Context) error {
		t.Fatal("fn must not run with an invalid scope")
		return nil
	}))
}

func TestOverlappingRunsDoNotLeakScope(t *testing.T) {
	scopes := NewScopes()

	aStarted := make(chan struct{})
	releaseA := make(chan struct{})
	bStarted := make(chan struct{})
	releaseB := make(chan struct{})
	seen := make(chan *ScopeID, 2)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = scopes.Run(context.Background(), "job-a", func(ctx context.Context) error {
			close(aStarted)
			<-releaseA
			seen <- scopes.Current(ctx)
			return nil
		})
	}()
	<-aStarted
	go func() {
		defer wg.Done()
		_ = scopes.Run(context.Background(), "job-b", func(ctx context.Context) error {
			close(bStarted)
			<-releaseB
			seen <- scopes.Current(ctx)
			return nil
		})
	}()
	<-bStarted

	close(releaseA)
	require.Equal(t, ScopeID("job-a").Ptr(), <-seen)
	close(releaseB)
	require.Equal(t, ScopeID("job-b").Ptr(), <-seen)
	wg.Wait()

	require.Nil(t, scopes.Explicit())
	require.Nil(t, scopes.Current(context.Background()))
}

func TestSetRejectsUnsupportedValue(t *testing.T) {
	scopes := NewScopes()
	require.NoError(t, scopes.Set("keep"))
	require.Error(t, scopes.Set(3.14))
	require.Equal(t, ScopeID("keep").Ptr(), scopes.Explicit())
}

func TestScopesConcurrentAccess(t *testing.T) {
	scopes := NewScopes()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = scopes.Set(uuid.New())
				return
			}
			_ = scopes.Current(context.Background())
		}(i)
	}
	wg.Wait()
}

func TestString(t *testing.T) {
	require.Equal(t, "global", String(nil))
	require.Equal(t, "abc", String(ScopeID("abc").Ptr()))
}
