package console

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/labdesk/pkg/labsdk"
)

func TestTable_Resolve(t *testing.T) {
	t.Parallel()

	table := NewTable(DefaultRoutes())

	tests := []struct {
		path     string
		name     string
		redirect string
		params   map[string]string
	}{
		{path: "/login", name: "Login"},
		{path: "/", redirect: "/dashboard"},
		{path: "", redirect: "/dashboard"},
		{path: "/dashboard", name: "Dashboard"},
		{path: "/dashboard/", name: "Dashboard"},
		{path: "/laboratory", name: "Laboratory", redirect: "/laboratory/list"},
		{path: "/laboratory/list?page=2", name: "LaboratoryList"},
		{path: "/laboratory/edit/42", name: "LaboratoryEdit", params: map[string]string{"id": "42"}},
		{path: "laboratory/edit/7", name: "LaboratoryEdit", params: map[string]string{"id": "7"}},
		{path: "/equipment/maintenance", name: "EquipmentMaintenance"},
		{path: "/statistics", name: "Statistics", redirect: "/statistics/overview"},
		{path: "/laboratory/edit", name: "NotFound"},
		{path: "/no/such/page", name: "NotFound"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			m := table.Resolve(tt.path)
			require.Equal(t, tt.name, m.Name)
			require.Equal(t, tt.redirect, m.Redirect)
			require.Equal(t, tt.params, m.Params)
		})
	}
}

func TestTable_MetaInheritance(t *testing.T) {
	t.Parallel()

	table := NewTable(DefaultRoutes())

	t.Run("children inherit parent roles", func(t *testing.T) {
		m := table.Resolve("/laboratory/list")
		require.Equal(t, []string{labsdk.RoleAdmin, labsdk.RoleTeacher}, m.Meta.Roles)
		require.True(t, m.RequiresAuth())
		require.Equal(t, "Laboratory List - "+TitleSuffix, m.Title())
	})

	t.Run("child roles override the parent", func(t *testing.T) {
		m := table.Resolve("/laboratory/create")
		require.Equal(t, []string{labsdk.RoleAdmin}, m.Meta.Roles)
	})

	t.Run("routes without roles admit everyone", func(t *testing.T) {
		require.Empty(t, table.Resolve("/reservation/list").Meta.Roles)
		require.Equal(t, []string{labsdk.RoleAdmin, labsdk.RoleTeacher}, table.Resolve("/reservation/approval").Meta.Roles)
	})

	t.Run("public routes", func(t *testing.T) {
		require.False(t, table.Resolve("/login").RequiresAuth())
		require.False(t, table.Resolve("/register").RequiresAuth())
	})

	t.Run("catch-all requires auth", func(t *testing.T) {
		m := table.Resolve("/nowhere")
		require.True(t, m.RequiresAuth())
		require.Equal(t, "Page Not Found - "+TitleSuffix, m.Title())
	})
}

func TestTable_CatchAllNeverShadows(t *testing.T) {
	t.Parallel()

	table := NewTable([]Route{
		{Path: "*", Name: "NotFound"},
		{Path: "/a", Name: "A"},
	})

	require.Equal(t, "A", table.Resolve("/a").Name)
	require.Equal(t, "NotFound", table.Resolve("/b").Name)
}

func TestTable_Patterns(t *testing.T) {
	t.Parallel()

	patterns := NewTable(DefaultRoutes()).Patterns()
	require.Contains(t, patterns, "/login")
	require.Contains(t, patterns, "/laboratory/edit/:id")
	require.Contains(t, patterns, "/settings")
	require.NotContains(t, patterns, "/")
	require.NotContains(t, patterns, "/laboratory")
	require.NotContains(t, patterns, "*")
}

func TestTable_Lookup(t *testing.T) {
	t.Parallel()

	table := NewTable(DefaultRoutes())

	m, ok := table.Lookup("/laboratory/edit/:id")
	require.True(t, ok)
	require.Equal(t, "LaboratoryEdit", m.Name)
	require.Equal(t, []string{labsdk.RoleAdmin}, m.Meta.Roles)
	require.Nil(t, m.Params)

	_, ok = table.Lookup("/laboratory/edit/3")
	require.False(t, ok)
}
