package clusterd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "state", StateFileName))
}

func TestStore_Read_NotFound(t *testing.T) {
	store := newTestStore(t)

	value, err := store.Read("TerraformVarsOpenstack")

	assert.Nil(t, value)
	assert.ErrorIs(t, err, ErrConfigNotFound)
	assert.Contains(t, err.Error(), "TerraformVarsOpenstack")
}

func TestStore_WriteRead(t *testing.T) {
	store := newTestStore(t)

	err := store.Write("TerraformVarsOpenstack", map[string]any{
		"enable-manila":   true,
		"horizon-plugins": []any{"manila"},
	})
	require.NoError(t, err)

	value, err := store.Read("TerraformVarsOpenstack")
	require.NoError(t, err)
	assert.Equal(t, true, value["enable-manila"])
	assert.Equal(t, []any{"manila"}, value["horizon-plugins"])

	_, err = os.Stat(store.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")
}

func TestStore_WritePreservesOtherKeys(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Write("a", map[string]any{"x": 1}))
	require.NoError(t, store.Write("b", map[string]any{"y": 2}))
	require.NoError(t, store.SetFeatureEnabled("shared-filesystem", true))

	a, err := store.Read("a")
	require.NoError(t, err)
	assert.Equal(t, 1, a["x"])

	enabled, err := store.FeatureEnabled("shared-filesystem")
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Write("TerraformVarsManilaDataPlan", map[string]any{"machine_ids": []any{1}}))

	require.NoError(t, store.Delete("TerraformVarsManilaDataPlan"))
	require.NoError(t, store.Delete("never-written"))

	_, err := store.Read("TerraformVarsManilaDataPlan")
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestStore_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), StateFileName)
	require.NoError(t, os.WriteFile(path, []byte("config: [unclosed"), 0o600))
	store := NewStore(path)

	_, err := store.Read("anything")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read cluster state")
}

func TestReadOrEmpty(t *testing.T) {
	store := newTestStore(t)

	value, err := ReadOrEmpty(store, "missing")
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, store.Write("present", map[string]any{"k": "v"}))
	value, err = ReadOrEmpty(store, "present")
	require.NoError(t, err)
	assert.Equal(t, "v", value["k"])
}

func TestResolvePath(t *testing.T) {
	t.Run("env overrides everything", func(t *testing.T) {
		t.Setenv("SUNBEAM_STATE_PATH", "/custom/state.yaml")
		assert.Equal(t, "/custom/state.yaml", ResolvePath("/base", "/explicit.yaml"))
	})
	t.Run("explicit path", func(t *testing.T) {
		t.Setenv("SUNBEAM_STATE_PATH", "")
		assert.Equal(t, "/explicit.yaml", ResolvePath("/base", "/explicit.yaml"))
	})
	t.Run("default under base", func(t *testing.T) {
		t.Setenv("SUNBEAM_STATE_PATH", "")
		assert.Equal(t, filepath.Join("/base", StateFileName), ResolvePath("/base", ""))
	})
}

func TestStore_Nodes(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.AddNode(Node{Name: "node2", Roles: []string{RoleStorage}, MachineID: 2}))
	require.NoError(t, store.AddNode(Node{Name: "node1", Roles: []string{RoleControl, RoleStorage}, MachineID: 1}))
	require.NoError(t, store.AddNode(Node{Name: "node3", Roles: []string{RoleCompute}, MachineID: 3}))

	storage, err := store.ListNodes(RoleStorage)
	require.NoError(t, err)
	require.Len(t, storage, 2)
	assert.Equal(t, "node1", storage[0].Name)

	ids, err := store.MachineIDs(RoleStorage)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ids)

	require.NoError(t, store.AddNode(Node{Name: "node0", Roles: []string{RoleStorage}, MachineID: UnassignedMachine}))
	ids, err = store.MachineIDs(RoleStorage)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ids, "unassigned machines are left out")

	all, err := store.ListNodes("")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	node, err := store.GetNode("node3")
	require.NoError(t, err)
	assert.True(t, node.HasRole(RoleCompute))
	assert.False(t, node.HasRole(RoleStorage))

	// Replace keeps a single entry.
	require.NoError(t, store.AddNode(Node{Name: "node3", Roles: []string{RoleCompute}, MachineID: 30}))
	node, err = store.GetNode("node3")
	require.NoError(t, err)
	assert.Equal(t, 30, node.MachineID)

	require.NoError(t, store.RemoveNode("node3"))
	_, err = store.GetNode("node3")
	assert.ErrorIs(t, err, ErrNodeNotFound)
	assert.ErrorIs(t, store.RemoveNode("node3"), ErrNodeNotFound)
}

func TestStore_EnabledFeatures(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SetFeatureEnabled("vault", true))
	require.NoError(t, store.SetFeatureEnabled("shared-filesystem", true))
	require.NoError(t, store.SetFeatureEnabled("dns", false))

	names, err := store.EnabledFeatures()
	require.NoError(t, err)
	assert.Equal(t, []string{"shared-filesystem", "vault"}, names)

	enabled, err := store.FeatureEnabled("unknown")
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestStore_Bootstrapped(t *testing.T) {
	store := newTestStore(t)

	done, err := store.Bootstrapped()
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, store.SetBootstrapped(true))
	done, err = store.Bootstrapped()
	require.NoError(t, err)
	assert.True(t, done)
}
