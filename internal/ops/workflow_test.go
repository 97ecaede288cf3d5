package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/bssh/internal/errors"
)

// TestFullWorkflow exercises the connection lifecycle:
// add → show → edit → touch → list → export → remove → import → show
func TestFullWorkflow(t *testing.T) {
	database, _ := setupTestDB(t)
	ctx := context.Background()
	cfg := testConfig()

	// 1. Add
	addOut, err := Add(ctx, database, cfg, AddInput{Name: "prod-web", Host: "10.0.0.1", Tags: []string{"prod"}})
	require.NoError(t, err)
	require.NotEmpty(t, addOut.ID)
	id := addOut.ID

	// 2. Show by name
	showOut, err := Show(ctx, database, cfg, ShowInput{Target: "prod-web"})
	require.NoError(t, err)
	require.Equal(t, id, showOut.ID)
	require.Equal(t, "ssh -p 22 admin@10.0.0.1", showOut.Command)

	// 3. Edit port and tags
	editOut, err := Edit(ctx, database, EditInput{Target: id, Port: intPtr(2222), AddTags: []string{"web"}})
	require.NoError(t, err)
	require.Equal(t, 2222, editOut.Connection.Port)
	require.Equal(t, []string{"prod", "web"}, editOut.Connection.Tags)

	// 4. Touch, then list recent
	require.NoError(t, Touch(ctx, database, TouchInput{ID: id}))
	listOut, err := List(ctx, database, ListInput{RecentOnly: true})
	require.NoError(t, err)
	require.Len(t, listOut.Items, 1)
	require.Equal(t, id, listOut.Items[0].ID)

	// 5. Export
	exportOut, err := Export(ctx, database, cfg, ExportInput{})
	require.NoError(t, err)
	require.Equal(t, 1, exportOut.Count)

	// 6. Remove
	removeOut, err := Remove(ctx, database, RemoveInput{Target: "PROD-WEB"})
	require.NoError(t, err)
	require.Equal(t, id, removeOut.ID)

	_, err = Show(ctx, database, cfg, ShowInput{Target: id})
	require.Error(t, err)
	var bsshErr *errors.BsshError
	require.ErrorAs(t, err, &bsshErr)
	require.Equal(t, errors.ErrNotFound, bsshErr.Code)

	// 7. Import restores the same record
	importOut, err := Import(ctx, database, cfg, ImportInput{Path: exportOut.Path})
	require.NoError(t, err)
	require.Equal(t, 1, importOut.Imported)

	showOut, err = Show(ctx, database, cfg, ShowInput{Target: id})
	require.NoError(t, err)
	require.Equal(t, "ssh -p 2222 admin@10.0.0.1", showOut.Command)
	require.NotNil(t, showOut.LastUsedAt)
}
