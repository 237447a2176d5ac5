//go:build integration

package listings

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sweeps/internal/listings/repository"
	"sweeps/pkg/client"
	"sweeps/pkg/model"
	"sweeps/test/integration/testutil"
)

type envelope[T any] struct {
	Data T `json:"data"`
}

type page struct {
	Data       []model.Listing `json:"data"`
	TotalCount int64           `json:"total_count"`
}

func decode[T any](t *testing.T, resp *client.Response) T {
	t.Helper()
	var env envelope[T]
	require.NoError(t, resp.DecodeJSON(&env), string(resp.Body))
	return env.Data
}

func noLive() model.ProcessOptions {
	return model.ProcessOptions{
		EnableFuzzyDuplicateDetection:    true,
		EnableExactURLDuplicateDetection: true,
	}
}

func TestValidate_DoesNotPersist(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, c := env.Setup(t)
	defer env.Cleanup(t, mongo)

	req := testutil.UniqueBatch(3).
		WithRow("Grand Prize000 Giveaway!!", "HTTPS://sweeps.example.com/entry/0?utm_source=x", model.Number(46000)).
		WithOptions(noLive()).
		Build()

	resp, err := c.Validate(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, client.GetErrorMessage(resp))

	result := decode[model.ProcessResult](t, resp)
	assert.Equal(t, 4, result.Diagnostics.TotalRows)
	assert.Equal(t, 3, result.Diagnostics.CleanedRows)
	assert.Len(t, result.CleanedRows, 3)

	assert.Zero(t, mongo.CountDocuments(t, repository.CollectionName, nil))
	assert.Zero(t, mongo.CountDocuments(t, repository.RunsCollectionName, nil))
}

func TestImport_PersistsRunAndListings(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, c := env.Setup(t)
	defer env.Cleanup(t, mongo)
	ctx := context.Background()

	resp, err := c.Import(ctx, testutil.UniqueBatch(5).WithOptions(noLive()).Build())
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, client.GetErrorMessage(resp))

	summary := decode[model.ImportSummary](t, resp)
	require.NotEmpty(t, summary.RunID)
	assert.Equal(t, 5, summary.Stored)
	assert.Equal(t, int64(5), summary.Inserted)

	assert.Equal(t, int64(5), mongo.CountDocuments(t, repository.CollectionName, nil))
	assert.Equal(t, int64(1), mongo.CountDocuments(t, repository.RunsCollectionName, nil))

	run, err := c.GetRun(ctx, summary.RunID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, run.StatusCode)
	assert.Equal(t, summary.RunID, decode[model.ImportSummary](t, run).RunID)

	listed, err := c.GetRunListings(ctx, summary.RunID, 2, 0)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, listed.StatusCode)

	var p page
	require.NoError(t, listed.DecodeJSON(&p))
	assert.Equal(t, int64(5), p.TotalCount)
	require.Len(t, p.Data, 2)
	assert.Equal(t, 0, p.Data[0].RowIndex)
	assert.Equal(t, 1, p.Data[1].RowIndex)
}

func TestImport_ReimportUpdatesByURL(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, c := env.Setup(t)
	defer env.Cleanup(t, mongo)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		resp, err := c.Import(ctx, testutil.UniqueBatch(3).WithOptions(noLive()).Build())
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode, client.GetErrorMessage(resp))

		summary := decode[model.ImportSummary](t, resp)
		if i == 0 {
			assert.Equal(t, int64(3), summary.Inserted)
		} else {
			assert.Equal(t, int64(0), summary.Inserted)
			assert.Equal(t, int64(3), summary.Updated)
		}
	}

	assert.Equal(t, int64(3), mongo.CountDocuments(t, repository.CollectionName, nil))
	assert.Equal(t, int64(2), mongo.CountDocuments(t, repository.RunsCollectionName, nil))

	found, err := c.Lookup(ctx, "https://SWEEPS.example.com/entry/1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, found.StatusCode, client.GetErrorMessage(found))
	assert.Equal(t, "https://sweeps.example.com/entry/1", decode[model.Listing](t, found).CanonicalURL)
}

func TestImport_CSVBody(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, c := env.Setup(t)
	defer env.Cleanup(t, mongo)

	body := testutil.UniqueBatch(2).
		WithRow("Grand Prize001 Giveaway", "https://sweeps.example.com/entry/1", model.Text("2030-12-31")).
		CSV()

	query := url.Values{"source": {"sheet.csv"}, "fuzzy": {"true"}, "exact_url": {"true"}}
	resp, err := c.ImportCSV(context.Background(), body, query, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, client.GetErrorMessage(resp))

	summary := decode[model.ImportSummary](t, resp)
	assert.Equal(t, "sheet.csv", summary.Source)
	assert.Equal(t, 2, summary.Stored)
	assert.Equal(t, 1, summary.Diagnostics.DuplicatesRemoved)
	assert.Equal(t, int64(2), mongo.CountDocuments(t, repository.CollectionName, nil))
}

func TestImport_Rejected(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, c := env.Setup(t)
	defer env.Cleanup(t, mongo)

	tests := []struct {
		name       string
		req        *model.BatchRequest
		wantStatus int
	}{
		{
			name:       "no rows",
			req:        testutil.NewBatchBuilder().Build(),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "negative live check cap",
			req: testutil.UniqueBatch(1).
				WithOptions(model.ProcessOptions{MaxLiveChecks: -1}).
				Build(),
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := c.Import(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode, client.GetErrorMessage(resp))
		})
	}

	assert.Zero(t, mongo.CountDocuments(t, repository.CollectionName, nil))
}
