package syncapp

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplysync/backend/internal/domain/supplier"
)

func cjItem(pid, title string, prices ...string) supplier.RawItem {
	variants := make([]any, 0, len(prices))
	for i, p := range prices {
		variants = append(variants, map[string]any{
			"variantSku":       pid + "-" + string(rune('A'+i)),
			"variantSellPrice": p,
		})
	}
	return supplier.RawItem{
		"pid":           pid,
		"productNameEn": title,
		"categoryName":  "Home > Lighting",
		"productImage":  "https://img.example.com/" + pid + ".jpg",
		"variants":      variants,
	}
}

func readArtifact(t *testing.T, env *testEnv, key string) []byte {
	t.Helper()
	rc, err := env.artifacts.Open(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	blob, err := io.ReadAll(rc)
	require.NoError(t, err)
	return blob
}

func TestDump_SingleJSON(t *testing.T) {
	env := newTestEnv(t,
		cjItem("P1", "Lamp", "10", "12.5"),
		cjItem("P2", "Fan", "30"),
		cjItem("P3", "Heater", "55"),
	)

	result, err := env.svc.Dump(context.Background(), DumpRequest{
		ProviderCode: "fake",
		Limit:        2,
		Filters:      map[string]string{"categoryId": "7"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Count)
	assert.Equal(t, 2, env.adapter.yielded, "no item requested past the limit")
	assert.Equal(t, "application/json", result.ContentType)
	assert.Regexp(t, `^dumps/fake/fake_dump_\d{8}-\d{6}\.json$`, result.Key)
	assert.Equal(t, "mem://"+result.Key, result.Location)

	var doc struct {
		Index DumpIndex        `json:"index"`
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal(readArtifact(t, env, result.Key), &doc))
	assert.Equal(t, 2, doc.Index.Count)
	assert.Equal(t, "fake", doc.Index.Provider)
	assert.Equal(t, 20, doc.Index.PageSize)
	assert.Equal(t, string(supplier.FetchPerDetail), doc.Index.FetchMode)
	assert.Equal(t, "7", doc.Index.Filters["categoryId"])
	require.Len(t, doc.Items, 2)
	assert.Equal(t, "P1", doc.Items[0]["pid"])

	// catalog untouched
	assert.Zero(t, env.count(t, "products"))

	stored, err := env.logs.FindByID(context.Background(), result.LogID)
	require.NoError(t, err)
	assert.Equal(t, supplier.SyncModeDownload, stored.Mode)
	assert.Equal(t, supplier.SyncStatusSuccess, stored.Status)
	assert.Equal(t, 2, stored.ItemCount)
	assert.Equal(t, int64(1), stored.RequestCount)
}

func TestDump_ZIPArchive(t *testing.T) {
	env := newTestEnv(t,
		cjItem("P1", "Lamp", "10", "12.5", "bad"),
		supplier.RawItem{"productName": "No Id"},
	)

	result, err := env.svc.Dump(context.Background(), DumpRequest{ProviderCode: "fake", Format: DumpFormatZIP})
	require.NoError(t, err)
	assert.Equal(t, "application/zip", result.ContentType)
	assert.Regexp(t, `\.zip$`, result.Key)

	blob := readArtifact(t, env, result.Key)
	zr, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	require.NoError(t, err)

	files := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		_ = rc.Close()
		files[f.Name] = data
	}
	assert.Contains(t, files, "index.json")
	assert.Contains(t, files, "items/P1.json")
	assert.Contains(t, files, "items/idx_1.json")

	rows, err := csv.NewReader(bytes.NewReader(files["summary.csv"])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, summaryHeaders, rows[0])
	assert.Equal(t, []string{"P1", "Lamp", "Home > Lighting", "3", "P1-A|P1-B|P1-C", "10", "12.5", "true"}, rows[1])
	assert.Equal(t, []string{"", "No Id", "", "0", "", "", "", "false"}, rows[2])
}

func TestDump_FetchFailureRecordsErrorLog(t *testing.T) {
	env := newTestEnv(t, cjItem("P1", "Lamp", "10"))
	env.adapter.failAt = 0
	env.adapter.failErr = errors.New("upstream down")

	_, err := env.svc.Dump(context.Background(), DumpRequest{ProviderCode: "fake"})
	require.Error(t, err)

	logs, err := env.svc.RecentLogs(context.Background(), "fake", 5)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, supplier.SyncStatusError, logs[0].Status)
	assert.Equal(t, supplier.SyncModeDownload, logs[0].Mode)
	assert.Equal(t, "upstream down", logs[0].FirstError)

	artifacts, err := env.artifacts.List(context.Background(), "dumps/")
	require.NoError(t, err)
	assert.Empty(t, artifacts)
}

func TestParseDumpFormat(t *testing.T) {
	f, err := ParseDumpFormat("")
	require.NoError(t, err)
	assert.Equal(t, DumpFormatJSON, f)

	f, err = ParseDumpFormat("ZIP")
	require.NoError(t, err)
	assert.Equal(t, DumpFormatZIP, f)

	_, err = ParseDumpFormat("tar")
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	t.Run("sample found", func(t *testing.T) {
		env := newTestEnv(t, cjItem("P1", "Lamp", "10"), cjItem("P2", "Fan", "30"))

		result, err := env.svc.Ping(context.Background(), "fake")
		require.NoError(t, err)
		assert.True(t, result.OK)
		assert.True(t, result.SampleFound)
		require.Len(t, env.adapter.listed, 1)
		assert.Equal(t, 1, env.adapter.listed[0].PageSize)
		assert.Equal(t, supplier.FetchListOnly, env.adapter.listed[0].FetchMode)
	})

	t.Run("empty catalog", func(t *testing.T) {
		env := newTestEnv(t)

		result, err := env.svc.Ping(context.Background(), "fake")
		require.NoError(t, err)
		assert.True(t, result.OK)
		assert.False(t, result.SampleFound)
	})

	t.Run("supplier failure", func(t *testing.T) {
		env := newTestEnv(t, cjItem("P1", "Lamp", "10"))
		env.adapter.failAt = 0
		env.adapter.failErr = supplier.ErrAuth

		result, err := env.svc.Ping(context.Background(), "fake")
		require.NoError(t, err)
		assert.False(t, result.OK)
		assert.Contains(t, result.Error, "authentication failed")
	})

	t.Run("unknown account", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.svc.Ping(context.Background(), "missing")
		assert.ErrorIs(t, err, supplier.ErrAccountNotFound)
	})
}
