package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteBatchPostsJSON(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	var got batchRequest
	httpmock.RegisterResponder(http.MethodPost, "https://attendance.example.com/v1/checkins",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "secret", req.Header.Get("X-API-Key"))
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			if err := json.NewDecoder(req.Body).Decode(&got); err != nil {
				return nil, err
			}
			return httpmock.NewStringResponse(http.StatusOK, `{"status":"ok"}`), nil
		})

	client := NewRemoteClient("https://attendance.example.com/v1/checkins", "secret", 5*time.Second)
	err := client.WriteBatch(context.Background(), []RemoteCheckIn{
		{StudentID: "alice", Name: "Alice", Timestamp: 1700000000000, SyncedAt: 1700000060000},
	})
	require.NoError(t, err)

	require.Len(t, got.CheckIns, 1)
	assert.Equal(t, "alice", got.CheckIns[0].StudentID)
	assert.Equal(t, int64(1700000000000), got.CheckIns[0].Timestamp)
}

func TestWriteBatchServerError(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, "https://attendance.example.com/v1/checkins",
		httpmock.NewStringResponder(http.StatusInternalServerError, "boom"))

	client := NewRemoteClient("https://attendance.example.com/v1/checkins", "", 5*time.Second)
	err := client.WriteBatch(context.Background(), []RemoteCheckIn{{StudentID: "alice"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
