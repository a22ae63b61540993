package ganeti

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ := r.BasicAuth()
		requests = append(requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   user + ":" + pass,
		})
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := NewClientFromURL(server.URL, "admin", "secret")
	if err != nil {
		t.Fatal(err)
	}
	return client, &requests
}

func TestGetInstancesParsesNames(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": "vm1.example.org", "uri": "/2/instances/vm1.example.org"},
			{"id": "vm2.example.org", "uri": "/2/instances/vm2.example.org"},
		})
	})

	names, err := client.GetInstances(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []string{"vm1.example.org", "vm2.example.org"}, names)
	assert.Equal(t, "/2/instances", (*requests)[0].Path)
	assert.Equal(t, "admin:secret", (*requests)[0].Auth)
}

func TestGetVersion(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(2)
	})

	version, err := client.GetVersion(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, version)
	assert.Equal(t, "/version", (*requests)[0].Path)
}

func TestApiErrorFromStructuredBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code":    404,
			"message": "Error 404",
			"explain": "instance missing.example.org not found",
		})
	})

	_, err := client.GetInstance(context.Background(), "missing.example.org")
	assert.Error(t, err)
	assert.True(t, IsApiError(err))
	apiErr := err.(*ApiError)
	assert.Equal(t, http.StatusNotFound, apiErr.Code)
	assert.Contains(t, apiErr.Message, "instance missing.example.org not found")
}

func TestApiErrorFromPlainBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	})

	_, err := client.GetInfo(context.Background())
	assert.True(t, IsApiError(err))
	assert.Contains(t, err.Error(), "upstream down")
	assert.False(t, IsApiError(context.Canceled))
}

func TestTagRequestsCarryQueryParams(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(101)
	})

	jobID, err := client.AddInstanceTags(context.Background(), "vm1", []string{"web", "gwm:owner:2"})
	assert.NoError(t, err)
	assert.Equal(t, int64(101), jobID)

	jobID, err = client.DeleteInstanceTags(context.Background(), "vm1", []string{"gwm:owner:1"})
	assert.NoError(t, err)
	assert.Equal(t, int64(101), jobID)

	add := (*requests)[0]
	assert.Equal(t, http.MethodPut, add.Method)
	assert.Equal(t, "/2/instances/vm1/tags", add.Path)
	assert.Equal(t, "tag=web&tag=gwm%3Aowner%3A2", add.Query)

	del := (*requests)[1]
	assert.Equal(t, http.MethodDelete, del.Method)
	assert.Equal(t, "tag=gwm%3Aowner%3A1", del.Query)
}

func TestPowerOperations(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(7)
	})

	ctx := context.Background()
	for _, op := range []func(context.Context, string) (int64, error){
		client.ShutdownInstance, client.StartupInstance, client.RebootInstance,
	} {
		jobID, err := op(ctx, "vm1")
		assert.NoError(t, err)
		assert.Equal(t, int64(7), jobID)
	}

	assert.Equal(t, http.MethodPut, (*requests)[0].Method)
	assert.Equal(t, "/2/instances/vm1/shutdown", (*requests)[0].Path)
	assert.Equal(t, http.MethodPut, (*requests)[1].Method)
	assert.Equal(t, "/2/instances/vm1/startup", (*requests)[1].Path)
	assert.Equal(t, http.MethodPost, (*requests)[2].Method)
	assert.Equal(t, "/2/instances/vm1/reboot", (*requests)[2].Path)
}
