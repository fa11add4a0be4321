package dockapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkList_AppliesFallbacks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/networks", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, `[
			{"Id": "aaa111", "Name": "bridge", "Driver": "bridge", "Scope": "local"},
			{"Id": "bbb222", "Name": "mystery"}
		]`)
	})

	client := newTestClient(t, mux)
	networks, err := client.Networks.List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, networks, 2)

	assert.Equal(t, "bridge", networks[0].Driver)
	assert.Equal(t, "unknown", networks[1].Driver)
	assert.Equal(t, "local", networks[1].Scope)
}

func TestNetworkCreate_DefaultsAndInspect(t *testing.T) {
	var gotBody map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/networks/create", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeJSON(t, w, http.StatusCreated, `{"Id": "net123"}`)
	})
	mux.HandleFunc("/networks/net123", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, `{
			"Id": "net123", "Name": "appnet", "Driver": "bridge", "Scope": "local",
			"Containers": {"abc": {}, "def": {}}
		}`)
	})

	client := newTestClient(t, mux)
	network, err := client.Networks.Create(context.Background(), "appnet", CreateNetworkOptions{})
	require.NoError(t, err)

	assert.Equal(t, "appnet", gotBody["Name"])
	assert.Equal(t, "bridge", gotBody["Driver"])
	assert.Equal(t, true, gotBody["Attachable"])
	assert.Equal(t, true, gotBody["CheckDuplicate"])
	assert.Equal(t, false, gotBody["Internal"])

	assert.Equal(t, "appnet", network.Name)
	assert.Equal(t, 2, network.ContainerCount())
}

func TestNetworkCreate_InternalOverrides(t *testing.T) {
	attachable := false
	var gotBody map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/networks/create", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeJSON(t, w, http.StatusCreated, `{"Id": "net123"}`)
	})
	mux.HandleFunc("/networks/net123", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, `{"Id": "net123", "Name": "private"}`)
	})

	client := newTestClient(t, mux)
	_, err := client.Networks.Create(context.Background(), "private", CreateNetworkOptions{
		Driver:     "overlay",
		Internal:   true,
		Attachable: &attachable,
	})
	require.NoError(t, err)

	assert.Equal(t, "overlay", gotBody["Driver"])
	assert.Equal(t, true, gotBody["Internal"])
	assert.Equal(t, false, gotBody["Attachable"])
}

func TestNetworkRemove_ResolvesNameFirst(t *testing.T) {
	var deleted string
	mux := http.NewServeMux()
	mux.HandleFunc("/networks/appnet", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, `{"Id": "net123", "Name": "appnet"}`)
	})
	mux.HandleFunc("/networks/net123", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		deleted = "net123"
		w.WriteHeader(http.StatusNoContent)
	})

	client := newTestClient(t, mux)
	require.NoError(t, client.Networks.Remove(context.Background(), "appnet"))
	assert.Equal(t, "net123", deleted)
}

func TestNetworkRemove_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusNotFound, `{"message": "network ghost not found"}`)
	})

	client := newTestClient(t, mux)
	err := client.Networks.Remove(context.Background(), "ghost")
	assert.True(t, IsNotFound(err))
}

func TestNetworkConnectDisconnect(t *testing.T) {
	var connectBody, disconnectBody map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/networks/appnet/connect", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&connectBody))
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/networks/appnet/disconnect", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&disconnectBody))
		w.WriteHeader(http.StatusOK)
	})

	client := newTestClient(t, mux)
	ctx := context.Background()

	require.NoError(t, client.Networks.Connect(ctx, "appnet", "web"))
	assert.Equal(t, "web", connectBody["Container"])

	require.NoError(t, client.Networks.Disconnect(ctx, "appnet", "web", true))
	assert.Equal(t, "web", disconnectBody["Container"])
	assert.Equal(t, true, disconnectBody["Force"])
}

func TestNetworkPrune(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/networks/prune", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		writeJSON(t, w, http.StatusOK, `{"NetworksDeleted": ["stale1", "stale2"]}`)
	})

	client := newTestClient(t, mux)
	result, err := client.Networks.Prune(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"stale1", "stale2"}, result.NetworksDeleted)
}
