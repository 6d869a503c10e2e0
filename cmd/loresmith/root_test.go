// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Help(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"--help"})

	err := root.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "loresmith")
	assert.Contains(t, buf.String(), "serve")
	assert.Contains(t, buf.String(), "search")
	assert.Contains(t, buf.String(), "version")
}

func TestVersionCommand(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"version"})

	err := root.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "loresmith")
}

func TestServeCommand_RequiresValidConfig(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"serve", "--config", "/nonexistent/path.yaml"})

	err := root.Execute()
	assert.Error(t, err)
}

func TestSearchCommand_AgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/search" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "emergent systems", r.URL.Query().Get("q"))
		assert.Equal(t, "keyword", r.URL.Query().Get("mode"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"entry_id": "entry-1", "score": 0.75},
			},
		})
	}))
	defer srv.Close()

	old := defaultHTTPClient
	defaultHTTPClient = srv.Client()
	defer func() { defaultHTTPClient = old }()

	addr := srv.URL[len("http://"):]

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"search", "emergent systems", "--mode", "keyword", "--addr", addr})

	err := root.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "entry-1")
	assert.Contains(t, buf.String(), "0.75")
}

func TestSearchCommand_ServerDown(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"search", "anything", "--addr", "127.0.0.1:1"})

	err := root.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServerNotRunning)
}

func TestTaxonomyTreeCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"nodes": []map[string]any{
				{"id": "n1", "label": "Design"},
				{"id": "n2", "label": "Combat", "parent_id": "n1"},
			},
		})
	}))
	defer srv.Close()

	old := defaultHTTPClient
	defaultHTTPClient = srv.Client()
	defer func() { defaultHTTPClient = old }()

	addr := srv.URL[len("http://"):]

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"taxonomy", "tree", "--addr", addr})

	err := root.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Design")
	assert.Contains(t, buf.String(), "  Combat")
}
