package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellojohn-oidc/internal/config"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/store/memory"
)

// run ejecuta el CLI contra un store en memoria compartido entre invocaciones.
func run(t *testing.T, st *memory.Store, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("OIDC_ISSUER", "https://example.com/oauth2")

	var out bytes.Buffer
	c := newCLI(&out)
	c.configPath = ""
	c.openStore = func(context.Context, *config.Config) (repository.Store, error) { return st, nil }

	root := c.rootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCreateClient(t *testing.T) {
	st := memory.New()
	outFile := filepath.Join(t.TempDir(), "client.json")

	out, err := run(t, st, "create-client", "https://rp.example.com", "https://rp.example.com/cb", "confidential",
		"-i", "rp", "-s", "s3cret-value", "-n", "RP", "-t", "--out", outFile)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "rp", got["client_id"])
	assert.Equal(t, "s3cret-value", got["client_secret"])
	assert.Equal(t, true, got["trusted"])
	assert.Equal(t, "confidential", got["client_type"])

	b, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.JSONEq(t, out, string(b))

	ok, err := st.TrustedClients().IsTrusted(context.Background(), "rp")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateClient_Errors(t *testing.T) {
	st := memory.New()

	_, err := run(t, st, "create-client", "https://rp.example.com", "https://rp.example.com/cb")
	assert.Error(t, err)

	_, err = run(t, st, "create-client", "not a url", "https://rp.example.com/cb", "public")
	assert.EqualError(t, err, "URLs provided are invalid. Please provide valid application and redirect URLs.")

	_, err = run(t, st, "create-client", "https://rp.example.com", "https://rp.example.com/cb", "other")
	assert.EqualError(t, err, "Client type provided is invalid. Please use one of 'confidential' or 'public'.")
}

func TestCreateUserAndMigrate(t *testing.T) {
	st := memory.New()

	out, err := run(t, st, "create-user", "alice", "-e", "alice@example.com", "-p", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, `"username": "alice"`)

	_, err = st.Users().GetByUsername(context.Background(), "alice")
	require.NoError(t, err)

	out, err = run(t, st, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "driver memory")
}
