package credentials

import (
	"testing"

	"github.com/dvcrn/ledgerlink/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringCredentialsFetcher(t *testing.T) {
	keyring.MockInit()

	k := NewKeyringCredentialsFetcher("")
	assert.Equal(t, "default", k.Profile)

	_, err := k.Fetch()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no credentials stored")

	want := config.RawCredentials{ApplicationKey: "a", ClientKey: "c", SubscriptionKey: "s"}
	require.NoError(t, k.Save(want))

	got, err := k.Fetch()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	other, err := NewKeyringCredentialsFetcher("other").Fetch()
	assert.Error(t, err)
	assert.Zero(t, other)

	require.NoError(t, k.Delete())
	require.NoError(t, k.Delete())
	_, err = k.Fetch()
	assert.Error(t, err)
}
