package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateKeyPairRoundTripsSignature(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	d := Hash([]byte(`{"hello":"world"}`))
	sig, err := Sign(kp.Private, d)
	require.NoError(t, err)

	require.True(t, Verify(kp.Public, d, sig))
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	kp1, err := GenerateKeyPair()
	require.NoError(t, err)
	kp2, err := GenerateKeyPair()
	require.NoError(t, err)

	d := Hash([]byte("payload"))
	sig, err := Sign(kp1.Private, d)
	require.NoError(t, err)

	require.False(t, Verify(kp2.Public, d, sig))
}

func TestVerifyRejectsTamperedDigest(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	d := Hash([]byte("payload"))
	sig, err := Sign(kp.Private, d)
	require.NoError(t, err)

	tampered := Hash([]byte("payload!"))
	require.False(t, Verify(kp.Public, tampered, sig))
}

func TestDigestHexRoundTrip(t *testing.T) {
	d := Hash([]byte("noobcash"))
	parsed, err := ParseDigest(d.String())
	require.NoError(t, err)
	require.Equal(t, d, parsed)
}

func TestParseDigestRejectsWrongLength(t *testing.T) {
	_, err := ParseDigest("abcd")
	require.Error(t, err)
}

func TestSignatureHexRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	sig, err := Sign(kp.Private, Hash([]byte("x")))
	require.NoError(t, err)

	parsed, err := ParseSignature(sig.String())
	require.NoError(t, err)
	require.Equal(t, sig, parsed)
}

func TestGenesisSentinelKeyAndSignature(t *testing.T) {
	require.True(t, Genesis.IsGenesis())
	require.True(t, IsGenesisSignature(GenesisSignature()))

	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	require.False(t, kp.Public.IsGenesis())
}

func TestPublicKeyEqualAndMapKey(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	clone := PublicKey{N: kp.Public.N, E: kp.Public.E}
	require.True(t, kp.Public.Equal(clone))
	require.Equal(t, kp.Public.MapKey(), clone.MapKey())

	kp2, err := GenerateKeyPair()
	require.NoError(t, err)
	require.False(t, kp.Public.Equal(kp2.Public))
}
