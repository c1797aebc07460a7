package builtin

import (
	"encoding/base64"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Defaults(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"now", "timestamp", "uuid", "random", "randomString", "base64", "env"} {
		assert.True(t, r.Has(name), name)
	}
	assert.False(t, r.Has("nope"))
}

func TestRegistry_CallUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Call("nope", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown function")
}

func TestRegistry_RegisterCustom(t *testing.T) {
	r := NewRegistry()
	r.Register("tenant", func(args []string) (any, error) {
		return "acme", nil
	})

	v, err := r.Call("tenant", nil)
	require.NoError(t, err)
	assert.Equal(t, "acme", v)
}

func TestFunc_Now(t *testing.T) {
	v, err := funcNow(nil)
	require.NoError(t, err)
	parsed, err := time.Parse(time.RFC3339, v.(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), parsed, time.Minute)
}

func TestFunc_TimestampTyped(t *testing.T) {
	v, err := funcTimestamp(nil)
	require.NoError(t, err)
	_, ok := v.(int64)
	assert.True(t, ok, "timestamp must stay numeric, got %T", v)
}

func TestFunc_UUID(t *testing.T) {
	v, err := funcUUID(nil)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f-]{36}$`), v)

	v2, _ := funcUUID(nil)
	assert.NotEqual(t, v, v2)
}

func TestFunc_Random(t *testing.T) {
	for i := 0; i < 50; i++ {
		v, err := funcRandom([]string{"5", "10"})
		require.NoError(t, err)
		n := v.(int)
		assert.GreaterOrEqual(t, n, 5)
		assert.LessOrEqual(t, n, 10)
	}

	_, err := funcRandom([]string{"10", "5"})
	assert.Error(t, err)

	_, err = funcRandom([]string{"abc"})
	assert.Error(t, err)
}

func TestFunc_RandomString(t *testing.T) {
	v, err := funcRandomString([]string{"24"})
	require.NoError(t, err)
	assert.Len(t, v.(string), 24)

	v, err = funcRandomString(nil)
	require.NoError(t, err)
	assert.Len(t, v.(string), 16)
}

func TestFunc_Base64RoundTrip(t *testing.T) {
	encoded, err := funcBase64([]string{"hello world"})
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("hello world")), encoded)

	decoded, err := funcBase64Decode([]string{encoded.(string)})
	require.NoError(t, err)
	assert.Equal(t, "hello world", decoded)

	_, err = funcBase64Decode([]string{"!!not base64!!"})
	assert.Error(t, err)
}

func TestFunc_Hashes(t *testing.T) {
	md5sum, err := funcMD5([]string{"abc"})
	require.NoError(t, err)
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", md5sum)

	sha, err := funcSHA256([]string{"abc"})
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sha)
}

func TestFunc_URLEncode(t *testing.T) {
	encoded, err := funcURLEncode([]string{"a b&c"})
	require.NoError(t, err)
	assert.Equal(t, "a+b%26c", encoded)

	decoded, err := funcURLDecode([]string{"a+b%26c"})
	require.NoError(t, err)
	assert.Equal(t, "a b&c", decoded)
}

func TestFunc_Env(t *testing.T) {
	t.Setenv("RESTFLOW_TEST_VAR", "shazam")
	v, err := funcEnv([]string{"RESTFLOW_TEST_VAR"})
	require.NoError(t, err)
	assert.Equal(t, "shazam", v)

	_, err = funcEnv(nil)
	assert.Error(t, err)
}
