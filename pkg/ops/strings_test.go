package ops_test

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpEncodeDecode_RoundTrip(t *testing.T) {
	ctx, _ := newTestContext()
	text := "hello, ALP! <tag>"
	for _, form := range []string{"base64", "url", "hex", "html"} {
		encoded, err := ctx.Registry.Invoke("encode_decode", map[string]any{"s": text, "mode": "encode", "form": form}, ctx)
		require.NoError(t, err)
		decoded, err := ctx.Registry.Invoke("encode_decode", map[string]any{"s": encoded, "mode": "decode", "form": form}, ctx)
		require.NoError(t, err)
		require.Equal(t, text, decoded, "round trip failed for form %q", form)
	}
}

func TestOpHash_KnownVectors(t *testing.T) {
	ctx, _ := newTestContext()
	cases := map[string]string{
		"md5":    "5d41402abc4b2a76b9719d911017c592",
		"sha1":   "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d",
		"sha256": "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
	}
	for algo, want := range cases {
		out, err := ctx.Registry.Invoke("hash", map[string]any{"s": "hello", "algo": algo}, ctx)
		require.NoError(t, err)
		require.Equal(t, want, out, "hash mismatch for %q", algo)
	}
}

func TestOpCase_Modes(t *testing.T) {
	ctx, _ := newTestContext()
	out, err := ctx.Registry.Invoke("case", map[string]any{"s": "hello world", "mode": "title"}, ctx)
	require.NoError(t, err)
	require.Equal(t, "Hello World", out)

	out, err = ctx.Registry.Invoke("case", map[string]any{"s": "HelloWorld", "mode": "snake"}, ctx)
	require.NoError(t, err)
	require.Equal(t, "hello_world", out)

	out, err = ctx.Registry.Invoke("case", map[string]any{"s": "hello_world", "mode": "camel"}, ctx)
	require.NoError(t, err)
	require.Equal(t, "helloWorld", out)
}

func TestOpSubstring_OutOfRangeIsError(t *testing.T) {
	ctx, _ := newTestContext()
	_, err := ctx.Registry.Invoke("substring", map[string]any{"s": "abc", "start": float64(0), "end": float64(10)}, ctx)
	require.Error(t, err)
}
