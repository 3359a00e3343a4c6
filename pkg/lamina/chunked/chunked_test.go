package chunked

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeValidator struct {
	failOnSignature string
	trailerFails    bool
}

func (v *fakeValidator) ValidateChunk(_, signature string, _ int) error {
	if v.failOnSignature != "" && signature == v.failOnSignature {
		return assert.AnError
	}
	return nil
}

func (v *fakeValidator) ValidateTrailer(_, _ string, _ map[string]string) error {
	if v.trailerFails {
		return assert.AnError
	}
	return nil
}

func chunk(payload, signature string) string {
	return hexLen(len(payload)) + ";chunk-signature=" + signature + "\r\n" + payload + "\r\n"
}

func hexLen(n int) string {
	const hexDigits = "0123456789abcdef"
	if n == 0 {
		return "0"
	}
	var out []byte
	for n > 0 {
		out = append([]byte{hexDigits[n%16]}, out...)
		n /= 16
	}
	return string(out)
}

func TestDecodeSingleChunk(t *testing.T) {
	input := chunk("hello world", "sig1") + chunk("", "sig2")

	var dst bytes.Buffer
	n, err := Decode(strings.NewReader(input), &dst, Options{})

	require.NoError(t, err)
	assert.Equal(t, int64(11), n)
	assert.Equal(t, "hello world", dst.String())
}

func TestDecodeMultipleChunks(t *testing.T) {
	input := chunk("first-", "sig1") + chunk("second", "sig2") + chunk("", "sig3")

	var dst bytes.Buffer
	n, err := Decode(strings.NewReader(input), &dst, Options{})

	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
	assert.Equal(t, "first-second", dst.String())
}

func TestDecodeInvokesOnData(t *testing.T) {
	input := chunk("abc", "sig1") + chunk("", "sig2")

	var collected []byte
	var dst bytes.Buffer
	_, err := Decode(strings.NewReader(input), &dst, Options{
		OnData: func(p []byte) { collected = append(collected, p...) },
	})

	require.NoError(t, err)
	assert.Equal(t, "abc", string(collected))
}

func TestDecodeSignatureValidationFailure(t *testing.T) {
	input := chunk("good", "sig-ok") + chunk("bad", "sig-bad") + chunk("", "sig-final")

	var dst bytes.Buffer
	_, err := Decode(strings.NewReader(input), &dst, Options{
		Validator: &fakeValidator{failOnSignature: "sig-bad"},
	})

	require.Error(t, err)
	assert.Contains(t, dst.String(), "good")
	assert.NotContains(t, dst.String(), "bad")
}

func TestDecodeMissingSignatureAttribute(t *testing.T) {
	input := "5\r\nhello\r\n0;chunk-signature=final\r\n\r\n"

	var dst bytes.Buffer
	_, err := Decode(strings.NewReader(input), &dst, Options{})

	require.Error(t, err)
}

func TestDecodeTrailers(t *testing.T) {
	input := chunk("payload", "sig1") +
		"0;chunk-signature=sig2\r\n\r\n" +
		"x-amz-checksum-sha256: abc123\r\n" +
		"x-amz-trailer-signature: trailer-sig\r\n" +
		"\r\n"

	var dst bytes.Buffer
	var gotTrailers map[string]string
	var gotSig string
	validator := &trailerCapturingValidator{
		onTrailer: func(sig string, trailers map[string]string) {
			gotSig = sig
			gotTrailers = trailers
		},
	}

	_, err := Decode(strings.NewReader(input), &dst, Options{
		Validator:  validator,
		HasTrailer: true,
	})

	require.NoError(t, err)
	assert.Equal(t, "trailer-sig", gotSig)
	assert.Equal(t, "abc123", gotTrailers["x-amz-checksum-sha256"])
}

type trailerCapturingValidator struct {
	onTrailer func(signature string, trailers map[string]string)
}

func (v *trailerCapturingValidator) ValidateChunk(_, _ string, _ int) error { return nil }

func (v *trailerCapturingValidator) ValidateTrailer(_, signature string, trailers map[string]string) error {
	v.onTrailer(signature, trailers)
	return nil
}

func TestDecodeMalformedChunkSize(t *testing.T) {
	input := "not-hex;chunk-signature=sig1\r\npayload\r\n"

	var dst bytes.Buffer
	_, err := Decode(strings.NewReader(input), &dst, Options{})

	require.Error(t, err)
}

func TestDecodeMalformedTerminator(t *testing.T) {
	input := "5;chunk-signature=sig1\r\nhelloXX0;chunk-signature=sig2\r\n\r\n"

	var dst bytes.Buffer
	_, err := Decode(strings.NewReader(input), &dst, Options{})

	require.Error(t, err)
}
