// Package chunked implements the AWS streaming chunked transfer-encoding
// parser: <hexSize>;chunk-signature=<hex>CRLF<rawBytes>CRLF, repeated
// until a zero-size final chunk, optionally followed by trailer headers.
package chunked

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/laminastore/lamina/pkg/bufpool"
	"github.com/laminastore/lamina/pkg/lamina/errs"
)

// maxBufferedChunk bounds the rented buffer used to accumulate a chunk's
// header and payload before it is written out; chunk payloads larger than
// this are streamed through the buffer in multiple passes.
const maxBufferedChunk = 64 << 10

// ChunkValidator validates one chunk's signature given the chunk's
// decoded byte count and the hex signature carried on its header line.
// previousSignature is the signature of the prior chunk (empty for the
// first), as SigV4 streaming chains each chunk's signature to the last.
type ChunkValidator interface {
	ValidateChunk(previousSignature string, chunkSignature string, size int) error
	ValidateTrailer(previousSignature string, trailerSignature string, trailers map[string]string) error
}

// DataWritten is invoked with each slice of decoded chunk bytes as it is
// written to the destination, before the next chunk is parsed. Callers use
// this to feed a streaming checksum accumulator.
type DataWritten func(p []byte)

// Options configures a single Decode call.
type Options struct {
	Validator   ChunkValidator // optional; nil disables signature validation
	OnData      DataWritten    // optional
	HasTrailer  bool           // whether to parse trailers after the final chunk
}

// Decode reads AWS chunked-encoded data from src and writes the decoded
// payload bytes to dst. It returns the total number of decoded bytes
// written, or an error describing the first malformed chunk, missing
// signature attribute, or signature-validation failure encountered.
//
// On error the destination has already received whatever bytes were
// written for prior chunks; callers that opened a fresh temp file for dst
// must delete it themselves.
func Decode(src io.Reader, dst io.Writer, opts Options) (int64, error) {
	r := bufio.NewReaderSize(src, maxBufferedChunk)
	var written int64
	var previousSignature string

	buf := bufpool.Get(maxBufferedChunk)
	defer bufpool.Put(buf)

	for {
		size, signature, err := readChunkHeader(r)
		if err != nil {
			return written, err
		}

		if opts.Validator != nil {
			if err := opts.Validator.ValidateChunk(previousSignature, signature, size); err != nil {
				return written, fmt.Errorf("%w: %v", errs.ErrSignatureInvalid, err)
			}
		}
		previousSignature = signature

		if size == 0 {
			if err := consumeCRLF(r); err != nil {
				return written, err
			}
			if opts.HasTrailer {
				trailerSig, trailers, err := readTrailers(r)
				if err != nil {
					return written, err
				}
				if opts.Validator != nil {
					if err := opts.Validator.ValidateTrailer(previousSignature, trailerSig, trailers); err != nil {
						return written, fmt.Errorf("%w: %v", errs.ErrSignatureInvalid, err)
					}
				}
			}
			return written, nil
		}

		n, err := copyChunkPayload(r, dst, size, buf, opts.OnData)
		written += int64(n)
		if err != nil {
			return written, err
		}
		if err := consumeCRLF(r); err != nil {
			return written, err
		}
	}
}

// readChunkHeader reads "<hexSize>;chunk-signature=<hex>\r\n" and returns
// the decoded size and signature.
func readChunkHeader(r *bufio.Reader) (int, string, error) {
	line, err := readLine(r)
	if err != nil {
		return 0, "", fmt.Errorf("chunked: reading chunk header: %w", err)
	}

	parts := strings.SplitN(line, ";", 2)
	size, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 16, 64)
	if err != nil {
		return 0, "", fmt.Errorf("chunked: invalid chunk size %q: %w", parts[0], err)
	}
	if size < 0 {
		return 0, "", fmt.Errorf("chunked: negative chunk size")
	}

	if len(parts) < 2 {
		return 0, "", fmt.Errorf("chunked: missing chunk-signature attribute")
	}
	const attr = "chunk-signature="
	idx := strings.Index(parts[1], attr)
	if idx < 0 {
		return 0, "", fmt.Errorf("chunked: missing chunk-signature attribute")
	}
	signature := strings.TrimSpace(parts[1][idx+len(attr):])
	if signature == "" {
		return 0, "", fmt.Errorf("chunked: empty chunk-signature value")
	}

	return int(size), signature, nil
}

// readLine reads one CRLF- or LF-terminated line without the terminator.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// consumeCRLF reads and discards exactly the two-byte CRLF that follows a
// chunk's payload.
func consumeCRLF(r *bufio.Reader) error {
	var crlf [2]byte
	if _, err := io.ReadFull(r, crlf[:]); err != nil {
		return fmt.Errorf("chunked: reading trailing CRLF: %w", err)
	}
	if crlf[0] != '\r' || crlf[1] != '\n' {
		return fmt.Errorf("chunked: malformed chunk terminator %q", crlf)
	}
	return nil
}

// copyChunkPayload copies exactly size bytes from r to dst using buf as
// the rented bounded read buffer, invoking onData with each slice
// actually written.
func copyChunkPayload(r *bufio.Reader, dst io.Writer, size int, buf []byte, onData DataWritten) (int, error) {
	remaining := size
	total := 0
	for remaining > 0 {
		n := len(buf)
		if n > remaining {
			n = remaining
		}
		read, err := io.ReadFull(r, buf[:n])
		total += read
		remaining -= read
		if read > 0 {
			if _, werr := dst.Write(buf[:read]); werr != nil {
				return total, fmt.Errorf("chunked: writing chunk payload: %w", werr)
			}
			if onData != nil {
				onData(buf[:read])
			}
		}
		if err != nil {
			return total, fmt.Errorf("chunked: reading chunk payload: %w", err)
		}
	}
	return total, nil
}

// readTrailers parses trailer header lines until an empty line, returning
// the trailer signature (from x-amz-trailer-signature) separately from
// the remaining name/value pairs.
func readTrailers(r *bufio.Reader) (string, map[string]string, error) {
	trailers := make(map[string]string)
	var signature string

	for {
		line, err := readLine(r)
		if err != nil {
			return "", nil, fmt.Errorf("chunked: reading trailer: %w", err)
		}
		if line == "" {
			break
		}
		name, value, ok := bytes.Cut([]byte(line), []byte(": "))
		if !ok {
			return "", nil, fmt.Errorf("chunked: malformed trailer line %q", line)
		}
		key := strings.ToLower(string(name))
		if key == "x-amz-trailer-signature" {
			signature = string(value)
			continue
		}
		trailers[key] = string(value)
	}

	return signature, trailers, nil
}
