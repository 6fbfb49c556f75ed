package cdp

import (
	"encoding/base64"
	"testing"
)

func TestBase64DecoderSingleChunk(t *testing.T) {
	want := []byte("hello, world")
	encoded := base64.StdEncoding.EncodeToString(want)

	var d Base64Decoder
	got, err := d.Push([]byte(encoded))
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	if tail, err := d.Close(); err != nil || len(tail) != 0 {
		t.Fatalf("Close: tail=%q err=%v", tail, err)
	}
}

func TestBase64DecoderSplitAcrossChunks(t *testing.T) {
	want := []byte("this needs more than one base64 group to encode")
	encoded := base64.StdEncoding.EncodeToString(want)

	var d Base64Decoder
	var got []byte
	for i := 0; i < len(encoded); i += 3 {
		end := i + 3
		if end > len(encoded) {
			end = len(encoded)
		}
		chunk, err := d.Push([]byte(encoded[i:end]))
		if err != nil {
			t.Fatalf("Push: %v", err)
		}
		got = append(got, chunk...)
	}
	tail, err := d.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	got = append(got, tail...)

	if string(got) != string(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBase64DecoderIgnoresWhitespace(t *testing.T) {
	want := []byte("whitespace tolerant")
	encoded := base64.StdEncoding.EncodeToString(want)
	noisy := encoded[:4] + "\n " + encoded[4:]

	var d Base64Decoder
	got, err := d.Push([]byte(noisy))
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	tail, err := d.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	got = append(got, tail...)
	if string(got) != string(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBase64DecoderCloseWithTruncatedTail(t *testing.T) {
	var d Base64Decoder
	if _, err := d.Push([]byte("abcde")); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if _, err := d.Close(); err == nil {
		t.Fatal("expected an error closing mid-group")
	}
}

func TestBase64DecoderReset(t *testing.T) {
	var d Base64Decoder
	if _, err := d.Push([]byte("ab")); err != nil {
		t.Fatalf("Push: %v", err)
	}
	d.Reset()
	if _, err := d.Close(); err != nil {
		t.Fatalf("Close after Reset: %v", err)
	}
}
