package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
)

const SecretKeyBytesLen = 32

// generate writes hex encoded random key of n bytes
func generate(w io.Writer, n int) error {
	if n < 16 {
		return fmt.Errorf("key must be at least 16 bytes, got %d", n)
	}

	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return fmt.Errorf("error while generating secret key: %w", err)
	}

	_, err := fmt.Fprintln(w, hex.EncodeToString(b))
	return err
}

func main() {
	fs := pflag.NewFlagSet("gensecret", pflag.ExitOnError)
	n := fs.IntP("bytes", "n", SecretKeyBytesLen, "Key length in bytes")
	_ = fs.Parse(os.Args[1:])

	if err := generate(os.Stdout, *n); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
