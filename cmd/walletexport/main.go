// walletexport decrypts a wallet record file offline and prints the seed
// phrase. Recovery path for when the service itself is unavailable.
// Usage: go run ./cmd/walletexport <record.json>
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"syscall"

	"github.com/sequencetheory/vaultclub/internal/crypto"
	"github.com/sequencetheory/vaultclub/internal/model"

	"golang.org/x/term"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: walletexport <record.json>")
		os.Exit(1)
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Accept either a full wallet record or a bare encrypted blob.
	var rec model.WalletRecord
	blob := &model.EncryptedBlob{}
	if err := json.Unmarshal(data, &rec); err == nil && rec.EncryptedSecret != nil {
		blob = rec.EncryptedSecret
	} else if err := json.Unmarshal(data, blob); err != nil {
		fmt.Fprintln(os.Stderr, "not a wallet record:", err)
		os.Exit(1)
	}
	if blob.CipherText == "" {
		fmt.Fprintln(os.Stderr, "record has no encrypted secret (TEE-custodial wallet?)")
		os.Exit(1)
	}

	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer clear(password)

	secret, err := crypto.DecryptSecret(blob, password)
	if err != nil {
		fmt.Fprintln(os.Stderr, "decrypt failed:", err)
		os.Exit(1)
	}

	fmt.Println(secret)
}
