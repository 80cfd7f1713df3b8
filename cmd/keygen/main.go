// Command keygen generates an API key and prints the values the admin
// tooling needs to insert a credential row. It never touches the store.
package main

import (
	"fmt"
	"os"

	"github.com/riverfold/docgate/pkg/keygen"
)

func main() {
	key, err := keygen.NewKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("API key:    %s\n", key)
	fmt.Printf("Key hash:   %s\n", keygen.HashKey(key))
	fmt.Printf("Key prefix: %s\n", keygen.Prefix(key))
	fmt.Println()
	fmt.Println("Hand the API key to the client; store only the hash:")
	fmt.Println()
	fmt.Printf("  INSERT INTO api_keys (key_hash, key_prefix, client_name)\n")
	fmt.Printf("  VALUES ('%s', '%s', '<client name>');\n", keygen.HashKey(key), keygen.Prefix(key))
}
