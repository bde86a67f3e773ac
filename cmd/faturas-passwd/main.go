// Command faturas-passwd prints the bcrypt hash for AUTH_PASSWORD_HASH.
//
// The password is taken from the first argument, or read from stdin.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"faturas/internal/auth"
)

func main() {
	var password string
	if len(os.Args) > 1 {
		password = os.Args[1]
	} else {
		fmt.Fprint(os.Stderr, "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			log.Fatalf("read password: %v", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	fmt.Println(hash)
	fmt.Fprintln(os.Stderr, "Set AUTH_PASSWORD_HASH to the value above and AUTH_SECRET to a random string of 16+ characters.")
}
