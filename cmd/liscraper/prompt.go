package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

var stdin = bufio.NewReader(os.Stdin)

// promptLine asks for a visible value
func promptLine(label string) (string, error) {
	fmt.Print(label)
	input, err := stdin.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// promptSecret asks for a value without echoing it when stdin is a terminal
func promptSecret(label string) (string, error) {
	fmt.Print(label)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err == nil {
			return string(secret), nil
		}
	}
	input, err := stdin.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// confirm asks a yes/no question, defaulting to no
func confirm(question string) bool {
	answer, err := promptLine(question + " (y/N): ")
	if err != nil {
		return false
	}
	return strings.HasPrefix(strings.ToLower(answer), "y")
}
