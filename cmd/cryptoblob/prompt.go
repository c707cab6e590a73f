/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/purbtools/cryptoblob"
)

var stdin = bufio.NewReader(os.Stdin)

// promptLine reads one trimmed line; an empty answer returns def.
func promptLine(label, def string) (string, error) {
	if def != "" {
		fmt.Printf("%s [%s]: ", label, def)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, err := stdin.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}

// promptInt64 reads a decimal integer with a default.
func promptInt64(label string, def int64) (int64, error) {
	line, err := promptLine(label, strconv.FormatInt(def, 10))
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(line, 10, 64)
}

// confirm asks a yes/no question, defaulting to no. Destructive writes go
// through here.
func confirm(question string) (bool, error) {
	line, err := promptLine(question+" [y/N]", "n")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// readPassphrase reads one passphrase without echo. Empty input means skip.
// confirmEntry re-prompts until the two entries match; a mismatch discards
// the entry and starts over.
func readPassphrase(confirmEntry bool) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		// Piped input (tests, scripts): read a plain line.
		line, err := stdin.ReadString('\n')
		if err != nil {
			return nil, err
		}
		return []byte(strings.TrimRight(line, "\r\n")), nil
	}

	for {
		fmt.Print("passphrase (empty to skip): ")
		first, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return nil, err
		}
		if len(first) == 0 {
			return nil, nil
		}
		if !confirmEntry {
			return first, nil
		}

		fmt.Print("confirm passphrase: ")
		second, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return nil, err
		}
		if string(first) == string(second) {
			return first, nil
		}
		fmt.Println("entries do not match, discarded; try again")
	}
}

// promptKeyring assembles the keying material: any number of passphrases,
// keyfiles, and keyfile directories, in any order. Passphrase confirmation
// is required on encryption paths only.
func promptKeyring(confirmPass bool) (cryptoblob.Keyring, error) {
	var kr cryptoblob.Keyring

	for {
		pass, err := readPassphrase(confirmPass)
		if err != nil {
			return kr, err
		}
		if len(pass) == 0 {
			break
		}
		kr.Passphrases = append(kr.Passphrases, pass)
		fmt.Println("passphrase accepted")

		more, err := confirm("add another passphrase?")
		if err != nil {
			return kr, err
		}
		if !more {
			break
		}
	}

	for {
		path, err := promptLine("keyfile or directory (empty to finish)", "")
		if err != nil {
			return kr, err
		}
		if path == "" {
			break
		}
		info, err := os.Stat(path)
		if err != nil {
			fmt.Printf("cannot use %s: %v\n", path, err)
			continue
		}
		if info.IsDir() {
			kr.KeyDirs = append(kr.KeyDirs, path)
		} else {
			kr.KeyFiles = append(kr.KeyFiles, path)
		}
		fmt.Printf("accepted %s\n", path)
	}

	return kr, nil
}
