// Package assets ships the Palavreco word lists inside the binary.
//
// answers.txt holds the Portuguese words a game may pick as its target;
// allowed.txt holds further words a player may guess. One word per line,
// anything after '#' is a comment.
package assets

import (
	"embed"
	"fmt"
	"strings"
)

const (
	AnswersFile = "answers.txt"
	AllowedFile = "allowed.txt"
)

//go:embed answers.txt allowed.txt
var files embed.FS

// Lists returns the embedded target and guess lists, uppercased.
func Lists() (answers, allowed []string, err error) {
	if answers, err = words(AnswersFile); err != nil {
		return nil, nil, err
	}
	if allowed, err = words(AllowedFile); err != nil {
		return nil, nil, err
	}
	return answers, allowed, nil
}

func words(name string) ([]string, error) {
	b, err := files.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}
	var out []string
	for _, line := range strings.Split(string(b), "\n") {
		w, _, _ := strings.Cut(line, "#")
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, strings.ToUpper(w))
		}
	}
	return out, nil
}
