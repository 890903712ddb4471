package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vendorhub/storefront/internal/core/domain"
)

const prompt = "storefront> "

// shell reads commands until EOF or exit. Command failures are reported and
// the loop continues.
func (c *cli) shell(ctx context.Context, _ []string) error {
	if c.inShell {
		return nil
	}
	c.inShell = true
	defer func() { c.inShell = false }()

	fmt.Fprintln(c.out, "type help for commands, exit to quit")
	for {
		fmt.Fprint(c.out, c.prompt())
		if !c.in.Scan() {
			fmt.Fprintln(c.out)
			return c.in.Err()
		}
		if ctx.Err() != nil {
			return nil
		}
		if done := c.execLine(ctx, c.in.Text()); done {
			return nil
		}
	}
}

// execLine runs one shell line and reports whether the shell should stop.
func (c *cli) execLine(ctx context.Context, line string) bool {
	args, err := splitArgs(line)
	if err != nil {
		fmt.Fprintln(c.out, "error:", err)
		return false
	}
	if len(args) == 0 {
		return false
	}
	switch args[0] {
	case "exit", "quit":
		return true
	case "shell":
		return false
	}

	if err := c.run(ctx, args); err != nil && !errors.Is(err, errUsage) {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(c.out, "cancelled")
			return false
		}
		fmt.Fprintln(c.out, "error:", domain.UserMessage(err))
	}
	return false
}

func (c *cli) prompt() string {
	s := c.app.Session()
	if !s.Authenticated() {
		return prompt
	}
	return fmt.Sprintf("storefront(%s)> ", s.Role())
}

// splitArgs splits a line on whitespace. Single and double quotes group
// words, and a backslash escapes the next character outside single quotes.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped, inWord = true, true
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			cur.WriteRune(r)
		case r == '\'' || r == '"':
			quote, inWord = r, true
		case r == ' ' || r == '\t':
			if inWord {
				args = append(args, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if escaped {
		return nil, errors.New("dangling escape at end of line")
	}
	if inWord {
		args = append(args, cur.String())
	}
	return args, nil
}
