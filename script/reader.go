// Package script reads fixture script files: JavaScript files holding named prepare4_<test> and
// cleanup4_<test> functions that seed and clean a mongo database around a single test.
package script

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	PreparePrefix = "prepare4_"
	CleanupPrefix = "cleanup4_"

	juncture = "=function()"
)

var junctureExpr = regexp.MustCompile(`=[ ]*function[ ]*\([ ]*\)`)

type NamedScript struct {
	Name string
	Code string
}

// ReadFile reads a script file from disk.
func ReadFile(path string) ([]NamedScript, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error while reading script file %v: %w", path, err)
	}
	defer f.Close()
	scripts, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	return scripts, nil
}

// ReadTestData reads testdata/<name>.js.
func ReadTestData(name string) ([]NamedScript, error) {
	return ReadFile(filepath.Join("testdata", name+".js"))
}

// Read parses named functions out of r. Comments and blank lines are dropped and each function body is
// joined onto a single line.
func Read(r io.Reader) ([]NamedScript, error) {
	var (
		scripts   []NamedScript
		current   *strings.Builder
		inComment bool
		lineNo    int
	)
	finish := func() error {
		if current == nil {
			return nil
		}
		s, err := parseFunction(current.String())
		if err != nil {
			return err
		}
		scripts = append(scripts, s)
		current = nil
		return nil
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		var line string
		line, inComment = stripComments(strings.TrimSpace(scanner.Text()), inComment)
		line = strings.TrimLeft(line, " \t")
		switch {
		case strings.TrimSpace(line) == "":
		case isFunctionStart(line):
			if err := finish(); err != nil {
				return nil, err
			}
			current = &strings.Builder{}
			current.WriteString(line)
		case current == nil:
			return nil, fmt.Errorf("line %v: code outside of a named function: %q", lineNo, line)
		default:
			current.WriteString(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := finish(); err != nil {
		return nil, err
	}
	return scripts, nil
}

func isFunctionStart(line string) bool {
	return strings.HasPrefix(line, PreparePrefix) || strings.HasPrefix(line, CleanupPrefix)
}

// stripComments drops block and line comments from a single line. Comment markers inside string
// literals are kept. The returned flag reports whether a block comment is still open at the end of the line.
func stripComments(line string, inComment bool) (string, bool) {
	var (
		b     strings.Builder
		quote byte
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		next := byte(0)
		if i+1 < len(line) {
			next = line[i+1]
		}
		switch {
		case inComment:
			if c == '*' && next == '/' {
				inComment = false
				i++
			}
		case quote != 0:
			b.WriteByte(c)
			if c == '\\' && next != 0 {
				b.WriteByte(next)
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
			b.WriteByte(c)
		case c == '/' && next == '/':
			return b.String(), false
		case c == '/' && next == '*':
			inComment = true
			i++
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), inComment
}

func parseFunction(content string) (NamedScript, error) {
	loc := junctureExpr.FindStringIndex(content)
	if loc == nil {
		return NamedScript{}, fmt.Errorf("malformed js function: %v", content)
	}
	name := strings.TrimSpace(content[:loc[0]])
	code := strings.TrimSuffix(juncture[1:]+content[loc[1]:], ";")
	return NamedScript{
		Name: name,
		Code: strings.TrimSpace(code),
	}, nil
}
