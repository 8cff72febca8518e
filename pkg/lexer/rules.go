package lexer

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

//go:embed tokens.txt
var defaultTable []byte

// Rule is one line of a token table
type Rule struct {
	Class   string
	Name    string
	Pattern string
	re      *regexp.Regexp
}

// Rules is an ordered, compiled token table; the first matching rule wins.
type Rules struct {
	list []Rule
	sum  uint64
}

func (r *Rules) Len() int         { return len(r.list) }
func (r *Rules) Rule(i int) Rule  { return r.list[i] }
func (r *Rules) Checksum() uint64 { return r.sum }

var (
	cacheMu sync.Mutex
	cache   = make(map[uint64]*Rules)
)

// DefaultRules returns the embedded Micro-language token table
func DefaultRules() *Rules {
	r, err := LoadRules(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("embedded token table is invalid: %v", err))
	}
	return r
}

// LoadRules compiles a token table. Tables with identical text share one
// compiled rule set.
func LoadRules(data []byte) (*Rules, error) {
	sum := xxhash.Sum64(data)
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if r, ok := cache[sum]; ok {
		return r, nil
	}
	r, err := parseTable(data)
	if err != nil {
		return nil, err
	}
	r.sum = sum
	cache[sum] = r
	return r, nil
}

func parseTable(data []byte) (*Rules, error) {
	r := &Rules{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("token table line %d: expected 'CLASS NAME PATTERN', got %d fields", lineNum, len(fields))
		}
		re, err := regexp.Compile(`^(?:` + fields[2] + `)`)
		if err != nil {
			return nil, fmt.Errorf("token table line %d: bad pattern for %s: %w", lineNum, fields[1], err)
		}
		r.list = append(r.list, Rule{Class: fields[0], Name: fields[1], Pattern: fields[2], re: re})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading token table: %w", err)
	}
	if len(r.list) == 0 {
		return nil, fmt.Errorf("token table has no rules")
	}
	return r, nil
}
