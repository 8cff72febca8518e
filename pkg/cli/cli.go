// Package cli is the small flag parser and help renderer behind mlc. It knows
// GCC-style spellings: long flags (--output=x), bundled shorthands (-o x, -ox),
// repeatable list flags (-i a -i b) and enable/disable groups (-Wunused,
// -Fno-name).
package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"
)

const indentUnit = 4

func indent(level int) string { return strings.Repeat(" ", indentUnit*level) }

type Value interface {
	String() string
	Set(string) error
	Get() any
}

type stringValue struct{ p *string }

func (v *stringValue) Set(s string) error { *v.p = s; return nil }
func (v *stringValue) String() string     { return *v.p }
func (v *stringValue) Get() any           { return *v.p }

type boolValue struct{ p *bool }

// Set treats a bare flag (empty string) as true
func (v *boolValue) Set(s string) error {
	if s == "" {
		*v.p = true
		return nil
	}
	val, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean value '%s': %w", s, err)
	}
	*v.p = val
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }
func (v *boolValue) Get() any       { return *v.p }

type listValue struct{ p *[]string }

func (v *listValue) Set(s string) error { *v.p = append(*v.p, s); return nil }
func (v *listValue) String() string     { return strings.Join(*v.p, ", ") }
func (v *listValue) Get() any           { return *v.p }

type Flag struct {
	Name         string
	Shorthand    string
	Usage        string
	Value        Value
	DefValue     string
	ExpectedType string
}

func (f *Flag) isBool() bool {
	_, ok := f.Value.(*boolValue)
	return ok
}

// FlagGroup is a family of toggles sharing a prefix, such as the -W warnings
type FlagGroup struct {
	Name      string
	Prefix    string
	GroupType string
	Header    string
	Flags     []FlagGroupEntry
}

type FlagGroupEntry struct {
	Name     string
	Usage    string
	Enabled  *bool
	Disabled *bool
}

type FlagSet struct {
	name       string
	flags      map[string]*Flag
	shorthands map[string]*Flag
	groups     []FlagGroup
	grouped    map[string]bool
	args       []string
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:       name,
		flags:      make(map[string]*Flag),
		shorthands: make(map[string]*Flag),
		grouped:    make(map[string]bool),
	}
}

// Args returns the positional arguments left after Parse
func (f *FlagSet) Args() []string { return f.args }

func (f *FlagSet) String(p *string, name, shorthand, value, usage, expectedType string) {
	*p = value
	f.Var(&stringValue{p}, name, shorthand, usage, value, expectedType)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.Var(&boolValue{p}, name, shorthand, usage, strconv.FormatBool(value), "")
}

// List registers a repeatable flag; each occurrence appends to p
func (f *FlagSet) List(p *[]string, name, shorthand string, value []string, usage, expectedType string) {
	*p = value
	f.Var(&listValue{p}, name, shorthand, usage, fmt.Sprintf("%v", value), expectedType)
}

// AddFlagGroup defines "-<prefix><name>" and "-<prefix>no-<name>" for every entry
func (f *FlagSet) AddFlagGroup(name, prefix, groupType, header string, entries []FlagGroupEntry) {
	for _, e := range entries {
		if e.Enabled != nil {
			f.Bool(e.Enabled, prefix+e.Name, "", *e.Enabled, e.Usage)
			f.grouped[prefix+e.Name] = true
		}
		if e.Disabled != nil {
			f.Bool(e.Disabled, prefix+"no-"+e.Name, "", *e.Disabled, "Disable '"+e.Name+"'")
			f.grouped[prefix+"no-"+e.Name] = true
		}
	}
	f.groups = append(f.groups, FlagGroup{Name: name, Prefix: prefix, GroupType: groupType, Header: header, Flags: entries})
}

func (f *FlagSet) Var(value Value, name, shorthand, usage, defValue, expectedType string) {
	if name == "" {
		panic("flag name cannot be empty")
	}
	if _, ok := f.flags[name]; ok {
		panic(fmt.Sprintf("flag redefined: %s", name))
	}
	flag := &Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: value, DefValue: defValue, ExpectedType: expectedType}
	f.flags[name] = flag
	if shorthand == "" {
		return
	}
	if _, ok := f.shorthands[shorthand]; ok {
		panic(fmt.Sprintf("shorthand flag redefined: %s", shorthand))
	}
	f.shorthands[shorthand] = flag
}

func (f *FlagSet) Parse(arguments []string) error {
	f.args = []string{}
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		switch {
		case arg == "--":
			f.args = append(f.args, arguments[i+1:]...)
			return nil
		case len(arg) < 2 || arg[0] != '-':
			f.args = append(f.args, arg)
		case strings.HasPrefix(arg, "--"):
			if err := f.parseLong(arg[2:], arguments, &i); err != nil {
				return err
			}
		default:
			if err := f.parseShort(arg[1:], arguments, &i); err != nil {
				return err
			}
		}
	}
	return nil
}

// setFrom assigns a flag its inline value, or consumes the next argument
func setFrom(flag *Flag, spelled string, value string, inline bool, arguments []string, i *int) error {
	if inline {
		return flag.Value.Set(value)
	}
	if flag.isBool() {
		return flag.Value.Set("")
	}
	if *i+1 >= len(arguments) {
		return fmt.Errorf("flag needs an argument: %s", spelled)
	}
	*i++
	return flag.Value.Set(arguments[*i])
}

func (f *FlagSet) parseLong(body string, arguments []string, i *int) error {
	name, value, inline := strings.Cut(body, "=")
	if name == "" {
		return fmt.Errorf("empty flag name")
	}
	flag, ok := f.flags[name]
	if !ok {
		return fmt.Errorf("unknown flag: --%s", name)
	}
	return setFrom(flag, "--"+name, value, inline, arguments, i)
}

func (f *FlagSet) parseShort(body string, arguments []string, i *int) error {
	// single-dash long names: -dump-ast, -Wno-unused
	name, value, inline := strings.Cut(body, "=")
	if flag, ok := f.flags[name]; ok {
		return setFrom(flag, "-"+name, value, inline, arguments, i)
	}

	short := body[:1]
	flag, ok := f.shorthands[short]
	if !ok {
		return fmt.Errorf("unknown shorthand flag: -%s", short)
	}
	if flag.isBool() {
		return flag.Value.Set("")
	}
	if rest := body[1:]; rest != "" {
		return flag.Value.Set(strings.TrimPrefix(rest, "="))
	}
	return setFrom(flag, "-"+short, "", false, arguments, i)
}

type App struct {
	Name        string
	Synopsis    string
	Description string
	Authors     []string
	Repository  string
	Since       int
	FlagSet     *FlagSet
	Action      func(args []string) error

	// Stdout and Stderr default to the process streams
	Stdout, Stderr io.Writer
}

func NewApp(name string) *App {
	return &App{Name: name, FlagSet: NewFlagSet(name), Stdout: os.Stdout, Stderr: os.Stderr}
}

func (a *App) Run(arguments []string) error {
	help := false
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintln(a.Stderr, err)
		a.writeUsage(a.Stderr)
		return err
	}
	if help {
		a.writeHelp(a.Stdout)
		return nil
	}
	if a.Action != nil {
		return a.Action(a.FlagSet.Args())
	}
	return nil
}

// optionFlags lists every flag that is not part of a group
func (a *App) optionFlags() []*Flag {
	var out []*Flag
	for name, flag := range a.FlagSet.flags {
		if a.FlagSet.grouped[name] {
			continue
		}
		out = append(out, flag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func flagString(flag *Flag) string {
	var sb strings.Builder
	if flag.Shorthand != "" {
		fmt.Fprintf(&sb, "-%s, ", flag.Shorthand)
	}
	fmt.Fprintf(&sb, "--%s", flag.Name)
	if !flag.isBool() && flag.ExpectedType != "" {
		fmt.Fprintf(&sb, " <%s>", flag.ExpectedType)
	}
	return sb.String()
}

// layout holds the column widths shared by every entry on a page
type layout struct {
	term, left, usage int
}

func (a *App) layout() layout {
	l := layout{term: terminalWidth()}
	widen := func(left, usage string) {
		l.left = max(l.left, len(left))
		l.usage = max(l.usage, len(usage))
	}
	for _, flag := range a.optionFlags() {
		widen(flagString(flag), flag.Usage)
	}
	for _, g := range a.FlagSet.groups {
		widen(fmt.Sprintf("-%sno-<%s>", g.Prefix, g.GroupType), "")
		for _, e := range g.Flags {
			widen(e.Name, e.Usage)
		}
	}
	return l
}

// entry prints one aligned row, wrapping the usage text to the terminal
func (l layout) entry(sb *strings.Builder, left, usage, right string) {
	lead := indent(2)
	room := max(l.term-len(lead)-l.left-3-len(right), 10)
	lines := wrapText(usage, room)
	first := ""
	if len(lines) > 0 {
		first = lines[0]
	}
	if right != "" {
		fmt.Fprintf(sb, "%s%-*s %-*s  %s\n", lead, l.left, left, min(l.usage, room), first, right)
	} else {
		fmt.Fprintf(sb, "%s%-*s %s\n", lead, l.left, left, first)
	}
	pad := strings.Repeat(" ", l.left+1)
	for _, line := range lines[min(1, len(lines)):] {
		fmt.Fprintf(sb, "%s%s%s\n", lead, pad, line)
	}
}

func (l layout) flagLine(sb *strings.Builder, flag *Flag) {
	right := ""
	if !flag.isBool() && flag.DefValue != "" && flag.DefValue != "[]" {
		right = fmt.Sprintf("|%s|", flag.DefValue)
	}
	l.entry(sb, flagString(flag), flag.Usage, right)
}

func (a *App) writeUsage(w io.Writer) {
	var sb strings.Builder
	l := a.layout()
	fmt.Fprintf(&sb, "Usage: %s <options> [input.ml]\n", a.Name)
	if opts := a.optionFlags(); len(opts) > 0 {
		fmt.Fprintf(&sb, "\n%sOptions\n", indent(1))
		for _, flag := range opts {
			l.flagLine(&sb, flag)
		}
	}
	fmt.Fprintf(&sb, "\nRun '%s --help' for all available options and flags.\n", a.Name)
	fmt.Fprint(w, sb.String())
}

func (a *App) writeHelp(w io.Writer) {
	var sb strings.Builder
	l := a.layout()

	years := strconv.Itoa(time.Now().Year())
	if a.Since > 0 && strconv.Itoa(a.Since) != years {
		years = fmt.Sprintf("%d-%s", a.Since, years)
	}
	fmt.Fprintf(&sb, "\n%sCopyright (c) %s: %s and contributors\n", indent(1), years, strings.Join(a.Authors, ", "))
	if a.Repository != "" {
		fmt.Fprintf(&sb, "%sFor more details refer to %s\n", indent(1), a.Repository)
	}
	if a.Synopsis != "" {
		synopsis := strings.NewReplacer("[", "<", "]", ">").Replace(a.Synopsis)
		fmt.Fprintf(&sb, "\n%sSynopsis\n%s%s %s\n", indent(1), indent(2), a.Name, synopsis)
	}
	if a.Description != "" {
		fmt.Fprintf(&sb, "\n%sDescription\n%s%s\n", indent(1), indent(2), a.Description)
	}
	if opts := a.optionFlags(); len(opts) > 0 {
		fmt.Fprintf(&sb, "\n%sOptions\n", indent(1))
		for _, flag := range opts {
			l.flagLine(&sb, flag)
		}
	}

	groups := append([]FlagGroup(nil), a.FlagSet.groups...)
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	for _, g := range groups {
		fmt.Fprintf(&sb, "\n%s%s\n", indent(1), g.Name)
		l.entry(&sb, fmt.Sprintf("-%s<%s>", g.Prefix, g.GroupType), "Enable a specific "+g.GroupType, "")
		l.entry(&sb, fmt.Sprintf("-%sno-<%s>", g.Prefix, g.GroupType), "Disable a specific "+g.GroupType, "")
		if g.Header != "" {
			fmt.Fprintf(&sb, "%s%s\n", indent(1), g.Header)
		}
		entries := append([]FlagGroupEntry(nil), g.Flags...)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		for _, e := range entries {
			mark := "|-|"
			if e.Enabled != nil && *e.Enabled && (e.Disabled == nil || !*e.Disabled) {
				mark = "|x|"
			}
			l.entry(&sb, e.Name, e.Usage, mark)
		}
	}
	fmt.Fprint(w, sb.String())
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return max(width, 20)
}

func wrapText(text string, maxWidth int) []string {
	words := strings.Fields(text)
	if maxWidth <= 0 || len(words) == 0 {
		return words
	}
	var lines []string
	var line strings.Builder
	for _, word := range words {
		if line.Len() > 0 && line.Len()+len(word)+1 > maxWidth {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}
