package modsh

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

const historyKey = "history"

// ShellConfig controls shell-wide behavior.
type ShellConfig struct {
	// Prompt is the top-level prompt; a node's Config.Prompt overrides it
	// while that node's subshell is active.
	Prompt string

	// Intro is printed once when the interactive loop starts.
	Intro string

	// Newline terminates every written output line. Defaults to "\n".
	Newline string

	// MultilineSentinel is the literal value token that switches a
	// multiline-enabled field into multi-line capture. Defaults to "input".
	MultilineSentinel string

	// MultilineEnd terminates a multi-line capture when read as a full
	// line. Empty means capture runs until EOF.
	MultilineEnd string

	// HandlerOrder overrides the dispatch priority. Defaults to
	// field handler, then node handler, then ancestor fallback.
	HandlerOrder []HandlerSource

	// Validator replaces the built-in coercing validator.
	Validator Validator

	// HistoryFile enables persistent command history at this path on the
	// shell filesystem.
	HistoryFile string

	// HistoryTTL bounds how long persisted history survives. Defaults to
	// thirty days.
	HistoryTTL time.Duration

	// Logger receives engine debug logs. Defaults to a nop logger.
	Logger *zerolog.Logger
}

// shellLevel is one entry of the subshell stack.
type shellLevel struct {
	node   *Node
	prompt string
}

// Shell executes command lines against a schema tree: one line is fully
// tokenized, resolved, validated, executed and rendered before the next
// line is read.
type Shell struct {
	root      *Node
	config    ShellConfig
	fs        afero.Fs
	in        *bufio.Reader
	stdout    io.Writer
	levels    []shellLevel
	defaults  map[string]any
	validator Validator
	log       zerolog.Logger
	history   []string
}

// NewShell creates a shell with default configuration rooted at the given
// schema node.
func NewShell(root *Node) (*Shell, error) {
	return NewShellWithConfig(root, ShellConfig{})
}

// NewShellWithConfig creates a shell with configuration overrides.
func NewShellWithConfig(root *Node, cfg ShellConfig) (*Shell, error) {
	if root == nil {
		return nil, errors.New("root node is required")
	}
	if cfg.Prompt == "" {
		cfg.Prompt = "modsh#"
	}
	if cfg.Newline == "" {
		cfg.Newline = "\n"
	}
	if cfg.MultilineSentinel == "" {
		cfg.MultilineSentinel = "input"
	}
	if cfg.HandlerOrder == nil {
		cfg.HandlerOrder = DefaultHandlerOrder
	}
	if cfg.Validator == nil {
		cfg.Validator = NewValidator()
	}
	if cfg.HistoryTTL == 0 {
		cfg.HistoryTTL = 30 * 24 * time.Hour
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	prompt := cfg.Prompt
	if root.Config.Prompt != "" {
		prompt = root.Config.Prompt
	}
	s := &Shell{
		root:      root,
		config:    cfg,
		fs:        afero.NewMemMapFs(),
		in:        bufio.NewReader(os.Stdin),
		stdout:    os.Stdout,
		levels:    []shellLevel{{node: root, prompt: prompt}},
		defaults:  map[string]any{},
		validator: cfg.Validator,
		log:       log,
	}
	s.defaultsSet(root)
	if cfg.HistoryFile != "" {
		s.loadHistory()
	}
	return s, nil
}

// SetIO replaces the shell input and output streams.
func (s *Shell) SetIO(stdin io.Reader, stdout io.Writer) {
	s.in = bufio.NewReader(stdin)
	s.stdout = stdout
}

// SetFs replaces the shell-attached filesystem used by the save pipe
// function, history persistence and the system model.
func (s *Shell) SetFs(fs afero.Fs) {
	s.fs = fs
}

// Fs returns the shell-attached filesystem.
func (s *Shell) Fs() afero.Fs {
	return s.fs
}

// Root returns the root schema node.
func (s *Shell) Root() *Node {
	return s.root
}

// Node returns the active node: the deepest entered subshell, or the root.
func (s *Shell) Node() *Node {
	return s.levels[len(s.levels)-1].node
}

// Prompt returns the active prompt string.
func (s *Shell) Prompt() string {
	return s.levels[len(s.levels)-1].prompt
}

// Path returns the subshell path from the root, "Root" first.
func (s *Shell) Path() []string {
	path := []string{"Root"}
	for _, lvl := range s.levels[1:] {
		path = append(path, lvl.node.Name)
	}
	return path
}

// write sends text to the shell output, terminated with the configured
// newline.
func (s *Shell) write(text string) {
	if !strings.HasSuffix(text, s.config.Newline) {
		text += s.config.Newline
	}
	io.WriteString(s.stdout, text)
}

// RunInteractive runs the prompt loop until the end command, EOF on input,
// or context cancellation.
func (s *Shell) RunInteractive(ctx context.Context) error {
	if s.config.Intro != "" {
		s.write(s.config.Intro)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		fmt.Fprintf(s.stdout, "%s ", s.Prompt())
		line, err := s.in.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				s.saveHistory()
				return nil
			}
			return err
		}
		if s.Eval(ctx, line) {
			s.saveHistory()
			return nil
		}
	}
}

// Eval processes one command line: global commands, help requests, subshell
// navigation, or resolution plus execution. All line-scoped failures are
// written to the shell output; none of them propagate. Reports whether the
// shell should terminate.
func (s *Shell) Eval(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	s.history = append(s.history, line)

	first, rest := splitFirstWord(line)
	// "exit?" and friends are help requests for the global command.
	if trimmed := strings.TrimRight(first, "?"); trimmed != first {
		if _, ok := globalCommands[trimmed]; ok {
			first, rest = trimmed, "?"
		}
	}
	switch first {
	case "exit":
		s.cmdExit(rest)
		return false
	case "top":
		s.cmdTop(rest)
		return false
	case "end":
		if strings.Contains(rest, "?") {
			s.write(" end    Exit application")
			return false
		}
		return true
	case "pwd":
		s.cmdPwd(rest)
		return false
	case "cls":
		s.cmdCls(rest)
		return false
	case "help":
		s.cmdHelpGlobal(rest)
		return false
	}

	if mode := helpSuffix(line); mode != HelpNone {
		s.write(s.helpForLine(line, mode == HelpVerbose))
		return false
	}

	res, err := resolveLine(s.Node(), line, resolveOptions{
		multiline: true,
		input:     s.in,
		sentinel:  s.config.MultilineSentinel,
		endMarker: s.config.MultilineEnd,
	})
	if err != nil {
		s.write(err.Error())
		return false
	}

	if s.isNavigation(res) {
		s.enterSubshells(res.Segments[0])
		return false
	}

	value, out, opts, err := s.execute(ctx, res)
	if err != nil {
		s.write(err.Error())
		return false
	}
	if value == nil {
		return false
	}
	if err := out(s.stdout, value, opts); err != nil {
		s.write(fmt.Sprintf("output error: %v", err))
	}
	return false
}

// EvalScript evaluates lines from a script, stopping early when a line
// terminates the shell or the context is canceled. Blank lines and lines
// starting with # are skipped.
func (s *Shell) EvalScript(ctx context.Context, script string) error {
	for _, line := range strings.Split(script, "\n") {
		if err := ctx.Err(); err != nil {
			return err
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if s.Eval(ctx, trimmed) {
			break
		}
	}
	return nil
}

// isNavigation reports whether the resolution enters a subshell: a single
// segment that stopped at a navigable node without collecting any value.
func (s *Shell) isNavigation(res *Resolution) bool {
	if len(res.Segments) != 1 {
		return false
	}
	seg := res.Segments[0]
	deep := seg.deepest()
	return deep.Node.Config.Subshell && !seg.hasValues() && deep.Node != s.Node()
}

// enterSubshells pushes every navigable node along the resolved path and
// folds their default values into the accumulated shell defaults.
func (s *Shell) enterSubshells(seg *Segment) {
	for _, fr := range seg.Frames {
		if fr.IsBridge {
			continue
		}
		s.defaultsUpdate(fr.Node)
		if !fr.Node.Config.Subshell || fr.Node == s.Node() {
			continue
		}
		prompt := fr.Node.Config.Prompt
		if prompt == "" {
			prompt = s.Prompt()
		}
		s.levels = append(s.levels, shellLevel{node: fr.Node, prompt: prompt})
	}
}

func (s *Shell) cmdExit(arg string) {
	if strings.Contains(arg, "?") {
		s.write(" exit    Exit current shell")
		return
	}
	if len(s.levels) == 1 {
		s.write("already at top shell")
		return
	}
	popped := s.levels[len(s.levels)-1]
	s.levels = s.levels[:len(s.levels)-1]
	s.defaultsPop(popped.node)
	if len(s.levels) == 1 {
		s.defaultsSet(s.root)
	}
}

func (s *Shell) cmdTop(arg string) {
	if strings.Contains(arg, "?") {
		s.write(" top    Exit to top shell")
		return
	}
	s.levels = s.levels[:1]
	s.defaultsSet(s.root)
}

func (s *Shell) cmdPwd(arg string) {
	if strings.Contains(arg, "?") {
		s.write(" pwd    Print current shell path")
		return
	}
	s.write(strings.Join(s.Path(), "->"))
}

func (s *Shell) cmdCls(arg string) {
	if strings.Contains(arg, "?") {
		s.write(" cls    Clear shell screen")
		return
	}
	io.WriteString(s.stdout, "\033[2J\033[H")
}

func (s *Shell) defaultsUpdate(node *Node) {
	for k, v := range node.defaults() {
		s.defaults[k] = v
	}
}

func (s *Shell) defaultsPop(node *Node) {
	for _, f := range node.Fields() {
		delete(s.defaults, f.Name)
	}
}

func (s *Shell) defaultsSet(node *Node) {
	s.defaults = map[string]any{}
	s.defaultsUpdate(node)
}

// loadHistory restores persisted command history from the history cache.
func (s *Shell) loadHistory() {
	cache, err := NewCache(s.fs, s.config.HistoryFile, s.config.HistoryTTL)
	if err != nil {
		s.log.Debug().Err(err).Msg("history load failed")
		return
	}
	if v, ok := cache.Get(historyKey); ok {
		if lines, ok := v.([]any); ok {
			for _, l := range lines {
				if str, ok := l.(string); ok {
					s.history = append(s.history, str)
				}
			}
		}
	}
}

// saveHistory persists command history through the TTL cache.
func (s *Shell) saveHistory() {
	if s.config.HistoryFile == "" || len(s.history) == 0 {
		return
	}
	cache, err := NewCache(s.fs, s.config.HistoryFile, s.config.HistoryTTL)
	if err != nil {
		s.log.Debug().Err(err).Msg("history save failed")
		return
	}
	cache.Set(historyKey, s.history)
	if err := cache.Sync(10 * time.Second); err != nil {
		s.log.Debug().Err(err).Msg("history sync failed")
	}
}

// History returns the lines evaluated during this session, oldest first.
func (s *Shell) History() []string {
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}

// splitFirstWord splits a line into its first whitespace-separated word and
// the remainder.
func splitFirstWord(line string) (string, string) {
	parts := strings.SplitN(line, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.TrimSpace(parts[1])
}

// helpSuffix reports the help mode a raw line requests.
func helpSuffix(line string) HelpMode {
	trimmed := strings.TrimRight(line, " \t")
	if strings.HasSuffix(trimmed, "??") {
		return HelpVerbose
	}
	if strings.HasSuffix(trimmed, "?") {
		return HelpBrief
	}
	return HelpNone
}
