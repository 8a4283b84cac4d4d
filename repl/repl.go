// Package repl implements the Read-Eval-Print Loop for the Tau programming
// language.
//
// Unlike a single-expression REPL, a Tau program is a set of function
// declarations, so each submission is compiled and run as a whole program:
// the loop scans, parses, binds, type-checks, assigns frame offsets,
// generates code, and executes it on the stack VM, printing whatever the
// program printed. It uses the Charm libraries (Bubbletea, Bubbles, and
// Lipgloss) for a modern terminal interface with history and syntax
// highlighting.
//
// The main entry point is the Start function, which initializes and runs
// the REPL with the given username.
package repl

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dr8co/tau/lexer"
	"github.com/dr8co/tau/pipeline"
	"github.com/dr8co/tau/token"
	"github.com/dr8co/tau/vmutil"
)

const (
	// Prompt is the default prompt for the REPL.
	Prompt = ">> "

	// ContPrompt is the continuation prompt used in multiline input mode.
	ContPrompt = ".. "
)

// Options contains configuration options for the REPL.
type Options struct {
	NoColor bool // Disable syntax highlighting and colored output
	Debug   bool // Dump generated instructions before running
}

// Start initializes and runs the REPL with the given username and options.
func Start(username string, options Options) {
	p := tea.NewProgram(initialModel(username, options))
	if _, err := p.Run(); err != nil {
		fmt.Println("Error running program:", err)
	}
}

// Styling
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	// Error styles
	compileErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FF5F87")).
				Bold(true)

	runtimeErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FF8700")).
				Bold(true)

	historyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))

	// Syntax highlighting styles
	keywordStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF79C6")).
			Bold(true)

	identifierStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#F8F8F2"))

	literalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F1FA8C"))

	operatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	delimiterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#BD93F9"))
)

// ErrorType represents the type of error that occurred evaluating a
// submission.
type ErrorType int

const (
	// NoError indicates that no error occurred.
	NoError ErrorType = iota

	// CompileError covers every error raised before code generation
	// finishes: a syntax error, an undefined identifier, a type mismatch,
	// or any other compile-time failure.
	CompileError

	// RuntimeError signifies a failure raised by the VM while executing an
	// otherwise-compiled program, including a stack imbalance at halt.
	RuntimeError
)

// evalResultMsg carries the outcome of an asynchronous evaluation back to
// Update.
type evalResultMsg struct {
	output    string
	isError   bool
	errorType ErrorType
	elapsed   time.Duration
}

// model represents the state of the application.
type model struct {
	textInput       textinput.Model
	history         []historyEntry
	username        string
	evaluating      bool
	currentInput    string
	multilineBuffer string // Buffer for multiline input
	isMultiline     bool   // Flag to indicate if we're in multiline mode
	spinner         spinner.Model
	options         Options
}

// applyStyle applies a lipgloss style to a string, respecting the NoColor option.
func (m model) applyStyle(style lipgloss.Style, text string) string {
	if m.options.NoColor {
		return text
	}
	return style.Render(text)
}

// historyEntry represents a single entry in the REPL history.
type historyEntry struct {
	input          string
	output         string
	isError        bool
	errorType      ErrorType
	evaluationTime time.Duration
}

// initialModel creates a new model with default values.
func initialModel(username string, options Options) model {
	ti := textinput.New()
	ti.Placeholder = "func main() { ... }"
	ti.Focus()
	ti.Width = 80
	ti.Prompt = promptStyle.Render(Prompt)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	return model{
		textInput: ti,
		username:  username,
		spinner:   s,
		options:   options,
	}
}

// Init is the first function that will be called.
func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// isBalanced checks if brackets, braces, and parentheses are balanced in
// the input, used to decide whether to keep collecting multiline input.
func isBalanced(input string) bool {
	var stack []rune

	for _, char := range input {
		switch char {
		case '(', '{', '[':
			stack = append(stack, char)
		case ')':
			if len(stack) == 0 || stack[len(stack)-1] != '(' {
				return false
			}
			stack = stack[:len(stack)-1]
		case '}':
			if len(stack) == 0 || stack[len(stack)-1] != '{' {
				return false
			}
			stack = stack[:len(stack)-1]
		case ']':
			if len(stack) == 0 || stack[len(stack)-1] != '[' {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}

	return len(stack) == 0
}

// evalCmd compiles and runs a whole Tau program asynchronously, returning
// whatever it printed or the first error from whichever pass raised one.
func evalCmd(input string, debug bool) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()

		insns, stopped, err := pipeline.Run(input, "")

		var output string
		isError := false
		errorType := NoError

		switch {
		case err != nil:
			isError = true
			errorType = CompileError
			output = formatCompileError(err)
		case stopped != nil:
			// Only reachable if pipeline.Run is ever asked to stop early;
			// the REPL always runs to completion.
			output = "(stopped before code generation)"
		default:
			var buf bytes.Buffer
			if debug {
				vmutil.Dump(insns, &buf)
			}
			if runErr := vmutil.Invoke(insns, nil, &buf, false); runErr != nil {
				isError = true
				errorType = RuntimeError
				output = formatRuntimeError(runErr.Error())
			} else {
				output = buf.String()
				if output == "" {
					output = "(no output)"
				}
			}
		}

		return evalResultMsg{
			output:    output,
			isError:   isError,
			errorType: errorType,
			elapsed:   time.Since(start),
		}
	}
}

// formatError renders an error entry, splitting off a trailing "Tips:"
// section so it can be styled separately from the error message itself.
func (m model) formatError(style lipgloss.Style, entry *historyEntry, s *strings.Builder) {
	parts := strings.SplitN(entry.output, "\nTips:", 2)
	if m.options.NoColor {
		s.WriteString(parts[0])
	} else {
		s.WriteString(style.Render(parts[0]))
	}
	if len(parts) > 1 {
		s.WriteString("\n")
		if m.options.NoColor {
			s.WriteString("Tips:" + parts[1])
		} else {
			s.WriteString(historyStyle.Render("Tips:" + parts[1]))
		}
	}
}

// Update handles all the updates to our model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.evaluating {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case evalResultMsg:
		m.evaluating = false
		m.history = append(m.history, historyEntry{
			input:          m.currentInput,
			output:         msg.output,
			isError:        msg.isError,
			errorType:      msg.errorType,
			evaluationTime: msg.elapsed,
		})
		m.currentInput = ""
		return m, nil

	case tea.KeyMsg:
		if m.evaluating && msg.Type != tea.KeyCtrlC {
			return m, m.spinner.Tick
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyEnter:
			input := m.textInput.Value()
			if input == "" {
				if m.isMultiline {
					if m.multilineBuffer == "" {
						m.isMultiline = false
						return m, nil
					}
					return m, m.startEvaluating(m.multilineBuffer)
				}
				return m, nil
			}

			if m.isMultiline {
				m.multilineBuffer += "\n" + input
				m.textInput.SetValue("")
				if isBalanced(m.multilineBuffer) {
					return m, m.startEvaluating(m.multilineBuffer)
				}
				return m, nil
			}

			if !isBalanced(input) {
				m.isMultiline = true
				m.multilineBuffer = input
				m.textInput.SetValue("")
				return m, nil
			}

			return m, m.startEvaluating(input)
		}
	}

	if !m.evaluating {
		m.textInput, cmd = m.textInput.Update(msg)
	}
	if m.evaluating {
		return m, m.spinner.Tick
	}
	return m, cmd
}

// startEvaluating mutates the model to begin evaluating src and returns the
// command that will perform the evaluation.
func (m *model) startEvaluating(src string) tea.Cmd {
	m.evaluating = true
	m.currentInput = src
	m.textInput.SetValue("")
	m.multilineBuffer = ""
	m.isMultiline = false
	return evalCmd(src, m.options.Debug)
}

// View renders the current UI.
func (m model) View() string {
	var s strings.Builder

	s.WriteString(m.applyStyle(titleStyle, " Tau Language REPL "))
	s.WriteString("\n")

	if m.username != "" {
		s.WriteString(fmt.Sprintf("\nHello %s! Enter a complete Tau program (it must declare main)\n", m.username))
	}
	s.WriteString("\n")

	for _, entry := range m.history {
		lines := strings.Split(entry.input, "\n")
		for i, line := range lines {
			if i == 0 {
				s.WriteString(m.applyStyle(promptStyle, Prompt))
			} else {
				s.WriteString(m.applyStyle(promptStyle, ContPrompt))
			}
			s.WriteString(m.highlightCode(line))
			s.WriteString("\n")
		}

		if entry.isError {
			switch entry.errorType {
			case CompileError:
				m.formatError(compileErrorStyle, &entry, &s)
			case RuntimeError:
				m.formatError(runtimeErrorStyle, &entry, &s)
			default:
				s.WriteString(m.applyStyle(compileErrorStyle, entry.output))
			}
		} else {
			s.WriteString(m.applyStyle(resultStyle, entry.output))
		}

		if entry.evaluationTime > 10*time.Millisecond {
			timeStr := fmt.Sprintf(" (%.2fs)", entry.evaluationTime.Seconds())
			s.WriteString(m.applyStyle(historyStyle, timeStr))
		}

		s.WriteString("\n\n")
	}

	if m.evaluating {
		s.WriteString(m.applyStyle(promptStyle, Prompt))
		s.WriteString(m.highlightCode(m.currentInput))
		s.WriteString("\n")
		s.WriteString(m.spinner.View())
		s.WriteString(" Compiling and running...")
		s.WriteString("\n\n")
	}

	if m.isMultiline && !m.evaluating {
		s.WriteString(m.applyStyle(historyStyle, "Current multiline input:\n"))
		s.WriteString(m.highlightCode(m.multilineBuffer))
		s.WriteString("\n")
	}

	if !m.evaluating {
		if m.isMultiline {
			m.textInput.Prompt = m.applyStyle(promptStyle, ContPrompt)
		} else {
			m.textInput.Prompt = m.applyStyle(promptStyle, Prompt)
		}
		s.WriteString(m.textInput.View())
		s.WriteString("\n")
	}

	helpText := "\nPress Esc or Ctrl+C/D to exit"
	if m.isMultiline {
		helpText += " | Multiline mode: empty line evaluates, or keep typing"
	} else {
		helpText += " | Unbalanced brackets enter multiline mode"
	}
	s.WriteString(m.applyStyle(historyStyle, helpText))

	return s.String()
}

// formatCompileError formats a compile-time failure (syntax, binding,
// type-checking, or code generation) with a short tip list. pipeline.Run
// doesn't distinguish which pass raised the error (every pass reports a
// span-prefixed error message), so the tips stay stage-agnostic.
func formatCompileError(err error) string {
	var s strings.Builder
	s.WriteString("Compile error:\n  ")
	s.WriteString(err.Error())
	s.WriteString("\n\nTips:\n")
	s.WriteString("  • Every program needs a func main()\n")
	s.WriteString("  • Check declared types match how a value is used\n")
	s.WriteString("  • Check identifiers are declared before use\n")
	return s.String()
}

// formatRuntimeError formats a VM failure with a short tip list.
func formatRuntimeError(msg string) string {
	var s strings.Builder
	s.WriteString("Runtime error:\n  ")
	s.WriteString(msg)
	s.WriteString("\n\nTips:\n")
	s.WriteString("  • Check for division by zero or out-of-range indexing\n")
	s.WriteString("  • A stack imbalance usually means a call is missing its epilogue\n")
	return s.String()
}

// highlightCode applies syntax highlighting to a line or block of Tau code.
// Tau has no string literals and no statement terminator, so highlighting
// only needs to classify each token and decide where a space belongs.
func (m model) highlightCode(code string) string {
	l := lexer.New(code)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}

	var s strings.Builder
	for i := 0; i < len(tokens)-1; i++ {
		tok := tokens[i]
		if i > 0 && needsSpaceBefore(tokens[i-1], tok) {
			s.WriteString(" ")
		}
		s.WriteString(m.styleToken(tok))
	}
	return s.String()
}

func (m model) styleToken(tok token.Token) string {
	switch {
	case isKeyword(tok.Type):
		return m.applyStyle(keywordStyle, tok.Literal)
	case tok.Type == token.Ident:
		return m.applyStyle(identifierStyle, tok.Literal)
	case tok.Type == token.Int:
		return m.applyStyle(literalStyle, tok.Literal)
	case isOperator(tok.Type):
		return m.applyStyle(operatorStyle, tok.Literal)
	case isDelimiter(tok.Type):
		return m.applyStyle(delimiterStyle, tok.Literal)
	default:
		return tok.Literal
	}
}

func isKeyword(t token.Type) bool {
	switch t {
	case token.Func, token.Var, token.Void, token.IntTy, token.BoolTy, token.True, token.False,
		token.If, token.Else, token.While, token.Return, token.Print, token.Call,
		token.And, token.Or, token.Not:
		return true
	default:
		return false
	}
}

func isOperator(t token.Type) bool {
	switch t {
	case token.Assign, token.Plus, token.Minus, token.Asterisk, token.Slash,
		token.Lt, token.Lte, token.Gt, token.Gte, token.Eq, token.NotEq:
		return true
	default:
		return false
	}
}

func isDelimiter(t token.Type) bool {
	switch t {
	case token.Comma, token.Colon, token.Lparen, token.Rparen,
		token.Lbrace, token.Rbrace, token.Lbracket, token.Rbracket:
		return true
	default:
		return false
	}
}

// needsSpaceBefore decides whether a rendered space belongs between two
// adjacent tokens, so that "f(a, b)" and "a[i]" come out without stray
// spaces around the grouping punctuation.
func needsSpaceBefore(prev, tok token.Token) bool {
	switch tok.Type {
	case token.Comma, token.Colon, token.Rparen, token.Rbracket:
		return false
	}
	switch prev.Type {
	case token.Lparen, token.Lbracket:
		return false
	}
	return true
}
