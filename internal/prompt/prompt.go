// internal/prompt/prompt.go
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var ErrInvalidInput = errors.New("invalid input")

// Prompter asks the operator for run parameters on a line-oriented console.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out}
}

func (p *Prompter) readLine() (string, error) {
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(p.in.Text()), nil
}

// Address asks for the server address. An empty answer keeps def.
func (p *Prompter) Address(def string) (string, error) {
	fmt.Fprintf(p.out, "Server address (for example, %s):\n", def)
	line, err := p.readLine()
	if err != nil {
		return "", err
	}
	if line == "" {
		return def, nil
	}
	return line, nil
}

// Port asks for the server port. An empty answer keeps def.
func (p *Prompter) Port(def int) (int, error) {
	fmt.Fprintf(p.out, "Port (for example, %d):\n", def)
	line, err := p.readLine()
	if err != nil {
		return 0, err
	}
	if line == "" {
		return def, nil
	}
	port, err := strconv.Atoi(line)
	if err != nil || port < 1 || port > 65535 {
		fmt.Fprintln(p.out, "Invalid port input.")
		return 0, fmt.Errorf("%w: port %q", ErrInvalidInput, line)
	}
	return port, nil
}

// MessageCount asks how many messages the next batch sends.
func (p *Prompter) MessageCount() (int, error) {
	fmt.Fprintln(p.out, "Number of messages to send:")
	line, err := p.readLine()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 {
		fmt.Fprintln(p.out, "Invalid message count input.")
		return 0, fmt.Errorf("%w: message count %q", ErrInvalidInput, line)
	}
	return n, nil
}

// Continue asks whether to send another batch. Only "y" means yes.
func (p *Prompter) Continue() (bool, error) {
	fmt.Fprintln(p.out, "Send more messages? (y/n):")
	line, err := p.readLine()
	if err != nil {
		return false, err
	}
	return strings.ToLower(line) == "y", nil
}
