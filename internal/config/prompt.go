package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/plsuwu/afkttv"
)

// Prompter asks for credentials on a terminal. When its input is a terminal
// the token is read with echo disabled.
type Prompter struct {
	in     *bufio.Reader
	out    io.Writer
	secret func() (string, error)
}

// NewPrompter creates a prompter reading from in and writing prompts to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{
		in:  bufio.NewReader(in),
		out: out,
	}

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		p.secret = func() (string, error) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(out)
			return string(b), err
		}
	} else {
		p.secret = p.readLine
	}
	return p
}

// Credentials prompts for a token and a user name.
func (p *Prompter) Credentials() (afkttv.Credentials, error) {
	fmt.Fprint(p.out, "OAuth token: ")
	auth, err := p.secret()
	if err != nil {
		return afkttv.Credentials{}, fmt.Errorf("read token: %w", err)
	}

	fmt.Fprint(p.out, "Username: ")
	user, err := p.readLine()
	if err != nil {
		return afkttv.Credentials{}, fmt.Errorf("read username: %w", err)
	}

	creds := normalize(afkttv.Credentials{Auth: auth, User: user})
	if err := validate(creds); err != nil {
		return afkttv.Credentials{}, fmt.Errorf("%w: %w", afkttv.ErrConfig, err)
	}
	return creds, nil
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// LoadOrPrompt loads the credentials at path. If the file does not exist it
// prompts for them and saves the answer before returning it. Any other load
// failure is returned as is.
func LoadOrPrompt(path string, p *Prompter) (afkttv.Credentials, error) {
	creds, err := Load(path)
	if err == nil {
		return creds, nil
	}
	if !errors.Is(err, fs.ErrNotExist) || p == nil {
		return afkttv.Credentials{}, err
	}

	fmt.Fprintf(p.out, "No credentials found at %s\n", path)
	creds, err = p.Credentials()
	if err != nil {
		return afkttv.Credentials{}, err
	}

	if err := Save(path, creds); err != nil {
		return afkttv.Credentials{}, err
	}
	fmt.Fprintf(p.out, "Credentials saved to %s\n", path)
	return creds, nil
}
