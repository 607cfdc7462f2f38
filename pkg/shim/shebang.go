package shim

import (
	"bytes"
	"io"
	"path"
	"regexp"
	"strings"
)

// HeadSize is how many leading bytes of a target are inspected for a
// shebang line.
const HeadSize = 127

// Exec is how a shim starts its target.
type Exec int

const (
	// ExecDirect runs the target itself: no shebang, or #!/bin/sh.
	ExecDirect Exec = iota
	// ExecAbsolute runs the target through an interpreter given by path.
	ExecAbsolute
	// ExecEnv runs the target through an interpreter looked up by name.
	ExecEnv
)

func (e Exec) String() string {
	switch e {
	case ExecAbsolute:
		return "absolute"
	case ExecEnv:
		return "env"
	default:
		return "direct"
	}
}

// Shebang is the parsed first line of an executable.
type Shebang struct {
	Exec        Exec
	Interpreter string // path for ExecAbsolute, bare name for ExecEnv
	Args        string // trailing arguments, with one leading space when present
}

var shebangRe = regexp.MustCompile(`^#!\s*(?:/usr/bin/env(?:\s+-S)?\s+)?(\S+)(.*)$`)

// systemShell is the one interpreter path whose scripts are exec'd directly.
// Any other shell, including sh or bash named through env, is resolved like
// every other interpreter.
const systemShell = "/bin/sh"

// ParseShebang parses the first line of head. Input without a "#!" line, or
// with #!/bin/sh, yields ExecDirect.
func ParseShebang(head []byte) Shebang {
	if len(head) > HeadSize {
		head = head[:HeadSize]
	}
	line, _, _ := bytes.Cut(head, []byte("\n"))
	line = bytes.TrimRight(line, "\r")

	m := shebangRe.FindSubmatch(line)
	if m == nil {
		return Shebang{}
	}
	interp := string(m[1])
	if interp == systemShell {
		return Shebang{}
	}

	sb := Shebang{Exec: ExecEnv, Interpreter: interp}
	if path.IsAbs(interp) {
		sb.Exec = ExecAbsolute
	}
	if args := strings.TrimSpace(string(m[2])); args != "" {
		sb.Args = " " + args
	}
	return sb
}

// ReadShebang reads up to HeadSize bytes from r and parses them.
func ReadShebang(r io.Reader) (Shebang, error) {
	buf := make([]byte, HeadSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return Shebang{}, err
	}
	return ParseShebang(buf[:n]), nil
}
