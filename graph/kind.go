package graph

import (
	"fmt"
	"strings"
)

// Kind classifies a node. The set is closed: every switch over Kind in this
// module handles all values.
type Kind int

const (
	KindUnknown Kind = iota
	KindStart
	KindEnd
	KindFork
	KindJoin
	KindShell
	KindPython
	KindPromQL
	KindLocalFile
	KindRemoteFile
)

var kindNames = [...]string{
	KindUnknown:    "Unknown",
	KindStart:      "Start",
	KindEnd:        "End",
	KindFork:       "Fork",
	KindJoin:       "Join",
	KindShell:      "Shell",
	KindPython:     "Python",
	KindPromQL:     "PromQL",
	KindLocalFile:  "LocalFile",
	KindRemoteFile: "RemoteFile",
}

// Kinds lists every known kind in declaration order, excluding KindUnknown.
func Kinds() []Kind {
	return []Kind{KindStart, KindEnd, KindFork, KindJoin, KindShell, KindPython, KindPromQL, KindLocalFile, KindRemoteFile}
}

// String returns the canonical spelling used by the editor palette.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind resolves a nodeType string case-insensitively.
func ParseKind(s string) (Kind, bool) {
	s = strings.TrimSpace(s)
	for _, k := range Kinds() {
		if strings.EqualFold(s, kindNames[k]) {
			return k, true
		}
	}
	return KindUnknown, false
}

// IsProgram reports whether the node does work (emits a SIMPLE task).
func (k Kind) IsProgram() bool {
	switch k {
	case KindShell, KindPython, KindPromQL, KindLocalFile, KindRemoteFile:
		return true
	case KindUnknown, KindStart, KindEnd, KindFork, KindJoin:
		return false
	}
	return false
}

// IsControl reports whether the node only shapes control flow.
func (k Kind) IsControl() bool {
	switch k {
	case KindStart, KindEnd, KindFork, KindJoin:
		return true
	case KindUnknown, KindShell, KindPython, KindPromQL, KindLocalFile, KindRemoteFile:
		return false
	}
	return false
}

// TaskName is the task name emitted for this kind, e.g. "shell" or "fork".
func (k Kind) TaskName() string {
	return strings.ToLower(k.String())
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k == KindUnknown {
		return nil, fmt.Errorf("graph: cannot marshal unknown kind")
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, ok := ParseKind(string(text))
	if !ok {
		return fmt.Errorf("graph: unknown kind %q", string(text))
	}
	*k = parsed
	return nil
}
